package config

import (
	"os"
	"strings"
)

// WebhookSignatureEnforced requires a valid X-Hub-Signature-256 on every
// webhook POST. Disable only for local development against the provider's
// test console.
//
// Set via env:
// - WEBHOOK_SIGNATURE_ENFORCED=true (default true)
func WebhookSignatureEnforced() bool {
	return envFlagDefaultTrue("WEBHOOK_SIGNATURE_ENFORCED")
}

// WebhookMTLSEnforced requires the reverse proxy's client-certificate
// assertion headers on every webhook POST. Staging environments without the
// mTLS-terminating proxy set this to false.
//
// Set via env:
// - WEBHOOK_MTLS_ENFORCED=true (default true)
func WebhookMTLSEnforced() bool {
	return envFlagDefaultTrue("WEBHOOK_MTLS_ENFORCED")
}

func envFlagDefaultTrue(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if v == "" {
		return true
	}
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
