package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"

	"github.com/gmLucario/pet-info-sub000/config"
)

const (
	signatureHeader    = "X-Hub-Signature-256"
	certVerifiedHeader = "X-Client-Cert-Verified"
	certDnHeader       = "X-Client-Cert-Dn"
)

var (
	ErrBadSignature    = errors.New("webhook signature verification failed")
	ErrBadClientCert   = errors.New("webhook client certificate check failed")
	ErrMissingIdentity = errors.New("webhook identity headers missing")
)

// Authenticator validates that a webhook request genuinely originates from
// the messaging provider before any byte of the body gets parsed.
type Authenticator struct {
	cfg *config.WhatsAppConfig
}

func NewAuthenticator(cfg *config.WhatsAppConfig) *Authenticator {
	return &Authenticator{cfg: cfg}
}

// Authenticate runs the signature check and the mTLS identity check against
// the raw request body and headers. Each check can be switched off for
// local and staging deployments. Rejection reasons are logged without the
// app secret ever appearing in the log line.
func (a *Authenticator) Authenticate(rawBody []byte, header http.Header) error {
	logger := config.GetLogger()

	if config.WebhookSignatureEnforced() {
		if !VerifySignature(header.Get(signatureHeader), rawBody, a.cfg.AppSecret) {
			config.LogError(logger, moduleName, "Authenticate", "signature check",
				map[string]any{"bodyLen": len(rawBody)}, ErrBadSignature)
			return ErrBadSignature
		}
	}

	if config.WebhookMTLSEnforced() {
		verified := header.Get(certVerifiedHeader)
		dn := header.Get(certDnHeader)
		if verified == "" || dn == "" {
			config.LogError(logger, moduleName, "Authenticate", "mtls identity check", nil, ErrMissingIdentity)
			return ErrMissingIdentity
		}
		if verified != "SUCCESS" || dn != a.cfg.ClientCertDN {
			config.LogError(logger, moduleName, "Authenticate", "mtls identity check",
				map[string]any{"verified": verified, "dn": dn}, ErrBadClientCert)
			return ErrBadClientCert
		}
	}

	return nil
}

// VerifySignature checks the X-Hub-Signature-256 header value against the raw
// payload. The provider signs the exact body bytes with HMAC-SHA256 using the
// app secret and sends the digest as "sha256=<hex>". Comparison is constant
// time.
func VerifySignature(signatureHeaderValue string, payload []byte, appSecret string) bool {
	signatureHex, ok := strings.CutPrefix(signatureHeaderValue, "sha256=")
	if !ok {
		return false
	}

	presented, err := hex.DecodeString(signatureHex)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), presented)
}
