package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"testing"

	"github.com/gmLucario/pet-info-sub000/config"
)

func signBody(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignatureValid(t *testing.T) {
	payload := []byte(`{"test":"data"}`)
	secret := "test_secret"

	if !VerifySignature(signBody(secret, payload), payload, secret) {
		t.Fatalf("valid signature rejected")
	}
}

func TestVerifySignatureInvalid(t *testing.T) {
	payload := []byte(`{"test":"data"}`)

	header := "sha256=0000000000000000000000000000000000000000000000000000000000000000"
	if VerifySignature(header, payload, "test_secret") {
		t.Fatalf("all-zero signature accepted")
	}
}

func TestVerifySignatureWrongSecret(t *testing.T) {
	payload := []byte(`{"test":"data"}`)

	header := signBody("wrong_secret", payload)
	if VerifySignature(header, payload, "test_secret") {
		t.Fatalf("signature from wrong secret accepted")
	}
}

func TestVerifySignatureHeaderFormat(t *testing.T) {
	payload := []byte(`{"test":"data"}`)

	if VerifySignature("abc123", payload, "test_secret") {
		t.Fatalf("header without sha256= prefix accepted")
	}
	if VerifySignature("sha1=abc123", payload, "test_secret") {
		t.Fatalf("sha1 header accepted")
	}
	if VerifySignature("sha256=zzzzz", payload, "test_secret") {
		t.Fatalf("non-hex signature accepted")
	}
	if VerifySignature("", payload, "test_secret") {
		t.Fatalf("empty header accepted")
	}
}

func TestVerifySignatureTamperedPayload(t *testing.T) {
	original := []byte(`{"test":"data"}`)
	tampered := []byte(`{"test":"datb"}`)
	secret := "test_secret"

	header := signBody(secret, original)
	if VerifySignature(header, tampered, secret) {
		t.Fatalf("single-byte mutation still verified")
	}
}

func TestAuthenticateSignatureAndIdentity(t *testing.T) {
	t.Setenv("WEBHOOK_SIGNATURE_ENFORCED", "true")
	t.Setenv("WEBHOOK_MTLS_ENFORCED", "true")

	cfg := &config.WhatsAppConfig{
		AppSecret:    "test_secret",
		ClientCertDN: "CN=client.whatsapp.net",
	}
	auth := NewAuthenticator(cfg)
	payload := []byte(`{"object":"whatsapp_business_account"}`)

	header := http.Header{}
	header.Set("X-Hub-Signature-256", signBody(cfg.AppSecret, payload))
	header.Set("X-Client-Cert-Verified", "SUCCESS")
	header.Set("X-Client-Cert-Dn", "CN=client.whatsapp.net")

	if err := auth.Authenticate(payload, header); err != nil {
		t.Fatalf("fully authenticated request rejected: %v", err)
	}

	header.Set("X-Client-Cert-Dn", "CN=impostor.example.com")
	if err := auth.Authenticate(payload, header); err == nil {
		t.Fatalf("wrong client cert dn accepted")
	}

	header.Set("X-Client-Cert-Dn", "CN=client.whatsapp.net")
	header.Set("X-Client-Cert-Verified", "FAILED")
	if err := auth.Authenticate(payload, header); err == nil {
		t.Fatalf("unverified client cert accepted")
	}

	header.Set("X-Client-Cert-Verified", "SUCCESS")
	header.Set("X-Hub-Signature-256", signBody("other_secret", payload))
	if err := auth.Authenticate(payload, header); err == nil {
		t.Fatalf("bad signature accepted")
	}
}

func TestAuthenticateChecksTogglable(t *testing.T) {
	t.Setenv("WEBHOOK_SIGNATURE_ENFORCED", "false")
	t.Setenv("WEBHOOK_MTLS_ENFORCED", "false")

	auth := NewAuthenticator(&config.WhatsAppConfig{AppSecret: "test_secret"})

	if err := auth.Authenticate([]byte(`{}`), http.Header{}); err != nil {
		t.Fatalf("disabled checks still rejected request: %v", err)
	}
}
