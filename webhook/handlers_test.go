package webhook

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gmLucario/pet-info-sub000/config"
)

func newWebhookTestRouter(t *testing.T, cfg *config.WhatsAppConfig) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	auth := NewAuthenticator(cfg)
	processor := NewProcessor(NewRouter(&fakeDirectory{}, &fakeGateway{}, &fakeReports{}), 2)

	engine := gin.New()
	engine.GET("/webhook/whatsapp", VerificationHandler(cfg))
	engine.POST("/webhook/whatsapp", ReceiveHandler(auth, processor))
	return engine
}

func TestVerificationHandshake(t *testing.T) {
	cfg := &config.WhatsAppConfig{VerifyToken: "expected-token"}
	engine := newWebhookTestRouter(t, cfg)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/webhook/whatsapp?hub.mode=subscribe&hub.verify_token=expected-token&hub.challenge=challenge123", nil)
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if rec.Body.String() != "challenge123" {
		t.Fatalf("body %q, want the echoed challenge", rec.Body.String())
	}
}

func TestVerificationHandshakeRejected(t *testing.T) {
	cfg := &config.WhatsAppConfig{VerifyToken: "expected-token"}
	engine := newWebhookTestRouter(t, cfg)

	cases := []string{
		"/webhook/whatsapp?hub.mode=unsubscribe&hub.verify_token=expected-token&hub.challenge=c",
		"/webhook/whatsapp?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=c",
		"/webhook/whatsapp?hub.mode=subscribe&hub.challenge=c",
	}
	for _, target := range cases {
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		if rec.Code != http.StatusForbidden {
			t.Fatalf("GET %s: status %d, want 403", target, rec.Code)
		}
	}
}

func TestReceiveAcksAuthenticatedBatch(t *testing.T) {
	t.Setenv("WEBHOOK_SIGNATURE_ENFORCED", "true")
	t.Setenv("WEBHOOK_MTLS_ENFORCED", "false")

	cfg := &config.WhatsAppConfig{AppSecret: "test_secret"}
	engine := newWebhookTestRouter(t, cfg)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook/whatsapp", strings.NewReader(wellFormedBatch))
	req.Header.Set("X-Hub-Signature-256", signBody(cfg.AppSecret, []byte(wellFormedBatch)))
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"received"`) {
		t.Fatalf("body %q", rec.Body.String())
	}
}

func TestReceiveRejectsBadSignature(t *testing.T) {
	t.Setenv("WEBHOOK_SIGNATURE_ENFORCED", "true")
	t.Setenv("WEBHOOK_MTLS_ENFORCED", "false")

	cfg := &config.WhatsAppConfig{AppSecret: "test_secret"}
	engine := newWebhookTestRouter(t, cfg)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook/whatsapp", strings.NewReader(wellFormedBatch))
	req.Header.Set("X-Hub-Signature-256", signBody("other_secret", []byte(wellFormedBatch)))
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", rec.Code)
	}
}

func TestReceiveRejectsNonEnvelopeBody(t *testing.T) {
	t.Setenv("WEBHOOK_SIGNATURE_ENFORCED", "true")
	t.Setenv("WEBHOOK_MTLS_ENFORCED", "false")

	cfg := &config.WhatsAppConfig{AppSecret: "test_secret"}
	engine := newWebhookTestRouter(t, cfg)

	body := `{"hello":"world"}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook/whatsapp", strings.NewReader(body))
	req.Header.Set("X-Hub-Signature-256", signBody(cfg.AppSecret, []byte(body)))
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", rec.Code)
	}
}
