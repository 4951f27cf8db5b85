package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// WhatsAppConfig holds everything needed to talk to the WhatsApp Business
// API and to authenticate its webhook traffic. Built once at startup and
// passed by reference into the gateway client and webhook authenticator.
type WhatsAppConfig struct {
	// Graph API phone number id the business sends from.
	PhoneNumberID string
	// Bearer token for the Graph API.
	AuthToken string
	// App secret used by Meta to sign webhook payloads (X-Hub-Signature-256).
	AppSecret string
	// Token echoed during the GET webhook verification handshake.
	VerifyToken string
	// Distinguished name of Meta's client certificate, asserted by the
	// mTLS-terminating proxy in X-Client-Cert-Dn.
	ClientCertDN string
	// Graph API version, e.g. "v22.0".
	APIVersion string
}

func init() {
	godotenv.Load()
}

func LoadWhatsAppConfig() *WhatsAppConfig {
	version := os.Getenv("WHATSAPP_API_VERSION")
	if version == "" {
		version = "v22.0"
	}
	return &WhatsAppConfig{
		PhoneNumberID: os.Getenv("WHATSAPP_BUSINESS_PHONE_NUMBER_ID"),
		AuthToken:     os.Getenv("WHATSAPP_BUSINESS_AUTH"),
		AppSecret:     os.Getenv("WHATSAPP_APP_SECRET"),
		VerifyToken:   os.Getenv("WHATSAPP_VERIFY_TOKEN"),
		ClientCertDN:  os.Getenv("WHATSAPP_CLIENT_CERT_DN"),
		APIVersion:    version,
	}
}

// SendMessageEndpoint is the Graph API messages endpoint for the configured
// business phone number.
func (c *WhatsAppConfig) SendMessageEndpoint() string {
	return fmt.Sprintf("https://graph.facebook.com/%s/%s/messages", c.APIVersion, c.PhoneNumberID)
}

// MediaUploadEndpoint is the Graph API media upload endpoint.
func (c *WhatsAppConfig) MediaUploadEndpoint() string {
	return fmt.Sprintf("https://graph.facebook.com/%s/%s/media", c.APIVersion, c.PhoneNumberID)
}

// PublicBaseURL is the externally reachable base URL of the web app; qr/card
// replies link back into it.
func PublicBaseURL() string {
	host := os.Getenv("WEB_SERVER_HOST")
	if host == "" {
		host = "localhost:8080"
	}
	if os.Getenv("GO_ENV") == "production" {
		return "https://" + host
	}
	return "http://" + host
}
