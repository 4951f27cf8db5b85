package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"github.com/gmLucario/pet-info-sub000/config"
)

// Gateway is the outbound messaging surface the router and dispatcher talk
// to. GatewayClient implements it against the WhatsApp Business API; tests
// substitute fakes.
type Gateway interface {
	SendText(ctx context.Context, to string, body string) error
	SendInteractiveList(ctx context.Context, to string, header string, body string, button string, rows []ListRow) error
	SendDocumentByID(ctx context.Context, to string, mediaID string, filename string) error
	SendDocumentByLink(ctx context.Context, to string, link string, filename string) error
	SendTemplate(ctx context.Context, to string, templateName string, bodyParams []string) error
	UploadMedia(ctx context.Context, fileBytes []byte, mimeType string, filename string) (string, error)
}

// GatewayClient posts messages to the Graph API over bearer-token HTTPS.
type GatewayClient struct {
	cfg        *config.WhatsAppConfig
	httpClient *http.Client
}

func NewGatewayClient(cfg *config.WhatsAppConfig) *GatewayClient {
	return &GatewayClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (g *GatewayClient) SendText(ctx context.Context, to string, body string) error {
	_, err := g.postMessage(ctx, newOutgoingTextMessage(to, body))
	return err
}

func (g *GatewayClient) SendInteractiveList(ctx context.Context, to string, header string, body string, button string, rows []ListRow) error {
	_, err := g.postMessage(ctx, newOutgoingListMessage(to, header, body, button, rows))
	return err
}

func (g *GatewayClient) SendDocumentByID(ctx context.Context, to string, mediaID string, filename string) error {
	_, err := g.postMessage(ctx, newOutgoingDocumentByID(to, mediaID, filename))
	return err
}

func (g *GatewayClient) SendDocumentByLink(ctx context.Context, to string, link string, filename string) error {
	_, err := g.postMessage(ctx, newOutgoingDocumentByLink(to, link, filename))
	return err
}

func (g *GatewayClient) SendTemplate(ctx context.Context, to string, templateName string, bodyParams []string) error {
	_, err := g.postMessage(ctx, newOutgoingTemplateMessage(to, templateName, bodyParams))
	return err
}

// UploadMedia pushes file bytes to the media endpoint and returns the media
// id usable in a later document send.
func (g *GatewayClient) UploadMedia(ctx context.Context, fileBytes []byte, mimeType string, filename string) (string, error) {
	var form bytes.Buffer
	writer := multipart.NewWriter(&form)

	if err := writer.WriteField("messaging_product", "whatsapp"); err != nil {
		return "", err
	}

	partHeader := textproto.MIMEHeader{}
	partHeader.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	partHeader.Set("Content-Type", mimeType)
	part, err := writer.CreatePart(partHeader)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(fileBytes); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.MediaUploadEndpoint(), &form)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+g.cfg.AuthToken)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("media upload request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", gatewayStatusError("media upload", resp)
	}

	var uploaded mediaUploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&uploaded); err != nil {
		return "", fmt.Errorf("decode media upload response: %w", err)
	}
	return uploaded.ID, nil
}

func (g *GatewayClient) postMessage(ctx context.Context, message any) (*sendMessageResponse, error) {
	payload, err := json.Marshal(message)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.SendMessageEndpoint(), bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+g.cfg.AuthToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send message request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, gatewayStatusError("send message", resp)
	}

	var ack sendMessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return nil, fmt.Errorf("decode send message response: %w", err)
	}
	return &ack, nil
}

func gatewayStatusError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return fmt.Errorf("%s: gateway returned status %d: %s", op, resp.StatusCode, string(body))
}
