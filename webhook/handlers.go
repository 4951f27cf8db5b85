package webhook

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gmLucario/pet-info-sub000/config"
	"github.com/gmLucario/pet-info-sub000/models"
	"github.com/gmLucario/pet-info-sub000/utils"
)

// maxWebhookBodyBytes bounds how much of an unauthenticated request we are
// willing to read.
const maxWebhookBodyBytes = 1 << 20

// dedupTTL keeps provider message ids long enough to absorb webhook
// redelivery.
const dedupTTL = 24 * time.Hour

// Processor fans decoded events out to background workers. The HTTP response
// returns before any of them finish; the provider only needs the ack.
type Processor struct {
	router      *Router
	maxInFlight chan struct{}
}

func NewProcessor(router *Router, maxInFlight int) *Processor {
	if maxInFlight <= 0 {
		maxInFlight = 8
	}
	return &Processor{
		router:      router,
		maxInFlight: make(chan struct{}, maxInFlight),
	}
}

// HandleBatch processes every event of one webhook call concurrently. Each
// event is an independent unit of work: one failing or slow message never
// holds up the others.
func (p *Processor) HandleBatch(ctx context.Context, events []InboundEvent) {
	// the request context dies when the handler returns; keep only the
	// correlation id for the background work
	bgCtx := context.Background()
	if correlationId, ok := utils.GetCorrelationIdFromContext(ctx); ok {
		bgCtx = utils.SetCorrelationIdInContext(bgCtx, correlationId)
	}

	for i := range events {
		event := events[i]
		p.maxInFlight <- struct{}{}
		go func() {
			defer func() { <-p.maxInFlight }()

			workCtx, cancel := context.WithTimeout(bgCtx, 30*time.Second)
			defer cancel()
			p.handleEvent(workCtx, event)
		}()
	}
}

func (p *Processor) handleEvent(ctx context.Context, event InboundEvent) {
	logger := config.GetLogger()

	switch event.Kind {
	case EventMessage:
		msg := event.Message
		fresh, err := config.SetRedisValueIfAbsent("WebhookMsg:"+msg.ID, "1", dedupTTL)
		if err != nil {
			config.LogError(logger, moduleName, "handleEvent", "dedup check", map[string]any{"messageId": msg.ID}, err)
		}
		if !fresh {
			logger.WithField("messageId", msg.ID).Info("skipping redelivered webhook message")
			return
		}
		if err := p.router.Route(ctx, msg); err != nil {
			config.LogError(logger, moduleName, "handleEvent", "route message",
				map[string]any{"messageId": msg.ID, "from": msg.From}, err)
			// release the dedup key so the provider's redelivery is processed
			if derr := config.RemoveRedisKey("WebhookMsg:" + msg.ID); derr != nil {
				config.LogError(logger, moduleName, "handleEvent", "release dedup key",
					map[string]any{"messageId": msg.ID}, derr)
			}
		}

	case EventStatusUpdate:
		status := event.Status
		db := config.GetDB()
		if db == nil {
			logger.WithField("messageId", status.ID).Warn("db not ready, dropping delivery event")
			return
		}
		eventTime := time.Now().UTC()
		if secs, err := strconv.ParseInt(status.Timestamp, 10, 64); err == nil {
			eventTime = time.Unix(secs, 0).UTC()
		}
		if err := models.RecordDeliveryEvent(ctx, db, status.ID, status.Status, status.RecipientID, eventTime); err != nil {
			config.LogError(logger, moduleName, "handleEvent", "record delivery event",
				map[string]any{"messageId": status.ID, "status": status.Status}, err)
		}
	}
}

// VerificationHandler answers the provider's GET handshake: echo the
// challenge when the verify token matches, 403 otherwise.
func VerificationHandler(cfg *config.WhatsAppConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		mode := c.Query("hub.mode")
		verifyToken := c.Query("hub.verify_token")
		challenge := c.Query("hub.challenge")

		if mode != "subscribe" || verifyToken == "" || verifyToken != cfg.VerifyToken {
			config.GetLogger().WithField("mode", mode).Warn("webhook verification handshake rejected")
			c.JSON(http.StatusForbidden, gin.H{"error": "verification failed"})
			return
		}

		c.String(http.StatusOK, "%s", challenge)
	}
}

// ReceiveHandler is the POST webhook entry point: authenticate the raw body,
// decode it, ack with 200 immediately, then hand the events to the processor.
func ReceiveHandler(auth *Authenticator, processor *Processor) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		rawBody, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes))
		if err != nil {
			config.LogError(logger, moduleName, "ReceiveHandler", "read body", nil, err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		// authentication first; the body stays unparsed bytes until the
		// signature holds
		if err := auth.Authenticate(rawBody, c.Request.Header); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		events, err := Decode(rawBody)
		if err != nil {
			config.LogError(logger, moduleName, "ReceiveHandler", "decode envelope", nil, err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		logger.WithField("events", len(events)).Info("accepted webhook batch")

		c.JSON(http.StatusOK, gin.H{"status": "received"})

		processor.HandleBatch(c.Request.Context(), events)
	}
}
