package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gmLucario/pet-info-sub000/config"
	"github.com/gmLucario/pet-info-sub000/middlewares"
	"github.com/gmLucario/pet-info-sub000/models"
	"github.com/gmLucario/pet-info-sub000/notification"
	"github.com/gmLucario/pet-info-sub000/otp"
	"github.com/gmLucario/pet-info-sub000/utils"
	"github.com/gmLucario/pet-info-sub000/webhook"
	"github.com/sirupsen/logrus"
)

const defaultPort = "8080"

const phoneClaimLifespan = 10 * time.Minute

type sendVerificationRequest struct {
	Phone string `json:"phone" binding:"required,e164"`
}

type checkVerificationRequest struct {
	Phone string `json:"phone" binding:"required,e164"`
	Code  string `json:"code" binding:"required,len=6,numeric"`
}

type createReminderRequest struct {
	Body           string `json:"body" binding:"required,max=1024"`
	SendAt         string `json:"send_at" binding:"required"`
	Timezone       string `json:"timezone" binding:"required"`
	PhoneClaim     string `json:"phone_claim" binding:"required"`
	RepeatType     string `json:"repeat_type"`
	RepeatInterval int    `json:"repeat_interval"`
}

// parseLocalSendAt accepts the wall-clock form the web client submits, plus
// RFC3339 for API callers. The timezone field decides what instant it means.
func parseLocalSendAt(value string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02T15:04:05", value); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02T15:04", value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}

func sendVerificationHandler(verifier *otp.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req sendVerificationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
			return
		}

		if err := verifier.SendVerification(c.Request.Context(), req.Phone); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "could not send verification code"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "sent"})
	}
}

func checkVerificationHandler(verifier *otp.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req checkVerificationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
			return
		}

		userID, _ := utils.GetUserIdFromContext(c.Request.Context())
		if !verifier.CheckCode(req.Phone, req.Code) {
			c.JSON(http.StatusUnauthorized, gin.H{"verified": false})
			return
		}

		if err := models.SetVerifiedPhone(c.Request.Context(), userID, req.Phone); err != nil {
			config.LogError(config.GetLogger(), "server", "checkVerificationHandler", "persist verified phone",
				map[string]any{"userId": userID}, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save verified phone"})
			return
		}

		claim, err := utils.PhoneClaimGenerate(userID, req.Phone, phoneClaimLifespan)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue phone claim"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"verified": true, "phone_claim": claim})
	}
}

func removeVerifiedPhoneHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := utils.GetUserIdFromContext(c.Request.Context())
		if err := models.ClearVerifiedPhone(c.Request.Context(), userID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not remove verified phone"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "removed"})
	}
}

func createReminderHandler(dispatcher *notification.Dispatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createReminderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
			return
		}

		userID, _ := utils.GetUserIdFromContext(c.Request.Context())

		claim, err := utils.PhoneClaimValidate(req.PhoneClaim)
		if err != nil || claim.UserID != userID {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "phone verification required"})
			return
		}

		sendAt, err := parseLocalSendAt(req.SendAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid send_at"})
			return
		}

		var repeat *models.RepeatConfig
		if req.RepeatType != "" {
			repeatType, err := models.ParseRepeatType(req.RepeatType)
			if err != nil || req.RepeatInterval <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid repeat config"})
				return
			}
			repeat = &models.RepeatConfig{RepeatType: repeatType, RepeatInterval: req.RepeatInterval}
		}

		reminder, err := dispatcher.Schedule(c.Request.Context(), notification.ScheduleInput{
			OwnerID:  userID,
			Phone:    claim.Phone,
			Body:     req.Body,
			SendAt:   sendAt,
			Timezone: req.Timezone,
			Repeat:   repeat,
		})
		if err != nil {
			switch {
			case errors.Is(err, notification.ErrInvalidTimezone), errors.Is(err, notification.ErrSendAtInPast):
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			default:
				c.JSON(http.StatusBadGateway, gin.H{"error": "could not schedule reminder"})
			}
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"id":      reminder.ID,
			"send_at": reminder.SendAt.Format(time.RFC3339),
			"status":  reminder.Status(),
		})
	}
}

func listRemindersHandler(dispatcher *notification.Dispatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := utils.GetUserIdFromContext(c.Request.Context())

		reminders, err := dispatcher.ListReminders(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list reminders"})
			return
		}

		out := make([]gin.H, 0, len(reminders))
		for i := range reminders {
			reminder := &reminders[i]
			out = append(out, gin.H{
				"id":      reminder.ID,
				"body":    reminder.Body,
				"send_at": reminder.SendAt.Format(time.RFC3339),
				"status":  reminder.Status(),
			})
		}
		c.JSON(http.StatusOK, gin.H{"reminders": out})
	}
}

func deleteReminderHandler(dispatcher *notification.Dispatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := utils.GetUserIdFromContext(c.Request.Context())

		reminderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil || reminderID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reminder id"})
			return
		}

		if err := dispatcher.Cancel(c.Request.Context(), reminderID, userID); err != nil {
			if errors.Is(err, notification.ErrUnknownReminder) {
				c.JSON(http.StatusNotFound, gin.H{"error": "reminder not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete reminder"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "deleted"})
	}
}

func rescheduleHandler(dispatcher *notification.Dispatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		var callback notification.RescheduleCallback
		if err := c.ShouldBindJSON(&callback); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}

		if err := dispatcher.Reschedule(c.Request.Context(), callback); err != nil {
			// unknown reminder is the scheduler's stop-recurring signal;
			// any non-200 ends the recurrence on its side
			config.LogError(config.GetLogger(), "server", "rescheduleHandler", "reschedule callback",
				map[string]any{"reminderId": callback.ReminderID}, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not reschedule"})
			return
		}
		c.Status(http.StatusOK)
	}
}

func reminderActiveHandler(dispatcher *notification.Dispatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		reminderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil || reminderID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reminder id"})
			return
		}

		active, err := dispatcher.CheckLiveness(c.Request.Context(), reminderID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not check reminder"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"active": active})
	}
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}

// customErrorLogger is a custom Gin middleware that logs only errors
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only log when there are errors
		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		// Cloud Run standard env var.
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	// Shutdown coordination.
	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	whatsappCfg := config.LoadWhatsAppConfig()
	gateway := webhook.NewGatewayClient(whatsappCfg)
	verifier := otp.NewVerifier(gateway)
	authenticator := webhook.NewAuthenticator(whatsappCfg)
	actionRouter := webhook.NewRouter(webhook.NewGormDirectory(), gateway, webhook.NewReportGenerator())
	processor := webhook.NewProcessor(actionRouter, 8)
	dispatcher := notification.NewDispatcher(models.GormReminderRepo{}, notification.NewSfnSchedulerClient())

	// Start the HTTP server ASAP so Cloud Run considers the revision healthy.
	// Until DB/Redis are ready, we return 503 for app endpoints.
	r := gin.New()
	r.Use(middlewares.CorrelationMiddleware())
	r.Use(func(c *gin.Context) {
		// Always allow Cloud Run startup probe.
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		// Gate critical endpoints on dependency readiness.
		if config.GetDB() == nil || config.GetRedisDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	// Production-safe CORS: explicit allowlist via CORS_ALLOWED_ORIGINS in
	// production, allow-all elsewhere.
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("token", "Origin", "Content-Type", "Authorization")
	corsConfig.AddExposeHeaders("Content-Length")
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	r.Use(middlewares.SessionMiddleware())
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	// Provider-facing webhook surface.
	r.GET("/webhook/whatsapp", webhook.VerificationHandler(whatsappCfg))
	r.POST("/webhook/whatsapp", webhook.ReceiveHandler(authenticator, processor))

	// Scheduler callbacks (shared-secret auth).
	internal := r.Group("/internal", middlewares.InternalAuthMiddleware())
	internal.POST("/reschedule", rescheduleHandler(dispatcher))
	internal.GET("/reminder/:id/active", reminderActiveHandler(dispatcher))

	// User-facing reminder API (session auth).
	api := r.Group("/api", middlewares.RequireUser())
	api.POST("/reminder/verification/send", sendVerificationHandler(verifier))
	api.POST("/reminder/verification/check", checkVerificationHandler(verifier))
	api.DELETE("/reminder/verified-phone", removeVerifiedPhoneHandler())
	api.POST("/reminders", createReminderHandler(dispatcher))
	api.GET("/reminders", listRemindersHandler(dispatcher))
	api.DELETE("/reminder/:id", deleteReminderHandler(dispatcher))

	r.NoRoute(customNotFoundHandler)

	// Start listening immediately (Cloud Run startup probe is TCP based).
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	// AutoMigrate can run DDL that blocks tables; allow running migrations
	// as a separate job instead.
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	// Start outbox dispatcher (publishes AFTER commit).
	dispatcherCtx, cancelDispatcher := context.WithCancel(context.Background())
	defer cancelDispatcher()
	go notification.NewOutboxDispatcher(db, logger).Run(dispatcherCtx)

	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("listening on port ", port)
	log.Println("Server started successfully")

	// Block until shutdown or server error.
	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// Stop background workers first so they don't start new work while we're draining.
	cancelDispatcher()

	// Drain HTTP requests.
	shutdownTimeout := 30 * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	// Close Redis (best-effort).
	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}
