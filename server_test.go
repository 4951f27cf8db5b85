package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gmLucario/pet-info-sub000/middlewares"
	"github.com/gmLucario/pet-info-sub000/models"
	"github.com/gmLucario/pet-info-sub000/notification"
	"github.com/gmLucario/pet-info-sub000/utils"
)

type stubReminderRepo struct {
	known map[int64]bool
}

func (s *stubReminderRepo) InsertReminder(ctx context.Context, reminder *models.Reminder) error {
	return nil
}

func (s *stubReminderRepo) UpdateReminderExecution(ctx context.Context, reminderID int64, executionID string, sendAt time.Time) error {
	if !s.known[reminderID] {
		return utils.ErrorRecordNotFound
	}
	return nil
}

func (s *stubReminderRepo) DeleteReminder(ctx context.Context, reminderID, ownerID int64) error {
	return nil
}

func (s *stubReminderRepo) ReminderExists(ctx context.Context, reminderID int64) (bool, error) {
	return s.known[reminderID], nil
}

func (s *stubReminderRepo) GetReminderExecutionId(ctx context.Context, reminderID, ownerID int64) (string, error) {
	return "", utils.ErrorRecordNotFound
}

func (s *stubReminderRepo) ListActiveReminders(ctx context.Context, ownerID int64, from time.Time) ([]models.Reminder, error) {
	return nil, nil
}

func (s *stubReminderRepo) DeleteAllForOwner(ctx context.Context, ownerID int64) error {
	return nil
}

func (s *stubReminderRepo) DeleteReminderRow(ctx context.Context, reminderID int64) error {
	return nil
}

type stubScheduler struct{}

func (stubScheduler) StartReminderExecution(ctx context.Context, reminderID int64, payload notification.SchedulePayload) (string, error) {
	return "arn:exec:stub", nil
}

func (stubScheduler) StopReminderExecutions(ctx context.Context, reminderID int64) error {
	return nil
}

func newInternalTestRouter(dispatcher *notification.Dispatcher) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	internal := r.Group("/internal", middlewares.InternalAuthMiddleware())
	internal.POST("/reschedule", rescheduleHandler(dispatcher))
	internal.GET("/reminder/:id/active", reminderActiveHandler(dispatcher))
	return r
}

func postInternal(r *gin.Engine, path string, secret string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set("X-Internal-Secret", secret)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestInternalRescheduleCallback(t *testing.T) {
	t.Setenv("INTERNAL_API_SECRET", "callback-secret")
	repo := &stubReminderRepo{known: map[int64]bool{42: true}}
	dispatcher := notification.NewDispatcher(repo, stubScheduler{})
	r := newInternalTestRouter(dispatcher)

	body := `{"reminder_id":42,"new_execution_id":"arn:exec:n2","new_send_at":"2026-09-02T10:00:00Z"}`

	if w := postInternal(r, "/internal/reschedule", "wrong", body); w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong secret: status %d, want 401", w.Code)
	}
	if w := postInternal(r, "/internal/reschedule", "callback-secret", body); w.Code != http.StatusOK {
		t.Fatalf("valid callback: status %d, want 200, body %s", w.Code, w.Body.String())
	}

	ghost := `{"reminder_id":999,"new_execution_id":"arn:exec:n2","new_send_at":"2026-09-02T10:00:00Z"}`
	if w := postInternal(r, "/internal/reschedule", "callback-secret", ghost); w.Code != http.StatusInternalServerError {
		t.Fatalf("unknown reminder: status %d, want 500", w.Code)
	}
}

func TestInternalReminderActive(t *testing.T) {
	t.Setenv("INTERNAL_API_SECRET", "callback-secret")
	repo := &stubReminderRepo{known: map[int64]bool{42: true}}
	dispatcher := notification.NewDispatcher(repo, stubScheduler{})
	r := newInternalTestRouter(dispatcher)

	req := httptest.NewRequest(http.MethodGet, "/internal/reminder/42/active", nil)
	req.Header.Set("X-Internal-Secret", "callback-secret")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"active":true`) {
		t.Fatalf("live reminder: status %d body %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/internal/reminder/999/active", nil)
	req.Header.Set("X-Internal-Secret", "callback-secret")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"active":false`) {
		t.Fatalf("deleted reminder: status %d body %s", w.Code, w.Body.String())
	}
}

func TestParseLocalSendAt(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"2025-03-01T15:00:00", time.Date(2025, 3, 1, 15, 0, 0, 0, time.UTC)},
		{"2025-03-01T15:00", time.Date(2025, 3, 1, 15, 0, 0, 0, time.UTC)},
		{"2025-03-01T15:00:00Z", time.Date(2025, 3, 1, 15, 0, 0, 0, time.UTC)},
	}
	for _, c := range cases {
		got, err := parseLocalSendAt(c.in)
		if err != nil {
			t.Fatalf("parseLocalSendAt(%q): %v", c.in, err)
		}
		if !got.Equal(c.want) {
			t.Fatalf("parseLocalSendAt(%q) = %v, want %v", c.in, got, c.want)
		}
	}

	if _, err := parseLocalSendAt("March 1st"); err == nil {
		t.Fatalf("free-form date accepted")
	}
}

func TestSplitAndTrim(t *testing.T) {
	got := splitAndTrim(" https://a.example , https://b.example ,, ")
	if len(got) != 2 || got[0] != "https://a.example" || got[1] != "https://b.example" {
		t.Fatalf("splitAndTrim = %v", got)
	}
}
