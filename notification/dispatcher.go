package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/gmLucario/pet-info-sub000/config"
	"github.com/gmLucario/pet-info-sub000/models"
	"github.com/gmLucario/pet-info-sub000/utils"
)

const moduleName = "notification"

var (
	ErrUnknownReminder = errors.New("reminder does not exist")
	ErrInvalidTimezone = errors.New("invalid timezone")
	ErrSendAtInPast    = errors.New("send time is in the past")
)

// ReminderRepo is the persistence surface of the dispatcher. Implemented by
// models.GormReminderRepo; tests substitute fakes.
type ReminderRepo interface {
	InsertReminder(ctx context.Context, reminder *models.Reminder) error
	UpdateReminderExecution(ctx context.Context, reminderID int64, executionID string, sendAt time.Time) error
	DeleteReminder(ctx context.Context, reminderID, ownerID int64) error
	ReminderExists(ctx context.Context, reminderID int64) (bool, error)
	GetReminderExecutionId(ctx context.Context, reminderID, ownerID int64) (string, error)
	ListActiveReminders(ctx context.Context, ownerID int64, from time.Time) ([]models.Reminder, error)
	DeleteAllForOwner(ctx context.Context, ownerID int64) error
	DeleteReminderRow(ctx context.Context, reminderID int64) error
}

// ScheduleInput is what a user confirms: a body, a local fire time and the
// timezone it is expressed in, plus an optional recurrence.
type ScheduleInput struct {
	OwnerID  int64
	Phone    string
	Body     string
	SendAt   time.Time
	Timezone string
	Repeat   *models.RepeatConfig
}

// RescheduleCallback is the authenticated service-to-service call the
// scheduler makes after firing a recurring occurrence.
type RescheduleCallback struct {
	ReminderID     int64     `json:"reminder_id" binding:"required"`
	NewExecutionID string    `json:"new_execution_id" binding:"required"`
	NewSendAt      time.Time `json:"new_send_at" binding:"required"`
}

// Dispatcher owns the reminder lifecycle: it creates the durable row, keeps
// its execution correlation in sync with the external scheduler, and answers
// the scheduler's callbacks.
type Dispatcher struct {
	repo      ReminderRepo
	scheduler SchedulerClient
}

func NewDispatcher(repo ReminderRepo, scheduler SchedulerClient) *Dispatcher {
	return &Dispatcher{
		repo:      repo,
		scheduler: scheduler,
	}
}

// Schedule converts the user's local fire time to a UTC instant, persists the
// reminder and starts the external execution. The row goes in first so its id
// can travel in the execution payload; a refused execution rolls the row back.
// If persisting the returned execution id fails afterwards, the drift is
// logged as an alertable event and the reminder is still returned.
func (d *Dispatcher) Schedule(ctx context.Context, input ScheduleInput) (*models.Reminder, error) {
	logger := config.GetLogger()

	location, err := time.LoadLocation(input.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimezone, input.Timezone)
	}

	local := time.Date(
		input.SendAt.Year(), input.SendAt.Month(), input.SendAt.Day(),
		input.SendAt.Hour(), input.SendAt.Minute(), input.SendAt.Second(), 0,
		location,
	)
	sendAtUTC := local.UTC()
	if sendAtUTC.Before(time.Now().UTC()) {
		return nil, ErrSendAtInPast
	}

	reminder := &models.Reminder{
		UserAppId:        input.OwnerID,
		Body:             input.Body,
		NotificationType: models.NotificationChannelWhatsApp,
		SendAt:           sendAtUTC,
		UserTimezone:     input.Timezone,
	}
	if input.Repeat != nil {
		repeatType := input.Repeat.RepeatType
		repeatInterval := input.Repeat.RepeatInterval
		reminder.RepeatType = &repeatType
		reminder.RepeatInterval = &repeatInterval
	}

	if err := d.repo.InsertReminder(ctx, reminder); err != nil {
		return nil, fmt.Errorf("insert reminder: %w", err)
	}

	payload := SchedulePayload{
		When:         sendAtUTC.Format(time.RFC3339),
		Reminder:     ReminderPayload{Phone: input.Phone, Body: input.Body},
		ReminderID:   reminder.ID,
		UserTimezone: input.Timezone,
		RepeatConfig: input.Repeat,
	}

	executionID, err := d.scheduler.StartReminderExecution(ctx, reminder.ID, payload)
	if err != nil {
		if rollbackErr := d.repo.DeleteReminderRow(ctx, reminder.ID); rollbackErr != nil {
			config.LogError(logger, moduleName, "Schedule", "rollback reminder row",
				map[string]any{"reminderId": reminder.ID}, rollbackErr)
		}
		return nil, fmt.Errorf("start execution: %w", err)
	}

	if err := d.repo.UpdateReminderExecution(ctx, reminder.ID, executionID, sendAtUTC); err != nil {
		// execution exists externally but the correlation never landed;
		// alertable drift, the reconciliation sweep picks it up
		config.LogError(logger, moduleName, "Schedule", "consistency drift: execution started but not persisted",
			map[string]any{"reminderId": reminder.ID, "executionId": executionID}, err)
	} else {
		reminder.ExecutionId = executionID
	}

	return reminder, nil
}

// Cancel stops bothering the user: the scheduler stop is best effort and the
// local row is deleted regardless of its outcome. The owner id scopes every
// read and delete.
func (d *Dispatcher) Cancel(ctx context.Context, reminderID, ownerID int64) error {
	logger := config.GetLogger()

	lock := d.acquireReminderLock(ctx, reminderID)
	if lock != nil {
		defer lock.Release(ctx)
	}

	_, err := d.repo.GetReminderExecutionId(ctx, reminderID, ownerID)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			return ErrUnknownReminder
		}
		return fmt.Errorf("look up reminder %d: %w", reminderID, err)
	}

	if err := d.scheduler.StopReminderExecutions(ctx, reminderID); err != nil {
		config.LogError(logger, moduleName, "Cancel", "stop executions (continuing with delete)",
			map[string]any{"reminderId": reminderID}, err)
	}

	if err := d.repo.DeleteReminder(ctx, reminderID, ownerID); err != nil {
		return fmt.Errorf("delete reminder %d: %w", reminderID, err)
	}
	return nil
}

// CancelAllForOwner is the account-deletion cascade: stop whatever is still
// running, best effort, then drop every row of the owner.
func (d *Dispatcher) CancelAllForOwner(ctx context.Context, ownerID int64) error {
	logger := config.GetLogger()

	reminders, err := d.repo.ListActiveReminders(ctx, ownerID, time.Now().UTC())
	if err != nil {
		config.LogError(logger, moduleName, "CancelAllForOwner", "list active reminders",
			map[string]any{"ownerId": ownerID}, err)
	}
	for _, reminder := range reminders {
		if err := d.scheduler.StopReminderExecutions(ctx, reminder.ID); err != nil {
			config.LogError(logger, moduleName, "CancelAllForOwner", "stop executions",
				map[string]any{"reminderId": reminder.ID}, err)
		}
	}

	return d.repo.DeleteAllForOwner(ctx, ownerID)
}

// Reschedule atomically replaces the execution correlation and fire time of
// an existing reminder. An unknown reminder id fails closed with no mutation;
// the scheduler treats that as "stop recurring".
func (d *Dispatcher) Reschedule(ctx context.Context, callback RescheduleCallback) error {
	lock := d.acquireReminderLock(ctx, callback.ReminderID)
	if lock != nil {
		defer lock.Release(ctx)
	}

	err := d.repo.UpdateReminderExecution(ctx, callback.ReminderID, callback.NewExecutionID, callback.NewSendAt.UTC())
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			return ErrUnknownReminder
		}
		return fmt.Errorf("reschedule reminder %d: %w", callback.ReminderID, err)
	}
	return nil
}

// CheckLiveness answers the scheduler's pre-send existence probe. Deletion of
// the row is the authoritative cancel signal, so existence is all it returns.
func (d *Dispatcher) CheckLiveness(ctx context.Context, reminderID int64) (bool, error) {
	return d.repo.ReminderExists(ctx, reminderID)
}

// ListReminders returns the owner's not-yet-fired reminders.
func (d *Dispatcher) ListReminders(ctx context.Context, ownerID int64) ([]models.Reminder, error) {
	return d.repo.ListActiveReminders(ctx, ownerID, time.Now().UTC())
}

// acquireReminderLock takes a short per-reminder lock so a user delete and a
// scheduler reschedule do not interleave. Best effort: no Redis, no lock.
func (d *Dispatcher) acquireReminderLock(ctx context.Context, reminderID int64) *redislock.Lock {
	locker := config.GetRedisLock()
	if locker == nil {
		return nil
	}
	lock, err := locker.Obtain(ctx, fmt.Sprintf("ReminderLock:%d", reminderID), 10*time.Second, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), 10),
	})
	if err != nil {
		return nil
	}
	return lock
}
