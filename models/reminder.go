package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gmLucario/pet-info-sub000/config"
	"github.com/gmLucario/pet-info-sub000/utils"
	"gorm.io/gorm"
)

type NotificationChannel string

const (
	NotificationChannelWhatsApp NotificationChannel = "whatsapp"
)

type RepeatType string

const (
	RepeatTypeDaily   RepeatType = "daily"
	RepeatTypeWeekly  RepeatType = "weekly"
	RepeatTypeMonthly RepeatType = "monthly"
	RepeatTypeYearly  RepeatType = "yearly"
)

// ParseRepeatType validates a textual repeat type.
func ParseRepeatType(s string) (RepeatType, error) {
	switch RepeatType(s) {
	case RepeatTypeDaily, RepeatTypeWeekly, RepeatTypeMonthly, RepeatTypeYearly:
		return RepeatType(s), nil
	}
	return "", fmt.Errorf("invalid repeat type %q", s)
}

// RepeatConfig describes how a recurring reminder repeats, e.g. every 2 weeks.
type RepeatConfig struct {
	RepeatType     RepeatType `json:"repeat_type"`
	RepeatInterval int        `json:"repeat_interval"`
}

// Reminder is the durable record of one scheduled notification. ExecutionId
// always correlates to exactly one pending (or just-completed) execution in
// the external scheduler; it is rewritten atomically on every reschedule.
type Reminder struct {
	ID               int64               `gorm:"primary_key" json:"id"`
	UserAppId        int64               `gorm:"index;not null" json:"user_app_id"`
	Body             string              `gorm:"type:text;not null" json:"body"`
	ExecutionId      string              `gorm:"size:512;not null" json:"execution_id"`
	NotificationType NotificationChannel `gorm:"size:20;not null;default:'whatsapp'" json:"notification_type"`
	SendAt           time.Time           `gorm:"index;not null" json:"send_at"`
	UserTimezone     string              `gorm:"size:64;not null" json:"user_timezone"`
	RepeatType       *RepeatType         `gorm:"size:20" json:"repeat_type"`
	RepeatInterval   *int                `json:"repeat_interval"`
	CreatedAt        time.Time           `gorm:"autoCreateTime" json:"created_at"`
}

// RepeatConfigOrNil pairs the two nullable repeat columns back into a config.
func (r *Reminder) RepeatConfigOrNil() *RepeatConfig {
	if r.RepeatType == nil || r.RepeatInterval == nil {
		return nil
	}
	return &RepeatConfig{RepeatType: *r.RepeatType, RepeatInterval: *r.RepeatInterval}
}

// ReminderStatus is derived at the boundary; it is not a stored column.
type ReminderStatus string

const (
	ReminderStatusScheduled ReminderStatus = "scheduled"
	ReminderStatusRecurring ReminderStatus = "recurring"
)

func (r *Reminder) Status() ReminderStatus {
	if r.RepeatConfigOrNil() != nil {
		return ReminderStatusRecurring
	}
	return ReminderStatusScheduled
}

// GormReminderRepo is the database-backed reminder store. It satisfies
// notification.ReminderRepo.
type GormReminderRepo struct{}

func (GormReminderRepo) InsertReminder(ctx context.Context, reminder *Reminder) error {
	db := config.GetDB()
	return db.WithContext(ctx).Create(reminder).Error
}

// UpdateReminderExecution atomically replaces the execution correlation and
// fire time of an existing reminder. Returns utils.ErrorRecordNotFound when
// the reminder no longer exists, mutating nothing.
func (GormReminderRepo) UpdateReminderExecution(ctx context.Context, reminderID int64, executionID string, sendAt time.Time) error {
	db := config.GetDB()
	res := db.WithContext(ctx).
		Model(&Reminder{}).
		Where("id = ?", reminderID).
		Updates(map[string]interface{}{
			"execution_id": executionID,
			"send_at":      sendAt.UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrorRecordNotFound
	}
	return nil
}

// DeleteReminder removes a reminder. The owner id is part of the predicate
// for tenant isolation; deleting someone else's reminder is a no-op.
func (GormReminderRepo) DeleteReminder(ctx context.Context, reminderID, ownerID int64) error {
	db := config.GetDB()
	return db.WithContext(ctx).
		Where("id = ? AND user_app_id = ?", reminderID, ownerID).
		Delete(&Reminder{}).Error
}

func (GormReminderRepo) ReminderExists(ctx context.Context, reminderID int64) (bool, error) {
	db := config.GetDB()
	var count int64
	err := db.WithContext(ctx).
		Model(&Reminder{}).
		Where("id = ?", reminderID).
		Count(&count).Error
	return count > 0, err
}

func (GormReminderRepo) GetReminderExecutionId(ctx context.Context, reminderID, ownerID int64) (string, error) {
	db := config.GetDB()
	var reminder Reminder
	err := db.WithContext(ctx).
		Select("execution_id").
		Where("id = ? AND user_app_id = ?", reminderID, ownerID).
		Take(&reminder).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", utils.ErrorRecordNotFound
		}
		return "", err
	}
	return reminder.ExecutionId, nil
}

// ListActiveReminders returns an owner's reminders that have not yet fired.
func (GormReminderRepo) ListActiveReminders(ctx context.Context, ownerID int64, from time.Time) ([]Reminder, error) {
	db := config.GetDB()
	var reminders []Reminder
	err := db.WithContext(ctx).
		Where("user_app_id = ? AND send_at >= ?", ownerID, from.UTC()).
		Order("send_at ASC").
		Find(&reminders).Error
	return reminders, err
}

func (GormReminderRepo) DeleteAllForOwner(ctx context.Context, ownerID int64) error {
	db := config.GetDB()
	return db.WithContext(ctx).
		Where("user_app_id = ?", ownerID).
		Delete(&Reminder{}).Error
}

// DeleteReminderRow rolls back a freshly inserted reminder row when the
// external scheduler refused the execution.
func (GormReminderRepo) DeleteReminderRow(ctx context.Context, reminderID int64) error {
	db := config.GetDB()
	return db.WithContext(ctx).
		Where("id = ?", reminderID).
		Delete(&Reminder{}).Error
}
