package models

import (
	"context"
	"time"

	"github.com/gmLucario/pet-info-sub000/config"
	"github.com/gmLucario/pet-info-sub000/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	OutboxPublishStatusPending    = "PENDING"
	OutboxPublishStatusProcessing = "PROCESSING"
	OutboxPublishStatusSent       = "SENT"
	OutboxPublishStatusFailed     = "FAILED"
	OutboxPublishStatusDead       = "DEAD"
)

// DeliveryEventRecord is the transactional-outbox row for a delivery-status
// webhook event. The row is written when the status webhook is ingested;
// publishing to Pub/Sub happens asynchronously via the outbox dispatcher.
type DeliveryEventRecord struct {
	ID          int       `gorm:"primary_key;index:idx_delivery_outbox,priority:3" json:"id"`
	MessageID   string    `gorm:"size:255;index;not null" json:"message_id"`
	Status      string    `gorm:"size:20;not null" json:"status"`
	RecipientID string    `gorm:"size:20;not null" json:"recipient_id"`
	EventTime   time.Time `gorm:"index;not null" json:"event_time"`

	// Outbox metadata (publish happens after commit via dispatcher).
	PublishStatus    string     `gorm:"size:20;index;not null;default:'PENDING';index:idx_delivery_outbox,priority:1" json:"publish_status"`
	PublishedAt      *time.Time `gorm:"index" json:"published_at"`
	PubSubMessageId  *string    `gorm:"size:255" json:"pubsub_message_id"`
	PublishAttempts  int        `gorm:"not null;default:0" json:"publish_attempts"`
	NextAttemptAt    *time.Time `gorm:"index;index:idx_delivery_outbox,priority:2" json:"next_attempt_at"`
	LockedAt         *time.Time `gorm:"index" json:"locked_at"`
	LockedBy         *string    `gorm:"size:100" json:"locked_by"`
	LastPublishError *string    `gorm:"type:text" json:"last_publish_error"`
	CorrelationId    string     `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// RecordDeliveryEvent persists a status update for asynchronous publishing.
func RecordDeliveryEvent(ctx context.Context, db *gorm.DB, messageID, status, recipientID string, eventTime time.Time) error {
	record := DeliveryEventRecord{
		MessageID:     messageID,
		Status:        status,
		RecipientID:   recipientID,
		EventTime:     eventTime.UTC(),
		PublishStatus: OutboxPublishStatusPending,
		CorrelationId: correlationIdFromContextOrNew(ctx),
	}
	return db.WithContext(ctx).Create(&record).Error
}

func correlationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
			return v
		}
	}
	return uuid.NewString()
}

func ConvertToDeliveryEventMessage(record DeliveryEventRecord) config.DeliveryEventMessage {
	return config.DeliveryEventMessage{
		ID:            record.ID,
		MessageID:     record.MessageID,
		Status:        record.Status,
		RecipientID:   record.RecipientID,
		EventTime:     record.EventTime,
		CorrelationId: record.CorrelationId,
	}
}
