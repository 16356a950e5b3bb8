package models

import (
	"time"

	"gorm.io/datatypes"
)

// PendingDelivery is a replay queue record for a notification that could not
// be delivered. The replay queue is the sole writer; records leave the table
// only on confirmed dispatch success or when the retry bound discards them.
type PendingDelivery struct {
	ID             uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	NotificationID string         `gorm:"type:uuid;index;not null" json:"notification_id"`
	UserID         string         `gorm:"type:uuid;index;not null" json:"user_id"`
	SubscriptionID string         `gorm:"type:uuid;index" json:"subscription_id,omitempty"`
	Payload        datatypes.JSON `gorm:"not null" json:"payload"`

	Attempts      int        `gorm:"default:0;not null" json:"attempts"`
	LastAttemptAt *time.Time `json:"last_attempt_at,omitempty"`
	QueuedAt      time.Time  `gorm:"index;not null" json:"queued_at"`
}
