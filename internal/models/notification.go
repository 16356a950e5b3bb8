package models

import (
	"time"

	"gorm.io/datatypes"
)

// Notification priorities ordered from least to most urgent.
const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// Notification represents a safety notification persisted for a user.
// Rows are immutable once created; acknowledgment and expiry remove them
// from reads rather than mutating the payload.
type Notification struct {
	BaseModel

	UserID         string         `gorm:"type:uuid;index;not null" json:"user_id"`
	Type           string         `gorm:"type:varchar(64);not null;default:'system'" json:"type"`
	Title          string         `gorm:"type:varchar(255);not null" json:"title"`
	Message        string         `gorm:"type:text" json:"message"`
	Priority       string         `gorm:"type:varchar(32);default:'medium';index" json:"priority"`
	Location       string         `gorm:"type:varchar(255)" json:"location,omitempty"`
	Latitude       *float64       `json:"latitude,omitempty"`
	Longitude      *float64       `json:"longitude,omitempty"`
	ActionRequired bool           `gorm:"default:false" json:"action_required"`
	Metadata       datatypes.JSON `json:"metadata,omitempty"`

	ExpiresAt      *time.Time `gorm:"index" json:"expires_at,omitempty"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
}

// Expired reports whether the notification is past its expiry instant.
func (n Notification) Expired(now time.Time) bool {
	return n.ExpiresAt != nil && now.After(*n.ExpiresAt)
}

// ValidPriority reports whether the supplied priority is a known level.
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}
