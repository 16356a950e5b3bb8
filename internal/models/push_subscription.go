package models

// PushSubscription binds a user to an opaque transport subscription handle.
// A user may hold any number of subscriptions (one per registered device);
// the set carries no ordering.
type PushSubscription struct {
	BaseModel

	UserID string `gorm:"type:uuid;index;not null" json:"user_id"`
	Handle string `gorm:"type:text;not null;uniqueIndex:idx_subscription_handle,length:255" json:"handle"`
}
