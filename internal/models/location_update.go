package models

// LocationUpdate records a user position report.
type LocationUpdate struct {
	BaseModel

	UserID    string  `gorm:"type:uuid;index;not null" json:"user_id"`
	Latitude  float64 `gorm:"not null" json:"latitude"`
	Longitude float64 `gorm:"not null" json:"longitude"`
	Accuracy  float64 `json:"accuracy,omitempty"`
	Source    string  `gorm:"type:varchar(32);default:'gps'" json:"source"`
}
