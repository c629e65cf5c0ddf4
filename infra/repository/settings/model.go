package settings

import "time"

// Setting represents a settings row in the database.
type Setting struct {
	Key       string `gorm:"primaryKey;size:255"`
	Value     string `gorm:"not null"`
	UpdatedAt time.Time
}

// TableName specifies the table name for the Setting model.
func (Setting) TableName() string {
	return "settings"
}
