package models

import "time"

// Setting is a key/value row for store configuration editable at runtime,
// e.g. the card numbers shown for manual transfer payments.
type Setting struct {
	Key       string    `gorm:"column:key;primaryKey"`
	Value     string    `gorm:"column:value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// Well-known setting keys.
const (
	SettingHumoCard   = "humo_card"
	SettingUzcardCard = "uzcard_card"
	SettingVisaCard   = "visa_card"
)
