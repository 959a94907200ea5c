package domain

import "time"

// KeyConversionRate holds the admin override of the SDR to local currency rate.
const KeyConversionRate = "SDR_TO_LOCAL"

type Setting struct {
	Key       string    `gorm:"column:setting_key;primaryKey" json:"key"`
	Value     string    `gorm:"not null" json:"value"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Setting) TableName() string { return "system_settings" }

// RateSource names where the effective rate came from.
type RateSource string

const (
	RateFromOverride RateSource = "override"
	RateFromConfig   RateSource = "config"
)

type ConversionRate struct {
	Rate      float64    `json:"rate"`
	Currency  string     `json:"currency"`
	Source    RateSource `json:"source"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}
