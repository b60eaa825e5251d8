package model

import (
	"time"
)

// Device represents a registered air-quality sensor node. The ID is opaque
// and client-supplied (firmware-configured, e.g. "AERO-NODE-001") or
// server-generated at explicit registration.
type Device struct {
	ID        string   `json:"id" gorm:"primaryKey;size:64"`
	Name      string   `json:"name" gorm:"size:100;not null"`
	SecretKey string   `json:"-" gorm:"size:128;not null"` // HMAC key, never exposed
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	AreaName  string   `json:"area_name,omitempty" gorm:"size:120"`
	Altitude  *float64 `json:"altitude,omitempty"` // metres, stationary fallback for readings

	Active          bool       `json:"active" gorm:"default:true"`
	FirmwareVersion string     `json:"firmware_version,omitempty" gorm:"size:32"`
	AutoRegistered  bool       `json:"auto_registered" gorm:"default:false"`
	LastSeenAt      *time.Time `json:"last_seen_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
