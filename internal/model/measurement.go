package model

import (
	"time"

	"gorm.io/datatypes"
)

// AQI provenance values recorded in ExternalData under "aqi_source".
const (
	AQISourceDevice      = "device"       // device sent a precomputed AQI
	AQISourceExternalAPI = "external_api" // PM2.5 from the third-party lookup
	AQISourcePM25        = "pm25"         // PM2.5 reported in the payload
	AQISourceIAQEstimate = "iaq_estimate" // rough MQ135 IAQ proxy conversion
)

// Measurement is one stored sensor reading. The pair (device_id, measured_at)
// is the idempotency key: re-ingesting the same logical reading updates the
// existing row instead of duplicating it.
type Measurement struct {
	ID         string    `json:"id" gorm:"primaryKey;size:64"`
	DeviceID   string    `json:"device_id" gorm:"size:64;not null;uniqueIndex:idx_device_measured_at,priority:1"`
	MeasuredAt time.Time `json:"measured_at" gorm:"not null;uniqueIndex:idx_device_measured_at,priority:2"`

	// Raw sensor channels, all optional. Units follow the firmware:
	// resistance in kΩ, temperature °C, humidity %, pressure hPa, altitude m,
	// CO2 equivalent ppm, PM2.5 µg/m³.
	MQ135Raw      *float64 `json:"mq135_raw,omitempty" gorm:"column:mq135_raw"`
	IAQScore      *float64 `json:"iaq_score,omitempty" gorm:"column:iaq_score"`
	CO2Equivalent *float64 `json:"co2_equiv,omitempty" gorm:"column:co2_equivalent"`
	Temperature   *float64 `json:"temperature,omitempty"`
	Humidity      *float64 `json:"humidity,omitempty"`
	Pressure      *float64 `json:"pressure,omitempty"`
	Altitude      *float64 `json:"altitude,omitempty"`
	PM25          *float64 `json:"pm25,omitempty" gorm:"column:pm25"`

	AQI         *int    `json:"aqi,omitempty" gorm:"column:aqi"`
	AQICategory *string `json:"aqi_category,omitempty" gorm:"column:aqi_category;size:40"` // category slug

	// Advisory per-sensor validity flags and enrichment blob (third-party
	// response, health advisory, AQI provenance). Schema-free JSON.
	QualityFlags datatypes.JSON `json:"quality_flags,omitempty" gorm:"type:jsonb"`
	ExternalData datatypes.JSON `json:"external_data,omitempty" gorm:"type:jsonb"`

	// Link telemetry from the device meta block.
	RSSI     *int   `json:"rssi,omitempty" gorm:"column:rssi"`
	UptimeMs *int64 `json:"uptime_ms,omitempty"` // milliseconds since boot, truncated

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Device Device `json:"-" gorm:"foreignKey:DeviceID;constraint:OnDelete:CASCADE"`
}
