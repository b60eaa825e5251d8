package model

import "time"

// ========== Ingest DTOs ==========

// IngestResponse is the wire contract for a stored measurement.
type IngestResponse struct {
	Success    bool    `json:"success"`
	ID         string  `json:"id"`
	MeasuredAt string  `json:"measured_at"` // RFC3339
	AQI        *int    `json:"aqi"`
	Category   *string `json:"category"`
}

// FieldError points at one invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ========== Device DTOs ==========

type RegisterDeviceRequest struct {
	ID        string   `json:"id" binding:"required,min=1,max=64"`
	Name      string   `json:"name" binding:"max=100"`
	SecretKey string   `json:"secret_key" binding:"max=128"` // generated when empty
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	AreaName  string   `json:"area_name" binding:"max=120"`
	Altitude  *float64 `json:"altitude"`
}

// RegisterDeviceResponse echoes the device plus the secret exactly once, at
// creation time. The secret is never readable again through the API.
type RegisterDeviceResponse struct {
	Device    Device `json:"device"`
	SecretKey string `json:"secret_key"`
}

// ========== Measurement query DTOs ==========

type MeasurementListRequest struct {
	From  time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To    time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
	Limit int       `form:"limit,default=100"`
}

// ========== WebSocket Event DTOs ==========

type WSEvent struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// WebSocket event types
const (
	WSEventNewMeasurement = "new_measurement"
	WSEventDeviceOnline   = "device_online"
)

// MeasurementEvent is the live-update summary broadcast after a successful
// ingest. It carries a summary, not the full stored row.
type MeasurementEvent struct {
	MeasurementID string    `json:"measurement_id"`
	DeviceID      string    `json:"device_id"`
	MeasuredAt    time.Time `json:"measured_at"`
	AQI           *int      `json:"aqi"`
	Category      *string   `json:"category"`
	Temperature   *float64  `json:"temperature,omitempty"`
	Humidity      *float64  `json:"humidity,omitempty"`
	PM25          *float64  `json:"pm25,omitempty"`
}

// ========== Common ==========

type ErrorResponse struct {
	Error   string       `json:"error"`
	Message string       `json:"message,omitempty"`
	Fields  []FieldError `json:"fields,omitempty"`
}
