// Package ingest turns heterogeneous device payloads into canonical sensor
// readings. Firmware versions and the dashboard simulator disagree on field
// names and nesting, so every field is resolved through a fixed precedence
// order and coerced defensively; a sparse payload is valid as long as it
// identifies the device.
package ingest

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// ErrInvalidPayload marks payloads that cannot be normalized at all
// (handlers map it to a 400).
var ErrInvalidPayload = errors.New("invalid payload")

// ErrMissingDeviceID is the one structural requirement: a payload with no
// device identifier cannot be ingested.
var ErrMissingDeviceID = fmt.Errorf("%w: missing device identifier", ErrInvalidPayload)

// msEpochThreshold separates seconds-since-epoch from milliseconds: numeric
// timestamps above 1e12 are treated as already in milliseconds.
const msEpochThreshold = 1e12

// CanonicalReading is the normalized form of one ingest payload, independent
// of which wire shape the client used.
type CanonicalReading struct {
	DeviceID   string
	MeasuredAt time.Time

	MQ135Raw      *float64
	IAQScore      *float64
	CO2Equivalent *float64
	Temperature   *float64
	Humidity      *float64
	Pressure      *float64
	Altitude      *float64
	PM25          *float64

	// DeviceAQI is a precomputed AQI sent by the device; it takes precedence
	// over anything the server could derive.
	DeviceAQI *float64

	// ClientID is an optional client-supplied measurement id. When present it
	// becomes the storage key instead of (device, measured-at).
	ClientID string

	FirmwareVersion string
	Signature       string

	// Precomputed presentation hints some simulator builds send along.
	AQIColor      string
	HealthMessage string

	RSSI     *int
	UptimeMs *int64
}

// sensorField describes how one canonical field is resolved: the snake_case
// key used both nested and flat, plus ESP-style shorthand aliases checked
// last. Precedence is sensors.<snake> > flat <snake> > shorthand.
type sensorField struct {
	snake   string
	aliases []string
}

var sensorFields = map[string]sensorField{
	"mq135":       {snake: "mq135_raw", aliases: []string{"mq135"}},
	"iaq":         {snake: "iaq_score", aliases: []string{"iaq"}},
	"co2":         {snake: "co2_equiv", aliases: []string{"co2eq", "co2"}},
	"temperature": {snake: "temperature", aliases: []string{"temp"}},
	"humidity":    {snake: "humidity", aliases: []string{"hum"}},
	"pressure":    {snake: "pressure_hpa", aliases: []string{"pressure"}},
	"altitude":    {snake: "altitude_m", aliases: []string{"altitude"}},
	"pm25":        {snake: "pm25", aliases: []string{"pm2_5"}},
	"aqi":         {snake: "aqi", aliases: []string{"aqi"}},
}

// Normalize resolves a decoded JSON body into a CanonicalReading. It fails
// only when no device identifier is present; everything else degrades to
// nil fields. now supplies the fallback timestamp.
func Normalize(raw map[string]interface{}, now time.Time) (*CanonicalReading, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: empty body", ErrInvalidPayload)
	}

	deviceID := stringField(raw, "device_id", "deviceId")
	if deviceID == "" {
		return nil, ErrMissingDeviceID
	}

	reading := &CanonicalReading{
		DeviceID:        deviceID,
		MeasuredAt:      resolveTimestamp(raw, now),
		ClientID:        stringField(raw, "measurement_id", "measurementId"),
		FirmwareVersion: stringField(raw, "firmware_version", "firmwareVersion"),
		Signature:       stringField(raw, "signature"),
		AQIColor:        stringField(raw, "aqiColor", "aqi_color"),
		HealthMessage:   stringField(raw, "healthMessage", "health_message"),
	}

	nested, _ := raw["sensors"].(map[string]interface{})

	reading.MQ135Raw = resolveSensor(nested, raw, sensorFields["mq135"])
	reading.IAQScore = resolveSensor(nested, raw, sensorFields["iaq"])
	reading.CO2Equivalent = resolveSensor(nested, raw, sensorFields["co2"])
	reading.Temperature = resolveSensor(nested, raw, sensorFields["temperature"])
	reading.Humidity = resolveSensor(nested, raw, sensorFields["humidity"])
	reading.Pressure = resolveSensor(nested, raw, sensorFields["pressure"])
	reading.Altitude = resolveSensor(nested, raw, sensorFields["altitude"])
	reading.PM25 = resolveSensor(nested, raw, sensorFields["pm25"])
	reading.DeviceAQI = resolveSensor(nested, raw, sensorFields["aqi"])

	if meta, ok := raw["meta"].(map[string]interface{}); ok {
		if v, ok := Coerce(meta["rssi"]); ok {
			rssi := int(v)
			reading.RSSI = &rssi
		}
		// Uptime contract: milliseconds since boot, truncated to an integer.
		// Negative or non-finite values are dropped, not propagated.
		if v, ok := Coerce(meta["uptime_ms"]); ok && v >= 0 {
			uptime := int64(math.Trunc(v))
			reading.UptimeMs = &uptime
		}
	}

	return reading, nil
}

// resolveSensor applies the shape precedence for one field and returns the
// first value that survives coercion.
func resolveSensor(nested, flat map[string]interface{}, f sensorField) *float64 {
	if nested != nil {
		if v, ok := Coerce(nested[f.snake]); ok {
			return &v
		}
	}
	if v, ok := Coerce(flat[f.snake]); ok {
		return &v
	}
	for _, alias := range f.aliases {
		if v, ok := Coerce(flat[alias]); ok {
			return &v
		}
	}
	return nil
}

// resolveTimestamp picks the measured-at time: an explicit ISO measuredAt
// string wins, then a numeric timestamp (seconds or milliseconds since
// epoch), and anything missing or unparsable falls back to now. A bad clock
// on a field device must never reject the whole reading.
func resolveTimestamp(raw map[string]interface{}, now time.Time) time.Time {
	if s := stringField(raw, "measuredAt", "measured_at"); s != "" {
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC()
			}
		}
	}
	if v, ok := Coerce(raw["timestamp"]); ok && v > 0 {
		ms := v
		if v <= msEpochThreshold {
			ms = v * 1000
		}
		return time.UnixMilli(int64(ms)).UTC()
	}
	return now.UTC()
}

func stringField(raw map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if s, ok := raw[k].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}
