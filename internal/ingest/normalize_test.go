package ingest

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func decode(t *testing.T, body string) map[string]interface{} {
	t.Helper()
	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(body), &raw))
	return raw
}

func TestNormalizeFirmwareShape(t *testing.T) {
	raw := decode(t, `{
		"device_id": "AERO-NODE-001",
		"firmware_version": "1.2.0",
		"timestamp": 1700000000,
		"sensors": {
			"mq135_raw": 42.7,
			"iaq_score": 118.4,
			"co2_equiv": 612.0,
			"temperature": 24.6,
			"humidity": 58.1,
			"pressure_hpa": 1003.2,
			"altitude_m": 86.0
		},
		"meta": {"uptime_ms": 123456.9, "rssi": -61}
	}`)

	r, err := Normalize(raw, testNow)
	require.NoError(t, err)
	assert.Equal(t, "AERO-NODE-001", r.DeviceID)
	assert.Equal(t, "1.2.0", r.FirmwareVersion)
	assert.Equal(t, time.UnixMilli(1700000000000).UTC(), r.MeasuredAt)
	require.NotNil(t, r.MQ135Raw)
	assert.Equal(t, 42.7, *r.MQ135Raw)
	require.NotNil(t, r.IAQScore)
	assert.Equal(t, 118.4, *r.IAQScore)
	require.NotNil(t, r.Pressure)
	assert.Equal(t, 1003.2, *r.Pressure)
	require.NotNil(t, r.Altitude)
	assert.Equal(t, 86.0, *r.Altitude)
	require.NotNil(t, r.UptimeMs)
	assert.Equal(t, int64(123456), *r.UptimeMs) // truncated, not rounded
	require.NotNil(t, r.RSSI)
	assert.Equal(t, -61, *r.RSSI)
	assert.Nil(t, r.DeviceAQI)
	assert.Nil(t, r.PM25)
}

func TestNormalizeESPShorthandShape(t *testing.T) {
	raw := decode(t, `{
		"device_id": "AERO-001",
		"temperature": 32.2,
		"humidity": 64.0,
		"pressure": 990.0,
		"iaq": 208.0,
		"aqi": 354,
		"pm25": 303.51,
		"aqiColor": "#7e0023",
		"healthMessage": "Stay indoors"
	}`)

	r, err := Normalize(raw, testNow)
	require.NoError(t, err)
	require.NotNil(t, r.Temperature)
	assert.Equal(t, 32.2, *r.Temperature)
	require.NotNil(t, r.Pressure)
	assert.Equal(t, 990.0, *r.Pressure)
	require.NotNil(t, r.IAQScore)
	assert.Equal(t, 208.0, *r.IAQScore)
	require.NotNil(t, r.DeviceAQI)
	assert.Equal(t, 354.0, *r.DeviceAQI)
	require.NotNil(t, r.PM25)
	assert.Equal(t, 303.51, *r.PM25)
	assert.Equal(t, "#7e0023", r.AQIColor)
	assert.Equal(t, "Stay indoors", r.HealthMessage)
	assert.Equal(t, testNow, r.MeasuredAt) // no timestamp in payload
}

func TestNormalizeShapePrecedence(t *testing.T) {
	raw := decode(t, `{
		"device_id": "D",
		"temperature": 20,
		"sensors": {"temperature": 10}
	}`)
	r, err := Normalize(raw, testNow)
	require.NoError(t, err)
	require.NotNil(t, r.Temperature)
	assert.Equal(t, 10.0, *r.Temperature)

	raw = decode(t, `{"device_id": "D", "temperature": 15}`)
	r, err = Normalize(raw, testNow)
	require.NoError(t, err)
	require.NotNil(t, r.Temperature)
	assert.Equal(t, 15.0, *r.Temperature)
}

func TestNormalizeFlatSnakeCaseBeatsShorthand(t *testing.T) {
	raw := decode(t, `{"device_id": "D", "pressure_hpa": 1010, "pressure": 990}`)
	r, err := Normalize(raw, testNow)
	require.NoError(t, err)
	require.NotNil(t, r.Pressure)
	assert.Equal(t, 1010.0, *r.Pressure)
}

func TestNormalizeDeviceIDVariants(t *testing.T) {
	r, err := Normalize(decode(t, `{"deviceId": "CAM-1"}`), testNow)
	require.NoError(t, err)
	assert.Equal(t, "CAM-1", r.DeviceID)

	_, err = Normalize(decode(t, `{"temperature": 20}`), testNow)
	assert.ErrorIs(t, err, ErrInvalidPayload)

	_, err = Normalize(decode(t, `{"device_id": "  "}`), testNow)
	assert.ErrorIs(t, err, ErrInvalidPayload)

	_, err = Normalize(nil, testNow)
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestNormalizeSparsePayload(t *testing.T) {
	r, err := Normalize(decode(t, `{"device_id": "LONE-1"}`), testNow)
	require.NoError(t, err)
	assert.Nil(t, r.Temperature)
	assert.Nil(t, r.Humidity)
	assert.Nil(t, r.Pressure)
	assert.Nil(t, r.IAQScore)
	assert.Nil(t, r.PM25)
	assert.Nil(t, r.DeviceAQI)
	assert.Nil(t, r.RSSI)
	assert.Nil(t, r.UptimeMs)
	assert.Equal(t, testNow, r.MeasuredAt)
}

func TestNormalizeTimestampResolution(t *testing.T) {
	want := time.UnixMilli(1700000000000).UTC()

	r, err := Normalize(decode(t, `{"device_id": "D", "timestamp": 1700000000}`), testNow)
	require.NoError(t, err)
	assert.Equal(t, want, r.MeasuredAt)

	r, err = Normalize(decode(t, `{"device_id": "D", "timestamp": 1700000000000}`), testNow)
	require.NoError(t, err)
	assert.Equal(t, want, r.MeasuredAt)

	r, err = Normalize(decode(t, `{"device_id": "D", "timestamp": "1700000000"}`), testNow)
	require.NoError(t, err)
	assert.Equal(t, want, r.MeasuredAt)

	// Explicit ISO measuredAt wins over the numeric timestamp.
	r, err = Normalize(decode(t, `{"device_id": "D", "measuredAt": "2026-01-02T03:04:05Z", "timestamp": 1700000000}`), testNow)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), r.MeasuredAt)

	// Garbage dates fall back to now instead of failing the request.
	r, err = Normalize(decode(t, `{"device_id": "D", "measuredAt": "yesterday-ish"}`), testNow)
	require.NoError(t, err)
	assert.Equal(t, testNow, r.MeasuredAt)
}

func TestNormalizeUptimeRejectsNegative(t *testing.T) {
	r, err := Normalize(decode(t, `{"device_id": "D", "meta": {"uptime_ms": -5}}`), testNow)
	require.NoError(t, err)
	assert.Nil(t, r.UptimeMs)
}

func TestNormalizeUnitSuffixedStrings(t *testing.T) {
	raw := decode(t, `{"device_id": "D", "humidity": "64.0%", "pressure": "990 hPa"}`)
	r, err := Normalize(raw, testNow)
	require.NoError(t, err)
	require.NotNil(t, r.Humidity)
	assert.Equal(t, 64.0, *r.Humidity)
	require.NotNil(t, r.Pressure)
	assert.Equal(t, 990.0, *r.Pressure)
}

func TestNormalizeClientMeasurementID(t *testing.T) {
	r, err := Normalize(decode(t, `{"device_id": "D", "measurement_id": "m-123"}`), testNow)
	require.NoError(t, err)
	assert.Equal(t, "m-123", r.ClientID)
}
