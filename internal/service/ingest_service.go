package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/aeroguard/aeroguard-api/internal/ingest"
	"github.com/aeroguard/aeroguard-api/internal/model"
	"github.com/aeroguard/aeroguard-api/internal/observability"
	"github.com/aeroguard/aeroguard-api/internal/repository"
	"github.com/aeroguard/aeroguard-api/pkg/airquality"
	"github.com/aeroguard/aeroguard-api/pkg/aqi"
	"github.com/aeroguard/aeroguard-api/pkg/signature"
	"github.com/aeroguard/aeroguard-api/pkg/storage"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ErrSignatureMismatch is returned when a payload carries a signature that
// does not verify against the device secret. Handlers map it to 401 with a
// generic message; nothing is written.
var ErrSignatureMismatch = errors.New("invalid signature")

// Publisher is the narrow live-update capability the ingest path depends on.
// Implementations (the WebSocket hub) are injected; publish failures are
// logged and counted, never surfaced to the caller.
type Publisher interface {
	PublishMeasurement(event model.MeasurementEvent) error
}

// AirQualityLookup fetches third-party pollutant concentrations by
// coordinates. Best-effort: errors and timeouts downgrade to no enrichment.
type AirQualityLookup interface {
	Lookup(ctx context.Context, lat, lon float64) (*airquality.Result, error)
}

// IngestService runs the full ingest pipeline: normalize, resolve device,
// verify signature, enrich, resolve AQI, upsert, publish.
type IngestService struct {
	devices      *repository.DeviceRepository
	measurements *repository.MeasurementRepository
	publisher    Publisher
	enricher     AirQualityLookup // nil disables enrichment
	archiver     storage.Archiver // nil disables raw archiving
	metrics      *observability.Metrics

	enrichTimeout time.Duration
	now           func() time.Time
}

func NewIngestService(
	devices *repository.DeviceRepository,
	measurements *repository.MeasurementRepository,
	publisher Publisher,
	enricher AirQualityLookup,
	archiver storage.Archiver,
	metrics *observability.Metrics,
	enrichTimeout time.Duration,
) *IngestService {
	if enrichTimeout <= 0 {
		enrichTimeout = 5 * time.Second
	}
	return &IngestService{
		devices:       devices,
		measurements:  measurements,
		publisher:     publisher,
		enricher:      enricher,
		archiver:      archiver,
		metrics:       metrics,
		enrichTimeout: enrichTimeout,
		now:           time.Now,
	}
}

// Ingest processes one raw request body end to end and returns the stored
// measurement. Error taxonomy: ingest.ErrInvalidPayload (nothing written,
// 400-equivalent), ErrSignatureMismatch (nothing written, 401-equivalent),
// anything else is an internal failure.
func (s *IngestService) Ingest(ctx context.Context, body []byte) (*model.Measurement, error) {
	started := s.now()

	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		s.metrics.IngestRequests.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: malformed JSON: %v", ingest.ErrInvalidPayload, err)
	}

	reading, err := ingest.Normalize(raw, s.now())
	if err != nil {
		s.metrics.IngestRequests.WithLabelValues("invalid").Inc()
		return nil, err
	}

	device, created, err := s.devices.FindOrCreate(reading.DeviceID, s.now())
	if err != nil {
		s.metrics.IngestRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("resolve device: %w", err)
	}
	if created {
		s.metrics.AutoRegistered.Inc()
		log.Printf("🆕 Device auto-registered: %s (placeholder secret)", device.ID)
	}

	// Signature verification only runs when the payload carries one; devices
	// without the feature (and the simulator) are tolerated.
	if canonical, sig, found := signature.Strip(body); found {
		if !signature.Verify(canonical, sig, device.SecretKey) {
			s.metrics.IngestRequests.WithLabelValues("unauthorized").Inc()
			return nil, ErrSignatureMismatch
		}
	}

	// Stationary devices rarely resend altitude; fall back to the stored one.
	if reading.Altitude == nil && device.Altitude != nil {
		reading.Altitude = device.Altitude
	}

	external := s.enrich(ctx, reading, device)
	resolvedAQI, category, source := s.resolveAQI(reading, external)

	measurement, err := s.store(reading, device, resolvedAQI, category, source, external)
	if err != nil {
		s.metrics.IngestRequests.WithLabelValues("error").Inc()
		return nil, err
	}

	if err := s.devices.TouchIngest(device.ID, reading.MeasuredAt, reading.FirmwareVersion); err != nil {
		log.Printf("⚠️  Failed to update device %s after ingest: %v", device.ID, err)
	}

	s.archive(device.ID, measurement, body)
	s.publish(measurement)

	s.metrics.IngestRequests.WithLabelValues("stored").Inc()
	s.metrics.AQIResolved.WithLabelValues(source).Inc()
	s.metrics.IngestDuration.Observe(s.now().Sub(started).Seconds())
	return measurement, nil
}

// enrich performs the bounded third-party PM2.5 lookup. It is skipped when
// disabled, when the device has no geolocation, or when the device already
// sent a direct AQI (nothing the lookup returns could win the precedence).
func (s *IngestService) enrich(ctx context.Context, reading *ingest.CanonicalReading, device *model.Device) *airquality.Result {
	if s.enricher == nil || device.Latitude == nil || device.Longitude == nil || reading.DeviceAQI != nil {
		s.metrics.EnrichmentCalls.WithLabelValues("skipped").Inc()
		return nil
	}

	lookupCtx, cancel := context.WithTimeout(ctx, s.enrichTimeout)
	defer cancel()

	result, err := s.enricher.Lookup(lookupCtx, *device.Latitude, *device.Longitude)
	if err != nil {
		s.metrics.EnrichmentCalls.WithLabelValues("error").Inc()
		log.Printf("⚠️  Air quality lookup failed for %s: %v (ingesting without enrichment)", device.ID, err)
		return nil
	}
	s.metrics.EnrichmentCalls.WithLabelValues("success").Inc()
	return result
}

// resolveAQI picks a canonical AQI from whichever inputs are present, in
// precedence order: direct device AQI, external-API PM2.5, payload PM2.5,
// IAQ proxy estimate. The returned source string is persisted so consumers
// can tell a measured index from a rough estimate.
func (s *IngestService) resolveAQI(reading *ingest.CanonicalReading, external *airquality.Result) (*int, *aqi.Category, string) {
	var index int
	var source string

	switch {
	case reading.DeviceAQI != nil:
		index = clampAQI(*reading.DeviceAQI)
		source = model.AQISourceDevice
	case external != nil && external.PM25 != nil:
		index = aqi.FromConcentration(*external.PM25, aqi.PM25)
		source = model.AQISourceExternalAPI
	case reading.PM25 != nil:
		index = aqi.FromConcentration(*reading.PM25, aqi.PM25)
		source = model.AQISourcePM25
	case reading.IAQScore != nil:
		index = aqi.FromConcentration(aqi.PM25FromIAQ(*reading.IAQScore), aqi.PM25)
		source = model.AQISourceIAQEstimate
	default:
		return nil, nil, "none"
	}

	category := aqi.CategoryFromAQI(index)
	return &index, &category, source
}

// store builds and idempotently upserts the measurement row.
func (s *IngestService) store(
	reading *ingest.CanonicalReading,
	device *model.Device,
	resolvedAQI *int,
	category *aqi.Category,
	source string,
	external *airquality.Result,
) (*model.Measurement, error) {
	flags := qualityFlags(reading)
	externalData := externalData(reading, category, source, external)

	m := &model.Measurement{
		ID:            reading.ClientID,
		DeviceID:      device.ID,
		MeasuredAt:    reading.MeasuredAt,
		MQ135Raw:      reading.MQ135Raw,
		IAQScore:      reading.IAQScore,
		CO2Equivalent: reading.CO2Equivalent,
		Temperature:   reading.Temperature,
		Humidity:      reading.Humidity,
		Pressure:      reading.Pressure,
		Altitude:      reading.Altitude,
		PM25:          reading.PM25,
		AQI:           resolvedAQI,
		QualityFlags:  flags,
		ExternalData:  externalData,
		RSSI:          reading.RSSI,
		UptimeMs:      reading.UptimeMs,
	}
	if category != nil {
		slug := category.Slug
		m.AQICategory = &slug
	}

	if reading.ClientID != "" {
		stored, err := s.measurements.UpsertByClientID(m)
		if err == nil {
			return stored, nil
		}
		// Client-id upsert hit a constraint the store could not reconcile
		// (typically the (device, measured-at) key already owned by another
		// id). Prefer storing the data under the compound key over failing
		// the request.
		log.Printf("⚠️  Client-id upsert conflict for %s/%s: %v (falling back to compound key)", device.ID, reading.ClientID, err)
	}

	m.ID = uuid.NewString()
	return s.measurements.UpsertByKey(m)
}

func (s *IngestService) archive(deviceID string, m *model.Measurement, body []byte) {
	if s.archiver == nil {
		return
	}
	// Detached and asynchronous: archival lag must never hold up the response.
	payload := append([]byte(nil), body...)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.archiver.ArchivePayload(ctx, deviceID, m.ID, m.MeasuredAt, payload); err != nil {
			s.metrics.ArchiveFailures.Inc()
			log.Printf("⚠️  Raw payload archive failed for %s: %v", m.ID, err)
		}
	}()
}

func (s *IngestService) publish(m *model.Measurement) {
	if s.publisher == nil {
		return
	}
	event := model.MeasurementEvent{
		MeasurementID: m.ID,
		DeviceID:      m.DeviceID,
		MeasuredAt:    m.MeasuredAt,
		AQI:           m.AQI,
		Category:      m.AQICategory,
		Temperature:   m.Temperature,
		Humidity:      m.Humidity,
		PM25:          m.PM25,
	}
	if err := s.publisher.PublishMeasurement(event); err != nil {
		s.metrics.PublishFailures.Inc()
		log.Printf("⚠️  Failed to publish measurement event %s: %v", m.ID, err)
	}
}

// qualityFlags records advisory per-sensor validity. The overall "valid"
// flag is always true: post-normalization readings are never hard-rejected,
// quality judgment is deferred to these flags instead of blocking storage.
func qualityFlags(reading *ingest.CanonicalReading) datatypes.JSON {
	flags := map[string]bool{
		"temp_humidity_present": reading.Temperature != nil && reading.Humidity != nil,
		"pressure_present":      reading.Pressure != nil,
		"iaq_in_range":          reading.IAQScore != nil && *reading.IAQScore >= 10 && *reading.IAQScore <= 500,
		"valid":                 true,
	}
	data, _ := json.Marshal(flags)
	return datatypes.JSON(data)
}

// externalData assembles the enrichment blob: AQI provenance, the
// third-party response when present, and the health advisory (device-sent
// hints win over the derived category text).
func externalData(reading *ingest.CanonicalReading, category *aqi.Category, source string, external *airquality.Result) datatypes.JSON {
	data := map[string]interface{}{
		"aqi_source": source,
	}
	if external != nil {
		data["air_quality_api"] = external
	}
	if category != nil {
		advisory := map[string]string{
			"message": category.CautionaryStatement,
			"color":   category.ColorHex,
		}
		if reading.HealthMessage != "" {
			advisory["message"] = reading.HealthMessage
		}
		if reading.AQIColor != "" {
			advisory["color"] = reading.AQIColor
		}
		data["advisory"] = advisory
	}
	encoded, _ := json.Marshal(data)
	return datatypes.JSON(encoded)
}

func clampAQI(v float64) int {
	idx := int(math.Round(v))
	if idx < 0 {
		return 0
	}
	if idx > 500 {
		return 500
	}
	return idx
}
