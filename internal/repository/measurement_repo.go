package repository

import (
	"time"

	"github.com/aeroguard/aeroguard-api/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MeasurementRepository handles database operations for Measurement
type MeasurementRepository struct {
	db *gorm.DB
}

func NewMeasurementRepository(db *gorm.DB) *MeasurementRepository {
	return &MeasurementRepository{db: db}
}

// measurementColumns are the data columns fully overwritten on re-ingest.
// Last-write-wins is the contract: no field-level merging.
var measurementColumns = []string{
	"mq135_raw", "iaq_score", "co2_equivalent",
	"temperature", "humidity", "pressure", "altitude", "pm25",
	"aqi", "aqi_category", "quality_flags", "external_data",
	"rssi", "uptime_ms", "updated_at",
}

// UpsertByKey stores a measurement keyed by (device_id, measured_at). A
// second ingest of the same key overwrites the existing row's data columns
// and keeps its id. The store's native ON CONFLICT atomicity is what makes
// concurrent retries safe; there is no application-level locking.
// The returned measurement is the stored row (the surviving id may differ
// from m.ID when an earlier row won the key).
func (r *MeasurementRepository) UpsertByKey(m *model.Measurement) (*model.Measurement, error) {
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "device_id"}, {Name: "measured_at"}},
		DoUpdates: clause.AssignmentColumns(measurementColumns),
	}).Create(m).Error
	if err != nil {
		return nil, err
	}
	return r.findByKey(m.DeviceID, m.MeasuredAt)
}

// UpsertByClientID stores a measurement under a client-supplied id
// (update-if-exists, else create-with-that-id).
func (r *MeasurementRepository) UpsertByClientID(m *model.Measurement) (*model.Measurement, error) {
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(append([]string{"device_id", "measured_at"}, measurementColumns...)),
	}).Create(m).Error
	if err != nil {
		return nil, err
	}
	return r.FindByID(m.ID)
}

func (r *MeasurementRepository) findByKey(deviceID string, measuredAt time.Time) (*model.Measurement, error) {
	var m model.Measurement
	err := r.db.Where("device_id = ? AND measured_at = ?", deviceID, measuredAt).First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// FindByID finds a measurement by id
func (r *MeasurementRepository) FindByID(id string) (*model.Measurement, error) {
	var m model.Measurement
	err := r.db.Where("id = ?", id).First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListByDevice returns a device's measurements in a time range, newest first
func (r *MeasurementRepository) ListByDevice(deviceID string, from, to time.Time, limit int) ([]model.Measurement, error) {
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}

	query := r.db.
		Where("device_id = ?", deviceID).
		Order("measured_at DESC").
		Limit(limit)
	if !from.IsZero() {
		query = query.Where("measured_at >= ?", from)
	}
	if !to.IsZero() {
		query = query.Where("measured_at <= ?", to)
	}

	measurements := []model.Measurement{}
	err := query.Find(&measurements).Error
	return measurements, err
}

// LatestPerDevice returns the most recent measurement for every device,
// the dashboard's map/overview feed.
func (r *MeasurementRepository) LatestPerDevice() ([]model.Measurement, error) {
	sub := r.db.Model(&model.Measurement{}).
		Select("device_id, MAX(measured_at) AS measured_at").
		Group("device_id")

	measurements := []model.Measurement{}
	err := r.db.
		Joins("JOIN (?) latest ON measurements.device_id = latest.device_id AND measurements.measured_at = latest.measured_at", sub).
		Order("measurements.device_id asc").
		Find(&measurements).Error
	return measurements, err
}
