package repository

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/aeroguard/aeroguard-api/internal/model"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Unique in-memory DB per test to avoid cross-test contamination.
	dsn := "file:repo_" + strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()) + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Device{}, &model.Measurement{}))
	return db
}

func seedDevice(t *testing.T, db *gorm.DB, id string) {
	t.Helper()
	require.NoError(t, db.Create(&model.Device{ID: id, SecretKey: id, Active: true}).Error)
}

func newMeasurement(deviceID string, measuredAt time.Time, temp float64) *model.Measurement {
	return &model.Measurement{
		ID:          uuid.NewString(),
		DeviceID:    deviceID,
		MeasuredAt:  measuredAt,
		Temperature: &temp,
	}
}

func TestUpsertByKeyKeepsExistingRow(t *testing.T) {
	db := openTestDB(t)
	repo := NewMeasurementRepository(db)
	seedDevice(t, db, "AERO-NODE-001")

	at := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	first, err := repo.UpsertByKey(newMeasurement("AERO-NODE-001", at, 20.0))
	require.NoError(t, err)

	second, err := repo.UpsertByKey(newMeasurement("AERO-NODE-001", at, 25.5))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "the surviving row keeps the original id")
	require.NotNil(t, second.Temperature)
	assert.InDelta(t, 25.5, *second.Temperature, 1e-9)

	var count int64
	require.NoError(t, db.Model(&model.Measurement{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestUpsertByKeyDistinctTimestamps(t *testing.T) {
	db := openTestDB(t)
	repo := NewMeasurementRepository(db)
	seedDevice(t, db, "AERO-NODE-001")

	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	_, err := repo.UpsertByKey(newMeasurement("AERO-NODE-001", base, 20.0))
	require.NoError(t, err)
	_, err = repo.UpsertByKey(newMeasurement("AERO-NODE-001", base.Add(time.Minute), 21.0))
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&model.Measurement{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestUpsertByClientID(t *testing.T) {
	db := openTestDB(t)
	repo := NewMeasurementRepository(db)
	seedDevice(t, db, "AERO-NODE-001")

	at := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	m := newMeasurement("AERO-NODE-001", at, 20.0)
	m.ID = "client-id-1"

	stored, err := repo.UpsertByClientID(m)
	require.NoError(t, err)
	assert.Equal(t, "client-id-1", stored.ID)

	update := newMeasurement("AERO-NODE-001", at.Add(time.Minute), 23.0)
	update.ID = "client-id-1"
	stored, err = repo.UpsertByClientID(update)
	require.NoError(t, err)
	require.NotNil(t, stored.Temperature)
	assert.InDelta(t, 23.0, *stored.Temperature, 1e-9)

	var count int64
	require.NoError(t, db.Model(&model.Measurement{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestListByDevice(t *testing.T) {
	db := openTestDB(t)
	repo := NewMeasurementRepository(db)
	seedDevice(t, db, "AERO-NODE-001")
	seedDevice(t, db, "AERO-NODE-002")

	base := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_, err := repo.UpsertByKey(newMeasurement("AERO-NODE-001", base.Add(time.Duration(i)*time.Hour), float64(i)))
		require.NoError(t, err)
	}
	_, err := repo.UpsertByKey(newMeasurement("AERO-NODE-002", base, 99.0))
	require.NoError(t, err)

	all, err := repo.ListByDevice("AERO-NODE-001", time.Time{}, time.Time{}, 100)
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.True(t, all[0].MeasuredAt.After(all[4].MeasuredAt), "newest first")

	ranged, err := repo.ListByDevice("AERO-NODE-001", base.Add(time.Hour), base.Add(3*time.Hour), 100)
	require.NoError(t, err)
	assert.Len(t, ranged, 3)

	limited, err := repo.ListByDevice("AERO-NODE-001", time.Time{}, time.Time{}, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestLatestPerDevice(t *testing.T) {
	db := openTestDB(t)
	repo := NewMeasurementRepository(db)
	seedDevice(t, db, "AERO-NODE-001")
	seedDevice(t, db, "AERO-NODE-002")

	base := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_, err := repo.UpsertByKey(newMeasurement("AERO-NODE-001", base.Add(time.Duration(i)*time.Hour), float64(i)))
		require.NoError(t, err)
	}
	_, err := repo.UpsertByKey(newMeasurement("AERO-NODE-002", base, 99.0))
	require.NoError(t, err)

	latest, err := repo.LatestPerDevice()
	require.NoError(t, err)
	require.Len(t, latest, 2)

	byDevice := map[string]model.Measurement{}
	for _, m := range latest {
		byDevice[m.DeviceID] = m
	}
	assert.Equal(t, base.Add(2*time.Hour), byDevice["AERO-NODE-001"].MeasuredAt.UTC())
	assert.Equal(t, base, byDevice["AERO-NODE-002"].MeasuredAt.UTC())
}

func TestDeviceFindOrCreate(t *testing.T) {
	db := openTestDB(t)
	repo := NewDeviceRepository(db)
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	device, created, err := repo.FindOrCreate("AERO-NODE-007", now)
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, device.AutoRegistered)
	assert.Equal(t, "AERO-NODE-007", device.SecretKey)

	again, created, err := repo.FindOrCreate("AERO-NODE-007", now.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, device.ID, again.ID)
}

func TestDeviceTouchIngest(t *testing.T) {
	db := openTestDB(t)
	repo := NewDeviceRepository(db)
	require.NoError(t, repo.Create(&model.Device{ID: "AERO-NODE-001", SecretKey: "s", Active: false}))

	at := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	require.NoError(t, repo.TouchIngest("AERO-NODE-001", at, "1.4.2"))

	device, err := repo.FindByID("AERO-NODE-001")
	require.NoError(t, err)
	assert.True(t, device.Active)
	assert.Equal(t, "1.4.2", device.FirmwareVersion)
	require.NotNil(t, device.LastSeenAt)
	assert.Equal(t, at, device.LastSeenAt.UTC())

	// An empty firmware version must not clobber the stored one.
	require.NoError(t, repo.TouchIngest("AERO-NODE-001", at.Add(time.Hour), ""))
	device, err = repo.FindByID("AERO-NODE-001")
	require.NoError(t, err)
	assert.Equal(t, "1.4.2", device.FirmwareVersion)
}
