package repository

import (
	"errors"
	"time"

	"github.com/aeroguard/aeroguard-api/internal/model"
	"gorm.io/gorm"
)

// DeviceRepository handles database operations for Device
type DeviceRepository struct {
	db *gorm.DB
}

func NewDeviceRepository(db *gorm.DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

// Create inserts a new device
func (r *DeviceRepository) Create(device *model.Device) error {
	return r.db.Create(device).Error
}

// FindByID finds a device by its opaque id
func (r *DeviceRepository) FindByID(id string) (*model.Device, error) {
	var device model.Device
	err := r.db.Where("id = ?", id).First(&device).Error
	if err != nil {
		return nil, err
	}
	return &device, nil
}

// FindOrCreate looks a device up by id and auto-provisions a placeholder
// record when it is unknown, so field devices never hard-fail on first
// contact. The placeholder secret equals the device id, a weak default that
// only gives signature verification something to check against until the
// device is properly provisioned.
// The second return reports whether the device was just auto-registered.
func (r *DeviceRepository) FindOrCreate(id string, now time.Time) (*model.Device, bool, error) {
	device, err := r.FindByID(id)
	if err == nil {
		return device, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	placeholder := &model.Device{
		ID:             id,
		Name:           "AeroGuard Node " + id,
		SecretKey:      id,
		Active:         true,
		AutoRegistered: true,
		LastSeenAt:     &now,
	}
	if err := r.db.Create(placeholder).Error; err != nil {
		// A concurrent ingest may have registered the same id first.
		if existing, ferr := r.FindByID(id); ferr == nil {
			return existing, false, nil
		}
		return nil, false, err
	}
	return placeholder, true, nil
}

// TouchIngest records a successful ingest on the device: last-seen is the
// reading's measured-at (not wall clock, so backfilled readings don't appear
// live), the firmware version if the payload carried one, and active=true.
func (r *DeviceRepository) TouchIngest(id string, measuredAt time.Time, firmwareVersion string) error {
	updates := map[string]interface{}{
		"last_seen_at": measuredAt,
		"active":       true,
	}
	if firmwareVersion != "" {
		updates["firmware_version"] = firmwareVersion
	}
	return r.db.Model(&model.Device{}).Where("id = ?", id).Updates(updates).Error
}

// List returns all devices ordered by id
func (r *DeviceRepository) List() ([]model.Device, error) {
	devices := []model.Device{}
	err := r.db.Order("id asc").Find(&devices).Error
	return devices, err
}
