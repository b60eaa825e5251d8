package service

import (
	"errors"
	"time"

	"github.com/aeroguard/aeroguard-api/internal/model"
	"github.com/aeroguard/aeroguard-api/internal/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrDeviceExists is returned when registering an id that is already taken.
var ErrDeviceExists = errors.New("device already registered")

// ErrDeviceNotFound is returned by read operations for unknown device ids.
// Ingest never returns it; unknown devices are auto-registered there.
var ErrDeviceNotFound = errors.New("device not found")

// DeviceService handles the explicit device lifecycle and read queries.
type DeviceService struct {
	devices      *repository.DeviceRepository
	measurements *repository.MeasurementRepository
}

func NewDeviceService(devices *repository.DeviceRepository, measurements *repository.MeasurementRepository) *DeviceService {
	return &DeviceService{devices: devices, measurements: measurements}
}

// Register creates a device explicitly. When no secret is supplied, one is
// generated and returned exactly once; unlike auto-registration this is the
// provisioning path that yields a real secret.
func (s *DeviceService) Register(req model.RegisterDeviceRequest) (*model.RegisterDeviceResponse, error) {
	if _, err := s.devices.FindByID(req.ID); err == nil {
		return nil, ErrDeviceExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	secret := req.SecretKey
	if secret == "" {
		secret = uuid.NewString()
	}
	name := req.Name
	if name == "" {
		name = "AeroGuard Node " + req.ID
	}

	device := &model.Device{
		ID:        req.ID,
		Name:      name,
		SecretKey: secret,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		AreaName:  req.AreaName,
		Altitude:  req.Altitude,
		Active:    true,
	}
	if err := s.devices.Create(device); err != nil {
		return nil, err
	}

	return &model.RegisterDeviceResponse{Device: *device, SecretKey: secret}, nil
}

// Get returns one device by id
func (s *DeviceService) Get(id string) (*model.Device, error) {
	device, err := s.devices.FindByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDeviceNotFound
	}
	return device, err
}

// List returns all devices
func (s *DeviceService) List() ([]model.Device, error) {
	return s.devices.List()
}

// Measurements returns a device's readings in a time range, newest first
func (s *DeviceService) Measurements(deviceID string, from, to time.Time, limit int) ([]model.Measurement, error) {
	if _, err := s.Get(deviceID); err != nil {
		return nil, err
	}
	return s.measurements.ListByDevice(deviceID, from, to, limit)
}

// Latest returns the most recent measurement per device
func (s *DeviceService) Latest() ([]model.Measurement, error) {
	return s.measurements.LatestPerDevice()
}
