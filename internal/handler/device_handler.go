package handler

import (
	"errors"
	"net/http"

	"github.com/aeroguard/aeroguard-api/internal/model"
	"github.com/aeroguard/aeroguard-api/internal/service"
	"github.com/gin-gonic/gin"
)

// DeviceHandler handles device and measurement query endpoints
type DeviceHandler struct {
	deviceService *service.DeviceService
}

func NewDeviceHandler(deviceService *service.DeviceService) *DeviceHandler {
	return &DeviceHandler{deviceService: deviceService}
}

// Register godoc
// @Summary Register a device
// @Description Explicit device provisioning. The response contains the HMAC secret exactly once.
// @Tags Devices
// @Accept json
// @Produce json
// @Param body body model.RegisterDeviceRequest true "Device registration request"
// @Success 201 {object} model.RegisterDeviceResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 409 {object} model.ErrorResponse
// @Router /devices [post]
func (h *DeviceHandler) Register(c *gin.Context) {
	var req model.RegisterDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	resp, err := h.deviceService.Register(req)
	if err != nil {
		if errors.Is(err, service.ErrDeviceExists) {
			c.JSON(http.StatusConflict, model.ErrorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Failed to register device"})
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// List godoc
// @Summary List all devices
// @Tags Devices
// @Produce json
// @Success 200 {array} model.Device
// @Router /devices [get]
func (h *DeviceHandler) List(c *gin.Context) {
	devices, err := h.deviceService.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Failed to list devices"})
		return
	}
	c.JSON(http.StatusOK, devices)
}

// Get godoc
// @Summary Get a device
// @Tags Devices
// @Produce json
// @Param id path string true "Device ID"
// @Success 200 {object} model.Device
// @Failure 404 {object} model.ErrorResponse
// @Router /devices/{id} [get]
func (h *DeviceHandler) Get(c *gin.Context) {
	device, err := h.deviceService.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrDeviceNotFound) {
			c.JSON(http.StatusNotFound, model.ErrorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Failed to get device"})
		return
	}
	c.JSON(http.StatusOK, device)
}

// Measurements godoc
// @Summary List a device's measurements
// @Tags Measurements
// @Produce json
// @Param id path string true "Device ID"
// @Param from query string false "RFC3339 range start"
// @Param to query string false "RFC3339 range end"
// @Param limit query int false "Maximum rows (default 100, cap 1000)"
// @Success 200 {array} model.Measurement
// @Failure 404 {object} model.ErrorResponse
// @Router /devices/{id}/measurements [get]
func (h *DeviceHandler) Measurements(c *gin.Context) {
	var req model.MeasurementListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid query", Message: err.Error()})
		return
	}

	measurements, err := h.deviceService.Measurements(c.Param("id"), req.From, req.To, req.Limit)
	if err != nil {
		if errors.Is(err, service.ErrDeviceNotFound) {
			c.JSON(http.StatusNotFound, model.ErrorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Failed to list measurements"})
		return
	}
	c.JSON(http.StatusOK, measurements)
}

// Latest godoc
// @Summary Latest measurement per device
// @Description The dashboard map/overview feed: one most-recent reading for every device.
// @Tags Measurements
// @Produce json
// @Success 200 {array} model.Measurement
// @Router /measurements/latest [get]
func (h *DeviceHandler) Latest(c *gin.Context) {
	measurements, err := h.deviceService.Latest()
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Failed to list measurements"})
		return
	}
	c.JSON(http.StatusOK, measurements)
}
