package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/aeroguard/aeroguard-api/internal/ingest"
	"github.com/aeroguard/aeroguard-api/internal/model"
	"github.com/aeroguard/aeroguard-api/internal/service"
	"github.com/gin-gonic/gin"
)

// maxIngestBodyBytes bounds a single device payload; firmware bodies are
// well under 1 KiB.
const maxIngestBodyBytes = 64 << 10

// IngestHandler handles the measurement ingest endpoint
type IngestHandler struct {
	ingestService *service.IngestService
}

func NewIngestHandler(ingestService *service.IngestService) *IngestHandler {
	return &IngestHandler{ingestService: ingestService}
}

// Ingest godoc
// @Summary Ingest a sensor reading
// @Description Accepts firmware, flat, and simulator payload shapes; normalizes, resolves an AQI, and stores idempotently by (device, measured-at). Retrying the same payload updates the stored row instead of duplicating it.
// @Tags Ingest
// @Accept json
// @Produce json
// @Param body body object true "Sensor payload (device_id required, everything else optional)"
// @Success 201 {object} model.IngestResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /ingest [post]
func (h *IngestHandler) Ingest(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxIngestBodyBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Message: "unreadable body"})
		return
	}

	measurement, err := h.ingestService.Ingest(c.Request.Context(), body)
	if err != nil {
		switch {
		case errors.Is(err, ingest.ErrMissingDeviceID):
			c.JSON(http.StatusBadRequest, model.ErrorResponse{
				Error: "Invalid payload",
				Fields: []model.FieldError{
					{Field: "device_id", Message: "a device identifier is required"},
				},
			})
		case errors.Is(err, ingest.ErrInvalidPayload):
			c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid payload", Message: err.Error()})
		case errors.Is(err, service.ErrSignatureMismatch):
			// The message must not reveal which part of the check failed.
			c.JSON(http.StatusUnauthorized, model.ErrorResponse{Error: "invalid signature"})
		default:
			c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Failed to store measurement"})
		}
		return
	}

	c.JSON(http.StatusCreated, model.IngestResponse{
		Success:    true,
		ID:         measurement.ID,
		MeasuredAt: measurement.MeasuredAt.UTC().Format(time.RFC3339),
		AQI:        measurement.AQI,
		Category:   measurement.AQICategory,
	})
}
