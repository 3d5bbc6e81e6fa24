package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/resume-ingest/internal/models"
	"alfredoptarigan/resume-ingest/internal/services"
)

type StatusHandler struct {
	registry services.Registry
	breakers *services.CircuitBreakers
}

func NewStatusHandler(registry services.Registry, breakers *services.CircuitBreakers) *StatusHandler {
	return &StatusHandler{
		registry: registry,
		breakers: breakers,
	}
}

// HandleAdapters lists every registered adapter with its breaker state.
func (h *StatusHandler) HandleAdapters(c *fiber.Ctx) error {
	descs := h.registry.Descriptors()
	resp := models.AdaptersResponse{Adapters: make([]models.AdapterStatus, 0, len(descs))}

	for _, d := range descs {
		state := h.breakers.State(d.Name)
		var lastFailure *time.Time
		if !state.LastFailure.IsZero() {
			lastFailure = &state.LastFailure
		}
		resp.Adapters = append(resp.Adapters, models.AdapterStatus{
			Name:          d.Name,
			Priority:      d.Priority,
			Enabled:       d.Enabled,
			MediaTypes:    d.MediaTypes,
			Breaker:       state.Status.String(),
			Failures:      state.Failures,
			LastFailureAt: lastFailure,
		})
	}

	return c.JSON(resp)
}

func (h *StatusHandler) HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "healthy",
		"time":   time.Now(),
	})
}
