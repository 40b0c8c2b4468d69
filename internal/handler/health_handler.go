package handler

import (
	"context"
	"sort"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/opencourse-api/internal/config"
	"github.com/noah-isme/opencourse-api/internal/utils"
)

const probeTimeout = 2 * time.Second

// Probe checks one backing service, such as the database or the cache.
type Probe func(ctx context.Context) error

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status       string            `json:"status"`
	Timestamp    time.Time         `json:"timestamp"`
	Service      string            `json:"service"`
	Environment  string            `json:"environment"`
	Storage      string            `json:"storage"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

// HealthCheck reports service information and the state of each probe. Any
// failing probe turns the status to "degraded" and the response to 503.
func HealthCheck(cfg config.Config, probes map[string]Probe) fiber.Handler {
	names := make([]string, 0, len(probes))
	for name := range probes {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
			Storage:     cfg.StorageDriver,
		}

		if len(names) > 0 {
			payload.Dependencies = make(map[string]string, len(names))
			ctx, cancel := context.WithTimeout(c.UserContext(), probeTimeout)
			defer cancel()
			for _, name := range names {
				if err := probes[name](ctx); err != nil {
					payload.Dependencies[name] = err.Error()
					payload.Status = "degraded"
					continue
				}
				payload.Dependencies[name] = "ok"
			}
		}

		if payload.Status != "ok" {
			return utils.SendSuccessWithStatus(c, fiber.StatusServiceUnavailable, "service degraded", payload)
		}
		return utils.SendSuccess(c, "service healthy", payload)
	}
}
