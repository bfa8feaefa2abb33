package handler

import (
	"context"
	"net/http"
	"runtime"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/mem"
)

// Pinger reports backend connectivity.
type Pinger interface {
	Ping(ctx context.Context) map[string]string
}

// HealthHandler reports service health.
type HealthHandler struct {
	catalog Catalog
	backend Pinger
	version string
}

// NewHealthHandler builds the handler. backend may be nil.
func NewHealthHandler(catalog Catalog, backend Pinger, version string) *HealthHandler {
	return &HealthHandler{catalog: catalog, backend: backend, version: version}
}

// HandleHealth answers with engines, profiles, memory and backend state.
func (h *HealthHandler) HandleHealth(c *gin.Context) {
	body := gin.H{
		"status":  "ok",
		"service": "pdf-extractor",
		"version": h.version,
		"cpus":    runtime.NumCPU(),
	}

	if h.catalog != nil {
		body["engines"] = h.catalog.Engines()
		body["profiles"] = h.catalog.Profiles()
	}

	if vm, err := mem.VirtualMemoryWithContext(c.Request.Context()); err == nil {
		body["memory"] = gin.H{
			"total":       vm.Total,
			"available":   vm.Available,
			"usedPercent": vm.UsedPercent,
		}
	}

	if h.backend != nil {
		backends := h.backend.Ping(c.Request.Context())
		body["backends"] = backends
		for _, state := range backends {
			if state != "ok" {
				body["status"] = "degraded"
			}
		}
	}

	c.JSON(http.StatusOK, body)
}
