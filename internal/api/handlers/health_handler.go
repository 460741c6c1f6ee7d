package handlers

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// HealthHandler reports service and host health.
type HealthHandler struct {
	db        *sql.DB
	startTime time.Time
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(db *sql.DB) *HealthHandler {
	return &HealthHandler{db: db, startTime: time.Now()}
}

// HealthResponse is the health check response body.
type HealthResponse struct {
	Status         string  `json:"status"`
	Uptime         string  `json:"uptime"`
	Database       string  `json:"database"`
	HostMemoryUsed float64 `json:"hostMemoryUsedPercent"`
	HostCPUUsed    float64 `json:"hostCpuUsedPercent"`
}

// Get handles the health check request.
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:   "ok",
		Uptime:   time.Since(h.startTime).Round(time.Second).String(),
		Database: "healthy",
	}
	status := http.StatusOK

	if err := h.db.Ping(); err != nil {
		resp.Status = "unhealthy"
		resp.Database = "unhealthy: " + err.Error()
		status = http.StatusServiceUnavailable
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		resp.HostMemoryUsed = vm.UsedPercent
	}
	// Instantaneous sample; good enough for a dashboard readout.
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		resp.HostCPUUsed = percents[0]
	}

	respondJSON(w, status, resp)
}
