package server

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/horizon/internal/database"
	"github.com/aristath/horizon/internal/scheduler"
)

// JobStatusProvider reports scheduled job runs
type JobStatusProvider interface {
	Status() []scheduler.RunStatus
}

// SystemHandlers serves health and host statistics
type SystemHandlers struct {
	log       zerolog.Logger
	dataDir   string
	databases map[string]*database.DB
	jobs      JobStatusProvider
	started   time.Time
}

// NewSystemHandlers creates system handlers
func NewSystemHandlers(log zerolog.Logger, dataDir string, databases map[string]*database.DB, jobs JobStatusProvider) *SystemHandlers {
	return &SystemHandlers{
		log:       log.With().Str("handler", "system").Logger(),
		dataDir:   dataDir,
		databases: databases,
		jobs:      jobs,
		started:   time.Now(),
	}
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status    string            `json:"status"`
	Databases map[string]string `json:"databases"`
	Uptime    string            `json:"uptime"`
}

// HandleHealth pings every database. Any failure makes the service unhealthy.
// GET /health
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{
		Status:    "healthy",
		Databases: make(map[string]string, len(h.databases)),
		Uptime:    time.Since(h.started).Round(time.Second).String(),
	}
	status := http.StatusOK

	for name, db := range h.databases {
		if err := db.QuickCheck(ctx); err != nil {
			h.log.Warn().Err(err).Str("database", name).Msg("Database health check failed")
			resp.Databases[name] = err.Error()
			resp.Status = "unhealthy"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Databases[name] = "ok"
	}

	h.writeJSON(w, status, resp)
}

// DatabaseStats is the size of one database
type DatabaseStats struct {
	Name         string  `json:"name"`
	SizeMB       float64 `json:"size_mb"`
	WALSizeMB    float64 `json:"wal_size_mb"`
	FreelistPage int64   `json:"freelist_pages"`
}

// SystemStatsResponse is the body of GET /api/system/stats
type SystemStatsResponse struct {
	CPUPercent    float64         `json:"cpu_percent"`
	CPUCount      int             `json:"cpu_count"`
	MemoryPercent float64         `json:"memory_percent"`
	DiskPercent   float64         `json:"disk_percent"`
	DiskFreeGB    float64         `json:"disk_free_gb"`
	DataDirMB     float64         `json:"data_dir_mb"`
	Goroutines    int             `json:"goroutines"`
	Databases     []DatabaseStats `json:"databases"`
}

// HandleSystemStats returns host and database statistics
// GET /api/system/stats
func (h *SystemHandlers) HandleSystemStats(w http.ResponseWriter, r *http.Request) {
	cpuPercent, memPercent := h.getSystemStats()

	resp := SystemStatsResponse{
		CPUPercent:    cpuPercent,
		CPUCount:      runtime.NumCPU(),
		MemoryPercent: memPercent,
		DataDirMB:     h.getDirSize(h.dataDir),
		Goroutines:    runtime.NumGoroutine(),
		Databases:     []DatabaseStats{},
	}

	if usage, err := disk.Usage(h.dataDir); err == nil {
		resp.DiskPercent = usage.UsedPercent
		resp.DiskFreeGB = float64(usage.Free) / 1e9
	} else {
		h.log.Warn().Err(err).Msg("Failed to get disk usage")
	}

	names := make([]string, 0, len(h.databases))
	for name := range h.databases {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		stats, err := h.databases[name].GetStats()
		if err != nil {
			h.log.Warn().Err(err).Str("database", name).Msg("Failed to get database stats")
			continue
		}
		resp.Databases = append(resp.Databases, DatabaseStats{
			Name:         name,
			SizeMB:       float64(stats.SizeBytes) / 1024 / 1024,
			WALSizeMB:    float64(stats.WALSizeBytes) / 1024 / 1024,
			FreelistPage: stats.FreelistCount,
		})
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// HandleJobsStatus lists scheduled jobs and their latest run
// GET /api/system/jobs
func (h *SystemHandlers) HandleJobsStatus(w http.ResponseWriter, r *http.Request) {
	jobs := []scheduler.RunStatus{}
	if h.jobs != nil {
		jobs = h.jobs.Status()
		slices.SortFunc(jobs, func(a, b scheduler.RunStatus) int {
			switch {
			case a.Job < b.Job:
				return -1
			case a.Job > b.Job:
				return 1
			}
			return 0
		})
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"jobs": jobs})
}

// getDirSize calculates total size of a directory in MB
func (h *SystemHandlers) getDirSize(dirPath string) float64 {
	if dirPath == "" {
		return 0
	}
	var totalSize int64

	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})
	if err != nil {
		h.log.Warn().Err(err).Str("dir", dirPath).Msg("Failed to calculate directory size")
		return 0
	}

	return float64(totalSize) / 1024 / 1024
}

// getSystemStats returns CPU and RAM usage percentages.
// CPU is sampled over 100ms to keep the endpoint responsive.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}
	return cpuAvg, memStat.UsedPercent
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
