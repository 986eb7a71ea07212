package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v4/process"
)

var startTime = time.Now()

// healthStatus is the /healthz response body.
type healthStatus struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	PID           int     `json:"pid"`
	Goroutines    int     `json:"goroutines"`
	RSSBytes      uint64  `json:"rss_bytes,omitempty"`
	CPUPercent    float64 `json:"cpu_percent,omitempty"`
}

// handleHealth reports liveness plus process stats.
func handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := healthStatus{
		Status:        "ok",
		UptimeSeconds: time.Since(startTime).Seconds(),
		PID:           os.Getpid(),
		Goroutines:    runtime.NumGoroutine(),
	}

	// Process stats are best effort; a platform that can't report them
	// doesn't make the service unhealthy.
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if mem, err := proc.MemoryInfo(); err == nil {
			status.RSSBytes = mem.RSS
		}
		if cpu, err := proc.CPUPercent(); err == nil {
			status.CPUPercent = cpu
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		slog.Error("failed to write health response", "error", err)
	}
}

// NewMetricsServer creates the HTTP server exposing /metrics and /healthz.
func NewMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", handleHealth)

	return &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
