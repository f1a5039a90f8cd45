package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

var processStart = func() time.Time { return time.Now() }()

type healthResponse struct {
	Status       string  `json:"status"`
	UptimeSecs   float64 `json:"uptime_seconds"`
	Goroutines   int     `json:"goroutines"`
	CPUPercent   float64 `json:"cpu_percent,omitempty"`
	MemUsedBytes uint64  `json:"mem_used_bytes,omitempty"`
}

// handleHealth reports process liveness plus host resource usage, sourced
// from gopsutil rather than hand-rolled /proc parsing.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:     "ok",
		UptimeSecs: time.Since(processStart).Seconds(),
		Goroutines: runtime.NumGoroutine(),
	}

	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		resp.CPUPercent = pct[0]
	} else if err != nil {
		s.log.Warn().Err(err).Msg("cpu stats unavailable")
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		resp.MemUsedBytes = vm.Used
	} else {
		s.log.Warn().Err(err).Msg("memory stats unavailable")
	}

	writeBody(w, r, http.StatusOK, resp)
}
