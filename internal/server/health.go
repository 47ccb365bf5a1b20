package server

import (
	"context"
	"net/http"
	"time"
)

// Status is the state of the service or one of its components.
type Status string

const (
	StatusUp       Status = "UP"
	StatusDown     Status = "DOWN"
	StatusDegraded Status = "DEGRADED"
)

// ComponentHealth describes one dependency.
type ComponentHealth struct {
	Status  Status `json:"status"`
	Backend string `json:"backend"`
	Records *int   `json:"records,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Probe checks a dependency.
type Probe func(ctx context.Context) ComponentHealth

// HealthReport contains the detailed health report.
type HealthReport struct {
	Status     Status                     `json:"status"`
	Components map[string]ComponentHealth `json:"components"`
}

const probeTimeout = 2 * time.Second

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]Status{"status": StatusUp})
}

func (s *Server) handleDetailed(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
	defer cancel()

	report := HealthReport{
		Status:     StatusUp,
		Components: make(map[string]ComponentHealth, len(s.probes)),
	}
	for name, probe := range s.probes {
		c := probe(ctx)
		if c.Status != StatusUp {
			report.Status = StatusDegraded
		}
		report.Components[name] = c
	}

	writeJSON(w, http.StatusOK, report)
}
