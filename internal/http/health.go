package httpserver

import (
	"context"
	"net/http"

	"dualbase/internal/dbtarget"
)

// healthReporter probes the managed connections; the registry implements it.
type healthReporter interface {
	AllHealth(ctx context.Context) map[dbtarget.Target]bool
}

type HealthHandler struct {
	Reporter healthReporter
}

type healthResponse struct {
	Status  string            `json:"status"`
	Targets map[string]string `json:"targets"`
}

func (h HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	health := h.Reporter.AllHealth(r.Context())

	resp := healthResponse{Status: "ok", Targets: make(map[string]string, len(health))}
	status := http.StatusOK
	for target, ok := range health {
		if ok {
			resp.Targets[string(target)] = "ok"
			continue
		}
		resp.Targets[string(target)] = "unhealthy"
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
