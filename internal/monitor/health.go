package monitor

import (
	"net/http"

	"github.com/veesix-networks/eoax/pkg/ax25"
)

type HealthResponse struct {
	Status string `json:"status"`
	Pairs  int    `json:"pairs,omitempty"`
}

func (c *Component) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	c.writeJSON(w, HealthResponse{Status: "ok"})
}

// handleReadyz reports ready once the bridge receives EoAX frames.
func (c *Component) handleReadyz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	resp := HealthResponse{Pairs: c.bridge.Registry().Len()}
	if c.mux.Registered(ax25.PIDEoAX) {
		resp.Status = "ready"
		w.WriteHeader(http.StatusOK)
	} else {
		resp.Status = "not_ready"
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	c.writeJSON(w, resp)
}
