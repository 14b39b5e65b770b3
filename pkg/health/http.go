package health

import (
	"encoding/json"
	"net/http"
)

// Handler writes 200 "OK" when the gate is healthy and 503 otherwise.
func (g *Gate) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if g.Healthy() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("OK"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("Service Unavailable"))
	})
}

// StatusHandler serves the per-dependency results as JSON, with the same
// status code as Handler.
func (g *Gate) StatusHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		body := struct {
			Healthy      bool              `json:"healthy"`
			Dependencies map[string]Status `json:"dependencies"`
		}{
			Healthy:      g.Healthy(),
			Dependencies: g.Statuses(),
		}
		w.Header().Set("Content-Type", "application/json")
		if !body.Healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(body)
	})
}
