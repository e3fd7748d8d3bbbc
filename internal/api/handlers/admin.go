package handlers

import (
	"net/http"

	"brokerbot/internal/events"
	"brokerbot/internal/rules"
)

// HandleHealth answers liveness probes.
func HandleHealth() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

// HandleRulesVersion reports the active catalog version.
func HandleRulesVersion(catalog *rules.Catalog) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"version": catalog.Version()})
	})
}

// HandleRulesReload forces a catalog reload. A broken document keeps
// the last-known-good version serving.
func HandleRulesReload(catalog *rules.Catalog, bus *events.Bus) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := catalog.Reload(); err != nil {
			writeError(w, "catalog reload failed", err)
			return
		}
		if bus != nil {
			bus.Publish(events.Event{
				Type:    events.TypeRulesReloaded,
				Payload: map[string]string{"version": catalog.Version()},
			})
		}
		writeJSON(w, http.StatusOK, map[string]string{"version": catalog.Version()})
	})
}
