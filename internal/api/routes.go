package api

import (
	"net/http"

	"github.com/gorilla/websocket"

	h "brokerbot/internal/api/handlers"
	"brokerbot/internal/conversation"
	"brokerbot/internal/events"
	"brokerbot/internal/middleware"
	"brokerbot/internal/rules"
	"brokerbot/internal/store"
)

func NewRouter(engine *conversation.Engine, st store.Store,
	catalog *rules.Catalog, bus *events.Bus, upgrader websocket.Upgrader) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /up", h.HandleHealth())

	// Sessions
	mux.Handle("POST /sessions", h.HandleCreateSession(engine))
	mux.Handle("GET /sessions/{id}", h.HandleGetSession(st))
	mux.Handle("POST /sessions/{id}/messages", h.HandleMessage(engine))
	mux.Handle("POST /sessions/{id}/liabilities", h.HandleAddLiability(engine))
	mux.Handle("GET /sessions/{id}/matches", h.HandleGetMatches(st))
	mux.Handle("POST /sessions/{id}/escalate", h.HandleEscalate(engine))
	mux.Handle("DELETE /sessions/{id}", h.HandlePurge(engine))

	// Webchat
	mux.Handle("GET /sessions/{id}/chat", h.HandleChat(engine, upgrader))

	// Rule catalog administration
	mux.Handle("GET /rules/version", h.HandleRulesVersion(catalog))
	mux.Handle("POST /rules/reload", h.HandleRulesReload(catalog, bus))

	var handler http.Handler = mux
	handler = middleware.Logging(handler)

	return handler
}
