package router

import (
	"net/http"

	"qareview/config"
	reviewHandler "qareview/internal/review"
	"qareview/middleware"
	"qareview/socket"
)

func Setup(h *reviewHandler.ReviewHandler, hub *socket.Hub, cfg config.Config) http.Handler {
	mux := http.NewServeMux()
	auth := middleware.Auth(cfg.JWTSecret)

	// WebSocket
	wsHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		socket.ServeWs(hub, w, r, middleware.ReviewerFrom(r.Context()), cfg.EditRate)
	})
	mux.Handle("/ws", auth(wsHandler))

	// REST API
	mux.HandleFunc("/api/health", h.Health)
	mux.Handle("/api/domains", auth(http.HandlerFunc(h.GetDomains)))
	mux.Handle("/api/records", auth(http.HandlerFunc(h.GetRecords)))
	mux.Handle("/api/records/edit", auth(http.HandlerFunc(h.EditRecord)))
	mux.Handle("/api/records/status", auth(http.HandlerFunc(h.SetStatus)))
	mux.Handle("/api/records/save", auth(http.HandlerFunc(h.SaveRecords)))
	mux.Handle("/api/records/storage", auth(http.HandlerFunc(h.ClearStorage)))
	mux.Handle("/api/records/reload", auth(http.HandlerFunc(h.Reload)))
	mux.Handle("/api/records/export", auth(http.HandlerFunc(h.Export)))

	return middleware.CORS(cfg.CORSOrigin, mux)
}
