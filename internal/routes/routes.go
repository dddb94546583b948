package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/parleychat/parley-backend/internal/handlers"
)

func SetupRoutes(r *chi.Mux, auth *handlers.AuthHandler, sync *handlers.SyncHandler, gateway *handlers.Gateway) {
	// Account boundary
	r.Post("/api/auth/signup", auth.Signup)
	r.Post("/api/auth/signin", auth.Signin)
	r.Get("/api/auth/verify", auth.Verify)

	// Active-user listing (everyone except the caller, with presence)
	r.Get("/api/users", auth.ListUsers)

	// Offline-state reconciliation
	r.Post("/api/sync/presence", sync.SyncPresence)
	r.Post("/api/sync/messages", sync.SyncMessages)

	// WebSocket event channel (presence, relay, signaling)
	r.Get("/ws/chat", gateway.ServeWS)
}
