package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/parleychat/parley-backend/internal/models"
	"github.com/parleychat/parley-backend/internal/services"
)

// SyncHandler receives state a client accumulated while offline and feeds it
// to the reconciler. Each endpoint responds with the merged server state so
// the client can converge in one round trip.
type SyncHandler struct {
	auth       *services.Authenticator
	reconciler *services.SyncReconciler
}

func NewSyncHandler(auth *services.Authenticator, reconciler *services.SyncReconciler) *SyncHandler {
	return &SyncHandler{auth: auth, reconciler: reconciler}
}

type presenceSyncRequest struct {
	Entries []models.PresenceEntry `json:"entries"`
}

type messageSyncRequest struct {
	Messages []models.Message `json:"messages"`
}

// SyncPresence merges an offline presence snapshot into the registry.
func (h *SyncHandler) SyncPresence(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(w, r) {
		return
	}

	var req presenceSyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	merged := h.reconciler.SyncPresence(r.Context(), req.Entries)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"entries": merged,
	})
}

// SyncMessages merges offline messages into the conversation log.
func (h *SyncHandler) SyncMessages(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(w, r) {
		return
	}

	var req messageSyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	merged := h.reconciler.SyncMessages(r.Context(), req.Messages)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"messages": merged,
	})
}

func (h *SyncHandler) authorized(w http.ResponseWriter, r *http.Request) bool {
	token := extractBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		respondJSON(w, http.StatusUnauthorized, authResponse{
			Success: false,
			Message: "Authentication token missing. Please log in again.",
		})
		return false
	}
	if _, err := h.auth.Verify(r.Context(), token); err != nil {
		respondJSON(w, http.StatusUnauthorized, authResponse{
			Success: false,
			Message: "Invalid authentication token. Please sign in to continue.",
		})
		return false
	}
	return true
}
