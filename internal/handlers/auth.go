package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/parleychat/parley-backend/internal/services"
	"github.com/parleychat/parley-backend/pkg/utils"
)

// AuthHandler exposes the account boundary: signup, signin, token
// verification and the active-user listing.
type AuthHandler struct {
	auth     *services.Authenticator
	presence *services.PresenceRegistry
}

func NewAuthHandler(auth *services.Authenticator, presence *services.PresenceRegistry) *AuthHandler {
	return &AuthHandler{auth: auth, presence: presence}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	User    map[string]interface{} `json:"user,omitempty"`
}

// Signup handles account registration. A fresh account gets an offline
// presence entry so status queries about it resolve before its first
// connection.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if len(req.Password) < 8 {
		respondJSON(w, http.StatusBadRequest, authResponse{
			Success: false,
			Message: "Password must be at least 8 characters",
		})
		return
	}

	user, err := h.auth.Signup(r.Context(), req.Username, req.Password)
	if err != nil {
		status := http.StatusBadRequest
		message := err.Error()
		if errors.Is(err, services.ErrUsernameTaken) {
			message = "The username is already in use. Please try another one."
		}
		var vErr *utils.ValidationError
		if !errors.Is(err, services.ErrUsernameTaken) && !errors.As(err, &vErr) {
			status = http.StatusInternalServerError
			message = "Failed to create account"
		}
		respondJSON(w, status, authResponse{Success: false, Message: message})
		return
	}

	h.presence.EnsureEntry(r.Context(), user.Username)

	respondJSON(w, http.StatusCreated, authResponse{
		Success: true,
		Message: "Account created successfully! You can now log in.",
	})
}

// Signin verifies credentials and issues a session token.
func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, token, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			respondJSON(w, http.StatusUnauthorized, authResponse{
				Success: false,
				Message: "Invalid username or password. Please try again.",
			})
			return
		}
		respondJSON(w, http.StatusInternalServerError, authResponse{
			Success: false,
			Message: "Failed to sign in",
		})
		return
	}

	h.presence.EnsureEntry(r.Context(), user.Username)

	respondJSON(w, http.StatusOK, authResponse{
		Success: true,
		Message: "You have logged in successfully",
		User: map[string]interface{}{
			"id":       user.ID,
			"username": user.Username,
			"token":    token,
		},
	})
}

// Verify answers whether the presented token is valid and for whom.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	username, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"message":  "Authentication successful.",
		"username": username,
	})
}

// ListUsers returns every known user except the caller, with their presence
// status and last-change time.
func (h *AuthHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	username, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	users := []map[string]interface{}{}
	for _, entry := range h.presence.Snapshot() {
		if entry.Username == username {
			continue
		}
		users = append(users, map[string]interface{}{
			"username":    entry.Username,
			"status":      entry.Status,
			"last_change": entry.LastChange,
		})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"users":   users,
	})
}

// authenticate resolves the request's bearer token to a username, writing
// the 401 response itself on failure.
func (h *AuthHandler) authenticate(w http.ResponseWriter, r *http.Request) (string, bool) {
	token := extractBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		respondJSON(w, http.StatusUnauthorized, authResponse{
			Success: false,
			Message: "Authentication token missing. Please log in again.",
		})
		return "", false
	}

	username, err := h.auth.Verify(r.Context(), token)
	if err != nil {
		respondJSON(w, http.StatusUnauthorized, authResponse{
			Success: false,
			Message: "Invalid authentication token. Please sign in to continue.",
		})
		return "", false
	}
	return username, true
}

// extractBearerToken accepts both "Bearer <token>" and a bare token, since
// some clients send the raw value in the Authorization header.
func extractBearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return strings.TrimSpace(header[len("bearer "):])
	}
	return header
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
