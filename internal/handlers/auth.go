package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"timeoff-tracker-go/internal/models"
	"timeoff-tracker-go/internal/store"
)

type contextKey string

const sessionContextKey contextKey = "session"

// CurrentSession returns the authenticated caller placed in the request
// context by WithAuth.
func CurrentSession(r *http.Request) (models.Session, bool) {
	sess, ok := r.Context().Value(sessionContextKey).(models.Session)
	return sess, ok
}

func bearerToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	if token := r.Header.Get("X-Auth-Token"); token != "" {
		return token
	}
	return r.URL.Query().Get("token")
}

// WithAuth resolves the bearer token to a session and rejects the request
// with 401 otherwise.
func (h *Handler) WithAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "No token, authorization denied")
			return
		}

		sess, err := h.Sessions.GetSession(r.Context(), token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Token is not valid")
			return
		}

		ctx := context.WithValue(r.Context(), sessionContextKey, sess)
		next(w, r.WithContext(ctx))
	}
}

// RequireRole gates a handler to one role. Must be wrapped inside WithAuth.
func RequireRole(role string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := CurrentSession(r)
		if !ok || sess.Role != role {
			writeError(w, http.StatusForbidden, "Forbidden")
			return
		}
		next(w, r)
	}
}

// RegisterHandler creates a user account and logs it in
func (h *Handler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name      string `json:"name"`
		Email     string `json:"email"`
		Password  string `json:"password"`
		Role      string `json:"role"`
		ManagerID string `json:"manager_id"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	if req.Name == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Name, email and password are required")
		return
	}
	if req.Role == "" {
		req.Role = models.RoleEmployee
	}
	if req.Role != models.RoleEmployee && req.Role != models.RoleManager && req.Role != models.RoleAdmin {
		writeError(w, http.StatusBadRequest, "Invalid role")
		return
	}

	user, err := h.Users.CreateUser(r.Context(), req.Name, req.Email, req.Password, req.Role, req.ManagerID)
	if err != nil {
		if err.Error() == "user already exists" {
			writeError(w, http.StatusBadRequest, "User already exists")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	token, err := h.Sessions.CreateSession(r.Context(), user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	h.audit(r, user.ID, "register", "user", user.ID, "")
	respondJSON(w, http.StatusCreated, map[string]any{"token": token, "user": user})
}

// LoginHandler authenticates a user and returns a bearer token. Accounts
// with 2FA enabled get a requires_2fa response instead of a token; the
// token is issued by Verify2FAHandler after the code checks out.
func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	user, err := h.Users.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if !user.CheckPassword(req.Password) {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if user.TOTPEnabled {
		respondJSON(w, http.StatusOK, map[string]any{
			"requires_2fa": true,
			"user_id":      user.ID,
		})
		return
	}

	token, err := h.Sessions.CreateSession(r.Context(), user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	h.audit(r, user.ID, "login", "user", user.ID, "")
	respondJSON(w, http.StatusOK, map[string]any{"token": token, "user": user})
}

// LogoutHandler revokes the caller's token
func (h *Handler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if token := bearerToken(r); token != "" {
		_ = h.Sessions.DeleteSession(r.Context(), token)
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

// MeHandler returns the logged-in user's record
func (h *Handler) MeHandler(w http.ResponseWriter, r *http.Request) {
	sess, _ := CurrentSession(r)

	user, err := h.Users.GetUser(r.Context(), sess.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get user")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"user": user})
}
