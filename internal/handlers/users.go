package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"timeoff-tracker-go/internal/models"
	"timeoff-tracker-go/internal/store"
)

// GetUsersHandler lists all users (admin only)
func (h *Handler) GetUsersHandler(w http.ResponseWriter, r *http.Request) {
	users, err := h.Users.GetUsers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get users")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"users": users})
}

// GetUserHandler returns one user to themselves, their manager or an admin
func (h *Handler) GetUserHandler(w http.ResponseWriter, r *http.Request, id string) {
	sess, _ := CurrentSession(r)

	user, err := h.Users.GetUser(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get user")
		return
	}

	if sess.Role != models.RoleAdmin && sess.UserID != id && user.ManagerID != sess.UserID {
		writeError(w, http.StatusForbidden, "Not authorized to view this user")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"user": user})
}

// UpdateUserHandler updates a user's name, and role when the caller is an admin
func (h *Handler) UpdateUserHandler(w http.ResponseWriter, r *http.Request, id string) {
	sess, _ := CurrentSession(r)

	if sess.Role != models.RoleAdmin && sess.UserID != id {
		writeError(w, http.StatusForbidden, "Not authorized to update this user")
		return
	}

	var req struct {
		Name string `json:"name"`
		Role string `json:"role"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name cannot be empty")
		return
	}

	var err error
	if sess.Role == models.RoleAdmin && req.Role != "" {
		if req.Role != models.RoleEmployee && req.Role != models.RoleManager && req.Role != models.RoleAdmin {
			writeError(w, http.StatusBadRequest, "Invalid role")
			return
		}
		err = h.Users.UpdateUser(r.Context(), id, req.Name, req.Role)
	} else {
		err = h.Users.UpdateUserProfile(r.Context(), id, req.Name)
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		log.Printf("Failed to update user %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to update user")
		return
	}

	h.audit(r, sess.UserID, "update_user", "user", id, "")
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

// DeleteUserHandler removes a user (admin only)
func (h *Handler) DeleteUserHandler(w http.ResponseWriter, r *http.Request, id string) {
	sess, _ := CurrentSession(r)

	if err := h.Users.DeleteUser(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete user")
		return
	}

	h.audit(r, sess.UserID, "delete_user", "user", id, "")
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

// ChangePasswordHandler lets a user change their own password
func (h *Handler) ChangePasswordHandler(w http.ResponseWriter, r *http.Request) {
	sess, _ := CurrentSession(r)

	var req struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	if len(req.NewPassword) < 8 {
		writeError(w, http.StatusBadRequest, "New password must be at least 8 characters")
		return
	}

	user, err := h.Users.GetUser(r.Context(), sess.UserID)
	if err != nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	if !user.CheckPassword(req.OldPassword) {
		writeError(w, http.StatusUnauthorized, "Old password is incorrect")
		return
	}

	hash, err := models.HashPassword(req.NewPassword)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to hash password")
		return
	}
	if err := h.Users.UpdateUserPassword(r.Context(), sess.UserID, hash); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update password")
		return
	}

	h.audit(r, sess.UserID, "change_password", "user", sess.UserID, "")
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

// AuditLogHandler lists recent audit entries (admin only)
func (h *Handler) AuditLogHandler(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			limit = n
		}
	}

	logs, err := h.Admin.GetAuditLogs(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get audit logs")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"audit": logs})
}
