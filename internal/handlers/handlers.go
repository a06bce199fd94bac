package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"timeoff-tracker-go/internal/models"
	"timeoff-tracker-go/internal/notify"
	"timeoff-tracker-go/internal/store"
)

// HRMS mirrors requests into the external HR system.
type HRMS interface {
	SubmitRequest(ctx context.Context, req models.TimeOffRequest) (string, error)
	UpdateStatus(ctx context.Context, requestID, status, notes string) error
}

type Handler struct {
	Users    store.UserStore
	Requests store.RequestStore
	Sessions store.SessionStore
	Admin    store.AdminStore
	HRMS     HRMS
	Hub      *notify.Hub
}

func NewHandler(users store.UserStore, requests store.RequestStore, sessions store.SessionStore, admin store.AdminStore, hrms HRMS, hub *notify.Hub) *Handler {
	return &Handler{
		Users:    users,
		Requests: requests,
		Sessions: sessions,
		Admin:    admin,
		HRMS:     hrms,
		Hub:      hub,
	}
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError is the single error envelope for the whole API.
func writeError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]any{
		"success": false,
		"error":   message,
	})
}

// audit records an event best-effort; a failed write never fails the request.
func (h *Handler) audit(r *http.Request, actorID, action, targetType, targetID, metadata string) {
	if h.Admin == nil {
		return
	}
	if err := h.Admin.InsertAudit(r.Context(), actorID, action, targetType, targetID, metadata); err != nil {
		log.Printf("Failed to write audit entry: %v", err)
	}
}
