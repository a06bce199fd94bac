package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"timeoff-tracker-go/internal/models"
	"timeoff-tracker-go/internal/store"
)

const dateLayout = "2006-01-02"

// CreateRequestHandler files a new time-off request: the primary record is
// created first, then mirrored to HRMS, then the employee's manager is
// notified if connected.
func (h *Handler) CreateRequestHandler(w http.ResponseWriter, r *http.Request) {
	sess, _ := CurrentSession(r)

	var req struct {
		StartDate string `json:"start_date"`
		EndDate   string `json:"end_date"`
		Reason    string `json:"reason"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	if req.StartDate == "" || req.EndDate == "" || req.Reason == "" {
		writeError(w, http.StatusBadRequest, "Start date, end date and reason are required")
		return
	}
	start, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start date")
		return
	}
	end, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end date")
		return
	}
	if end.Before(start) {
		writeError(w, http.StatusBadRequest, "End date must not be before start date")
		return
	}

	employee, err := h.Users.GetUser(r.Context(), sess.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Employee not found")
			return
		}
		log.Printf("Failed to get employee %s: %v", sess.UserID, err)
		writeError(w, http.StatusInternalServerError, "Failed to get employee")
		return
	}

	manager, err := h.Users.GetManager(r.Context(), employee.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Manager not found for this employee")
			return
		}
		log.Printf("Failed to get manager for %s: %v", employee.ID, err)
		writeError(w, http.StatusInternalServerError, "Failed to get manager")
		return
	}

	request := models.TimeOffRequest{
		EmployeeID:   employee.ID,
		EmployeeName: employee.Name,
		Role:         employee.Role,
		ManagerID:    manager.ID,
		ManagerName:  manager.Name,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		Reason:       req.Reason,
		Status:       models.StatusPending,
	}

	saved, err := h.Requests.CreateRequest(r.Context(), request)
	if err != nil {
		log.Printf("Failed to create request: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to create request")
		return
	}

	// HRMS mirror. A failure here aborts the flow with 500 even though the
	// primary record is already committed; there is no compensation.
	hrmsID, err := h.HRMS.SubmitRequest(r.Context(), saved)
	if err != nil {
		log.Printf("HRMS submit failed for request %s: %v", saved.ID, err)
		writeError(w, http.StatusInternalServerError, "Failed to process request")
		return
	}
	if err := h.Requests.SetHRMSRequestID(r.Context(), saved.ID, hrmsID); err != nil {
		log.Printf("Failed to store HRMS id on request %s: %v", saved.ID, err)
		writeError(w, http.StatusInternalServerError, "Failed to process request")
		return
	}
	saved.HRMSRequestID = hrmsID

	payload := map[string]any{
		"request_id":    saved.ID,
		"employee_name": employee.Name,
		"start_date":    saved.StartDate,
		"end_date":      saved.EndDate,
	}
	if !h.Hub.SendToUser(manager.ID, models.NotifyNewRequest, payload) {
		log.Printf("Manager %s not connected, notification dropped", manager.ID)
	}
	go h.sendPushToUser(manager.ID, "New time-off request from "+employee.Name)

	h.audit(r, employee.ID, "create_request", "request", saved.ID, "")
	respondJSON(w, http.StatusCreated, saved)
}

// ListRequestsHandler returns the caller's requests: a manager sees the
// team's requests, everyone else their own.
func (h *Handler) ListRequestsHandler(w http.ResponseWriter, r *http.Request) {
	sess, _ := CurrentSession(r)

	var (
		requests []models.TimeOffRequest
		err      error
	)
	if sess.Role == models.RoleManager {
		requests, err = h.Requests.GetRequestsByManager(r.Context(), sess.UserID)
	} else {
		requests, err = h.Requests.GetRequestsByEmployee(r.Context(), sess.UserID)
	}
	if err != nil {
		log.Printf("Failed to list requests: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to get requests")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"requests": requests,
		"count":    len(requests),
	})
}

// GetRequestHandler returns one request to its employee, its manager or an admin
func (h *Handler) GetRequestHandler(w http.ResponseWriter, r *http.Request, id string) {
	sess, _ := CurrentSession(r)

	request, err := h.Requests.GetRequest(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Request not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get request")
		return
	}

	if sess.Role != models.RoleAdmin && request.EmployeeID != sess.UserID && request.ManagerID != sess.UserID {
		writeError(w, http.StatusForbidden, "Not authorized to view this request")
		return
	}

	respondJSON(w, http.StatusOK, request)
}

// DecideRequestHandler records a manager's approve/reject decision. The
// employee is notified only if currently connected; offline employees miss
// the event but the decision itself still succeeds.
func (h *Handler) DecideRequestHandler(w http.ResponseWriter, r *http.Request, id string) {
	sess, _ := CurrentSession(r)

	var req struct {
		Status string `json:"status"`
		Notes  string `json:"notes"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	if req.Status != models.StatusApproved && req.Status != models.StatusRejected {
		writeError(w, http.StatusBadRequest, "Status must be either Approved or Rejected")
		return
	}

	request, err := h.Requests.GetRequest(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Request not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get request")
		return
	}

	if request.ManagerID != sess.UserID {
		writeError(w, http.StatusForbidden, "Not authorized to process this request")
		return
	}

	if req.Status == models.StatusApproved {
		if conflicts := h.approvedOverlaps(r, request); conflicts > 0 {
			log.Printf("Found %d overlapping approved requests for role %s", conflicts, request.Role)
		}
	}

	processedAt := time.Now().UTC()
	if err := h.Requests.UpdateDecision(r.Context(), id, req.Status, req.Notes, processedAt); err != nil {
		log.Printf("Failed to update request %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to update request")
		return
	}

	if err := h.HRMS.UpdateStatus(r.Context(), request.HRMSRequestID, req.Status, req.Notes); err != nil {
		log.Printf("HRMS update failed for request %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to update HRMS")
		return
	}

	payload := map[string]any{
		"request_id":    id,
		"status":        req.Status,
		"manager_notes": req.Notes,
	}
	if !h.Hub.SendToUser(request.EmployeeID, models.NotifyRequestDecision, payload) {
		log.Printf("Employee %s not connected, notification dropped", request.EmployeeID)
	}
	go h.sendPushToUser(request.EmployeeID, "Your time-off request was "+strings.ToLower(req.Status))

	request.Status = req.Status
	request.ManagerNotes = req.Notes
	request.ProcessedAt = processedAt

	h.audit(r, sess.UserID, "decide_request", "request", id, req.Status)
	respondJSON(w, http.StatusOK, request)
}

// approvedOverlaps counts already-approved requests for the same role whose
// date range overlaps the given request. Dates are YYYY-MM-DD so plain
// string comparison orders them.
func (h *Handler) approvedOverlaps(r *http.Request, request models.TimeOffRequest) int {
	approved, err := h.Requests.FindApprovedByRole(r.Context(), request.Role)
	if err != nil {
		log.Printf("Overlap check failed: %v", err)
		return 0
	}

	count := 0
	for _, other := range approved {
		if other.ID == request.ID {
			continue
		}
		if other.StartDate <= request.EndDate && other.EndDate >= request.StartDate {
			count++
		}
	}
	return count
}
