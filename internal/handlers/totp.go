package handlers

import (
	"encoding/json"
	"net/http"

	"timeoff-tracker-go/internal/models"
)

const totpIssuer = "Time-Off Tracker"

// Generate2FAHandler generates a new TOTP secret and QR code for the caller.
// The secret is stored disabled until Enable2FAHandler verifies a code.
func (h *Handler) Generate2FAHandler(w http.ResponseWriter, r *http.Request) {
	sess, _ := CurrentSession(r)

	user, err := h.Users.GetUser(r.Context(), sess.UserID)
	if err != nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}

	enrollment, err := models.NewTOTPEnrollment(totpIssuer, user.Email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to generate secret")
		return
	}

	if err := h.Users.UpdateUser2FA(r.Context(), user.ID, enrollment.Secret, false); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to store secret")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"secret":  enrollment.Secret,
		"qr_code": enrollment.QRCode,
		"issuer":  totpIssuer,
		"account": user.Email,
	})
}

// Enable2FAHandler verifies the TOTP code and turns 2FA on
func (h *Handler) Enable2FAHandler(w http.ResponseWriter, r *http.Request) {
	sess, _ := CurrentSession(r)

	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	user, err := h.Users.GetUser(r.Context(), sess.UserID)
	if err != nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	if user.TOTPSecret == "" {
		writeError(w, http.StatusBadRequest, "Generate a secret first")
		return
	}

	if !models.VerifyTOTPCode(user.TOTPSecret, req.Code) {
		writeError(w, http.StatusUnauthorized, "Invalid code")
		return
	}

	if err := h.Users.UpdateUser2FA(r.Context(), user.ID, user.TOTPSecret, true); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to enable 2FA")
		return
	}

	h.audit(r, user.ID, "enable_2fa", "user", user.ID, "")
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

// Verify2FAHandler is the second login step for accounts with 2FA enabled:
// a valid code exchanges the password check done earlier for a token.
func (h *Handler) Verify2FAHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
		Code   string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	user, err := h.Users.GetUser(r.Context(), req.UserID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if !user.TOTPEnabled || !models.VerifyTOTPCode(user.TOTPSecret, req.Code) {
		writeError(w, http.StatusUnauthorized, "Invalid code")
		return
	}

	token, err := h.Sessions.CreateSession(r.Context(), user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	h.audit(r, user.ID, "login", "user", user.ID, "2fa")
	respondJSON(w, http.StatusOK, map[string]any{"token": token, "user": user})
}

// Disable2FAHandler turns 2FA off after re-checking the password
func (h *Handler) Disable2FAHandler(w http.ResponseWriter, r *http.Request) {
	sess, _ := CurrentSession(r)

	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	user, err := h.Users.GetUser(r.Context(), sess.UserID)
	if err != nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	if !user.CheckPassword(req.Password) {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if err := h.Users.Disable2FA(r.Context(), user.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to disable 2FA")
		return
	}

	h.audit(r, user.ID, "disable_2fa", "user", user.ID, "")
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}
