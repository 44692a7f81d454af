package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/qaranexchange/exchange-api/internal/domain"
	"github.com/qaranexchange/exchange-api/internal/service"
	"github.com/qaranexchange/exchange-api/pkg/logger"
)

// Register creates an account and sends the first verification code.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	account, issued, err := h.authService.Register(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	response := map[string]interface{}{
		"success": true,
		"userId":  account.ID,
		"message": "Registration successful. Please verify your account with the code we sent.",
	}
	if issued != nil {
		response["verificationType"] = string(issued.Channel)
		h.attachDevOTP(response, issued)
	}

	writeJSON(w, http.StatusCreated, response)
}

// Login authenticates by password for an immediate session, or dispatches a
// login code on the passwordless path.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	account, issued, err := h.authService.Login(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	// Password path: session now, no OTP round-trip.
	if issued == nil {
		token, err := h.sessions.Create(r.Context(), account)
		if err != nil {
			logger.ErrorContext(r.Context(), "failed to create session",
				"account_id", account.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "Internal server error", "INTERNAL_ERROR")
			return
		}
		h.setSessionCookie(w, token)

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"user":    account.ToAccountInfo(),
		})
		return
	}

	response := map[string]interface{}{
		"success":          true,
		"requiresOTP":      true,
		"userId":           account.ID,
		"verificationType": string(issued.Channel),
	}
	h.attachDevOTP(response, issued)

	writeJSON(w, http.StatusOK, response)
}

// VerifyOTP consumes a code and establishes the session cookie.
func (h *Handlers) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req domain.VerifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	account, err := h.authService.VerifyOTP(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	token, err := h.sessions.Create(r.Context(), account)
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to create session",
			"account_id", account.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error", "INTERNAL_ERROR")
		return
	}

	h.setSessionCookie(w, token)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Verification successful",
		"user":    account.ToAccountInfo(),
	})
}

// ResendOTP issues a fresh code; earlier unexpired codes remain usable.
func (h *Handlers) ResendOTP(w http.ResponseWriter, r *http.Request) {
	var req domain.ResendOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	_, issued, err := h.authService.ResendOTP(r.Context(), req)
	if err != nil {
		// An unknown user is a bad request here, not a missing resource.
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusBadRequest, "User not found", "USER_NOT_FOUND")
			return
		}
		writeServiceError(w, r, err)
		return
	}

	response := map[string]interface{}{
		"success":          true,
		"message":          "Verification code sent",
		"verificationType": string(issued.Channel),
	}
	h.attachDevOTP(response, issued)

	writeJSON(w, http.StatusOK, response)
}

// CheckSession reports whether the request carries a live session.
func (h *Handlers) CheckSession(w http.ResponseWriter, r *http.Request) {
	account := sessionAccount(r)
	if account == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"authenticated": false,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"authenticated": true,
		"user":          account,
	})
}

// Logout revokes the session and clears the cookie. Idempotent.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(h.config.Auth.CookieName); err == nil && cookie.Value != "" {
		if err := h.sessions.Destroy(r.Context(), cookie.Value); err != nil {
			logger.ErrorContext(r.Context(), "failed to destroy session", "error", err)
		}
	}

	h.clearSessionCookie(w)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Logged out",
	})
}

// ListAccounts is the admin account listing.
func (h *Handlers) ListAccounts(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	accounts, err := h.authService.ListAccounts(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	infos := make([]*domain.AccountInfo, 0, len(accounts))
	for i := range accounts {
		infos = append(infos, accounts[i].ToAccountInfo())
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"users": infos,
		"count": len(infos),
	})
}

// GetAccount is the admin account detail view.
func (h *Handlers) GetAccount(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	account, err := h.authService.GetAccount(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, account.ToAccountInfo())
}

// attachDevOTP exposes the plaintext code in the response when the channel
// runs in dev mode. Production configs never set these flags.
func (h *Handlers) attachDevOTP(response map[string]interface{}, issued *service.IssuedOTP) {
	if issued == nil {
		return
	}
	devMode := (issued.Channel == domain.ChannelEmail && h.config.Email.DevMode) ||
		(issued.Channel == domain.ChannelSMS && h.config.SMS.DevMode)
	if devMode {
		response["dev_otp"] = issued.Code
	}
}

func (h *Handlers) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.config.Auth.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.config.Auth.SessionTTL / time.Second),
		HttpOnly: true,
		Secure:   h.config.Auth.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handlers) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.config.Auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.Auth.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
