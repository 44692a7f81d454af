package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/qaranexchange/exchange-api/internal/domain"
	"github.com/qaranexchange/exchange-api/internal/platform/session"
	"github.com/qaranexchange/exchange-api/internal/repo/postgres"
	"github.com/qaranexchange/exchange-api/internal/service"
	"github.com/qaranexchange/exchange-api/pkg/config"
	"github.com/qaranexchange/exchange-api/pkg/logger"
)

type contextKey string

const accountContextKey contextKey = "account"

type Handlers struct {
	authService       *service.AuthService
	paymentService    *service.PaymentService
	submissionService *service.SubmissionService
	sessions          session.Store
	rateLimitRepo     postgres.RateLimitRepo
	config            *config.Config
}

func New(
	authService *service.AuthService,
	paymentService *service.PaymentService,
	submissionService *service.SubmissionService,
	sessions session.Store,
	rateLimitRepo postgres.RateLimitRepo,
	cfg *config.Config,
) *Handlers {
	return &Handlers{
		authService:       authService,
		paymentService:    paymentService,
		submissionService: submissionService,
		sessions:          sessions,
		rateLimitRepo:     rateLimitRepo,
		config:            cfg,
	}
}

// WithSession resolves the session cookie into an account on the request
// context. Absent or dead sessions are not an error here; guards decide.
func (h *Handlers) WithSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(h.config.Auth.CookieName)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}

		info, err := h.sessions.Get(r.Context(), cookie.Value)
		if err != nil {
			if !errors.Is(err, domain.ErrNotAuthenticated) {
				logger.ErrorContext(r.Context(), "session lookup failed", "error", err)
			}
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), accountContextKey, info)
		ctx = context.WithValue(ctx, logger.AccountIDKey, info.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handlers) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sessionAccount(r) == nil {
			writeError(w, http.StatusUnauthorized, "Authentication required", "UNAUTHORIZED")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handlers) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		account := sessionAccount(r)
		if account == nil {
			writeError(w, http.StatusUnauthorized, "Authentication required", "UNAUTHORIZED")
			return
		}
		if !account.IsAdmin {
			writeError(w, http.StatusForbidden, "Insufficient permissions", "FORBIDDEN")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// OTPRateLimit caps OTP-dispatching endpoints per client IP.
func (h *Handlers) OTPRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := "otp:" + getClientIP(r)

		allowed, err := h.rateLimitRepo.CheckRateLimit(r.Context(), key,
			h.config.Limits.OTPRequests, h.config.Limits.OTPWindow)
		if err != nil {
			logger.ErrorContext(r.Context(), "rate limit check failed", "error", err)
			// Fail open
		} else if !allowed {
			writeError(w, http.StatusTooManyRequests, "Too many requests. Please try again later.", "RATE_LIMIT_EXCEEDED")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Helper functions
func sessionAccount(r *http.Request) *domain.AccountInfo {
	if info, ok := r.Context().Value(accountContextKey).(*domain.AccountInfo); ok {
		return info
	}
	return nil
}

func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, statusCode int, message, code string) {
	response := map[string]string{
		"error": message,
		"code":  code,
	}
	writeJSON(w, statusCode, response)
}

// writeServiceError maps service failures to HTTP responses in one place.
// Datastore errors are logged, never surfaced.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case domain.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_INPUT")
	case errors.Is(err, domain.ErrDuplicateChannel):
		writeError(w, http.StatusBadRequest, err.Error(), "DUPLICATE_ACCOUNT")
	case errors.Is(err, domain.ErrInvalidCredentials):
		writeError(w, http.StatusBadRequest, "Invalid credentials", "INVALID_CREDENTIALS")
	case errors.Is(err, domain.ErrNotVerified):
		writeError(w, http.StatusBadRequest, "Account is not verified", "NOT_VERIFIED")
	case errors.Is(err, domain.ErrCodeInvalid):
		writeError(w, http.StatusBadRequest, "Invalid or expired code", "CODE_INVALID")
	case errors.Is(err, domain.ErrNotAuthenticated):
		writeError(w, http.StatusUnauthorized, "Authentication required", "UNAUTHORIZED")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found", "NOT_FOUND")
	default:
		logger.ErrorContext(r.Context(), "request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error", "INTERNAL_ERROR")
	}
}

func parsePagination(r *http.Request) (limit, offset int) {
	limit = 20
	offset = 0

	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return limit, offset
}

func parseIDParam(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.Invalid("invalid id")
	}
	return id, nil
}
