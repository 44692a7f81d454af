package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/qaranexchange/exchange-api/internal/domain"
)

// CreatePayment records an exchange payment. Works for both logged-in and
// anonymous customers; a live session attaches the payment to the account.
func (h *Handlers) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req domain.CreatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	var accountID *int64
	if account := sessionAccount(r); account != nil {
		accountID = &account.ID
	}

	payment, clientSecret, err := h.paymentService.Create(r.Context(), req, accountID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	response := map[string]interface{}{
		"success": true,
		"payment": payment,
	}
	if clientSecret != "" {
		response["clientSecret"] = clientSecret
	}

	writeJSON(w, http.StatusCreated, response)
}

func (h *Handlers) GetPayment(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	payment, err := h.paymentService.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, payment)
}

// ListPayments is the admin payment listing.
func (h *Handlers) ListPayments(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	payments, err := h.paymentService.List(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if payments == nil {
		payments = []domain.Payment{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"payments": payments,
		"count":    len(payments),
	})
}

// PaymentHistory returns the logged-in customer's own payments.
func (h *Handlers) PaymentHistory(w http.ResponseWriter, r *http.Request) {
	account := sessionAccount(r)

	payments, err := h.paymentService.History(r.Context(), account.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if payments == nil {
		payments = []domain.Payment{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"payments": payments,
		"count":    len(payments),
	})
}

// PaymentStats is the admin dashboard aggregate.
func (h *Handlers) PaymentStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.paymentService.Stats(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}
