package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/qaranexchange/exchange-api/internal/domain"
)

// CreateSubmission records customer account details for an exchange. Open
// to anonymous customers; a live session attaches the submission.
func (h *Handlers) CreateSubmission(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateSubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	var accountID *int64
	if account := sessionAccount(r); account != nil {
		accountID = &account.ID
	}

	submission, err := h.submissionService.Create(r.Context(), req, accountID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success":    true,
		"submission": submission,
	})
}

func (h *Handlers) GetSubmission(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	submission, err := h.submissionService.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, submission)
}

// ListSubmissions is the admin submission listing.
func (h *Handlers) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	submissions, err := h.submissionService.List(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if submissions == nil {
		submissions = []domain.Submission{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"submissions": submissions,
		"count":       len(submissions),
	})
}

// UpdateSubmissionStatus moves a submission through the pipeline.
func (h *Handlers) UpdateSubmissionStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	submission, err := h.submissionService.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"submission": submission,
	})
}
