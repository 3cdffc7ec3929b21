package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/kurslab/reviewd/internal/review"
	"github.com/kurslab/reviewd/internal/types"
)

// TriggerRequest is the request body for starting a review
type TriggerRequest struct {
	// Force restarts the review even if one already completed
	Force bool `json:"force"`
}

// TriggerResponse reports the claim outcome. Status is "started" when a new
// run began, "unchanged" when an existing run made the trigger a no-op.
type TriggerResponse struct {
	Status       string        `json:"status"`
	SubmissionID string        `json:"submissionId"`
	Review       *types.Review `json:"review"`
}

// StatusResponse wraps the current review record; Review is null before the
// first trigger
type StatusResponse struct {
	Review *types.Review `json:"review"`
}

// handleTrigger handles POST /api/submissions/{id}/review
func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	submissionID := mux.Vars(r)["id"]

	// Empty body means a plain non-forced trigger
	var req TriggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rec, started, err := s.reviews.Trigger(r.Context(), submissionID, req.Force)
	if err != nil {
		if errors.Is(err, review.ErrSubmissionNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	status := "unchanged"
	if started {
		status = "started"
	}
	writeJSON(w, http.StatusAccepted, TriggerResponse{
		Status:       status,
		SubmissionID: submissionID,
		Review:       rec,
	})
}

// handleStatus handles GET /api/submissions/{id}/review
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	submissionID := mux.Vars(r)["id"]

	rec, err := s.reviews.Status(r.Context(), submissionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{Review: rec})
}

// handleHealth handles GET /healthz
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
