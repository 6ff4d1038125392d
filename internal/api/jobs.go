package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	ferrors "github.com/appdock/appdock/internal/foundation/errors"
	"github.com/appdock/appdock/internal/logfields"
	"github.com/appdock/appdock/internal/orchestrator"
)

// JobRequest represents a job submission.
type JobRequest struct {
	Kind  string `json:"kind"`
	AppID string `json:"app_id,omitempty"`
	// Script overrides the catalog installer script for install jobs.
	Script string `json:"script,omitempty"`
	// TargetJobID names the job a cancel job applies to.
	TargetJobID uint64 `json:"target_job_id,omitempty"`
}

// JobAccepted is the response to a successful submission.
type JobAccepted struct {
	ID     uint64 `json:"id"`
	Kind   string `json:"kind"`
	AppID  string `json:"app_id,omitempty"`
	Status string `json:"status"`
}

// handleSubmitJob enqueues a job. Submission never blocks: a bounded queue at
// capacity yields 429 instead of waiting.
func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	var req JobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	defer r.Body.Close()

	kind, err := orchestrator.ParseKind(req.Kind)
	if err != nil {
		s.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	switch kind {
	case orchestrator.KindCancel:
		if req.TargetJobID == 0 {
			s.Error(w, http.StatusBadRequest, "cancel requires target_job_id")
			return
		}
	default:
		if req.AppID == "" {
			s.Error(w, http.StatusBadRequest, "app_id is required")
			return
		}
	}

	id, err := s.deps.Queue.Enqueue(kind, req.AppID, orchestrator.Payload{
		Script:      req.Script,
		TargetJobID: req.TargetJobID,
	})
	if err != nil {
		if ferrors.HasCategory(err, ferrors.CategoryQueue) {
			s.Error(w, http.StatusTooManyRequests, err.Error())
			return
		}
		s.Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.log.Info("job accepted", logfields.JobID(id), logfields.JobKind(req.Kind), logfields.AppID(req.AppID))
	s.Success(w, http.StatusAccepted, JobAccepted{
		ID:     id,
		Kind:   req.Kind,
		AppID:  req.AppID,
		Status: string(orchestrator.JobQueued),
	})
}

// handleGetJob reports a job's status, falling back to the durable audit table
// once the job has aged out of the in-memory registry.
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.Error(w, http.StatusBadRequest, "invalid job id")
		return
	}

	if job, ok := s.deps.Queue.Snapshot(id); ok {
		s.Success(w, http.StatusOK, job)
		return
	}

	rec, err := s.deps.Store.JobAudit(r.Context(), id)
	if err != nil {
		if ferrors.HasCategory(err, ferrors.CategoryNotFound) {
			s.Error(w, http.StatusNotFound, "job not found")
			return
		}
		s.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.Success(w, http.StatusOK, rec)
}
