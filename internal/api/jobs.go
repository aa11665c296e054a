package api

import (
	"io"
	"net/http"

	apperrors "greencrew/internal/common/errors"
	"greencrew/internal/models"
)

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	var draft models.JobDraft
	if err := decode(r, &draft); err != nil {
		s.writeError(w, r, err)
		return
	}
	job, err := s.deps.Lifecycle.CreateJob(r.Context(), actor, draft)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request, _ models.Actor) {
	job, err := s.deps.Lifecycle.GetJob(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleUpdateJob(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	var patch models.JobPatch
	if err := decode(r, &patch); err != nil {
		s.writeError(w, r, err)
		return
	}
	job, err := s.deps.Lifecycle.UpdateJob(r.Context(), actor, r.PathValue("id"), patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	if err := s.deps.Lifecycle.DeleteJob(r.Context(), actor, r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	job, err := s.deps.Lifecycle.CancelJob(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleSearchJobs(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, r, apperrors.NewValidationError("Unreadable request body"))
		return
	}
	filter, err := s.deps.Search.ParseFilter(raw)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	result, err := s.deps.Search.Search(r.Context(), &actor, filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type progressRequest struct {
	Content   string           `json:"content"`
	Milestone models.Milestone `json:"milestone"`
}

func (s *Server) handleReportProgress(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	var req progressRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	update, err := s.deps.Lifecycle.ReportProgress(r.Context(), actor, r.PathValue("id"), req.Content, req.Milestone)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, update)
}

func (s *Server) handleListProgress(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	updates, err := s.deps.Lifecycle.ListProgress(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"progress": nonNil(updates)})
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
