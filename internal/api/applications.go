package api

import (
	"net/http"

	"greencrew/internal/models"
)

type applicationRequest struct {
	Message      string  `json:"message"`
	ProposedRate float64 `json:"proposedRate"`
}

func (s *Server) handleSubmitApplication(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	var req applicationRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	app, err := s.deps.Lifecycle.SubmitApplication(r.Context(), actor, r.PathValue("id"), req.Message, req.ProposedRate)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, app)
}

func (s *Server) handleListJobApplications(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	apps, err := s.deps.Lifecycle.ListApplicationsForJob(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"applications": nonNil(apps)})
}

func (s *Server) handleListMyApplications(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	apps, err := s.deps.Lifecycle.ListMyApplications(r.Context(), actor)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"applications": nonNil(apps)})
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	app, err := s.deps.Lifecycle.Withdraw(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

type courseDecisionRequest struct {
	Decision models.CourseDecision `json:"decision"`
}

func (s *Server) handleCourseDecision(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	var req courseDecisionRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	app, err := s.deps.Lifecycle.CourseDecide(r.Context(), actor, r.PathValue("id"), req.Decision)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

type confirmationRequest struct {
	Decision models.ProfessionalDecision `json:"decision"`
}

func (s *Server) handleProfessionalConfirmation(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	var req confirmationRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	result, err := s.deps.Lifecycle.ProfessionalConfirm(r.Context(), actor, r.PathValue("id"), req.Decision)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
