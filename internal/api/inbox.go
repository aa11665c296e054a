package api

import (
	"net/http"
	"strconv"

	apperrors "greencrew/internal/common/errors"
	"greencrew/internal/models"
)

type messageRequest struct {
	Content string `json:"content"`
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	var req messageRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	msg, err := s.deps.Messages.Send(r.Context(), actor, r.PathValue("id"), req.Content)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	msgs, err := s.deps.Messages.List(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"messages": nonNil(msgs)})
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	query := r.URL.Query()
	unreadOnly := query.Get("unread") == "true"

	limit := 0
	if raw := query.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.writeError(w, r, apperrors.NewValidationError("Invalid query",
				apperrors.FieldError{Field: "limit", Message: "must be a positive integer"}))
			return
		}
		limit = n
	}

	notes, err := s.deps.Notifications.List(r.Context(), actor, unreadOnly, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"notifications": nonNil(notes)})
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	n, err := s.deps.Notifications.MarkRead(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (s *Server) handleMarkAllRead(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	count, err := s.deps.Notifications.MarkAllRead(r.Context(), actor)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"updated": count})
}
