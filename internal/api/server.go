// Package api exposes the marketplace over HTTP. Handlers only decode
// requests, resolve the caller and map engine results onto responses.
package api

import (
	"context"
	"net/http"

	"greencrew/internal/common/auth"
	"greencrew/internal/common/logger"
	"greencrew/internal/lifecycle"
	"greencrew/internal/messaging"
	"greencrew/internal/notify"
	"greencrew/internal/search"
	"greencrew/internal/store"
)

// Identifier resolves a bearer token to an identity.
type Identifier interface {
	Identify(ctx context.Context, token string) (*auth.Identity, error)
}

type Deps struct {
	Lifecycle     *lifecycle.Engine
	Search        *search.Engine
	Messages      *messaging.Service
	Notifications *notify.Service
	Identity      Identifier
	Profiles      store.ProfileStore
}

type Server struct {
	deps Deps
	log  logger.Logger
	mux  *http.ServeMux
}

func New(deps Deps, log logger.Logger) *Server {
	s := &Server{
		deps: deps,
		log:  log.WithFields(map[string]interface{}{"component": "api"}),
		mux:  http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /health", handleHealth)

	s.handle("POST /api/jobs", s.handleCreateJob)
	s.handle("POST /api/jobs/search", s.handleSearchJobs)
	s.handle("GET /api/jobs/{id}", s.handleGetJob)
	s.handle("PATCH /api/jobs/{id}", s.handleUpdateJob)
	s.handle("DELETE /api/jobs/{id}", s.handleDeleteJob)
	s.handle("POST /api/jobs/{id}/cancel", s.handleCancelJob)
	s.handle("POST /api/jobs/{id}/applications", s.handleSubmitApplication)
	s.handle("GET /api/jobs/{id}/applications", s.handleListJobApplications)
	s.handle("POST /api/jobs/{id}/progress", s.handleReportProgress)
	s.handle("GET /api/jobs/{id}/progress", s.handleListProgress)

	s.handle("GET /api/applications", s.handleListMyApplications)
	s.handle("DELETE /api/applications/{id}", s.handleWithdraw)
	s.handle("POST /api/applications/{id}/decision", s.handleCourseDecision)
	s.handle("POST /api/applications/{id}/confirmation", s.handleProfessionalConfirmation)

	s.handle("GET /api/conversations/{id}/messages", s.handleListMessages)
	s.handle("POST /api/conversations/{id}/messages", s.handleSendMessage)

	s.handle("GET /api/notifications", s.handleListNotifications)
	s.handle("POST /api/notifications/read-all", s.handleMarkAllRead)
	s.handle("POST /api/notifications/{id}/read", s.handleMarkRead)
}

// handle registers an authenticated, instrumented route.
func (s *Server) handle(pattern string, h actorHandler) {
	s.mux.Handle(pattern, s.instrument(pattern, s.authenticate(h)))
}

func (s *Server) Handler() http.Handler {
	return s.mux
}
