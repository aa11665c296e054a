package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	apperrors "greencrew/internal/common/errors"
	"greencrew/internal/common/metrics"
	"greencrew/internal/models"
)

type actorHandler func(w http.ResponseWriter, r *http.Request, actor models.Actor)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) instrument(pattern string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		metrics.HTTPRequests.WithLabelValues(pattern, strconv.Itoa(rec.status)).Inc()
		s.log.Debug("Request served", map[string]interface{}{
			"route":    pattern,
			"status":   rec.status,
			"duration": time.Since(start).String(),
		})
	})
}

// authenticate resolves the bearer token to an Actor. The role comes from the
// caller's profile; a caller without a profile gets no role.
func (s *Server) authenticate(next actorHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			s.writeError(w, r, apperrors.NewAuthenticationError("missing bearer token"))
			return
		}

		identity, err := s.deps.Identity.Identify(r.Context(), token)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		actor := models.Actor{UserID: identity.ID, Email: identity.Email}
		if s.deps.Profiles != nil {
			profile, err := s.deps.Profiles.GetProfile(r.Context(), identity.ID)
			switch {
			case err == nil:
				actor.Role = profile.Role
			case !apperrors.IsCode(err, apperrors.ErrCodeNotFound):
				s.writeError(w, r, err)
				return
			}
		}

		next(w, r, actor)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
