package api

import (
	"encoding/json"
	"io"
	"net/http"

	apperrors "greencrew/internal/common/errors"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Code    apperrors.ErrorCode    `json:"code"`
	Message string                 `json:"message"`
	Fields  []apperrors.FieldError `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// writeError maps err onto a response. Only user-facing codes carry their own
// message; everything else is logged and answered generically.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	stdErr := apperrors.Normalize(err)
	status := apperrors.HTTPStatus(stdErr.Code)
	resp := errorResponse{Code: stdErr.Code, Message: stdErr.Message}

	switch {
	case stdErr.Code == apperrors.ErrCodeValidation:
		resp.Fields = stdErr.Fields
	case stdErr.Code == apperrors.ErrCodeAuthentication:
		resp.Message = "Authentication required"
	case stdErr.Code == apperrors.ErrCodeAuthorization:
		resp.Message = "You do not have permission to perform this action"
	case !apperrors.IsUserFacing(stdErr.Code):
		resp.Code = apperrors.ErrCodeInternal
		resp.Message = "Internal server error"
	}

	fields := map[string]interface{}{
		"method": r.Method,
		"path":   r.URL.Path,
		"code":   string(stdErr.Code),
		"status": status,
	}
	if status >= http.StatusInternalServerError {
		s.log.WithError(err).Error("Request failed", fields)
	} else {
		s.log.WithError(err).Debug("Request rejected", fields)
	}
	writeJSON(w, status, resp)
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(r *http.Request, v interface{}) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return apperrors.NewValidationError("Unreadable request body")
	}
	return decodeBytes(data, v)
}

func decodeBytes(data []byte, v interface{}) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return apperrors.NewValidationError("Malformed request body",
			apperrors.FieldError{Field: "body", Message: err.Error()})
	}
	return nil
}
