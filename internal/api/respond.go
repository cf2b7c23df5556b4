package api

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"

	"seo-offers/internal/common/errors"
	"seo-offers/internal/common/validation"
	"seo-offers/internal/submission"
	"seo-offers/internal/wizard"
)

const maxBodyBytes = 1 << 20

// ErrorResponse is the body of every non-2xx JSON answer.
type ErrorResponse struct {
	Error     string      `json:"error"`
	Code      string      `json:"code"`
	Details   interface{} `json:"details,omitempty"`
	ProjectID string      `json:"project_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON validates the body against schema before decoding into dst.
func decodeJSON(r *http.Request, schema validation.JSONSchema, dst interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return errors.NewValidationError("body", "could not read request body")
	}

	result, err := validation.ValidateJSON(body, schema)
	if err != nil {
		return errors.NewValidationError("body", err.Error())
	}
	if !result.Valid {
		first := result.Errors[0]
		se := errors.NewValidationError(first.Field, first.Message)
		se.Metadata["errors"] = result.Errors
		return se
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return errors.NewValidationError("body", err.Error())
	}
	return nil
}

// statusFor maps an error onto its HTTP status and response body.
func statusFor(err error) (int, ErrorResponse) {
	var partial *submission.PartialWriteError
	if stderrors.As(err, &partial) {
		return http.StatusBadGateway, ErrorResponse{
			Error:     "Project stored but offer could not be created",
			Code:      string(errors.ErrCodePartialWrite),
			Details:   partial.Cause.Error(),
			ProjectID: partial.ProjectID,
		}
	}

	var wizInvalid *wizard.ValidationError
	if stderrors.As(err, &wizInvalid) {
		return http.StatusBadRequest, ErrorResponse{
			Error:   wizInvalid.Message,
			Code:    string(errors.ErrCodeValidationFailed),
			Details: map[string]interface{}{"field": wizInvalid.Field, "step": wizInvalid.Step},
		}
	}

	var stepErr *wizard.StepError
	if stderrors.As(err, &stepErr) {
		return http.StatusBadRequest, ErrorResponse{
			Error: stepErr.Error(),
			Code:  string(errors.ErrCodeValidationFailed),
		}
	}

	if stderrors.Is(err, wizard.ErrSubmissionInFlight) {
		return http.StatusConflict, ErrorResponse{
			Error: "A submission is already in progress",
			Code:  string(errors.ErrCodeSubmissionInFlight),
		}
	}

	stdErr, ok := errors.AsStandard(err)
	if !ok {
		return http.StatusInternalServerError, ErrorResponse{
			Error: "Internal server error",
			Code:  string(errors.ErrCodeInternal),
		}
	}

	resp := ErrorResponse{Error: stdErr.Message, Code: string(stdErr.Code)}
	switch stdErr.Code {
	case errors.ErrCodeValidationFailed:
		if details, ok := stdErr.Metadata["errors"]; ok {
			resp.Details = details
		} else if field, ok := stdErr.Metadata["field"]; ok {
			resp.Details = map[string]interface{}{"field": field}
		}
		return http.StatusBadRequest, resp
	case errors.ErrCodeUnauthorized, errors.ErrCodeInvalidCredentials:
		return http.StatusUnauthorized, resp
	case errors.ErrCodeForbidden:
		return http.StatusForbidden, resp
	case errors.ErrCodeResourceNotFound, errors.ErrCodeSessionNotFound:
		return http.StatusNotFound, resp
	case errors.ErrCodeSubmissionInFlight, errors.ErrCodeUserExists:
		return http.StatusConflict, resp
	case errors.ErrCodeUpstreamFailed, errors.ErrCodeNotificationSendFailed,
		errors.ErrCodeCRMAPIError, errors.ErrCodeSearchQueryFailed:
		resp.Details = stdErr.Details
		return http.StatusBadGateway, resp
	case errors.ErrCodeIndexNotFound:
		return http.StatusServiceUnavailable, resp
	case errors.ErrCodeTimeout:
		return http.StatusGatewayTimeout, resp
	default:
		return http.StatusInternalServerError, resp
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := statusFor(err)
	fields := map[string]interface{}{
		"method": r.Method,
		"path":   r.URL.Path,
		"status": status,
		"code":   resp.Code,
		"error":  err.Error(),
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", fields)
	} else {
		s.logger.Debug("request rejected", fields)
	}
	writeJSON(w, status, resp)
}
