// Package response provides helpers for writing consistent JSON HTTP
// responses, including the single place where application errors are
// turned into HTTP status codes.
//
// Error responses always look like:
//
//	{
//	  "status": 404,
//	  "error_title": "Not Found",
//	  "message": "Pessoa not found with ID: 1",
//	  "path": "/api/1",
//	  "request_id": "3f0c…",
//	  "field_errors": []
//	}
package response

import (
	"log/slog"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"github.com/aanand-mishra/pessoa-api/internal/apperror"
	"github.com/aanand-mishra/pessoa-api/internal/logctx"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// internalErrorMessage is the only detail a client sees for a 500.
const internalErrorMessage = "an internal server error occurred, please try again later"

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Status      int                   `json:"status"`
	ErrorTitle  string                `json:"error_title"`
	Message     string                `json:"message"`
	Path        string                `json:"path"`
	RequestID   string                `json:"request_id"`
	FieldErrors []apperror.FieldError `json:"field_errors"`
}

// WriteJSON writes a JSON-encoded response with the given HTTP status code.
//
// IMPORTANT ORDER: Header() → WriteHeader() → body writes.
// Once WriteHeader is called (or the first Write), headers are locked.
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	return json.NewEncoder(w).Encode(data)
}

// DecodeJSON decodes the request body into v. Any failure, including an
// empty body, is reported as apperror.KindMalformedBody.
func DecodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperror.MalformedBody(err)
	}
	return nil
}

// WriteError maps err to its status code and writes the uniform error
// body. Internal errors are logged with full detail and reported to the
// client with a generic message only.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	body := NewErrorResponse(r, err)

	ctx := logctx.With(r.Context(), slog.String(logctx.KeyErrorType, apperror.KindOf(err).String()))
	if body.Status >= http.StatusInternalServerError {
		slog.ErrorContext(ctx, "unhandled internal error", slog.String("error", err.Error()))
	} else {
		slog.WarnContext(ctx, "request failed",
			slog.Int("status", body.Status),
			slog.String("error", err.Error()),
			slog.Int("field_error_count", len(body.FieldErrors)))
	}

	if writeErr := WriteJSON(w, body.Status, body); writeErr != nil {
		slog.ErrorContext(ctx, "failed to write error response", slog.String("error", writeErr.Error()))
	}
}

// NewErrorResponse builds the error body for err without writing it.
func NewErrorResponse(r *http.Request, err error) ErrorResponse {
	body := ErrorResponse{
		Path:        r.URL.Path,
		RequestID:   logctx.RequestID(r.Context()),
		FieldErrors: make([]apperror.FieldError, 0),
	}

	appErr, ok := apperror.As(err)
	if !ok {
		body.Status = http.StatusInternalServerError
		body.ErrorTitle = "Internal Server Error"
		body.Message = internalErrorMessage
		return body
	}

	body.Message = appErr.Message

	switch appErr.Kind {
	case apperror.KindNotFound:
		body.Status = http.StatusNotFound
		body.ErrorTitle = "Not Found"
	case apperror.KindValidation:
		body.Status = http.StatusBadRequest
		body.ErrorTitle = "Validation Error"
		if appErr.Field != "" {
			body.FieldErrors = append(body.FieldErrors, apperror.FieldError{
				Field:         appErr.Field,
				RejectedValue: appErr.RejectedValue,
				Message:       appErr.Message,
			})
		}
	case apperror.KindBeanValidation:
		body.Status = http.StatusBadRequest
		body.ErrorTitle = "Validation Error"
		body.FieldErrors = append(body.FieldErrors, appErr.FieldErrors...)
	case apperror.KindConstraintViolation:
		body.Status = http.StatusBadRequest
		body.ErrorTitle = "Constraint Violation"
		body.FieldErrors = append(body.FieldErrors, appErr.FieldErrors...)
	case apperror.KindIllegalArgument:
		body.Status = http.StatusBadRequest
		body.ErrorTitle = "Bad Request"
	case apperror.KindTypeMismatch:
		body.Status = http.StatusBadRequest
		body.ErrorTitle = "Type Mismatch"
	case apperror.KindMalformedBody:
		body.Status = http.StatusBadRequest
		body.ErrorTitle = "Malformed JSON"
	case apperror.KindMethodNotAllowed:
		body.Status = http.StatusMethodNotAllowed
		body.ErrorTitle = "Method Not Allowed"
	default:
		body.Status = http.StatusInternalServerError
		body.ErrorTitle = "Internal Server Error"
		body.Message = internalErrorMessage
	}

	return body
}
