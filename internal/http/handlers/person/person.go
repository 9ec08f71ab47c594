// Package person contains the HTTP handlers for the Pessoa resource.
//
// Handlers follow the closure/factory pattern: each exported function
// receives its dependencies once, at route registration, and returns the
// http.HandlerFunc that runs on every request.
//
//	router.HandleFunc("POST /api", person.New(svc, v))
//
// Handlers only bind and validate input and pick the success status.
// Every failure is handed to response.WriteError, which owns the mapping
// from error kind to status code.
package person

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/aanand-mishra/pessoa-api/internal/apperror"
	"github.com/aanand-mishra/pessoa-api/internal/types"
	"github.com/aanand-mishra/pessoa-api/internal/utils/response"
)

const (
	paramPage = "pagina"
	paramID   = "id"
)

// Service is the subset of the person service the handlers need.
type Service interface {
	List(ctx context.Context, page int) (types.Page[types.Person], error)
	Get(ctx context.Context, id int64) (types.Person, error)
	Create(ctx context.Context, p *types.Person) (types.Person, error)
	Update(ctx context.Context, p *types.Person) (types.Person, error)
	Delete(ctx context.Context, id int64) error
}

// Validator checks a decoded payload against its validate:"..." tags.
type Validator interface {
	Struct(s any) error
}

// GetList handles GET /api?pagina=N
// Returns one page of active persons sorted by name. pagina defaults to 0.
//
// Success response (200 OK):
//
//	{ "content": [ { "id": 1, "nome": "Ana", ... } ], "totalElements": 1, ... }
func GetList(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := 0
		if raw := r.URL.Query().Get(paramPage); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				response.WriteError(w, r, apperror.TypeMismatch(paramPage, raw, "int", err))
				return
			}
			page = parsed
		}

		result, err := svc.List(r.Context(), page)
		if err != nil {
			response.WriteError(w, r, err)
			return
		}

		_ = response.WriteJSON(w, http.StatusOK, result)
	}
}

// GetByID handles GET /api/{id}
func GetByID(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			response.WriteError(w, r, err)
			return
		}

		person, err := svc.Get(r.Context(), id)
		if err != nil {
			response.WriteError(w, r, err)
			return
		}

		_ = response.WriteJSON(w, http.StatusOK, person)
	}
}

// New handles POST /api
// Creates a person from the JSON body; the id must be absent.
//
// Request body (JSON):
//
//	{ "nome": "Ana", "dt_nascimento": "05/03/1990", "ativo": true }
//
// Success response (201 Created): the stored person, id included.
func New(svc Service, v Validator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var person types.Person
		if err := bind(r, v, &person); err != nil {
			response.WriteError(w, r, err)
			return
		}

		created, err := svc.Create(r.Context(), &person)
		if err != nil {
			response.WriteError(w, r, err)
			return
		}

		_ = response.WriteJSON(w, http.StatusCreated, created)
	}
}

// Update handles PUT /api/{id}
// Replaces every field of an existing person. An id in the body, if
// present, must match the one in the path.
func Update(svc Service, v Validator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			response.WriteError(w, r, err)
			return
		}

		var person types.Person
		if err := bind(r, v, &person); err != nil {
			response.WriteError(w, r, err)
			return
		}

		if !person.IsNew() && person.ID != id {
			response.WriteError(w, r, apperror.IllegalArgument(
				"path id "+strconv.FormatInt(id, 10)+" does not match body id "+strconv.FormatInt(person.ID, 10)))
			return
		}
		person.ID = id

		updated, err := svc.Update(r.Context(), &person)
		if err != nil {
			response.WriteError(w, r, err)
			return
		}

		_ = response.WriteJSON(w, http.StatusOK, updated)
	}
}

// UpdateFromBody handles PUT /api
// Same as Update, but the id is taken from the body.
func UpdateFromBody(svc Service, v Validator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var person types.Person
		if err := bind(r, v, &person); err != nil {
			response.WriteError(w, r, err)
			return
		}

		updated, err := svc.Update(r.Context(), &person)
		if err != nil {
			response.WriteError(w, r, err)
			return
		}

		_ = response.WriteJSON(w, http.StatusOK, updated)
	}
}

// Delete handles DELETE /api/{id}
// Permanently removes a person. Success is 204 No Content.
func Delete(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			response.WriteError(w, r, err)
			return
		}

		if err := svc.Delete(r.Context(), id); err != nil {
			response.WriteError(w, r, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// Today handles GET /api/hoje, a diagnostic endpoint that exercises every
// log level and reports the server's date.
func Today(now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		slog.InfoContext(ctx, "diagnostic endpoint called")
		slog.DebugContext(ctx, "executing diagnostic logic")
		slog.WarnContext(ctx, "sample warning from the diagnostic endpoint")

		_ = response.WriteJSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"message": "diagnostic successful, check the server logs for details",
			"hoje":    types.DateOf(now()).String(),
		})
	}
}

// pathID parses the {id} path segment.
func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue(paramID)

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperror.TypeMismatch(paramID, raw, "int64", err)
	}

	return id, nil
}

// bind decodes the JSON body into dst and validates it.
func bind(r *http.Request, v Validator, dst *types.Person) error {
	if err := response.DecodeJSON(r, dst); err != nil {
		return err
	}
	return v.Struct(dst)
}
