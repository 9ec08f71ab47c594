// Package routes wires the HTTP handlers into a router.
package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aanand-mishra/pessoa-api/internal/apperror"
	"github.com/aanand-mishra/pessoa-api/internal/http/handlers/person"
	"github.com/aanand-mishra/pessoa-api/internal/http/middleware"
	"github.com/aanand-mishra/pessoa-api/internal/utils/response"
	"github.com/aanand-mishra/pessoa-api/internal/validation"
)

// New returns the application's handler. Route table:
//
//	GET    /api?pagina=N   list active persons, 10 per page
//	GET    /api/listar     alias of GET /api
//	GET    /api/hoje       diagnostic endpoint
//	GET    /api/{id}       get one person
//	POST   /api            create a person
//	PUT    /api            update, id taken from the body
//	PUT    /api/{id}       update, id taken from the path
//	DELETE /api/{id}       delete a person
//
// Every route goes through the request logging middleware. Unknown paths
// and unsupported methods get the same JSON error body as any other
// failure instead of ServeMux's plain-text replies.
func New(svc person.Service, log *slog.Logger) http.Handler {
	v := validation.New()
	router := http.NewServeMux()

	router.HandleFunc("GET /api", person.GetList(svc))
	router.HandleFunc("GET /api/listar", person.GetList(svc))
	router.HandleFunc("GET /api/hoje", person.Today(time.Now))
	router.HandleFunc("GET /api/{id}", person.GetByID(svc))
	router.HandleFunc("POST /api", person.New(svc, v))
	router.HandleFunc("PUT /api", person.UpdateFromBody(svc, v))
	router.HandleFunc("PUT /api/{id}", person.Update(svc, v))
	router.HandleFunc("DELETE /api/{id}", person.Delete(svc))

	// Method-less patterns only catch what the method-specific ones above
	// did not match.
	router.HandleFunc("/api", methodNotAllowed("GET, POST, PUT"))
	router.HandleFunc("/api/{id}", methodNotAllowed("GET, PUT, DELETE"))
	router.HandleFunc("/", notFound)

	return middleware.RequestLogger(log)(router)
}

// methodNotAllowed answers 405 and advertises the supported methods.
func methodNotAllowed(allow string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Allow", allow)
		response.WriteError(w, r, apperror.MethodNotAllowed(r.Method, r.URL.Path))
	}
}

func notFound(w http.ResponseWriter, r *http.Request) {
	response.WriteError(w, r, apperror.NoRoute(r.Method, r.URL.Path))
}
