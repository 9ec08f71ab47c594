// Package service holds the business rules of the application. Services
// sit between the HTTP handlers and storage: they validate input,
// orchestrate storage calls and log what happened.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aanand-mishra/pessoa-api/internal/apperror"
	"github.com/aanand-mishra/pessoa-api/internal/logctx"
	"github.com/aanand-mishra/pessoa-api/internal/storage"
	"github.com/aanand-mishra/pessoa-api/internal/types"
)

const (
	// PageSize is the fixed number of persons per listing page.
	PageSize = 10

	defaultSlowQueryThreshold = 500 * time.Millisecond

	resourcePerson = "Pessoa"
)

// PersonService implements the person use cases.
type PersonService struct {
	storage            storage.Storage
	log                *slog.Logger
	slowQueryThreshold time.Duration
	now                func() time.Time
}

// Option configures a PersonService.
type Option func(*PersonService)

// WithSlowQueryThreshold sets the listing duration above which a warning
// is logged.
func WithSlowQueryThreshold(d time.Duration) Option {
	return func(s *PersonService) {
		s.slowQueryThreshold = d
	}
}

// WithClock replaces time.Now for duration measurements.
func WithClock(now func() time.Time) Option {
	return func(s *PersonService) {
		s.now = now
	}
}

// NewPersonService returns a PersonService backed by store. A nil logger
// falls back to slog.Default().
func NewPersonService(store storage.Storage, log *slog.Logger, options ...Option) *PersonService {
	if log == nil {
		log = slog.Default()
	}

	s := &PersonService{
		storage:            store,
		log:                log,
		slowQueryThreshold: defaultSlowQueryThreshold,
		now:                time.Now,
	}

	for _, option := range options {
		option(s)
	}

	return s
}

// List returns one page of active persons sorted by name. Negative page
// numbers are treated as the first page.
func (s *PersonService) List(ctx context.Context, page int) (types.Page[types.Person], error) {
	ctx = logctx.With(ctx,
		slog.String(logctx.KeyOperation, "listPersons"),
		slog.Int("page", page),
	)

	s.log.InfoContext(ctx, "listing active persons")

	if page < 0 {
		s.log.WarnContext(ctx, "invalid page number, using first page")
		page = 0
	}

	start := s.now()
	result, err := s.storage.ListActivePersons(ctx, types.PageRequest{Number: page, Size: PageSize})
	duration := s.now().Sub(start)

	if err != nil {
		s.log.ErrorContext(ctx, "failed to list persons",
			slog.String("error", err.Error()),
			slog.Int64("query_duration_ms", duration.Milliseconds()))
		return types.Page[types.Person]{}, fmt.Errorf("list persons: %w", err)
	}

	ctx = logctx.With(ctx,
		slog.Int64("total_elements", result.TotalElements),
		slog.Int("total_pages", result.TotalPages),
		slog.Int64("query_duration_ms", duration.Milliseconds()),
	)

	s.log.InfoContext(ctx, "listing completed")

	if duration > s.slowQueryThreshold {
		s.log.WarnContext(ctx, "slow query detected while listing persons")
	}

	return result, nil
}

// Get returns the person with the given id.
func (s *PersonService) Get(ctx context.Context, id int64) (types.Person, error) {
	ctx = logctx.With(ctx,
		slog.String(logctx.KeyOperation, "getPerson"),
		slog.Int64("pessoa_id", id),
	)

	if id <= 0 {
		s.log.WarnContext(ctx, "invalid id")
		return types.Person{}, apperror.FieldValidation("id", id, "ID must be a positive number")
	}

	person, err := s.storage.GetPersonByID(ctx, id)
	if err != nil {
		return types.Person{}, s.storageError(ctx, err, id, "failed to get person")
	}

	return person, nil
}

// Create persists a new person and returns it with its assigned id.
func (s *PersonService) Create(ctx context.Context, p *types.Person) (types.Person, error) {
	ctx = logctx.With(ctx, slog.String(logctx.KeyOperation, "createPerson"))

	if p == nil {
		s.log.ErrorContext(ctx, "attempt to create a nil person")
		return types.Person{}, apperror.Validation("person must not be null")
	}

	if strings.TrimSpace(p.Name) == "" {
		s.log.ErrorContext(ctx, "attempt to create a person without a name")
		return types.Person{}, apperror.FieldValidation("nome", p.Name, "field nome must not be empty")
	}

	if !p.IsNew() {
		s.log.WarnContext(ctx, "attempt to create a person with an id already set", slog.Int64("pessoa_id", p.ID))
		return types.Person{}, apperror.FieldValidation("id", p.ID, "a new person must not have an ID")
	}

	s.log.InfoContext(ctx, "creating person", slog.String("nome", p.Name))

	start := s.now()
	created, err := s.storage.CreatePerson(ctx, *p)
	duration := s.now().Sub(start)
	if err != nil {
		s.log.ErrorContext(ctx, "failed to create person", slog.String("error", err.Error()))
		return types.Person{}, fmt.Errorf("create person: %w", err)
	}

	ctx = logctx.With(ctx,
		slog.Int64("pessoa_id", created.ID),
		slog.Int64("save_duration_ms", duration.Milliseconds()),
	)
	s.log.InfoContext(ctx, "person created", slog.String("nome", created.Name))

	return created, nil
}

// Update replaces every field of an existing person with the values in p.
func (s *PersonService) Update(ctx context.Context, p *types.Person) (types.Person, error) {
	ctx = logctx.With(ctx, slog.String(logctx.KeyOperation, "updatePerson"))

	if p == nil {
		s.log.ErrorContext(ctx, "attempt to update a nil person")
		return types.Person{}, apperror.Validation("person must not be null")
	}

	if p.IsNew() {
		s.log.ErrorContext(ctx, "attempt to update a person without an id")
		return types.Person{}, apperror.FieldValidation("id", p.ID, "person ID is required for an update")
	}

	ctx = logctx.With(ctx, slog.Int64("pessoa_id", p.ID))
	s.log.InfoContext(ctx, "updating person")

	existing, err := s.storage.GetPersonByID(ctx, p.ID)
	if err != nil {
		return types.Person{}, s.storageError(ctx, err, p.ID, "failed to load person for update")
	}

	start := s.now()
	updated, err := s.storage.UpdatePerson(ctx, *p)
	duration := s.now().Sub(start)
	if err != nil {
		return types.Person{}, s.storageError(ctx, err, p.ID, "failed to update person")
	}

	s.log.InfoContext(ctx, "person updated",
		slog.String("nome_anterior", existing.Name),
		slog.String("nome_novo", updated.Name),
		slog.Int64("save_duration_ms", duration.Milliseconds()))

	return updated, nil
}

// Delete removes the person with the given id.
func (s *PersonService) Delete(ctx context.Context, id int64) error {
	ctx = logctx.With(ctx,
		slog.String(logctx.KeyOperation, "deletePerson"),
		slog.Int64("pessoa_id", id),
	)

	s.log.InfoContext(ctx, "deleting person")

	if id <= 0 {
		s.log.WarnContext(ctx, "invalid id for deletion")
		return apperror.FieldValidation("id", id, "ID must be a positive number")
	}

	person, err := s.storage.GetPersonByID(ctx, id)
	if err != nil {
		return s.storageError(ctx, err, id, "failed to load person for deletion")
	}

	ctx = logctx.With(ctx, slog.String("nome", person.Name))

	if err := s.storage.DeletePersonByID(ctx, id); err != nil {
		return s.storageError(ctx, err, id, "failed to delete person")
	}

	s.log.InfoContext(ctx, "person deleted")

	return nil
}

// storageError turns storage.ErrNotFound into a not-found application
// error and logs anything else before wrapping it.
func (s *PersonService) storageError(ctx context.Context, err error, id int64, msg string) error {
	if errors.Is(err, storage.ErrNotFound) {
		s.log.WarnContext(ctx, "person not found")
		return apperror.NotFound(resourcePerson, id)
	}

	s.log.ErrorContext(ctx, msg, slog.String("error", err.Error()))
	return fmt.Errorf("%s: %w", msg, err)
}
