// Package storage defines the Storage interface, the contract any
// database backend must satisfy to work with this application, plus the
// SQL shared by the backends.
//
// The service layer depends only on this interface, so switching from
// SQLite to PostgreSQL is a configuration change, and service tests can
// pass a fake that keeps records in a map.
package storage

import (
	"context"
	"errors"

	"github.com/aanand-mishra/pessoa-api/internal/types"
)

// ErrNotFound is returned when no record matches the requested id.
var ErrNotFound = errors.New("storage: record not found")

// Storage is the database contract.
type Storage interface {
	// ListActivePersons returns one page of active persons ordered by
	// name ascending, together with paging totals.
	ListActivePersons(ctx context.Context, page types.PageRequest) (types.Page[types.Person], error)

	// GetPersonByID fetches a single person by primary key.
	// Returns ErrNotFound if there is no such record.
	GetPersonByID(ctx context.Context, id int64) (types.Person, error)

	// CreatePerson inserts p and returns it with its generated id.
	CreatePerson(ctx context.Context, p types.Person) (types.Person, error)

	// UpdatePerson replaces every field of the record with p.ID and
	// returns the stored record. Returns ErrNotFound if there is no such
	// record.
	UpdatePerson(ctx context.Context, p types.Person) (types.Person, error)

	// DeletePersonByID removes a record permanently.
	// Returns ErrNotFound if there is no such record.
	DeletePersonByID(ctx context.Context, id int64) error

	// Close releases the underlying connection pool.
	Close() error
}
