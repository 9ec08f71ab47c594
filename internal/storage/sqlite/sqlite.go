// Package sqlite provides a SQLite-backed implementation of the
// storage.Storage interface, using sqlx on top of the mattn/go-sqlite3
// driver and goqu-built statements.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"github.com/aanand-mishra/pessoa-api/internal/apperror"
	"github.com/aanand-mishra/pessoa-api/internal/storage"
	"github.com/aanand-mishra/pessoa-api/internal/types"
)

const busyTimeoutMS = 5000

// schema is idempotent and runs on every start-up.
var schema = fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %[1]s (
		%[2]s INTEGER PRIMARY KEY AUTOINCREMENT,
		%[3]s TEXT    NOT NULL CONSTRAINT %[6]s CHECK (length(%[3]s) <= %[7]d),
		%[4]s DATE,
		%[5]s BOOLEAN NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS %[8]s ON %[1]s (%[5]s, %[3]s);
`,
	storage.TablePersons,
	storage.ColID,
	storage.ColName,
	storage.ColBirthDate,
	storage.ColActive,
	storage.CheckNameLength,
	storage.MaxNameLength,
	storage.IndexActiveName,
)

// SQLite is the concrete implementation of storage.Storage.
// *sqlx.DB is a connection pool and safe for concurrent use.
type SQLite struct {
	Db      *sqlx.DB
	queries storage.PersonQueries
}

// New opens the SQLite database at path, creates the persons table if it
// does not already exist, and returns a ready-to-use *SQLite.
//
// Unless the path already carries driver options, writers wait up to
// busyTimeoutMS for a locked database instead of failing immediately.
func New(path string) (*SQLite, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn = fmt.Sprintf("%s?_busy_timeout=%d", dsn, busyTimeoutMS)
	}

	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite.New: open db: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite.New: create table: %w", err)
	}

	return &SQLite{
		Db:      db,
		queries: storage.NewPersonQueries(storage.DialectSQLite),
	}, nil
}

func (s *SQLite) ListActivePersons(ctx context.Context, page types.PageRequest) (types.Page[types.Person], error) {
	countSQL, countArgs, err := s.queries.CountActive()
	if err != nil {
		return types.Page[types.Person]{}, fmt.Errorf("ListActivePersons: build count: %w", err)
	}

	var total int64
	if err := s.Db.GetContext(ctx, &total, countSQL, countArgs...); err != nil {
		return types.Page[types.Person]{}, fmt.Errorf("ListActivePersons: count: %w", err)
	}

	selectSQL, selectArgs, err := s.queries.SelectActivePage(page)
	if err != nil {
		return types.Page[types.Person]{}, fmt.Errorf("ListActivePersons: build select: %w", err)
	}

	persons := make([]types.Person, 0, page.Size)
	if err := s.Db.SelectContext(ctx, &persons, selectSQL, selectArgs...); err != nil {
		return types.Page[types.Person]{}, fmt.Errorf("ListActivePersons: select: %w", err)
	}

	return types.NewPage(persons, page, total), nil
}

func (s *SQLite) GetPersonByID(ctx context.Context, id int64) (types.Person, error) {
	query, args, err := s.queries.SelectByID(id)
	if err != nil {
		return types.Person{}, fmt.Errorf("GetPersonByID: build: %w", err)
	}

	var person types.Person
	if err := s.Db.GetContext(ctx, &person, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Person{}, storage.ErrNotFound
		}
		return types.Person{}, fmt.Errorf("GetPersonByID: scan: %w", err)
	}

	return person, nil
}

func (s *SQLite) CreatePerson(ctx context.Context, p types.Person) (types.Person, error) {
	query, args, err := s.queries.Insert(p, false)
	if err != nil {
		return types.Person{}, fmt.Errorf("CreatePerson: build: %w", err)
	}

	result, err := s.Db.ExecContext(ctx, query, args...)
	if err != nil {
		return types.Person{}, fmt.Errorf("CreatePerson: exec: %w", translate(err))
	}

	lastID, err := result.LastInsertId()
	if err != nil {
		return types.Person{}, fmt.Errorf("CreatePerson: last insert id: %w", err)
	}

	// Re-fetch the record so we return exactly what is stored in the DB.
	return s.GetPersonByID(ctx, lastID)
}

func (s *SQLite) UpdatePerson(ctx context.Context, p types.Person) (types.Person, error) {
	query, args, err := s.queries.Update(p)
	if err != nil {
		return types.Person{}, fmt.Errorf("UpdatePerson: build: %w", err)
	}

	result, err := s.Db.ExecContext(ctx, query, args...)
	if err != nil {
		return types.Person{}, fmt.Errorf("UpdatePerson: exec: %w", translate(err))
	}

	if err := requireAffected(result); err != nil {
		return types.Person{}, err
	}

	return s.GetPersonByID(ctx, p.ID)
}

func (s *SQLite) DeletePersonByID(ctx context.Context, id int64) error {
	query, args, err := s.queries.Delete(id)
	if err != nil {
		return fmt.Errorf("DeletePersonByID: build: %w", err)
	}

	result, err := s.Db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("DeletePersonByID: exec: %w", err)
	}

	return requireAffected(result)
}

func (s *SQLite) Close() error {
	return s.Db.Close()
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// translate turns SQLite constraint failures into client-facing
// constraint violations. Messages look like
// "CHECK constraint failed: chk_pessoas_nome_length" or
// "NOT NULL constraint failed: pessoas.nome".
func translate(err error) error {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) || sqliteErr.Code != sqlite3.ErrConstraint {
		return err
	}

	msg := sqliteErr.Error()
	name := msg
	if i := strings.LastIndex(msg, ": "); i >= 0 {
		name = msg[i+2:]
	}

	return apperror.ConstraintViolation(err, apperror.FieldError{
		Field:   storage.FieldForConstraint(name),
		Message: msg,
	})
}

var _ storage.Storage = (*SQLite)(nil)
