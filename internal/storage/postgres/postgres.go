// Package postgres provides a PostgreSQL implementation of the
// storage.Storage interface on top of a pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aanand-mishra/pessoa-api/internal/apperror"
	"github.com/aanand-mishra/pessoa-api/internal/storage"
	"github.com/aanand-mishra/pessoa-api/internal/types"
)

const (
	defaultMinConnections    = int32(1)
	defaultMaxConnLifetime   = time.Hour
	defaultMaxConnIdleTime   = time.Minute * 5
	defaultHealthCheckPeriod = time.Minute
	defaultConnectTimeout    = time.Second * 5

	// integrityConstraintClass is the SQLSTATE class of constraint violations.
	integrityConstraintClass = "23"
)

var schema = fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %[1]s (
		%[2]s BIGSERIAL PRIMARY KEY,
		%[3]s TEXT      NOT NULL CONSTRAINT %[6]s CHECK (char_length(%[3]s) <= %[7]d),
		%[4]s DATE,
		%[5]s BOOLEAN   NOT NULL DEFAULT FALSE
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

// Postgres is the PostgreSQL implementation of storage.Storage.
type Postgres struct {
	pool    *pgxpool.Pool
	queries storage.PersonQueries
}

// Config builds the pool configuration for dsn.
func Config(dsn string, maxConns int32) (*pgxpool.Config, error) {
	dbConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres.Config: parse dsn: %w", err)
	}

	dbConfig.MaxConns = maxConns
	dbConfig.MinConns = min(defaultMinConnections, maxConns)
	dbConfig.MaxConnLifetime = defaultMaxConnLifetime
	dbConfig.MaxConnIdleTime = defaultMaxConnIdleTime
	dbConfig.HealthCheckPeriod = defaultHealthCheckPeriod
	dbConfig.ConnConfig.ConnectTimeout = defaultConnectTimeout

	return dbConfig, nil
}

// New connects to PostgreSQL, creates the persons table if it does not
// already exist, and returns a ready-to-use *Postgres.
func New(ctx context.Context, dsn string, maxConns int32) (*Postgres, error) {
	dbConfig, err := Config(dsn, maxConns)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: connect: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.New: create table: %w", err)
	}

	return &Postgres{
		pool:    pool,
		queries: storage.NewPersonQueries(storage.DialectPostgres),
	}, nil
}

func (s *Postgres) ListActivePersons(ctx context.Context, page types.PageRequest) (types.Page[types.Person], error) {
	countSQL, countArgs, err := s.queries.CountActive()
	if err != nil {
		return types.Page[types.Person]{}, fmt.Errorf("ListActivePersons: build count: %w", err)
	}

	var total int64
	if err := s.pool.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return types.Page[types.Person]{}, fmt.Errorf("ListActivePersons: count: %w", err)
	}

	selectSQL, selectArgs, err := s.queries.SelectActivePage(page)
	if err != nil {
		return types.Page[types.Person]{}, fmt.Errorf("ListActivePersons: build select: %w", err)
	}

	rows, err := s.pool.Query(ctx, selectSQL, selectArgs...)
	if err != nil {
		return types.Page[types.Person]{}, fmt.Errorf("ListActivePersons: query: %w", err)
	}

	persons, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (types.Person, error) {
		return scanPerson(row)
	})
	if err != nil {
		return types.Page[types.Person]{}, fmt.Errorf("ListActivePersons: scan: %w", err)
	}

	return types.NewPage(persons, page, total), nil
}

func (s *Postgres) GetPersonByID(ctx context.Context, id int64) (types.Person, error) {
	query, args, err := s.queries.SelectByID(id)
	if err != nil {
		return types.Person{}, fmt.Errorf("GetPersonByID: build: %w", err)
	}

	person, err := scanPerson(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.Person{}, storage.ErrNotFound
		}
		return types.Person{}, fmt.Errorf("GetPersonByID: scan: %w", err)
	}

	return person, nil
}

func (s *Postgres) CreatePerson(ctx context.Context, p types.Person) (types.Person, error) {
	query, args, err := s.queries.Insert(p, true)
	if err != nil {
		return types.Person{}, fmt.Errorf("CreatePerson: build: %w", err)
	}

	var id int64
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return types.Person{}, fmt.Errorf("CreatePerson: insert: %w", translate(err))
	}

	return s.GetPersonByID(ctx, id)
}

func (s *Postgres) UpdatePerson(ctx context.Context, p types.Person) (types.Person, error) {
	query, args, err := s.queries.Update(p)
	if err != nil {
		return types.Person{}, fmt.Errorf("UpdatePerson: build: %w", err)
	}

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return types.Person{}, fmt.Errorf("UpdatePerson: exec: %w", translate(err))
	}
	if tag.RowsAffected() == 0 {
		return types.Person{}, storage.ErrNotFound
	}

	return s.GetPersonByID(ctx, p.ID)
}

func (s *Postgres) DeletePersonByID(ctx context.Context, id int64) error {
	query, args, err := s.queries.Delete(id)
	if err != nil {
		return fmt.Errorf("DeletePersonByID: build: %w", err)
	}

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("DeletePersonByID: exec: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func (s *Postgres) Close() error {
	s.pool.Close()
	return nil
}

func scanPerson(row pgx.Row) (types.Person, error) {
	var p types.Person
	err := row.Scan(&p.ID, &p.Name, &p.BirthDate, &p.Active)
	return p, err
}

// translate turns integrity constraint failures (SQLSTATE class 23) into
// client-facing constraint violations.
func translate(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || !strings.HasPrefix(pgErr.Code, integrityConstraintClass) {
		return err
	}

	name := pgErr.ConstraintName
	if pgErr.ColumnName != "" {
		name = pgErr.ColumnName
	}

	return apperror.ConstraintViolation(err, apperror.FieldError{
		Field:   storage.FieldForConstraint(name),
		Message: pgErr.Message,
	})
}

var _ storage.Storage = (*Postgres)(nil)
