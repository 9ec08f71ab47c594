package storage

import (
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"  // dialect registration

	"github.com/aanand-mishra/pessoa-api/internal/types"
)

// SQL dialects understood by NewPersonQueries.
const (
	DialectSQLite   = "sqlite3"
	DialectPostgres = "postgres"
)

// Table and column names of the persons table.
const (
	TablePersons   = "pessoas"
	ColID          = "id"
	ColName        = "nome"
	ColBirthDate   = "dt_nascimento"
	ColActive      = "ativo"
	aliasRowsCount = "total"

	// IndexActiveName serves the active listing.
	IndexActiveName = "idx_pessoas_ativo_nome"
	// CheckNameLength bounds ColName to MaxNameLength characters.
	CheckNameLength = "chk_pessoas_nome_length"
	MaxNameLength   = 100
)

// PersonQueries builds the prepared SQL statements for the persons table
// in one dialect. Every method returns the SQL text and its arguments.
type PersonQueries struct {
	dialect goqu.DialectWrapper
}

// NewPersonQueries returns the query builder for the given goqu dialect.
func NewPersonQueries(dialect string) PersonQueries {
	return PersonQueries{dialect: goqu.Dialect(dialect)}
}

func (q PersonQueries) personColumns() []any {
	return []any{ColID, ColName, ColBirthDate, ColActive}
}

// SelectActivePage selects one page of active persons by name; id breaks
// ties so pages never overlap.
func (q PersonQueries) SelectActivePage(page types.PageRequest) (string, []any, error) {
	return q.dialect.From(TablePersons).Prepared(true).
		Select(q.personColumns()...).
		Where(goqu.C(ColActive).IsTrue()).
		Order(goqu.I(ColName).Asc(), goqu.I(ColID).Asc()).
		Limit(uint(page.Size)).
		Offset(uint(page.Offset())).
		ToSQL()
}

// CountActive counts every active person.
func (q PersonQueries) CountActive() (string, []any, error) {
	return q.dialect.From(TablePersons).Prepared(true).
		Select(goqu.COUNT(goqu.Star()).As(aliasRowsCount)).
		Where(goqu.C(ColActive).IsTrue()).
		ToSQL()
}

// SelectByID selects a single person.
func (q PersonQueries) SelectByID(id int64) (string, []any, error) {
	return q.dialect.From(TablePersons).Prepared(true).
		Select(q.personColumns()...).
		Where(goqu.C(ColID).Eq(id)).
		Limit(1).
		ToSQL()
}

// Insert inserts p without its id. With returningID the statement also
// returns the generated id (PostgreSQL); otherwise the caller reads it
// from the driver result (SQLite).
func (q PersonQueries) Insert(p types.Person, returningID bool) (string, []any, error) {
	ds := q.dialect.Insert(TablePersons).Prepared(true).
		Rows(goqu.Record{
			ColName:      p.Name,
			ColBirthDate: p.BirthDate,
			ColActive:    p.Active,
		})

	if returningID {
		ds = ds.Returning(ColID)
	}

	return ds.ToSQL()
}

// Update replaces every column of the record with p.ID.
func (q PersonQueries) Update(p types.Person) (string, []any, error) {
	return q.dialect.Update(TablePersons).Prepared(true).
		Set(goqu.Record{
			ColName:      p.Name,
			ColBirthDate: p.BirthDate,
			ColActive:    p.Active,
		}).
		Where(goqu.C(ColID).Eq(p.ID)).
		ToSQL()
}

// Delete removes the record with the given id.
func (q PersonQueries) Delete(id int64) (string, []any, error) {
	return q.dialect.Delete(TablePersons).Prepared(true).
		Where(goqu.C(ColID).Eq(id)).
		ToSQL()
}

// FieldForConstraint maps a constraint or column name reported by the
// database ("chk_pessoas_nome_length", "pessoas.nome") to the name of the
// field it protects. Column names double as JSON field names.
func FieldForConstraint(name string) string {
	switch {
	case name == CheckNameLength:
		return ColName
	case strings.HasPrefix(name, TablePersons+"."):
		return strings.TrimPrefix(name, TablePersons+".")
	default:
		return name
	}
}
