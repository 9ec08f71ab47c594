// Package types holds the shared data structures (models) used across
// the application. Keeping them in one place prevents import cycles:
// handlers, service, storage and utils can all import types without
// depending on each other.
package types

// Person represents a "pessoa" record.
//
// Struct tags serve three purposes:
//
//  1. json:"..."     : wire name of the field (kept in Portuguese for
//     compatibility with existing API consumers).
//  2. db:"..."       : column name, used by sqlx when scanning rows.
//  3. validate:"..." : payload rules checked by go-playground/validator.
//     An empty nome is a business rule enforced by the service, so it
//     is not "required" here.
//
// ID is zero until the record has been persisted.
type Person struct {
	ID        int64  `json:"id"            db:"id"`
	Name      string `json:"nome"          db:"nome"          validate:"max=100"`
	BirthDate Date   `json:"dt_nascimento" db:"dt_nascimento" validate:"notfuture"`
	Active    bool   `json:"ativo"         db:"ativo"`
}

// IsNew reports whether the record has not been persisted yet.
func (p Person) IsNew() bool {
	return p.ID == 0
}
