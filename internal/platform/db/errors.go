package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nutritrack/dietary/internal/platform/apperr"
)

// PostgreSQL error codes the repositories translate.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
)

func pgCode(err error) (string, string) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName
	}
	return "", ""
}

// IsUniqueViolation reports whether err is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	code, _ := pgCode(err)
	return code == codeUniqueViolation
}

// IsForeignKeyViolation reports whether err is a foreign key violation.
func IsForeignKeyViolation(err error) bool {
	code, _ := pgCode(err)
	return code == codeForeignKeyViolation
}

func IsCheckViolation(err error) bool {
	code, _ := pgCode(err)
	return code == codeCheckViolation
}

// ConstraintName returns the violated constraint, if err carries one.
func ConstraintName(err error) string {
	_, name := pgCode(err)
	return name
}

func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// MapError translates store errors into operational errors. notFound is
// the message used when no row matched.
func MapError(err error, notFound string) error {
	switch {
	case err == nil:
		return nil
	case IsNoRows(err):
		return apperr.Wrap(err, apperr.NotFound, "%s", notFound)
	case IsUniqueViolation(err):
		return apperr.Wrap(err, apperr.Conflict, "Duplicate value: %s already exists", constraintSubject(ConstraintName(err)))
	case IsForeignKeyViolation(err):
		return apperr.Wrap(err, apperr.ReferenceNotFound, "A referenced record does not exist")
	case IsCheckViolation(err):
		return apperr.Wrap(err, apperr.Validation, "Invalid value rejected by constraint %s", ConstraintName(err))
	}
	return err
}

// MapDeleteError is MapError for deletes, where a foreign key violation
// means the row is still referenced.
func MapDeleteError(err error, notFound, entity string) error {
	if IsForeignKeyViolation(err) {
		return apperr.Wrap(err, apperr.Conflict, "This %s is still in use and cannot be deleted", entity)
	}
	return MapError(err, notFound)
}

// constraintSubject turns "patient_order_patient_id_day_meal_period_key"
// into something readable for the conflict message.
func constraintSubject(name string) string {
	if name == "" {
		return "a record with these values"
	}
	return strings.TrimSuffix(strings.TrimSuffix(name, "_key"), "_pkey")
}
