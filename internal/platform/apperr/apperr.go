// Package apperr defines the operational error taxonomy. Operational errors
// carry a user-facing message and HTTP status; anything else reaching the
// HTTP layer is treated as an internal failure.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type Kind string

const (
	InvalidOrderDay   Kind = "InvalidOrderDay"
	MenuItemNotFound  Kind = "MenuItemNotFound"
	DietIncompatible  Kind = "DietIncompatible"
	AllergenConflict  Kind = "AllergenConflict"
	NoDefaultMenu     Kind = "NoDefaultMenu"
	ReferenceNotFound Kind = "ReferenceNotFound"
	NotFound          Kind = "NotFound"
	Forbidden         Kind = "Forbidden"
	Unauthenticated   Kind = "Unauthenticated"
	Validation        Kind = "Validation"
	Conflict          Kind = "Conflict"
)

var statusByKind = map[Kind]int{
	InvalidOrderDay:   http.StatusBadRequest,
	MenuItemNotFound:  http.StatusNotFound,
	DietIncompatible:  http.StatusBadRequest,
	AllergenConflict:  http.StatusBadRequest,
	NoDefaultMenu:     http.StatusNotFound,
	ReferenceNotFound: http.StatusNotFound,
	NotFound:          http.StatusNotFound,
	Forbidden:         http.StatusForbidden,
	Unauthenticated:   http.StatusUnauthorized,
	Validation:        http.StatusBadRequest,
	Conflict:          http.StatusConflict,
}

// Status returns the HTTP status for a kind, 500 for unknown kinds.
func (k Kind) Status() int {
	if s, ok := statusByKind[k]; ok {
		return s
	}
	return http.StatusInternalServerError
}

type Error struct {
	Kind    Kind
	Message string
	// Items names the offending entities, e.g. every menu item that
	// conflicts with a patient's allergies.
	Items []string
	Err   error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Status() int { return e.Kind.Status() }

// Is matches another *Error of the same kind, so errors.Is(err, apperr.E(kind, ""))
// and the sentinel helpers below work through wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Message == ""
}

func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(err error, kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// E returns a bare kind sentinel for errors.Is.
func E(kind Kind) *Error { return &Error{Kind: kind} }

// As extracts the operational error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func IsKind(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}

func NotFoundf(format string, args ...interface{}) *Error {
	return New(NotFound, format, args...)
}

func Validationf(format string, args ...interface{}) *Error {
	return New(Validation, format, args...)
}

// Allergens builds the AllergenConflict error naming every offending item.
func Allergens(names []string) *Error {
	return &Error{
		Kind: AllergenConflict,
		Message: "This order was rejected because the following item(s) contain one or more allergen(s) " +
			"on the patient's list of known allergies: " + strings.Join(names, ", "),
		Items: names,
	}
}
