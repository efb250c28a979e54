package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Taxonomie des erreurs du service. Les handlers HTTP utilisent errors.Is
// sur ces sentinelles pour choisir le code de statut.

// ErrValidation is returned when the input is missing or malformed.
var ErrValidation = errors.New("validation failed")

// ErrUnauthorized is returned when no owner identity is attached to the request.
var ErrUnauthorized = errors.New("missing owner identity")

// ErrConflict is returned when a hash is already used by another link.
var ErrConflict = errors.New("hash already in use")

// ErrNotFound is returned when no link matches the owner and hash.
var ErrNotFound = errors.New("link not found")

// ErrInternal is returned for storage failures of unknown cause and for an
// exhausted hash generation budget.
var ErrInternal = errors.New("internal error")

// ValidationError décrit un champ invalide. Message est renvoyé tel quel au client.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e ValidationError) Unwrap() error {
	return ErrValidation
}

// InternalError garde la cause pour les logs ; elle n'est jamais exposée au client.
type InternalError struct {
	Op  string
	Err error
}

func (e InternalError) Error() string {
	if e.Err == nil {
		return e.Op + ": internal error"
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e InternalError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInternal}
	}
	return []error{ErrInternal, e.Err}
}

// Internal wraps err as an InternalError for operation op.
func Internal(op string, err error) error {
	return InternalError{Op: op, Err: err}
}

// HTTPStatus maps an error of the taxonomy to its HTTP status code.
// Anything unknown is a 500.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInternal):
		return http.StatusInternalServerError
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the body sent to the client for err.
func PublicMessage(err error) string {
	var verr ValidationError
	switch {
	case errors.Is(err, ErrInternal):
		return "Unknown error"
	case errors.As(err, &verr):
		return verr.Message
	case errors.Is(err, ErrUnauthorized):
		return ""
	case errors.Is(err, ErrConflict):
		return "Hash in use"
	case errors.Is(err, ErrNotFound):
		return "Not found"
	default:
		return "Unknown error"
	}
}
