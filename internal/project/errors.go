package project

import (
	"errors"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/grc-cli/internal/store"
)

// ErrNotFound is returned when a project or checklist item does not exist.
var ErrNotFound = eris.New("project: not found")

// Kind enumerates validation failures.
type Kind string

const (
	KindUnknownUseCase  Kind = "unknown_use_case"
	KindMismatchedScope Kind = "mismatched_scope"
	KindUnknownPack     Kind = "unknown_pack"
	KindEmptyPatch      Kind = "empty_patch"
	KindBlankName       Kind = "blank_name"
	KindInvalidStatus   Kind = "invalid_status"
)

// ValidationError reports input that was rejected before anything was
// written.
type ValidationError struct {
	Kind    Kind              `json:"error"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func invalid(kind Kind, msg string, details map[string]string) *ValidationError {
	return &ValidationError{Kind: kind, Message: msg, Details: details}
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	_, ok := AsValidation(err)
	return ok
}

// AsValidation extracts the validation failure from err.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// notFound translates a store miss into ErrNotFound.
func notFound(err error, format string, args ...any) error {
	if errors.Is(err, store.ErrNotFound) {
		return eris.Wrapf(ErrNotFound, format, args...)
	}
	return eris.Wrapf(err, format, args...)
}
