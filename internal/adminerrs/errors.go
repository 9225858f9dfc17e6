package adminerrs

import (
	"errors"
	"fmt"
)

// Sentinel errors recoverable at the handler boundary. Anything not wrapped
// around one of these propagates as a 500 after transaction rollback.
var (
	ErrIncorrectLookupParams = errors.New("incorrect lookup parameters")
	ErrDisallowedLookup      = errors.New("disallowed lookup")
	ErrPermissionDenied      = errors.New("permission denied")
	ErrFieldDoesNotExist     = errors.New("field does not exist")
	ErrNotARelation          = errors.New("field is not a relation")
	ErrPageOutOfRange        = errors.New("page out of range")
)

// NotFoundError names the target type and the requested identifier.
type NotFoundError struct {
	Model string
	ID    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with id %q does not exist", e.Model, e.ID)
}

func NotFound(model, id string) *NotFoundError {
	return &NotFoundError{Model: model, ID: id}
}

// ValidationError aggregates field-level failures; it is never produced for
// the first failing field only.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %d field(s)", len(e.Fields))
}

func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string][]string{}
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: map[string][]string{}}
}

// InlineValidationError carries per-group errors for bulk inline operations.
// Group values are either a flat []string (group-level problems, e.g. an
// unknown inline name or a cross-parent id) or a []map[string][]string with
// one entry per submitted row.
type InlineValidationError struct {
	Groups map[string]any
}

func (e *InlineValidationError) Error() string {
	return fmt.Sprintf("inline validation failed for %d group(s)", len(e.Groups))
}

func (e *InlineValidationError) Empty() bool {
	return len(e.Groups) == 0
}

func NewInlineValidationError() *InlineValidationError {
	return &InlineValidationError{Groups: map[string]any{}}
}
