package audit

import (
	"errors"
	"fmt"
)

var (
	// ErrShapeMismatch means the actor, target, extra or state of an entry is
	// not what the handler for its action expects. The entry is skipped.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrNotImplemented is returned by stub handlers. It is permanent for the action.
	ErrNotImplemented = errors.New("handler not implemented")

	// ErrDeliveryFailed means a notification could not be sent to a destination.
	ErrDeliveryFailed = errors.New("delivery failed")

	// ErrPersistence means a handler side effect could not be written.
	ErrPersistence = errors.New("persistence failure")

	// ErrDuplicateHandler is returned when two handlers claim the same action.
	ErrDuplicateHandler = errors.New("duplicate handler")
)

// ShapeError describes which part of an entry failed validation.
type ShapeError struct {
	Action Action
	Field  string // "actor", "target", "extra", "before", "after"
	Want   string
	Got    string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: %s is %s, want %s", e.Action, e.Field, e.Got, e.Want)
}

func (e *ShapeError) Unwrap() error { return ErrShapeMismatch }

func shapeErr(a Action, field, want string, got any) error {
	return &ShapeError{Action: a, Field: field, Want: want, Got: describe(got)}
}

func describe(v any) string {
	if v == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", v)
}
