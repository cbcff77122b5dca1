package agent

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyBatch     = errors.New("batch has no actions")
	ErrMalformedBatch = errors.New("batch must be a JSON array of action objects or {\"actions\": [...]}")
)

// InvalidActionError reports a descriptor that cannot be dispatched. It is
// always raised before any remote call.
type InvalidActionError struct {
	Kind   string
	Reason string
}

func (e *InvalidActionError) Error() string {
	if e.Kind == "" {
		return "invalid action: " + e.Reason
	}
	return fmt.Sprintf("invalid %s action: %s", e.Kind, e.Reason)
}

// NotFoundError reports a referenced entity that could not be resolved.
type NotFoundError struct {
	Entity string
	Name   string
	Scope  string
}

func (e *NotFoundError) Error() string {
	switch {
	case e.Name == "":
		return e.Entity + " not found"
	case e.Scope == "":
		return fmt.Sprintf("%s %q not found", e.Entity, e.Name)
	default:
		return fmt.Sprintf("%s %q not found in %s", e.Entity, e.Name, e.Scope)
	}
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsInvalidAction(err error) bool {
	var inv *InvalidActionError
	return errors.As(err, &inv)
}
