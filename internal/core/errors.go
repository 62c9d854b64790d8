// Package core (this file) declares the handful of typed errors shared
// by the resource graph and the plan executor — the two places that
// reject a caller's input before any task is ever submitted. Both
// reject eagerly rather than deferring to a task failure, so both need
// an error a caller can match on with errors.As instead of parsing a
// message string.
package core

import "fmt"

// ErrNotFound reports a lookup by name that found nothing: an unknown
// resource name in the graph, no resource of a required kind, or no
// path to a named resource.
type ErrNotFound struct {
	Resource string
	Name     string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.Name)
}

// NewNotFoundError creates a not found error.
func NewNotFoundError(resource, name string) error {
	return &ErrNotFound{Resource: resource, Name: name}
}

// ErrInvalidArgument reports a caller-supplied value that fails a
// shape or consistency check, e.g. a PlaceholderGroup whose Vectors
// length doesn't match NQ*Dim, or a duplicate resource name passed to
// Graph.Add.
type ErrInvalidArgument struct {
	Field   string
	Message string
}

func (e *ErrInvalidArgument) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid argument for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("invalid argument: %s", e.Message)
}

func NewInvalidArgumentError(field, message string) error {
	return &ErrInvalidArgument{Field: field, Message: message}
}

// ErrResourceExhausted reports a resource that has no remaining
// capacity for the request, distinct from ErrNotFound: the resource
// exists, it's just full.
type ErrResourceExhausted struct {
	Resource string
	Message  string
}

func (e *ErrResourceExhausted) Error() string {
	return fmt.Sprintf("resource exhausted (%s): %s", e.Resource, e.Message)
}

func NewResourceExhaustedError(resource, message string) error {
	return &ErrResourceExhausted{Resource: resource, Message: message}
}

// ErrUnavailable reports a resource or component that exists but
// cannot currently serve a request. No component in this module
// returns it yet.
type ErrUnavailable struct {
	Operation string
	Reason    string
}

func (e *ErrUnavailable) Error() string {
	return fmt.Sprintf("service unavailable for %s: %s", e.Operation, e.Reason)
}

func NewUnavailableError(operation, reason string) error {
	return &ErrUnavailable{Operation: operation, Reason: reason}
}
