package model

import (
	"errors"
	"fmt"
)

// ValidationError reports a required field that is missing or blank.
// No request is made when it is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NotFoundError reports an id with no matching item in the collection.
type NotFoundError struct {
	Kind Kind
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// CategoryError reports a category value outside the enum of its kind.
type CategoryError struct {
	Kind  Kind
	Value string
}

func (e *CategoryError) Error() string {
	return fmt.Sprintf("unknown %s category %q", e.Kind, e.Value)
}

// KindError reports an unknown item kind.
type KindError struct {
	Value string
}

func (e *KindError) Error() string {
	return fmt.Sprintf("unknown item kind %q (want task or goal)", e.Value)
}

// MalformedDataError reports persisted data that could not be decoded.
// Callers recover by starting from an empty collection.
type MalformedDataError struct {
	Key string
	Err error
}

func (e *MalformedDataError) Error() string {
	return fmt.Sprintf("malformed local data under %q: %v", e.Key, e.Err)
}

func (e *MalformedDataError) Unwrap() error { return e.Err }

// IsValidation reports whether err (or any error in its chain) is a
// ValidationError or CategoryError.
func IsValidation(err error) bool {
	var v *ValidationError
	var c *CategoryError
	return errors.As(err, &v) || errors.As(err, &c)
}

// IsNotFound reports whether err (or any error in its chain) is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsMalformedData reports whether err (or any error in its chain) is a
// MalformedDataError.
func IsMalformedData(err error) bool {
	var md *MalformedDataError
	return errors.As(err, &md)
}
