package provider

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a provider failure by the operation family that
// produced it.
type ErrorKind string

const (
	KindInvalidPath ErrorKind = "invalid_path"
	KindMetadata    ErrorKind = "metadata"
	KindDownload    ErrorKind = "download"
	KindUpload      ErrorKind = "upload"
	KindDelete      ErrorKind = "delete"
	KindRevisions   ErrorKind = "revisions"
)

// Error is the typed failure every provider operation returns. Status
// carries the triggering HTTP status code, or 0 for transport-level and
// parse faults. Body preserves the backend's error payload when one was
// read.
type Error struct {
	Kind    ErrorKind
	Status  int
	Message string
	Body    string
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s error: %s (status %d)", e.Kind, e.Message, e.Status)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

// NewError builds a provider Error.
func NewError(kind ErrorKind, status int, message, body string) *Error {
	return &Error{Kind: kind, Status: status, Message: message, Body: body}
}

// IsKind reports whether err is (or wraps) a provider Error of the given
// kind.
func IsKind(err error, kind ErrorKind) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Kind == kind
}

// StatusOf returns the HTTP status carried by a provider Error, or 0 when
// err is not one or was a transport fault.
func StatusOf(err error) int {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Status
	}
	return 0
}
