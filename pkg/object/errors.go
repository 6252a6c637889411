package object

import (
	"errors"
)

// ErrUnsupportedObject is reported when the format detector does not
// recognize a buffer, or recognizes a format this package cannot handle.
var ErrUnsupportedObject = errors.New("unsupported object file format")

// ObjectError is the single error type returned by the object facade.
//
// Failures from the per-format parsers are wrapped so that callers never
// depend on a concrete parser error type: the message is kept and the
// causes of the inner error are reachable through Unwrap, but the inner
// error itself is not.
type ObjectError struct {
	unsupported bool
	inner       error
}

func unsupportedObject() *ObjectError {
	return &ObjectError{unsupported: true}
}

// wrapError wraps a per-format error. Nil stays nil, and errors that are
// already ObjectErrors are returned unchanged.
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	var oe *ObjectError
	if errors.As(err, &oe) {
		return oe
	}
	return &ObjectError{inner: err}
}

func (e *ObjectError) Error() string {
	if e.unsupported {
		return ErrUnsupportedObject.Error()
	}
	return e.inner.Error()
}

// Unwrap returns the causes of the wrapped error.
func (e *ObjectError) Unwrap() []error {
	if e.inner == nil {
		return nil
	}
	switch u := e.inner.(type) {
	case interface{ Unwrap() []error }:
		return u.Unwrap()
	case interface{ Unwrap() error }:
		if cause := u.Unwrap(); cause != nil {
			return []error{cause}
		}
	}
	return nil
}

// Is makes errors.Is(err, ErrUnsupportedObject) work for detector rejections.
func (e *ObjectError) Is(target error) bool {
	return e.unsupported && target == ErrUnsupportedObject
}

// IsUnsupported reports whether err is a detector rejection.
func IsUnsupported(err error) bool {
	return errors.Is(err, ErrUnsupportedObject)
}
