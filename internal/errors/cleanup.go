// Package errors provides helpers for cleanup paths whose errors must not
// be lost.
package errors

import (
	"errors"
	"fmt"
	"io"
)

// CloseInto closes closer and joins a close error into *errp. Use this in
// defer statements for written files, where a failed close means lost data.
func CloseInto(errp *error, closer io.Closer, msg string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		*errp = errors.Join(*errp, fmt.Errorf("%s: %w", msg, err))
	}
}

// Must panics if error is not nil.
// Use only for initialization code where failure should halt the program.
func Must(err error, msg string) {
	if err != nil {
		panic(fmt.Sprintf("%s: %v", msg, err))
	}
}
