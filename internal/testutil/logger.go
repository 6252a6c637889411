package testutil

import (
	"testing"

	"github.com/rs/zerolog"
)

// NewTestLogger returns a debug-level logger writing through t.Log, so the
// modules and functions a scan skipped show up next to a failing test.
func NewTestLogger(t *testing.T) zerolog.Logger {
	t.Helper()
	return zerolog.New(zerolog.NewTestWriter(t)).
		Level(zerolog.DebugLevel).
		With().
		Str("test", t.Name()).
		Logger()
}
