package testutil

import (
	"debug/elf"
	"debug/macho"
	"debug/pe"
	"os"
	"reflect"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

// RequireDebugInfo returns the path of the running test binary, skipping
// the test when the binary was linked without DWARF, as go test does
// unless the binary is built with go test -c.
func RequireDebugInfo(t *testing.T) string {
	t.Helper()
	exe, err := os.Executable()
	require.NoError(t, err)
	if !hasDWARF(exe) {
		t.Skip("test binary was linked without debug information")
	}
	return exe
}

func hasDWARF(path string) bool {
	if f, err := elf.Open(path); err == nil {
		defer func() { _ = f.Close() }()
		return f.Section(".debug_info") != nil || f.Section(".zdebug_info") != nil
	}
	if f, err := macho.Open(path); err == nil {
		defer func() { _ = f.Close() }()
		return f.Section("__debug_info") != nil || f.Section("__zdebug_info") != nil
	}
	if f, err := pe.Open(path); err == nil {
		defer func() { _ = f.Close() }()
		return f.Section(".debug_info") != nil || f.Section(".zdebug_info") != nil
	}
	return false
}

// EntryLine returns the file and line the runtime reports for the entry
// address of fn.
func EntryLine(t *testing.T, fn any) (string, int) {
	t.Helper()
	f := runtime.FuncForPC(reflect.ValueOf(fn).Pointer())
	require.NotNil(t, f)
	return f.FileLine(f.Entry())
}
