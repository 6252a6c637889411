// Package modules lists the binaries loaded into the current process and
// locates their separate debug files.
package modules

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/coral-mesh/declsite/internal/safe"
	"github.com/coral-mesh/declsite/pkg/object"
)

// Descriptor names one loaded module. An empty Path stands for the main
// executable. DebugPath, when set, points at a separate file holding the
// module's debug information.
type Descriptor struct {
	Path      string
	DebugPath string
}

// Enumerator produces a snapshot of loaded modules. Implementations only
// copy names out of the platform's module list; they do not open files.
type Enumerator interface {
	Modules() ([]Descriptor, error)
}

// EnumeratorFunc adapts a function to the Enumerator interface.
type EnumeratorFunc func() ([]Descriptor, error)

// Modules calls f.
func (f EnumeratorFunc) Modules() ([]Descriptor, error) { return f() }

type liveEnumerator struct{}

// Live returns the enumerator for the current process on this platform.
// The main executable is always the first descriptor.
func Live() Enumerator { return liveEnumerator{} }

func (liveEnumerator) Modules() ([]Descriptor, error) {
	return loadedModules()
}

type staticEnumerator []string

// Static returns an enumerator over a fixed list of files.
func Static(paths ...string) Enumerator {
	return staticEnumerator(append([]string(nil), paths...))
}

func (s staticEnumerator) Modules() ([]Descriptor, error) {
	out := make([]Descriptor, 0, len(s))
	for _, p := range s {
		out = append(out, Descriptor{Path: p})
	}
	return out, nil
}

// appendUnique adds path unless it is empty or already listed.
func appendUnique(out []Descriptor, seen map[string]bool, path string) []Descriptor {
	if path == "" || seen[path] {
		return out
	}
	seen[path] = true
	return append(out, Descriptor{Path: path})
}

// MaxModuleSize bounds the size of module and debug files read for scanning.
const MaxModuleSize = 4 << 30

// ReadModule reads a module or debug file. Library paths are commonly
// symlinks, so they are followed; anything but a regular file is rejected.
func ReadModule(path string) ([]byte, error) {
	return safe.ReadFile(path, &safe.ReadOptions{MaxSize: MaxModuleSize, AllowSymlinks: true})
}

// headerSize is the prefix inspected before a file is read in full. It
// covers the DOS stub of PE files up to the NT headers.
const headerSize = 4096

// fatMagic starts multi-architecture Mach-O files. Peek can not validate
// their slices from the header alone.
const fatMagic = 0xcafebabe

// ErrNotObject is returned by ReadObjectFile for files that do not start
// like an object file.
var ErrNotObject = errors.New("not an object file")

// ReadObjectFile reads a module or debug file after checking that its
// header belongs to a known object format. Data files mapped into a
// process are rejected without reading them in full.
func ReadObjectFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("path %q is not a regular file", path)
	}

	header, err := readHeader(path)
	if err != nil {
		return nil, err
	}
	if !isObjectHeader(header) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotObject)
	}
	return ReadModule(path)
}

func readHeader(path string) ([]byte, error) {
	//nolint:gosec // G304: module paths come from the loader or the caller.
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, headerSize)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return buf[:n], nil
}

func isObjectHeader(header []byte) bool {
	if object.Peek(header, false) != object.FormatUnknown {
		return true
	}
	return len(header) >= 8 && binary.BigEndian.Uint32(header) == fatMagic
}
