package declsite

import (
	"github.com/rs/zerolog"

	"github.com/coral-mesh/declsite/internal/demangle"
	"github.com/coral-mesh/declsite/internal/modules"
)

// Module is one loaded module: its path and, when known, the path of a
// separate file holding its debug information. An empty Path stands for
// the running executable.
type Module = modules.Descriptor

// Enumerator lists the modules to scan. It must only copy the module list
// out of the platform and never parse files.
type Enumerator = modules.Enumerator

// EnumeratorFunc adapts a function to the Enumerator interface.
type EnumeratorFunc = modules.EnumeratorFunc

// Demangler converts raw function names into the names matched by
// DeclarationByName.
type Demangler = demangle.Demangler

// LoadedModules returns the enumerator over the modules of the running
// process. It is the default enumerator of a Scanner.
func LoadedModules() Enumerator { return modules.Live() }

// Files returns an enumerator over the given binaries instead of the
// running process.
func Files(paths ...string) Enumerator { return modules.Static(paths...) }

// Option configures a Scanner.
type Option func(*Scanner)

// WithLogger sets the logger receiving debug records about skipped
// modules, objects and functions. The default discards them.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Scanner) {
		s.logger = logger.With().Str("component", "declsite").Logger()
	}
}

// WithEnumerator replaces the source of modules to scan.
func WithEnumerator(e Enumerator) Option {
	return func(s *Scanner) {
		if e != nil {
			s.enumerator = e
		}
	}
}

// WithDemangler replaces the name demangler.
func WithDemangler(d Demangler) Option {
	return func(s *Scanner) {
		if d != nil {
			s.demangler = d
		}
	}
}

// WithDebugFileDirectories sets the global directories searched for
// separate debug files, such as /usr/lib/debug.
func WithDebugFileDirectories(dirs ...string) Option {
	return func(s *Scanner) {
		s.debugDirs = append([]string(nil), dirs...)
	}
}

// WithoutDebugFiles disables the lookup of separate debug files, so
// modules are scanned only through their own debug information.
func WithoutDebugFiles() Option {
	return func(s *Scanner) {
		s.noDebugFiles = true
	}
}
