package declsite

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/coral-mesh/declsite/internal/demangle"
	"github.com/coral-mesh/declsite/internal/modules"
	"github.com/coral-mesh/declsite/pkg/object"
)

// Flow tells a scan whether to go on with the next function.
type Flow int

const (
	// Continue resumes the scan at the next function.
	Continue Flow = iota
	// Break ends the scan. No further module is read.
	Break
)

// Handler receives every function of every scanned module together with
// its demangled name.
type Handler func(name string, fn *object.Function) Flow

// Scanner walks the functions of loaded modules. Every failure below the
// top call (unreadable files, unsupported formats, broken debug
// information) skips the affected item and the scan proceeds.
//
// A Scanner holds no state between scans and may be used concurrently.
type Scanner struct {
	logger       zerolog.Logger
	enumerator   Enumerator
	demangler    Demangler
	debugDirs    []string
	noDebugFiles bool
	resolver     *modules.Resolver
	readFile     func(string) ([]byte, error)
	executable   func() (string, error)
}

// NewScanner creates a scanner over the modules of the running process.
func NewScanner(opts ...Option) *Scanner {
	s := &Scanner{
		logger:     zerolog.Nop(),
		enumerator: modules.Live(),
		demangler:  demangle.NameOnly,
		readFile:   modules.ReadObjectFile,
		executable: os.Executable,
	}
	for _, opt := range opts {
		opt(s)
	}
	if !s.noDebugFiles {
		s.resolver = modules.NewResolver(s.debugDirs, s.logger)
	}
	return s
}

// Each calls handler for every demangled function until the handler
// returns Break. It returns Break if the scan was stopped by the handler
// and Continue if every module was exhausted.
func (s *Scanner) Each(handler Handler) Flow {
	// The module list is copied out before any file is opened.
	mods, err := s.enumerator.Modules()
	if err != nil {
		s.logger.Debug().Err(err).Msg("Module enumeration incomplete")
	}

	for _, mod := range mods {
		if s.scanModule(mod, handler) == Break {
			return Break
		}
	}
	return Continue
}

func (s *Scanner) scanModule(mod Module, handler Handler) Flow {
	path, err := s.modulePath(mod)
	if err != nil {
		s.logger.Debug().Err(err).Msg("Skipping module without path")
		return Continue
	}

	archive, err := s.loadArchive(path)
	if err != nil {
		s.logger.Debug().Err(err).Str("module", path).Msg("Skipping module")
		return Continue
	}

	if mod.DebugPath == "" && s.resolver != nil {
		if debugPath, ok := s.resolver.DebugFileFor(path, archive); ok {
			if debugArchive, err := s.loadArchive(debugPath); err == nil {
				path, archive = debugPath, debugArchive
			} else {
				s.logger.Debug().Err(err).Str("module", debugPath).Msg("Ignoring debug file")
			}
		}
	}

	objects := archive.Objects()
	for objects.Next() {
		obj, err := objects.Object()
		if err != nil {
			s.logger.Debug().Err(err).Str("module", path).Msg("Skipping object")
			continue
		}
		if s.scanObject(path, obj, handler) == Break {
			return Break
		}
	}
	return Continue
}

func (s *Scanner) scanObject(path string, obj *object.Object, handler Handler) Flow {
	session, err := obj.DebugSession()
	if err != nil {
		s.logger.Debug().
			Err(err).
			Str("module", path).
			Str("arch", obj.Arch().String()).
			Msg("Skipping object without debug session")
		return Continue
	}

	functions := session.Functions()
	for functions.Next() {
		fn, err := functions.Function()
		if err != nil {
			s.logger.Debug().Err(err).Str("module", path).Msg("Skipping function")
			continue
		}
		name, ok := s.demangler.Demangle(fn.Name, fn.Language)
		if !ok {
			continue
		}
		if handler(name, fn) == Break {
			return Break
		}
	}
	return Continue
}

// modulePath picks the file to read for a module: its separate debug
// file, the running executable for an empty path, or the module itself.
func (s *Scanner) modulePath(mod Module) (string, error) {
	if mod.DebugPath != "" {
		return mod.DebugPath, nil
	}
	if mod.Path != "" {
		return mod.Path, nil
	}
	return s.executable()
}

func (s *Scanner) loadArchive(path string) (*object.Archive, error) {
	data, err := s.readFile(path)
	if err != nil {
		return nil, err
	}
	return object.ParseArchive(data)
}

// Scan drives s with a handler that can return a value. The first result
// returned together with Break ends the scan and is returned with true.
// A nil scanner scans the running process with default options.
func Scan[R any](s *Scanner, handler func(name string, fn *object.Function) (R, Flow)) (R, bool) {
	if s == nil {
		s = NewScanner()
	}

	var (
		result R
		found  bool
	)
	s.Each(func(name string, fn *object.Function) Flow {
		r, flow := handler(name, fn)
		if flow == Break {
			result, found = r, true
		}
		return flow
	})
	return result, found
}
