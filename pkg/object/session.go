package object

// SessionKind identifies the reader behind a DebugSession.
type SessionKind int

const (
	SessionDwarf SessionKind = iota
	SessionPdb
	SessionPe
	SessionSourceBundle
)

func (k SessionKind) String() string {
	switch k {
	case SessionDwarf:
		return "dwarf"
	case SessionPdb:
		return "pdb"
	case SessionPe:
		return "pe"
	case SessionSourceBundle:
		return "sourcebundle"
	default:
		return "unknown"
	}
}

// sessionBackend is implemented by the per-format debug readers.
type sessionBackend interface {
	functions() functionSource
	files() fileSource
	sourceByPath(path string) (string, bool, error)
}

// DebugSession reads functions, files and embedded sources from the debug
// information of one object. ELF, Mach-O and WebAssembly objects share the
// DWARF reader.
type DebugSession struct {
	kind  SessionKind
	inner sessionBackend
}

func newDebugSession(kind SessionKind, inner sessionBackend) *DebugSession {
	return &DebugSession{kind: kind, inner: inner}
}

// Kind returns the reader behind the session.
func (s *DebugSession) Kind() SessionKind { return s.kind }

// Functions returns an iterator over all functions, in compilation unit order.
func (s *DebugSession) Functions() *FunctionIterator {
	return newFunctionIterator(s.inner.functions())
}

// Files returns an iterator over all source files referenced by the
// debug information.
func (s *DebugSession) Files() *FileIterator {
	return newFileIterator(s.inner.files())
}

// SourceByPath returns the embedded source text of the file at path. A
// missing file is reported as ("", false, nil).
func (s *DebugSession) SourceByPath(path string) (string, bool, error) {
	text, ok, err := s.inner.sourceByPath(path)
	if err != nil {
		return "", false, wrapError(err)
	}
	return text, ok, nil
}
