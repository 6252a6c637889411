package object

import (
	"fmt"
)

// backend is implemented by the per-format object readers. The set of
// implementations is closed: newBackend is the only constructor.
type backend interface {
	codeID() CodeID
	debugID() DebugID
	arch() Arch
	kind() Kind
	loadAddress() uint64
	hasSymbols() bool
	symbols() []Symbol
	hasDebugInfo() bool
	hasUnwindInfo() bool
	hasSources() bool
	isMalformed() bool
	debugSession() (*DebugSession, error)
}

// Object is a read-only view over one object file.
//
// An Object borrows the byte slice it was parsed from. The caller must keep
// the slice alive and unmodified while the Object, its debug sessions and
// the functions they produce are in use.
type Object struct {
	format FileFormat
	inner  backend
}

// ParseObject detects the format of data and parses it as a single object.
// Multi-architecture archives are rejected; use ParseArchive for those.
func ParseObject(data []byte) (*Object, error) {
	return parseObject(Peek(data, false), data)
}

func parseObject(format FileFormat, data []byte) (*Object, error) {
	inner, err := newBackend(format, data)
	if err != nil {
		return nil, wrapError(err)
	}
	return &Object{format: format, inner: inner}, nil
}

func newBackend(format FileFormat, data []byte) (backend, error) {
	switch format {
	case FormatElf:
		return parseElf(data)
	case FormatMachO:
		return parseMachO(data)
	case FormatPdb:
		return parsePdb(data)
	case FormatPe:
		return parsePe(data)
	case FormatSourceBundle:
		return parseSourceBundle(data)
	case FormatWasm:
		return parseWasm(data)
	case FormatUnknown:
		return nil, unsupportedObject()
	default:
		return nil, fmt.Errorf("invalid file format %d", format)
	}
}

// FileFormat returns the container format of the object.
func (o *Object) FileFormat() FileFormat { return o.format }

// CodeID returns the identifier of the code file, if the format records one.
func (o *Object) CodeID() CodeID { return o.inner.codeID() }

// DebugID returns the identifier of the debug information.
func (o *Object) DebugID() DebugID { return o.inner.debugID() }

// Arch returns the CPU architecture.
func (o *Object) Arch() Arch { return o.inner.arch() }

// Kind returns what the object contains.
func (o *Object) Kind() Kind { return o.inner.kind() }

// LoadAddress returns the preferred address the image is loaded at.
func (o *Object) LoadAddress() uint64 { return o.inner.loadAddress() }

// HasSymbols reports whether the object carries a public symbol table.
func (o *Object) HasSymbols() bool { return o.inner.hasSymbols() }

// Symbols returns an iterator over the public symbol table.
func (o *Object) Symbols() *SymbolIterator {
	return &SymbolIterator{symbols: o.inner.symbols()}
}

// SymbolMap returns the symbol table ordered by address.
func (o *Object) SymbolMap() SymbolMap {
	return NewSymbolMap(o.inner.symbols())
}

// HasDebugInfo reports whether the object contains function and line records.
func (o *Object) HasDebugInfo() bool { return o.inner.hasDebugInfo() }

// HasUnwindInfo reports whether the object contains stack unwinding tables.
func (o *Object) HasUnwindInfo() bool { return o.inner.hasUnwindInfo() }

// HasSources reports whether the object embeds source files.
func (o *Object) HasSources() bool { return o.inner.hasSources() }

// IsMalformed reports whether parts of the object failed to parse. A
// malformed object may still yield partial information.
func (o *Object) IsMalformed() bool { return o.inner.isMalformed() }

// DebugSession opens the debug information of the object.
//
// Objects without debug information still return a session; its function
// and file iterators are empty.
func (o *Object) DebugSession() (*DebugSession, error) {
	session, err := o.inner.debugSession()
	if err != nil {
		return nil, wrapError(err)
	}
	return session, nil
}

// DebugFileHints describe where separate debug information for an object
// may be found. Empty fields carry no hint.
type DebugFileHints struct {
	// BuildID is the raw GNU build-id of an ELF file.
	BuildID []byte
	// DebugLink is the file name from an ELF .gnu_debuglink section.
	DebugLink    string
	DebugLinkCRC uint32
	// PdbPath is the PDB path recorded in a PE CodeView record.
	PdbPath string
}

type debugFileHinter interface {
	debugFileHints() DebugFileHints
}

// DebugFileHints returns the separate debug file references recorded in
// the object. Formats without such references return empty hints.
func (o *Object) DebugFileHints() DebugFileHints {
	if h, ok := o.inner.(debugFileHinter); ok {
		return h.debugFileHints()
	}
	return DebugFileHints{}
}
