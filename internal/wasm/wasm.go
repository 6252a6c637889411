// Package wasm reads the section structure of WebAssembly modules: custom
// sections (DWARF, build_id, name), imports and code bodies.
package wasm

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

var magic = []byte{0x00, 'a', 's', 'm'}

const version1 = 1

// Section ids.
const (
	SectionCustom = 0
	SectionImport = 2
	SectionCode   = 10
)

const (
	importFunc   = 0
	importTable  = 1
	importMemory = 2
	importGlobal = 3
	importTag    = 4

	nameSubsectionFunctions = 1
)

// ErrNotWasm indicates the data is not a version 1 WebAssembly module.
var ErrNotWasm = errors.New("wasm: not a WebAssembly module")

// ErrMalformed indicates a structural error inside the module.
var ErrMalformed = errors.New("wasm: malformed module")

// ParseError records where in the module parsing failed.
type ParseError struct {
	Section string
	Offset  int64
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("wasm: parse error in %s section at offset 0x%x: %s", e.Section, e.Offset, e.Message)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Test reports whether data starts with the WebAssembly magic and version 1.
func Test(data []byte) bool {
	return len(data) >= 8 && bytes.HasPrefix(data, magic) &&
		binary.LittleEndian.Uint32(data[4:8]) == version1
}

// CustomSection is a named custom section.
type CustomSection struct {
	Name string
	Data []byte
}

// Body is one function body of the code section. Offset is relative to
// the start of the code section payload, which is the address space DWARF
// uses for WebAssembly.
type Body struct {
	Index  uint32
	Offset uint64
	Size   uint64
}

// Module is a parsed module. Section contents borrow the input buffer.
type Module struct {
	Custom         []CustomSection
	ImportedFuncs  uint32
	Bodies         []Body
	FunctionNames  map[uint32]string
	BuildID        []byte
	NameSectionErr error
	hasCodeSection bool
}

// Parse reads the section table of a module.
func Parse(data []byte) (*Module, error) {
	if !Test(data) {
		return nil, ErrNotWasm
	}
	m := &Module{FunctionNames: map[uint32]string{}}

	r := &reader{section: "header", data: data, off: 8}
	for r.remaining() > 0 {
		id := r.u8()
		size := r.leb()
		start := r.off
		payload := r.take(size)
		if r.err != nil {
			return nil, r.err
		}
		switch id {
		case SectionCustom:
			sr := &reader{section: "custom", data: payload, base: int64(start)}
			name := sr.name()
			if sr.err != nil {
				return nil, sr.err
			}
			m.Custom = append(m.Custom, CustomSection{Name: name, Data: payload[sr.off:]})
		case SectionImport:
			if err := m.readImports(payload, int64(start)); err != nil {
				return nil, err
			}
		case SectionCode:
			if err := m.readCode(payload, int64(start)); err != nil {
				return nil, err
			}
		}
	}

	if names := m.Section("name"); names != nil {
		// A broken name section only loses symbol names.
		m.NameSectionErr = m.readNames(names)
	}
	if id := m.Section("build_id"); id != nil {
		m.BuildID = parseBuildID(id)
	}
	return m, nil
}

// Section returns the data of the first custom section called name.
func (m *Module) Section(name string) []byte {
	for _, sec := range m.Custom {
		if sec.Name == name {
			return sec.Data
		}
	}
	return nil
}

// HasCode reports whether the module contains a code section.
func (m *Module) HasCode() bool { return m.hasCodeSection }

func (m *Module) readImports(payload []byte, base int64) error {
	r := &reader{section: "import", data: payload, base: base}
	count := r.leb()
	for i := uint64(0); i < count && r.err == nil; i++ {
		r.name()
		r.name()
		switch kind := r.u8(); kind {
		case importFunc:
			r.leb()
			m.ImportedFuncs++
		case importTable:
			r.u8()
			r.limits()
		case importMemory:
			r.limits()
		case importGlobal:
			r.u8()
			r.u8()
		case importTag:
			r.u8()
			r.leb()
		default:
			return r.fail(fmt.Sprintf("unknown import kind %d", kind))
		}
	}
	return r.err
}

func (m *Module) readCode(payload []byte, base int64) error {
	m.hasCodeSection = true
	r := &reader{section: "code", data: payload, base: base}
	count := r.leb()
	for i := uint64(0); i < count && r.err == nil; i++ {
		size := r.leb()
		offset := uint64(r.off)
		r.take(size)
		m.Bodies = append(m.Bodies, Body{
			Index:  m.ImportedFuncs + uint32(i),
			Offset: offset,
			Size:   size,
		})
	}
	return r.err
}

func (m *Module) readNames(payload []byte) error {
	r := &reader{section: "name", data: payload}
	for r.remaining() > 0 {
		id := r.u8()
		size := r.leb()
		sub := r.take(size)
		if r.err != nil {
			return r.err
		}
		if id != nameSubsectionFunctions {
			continue
		}
		sr := &reader{section: "name", data: sub}
		count := sr.leb()
		for i := uint64(0); i < count && sr.err == nil; i++ {
			idx := sr.leb()
			name := sr.name()
			if sr.err == nil {
				m.FunctionNames[uint32(idx)] = name
			}
		}
		if sr.err != nil {
			return sr.err
		}
	}
	return nil
}

// parseBuildID accepts both a length-prefixed vector and raw bytes.
func parseBuildID(data []byte) []byte {
	r := &reader{section: "build_id", data: data}
	n := r.leb()
	if r.err == nil && n > 0 && uint64(r.remaining()) == n {
		return data[r.off:]
	}
	return data
}

type reader struct {
	section string
	data    []byte
	off     int
	base    int64
	err     error
}

func (r *reader) remaining() int { return len(r.data) - r.off }

func (r *reader) fail(msg string) error {
	if r.err == nil {
		r.err = &ParseError{Section: r.section, Offset: r.base + int64(r.off), Message: msg, Err: ErrMalformed}
	}
	return r.err
}

func (r *reader) take(n uint64) []byte {
	if r.err != nil {
		return nil
	}
	if n > uint64(r.remaining()) {
		r.fail("unexpected end of data")
		return nil
	}
	b := r.data[r.off : r.off+int(n)]
	r.off += int(n)
	return b
}

func (r *reader) u8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

// leb decodes an unsigned LEB128 value.
func (r *reader) leb() uint64 {
	if r.err != nil {
		return 0
	}
	v, n := binary.Uvarint(r.data[r.off:])
	if n <= 0 {
		r.fail("invalid LEB128 value")
		return 0
	}
	r.off += n
	return v
}

func (r *reader) name() string {
	n := r.leb()
	return string(r.take(n))
}

func (r *reader) limits() {
	flags := r.u8()
	r.leb()
	if flags&1 != 0 {
		r.leb()
	}
}
