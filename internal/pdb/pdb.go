package pdb

import (
	"fmt"
)

// Fixed stream indices.
const (
	streamPDB = 1
	streamTPI = 2
	streamDBI = 3
	streamIPI = 4
)

const (
	dbiHeaderSize      = 64
	dbiVersionSig      = 0xffffffff
	modInfoFixedSize   = 64
	namesSignature     = 0xeffeeffe
	sectionHeaderSize  = 40
	dbgHeaderSections  = 5
	namesStreamName    = "/names"
	nilStreamIndex     = 0xffff
	infoHeaderSize     = 28
	maxNamedStreamKeys = 1 << 16
)

// Info is the header of the PDB info stream.
type Info struct {
	Version   uint32
	Signature uint32
	Age       uint32
	GUID      [16]byte
}

// Module is one entry of the DBI module list, usually an object file
// linked into the image.
type Module struct {
	Name         string
	ObjectFile   string
	SymbolStream uint16
	SymbolSize   uint32
	C11Size      uint32
	C13Size      uint32
}

// Section is a section header of the image the PDB describes.
type Section struct {
	Name           string
	VirtualAddress uint32
	VirtualSize    uint32
}

// File is a parsed PDB. Its streams borrow the input buffer.
type File struct {
	msf      *msf
	info     Info
	age      uint32
	machine  uint16
	symbols  uint16
	modules  []Module
	sections []Section
	names    []byte
	named    map[string]uint32
}

// Parse reads the container, the info stream and the DBI stream. Module
// streams are read on demand.
func Parse(data []byte) (*File, error) {
	m, err := openMSF(data)
	if err != nil {
		return nil, err
	}
	f := &File{msf: m, symbols: nilStreamIndex}
	if err := f.readInfo(); err != nil {
		return nil, err
	}
	if err := f.readDBI(); err != nil {
		return nil, err
	}
	if err := f.readNames(); err != nil {
		return nil, err
	}
	return f, nil
}

// Info returns the info stream header.
func (f *File) Info() Info { return f.info }

// Age returns the DBI age, which matches the age recorded in the image's
// CodeView record. It falls back to the info stream age.
func (f *File) Age() uint32 {
	if f.age != 0 {
		return f.age
	}
	return f.info.Age
}

// Machine returns the IMAGE_FILE_MACHINE value recorded in the DBI stream.
func (f *File) Machine() uint16 { return f.machine }

// Modules returns the modules listed in the DBI stream.
func (f *File) Modules() []Module { return f.modules }

// Sections returns the image section headers, if the PDB records them.
func (f *File) Sections() []Section { return f.sections }

// RVA converts a segment:offset address to a relative virtual address.
// Without section headers the offset is returned unchanged.
func (f *File) RVA(segment uint16, offset uint32) (uint32, bool) {
	if len(f.sections) == 0 {
		return offset, true
	}
	if segment == 0 || int(segment) > len(f.sections) {
		return 0, false
	}
	return f.sections[segment-1].VirtualAddress + offset, true
}

func (f *File) readInfo() error {
	data, err := f.msf.stream(streamPDB)
	if err != nil {
		return err
	}
	if len(data) < infoHeaderSize {
		return &ParseError{Stream: "info", Message: "truncated header", Err: ErrInvalidStream}
	}

	r := newReader("info", data)
	f.info.Version = r.u32()
	f.info.Signature = r.u32()
	f.info.Age = r.u32()
	copy(f.info.GUID[:], r.take(16))

	// Named stream map: string buffer, then a hash table of (offset, stream).
	bufSize := r.u32()
	buf := r.take(int(bufSize))
	size := r.u32()
	r.u32() // capacity
	present := readBitVector(r)
	readBitVector(r) // deleted
	if r.err != nil {
		return r.err
	}
	if size > maxNamedStreamKeys {
		return &ParseError{Stream: "info", Offset: int64(r.off), Message: "named stream map too large", Err: ErrInvalidStream}
	}

	f.named = make(map[string]uint32, size)
	for i := 0; i < len(present)*32; i++ {
		if present[i/32]&(1<<(i%32)) == 0 {
			continue
		}
		key := r.u32()
		value := r.u32()
		if r.err != nil {
			return r.err
		}
		if uint64(key) >= uint64(len(buf)) {
			continue
		}
		nr := newReader("info", buf[key:])
		f.named[nr.cstring()] = value
	}
	return nil
}

func readBitVector(r *reader) []uint32 {
	words := r.u32()
	if uint64(words)*4 > uint64(r.remaining()) {
		r.take(int(words) * 4)
		return nil
	}
	out := make([]uint32, words)
	for i := range out {
		out[i] = r.u32()
	}
	return out
}

func (f *File) readDBI() error {
	data, err := f.msf.stream(streamDBI)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	if len(data) < dbiHeaderSize {
		return &ParseError{Stream: "dbi", Message: "truncated header", Err: ErrInvalidStream}
	}

	r := newReader("dbi", data)
	if r.u32() != dbiVersionSig {
		return &ParseError{Stream: "dbi", Message: "bad version signature", Err: ErrUnsupportedVersion}
	}
	r.u32() // version header
	f.age = r.u32()
	r.u16() // global stream
	r.u16() // build number
	r.u16() // public stream
	r.u16() // dll version
	f.symbols = r.u16()
	r.u16() // dll rebuild
	modInfoSize := r.u32()
	secContrSize := r.u32()
	secMapSize := r.u32()
	fileInfoSize := r.u32()
	typeServerSize := r.u32()
	r.u32() // MFC type server index
	dbgHeaderSize := r.u32()
	ecSize := r.u32()
	r.u16() // flags
	f.machine = r.u16()
	r.u32()

	modInfo := r.take(int(modInfoSize))
	r.skip(int(secContrSize))
	r.skip(int(secMapSize))
	r.skip(int(fileInfoSize))
	r.skip(int(typeServerSize))
	r.skip(int(ecSize))
	dbgHeader := r.take(int(dbgHeaderSize))
	if r.err != nil {
		return r.err
	}

	if f.modules, err = parseModules(modInfo); err != nil {
		return err
	}

	dr := newReader("dbi", dbgHeader)
	var sectionStream uint16 = nilStreamIndex
	for i := 0; dr.remaining() >= 2; i++ {
		idx := dr.u16()
		if i == dbgHeaderSections {
			sectionStream = idx
			break
		}
	}
	if sectionStream != nilStreamIndex {
		f.sections, err = f.readSections(uint32(sectionStream))
		if err != nil {
			return err
		}
	}
	return nil
}

func parseModules(data []byte) ([]Module, error) {
	r := newReader("dbi modules", data)
	var modules []Module
	for r.remaining() >= modInfoFixedSize {
		fixed := newReader("dbi modules", r.take(modInfoFixedSize))
		fixed.skip(34)
		mod := Module{SymbolStream: fixed.u16()}
		mod.SymbolSize = fixed.u32()
		mod.C11Size = fixed.u32()
		mod.C13Size = fixed.u32()
		mod.Name = r.cstring()
		mod.ObjectFile = r.cstring()
		r.align(4)
		if r.err != nil {
			return nil, r.err
		}
		modules = append(modules, mod)
	}
	return modules, nil
}

func (f *File) readSections(idx uint32) ([]Section, error) {
	data, err := f.msf.stream(idx)
	if err != nil {
		return nil, err
	}
	sections := make([]Section, 0, len(data)/sectionHeaderSize)
	for off := 0; off+sectionHeaderSize <= len(data); off += sectionHeaderSize {
		r := newReader("section headers", data[off:off+sectionHeaderSize])
		name := r.take(8)
		end := 0
		for end < len(name) && name[end] != 0 {
			end++
		}
		sec := Section{Name: string(name[:end])}
		sec.VirtualSize = r.u32()
		sec.VirtualAddress = r.u32()
		sections = append(sections, sec)
	}
	return sections, nil
}

// readNames loads the /names string table referenced by line tables.
func (f *File) readNames() error {
	idx, ok := f.named[namesStreamName]
	if !ok {
		return nil
	}
	data, err := f.msf.stream(idx)
	if err != nil {
		return err
	}
	r := newReader("names", data)
	if r.u32() != namesSignature {
		return &ParseError{Stream: "names", Message: "bad signature", Err: ErrInvalidStream}
	}
	r.u32() // hash version
	size := r.u32()
	f.names = r.take(int(size))
	return r.err
}

// name returns the string at offset in the /names table.
func (f *File) name(offset uint32) (string, error) {
	if uint64(offset) >= uint64(len(f.names)) {
		return "", &ParseError{Stream: "names", Offset: int64(offset), Message: "string offset out of range", Err: ErrInvalidStream}
	}
	r := newReader("names", f.names[offset:])
	s := r.cstring()
	return s, r.err
}

// moduleStream splits a module stream into its symbol and C13 line parts.
func (f *File) moduleStream(mod Module) (symbols, c13 []byte, err error) {
	if mod.SymbolStream == nilStreamIndex {
		return nil, nil, nil
	}
	data, err := f.msf.stream(uint32(mod.SymbolStream))
	if err != nil {
		return nil, nil, fmt.Errorf("module %s: %w", mod.Name, err)
	}
	r := newReader("module "+mod.Name, data)
	if mod.SymbolSize >= 4 {
		r.u32() // signature
		symbols = r.take(int(mod.SymbolSize) - 4)
	}
	r.skip(int(mod.C11Size))
	c13 = r.take(int(mod.C13Size))
	if r.err != nil {
		return nil, nil, r.err
	}
	return symbols, c13, nil
}
