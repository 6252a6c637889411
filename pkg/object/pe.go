package object

import (
	"bytes"
	"debug/pe"
	"encoding/binary"
	"fmt"
)

const (
	peDirException = 3
	peDirDebug     = 6

	peDebugEntrySize    = 28
	peDebugTypeCodeView = 2

	coffFunctionType = 0x20
)

var rsdsMagic = []byte("RSDS")

type peObject struct {
	file      *pe.File
	data      []byte
	imageBase uint64
	imageSize uint32
	dirs      []pe.DataDirectory

	cvGUID    []byte
	cvAge     uint32
	pdbPath   string
	malformed bool
}

func parsePe(data []byte) (*peObject, error) {
	f, err := pe.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse PE file: %w", err)
	}

	obj := &peObject{file: f, data: data}
	switch oh := f.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		obj.imageBase = uint64(oh.ImageBase)
		obj.imageSize = oh.SizeOfImage
		obj.dirs = oh.DataDirectory[:min(oh.NumberOfRvaAndSizes, uint32(len(oh.DataDirectory)))]
	case *pe.OptionalHeader64:
		obj.imageBase = oh.ImageBase
		obj.imageSize = oh.SizeOfImage
		obj.dirs = oh.DataDirectory[:min(oh.NumberOfRvaAndSizes, uint32(len(oh.DataDirectory)))]
	}

	if err := obj.readCodeView(); err != nil {
		obj.malformed = true
	}
	return obj, nil
}

func (o *peObject) directory(idx int) (pe.DataDirectory, bool) {
	if idx >= len(o.dirs) || o.dirs[idx].Size == 0 {
		return pe.DataDirectory{}, false
	}
	return o.dirs[idx], true
}

// readRVA reads size bytes at a relative virtual address.
func (o *peObject) readRVA(rva, size uint32) ([]byte, error) {
	for _, sec := range o.file.Sections {
		if rva < sec.VirtualAddress || rva >= sec.VirtualAddress+max(sec.VirtualSize, sec.Size) {
			continue
		}
		b := make([]byte, size)
		if _, err := sec.ReadAt(b, int64(rva-sec.VirtualAddress)); err != nil {
			return nil, fmt.Errorf("failed to read rva 0x%x: %w", rva, err)
		}
		return b, nil
	}
	return nil, fmt.Errorf("rva 0x%x is not mapped by any section", rva)
}

// readCodeView locates the RSDS record in the debug directory.
func (o *peObject) readCodeView() error {
	dir, ok := o.directory(peDirDebug)
	if !ok {
		return nil
	}
	entries, err := o.readRVA(dir.VirtualAddress, dir.Size)
	if err != nil {
		return err
	}
	for off := 0; off+peDebugEntrySize <= len(entries); off += peDebugEntrySize {
		entry := entries[off : off+peDebugEntrySize]
		if binary.LittleEndian.Uint32(entry[12:16]) != peDebugTypeCodeView {
			continue
		}
		size := uint64(binary.LittleEndian.Uint32(entry[16:20]))
		ptr := uint64(binary.LittleEndian.Uint32(entry[24:28]))
		if ptr+size > uint64(len(o.data)) || size < 24 {
			return fmt.Errorf("codeview record out of bounds")
		}
		record := o.data[ptr : ptr+size]
		if !bytes.HasPrefix(record, rsdsMagic) {
			continue
		}
		o.cvGUID = record[4:20]
		o.cvAge = binary.LittleEndian.Uint32(record[20:24])
		path := record[24:]
		if end := bytes.IndexByte(path, 0); end >= 0 {
			path = path[:end]
		}
		o.pdbPath = string(path)
		return nil
	}
	return nil
}

func (o *peObject) codeID() CodeID {
	return NewCodeID(fmt.Sprintf("%08X%x", o.file.FileHeader.TimeDateStamp, o.imageSize))
}

func (o *peObject) debugID() DebugID {
	if o.cvGUID == nil {
		return NilDebugID
	}
	return debugIDFromGUID(o.cvGUID, o.cvAge)
}

func (o *peObject) arch() Arch {
	switch o.file.FileHeader.Machine {
	case pe.IMAGE_FILE_MACHINE_I386:
		return ArchX86
	case pe.IMAGE_FILE_MACHINE_AMD64:
		return ArchAmd64
	case pe.IMAGE_FILE_MACHINE_ARM, pe.IMAGE_FILE_MACHINE_ARMNT:
		return ArchArm
	case pe.IMAGE_FILE_MACHINE_ARM64:
		return ArchArm64
	case pe.IMAGE_FILE_MACHINE_RISCV64:
		return ArchRiscv64
	case pe.IMAGE_FILE_MACHINE_LOONGARCH64:
		return ArchLoong64
	default:
		return ArchUnknown
	}
}

func (o *peObject) kind() Kind {
	if o.file.FileHeader.Characteristics&pe.IMAGE_FILE_DLL != 0 {
		return KindLibrary
	}
	if o.file.FileHeader.Characteristics&pe.IMAGE_FILE_EXECUTABLE_IMAGE != 0 {
		return KindExecutable
	}
	return KindRelocatable
}

func (o *peObject) loadAddress() uint64 { return o.imageBase }

func (o *peObject) hasSymbols() bool { return len(o.file.Symbols) > 0 }

func (o *peObject) symbols() []Symbol {
	out := make([]Symbol, 0, len(o.file.Symbols))
	for _, sym := range o.file.Symbols {
		if sym.Type&0xf0 != coffFunctionType || sym.SectionNumber <= 0 {
			continue
		}
		idx := int(sym.SectionNumber) - 1
		if idx >= len(o.file.Sections) {
			continue
		}
		rva := uint64(o.file.Sections[idx].VirtualAddress) + uint64(sym.Value)
		out = append(out, Symbol{Name: sym.Name, Address: rva})
	}
	return out
}

func (o *peObject) hasDebugInfo() bool {
	for _, sec := range o.file.Sections {
		if suffix, ok := isDwarfSection(sec.Name); ok && suffix == "info" {
			return true
		}
	}
	return false
}

func (o *peObject) hasUnwindInfo() bool {
	_, ok := o.directory(peDirException)
	return ok
}

func (o *peObject) hasSources() bool { return false }

func (o *peObject) isMalformed() bool { return o.malformed }

func (o *peObject) debugSession() (*DebugSession, error) {
	session := &peSession{dwarf: &dwarfSession{}}
	if o.hasDebugInfo() {
		d, err := o.file.DWARF()
		if err != nil {
			return nil, fmt.Errorf("failed to load DWARF from PE file: %w", err)
		}
		session.dwarf.data = d
	}
	return newDebugSession(SessionPe, session), nil
}

func (o *peObject) debugFileHints() DebugFileHints {
	return DebugFileHints{PdbPath: o.pdbPath}
}

// peSession reads the DWARF sections some toolchains (MinGW, Go) embed in
// PE images. Images that only reference a PDB have an empty session.
type peSession struct {
	dwarf *dwarfSession
}

func (s *peSession) functions() functionSource { return s.dwarf.functions() }

func (s *peSession) files() fileSource { return s.dwarf.files() }

func (s *peSession) sourceByPath(string) (string, bool, error) {
	return "", false, nil
}
