package object

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	ntGnuBuildID = 3
	// Size of the .text prefix hashed when an ELF file has no build-id.
	textHashSize = 4096
)

type elfObject struct {
	file      *elf.File
	buildID   []byte
	debugLink string
	linkCRC   uint32
	malformed bool
}

func parseElf(data []byte) (*elfObject, error) {
	f, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ELF file: %w", err)
	}

	obj := &elfObject{file: f}
	obj.buildID, err = obj.readBuildID()
	if err != nil {
		obj.malformed = true
	}
	if sec := f.Section(".gnu_debuglink"); sec != nil {
		if b, err := sec.Data(); err == nil {
			obj.debugLink, obj.linkCRC = parseDebugLink(b, f.ByteOrder)
		} else {
			obj.malformed = true
		}
	}
	return obj, nil
}

// readBuildID searches note sections, then note segments, for the GNU
// build-id.
func (o *elfObject) readBuildID() ([]byte, error) {
	var firstErr error
	for _, sec := range o.file.Sections {
		if sec.Type != elf.SHT_NOTE {
			continue
		}
		b, err := sec.Data()
		if err != nil {
			firstErr = errors.Join(firstErr, err)
			continue
		}
		if id := findBuildIDNote(b, o.file.ByteOrder); id != nil {
			return id, nil
		}
	}
	for _, prog := range o.file.Progs {
		if prog.Type != elf.PT_NOTE {
			continue
		}
		b := make([]byte, prog.Filesz)
		if _, err := prog.ReadAt(b, 0); err != nil {
			firstErr = errors.Join(firstErr, err)
			continue
		}
		if id := findBuildIDNote(b, o.file.ByteOrder); id != nil {
			return id, nil
		}
	}
	return nil, firstErr
}

// findBuildIDNote walks the notes in b.
// Format: namesz(4) + descsz(4) + type(4) + name(namesz, aligned) + desc(descsz, aligned)
func findBuildIDNote(b []byte, order binary.ByteOrder) []byte {
	for len(b) >= 12 {
		namesz := uint64(order.Uint32(b[0:4]))
		descsz := uint64(order.Uint32(b[4:8]))
		typ := order.Uint32(b[8:12])
		b = b[12:]

		nameEnd := align4(namesz)
		descEnd := nameEnd + align4(descsz)
		if nameEnd > uint64(len(b)) || nameEnd+descsz > uint64(len(b)) {
			return nil
		}
		name := b[:namesz]
		if typ == ntGnuBuildID && bytes.Equal(name, []byte("GNU\x00")) && descsz > 0 {
			id := make([]byte, descsz)
			copy(id, b[nameEnd:nameEnd+descsz])
			return id
		}
		if descEnd > uint64(len(b)) {
			return nil
		}
		b = b[descEnd:]
	}
	return nil
}

func align4(n uint64) uint64 {
	return (n + 3) &^ 3
}

// parseDebugLink decodes a .gnu_debuglink section: a NUL-terminated file
// name padded to four bytes, followed by a CRC32 of the debug file.
func parseDebugLink(b []byte, order binary.ByteOrder) (string, uint32) {
	end := bytes.IndexByte(b, 0)
	if end <= 0 {
		return "", 0
	}
	name := string(b[:end])
	crcOff := align4(uint64(end) + 1)
	if crcOff+4 > uint64(len(b)) {
		return name, 0
	}
	return name, order.Uint32(b[crcOff : crcOff+4])
}

func (o *elfObject) codeID() CodeID {
	if len(o.buildID) == 0 {
		return ""
	}
	return CodeIDFromBytes(o.buildID)
}

func (o *elfObject) debugID() DebugID {
	if len(o.buildID) > 0 {
		guid := make([]byte, 16)
		copy(guid, o.buildID)
		return debugIDFromGUID(guid, 0)
	}

	sec := o.file.Section(".text")
	if sec == nil || sec.Type == elf.SHT_NOBITS {
		return NilDebugID
	}
	text := make([]byte, min(sec.Size, textHashSize))
	n, _ := sec.ReadAt(text, 0)
	if n == 0 {
		return NilDebugID
	}
	var hash [16]byte
	for i, b := range text[:n] {
		hash[i%16] ^= b
	}
	return debugIDFromGUID(hash[:], 0)
}

func (o *elfObject) arch() Arch {
	is64 := o.file.Class == elf.ELFCLASS64
	switch o.file.Machine {
	case elf.EM_386:
		return ArchX86
	case elf.EM_X86_64:
		return ArchAmd64
	case elf.EM_ARM:
		return ArchArm
	case elf.EM_AARCH64:
		return ArchArm64
	case elf.EM_PPC:
		return ArchPpc
	case elf.EM_PPC64:
		return ArchPpc64
	case elf.EM_MIPS:
		if is64 {
			return ArchMips64
		}
		return ArchMips
	case elf.EM_RISCV:
		if is64 {
			return ArchRiscv64
		}
		return ArchUnknown
	case elf.EM_S390:
		return ArchS390x
	case elf.EM_LOONGARCH:
		return ArchLoong64
	default:
		return ArchUnknown
	}
}

func (o *elfObject) kind() Kind {
	switch o.file.Type {
	case elf.ET_REL:
		return KindRelocatable
	case elf.ET_CORE:
		return KindDump
	case elf.ET_EXEC, elf.ET_DYN:
	default:
		return KindNone
	}

	// Separate debug files keep the section headers but strip the code.
	if text := o.file.Section(".text"); text != nil && text.Type == elf.SHT_NOBITS && o.hasDebugInfo() {
		return KindDebug
	}
	if o.file.Type == elf.ET_EXEC {
		return KindExecutable
	}
	for _, prog := range o.file.Progs {
		if prog.Type == elf.PT_INTERP {
			return KindExecutable
		}
	}
	return KindLibrary
}

func (o *elfObject) loadAddress() uint64 {
	var (
		addr  uint64
		found bool
	)
	for _, prog := range o.file.Progs {
		if prog.Type != elf.PT_LOAD {
			continue
		}
		if !found || prog.Vaddr < addr {
			addr, found = prog.Vaddr, true
		}
	}
	return addr
}

func (o *elfObject) hasSymbols() bool {
	return o.file.Section(".symtab") != nil || o.file.Section(".dynsym") != nil
}

func (o *elfObject) symbols() []Symbol {
	syms, err := o.file.Symbols()
	if err != nil || len(syms) == 0 {
		syms, err = o.file.DynamicSymbols()
		if err != nil {
			return nil
		}
	}

	out := make([]Symbol, 0, len(syms))
	for _, sym := range syms {
		if elf.ST_TYPE(sym.Info) != elf.STT_FUNC || sym.Section == elf.SHN_UNDEF || sym.Value == 0 {
			continue
		}
		out = append(out, Symbol{Name: sym.Name, Address: sym.Value, Size: sym.Size})
	}
	return out
}

func (o *elfObject) hasDebugInfo() bool {
	for _, name := range []string{".debug_info", ".zdebug_info"} {
		if sec := o.file.Section(name); sec != nil && sec.Type != elf.SHT_NOBITS {
			return true
		}
	}
	return false
}

func (o *elfObject) hasUnwindInfo() bool {
	for _, name := range []string{".eh_frame", ".debug_frame"} {
		if sec := o.file.Section(name); sec != nil && sec.Type != elf.SHT_NOBITS {
			return true
		}
	}
	return false
}

func (o *elfObject) hasSources() bool { return false }

func (o *elfObject) isMalformed() bool { return o.malformed }

func (o *elfObject) debugSession() (*DebugSession, error) {
	allowZero := o.file.Type == elf.ET_REL
	if !o.hasDebugInfo() {
		return newDwarfSession(nil, allowZero), nil
	}
	d, err := o.file.DWARF()
	if err != nil {
		return nil, fmt.Errorf("failed to load DWARF from ELF file: %w", err)
	}
	return newDwarfSession(d, allowZero), nil
}

func (o *elfObject) debugFileHints() DebugFileHints {
	return DebugFileHints{
		BuildID:      o.buildID,
		DebugLink:    o.debugLink,
		DebugLinkCRC: o.linkCRC,
	}
}
