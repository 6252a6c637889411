package object

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// FileFormat is the container format of an object file.
type FileFormat int

const (
	FormatUnknown FileFormat = iota
	FormatElf
	FormatMachO
	FormatPdb
	FormatPe
	FormatSourceBundle
	FormatWasm
)

// String returns the lowercase name of the format.
func (f FileFormat) String() string {
	switch f {
	case FormatElf:
		return "elf"
	case FormatMachO:
		return "macho"
	case FormatPdb:
		return "pdb"
	case FormatPe:
		return "pe"
	case FormatSourceBundle:
		return "sourcebundle"
	case FormatWasm:
		return "wasm"
	default:
		return "unknown"
	}
}

// Kind describes what an object file contains.
type Kind int

const (
	KindNone Kind = iota
	KindRelocatable
	KindExecutable
	KindLibrary
	KindDump
	KindDebug
	KindSources
)

func (k Kind) String() string {
	switch k {
	case KindRelocatable:
		return "rel"
	case KindExecutable:
		return "exe"
	case KindLibrary:
		return "lib"
	case KindDump:
		return "dump"
	case KindDebug:
		return "dbg"
	case KindSources:
		return "src"
	default:
		return "none"
	}
}

// Arch is the CPU architecture an object was built for.
type Arch int

const (
	ArchUnknown Arch = iota
	ArchX86
	ArchAmd64
	ArchArm
	ArchArm64
	ArchPpc
	ArchPpc64
	ArchMips
	ArchMips64
	ArchRiscv64
	ArchS390x
	ArchLoong64
	ArchWasm32
)

var archNames = map[Arch]string{
	ArchUnknown: "unknown",
	ArchX86:     "x86",
	ArchAmd64:   "x86_64",
	ArchArm:     "arm",
	ArchArm64:   "arm64",
	ArchPpc:     "ppc",
	ArchPpc64:   "ppc64",
	ArchMips:    "mips",
	ArchMips64:  "mips64",
	ArchRiscv64: "riscv64",
	ArchS390x:   "s390x",
	ArchLoong64: "loong64",
	ArchWasm32:  "wasm32",
}

func (a Arch) String() string {
	if name, ok := archNames[a]; ok {
		return name
	}
	return "unknown"
}

// ParseArch parses an architecture name as produced by String.
func ParseArch(s string) Arch {
	for arch, name := range archNames {
		if strings.EqualFold(name, s) {
			return arch
		}
	}
	return ArchUnknown
}

// Language is the source language a function was compiled from.
type Language int

const (
	LangUnknown Language = iota
	LangC
	LangCpp
	LangObjC
	LangObjCpp
	LangRust
	LangGo
	LangSwift
	LangD
)

func (l Language) String() string {
	switch l {
	case LangC:
		return "c"
	case LangCpp:
		return "cpp"
	case LangObjC:
		return "objc"
	case LangObjCpp:
		return "objcpp"
	case LangRust:
		return "rust"
	case LangGo:
		return "go"
	case LangSwift:
		return "swift"
	case LangD:
		return "d"
	default:
		return "unknown"
	}
}

// CodeID identifies the code file (executable or library) an object refers to.
// It is a lowercase hex string of platform-dependent length.
type CodeID string

// NewCodeID normalizes a hex identifier.
func NewCodeID(s string) CodeID {
	return CodeID(strings.ToLower(strings.TrimSpace(s)))
}

// CodeIDFromBytes hex-encodes raw identifier bytes.
func CodeIDFromBytes(b []byte) CodeID {
	return CodeID(hex.EncodeToString(b))
}

func (c CodeID) String() string { return string(c) }

// IsNil reports whether the identifier is empty.
func (c CodeID) IsNil() bool { return c == "" }

// DebugID identifies a debug information file. It is a UUID with an
// optional appendix, which is the PDB age on Windows.
type DebugID struct {
	UUID     uuid.UUID
	Appendix uint32
}

// NilDebugID is the zero debug identifier.
var NilDebugID = DebugID{}

// IsNil reports whether the identifier is zero.
func (d DebugID) IsNil() bool {
	return d.UUID == uuid.Nil && d.Appendix == 0
}

// String formats the identifier as "<uuid>" or "<uuid>-<appendix>".
func (d DebugID) String() string {
	if d.Appendix == 0 {
		return d.UUID.String()
	}
	return fmt.Sprintf("%s-%x", d.UUID.String(), d.Appendix)
}

// ParseDebugID parses the formats produced by String, with or without
// hyphens in the UUID part.
func ParseDebugID(s string) (DebugID, error) {
	s = strings.TrimSpace(s)
	var appendix uint32

	compact := strings.ReplaceAll(s, "-", "")
	if len(compact) < 32 {
		return NilDebugID, fmt.Errorf("invalid debug id %q", s)
	}
	if len(compact) > 32 {
		v, err := strconv.ParseUint(compact[32:], 16, 32)
		if err != nil {
			return NilDebugID, fmt.Errorf("invalid debug id appendix %q: %w", s, err)
		}
		appendix = uint32(v)
	}

	u, err := uuid.Parse(compact[:32])
	if err != nil {
		return NilDebugID, fmt.Errorf("invalid debug id %q: %w", s, err)
	}

	return DebugID{UUID: u, Appendix: appendix}, nil
}

// debugIDFromGUID converts a little-endian Microsoft GUID (as stored in PDB
// and CodeView records) into a DebugID.
func debugIDFromGUID(guid []byte, age uint32) DebugID {
	if len(guid) < 16 {
		return NilDebugID
	}
	var u uuid.UUID
	binary.BigEndian.PutUint32(u[0:4], binary.LittleEndian.Uint32(guid[0:4]))
	binary.BigEndian.PutUint16(u[4:6], binary.LittleEndian.Uint16(guid[4:6]))
	binary.BigEndian.PutUint16(u[6:8], binary.LittleEndian.Uint16(guid[6:8]))
	copy(u[8:], guid[8:16])
	return DebugID{UUID: u, Appendix: age}
}

// debugIDFromUUIDBytes uses 16 bytes verbatim as the UUID.
func debugIDFromUUIDBytes(b []byte) DebugID {
	u, err := uuid.FromBytes(b)
	if err != nil {
		return NilDebugID
	}
	return DebugID{UUID: u}
}
