package object

import (
	"bytes"
	"debug/macho"
	"encoding/binary"

	"github.com/coral-mesh/declsite/internal/pdb"
	"github.com/coral-mesh/declsite/internal/wasm"
)

// Mach-O magic numbers as read big-endian from the start of a file.
const (
	machMagic    = 0xfeedface
	machCigam    = 0xcefaedfe
	machMagic64  = 0xfeedfacf
	machCigam64  = 0xcffaedfe
	machFatMagic = 0xcafebabe

	// Java class files share the fat magic. Their major version sits where
	// the fat architecture count would be and is always larger than this.
	maxFatArches = 30

	fatHeaderSize = 8
	fatArchSize   = 20
)

var (
	elfMagic          = []byte{0x7f, 'E', 'L', 'F'}
	sourceBundleMagic = []byte("SYSB")
)

// Peek infers the object format from the start of data.
//
// Multi-architecture Mach-O archives are only recognized when
// allowMultiArch is set; otherwise they are reported as FormatUnknown.
// Peek never fails: a probe that cannot parse the buffer simply does not
// match.
func Peek(data []byte, allowMultiArch bool) FileFormat {
	if len(data) < 16 {
		return FormatUnknown
	}

	switch {
	case testElf(data):
		return FormatElf
	case testPe(data):
		return FormatPe
	case pdb.Test(data):
		return FormatPdb
	case testSourceBundle(data):
		return FormatSourceBundle
	case wasm.Test(data):
		return FormatWasm
	}

	switch binary.BigEndian.Uint32(data[0:4]) {
	case machFatMagic:
		if allowMultiArch && testFat(data) {
			return FormatMachO
		}
		return FormatUnknown
	case machMagic, machCigam, machMagic64, machCigam64:
		return FormatMachO
	default:
		return FormatUnknown
	}
}

// PeekArchive infers the format of a buffer that may hold a multi-architecture archive.
func PeekArchive(data []byte) FileFormat {
	return Peek(data, true)
}

func testElf(data []byte) bool {
	if !bytes.HasPrefix(data, elfMagic) {
		return false
	}
	// EI_CLASS must be ELFCLASS32 or ELFCLASS64.
	return data[4] == 1 || data[4] == 2
}

func testPe(data []byte) bool {
	if len(data) < 0x40 || data[0] != 'M' || data[1] != 'Z' {
		return false
	}
	offset := binary.LittleEndian.Uint32(data[0x3c:0x40])
	if uint64(offset)+4 > uint64(len(data)) {
		return false
	}
	return bytes.Equal(data[offset:offset+4], []byte{'P', 'E', 0, 0})
}

func testSourceBundle(data []byte) bool {
	return bytes.HasPrefix(data, sourceBundleMagic)
}

func testFat(data []byte) bool {
	if len(data) < fatHeaderSize {
		return false
	}
	narch := binary.BigEndian.Uint32(data[4:8])
	if narch == 0 || narch > maxFatArches {
		return false
	}
	if fatHeaderSize+uint64(narch)*fatArchSize > uint64(len(data)) {
		return false
	}
	ff, err := macho.NewFatFile(bytes.NewReader(data))
	if err != nil {
		return false
	}
	_ = ff.Close()
	return true
}
