package object

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/coral-mesh/declsite/internal/testutil"
)

func TestPeek_ShortInput(t *testing.T) {
	inputs := [][]byte{
		nil,
		{},
		[]byte("\x7fELF"),
		[]byte("MZ"),
		[]byte("SYSB\x02\x00\x00\x00"),
		{0x00, 'a', 's', 'm', 0x01, 0x00, 0x00, 0x00},
		{0xcf, 0xfa, 0xed, 0xfe, 0x07, 0x00, 0x00, 0x01, 0x03, 0x00, 0x00, 0x00, 0x02, 0x00, 0x00},
	}
	for _, data := range inputs {
		assert.Equal(t, FormatUnknown, Peek(data, false), "%q", data)
		assert.Equal(t, FormatUnknown, Peek(data, true), "%q", data)
	}
}

func TestPeek_SingleObjectFormats(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want FileFormat
	}{
		{"elf", testutil.BuildELF(testutil.ELFLayout{}), FormatElf},
		{"pe", testutil.BuildPE(testutil.PELayout{}), FormatPe},
		{"pdb", testutil.BuildPDB(testutil.PDBLayout{Module: "main.obj", File: "main.c"}), FormatPdb},
		{"sourcebundle", testutil.BuildSourceBundle(testutil.SourceBundleLayout{
			Files: map[string]string{"/src/main.c": "int main;"},
		}), FormatSourceBundle},
		{"wasm", testutil.BuildWasm(testutil.WasmLayout{
			Functions: []testutil.WasmFunction{{Name: "main"}},
		}), FormatWasm},
		{"macho", testutil.BuildMachO(testutil.CPUTypeARM64), FormatMachO},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Peek(tt.data, false))
			assert.Equal(t, tt.want, Peek(tt.data, true))
			assert.Equal(t, tt.want, PeekArchive(tt.data))
		})
	}
}

func TestPeek_MachOByteOrders(t *testing.T) {
	for _, magic := range []uint32{machMagic, machCigam, machMagic64, machCigam64} {
		data := make([]byte, 32)
		binary.BigEndian.PutUint32(data, magic)
		assert.Equal(t, FormatMachO, Peek(data, false), "magic %#x", magic)
	}
}

func TestPeek_FatMachO(t *testing.T) {
	fat := testutil.BuildFatMachO(testutil.CPUTypeX86_64, testutil.CPUTypeARM64)

	assert.Equal(t, FormatUnknown, Peek(fat, false))
	assert.Equal(t, FormatMachO, Peek(fat, true))
}

func TestPeek_JavaClassIsNotFat(t *testing.T) {
	class := make([]byte, 64)
	binary.BigEndian.PutUint32(class[0:], machFatMagic)
	binary.BigEndian.PutUint32(class[4:], 52) // Java 8 major version

	assert.Equal(t, FormatUnknown, Peek(class, true))
}

func TestPeek_CorruptFatHeader(t *testing.T) {
	data := make([]byte, 32)
	binary.BigEndian.PutUint32(data[0:], machFatMagic)
	binary.BigEndian.PutUint32(data[4:], 2)

	assert.Equal(t, FormatUnknown, Peek(data, true))
}

func TestPeek_Deterministic(t *testing.T) {
	inputs := [][]byte{
		testutil.BuildELF(testutil.ELFLayout{BuildID: []byte{1, 2, 3, 4}}),
		testutil.BuildFatMachO(testutil.CPUTypeX86_64),
		[]byte("this is just some text, not an object"),
	}
	for _, data := range inputs {
		first := Peek(data, true)
		for i := 0; i < 3; i++ {
			assert.Equal(t, first, Peek(data, true))
		}
	}
}

func TestPeek_Garbage(t *testing.T) {
	assert.Equal(t, FormatUnknown, Peek([]byte("this is just some text, not an object"), true))
	assert.Equal(t, FormatUnknown, Peek(make([]byte, 128), true))

	// MZ without a PE header is not a PE image.
	dos := make([]byte, 128)
	copy(dos, "MZ")
	assert.Equal(t, FormatUnknown, Peek(dos, true))
}
