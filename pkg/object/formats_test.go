package object

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/declsite/internal/pdb"
	"github.com/coral-mesh/declsite/internal/testutil"
)

var testGUID = [16]byte{
	0x33, 0x22, 0x11, 0x00, 0x55, 0x44, 0x77, 0x66,
	0x88, 0x99, 0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff,
}

const testGUIDString = "00112233-4455-6677-8899-aabbccddeeff"

func parseTestObject(t *testing.T, data []byte) *Object {
	t.Helper()
	obj, err := ParseObject(data)
	require.NoError(t, err)
	return obj
}

func collectFunctions(t *testing.T, session *DebugSession) []*Function {
	t.Helper()
	var out []*Function
	it := session.Functions()
	for it.Next() {
		fn, err := it.Function()
		require.NoError(t, err)
		out = append(out, fn)
	}
	return out
}

func collectFiles(t *testing.T, session *DebugSession) []string {
	t.Helper()
	var out []string
	it := session.Files()
	for it.Next() {
		file, err := it.File()
		require.NoError(t, err)
		out = append(out, file.AbsPath())
	}
	return out
}

func TestElfObject(t *testing.T) {
	buildID := []byte{
		0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a,
		0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10, 0x11, 0x12, 0x13, 0x14,
	}
	obj := parseTestObject(t, testutil.BuildELF(testutil.ELFLayout{
		BuildID:   buildID,
		DebugLink: "app.debug",
		LinkCRC:   0xdeadbeef,
	}))

	assert.Equal(t, FormatElf, obj.FileFormat())
	assert.Equal(t, ArchAmd64, obj.Arch())
	assert.Equal(t, KindExecutable, obj.Kind())
	assert.Equal(t, CodeID("0102030405060708090a0b0c0d0e0f1011121314"), obj.CodeID())
	assert.Equal(t, "04030201-0605-0807-090a-0b0c0d0e0f10", obj.DebugID().String())
	assert.Equal(t, uint64(0), obj.LoadAddress())
	assert.False(t, obj.HasSymbols())
	assert.False(t, obj.HasDebugInfo())
	assert.False(t, obj.HasUnwindInfo())
	assert.False(t, obj.HasSources())
	assert.False(t, obj.IsMalformed())

	hints := obj.DebugFileHints()
	assert.Equal(t, buildID, hints.BuildID)
	assert.Equal(t, "app.debug", hints.DebugLink)
	assert.Equal(t, uint32(0xdeadbeef), hints.DebugLinkCRC)

	session, err := obj.DebugSession()
	require.NoError(t, err)
	assert.Equal(t, SessionDwarf, session.Kind())
	assert.Empty(t, collectFunctions(t, session))
	assert.Empty(t, collectFiles(t, session))
}

func TestElfObject_Kinds(t *testing.T) {
	tests := []struct {
		elfType uint16
		want    Kind
	}{
		{1, KindRelocatable},
		{2, KindExecutable},
		{3, KindLibrary},
		{4, KindDump},
	}
	for _, tt := range tests {
		obj := parseTestObject(t, testutil.BuildELF(testutil.ELFLayout{Type: tt.elfType}))
		assert.Equal(t, tt.want, obj.Kind(), "e_type %d", tt.elfType)
	}
}

func TestElfObject_Machines(t *testing.T) {
	tests := []struct {
		machine uint16
		want    Arch
	}{
		{62, ArchAmd64},
		{183, ArchArm64},
		{243, ArchRiscv64},
		{0x9999, ArchUnknown},
	}
	for _, tt := range tests {
		obj := parseTestObject(t, testutil.BuildELF(testutil.ELFLayout{Machine: tt.machine}))
		assert.Equal(t, tt.want, obj.Arch(), "e_machine %d", tt.machine)
	}
}

func TestElfObject_NoBuildID(t *testing.T) {
	obj := parseTestObject(t, testutil.BuildELF(testutil.ELFLayout{}))
	assert.True(t, obj.CodeID().IsNil())
	assert.True(t, obj.DebugID().IsNil())
	assert.Equal(t, DebugFileHints{}, obj.DebugFileHints())
}

func TestPeObject(t *testing.T) {
	obj := parseTestObject(t, testutil.BuildPE(testutil.PELayout{
		TimeDateStamp: 0x5f3e1234,
		ImageBase:     0x140000000,
		DLL:           true,
		GUID:          testGUID,
		Age:           3,
		PdbPath:       `C:\build\app.pdb`,
	}))

	assert.Equal(t, FormatPe, obj.FileFormat())
	assert.Equal(t, ArchAmd64, obj.Arch())
	assert.Equal(t, KindLibrary, obj.Kind())
	assert.Equal(t, CodeID("5f3e12342000"), obj.CodeID())
	assert.Equal(t, testGUIDString+"-3", obj.DebugID().String())
	assert.Equal(t, uint64(0x140000000), obj.LoadAddress())
	assert.False(t, obj.HasDebugInfo())
	assert.False(t, obj.HasUnwindInfo())
	assert.False(t, obj.IsMalformed())
	assert.Equal(t, `C:\build\app.pdb`, obj.DebugFileHints().PdbPath)

	session, err := obj.DebugSession()
	require.NoError(t, err)
	assert.Equal(t, SessionPe, session.Kind())
	assert.Empty(t, collectFunctions(t, session))

	text, ok, err := session.SourceByPath("main.c")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, text)
}

func TestPeObject_Executable(t *testing.T) {
	obj := parseTestObject(t, testutil.BuildPE(testutil.PELayout{Machine: 0xaa64}))
	assert.Equal(t, KindExecutable, obj.Kind())
	assert.Equal(t, ArchArm64, obj.Arch())
	assert.True(t, obj.DebugID().IsNil())
	assert.Empty(t, obj.DebugFileHints().PdbPath)
}

func testPDBLayout() testutil.PDBLayout {
	return testutil.PDBLayout{
		GUID:     testGUID,
		Age:      2,
		Machine:  0x8664,
		Language: pdb.LangCpp,
		Module:   `C:\build\main.obj`,
		File:     `C:\src\app.cpp`,
		TextRVA:  0x1000,
		Functions: []testutil.PDBFunction{
			{
				Name:   "app::first",
				Offset: 0x10,
				Length: 0x20,
				Lines:  []testutil.PDBLine{{Offset: 0, Line: 10}, {Offset: 8, Line: 11}, {Offset: 0x10, Line: 13}},
			},
			{
				Name:   "second",
				Offset: 0x40,
				Length: 0x10,
				Lines:  []testutil.PDBLine{{Offset: 0, Line: 20}},
			},
			{
				Name:   "no_lines",
				Offset: 0x60,
				Length: 0x4,
			},
		},
		PublicOnly: []string{"__security_cookie_check"},
	}
}

func TestPdbObject(t *testing.T) {
	obj := parseTestObject(t, testutil.BuildPDB(testPDBLayout()))

	assert.Equal(t, FormatPdb, obj.FileFormat())
	assert.Equal(t, KindDebug, obj.Kind())
	assert.Equal(t, ArchAmd64, obj.Arch())
	assert.Equal(t, testGUIDString+"-2", obj.DebugID().String())
	assert.True(t, obj.CodeID().IsNil())
	assert.True(t, obj.HasDebugInfo())
	assert.True(t, obj.HasSymbols())

	symbols := obj.SymbolMap()
	assert.Equal(t, 4, symbols.Len())
	sym, ok := symbols.Lookup(0x1048)
	require.True(t, ok)
	assert.Equal(t, "second", sym.Name)

	session, err := obj.DebugSession()
	require.NoError(t, err)
	assert.Equal(t, SessionPdb, session.Kind())

	fns := collectFunctions(t, session)
	require.Len(t, fns, 3)

	first := fns[0]
	assert.Equal(t, "app::first", first.Name)
	assert.Equal(t, uint64(0x1010), first.Address)
	assert.Equal(t, uint64(0x20), first.Size)
	assert.Equal(t, LangCpp, first.Language)
	require.Len(t, first.Lines, 3)
	assert.Equal(t, uint64(0x1010), first.Lines[0].Address)
	assert.Equal(t, uint64(8), first.Lines[0].Size)
	assert.Equal(t, uint64(10), first.Lines[0].Line)
	assert.Equal(t, `C:\src\app.cpp`, first.Lines[0].File.Path())
	assert.Equal(t, uint64(0x10), first.Lines[2].Size)
	assert.Equal(t, uint64(13), first.Lines[2].Line)

	second := fns[1]
	assert.Equal(t, uint64(0x1040), second.Address)
	require.Len(t, second.Lines, 1)
	assert.Equal(t, uint64(20), second.Lines[0].Line)
	assert.Equal(t, uint64(0x10), second.Lines[0].Size)

	assert.Empty(t, fns[2].Lines)

	assert.Equal(t, []string{`C:\src\app.cpp`}, collectFiles(t, session))
}

func TestPdbObject_Truncated(t *testing.T) {
	data := testutil.BuildPDB(testPDBLayout())
	_, err := ParseObject(data[:600])
	require.Error(t, err)
	assert.False(t, IsUnsupported(err))
}

func testWasmLayout() testutil.WasmLayout {
	return testutil.WasmLayout{
		BuildID:       []byte{0xde, 0xad, 0xbe, 0xef},
		ImportedFuncs: 1,
		Functions: []testutil.WasmFunction{
			{Name: "main"},
			{Name: "helper", Body: []byte{0x00, 0x41, 0x2a, 0x1a, 0x0b}},
			{},
		},
	}
}

func TestWasmObject(t *testing.T) {
	layout := testWasmLayout()
	obj := parseTestObject(t, testutil.BuildWasm(layout))

	assert.Equal(t, FormatWasm, obj.FileFormat())
	assert.Equal(t, ArchWasm32, obj.Arch())
	assert.Equal(t, KindLibrary, obj.Kind())
	assert.Equal(t, CodeID("deadbeef"), obj.CodeID())
	assert.Equal(t, "efbeadde-0000-0000-0000-000000000000", obj.DebugID().String())
	assert.False(t, obj.HasDebugInfo())
	assert.False(t, obj.IsMalformed())
	assert.True(t, obj.HasSymbols())

	offsets := testutil.WasmCodeOffsets(layout)
	var symbols []Symbol
	it := obj.Symbols()
	assert.Equal(t, 2, it.Len())
	for it.Next() {
		symbols = append(symbols, it.Symbol())
	}
	assert.Equal(t, []Symbol{
		{Name: "main", Address: offsets[0], Size: 2},
		{Name: "helper", Address: offsets[1], Size: 5},
	}, symbols)

	session, err := obj.DebugSession()
	require.NoError(t, err)
	assert.Equal(t, SessionDwarf, session.Kind())
	assert.Empty(t, collectFunctions(t, session))
}

func TestWasmObject_BrokenNameSection(t *testing.T) {
	obj := parseTestObject(t, testutil.BuildWasm(testutil.WasmLayout{
		Functions: []testutil.WasmFunction{{}},
		Custom:    []testutil.WasmCustomSection{{Name: "name", Data: []byte{0x01, 0x05, 0x01}}},
	}))

	assert.True(t, obj.IsMalformed())
	assert.False(t, obj.HasSymbols())
	assert.True(t, obj.CodeID().IsNil())
}

func TestMachOObject(t *testing.T) {
	obj := parseTestObject(t, testutil.BuildMachO(testutil.CPUTypeARM64))

	assert.Equal(t, FormatMachO, obj.FileFormat())
	assert.Equal(t, ArchArm64, obj.Arch())
	assert.Equal(t, KindExecutable, obj.Kind())
	assert.True(t, obj.CodeID().IsNil())
	assert.False(t, obj.HasDebugInfo())

	session, err := obj.DebugSession()
	require.NoError(t, err)
	assert.Equal(t, SessionDwarf, session.Kind())
	assert.Empty(t, collectFunctions(t, session))
}

func testBundleLayout() testutil.SourceBundleLayout {
	return testutil.SourceBundleLayout{
		Files: map[string]string{
			"/src/app/main.go": "package main\n",
			`C:\src\win.c`:     "int x;\n",
		},
		Attributes: map[string]string{
			AttrArch:       "x86_64",
			AttrDebugID:    testGUIDString + "-2",
			AttrCodeID:     "5F3E12342000",
			AttrObjectName: "app.exe",
		},
	}
}

func TestSourceBundleObject(t *testing.T) {
	obj := parseTestObject(t, testutil.BuildSourceBundle(testBundleLayout()))

	assert.Equal(t, FormatSourceBundle, obj.FileFormat())
	assert.Equal(t, KindSources, obj.Kind())
	assert.Equal(t, ArchAmd64, obj.Arch())
	assert.Equal(t, CodeID("5f3e12342000"), obj.CodeID())
	assert.Equal(t, testGUIDString+"-2", obj.DebugID().String())
	assert.True(t, obj.HasSources())
	assert.False(t, obj.HasDebugInfo())
	assert.False(t, obj.HasSymbols())

	session, err := obj.DebugSession()
	require.NoError(t, err)
	assert.Equal(t, SessionSourceBundle, session.Kind())
	assert.Empty(t, collectFunctions(t, session))
	assert.Equal(t, []string{"/src/app/main.go", `C:\src\win.c`}, collectFiles(t, session))

	text, ok, err := session.SourceByPath("/src/app/main.go")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "package main\n", text)

	text, ok, err = session.SourceByPath("C:/src/win.c")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "int x;\n", text)

	text, ok, err = session.SourceByPath("/src/app/missing.go")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, text)
}

func TestSourceBundleObject_UnsupportedVersion(t *testing.T) {
	layout := testBundleLayout()
	layout.Version = 3

	_, err := ParseObject(testutil.BuildSourceBundle(layout))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "version 3")
}
