package pprofexport

import (
	"bytes"
	"testing"

	"github.com/google/pprof/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/declsite/internal/testutil"
	"github.com/coral-mesh/declsite/pkg/object"
)

func testObject(t *testing.T) *object.Object {
	t.Helper()
	obj, err := object.ParseObject(testutil.BuildPDB(testutil.PDBLayout{
		Age:     1,
		Machine: 0x8664,
		Module:  `C:\build\main.obj`,
		File:    `C:\src\main.cpp`,
		TextRVA: 0x1000,
		Functions: []testutil.PDBFunction{
			{Name: "run", Offset: 0x10, Length: 0x20, Lines: []testutil.PDBLine{{Offset: 0, Line: 7}, {Offset: 4, Line: 8}}},
			{Name: "stub", Offset: 0x40, Length: 0x8},
		},
	}))
	require.NoError(t, err)
	return obj
}

func buildProfile(t *testing.T) *Builder {
	t.Helper()
	obj := testObject(t)
	session, err := obj.DebugSession()
	require.NoError(t, err)

	b := NewBuilder(obj, "main.pdb")
	it := session.Functions()
	for it.Next() {
		fn, err := it.Function()
		require.NoError(t, err)
		b.Add(fn.Name, fn)
	}
	return b
}

func TestBuilder_Profile(t *testing.T) {
	b := buildProfile(t)
	assert.Equal(t, 2, b.Len())

	prof, err := b.Profile()
	require.NoError(t, err)

	require.Len(t, prof.SampleType, 1)
	assert.Equal(t, SampleType, prof.SampleType[0].Type)
	assert.Equal(t, SampleUnit, prof.SampleType[0].Unit)
	require.Len(t, prof.Mapping, 1)
	assert.Equal(t, "main.pdb", prof.Mapping[0].File)

	bySize := map[string]int64{}
	for _, s := range prof.Sample {
		require.Len(t, s.Location, 1)
		require.Len(t, s.Location[0].Line, 1)
		bySize[s.Location[0].Line[0].Function.Name] = s.Value[0]
	}
	assert.Equal(t, map[string]int64{"run": 0x20, "stub": 0x8}, bySize)

	for _, loc := range prof.Location {
		line := loc.Line[0]
		switch line.Function.Name {
		case "run":
			assert.Equal(t, uint64(0x1010), loc.Address)
			assert.Equal(t, int64(7), line.Line)
			assert.Equal(t, `C:\src\main.cpp`, line.Function.Filename)
			assert.Equal(t, int64(7), line.Function.StartLine)
		case "stub":
			assert.Zero(t, line.Line)
			assert.Empty(t, line.Function.Filename)
		}
	}
}

func TestBuilder_WriteParses(t *testing.T) {
	b := buildProfile(t)

	var buf bytes.Buffer
	require.NoError(t, b.Write(&buf))

	prof, err := profile.Parse(&buf)
	require.NoError(t, err)
	assert.Len(t, prof.Sample, 2)
	assert.Len(t, prof.Function, 2)
}

func TestBuilder_DeduplicatesFunctions(t *testing.T) {
	obj := testObject(t)
	b := NewBuilder(obj, "main.pdb")

	fn := &object.Function{Name: "dup", Address: 0x10, Size: 4}
	b.Add("dup", fn)
	b.Add("dup", &object.Function{Name: "dup", Address: 0x20, Size: 4})
	b.Add("ignored", nil)

	prof, err := b.Profile()
	require.NoError(t, err)
	assert.Len(t, prof.Sample, 2)
	assert.Len(t, prof.Location, 2)
	assert.Len(t, prof.Function, 1)
}

func TestEntryLine(t *testing.T) {
	_, ok := entryLine(&object.Function{})
	assert.False(t, ok)

	line, ok := entryLine(&object.Function{Lines: []object.Line{
		{Address: 0x20, Line: 3},
		{Address: 0x10, Line: 9},
		{Address: 0x10, Line: 1},
	}})
	require.True(t, ok)
	assert.Equal(t, uint64(9), line.Line)
}
