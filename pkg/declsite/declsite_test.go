package declsite

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/declsite/internal/demangle"
	"github.com/coral-mesh/declsite/internal/modules"
	"github.com/coral-mesh/declsite/internal/testutil"
	"github.com/coral-mesh/declsite/pkg/object"
)

const targetName = "github.com/coral-mesh/declsite/pkg/declsite.exampleTarget"

// executableOnly scans just the test binary.
func executableOnly() Option {
	return WithEnumerator(EnumeratorFunc(func() ([]Module, error) {
		return []Module{{}}, nil
	}))
}

func TestDeclarationOf_FindsTarget(t *testing.T) {
	testutil.RequireDebugInfo(t)
	s := NewScanner(WithLogger(testutil.NewTestLogger(t)))

	site, ok := s.DeclarationOf(exampleTarget)
	require.True(t, ok, "exampleTarget must be found in the test binary")

	file, line := testutil.EntryLine(t, exampleTarget)
	assert.Equal(t, "target_test.go", filepath.Base(site.File))
	assert.Equal(t, filepath.Base(file), filepath.Base(site.File))
	assert.EqualValues(t, line, site.Line)
	assert.True(t, strings.HasPrefix(site.String(), fmt.Sprintf("%s:%d", site.File, line)))
}

func TestDeclarationByName_MatchesDeclarationOf(t *testing.T) {
	testutil.RequireDebugInfo(t)
	s := NewScanner(executableOnly())

	byName, ok := s.DeclarationByName(targetName)
	require.True(t, ok)

	byValue, ok := s.DeclarationOf(exampleTarget)
	require.True(t, ok)

	assert.Equal(t, byName, byValue)
}

func TestDeclarationOf_MethodValue(t *testing.T) {
	testutil.RequireDebugInfo(t)
	w := &widget{}
	w.Increment()

	name, ok := FuncName(w.Increment)
	require.True(t, ok)
	assert.Equal(t, "github.com/coral-mesh/declsite/pkg/declsite.(*widget).Increment", name)

	site, ok := NewScanner(executableOnly()).DeclarationOf(w.Increment)
	require.True(t, ok)
	_, line := testutil.EntryLine(t, (*widget).Increment)
	assert.Equal(t, "target_test.go", filepath.Base(site.File))
	assert.EqualValues(t, line, site.Line)
}

func TestDeclarationOf_NotAFunction(t *testing.T) {
	s := NewScanner(executableOnly())

	_, ok := s.DeclarationOf(42)
	assert.False(t, ok)

	var nilFunc func()
	_, ok = s.DeclarationOf(nilFunc)
	assert.False(t, ok)

	_, ok = s.DeclarationOf(nil)
	assert.False(t, ok)
}

func TestDeclarationByName_NotFound(t *testing.T) {
	site, ok := DeclarationByName("github.com/coral-mesh/declsite/pkg/declsite.doesNotExist")
	assert.False(t, ok)
	assert.Equal(t, DeclarationSite{}, site)
}

func TestDeclarationByName_DemanglerDeclines(t *testing.T) {
	declineAll := demangle.Func(func(string, object.Language) (string, bool) {
		return "", false
	})

	_, ok := NewScanner(executableOnly(), WithDemangler(declineAll)).DeclarationByName(targetName)
	assert.False(t, ok)
}

func TestEach_BreakStopsAfterFirstFunction(t *testing.T) {
	visited := 0
	flow := NewScanner().Each(func(string, *object.Function) Flow {
		visited++
		return Break
	})

	assert.LessOrEqual(t, visited, 1)
	if visited == 1 {
		assert.Equal(t, Break, flow)
	} else {
		assert.Equal(t, Continue, flow)
	}
}

func TestEach_ContinueVisitsEverything(t *testing.T) {
	testutil.RequireDebugInfo(t)
	visited := 0
	flow := NewScanner(executableOnly()).Each(func(string, *object.Function) Flow {
		visited++
		return Continue
	})

	assert.Equal(t, Continue, flow)
	assert.Greater(t, visited, 1)
}

func TestScan_ReturnsHandlerValue(t *testing.T) {
	testutil.RequireDebugInfo(t)
	fn, ok := Scan(NewScanner(executableOnly()), func(name string, fn *object.Function) (*object.Function, Flow) {
		if name == targetName {
			return fn, Break
		}
		return nil, Continue
	})
	require.True(t, ok)
	require.NotNil(t, fn)

	assert.Equal(t, object.LangGo, fn.Language)
	assert.NotZero(t, fn.Size)
	require.NotEmpty(t, fn.Lines)
	assert.Equal(t, fn.Address, fn.Lines[0].Address)
}

func TestScan_NothingFound(t *testing.T) {
	result, ok := Scan(NewScanner(executableOnly()), func(string, *object.Function) (int, Flow) {
		return 1, Continue
	})
	assert.False(t, ok)
	assert.Zero(t, result)
}

func TestScan_SkipsBrokenModules(t *testing.T) {
	testutil.RequireDebugInfo(t)
	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.so")
	require.NoError(t, os.WriteFile(garbage, []byte("definitely not an object file"), 0o644))
	truncated := filepath.Join(dir, "truncated.so")
	require.NoError(t, os.WriteFile(truncated, []byte("\x7fELF\x02\x01\x01\x00\x00\x00\x00\x00\x00\x00\x00\x00\x03"), 0o644))

	enumerator := EnumeratorFunc(func() ([]Module, error) {
		return []Module{
			{Path: filepath.Join(dir, "missing.so")},
			{Path: garbage},
			{Path: truncated},
			{Path: dir},
			{},
		}, nil
	})

	site, ok := NewScanner(WithEnumerator(enumerator), WithLogger(testutil.NewTestLogger(t))).
		DeclarationOf(exampleTarget)
	require.True(t, ok)
	_, line := testutil.EntryLine(t, exampleTarget)
	assert.EqualValues(t, line, site.Line)
}

func TestScan_EnumeratorErrorKeepsPartialList(t *testing.T) {
	testutil.RequireDebugInfo(t)
	enumerator := EnumeratorFunc(func() ([]Module, error) {
		return []Module{{}}, errors.New("module list truncated")
	})

	_, ok := NewScanner(WithEnumerator(enumerator)).DeclarationOf(exampleTarget)
	assert.True(t, ok)
}

func TestScan_PrefersDebugPath(t *testing.T) {
	exe := testutil.RequireDebugInfo(t)

	enumerator := EnumeratorFunc(func() ([]Module, error) {
		return []Module{{Path: filepath.Join(t.TempDir(), "stripped"), DebugPath: exe}}, nil
	})

	_, ok := NewScanner(WithEnumerator(enumerator)).DeclarationOf(exampleTarget)
	assert.True(t, ok)
}

func TestScan_Files(t *testing.T) {
	exe := testutil.RequireDebugInfo(t)

	_, ok := NewScanner(WithEnumerator(Files(exe)), WithoutDebugFiles()).DeclarationOf(exampleTarget)
	assert.True(t, ok)
}

func TestScan_BrokenLineProgramKeepsLaterUnits(t *testing.T) {
	sections := testutil.BuildDwarf(
		testutil.DwarfUnit{
			Name:      "bad.c",
			Language:  testutil.DwarfLangC99,
			StmtList:  0x1000,
			Functions: []testutil.DwarfFunction{{Name: "bad", Low: 0x10, Size: 0x10}},
		},
		testutil.DwarfUnit{
			Name:      "good.c",
			Language:  testutil.DwarfLangC99,
			File:      "/src/good.c",
			Rows:      []testutil.DwarfRow{{Address: 0x20, Line: 10}, {Address: 0x28, Line: 12}},
			End:       0x30,
			Functions: []testutil.DwarfFunction{{Name: "good", Low: 0x20, Size: 0x10}},
		},
	)
	path := filepath.Join(t.TempDir(), "module.wasm")
	data := testutil.BuildWasm(testutil.WasmLayout{Custom: sections.WasmSections()})
	require.NoError(t, os.WriteFile(path, data, 0o644))

	// A large mapped data file ahead of the module is skipped from its header.
	dataFile := filepath.Join(t.TempDir(), "locale-archive")
	f, err := os.Create(dataFile)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(modules.MaxModuleSize+1))
	require.NoError(t, f.Close())

	s := NewScanner(WithEnumerator(Files(dataFile, path)), WithoutDebugFiles(), WithLogger(testutil.NewTestLogger(t)))

	site, ok := s.DeclarationByName("good")
	require.True(t, ok)
	assert.Equal(t, DeclarationSite{File: "/src/good.c", Line: 10}, site)

	_, ok = s.DeclarationByName("bad")
	assert.False(t, ok)
}
