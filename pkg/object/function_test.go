package object

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFileInfo_Path(t *testing.T) {
	tests := []struct {
		info FileInfo
		want string
	}{
		{FileInfo{Dir: "/src", Name: "main.c"}, "/src/main.c"},
		{FileInfo{Dir: "/src/", Name: "main.c"}, "/src/main.c"},
		{FileInfo{Dir: "/src", Name: "/abs/main.c"}, "/abs/main.c"},
		{FileInfo{Dir: `C:\src`, Name: "main.c"}, `C:\src\main.c`},
		{FileInfo{Dir: `C:\src`, Name: `D:\other\x.c`}, `D:\other\x.c`},
		{FileInfo{Name: "main.c"}, "main.c"},
		{FileInfo{Dir: "/src"}, "/src"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.info.Path())
	}
}

func TestNewFileInfo(t *testing.T) {
	assert.Equal(t, FileInfo{Dir: "/src/app", Name: "main.go"}, newFileInfo("/src/app/main.go"))
	assert.Equal(t, FileInfo{Dir: "/", Name: "main.go"}, newFileInfo("/main.go"))
	assert.Equal(t, FileInfo{Dir: `C:\src`, Name: "app.cpp"}, newFileInfo(`C:\src\app.cpp`))
	assert.Equal(t, FileInfo{Name: "main.go"}, newFileInfo("main.go"))
}

func TestFileEntry_AbsPath(t *testing.T) {
	entry := FileEntry{CompDir: "/build", Info: FileInfo{Dir: "src", Name: "lib.rs"}}
	assert.Equal(t, "/build/src/lib.rs", entry.AbsPath())

	entry = FileEntry{CompDir: "/build", Info: FileInfo{Dir: "/usr/include", Name: "stdio.h"}}
	assert.Equal(t, "/usr/include/stdio.h", entry.AbsPath())
}

func TestSortLines_Stable(t *testing.T) {
	lines := []Line{
		{Address: 0x20, Line: 3},
		{Address: 0x10, Line: 1},
		{Address: 0x20, Line: 4},
		{Address: 0x10, Line: 2},
	}
	sortLines(lines)
	got := make([]uint64, 0, len(lines))
	for _, l := range lines {
		got = append(got, l.Line)
	}
	assert.Equal(t, []uint64{1, 2, 3, 4}, got)
}

func TestFunction_EndAddress(t *testing.T) {
	fn := &Function{Address: 0x1000, Size: 0x20}
	assert.Equal(t, uint64(0x1020), fn.EndAddress())
}

func TestSymbolMap(t *testing.T) {
	m := NewSymbolMap([]Symbol{
		{Name: "c", Address: 0x300},
		{Name: "a", Address: 0x100},
		{Name: "b", Address: 0x200, Size: 0x10},
	})

	assert.Equal(t, 3, m.Len())
	assert.Equal(t, []Symbol{
		{Name: "a", Address: 0x100, Size: 0x100},
		{Name: "b", Address: 0x200, Size: 0x10},
		{Name: "c", Address: 0x300},
	}, m.Symbols())

	sym, ok := m.Lookup(0x1ff)
	assert.True(t, ok)
	assert.Equal(t, "a", sym.Name)

	_, ok = m.Lookup(0x210)
	assert.False(t, ok, "gap after a sized symbol")

	sym, ok = m.Lookup(0x300)
	assert.True(t, ok)
	assert.Equal(t, "c", sym.Name)

	_, ok = m.Lookup(0x301)
	assert.False(t, ok)

	_, ok = m.Lookup(0x50)
	assert.False(t, ok)
}
