package object

import (
	"sort"
	"strings"
)

// FileInfo references a source file by directory and name. The encoding of
// both parts depends on the object format; either may be empty.
type FileInfo struct {
	Dir  string
	Name string
}

// newFileInfo splits a path at its last separator.
func newFileInfo(path string) FileInfo {
	idx := strings.LastIndexAny(path, `/\`)
	if idx < 0 {
		return FileInfo{Name: path}
	}
	if idx == 0 {
		return FileInfo{Dir: path[:1], Name: path[1:]}
	}
	return FileInfo{Dir: path[:idx], Name: path[idx+1:]}
}

// Path joins the directory and name.
func (f FileInfo) Path() string {
	return joinPath(f.Dir, f.Name)
}

// FileEntry is a source file referenced by debug information, together
// with the compilation directory of the unit that referenced it.
type FileEntry struct {
	CompDir string
	Info    FileInfo
}

// AbsPath resolves the file against its compilation directory.
func (f FileEntry) AbsPath() string {
	return joinPath(f.CompDir, f.Info.Path())
}

// Line maps a range of code addresses to a source location.
type Line struct {
	Address uint64
	Size    uint64
	File    FileInfo
	Line    uint64
	// Column is zero when the format does not record columns.
	Column uint64
}

// Function is a subprogram record from debug information.
//
// Lines are ordered by address and include the code of functions inlined
// into this one. Inlined call sites are additionally listed in Inlinees.
type Function struct {
	Address  uint64
	Size     uint64
	Name     string
	Language Language
	CompDir  string
	Lines    []Line
	Inlinees []Function
	Inline   bool
}

// EndAddress is the first address past the function.
func (f *Function) EndAddress() uint64 {
	return f.Address + f.Size
}

func sortLines(lines []Line) {
	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].Address < lines[j].Address
	})
}

// joinPath joins a directory and a name using the separator style of the
// directory. Absolute names are returned unchanged.
func joinPath(dir, name string) string {
	if dir == "" {
		return name
	}
	if name == "" {
		return dir
	}
	if isAbsPath(name) {
		return name
	}
	sep := "/"
	if strings.Contains(dir, `\`) && !strings.Contains(dir, "/") {
		sep = `\`
	}
	if strings.HasSuffix(dir, sep) {
		return dir + name
	}
	return dir + sep + name
}

func isAbsPath(p string) bool {
	if strings.HasPrefix(p, "/") || strings.HasPrefix(p, `\`) {
		return true
	}
	// Windows drive letter.
	return len(p) >= 3 && p[1] == ':' && (p[2] == '\\' || p[2] == '/')
}
