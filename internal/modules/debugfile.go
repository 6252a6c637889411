package modules

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/coral-mesh/declsite/pkg/object"
)

// DefaultDebugDirectories are searched for separate debug files when no
// directories are configured.
var DefaultDebugDirectories = []string{"/usr/lib/debug"}

// Resolver locates separate debug files for modules whose own file carries
// no debug information.
type Resolver struct {
	dirs     []string
	logger   zerolog.Logger
	readFile func(string) ([]byte, error)
	stat     func(string) (os.FileInfo, error)
}

// NewResolver creates a resolver searching dirs, or DefaultDebugDirectories
// when dirs is empty.
func NewResolver(dirs []string, logger zerolog.Logger) *Resolver {
	if len(dirs) == 0 {
		dirs = DefaultDebugDirectories
	}
	return &Resolver{
		dirs:     dirs,
		logger:   logger.With().Str("component", "modules").Logger(),
		readFile: ReadObjectFile,
		stat:     os.Stat,
	}
}

// ResolveDebugPaths fills DebugPath for every descriptor with an existing
// separate debug file. Descriptors are updated in place and returned.
func (r *Resolver) ResolveDebugPaths(descs []Descriptor) []Descriptor {
	for i := range descs {
		if descs[i].DebugPath != "" {
			continue
		}
		path := descs[i].Path
		if path == "" {
			exe, err := os.Executable()
			if err != nil {
				continue
			}
			path = exe
		}
		if debugPath, ok := r.resolve(path); ok {
			r.logger.Debug().
				Str("module", path).
				Str("debug_file", debugPath).
				Msg("Using separate debug file")
			descs[i].DebugPath = debugPath
		}
	}
	return descs
}

func (r *Resolver) resolve(path string) (string, bool) {
	data, err := r.readFile(path)
	if err != nil {
		return "", false
	}
	archive, err := object.ParseArchive(data)
	if err != nil {
		return "", false
	}
	return r.DebugFileFor(path, archive)
}

// DebugFileFor returns the separate debug file for the module at path,
// whose contents are already parsed into archive. Modules that carry their
// own debug information resolve to nothing.
func (r *Resolver) DebugFileFor(path string, archive *object.Archive) (string, bool) {
	if dsym := dsymPath(path); r.isFile(dsym) {
		return dsym, true
	}
	if archive.IsMulti() {
		return "", false
	}
	obj, err := archive.ObjectByIndex(0)
	if err != nil || obj.HasDebugInfo() {
		return "", false
	}

	for _, candidate := range r.candidates(path, obj.DebugFileHints()) {
		if candidate != path && r.isFile(candidate) {
			return candidate, true
		}
	}
	return "", false
}

// candidates lists debug file locations in lookup order: build-id
// directories, debuglink locations, then the CodeView PDB path.
func (r *Resolver) candidates(path string, hints object.DebugFileHints) []string {
	var out []string
	if len(hints.BuildID) >= 2 {
		id := hex.EncodeToString(hints.BuildID)
		for _, dir := range r.dirs {
			out = append(out, filepath.Join(dir, ".build-id", id[:2], id[2:]+".debug"))
		}
	}
	if hints.DebugLink != "" {
		dir := filepath.Dir(path)
		out = append(out,
			filepath.Join(dir, hints.DebugLink),
			filepath.Join(dir, ".debug", hints.DebugLink),
		)
		for _, debugDir := range r.dirs {
			out = append(out, filepath.Join(debugDir, dir, hints.DebugLink))
		}
	}
	if hints.PdbPath != "" {
		out = append(out, hints.PdbPath, filepath.Join(filepath.Dir(path), pdbBaseName(hints.PdbPath)))
	}
	return out
}

func (r *Resolver) isFile(path string) bool {
	info, err := r.stat(path)
	return err == nil && info.Mode().IsRegular()
}

// dsymPath returns the DWARF file inside the dSYM bundle next to path.
func dsymPath(path string) string {
	return filepath.Join(path+".dSYM", "Contents", "Resources", "DWARF", filepath.Base(path))
}

// pdbBaseName returns the file name of a PDB path written on either platform.
func pdbBaseName(path string) string {
	if idx := strings.LastIndexAny(path, `/\`); idx >= 0 {
		return path[idx+1:]
	}
	return path
}
