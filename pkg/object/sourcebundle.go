package object

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"sort"
	"strings"
)

const (
	sourceBundleVersion    = 2
	sourceBundleHeaderSize = 8
	manifestName           = "manifest.json"
	bundleFilesPrefix      = "files/"

	// Manifest attribute keys.
	AttrArch       = "arch"
	AttrDebugID    = "debug_id"
	AttrCodeID     = "code_id"
	AttrObjectName = "object_name"
)

// bundleManifest is the manifest.json of a source bundle.
type bundleManifest struct {
	Files      map[string]bundleFile `json:"files"`
	Attributes map[string]string     `json:"attributes,omitempty"`
}

// bundleFile describes one file of the bundle, keyed by its zip path.
type bundleFile struct {
	Type string `json:"type"`
	Path string `json:"path,omitempty"`
	URL  string `json:"url,omitempty"`
}

type sourceBundleObject struct {
	zip      *zip.Reader
	manifest bundleManifest
	// byPath maps original source paths to zip entry names.
	byPath map[string]string
}

func parseSourceBundle(data []byte) (*sourceBundleObject, error) {
	if len(data) < sourceBundleHeaderSize || !testSourceBundle(data) {
		return nil, fmt.Errorf("invalid source bundle header")
	}
	if v := binary.LittleEndian.Uint32(data[4:8]); v == 0 || v > sourceBundleVersion {
		return nil, fmt.Errorf("unsupported source bundle version %d", v)
	}

	payload := data[sourceBundleHeaderSize:]
	zr, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return nil, fmt.Errorf("failed to open source bundle archive: %w", err)
	}

	obj := &sourceBundleObject{zip: zr, byPath: map[string]string{}}
	raw, err := obj.readEntry(manifestName)
	if err != nil {
		return nil, fmt.Errorf("failed to read source bundle manifest: %w", err)
	}
	if err := json.Unmarshal(raw, &obj.manifest); err != nil {
		return nil, fmt.Errorf("failed to decode source bundle manifest: %w", err)
	}
	for name, file := range obj.manifest.Files {
		if file.Path != "" {
			obj.byPath[file.Path] = name
		}
	}
	return obj, nil
}

func (o *sourceBundleObject) readEntry(name string) ([]byte, error) {
	for _, zf := range o.zip.File {
		if zf.Name != name {
			continue
		}
		rc, err := zf.Open()
		if err != nil {
			return nil, err
		}
		defer func() { _ = rc.Close() }()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("%s: %w", name, fs.ErrNotExist)
}

func (o *sourceBundleObject) attribute(key string) string {
	return o.manifest.Attributes[key]
}

func (o *sourceBundleObject) codeID() CodeID {
	return NewCodeID(o.attribute(AttrCodeID))
}

func (o *sourceBundleObject) debugID() DebugID {
	id, err := ParseDebugID(o.attribute(AttrDebugID))
	if err != nil {
		return NilDebugID
	}
	return id
}

func (o *sourceBundleObject) arch() Arch { return ParseArch(o.attribute(AttrArch)) }

func (o *sourceBundleObject) kind() Kind { return KindSources }

func (o *sourceBundleObject) loadAddress() uint64 { return 0 }

func (o *sourceBundleObject) hasSymbols() bool { return false }

func (o *sourceBundleObject) symbols() []Symbol { return nil }

func (o *sourceBundleObject) hasDebugInfo() bool { return false }

func (o *sourceBundleObject) hasUnwindInfo() bool { return false }

func (o *sourceBundleObject) hasSources() bool { return true }

func (o *sourceBundleObject) isMalformed() bool { return false }

func (o *sourceBundleObject) debugSession() (*DebugSession, error) {
	return newDebugSession(SessionSourceBundle, &sourceBundleSession{bundle: o}), nil
}

type sourceBundleSession struct {
	bundle *sourceBundleObject
}

// functions is empty: bundles carry sources, not functions.
func (s *sourceBundleSession) functions() functionSource {
	return &sliceFunctions{}
}

func (s *sourceBundleSession) files() fileSource {
	paths := make([]string, 0, len(s.bundle.byPath))
	for path := range s.bundle.byPath {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	files := make([]FileEntry, 0, len(paths))
	for _, path := range paths {
		files = append(files, FileEntry{Info: newFileInfo(path)})
	}
	return &sliceFiles{files: files}
}

func (s *sourceBundleSession) sourceByPath(path string) (string, bool, error) {
	name, ok := s.bundle.byPath[path]
	if !ok {
		// Bundles written on Windows may use either separator.
		name, ok = s.bundle.byPath[strings.ReplaceAll(path, "/", `\`)]
		if !ok {
			return "", false, nil
		}
	}
	if s.bundle.manifest.Files[name].Type != "" && s.bundle.manifest.Files[name].Type != "source" {
		return "", false, nil
	}
	b, err := s.bundle.readEntry(name)
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s from source bundle: %w", path, err)
	}
	return string(b), true, nil
}
