package object

import (
	"archive/zip"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
)

// SourceBundleWriter writes a source bundle: the bundle header followed by
// a zip archive holding the source files and a manifest.
//
//	w := object.NewSourceBundleWriter(out)
//	if _, err := w.WriteObject(obj, "app"); err != nil {
//		...
//	}
type SourceBundleWriter struct {
	zip       *zip.Writer
	manifest  bundleManifest
	names     map[string]bool
	readFile  func(string) ([]byte, error)
	headerErr error
	finished  bool
}

// NewSourceBundleWriter writes the bundle header to w and prepares the archive.
func NewSourceBundleWriter(w io.Writer) *SourceBundleWriter {
	header := make([]byte, sourceBundleHeaderSize)
	copy(header, sourceBundleMagic)
	binary.LittleEndian.PutUint32(header[4:], sourceBundleVersion)
	_, err := w.Write(header)

	return &SourceBundleWriter{
		zip: zip.NewWriter(w),
		manifest: bundleManifest{
			Files:      map[string]bundleFile{},
			Attributes: map[string]string{},
		},
		names:     map[string]bool{},
		readFile:  os.ReadFile,
		headerErr: err,
	}
}

// SetAttribute records a manifest attribute. Empty values remove the key.
func (w *SourceBundleWriter) SetAttribute(key, value string) {
	if value == "" {
		delete(w.manifest.Attributes, key)
		return
	}
	w.manifest.Attributes[key] = value
}

// AddFile stores the contents of the file at path.
func (w *SourceBundleWriter) AddFile(path string, contents []byte) error {
	if w.headerErr != nil {
		return fmt.Errorf("failed to write source bundle header: %w", w.headerErr)
	}
	if w.finished {
		return errors.New("source bundle already finished")
	}
	name := w.entryName(path)
	f, err := w.zip.Create(name)
	if err != nil {
		return fmt.Errorf("failed to add %s to source bundle: %w", path, err)
	}
	if _, err := f.Write(contents); err != nil {
		return fmt.Errorf("failed to add %s to source bundle: %w", path, err)
	}
	w.manifest.Files[name] = bundleFile{Type: "source", Path: path}
	return nil
}

// entryName maps a source path to a unique zip entry below files/.
func (w *SourceBundleWriter) entryName(p string) string {
	clean := strings.TrimLeft(strings.ReplaceAll(p, `\`, "/"), "/")
	if len(clean) >= 2 && clean[1] == ':' {
		clean = clean[:1] + clean[2:]
	}
	base := bundleFilesPrefix + path.Clean(clean)
	name := base
	for i := 1; w.names[name]; i++ {
		name = fmt.Sprintf("%s.%d", base, i)
	}
	w.names[name] = true
	return name
}

// WriteObject records the identity of obj and adds every source file its
// debug information references. Files that cannot be read are skipped. It
// reports whether any file was added, and finishes the bundle.
func (w *SourceBundleWriter) WriteObject(obj *Object, objectName string) (bool, error) {
	session, err := obj.DebugSession()
	if err != nil {
		return false, err
	}

	w.SetAttribute(AttrArch, obj.Arch().String())
	if id := obj.DebugID(); !id.IsNil() {
		w.SetAttribute(AttrDebugID, id.String())
	}
	w.SetAttribute(AttrCodeID, obj.CodeID().String())
	w.SetAttribute(AttrObjectName, objectName)

	written := false
	seen := map[string]bool{}
	files := session.Files()
	for files.Next() {
		entry, err := files.File()
		if err != nil {
			continue
		}
		p := entry.AbsPath()
		if seen[p] {
			continue
		}
		seen[p] = true

		contents, err := w.readFile(p)
		if err != nil {
			continue
		}
		if err := w.AddFile(p, contents); err != nil {
			return written, err
		}
		written = true
	}
	return written, w.Finish()
}

// Finish writes the manifest and closes the archive. The underlying
// writer is not closed.
func (w *SourceBundleWriter) Finish() error {
	if w.finished {
		return nil
	}
	if w.headerErr != nil {
		return fmt.Errorf("failed to write source bundle header: %w", w.headerErr)
	}
	w.finished = true

	manifest, err := json.Marshal(w.manifest)
	if err != nil {
		return fmt.Errorf("failed to encode source bundle manifest: %w", err)
	}
	f, err := w.zip.Create(manifestName)
	if err != nil {
		return fmt.Errorf("failed to write source bundle manifest: %w", err)
	}
	if _, err := f.Write(manifest); err != nil {
		return fmt.Errorf("failed to write source bundle manifest: %w", err)
	}
	return w.zip.Close()
}
