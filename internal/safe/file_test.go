package safe

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func TestReadFile(t *testing.T) {
	t.Run("reads regular file", func(t *testing.T) {
		tmpDir := t.TempDir()
		src := filepath.Join(tmpDir, "source.txt")
		content := []byte("test content")

		if err := os.WriteFile(src, content, 0o644); err != nil {
			t.Fatal(err)
		}

		got, err := ReadFile(src, nil)
		if err != nil {
			t.Fatalf("ReadFile failed: %v", err)
		}

		if string(got) != string(content) {
			t.Errorf("got %q, want %q", got, content)
		}
	})

	t.Run("rejects symlink by default", func(t *testing.T) {
		tmpDir := t.TempDir()
		src := filepath.Join(tmpDir, "source.txt")
		link := filepath.Join(tmpDir, "link.txt")

		if err := os.WriteFile(src, []byte("test"), 0o644); err != nil {
			t.Fatal(err)
		}

		if err := os.Symlink(src, link); err != nil {
			t.Fatal(err)
		}

		_, err := ReadFile(link, nil)
		if err == nil {
			t.Fatal("expected error for symlink, got nil")
		}
	})

	t.Run("follows symlink when allowed", func(t *testing.T) {
		tmpDir := t.TempDir()
		src := filepath.Join(tmpDir, "libfoo.so.1.2")
		link := filepath.Join(tmpDir, "libfoo.so.1")

		if err := os.WriteFile(src, []byte("\x7fELF"), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := os.Symlink(src, link); err != nil {
			t.Fatal(err)
		}

		got, err := ReadFile(link, &ReadOptions{AllowSymlinks: true})
		if err != nil {
			t.Fatalf("ReadFile failed: %v", err)
		}
		if string(got) != "\x7fELF" {
			t.Errorf("got %q, want %q", got, "\x7fELF")
		}
	})

	t.Run("rejects directory", func(t *testing.T) {
		_, err := ReadFile(t.TempDir(), nil)
		if err == nil {
			t.Fatal("expected error for directory, got nil")
		}
	})

	t.Run("rejects file exceeding max size", func(t *testing.T) {
		tmpDir := t.TempDir()
		src := filepath.Join(tmpDir, "source.txt")

		content := make([]byte, 1024)
		if err := os.WriteFile(src, content, 0o644); err != nil {
			t.Fatal(err)
		}

		_, err := ReadFile(src, &ReadOptions{MaxSize: 512})
		if err == nil {
			t.Fatal("expected error for oversized file, got nil")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := ReadFile(filepath.Join(t.TempDir(), "missing"), nil)
		if !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("expected os.ErrNotExist, got %v", err)
		}
	})
}

func TestRemoveFile(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "bundle-*.zip")
	if err != nil {
		t.Fatal(err)
	}
	_ = f.Close()

	RemoveFile(f, zerolog.Nop())

	if _, err := os.Stat(f.Name()); !os.IsNotExist(err) {
		t.Errorf("expected %s to be removed, stat err = %v", f.Name(), err)
	}

	// A nil file is ignored.
	RemoveFile(nil, zerolog.Nop())
}
