package object

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/declsite/internal/testutil"
)

func openBundle(t *testing.T, data []byte) *DebugSession {
	t.Helper()
	assert.Equal(t, FormatSourceBundle, Peek(data, false))
	obj := parseTestObject(t, data)
	assert.Equal(t, FormatSourceBundle, obj.FileFormat())
	session, err := obj.DebugSession()
	require.NoError(t, err)
	return session
}

func TestSourceBundleWriter_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewSourceBundleWriter(&buf)
	w.SetAttribute(AttrObjectName, "app")
	w.SetAttribute(AttrArch, "x86_64")
	w.SetAttribute(AttrCodeID, "")

	require.NoError(t, w.AddFile("/src/main.c", []byte("int main(void) { return 0; }\n")))
	require.NoError(t, w.AddFile(`C:\src\util.c`, []byte("void util(void) {}\n")))
	require.NoError(t, w.Finish())
	require.NoError(t, w.Finish(), "finish is idempotent")

	obj := parseTestObject(t, buf.Bytes())
	assert.Equal(t, KindSources, obj.Kind())
	assert.Equal(t, ArchAmd64, obj.Arch())
	assert.True(t, obj.CodeID().IsNil())

	session, err := obj.DebugSession()
	require.NoError(t, err)

	src, ok, err := session.SourceByPath("/src/main.c")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "int main(void) { return 0; }\n", src)

	src, ok, err = session.SourceByPath(`C:\src\util.c`)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "void util(void) {}\n", src)
}

func TestSourceBundleWriter_AfterFinish(t *testing.T) {
	var buf bytes.Buffer
	w := NewSourceBundleWriter(&buf)
	require.NoError(t, w.Finish())

	err := w.AddFile("/src/late.c", nil)
	assert.Error(t, err)
}

func TestSourceBundleWriter_DuplicateEntryNames(t *testing.T) {
	var buf bytes.Buffer
	w := NewSourceBundleWriter(&buf)
	require.NoError(t, w.AddFile("/src/a.c", []byte("one")))
	require.NoError(t, w.AddFile(`\src\a.c`, []byte("two")))
	require.NoError(t, w.Finish())

	session := openBundle(t, buf.Bytes())

	src, ok, err := session.SourceByPath("/src/a.c")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "one", src)

	src, ok, err = session.SourceByPath(`\src\a.c`)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "two", src)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestSourceBundleWriter_HeaderError(t *testing.T) {
	w := NewSourceBundleWriter(failingWriter{})
	assert.ErrorContains(t, w.AddFile("/src/a.c", nil), "disk full")
	assert.ErrorContains(t, w.Finish(), "disk full")
}

func TestSourceBundleWriter_WriteObject(t *testing.T) {
	obj := parseTestObject(t, testutil.BuildPDB(testPDBLayout()))

	var buf bytes.Buffer
	w := NewSourceBundleWriter(&buf)
	var requested []string
	w.readFile = func(path string) ([]byte, error) {
		requested = append(requested, path)
		if path == `C:\src\app.cpp` {
			return []byte("int first() { return 1; }\n"), nil
		}
		return nil, os.ErrNotExist
	}

	written, err := w.WriteObject(obj, "app.pdb")
	require.NoError(t, err)
	assert.True(t, written)
	assert.Equal(t, []string{`C:\src\app.cpp`}, requested)

	bundle := parseTestObject(t, buf.Bytes())
	assert.Equal(t, obj.DebugID(), bundle.DebugID())
	assert.Equal(t, obj.Arch(), bundle.Arch())

	session, err := bundle.DebugSession()
	require.NoError(t, err)
	src, ok, err := session.SourceByPath(`C:\src\app.cpp`)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "int first() { return 1; }\n", src)
}

func TestSourceBundleWriter_WriteObjectWithoutSources(t *testing.T) {
	obj := parseTestObject(t, testutil.BuildPDB(testPDBLayout()))

	var buf bytes.Buffer
	w := NewSourceBundleWriter(&buf)
	w.readFile = func(string) ([]byte, error) { return nil, os.ErrNotExist }

	written, err := w.WriteObject(obj, "app.pdb")
	require.NoError(t, err)
	assert.False(t, written)

	// The bundle is still valid, only empty.
	session := openBundle(t, buf.Bytes())
	files := session.Files()
	assert.False(t, files.Next())
}
