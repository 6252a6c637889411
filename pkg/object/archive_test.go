package object

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/declsite/internal/testutil"
)

func TestParseArchive_Unsupported(t *testing.T) {
	for _, data := range [][]byte{nil, []byte("short"), make([]byte, 256)} {
		archive, err := ParseArchive(data)
		require.Error(t, err)
		assert.Nil(t, archive)
		assert.ErrorIs(t, err, ErrUnsupportedObject)
		assert.True(t, IsUnsupported(err))

		var oe *ObjectError
		assert.True(t, errors.As(err, &oe))
	}
}

func TestParseArchive_FatRequiresMultiArch(t *testing.T) {
	fat := testutil.BuildFatMachO(testutil.CPUTypeX86_64, testutil.CPUTypeARM64)

	_, err := ParseObject(fat)
	assert.True(t, IsUnsupported(err))

	archive, err := ParseArchive(fat)
	require.NoError(t, err)
	assert.Equal(t, FormatMachO, archive.FileFormat())
}

func TestMonoArchive_YieldsOnce(t *testing.T) {
	archive, err := ParseArchive(testutil.BuildELF(testutil.ELFLayout{}))
	require.NoError(t, err)
	assert.Equal(t, FormatElf, archive.FileFormat())
	assert.Equal(t, 1, archive.ObjectCount())
	assert.False(t, archive.IsMulti())

	it := archive.Objects()
	assert.Equal(t, 1, it.Len())

	require.True(t, it.Next())
	obj, err := it.Object()
	require.NoError(t, err)
	assert.Equal(t, FormatElf, obj.FileFormat())
	assert.Equal(t, 0, it.Len())

	assert.False(t, it.Next())
	assert.False(t, it.Next())
	assert.Equal(t, 0, it.Len())

	obj, err = it.Object()
	assert.Nil(t, obj)
	assert.NoError(t, err)
}

func TestMonoArchive_ParsesLazily(t *testing.T) {
	// A valid ELF identification followed by a truncated header.
	broken := append([]byte("\x7fELF\x02\x01\x01\x00"), make([]byte, 12)...)
	require.Equal(t, FormatElf, Peek(broken, true))

	archive, err := ParseArchive(broken)
	require.NoError(t, err, "mono archives must not parse at construction")

	it := archive.Objects()
	require.True(t, it.Next())
	obj, err := it.Object()
	require.Error(t, err)
	assert.Nil(t, obj)
	assert.False(t, IsUnsupported(err))

	var oe *ObjectError
	assert.True(t, errors.As(err, &oe))
	assert.Contains(t, err.Error(), "ELF")

	assert.False(t, it.Next())
}

func TestFatArchive_Slices(t *testing.T) {
	archive, err := ParseArchive(testutil.BuildFatMachO(testutil.CPUTypeX86_64, testutil.CPUTypeARM64))
	require.NoError(t, err)
	assert.Equal(t, 2, archive.ObjectCount())
	assert.True(t, archive.IsMulti())

	var arches []Arch
	it := archive.Objects()
	for it.Next() {
		obj, err := it.Object()
		require.NoError(t, err)
		assert.Equal(t, FormatMachO, obj.FileFormat())
		assert.Equal(t, KindExecutable, obj.Kind())
		arches = append(arches, obj.Arch())
	}
	assert.Equal(t, []Arch{ArchAmd64, ArchArm64}, arches)

	_, err = archive.ObjectByIndex(2)
	assert.Error(t, err)
	_, err = archive.ObjectByIndex(-1)
	assert.Error(t, err)
}

func TestObjectError_Wrapping(t *testing.T) {
	cause := errors.New("root cause")
	inner := errors.Join(errors.New("context"), cause)

	err := wrapError(inner)
	var oe *ObjectError
	require.True(t, errors.As(err, &oe))
	assert.Equal(t, inner.Error(), err.Error())
	assert.ErrorIs(t, err, cause)
	assert.False(t, IsUnsupported(err))

	// Wrapping is idempotent.
	assert.Same(t, oe, wrapError(err))
	assert.NoError(t, wrapError(nil))
}
