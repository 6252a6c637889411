package object

import (
	"bytes"
	"debug/macho"
	"encoding/binary"
	"fmt"
)

// archiveBackend is implemented by the mono and Mach-O fat archives.
type archiveBackend interface {
	objectCount() int
	objectByIndex(i int) (*Object, error)
}

// Archive holds one or more objects parsed from the same buffer. Only
// multi-architecture Mach-O files hold more than one object.
type Archive struct {
	format FileFormat
	inner  archiveBackend
}

// ParseArchive detects the format of data and prepares its objects.
//
// Unrecognized data fails with ErrUnsupportedObject. For every format but
// Mach-O fat files the object itself is parsed lazily when it is first
// requested, so a parse failure surfaces from the iterator.
func ParseArchive(data []byte) (*Archive, error) {
	format := Peek(data, true)
	switch format {
	case FormatUnknown:
		return nil, unsupportedObject()
	case FormatMachO:
		if binary.BigEndian.Uint32(data[0:4]) == machFatMagic {
			fat, err := newFatArchive(data)
			if err != nil {
				return nil, wrapError(err)
			}
			return &Archive{format: format, inner: fat}, nil
		}
	}
	return &Archive{format: format, inner: newMonoArchive(format, data)}, nil
}

// FileFormat returns the format of the archive's objects.
func (a *Archive) FileFormat() FileFormat { return a.format }

// ObjectCount returns the number of objects in the archive.
func (a *Archive) ObjectCount() int { return a.inner.objectCount() }

// IsMulti reports whether the archive holds more than one object.
func (a *Archive) IsMulti() bool { return a.inner.objectCount() > 1 }

// ObjectByIndex parses the object at index i.
func (a *Archive) ObjectByIndex(i int) (*Object, error) {
	if i < 0 || i >= a.inner.objectCount() {
		return nil, wrapError(fmt.Errorf("object index %d out of range", i))
	}
	obj, err := a.inner.objectByIndex(i)
	if err != nil {
		return nil, wrapError(err)
	}
	return obj, nil
}

// Objects returns an iterator over all objects. Each object is fallible on
// its own; a failing slice does not end the iteration.
func (a *Archive) Objects() *ObjectIterator {
	return &ObjectIterator{archive: a}
}

// ObjectIterator yields the objects of an archive.
type ObjectIterator struct {
	archive *Archive
	pos     int
	cur     *Object
	err     error
}

// Next advances to the next object.
func (it *ObjectIterator) Next() bool {
	if it.pos >= it.archive.ObjectCount() {
		it.cur, it.err = nil, nil
		return false
	}
	it.cur, it.err = it.archive.ObjectByIndex(it.pos)
	it.pos++
	return true
}

// Object returns the current object or the error that prevented parsing it.
func (it *ObjectIterator) Object() (*Object, error) {
	return it.cur, it.err
}

// Len returns the number of objects not yet yielded.
func (it *ObjectIterator) Len() int {
	return it.archive.ObjectCount() - it.pos
}

// fatArchive is a multi-architecture Mach-O file. The slice table is read
// eagerly; the slices themselves are parsed on demand.
type fatArchive struct {
	slices [][]byte
}

func newFatArchive(data []byte) (*fatArchive, error) {
	ff, err := macho.NewFatFile(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse fat header: %w", err)
	}
	defer func() { _ = ff.Close() }()

	slices := make([][]byte, 0, len(ff.Arches))
	for _, arch := range ff.Arches {
		end := uint64(arch.Offset) + uint64(arch.Size)
		if end > uint64(len(data)) {
			return nil, fmt.Errorf("fat slice for cpu %v exceeds file size", arch.Cpu)
		}
		slices = append(slices, data[arch.Offset:end])
	}
	return &fatArchive{slices: slices}, nil
}

func (a *fatArchive) objectCount() int { return len(a.slices) }

func (a *fatArchive) objectByIndex(i int) (*Object, error) {
	return parseObject(FormatMachO, a.slices[i])
}
