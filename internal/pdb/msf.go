package pdb

import (
	"bytes"
	"encoding/binary"
)

// msfMagic starts every MSF 7.00 container.
var msfMagic = []byte("Microsoft C/C++ MSF 7.00\r\n\x1aDS\x00\x00\x00")

const (
	superBlockSize = 56
	nilStreamSize  = 0xffffffff
	maxBlockSize   = 1 << 16
)

// Test reports whether data starts with an MSF 7.00 superblock.
func Test(data []byte) bool {
	return bytes.HasPrefix(data, msfMagic)
}

// msf is the multi-stream container of a PDB file. Streams are stored as
// lists of fixed-size blocks; the stream directory lists them.
type msf struct {
	data      []byte
	blockSize uint32
	numBlocks uint32
	streams   [][]uint32
	sizes     []uint32
}

func openMSF(data []byte) (*msf, error) {
	if !Test(data) {
		return nil, ErrNotPDB
	}
	if len(data) < superBlockSize {
		return nil, &ParseError{Stream: "superblock", Message: "truncated superblock", Err: ErrNotPDB}
	}

	r := newReader("superblock", data)
	r.skip(len(msfMagic))
	m := &msf{data: data}
	m.blockSize = r.u32()
	r.u32() // free block map
	m.numBlocks = r.u32()
	dirBytes := r.u32()
	r.u32()
	blockMapAddr := r.u32()

	switch m.blockSize {
	case 512, 1024, 2048, 4096, 8192, 16384, 32768, maxBlockSize:
	default:
		return nil, &ParseError{Stream: "superblock", Offset: 32, Message: "invalid block size", Err: ErrNotPDB}
	}

	// The block map lists the blocks of the stream directory.
	dirBlocks := blocksFor(dirBytes, m.blockSize)
	mapData, err := m.block(blockMapAddr)
	if err != nil {
		return nil, err
	}
	if uint64(dirBlocks)*4 > uint64(len(mapData)) {
		return nil, &ParseError{Stream: "superblock", Offset: 44, Message: "stream directory too large", Err: ErrInvalidStream}
	}
	mr := newReader("block map", mapData)
	blocks := make([]uint32, dirBlocks)
	for i := range blocks {
		blocks[i] = mr.u32()
	}
	dir, err := m.readBlocks("directory", blocks, dirBytes)
	if err != nil {
		return nil, err
	}

	dr := newReader("directory", dir)
	numStreams := dr.u32()
	if uint64(numStreams)*4 > uint64(len(dir)) {
		return nil, &ParseError{Stream: "directory", Message: "stream count exceeds directory", Err: ErrInvalidStream}
	}
	m.sizes = make([]uint32, numStreams)
	for i := range m.sizes {
		m.sizes[i] = dr.u32()
	}
	m.streams = make([][]uint32, numStreams)
	for i, size := range m.sizes {
		if size == nilStreamSize {
			continue
		}
		n := blocksFor(size, m.blockSize)
		if uint64(n)*4 > uint64(dr.remaining()) {
			return nil, &ParseError{Stream: "directory", Offset: int64(dr.off), Message: "truncated block list", Err: ErrInvalidStream}
		}
		list := make([]uint32, n)
		for j := range list {
			list[j] = dr.u32()
		}
		m.streams[i] = list
	}
	if dr.err != nil {
		return nil, dr.err
	}
	return m, nil
}

func blocksFor(size, blockSize uint32) uint32 {
	return uint32((uint64(size) + uint64(blockSize) - 1) / uint64(blockSize))
}

func (m *msf) block(idx uint32) ([]byte, error) {
	start := uint64(idx) * uint64(m.blockSize)
	end := start + uint64(m.blockSize)
	if idx >= m.numBlocks || end > uint64(len(m.data)) {
		return nil, &ParseError{Stream: "msf", Offset: int64(start), Message: "block out of range", Err: ErrInvalidStream}
	}
	return m.data[start:end], nil
}

func (m *msf) readBlocks(name string, blocks []uint32, size uint32) ([]byte, error) {
	// Streams that fit one block are returned without copying.
	if len(blocks) == 1 {
		b, err := m.block(blocks[0])
		if err != nil {
			return nil, err
		}
		return b[:size], nil
	}
	out := make([]byte, 0, size)
	for _, idx := range blocks {
		b, err := m.block(idx)
		if err != nil {
			return nil, &ParseError{Stream: name, Offset: int64(len(out)), Message: "bad block", Err: err}
		}
		out = append(out, b...)
	}
	return out[:size], nil
}

// stream returns the contents of a stream. Nil streams read as empty.
func (m *msf) stream(idx uint32) ([]byte, error) {
	if idx >= uint32(len(m.sizes)) {
		return nil, &ParseError{Stream: "directory", Message: "stream index out of range", Err: ErrInvalidStream}
	}
	if m.sizes[idx] == nilStreamSize || m.sizes[idx] == 0 {
		return nil, nil
	}
	return m.readBlocks(streamName(idx), m.streams[idx], m.sizes[idx])
}

func streamName(idx uint32) string {
	switch idx {
	case streamPDB:
		return "info"
	case streamTPI:
		return "tpi"
	case streamDBI:
		return "dbi"
	case streamIPI:
		return "ipi"
	default:
		return "stream"
	}
}

// reader decodes little-endian values from a stream. The first out of
// bounds read records a ParseError; later reads return zero.
type reader struct {
	name string
	data []byte
	off  int
	err  error
}

func newReader(name string, data []byte) *reader {
	return &reader{name: name, data: data}
}

func (r *reader) remaining() int {
	return len(r.data) - r.off
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || n > r.remaining() {
		r.err = &ParseError{Stream: r.name, Offset: int64(r.off), Message: "unexpected end of stream", Err: ErrInvalidStream}
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) skip(n int) { r.take(n) }

func (r *reader) u8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) u16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *reader) u32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *reader) cstring() string {
	if r.err != nil {
		return ""
	}
	end := bytes.IndexByte(r.data[r.off:], 0)
	if end < 0 {
		r.err = &ParseError{Stream: r.name, Offset: int64(r.off), Message: "unterminated string", Err: ErrInvalidStream}
		return ""
	}
	s := string(r.data[r.off : r.off+end])
	r.off += end + 1
	return s
}

// align advances to the next multiple of n relative to the reader start.
func (r *reader) align(n int) {
	if rem := r.off % n; rem != 0 {
		pad := min(n-rem, r.remaining())
		r.off += pad
	}
}
