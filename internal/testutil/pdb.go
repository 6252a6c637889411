package testutil

import (
	"bytes"
)

// PDBLine is a line record relative to the start of its function.
type PDBLine struct {
	Offset uint32
	Line   uint32
}

// PDBFunction is a procedure of a synthetic PDB module.
type PDBFunction struct {
	Name   string
	Offset uint32
	Length uint32
	Lines  []PDBLine
}

// PDBLayout describes a single-module PDB.
type PDBLayout struct {
	GUID    [16]byte
	Age     uint32
	Machine uint16
	// Language is the CodeView source language of the module.
	Language   uint8
	Module     string
	File       string
	TextRVA    uint32
	Functions  []PDBFunction
	PublicOnly []string
}

const pdbBlockSize = 512

// BuildPDB returns an MSF 7.00 container with info, DBI, one module
// stream with procedures and C13 lines, the /names table, public symbols
// and section headers.
func BuildPDB(layout PDBLayout) []byte {
	const (
		moduleStream   = 5
		namesStream    = 6
		symbolsStream  = 7
		sectionsStream = 8
		numStreams     = 9
	)

	// /names: offset 0 is the empty string.
	var strtab bytes.Buffer
	strtab.WriteByte(0)
	fileNameOff := uint32(strtab.Len())
	cstring(&strtab, layout.File)
	var names bytes.Buffer
	u32(&names, 0xeffeeffe)
	u32(&names, 1)
	u32(&names, uint32(strtab.Len()))
	names.Write(strtab.Bytes())
	u32(&names, 0)

	var info bytes.Buffer
	u32(&info, 20000404)
	u32(&info, 0x5f5e100)
	u32(&info, layout.Age)
	info.Write(layout.GUID[:])
	named := []byte("/names\x00")
	u32(&info, uint32(len(named)))
	info.Write(named)
	u32(&info, 1) // size
	u32(&info, 1) // capacity
	u32(&info, 1) // present words
	u32(&info, 1)
	u32(&info, 0) // deleted words
	u32(&info, 0) // key: offset of "/names"
	u32(&info, namesStream)

	// Module symbols.
	var syms bytes.Buffer
	u32(&syms, 4) // CV_SIGNATURE_C13
	var compile bytes.Buffer
	u32(&compile, uint32(layout.Language))
	u16(&compile, layout.Machine)
	compile.Write(make([]byte, 16))
	cstring(&compile, "declsite-test")
	symRecord(&syms, 0x113c, compile.Bytes())
	for _, fn := range layout.Functions {
		var proc bytes.Buffer
		u32(&proc, 0)
		u32(&proc, 0)
		u32(&proc, 0)
		u32(&proc, fn.Length)
		u32(&proc, 0)
		u32(&proc, fn.Length)
		u32(&proc, 0)
		u32(&proc, fn.Offset)
		u16(&proc, 1)
		proc.WriteByte(0)
		cstring(&proc, fn.Name)
		symRecord(&syms, 0x1110, proc.Bytes())
	}

	// C13 lines: one checksum entry for the file, one lines block per
	// function.
	var c13 bytes.Buffer
	var checksums bytes.Buffer
	u32(&checksums, fileNameOff)
	checksums.WriteByte(0)
	checksums.WriteByte(0)
	pad4(&checksums)
	c13Subsection(&c13, 0xf4, checksums.Bytes())
	for _, fn := range layout.Functions {
		if len(fn.Lines) == 0 {
			continue
		}
		var lines bytes.Buffer
		u32(&lines, fn.Offset)
		u16(&lines, 1)
		u16(&lines, 0)
		u32(&lines, fn.Length)
		u32(&lines, 0) // checksum offset of the file
		u32(&lines, uint32(len(fn.Lines)))
		u32(&lines, uint32(12+8*len(fn.Lines)))
		for _, l := range fn.Lines {
			u32(&lines, l.Offset)
			u32(&lines, l.Line|0x80000000)
		}
		c13Subsection(&c13, 0xf2, lines.Bytes())
	}

	var module bytes.Buffer
	module.Write(syms.Bytes())
	module.Write(c13.Bytes())

	// Public symbols.
	var publics bytes.Buffer
	for _, fn := range layout.Functions {
		publicRecord(&publics, fn.Name, fn.Offset)
	}
	for _, name := range layout.PublicOnly {
		publicRecord(&publics, name, 0)
	}

	var sections bytes.Buffer
	secName := make([]byte, 8)
	copy(secName, ".text")
	sections.Write(secName)
	u32(&sections, 0x1000)
	u32(&sections, layout.TextRVA)
	sections.Write(make([]byte, 24))

	// DBI module list.
	var modInfo bytes.Buffer
	fixed := make([]byte, 64)
	le.PutUint16(fixed[34:], moduleStream)
	le.PutUint32(fixed[36:], uint32(syms.Len()))
	le.PutUint32(fixed[40:], 0)
	le.PutUint32(fixed[44:], uint32(c13.Len()))
	modInfo.Write(fixed)
	cstring(&modInfo, layout.Module)
	cstring(&modInfo, layout.Module)
	pad4(&modInfo)

	var dbgHeader bytes.Buffer
	for i := 0; i < 5; i++ {
		u16(&dbgHeader, 0xffff)
	}
	u16(&dbgHeader, sectionsStream)

	var dbi bytes.Buffer
	u32(&dbi, 0xffffffff)
	u32(&dbi, 19990903)
	u32(&dbi, layout.Age)
	u16(&dbi, 0xffff) // globals
	u16(&dbi, 0)
	u16(&dbi, 0xffff) // publics
	u16(&dbi, 0)
	u16(&dbi, symbolsStream)
	u16(&dbi, 0)
	u32(&dbi, uint32(modInfo.Len()))
	u32(&dbi, 0)
	u32(&dbi, 0)
	u32(&dbi, 0)
	u32(&dbi, 0)
	u32(&dbi, 0)
	u32(&dbi, uint32(dbgHeader.Len()))
	u32(&dbi, 0)
	u16(&dbi, 0)
	u16(&dbi, layout.Machine)
	u32(&dbi, 0)
	dbi.Write(modInfo.Bytes())
	dbi.Write(dbgHeader.Bytes())

	streams := make([][]byte, numStreams)
	streams[1] = info.Bytes()
	streams[3] = dbi.Bytes()
	streams[moduleStream] = module.Bytes()
	streams[namesStream] = names.Bytes()
	streams[symbolsStream] = publics.Bytes()
	streams[sectionsStream] = sections.Bytes()
	return buildMSF(streams)
}

func symRecord(b *bytes.Buffer, kind uint16, body []byte) {
	u16(b, uint16(len(body)+2))
	u16(b, kind)
	b.Write(body)
}

func publicRecord(b *bytes.Buffer, name string, offset uint32) {
	var pub bytes.Buffer
	u32(&pub, 0x2) // function
	u32(&pub, offset)
	u16(&pub, 1)
	cstring(&pub, name)
	symRecord(b, 0x110e, pub.Bytes())
}

func c13Subsection(b *bytes.Buffer, kind uint32, body []byte) {
	u32(b, kind)
	u32(b, uint32(len(body)))
	b.Write(body)
	pad4(b)
}

// buildMSF lays out streams in consecutive blocks after the superblock
// and the two free block maps.
func buildMSF(streams [][]byte) []byte {
	next := uint32(3)
	blocks := make([][]uint32, len(streams))
	for i, s := range streams {
		for n := 0; n < len(s); n += pdbBlockSize {
			blocks[i] = append(blocks[i], next)
			next++
		}
	}

	var dir bytes.Buffer
	u32(&dir, uint32(len(streams)))
	for _, s := range streams {
		u32(&dir, uint32(len(s)))
	}
	for _, list := range blocks {
		for _, idx := range list {
			u32(&dir, idx)
		}
	}
	var dirBlocks []uint32
	for n := 0; n < dir.Len(); n += pdbBlockSize {
		dirBlocks = append(dirBlocks, next)
		next++
	}
	blockMap := next
	next++

	out := make([]byte, int(next)*pdbBlockSize)
	copy(out, "Microsoft C/C++ MSF 7.00\r\n\x1aDS\x00\x00\x00")
	le.PutUint32(out[32:], pdbBlockSize)
	le.PutUint32(out[36:], 1)
	le.PutUint32(out[40:], next)
	le.PutUint32(out[44:], uint32(dir.Len()))
	le.PutUint32(out[52:], blockMap)

	write := func(data []byte, list []uint32) {
		for i, idx := range list {
			start := i * pdbBlockSize
			end := min(start+pdbBlockSize, len(data))
			copy(out[int(idx)*pdbBlockSize:], data[start:end])
		}
	}
	for i, s := range streams {
		write(s, blocks[i])
	}
	write(dir.Bytes(), dirBlocks)
	for i, idx := range dirBlocks {
		le.PutUint32(out[int(blockMap)*pdbBlockSize+4*i:], idx)
	}
	return out
}
