package testutil

import (
	"bytes"
)

const (
	dwTagCompileUnit = 0x11
	dwTagSubprogram  = 0x2e

	dwAtName     = 0x03
	dwAtStmtList = 0x10
	dwAtLowPC    = 0x11
	dwAtHighPC   = 0x12
	dwAtLanguage = 0x13

	dwFormAddr      = 0x01
	dwFormData2     = 0x05
	dwFormData4     = 0x06
	dwFormString    = 0x08
	dwFormSecOffset = 0x17

	abbrevUnitWithLines = 1
	abbrevSubprogram    = 2
	abbrevUnit          = 3

	// DwarfLangC99 is DW_LANG_C99.
	DwarfLangC99 = 0x0c
)

// DwarfFunction is a subprogram DIE with a code range.
type DwarfFunction struct {
	Name string
	Low  uint32
	Size uint32
}

// DwarfRow is a row of a unit's line program.
type DwarfRow struct {
	Address uint32
	Line    int
}

// DwarfUnit describes one compilation unit with 4-byte addresses.
type DwarfUnit struct {
	Name     string
	Language uint16
	// StmtList, when non-zero, is written as the unit's line program offset
	// instead of the offset of the program built from Rows.
	StmtList uint32
	// File is the single file of the line program.
	File string
	Rows []DwarfRow
	// End closes the row sequence.
	End       uint32
	Functions []DwarfFunction
}

// DwarfSections holds the debug sections built by BuildDwarf.
type DwarfSections struct {
	Abbrev []byte
	Info   []byte
	Line   []byte
}

// WasmSections returns the sections as WebAssembly custom sections.
func (d DwarfSections) WasmSections() []WasmCustomSection {
	return []WasmCustomSection{
		{Name: ".debug_abbrev", Data: d.Abbrev},
		{Name: ".debug_info", Data: d.Info},
		{Name: ".debug_line", Data: d.Line},
	}
}

// BuildDwarf returns DWARF 4 sections for units. A unit without rows and
// without StmtList has no line program.
func BuildDwarf(units ...DwarfUnit) DwarfSections {
	var info, line bytes.Buffer
	for _, unit := range units {
		var dies bytes.Buffer
		stmtList, hasLines := unit.StmtList, unit.StmtList != 0
		if !hasLines && len(unit.Rows) > 0 {
			stmtList, hasLines = uint32(line.Len()), true
			writeLineProgram(&line, unit)
		}

		if hasLines {
			leb(&dies, abbrevUnitWithLines)
		} else {
			leb(&dies, abbrevUnit)
		}
		cstring(&dies, unit.Name)
		u16(&dies, unit.Language)
		if hasLines {
			u32(&dies, stmtList)
		}
		for _, fn := range unit.Functions {
			leb(&dies, abbrevSubprogram)
			cstring(&dies, fn.Name)
			u32(&dies, fn.Low)
			u32(&dies, fn.Size)
		}
		dies.WriteByte(0)

		u32(&info, uint32(2+4+1+dies.Len()))
		u16(&info, 4)
		u32(&info, 0)
		info.WriteByte(4)
		info.Write(dies.Bytes())
	}
	return DwarfSections{Abbrev: dwarfAbbrev(), Info: info.Bytes(), Line: line.Bytes()}
}

func dwarfAbbrev() []byte {
	var b bytes.Buffer
	unit := func(code uint64, lines bool) {
		leb(&b, code)
		leb(&b, dwTagCompileUnit)
		b.WriteByte(1)
		leb(&b, dwAtName)
		leb(&b, dwFormString)
		leb(&b, dwAtLanguage)
		leb(&b, dwFormData2)
		if lines {
			leb(&b, dwAtStmtList)
			leb(&b, dwFormSecOffset)
		}
		b.Write([]byte{0, 0})
	}
	unit(abbrevUnitWithLines, true)

	leb(&b, abbrevSubprogram)
	leb(&b, dwTagSubprogram)
	b.WriteByte(0)
	leb(&b, dwAtName)
	leb(&b, dwFormString)
	leb(&b, dwAtLowPC)
	leb(&b, dwFormAddr)
	leb(&b, dwAtHighPC)
	leb(&b, dwFormData4)
	b.Write([]byte{0, 0})

	unit(abbrevUnit, false)
	b.WriteByte(0)
	return b.Bytes()
}

func sleb(b *bytes.Buffer, v int64) {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && c&0x40 == 0) || (v == -1 && c&0x40 != 0) {
			b.WriteByte(c)
			return
		}
		b.WriteByte(c | 0x80)
	}
}

// writeLineProgram appends a version 4 line program with one file and
// one sequence.
func writeLineProgram(out *bytes.Buffer, unit DwarfUnit) {
	var header bytes.Buffer
	header.WriteByte(1)                 // minimum_instruction_length
	header.WriteByte(1)                 // maximum_operations_per_instruction
	header.WriteByte(1)                 // default_is_stmt
	header.WriteByte(0xfb)              // line_base -5
	header.WriteByte(14)                // line_range
	header.WriteByte(13)                // opcode_base
	header.Write([]byte{0, 1, 1, 1, 1, 0, 0, 0, 1, 0, 0, 1})
	header.WriteByte(0) // no include directories
	cstring(&header, unit.File)
	header.Write([]byte{0, 0, 0})
	header.WriteByte(0)

	var program bytes.Buffer
	line := 1
	for i, row := range unit.Rows {
		if i == 0 {
			program.Write([]byte{0x00, 5, 0x02}) // DW_LNE_set_address
			u32(&program, row.Address)
		} else {
			program.WriteByte(0x02) // DW_LNS_advance_pc
			leb(&program, uint64(row.Address-unit.Rows[i-1].Address))
		}
		if row.Line != line {
			program.WriteByte(0x03) // DW_LNS_advance_line
			sleb(&program, int64(row.Line-line))
			line = row.Line
		}
		program.WriteByte(0x01) // DW_LNS_copy
	}
	if n := len(unit.Rows); n > 0 && unit.End > unit.Rows[n-1].Address {
		program.WriteByte(0x02)
		leb(&program, uint64(unit.End-unit.Rows[n-1].Address))
	}
	program.Write([]byte{0x00, 1, 0x01}) // DW_LNE_end_sequence

	u32(out, uint32(2+4+header.Len()+program.Len()))
	u16(out, 4)
	u32(out, uint32(header.Len()))
	out.Write(header.Bytes())
	out.Write(program.Bytes())
}
