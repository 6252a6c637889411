package pdb

// CodeView symbol record kinds.
const (
	symCompile3  = 0x113c
	symPub32     = 0x110e
	symLProc32   = 0x110f
	symGProc32   = 0x1110
	symLProc32ID = 0x1146
	symGProc32ID = 0x1147

	pubFunctionFlag = 0x2
)

// CodeView source languages (CV_CFL_*).
const (
	LangC      = 0x00
	LangCpp    = 0x01
	LangObjC   = 0x11
	LangObjCpp = 0x12
	LangSwift  = 0x13
	LangRust   = 0x15
	LangGo     = 0x16
	LangNone   = 0xff
)

// Procedure is a function record from a module symbol stream.
type Procedure struct {
	Name    string
	Segment uint16
	Offset  uint32
	Length  uint32
	Global  bool
}

// PublicSymbol is an entry of the public symbol table.
type PublicSymbol struct {
	Name     string
	Segment  uint16
	Offset   uint32
	Function bool
}

// ModuleSymbols holds the procedures and the source language of a module.
type ModuleSymbols struct {
	Language   uint8
	Procedures []Procedure
}

// record is one CodeView symbol record.
type record struct {
	kind uint16
	data []byte
}

// walkRecords calls fn for every record in a symbol substream.
func walkRecords(name string, data []byte, fn func(record) error) error {
	r := newReader(name, data)
	for r.remaining() >= 4 {
		length := r.u16()
		if length < 2 {
			return &ParseError{Stream: name, Offset: int64(r.off), Message: "record too short", Err: ErrInvalidStream}
		}
		kind := r.u16()
		body := r.take(int(length) - 2)
		if r.err != nil {
			return r.err
		}
		if err := fn(record{kind: kind, data: body}); err != nil {
			return err
		}
	}
	return nil
}

// ModuleSymbols reads the procedures of a module.
func (f *File) ModuleSymbols(mod Module) (ModuleSymbols, error) {
	out := ModuleSymbols{Language: LangNone}
	symbols, _, err := f.moduleStream(mod)
	if err != nil {
		return out, err
	}

	err = walkRecords("module "+mod.Name, symbols, func(rec record) error {
		switch rec.kind {
		case symCompile3:
			if len(rec.data) > 0 {
				out.Language = rec.data[0]
			}
		case symGProc32, symLProc32, symGProc32ID, symLProc32ID:
			r := newReader("module "+mod.Name, rec.data)
			r.skip(12) // parent, end, next
			proc := Procedure{Length: r.u32()}
			r.skip(12) // debug start, debug end, type index
			proc.Offset = r.u32()
			proc.Segment = r.u16()
			r.u8() // flags
			proc.Name = r.cstring()
			proc.Global = rec.kind == symGProc32 || rec.kind == symGProc32ID
			if r.err != nil {
				return r.err
			}
			out.Procedures = append(out.Procedures, proc)
		}
		return nil
	})
	return out, err
}

// PublicSymbols reads the S_PUB32 records of the symbol record stream.
func (f *File) PublicSymbols() ([]PublicSymbol, error) {
	if f.symbols == nilStreamIndex {
		return nil, nil
	}
	data, err := f.msf.stream(uint32(f.symbols))
	if err != nil {
		return nil, err
	}

	var out []PublicSymbol
	err = walkRecords("symbol records", data, func(rec record) error {
		if rec.kind != symPub32 {
			return nil
		}
		r := newReader("symbol records", rec.data)
		flags := r.u32()
		sym := PublicSymbol{Offset: r.u32(), Segment: r.u16()}
		sym.Name = r.cstring()
		sym.Function = flags&pubFunctionFlag != 0
		if r.err != nil {
			return r.err
		}
		out = append(out, sym)
		return nil
	})
	return out, err
}
