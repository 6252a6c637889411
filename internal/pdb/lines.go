package pdb

import (
	"sort"
)

// C13 debug subsection kinds.
const (
	debugSLines         = 0xf2
	debugSFileChecksums = 0xf4
	debugSIgnore        = 0x80000000

	linesHaveColumns = 0x1
	lineNumberMask   = 0x00ffffff
)

// LineRecord maps a segment:offset to a source line.
type LineRecord struct {
	Segment uint16
	Offset  uint32
	Line    uint32
	Column  uint16
	File    string
}

// ModuleLines returns the line records of a module ordered by address.
func (f *File) ModuleLines(mod Module) ([]LineRecord, error) {
	_, c13, err := f.moduleStream(mod)
	if err != nil || len(c13) == 0 {
		return nil, err
	}
	name := "module " + mod.Name + " lines"

	var (
		checksums []byte
		blocks    [][]byte
	)
	r := newReader(name, c13)
	for r.remaining() >= 8 {
		kind := r.u32() &^ debugSIgnore
		length := r.u32()
		body := r.take(int(length))
		r.align(4)
		if r.err != nil {
			return nil, r.err
		}
		switch kind {
		case debugSFileChecksums:
			checksums = body
		case debugSLines:
			blocks = append(blocks, body)
		}
	}

	var out []LineRecord
	for _, body := range blocks {
		lines, err := f.parseLines(name, body, checksums)
		if err != nil {
			return nil, err
		}
		out = append(out, lines...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Segment != out[j].Segment {
			return out[i].Segment < out[j].Segment
		}
		return out[i].Offset < out[j].Offset
	})
	return out, nil
}

// ModuleFiles returns the source files listed in the module's checksum table.
func (f *File) ModuleFiles(mod Module) ([]string, error) {
	_, c13, err := f.moduleStream(mod)
	if err != nil || len(c13) == 0 {
		return nil, err
	}
	name := "module " + mod.Name + " lines"

	var files []string
	r := newReader(name, c13)
	for r.remaining() >= 8 {
		kind := r.u32() &^ debugSIgnore
		length := r.u32()
		body := r.take(int(length))
		r.align(4)
		if r.err != nil {
			return nil, r.err
		}
		if kind != debugSFileChecksums {
			continue
		}
		cr := newReader(name, body)
		for cr.remaining() >= 6 {
			nameOff := cr.u32()
			size := cr.u8()
			cr.u8() // checksum kind
			cr.skip(int(size))
			cr.align(4)
			if cr.err != nil {
				return nil, cr.err
			}
			file, err := f.name(nameOff)
			if err != nil {
				return nil, err
			}
			files = append(files, file)
		}
	}
	return files, nil
}

func (f *File) parseLines(name string, body, checksums []byte) ([]LineRecord, error) {
	r := newReader(name, body)
	base := r.u32()
	segment := r.u16()
	flags := r.u16()
	r.u32() // code size
	if r.err != nil {
		return nil, r.err
	}

	var out []LineRecord
	for r.remaining() >= 12 {
		fileOff := r.u32()
		count := r.u32()
		r.u32() // block size
		file, err := f.checksumFile(name, checksums, fileOff)
		if err != nil {
			return nil, err
		}

		start := len(out)
		for i := uint32(0); i < count; i++ {
			offset := r.u32()
			lineFlags := r.u32()
			if r.err != nil {
				return nil, r.err
			}
			out = append(out, LineRecord{
				Segment: segment,
				Offset:  base + offset,
				Line:    lineFlags & lineNumberMask,
				File:    file,
			})
		}
		if flags&linesHaveColumns != 0 {
			for i := uint32(0); i < count; i++ {
				out[start+int(i)].Column = r.u16()
				r.u16() // end column
			}
		}
		if r.err != nil {
			return nil, r.err
		}
	}
	return out, nil
}

func (f *File) checksumFile(name string, checksums []byte, offset uint32) (string, error) {
	if uint64(offset)+4 > uint64(len(checksums)) {
		return "", &ParseError{Stream: name, Offset: int64(offset), Message: "file checksum offset out of range", Err: ErrInvalidStream}
	}
	r := newReader(name, checksums[offset:])
	return f.name(r.u32())
}
