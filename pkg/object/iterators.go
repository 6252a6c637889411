package object

import (
	"io"
)

// functionSource produces functions until it returns io.EOF. A source that
// returns another error must make progress on the next call.
type functionSource interface {
	next() (*Function, error)
}

// fileSource produces file entries until it returns io.EOF.
type fileSource interface {
	next() (FileEntry, error)
}

// FunctionIterator lazily yields the functions of a debug session.
//
//	it := session.Functions()
//	for it.Next() {
//		fn, err := it.Function()
//		...
//	}
type FunctionIterator struct {
	src  functionSource
	cur  *Function
	err  error
	done bool
}

func newFunctionIterator(src functionSource) *FunctionIterator {
	return &FunctionIterator{src: src}
}

// Next advances to the next function. It returns false once the session
// has no more functions.
func (it *FunctionIterator) Next() bool {
	if it.done || it.src == nil {
		it.done = true
		return false
	}
	fn, err := it.src.next()
	if err == io.EOF {
		it.done = true
		it.cur, it.err = nil, nil
		return false
	}
	it.cur, it.err = fn, wrapError(err)
	return true
}

// Function returns the current function, or the error that prevented
// reading it. An error only affects the current item.
func (it *FunctionIterator) Function() (*Function, error) {
	return it.cur, it.err
}

// FileIterator lazily yields the source files of a debug session.
type FileIterator struct {
	src  fileSource
	cur  FileEntry
	err  error
	done bool
}

func newFileIterator(src fileSource) *FileIterator {
	return &FileIterator{src: src}
}

// Next advances to the next file entry.
func (it *FileIterator) Next() bool {
	if it.done || it.src == nil {
		it.done = true
		return false
	}
	file, err := it.src.next()
	if err == io.EOF {
		it.done = true
		it.cur, it.err = FileEntry{}, nil
		return false
	}
	it.cur, it.err = file, wrapError(err)
	return true
}

// File returns the current file entry or the error that prevented reading it.
func (it *FileIterator) File() (FileEntry, error) {
	return it.cur, it.err
}

// SymbolIterator yields the public symbols of an object.
type SymbolIterator struct {
	symbols []Symbol
	pos     int
}

// Next advances to the next symbol.
func (it *SymbolIterator) Next() bool {
	if it.pos >= len(it.symbols) {
		return false
	}
	it.pos++
	return true
}

// Symbol returns the current symbol.
func (it *SymbolIterator) Symbol() Symbol {
	if it.pos == 0 || it.pos > len(it.symbols) {
		return Symbol{}
	}
	return it.symbols[it.pos-1]
}

// Len returns the number of symbols not yet yielded.
func (it *SymbolIterator) Len() int {
	return len(it.symbols) - it.pos
}

// sliceFunctions yields a prepared list of functions.
type sliceFunctions struct {
	fns []*Function
	pos int
}

func (s *sliceFunctions) next() (*Function, error) {
	if s.pos >= len(s.fns) {
		return nil, io.EOF
	}
	fn := s.fns[s.pos]
	s.pos++
	return fn, nil
}

// sliceFiles yields a prepared list of file entries.
type sliceFiles struct {
	files []FileEntry
	pos   int
}

func (s *sliceFiles) next() (FileEntry, error) {
	if s.pos >= len(s.files) {
		return FileEntry{}, io.EOF
	}
	f := s.files[s.pos]
	s.pos++
	return f, nil
}
