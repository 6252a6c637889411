package declsite

import (
	"errors"
	"strconv"

	"github.com/coral-mesh/declsite/internal/safe"
	"github.com/coral-mesh/declsite/pkg/object"
)

// ErrMissingLines is returned when a function was found but its debug
// information has no line records to attribute it to.
var ErrMissingLines = errors.New("function has no line information")

// DeclarationSite is the source location where a function is declared.
type DeclarationSite struct {
	File string `json:"file"`
	Line uint32 `json:"line"`
	// Column is zero when the debug information does not record columns.
	Column uint32 `json:"column,omitempty"`
}

// String renders the site as "file:line", or "file:line:column" when the
// column is known. Terminals that link path:line references make the
// result clickable.
func (d DeclarationSite) String() string {
	s := d.File + ":" + strconv.FormatUint(uint64(d.Line), 10)
	if d.Column > 0 {
		s += ":" + strconv.FormatUint(uint64(d.Column), 10)
	}
	return s
}

// Derive returns the site of the function's entry line: the line record
// with the lowest address, the earliest one on ties.
func Derive(fn *object.Function) (DeclarationSite, error) {
	if fn == nil || len(fn.Lines) == 0 {
		return DeclarationSite{}, ErrMissingLines
	}

	first := 0
	for i := 1; i < len(fn.Lines); i++ {
		if fn.Lines[i].Address < fn.Lines[first].Address {
			first = i
		}
	}
	line := fn.Lines[first]
	lineNo, _ := safe.Uint64ToUint32(line.Line)
	column, _ := safe.Uint64ToUint32(line.Column)
	return DeclarationSite{
		File:   line.File.Path(),
		Line:   lineNo,
		Column: column,
	}, nil
}
