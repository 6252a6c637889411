// Package pprofexport writes the function table of a debug session as a
// pprof profile, so existing pprof tooling can list and browse it.
package pprofexport

import (
	"fmt"
	"io"

	"github.com/google/pprof/profile"

	"github.com/coral-mesh/declsite/internal/safe"
	"github.com/coral-mesh/declsite/pkg/object"
)

// Sample type of exported profiles: one sample per function valued at its
// code size.
const (
	SampleType = "code_size"
	SampleUnit = "bytes"
)

type functionKey struct {
	name string
	file string
	line int64
}

// Builder accumulates functions into a profile.
type Builder struct {
	prof      *profile.Profile
	mapping   *profile.Mapping
	functions map[functionKey]*profile.Function
}

// NewBuilder starts a profile for the object loaded from file.
func NewBuilder(obj *object.Object, file string) *Builder {
	mapping := &profile.Mapping{
		ID:             1,
		Start:          obj.LoadAddress(),
		File:           file,
		BuildID:        obj.CodeID().String(),
		HasFunctions:   true,
		HasFilenames:   true,
		HasLineNumbers: true,
	}
	return &Builder{
		prof: &profile.Profile{
			SampleType: []*profile.ValueType{{Type: SampleType, Unit: SampleUnit}},
			Mapping:    []*profile.Mapping{mapping},
		},
		mapping:   mapping,
		functions: map[functionKey]*profile.Function{},
	}
}

// Add records fn under its demangled name, located at its entry line.
func (b *Builder) Add(name string, fn *object.Function) {
	if fn == nil {
		return
	}

	loc := &profile.Location{
		ID:      uint64(len(b.prof.Location) + 1),
		Mapping: b.mapping,
		Address: fn.Address,
	}
	if line, ok := entryLine(fn); ok {
		loc.Line = append(loc.Line, b.line(name, fn.Name, line))
	} else {
		loc.Line = append(loc.Line, profile.Line{Function: b.function(name, fn.Name, "", 0)})
	}
	b.prof.Location = append(b.prof.Location, loc)

	size, _ := safe.Uint64ToInt64(fn.Size)
	b.prof.Sample = append(b.prof.Sample, &profile.Sample{
		Location: []*profile.Location{loc},
		Value:    []int64{size},
	})
}

func (b *Builder) line(name, systemName string, line object.Line) profile.Line {
	lineNo, _ := safe.Uint64ToInt64(line.Line)
	column, _ := safe.Uint64ToInt64(line.Column)
	return profile.Line{
		Function: b.function(name, systemName, line.File.Path(), lineNo),
		Line:     lineNo,
		Column:   column,
	}
}

func (b *Builder) function(name, systemName, file string, startLine int64) *profile.Function {
	key := functionKey{name: name, file: file, line: startLine}
	if fn, ok := b.functions[key]; ok {
		return fn
	}
	fn := &profile.Function{
		ID:         uint64(len(b.prof.Function) + 1),
		Name:       name,
		SystemName: systemName,
		Filename:   file,
		StartLine:  startLine,
	}
	b.prof.Function = append(b.prof.Function, fn)
	b.functions[key] = fn
	return fn
}

// Len returns the number of functions added.
func (b *Builder) Len() int { return len(b.prof.Sample) }

// Profile validates and returns the accumulated profile.
func (b *Builder) Profile() (*profile.Profile, error) {
	if err := b.prof.CheckValid(); err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}
	return b.prof, nil
}

// Write encodes the profile in gzipped protobuf form.
func (b *Builder) Write(w io.Writer) error {
	prof, err := b.Profile()
	if err != nil {
		return err
	}
	if err := prof.Write(w); err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}
	return nil
}

func entryLine(fn *object.Function) (object.Line, bool) {
	if len(fn.Lines) == 0 {
		return object.Line{}, false
	}
	first := fn.Lines[0]
	for _, line := range fn.Lines[1:] {
		if line.Address < first.Address {
			first = line
		}
	}
	return first, true
}
