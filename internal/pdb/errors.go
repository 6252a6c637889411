// Package pdb reads Microsoft PDB debug files: the MSF container, the info
// and DBI streams, module symbol streams and their C13 line tables.
package pdb

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	// ErrNotPDB indicates the data does not start with the MSF 7.00 superblock.
	ErrNotPDB = errors.New("pdb: not a valid PDB file")

	// ErrUnsupportedVersion indicates a DBI or info stream version this reader does not handle.
	ErrUnsupportedVersion = errors.New("pdb: unsupported PDB version")

	// ErrInvalidStream indicates a corrupted or missing stream.
	ErrInvalidStream = errors.New("pdb: invalid stream")
)

// ParseError provides detailed information about parsing failures.
type ParseError struct {
	Stream  string // Stream name where error occurred
	Offset  int64  // Byte offset within stream
	Message string // Description of the error
	Err     error  // Underlying error, if any
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("pdb: parse error in %s at offset 0x%x: %s: %v",
			e.Stream, e.Offset, e.Message, e.Err)
	}
	return fmt.Sprintf("pdb: parse error in %s at offset 0x%x: %s",
		e.Stream, e.Offset, e.Message)
}

func (e *ParseError) Unwrap() error { return e.Err }
