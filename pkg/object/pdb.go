package object

import (
	"debug/pe"
	"fmt"
	"io"
	"sort"

	"github.com/coral-mesh/declsite/internal/pdb"
)

type pdbObject struct {
	file *pdb.File
}

func parsePdb(data []byte) (*pdbObject, error) {
	f, err := pdb.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse PDB file: %w", err)
	}
	return &pdbObject{file: f}, nil
}

func (o *pdbObject) codeID() CodeID { return "" }

func (o *pdbObject) debugID() DebugID {
	info := o.file.Info()
	return debugIDFromGUID(info.GUID[:], o.file.Age())
}

func (o *pdbObject) arch() Arch {
	switch o.file.Machine() {
	case pe.IMAGE_FILE_MACHINE_I386:
		return ArchX86
	case pe.IMAGE_FILE_MACHINE_AMD64:
		return ArchAmd64
	case pe.IMAGE_FILE_MACHINE_ARM, pe.IMAGE_FILE_MACHINE_ARMNT:
		return ArchArm
	case pe.IMAGE_FILE_MACHINE_ARM64:
		return ArchArm64
	default:
		return ArchUnknown
	}
}

func (o *pdbObject) kind() Kind { return KindDebug }

func (o *pdbObject) loadAddress() uint64 { return 0 }

func (o *pdbObject) hasSymbols() bool { return len(o.symbols()) > 0 }

func (o *pdbObject) symbols() []Symbol {
	pubs, err := o.file.PublicSymbols()
	if err != nil {
		return nil
	}
	out := make([]Symbol, 0, len(pubs))
	for _, sym := range pubs {
		if !sym.Function {
			continue
		}
		rva, ok := o.file.RVA(sym.Segment, sym.Offset)
		if !ok {
			continue
		}
		out = append(out, Symbol{Name: sym.Name, Address: uint64(rva)})
	}
	return out
}

func (o *pdbObject) hasDebugInfo() bool {
	for _, mod := range o.file.Modules() {
		if mod.SymbolSize > 0 {
			return true
		}
	}
	return false
}

func (o *pdbObject) hasUnwindInfo() bool { return false }

func (o *pdbObject) hasSources() bool { return false }

func (o *pdbObject) isMalformed() bool { return false }

func (o *pdbObject) debugSession() (*DebugSession, error) {
	return newDebugSession(SessionPdb, &pdbSession{file: o.file}), nil
}

func pdbLanguage(lang uint8) Language {
	switch lang {
	case pdb.LangC:
		return LangC
	case pdb.LangCpp:
		return LangCpp
	case pdb.LangObjC:
		return LangObjC
	case pdb.LangObjCpp:
		return LangObjCpp
	case pdb.LangSwift:
		return LangSwift
	case pdb.LangRust:
		return LangRust
	case pdb.LangGo:
		return LangGo
	default:
		return LangUnknown
	}
}

type pdbSession struct {
	file *pdb.File
}

func (s *pdbSession) functions() functionSource {
	return &pdbFunctions{file: s.file, modules: s.file.Modules()}
}

func (s *pdbSession) files() fileSource {
	return &pdbFiles{file: s.file, modules: s.file.Modules()}
}

func (s *pdbSession) sourceByPath(string) (string, bool, error) {
	return "", false, nil
}

// pdbFunctions reads modules one at a time. A module that fails to parse
// is reported once and iteration continues with the next module.
type pdbFunctions struct {
	file    *pdb.File
	modules []pdb.Module
	queue   []*Function
}

func (it *pdbFunctions) next() (*Function, error) {
	for len(it.queue) == 0 {
		if len(it.modules) == 0 {
			return nil, io.EOF
		}
		mod := it.modules[0]
		it.modules = it.modules[1:]
		fns, err := it.readModule(mod)
		if err != nil {
			return nil, fmt.Errorf("failed to read module %s: %w", mod.Name, err)
		}
		it.queue = fns
	}
	fn := it.queue[0]
	it.queue = it.queue[1:]
	return fn, nil
}

func (it *pdbFunctions) readModule(mod pdb.Module) ([]*Function, error) {
	syms, err := it.file.ModuleSymbols(mod)
	if err != nil {
		return nil, err
	}
	if len(syms.Procedures) == 0 {
		return nil, nil
	}
	lines, err := it.file.ModuleLines(mod)
	if err != nil {
		return nil, err
	}

	lang := pdbLanguage(syms.Language)
	fns := make([]*Function, 0, len(syms.Procedures))
	for _, proc := range syms.Procedures {
		rva, ok := it.file.RVA(proc.Segment, proc.Offset)
		if !ok {
			continue
		}
		fn := &Function{
			Address:  uint64(rva),
			Size:     uint64(proc.Length),
			Name:     proc.Name,
			Language: lang,
		}
		fn.Lines = it.procedureLines(proc, lines)
		fns = append(fns, fn)
	}
	return fns, nil
}

// procedureLines selects the records inside the procedure. Each line spans
// up to the next record or the end of the procedure.
func (it *pdbFunctions) procedureLines(proc pdb.Procedure, records []pdb.LineRecord) []Line {
	start := sort.Search(len(records), func(i int) bool {
		r := records[i]
		return r.Segment > proc.Segment || (r.Segment == proc.Segment && r.Offset >= proc.Offset)
	})
	end := proc.Offset + proc.Length

	var lines []Line
	for i := start; i < len(records); i++ {
		rec := records[i]
		if rec.Segment != proc.Segment || rec.Offset >= end {
			break
		}
		if rec.Line == 0 {
			continue
		}
		rva, ok := it.file.RVA(rec.Segment, rec.Offset)
		if !ok {
			continue
		}
		next := end
		if i+1 < len(records) && records[i+1].Segment == rec.Segment && records[i+1].Offset < end {
			next = records[i+1].Offset
		}
		lines = append(lines, Line{
			Address: uint64(rva),
			Size:    uint64(next - rec.Offset),
			File:    newFileInfo(rec.File),
			Line:    uint64(rec.Line),
			Column:  uint64(rec.Column),
		})
	}
	return lines
}

type pdbFiles struct {
	file    *pdb.File
	modules []pdb.Module
	queue   []FileEntry
	seen    map[string]bool
}

func (it *pdbFiles) next() (FileEntry, error) {
	if it.seen == nil {
		it.seen = make(map[string]bool)
	}
	for len(it.queue) == 0 {
		if len(it.modules) == 0 {
			return FileEntry{}, io.EOF
		}
		mod := it.modules[0]
		it.modules = it.modules[1:]
		names, err := it.file.ModuleFiles(mod)
		if err != nil {
			return FileEntry{}, fmt.Errorf("failed to read files of module %s: %w", mod.Name, err)
		}
		for _, name := range names {
			if it.seen[name] {
				continue
			}
			it.seen[name] = true
			it.queue = append(it.queue, FileEntry{Info: newFileInfo(name)})
		}
	}
	file := it.queue[0]
	it.queue = it.queue[1:]
	return file, nil
}
