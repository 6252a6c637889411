package object

import (
	"debug/dwarf"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

// DW_LANG values not named by debug/dwarf.
const (
	dwLangC89          = 0x01
	dwLangC            = 0x02
	dwLangCpp          = 0x04
	dwLangC99          = 0x0c
	dwLangD            = 0x13
	dwLangObjC         = 0x10
	dwLangObjCpp       = 0x11
	dwLangGo           = 0x16
	dwLangCpp03        = 0x19
	dwLangCpp11        = 0x1a
	dwLangRust         = 0x1c
	dwLangC11          = 0x1d
	dwLangSwift        = 0x1e
	dwLangCpp14        = 0x21
	dwLangCpp17        = 0x2a
	dwLangCpp20        = 0x2b
	dwLangC17          = 0x2c
	dwAttrMipsLinkName = dwarf.Attr(0x2007)

	// Functions removed by the linker keep their DIEs with these low_pc values.
	tombstone32 = 0xffffffff
	tombstone64 = 0xffffffffffffffff

	maxReferenceDepth = 8
)

func dwarfLanguage(lang int64) Language {
	switch lang {
	case dwLangC89, dwLangC, dwLangC99, dwLangC11, dwLangC17:
		return LangC
	case dwLangCpp, dwLangCpp03, dwLangCpp11, dwLangCpp14, dwLangCpp17, dwLangCpp20:
		return LangCpp
	case dwLangObjC:
		return LangObjC
	case dwLangObjCpp:
		return LangObjCpp
	case dwLangRust:
		return LangRust
	case dwLangGo:
		return LangGo
	case dwLangSwift:
		return LangSwift
	case dwLangD:
		return LangD
	default:
		return LangUnknown
	}
}

// dwarfSession reads functions and files from DWARF data. A nil data
// value is an object without debug information.
type dwarfSession struct {
	data *dwarf.Data
	// allowZero keeps functions at address zero, which is a valid address
	// in relocatable objects but a tombstone everywhere else.
	allowZero bool
}

func newDwarfSession(data *dwarf.Data, allowZero bool) *DebugSession {
	return newDebugSession(SessionDwarf, &dwarfSession{data: data, allowZero: allowZero})
}

func (s *dwarfSession) functions() functionSource {
	if s.data == nil {
		return &sliceFunctions{}
	}
	return &dwarfFunctions{session: s, reader: s.data.Reader()}
}

func (s *dwarfSession) files() fileSource {
	if s.data == nil {
		return &sliceFiles{}
	}
	return &dwarfFiles{data: s.data, reader: s.data.Reader()}
}

func (s *dwarfSession) sourceByPath(string) (string, bool, error) {
	return "", false, nil
}

// dwarfUnit holds the per compilation unit state shared by its functions.
type dwarfUnit struct {
	compDir  string
	language Language
	rows     []Line
}

// dieRecord is a subprogram or inlined subroutine found while walking a unit.
type dieRecord struct {
	entry *dwarf.Entry
	// parent indexes the enclosing subprogram record, or -1.
	parent int
}

// dwarfFunctions walks compilation units one at a time and queues the
// functions of each unit.
type dwarfFunctions struct {
	session *dwarfSession
	reader  *dwarf.Reader
	queue   []*Function
	failed  bool
}

func (it *dwarfFunctions) next() (*Function, error) {
	for len(it.queue) == 0 {
		if it.failed {
			return nil, io.EOF
		}
		entry, err := it.reader.Next()
		if err != nil {
			it.failed = true
			return nil, fmt.Errorf("failed to read compilation unit: %w", err)
		}
		if entry == nil {
			return nil, io.EOF
		}
		if entry.Tag != dwarf.TagCompileUnit && entry.Tag != dwarf.TagPartialUnit {
			it.reader.SkipChildren()
			continue
		}
		fns, lineErr, err := it.readUnit(entry)
		if err != nil {
			it.failed = true
			return nil, err
		}
		it.queue = fns
		if lineErr != nil {
			return nil, lineErr
		}
	}

	fn := it.queue[0]
	it.queue = it.queue[1:]
	return fn, nil
}

// readUnit returns the functions of a unit. A broken line program only
// costs the unit its line records and is reported as lineErr. err means
// the entry reader can not continue.
func (it *dwarfFunctions) readUnit(cu *dwarf.Entry) (fns []*Function, lineErr error, err error) {
	unit := &dwarfUnit{}
	unit.compDir, _ = cu.Val(dwarf.AttrCompDir).(string)
	if lang, ok := cu.Val(dwarf.AttrLanguage).(int64); ok {
		unit.language = dwarfLanguage(lang)
	}

	records, names, err := it.walkUnit(cu)
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, nil
	}

	unit.rows, lineErr = readLineRows(it.session.data, cu)

	resolver := &nameResolver{data: it.session.data, names: names, goNames: unit.language == LangGo}

	// Functions by record index, for attaching inlinees.
	byRecord := make(map[int]*Function, len(records))
	for i, rec := range records {
		ranges := it.codeRanges(rec.entry)
		if len(ranges) == 0 {
			continue
		}
		fn := &Function{
			Name:     resolver.functionName(rec.entry),
			Language: unit.language,
			CompDir:  unit.compDir,
		}
		fn.Address, fn.Size = spanOf(ranges)
		fn.Lines = unit.linesIn(ranges)

		if rec.entry.Tag == dwarf.TagInlinedSubroutine {
			fn.Inline = true
			if parent := findOwner(records, byRecord, rec.parent); parent != nil {
				parent.Inlinees = append(parent.Inlinees, *fn)
			}
			continue
		}
		byRecord[i] = fn
		fns = append(fns, fn)
	}
	return fns, lineErr, nil
}

// findOwner returns the nearest enclosing out-of-line function.
func findOwner(records []dieRecord, byRecord map[int]*Function, idx int) *Function {
	for idx >= 0 {
		if fn, ok := byRecord[idx]; ok {
			return fn
		}
		idx = records[idx].parent
	}
	return nil
}

type scopeFrame struct {
	scope  string
	record int
}

// walkUnit reads all DIEs of the unit. It returns the subprogram and
// inlined subroutine records in DIE order, and the qualified names of all
// named DIEs by offset.
func (it *dwarfFunctions) walkUnit(cu *dwarf.Entry) ([]dieRecord, map[dwarf.Offset]string, error) {
	var records []dieRecord
	names := make(map[dwarf.Offset]string)
	if !cu.Children {
		return nil, names, nil
	}

	stack := []scopeFrame{{scope: "", record: -1}}
	for len(stack) > 0 {
		entry, err := it.reader.Next()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read debug entry: %w", err)
		}
		if entry == nil {
			return nil, nil, errors.New("unexpected end of debug entries")
		}
		if entry.Tag == 0 {
			stack = stack[:len(stack)-1]
			continue
		}

		top := stack[len(stack)-1]
		name, _ := entry.Val(dwarf.AttrName).(string)
		qualified := name
		if name != "" && top.scope != "" {
			qualified = top.scope + "::" + name
		}
		if name != "" {
			names[entry.Offset] = qualified
		}

		child := scopeFrame{scope: top.scope, record: top.record}
		switch entry.Tag {
		case dwarf.TagNamespace, dwarf.TagClassType, dwarf.TagStructType, dwarf.TagUnionType:
			if name != "" {
				child.scope = qualified
			}
		case dwarf.TagSubprogram, dwarf.TagInlinedSubroutine:
			records = append(records, dieRecord{entry: entry, parent: top.record})
			child.record = len(records) - 1
		}

		if entry.Children {
			stack = append(stack, child)
		}
	}
	return records, names, nil
}

// codeRanges returns the address ranges of an entry, without linker tombstones.
func (it *dwarfFunctions) codeRanges(entry *dwarf.Entry) [][2]uint64 {
	ranges, err := it.session.data.Ranges(entry)
	if err != nil {
		return nil
	}
	out := ranges[:0]
	for _, r := range ranges {
		if r[1] <= r[0] {
			continue
		}
		if r[0] == tombstone32 || r[0] == tombstone64 || r[0] == tombstone64-1 {
			continue
		}
		if r[0] == 0 && !it.session.allowZero {
			continue
		}
		out = append(out, r)
	}
	return out
}

func spanOf(ranges [][2]uint64) (uint64, uint64) {
	low, high := ranges[0][0], ranges[0][1]
	for _, r := range ranges[1:] {
		low = min(low, r[0])
		high = max(high, r[1])
	}
	return low, high - low
}

// linesIn returns the line rows inside ranges, ordered by address.
func (u *dwarfUnit) linesIn(ranges [][2]uint64) []Line {
	var lines []Line
	for _, r := range ranges {
		start := sort.Search(len(u.rows), func(i int) bool {
			return u.rows[i].Address >= r[0]
		})
		for i := start; i < len(u.rows) && u.rows[i].Address < r[1]; i++ {
			lines = append(lines, u.rows[i])
		}
	}
	if len(ranges) > 1 {
		sortLines(lines)
	}
	return lines
}

// readLineRows reads the line program of a unit into address-ordered rows.
// Every row spans up to the next row of its sequence. Rows for line zero
// mark compiler-generated code and are dropped.
func readLineRows(data *dwarf.Data, cu *dwarf.Entry) ([]Line, error) {
	lr, err := data.LineReader(cu)
	if err != nil {
		return nil, fmt.Errorf("failed to read line program: %w", err)
	}
	if lr == nil {
		return nil, nil
	}

	var (
		rows    []Line
		entry   dwarf.LineEntry
		pending *Line
	)
	for {
		err := lr.Next(&entry)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read line row: %w", err)
		}
		if pending != nil {
			if entry.Address >= pending.Address {
				pending.Size = entry.Address - pending.Address
			}
			if pending.Line != 0 {
				rows = append(rows, *pending)
			}
			pending = nil
		}
		if entry.EndSequence {
			continue
		}
		row := Line{
			Address: entry.Address,
			Line:    uint64(max(entry.Line, 0)),
			Column:  uint64(max(entry.Column, 0)),
		}
		if entry.File != nil {
			row.File = newFileInfo(entry.File.Name)
		}
		pending = &row
	}
	if pending != nil && pending.Line != 0 {
		rows = append(rows, *pending)
	}

	sortLines(rows)
	return rows, nil
}

// nameResolver computes function names, following specification and
// abstract origin references.
type nameResolver struct {
	data    *dwarf.Data
	names   map[dwarf.Offset]string
	goNames bool
}

func (r *nameResolver) functionName(entry *dwarf.Entry) string {
	return r.resolve(entry, 0)
}

func (r *nameResolver) resolve(entry *dwarf.Entry, depth int) string {
	if linkage := linkageName(entry); linkage != "" {
		return linkage
	}
	if name, _ := entry.Val(dwarf.AttrName).(string); name != "" {
		if r.goNames {
			return name
		}
		if qualified, ok := r.names[entry.Offset]; ok {
			return qualified
		}
		return name
	}
	if depth >= maxReferenceDepth {
		return ""
	}
	for _, attr := range []dwarf.Attr{dwarf.AttrAbstractOrigin, dwarf.AttrSpecification} {
		off, ok := entry.Val(attr).(dwarf.Offset)
		if !ok {
			continue
		}
		if ref := r.entryAt(off); ref != nil {
			return r.resolve(ref, depth+1)
		}
	}
	return ""
}

func (r *nameResolver) entryAt(off dwarf.Offset) *dwarf.Entry {
	reader := r.data.Reader()
	reader.Seek(off)
	entry, err := reader.Next()
	if err != nil {
		return nil
	}
	return entry
}

func linkageName(entry *dwarf.Entry) string {
	if name, ok := entry.Val(dwarf.AttrLinkageName).(string); ok && name != "" {
		return name
	}
	if name, ok := entry.Val(dwAttrMipsLinkName).(string); ok && name != "" {
		return name
	}
	return ""
}

// dwarfFiles yields the file table of every unit, once per distinct path.
type dwarfFiles struct {
	data   *dwarf.Data
	reader *dwarf.Reader
	queue  []FileEntry
	failed bool
}

func (it *dwarfFiles) next() (FileEntry, error) {
	for len(it.queue) == 0 {
		if it.failed {
			return FileEntry{}, io.EOF
		}
		entry, err := it.reader.Next()
		if err != nil {
			it.failed = true
			return FileEntry{}, fmt.Errorf("failed to read compilation unit: %w", err)
		}
		if entry == nil {
			return FileEntry{}, io.EOF
		}
		it.reader.SkipChildren()
		if entry.Tag != dwarf.TagCompileUnit && entry.Tag != dwarf.TagPartialUnit {
			continue
		}
		files, err := unitFiles(it.data, entry)
		if err != nil {
			return FileEntry{}, err
		}
		it.queue = files
	}

	file := it.queue[0]
	it.queue = it.queue[1:]
	return file, nil
}

func unitFiles(data *dwarf.Data, cu *dwarf.Entry) ([]FileEntry, error) {
	lr, err := data.LineReader(cu)
	if err != nil {
		return nil, fmt.Errorf("failed to read line program: %w", err)
	}
	if lr == nil {
		return nil, nil
	}
	compDir, _ := cu.Val(dwarf.AttrCompDir).(string)

	seen := make(map[string]bool)
	var files []FileEntry
	for _, f := range lr.Files() {
		if f == nil || f.Name == "" || seen[f.Name] {
			continue
		}
		seen[f.Name] = true
		files = append(files, FileEntry{CompDir: compDir, Info: newFileInfo(f.Name)})
	}
	return files, nil
}

// loadDwarfSections builds DWARF data from a section lookup function. The
// lookup returns nil for absent sections; name is given without the
// ".debug_" or "__debug_" prefix.
func loadDwarfSections(lookup func(name string) ([]byte, error)) (*dwarf.Data, error) {
	required := map[string][]byte{}
	for _, name := range []string{"abbrev", "info", "str", "line", "ranges"} {
		b, err := lookup(name)
		if err != nil {
			return nil, err
		}
		required[name] = b
	}
	if required["info"] == nil {
		return nil, nil
	}

	d, err := dwarf.New(required["abbrev"], nil, nil, required["info"], required["line"], nil, required["ranges"], required["str"])
	if err != nil {
		return nil, fmt.Errorf("failed to load debug info: %w", err)
	}

	for _, name := range []string{"addr", "line_str", "loclists", "rnglists", "str_offsets"} {
		b, err := lookup(name)
		if err != nil {
			return nil, err
		}
		if b == nil {
			continue
		}
		if err := d.AddSection(".debug_"+name, b); err != nil {
			return nil, fmt.Errorf("failed to load .debug_%s: %w", name, err)
		}
	}
	return d, nil
}

// isDwarfSection reports whether a section name (with any of the common
// prefixes) names a DWARF section, and returns the bare suffix.
func isDwarfSection(name string) (string, bool) {
	for _, prefix := range []string{".debug_", "__debug_", ".zdebug_", "__zdebug_"} {
		if strings.HasPrefix(name, prefix) {
			return strings.TrimPrefix(name, prefix), true
		}
	}
	return "", false
}
