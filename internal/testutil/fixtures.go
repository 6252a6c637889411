package testutil

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"sort"
)

var le = binary.LittleEndian

func pad4(b *bytes.Buffer) {
	for b.Len()%4 != 0 {
		b.WriteByte(0)
	}
}

func u16(b *bytes.Buffer, v uint16) { _ = binary.Write(b, le, v) }
func u32(b *bytes.Buffer, v uint32) { _ = binary.Write(b, le, v) }
func u64(b *bytes.Buffer, v uint64) { _ = binary.Write(b, le, v) }

func cstring(b *bytes.Buffer, s string) {
	b.WriteString(s)
	b.WriteByte(0)
}

// ELFLayout describes a minimal 64-bit little-endian ELF file.
type ELFLayout struct {
	// Type is the e_type value. Zero means ET_EXEC.
	Type uint16
	// Machine is the e_machine value. Zero means EM_X86_64.
	Machine   uint16
	BuildID   []byte
	DebugLink string
	LinkCRC   uint32
}

// BuildELF returns an ELF file holding only the notes and sections named
// in layout.
func BuildELF(layout ELFLayout) []byte {
	if layout.Type == 0 {
		layout.Type = 2
	}
	if layout.Machine == 0 {
		layout.Machine = 62
	}

	type section struct {
		name  string
		typ   uint32
		data  []byte
		align uint64
	}
	var sections []section
	if len(layout.BuildID) > 0 {
		var note bytes.Buffer
		u32(&note, 4)
		u32(&note, uint32(len(layout.BuildID)))
		u32(&note, 3)
		note.WriteString("GNU\x00")
		note.Write(layout.BuildID)
		pad4(&note)
		sections = append(sections, section{".note.gnu.build-id", 7, note.Bytes(), 4})
	}
	if layout.DebugLink != "" {
		var link bytes.Buffer
		cstring(&link, layout.DebugLink)
		pad4(&link)
		u32(&link, layout.LinkCRC)
		sections = append(sections, section{".gnu_debuglink", 1, link.Bytes(), 4})
	}

	var shstrtab bytes.Buffer
	shstrtab.WriteByte(0)
	nameOffsets := make([]uint32, len(sections)+1)
	for i, sec := range sections {
		nameOffsets[i] = uint32(shstrtab.Len())
		cstring(&shstrtab, sec.name)
	}
	nameOffsets[len(sections)] = uint32(shstrtab.Len())
	cstring(&shstrtab, ".shstrtab")
	sections = append(sections, section{".shstrtab", 3, shstrtab.Bytes(), 1})

	const headerSize = 64
	var body bytes.Buffer
	offsets := make([]uint64, len(sections))
	for i, sec := range sections {
		for (headerSize+body.Len())%8 != 0 {
			body.WriteByte(0)
		}
		offsets[i] = uint64(headerSize + body.Len())
		body.Write(sec.data)
	}
	for (headerSize+body.Len())%8 != 0 {
		body.WriteByte(0)
	}
	shoff := uint64(headerSize + body.Len())

	var out bytes.Buffer
	out.Write([]byte{0x7f, 'E', 'L', 'F', 2, 1, 1, 0})
	out.Write(make([]byte, 8))
	u16(&out, layout.Type)
	u16(&out, layout.Machine)
	u32(&out, 1)
	u64(&out, 0) // entry
	u64(&out, 0) // phoff
	u64(&out, shoff)
	u32(&out, 0)
	u16(&out, headerSize)
	u16(&out, 56)
	u16(&out, 0)
	u16(&out, 64)
	u16(&out, uint16(len(sections)+1))
	u16(&out, uint16(len(sections)))
	out.Write(body.Bytes())

	out.Write(make([]byte, 64)) // SHN_UNDEF
	for i, sec := range sections {
		u32(&out, nameOffsets[i])
		u32(&out, sec.typ)
		u64(&out, 0)
		u64(&out, 0)
		u64(&out, offsets[i])
		u64(&out, uint64(len(sec.data)))
		u32(&out, 0)
		u32(&out, 0)
		u64(&out, sec.align)
		u64(&out, 0)
	}
	return out.Bytes()
}

// Mach-O CPU types.
const (
	CPUTypeX86_64 = 0x01000007
	CPUTypeARM64  = 0x0100000c
)

// BuildMachO returns a 64-bit Mach-O executable header without load
// commands.
func BuildMachO(cpuType uint32) []byte {
	var out bytes.Buffer
	u32(&out, 0xfeedfacf)
	u32(&out, cpuType)
	u32(&out, 3)
	u32(&out, 2) // MH_EXECUTE
	u32(&out, 0)
	u32(&out, 0)
	u32(&out, 0)
	u32(&out, 0)
	return out.Bytes()
}

// BuildFatMachO wraps one thin Mach-O per CPU type into a universal binary.
func BuildFatMachO(cpuTypes ...uint32) []byte {
	const align = 12
	headerSize := 8 + 20*len(cpuTypes)
	offset := uint32(1 << align)
	for offset < uint32(headerSize) {
		offset += 1 << align
	}

	var header bytes.Buffer
	be := binary.BigEndian
	_ = binary.Write(&header, be, uint32(0xcafebabe))
	_ = binary.Write(&header, be, uint32(len(cpuTypes)))
	var slices [][]byte
	for _, cpu := range cpuTypes {
		slice := BuildMachO(cpu)
		_ = binary.Write(&header, be, cpu)
		_ = binary.Write(&header, be, uint32(3))
		_ = binary.Write(&header, be, offset)
		_ = binary.Write(&header, be, uint32(len(slice)))
		_ = binary.Write(&header, be, uint32(align))
		slices = append(slices, slice)
		offset += 1 << align
	}

	out := make([]byte, 0, int(offset))
	out = append(out, header.Bytes()...)
	for _, slice := range slices {
		for len(out)%(1<<align) != 0 {
			out = append(out, 0)
		}
		out = append(out, slice...)
	}
	return out
}

// PELayout describes a minimal PE32+ image.
type PELayout struct {
	// Machine is the COFF machine. Zero means IMAGE_FILE_MACHINE_AMD64.
	Machine       uint16
	TimeDateStamp uint32
	ImageBase     uint64
	DLL           bool
	GUID          [16]byte
	Age           uint32
	PdbPath       string
}

// BuildPE returns a PE image with one .rdata section. A CodeView record
// is included when PdbPath is set.
func BuildPE(layout PELayout) []byte {
	if layout.Machine == 0 {
		layout.Machine = 0x8664
	}
	const (
		fileAlign  = 0x200
		sectionVA  = 0x1000
		imageSize  = 0x2000
		optSize    = 240
		debugEntry = 28
	)

	var rdata bytes.Buffer
	var debugDir [2]uint32
	if layout.PdbPath != "" {
		const recordOff = 64
		var record bytes.Buffer
		record.WriteString("RSDS")
		record.Write(layout.GUID[:])
		u32(&record, layout.Age)
		cstring(&record, layout.PdbPath)

		u32(&rdata, 0)
		u32(&rdata, layout.TimeDateStamp)
		u16(&rdata, 0)
		u16(&rdata, 0)
		u32(&rdata, 2) // IMAGE_DEBUG_TYPE_CODEVIEW
		u32(&rdata, uint32(record.Len()))
		u32(&rdata, sectionVA+recordOff)
		u32(&rdata, fileAlign+recordOff)
		rdata.Write(make([]byte, recordOff-rdata.Len()))
		rdata.Write(record.Bytes())
		debugDir = [2]uint32{sectionVA, debugEntry}
	}
	for rdata.Len() < fileAlign {
		rdata.WriteByte(0)
	}

	characteristics := uint16(0x0022)
	if layout.DLL {
		characteristics |= 0x2000
	}

	var out bytes.Buffer
	out.WriteString("MZ")
	out.Write(make([]byte, 0x3a))
	u32(&out, 0x40)
	out.WriteString("PE\x00\x00")

	u16(&out, layout.Machine)
	u16(&out, 1)
	u32(&out, layout.TimeDateStamp)
	u32(&out, 0)
	u32(&out, 0)
	u16(&out, optSize)
	u16(&out, characteristics)

	opt := make([]byte, optSize)
	le.PutUint16(opt[0:], 0x20b)
	le.PutUint64(opt[24:], layout.ImageBase)
	le.PutUint32(opt[32:], sectionVA)
	le.PutUint32(opt[36:], fileAlign)
	le.PutUint32(opt[56:], imageSize)
	le.PutUint32(opt[60:], fileAlign)
	le.PutUint32(opt[108:], 16)
	le.PutUint32(opt[112+6*8:], debugDir[0])
	le.PutUint32(opt[112+6*8+4:], debugDir[1])
	out.Write(opt)

	name := make([]byte, 8)
	copy(name, ".rdata")
	out.Write(name)
	u32(&out, fileAlign)
	u32(&out, sectionVA)
	u32(&out, fileAlign)
	u32(&out, fileAlign)
	u32(&out, 0)
	u32(&out, 0)
	u16(&out, 0)
	u16(&out, 0)
	u32(&out, 0x40000040)

	for out.Len() < fileAlign {
		out.WriteByte(0)
	}
	out.Write(rdata.Bytes())
	return out.Bytes()
}

// WasmFunction is a function body of a synthetic WebAssembly module.
type WasmFunction struct {
	Name string
	// Body is the encoded body without its size prefix. Nil means an empty
	// body with no locals.
	Body []byte
}

// WasmCustomSection is an additional custom section.
type WasmCustomSection struct {
	Name string
	Data []byte
}

// WasmLayout describes a synthetic WebAssembly module.
type WasmLayout struct {
	BuildID       []byte
	ImportedFuncs int
	Functions     []WasmFunction
	Custom        []WasmCustomSection
}

func leb(b *bytes.Buffer, v uint64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	b.Write(tmp[:n])
}

func wasmName(b *bytes.Buffer, s string) {
	leb(b, uint64(len(s)))
	b.WriteString(s)
}

func wasmSection(out *bytes.Buffer, id byte, payload []byte) {
	out.WriteByte(id)
	leb(out, uint64(len(payload)))
	out.Write(payload)
}

func wasmCustom(out *bytes.Buffer, name string, data []byte) {
	var payload bytes.Buffer
	wasmName(&payload, name)
	payload.Write(data)
	wasmSection(out, 0, payload.Bytes())
}

// WasmCodeOffsets returns the offsets of the function bodies relative to
// the code section payload, as BuildWasm lays them out.
func WasmCodeOffsets(layout WasmLayout) []uint64 {
	var payload bytes.Buffer
	leb(&payload, uint64(len(layout.Functions)))
	out := make([]uint64, 0, len(layout.Functions))
	for _, fn := range layout.Functions {
		body := wasmBody(fn)
		leb(&payload, uint64(len(body)))
		out = append(out, uint64(payload.Len()))
		payload.Write(body)
	}
	return out
}

func wasmBody(fn WasmFunction) []byte {
	if fn.Body == nil {
		return []byte{0x00, 0x0b}
	}
	return fn.Body
}

// BuildWasm returns a WebAssembly module with the given imports, bodies,
// function names, build id and custom sections.
func BuildWasm(layout WasmLayout) []byte {
	var out bytes.Buffer
	out.Write([]byte{0x00, 'a', 's', 'm', 0x01, 0x00, 0x00, 0x00})

	if layout.ImportedFuncs > 0 {
		var imports bytes.Buffer
		leb(&imports, uint64(layout.ImportedFuncs))
		for i := 0; i < layout.ImportedFuncs; i++ {
			wasmName(&imports, "env")
			wasmName(&imports, "imported")
			imports.WriteByte(0)
			leb(&imports, 0)
		}
		wasmSection(&out, 2, imports.Bytes())
	}

	if len(layout.Functions) > 0 {
		var code bytes.Buffer
		leb(&code, uint64(len(layout.Functions)))
		for _, fn := range layout.Functions {
			body := wasmBody(fn)
			leb(&code, uint64(len(body)))
			code.Write(body)
		}
		wasmSection(&out, 10, code.Bytes())
	}

	var names bytes.Buffer
	count := 0
	for i, fn := range layout.Functions {
		if fn.Name == "" {
			continue
		}
		leb(&names, uint64(layout.ImportedFuncs+i))
		wasmName(&names, fn.Name)
		count++
	}
	if count > 0 {
		var sub bytes.Buffer
		leb(&sub, uint64(count))
		sub.Write(names.Bytes())
		var section bytes.Buffer
		section.WriteByte(1)
		leb(&section, uint64(sub.Len()))
		section.Write(sub.Bytes())
		wasmCustom(&out, "name", section.Bytes())
	}

	if len(layout.BuildID) > 0 {
		var id bytes.Buffer
		leb(&id, uint64(len(layout.BuildID)))
		id.Write(layout.BuildID)
		wasmCustom(&out, "build_id", id.Bytes())
	}
	for _, sec := range layout.Custom {
		wasmCustom(&out, sec.Name, sec.Data)
	}
	return out.Bytes()
}

// SourceBundleLayout describes a source bundle.
type SourceBundleLayout struct {
	// Files maps original source paths to their contents.
	Files      map[string]string
	Attributes map[string]string
	// Version overrides the header version. Zero means 2.
	Version uint32
}

// BuildSourceBundle returns a source bundle holding the given files.
func BuildSourceBundle(layout SourceBundleLayout) []byte {
	version := layout.Version
	if version == 0 {
		version = 2
	}

	var out bytes.Buffer
	out.WriteString("SYSB")
	u32(&out, version)

	type file struct {
		Type string `json:"type"`
		Path string `json:"path"`
	}
	manifest := struct {
		Files      map[string]file   `json:"files"`
		Attributes map[string]string `json:"attributes,omitempty"`
	}{Files: map[string]file{}, Attributes: layout.Attributes}

	paths := make([]string, 0, len(layout.Files))
	for p := range layout.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	zw := zip.NewWriter(&out)
	for i, p := range paths {
		name := "files/" + string(rune('a'+i%26)) + "/" + lastElem(p)
		w, err := zw.Create(name)
		if err != nil {
			panic(err)
		}
		_, _ = w.Write([]byte(layout.Files[p]))
		manifest.Files[name] = file{Type: "source", Path: p}
	}
	raw, err := json.Marshal(manifest)
	if err != nil {
		panic(err)
	}
	w, err := zw.Create("manifest.json")
	if err != nil {
		panic(err)
	}
	_, _ = w.Write(raw)
	if err := zw.Close(); err != nil {
		panic(err)
	}
	return out.Bytes()
}

func lastElem(p string) string {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '/' || p[i] == '\\' {
			return p[i+1:]
		}
	}
	return p
}
