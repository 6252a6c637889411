package object

import (
	"bytes"
	"debug/macho"
	"fmt"
)

const (
	lcUUID = 0x1b

	machoTypeCore = 0x4
	machoTypeDsym = 0xa

	nStab = 0xe0
	nType = 0x0e
	nSect = 0x0e
)

type machoObject struct {
	file *macho.File
	uuid []byte
}

func parseMachO(data []byte) (*machoObject, error) {
	f, err := macho.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse Mach-O file: %w", err)
	}

	obj := &machoObject{file: f}
	for _, load := range f.Loads {
		raw := load.Raw()
		if len(raw) < 24 || f.ByteOrder.Uint32(raw[0:4]) != lcUUID {
			continue
		}
		obj.uuid = raw[8:24]
		break
	}
	return obj, nil
}

func (o *machoObject) codeID() CodeID {
	if o.uuid == nil {
		return ""
	}
	return CodeIDFromBytes(o.uuid)
}

func (o *machoObject) debugID() DebugID {
	if o.uuid == nil {
		return NilDebugID
	}
	return debugIDFromUUIDBytes(o.uuid)
}

func (o *machoObject) arch() Arch {
	switch o.file.Cpu {
	case macho.Cpu386:
		return ArchX86
	case macho.CpuAmd64:
		return ArchAmd64
	case macho.CpuArm:
		return ArchArm
	case macho.CpuArm64:
		return ArchArm64
	case macho.CpuPpc:
		return ArchPpc
	case macho.CpuPpc64:
		return ArchPpc64
	default:
		return ArchUnknown
	}
}

func (o *machoObject) kind() Kind {
	switch o.file.Type {
	case macho.TypeObj:
		return KindRelocatable
	case macho.TypeExec:
		return KindExecutable
	case macho.TypeDylib, macho.TypeBundle:
		return KindLibrary
	case machoTypeCore:
		return KindDump
	case machoTypeDsym:
		return KindDebug
	default:
		return KindNone
	}
}

func (o *machoObject) loadAddress() uint64 {
	if seg := o.file.Segment("__TEXT"); seg != nil {
		return seg.Addr
	}
	return 0
}

func (o *machoObject) hasSymbols() bool {
	return o.file.Symtab != nil && len(o.file.Symtab.Syms) > 0
}

func (o *machoObject) symbols() []Symbol {
	if o.file.Symtab == nil {
		return nil
	}
	out := make([]Symbol, 0, len(o.file.Symtab.Syms))
	for _, sym := range o.file.Symtab.Syms {
		if sym.Type&nStab != 0 || sym.Type&nType != nSect || sym.Name == "" {
			continue
		}
		out = append(out, Symbol{Name: sym.Name, Address: sym.Value})
	}
	return out
}

func (o *machoObject) hasDebugInfo() bool {
	return o.file.Section("__debug_info") != nil || o.file.Section("__zdebug_info") != nil
}

func (o *machoObject) hasUnwindInfo() bool {
	return o.file.Section("__eh_frame") != nil || o.file.Section("__unwind_info") != nil
}

func (o *machoObject) hasSources() bool { return false }

func (o *machoObject) isMalformed() bool { return false }

func (o *machoObject) debugSession() (*DebugSession, error) {
	allowZero := o.file.Type == macho.TypeObj
	if !o.hasDebugInfo() {
		return newDwarfSession(nil, allowZero), nil
	}
	d, err := o.file.DWARF()
	if err != nil {
		return nil, fmt.Errorf("failed to load DWARF from Mach-O file: %w", err)
	}
	return newDwarfSession(d, allowZero), nil
}
