package object

import (
	"fmt"

	"github.com/coral-mesh/declsite/internal/wasm"
)

type wasmObject struct {
	module *wasm.Module
}

func parseWasm(data []byte) (*wasmObject, error) {
	m, err := wasm.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse WebAssembly module: %w", err)
	}
	return &wasmObject{module: m}, nil
}

func (o *wasmObject) codeID() CodeID {
	if len(o.module.BuildID) == 0 {
		return ""
	}
	return CodeIDFromBytes(o.module.BuildID)
}

func (o *wasmObject) debugID() DebugID {
	if len(o.module.BuildID) == 0 {
		return NilDebugID
	}
	guid := make([]byte, 16)
	copy(guid, o.module.BuildID)
	return debugIDFromGUID(guid, 0)
}

func (o *wasmObject) arch() Arch { return ArchWasm32 }

func (o *wasmObject) kind() Kind {
	if !o.module.HasCode() && o.hasDebugInfo() {
		return KindDebug
	}
	return KindLibrary
}

func (o *wasmObject) loadAddress() uint64 { return 0 }

func (o *wasmObject) hasSymbols() bool { return len(o.module.FunctionNames) > 0 }

func (o *wasmObject) symbols() []Symbol {
	out := make([]Symbol, 0, len(o.module.Bodies))
	for _, body := range o.module.Bodies {
		name, ok := o.module.FunctionNames[body.Index]
		if !ok {
			continue
		}
		out = append(out, Symbol{Name: name, Address: body.Offset, Size: body.Size})
	}
	return out
}

func (o *wasmObject) hasDebugInfo() bool {
	return o.module.Section(".debug_info") != nil
}

func (o *wasmObject) hasUnwindInfo() bool { return false }

func (o *wasmObject) hasSources() bool { return false }

func (o *wasmObject) isMalformed() bool { return o.module.NameSectionErr != nil }

func (o *wasmObject) debugSession() (*DebugSession, error) {
	if !o.hasDebugInfo() {
		return newDwarfSession(nil, true), nil
	}
	d, err := loadDwarfSections(func(name string) ([]byte, error) {
		return o.module.Section(".debug_" + name), nil
	})
	if err != nil {
		return nil, err
	}
	// Code offsets start at zero, so address zero is a real function.
	return newDwarfSession(d, true), nil
}
