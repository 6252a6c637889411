//go:build windows

package modules

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	maxModules  = 1024
	maxPathSize = 32768
)

// loadedModules lists the modules of the current process. The first
// module is the executable.
func loadedModules() ([]Descriptor, error) {
	proc := windows.CurrentProcess()
	handles := make([]windows.Handle, maxModules)
	var needed uint32
	size := uint32(len(handles)) * uint32(unsafe.Sizeof(handles[0]))
	if err := windows.EnumProcessModules(proc, &handles[0], size, &needed); err != nil {
		return nil, fmt.Errorf("failed to enumerate process modules: %w", err)
	}
	n := min(int(needed/uint32(unsafe.Sizeof(handles[0]))), len(handles))

	out := make([]Descriptor, 0, max(n, 1))
	out = append(out, Descriptor{})
	if n < 2 {
		return out, nil
	}
	seen := map[string]bool{}
	buf := make([]uint16, maxPathSize)
	for _, h := range handles[1:n] {
		if err := windows.GetModuleFileNameEx(proc, h, &buf[0], uint32(len(buf))); err != nil {
			continue
		}
		out = appendUnique(out, seen, windows.UTF16ToString(buf))
	}
	return out, nil
}
