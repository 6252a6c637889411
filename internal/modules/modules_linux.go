//go:build linux

package modules

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v4/process"
)

// loadedModules lists the file-backed mappings of the current process.
func loadedModules() ([]Descriptor, error) {
	p, err := process.NewProcess(int32(os.Getpid())) // #nosec G115 -- pids fit in int32
	if err != nil {
		return nil, fmt.Errorf("failed to open current process: %w", err)
	}
	maps, err := p.MemoryMaps(false)
	if err != nil {
		return nil, fmt.Errorf("failed to read memory maps: %w", err)
	}

	exe, _ := os.Executable()
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}

	out := []Descriptor{{}}
	seen := map[string]bool{exe: true}
	if maps == nil {
		return out, nil
	}
	for _, m := range *maps {
		if !isFileMapping(m.Path) {
			continue
		}
		out = appendUnique(out, seen, m.Path)
	}
	return out, nil
}

// isFileMapping rejects anonymous and pseudo mappings such as [heap],
// [vdso] and deleted or memfd files.
func isFileMapping(path string) bool {
	if !strings.HasPrefix(path, "/") {
		return false
	}
	if strings.HasSuffix(path, " (deleted)") || strings.HasPrefix(path, "/memfd:") {
		return false
	}
	return !strings.HasPrefix(path, "/dev/")
}
