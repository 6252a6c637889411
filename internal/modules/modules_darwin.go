//go:build darwin

package modules

import (
	"fmt"
	"sync"

	"github.com/ebitengine/purego"
)

const libSystem = "/usr/lib/libSystem.B.dylib"

var (
	dyldOnce       sync.Once
	dyldErr        error
	dyldImageCount func() uint32
	dyldImageName  func(uint32) string
)

func loadDyld() error {
	dyldOnce.Do(func() {
		lib, err := purego.Dlopen(libSystem, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err != nil {
			dyldErr = fmt.Errorf("failed to open %s: %w", libSystem, err)
			return
		}
		purego.RegisterLibFunc(&dyldImageCount, lib, "_dyld_image_count")
		purego.RegisterLibFunc(&dyldImageName, lib, "_dyld_get_image_name")
	})
	return dyldErr
}

// loadedModules lists the images registered with dyld. Image zero is the
// main executable.
func loadedModules() ([]Descriptor, error) {
	if err := loadDyld(); err != nil {
		return nil, err
	}

	count := dyldImageCount()
	out := make([]Descriptor, 0, count)
	out = append(out, Descriptor{})
	seen := map[string]bool{}
	for i := uint32(1); i < count; i++ {
		// Images unloaded since the count was taken have no name.
		out = appendUnique(out, seen, dyldImageName(i))
	}
	return out, nil
}
