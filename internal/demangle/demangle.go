// Package demangle turns mangled linker names into the plain qualified
// names used to match functions.
package demangle

import (
	"regexp"
	"strings"

	"github.com/ianlancetaylor/demangle"

	"github.com/coral-mesh/declsite/pkg/object"
)

// Demangler converts a raw function name into a comparable name. It
// returns false when the name cannot be demangled; such functions are
// skipped by the scanner.
type Demangler interface {
	Demangle(name string, lang object.Language) (string, bool)
}

// NameOnly demangles to the bare qualified name, without parameters,
// template arguments, return types or hash suffixes. Names that are not
// mangled, including Go and C names, are returned unchanged.
var NameOnly Demangler = nameOnly{}

// Func adapts a function to the Demangler interface.
type Func func(name string, lang object.Language) (string, bool)

// Demangle calls f.
func (f Func) Demangle(name string, lang object.Language) (string, bool) {
	return f(name, lang)
}

// Legacy Rust symbols end in a 16 digit hash path segment.
var rustHashSuffix = regexp.MustCompile(`::h[0-9a-f]{16}$`)

type nameOnly struct{}

func (nameOnly) Demangle(name string, lang object.Language) (string, bool) {
	if name == "" {
		return "", false
	}
	switch lang {
	case object.LangGo, object.LangC:
		return name, true
	}

	mangled, ok := itaniumOrRust(name)
	if !ok {
		return name, true
	}
	out, err := demangle.ToString(mangled, demangle.NoParams, demangle.NoTemplateParams, demangle.NoClones)
	if err != nil || out == "" {
		return "", false
	}
	return rustHashSuffix.ReplaceAllString(out, ""), true
}

// itaniumOrRust recognizes Itanium C++ and Rust names, including the
// extra leading underscore Mach-O adds to every symbol.
func itaniumOrRust(name string) (string, bool) {
	for _, prefix := range []string{"_Z", "_R"} {
		if strings.HasPrefix(name, prefix) {
			return name, true
		}
		if strings.HasPrefix(name, "_"+prefix) {
			return name[1:], true
		}
	}
	return "", false
}
