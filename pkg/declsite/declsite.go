package declsite

import (
	"reflect"
	"runtime"
	"strings"

	"github.com/coral-mesh/declsite/pkg/object"
)

// DeclarationByName finds the function whose demangled name equals name
// and returns the site of its first line. The scan stops at the first
// function with that name; if it carries no line information the result
// is not found.
func (s *Scanner) DeclarationByName(name string) (DeclarationSite, bool) {
	fn, found := Scan(s, func(candidate string, fn *object.Function) (*object.Function, Flow) {
		if candidate != name {
			return nil, Continue
		}
		return fn, Break
	})
	if !found {
		return DeclarationSite{}, false
	}

	site, err := Derive(fn)
	if err != nil {
		s.logger.Debug().Err(err).Str("function", name).Msg("Matched function has no declaration site")
		return DeclarationSite{}, false
	}
	return site, true
}

// DeclarationOf resolves the declaration site of a Go function value.
// Method values resolve to the method itself. Values that are not
// functions, and nil functions, are not found.
func (s *Scanner) DeclarationOf(fn any) (DeclarationSite, bool) {
	name, ok := FuncName(fn)
	if !ok {
		return DeclarationSite{}, false
	}
	return s.DeclarationByName(name)
}

// FuncName returns the symbol name of a Go function value as it appears
// in debug information, for example "net/http.(*Server).Serve".
func FuncName(fn any) (string, bool) {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return "", false
	}
	f := runtime.FuncForPC(v.Pointer())
	if f == nil {
		return "", false
	}
	// Method values are wrapped in a closure named after the method.
	return strings.TrimSuffix(f.Name(), "-fm"), true
}

// DeclarationByName scans the running process for the function called
// name. See Scanner.DeclarationByName.
func DeclarationByName(name string, opts ...Option) (DeclarationSite, bool) {
	return NewScanner(opts...).DeclarationByName(name)
}

// DeclarationOf scans the running process for the declaration of the
// function value fn. See Scanner.DeclarationOf.
func DeclarationOf(fn any, opts ...Option) (DeclarationSite, bool) {
	return NewScanner(opts...).DeclarationOf(fn)
}
