package demangle

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/coral-mesh/declsite/pkg/object"
)

func TestNameOnly(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		lang   object.Language
		want   string
		wantOK bool
	}{
		{"itanium function", "_ZN3foo3barEv", object.LangCpp, "foo::bar", true},
		{"itanium with params", "_ZN3foo3bazEiPKc", object.LangCpp, "foo::baz", true},
		{"mach-o underscore", "__ZN3foo3barEv", object.LangCpp, "foo::bar", true},
		{"unknown language", "_ZN3foo3barEv", object.LangUnknown, "foo::bar", true},
		{"rust legacy hash", "_ZN4core3fmt5write17h0123456789abcdefE", object.LangRust, "core::fmt::write", true},
		{"plain c++ name", "main", object.LangCpp, "main", true},
		{"go passthrough", "_ZN3foo3barEv", object.LangGo, "_ZN3foo3barEv", true},
		{"go qualified", "github.com/x/y.(*T).M", object.LangGo, "github.com/x/y.(*T).M", true},
		{"c passthrough", "_Zfoo", object.LangC, "_Zfoo", true},
		{"invalid itanium", "_Z!", object.LangCpp, "", false},
		{"empty", "", object.LangCpp, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NameOnly.Demangle(tt.input, tt.lang)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestFunc(t *testing.T) {
	var d Demangler = Func(func(name string, lang object.Language) (string, bool) {
		if lang != object.LangRust {
			return "", false
		}
		return strings.ToUpper(name), true
	})

	got, ok := d.Demangle("run", object.LangRust)
	assert.True(t, ok)
	assert.Equal(t, "RUN", got)

	_, ok = d.Demangle("run", object.LangGo)
	assert.False(t, ok)
}
