package gen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCMakeGenLibraryAndExecutable(t *testing.T) {
	g := NewCMakeGen()
	g.AddLibrary(Library{
		Name:       "foo_lib",
		SourceVar:  "foo_source",
		SourceGlob: "foo/src/*.cxx",
		Links:      []string{"xelib"},
	})
	g.AddExecutable(Executable{
		Name:     "foo_run",
		Entry:    "foo/run_main.cxx",
		Links:    []string{"foo_lib"},
		Includes: []string{"foo/src"},
	})

	assert.Equal(t, `file(GLOB foo_source "foo/src/*.cxx")
add_library(foo_lib SHARED ${foo_source})
target_link_libraries(foo_lib xelib)
add_executable(foo_run foo/run_main.cxx)
target_link_libraries(foo_run foo_lib)
target_include_directories(foo_run PUBLIC foo/src)
`, g.Generate())
	assert.Len(t, g.Directives(), 6)
}

func TestCMakeGenExecutableWithoutIncludes(t *testing.T) {
	g := NewCMakeGen()
	g.AddExecutable(Executable{Name: "bar_tool", Entry: "bar/tool_main.cxx", Links: []string{"xelib"}})

	assert.Equal(t, []string{
		"add_executable(bar_tool bar/tool_main.cxx)",
		"target_link_libraries(bar_tool xelib)",
	}, g.Directives())
}

func TestCMakeGenEmpty(t *testing.T) {
	g := NewCMakeGen()
	g.Marker = "ignored"
	assert.Empty(t, g.Generate())
}

func TestCMakeGenMarker(t *testing.T) {
	g := NewCMakeGen()
	g.Marker = "1234"
	g.AddExecutable(Executable{Name: "a", Entry: "a_main.cxx"})

	lines := strings.Split(strings.TrimSuffix(g.Generate(), "\n"), "\n")
	assert.Equal(t, []string{"# xepm:begin 1234", "add_executable(a a_main.cxx)", "# xepm:end 1234"}, lines)
	assert.Len(t, g.Directives(), 1)
}

func TestCMakeGenKeepsDuplicates(t *testing.T) {
	g := NewCMakeGen()
	exe := Executable{Name: "foo", Entry: "foo/a_main.cxx"}
	g.AddExecutable(exe)
	g.AddExecutable(exe)
	assert.Equal(t, []string{"add_executable(foo foo/a_main.cxx)", "add_executable(foo foo/a_main.cxx)"}, g.Directives())
}

func TestQuote(t *testing.T) {
	tests := map[string]string{
		"foo/src":          "foo/src",
		"my dir/a.cxx":     `"my dir/a.cxx"`,
		`C:\x`:             `"C:\\x"`,
		`say"hi"`:          `"say\"hi\""`,
		"${var}":           `"\${var}"`,
		"":                 `""`,
		"semi;colon":       `"semi;colon"`,
		"paren(thesis).cc": `"paren(thesis).cc"`,
	}
	for in, want := range tests {
		assert.Equal(t, want, quote(in), "quote(%q)", in)
	}
}

func TestCMakeGenSanitizesSourceVar(t *testing.T) {
	g := NewCMakeGen()
	g.AddLibrary(Library{
		Name:       "my pkg_lib",
		SourceVar:  "my pkg_source",
		SourceGlob: "my pkg/src/*.cxx",
		Links:      []string{"xelib"},
	})

	assert.Equal(t, []string{
		`file(GLOB my_pkg_source "my pkg/src/*.cxx")`,
		`add_library("my pkg_lib" SHARED ${my_pkg_source})`,
		`target_link_libraries("my pkg_lib" xelib)`,
	}, g.Directives())
}

func TestVariable(t *testing.T) {
	tests := map[string]string{
		"foo_source":     "foo_source",
		"Foo9_source":    "Foo9_source",
		"my pkg_source":  "my_pkg_source",
		"a-b.c;d_source": "a_b_c_d_source",
		"ünï_source":     "_n__source",
	}
	for in, want := range tests {
		assert.Equal(t, want, variable(in), "variable(%q)", in)
	}
}
