package gen

import "strings"

// CMakeGen renders targets as CMake commands, one command per line, in the
// order they were added. Nothing is deduplicated.
type CMakeGen struct {
	// Marker, when set, wraps the generated block in begin/end comments carrying it
	Marker string

	lines []string
}

func NewCMakeGen() *CMakeGen {
	return &CMakeGen{}
}

// AddLibrary emits the source glob, the SHARED library and its link line
func (g *CMakeGen) AddLibrary(lib Library) {
	var sb strings.Builder
	sourceVar := variable(lib.SourceVar)
	write(&sb, "file(GLOB ", sourceVar, ` "`, escapeQuoted(lib.SourceGlob), `")`)
	g.add(sb.String())

	sb.Reset()
	write(&sb, "add_library(", quote(lib.Name), " SHARED ${", sourceVar, "})")
	g.add(sb.String())

	g.addCommand("target_link_libraries", lib.Name, lib.Links...)
}

// AddExecutable emits the executable followed by its link and include lines
func (g *CMakeGen) AddExecutable(exe Executable) {
	g.addCommand("add_executable", exe.Name, exe.Entry)
	if len(exe.Links) > 0 {
		g.addCommand("target_link_libraries", exe.Name, exe.Links...)
	}
	if len(exe.Includes) > 0 {
		g.addCommand("target_include_directories", exe.Name, append([]string{"PUBLIC"}, exe.Includes...)...)
	}
}

// Directives returns the commands added so far, without markers
func (g *CMakeGen) Directives() []string {
	return g.lines
}

func (g *CMakeGen) Generate() string {
	if len(g.lines) == 0 {
		return ""
	}

	var sb strings.Builder
	if g.Marker != "" {
		writeln(&sb, "# xepm:begin ", g.Marker)
	}
	for _, line := range g.lines {
		writeln(&sb, line)
	}
	if g.Marker != "" {
		writeln(&sb, "# xepm:end ", g.Marker)
	}
	return sb.String()
}

func (g *CMakeGen) add(line string) {
	g.lines = append(g.lines, line)
}

func (g *CMakeGen) addCommand(command, target string, args ...string) {
	var sb strings.Builder
	write(&sb, command, "(", quote(target))
	for _, arg := range args {
		write(&sb, " ", quote(arg))
	}
	write(&sb, ")")
	g.add(sb.String())
}

// characters that end or alter an unquoted CMake argument
const cmakeSpecial = " \t\r\n\"()#;$\\"

var quotedEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "$", `\$`)

func escapeQuoted(s string) string { return quotedEscaper.Replace(s) }

// quote returns s unchanged when it is a plain unquoted argument, otherwise a quoted one
func quote(s string) string {
	if s != "" && !strings.ContainsAny(s, cmakeSpecial) {
		return s
	}
	return `"` + escapeQuoted(s) + `"`
}

// variable maps s onto a CMake variable name, replacing anything outside
// [A-Za-z0-9_] with an underscore so it can be referenced as ${name}
func variable(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		}
		return '_'
	}, s)
}
