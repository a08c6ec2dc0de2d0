package gen

// Library is a shared library built from every source file matched by SourceGlob
type Library struct {
	Name       string
	SourceVar  string
	SourceGlob string
	Links      []string
}

// Executable is a program built from a single entry-point file
type Executable struct {
	Name     string
	Entry    string
	Links    []string
	Includes []string
}

type Generator interface {
	AddLibrary(lib Library)
	AddExecutable(exe Executable)
	Generate() string
}
