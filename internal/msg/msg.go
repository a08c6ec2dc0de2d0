package msg

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// Out receives every message. Tests swap it for a buffer.
var Out io.Writer = os.Stdout

// exit is replaced in tests so Fatal can be observed
var exit = os.Exit

func prefixed(prefix, format string, a ...any) {
	fmt.Fprint(Out, prefix)
	fmt.Fprint(Out, ": ")
	fmt.Fprintf(Out, format, a...)
	fmt.Fprint(Out, "\n")
}

func Error(format string, a ...any) {
	prefixed(color.HiRedString("error"), format, a...)
}

func Warn(format string, a ...any) {
	prefixed(color.YellowString("warn"), format, a...)
}

func Fatal(format string, a ...any) {
	prefixed(color.RedString("fatal"), format, a...)
	exit(1)
}

func Info(format string, a ...any) {
	prefixed(color.HiGreenString("info"), format, a...)
}

// Step prints a right-aligned colored verb followed by a message, e.g. "  Scanning foo/src"
func Step(verb, format string, a ...any) {
	fmt.Fprint(Out, color.HiGreenString("%12s", verb), " ")
	fmt.Fprintf(Out, format, a...)
	fmt.Fprint(Out, "\n")
}

type IndentWriter struct {
	Indent    string
	W         io.Writer
	didIndent bool
}

func (w *IndentWriter) Write(p []byte) (n int, err error) {
	for _, c := range p {
		if !w.didIndent {
			if _, err := io.WriteString(w.W, w.Indent); err != nil {
				return n, err
			}
			w.didIndent = true
		}
		if _, err := w.W.Write([]byte{c}); err != nil { // FIXME-perf: buffer this
			return n, err
		}
		n++
		if c == '\n' || c == '\r' {
			w.didIndent = false
		}
	}
	return n, nil
}
