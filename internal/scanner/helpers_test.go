package scanner

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"
	"github.com/xephyr-stats/xepm/internal/msg"
)

const cmakeHeader = "cmake_minimum_required(VERSION 3.10)\nproject(xephyr)\n"

// captureOutput redirects msg output into a buffer for the duration of the test
func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	oldOut, oldNoColor := msg.Out, color.NoColor
	msg.Out, color.NoColor = &buf, true
	t.Cleanup(func() {
		msg.Out, color.NoColor = oldOut, oldNoColor
	})
	return &buf
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func writeDescriptor(t *testing.T, root, dir, name string, deps ...string) {
	t.Helper()
	if deps == nil {
		deps = []string{}
	}
	data, err := json.Marshal(map[string]any{
		"pkg_name":     name,
		"pkg_version":  "1.0",
		"dependencies": deps,
	})
	require.NoError(t, err)
	writeFile(t, root, dir+"/info.json", string(data))
}

// newTree creates a scan root holding a CMakeLists.txt with a fixed header
func newTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "CMakeLists.txt", cmakeHeader)
	return root
}

// appendedLines returns the lines added to the root CMakeLists.txt after the header
func appendedLines(t *testing.T, root string) []string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, "CMakeLists.txt"))
	require.NoError(t, err)
	content := string(data)
	require.True(t, strings.HasPrefix(content, cmakeHeader), "header was modified:\n%s", content)

	rest := strings.TrimSuffix(strings.TrimPrefix(content, cmakeHeader), "\n")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, "\n")
}

func runIn(t *testing.T, root string, opts Options) error {
	t.Helper()
	s, err := NewScannerInDirectory(root)
	require.NoError(t, err)
	return s.Run(opts)
}

func countPrefix(lines []string, prefix string) int {
	n := 0
	for _, l := range lines {
		if strings.HasPrefix(l, prefix) {
			n++
		}
	}
	return n
}
