package scanner

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-git/go-billy/v6/osfs"
	"github.com/go-git/go-git/v6/plumbing/format/gitignore"
)

// Discover returns the slash-separated paths, relative to root, of every file
// named descriptor anywhere below root. Symlinked directories are not
// traversed. Results are sorted lexicographically so that output does not
// depend on directory enumeration order.
func Discover(root, descriptor string, respectGitignore bool) ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(root), "**/"+descriptor,
		doublestar.WithFilesOnly(), doublestar.WithNoFollow(), doublestar.WithFailOnIOErrors())
	if err != nil {
		return nil, fmt.Errorf("while searching for %s in %s: %w", descriptor, root, err)
	}

	if respectGitignore {
		patterns, err := gitignore.ReadPatterns(osfs.New(root), nil)
		if err != nil {
			return nil, fmt.Errorf("could not read .gitignore files in %s: %w", root, err)
		}
		matcher := gitignore.NewMatcher(patterns)
		matches = slices.DeleteFunc(matches, func(p string) bool {
			return isIgnored(matcher, p)
		})
	}

	slices.Sort(matches)
	return matches, nil
}

// isIgnored checks the file itself and each of its parent directories
func isIgnored(m gitignore.Matcher, p string) bool {
	parts := strings.Split(p, "/")
	for i := 1; i < len(parts); i++ {
		if m.Match(parts[:i], true) {
			return true
		}
	}
	return m.Match(parts, false)
}
