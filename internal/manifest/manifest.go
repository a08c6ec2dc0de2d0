// Package manifest reads package descriptors (info.json).
package manifest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// DescriptorFilename is the file that marks a directory as a package
const DescriptorFilename = "info.json"

// Descriptor is the metadata a package declares about itself. Version and
// dependencies are informational only.
type Descriptor struct {
	Name         string   `json:"pkg_name"`
	Version      string   `json:"pkg_version"`
	Dependencies []string `json:"dependencies"`
}

// ValidationError reports a descriptor that decoded but lacks a required field
type ValidationError struct {
	Path  string
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("descriptor field %q %s", e.Field, e.Msg)
	}
	return fmt.Sprintf("%s: descriptor field %q %s", e.Path, e.Field, e.Msg)
}

// rawDescriptor uses pointers so that absent keys can be told apart from empty ones
type rawDescriptor struct {
	Name         *string   `json:"pkg_name"`
	Version      *string   `json:"pkg_version"`
	Dependencies *[]string `json:"dependencies"`
}

// Parse decodes and validates a descriptor. All three keys are required and
// the name must be non-empty; unknown keys are ignored.
func Parse(rdr io.Reader) (*Descriptor, error) {
	var raw rawDescriptor
	if err := json.NewDecoder(rdr).Decode(&raw); err != nil {
		return nil, fmt.Errorf("invalid descriptor: %w", err)
	}

	switch {
	case raw.Name == nil:
		return nil, &ValidationError{Field: "pkg_name", Msg: "is missing"}
	case *raw.Name == "":
		return nil, &ValidationError{Field: "pkg_name", Msg: "is empty"}
	case raw.Version == nil:
		return nil, &ValidationError{Field: "pkg_version", Msg: "is missing"}
	case raw.Dependencies == nil:
		return nil, &ValidationError{Field: "dependencies", Msg: "is missing"}
	}

	return &Descriptor{
		Name:         *raw.Name,
		Version:      *raw.Version,
		Dependencies: *raw.Dependencies,
	}, nil
}

// ParseFile parses the descriptor at path; validation errors carry the path
func ParseFile(path string) (*Descriptor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	desc, err := Parse(bufio.NewReader(f))
	if err != nil {
		if verr, ok := err.(*ValidationError); ok {
			verr.Path = path
			return nil, verr
		}
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return desc, nil
}

// Save writes the descriptor to dir/info.json, indented
func (d Descriptor) Save(dir string) error {
	f, err := os.Create(filepath.Join(dir, DescriptorFilename))
	if err != nil {
		return err
	}
	defer f.Close()

	bufw := bufio.NewWriter(f)
	enc := json.NewEncoder(bufw)
	enc.SetIndent("", "    ")
	if err := enc.Encode(d); err != nil {
		return err
	}
	return bufw.Flush()
}
