package scanner

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/pelletier/go-toml/v2"
	"github.com/xephyr-stats/xepm/internal/manifest"
)

// ConfigFilename is the optional per-tree config read from the scan root
const ConfigFilename = "xepm.toml"

type Config struct {
	Scan   ScanSection   `toml:"scan"`
	Layout LayoutSection `toml:"layout"`
	Link   LinkSection   `toml:"link"`

	skip *vm.Program
}

// ScanSection defines the [scan] section
type ScanSection struct {
	Descriptor       string `toml:"descriptor"`
	Output           string `toml:"output"`
	RespectGitignore bool   `toml:"respect_gitignore"`
	Skip             string `toml:"skip"`
}

// LayoutSection defines the [layout] section
type LayoutSection struct {
	SourceDir   string `toml:"source_dir"`
	SourceExt   string `toml:"source_ext"`
	EntrySuffix string `toml:"entry_suffix"`
}

// LinkSection defines the [link] section
type LinkSection struct {
	Baseline string `toml:"baseline"`
	Reserved string `toml:"reserved"`
}

// DefaultConfig returns the conventions used when no xepm.toml is present
func DefaultConfig() *Config {
	return &Config{
		Scan: ScanSection{
			Descriptor: manifest.DescriptorFilename,
			Output:     "CMakeLists.txt",
		},
		Layout: LayoutSection{
			SourceDir:   "src",
			SourceExt:   ".cxx",
			EntrySuffix: "_main.cxx",
		},
		Link: LinkSection{
			Baseline: "xelib",
			Reserved: "xephyr",
		},
	}
}

func mustMarshal(v any) string {
	b, err := toml.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}

var exprRegex = regexp.MustCompile(`\{\{(.+?)\}\}`)

// evaluateString finds and evaluates all {{...}} expressions in a string
func evaluateString(s string, env ConfigEnv) (string, error) {
	matches := exprRegex.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return s, nil
	}

	var builder strings.Builder
	lastIndex := 0

	for _, m := range matches {
		builder.WriteString(s[lastIndex:m[0]])

		expression := strings.TrimSpace(s[m[2]:m[3]])
		program, err := expr.Compile(expression, expr.Env(env))
		if err != nil {
			return "", fmt.Errorf("failed to compile expression %q: %w", expression, err)
		}

		result, err := expr.Run(program, env)
		if err != nil {
			return "", fmt.Errorf("failed to run expression %q: %w", expression, err)
		}

		fmt.Fprintf(&builder, "%v", result)
		lastIndex = m[1]
	}

	builder.WriteString(s[lastIndex:])

	return builder.String(), nil
}

// processExpressions recursively walks the parsed TOML data and evaluates expressions in strings.
// scan.skip is left alone, it is compiled against the package environment instead.
func processExpressions(data any, env ConfigEnv) (any, error) {
	switch v := data.(type) {
	case map[string]any:
		for key, val := range v {
			if key == "skip" {
				continue
			}
			processedVal, err := processExpressions(val, env)
			if err != nil {
				return nil, err
			}
			v[key] = processedVal
		}
		return v, nil
	case []any:
		for i, item := range v {
			processedItem, err := processExpressions(item, env)
			if err != nil {
				return nil, err
			}
			v[i] = processedItem
		}
		return v, nil
	case string:
		return evaluateString(v, env)
	default:
		return data, nil
	}
}

func ParseConfig(rdr io.Reader, env ConfigEnv) (*Config, error) {
	var rawConfig map[string]any
	if err := toml.NewDecoder(rdr).Decode(&rawConfig); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			return nil, errors.New(derr.String())
		}
		return nil, err
	}

	processedConfig, err := processExpressions(rawConfig, env)
	if err != nil {
		return nil, fmt.Errorf("error processing expressions in config: %w", err)
	}

	cfg := DefaultConfig()
	dec := toml.NewDecoder(strings.NewReader(mustMarshal(processedConfig)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var serr *toml.StrictMissingError
		if errors.As(err, &serr) {
			return nil, fmt.Errorf("unknown config keys:\n%s", serr.String())
		}
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseConfigFromFile parses and validates a config file from a filepath
func ParseConfigFromFile(path string, env ConfigEnv) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ParseConfig(bufio.NewReader(f), env)
}

// LoadConfig reads dir/xepm.toml, falling back to DefaultConfig when it does not exist
func LoadConfig(dir string) (*Config, error) {
	path := filepath.Join(dir, ConfigFilename)
	cfg, err := ParseConfigFromFile(path, NewConfigEnv())
	if errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ConfigFilename, err)
	}
	return cfg, nil
}

func (cfg *Config) validate() error {
	required := []struct{ key, val string }{
		{"scan.descriptor", cfg.Scan.Descriptor},
		{"scan.output", cfg.Scan.Output},
		{"layout.source_dir", cfg.Layout.SourceDir},
		{"layout.source_ext", cfg.Layout.SourceExt},
		{"layout.entry_suffix", cfg.Layout.EntrySuffix},
		{"link.baseline", cfg.Link.Baseline},
	}
	for _, r := range required {
		if r.val == "" {
			return fmt.Errorf("%s must not be empty", r.key)
		}
	}
	if strings.ContainsAny(cfg.Scan.Descriptor, `/\`) || strings.ContainsAny(cfg.Layout.EntrySuffix, `/\`) {
		return errors.New("scan.descriptor and layout.entry_suffix must be file names, not paths")
	}

	if cfg.Scan.Skip != "" {
		program, err := expr.Compile(cfg.Scan.Skip, expr.Env(PackageEnv{}), expr.AsBool())
		if err != nil {
			return fmt.Errorf("failed to compile scan.skip: %w", err)
		}
		cfg.skip = program
	}
	return nil
}

// shouldSkip reports whether the package is excluded from directive generation.
// The reserved package is always excluded.
func (cfg *Config) shouldSkip(env PackageEnv) (bool, error) {
	if env.Name == cfg.Link.Reserved {
		return true, nil
	}
	if cfg.skip == nil {
		return false, nil
	}
	result, err := expr.Run(cfg.skip, env)
	if err != nil {
		return false, fmt.Errorf("failed to run scan.skip for package %q: %w", env.Name, err)
	}
	skip, _ := result.(bool)
	return skip, nil
}

//
// expr-lang environments
//

type ConfigEnv struct {
	TargetOS   string            `expr:"target_os"`
	TargetArch string            `expr:"target_arch"`
	Environ    map[string]string `expr:"environ"`
}

func NewConfigEnv() ConfigEnv {
	environ := make(map[string]string)
	for _, e := range os.Environ() {
		if k, v, ok := strings.Cut(e, "="); ok {
			environ[k] = v
		}
	}

	return ConfigEnv{
		TargetOS:   runtime.GOOS,
		TargetArch: runtime.GOARCH,
		Environ:    environ,
	}
}

// PackageEnv is what scan.skip sees for each package
type PackageEnv struct {
	Name         string   `expr:"name"`
	Version      string   `expr:"version"`
	Dependencies []string `expr:"dependencies"`
	Dir          string   `expr:"dir"`
}

func newPackageEnv(pkg *Package) PackageEnv {
	return PackageEnv{
		Name:         pkg.Name,
		Version:      pkg.Descriptor.Version,
		Dependencies: pkg.Descriptor.Dependencies,
		Dir:          pkg.Dir,
	}
}
