package scanner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/xephyr-stats/xepm/internal/manifest"
	"github.com/xephyr-stats/xepm/internal/msg"
	"github.com/xephyr-stats/xepm/internal/scanner/gen"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNoOutput      = errors.New("output build file does not exist")
	errUnknownNaming = errors.New("unknown executable naming mode")
)

const (
	// NamingEntry names each executable <package>_<entry point stem>
	NamingEntry = "entry"
	// NamingPackage names every executable after its package. Packages with
	// more than one entry point then declare the same target twice.
	NamingPackage = "package"
)

// Package is one discovered descriptor together with the directory holding it
type Package struct {
	Name string
	// Dir is slash-separated and relative to the scan root ("." for the root itself)
	Dir        string
	Descriptor *manifest.Descriptor
}

type Options struct {
	Naming string
	// Diff previews the change instead of writing it
	Diff bool
	// Mark wraps the appended block in uniquely tagged comments
	Mark bool
}

type Scanner struct {
	cfg     *Config
	basedir string
	jobs    int
}

func NewScanner(basedir string, cfg *Config) *Scanner {
	return &Scanner{cfg: cfg, basedir: basedir, jobs: runtime.NumCPU()}
}

// NewScannerInDirectory creates a scanner rooted at dir, reading dir/xepm.toml if present
func NewScannerInDirectory(dir string) (*Scanner, error) {
	var err error
	dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !stat.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	cfg, err := LoadConfig(dir)
	if err != nil {
		return nil, err
	}
	return NewScanner(dir, cfg), nil
}

func (s *Scanner) Config() *Config { return s.cfg }

// OutputPath is the build file directives are appended to
func (s *Scanner) OutputPath() string {
	return filepath.Join(s.basedir, s.cfg.Scan.Output)
}

// Load discovers and parses every descriptor. Any failure aborts the whole load.
func (s *Scanner) Load() ([]*Package, error) {
	paths, err := Discover(s.basedir, s.cfg.Scan.Descriptor, s.cfg.Scan.RespectGitignore)
	if err != nil {
		return nil, err
	}

	type loadJob struct {
		index int
		path  string
	}
	jobs := make([]loadJob, len(paths))
	for i, p := range paths {
		jobs[i] = loadJob{index: i, path: p}
	}

	packages := make([]*Package, len(paths))
	err = runJobs(jobs, func(job loadJob) error {
		desc, err := manifest.ParseFile(filepath.Join(s.basedir, filepath.FromSlash(job.path)))
		if err != nil {
			return err
		}
		packages[job.index] = &Package{
			Name:       desc.Name,
			Dir:        path.Dir(job.path),
			Descriptor: desc,
		}
		return nil
	}, s.jobs)
	if err != nil {
		return nil, err
	}

	return packages, nil
}

// PrintSummary lists every package with its version and dependencies
func (s *Scanner) PrintSummary(packages []*Package) {
	msg.Info("found %d packages", len(packages))

	w := &msg.IndentWriter{Indent: "    ", W: msg.Out}
	for _, pkg := range packages {
		fmt.Fprintf(w, "%s (%s)\n", color.New(color.Bold).Sprint(pkg.Name), pkg.Dir)
		fmt.Fprintf(w, " ---- Version - %s\n", pkg.Descriptor.Version)
		fmt.Fprintf(w, " ---- Require - [%s]\n", strings.Join(pkg.Descriptor.Dependencies, ", "))
	}
}

// Plan adds the library and executable targets of every package to g, in package order
func (s *Scanner) Plan(packages []*Package, g gen.Generator, naming string) error {
	if naming == "" {
		naming = NamingEntry
	}
	if naming != NamingEntry && naming != NamingPackage {
		return fmt.Errorf("%w: %q", errUnknownNaming, naming)
	}

	declared := make(map[string]string) // target -> package dir that declared it
	declare := func(target string, pkg *Package) {
		if prev, ok := declared[target]; ok {
			msg.Warn("target %q is declared by both %s and %s; CMake will reject the duplicate", target, prev, pkg.Dir)
			return
		}
		declared[target] = pkg.Dir
	}

	for _, pkg := range packages {
		skip, err := s.cfg.shouldSkip(newPackageEnv(pkg))
		if err != nil {
			return err
		}
		if skip {
			msg.Step("Skipping", "%s", pkg.Name)
			continue
		}

		srcDir := path.Join(pkg.Dir, s.cfg.Layout.SourceDir)
		msg.Step("Scanning", "source files in %s", srcDir)

		sources, err := s.collectFiles(srcDir, "*"+s.cfg.Layout.SourceExt)
		if err != nil {
			return fmt.Errorf("failed to collect sources for %s: %w", pkg.Name, err)
		}

		lib := ""
		if len(sources) > 0 {
			lib = pkg.Name + "_lib"
			msg.Step("Library", "%s (%d sources)", lib, len(sources))
			declare(lib, pkg)
			g.AddLibrary(gen.Library{
				Name:       lib,
				SourceVar:  pkg.Name + "_source",
				SourceGlob: srcDir + "/*" + s.cfg.Layout.SourceExt,
				Links:      []string{s.cfg.Link.Baseline},
			})
		}

		entries, err := s.collectFiles(pkg.Dir, "*"+s.cfg.Layout.EntrySuffix)
		if err != nil {
			return fmt.Errorf("failed to collect entry points for %s: %w", pkg.Name, err)
		}

		for _, entry := range entries {
			name := pkg.Name
			if naming == NamingEntry {
				name += "_" + strings.TrimSuffix(entry, s.cfg.Layout.EntrySuffix)
			}
			msg.Step("Executable", "%s", name)
			declare(name, pkg)

			exe := gen.Executable{
				Name:  name,
				Entry: path.Join(pkg.Dir, entry),
				Links: []string{s.cfg.Link.Baseline},
			}
			if lib != "" {
				exe.Links = []string{lib}
				exe.Includes = []string{srcDir}
			}
			g.AddExecutable(exe)
		}
	}

	return nil
}

// collectFiles returns the sorted names of regular files in dir (relative to
// the scan root) matching pattern. A missing dir yields no files.
func (s *Scanner) collectFiles(dir, pattern string) ([]string, error) {
	absDir := filepath.Join(s.basedir, filepath.FromSlash(dir))
	if stat, err := os.Stat(absDir); err != nil || !stat.IsDir() {
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		return nil, nil
	}

	matches, err := doublestar.Glob(os.DirFS(absDir), pattern,
		doublestar.WithFilesOnly(), doublestar.WithNoFollow(), doublestar.WithFailOnIOErrors())
	if err != nil {
		return nil, fmt.Errorf("while globbing directory %s: %w", dir, err)
	}
	slices.Sort(matches)
	return matches, nil
}

// Emit appends the generated block to w. If w is a readable file that does not
// end in a newline, one is written first so the first directive stays on its own line.
func (s *Scanner) Emit(w io.Writer, g gen.Generator) error {
	out := g.Generate()
	if out == "" {
		return nil
	}

	if f, ok := w.(*os.File); ok {
		missing, err := missingTrailingNewline(f)
		if err != nil {
			return err
		}
		if missing {
			out = "\n" + out
		}
	}

	_, err := io.WriteString(w, out)
	return err
}

func missingTrailingNewline(f *os.File) (bool, error) {
	stat, err := f.Stat()
	if err != nil {
		return false, err
	}
	if stat.Size() == 0 {
		return false, nil
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, stat.Size()-1); err != nil {
		// write-only handle: append as is
		return false, nil
	}
	return last[0] != '\n', nil
}

// openOutput opens an existing file for appending. Read access only serves the
// trailing newline check, so a file we may write but not read is still accepted.
func openOutput(p string) (*os.File, error) {
	f, err := os.OpenFile(p, os.O_RDWR|os.O_APPEND, 0)
	if errors.Is(err, os.ErrPermission) {
		f, err = os.OpenFile(p, os.O_WRONLY|os.O_APPEND, 0)
	}
	return f, err
}

// Run performs a full pass: open the output, load, summarize, plan and append.
// The output file must already exist; it is never created.
func (s *Scanner) Run(opts Options) (err error) {
	outPath := s.OutputPath()

	if opts.Diff {
		if _, err := os.Stat(outPath); err != nil {
			return outputError(outPath, err)
		}
		return s.run(nil, opts)
	}

	f, err := openOutput(outPath)
	if err != nil {
		return outputError(outPath, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	return s.run(f, opts)
}

func (s *Scanner) run(out *os.File, opts Options) error {
	packages, err := s.Load()
	if err != nil {
		return err
	}
	s.PrintSummary(packages)

	g := gen.NewCMakeGen()
	if opts.Mark {
		g.Marker = uuid.NewString()
	}
	if err := s.Plan(packages, g, opts.Naming); err != nil {
		return err
	}

	if out == nil {
		return s.previewDiff(g)
	}

	if err := s.Emit(out, g); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.cfg.Scan.Output, err)
	}
	msg.Info("appended %d directives to %s", len(g.Directives()), s.cfg.Scan.Output)
	return nil
}

// previewDiff prints what appending would change, and warns about directives
// the output already contains since appending never deduplicates
func (s *Scanner) previewDiff(g *gen.CMakeGen) error {
	old, err := os.ReadFile(s.OutputPath())
	if err != nil {
		return err
	}
	before := string(old)
	after := before
	if out := g.Generate(); out != "" {
		if before != "" && !strings.HasSuffix(before, "\n") {
			after += "\n"
		}
		after += out
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(before, after, false))
	fmt.Fprint(msg.Out, dmp.DiffPrettyText(diffs))

	existing := make(map[string]bool)
	for line := range strings.Lines(before) {
		existing[strings.TrimSpace(line)] = true
	}
	dup := 0
	for _, d := range g.Directives() {
		if existing[d] {
			dup++
		}
	}
	if dup > 0 {
		msg.Warn("%d of %d directives already exist in %s and would be appended again", dup, len(g.Directives()), s.cfg.Scan.Output)
	}
	msg.Info("%d directives would be appended to %s", len(g.Directives()), s.cfg.Scan.Output)
	return nil
}

func outputError(p string, err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNoOutput, p)
	}
	return err
}

// runJobs runs jobs in parallel, returning the first error
func runJobs[T any](jobs []T, jobfunc func(job T) error, limit int) error {
	if len(jobs) == 0 {
		return nil
	}

	eg, _ := errgroup.WithContext(context.Background())
	eg.SetLimit(limit)

	for _, job := range jobs {
		eg.Go(func() error {
			return jobfunc(job)
		})
	}

	return eg.Wait()
}
