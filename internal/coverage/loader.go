package coverage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"
)

// DefaultReportPath is where the jacoco-maven-plugin writes its XML report,
// relative to the project directory.
const DefaultReportPath = "target/site/jacoco/jacoco.xml"

// DefaultReportGlob finds module reports in a multi-module build.
const DefaultReportGlob = "**/target/site/jacoco/jacoco.xml"

// Loader reads coverage artifacts for one project. It is built per call.
type Loader struct {
	// ProjectPath is the Maven project directory.
	ProjectPath string
	// ReportPath is the report location; relative paths are resolved
	// against ProjectPath. Empty means DefaultReportPath.
	ReportPath string
	// NotBefore rejects reports written before this time when non-zero.
	NotBefore time.Time
	// Concurrency bounds parallel parsing in LoadAll (0 = 4).
	Concurrency int
}

// Loaded is a parsed report with its provenance.
type Loaded struct {
	Root    *Node     `json:"-" yaml:"-"`
	Path    string    `json:"path" yaml:"path"`
	ModTime time.Time `json:"mod_time" yaml:"mod_time"`
}

// Resolve returns the absolute report path.
func (l *Loader) Resolve() string {
	report := l.ReportPath
	if report == "" {
		report = DefaultReportPath
	}
	if !filepath.IsAbs(report) {
		report = filepath.Join(l.ProjectPath, report)
	}
	return filepath.Clean(report)
}

// Load reads, parses and aggregates the project's report.
func (l *Loader) Load(ctx context.Context) (*Loaded, error) {
	return l.loadFile(ctx, l.Resolve())
}

func (l *Loader) loadFile(ctx context.Context, path string) (*Loaded, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &MissingArtifactError{Path: path}
		}
		return nil, fmt.Errorf("stat coverage report: %w", err)
	}
	if info.IsDir() {
		return nil, &MissingArtifactError{Path: path}
	}
	if !l.NotBefore.IsZero() && info.ModTime().Before(l.NotBefore) {
		return nil, &StaleArtifactError{Path: path, ModTime: info.ModTime(), NotBefore: l.NotBefore}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open coverage report: %w", err)
	}
	defer f.Close()

	root, err := ParseReader(f, path)
	if err != nil {
		return nil, err
	}
	Aggregate(root)

	slog.Debug("loaded coverage report", "path", path, "classes", root.Count(KindClass))
	return &Loaded{Root: root, Path: path, ModTime: info.ModTime()}, nil
}

// Discover finds every report under the project matching pattern
// (DefaultReportGlob when empty). Results are sorted.
func Discover(projectPath, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = DefaultReportGlob
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, &InvalidPatternError{Pattern: pattern}
	}
	matches, err := doublestar.Glob(os.DirFS(projectPath), filepath.ToSlash(pattern), doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("discover coverage reports: %w", err)
	}
	paths := make([]string, 0, len(matches))
	for _, m := range matches {
		paths = append(paths, filepath.Join(projectPath, filepath.FromSlash(m)))
	}
	sort.Strings(paths)
	return paths, nil
}

// LoadAll discovers module reports and merges them under one report root,
// one group per module named after its directory. A single report is
// returned as is. No reports is a MissingArtifactError for the default path.
func (l *Loader) LoadAll(ctx context.Context, pattern string) (*Loaded, error) {
	paths, err := Discover(l.ProjectPath, pattern)
	if err != nil {
		return nil, err
	}
	switch len(paths) {
	case 0:
		return nil, &MissingArtifactError{Path: l.Resolve()}
	case 1:
		return l.loadFile(ctx, paths[0])
	}

	limit := l.Concurrency
	if limit <= 0 {
		limit = 4
	}

	loaded := make([]*Loaded, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, path := range paths {
		g.Go(func() error {
			r, err := l.loadFile(gctx, path)
			if err != nil {
				return err
			}
			loaded[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	root := NewNode(filepath.Base(l.ProjectPath), KindReport)
	merged := &Loaded{Root: root, Path: l.ProjectPath}
	for _, r := range loaded {
		module := NewNode(moduleName(l.ProjectPath, r.Path), KindGroup)
		module.Children = r.Root.Children
		root.AddChild(module)
		if r.ModTime.After(merged.ModTime) {
			merged.ModTime = r.ModTime
		}
	}
	Aggregate(root)
	return merged, nil
}

// moduleName derives a module name from a report path, e.g.
// "<project>/core/target/site/jacoco/jacoco.xml" gives "core".
func moduleName(projectPath, reportPath string) string {
	rel, err := filepath.Rel(projectPath, reportPath)
	if err != nil {
		return reportPath
	}
	dir := filepath.Dir(filepath.Dir(filepath.Dir(filepath.Dir(rel))))
	if dir == "." {
		return filepath.Base(projectPath)
	}
	return filepath.ToSlash(dir)
}
