package extract

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"
)

// DefaultSourceRoot is the Maven main source directory.
const DefaultSourceRoot = "src/main/java"

// DefaultSourceGlob matches main sources in single and multi-module builds.
const DefaultSourceGlob = "**/src/main/java/**/*.java"

// SourceNotFoundError is returned when a class path resolves to no file.
type SourceNotFoundError struct {
	ClassPath string
	Tried     []string
}

// Error implements the error interface.
func (e *SourceNotFoundError) Error() string {
	return fmt.Sprintf("source file %s not found (tried %v)", e.ClassPath, e.Tried)
}

// Location returns the class path as given.
func (e *SourceNotFoundError) Location() string {
	return e.ClassPath
}

// ResolveClassPath finds a Java source given a path relative to the
// project or to its main source root, e.g. org/acme/Foo.java.
func ResolveClassPath(projectPath, classPath string) (string, error) {
	if classPath == "" {
		return "", &SourceNotFoundError{ClassPath: classPath}
	}
	var tried []string
	candidates := []string{classPath}
	if !filepath.IsAbs(classPath) {
		candidates = []string{
			filepath.Join(projectPath, DefaultSourceRoot, filepath.FromSlash(classPath)),
			filepath.Join(projectPath, filepath.FromSlash(classPath)),
		}
	}
	for _, c := range candidates {
		tried = append(tried, c)
		info, err := os.Stat(c)
		if err == nil && !info.IsDir() {
			return c, nil
		}
	}
	return "", &SourceNotFoundError{ClassPath: classPath, Tried: tried}
}

// LoadSources extracts every file under projectPath matching glob
// (DefaultSourceGlob when empty), in parallel. Files that fail to read are
// logged and skipped; a canceled context aborts the load.
func LoadSources(ctx context.Context, projectPath, glob string) ([]*JavaFile, error) {
	if glob == "" {
		glob = DefaultSourceGlob
	}
	if !doublestar.ValidatePattern(glob) {
		return nil, fmt.Errorf("invalid source pattern %q", glob)
	}
	rels, err := doublestar.Glob(os.DirFS(projectPath), glob, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("discovering sources: %w", err)
	}
	sort.Strings(rels)

	files := make([]*JavaFile, len(rels))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, rel := range rels {
		g.Go(func() error {
			path := filepath.Join(projectPath, filepath.FromSlash(rel))
			f, err := ExtractJavaFile(gctx, path)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
					slog.Warn("skipping unreadable source", "path", path, "error", err)
					return nil
				}
				return err
			}
			files[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := files[:0]
	for _, f := range files {
		if f != nil {
			out = append(out, f)
		}
	}
	slog.Debug("loaded java sources", "project", projectPath, "files", len(out))
	return out, nil
}
