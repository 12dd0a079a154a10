package scan

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// MaxFileSize is the largest file discovery will hand to the analyzers.
// Generated bundles and lockfiles above this are never worth scanning.
const MaxFileSize = 5 * 1024 * 1024

// DefaultSkipDirs are directory names pruned without descent: build
// output, dependency trees, VCS metadata, and test fixtures.
var DefaultSkipDirs = map[string]bool{
	"__pycache__": true, ".pytest_cache": true, ".mypy_cache": true,
	"venv": true, ".venv": true, "env": true, "virtualenv": true,
	"site-packages": true, "dist": true, "build": true, "out": true,
	"target": true, "bin": true, "obj": true, "vendor": true,
	"node_modules": true, ".npm": true, ".yarn": true,
	"bower_components": true, ".next": true, ".nuxt": true,
	"cdk.out": true, ".cdk.staging": true, ".terraform": true,
	".git": true, ".svn": true, ".hg": true,
	".vscode": true, ".idea": true,
	"logs": true, "tmp": true, "temp": true, ".cache": true,
	"testdata": true, "tests": true, "test": true, "__tests__": true,
}

// hidden directories that still carry scannable infrastructure config.
var keepHidden = map[string]bool{".github": true, ".gitlab": true}

// ScannableExtensions is the discovery allow-list: Go for structural
// analysis, the textually supported languages, and common
// infrastructure-description formats.
var ScannableExtensions = map[string]bool{
	".go": true,
	".py": true, ".js": true, ".jsx": true, ".ts": true, ".tsx": true,
	".java": true, ".sh": true,
	".yml": true, ".yaml": true, ".tf": true, ".json": true,
}

// DiscoverOptions control the walk. Zero MaxFiles means unlimited.
type DiscoverOptions struct {
	SkipDirs []string // merged with DefaultSkipDirs
	MaxFiles int
}

// Discovered is the outcome of a discovery walk.
type Discovered struct {
	Files     []string
	Truncated bool
}

func skipSet(extra []string) map[string]bool {
	if len(extra) == 0 {
		return DefaultSkipDirs
	}
	set := make(map[string]bool, len(DefaultSkipDirs)+len(extra))
	for d := range DefaultSkipDirs {
		set[d] = true
	}
	for _, d := range extra {
		set[strings.TrimSpace(d)] = true
	}
	return set
}

func skipDir(name string, set map[string]bool) bool {
	if set[name] {
		return true
	}
	if strings.HasSuffix(name, ".egg-info") {
		return true
	}
	return strings.HasPrefix(name, ".") && !keepHidden[name]
}

func scannableFile(path string, size int64) bool {
	if !ScannableExtensions[strings.ToLower(filepath.Ext(path))] {
		return false
	}
	name := strings.ToLower(filepath.Base(path))
	if strings.HasPrefix(name, "test_") || strings.HasPrefix(name, "test-") ||
		strings.HasSuffix(name, "_test.go") {
		return false
	}
	return size <= MaxFileSize
}

// Discover walks root depth-first, pruning skip directories wholesale and
// collecting allow-listed files in walk order. When MaxFiles is hit the
// walk stops early and Truncated is set; callers surface that instead of
// silently under-reporting.
func Discover(root string, opts DiscoverOptions) (Discovered, error) {
	if err := checkRoot(root); err != nil {
		return Discovered{}, err
	}
	set := skipSet(opts.SkipDirs)

	var d Discovered
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable subtree: skip, never abort
		}
		if entry.IsDir() {
			if path != root && skipDir(entry.Name(), set) {
				return filepath.SkipDir
			}
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return nil
		}
		if !scannableFile(path, info.Size()) {
			return nil
		}
		d.Files = append(d.Files, path)
		if opts.MaxFiles > 0 && len(d.Files) >= opts.MaxFiles {
			d.Truncated = true
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return Discovered{}, fmt.Errorf("walk %s: %w", root, err)
	}
	return d, nil
}

// EstimateScan runs discovery bookkeeping without reading any file
// contents: counts, total bytes, and how many directories were pruned.
func EstimateScan(root string, opts DiscoverOptions) (*Estimate, error) {
	if err := checkRoot(root); err != nil {
		return nil, err
	}
	set := skipSet(opts.SkipDirs)

	est := &Estimate{}
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if entry.IsDir() {
			if path != root && skipDir(entry.Name(), set) {
				est.PrunedDirs++
				return filepath.SkipDir
			}
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return nil
		}
		if !scannableFile(path, info.Size()) {
			return nil
		}
		est.FileCount++
		est.TotalBytes += info.Size()
		if opts.MaxFiles > 0 && est.FileCount >= opts.MaxFiles {
			est.Truncated = true
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return est, nil
}

// WatchDirs returns every directory under root that discovery would
// descend into. Watch mode registers each one with the filesystem
// watcher, since inotify watches are not recursive.
func WatchDirs(root string, extraSkip []string) ([]string, error) {
	if err := checkRoot(root); err != nil {
		return nil, err
	}
	set := skipSet(extraSkip)

	var dirs []string
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil || !entry.IsDir() {
			return nil
		}
		if path != root && skipDir(entry.Name(), set) {
			return filepath.SkipDir
		}
		dirs = append(dirs, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return dirs, nil
}

// checkRoot is the single fatal validation in the engine: the project path
// must exist and be a directory.
func checkRoot(root string) error {
	fi, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("project path %s: %w", root, err)
	}
	if !fi.IsDir() {
		return fmt.Errorf("project path %s is not a directory", root)
	}
	return nil
}
