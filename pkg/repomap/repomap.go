// Package repomap walks a workspace to build a structural census used for
// repo-type detection ahead of reviewer selection.
package repomap

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/turbowrap/turbowrap/pkg/config"
)

// DefaultExcludeGlobs are skipped when the caller supplies none.
var DefaultExcludeGlobs = []string{".git/**", "node_modules/**", "vendor/**"}

// RepoType classifies a workspace by the extensions its files carry.
type RepoType string

const (
	RepoTypeBackend   RepoType = "backend"
	RepoTypeFrontend  RepoType = "frontend"
	RepoTypeFullstack RepoType = "fullstack"
	RepoTypeOther     RepoType = "other"
)

// RepoMap is the structural census of a workspace: its files, their
// extensions, and a per-extension count.
type RepoMap struct {
	WorkspacePath string
	Files         []string
	Census        map[string]int // extension (lowercase, with leading dot) -> count
}

// Build walks root, skipping anything matching excludeGlobs (doublestar
// patterns relative to root), and records every regular file found under
// workspacePath (a subdirectory of root, or "" for the whole tree).
func Build(root, workspacePath string, excludeGlobs []string) (RepoMap, error) {
	if len(excludeGlobs) == 0 {
		excludeGlobs = DefaultExcludeGlobs
	}

	rm := RepoMap{WorkspacePath: workspacePath, Census: make(map[string]int)}
	walkRoot := root
	if workspacePath != "" {
		walkRoot = filepath.Join(root, workspacePath)
	}

	err := filepath.WalkDir(walkRoot, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if excluded(rel+"/", excludeGlobs) {
				return filepath.SkipDir
			}
			return nil
		}
		if excluded(rel, excludeGlobs) {
			return nil
		}

		rm.Files = append(rm.Files, rel)
		ext := strings.ToLower(filepath.Ext(path))
		if ext != "" {
			rm.Census[ext]++
		}
		return nil
	})
	if err != nil {
		return RepoMap{}, err
	}

	sort.Strings(rm.Files)
	return rm, nil
}

func excluded(rel string, globs []string) bool {
	for _, g := range globs {
		if ok, _ := doublestar.Match(g, rel); ok {
			return true
		}
	}
	return false
}

// DetectRepoType classifies a census as backend, frontend, fullstack, or
// other, based on the configured extension sets. Both present -> fullstack.
// Neither present -> other.
func DetectRepoType(census map[string]int, cfg config.RepoTypeConfig) RepoType {
	hasBackend := extensionSetPresent(census, cfg.BackendExtensions)
	hasFrontend := extensionSetPresent(census, cfg.FrontendExtensions)

	switch {
	case hasBackend && hasFrontend:
		return RepoTypeFullstack
	case hasBackend:
		return RepoTypeBackend
	case hasFrontend:
		return RepoTypeFrontend
	default:
		return RepoTypeOther
	}
}

func extensionSetPresent(census map[string]int, exts []string) bool {
	for _, ext := range exts {
		if census[strings.ToLower(ext)] > 0 {
			return true
		}
	}
	return false
}
