// Package fixbatch implements the Fix Orchestrator's issue classification
// and greedy first-fit-decreasing workload batching.
package fixbatch

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/turbowrap/turbowrap/pkg/config"
	"github.com/turbowrap/turbowrap/pkg/issue"
)

// Class is the coarse classification a batch is built from.
type Class string

const (
	ClassBackend  Class = "backend"
	ClassFrontend Class = "frontend"
)

// Classify assigns a class to i by its file path's extension. Unknown
// extensions default to backend.
func Classify(i issue.Issue, repoType config.RepoTypeConfig) Class {
	ext := strings.ToLower(filepath.Ext(i.FilePath))
	for _, fe := range repoType.FrontendExtensions {
		if strings.ToLower(fe) == ext {
			return ClassFrontend
		}
	}
	return ClassBackend
}

// Batch is a group of issues to be fixed together in one Challenger Loop
// invocation.
type Batch struct {
	Class  Class
	Issues []issue.Issue
}

// Workload sums the workload points of every issue in the batch.
func (b Batch) Workload(defaultEffort, defaultFiles int) int {
	total := 0
	for _, i := range b.Issues {
		total += i.Workload(defaultEffort, defaultFiles)
	}
	return total
}

// Build classifies every issue, then batches each class independently by
// greedy first-fit-decreasing workload. Backend batches are returned before
// frontend batches, matching the orchestrator's required commit ordering.
func Build(issues []issue.Issue, repoType config.RepoTypeConfig, fixCfg config.FixConfig) []Batch {
	var backend, frontend []issue.Issue
	for _, i := range issues {
		if Classify(i, repoType) == ClassFrontend {
			frontend = append(frontend, i)
		} else {
			backend = append(backend, i)
		}
	}

	batches := batchClass(backend, ClassBackend, fixCfg)
	batches = append(batches, batchClass(frontend, ClassFrontend, fixCfg)...)
	return batches
}

// batchClass implements the greedy first-fit-decreasing packing described
// by the fix orchestrator's batching step: issues are sorted by descending
// workload; an issue whose own workload exceeds MaxWorkloadPoints gets its
// own batch; otherwise it joins the current batch if doing so keeps the
// batch within both the per-batch item count and workload point caps, else
// it opens a new batch.
func batchClass(issues []issue.Issue, class Class, cfg config.FixConfig) []Batch {
	if len(issues) == 0 {
		return nil
	}

	sorted := make([]issue.Issue, len(issues))
	copy(sorted, issues)
	sort.SliceStable(sorted, func(a, b int) bool {
		return sorted[a].Workload(cfg.DefaultEffort, cfg.DefaultFiles) > sorted[b].Workload(cfg.DefaultEffort, cfg.DefaultFiles)
	})

	var batches []Batch
	var current []issue.Issue
	currentWorkload := 0

	flush := func() {
		if len(current) > 0 {
			batches = append(batches, Batch{Class: class, Issues: current})
			current = nil
			currentWorkload = 0
		}
	}

	for _, i := range sorted {
		w := i.Workload(cfg.DefaultEffort, cfg.DefaultFiles)

		if w > cfg.MaxWorkloadPoints {
			flush()
			batches = append(batches, Batch{Class: class, Issues: []issue.Issue{i}})
			continue
		}

		if len(current) > 0 && (len(current)+1 > cfg.MaxIssuesPerBatch || currentWorkload+w > cfg.MaxWorkloadPoints) {
			flush()
		}

		current = append(current, i)
		currentWorkload += w
	}
	flush()

	return batches
}
