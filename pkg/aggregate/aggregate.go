// Package aggregate implements the Issue Aggregation Pipeline: dedup across
// reviewers, priority scoring, sorting, overall score, and recommendation.
package aggregate

import (
	"math"
	"path/filepath"
	"sort"

	"github.com/turbowrap/turbowrap/pkg/issue"
)

// Recommendation is the closed enum a FinalReport carries.
type Recommendation string

const (
	RecommendationApprove             Recommendation = "approve"
	RecommendationApproveWithChanges  Recommendation = "approve-with-changes"
	RecommendationRequestChanges      Recommendation = "request-changes"
)

var severityBase = map[issue.Severity]float64{
	issue.SeverityCritical: 40,
	issue.SeverityHigh:     30,
	issue.SeverityMedium:   20,
	issue.SeverityLow:      10,
}

var categoryMultiplier = map[issue.Category]float64{
	issue.CategorySecurity:    1.5,
	issue.CategoryPerformance: 1.2,
}

var severityDeduction = map[issue.Severity]float64{
	issue.SeverityCritical: 2.0,
	issue.SeverityHigh:     1.0,
	issue.SeverityMedium:   0.5,
	issue.SeverityLow:      0.1,
}

// Result is the output of running the pipeline: the deduplicated, scored,
// sorted issue list plus the derived overall score and recommendation.
type Result struct {
	Issues         []issue.Issue
	SeverityCounts map[issue.Severity]int
	OverallScore   float64
	Recommendation Recommendation
}

// key is the dedup key: (normalized file path, line-or-nil, category).
type key struct {
	path     string
	line     int
	hasLine  bool
	category issue.Category
}

func keyOf(i issue.Issue) key {
	k := key{path: normalizePath(i.FilePath), category: i.Category}
	if i.StartLine != nil {
		k.line = *i.StartLine
		k.hasLine = true
	}
	return k
}

func normalizePath(p string) string {
	return filepath.ToSlash(filepath.Clean(p))
}

// Run executes the full pipeline over per-reviewer issue lists and returns
// the aggregated Result. Running Run again over Result.Issues (each already
// tagged with its full FlaggedBy set) is idempotent: dedup keys are already
// unique and scores are deterministic functions of the inputs.
func Run(perReviewer [][]issue.Issue) Result {
	order := make([]key, 0)
	merged := make(map[key]issue.Issue)

	for _, issues := range perReviewer {
		for _, in := range issues {
			k := keyOf(in)
			existing, ok := merged[k]
			if !ok {
				merged[k] = in.Clone()
				order = append(order, k)
				continue
			}
			merged[k] = mergeIssue(existing, in)
		}
	}

	out := make([]issue.Issue, 0, len(order))
	for _, k := range order {
		m := merged[k]
		m.Priority = priority(m)
		out = append(out, m)
	}

	sortIssues(out)

	counts := severityCounts(out)
	score := overallScore(out)
	rec := recommend(counts)

	return Result{
		Issues:         out,
		SeverityCounts: counts,
		OverallScore:   score,
		Recommendation: rec,
	}
}

func mergeIssue(a, b issue.Issue) issue.Issue {
	out := a.Clone()

	if b.Severity.Rank() > out.Severity.Rank() {
		out.Severity = b.Severity
	}

	seen := make(map[string]bool, len(out.FlaggedBy))
	for _, r := range out.FlaggedBy {
		seen[r] = true
	}
	for _, r := range b.FlaggedBy {
		if !seen[r] {
			out.FlaggedBy = append(out.FlaggedBy, r)
			seen[r] = true
		}
	}

	if len(b.Message) > len(out.Message) {
		out.Message = b.Message
	}
	if len(b.Suggestion) > len(out.Suggestion) {
		out.Suggestion = b.Suggestion
	}
	if out.CurrentCode == "" && b.CurrentCode != "" {
		out.CurrentCode = b.CurrentCode
	}
	if out.SuggestedCode == "" && b.SuggestedCode != "" {
		out.SuggestedCode = b.SuggestedCode
	}

	return out
}

func priority(i issue.Issue) int {
	base := severityBase[i.Severity]
	mult, ok := categoryMultiplier[i.Category]
	if !ok {
		mult = 1.0
	}
	bonus := 5.0 * float64(len(i.FlaggedBy)-1)
	if bonus < 0 {
		bonus = 0
	}
	p := math.Round(base*mult + bonus)
	if p > 100 {
		p = 100
	}
	return int(p)
}

func sortIssues(issues []issue.Issue) {
	sort.SliceStable(issues, func(a, b int) bool {
		if issues[a].Priority != issues[b].Priority {
			return issues[a].Priority > issues[b].Priority
		}
		if issues[a].Severity.Rank() != issues[b].Severity.Rank() {
			return issues[a].Severity.Rank() > issues[b].Severity.Rank()
		}
		pa, pb := normalizePath(issues[a].FilePath), normalizePath(issues[b].FilePath)
		if pa != pb {
			return pa < pb
		}
		return lineOf(issues[a]) < lineOf(issues[b])
	})
}

func lineOf(i issue.Issue) int {
	if i.StartLine == nil {
		return math.MaxInt32
	}
	return *i.StartLine
}

func severityCounts(issues []issue.Issue) map[issue.Severity]int {
	counts := map[issue.Severity]int{
		issue.SeverityCritical: 0,
		issue.SeverityHigh:     0,
		issue.SeverityMedium:   0,
		issue.SeverityLow:      0,
	}
	for _, i := range issues {
		counts[i.Severity]++
	}
	return counts
}

func overallScore(issues []issue.Issue) float64 {
	score := 10.0
	for _, i := range issues {
		score -= severityDeduction[i.Severity]
	}
	if score < 0 {
		score = 0
	}
	if score > 10 {
		score = 10
	}
	return score
}

func recommend(counts map[issue.Severity]int) Recommendation {
	if counts[issue.SeverityCritical] > 0 || counts[issue.SeverityHigh] > 3 {
		return RecommendationRequestChanges
	}
	if counts[issue.SeverityHigh] >= 1 && counts[issue.SeverityHigh] <= 3 {
		return RecommendationApproveWithChanges
	}
	return RecommendationApprove
}
