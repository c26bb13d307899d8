package aggregate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turbowrap/turbowrap/pkg/aggregate"
	"github.com/turbowrap/turbowrap/pkg/issue"
)

func line(n int) *int { return &n }

func TestRun_SingleCriticalIssue(t *testing.T) {
	// End-to-end scenario 1: one critical security issue at src/a.go:10.
	issues := []issue.Issue{{
		FilePath: "src/a.go", StartLine: line(10),
		Severity: issue.SeverityCritical, Category: issue.CategorySecurity,
		Message: "sql injection", FlaggedBy: []string{"reviewer_be_security"},
	}}

	result := aggregate.Run([][]issue.Issue{issues})

	require.Len(t, result.Issues, 1)
	assert.Equal(t, 60, result.Issues[0].Priority)
	assert.Equal(t, 8.0, result.OverallScore)
	assert.Equal(t, aggregate.RecommendationRequestChanges, result.Recommendation)
}

func TestRun_ConsensusBonus(t *testing.T) {
	// Scenario 2: two reviewers flag the same issue.
	a := []issue.Issue{{
		FilePath: "src/b.ts", StartLine: line(42),
		Severity: issue.SeverityHigh, Category: issue.CategoryQuality,
		Message: "duplicate logic across handlers", FlaggedBy: []string{"reviewer_fe_quality"},
	}}
	b := []issue.Issue{{
		FilePath: "src/b.ts", StartLine: line(42),
		Severity: issue.SeverityHigh, Category: issue.CategoryQuality,
		Message: "dup", FlaggedBy: []string{"reviewer_fe_architecture"},
	}}

	result := aggregate.Run([][]issue.Issue{a, b})

	require.Len(t, result.Issues, 1)
	assert.Equal(t, 35, result.Issues[0].Priority)
	assert.Len(t, result.Issues[0].FlaggedBy, 2)
	assert.Equal(t, "duplicate logic across handlers", result.Issues[0].Message)
}

func TestRun_DedupKeepsHighestSeverityAndLongestMessage(t *testing.T) {
	a := []issue.Issue{{
		FilePath: "x/y.go", StartLine: line(5), Severity: issue.SeverityMedium,
		Category: issue.CategoryStyle, Message: "short", FlaggedBy: []string{"r1"},
	}}
	b := []issue.Issue{{
		FilePath: "x/y.go", StartLine: line(5), Severity: issue.SeverityHigh,
		Category: issue.CategoryStyle, Message: "a much longer explanation of the issue", FlaggedBy: []string{"r2"},
	}}

	result := aggregate.Run([][]issue.Issue{a, b})

	require.Len(t, result.Issues, 1)
	assert.Equal(t, issue.SeverityHigh, result.Issues[0].Severity)
	assert.Equal(t, "a much longer explanation of the issue", result.Issues[0].Message)
}

func TestRun_NoSharedKeyAcrossIssues(t *testing.T) {
	a := []issue.Issue{
		{FilePath: "a.go", StartLine: line(1), Severity: issue.SeverityLow, Category: issue.CategoryStyle, FlaggedBy: []string{"r1"}},
		{FilePath: "a.go", StartLine: line(2), Severity: issue.SeverityLow, Category: issue.CategoryStyle, FlaggedBy: []string{"r1"}},
	}

	result := aggregate.Run([][]issue.Issue{a})

	assert.Len(t, result.Issues, 2)
}

func TestRun_ZeroIssues_ApprovesWithPerfectScore(t *testing.T) {
	result := aggregate.Run(nil)

	assert.Empty(t, result.Issues)
	assert.Equal(t, 10.0, result.OverallScore)
	assert.Equal(t, aggregate.RecommendationApprove, result.Recommendation)
}

func TestRun_Idempotent(t *testing.T) {
	issues := []issue.Issue{
		{FilePath: "a.go", StartLine: line(1), Severity: issue.SeverityHigh, Category: issue.CategoryPerformance, FlaggedBy: []string{"r1"}},
		{FilePath: "b.go", StartLine: line(2), Severity: issue.SeverityCritical, Category: issue.CategorySecurity, FlaggedBy: []string{"r1", "r2"}},
	}

	first := aggregate.Run([][]issue.Issue{issues})
	second := aggregate.Run([][]issue.Issue{first.Issues})

	assert.Equal(t, first.Issues, second.Issues)
	assert.Equal(t, first.OverallScore, second.OverallScore)
	assert.Equal(t, first.Recommendation, second.Recommendation)
}

func TestRun_SortOrder(t *testing.T) {
	issues := []issue.Issue{
		{FilePath: "z.go", StartLine: line(1), Severity: issue.SeverityLow, Category: issue.CategoryStyle, FlaggedBy: []string{"r1"}},
		{FilePath: "a.go", StartLine: line(1), Severity: issue.SeverityCritical, Category: issue.CategorySecurity, FlaggedBy: []string{"r1"}},
	}

	result := aggregate.Run([][]issue.Issue{issues})

	require.Len(t, result.Issues, 2)
	assert.Equal(t, "a.go", result.Issues[0].FilePath)
}

func TestRun_RecommendationBoundaries(t *testing.T) {
	mkHigh := func(n int) []issue.Issue {
		out := make([]issue.Issue, n)
		for i := range out {
			out[i] = issue.Issue{
				FilePath: "f.go", StartLine: line(i + 1), Severity: issue.SeverityHigh,
				Category: issue.CategoryQuality, FlaggedBy: []string{"r1"},
			}
		}
		return out
	}

	threeHigh := aggregate.Run([][]issue.Issue{mkHigh(3)})
	assert.Equal(t, aggregate.RecommendationApproveWithChanges, threeHigh.Recommendation)

	fourHigh := aggregate.Run([][]issue.Issue{mkHigh(4)})
	assert.Equal(t, aggregate.RecommendationRequestChanges, fourHigh.Recommendation)
}
