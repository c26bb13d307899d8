// Package report defines the terminal output shapes of the two top-level
// operations: FinalReport (review) and FixReport (fix).
package report

import (
	"time"

	"github.com/turbowrap/turbowrap/pkg/aggregate"
	"github.com/turbowrap/turbowrap/pkg/issue"
	"github.com/turbowrap/turbowrap/pkg/loop"
)

// ReviewerSummary is one reviewer's contribution to a FinalReport.
type ReviewerSummary struct {
	ReviewerName      string
	ConvergenceStatus loop.Status
	SatisfactionScore int
	IterationsUsed    int
	Failed            bool
	FailureReason     string
}

// FinalReport is the terminal output of a review request.
type FinalReport struct {
	ID               string
	TaskID           string
	Timestamp        time.Time
	RepositoryDesc   string
	RepoType         string
	ReviewerSummaries []ReviewerSummary
	Issues           []issue.Issue
	SeverityCounts   map[issue.Severity]int
	OverallScore     float64
	Recommendation   aggregate.Recommendation
	NextSteps        []string
	Partial          bool
	EvaluatorNote    string
}

// IssueOutcome is the terminal status of one issue in a fix request.
type IssueOutcome string

const (
	OutcomeFixed   IssueOutcome = "fixed"
	OutcomeSkipped IssueOutcome = "skipped"
	OutcomeFailed  IssueOutcome = "failed"
)

// BatchOutcome records one fix batch's satisfaction score and convergence.
type BatchOutcome struct {
	BatchID           string
	Scope             string
	ConvergenceStatus loop.Status
	SatisfactionScore int
}

// FixReport is the terminal output of a fix request.
type FixReport struct {
	ID             string
	TaskID         string
	Timestamp      time.Time
	IssueOutcomes  map[string]IssueOutcome
	IssueReasons   map[string]string
	Batches        []BatchOutcome
	CommitID       string
	Pushed         bool
	FailureKind    string
}
