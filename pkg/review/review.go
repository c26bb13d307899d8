// Package review implements the Review Orchestrator: repository context
// gathering, reviewer selection, parallel challenger loops, checkpoint-aware
// resume, and issue aggregation into a FinalReport.
package review

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/turbowrap/turbowrap/pkg/aggregate"
	"github.com/turbowrap/turbowrap/pkg/checkpoint"
	"github.com/turbowrap/turbowrap/pkg/config"
	"github.com/turbowrap/turbowrap/pkg/ferrors"
	"github.com/turbowrap/turbowrap/pkg/invocation"
	"github.com/turbowrap/turbowrap/pkg/issue"
	"github.com/turbowrap/turbowrap/pkg/loop"
	"github.com/turbowrap/turbowrap/pkg/report"
	"github.com/turbowrap/turbowrap/pkg/repomap"
)

// reviewerMatrix maps a detected repo type to its static list of reviewer
// role identifiers. Adding a reviewer means extending this matrix and the
// prompt catalog, never adding a runtime type switch to the loop engine.
var reviewerMatrix = map[repomap.RepoType][]string{
	repomap.RepoTypeBackend:   {"reviewer_be_security", "reviewer_be_quality", "reviewer_be_architecture"},
	repomap.RepoTypeFrontend:  {"reviewer_fe_quality", "reviewer_fe_accessibility"},
	repomap.RepoTypeFullstack: {"reviewer_be_security", "reviewer_be_quality", "reviewer_fe_quality", "reviewer_fe_accessibility"},
	repomap.RepoTypeOther:     {"reviewer_general"},
}

const functionalAnalystRole = "reviewer_functional_analyst"
const evaluatorRole = "evaluator"

// Source selects what a review examines. Exactly one field is expected to
// be populated; Dir is the common case.
type Source struct {
	Dir    string   `json:"dir,omitempty"`
	PRUrl  string   `json:"pr_url,omitempty"`
	Commit string   `json:"commit,omitempty"`
	Files  []string `json:"files,omitempty"`
}

// Options tunes one review request. SatisfactionThreshold and MaxIterations
// override the config defaults where set, and IncludeFunctional adds the
// functional-analyst role. Mode and ChallengerEnabled are accepted but not
// read: every reviewer runs the full challenger loop.
type Options struct {
	Mode                  string `json:"mode,omitempty"`
	IncludeFunctional     bool   `json:"include_functional,omitempty"`
	ChallengerEnabled     bool   `json:"challenger_enabled,omitempty"`
	SatisfactionThreshold *int   `json:"satisfaction_threshold,omitempty"`
	MaxIterations         *int   `json:"max_iterations,omitempty"`
}

// Request is the review entry point's input envelope.
type Request struct {
	TaskID        string  `json:"task_id"`
	Source        Source  `json:"source"`
	WorkspacePath string  `json:"workspace_path,omitempty"`
	Options       Options `json:"options,omitempty"`
}

// Orchestrator runs Review requests against an LLMInvoker and a Store,
// bounding reviewer fan-out by config.Concurrency.MaxReviewersInFlight.
type Orchestrator struct {
	Invoker     invocation.Invoker
	Checkpoints *checkpoint.Manager
	Config      config.Config
}

// Review runs the full review pipeline and returns a FinalReport. It never
// returns an error for reviewer-local failures — those are recorded in the
// report's Partial flag and per-reviewer summaries — but does return an
// error on context cancellation before any reviewer started, when the
// repository map cannot be built, or when stored checkpoints cannot be
// loaded.
func (o *Orchestrator) Review(ctx context.Context, req Request) (report.FinalReport, error) {
	if err := ctx.Err(); err != nil {
		return report.FinalReport{}, ferrors.New(ferrors.KindCanceled, req.TaskID, err)
	}

	rm, repoType, err := o.buildRepoContext(req)
	if err != nil {
		return report.FinalReport{}, err
	}

	roles := append([]string(nil), reviewerMatrix[repoType]...)
	if req.Options.IncludeFunctional {
		roles = append(roles, functionalAnalystRole)
	}

	now := time.Now()
	if len(roles) == 0 {
		return report.FinalReport{
			ID:             uuid.NewString(),
			TaskID:         req.TaskID,
			Timestamp:      now,
			RepoType:       string(repoType),
			SeverityCounts: map[issue.Severity]int{},
			OverallScore:   10.0,
			Recommendation: aggregate.RecommendationApprove,
		}, nil
	}

	checkpoints, err := o.Checkpoints.Load(ctx, req.TaskID)
	if err != nil {
		return report.FinalReport{}, ferrors.New(ferrors.KindStoreUnavailable, req.TaskID, err)
	}

	params := o.loopParams(req.Options)
	repoContext := fmt.Sprintf("workspace=%s files=%d", rm.WorkspacePath, len(rm.Files))

	summaries := make([]report.ReviewerSummary, len(roles))
	perReviewerIssues := make([][]issue.Issue, len(roles))

	var wg sync.WaitGroup
	sem := make(chan struct{}, maxInFlight(o.Config.Concurrency.MaxReviewersInFlight))

	for i, role := range roles {
		if cp, ok := checkpoints[role]; ok {
			summaries[i] = summaryFromCheckpoint(cp)
			perReviewerIssues[i] = cp.Issues
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(i int, role string) {
			defer wg.Done()
			defer func() { <-sem }()

			summary, issues := o.runReviewer(ctx, req.TaskID, role, repoContext, params)
			summaries[i] = summary
			perReviewerIssues[i] = issues
		}(i, role)
	}
	wg.Wait()

	partial := false
	for _, s := range summaries {
		if s.Failed {
			partial = true
		}
	}

	agg := aggregate.Run(perReviewerIssues)

	final := report.FinalReport{
		ID:                uuid.NewString(),
		TaskID:            req.TaskID,
		Timestamp:         now,
		RepoType:          string(repoType),
		ReviewerSummaries: summaries,
		Issues:            agg.Issues,
		SeverityCounts:    agg.SeverityCounts,
		OverallScore:      agg.OverallScore,
		Recommendation:    agg.Recommendation,
		Partial:           partial,
	}

	if hasSuccess(summaries) {
		if note, err := o.runEvaluator(ctx, final, repoContext); err == nil {
			final.EvaluatorNote = note
		}
	}

	return final, nil
}

func hasSuccess(summaries []report.ReviewerSummary) bool {
	for _, s := range summaries {
		if !s.Failed {
			return true
		}
	}
	return false
}

func (o *Orchestrator) buildRepoContext(req Request) (repomap.RepoMap, repomap.RepoType, error) {
	if req.Source.Dir == "" {
		// PR/commit/files-list sources materialize context via external
		// collaborators not modeled by this core; an empty map degrades to
		// "other" repo type rather than failing the request.
		return repomap.RepoMap{WorkspacePath: req.WorkspacePath}, repomap.RepoTypeOther, nil
	}

	rm, err := repomap.Build(req.Source.Dir, req.WorkspacePath, nil)
	if err != nil {
		return repomap.RepoMap{}, "", fmt.Errorf("build repo map: %w", err)
	}
	repoType := repomap.DetectRepoType(rm.Census, o.Config.RepoType)
	return rm, repoType, nil
}

func (o *Orchestrator) loopParams(opts Options) loop.Params {
	p := loop.Params{
		SatisfactionThreshold:     o.Config.Challenger.SatisfactionThreshold,
		MaxIterations:             o.Config.Challenger.MaxIterations,
		AbsoluteMaxIterations:     o.Config.Challenger.AbsoluteMaxIterations,
		MinImprovementThreshold:   o.Config.Challenger.MinImprovementThreshold,
		StagnationWindow:          o.Config.Challenger.StagnationWindow,
		ForcedAcceptanceThreshold: o.Config.Challenger.ForcedAcceptanceThreshold,
		InvocationTimeout:         time.Duration(o.Config.Timeouts.InvocationSeconds) * time.Second,
	}
	if opts.SatisfactionThreshold != nil {
		p.SatisfactionThreshold = *opts.SatisfactionThreshold
	}
	if opts.MaxIterations != nil {
		p.MaxIterations = *opts.MaxIterations
	}
	return p
}

func (o *Orchestrator) runReviewer(ctx context.Context, taskID, role, repoContext string, params loop.Params) (report.ReviewerSummary, []issue.Issue) {
	builder := reviewerPrompts{repoContext: repoContext}

	if reviewerSeconds := o.Config.Timeouts.ReviewerSeconds; reviewerSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(reviewerSeconds)*time.Second)
		defer cancel()
	}

	result, err := loop.Run(ctx, o.Invoker, role, builder, params)
	if err != nil && !ferrors.Is(err, ferrors.KindMaxIterationsReached) {
		summary := report.ReviewerSummary{
			ReviewerName:      role,
			ConvergenceStatus: result.Status,
			IterationsUsed:    result.IterationsUsed,
			Failed:            true,
			FailureReason:     err.Error(),
		}
		return summary, nil
	}

	issues, parseErr := issue.ParseIssues(result.FinalPrimaryResult, role)
	if parseErr != nil {
		return report.ReviewerSummary{
			ReviewerName:      role,
			ConvergenceStatus: result.Status,
			IterationsUsed:    result.IterationsUsed,
			Failed:            true,
			FailureReason:     parseErr.Error(),
		}, nil
	}

	score := 0
	if len(result.History) > 0 {
		score = result.History[len(result.History)-1]
	}

	if saveErr := o.Checkpoints.Save(ctx, taskID, role, result, issues); saveErr != nil {
		return report.ReviewerSummary{
			ReviewerName:      role,
			ConvergenceStatus: result.Status,
			SatisfactionScore: score,
			IterationsUsed:    result.IterationsUsed,
			Failed:            true,
			FailureReason:     saveErr.Error(),
		}, nil
	}

	return report.ReviewerSummary{
		ReviewerName:      role,
		ConvergenceStatus: result.Status,
		SatisfactionScore: score,
		IterationsUsed:    result.IterationsUsed,
	}, issues
}

func (o *Orchestrator) runEvaluator(ctx context.Context, final report.FinalReport, repoContext string) (string, error) {
	prompt := fmt.Sprintf("Given %d issues (overall score %.1f, recommendation %s) for %s, write a one-paragraph qualitative assessment.",
		len(final.Issues), final.OverallScore, final.Recommendation, repoContext)

	opts := invocation.Options{Timeout: time.Duration(o.Config.Timeouts.InvocationSeconds) * time.Second}
	inv, err := o.Invoker.Invoke(ctx, invocation.BackendPrimary, evaluatorRole, prompt, opts)
	if err != nil {
		return "", err
	}
	return inv.RawOutput, nil
}

func summaryFromCheckpoint(cp checkpoint.Checkpoint) report.ReviewerSummary {
	return report.ReviewerSummary{
		ReviewerName:      cp.ReviewerName,
		ConvergenceStatus: cp.ConvergenceStatus,
		SatisfactionScore: cp.SatisfactionScore,
		IterationsUsed:    cp.IterationsUsed,
	}
}

func maxInFlight(configured int) int {
	if configured <= 0 {
		return 1
	}
	return configured
}
