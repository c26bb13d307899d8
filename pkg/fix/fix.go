// Package fix implements the Fix Orchestrator: issue classification,
// workload batching, per-batch challenger loops, workspace-scope
// validation, and a single atomic commit covering every successful batch.
package fix

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/turbowrap/turbowrap/pkg/config"
	"github.com/turbowrap/turbowrap/pkg/ferrors"
	"github.com/turbowrap/turbowrap/pkg/fixbatch"
	"github.com/turbowrap/turbowrap/pkg/gitport"
	"github.com/turbowrap/turbowrap/pkg/invocation"
	"github.com/turbowrap/turbowrap/pkg/issue"
	"github.com/turbowrap/turbowrap/pkg/loop"
	"github.com/turbowrap/turbowrap/pkg/report"
)

// Request is the fix entry point's input envelope.
type Request struct {
	TaskID        string        `json:"task_id"`
	RepositoryID  string        `json:"repository_id"`
	Issues        []issue.Issue `json:"issues"`
	WorkspacePath string        `json:"workspace_path,omitempty"`
	Push          bool          `json:"push,omitempty"`
}

// Orchestrator runs Fix requests against an LLMInvoker and a GitAdapter.
type Orchestrator struct {
	Invoker invocation.Invoker
	Git     gitport.Adapter
	Config  config.Config
}

// Fix runs the full fix pipeline and returns a FixReport. Batch failures are
// isolated to their own issues and the remaining batches still proceed. A
// workspace-scope violation reverts the working tree and marks every issue
// failed without committing; cancellation and GitAdapter errors end the
// request early with an error.
func (o *Orchestrator) Fix(ctx context.Context, req Request) (report.FixReport, error) {
	if err := ctx.Err(); err != nil {
		return report.FixReport{}, ferrors.New(ferrors.KindCanceled, req.TaskID, err)
	}

	now := time.Now()
	final := report.FixReport{
		ID:            uuid.NewString(),
		TaskID:        req.TaskID,
		Timestamp:     now,
		IssueOutcomes: make(map[string]report.IssueOutcome),
		IssueReasons:  make(map[string]string),
	}

	if len(req.Issues) == 0 {
		return final, nil
	}

	branchName := fmt.Sprintf("turbowrap/fix-%s", req.TaskID)
	if err := o.Git.CreateOrCheckoutBranch(branchName); err != nil {
		return report.FixReport{}, ferrors.New(ferrors.KindGitUnavailable, branchName, err)
	}

	batches := fixbatch.Build(req.Issues, o.Config.RepoType, o.Config.Fix)

	fixParams := loop.Params{
		SatisfactionThreshold:     o.Config.FixChallenger.SatisfactionThreshold,
		MaxIterations:             o.Config.FixChallenger.MaxIterations,
		AbsoluteMaxIterations:     o.Config.Challenger.AbsoluteMaxIterations,
		MinImprovementThreshold:   o.Config.Challenger.MinImprovementThreshold,
		StagnationWindow:          o.Config.Challenger.StagnationWindow,
		ForcedAcceptanceThreshold: o.Config.Challenger.ForcedAcceptanceThreshold,
		InvocationTimeout:         time.Duration(o.Config.Timeouts.InvocationSeconds) * time.Second,
	}

	for _, i := range req.Issues {
		final.IssueOutcomes[issue.Key(i)] = report.OutcomeSkipped
	}

	allEdits := make(map[string]string)

	for bi, batch := range batches {
		if ctxErr := ctx.Err(); ctxErr != nil {
			markBatchFailed(final, batch, ctxErr.Error())
			return final, ferrors.New(ferrors.KindCanceled, req.TaskID, ctxErr)
		}

		batchID := fmt.Sprintf("%s-batch-%d", req.TaskID, bi)
		builder := fixerPrompts{batch: batch.Issues}

		result, err := loop.Run(ctx, o.Invoker, "fixer", builder, fixParams)
		if err != nil {
			if ferrors.Is(err, ferrors.KindCanceled) {
				// No new invocations start after cancellation: mark this
				// batch failed and stop, leaving every later batch's issues
				// at their pre-seeded Skipped outcome.
				markBatchFailed(final, batch, err.Error())
				return final, err
			}
			if !ferrors.Is(err, ferrors.KindMaxIterationsReached) {
				markBatchFailed(final, batch, err.Error())
				continue
			}
		}

		succeeded := result.Status == loop.StatusThresholdMet || result.Status == loop.StatusForcedAcceptance

		score := 0
		if len(result.History) > 0 {
			score = result.History[len(result.History)-1]
		}
		final.Batches = append(final.Batches, report.BatchOutcome{
			BatchID:           batchID,
			Scope:             string(batch.Class),
			ConvergenceStatus: result.Status,
			SatisfactionScore: score,
		})

		if !succeeded {
			markBatchFailed(final, batch, fmt.Sprintf("batch ended %s below threshold", result.Status))
			continue
		}

		out, parseErr := parseFixerOutput(result.FinalPrimaryResult, "fixer")
		if parseErr != nil {
			markBatchFailed(final, batch, parseErr.Error())
			continue
		}

		for path, content := range out.Edits {
			allEdits[path] = content
		}
		skippedKeys := make(map[string]bool, len(out.Skipped))
		for _, s := range out.Skipped {
			skippedKeys[s.IssueKey] = true
			final.IssueReasons[s.IssueKey] = s.Reason
		}
		for _, i := range batch.Issues {
			key := issue.Key(i)
			if skippedKeys[key] {
				final.IssueOutcomes[key] = report.OutcomeSkipped
				continue
			}
			final.IssueOutcomes[key] = report.OutcomeFixed
		}
	}

	if len(allEdits) == 0 {
		return final, nil
	}

	if req.WorkspacePath != "" {
		if violator, ok := scopeViolation(allEdits, req.WorkspacePath); ok {
			if revertErr := o.Git.Revert(); revertErr != nil {
				return report.FixReport{}, ferrors.New(ferrors.KindGitUnavailable, branchName, revertErr)
			}
			final.FailureKind = ferrors.KindWorkspaceScopeViolation.String()
			for key := range final.IssueOutcomes {
				final.IssueOutcomes[key] = report.OutcomeFailed
			}
			final.IssueReasons["_scope"] = fmt.Sprintf("edit outside workspace scope: %s", violator)
			return final, nil
		}
	}

	if err := o.Git.ApplyEdits(allEdits); err != nil {
		return report.FixReport{}, ferrors.New(ferrors.KindGitUnavailable, branchName, err)
	}

	commitID, err := o.Git.CommitAll(fmt.Sprintf("turbowrap: apply %d fix batch(es)", len(final.Batches)))
	if err != nil {
		return report.FixReport{}, ferrors.New(ferrors.KindGitConflict, branchName, err)
	}
	final.CommitID = commitID

	if req.Push {
		if err := o.Git.Push(branchName); err != nil {
			return final, ferrors.New(ferrors.KindGitUnavailable, branchName, err)
		}
		final.Pushed = true
	}

	return final, nil
}

func markBatchFailed(final report.FixReport, batch fixbatch.Batch, reason string) {
	for _, i := range batch.Issues {
		key := issue.Key(i)
		final.IssueOutcomes[key] = report.OutcomeFailed
		final.IssueReasons[key] = reason
	}
}

// scopeViolation reports the first edited path that does not sit under
// workspacePath, if any.
func scopeViolation(edits map[string]string, workspacePath string) (string, bool) {
	prefix := filepath.ToSlash(filepath.Clean(workspacePath)) + "/"
	for path := range edits {
		clean := filepath.ToSlash(filepath.Clean(path))
		if !strings.HasPrefix(clean, prefix) {
			return path, true
		}
	}
	return "", false
}
