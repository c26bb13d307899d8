// Package loop implements the Challenger Loop Engine: the iterative
// primary-invoke / challenger-evaluate refinement loop with threshold,
// forced-acceptance, and stagnation exits.
package loop

import (
	"context"
	"fmt"
	"time"

	"github.com/turbowrap/turbowrap/pkg/ferrors"
	"github.com/turbowrap/turbowrap/pkg/invocation"
	"github.com/turbowrap/turbowrap/pkg/tolerantjson"
)

// Status is the terminal classification of a LoopRun.
type Status string

const (
	StatusThresholdMet         Status = "threshold-met"
	StatusForcedAcceptance     Status = "forced-acceptance"
	StatusStagnated            Status = "stagnated"
	StatusMaxIterationsReached Status = "max-iterations-reached"
	StatusFailed               Status = "failed"
	StatusCanceled             Status = "canceled"
)

// Params tunes one loop kind (review or fix), from config.
type Params struct {
	SatisfactionThreshold     int
	MaxIterations             int
	AbsoluteMaxIterations     int
	MinImprovementThreshold   int
	StagnationWindow          int
	ForcedAcceptanceThreshold int
	// InvocationTimeout bounds each individual primary/challenger call.
	// Zero leaves the call unbounded (the invoker's own default applies).
	InvocationTimeout time.Duration
}

// ChallengerResult is the structured evaluation the challenger backend must
// produce for a primary output.
type ChallengerResult struct {
	SatisfactionScore int      `json:"satisfaction_score"`
	Feedback          string   `json:"feedback"`
	MissedIssues      []string `json:"missed_issues"`
	Challenges        []string `json:"challenges"`
}

// PromptBuilder builds the three prompt shapes the loop needs. Implementations
// are role-specific (reviewer vs fixer) and live outside this package.
type PromptBuilder interface {
	InitialPrompt(role string) string
	RefinementPrompt(role, previousOutput, challengerFeedback string) string
	ChallengerPrompt(role, primaryOutput string) string
}

// Result is what Run returns: the caller treats ThresholdMet, ForcedAcceptance,
// and Stagnated as "use FinalPrimaryResult"; MaxIterationsReached likewise but
// flagged in the report; Failed/Canceled surface as errors via Run's second
// return value.
type Result struct {
	Status            Status
	FinalPrimaryResult string
	History            []int
	IterationsUsed     int
	Invocations        []invocation.Invocation
}

// Run executes one LoopRun for role against invoker, following the algorithm
// in the challenger loop design: primary invoke, challenger evaluate, then
// convergence tests in order (threshold, soft-cap/forced-acceptance,
// stagnation).
func Run(ctx context.Context, invoker invocation.Invoker, role string, builder PromptBuilder, params Params) (Result, error) {
	history := make([]int, 0, params.AbsoluteMaxIterations)
	invocations := make([]invocation.Invocation, 0, params.AbsoluteMaxIterations*2)
	lastPrimaryOutput := ""
	lastFeedback := ""

	iteration := 0
	for {
		iteration++
		if iteration > params.AbsoluteMaxIterations {
			return Result{
				Status:             StatusMaxIterationsReached,
				FinalPrimaryResult: lastPrimaryOutput,
				History:            history,
				IterationsUsed:     iteration - 1,
				Invocations:        invocations,
			}, ferrors.New(ferrors.KindMaxIterationsReached, role, nil)
		}

		var primaryPrompt string
		if iteration == 1 {
			primaryPrompt = builder.InitialPrompt(role)
		} else {
			primaryPrompt = builder.RefinementPrompt(role, lastPrimaryOutput, lastFeedback)
		}

		invokeOpts := invocation.Options{Timeout: params.InvocationTimeout}

		// A lone failed call (primary or challenger) is recovered locally as
		// a 0-score iteration; LoopFailed is only raised when every
		// invocation in the iteration errored. Cancellation always takes
		// priority over recovery.
		primaryFailed := false
		primaryInv, err := invoker.Invoke(ctx, invocation.BackendPrimary, role, primaryPrompt, invokeOpts)
		if err != nil {
			if ferrors.Is(err, ferrors.KindCanceled) {
				return Result{Status: StatusCanceled, FinalPrimaryResult: lastPrimaryOutput, History: history, IterationsUsed: iteration, Invocations: invocations}, err
			}
			primaryFailed = true
		} else {
			invocations = append(invocations, primaryInv)
			lastPrimaryOutput = primaryInv.RawOutput
		}

		challengerPrompt := builder.ChallengerPrompt(role, lastPrimaryOutput)
		challengerInv, err := invoker.Invoke(ctx, invocation.BackendChallenger, role, challengerPrompt, invokeOpts)

		var score int
		switch {
		case err != nil && ferrors.Is(err, ferrors.KindCanceled):
			return Result{Status: StatusCanceled, FinalPrimaryResult: lastPrimaryOutput, History: history, IterationsUsed: iteration, Invocations: invocations}, err
		case err != nil && primaryFailed:
			return Result{Status: StatusFailed, FinalPrimaryResult: lastPrimaryOutput, History: history, IterationsUsed: iteration, Invocations: invocations}, ferrors.New(ferrors.KindLoopFailed, role, err)
		case err != nil:
			score = 0
		case primaryFailed:
			invocations = append(invocations, challengerInv)
			score = 0
		default:
			invocations = append(invocations, challengerInv)
			evaluation, parseErr := parseChallengerResult(challengerInv.RawOutput)
			if parseErr != nil {
				// An unparseable evaluation counts as a failed challenger call.
				score = 0
				break
			}
			lastFeedback = evaluation.Feedback
			score = evaluation.SatisfactionScore
		}

		history = append(history, score)

		if score >= params.SatisfactionThreshold {
			return Result{
				Status:             StatusThresholdMet,
				FinalPrimaryResult: lastPrimaryOutput,
				History:            history,
				IterationsUsed:     iteration,
				Invocations:        invocations,
			}, nil
		}

		if iteration >= params.MaxIterations {
			if score >= params.ForcedAcceptanceThreshold {
				return Result{
					Status:             StatusForcedAcceptance,
					FinalPrimaryResult: lastPrimaryOutput,
					History:            history,
					IterationsUsed:     iteration,
					Invocations:        invocations,
				}, nil
			}
			return Result{
				Status:             StatusMaxIterationsReached,
				FinalPrimaryResult: lastPrimaryOutput,
				History:            history,
				IterationsUsed:     iteration,
				Invocations:        invocations,
			}, nil
		}

		if stagnated(history, params.StagnationWindow, params.MinImprovementThreshold) {
			return Result{
				Status:             StatusStagnated,
				FinalPrimaryResult: lastPrimaryOutput,
				History:            history,
				IterationsUsed:     iteration,
				Invocations:        invocations,
			}, nil
		}
	}
}

func stagnated(history []int, window, minImprovement int) bool {
	if len(history) < window {
		return false
	}
	last := history[len(history)-window:]
	min, max := last[0], last[0]
	for _, v := range last {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return max-min < minImprovement
}

func parseChallengerResult(raw string) (ChallengerResult, error) {
	var result ChallengerResult
	if err := tolerantjson.Unmarshal(raw, &result); err != nil {
		return ChallengerResult{}, fmt.Errorf("challenger output not parseable: %w", err)
	}
	return result, nil
}
