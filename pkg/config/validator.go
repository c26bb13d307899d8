package config

import "fmt"

// Validate checks invariants the loader cannot enforce by merging alone:
// ranges, cross-field ordering, and non-empty collections.
func Validate(c Config) error {
	ch := c.Challenger
	if ch.SatisfactionThreshold < 0 || ch.SatisfactionThreshold > 100 {
		return NewValidationError("challenger", "satisfaction_threshold", fmt.Errorf("%w: must be in [0,100], got %d", ErrInvalidValue, ch.SatisfactionThreshold))
	}
	if ch.ForcedAcceptanceThreshold < 0 || ch.ForcedAcceptanceThreshold > 100 {
		return NewValidationError("challenger", "forced_acceptance_threshold", fmt.Errorf("%w: must be in [0,100], got %d", ErrInvalidValue, ch.ForcedAcceptanceThreshold))
	}
	if ch.MaxIterations <= 0 {
		return NewValidationError("challenger", "max_iterations", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	if ch.AbsoluteMaxIterations < ch.MaxIterations {
		return NewValidationError("challenger", "absolute_max_iterations", fmt.Errorf("%w: must be >= max_iterations (%d), got %d", ErrInvalidValue, ch.MaxIterations, ch.AbsoluteMaxIterations))
	}
	if ch.StagnationWindow <= 0 {
		return NewValidationError("challenger", "stagnation_window", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	if ch.MinImprovementThreshold < 0 {
		return NewValidationError("challenger", "min_improvement_threshold", fmt.Errorf("%w: must be non-negative", ErrInvalidValue))
	}

	fc := c.FixChallenger
	if fc.SatisfactionThreshold < 0 || fc.SatisfactionThreshold > 100 {
		return NewValidationError("fix_challenger", "satisfaction_threshold", fmt.Errorf("%w: must be in [0,100], got %d", ErrInvalidValue, fc.SatisfactionThreshold))
	}
	if fc.MaxIterations <= 0 {
		return NewValidationError("fix_challenger", "max_iterations", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}

	if c.Thinking.BudgetTokens < 0 {
		return NewValidationError("thinking", "budget_tokens", fmt.Errorf("%w: must be non-negative", ErrInvalidValue))
	}

	if c.Queue.ZombieAgeSeconds <= 0 {
		return NewValidationError("queue", "zombie_age_seconds", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	if c.Queue.MaxAttempts <= 0 {
		return NewValidationError("queue", "max_attempts", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}

	if c.Concurrency.MaxReviewersInFlight <= 0 {
		return NewValidationError("concurrency", "max_reviewers_in_flight", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}

	if c.Fix.MaxIssuesPerBatch <= 0 {
		return NewValidationError("fix", "max_issues_per_batch", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	if c.Fix.MaxWorkloadPoints <= 0 {
		return NewValidationError("fix", "max_workload_points", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	if c.Fix.DefaultEffort <= 0 {
		return NewValidationError("fix", "default_effort", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	if c.Fix.DefaultFiles <= 0 {
		return NewValidationError("fix", "default_files", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}

	if c.Timeouts.InvocationSeconds <= 0 {
		return NewValidationError("timeouts", "invocation_seconds", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	if c.Timeouts.ReviewerSeconds <= 0 {
		return NewValidationError("timeouts", "reviewer_seconds", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}

	if len(c.RepoType.BackendExtensions) == 0 {
		return NewValidationError("repo_type", "backend_extensions", fmt.Errorf("%w", ErrMissingRequiredField))
	}
	if len(c.RepoType.FrontendExtensions) == 0 {
		return NewValidationError("repo_type", "frontend_extensions", fmt.Errorf("%w", ErrMissingRequiredField))
	}

	return nil
}
