package config

// ChallengerConfig governs the review challenger loop's convergence
// behavior (spec'd as the review-side defaults: lower threshold, more
// iterations allowed since review feedback is cheaper to act on than a
// committed fix).
type ChallengerConfig struct {
	SatisfactionThreshold   int `yaml:"satisfaction_threshold"`
	MaxIterations           int `yaml:"max_iterations"`
	AbsoluteMaxIterations   int `yaml:"absolute_max_iterations"`
	MinImprovementThreshold int `yaml:"min_improvement_threshold"`
	StagnationWindow        int `yaml:"stagnation_window"`
	ForcedAcceptanceThreshold int `yaml:"forced_acceptance_threshold"`
}

// FixChallengerConfig governs the fix challenger loop, which runs with a
// tighter satisfaction bar and a smaller iteration budget than review.
type FixChallengerConfig struct {
	SatisfactionThreshold int `yaml:"satisfaction_threshold"`
	MaxIterations         int `yaml:"max_iterations"`
}

// ThinkingConfig controls the extended-thinking budget passed through to
// invocation options.
type ThinkingConfig struct {
	BudgetTokens int `yaml:"budget_tokens"`
}

// QueueConfig governs zombie detection and retry limits for the task queue.
type QueueConfig struct {
	ZombieAgeSeconds int `yaml:"zombie_age_seconds"`
	MaxAttempts      int `yaml:"max_attempts"`
}

// ConcurrencyConfig bounds parallel fan-out during review.
type ConcurrencyConfig struct {
	MaxReviewersInFlight int `yaml:"max_reviewers_in_flight"`
}

// FixConfig governs batching of accepted issues into fix units of work.
type FixConfig struct {
	MaxIssuesPerBatch  int `yaml:"max_issues_per_batch"`
	MaxWorkloadPoints  int `yaml:"max_workload_points"`
	DefaultEffort      int `yaml:"default_effort"`
	DefaultFiles       int `yaml:"default_files"`
}

// TimeoutsConfig bounds individual LLM invocations and whole-reviewer runs.
type TimeoutsConfig struct {
	InvocationSeconds int `yaml:"invocation_seconds"`
	ReviewerSeconds   int `yaml:"reviewer_seconds"`
}

// RepoTypeConfig classifies file paths as backend or frontend by
// extension, used both for reviewer selection and fix-batch ordering.
type RepoTypeConfig struct {
	BackendExtensions  []string `yaml:"backend_extensions"`
	FrontendExtensions []string `yaml:"frontend_extensions"`
}

// Config is the fully merged, validated configuration for a turbowrap
// daemon instance.
type Config struct {
	Challenger    ChallengerConfig    `yaml:"challenger"`
	FixChallenger FixChallengerConfig `yaml:"fix_challenger"`
	Thinking      ThinkingConfig      `yaml:"thinking"`
	Queue         QueueConfig         `yaml:"queue"`
	Concurrency   ConcurrencyConfig   `yaml:"concurrency"`
	Fix           FixConfig           `yaml:"fix"`
	Timeouts      TimeoutsConfig      `yaml:"timeouts"`
	RepoType      RepoTypeConfig      `yaml:"repo_type"`
}
