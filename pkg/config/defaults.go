package config

// DefaultConfig returns the built-in defaults, merged under whatever a
// turbowrap.yaml supplies so that a config file only needs to override
// what it actually wants to change.
func DefaultConfig() Config {
	return Config{
		Challenger: ChallengerConfig{
			SatisfactionThreshold:     50,
			MaxIterations:             5,
			AbsoluteMaxIterations:     10,
			MinImprovementThreshold:   2,
			StagnationWindow:          3,
			ForcedAcceptanceThreshold: 40,
		},
		FixChallenger: FixChallengerConfig{
			SatisfactionThreshold: 95,
			MaxIterations:         3,
		},
		Thinking: ThinkingConfig{
			BudgetTokens: 8000,
		},
		Queue: QueueConfig{
			ZombieAgeSeconds: 1800,
			MaxAttempts:      3,
		},
		Concurrency: ConcurrencyConfig{
			MaxReviewersInFlight: 4,
		},
		Fix: FixConfig{
			MaxIssuesPerBatch: 5,
			MaxWorkloadPoints: 15,
			DefaultEffort:     3,
			DefaultFiles:      1,
		},
		Timeouts: TimeoutsConfig{
			InvocationSeconds: 120,
			ReviewerSeconds:   300,
		},
		RepoType: RepoTypeConfig{
			BackendExtensions:  []string{".go", ".py", ".java", ".rb", ".rs", ".sql"},
			FrontendExtensions: []string{".js", ".jsx", ".ts", ".tsx", ".vue", ".css", ".scss", ".html"},
		},
	}
}
