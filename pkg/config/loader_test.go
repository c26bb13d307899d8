package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/turbowrap/turbowrap/pkg/config"
)

func TestInitialize_NoFileReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Initialize(dir)
	require.NoError(t, err)
	require.Equal(t, config.DefaultConfig(), *cfg)
}

func TestInitialize_PartialOverrideMergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	yamlContent := `
challenger:
  satisfaction_threshold: 70
fix:
  max_issues_per_batch: 8
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "turbowrap.yaml"), []byte(yamlContent), 0o644))

	cfg, err := config.Initialize(dir)
	require.NoError(t, err)

	require.Equal(t, 70, cfg.Challenger.SatisfactionThreshold)
	require.Equal(t, 8, cfg.Fix.MaxIssuesPerBatch)
	// Untouched fields fall back to defaults.
	require.Equal(t, 5, cfg.Challenger.MaxIterations)
	require.Equal(t, 1800, cfg.Queue.ZombieAgeSeconds)
}

func TestInitialize_ExpandsEnvVars(t *testing.T) {
	t.Setenv("TURBOWRAP_MAX_ITER", "7")
	dir := t.TempDir()
	yamlContent := `
challenger:
  max_iterations: ${TURBOWRAP_MAX_ITER}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "turbowrap.yaml"), []byte(yamlContent), 0o644))

	cfg, err := config.Initialize(dir)
	require.NoError(t, err)
	require.Equal(t, 7, cfg.Challenger.MaxIterations)
}

func TestInitialize_InvalidYAMLFails(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "turbowrap.yaml"), []byte("not: [valid"), 0o644))

	_, err := config.Initialize(dir)
	require.Error(t, err)
}

func TestInitialize_ValidationFailurePropagates(t *testing.T) {
	dir := t.TempDir()
	yamlContent := `
challenger:
  satisfaction_threshold: 500
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "turbowrap.yaml"), []byte(yamlContent), 0o644))

	_, err := config.Initialize(dir)
	require.Error(t, err)

	var verr *config.ValidationError
	require.ErrorAs(t, err, &verr)
}
