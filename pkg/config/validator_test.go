package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/turbowrap/turbowrap/pkg/config"
)

func TestValidate_RejectsThresholdOutOfRange(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Challenger.SatisfactionThreshold = 150
	err := config.Validate(cfg)
	assert.Error(t, err)

	var verr *config.ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, "challenger", verr.Section)
	assert.Equal(t, "satisfaction_threshold", verr.Field)
}

func TestValidate_RejectsMaxIterationsAboveAbsoluteCap(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Challenger.MaxIterations = 20
	cfg.Challenger.AbsoluteMaxIterations = 10
	err := config.Validate(cfg)
	assert.Error(t, err)
}

func TestValidate_RejectsEmptyExtensionLists(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.RepoType.BackendExtensions = nil
	assert.Error(t, config.Validate(cfg))
}

func TestValidate_RejectsNonPositiveBatchLimits(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Fix.MaxIssuesPerBatch = 0
	assert.Error(t, config.Validate(cfg))
}

func TestValidate_AcceptsDefaults(t *testing.T) {
	assert.NoError(t, config.Validate(config.DefaultConfig()))
}
