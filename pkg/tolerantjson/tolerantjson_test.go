package tolerantjson_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turbowrap/turbowrap/pkg/tolerantjson"
)

func TestUnmarshal_FencedWithTrailingComma(t *testing.T) {
	raw := "Sure, here's my evaluation:\n```json\n{\"satisfaction_score\": 55, \"feedback\": \"good\",}\n```\n"

	var out struct {
		SatisfactionScore int    `json:"satisfaction_score"`
		Feedback          string `json:"feedback"`
	}
	require.NoError(t, tolerantjson.Unmarshal(raw, &out))
	assert.Equal(t, 55, out.SatisfactionScore)
}

func TestUnmarshal_NoJSONAtAll(t *testing.T) {
	var out map[string]any
	err := tolerantjson.Unmarshal("just prose, no braces here", &out)
	assert.Error(t, err)
}

func TestExtractCandidate_PlainObject(t *testing.T) {
	got := tolerantjson.ExtractCandidate(`  {"a": 1}  `)
	assert.Equal(t, `{"a": 1}`, got)
}
