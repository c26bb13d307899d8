package fix

import (
	"github.com/turbowrap/turbowrap/pkg/ferrors"
	"github.com/turbowrap/turbowrap/pkg/tolerantjson"
)

// fixerOutput is the structured shape a fixer primary invocation emits:
// the new content for every file it touched, plus the issues it chose to
// skip, each with a reason.
type fixerOutput struct {
	Edits    map[string]string `json:"edits"`
	Skipped  []skippedIssue    `json:"skipped"`
}

type skippedIssue struct {
	IssueKey string `json:"issue_key"`
	Reason   string `json:"reason"`
}

func parseFixerOutput(raw string, role string) (fixerOutput, error) {
	var out fixerOutput
	if err := tolerantjson.Unmarshal(raw, &out); err != nil {
		return fixerOutput{}, ferrors.New(ferrors.KindLLMInvalidOutput, role, err)
	}
	return out, nil
}
