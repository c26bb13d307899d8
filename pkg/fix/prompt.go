package fix

import (
	"encoding/json"
	"fmt"

	"github.com/turbowrap/turbowrap/pkg/issue"
)

// fixerPrompts implements loop.PromptBuilder for a batch of issues assigned
// to one fix role ("fixer").
type fixerPrompts struct {
	batch []issue.Issue
}

func (p fixerPrompts) InitialPrompt(role string) string {
	batchJSON, _ := json.Marshal(p.batch)
	return fmt.Sprintf(fixerInitialTemplate, role, string(batchJSON))
}

func (p fixerPrompts) RefinementPrompt(role, previousOutput, challengerFeedback string) string {
	return fmt.Sprintf(fixerRefinementTemplate, role, previousOutput, challengerFeedback)
}

func (p fixerPrompts) ChallengerPrompt(role, primaryOutput string) string {
	return fmt.Sprintf(fixerChallengerTemplate, role, primaryOutput)
}

const fixerInitialTemplate = `You are acting as %s. Fix the following issues by producing the full new
content of every file you change.

Issues:
%s

Emit JSON: {"edits": {"path/to/file": "new full file content", ...}, "skipped": [{"issue_key": "...", "reason": "..."}]}.`

const fixerRefinementTemplate = `You are acting as %s. Revise your fix given the challenger's feedback.

Previous fix:
%s

Challenger feedback:
%s

Emit the revised fix in the same JSON shape as before.`

const fixerChallengerTemplate = `You are the challenger for %s's fix. Evaluate whether the edits correctly
and completely address the assigned issues.

Edits:
%s

Respond as JSON: {"satisfaction_score": <0-100>, "feedback": "...", "missed_issues": ["..."], "challenges": ["..."]}.`
