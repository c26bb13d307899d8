package review

import "fmt"

// reviewerPrompts implements loop.PromptBuilder for the reviewer role. Every
// reviewer role shares the same template shape; the role identifier (e.g.
// "reviewer_be_security") steers tone and focus without any runtime type
// switching in the loop engine itself.
type reviewerPrompts struct {
	repoContext string
}

func (p reviewerPrompts) InitialPrompt(role string) string {
	return fmt.Sprintf(reviewerInitialTemplate, role, p.repoContext)
}

func (p reviewerPrompts) RefinementPrompt(role, previousOutput, challengerFeedback string) string {
	return fmt.Sprintf(reviewerRefinementTemplate, role, previousOutput, challengerFeedback)
}

func (p reviewerPrompts) ChallengerPrompt(role, primaryOutput string) string {
	return fmt.Sprintf(reviewerChallengerTemplate, role, primaryOutput)
}

const reviewerInitialTemplate = `You are acting as %s, reviewing the following repository context.

%s

Emit your findings as a JSON object: {"issues": [{"file_path", "start_line", "end_line", "severity", "category", "message", "suggestion", "current_code", "suggested_code", "estimated_effort", "estimated_files"}]}.`

const reviewerRefinementTemplate = `You are acting as %s. Revise your previous review given the challenger's feedback.

Previous review:
%s

Challenger feedback:
%s

Emit the revised findings in the same JSON shape as before.`

const reviewerChallengerTemplate = `You are the challenger for %s's review. Evaluate the following findings for completeness and correctness.

Findings:
%s

Respond as JSON: {"satisfaction_score": <0-100>, "feedback": "...", "missed_issues": ["..."], "challenges": ["..."]}.`
