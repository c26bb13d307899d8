package issue

import (
	"strings"

	"github.com/turbowrap/turbowrap/pkg/ferrors"
	"github.com/turbowrap/turbowrap/pkg/tolerantjson"
)

type rawIssue struct {
	FilePath      string `json:"file_path"`
	StartLine     *int   `json:"start_line"`
	EndLine       *int   `json:"end_line"`
	Severity      string `json:"severity"`
	Category      string `json:"category"`
	Message       string `json:"message"`
	Suggestion    string `json:"suggestion"`
	CurrentCode   string `json:"current_code"`
	SuggestedCode string `json:"suggested_code"`
	Effort        *int   `json:"estimated_effort"`
	Files         *int   `json:"estimated_files"`
}

type rawPayload struct {
	Issues []rawIssue `json:"issues"`
}

// ParseIssues tolerantly extracts an issue list from raw primary-backend
// output (see pkg/tolerantjson for the repair pass) and tags every returned
// issue's FlaggedBy with the producing reviewer/fixer name.
func ParseIssues(raw string, reviewer string) ([]Issue, error) {
	issues, err := decodeIssues(raw)
	if err != nil {
		return nil, ferrors.New(ferrors.KindLLMInvalidOutput, reviewer, err)
	}

	out := make([]Issue, 0, len(issues))
	for _, ri := range issues {
		out = append(out, rawToIssue(ri, reviewer))
	}
	return out, nil
}

func decodeIssues(raw string) ([]rawIssue, error) {
	var payload rawPayload
	if err := tolerantjson.Unmarshal(raw, &payload); err == nil && payload.Issues != nil {
		return payload.Issues, nil
	}

	var list []rawIssue
	if err := tolerantjson.Unmarshal(raw, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func rawToIssue(ri rawIssue, reviewer string) Issue {
	return Issue{
		FilePath:       ri.FilePath,
		StartLine:      ri.StartLine,
		EndLine:        ri.EndLine,
		Severity:       Severity(strings.ToLower(ri.Severity)),
		Category:       Category(strings.ToLower(ri.Category)),
		Message:        ri.Message,
		Suggestion:     ri.Suggestion,
		CurrentCode:    ri.CurrentCode,
		SuggestedCode:  ri.SuggestedCode,
		FlaggedBy:      []string{reviewer},
		EstimateEffort: ri.Effort,
		EstimateFiles:  ri.Files,
	}
}
