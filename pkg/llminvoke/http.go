package llminvoke

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/turbowrap/turbowrap/pkg/artifact"
	"github.com/turbowrap/turbowrap/pkg/ferrors"
	"github.com/turbowrap/turbowrap/pkg/invocation"
)

// HTTPConfig holds the one endpoint both backend kinds share and the model
// used for each backend kind.
type HTTPConfig struct {
	BaseURL           string
	PrimaryModel      string
	ChallengerModel   string
	Client            *http.Client
}

// HTTPInvoker invokes a chat-completions-shaped HTTP endpoint.
type HTTPInvoker struct {
	cfg  HTTPConfig
	sink artifact.Sink
}

// NewHTTPInvoker returns an HTTPInvoker backed by sink for artifact persistence.
func NewHTTPInvoker(cfg HTTPConfig, sink artifact.Sink) *HTTPInvoker {
	if cfg.Client == nil {
		cfg.Client = http.DefaultClient
	}
	return &HTTPInvoker{cfg: cfg, sink: sink}
}

type chatRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	ThinkingBudgetTokens int `json:"thinking_budget_tokens,omitempty"`
}

type chatResponse struct {
	Output   string `json:"output"`
	Thinking string `json:"thinking,omitempty"`
	Usage    struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (h *HTTPInvoker) Invoke(ctx context.Context, backend invocation.Backend, role, prompt string, opts invocation.Options) (invocation.Invocation, error) {
	started := time.Now()

	runCtx := ctx
	var cancel context.CancelFunc
	if opts.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	model := h.cfg.PrimaryModel
	if backend == invocation.BackendChallenger {
		model = h.cfg.ChallengerModel
	}
	if opts.Model != "" {
		model = opts.Model
	}

	body, err := json.Marshal(chatRequest{Model: model, Prompt: prompt, ThinkingBudgetTokens: opts.ThinkingBudget})
	if err != nil {
		return invocation.Invocation{}, ferrors.New(ferrors.KindLLMInvalidOutput, role, err)
	}

	req, err := http.NewRequestWithContext(runCtx, http.MethodPost, h.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return invocation.Invocation{}, ferrors.New(ferrors.KindLLMUnavailable, role, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.cfg.Client.Do(req)
	if err != nil {
		if runCtx.Err() != nil && ctx.Err() == nil {
			return invocation.Invocation{}, ferrors.New(ferrors.KindLLMTimeout, role, runCtx.Err())
		}
		if ctx.Err() != nil {
			return invocation.Invocation{}, ferrors.New(ferrors.KindCanceled, role, ctx.Err())
		}
		return invocation.Invocation{}, ferrors.New(ferrors.KindLLMUnavailable, role, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return invocation.Invocation{}, ferrors.New(ferrors.KindLLMUnavailable, role, err)
	}
	if resp.StatusCode >= 500 {
		return invocation.Invocation{}, ferrors.New(ferrors.KindLLMUnavailable, role, fmt.Errorf("backend returned %d: %s", resp.StatusCode, raw))
	}
	if resp.StatusCode >= 400 {
		return invocation.Invocation{}, ferrors.New(ferrors.KindLLMInvalidOutput, role, fmt.Errorf("backend returned %d: %s", resp.StatusCode, raw))
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return invocation.Invocation{}, ferrors.New(ferrors.KindLLMInvalidOutput, role, err)
	}

	if opts.Sink != nil {
		opts.Sink(invocation.Chunk{Kind: invocation.ChunkText, Text: parsed.Output})
	}

	ptrs, err := persistArtifacts(ctx, h.sink, prompt, parsed.Output, parsed.Thinking)
	if err != nil {
		return invocation.Invocation{}, err
	}

	return invocation.Invocation{
		ID:        uuid.NewString(),
		Backend:   backend,
		Role:      role,
		Prompt:    prompt,
		RawOutput: parsed.Output,
		Thinking:  parsed.Thinking,
		Duration:  time.Since(started),
		Usage: invocation.TokenUsage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
		},
		Artifacts: ptrs,
		StartedAt: started,
	}, nil
}
