// Package invocation defines the Invocation data model and the LLMInvoker
// capability the rest of the core consumes. Concrete backends (CLI
// subprocess, HTTP) live in pkg/llminvoke.
package invocation

import (
	"context"
	"time"
)

// Backend identifies which side of the challenger pattern an invocation ran
// on.
type Backend string

const (
	BackendPrimary    Backend = "primary"
	BackendChallenger Backend = "challenger"
)

// ChunkKind classifies a streamed progress chunk.
type ChunkKind string

const (
	ChunkText     ChunkKind = "text"
	ChunkThinking ChunkKind = "thinking"
	ChunkUsage    ChunkKind = "usage"
	ChunkError    ChunkKind = "error"
)

// Chunk is one piece of streamed output, delivered to a caller-supplied sink
// while an invocation is in flight.
type Chunk struct {
	Kind ChunkKind
	Text string
}

// Options tunes a single Invoke call.
type Options struct {
	Model         string
	ThinkingBudget int
	Timeout       time.Duration
	Sink          func(Chunk)
}

// TokenUsage is a best-effort estimate; adapters fill what they can observe.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
}

// ArtifactPointers references the blobs an Invoke call wrote through the
// ArtifactSink before returning.
type ArtifactPointers struct {
	Prompt   string
	Output   string
	Thinking string
}

// Invocation is a single call to one LLM backend. Immutable once returned
// from Invoke.
type Invocation struct {
	ID         string
	Backend    Backend
	Role       string
	Prompt     string
	RawOutput  string
	Thinking   string
	Duration   time.Duration
	Usage      TokenUsage
	Artifacts  ArtifactPointers
	StartedAt  time.Time
}

// Invoker is the uniform capability the core consumes for both primary and
// challenger backends. Implementations must write prompt/output/thinking to
// the ArtifactSink before returning, so a crash mid-flight never leaves a
// half-written Invocation. Errors are ferrors-classified:
// LLMTimeout, LLMUnavailable, LLMInvalidOutput, Canceled.
type Invoker interface {
	Invoke(ctx context.Context, backend Backend, role string, prompt string, opts Options) (Invocation, error)
}
