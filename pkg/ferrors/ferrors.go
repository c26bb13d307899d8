// Package ferrors defines the unified failure taxonomy shared by every
// component of the orchestration core. Components never invent their own
// sentinel errors for conditions already named here; they wrap one of these
// with errors.Join or fmt.Errorf("%w", ...) for call-site context.
package ferrors

import (
	"errors"
	"fmt"
)

// Kind identifies a failure category from the core's error taxonomy.
// Kinds are compared with errors.Is against the sentinel values below, never
// by string value.
type Kind int

const (
	_ Kind = iota
	KindLLMTimeout
	KindLLMUnavailable
	KindLLMInvalidOutput
	KindCanceled
	KindLoopFailed
	KindMaxIterationsReached
	KindWorkspaceScopeViolation
	KindGitConflict
	KindGitUnavailable
	KindQueueZombie
	KindStoreUnavailable
	KindArtifactSinkUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindLLMTimeout:
		return "LLMTimeout"
	case KindLLMUnavailable:
		return "LLMUnavailable"
	case KindLLMInvalidOutput:
		return "LLMInvalidOutput"
	case KindCanceled:
		return "Canceled"
	case KindLoopFailed:
		return "LoopFailed"
	case KindMaxIterationsReached:
		return "MaxIterationsReached"
	case KindWorkspaceScopeViolation:
		return "WorkspaceScopeViolation"
	case KindGitConflict:
		return "GitConflict"
	case KindGitUnavailable:
		return "GitUnavailable"
	case KindQueueZombie:
		return "QueueZombie"
	case KindStoreUnavailable:
		return "StoreUnavailable"
	case KindArtifactSinkUnavailable:
		return "ArtifactSinkUnavailable"
	default:
		return "Unknown"
	}
}

var (
	ErrLLMTimeout               = errors.New("llm invocation timed out")
	ErrLLMUnavailable           = errors.New("llm backend unavailable")
	ErrLLMInvalidOutput         = errors.New("llm output could not be parsed into a structured result")
	ErrCanceled                 = errors.New("operation canceled")
	ErrLoopFailed               = errors.New("challenger loop failed: every invocation in an iteration errored")
	ErrMaxIterationsReached     = errors.New("loop reached its maximum iteration count")
	ErrWorkspaceScopeViolation  = errors.New("fix touched files outside the permitted workspace scope")
	ErrGitConflict              = errors.New("git operation conflicted")
	ErrGitUnavailable           = errors.New("git adapter unavailable")
	ErrQueueZombie              = errors.New("task exceeded its processing age and is considered a zombie")
	ErrStoreUnavailable         = errors.New("store unavailable")
	ErrArtifactSinkUnavailable  = errors.New("artifact sink unavailable")
)

// kindSentinels maps each Kind to its sentinel error for Is-based matching.
var kindSentinels = map[Kind]error{
	KindLLMTimeout:              ErrLLMTimeout,
	KindLLMUnavailable:          ErrLLMUnavailable,
	KindLLMInvalidOutput:        ErrLLMInvalidOutput,
	KindCanceled:                ErrCanceled,
	KindLoopFailed:              ErrLoopFailed,
	KindMaxIterationsReached:    ErrMaxIterationsReached,
	KindWorkspaceScopeViolation: ErrWorkspaceScopeViolation,
	KindGitConflict:             ErrGitConflict,
	KindGitUnavailable:          ErrGitUnavailable,
	KindQueueZombie:             ErrQueueZombie,
	KindStoreUnavailable:        ErrStoreUnavailable,
	KindArtifactSinkUnavailable: ErrArtifactSinkUnavailable,
}

// Error carries a Kind plus call-site context, wrapping an underlying cause.
type Error struct {
	Kind    Kind
	Context string
	Err     error
}

func (e *Error) Error() string {
	if e.Context == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Context, e.Err)
}

func (e *Error) Unwrap() error {
	if e.Err == nil {
		return kindSentinels[e.Kind]
	}
	return errors.Join(kindSentinels[e.Kind], e.Err)
}

// New wraps cause (may be nil) as a Kind-classified error with context.
func New(kind Kind, context string, cause error) *Error {
	return &Error{Kind: kind, Context: context, Err: cause}
}

// Is reports whether err carries the given Kind, via errors.As on *Error or
// errors.Is against the bare sentinel.
func Is(err error, kind Kind) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind == kind
	}
	return errors.Is(err, kindSentinels[kind])
}
