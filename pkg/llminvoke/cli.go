// Package llminvoke provides concrete invocation.Invoker implementations: a
// CLI-subprocess adapter that shells out to a configured backend command
// (e.g. a claude/gemini wrapper), and an HTTP adapter for services exposing
// a chat-completions-style endpoint.
package llminvoke

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/turbowrap/turbowrap/pkg/artifact"
	"github.com/turbowrap/turbowrap/pkg/ferrors"
	"github.com/turbowrap/turbowrap/pkg/invocation"
)

// CLIConfig selects the subprocess command for each backend kind.
type CLIConfig struct {
	PrimaryCommand    []string
	ChallengerCommand []string
	WorkDir           string
}

// CLIInvoker invokes a local command per Invoke call, feeding the prompt on
// stdin and reading the full stdout as the raw output. Streaming chunks are
// emitted line-by-line as they arrive.
type CLIInvoker struct {
	cfg   CLIConfig
	sink  artifact.Sink
	nowFn func() time.Time
}

// NewCLIInvoker returns a CLIInvoker backed by sink for artifact persistence.
func NewCLIInvoker(cfg CLIConfig, sink artifact.Sink) *CLIInvoker {
	return &CLIInvoker{cfg: cfg, sink: sink, nowFn: time.Now}
}

func (c *CLIInvoker) Invoke(ctx context.Context, backend invocation.Backend, role, prompt string, opts invocation.Options) (invocation.Invocation, error) {
	started := c.nowFn()

	command := c.cfg.PrimaryCommand
	if backend == invocation.BackendChallenger {
		command = c.cfg.ChallengerCommand
	}
	if len(command) == 0 {
		return invocation.Invocation{}, ferrors.New(ferrors.KindLLMUnavailable, role, fmt.Errorf("no command configured for backend %q", backend))
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if opts.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	// #nosec G204 -- command is operator-configured, not derived from untrusted input.
	cmd := exec.CommandContext(runCtx, command[0], command[1:]...)
	cmd.Dir = c.cfg.WorkDir
	cmd.Stdin = strings.NewReader(prompt)

	var stdout bytes.Buffer
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return invocation.Invocation{}, ferrors.New(ferrors.KindLLMUnavailable, role, err)
	}

	if err := cmd.Start(); err != nil {
		return invocation.Invocation{}, ferrors.New(ferrors.KindLLMUnavailable, role, err)
	}

	scanner := bufio.NewScanner(stdoutPipe)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		stdout.WriteString(line)
		stdout.WriteByte('\n')
		if opts.Sink != nil {
			opts.Sink(invocation.Chunk{Kind: invocation.ChunkText, Text: line})
		}
	}

	waitErr := cmd.Wait()
	duration := c.nowFn().Sub(started)

	if runCtx.Err() != nil {
		if ctx.Err() != nil {
			return invocation.Invocation{}, ferrors.New(ferrors.KindCanceled, role, ctx.Err())
		}
		return invocation.Invocation{}, ferrors.New(ferrors.KindLLMTimeout, role, runCtx.Err())
	}
	if waitErr != nil {
		return invocation.Invocation{}, ferrors.New(ferrors.KindLLMUnavailable, role, waitErr)
	}

	raw := stdout.String()
	ptrs, err := persistArtifacts(ctx, c.sink, prompt, raw, "")
	if err != nil {
		return invocation.Invocation{}, err
	}

	return invocation.Invocation{
		ID:        uuid.NewString(),
		Backend:   backend,
		Role:      role,
		Prompt:    prompt,
		RawOutput: raw,
		Duration:  duration,
		Artifacts: ptrs,
		StartedAt: started,
	}, nil
}

func persistArtifacts(ctx context.Context, sink artifact.Sink, prompt, output, thinking string) (invocation.ArtifactPointers, error) {
	if sink == nil {
		return invocation.ArtifactPointers{}, nil
	}

	promptPtr, err := sink.Put(ctx, "prompt", []byte(prompt))
	if err != nil {
		return invocation.ArtifactPointers{}, ferrors.New(ferrors.KindArtifactSinkUnavailable, "prompt", err)
	}
	outputPtr, err := sink.Put(ctx, "output", []byte(output))
	if err != nil {
		return invocation.ArtifactPointers{}, ferrors.New(ferrors.KindArtifactSinkUnavailable, "output", err)
	}
	var thinkingPtr string
	if thinking != "" {
		thinkingPtr, err = sink.Put(ctx, "thinking", []byte(thinking))
		if err != nil {
			return invocation.ArtifactPointers{}, ferrors.New(ferrors.KindArtifactSinkUnavailable, "thinking", err)
		}
	}

	return invocation.ArtifactPointers{Prompt: promptPtr, Output: outputPtr, Thinking: thinkingPtr}, nil
}
