// Package fsartifact is a filesystem-backed ArtifactSink: each blob is
// written content-addressed under a base directory, keyed by a sha256 digest
// so repeated Puts of identical content are free and concurrent writers
// never corrupt each other's files.
package fsartifact

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/turbowrap/turbowrap/pkg/ferrors"
)

// tmpSeq keeps temporary file names unique across concurrent Puts within
// one process.
var tmpSeq atomic.Uint64

// Sink implements artifact.Sink on top of the local filesystem.
type Sink struct {
	baseDir string
}

// New returns a Sink rooted at baseDir, creating it if absent.
func New(baseDir string) (*Sink, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, ferrors.New(ferrors.KindArtifactSinkUnavailable, baseDir, err)
	}
	return &Sink{baseDir: baseDir}, nil
}

// Put writes blob under a content-addressed path and returns the pointer.
// key is used only to namespace the digest directory (e.g. "prompt",
// "output", "thinking") so callers can browse a run's artifacts by kind.
func (s *Sink) Put(ctx context.Context, key string, blob []byte) (string, error) {
	select {
	case <-ctx.Done():
		return "", ferrors.New(ferrors.KindCanceled, key, ctx.Err())
	default:
	}

	sum := sha256.Sum256(blob)
	digest := hex.EncodeToString(sum[:])
	dir := filepath.Join(s.baseDir, key)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", ferrors.New(ferrors.KindArtifactSinkUnavailable, key, err)
	}

	path := filepath.Join(dir, digest)
	pointer := filepath.ToSlash(filepath.Join(key, digest))

	if _, err := os.Stat(path); err == nil {
		return pointer, nil
	}

	tmp := path + fmt.Sprintf(".tmp-%d-%d", os.Getpid(), tmpSeq.Add(1))
	if err := os.WriteFile(tmp, blob, 0o644); err != nil {
		return "", ferrors.New(ferrors.KindArtifactSinkUnavailable, key, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", ferrors.New(ferrors.KindArtifactSinkUnavailable, key, err)
	}
	return pointer, nil
}

// Get reads back a blob previously written under pointer.
func (s *Sink) Get(ctx context.Context, pointer string) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ferrors.New(ferrors.KindCanceled, pointer, ctx.Err())
	default:
	}

	blob, err := os.ReadFile(filepath.Join(s.baseDir, filepath.FromSlash(pointer)))
	if err != nil {
		return nil, ferrors.New(ferrors.KindArtifactSinkUnavailable, pointer, err)
	}
	return blob, nil
}
