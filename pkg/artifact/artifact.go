// Package artifact defines the ArtifactSink capability: opaque blob storage
// for prompts, raw outputs, and thinking traces, referenced by pointer from
// Invocations.
package artifact

import "context"

// Sink persists opaque blobs and hands back a pointer the core stores
// alongside an Invocation. Blob content is opaque to the core; it must
// tolerate concurrent writers (append-only from the core's perspective).
type Sink interface {
	Put(ctx context.Context, key string, blob []byte) (pointer string, err error)
	Get(ctx context.Context, pointer string) (blob []byte, err error)
}
