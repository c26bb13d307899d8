package fsartifact_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turbowrap/turbowrap/pkg/artifact/fsartifact"
)

func TestPutGet_RoundTrips(t *testing.T) {
	sink, err := fsartifact.New(t.TempDir())
	require.NoError(t, err)

	ptr, err := sink.Put(context.Background(), "prompt", []byte("hello world"))
	require.NoError(t, err)

	got, err := sink.Get(context.Background(), ptr)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(got))
}

func TestPut_SameContentSamePointer(t *testing.T) {
	sink, err := fsartifact.New(t.TempDir())
	require.NoError(t, err)

	p1, err := sink.Put(context.Background(), "output", []byte("same"))
	require.NoError(t, err)
	p2, err := sink.Put(context.Background(), "output", []byte("same"))
	require.NoError(t, err)

	assert.Equal(t, p1, p2)
}

func TestGet_UnknownPointer(t *testing.T) {
	sink, err := fsartifact.New(t.TempDir())
	require.NoError(t, err)

	_, err = sink.Get(context.Background(), "output/deadbeef")
	assert.Error(t, err)
}

func TestPut_CanceledContext(t *testing.T) {
	sink, err := fsartifact.New(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = sink.Put(ctx, "prompt", []byte("x"))
	assert.Error(t, err)
}
