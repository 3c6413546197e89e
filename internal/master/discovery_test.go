package master

import (
	"context"
	"testing"

	"task-dispatch/internal/domain"
	"task-dispatch/internal/infra/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoveryApplyPut(t *testing.T) {
	reg := memory.NewWorkerRegistry()
	d := NewWorkerDiscovery(nil, reg, 0, discardLogger())
	ctx := context.Background()

	require.NoError(t, d.applyPut(ctx, domain.DiscoveryPrefix+"a", []byte(`{"id":"a","label":"A","url":"http://a:1/"}`)))
	require.NoError(t, d.applyPut(ctx, domain.DiscoveryPrefix+"from-key", []byte(`{"url":"http://b:2"}`)))

	workers, err := reg.List(ctx)
	require.NoError(t, err)
	require.Len(t, workers, 2)
	assert.Equal(t, "a", workers[0].ID)
	assert.Equal(t, "http://a:1", workers[0].Endpoint)
	assert.Equal(t, "from-key", workers[1].ID)
	assert.Equal(t, domain.DefaultWorkerLabel, workers[1].Label)
}

func TestDiscoveryApplyPutRejectsBadValues(t *testing.T) {
	reg := memory.NewWorkerRegistry()
	d := NewWorkerDiscovery(nil, reg, 0, discardLogger())
	ctx := context.Background()

	assert.Error(t, d.applyPut(ctx, domain.DiscoveryPrefix+"x", []byte("not json")))
	assert.ErrorIs(t, d.applyPut(ctx, domain.DiscoveryPrefix+"y", []byte(`{"url":"ftp://y"}`)), domain.ErrValidation)

	workers, err := reg.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, workers)
}
