package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckAll_AllHealthy(t *testing.T) {
	reg := NewRegistry()
	reg.Register("dataset", func(ctx context.Context) error { return nil })
	reg.Register("database", func(ctx context.Context) error { return nil })

	healthy, statuses := reg.CheckAll(context.Background())
	assert.True(t, healthy)
	require.Len(t, statuses, 2)
	assert.Equal(t, "dataset", statuses[0].Name)
	assert.True(t, statuses[0].Healthy)
	assert.Empty(t, statuses[0].Detail)
}

func TestCheckAll_FailureCarriesDetail(t *testing.T) {
	reg := NewRegistry()
	reg.Register("dataset", func(ctx context.Context) error { return nil })
	reg.Register("database", func(ctx context.Context) error {
		return errors.New("connection refused")
	})

	healthy, statuses := reg.CheckAll(context.Background())
	assert.False(t, healthy)
	require.Len(t, statuses, 2)
	assert.True(t, statuses[0].Healthy)
	assert.False(t, statuses[1].Healthy)
	assert.Equal(t, "connection refused", statuses[1].Detail)
}

func TestCheckAll_Empty(t *testing.T) {
	healthy, statuses := NewRegistry().CheckAll(context.Background())
	assert.True(t, healthy)
	assert.Empty(t, statuses)
}
