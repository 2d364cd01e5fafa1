package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_DisabledWithoutEndpoint(t *testing.T) {
	shutdown, err := Setup(context.Background(), DefaultConfig("conduit", ""), nil)
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetup_RejectsSampleRatio(t *testing.T) {
	cfg := DefaultConfig("conduit", "127.0.0.1:4318")
	cfg.SampleRatio = 2
	_, err := Setup(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestStop(t *testing.T) {
	assert.NoError(t, Stop(nil, nil))

	boom := errors.New("boom")
	assert.ErrorIs(t, Stop(func(context.Context) error { return boom }, nil), boom)
}
