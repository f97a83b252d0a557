package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillhq/quill/internal/log"
)

func TestSetup_DefaultAgentHost(t *testing.T) {
	cfg := Config{
		Environment: "test",
		ServiceName: "quill-test",
	}

	ctx := context.Background()
	shutdown := Setup(ctx, cfg, log.NewNop())
	require.NotNil(t, shutdown)

	assert.NoError(t, shutdown(ctx))
}

func TestSetup_CustomAgentHost(t *testing.T) {
	cfg := Config{
		AgentHost:   "agent.internal:4318",
		Environment: "staging",
		ServiceName: "quill",
	}

	ctx := context.Background()
	shutdown := Setup(ctx, cfg, log.NewNop())
	require.NotNil(t, shutdown)

	assert.NoError(t, shutdown(ctx))
}
