package llm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphmind-ai/graphmind/pkg/llm"
)

type flakyClient struct {
	failures int
	calls    int
}

func (c *flakyClient) Chat(ctx context.Context, messages []llm.Message) (*llm.Response, error) {
	c.calls++
	if c.calls <= c.failures {
		return nil, errors.New("backend error")
	}
	return &llm.Response{Content: "ok"}, nil
}

func (c *flakyClient) Close() error { return nil }

func TestBreakerPassesThroughSuccess(t *testing.T) {
	inner := &flakyClient{}
	client := llm.NewBreakerClient(inner)

	resp, err := client.Chat(context.Background(), []llm.Message{llm.NewUserMessage("hi")})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	inner := &flakyClient{failures: 100}
	client := llm.NewBreakerClient(inner)

	for i := 0; i < 5; i++ {
		_, err := client.Chat(context.Background(), []llm.Message{llm.NewUserMessage("hi")})
		require.Error(t, err)
	}

	callsBefore := inner.calls
	_, err := client.Chat(context.Background(), []llm.Message{llm.NewUserMessage("hi")})
	require.Error(t, err)
	assert.Equal(t, callsBefore, inner.calls, "an open breaker should fail fast without calling the backend")
}
