package chat

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wayfarerhq/wayfarer/internal/ai"
	"github.com/wayfarerhq/wayfarer/internal/config"
	apperrors "github.com/wayfarerhq/wayfarer/internal/pkg/errors"
)

type scriptedGenerator struct {
	steps []func() (string, error)
	calls int
}

func (g *scriptedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	step := g.steps[len(g.steps)-1]
	if g.calls < len(g.steps) {
		step = g.steps[g.calls]
	}
	g.calls++
	return step()
}

func answer(text string) func() (string, error) {
	return func() (string, error) { return text, nil }
}

func apiFailure(status int) func() (string, error) {
	return func() (string, error) {
		return "", &ai.APIError{Provider: "stub", StatusCode: status, Body: "nope"}
	}
}

func timeoutFailure() func() (string, error) {
	return func() (string, error) {
		return "", fmt.Errorf("post chat completion: %w", context.DeadlineExceeded)
	}
}

func testCompletionConfig(maxRetries int) config.CompletionConfig {
	return config.CompletionConfig{
		TimeoutSeconds: 5,
		MaxRetries:     maxRetries,
		BackoffMillis:  1,
	}
}

func TestComplete_ReturnsTrimmedAnswer(t *testing.T) {
	gen := &scriptedGenerator{steps: []func() (string, error){answer("  Hanoi has plenty to offer.\n")}}
	c := NewCompletionClient(gen, testCompletionConfig(2))

	text, err := c.Complete(context.Background(), "prompt")
	require.NoError(t, err)
	require.Equal(t, "Hanoi has plenty to offer.", text)
	require.Equal(t, 1, gen.calls)
}

func TestComplete_RetriesTimeoutThenSucceeds(t *testing.T) {
	gen := &scriptedGenerator{steps: []func() (string, error){
		timeoutFailure(),
		answer("recovered"),
	}}
	c := NewCompletionClient(gen, testCompletionConfig(2))

	text, err := c.Complete(context.Background(), "prompt")
	require.NoError(t, err)
	require.Equal(t, "recovered", text)
	require.Equal(t, 2, gen.calls)
}

func TestComplete_RepeatedTimeoutBecomesUpstreamError(t *testing.T) {
	gen := &scriptedGenerator{steps: []func() (string, error){timeoutFailure()}}
	c := NewCompletionClient(gen, testCompletionConfig(1))

	_, err := c.Complete(context.Background(), "prompt")
	require.ErrorIs(t, err, apperrors.ErrUpstream)
	require.Equal(t, 2, gen.calls, "one initial attempt plus one retry")
}

func TestComplete_ServerErrorIsRetried(t *testing.T) {
	gen := &scriptedGenerator{steps: []func() (string, error){
		apiFailure(http.StatusBadGateway),
		answer("after retry"),
	}}
	c := NewCompletionClient(gen, testCompletionConfig(2))

	text, err := c.Complete(context.Background(), "prompt")
	require.NoError(t, err)
	require.Equal(t, "after retry", text)
	require.Equal(t, 2, gen.calls)
}

func TestComplete_RateLimitRetriedExactlyOnce(t *testing.T) {
	gen := &scriptedGenerator{steps: []func() (string, error){apiFailure(http.StatusTooManyRequests)}}
	c := NewCompletionClient(gen, testCompletionConfig(5))

	_, err := c.Complete(context.Background(), "prompt")
	require.ErrorIs(t, err, apperrors.ErrRateLimited)
	require.Equal(t, 2, gen.calls, "429 gets one extra attempt, never more")
}

func TestComplete_ClientErrorFailsImmediately(t *testing.T) {
	gen := &scriptedGenerator{steps: []func() (string, error){apiFailure(http.StatusBadRequest)}}
	c := NewCompletionClient(gen, testCompletionConfig(5))

	_, err := c.Complete(context.Background(), "prompt")
	require.ErrorIs(t, err, apperrors.ErrUpstream)
	require.Equal(t, 1, gen.calls)
}

func TestComplete_EmptyAnswerFailsImmediately(t *testing.T) {
	gen := &scriptedGenerator{steps: []func() (string, error){answer("   \n")}}
	c := NewCompletionClient(gen, testCompletionConfig(5))

	_, err := c.Complete(context.Background(), "prompt")
	require.ErrorIs(t, err, apperrors.ErrUpstream)
	require.Equal(t, 1, gen.calls)
}

func TestComplete_AppliesPerAttemptDeadline(t *testing.T) {
	var hadDeadline bool
	gen := &scriptedGenerator{steps: []func() (string, error){answer("ok")}}
	probe := &deadlineProbe{inner: gen, sawDeadline: &hadDeadline}
	c := NewCompletionClient(probe, testCompletionConfig(2))

	_, err := c.Complete(context.Background(), "prompt")
	require.NoError(t, err)
	require.True(t, hadDeadline)
}

type deadlineProbe struct {
	inner       ai.IGenerator
	sawDeadline *bool
}

func (p *deadlineProbe) Generate(ctx context.Context, prompt string) (string, error) {
	_, ok := ctx.Deadline()
	*p.sawDeadline = ok
	return p.inner.Generate(ctx, prompt)
}
