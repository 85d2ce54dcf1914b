package chat

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/wayfarerhq/wayfarer/internal/ai"
	"github.com/wayfarerhq/wayfarer/internal/config"
	apperrors "github.com/wayfarerhq/wayfarer/internal/pkg/errors"
)

// CompletionClient runs the generative call with a per-attempt timeout
// and a small retry budget. Timeouts and 5xx answers are retried with
// exponential backoff; 429 gets exactly one extra attempt before
// surfacing as rate-limited; other 4xx and empty answers fail at once.
type CompletionClient struct {
	generator  ai.IGenerator
	timeout    time.Duration
	maxRetries uint64
	backoff    time.Duration
}

func NewCompletionClient(gen ai.IGenerator, cfg config.CompletionConfig) *CompletionClient {
	return &CompletionClient{
		generator:  gen,
		timeout:    time.Duration(cfg.TimeoutSeconds) * time.Second,
		maxRetries: uint64(cfg.MaxRetries),
		backoff:    time.Duration(cfg.BackoffMillis) * time.Millisecond,
	}
}

func (c *CompletionClient) Complete(ctx context.Context, prompt string) (string, error) {
	var answer string
	rateLimitRetries := 0

	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(c.backoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attemptCtx := ctx
		if c.timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, c.timeout)
			defer cancel()
		}
		text, err := c.generator.Generate(attemptCtx, prompt)
		if err != nil {
			return c.classify(err, &rateLimitRetries)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return fmt.Errorf("%w: model returned empty text", apperrors.ErrUpstream)
		}
		answer = text
		return nil
	})
	if err != nil {
		return "", finalizeCompletionErr(err)
	}
	return answer, nil
}

func (c *CompletionClient) classify(err error, rateLimitRetries *int) error {
	if apiErr, ok := ai.AsAPIError(err); ok {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests:
			if *rateLimitRetries >= 1 {
				return fmt.Errorf("%w: %v", apperrors.ErrRateLimited, err)
			}
			*rateLimitRetries++
			return retry.RetryableError(err)
		case apiErr.StatusCode >= http.StatusInternalServerError:
			return retry.RetryableError(err)
		default:
			return fmt.Errorf("%w: %v", apperrors.ErrUpstream, err)
		}
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.As(err, &netErr) {
		return retry.RetryableError(err)
	}
	return fmt.Errorf("%w: %v", apperrors.ErrUpstream, err)
}

func finalizeCompletionErr(err error) error {
	if errors.Is(err, apperrors.ErrUpstream) || errors.Is(err, apperrors.ErrRateLimited) {
		return err
	}
	if apiErr, ok := ai.AsAPIError(err); ok && apiErr.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %v", apperrors.ErrRateLimited, err)
	}
	return fmt.Errorf("%w: %v", apperrors.ErrUpstream, err)
}
