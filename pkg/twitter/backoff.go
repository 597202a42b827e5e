package twitter

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/NethermindEth/locktwitter/pkg/debug"
	"github.com/cenkalti/backoff/v4"
)

type retryableStatusError struct {
	StatusCode int
}

func (e *retryableStatusError) Error() string {
	return fmt.Sprintf("twitter API error: status code %d", e.StatusCode)
}

func (c *ReverseAuthClient) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initialBackoff
	b.MaxInterval = c.maxBackoff
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, c.maxRetries), ctx)
}

// doRequest executes the request produced by build, retrying on 429 and 5xx responses and on
// transport errors. build is called once per attempt so request bodies are never reused.
// Context errors are returned unwrapped.
func (c *ReverseAuthClient) doRequest(ctx context.Context, client *http.Client, build func(ctx context.Context) (*http.Request, error)) (*http.Response, error) {
	var resp *http.Response

	operation := func() error {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return backoff.Permanent(fmt.Errorf("rate limiter: %w", err))
		}

		req, err := build(ctx)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("create request: %w", err))
		}

		if debug.IsDebugShowRequests() {
			c.logger.Debug("twitter request", "method", req.Method, "url", req.URL.String())
		}

		r, err := client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}

		if r.StatusCode != http.StatusTooManyRequests && r.StatusCode < http.StatusInternalServerError {
			resp = r
			return nil
		}

		io.Copy(io.Discard, r.Body)
		r.Body.Close()

		if r.StatusCode == http.StatusTooManyRequests {
			if err := c.waitForRateLimitReset(ctx, r.Header); err != nil {
				return backoff.Permanent(err)
			}
		}

		return &retryableStatusError{StatusCode: r.StatusCode}
	}

	notify := func(err error, next time.Duration) {
		c.logger.Warn("retrying twitter request", "error", err, "backoff", next)
	}

	if err := backoff.RetryNotify(operation, c.newBackOff(ctx), notify); err != nil {
		return nil, err
	}

	return resp, nil
}

// waitForRateLimitReset sleeps until the time announced in x-rate-limit-reset, capped at the
// configured maximum backoff.
func (c *ReverseAuthClient) waitForRateLimitReset(ctx context.Context, header http.Header) error {
	resetStr := header.Get("x-rate-limit-reset")
	if resetStr == "" {
		return nil
	}
	resetTime, err := strconv.ParseInt(resetStr, 10, 64)
	if err != nil {
		return nil
	}

	waitTime := time.Until(time.Unix(resetTime, 0))
	if waitTime <= 0 {
		return nil
	}
	if waitTime > c.maxBackoff {
		waitTime = c.maxBackoff
	}

	timer := time.NewTimer(waitTime)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
