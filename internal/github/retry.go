package github

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"time"

	gh "github.com/google/go-github/v57/github"

	apperrors "github.com/talentgraph/talentgraph-go/internal/errors"
)

const (
	maxAttempts      = 3
	rateLimitSleep   = 60 * time.Second
	maxResetWait     = 15 * time.Minute
	baseBackoff      = 2 * time.Second
)

// do runs one API call through the limiter with the retry policy:
// rate-limit responses sleep until reset (capped) and retry once,
// transient failures back off exponentially with jitter up to three
// attempts, 404s map to the not-found kind, other client errors surface
// immediately.
func (c *Client) do(ctx context.Context, call func() (*gh.Response, error)) error {
	rateLimitRetried := false

	for attempt := 1; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return apperrors.Wrap(err, apperrors.KindFatal, "rate limiter")
		}

		resp, err := call()
		c.track(resp)
		if err == nil {
			return nil
		}

		var rateErr *gh.RateLimitError
		var abuseErr *gh.AbuseRateLimitError
		switch {
		case errors.As(err, &rateErr):
			if rateLimitRetried {
				return apperrors.RateLimited(err, "rate limit exhausted after retry")
			}
			rateLimitRetried = true
			wait := time.Until(rateErr.Rate.Reset.Time)
			if wait <= 0 || wait > maxResetWait {
				wait = rateLimitSleep
			}
			c.logger.Warn("rate limited, sleeping until reset", "wait", wait.String())
			if err := sleepCtx(ctx, wait); err != nil {
				return apperrors.Wrap(err, apperrors.KindFatal, "interrupted while rate limited")
			}

		case errors.As(err, &abuseErr):
			if rateLimitRetried {
				return apperrors.RateLimited(err, "secondary rate limit exhausted after retry")
			}
			rateLimitRetried = true
			wait := rateLimitSleep
			if abuseErr.RetryAfter != nil {
				wait = *abuseErr.RetryAfter
			}
			c.logger.Warn("secondary rate limit, backing off", "wait", wait.String())
			if err := sleepCtx(ctx, wait); err != nil {
				return apperrors.Wrap(err, apperrors.KindFatal, "interrupted while rate limited")
			}

		case isNotFound(resp):
			return apperrors.NotFoundf("resource not found")

		case isTransient(resp, err):
			if attempt >= maxAttempts {
				return apperrors.Transient(err, "transient failure, attempts exhausted")
			}
			wait := backoff(attempt)
			c.logger.Warn("transient failure, retrying",
				"attempt", attempt, "wait", wait.String(), "error", err)
			if err := sleepCtx(ctx, wait); err != nil {
				return apperrors.Wrap(err, apperrors.KindFatal, "interrupted during backoff")
			}

		default:
			return err
		}
	}
}

func isNotFound(resp *gh.Response) bool {
	return resp != nil && resp.StatusCode == http.StatusNotFound
}

func isTransient(resp *gh.Response, err error) bool {
	if resp != nil {
		return resp.StatusCode >= 500
	}
	// No response at all: timeout or connection reset.
	return err != nil
}

// backoff is exponential with full jitter.
func backoff(attempt int) time.Duration {
	ceiling := baseBackoff << (attempt - 1)
	return time.Duration(rand.Int63n(int64(ceiling))) + baseBackoff/2
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
