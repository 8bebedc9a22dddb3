// Package external holds the outbound HTTP client used for third-party
// deliveries (the Telegram Bot API). Every call goes through BaseClient so
// the same circuit breaking, retry, correlation, and error-mapping rules
// apply to any provider added later.
package external

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/sony/gobreaker/v2"

	"frostwatch/internal/types"
)

// RetryPolicy bounds the retry behavior: how many re-attempts after the
// first try, and the backoff window between them.
type RetryPolicy struct {
	MaxRetries int
	MinWait    time.Duration
	MaxWait    time.Duration
}

// DefaultRetryPolicy is the policy the workers run with.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		MinWait:    500 * time.Millisecond,
		MaxWait:    10 * time.Second,
	}
}

// statusError marks a response whose status counts as an upstream failure.
// The breaker sees it as an error; the retry loop reads the code back out
// when deciding how to wait and how to map the final failure.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("upstream returned %d", e.code)
}

// BaseClient executes outbound requests under a shared resilience contract:
// correlation ID and User-Agent injection, a circuit breaker over the
// transport, bounded retries on 429/5xx with body replay, and translation of
// terminal failures into the upstream_* error codes.
type BaseClient struct {
	client      *http.Client
	breaker     *gobreaker.CircuitBreaker[*http.Response]
	retryPolicy RetryPolicy
	userAgent   string
	sleepFn     func(time.Duration)
}

// BaseClientOption customizes a BaseClient at construction.
type BaseClientOption func(*BaseClient)

// WithSleepFunc replaces the inter-retry sleep. Tests use it to observe
// backoff decisions without waiting them out.
func WithSleepFunc(fn func(time.Duration)) BaseClientOption {
	return func(c *BaseClient) {
		c.sleepFn = fn
	}
}

// NewBaseClient builds a BaseClient around the given http.Client. The
// breaker opens after more than five consecutive failures and probes again
// after 30 seconds.
func NewBaseClient(
	httpClient *http.Client,
	breakerName string,
	retryPolicy RetryPolicy,
	userAgent string,
	opts ...BaseClientOption,
) *BaseClient {
	settings := gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
	}
	settings.ReadyToTrip = func(counts gobreaker.Counts) bool {
		return counts.ConsecutiveFailures > 5
	}
	settings.IsSuccessful = func(err error) bool { return err == nil }

	c := &BaseClient{
		client:      httpClient,
		breaker:     gobreaker.NewCircuitBreaker[*http.Response](settings),
		retryPolicy: retryPolicy,
		userAgent:   userAgent,
		sleepFn:     time.Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do sends the request, retrying on 429 and 5xx up to the policy limit.
// Responses with any other status are handed back untouched; the caller owns
// the body. The request body is buffered once so each attempt replays the
// same payload. An open breaker ends the attempt loop immediately.
func (c *BaseClient) Do(req *http.Request) (*http.Response, error) {
	if traceID := types.GetRequestID(req.Context()); traceID != "" {
		req.Header.Set("X-Request-ID", traceID)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	payload, err := bufferBody(req)
	if err != nil {
		return nil, err
	}

	attempts := 1 + c.retryPolicy.MaxRetries
	var lastResp *http.Response
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		if payload != nil {
			req.Body = io.NopCloser(bytes.NewReader(payload))
			req.ContentLength = int64(len(payload))
		}

		resp, err := c.send(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		final := attempt == attempts-1
		if resp != nil {
			if final {
				lastResp = resp
			} else {
				resp.Body.Close()
			}
		}
		if breakerRejected(err) {
			break
		}
		if !final {
			c.sleepFn(c.computeBackoff(attempt, resp))
		}
	}

	if lastResp != nil {
		lastResp.Body.Close()
	}
	return nil, c.mapError(lastResp, lastErr)
}

// send runs one attempt through the breaker. A 5xx or 429 status is reported
// as a failure so the breaker counts it, with the response still returned for
// backoff and mapping decisions.
func (c *BaseClient) send(req *http.Request) (*http.Response, error) {
	return c.breaker.Execute(func() (*http.Response, error) {
		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return resp, &statusError{code: resp.StatusCode}
		}
		return resp, nil
	})
}

// bufferBody drains and returns the request body so retries can replay it.
func bufferBody(req *http.Request) ([]byte, error) {
	if req.Body == nil {
		return nil, nil
	}
	payload, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return nil, types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to buffer request body for retries",
			err,
		)
	}
	return payload, nil
}

func breakerRejected(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// computeBackoff picks the wait before the next attempt. A parseable
// Retry-After header wins, clamped to MaxWait; otherwise exponential growth
// from MinWait with full jitter, never above MaxWait.
func (c *BaseClient) computeBackoff(attempt int, resp *http.Response) time.Duration {
	if resp != nil {
		if wait, ok := retryAfterWait(resp.Header.Get("Retry-After"), c.retryPolicy); ok {
			return wait
		}
	}

	ceiling := float64(c.retryPolicy.MinWait) * math.Pow(2, float64(attempt))
	if limit := float64(c.retryPolicy.MaxWait); ceiling > limit {
		ceiling = limit
	}
	floor := float64(c.retryPolicy.MinWait)
	if ceiling <= floor {
		return c.retryPolicy.MinWait
	}
	return time.Duration(floor + rand.Float64()*(ceiling-floor))
}

// retryAfterWait interprets a Retry-After value, either delta-seconds or an
// HTTP date, clamped to the policy window.
func retryAfterWait(header string, policy RetryPolicy) (time.Duration, bool) {
	if header == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(header); err == nil && seconds > 0 {
		wait := time.Duration(seconds) * time.Second
		if wait > policy.MaxWait {
			wait = policy.MaxWait
		}
		return wait, true
	}
	if at, err := http.ParseTime(header); err == nil {
		wait := time.Until(at)
		if wait <= 0 {
			return policy.MinWait, true
		}
		if wait > policy.MaxWait {
			wait = policy.MaxWait
		}
		return wait, true
	}
	return 0, false
}

// mapError turns the terminal failure into an AppError: breaker rejections
// and 429s surface as rate limiting, everything else as upstream
// unavailability. Non-HTTP failures (DNS, connection reset) fall through to
// the generic case.
func (c *BaseClient) mapError(resp *http.Response, err error) *types.AppError {
	if breakerRejected(err) {
		return types.NewAppError(
			types.ErrCodeUpstreamRateLimit,
			"circuit breaker is open; upstream service unavailable",
			err,
		)
	}

	if resp != nil {
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return types.NewAppError(
				types.ErrCodeUpstreamRateLimit,
				"upstream rate limit exceeded",
				err,
			)
		case resp.StatusCode >= 500:
			return types.NewAppError(
				types.ErrCodeUpstreamUnavailable,
				fmt.Sprintf("upstream returned %d after retries", resp.StatusCode),
				err,
			)
		}
	}

	return types.NewAppError(
		types.ErrCodeUpstreamUnavailable,
		"upstream request failed",
		err,
	)
}
