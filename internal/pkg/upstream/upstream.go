/*
Package upstream wraps outbound HTTP calls to third-party collaborators in a circuit breaker.

Every collaborator (weather, hot search, news, chatbot) owns one Client. Consecutive failures
open the breaker so a dead upstream is answered immediately instead of tying up a connection
for the full request timeout.
*/
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"floritechat/internal/pkg/logx"
	"floritechat/internal/pkg/metrics"
)

const (
	// DefaultUserAgent is sent when the caller does not set one.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// maxBodyBytes caps how much of a response body is read into memory.
	maxBodyBytes = 16 << 20

	consecutiveFailuresToTrip = 5
	openStateTimeout          = 30 * time.Second
)

// ErrOpen is returned while the breaker rejects calls.
var ErrOpen = gobreaker.ErrOpenState

// StatusError reports a non-2xx upstream response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream %s returned status %d", e.URL, e.StatusCode)
}

// Client is an http.Client guarded by a named circuit breaker.
type Client struct {
	name    string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  zerolog.Logger
}

// New builds a Client. timeout bounds every request, zero means no client-side timeout
// (used by streaming calls that are bounded by their context instead).
func New(name string, timeout time.Duration) *Client {
	logger := logx.For("upstream").With().Str("upstream", name).Logger()

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     openStateTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= consecutiveFailuresToTrip
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.UpstreamBreakerState.WithLabelValues(name).Set(float64(to))
			logger.Warn().
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Upstream circuit breaker changed state")
		},
	}

	metrics.UpstreamBreakerState.WithLabelValues(name).Set(float64(gobreaker.StateClosed))

	return &Client{
		name:    name,
		http:    &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
	}
}

// Name returns the upstream name used in logs and error messages.
func (c *Client) Name() string {
	return c.name
}

// Get fetches url with the given headers and returns the whole body.
func (c *Client) Get(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		applyHeaders(req, headers)

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
			return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		return body, nil
	})
	if err != nil {
		c.logger.Warn().Err(err).Str("url", url).Msg("Upstream GET failed")
		return nil, err
	}

	return result.([]byte), nil
}

// Open sends req through the breaker and hands back the live response for streaming.
// Only the status of the initial response counts toward the breaker; the caller must
// close the body.
func (c *Client) Open(req *http.Request) (*http.Response, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		if req.Header.Get("User-Agent") == "" {
			req.Header.Set("User-Agent", DefaultUserAgent)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
			resp.Body.Close()
			return nil, &StatusError{URL: req.URL.String(), StatusCode: resp.StatusCode}
		}
		return resp, nil
	})
	if err != nil {
		c.logger.Warn().Err(err).Str("url", req.URL.String()).Msg("Upstream request failed")
		return nil, err
	}

	return result.(*http.Response), nil
}

func applyHeaders(req *http.Request, headers map[string]string) {
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", DefaultUserAgent)
	}
}
