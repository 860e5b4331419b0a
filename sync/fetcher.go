// ABOUTME: Server lead list fetching over HTTP with bearer-token auth
// ABOUTME: RetryFetcher adds exponential backoff around any Fetcher
package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/harperreed/leadsync/models"
)

// ErrNoServerURL is returned when no lead server is configured.
var ErrNoServerURL = errors.New("no lead server URL configured")

// ErrMalformedPayload wraps responses that could not be decoded as leads.
var ErrMalformedPayload = errors.New("malformed lead payload")

const (
	fetchTimeout     = 30 * time.Second
	maxPayloadBytes  = 32 << 20
	retryMaxElapsed  = 30 * time.Second
	retryInitialWait = 500 * time.Millisecond
)

// Fetcher returns the server's current lead list.
type Fetcher interface {
	FetchLeads(ctx context.Context) ([]models.Lead, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context) ([]models.Lead, error)

func (f FetcherFunc) FetchLeads(ctx context.Context) ([]models.Lead, error) {
	return f(ctx)
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("lead server returned %s", e.Status)
}

// Permanent reports whether retrying cannot help.
func (e *StatusError) Permanent() bool {
	return e.Code >= 400 && e.Code < 500 && e.Code != http.StatusTooManyRequests
}

type HTTPFetcher struct {
	URL    string
	Client *http.Client
}

// NewHTTPFetcher builds a fetcher for url. A non-empty token is sent as a
// bearer token on every request.
func NewHTTPFetcher(ctx context.Context, url string, token *oauth2.Token) (*HTTPFetcher, error) {
	if url == "" {
		return nil, ErrNoServerURL
	}

	client := &http.Client{}
	if token != nil && token.AccessToken != "" {
		client = oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
	}
	client.Timeout = fetchTimeout

	return &HTTPFetcher{URL: url, Client: client}, nil
}

func (f *HTTPFetcher) FetchLeads(ctx context.Context) ([]models.Lead, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build lead request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lead request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read lead response: %w", err)
	}

	leads, err := models.DecodeLeads(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	return leads, nil
}

// RetryFetcher retries transient failures of Inner with exponential backoff.
type RetryFetcher struct {
	Inner  Fetcher
	Logger *zap.Logger
	// NewBackOff returns a fresh policy per fetch. Defaults to exponential
	// backoff capped at 30 seconds total.
	NewBackOff func() backoff.BackOff
}

func NewRetryFetcher(inner Fetcher, logger *zap.Logger) *RetryFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetryFetcher{Inner: inner, Logger: logger, NewBackOff: defaultBackOff}
}

func defaultBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = retryInitialWait
	bo.MaxElapsedTime = retryMaxElapsed
	return bo
}

func (f *RetryFetcher) FetchLeads(ctx context.Context) ([]models.Lead, error) {
	newBackOff := f.NewBackOff
	if newBackOff == nil {
		newBackOff = defaultBackOff
	}

	var leads []models.Lead
	op := func() error {
		result, err := f.Inner.FetchLeads(ctx)
		if err != nil {
			if isPermanentFetchError(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		leads = result
		return nil
	}

	notify := func(err error, wait time.Duration) {
		if f.Logger != nil {
			f.Logger.Warn("lead fetch failed, retrying", zap.Error(err), zap.Duration("wait", wait))
		}
	}

	if err := backoff.RetryNotify(op, backoff.WithContext(newBackOff(), ctx), notify); err != nil {
		return nil, err
	}
	return leads, nil
}

func isPermanentFetchError(err error) bool {
	if errors.Is(err, ErrMalformedPayload) || errors.Is(err, ErrNoServerURL) {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Permanent()
	}
	return false
}
