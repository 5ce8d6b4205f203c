package geocode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// searchError is a non-2xx answer from the geocoding API.
type searchError struct {
	Status int
	Body   string
}

func (e *searchError) Error() string {
	return fmt.Sprintf("geocode search returned %d: %s", e.Status, e.Body)
}

// transient reports whether a failed search is worth repeating: rate limits,
// gateway and server failures, and network errors.
func (e *searchError) transient() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= http.StatusInternalServerError
}

func (g *ORSGeocoder) searchURL(text string) string {
	q := url.Values{}
	q.Set("text", text)
	if g.country != "" {
		q.Set("boundary.country", g.country)
	}
	q.Set("size", "1")
	return g.baseURL + "/geocode/search?" + q.Encode()
}

// searchOnce issues a single search. Error bodies are truncated to 4 KiB.
func (g *ORSGeocoder) searchOnce(ctx context.Context, text string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.searchURL(text), nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Authorization", g.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := g.session.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		resp.Body.Close()
		return nil, &searchError{Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	return resp, nil
}

// search runs searchOnce up to maxAttempts times, doubling the wait after
// each transient failure. Cancelling ctx stops the wait.
func (g *ORSGeocoder) search(ctx context.Context, text string) (*http.Response, error) {
	wait := g.backoff

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := g.searchOnce(ctx, text)
		if err == nil {
			return resp, nil
		}
		if !shouldRetry(err) || attempt >= g.maxAttempts {
			return nil, err
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		wait *= 2
	}
}

func shouldRetry(err error) bool {
	var se *searchError
	if errors.As(err, &se) {
		return se.transient()
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
