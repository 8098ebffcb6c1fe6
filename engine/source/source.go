// Package source defines the adapter contract every upstream integration
// implements, plus the shared HTTP fetch helper the adapters use.
//
// An adapter owns everything about one upstream: transport, parsing,
// normalization into domain.Producer, and its own TTL cache. Upstream
// failures are contained inside the adapter at the smallest unit that can
// substitute an empty result (one region, one page, the whole source) and
// never propagate as errors for independent work.
package source

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/andyarntsen-alt/kortreist/engine/domain"
	"github.com/andyarntsen-alt/kortreist/pkg/fn"
)

// UserAgent identifies outbound requests to the upstream sites.
const UserAgent = "KortreistMat/1.0 (https://kortreistmat.no)"

// maxBodySize caps upstream response bodies.
const maxBodySize = 8 * 1024 * 1024

// Adapter fetches one upstream and returns normalized producers.
type Adapter interface {
	// Name returns the source identifier used in IDs and per-source counts.
	Name() domain.Source
	// Fetch returns the normalized producer list. Implementations serve
	// from their own cache when fresh and recover partial upstream
	// failures internally; a returned error means the whole source
	// produced nothing.
	Fetch(ctx context.Context) ([]domain.Producer, error)
}

// Get issues a GET with the shared user agent and returns the body, treating
// any non-2xx status as an error.
func Get(ctx context.Context, client *http.Client, url string, headers map[string]string) fn.Result[[]byte] {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fn.Err[[]byte](err)
	}
	req.Header.Set("User-Agent", UserAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return do(client, req)
}

// PostForm issues a POST with a form-encoded body.
func PostForm(ctx context.Context, client *http.Client, url, body string) fn.Result[[]byte] {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		return fn.Err[[]byte](err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return do(client, req)
}

func do(client *http.Client, req *http.Request) fn.Result[[]byte] {
	resp, err := client.Do(req)
	if err != nil {
		return fn.Err[[]byte](err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fn.Errf[[]byte]("%s: status %d", req.URL.Host, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fn.Err[[]byte](err)
	}
	return fn.Ok(body)
}
