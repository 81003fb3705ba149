// File: internal/probes/probe.go
// Description: Leaf vulnerability checks. A probe sends crafted requests to a
// target and decides, from the responses alone, whether a specific
// vulnerability class is present.
package probes

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"golang.org/x/time/rate"

	"github.com/obsidiansec/bountyhound/api/schemas"
	"github.com/obsidiansec/bountyhound/internal/network"
)

// SourceName identifies findings produced by the built-in probe bundles.
const SourceName = "signature"

// maxBodyBytes caps how much of a response body a probe will read.
const maxBodyBytes = 512 * 1024

// Probe is a single stateless vulnerability check. Run tries every payload it
// knows against the target and returns the findings it could confirm plus one
// ProbeError per failed attempt. A failed attempt never aborts the rest of the
// probe's loop.
type Probe interface {
	Name() string
	Class() schemas.VulnClass
	Run(ctx context.Context, target schemas.Target) ([]schemas.Finding, []ProbeError)
}

// ProbeError records one failed payload attempt. It is always recovered
// locally: the probe logs it, keeps going, and the coordinator partitions it
// away from the findings.
type ProbeError struct {
	Probe   string
	URL     string
	Payload string
	Err     error
}

func (e ProbeError) Error() string {
	return fmt.Sprintf("probe %s: payload %q against %s: %v", e.Probe, e.Payload, e.URL, e.Err)
}

func (e ProbeError) Unwrap() error { return e.Err }

// defaultParams are the query parameters probed when the target URL carries
// none of its own.
var defaultParams = []string{"q", "id", "search", "page"}

// candidateParams returns the query parameters to inject into for a target:
// the URL's own parameters when present, the generic fallbacks otherwise.
func candidateParams(rawURL string) []string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return defaultParams
	}
	q := u.Query()
	if len(q) == 0 {
		return defaultParams
	}
	params := make([]string, 0, len(q))
	for name := range q {
		params = append(params, name)
	}
	return params
}

// injectPayload sets or replaces one query parameter of the URL with the
// payload.
func injectPayload(rawURL, param, payload string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	q := u.Query()
	q.Set(param, payload)
	u.RawQuery = q.Encode()
	return u.String(), true
}

// fetcher bundles the shared HTTP client and rate limiter every probe uses.
// The limiter paces all probe traffic of a scan so deep profiles do not
// hammer the target.
type fetcher struct {
	client  *network.Client
	limiter *rate.Limiter
}

// get performs one paced GET and returns the (truncated) body, status code
// and headers. The caller's context bounds both the limiter wait and the
// request itself.
func (f fetcher) get(ctx context.Context, rawURL string) (string, int, http.Header, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return "", 0, nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", 0, nil, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", resp.StatusCode, resp.Header, err
	}
	return string(body), resp.StatusCode, resp.Header, nil
}
