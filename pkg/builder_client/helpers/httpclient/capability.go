package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultTimeout  = 10 * time.Second
	defaultMaxBytes = 10 << 20
	fhirJSON        = "application/fhir+json"
)

// FetchErrorKind classifies why the upstream document could not be fetched.
type FetchErrorKind string

const (
	KindInvalidURL  FetchErrorKind = "invalid_url"
	KindNotFound    FetchErrorKind = "not_found"
	KindUnreachable FetchErrorKind = "unreachable"
	KindOther       FetchErrorKind = "other"
)

// UpstreamFetchError is returned for every failure to obtain the
// CapabilityStatement from the remote server.
type UpstreamFetchError struct {
	Kind   FetchErrorKind
	URL    string
	Status int
	Err    error
}

func (e *UpstreamFetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: %s (status %d)", e.URL, e.Kind, e.Status)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
}

func (e *UpstreamFetchError) Unwrap() error { return e.Err }

// Client haalt CapabilityStatements op bij FHIR servers.
type Client struct {
	http     *http.Client
	timeout  time.Duration
	maxBytes int64
}

// NewClient returns a client whose fetches are bounded by timeout.
// A zero timeout falls back to DefaultTimeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		http:     &http.Client{},
		timeout:  timeout,
		maxBytes: defaultMaxBytes,
	}
}

// WithHTTPClient replaces the underlying transport client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.http = hc
	return c
}

// FetchCapabilityStatement GETs rawURL and returns the response body. The
// document is fetched fresh on every call.
func (c *Client) FetchCapabilityStatement(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		if err == nil {
			err = errors.New("url must be absolute http(s)")
		}
		return nil, &UpstreamFetchError{Kind: KindInvalidURL, URL: rawURL, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, &UpstreamFetchError{Kind: KindInvalidURL, URL: rawURL, Err: err}
	}
	req.Header.Set("Accept", fhirJSON+", application/json;q=0.9")

	resp, err := c.http.Do(req)
	if err != nil {
		// transport errors (dns, refused, timeout) are all "try again later"
		return nil, &UpstreamFetchError{Kind: KindUnreachable, URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, &UpstreamFetchError{Kind: KindNotFound, URL: rawURL, Status: resp.StatusCode}
	case resp.StatusCode == http.StatusBadGateway ||
		resp.StatusCode == http.StatusServiceUnavailable ||
		resp.StatusCode == http.StatusGatewayTimeout:
		return nil, &UpstreamFetchError{Kind: KindUnreachable, URL: rawURL, Status: resp.StatusCode}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, &UpstreamFetchError{Kind: KindOther, URL: rawURL, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, &UpstreamFetchError{Kind: KindUnreachable, URL: rawURL, Err: err}
	}
	if int64(len(body)) > c.maxBytes {
		return nil, &UpstreamFetchError{Kind: KindOther, URL: rawURL, Err: fmt.Errorf("document exceeds %d bytes", c.maxBytes)}
	}
	return body, nil
}
