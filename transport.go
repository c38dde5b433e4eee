package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// Signer computes authentication material for one request before dispatch.
// It runs after the query is assembled and may extend both the query and the
// headers; body is the raw request body (nil for GET).
type Signer func(method, path string, query url.Values, body []byte, header http.Header) error

// Client is the thin HTTP wrapper shared by the REST adapters. It owns the
// timeout policy, runs the adapter's Signer before dispatch, and classifies
// outcomes into the shared error taxonomy.
//
// Limiter, when set, is waited on before every request. This is the place to
// hang a per-broker rate-limit policy without touching adapter logic.
type Client struct {
	BaseURL string
	Sign    Signer
	Limiter *rate.Limiter
	HTTP    *http.Client
}

// NewClient returns a client with the shared defaults: 10s request timeout,
// 5s dial timeout.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTP: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
			},
		},
	}
}

// GetJSON performs a signed GET request and unmarshals the JSON response into out.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

// PostJSON performs a signed POST request with a JSON payload and unmarshals
// the JSON response into out.
func (c *Client) PostJSON(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("cannot marshal payload for %s: %w", path, err)
	}
	return c.do(ctx, http.MethodPost, path, nil, body, out)
}

// PostForm performs a signed POST request whose parameters travel in the
// query string, the convention for exchange SAPI endpoints.
func (c *Client) PostForm(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodPost, path, query, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte, out any) error {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%s %s: waiting for rate limit: %w", method, path, ErrTransient)
		}
	}
	if query == nil {
		query = url.Values{}
	}
	header := make(http.Header)
	if body != nil {
		header.Set("Content-Type", "application/json")
	}
	if c.Sign != nil {
		if err := c.Sign(method, path, query, body, header); err != nil {
			return fmt.Errorf("%s %s: signing request: %w", method, path, err)
		}
	}

	addr := c.BaseURL + path
	if enc := query.Encode(); enc != "" {
		addr += "?" + enc
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, addr, reader)
	if err != nil {
		return fmt.Errorf("cannot build request %s %s: %w", method, path, err)
	}
	req.Header = header

	resp, err := c.HTTP.Do(req)
	if err != nil {
		// Timeouts, cancellation and dial failures all land here.
		return fmt.Errorf("%s %s: %v: %w", method, path, err, ErrTransient)
	}
	defer resp.Body.Close()
	// The query is never logged, it can carry signatures.
	log.Printf("%s %s%s %s", method, c.BaseURL, path, resp.Status)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: reading response: %v: %w", method, path, err, ErrTransient)
	}
	if err := classifyStatus(resp.StatusCode); err != nil {
		return fmt.Errorf("%s %s: %s: %w", method, path, resp.Status, err)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s %s: decoding %q: %v: %w", method, path, snippet(raw), err, ErrProtocol)
	}
	return nil
}

func classifyStatus(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return ErrAuth
	case code == http.StatusTooManyRequests:
		return ErrRateLimited
	case code == http.StatusRequestTimeout || code >= 500:
		return ErrTransient
	default:
		return ErrProtocol
	}
}

// Redact shortens secret material (keys, tokens) for log output.
func Redact(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + "****"
}
