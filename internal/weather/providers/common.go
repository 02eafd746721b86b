package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultMaxBodyBytes bounds how much of a response body is read.
const DefaultMaxBodyBytes int64 = 1 << 20

// DefaultTimeout is used when the caller does not supply an HTTP client.
const DefaultTimeout = 10 * time.Second

// HTTPClientConfig bundles the outbound HTTP settings for a provider.
type HTTPClientConfig struct {
	Client       *http.Client
	MaxBodyBytes int64
}

var (
	errNoHTTPClient = errors.New("http client not configured")
	errBodyTooLarge = errors.New("response body too large")
)

// rawResponse is what came back over the wire, before any decoding.
type rawResponse struct {
	StatusCode int
	Body       []byte
}

// doRequest executes exactly one request. Any error returned is a transport
// error: the connection failed or the body could not be read in full.
func doRequest(ctx context.Context, cfg HTTPClientConfig, req *http.Request) (rawResponse, error) {
	if cfg.Client == nil {
		return rawResponse{}, errNoHTTPClient
	}

	resp, err := cfg.Client.Do(req.WithContext(ctx))
	if err != nil {
		return rawResponse{}, err
	}
	defer resp.Body.Close()

	limit := cfg.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return rawResponse{StatusCode: resp.StatusCode}, fmt.Errorf("read body: %w", err)
	}

	return rawResponse{StatusCode: resp.StatusCode, Body: body}, nil
}

// redactURL hides credentials in u before it is logged.
func redactURL(u *url.URL, secretParams ...string) string {
	c := *u
	q := c.Query()
	for _, p := range secretParams {
		if q.Has(p) {
			q.Set(p, "REDACTED")
		}
	}
	c.RawQuery = q.Encode()
	return c.String()
}
