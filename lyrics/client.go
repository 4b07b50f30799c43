package lyrics

import (
	"context"
	"fmt"
	"io"
	"net/http"

	log "github.com/sirupsen/logrus"

	"lyricsd/schema"
)

// Desktop browser headers; some lyric sites reject default Go clients.
const browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

const maxBodyBytes = 4 << 20

// NewHTTPClient returns the client shared by all sources. It sets no timeout of its
// own; each call is bounded by the resolver's per-source context deadline.
func NewHTTPClient() *http.Client {
	return &http.Client{}
}

// statusError is returned for non-2xx responses.
type statusError struct {
	Code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("HTTP %d", e.Code)
}

func (e *statusError) Unwrap() error {
	if e.Code == http.StatusNotFound {
		return ErrNotFound
	}
	return ErrUpstreamUnavailable
}

// get issues a GET and returns the open response for a 2xx status.
// The caller closes the body.
func get(ctx context.Context, client *http.Client, url string, header http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	log.Tracef("GET %s", url)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		resp.Body.Close()
		return nil, &statusError{Code: resp.StatusCode}
	}
	return resp, nil
}

// getJSON fetches url and decodes a validated JSON body into v.
func getJSON(ctx context.Context, client *http.Client, url string, header http.Header, v any) error {
	resp, err := get(ctx, client, url, header)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return schema.Decode(io.LimitReader(resp.Body, maxBodyBytes), v)
}
