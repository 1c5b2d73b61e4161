package scraper

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// PageFetcher retrieves one page. Any status other than 200 ends pagination
// for the source that requested it.
type PageFetcher interface {
	Get(ctx context.Context, url string) (status int, body []byte, err error)
}

const maxPageBytes = 8 << 20

type HTTPPageFetcher struct {
	client    *http.Client
	userAgent string
}

func NewHTTPClient(timeout time.Duration) *http.Client {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: tr}
}

func NewHTTPPageFetcher(client *http.Client, userAgent string) *HTTPPageFetcher {
	return &HTTPPageFetcher{client: client, userAgent: userAgent}
}

func (f *HTTPPageFetcher) Get(ctx context.Context, url string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, err
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return resp.StatusCode, nil, nil
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read body: %w", err)
	}
	return resp.StatusCode, body, nil
}
