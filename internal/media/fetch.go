package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultFetchTimeout = 5 * time.Minute
	DefaultMaxAssetSize = 512 << 20
)

var ErrAssetTooLarge = errors.New("asset exceeds size limit")

// HTTPFetcher downloads externally hosted generated assets. Header is added to
// every request (for example x-goog-api-key for provider-hosted files).
type HTTPFetcher struct {
	Client *http.Client
	Header http.Header
	// MaxSize caps the payload; zero means DefaultMaxAssetSize.
	MaxSize int64
}

// NewHTTPFetcher builds a fetcher sending a single auth header when name is non-empty.
func NewHTTPFetcher(headerName, headerValue string) *HTTPFetcher {
	f := &HTTPFetcher{
		Client: &http.Client{Timeout: DefaultFetchTimeout},
		Header: http.Header{},
	}
	if headerName != "" && headerValue != "" {
		f.Header.Set(headerName, headerValue)
	}
	return f
}

// Fetch reads the full payload at target and returns it with the reported content type.
func (f *HTTPFetcher) Fetch(ctx context.Context, target string) ([]byte, string, error) {
	if f.Client == nil {
		f.Client = &http.Client{Timeout: DefaultFetchTimeout}
	}

	parsed, err := url.Parse(target)
	if err != nil {
		return nil, "", fmt.Errorf("invalid url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, "", errors.New("unsupported url scheme")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, "", err
	}
	for name, values := range f.Header {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}
	req.Header.Set("User-Agent", "CyberJungle-Media/1.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, "", fmt.Errorf("fetch asset: %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}

	limit := f.MaxSize
	if limit <= 0 {
		limit = DefaultMaxAssetSize
	}
	if resp.ContentLength > limit {
		return nil, "", fmt.Errorf("%w: %d bytes announced, limit %d", ErrAssetTooLarge, resp.ContentLength, limit)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, "", err
	}
	if int64(len(body)) > limit {
		return nil, "", fmt.Errorf("%w: limit %d", ErrAssetTooLarge, limit)
	}
	return body, contentType(resp.Header.Get("Content-Type")), nil
}

func contentType(header string) string {
	if header == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return mediaType
}
