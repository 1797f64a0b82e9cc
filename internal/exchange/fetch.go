// Package exchange moves instincts in and out of the knowledge base:
// importing shared files or URLs into an inherited store and exporting a
// filtered view as a single instinct file.
package exchange

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/fyrsmithlabs/instinct/internal/sanitize"
)

// Exchange errors.
var (
	ErrNoInstincts = errors.New("no valid instincts found")
	ErrNoMatch     = errors.New("no instincts match the criteria")
	ErrFetch       = errors.New("failed to fetch source")
)

// maxFetchBytes caps how much of a remote source is read.
const maxFetchBytes = 10 << 20

// IsURL reports whether source names an http(s) resource.
func IsURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// Fetcher reads import sources from disk or over HTTP.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a Fetcher whose HTTP requests time out after timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Fetch returns the text of source. URLs are fetched with a GET; anything
// else is a file path that must exist outside system directories.
func (f *Fetcher) Fetch(ctx context.Context, source string) (string, error) {
	if IsURL(source) {
		return f.fetchURL(ctx, source)
	}

	path, err := sanitize.ValidateFilePath(source, true)
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

func (f *Fetcher) fetchURL(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetch, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrFetch, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %s returned status %d", ErrFetch, url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return "", fmt.Errorf("%w: failed to read response body: %v", ErrFetch, err)
	}
	return string(body), nil
}
