package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/kotyarick/ttgt-schedule-api/pkg/errors"
)

const chunkSize = 8192

// Fetcher downloads source documents into a local work directory. A file
// that is already present is reused without transferring any bytes;
// freshness is the caller's concern, not this component's.
type Fetcher struct {
	dir    string
	client *http.Client
	logger *zap.Logger
}

// NewFetcher ensures the work directory exists and returns a fetcher whose
// downloads are bounded by the given timeout.
func NewFetcher(dir string, timeout time.Duration, logger *zap.Logger) (*Fetcher, error) {
	if dir == "" {
		dir = "./downloads"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create work directory: %w", err)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		dir:    dir,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}, nil
}

// Fetch returns the local path of the document at rawURL, downloading it
// first unless a copy already exists. Failures (including timeouts) surface
// as FETCH_FAILED; there are no retries.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	local, err := f.LocalPath(rawURL)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrFetchFailed.Code, appErrors.ErrFetchFailed.Status, "invalid document url")
	}

	if _, err := os.Stat(local); err == nil {
		return local, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrFetchFailed.Code, appErrors.ErrFetchFailed.Status, "build document request")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrFetchFailed.Code, appErrors.ErrFetchFailed.Status, "download document")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", appErrors.Wrap(
			fmt.Errorf("unexpected status %d", resp.StatusCode),
			appErrors.ErrFetchFailed.Code, appErrors.ErrFetchFailed.Status, "download document",
		)
	}

	if err := f.stream(local, resp.Body); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrFetchFailed.Code, appErrors.ErrFetchFailed.Status, "store document")
	}

	f.logger.Info("document fetched", zap.String("url", rawURL), zap.String("path", local))
	return local, nil
}

// Remove deletes the local copy of the document at rawURL, if any.
func (f *Fetcher) Remove(rawURL string) error {
	local, err := f.LocalPath(rawURL)
	if err != nil {
		return err
	}
	if err := os.Remove(local); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove downloaded document: %w", err)
	}
	return nil
}

// LocalPath derives the local file name for a document URL from its last
// path segment.
func (f *Fetcher) LocalPath(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse document url: %w", err)
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return "", fmt.Errorf("document url %q has no file name", rawURL)
	}
	return filepath.Join(f.dir, name), nil
}

func (f *Fetcher) stream(local string, body io.Reader) error {
	file, err := os.Create(local)
	if err != nil {
		return fmt.Errorf("create local file: %w", err)
	}
	defer file.Close() //nolint:errcheck

	buf := make([]byte, chunkSize)
	if _, err := io.CopyBuffer(file, body, buf); err != nil {
		// A partial download must not be mistaken for a cached copy.
		os.Remove(local) //nolint:errcheck
		return fmt.Errorf("write local file: %w", err)
	}
	return nil
}
