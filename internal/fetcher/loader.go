package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Loader reads one candidate location. Implementations decide which path
// shapes they can serve; a shape they cannot serve is just a failed
// candidate, and the fetcher moves on to the next one.
type Loader interface {
	Load(ctx context.Context, location string) ([]byte, error)
}

// FileLoader serves candidates from a local directory tree, for viewers
// opened straight from the filesystem.
type FileLoader struct {
	// Root is the document root all relative candidates resolve under.
	Root string
}

func (l *FileLoader) Load(_ context.Context, location string) ([]byte, error) {
	if strings.Contains(location, "://") {
		return nil, fmt.Errorf("not a local path: %s", location)
	}
	rel := strings.TrimPrefix(location, "./")
	rel = strings.TrimPrefix(rel, "/")
	clean := filepath.Clean(filepath.FromSlash(rel))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("path escapes document root: %s", location)
	}
	return os.ReadFile(filepath.Join(l.Root, clean))
}

// HTTPLoader serves candidates over HTTP. Relative candidates are joined
// to Base; absolute URLs are used as-is.
type HTTPLoader struct {
	Base   string
	Client *http.Client
	// CacheBust appends a per-request query token so authoring-mode
	// edits are never masked by intermediary caches. The token never
	// becomes part of any cache key.
	CacheBust bool
}

func (l *HTTPLoader) client() *http.Client {
	if l.Client != nil {
		return l.Client
	}
	return &http.Client{Timeout: 10 * time.Second}
}

func (l *HTTPLoader) Load(ctx context.Context, location string) ([]byte, error) {
	u := location
	if !strings.Contains(u, "://") {
		rel := strings.TrimPrefix(strings.TrimPrefix(u, "./"), "/")
		u = strings.TrimSuffix(l.Base, "/") + "/" + rel
	}
	if l.CacheBust {
		sep := "?"
		if strings.Contains(u, "?") {
			sep = "&"
		}
		u += sep + "v=" + strconv.FormatInt(time.Now().UnixNano(), 10)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", u, err)
	}
	resp, err := l.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: status %d", u, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
