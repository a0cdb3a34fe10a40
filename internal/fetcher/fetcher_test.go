package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"scrolldoc/internal/config"
	"scrolldoc/internal/content"
	"scrolldoc/internal/resolver"
)

const minimalDoc = `{"id": "intro", "title": "Introduction", "sections": []}`

// fakeLoader serves canned payloads and records every attempt.
type fakeLoader struct {
	mu       sync.Mutex
	payloads map[string][]byte
	attempts []string
	// gate, when set, blocks every Load until released.
	gate chan struct{}
}

func (l *fakeLoader) Load(ctx context.Context, location string) ([]byte, error) {
	l.mu.Lock()
	l.attempts = append(l.attempts, location)
	gate := l.gate
	l.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if raw, ok := l.payloads[location]; ok {
		return raw, nil
	}
	return nil, fmt.Errorf("no such location: %s", location)
}

func (l *fakeLoader) attemptCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.attempts)
}

func newTestFetcher(loader Loader) *Fetcher {
	res := resolver.New(config.EnvDevServer, "", "")
	return New(res, loader, content.NewRenderer())
}

func TestFetchFirstCandidateWins(t *testing.T) {
	loader := &fakeLoader{payloads: map[string][]byte{
		"/content/intro.json": []byte(minimalDoc),
	}}
	f := newTestFetcher(loader)

	res := f.Fetch(context.Background(), Request{ID: "intro", SourceTemplate: "content/intro.json"})
	if res.Err != nil {
		t.Fatalf("Fetch failed: %v", res.Err)
	}
	if res.WinningPath != "/content/intro.json" {
		t.Errorf("winning path: got %q", res.WinningPath)
	}
	if loader.attemptCount() != 1 {
		t.Errorf("attempts: got %d, want 1", loader.attemptCount())
	}
	if res.Payload == nil || res.Payload.Doc == nil || res.Payload.Doc.ID != "intro" {
		t.Errorf("payload: got %+v", res.Payload)
	}
}

func TestFetchWalksUntilSuccess(t *testing.T) {
	// Dev-server candidates are /p, p, ./p; only the third resolves.
	loader := &fakeLoader{payloads: map[string][]byte{
		"./content/intro.json": []byte(minimalDoc),
	}}
	f := newTestFetcher(loader)

	res := f.Fetch(context.Background(), Request{ID: "intro", SourceTemplate: "content/intro.json"})
	if res.Err != nil {
		t.Fatalf("Fetch failed: %v", res.Err)
	}
	if res.WinningPath != "./content/intro.json" {
		t.Errorf("winning path: got %q", res.WinningPath)
	}
	if loader.attemptCount() != 3 {
		t.Errorf("attempts: got %d, want 3", loader.attemptCount())
	}
	if len(res.Attempted) != 3 {
		t.Errorf("attempted list: got %v", res.Attempted)
	}
}

func TestFetchExhaustion(t *testing.T) {
	loader := &fakeLoader{}
	f := newTestFetcher(loader)

	res := f.Fetch(context.Background(), Request{ID: "intro", SourceTemplate: "content/intro.json"})
	var ex *ExhaustedError
	if !errors.As(res.Err, &ex) {
		t.Fatalf("expected ExhaustedError, got %v", res.Err)
	}
	if len(ex.Attempted) != 3 {
		t.Errorf("exhaustion should carry all attempted paths, got %v", ex.Attempted)
	}
}

func TestFetchMalformedStopsWalk(t *testing.T) {
	loader := &fakeLoader{payloads: map[string][]byte{
		"/content/intro.json": []byte(`{"title": "missing id and sections"}`),
		"content/intro.json":  []byte(minimalDoc),
	}}
	f := newTestFetcher(loader)

	res := f.Fetch(context.Background(), Request{ID: "intro", SourceTemplate: "content/intro.json"})
	var mal *MalformedError
	if !errors.As(res.Err, &mal) {
		t.Fatalf("expected MalformedError, got %v", res.Err)
	}
	if mal.Path != "/content/intro.json" {
		t.Errorf("malformed path: got %q", mal.Path)
	}
	// Validation failure ends the attempt; later candidates stay untried.
	if loader.attemptCount() != 1 {
		t.Errorf("attempts: got %d, want 1", loader.attemptCount())
	}
}

func TestFetchCachesByRegionID(t *testing.T) {
	loader := &fakeLoader{payloads: map[string][]byte{
		"/content/intro.json": []byte(minimalDoc),
	}}
	f := newTestFetcher(loader)

	req := Request{ID: "intro", SourceTemplate: "content/intro.json"}
	first := f.Fetch(context.Background(), req)
	if first.Err != nil {
		t.Fatalf("first fetch: %v", first.Err)
	}
	second := f.Fetch(context.Background(), req)
	if second.Err != nil {
		t.Fatalf("second fetch: %v", second.Err)
	}
	if loader.attemptCount() != 1 {
		t.Errorf("cached fetch should perform zero attempts, total %d", loader.attemptCount())
	}
	if second.WinningPath != first.WinningPath {
		t.Errorf("cached winning path: got %q, want %q", second.WinningPath, first.WinningPath)
	}
}

func TestFetchWinningPathShortcut(t *testing.T) {
	loader := &fakeLoader{payloads: map[string][]byte{
		"./content/intro.json": []byte(minimalDoc),
	}}
	f := newTestFetcher(loader)

	// A fresh session remembers the winning path from a prior one and
	// tries it first: exactly one attempt.
	res := f.Fetch(context.Background(), Request{
		ID:             "intro",
		SourceTemplate: "content/intro.json",
		WinningPath:    "./content/intro.json",
	})
	if res.Err != nil {
		t.Fatalf("Fetch failed: %v", res.Err)
	}
	if loader.attemptCount() != 1 {
		t.Errorf("attempts: got %d, want 1", loader.attemptCount())
	}
	if res.WinningPath != "./content/intro.json" {
		t.Errorf("winning path: got %q", res.WinningPath)
	}
}

func TestFetchStaleWinningPathFallsBack(t *testing.T) {
	loader := &fakeLoader{payloads: map[string][]byte{
		"/content/intro.json": []byte(minimalDoc),
	}}
	f := newTestFetcher(loader)

	res := f.Fetch(context.Background(), Request{
		ID:             "intro",
		SourceTemplate: "content/intro.json",
		WinningPath:    "./stale/intro.json",
	})
	if res.Err != nil {
		t.Fatalf("Fetch failed: %v", res.Err)
	}
	if res.WinningPath != "/content/intro.json" {
		t.Errorf("fallback winning path: got %q", res.WinningPath)
	}
	if res.Attempted[0] != "./stale/intro.json" {
		t.Errorf("stale path should be tried first, attempted %v", res.Attempted)
	}
}

func TestFetchForceBypassesCacheAndShortcut(t *testing.T) {
	loader := &fakeLoader{payloads: map[string][]byte{
		"/content/intro.json": []byte(minimalDoc),
	}}
	f := newTestFetcher(loader)

	req := Request{ID: "intro", SourceTemplate: "content/intro.json"}
	if res := f.Fetch(context.Background(), req); res.Err != nil {
		t.Fatalf("first fetch: %v", res.Err)
	}

	f.Invalidate("intro")
	req.Force = true
	req.WinningPath = "/content/intro.json"
	if res := f.Fetch(context.Background(), req); res.Err != nil {
		t.Fatalf("forced fetch: %v", res.Err)
	}
	if loader.attemptCount() != 2 {
		t.Errorf("forced fetch should hit the network again, total attempts %d", loader.attemptCount())
	}
}

func TestFetchCoalescesConcurrentRequests(t *testing.T) {
	gate := make(chan struct{})
	loader := &fakeLoader{
		payloads: map[string][]byte{"/content/intro.json": []byte(minimalDoc)},
		gate:     gate,
	}
	f := newTestFetcher(loader)

	req := Request{ID: "intro", SourceTemplate: "content/intro.json"}
	results := make(chan Result, 2)
	for i := 0; i < 2; i++ {
		go func() {
			results <- f.Fetch(context.Background(), req)
		}()
	}

	// Let both goroutines reach the fetcher before releasing the gate.
	deadline := time.After(2 * time.Second)
	for loader.attemptCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("no attempt started")
		case <-time.After(time.Millisecond):
		}
	}
	close(gate)

	for i := 0; i < 2; i++ {
		res := <-results
		if res.Err != nil {
			t.Fatalf("coalesced fetch %d failed: %v", i, res.Err)
		}
	}
	if loader.attemptCount() != 1 {
		t.Errorf("concurrent fetches must share one attempt, got %d", loader.attemptCount())
	}
}

func TestFetchLegacySkipsValidation(t *testing.T) {
	loader := &fakeLoader{payloads: map[string][]byte{
		"/content/legacy/appendix.html": []byte("<section>old content</section>"),
	}}
	f := newTestFetcher(loader)

	res := f.Fetch(context.Background(), Request{
		ID:             "appendix",
		SourceTemplate: "content/legacy/appendix.html",
		Legacy:         true,
	})
	if res.Err != nil {
		t.Fatalf("Fetch failed: %v", res.Err)
	}
	if string(res.Payload.LegacyHTML) != "<section>old content</section>" {
		t.Errorf("legacy payload: got %q", res.Payload.LegacyHTML)
	}
}

func TestHTTPLoader(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		if r.URL.Path != "/content/intro.json" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, minimalDoc)
	}))
	defer srv.Close()

	l := &HTTPLoader{Base: srv.URL}
	raw, err := l.Load(context.Background(), "/content/intro.json")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !strings.Contains(string(raw), "Introduction") {
		t.Errorf("body: got %q", raw)
	}
	if gotQuery != "" {
		t.Errorf("no cache-bust token expected, got query %q", gotQuery)
	}

	if _, err := l.Load(context.Background(), "/missing.json"); err == nil {
		t.Error("expected error for 404")
	}

	bust := &HTTPLoader{Base: srv.URL, CacheBust: true}
	if _, err := bust.Load(context.Background(), "content/intro.json"); err != nil {
		t.Fatalf("Load with cache bust failed: %v", err)
	}
	if gotPath != "/content/intro.json" {
		t.Errorf("relative join: got path %q", gotPath)
	}
	if !strings.HasPrefix(gotQuery, "v=") {
		t.Errorf("expected cache-bust token, got query %q", gotQuery)
	}
}

func TestFileLoader(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "content/intro.json", minimalDoc)

	l := &FileLoader{Root: dir}
	for _, location := range []string{"content/intro.json", "./content/intro.json", "/content/intro.json"} {
		raw, err := l.Load(context.Background(), location)
		if err != nil {
			t.Fatalf("Load(%q) failed: %v", location, err)
		}
		if len(raw) == 0 {
			t.Errorf("Load(%q) returned empty payload", location)
		}
	}

	if _, err := l.Load(context.Background(), "https://example.edu/content/intro.json"); err == nil {
		t.Error("expected error for URL candidate")
	}
	if _, err := l.Load(context.Background(), "../outside.json"); err == nil {
		t.Error("expected error for path escaping root")
	}
}

func writeFile(t *testing.T, root, rel, data string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", rel, err)
	}
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("writing %s: %v", rel, err)
	}
}
