// Package fetcher retrieves region content. It walks the resolver's
// candidate locations strictly in order, stops at the first success,
// caches results per region id and coalesces concurrent requests so at
// most one attempt is ever in flight per region.
package fetcher

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"scrolldoc/internal/content"
	"scrolldoc/internal/region"
	"scrolldoc/internal/resolver"
)

// ExhaustedError reports that every candidate location failed. It ends
// the region's load attempt and carries the walked list for diagnostics.
type ExhaustedError struct {
	ID        string
	Attempted []string
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("region %s: all %d candidate paths failed: %s",
		e.ID, len(e.Attempted), strings.Join(e.Attempted, ", "))
}

// MalformedError reports content that was fetched but failed schema
// validation or parsing. Like exhaustion, it ends the load attempt.
type MalformedError struct {
	Path string
	Err  error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed content at %s: %v", e.Path, e.Err)
}

func (e *MalformedError) Unwrap() error { return e.Err }

// Request identifies one region fetch.
type Request struct {
	ID             string
	SourceTemplate string
	// WinningPath, when known from a previous load, is tried first so a
	// reload skips the candidate walk.
	WinningPath string
	Legacy      bool
	// Force bypasses the result cache and the winning path shortcut.
	Force bool
}

// Result is the outcome of a fetch.
type Result struct {
	Payload     *region.Payload
	WinningPath string
	Attempted   []string
	Err         error
}

type flight struct {
	done chan struct{}
	res  Result
}

// Fetcher resolves and retrieves region content.
type Fetcher struct {
	resolver *resolver.Resolver
	loader   Loader
	renderer *content.Renderer

	mu       sync.Mutex
	cache    map[string]Result
	inflight map[string]*flight
}

// New creates a fetcher.
func New(res *resolver.Resolver, loader Loader, renderer *content.Renderer) *Fetcher {
	return &Fetcher{
		resolver: res,
		loader:   loader,
		renderer: renderer,
		cache:    make(map[string]Result),
		inflight: make(map[string]*flight),
	}
}

// Fetch retrieves content for one region. Concurrent calls for the same
// region id share a single underlying attempt; callers block until that
// attempt settles. Successful results are cached by region id, so a later
// Fetch performs no additional candidate attempts unless forced.
func (f *Fetcher) Fetch(ctx context.Context, req Request) Result {
	f.mu.Lock()
	if !req.Force {
		if res, ok := f.cache[req.ID]; ok {
			f.mu.Unlock()
			return res
		}
	}
	if fl, ok := f.inflight[req.ID]; ok {
		f.mu.Unlock()
		select {
		case <-fl.done:
			return fl.res
		case <-ctx.Done():
			return Result{Err: ctx.Err()}
		}
	}
	fl := &flight{done: make(chan struct{})}
	f.inflight[req.ID] = fl
	f.mu.Unlock()

	res := f.walk(ctx, req)

	f.mu.Lock()
	delete(f.inflight, req.ID)
	if res.Err == nil {
		f.cache[req.ID] = res
	}
	f.mu.Unlock()

	fl.res = res
	close(fl.done)
	return res
}

// Invalidate drops the cached result for a region, for forced reloads.
func (f *Fetcher) Invalidate(id string) {
	f.mu.Lock()
	delete(f.cache, id)
	f.mu.Unlock()
}

// walk tries candidates in order, stopping at the first readable one.
func (f *Fetcher) walk(ctx context.Context, req Request) Result {
	candidates := f.resolver.Candidates(req.SourceTemplate)
	if req.WinningPath != "" && !req.Force {
		// Known-good path goes first; the full list stays behind it as
		// a fallback in case the deployment moved underneath us.
		candidates = prepend(req.WinningPath, candidates)
	}

	var attempted []string
	for _, path := range candidates {
		attempted = append(attempted, path)

		raw, err := f.loader.Load(ctx, path)
		if err != nil {
			if ctx.Err() != nil {
				return Result{Attempted: attempted, Err: ctx.Err()}
			}
			// Transport-level failure: advance to the next candidate.
			continue
		}

		payload, err := f.decode(req, raw)
		if err != nil {
			return Result{Attempted: attempted, Err: &MalformedError{Path: path, Err: err}}
		}
		return Result{Payload: payload, WinningPath: path, Attempted: attempted}
	}

	return Result{Attempted: attempted, Err: &ExhaustedError{ID: req.ID, Attempted: attempted}}
}

// decode turns raw bytes into a region payload. Legacy regions carry raw
// HTML and skip schema validation.
func (f *Fetcher) decode(req Request, raw []byte) (*region.Payload, error) {
	if req.Legacy {
		return &region.Payload{LegacyHTML: raw}, nil
	}
	doc, err := content.Parse(raw)
	if err != nil {
		return nil, err
	}
	rendered, err := f.renderer.Render(doc)
	if err != nil {
		return nil, err
	}
	return &region.Payload{Doc: rendered}, nil
}

// prepend puts head first and drops its duplicate from the tail.
func prepend(head string, tail []string) []string {
	out := make([]string, 0, len(tail)+1)
	out = append(out, head)
	for _, p := range tail {
		if p != head {
			out = append(out, p)
		}
	}
	return out
}
