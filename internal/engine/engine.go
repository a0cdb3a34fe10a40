// Package engine ties the loader and navigation machinery together. One
// Engine owns the region registry, visibility tracker, navigation lock,
// history synchronizer and scene registry for a document session, and
// runs them on a single event-loop goroutine: every piece of shared
// state has exactly one owner, and event ordering follows delivery
// order. Fetches run on worker goroutines but report back as events.
package engine

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"scrolldoc/internal/config"
	"scrolldoc/internal/content"
	"scrolldoc/internal/fetcher"
	"scrolldoc/internal/history"
	"scrolldoc/internal/manifest"
	"scrolldoc/internal/navlock"
	"scrolldoc/internal/region"
	"scrolldoc/internal/scene"
	"scrolldoc/internal/visibility"
)

// RegionStatus is a point-in-time view of one region for the API.
type RegionStatus struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	State       region.State `json:"state"`
	Active      bool         `json:"active"`
	Fraction    float64      `json:"fraction"`
	WinningPath string       `json:"winning_path,omitempty"`
	SceneIDs    []string     `json:"scene_ids,omitempty"`
}

// snapshotReq asks the loop for the full region table.
type snapshotReq struct {
	reply chan []RegionStatus
}

// contentReq asks the loop for a region's payload, starting a load if
// needed. The reply is deferred until the load settles.
type contentReq struct {
	regionID string
	reply    chan contentReply
}

type contentReply struct {
	payload *region.Payload
	err     error
}

func (snapshotReq) isEvent() {}
func (contentReq) isEvent()  {}

// Engine is the loader and navigation coordinator for one document.
type Engine struct {
	cfg     *config.Config
	man     *manifest.Manifest
	regions *region.Registry
	fetcher *fetcher.Fetcher
	tracker *visibility.Tracker
	lock    *navlock.Coordinator
	history *history.Synchronizer
	scenes  *scene.Registry
	now     func() time.Time

	events chan Event
	done   chan struct{}
	once   sync.Once

	active         string
	viewportHeight float64
	scrollTop      float64
	pending        map[string]bool
	waiters        map[string][]chan contentReply

	subMu sync.Mutex
	subs  map[int]chan Notification
	next  int
}

// Option adjusts engine construction, mainly for tests.
type Option func(*Engine)

// WithClock injects a clock shared by the lock and tracker.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New composes an engine from its collaborators. Regions are created
// here, once, from the manifest, and live for the whole session.
func New(cfg *config.Config, man *manifest.Manifest, f *fetcher.Fetcher, scenes *scene.Registry, opts ...Option) *Engine {
	e := &Engine{
		cfg:     cfg,
		man:     man,
		fetcher: f,
		scenes:  scenes,
		now:     time.Now,
		events:  make(chan Event, 256),
		done:    make(chan struct{}),
		pending: make(map[string]bool),
		waiters: make(map[string][]chan contentReply),
		subs:    make(map[int]chan Notification),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.regions = region.NewRegistry(man)
	order := make([]string, 0, e.regions.Len())
	for _, r := range e.regions.All() {
		order = append(order, r.ID)
	}
	e.tracker = visibility.New(order, cfg.Tracking, e.now)
	e.lock = navlock.New(e.now)
	e.history = history.New(man.First())
	return e
}

// Tracker exposes the visibility tracker's reporting configuration.
func (e *Engine) Tracker() *visibility.Tracker { return e.tracker }

// Run processes events until the context is cancelled or Close is
// called. It must be invoked exactly once.
func (e *Engine) Run(ctx context.Context) {
	defer e.teardown()
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.done:
			return
		case ev := <-e.events:
			e.handle(ev)
		}
	}
}

// Close stops the loop and releases scene resources.
func (e *Engine) Close() {
	e.once.Do(func() { close(e.done) })
}

func (e *Engine) teardown() {
	e.scenes.Close()
	for id, ws := range e.waiters {
		for _, w := range ws {
			w <- contentReply{err: fmt.Errorf("engine shut down")}
		}
		delete(e.waiters, id)
	}
	e.subMu.Lock()
	for id, ch := range e.subs {
		close(ch)
		delete(e.subs, id)
	}
	e.subMu.Unlock()
}

// Submit posts an event to the loop. It reports false after shutdown.
func (e *Engine) Submit(ev Event) bool {
	select {
	case <-e.done:
		return false
	case e.events <- ev:
		return true
	}
}

// Subscribe registers a notification channel. Slow subscribers drop
// notifications rather than stalling the loop.
func (e *Engine) Subscribe() (<-chan Notification, func()) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	id := e.next
	e.next++
	ch := make(chan Notification, 64)
	e.subs[id] = ch
	return ch, func() {
		e.subMu.Lock()
		defer e.subMu.Unlock()
		if ch, ok := e.subs[id]; ok {
			close(ch)
			delete(e.subs, id)
		}
	}
}

func (e *Engine) publish(n Notification) {
	n.Timestamp = e.now()
	e.subMu.Lock()
	defer e.subMu.Unlock()
	for _, ch := range e.subs {
		select {
		case ch <- n:
		default:
		}
	}
}

// Snapshot returns the current region table.
func (e *Engine) Snapshot(ctx context.Context) ([]RegionStatus, error) {
	req := snapshotReq{reply: make(chan []RegionStatus, 1)}
	if !e.Submit(req) {
		return nil, fmt.Errorf("engine shut down")
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case s := <-req.reply:
		return s, nil
	}
}

// RequestContent returns a region's payload, loading it first if
// necessary. Concurrent requests for the same region share one fetch.
func (e *Engine) RequestContent(ctx context.Context, regionID string) (*region.Payload, error) {
	req := contentReq{regionID: regionID, reply: make(chan contentReply, 1)}
	if !e.Submit(req) {
		return nil, fmt.Errorf("engine shut down")
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-req.reply:
		return r.payload, r.err
	}
}

// handle dispatches one event on the loop goroutine.
func (e *Engine) handle(ev Event) {
	switch ev := ev.(type) {
	case IntersectionEvent:
		e.handleIntersection(ev)
	case GeometryEvent:
		e.tracker.SetGeometry(ev.RegionID, ev.Top, ev.Height)
	case ScrollEvent:
		e.handleScroll(ev)
	case NavigateEvent:
		e.handleNavigate(ev.TargetID, false)
	case SettledEvent:
		e.handleSettled(ev)
	case HistoryPopEvent:
		e.handleHistoryPop(ev)
	case RetryEvent:
		e.handleRetry(ev.RegionID)
	case ReloadEvent:
		e.handleReload(ev)
	case ResizeEvent:
		e.scenes.Resize(ev.Width, ev.Height)
		e.viewportHeight = float64(ev.Height)
	case fetchDone:
		e.handleFetchDone(ev)
	case snapshotReq:
		ev.reply <- e.snapshot()
	case contentReq:
		e.handleContentReq(ev)
	default:
		log.Printf("engine: dropping unknown event %T", ev)
	}
}

func (e *Engine) handleIntersection(ev IntersectionEvent) {
	e.tracker.ReportIntersection(ev.RegionID, ev.Fraction)
	if r, err := e.regions.Get(ev.RegionID); err == nil {
		r.VisibleFraction = e.tracker.Fraction(ev.RegionID)
		// Prefetch on proximity entry, before the region is fully
		// visible, to hide load latency.
		if e.tracker.InProximity(ev.RegionID) && r.State() == region.StateUnloaded {
			e.startLoad(r, fetcher.Request{})
		}
	}
	e.recomputeActive()
	e.maybeEnsureScenes(ev.RegionID)
}

func (e *Engine) handleScroll(ev ScrollEvent) {
	e.scrollTop = ev.Top
	e.viewportHeight = ev.ViewportHeight
	if !e.tracker.ReportScroll(ev.Top, ev.ViewportHeight) {
		return
	}
	for _, r := range e.regions.All() {
		r.VisibleFraction = e.tracker.Fraction(r.ID)
		if e.tracker.InProximity(r.ID) && r.State() == region.StateUnloaded {
			e.startLoad(r, fetcher.Request{})
		}
	}
	e.recomputeActive()

	// Shed scenes for regions far off-screen.
	for _, id := range e.tracker.Distant(ev.Top, ev.ViewportHeight, e.cfg.Scenes.ReleaseDistance) {
		e.scenes.ReleaseRegion(id)
	}
}

// recomputeActive applies a visibility-driven activation proposal. The
// navigation lock is the single arbiter that may discard it.
func (e *Engine) recomputeActive() {
	if e.lock.Locked() {
		return
	}
	candidate, ok := e.tracker.CurrentActive()
	if !ok || candidate == e.active {
		return
	}
	e.setActive(candidate)
}

// handleNavigate runs a programmatic navigation: lock first, then load
// and activate the target. Only the target may become active while the
// lock is held.
func (e *Engine) handleNavigate(targetID string, fromHistory bool) {
	r, err := e.regions.Get(targetID)
	if err != nil {
		log.Printf("engine: navigate to unknown region %q", targetID)
		return
	}

	e.lock.Acquire(targetID, e.cfg.Tracking.LockTTL())
	if r.State() == region.StateUnloaded {
		e.startLoad(r, fetcher.Request{})
	}
	if fromHistory {
		// The fragment already changed in the address bar; mirror it
		// without pushing a duplicate entry.
		e.history.Restore(targetID)
	}
	e.setActive(targetID)
}

func (e *Engine) handleSettled(ev SettledEvent) {
	if e.lock.Target() == ev.TargetID || ev.TargetID == "" {
		e.lock.Release()
	}
	// Whatever the viewport says now is authoritative again.
	e.recomputeActive()
}

func (e *Engine) handleHistoryPop(ev HistoryPopEvent) {
	e.handleNavigate(e.history.Resolve(ev.Fragment), true)
}

// setActive makes one region the current active region and reflects it
// into the fragment.
func (e *Engine) setActive(id string) {
	if e.active == id {
		return
	}
	e.active = id
	e.publish(Notification{Type: NoteActiveChanged, RegionID: id})
	if e.history.Apply(id) {
		e.publish(Notification{Type: NoteFragmentChanged, RegionID: id, Fragment: id})
	}
	e.maybeEnsureScenes(id)
}

func (e *Engine) handleRetry(id string) {
	r, err := e.regions.Get(id)
	if err != nil {
		log.Printf("engine: retry for unknown region %q", id)
		return
	}
	if r.State() != region.StateError {
		return
	}
	if err := r.Retry(); err != nil {
		log.Printf("engine: %v", err)
		return
	}
	e.dispatchFetch(r, fetcher.Request{})
}

func (e *Engine) handleReload(ev ReloadEvent) {
	r, err := e.regions.Get(ev.RegionID)
	if err != nil || r.State() != region.StateLoaded {
		return
	}
	if err := r.ForceReload(ev.ResetPath); err != nil {
		log.Printf("engine: %v", err)
		return
	}
	e.fetcher.Invalidate(r.ID)
	e.dispatchFetch(r, fetcher.Request{Force: true})
}

// startLoad begins a load cycle for an unloaded region.
func (e *Engine) startLoad(r *region.Region, base fetcher.Request) {
	if e.pending[r.ID] || r.State() == region.StateLoading {
		return
	}
	if r.State() != region.StateUnloaded {
		return
	}
	if err := r.BeginLoad(); err != nil {
		log.Printf("engine: %v", err)
		return
	}
	e.dispatchFetch(r, base)
}

// dispatchFetch runs the fetch off-loop and reports back as an event.
// In-flight fetches are never cancelled when a region scrolls away: the
// result is cached for future use either way.
func (e *Engine) dispatchFetch(r *region.Region, base fetcher.Request) {
	req := base
	req.ID = r.ID
	req.SourceTemplate = r.SourceTemplate
	req.Legacy = r.Legacy
	if req.WinningPath == "" && !req.Force {
		req.WinningPath = r.WinningPath()
	}
	e.pending[r.ID] = true

	go func() {
		res := e.fetcher.Fetch(context.Background(), req)
		e.Submit(fetchDone{regionID: r.ID, res: res})
	}()
}

func (e *Engine) handleFetchDone(ev fetchDone) {
	delete(e.pending, ev.regionID)
	r, err := e.regions.Get(ev.regionID)
	if err != nil {
		return
	}

	if ev.res.Err != nil {
		if err := r.FailLoad(ev.res.Attempted); err != nil {
			log.Printf("engine: %v", err)
		}
		log.Printf("engine: region %s failed to load: %v", r.ID, ev.res.Err)
		e.publish(Notification{Type: NoteRegionFailed, RegionID: r.ID, AttemptedPaths: ev.res.Attempted})
		e.replyWaiters(r.ID, contentReply{err: ev.res.Err})
		return
	}

	if err := r.CompleteLoad(ev.res.Payload, ev.res.WinningPath); err != nil {
		log.Printf("engine: %v", err)
		return
	}
	e.publish(Notification{Type: NoteRegionLoaded, RegionID: r.ID})
	e.maybeEnsureScenes(r.ID)
	e.replyWaiters(r.ID, contentReply{payload: ev.res.Payload})
}

func (e *Engine) replyWaiters(id string, reply contentReply) {
	for _, w := range e.waiters[id] {
		w <- reply
	}
	delete(e.waiters, id)
}

// maybeEnsureScenes creates a region's scenes once it is both loaded and
// on screen. Load alone is never enough; visibility is required too.
func (e *Engine) maybeEnsureScenes(id string) {
	r, err := e.regions.Get(id)
	if err != nil || r.State() != region.StateLoaded {
		return
	}
	if e.active != id && e.tracker.Fraction(id) <= 0 {
		return
	}
	for _, sceneID := range r.SceneIDs {
		if e.scenes.Live(sceneID) {
			continue
		}
		desc := findDescriptor(r.Payload(), sceneID)
		containerID, created, err := e.scenes.Ensure(r.ID, sceneID, desc)
		if err != nil {
			// A failed scene degrades to a placeholder; the region
			// stays loaded.
			log.Printf("engine: %v", err)
			e.publish(Notification{
				Type:        NoteVisualizationFailed,
				RegionID:    r.ID,
				SceneID:     sceneID,
				ContainerID: containerID,
				Placeholder: content.Placeholder(sceneID, "rendering unavailable"),
			})
			continue
		}
		if created {
			e.publish(Notification{
				Type:        NoteVisualizationReady,
				RegionID:    r.ID,
				SceneID:     sceneID,
				ContainerID: containerID,
			})
		}
	}
}

func (e *Engine) handleContentReq(req contentReq) {
	r, err := e.regions.Get(req.regionID)
	if err != nil {
		req.reply <- contentReply{err: err}
		return
	}
	switch r.State() {
	case region.StateLoaded:
		req.reply <- contentReply{payload: r.Payload()}
	case region.StateError:
		// A direct content request implies the caller wants another go.
		if err := r.Retry(); err != nil {
			req.reply <- contentReply{err: err}
			return
		}
		e.waiters[r.ID] = append(e.waiters[r.ID], req.reply)
		e.dispatchFetch(r, fetcher.Request{})
	case region.StateLoading:
		e.waiters[r.ID] = append(e.waiters[r.ID], req.reply)
	default:
		e.waiters[r.ID] = append(e.waiters[r.ID], req.reply)
		e.startLoad(r, fetcher.Request{})
	}
}

func (e *Engine) snapshot() []RegionStatus {
	out := make([]RegionStatus, 0, e.regions.Len())
	for _, r := range e.regions.All() {
		out = append(out, RegionStatus{
			ID:          r.ID,
			Title:       r.Title,
			State:       r.State(),
			Active:      r.ID == e.active,
			Fraction:    r.VisibleFraction,
			WinningPath: r.WinningPath(),
			SceneIDs:    r.SceneIDs,
		})
	}
	return out
}

// findDescriptor locates the visualization_data block for a scene in a
// loaded payload, nil for manifest-only or legacy scenes.
func findDescriptor(p *region.Payload, sceneID string) *content.Visualization {
	if p == nil || p.Doc == nil {
		return nil
	}
	for _, s := range p.Doc.Sections {
		if s.Visualization != nil && s.Visualization.ID == sceneID {
			return s.Visualization
		}
	}
	return nil
}
