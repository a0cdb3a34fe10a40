// Package region holds the per-region lifecycle state machine. A region
// is one independently loadable unit of the scroll document; its state
// only ever advances Unloaded -> Loading -> {Loaded, Error}, with
// Error -> Loading reachable through an explicit retry.
package region

import (
	"fmt"

	"scrolldoc/internal/content"
)

// State is a region's load state.
type State string

const (
	StateUnloaded State = "unloaded"
	StateLoading  State = "loading"
	StateLoaded   State = "loaded"
	StateError    State = "error"
)

// Payload is the cached content for a loaded region. Exactly one of Doc
// or LegacyHTML is set, depending on whether the source was schema
// content or a raw HTML fragment.
type Payload struct {
	Doc        *content.RenderedDocument
	LegacyHTML []byte
}

// Region is one content unit and its lifecycle state.
type Region struct {
	ID             string
	Title          string
	SourceTemplate string
	Legacy         bool
	// SceneIDs are the visualization scenes owned by this region,
	// declared in the manifest and extended from loaded content.
	SceneIDs []string

	state       State
	payload     *Payload
	winningPath string
	attempted   []string

	// VisibleFraction is the last-observed viewport-area fraction,
	// maintained by the visibility tracker.
	VisibleFraction float64
}

// New creates a region in the Unloaded state.
func New(id, title, sourceTemplate string, legacy bool, sceneIDs []string) *Region {
	return &Region{
		ID:             id,
		Title:          title,
		SourceTemplate: sourceTemplate,
		Legacy:         legacy,
		SceneIDs:       append([]string(nil), sceneIDs...),
		state:          StateUnloaded,
	}
}

// State returns the current lifecycle state.
func (r *Region) State() State { return r.state }

// Payload returns the cached content, present only once Loaded.
func (r *Region) Payload() *Payload { return r.payload }

// WinningPath returns the candidate location that succeeded, empty until
// the first successful load.
func (r *Region) WinningPath() string { return r.winningPath }

// AttemptedPaths returns the candidate list walked by the last failed
// load, for diagnostics.
func (r *Region) AttemptedPaths() []string { return r.attempted }

// TransitionError reports an illegal lifecycle transition.
type TransitionError struct {
	ID   string
	From State
	To   State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("region %s: illegal transition %s -> %s", e.ID, e.From, e.To)
}

// BeginLoad starts a load cycle. Valid only from Unloaded.
func (r *Region) BeginLoad() error {
	if r.state != StateUnloaded {
		return &TransitionError{ID: r.ID, From: r.state, To: StateLoading}
	}
	r.state = StateLoading
	return nil
}

// Retry re-attempts a failed load. Valid only from Error.
func (r *Region) Retry() error {
	if r.state != StateError {
		return &TransitionError{ID: r.ID, From: r.state, To: StateLoading}
	}
	r.state = StateLoading
	r.attempted = nil
	return nil
}

// ForceReload discards cached content and starts a fresh load cycle.
// Normal navigation never takes this path; it exists for authoring.
// When resetPath is true the remembered winning path is dropped too, so
// the next fetch walks the full candidate list again.
func (r *Region) ForceReload(resetPath bool) error {
	if r.state != StateLoaded {
		return &TransitionError{ID: r.ID, From: r.state, To: StateLoading}
	}
	r.state = StateLoading
	r.payload = nil
	if resetPath {
		r.winningPath = ""
	}
	return nil
}

// CompleteLoad records a successful fetch. Valid only from Loading; the
// payload is set at most once per load cycle.
func (r *Region) CompleteLoad(p *Payload, winningPath string) error {
	if r.state != StateLoading {
		return &TransitionError{ID: r.ID, From: r.state, To: StateLoaded}
	}
	if r.payload != nil {
		return fmt.Errorf("region %s: payload already set in this load cycle", r.ID)
	}
	r.state = StateLoaded
	r.payload = p
	r.winningPath = winningPath
	r.attempted = nil

	// Content may declare scenes beyond the manifest's.
	if p != nil && p.Doc != nil {
		for _, id := range p.Doc.SceneIDs() {
			if !containsString(r.SceneIDs, id) {
				r.SceneIDs = append(r.SceneIDs, id)
			}
		}
	}
	return nil
}

// FailLoad records candidate exhaustion. Valid only from Loading.
func (r *Region) FailLoad(attempted []string) error {
	if r.state != StateLoading {
		return &TransitionError{ID: r.ID, From: r.state, To: StateError}
	}
	r.state = StateError
	r.attempted = append([]string(nil), attempted...)
	return nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
