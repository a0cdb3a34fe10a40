// Package history mirrors the active region into the address fragment
// and turns back/forward fragments into activation requests. The engine
// is the single writer; the client applies fragment changes verbatim.
package history

// Synchronizer tracks the canonical fragment for the session.
type Synchronizer struct {
	defaultID string
	fragment  string
}

// New creates a synchronizer; defaultID is the region an absent fragment
// resolves to.
func New(defaultID string) *Synchronizer {
	return &Synchronizer{defaultID: defaultID}
}

// Fragment returns the current canonical fragment, empty before the
// first activation.
func (s *Synchronizer) Fragment() string { return s.fragment }

// Apply reflects a new active region into the fragment. It returns false
// when the fragment already names the target, so callers skip pushing a
// duplicate history entry.
func (s *Synchronizer) Apply(activeID string) bool {
	if s.fragment == activeID {
		return false
	}
	s.fragment = activeID
	return true
}

// Resolve maps a fragment from the address bar (or a history pop) to a
// region id. An empty fragment means the document's first region.
func (s *Synchronizer) Resolve(fragment string) string {
	if fragment == "" {
		return s.defaultID
	}
	return fragment
}

// Restore seeds the fragment on a back/forward pop without signalling a
// change, keeping later Apply dup-checks honest.
func (s *Synchronizer) Restore(fragment string) {
	s.fragment = fragment
}
