package region

import (
	"errors"
	"fmt"

	"scrolldoc/internal/manifest"
)

// ErrNotFound reports a region id absent from the manifest.
var ErrNotFound = errors.New("region not found")

// Registry owns every region for a document session, in document order.
// Regions are created once at composition time and persist for the life
// of the session. The registry is not safe for concurrent use; the engine
// event loop is its single owner.
type Registry struct {
	ordered []*Region
	byID    map[string]*Region
}

// NewRegistry composes regions from the manifest.
func NewRegistry(m *manifest.Manifest) *Registry {
	reg := &Registry{byID: make(map[string]*Region, len(m.Regions))}
	for _, e := range m.Regions {
		r := New(e.ID, e.Title, e.SourceTemplate(), e.Legacy(), e.Scenes)
		reg.ordered = append(reg.ordered, r)
		reg.byID[e.ID] = r
	}
	return reg
}

// Get returns the region for id.
func (reg *Registry) Get(id string) (*Region, error) {
	r, ok := reg.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return r, nil
}

// All returns regions in document order. Callers must not mutate the slice.
func (reg *Registry) All() []*Region { return reg.ordered }

// Index returns the document-order position of id, or -1.
func (reg *Registry) Index(id string) int {
	for i, r := range reg.ordered {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// First returns the default region.
func (reg *Registry) First() *Region { return reg.ordered[0] }

// Len returns the region count.
func (reg *Registry) Len() int { return len(reg.ordered) }
