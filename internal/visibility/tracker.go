// Package visibility computes which region is the current "active" one
// from on-screen area reports. Intersection reports from the client are
// the primary signal; a throttled scroll-position scan over the known
// region geometry acts as a fallback cross-check when intersection
// reporting is unavailable or disagrees.
package visibility

import (
	"time"

	"scrolldoc/internal/config"
)

// geometry is a region's document-space extent, used by the fallback scan.
type geometry struct {
	top    float64
	height float64
}

// Tracker holds per-region visible fractions and derives the active
// region. It is driven solely by the engine event loop and is not safe
// for concurrent use.
type Tracker struct {
	order     []string
	pos       map[string]int
	threshold float64
	proximity float64
	crossings []float64
	scanEvery time.Duration
	now       func() time.Time

	fractions map[string]float64
	geom      map[string]geometry
	lastScan  time.Time
}

// New creates a tracker over regions in document order. A nil clock uses
// time.Now.
func New(order []string, cfg config.Tracking, now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	pos := make(map[string]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	return &Tracker{
		order:     append([]string(nil), order...),
		pos:       pos,
		threshold: cfg.ActivationThreshold,
		proximity: cfg.ActivationThreshold - cfg.ProximityMargin,
		crossings: append([]float64(nil), cfg.IntersectionThresholds...),
		scanEvery: cfg.ScanInterval(),
		now:       now,
		fractions: make(map[string]float64),
		geom:      make(map[string]geometry),
	}
}

// Crossings returns the fraction crossings the client should observe at.
// A small fixed set keeps callback volume down without hurting the
// activation ordering.
func (t *Tracker) Crossings() []float64 {
	return append([]float64(nil), t.crossings...)
}

// ReportIntersection records a visible-area fraction for a region, as
// delivered at a threshold crossing. Unknown regions are ignored.
func (t *Tracker) ReportIntersection(id string, fraction float64) {
	if _, ok := t.pos[id]; !ok {
		return
	}
	t.fractions[id] = clamp(fraction)
}

// SetGeometry records a region's document-space extent for the fallback
// scan. The client reports layout once per mount and on reflow.
func (t *Tracker) SetGeometry(id string, top, height float64) {
	if _, ok := t.pos[id]; !ok || height <= 0 {
		return
	}
	t.geom[id] = geometry{top: top, height: height}
}

// ReportScroll runs the fallback scan at the given scroll offset,
// recomputing every region's fraction from geometry. Scans are throttled
// to the configured interval; a throttled call is a no-op and returns
// false.
func (t *Tracker) ReportScroll(scrollTop, viewportHeight float64) bool {
	n := t.now()
	if !t.lastScan.IsZero() && n.Sub(t.lastScan) < t.scanEvery {
		return false
	}
	t.lastScan = n

	if viewportHeight <= 0 {
		return false
	}
	viewTop, viewBottom := scrollTop, scrollTop+viewportHeight
	for id, g := range t.geom {
		top, bottom := g.top, g.top+g.height
		overlap := min(bottom, viewBottom) - max(top, viewTop)
		if overlap < 0 {
			overlap = 0
		}
		t.fractions[id] = overlap / g.height
	}
	return true
}

// Distant returns the regions whose nearest edge is more than
// distance viewport-heights away from the viewport at the given scroll
// offset. Their scenes are safe to release. Regions without geometry are
// never reported distant.
func (t *Tracker) Distant(scrollTop, viewportHeight, distance float64) []string {
	if viewportHeight <= 0 {
		return nil
	}
	limit := distance * viewportHeight
	var out []string
	for _, id := range t.order {
		g, ok := t.geom[id]
		if !ok {
			continue
		}
		gap := 0.0
		switch {
		case g.top+g.height < scrollTop:
			gap = scrollTop - (g.top + g.height)
		case g.top > scrollTop+viewportHeight:
			gap = g.top - (scrollTop + viewportHeight)
		}
		if gap > limit {
			out = append(out, id)
		}
	}
	return out
}

// Fraction returns the last-observed fraction for a region.
func (t *Tracker) Fraction(id string) float64 {
	return t.fractions[id]
}

// CurrentActive returns the region with the greatest visible fraction
// among those at or above the activation threshold. Ties break toward
// the earlier region in document order. The second return is false when
// no region clears the threshold.
func (t *Tracker) CurrentActive() (string, bool) {
	best := ""
	bestFraction := 0.0
	// Walking in document order makes "earlier wins" fall out of the
	// strict > comparison.
	for _, id := range t.order {
		f := t.fractions[id]
		if f < t.threshold {
			continue
		}
		if best == "" || f > bestFraction {
			best = id
			bestFraction = f
		}
	}
	return best, best != ""
}

// InProximity reports whether a region is close enough to visible that
// its content should be prefetched ahead of activation.
func (t *Tracker) InProximity(id string) bool {
	return t.fractions[id] >= t.proximity
}

func clamp(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
