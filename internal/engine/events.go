package engine

import (
	"time"

	"scrolldoc/internal/fetcher"
)

// Event is a signal submitted to the engine loop. Events are processed
// strictly in delivery order on the single engine goroutine.
type Event interface {
	isEvent()
}

// IntersectionEvent reports a region's visible-area fraction at a
// threshold crossing.
type IntersectionEvent struct {
	RegionID string
	Fraction float64
}

// GeometryEvent reports a region's document-space extent after mount or
// reflow, feeding the fallback scroll scan.
type GeometryEvent struct {
	RegionID string
	Top      float64
	Height   float64
}

// ScrollEvent reports the scroll offset for the fallback scan and for
// scene release distance checks.
type ScrollEvent struct {
	Top            float64
	ViewportHeight float64
}

// NavigateEvent is a user-initiated (click-driven) navigation to a
// target region. It acquires the navigation lock before the client's
// smooth scroll begins.
type NavigateEvent struct {
	TargetID string
}

// SettledEvent signals that a programmatic navigation's scroll animation
// finished, releasing the lock ahead of its TTL.
type SettledEvent struct {
	TargetID string
}

// HistoryPopEvent is a back/forward navigation carrying the restored
// fragment. It flows through the same locked path as a click.
type HistoryPopEvent struct {
	Fragment string
}

// RetryEvent re-attempts a region stuck in the error state.
type RetryEvent struct {
	RegionID string
}

// ReloadEvent forces a fresh load of an already-loaded region, for
// authoring. ResetPath additionally drops the remembered winning path.
type ReloadEvent struct {
	RegionID  string
	ResetPath bool
}

// ResizeEvent reports a viewport size change for scene projection.
type ResizeEvent struct {
	Width  int
	Height int
}

// fetchDone carries a fetch outcome back onto the engine loop.
type fetchDone struct {
	regionID string
	res      fetcher.Result
}

func (IntersectionEvent) isEvent() {}
func (GeometryEvent) isEvent()     {}
func (ScrollEvent) isEvent()       {}
func (NavigateEvent) isEvent()     {}
func (SettledEvent) isEvent()      {}
func (HistoryPopEvent) isEvent()   {}
func (RetryEvent) isEvent()        {}
func (ReloadEvent) isEvent()       {}
func (ResizeEvent) isEvent()       {}
func (fetchDone) isEvent()         {}

// NotificationType names the events the engine emits to collaborators.
type NotificationType string

const (
	NoteRegionLoaded        NotificationType = "region-loaded"
	NoteRegionFailed        NotificationType = "region-failed"
	NoteVisualizationReady  NotificationType = "visualization-ready"
	NoteVisualizationFailed NotificationType = "visualization-failed"
	NoteActiveChanged       NotificationType = "active-changed"
	NoteFragmentChanged     NotificationType = "fragment-changed"
)

// Notification is one emitted engine event. Collaborators such as the
// sidebar subscribe to these instead of running their own trackers.
type Notification struct {
	Type           NotificationType `json:"type"`
	RegionID       string           `json:"region_id,omitempty"`
	SceneID        string           `json:"scene_id,omitempty"`
	ContainerID    string           `json:"container_id,omitempty"`
	Fragment       string           `json:"fragment,omitempty"`
	AttemptedPaths []string         `json:"attempted_paths,omitempty"`
	Placeholder    string           `json:"placeholder,omitempty"`
	Timestamp      time.Time        `json:"timestamp"`
}
