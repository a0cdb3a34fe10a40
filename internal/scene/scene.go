// Package scene manages the lifecycle of embedded visualization scenes.
// A scene is owned by exactly one region, created lazily once that region
// is loaded and visible, and disposed when the region moves far
// off-screen. The rendering internals live behind the Renderer contract;
// this package only decides when they run.
package scene

import (
	"fmt"
	"log"

	"github.com/google/uuid"

	"scrolldoc/internal/content"
)

// Context carries everything a renderer needs to set itself up.
type Context struct {
	SceneID     string
	RegionID    string
	ContainerID string
	// Descriptor is the visualization_data block from the region
	// content, nil for scenes declared only in the manifest.
	Descriptor *content.Visualization
	Width      int
	Height     int
}

// Renderer is the capability contract for an embedded scene. Hosts that
// cannot resize or have nothing to dispose embed NoopRenderer instead of
// relying on presence checks.
type Renderer interface {
	Init(ctx Context) error
	Resize(width, height int)
	Dispose()
}

// NoopRenderer is a Renderer that does nothing. Embed it to opt out of
// the parts of the contract a host does not need.
type NoopRenderer struct{}

func (NoopRenderer) Init(Context) error { return nil }
func (NoopRenderer) Resize(int, int)    {}
func (NoopRenderer) Dispose()           {}

// Factory builds a renderer for one scene type ("pendulum", "spring"...).
type Factory func() Renderer

// instance is one live scene.
type instance struct {
	instanceID string
	regionID   string
	renderer   Renderer
	ctx        Context
}

// Registry tracks live scenes. It is driven solely by the engine event
// loop and is not safe for concurrent use.
type Registry struct {
	factories map[string]Factory
	fallback  Factory
	active    map[string]*instance
	width     int
	height    int
}

// NewRegistry creates a registry with per-type factories. Types without
// a factory fall back to a no-op renderer so a missing rendering
// capability degrades instead of failing the region.
func NewRegistry(factories map[string]Factory) *Registry {
	if factories == nil {
		factories = map[string]Factory{}
	}
	return &Registry{
		factories: factories,
		fallback:  func() Renderer { return NoopRenderer{} },
		active:    map[string]*instance{},
	}
}

// SetViewport records the viewport size used for new scenes.
func (r *Registry) SetViewport(width, height int) {
	r.width = width
	r.height = height
}

// Ensure creates the scene if it is not already live. The caller (the
// engine) guarantees the owning region is Loaded and visible before
// calling. It returns the container id the client should mount, and
// whether a new instance was created. An init error leaves no instance
// behind; the owning region is unaffected.
func (r *Registry) Ensure(regionID, sceneID string, desc *content.Visualization) (containerID string, created bool, err error) {
	containerID = ContainerID(sceneID)
	if _, ok := r.active[sceneID]; ok {
		return containerID, false, nil
	}

	sceneType := ""
	if desc != nil {
		sceneType = desc.Type
	}
	factory, ok := r.factories[sceneType]
	if !ok {
		factory = r.fallback
	}

	inst := &instance{
		instanceID: uuid.NewString(),
		regionID:   regionID,
		renderer:   factory(),
		ctx: Context{
			SceneID:     sceneID,
			RegionID:    regionID,
			ContainerID: containerID,
			Descriptor:  desc,
			Width:       r.width,
			Height:      r.height,
		},
	}
	if err := inst.renderer.Init(inst.ctx); err != nil {
		return containerID, false, fmt.Errorf("initializing scene %s: %w", sceneID, err)
	}

	r.active[sceneID] = inst
	log.Printf("scene: created %s (instance %s) for region %s", sceneID, inst.instanceID, regionID)
	return containerID, true, nil
}

// Release disposes one scene's renderer resources.
func (r *Registry) Release(sceneID string) {
	inst, ok := r.active[sceneID]
	if !ok {
		return
	}
	inst.renderer.Dispose()
	delete(r.active, sceneID)
	log.Printf("scene: released %s for region %s", sceneID, inst.regionID)
}

// ReleaseRegion disposes every scene owned by a region. Regions far
// off-screen shed their scenes this way to bound memory over a long
// document; a scene never outlives its owning region.
func (r *Registry) ReleaseRegion(regionID string) {
	for id, inst := range r.active {
		if inst.regionID == regionID {
			inst.renderer.Dispose()
			delete(r.active, id)
		}
	}
}

// Resize recomputes projection parameters for every live scene on a
// viewport size change.
func (r *Registry) Resize(width, height int) {
	r.width = width
	r.height = height
	for _, inst := range r.active {
		inst.renderer.Resize(width, height)
	}
}

// Live reports whether a scene is currently instantiated.
func (r *Registry) Live(sceneID string) bool {
	_, ok := r.active[sceneID]
	return ok
}

// Count returns the number of live scenes.
func (r *Registry) Count() int { return len(r.active) }

// Close disposes everything, for engine teardown.
func (r *Registry) Close() {
	for id, inst := range r.active {
		inst.renderer.Dispose()
		delete(r.active, id)
	}
}

// ContainerID is the DOM container naming convention for a scene.
func ContainerID(sceneID string) string {
	return "viz-" + sceneID
}
