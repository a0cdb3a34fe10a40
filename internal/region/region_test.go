package region

import (
	"errors"
	"testing"

	"scrolldoc/internal/content"
)

func newTestRegion() *Region {
	return New("pendulum", "The Pendulum", "content/pendulum.json", false, []string{"pendulum-basic"})
}

func TestHappyPath(t *testing.T) {
	r := newTestRegion()
	if r.State() != StateUnloaded {
		t.Fatalf("initial state: got %s", r.State())
	}

	if err := r.BeginLoad(); err != nil {
		t.Fatalf("BeginLoad: %v", err)
	}
	if r.State() != StateLoading {
		t.Fatalf("after BeginLoad: got %s", r.State())
	}

	p := &Payload{Doc: &content.RenderedDocument{ID: "pendulum"}}
	if err := r.CompleteLoad(p, "/content/pendulum.json"); err != nil {
		t.Fatalf("CompleteLoad: %v", err)
	}
	if r.State() != StateLoaded {
		t.Fatalf("after CompleteLoad: got %s", r.State())
	}
	if r.Payload() != p {
		t.Error("payload not cached")
	}
	if r.WinningPath() != "/content/pendulum.json" {
		t.Errorf("winning path: got %q", r.WinningPath())
	}
}

func TestFailureAndRetry(t *testing.T) {
	r := newTestRegion()
	if err := r.BeginLoad(); err != nil {
		t.Fatalf("BeginLoad: %v", err)
	}

	attempted := []string{"./a", "/a", "a"}
	if err := r.FailLoad(attempted); err != nil {
		t.Fatalf("FailLoad: %v", err)
	}
	if r.State() != StateError {
		t.Fatalf("after FailLoad: got %s", r.State())
	}
	if len(r.AttemptedPaths()) != 3 {
		t.Errorf("attempted paths: got %v", r.AttemptedPaths())
	}

	if err := r.Retry(); err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if r.State() != StateLoading {
		t.Fatalf("after Retry: got %s", r.State())
	}
	if r.AttemptedPaths() != nil {
		t.Error("retry should clear attempted paths")
	}
}

func TestIllegalTransitions(t *testing.T) {
	tests := []struct {
		name string
		run  func(r *Region) error
	}{
		{"complete before load", func(r *Region) error { return r.CompleteLoad(&Payload{}, "p") }},
		{"fail before load", func(r *Region) error { return r.FailLoad(nil) }},
		{"retry from unloaded", func(r *Region) error { return r.Retry() }},
		{"force reload from unloaded", func(r *Region) error { return r.ForceReload(false) }},
		{"double begin", func(r *Region) error {
			if err := r.BeginLoad(); err != nil {
				return err
			}
			return r.BeginLoad()
		}},
		{"retry while loading", func(r *Region) error {
			if err := r.BeginLoad(); err != nil {
				return err
			}
			return r.Retry()
		}},
		{"begin after loaded", func(r *Region) error {
			if err := r.BeginLoad(); err != nil {
				return err
			}
			if err := r.CompleteLoad(&Payload{}, "p"); err != nil {
				return err
			}
			return r.BeginLoad()
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run(newTestRegion())
			var te *TransitionError
			if !errors.As(err, &te) {
				t.Errorf("expected TransitionError, got %v", err)
			}
		})
	}
}

func TestForceReload(t *testing.T) {
	r := newTestRegion()
	_ = r.BeginLoad()
	_ = r.CompleteLoad(&Payload{Doc: &content.RenderedDocument{ID: "pendulum"}}, "/content/pendulum.json")

	if err := r.ForceReload(false); err != nil {
		t.Fatalf("ForceReload: %v", err)
	}
	if r.State() != StateLoading {
		t.Fatalf("after ForceReload: got %s", r.State())
	}
	if r.Payload() != nil {
		t.Error("force reload should drop cached payload")
	}
	if r.WinningPath() != "/content/pendulum.json" {
		t.Error("plain force reload should keep the winning path")
	}

	_ = r.CompleteLoad(&Payload{}, "/content/pendulum.json")
	if err := r.ForceReload(true); err != nil {
		t.Fatalf("ForceReload(reset): %v", err)
	}
	if r.WinningPath() != "" {
		t.Error("reset force reload should drop the winning path")
	}
}

func TestPayloadSetOncePerCycle(t *testing.T) {
	r := newTestRegion()
	_ = r.BeginLoad()
	if err := r.CompleteLoad(&Payload{}, "p1"); err != nil {
		t.Fatalf("CompleteLoad: %v", err)
	}
	if err := r.CompleteLoad(&Payload{}, "p2"); err == nil {
		t.Fatal("second CompleteLoad in a cycle should fail")
	}
}

func TestContentScenesMerged(t *testing.T) {
	r := newTestRegion()
	_ = r.BeginLoad()
	doc := &content.RenderedDocument{
		ID: "pendulum",
		Sections: []content.RenderedSection{
			{ID: "viz", Type: content.SectionVisualization, Visualization: &content.Visualization{ID: "pendulum-damped", Type: "pendulum"}},
		},
	}
	if err := r.CompleteLoad(&Payload{Doc: doc}, "p"); err != nil {
		t.Fatalf("CompleteLoad: %v", err)
	}
	want := []string{"pendulum-basic", "pendulum-damped"}
	if len(r.SceneIDs) != len(want) {
		t.Fatalf("scene ids: got %v, want %v", r.SceneIDs, want)
	}
	for i := range want {
		if r.SceneIDs[i] != want[i] {
			t.Errorf("scene ids[%d]: got %q, want %q", i, r.SceneIDs[i], want[i])
		}
	}
}
