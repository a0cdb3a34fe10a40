package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleManifest = `title: Waves and Oscillations
regions:
  - id: intro
    title: Introduction
  - id: pendulum
    title: The Pendulum
    scenes: [pendulum-basic, pendulum-damped]
  - id: appendix
    title: Appendix
    source: content/legacy/appendix.html
`

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "manifest.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing manifest: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	m, err := Load(writeManifest(t, sampleManifest))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Title != "Waves and Oscillations" {
		t.Errorf("title: got %q", m.Title)
	}
	if len(m.Regions) != 3 {
		t.Fatalf("expected 3 regions, got %d", len(m.Regions))
	}
	if m.First() != "intro" {
		t.Errorf("First: got %q, want intro", m.First())
	}

	e, ok := m.Entry("pendulum")
	if !ok {
		t.Fatal("Entry(pendulum) not found")
	}
	if len(e.Scenes) != 2 {
		t.Errorf("pendulum scenes: got %d, want 2", len(e.Scenes))
	}
	if e.SourceTemplate() != "content/pendulum.json" {
		t.Errorf("default source: got %q", e.SourceTemplate())
	}
	if e.Legacy() {
		t.Error("pendulum should not be legacy")
	}
}

func TestLegacyEntry(t *testing.T) {
	m, err := Load(writeManifest(t, sampleManifest))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	e, _ := m.Entry("appendix")
	if !e.Legacy() {
		t.Error("appendix should be legacy")
	}
	if e.SourceTemplate() != "content/legacy/appendix.html" {
		t.Errorf("explicit source: got %q", e.SourceTemplate())
	}
}

func TestIndexOrder(t *testing.T) {
	m, err := Load(writeManifest(t, sampleManifest))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	for i, id := range []string{"intro", "pendulum", "appendix"} {
		if m.Index(id) != i {
			t.Errorf("Index(%q) = %d, want %d", id, m.Index(id), i)
		}
	}
	if m.Index("missing") != -1 {
		t.Errorf("Index(missing) = %d, want -1", m.Index("missing"))
	}
}

func TestLoadRejectsDuplicates(t *testing.T) {
	_, err := Load(writeManifest(t, "regions:\n  - id: a\n  - id: a\n"))
	if err == nil {
		t.Fatal("expected error for duplicate region id")
	}
}

func TestLoadRejectsEmpty(t *testing.T) {
	_, err := Load(writeManifest(t, "title: empty\n"))
	if err == nil {
		t.Fatal("expected error for manifest without regions")
	}
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"02-pendulum.json", "01-intro.json", "03-appendix.html"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}

	m, err := Discover(dir)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if len(m.Regions) != 3 {
		t.Fatalf("expected 3 regions, got %d", len(m.Regions))
	}
	if m.First() != "01-intro" {
		t.Errorf("First: got %q, want 01-intro", m.First())
	}
	e, _ := m.Entry("02-pendulum")
	if e.Title != "Pendulum" {
		t.Errorf("derived title: got %q, want Pendulum", e.Title)
	}
	last, _ := m.Entry("03-appendix")
	if !last.Legacy() {
		t.Error("html discovery should yield a legacy entry")
	}
}

func TestDiscoverEmptyDir(t *testing.T) {
	if _, err := Discover(t.TempDir()); err == nil {
		t.Fatal("expected error for empty content dir")
	}
}
