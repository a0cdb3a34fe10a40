// Package manifest defines the static document manifest: the ordered set
// of content regions composed into the long-scroll document. The manifest
// is read once at startup and is immutable for the life of the session.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// Entry describes one region in document order.
type Entry struct {
	// ID is the stable region key, reflected into the URL fragment.
	ID string `yaml:"id"`
	// Title is the human-readable name shown in the sidebar.
	Title string `yaml:"title"`
	// Source overrides the content location template. Empty means the
	// conventional content/<id>.json.
	Source string `yaml:"source,omitempty"`
	// Scenes lists the visualization scene ids owned by this region.
	Scenes []string `yaml:"scenes,omitempty"`
}

// Legacy reports whether the entry points at a raw HTML fragment rather
// than schema-validated JSON content.
func (e Entry) Legacy() bool {
	return strings.HasSuffix(e.Source, ".html")
}

// SourceTemplate returns the relative content location for the entry.
func (e Entry) SourceTemplate() string {
	if e.Source != "" {
		return e.Source
	}
	return "content/" + e.ID + ".json"
}

// Manifest is the ordered region list plus document metadata.
type Manifest struct {
	Title   string  `yaml:"title"`
	Regions []Entry `yaml:"regions"`

	index map[string]int
}

// Load reads a manifest from a YAML file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	if err := m.build(); err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return &m, nil
}

// Discover builds a manifest by globbing the content directory for region
// files when no manifest file is present. Entries are ordered by filename,
// so authors prefix files with a sortable number to control document order.
func Discover(contentDir string) (*Manifest, error) {
	fsys := os.DirFS(contentDir)
	matches, err := doublestar.Glob(fsys, "**/*.{json,html}")
	if err != nil {
		return nil, fmt.Errorf("globbing %s: %w", contentDir, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no region content found under %s", contentDir)
	}
	sort.Strings(matches)

	m := &Manifest{Title: filepath.Base(contentDir)}
	for _, rel := range matches {
		base := filepath.Base(rel)
		id := strings.TrimSuffix(base, filepath.Ext(base))
		m.Regions = append(m.Regions, Entry{
			ID:     id,
			Title:  titleFromID(id),
			Source: filepath.ToSlash(filepath.Join("content", rel)),
		})
	}
	if err := m.build(); err != nil {
		return nil, err
	}
	return m, nil
}

// build validates entries and constructs the id index.
func (m *Manifest) build() error {
	if len(m.Regions) == 0 {
		return fmt.Errorf("no regions declared")
	}
	m.index = make(map[string]int, len(m.Regions))
	for i, e := range m.Regions {
		if e.ID == "" {
			return fmt.Errorf("region %d: id is required", i)
		}
		if _, dup := m.index[e.ID]; dup {
			return fmt.Errorf("duplicate region id %q", e.ID)
		}
		m.index[e.ID] = i
	}
	return nil
}

// Entry returns the manifest entry for id.
func (m *Manifest) Entry(id string) (Entry, bool) {
	i, ok := m.index[id]
	if !ok {
		return Entry{}, false
	}
	return m.Regions[i], true
}

// Index returns the document-order position of id, or -1 if unknown.
// Earlier positions win visibility tie-breaks.
func (m *Manifest) Index(id string) int {
	i, ok := m.index[id]
	if !ok {
		return -1
	}
	return i
}

// First returns the default region id used when no fragment is present.
func (m *Manifest) First() string {
	return m.Regions[0].ID
}

// titleFromID turns "03-wave-motion" into "Wave Motion".
func titleFromID(id string) string {
	s := strings.TrimLeft(id, "0123456789-_. ")
	if s == "" {
		s = id
	}
	words := strings.FieldsFunc(s, func(r rune) bool { return r == '-' || r == '_' })
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
