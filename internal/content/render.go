package content

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
)

// Renderer converts section markup to HTML for the viewer shell.
type Renderer struct {
	md goldmark.Markdown
}

// NewRenderer initializes goldmark with the extensions the viewer relies on.
func NewRenderer() *Renderer {
	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				highlighting.NewHighlighting(
					highlighting.WithStyle("github"),
				),
			),
			goldmark.WithParserOptions(
				parser.WithAutoHeadingID(),
			),
			goldmark.WithRendererOptions(
				htmlrenderer.WithUnsafe(),
			),
		),
	}
}

// RenderedSection is a section with its markup converted to HTML.
type RenderedSection struct {
	ID            string         `json:"id"`
	Type          SectionType    `json:"type"`
	Title         string         `json:"title"`
	HTML          string         `json:"html"`
	SolutionHTML  string         `json:"solution_html,omitempty"`
	Visualization *Visualization `json:"visualization_data,omitempty"`
}

// RenderedDocument is the viewer-facing form of a region document.
type RenderedDocument struct {
	ID       string            `json:"id"`
	Title    string            `json:"title"`
	Sections []RenderedSection `json:"sections"`
}

// Render converts every section's markup (and solution, if present) to HTML.
func (r *Renderer) Render(doc *Document) (*RenderedDocument, error) {
	out := &RenderedDocument{ID: doc.ID, Title: doc.Title}
	for _, s := range doc.Sections {
		body, err := r.renderMarkup(s.Content)
		if err != nil {
			return nil, fmt.Errorf("rendering section %s: %w", s.ID, err)
		}
		rs := RenderedSection{
			ID:            s.ID,
			Type:          s.Type,
			Title:         s.Title,
			HTML:          body,
			Visualization: s.Visualization,
		}
		if s.Solution != "" {
			sol, err := r.renderMarkup(s.Solution)
			if err != nil {
				return nil, fmt.Errorf("rendering solution for section %s: %w", s.ID, err)
			}
			rs.SolutionHTML = sol
		}
		out.Sections = append(out.Sections, rs)
	}
	return out, nil
}

// SceneIDs returns the visualization scene ids declared by the rendered
// document, in section order.
func (d *RenderedDocument) SceneIDs() []string {
	var ids []string
	for _, s := range d.Sections {
		if s.Visualization != nil {
			ids = append(ids, s.Visualization.ID)
		}
	}
	return ids
}

func (r *Renderer) renderMarkup(src string) (string, error) {
	// Content authored as raw HTML passes through untouched; markdown
	// payloads are converted.
	if looksLikeHTML(src) {
		return src, nil
	}
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// looksLikeHTML reports whether the payload starts with a markup tag.
func looksLikeHTML(s string) bool {
	t := strings.TrimSpace(s)
	return strings.HasPrefix(t, "<") && strings.Contains(t, ">")
}

// Placeholder returns the HTML shown in a scene container when the scene
// could not be initialized. Region load still succeeds around it.
func Placeholder(sceneID, reason string) string {
	return fmt.Sprintf(
		`<div class="scene-placeholder" data-scene=%q>Visualization unavailable: %s</div>`,
		sceneID, html.EscapeString(reason),
	)
}
