// Package content defines the region content document: the JSON payload
// fetched per region, its schema validation, and markup rendering.
package content

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// SectionType classifies a content section.
type SectionType string

const (
	SectionIntroduction  SectionType = "introduction"
	SectionTheory        SectionType = "theory"
	SectionExample       SectionType = "example"
	SectionProblem       SectionType = "problem"
	SectionVisualization SectionType = "visualization"
	SectionSummary       SectionType = "summary"
)

// Document is the top-level region content payload.
type Document struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Sections []Section `json:"sections"`
}

// Section is one block of a region document.
type Section struct {
	ID       string      `json:"id"`
	Type     SectionType `json:"type"`
	Title    string      `json:"title"`
	Content  string      `json:"content"`
	Solution string      `json:"solution,omitempty"`
	// Visualization describes the embedded scene for visualization
	// sections; the scene registry consumes it.
	Visualization *Visualization `json:"visualization_data,omitempty"`
}

// Visualization describes an embedded interactive scene.
type Visualization struct {
	ID       string    `json:"id"`
	Type     string    `json:"type"`
	Controls []Control `json:"controls"`
}

// Control is one interactive parameter exposed by a scene.
type Control struct {
	ID      string      `json:"id"`
	Label   string      `json:"label"`
	Type    string      `json:"type"` // slider, checkbox or button
	Min     float64     `json:"min,omitempty"`
	Max     float64     `json:"max,omitempty"`
	Step    float64     `json:"step,omitempty"`
	Default interface{} `json:"default,omitempty"`
}

// documentSchema is the JSON Schema every region payload must satisfy.
const documentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["id", "title", "sections"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "title": {"type": "string", "minLength": 1},
    "sections": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "type", "title", "content"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "type": {"enum": ["introduction", "theory", "example", "problem", "visualization", "summary"]},
          "title": {"type": "string"},
          "content": {"type": "string"},
          "solution": {"type": "string"},
          "visualization_data": {
            "type": "object",
            "required": ["id", "type"],
            "properties": {
              "id": {"type": "string", "minLength": 1},
              "type": {"type": "string", "minLength": 1},
              "controls": {
                "type": "array",
                "items": {
                  "type": "object",
                  "required": ["id", "label", "type"],
                  "properties": {
                    "id": {"type": "string", "minLength": 1},
                    "label": {"type": "string"},
                    "type": {"enum": ["slider", "checkbox", "button"]},
                    "min": {"type": "number"},
                    "max": {"type": "number"},
                    "step": {"type": "number"}
                  }
                }
              }
            }
          }
        }
      }
    }
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(documentSchema)

// Parse validates raw region content against the document schema and
// decodes it. A schema violation is reported with the failing fields so
// authors can locate the problem.
func Parse(raw []byte) (*Document, error) {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("validating content: %w", err)
	}
	if !result.Valid() {
		var fields []string
		for _, desc := range result.Errors() {
			fields = append(fields, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
		}
		return nil, fmt.Errorf("content failed schema validation: %s", strings.Join(fields, "; "))
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decoding content: %w", err)
	}
	return &doc, nil
}

// SceneIDs returns the visualization scene ids declared by the document,
// in section order.
func (d *Document) SceneIDs() []string {
	var ids []string
	for _, s := range d.Sections {
		if s.Visualization != nil {
			ids = append(ids, s.Visualization.ID)
		}
	}
	return ids
}
