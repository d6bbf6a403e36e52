// Package models defines the graph-source descriptor types shared by storage,
// parser and the registry.
package models

import "time"

// DefaultVariant is the display form of the default variant.
const DefaultVariant = "default"

// GraphSource describes a registered graph that editor sessions can place on
// the canvas as an input.
type GraphSource struct {
	Name         string   `yaml:"name" json:"name"`
	Variant      string   `yaml:"variant,omitempty" json:"variant,omitempty"`
	Description  string   `yaml:"description,omitempty" json:"description"`
	Owners       []string `yaml:"owners,omitempty" json:"owners"`
	Infra        string   `yaml:"infra,omitempty" json:"infra,omitempty"`
	VertexLabels []string `yaml:"vertex_labels,omitempty" json:"vertex_labels"`
	EdgeLabels   []string `yaml:"edge_labels,omitempty" json:"edge_labels"`
}

// ResourceID returns "<variant>/Graph/<name>".
func (g *GraphSource) ResourceID() string {
	v := g.Variant
	if v == "" {
		v = DefaultVariant
	}
	return v + "/Graph/" + g.Name
}

// SourceMetadata is a lightweight representation returned by list operations.
// Name is the file name without extension, which is the graph name when the
// descriptor does not set one.
type SourceMetadata struct {
	Path      string    `json:"path"`
	Name      string    `json:"name"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
