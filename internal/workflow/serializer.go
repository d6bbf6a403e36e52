package workflow

import (
	"fmt"
	"strconv"
	"time"

	"github.com/starford/graphflow/internal/form"
	"github.com/starford/graphflow/internal/graph"
)

// Defaults for generated records.
const (
	DefaultOwner      = "Ofnil"
	DefaultNamePrefix = "WORKFLOW"
)

// Serializer turns canvas state and cached config values into records.
type Serializer struct {
	Owner      string
	NamePrefix string
	Now        func() time.Time
}

// NewSerializer returns a serializer with the placeholder owner and name prefix.
func NewSerializer() *Serializer {
	return &Serializer{Owner: DefaultOwner, NamePrefix: DefaultNamePrefix, Now: time.Now}
}

// DefaultName is NamePrefix followed by the current unix time in milliseconds.
func (s *Serializer) DefaultName() string {
	return s.NamePrefix + strconv.FormatInt(s.Now().UnixMilli(), 10)
}

// Serialize builds the record for snap and cache. An empty name gets DefaultName.
func (s *Serializer) Serialize(name string, snap graph.Snapshot, cache *form.Cache) (*Record, error) {
	if name == "" {
		name = s.DefaultName()
	}
	if snap.Nodes == nil {
		snap.Nodes = []graph.Node{}
	}
	if snap.Edges == nil {
		snap.Edges = []graph.Edge{}
	}
	// Selection is transient UI state.
	for i := range snap.Nodes {
		snap.Nodes[i].Selected = false
	}

	saved := cache.Saved()
	body := &Body{Configs: saved, Flow: &snap}
	text, err := body.Encode()
	if err != nil {
		return nil, err
	}

	rec := &Record{
		Name:        name,
		Variant:     DefaultVariant,
		Description: "",
		Owners:      []string{s.Owner},
		Tags:        map[string]string{},
		ExportResources: ResolveExports(snap.Nodes, func(id string) (map[string]any, bool) {
			v, ok := saved[id]
			return v, ok
		}),
		SourceFieldIDs: []string{},
		Body:           text,
	}
	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("workflow: serialize %q: %w", name, err)
	}
	return rec, nil
}
