package workflow

import (
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/starford/graphflow/internal/graph"
)

// Config keys read from the upstream node of a sink.
const (
	FeatureNamesKey = "output_feature.feature_name(s)"
	TargetVertexKey = "output_feature.target_vertex"
)

// FieldPrefix prefixes every exported field id.
const FieldPrefix = "default/Field/"

type outputFeature struct {
	FeatureNames []string `mapstructure:"output_feature.feature_name(s)"`
	TargetVertex string   `mapstructure:"output_feature.target_vertex"`
}

// ConfigLookup returns the saved values of a node.
type ConfigLookup func(nodeID string) (map[string]any, bool)

// ResolveExports walks the sink nodes and derives one export resource per
// output feature name configured on the sink's upstream node. Sinks whose
// upstream was never configured contribute nothing.
func ResolveExports(nodes []graph.Node, lookup ConfigLookup) []ExportResource {
	out := []ExportResource{}
	for i, n := range nodes {
		if n.Type != graph.KindSink {
			continue
		}
		values, ok := lookup(n.Data.Upstream)
		if !ok || len(values) == 0 {
			continue
		}
		var of outputFeature
		if err := mapstructure.WeakDecode(values, &of); err != nil {
			continue
		}
		if len(of.FeatureNames) == 0 || of.TargetVertex == "" {
			continue
		}
		entity := strings.ToLower(of.TargetVertex)
		for _, name := range of.FeatureNames {
			out = append(out, ExportResource{
				NodeIndex:  i,
				ResourceID: FieldPrefix + entity + "/" + name,
			})
		}
	}
	return out
}
