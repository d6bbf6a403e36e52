package registry

import (
	"encoding/json"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/starford/graphflow/internal/apperr"
)

// graphAnalyticFuncs are the graph-domain procedure keys served by GET /gaf.
var graphAnalyticFuncs = []string{
	"cypher",
	"aggregate_neighbors",
	"betweenness_centrality",
	"bfs",
	"page_rank",
	"triangle_count",
	"approximate_closeness_centrality",
	"article_rank",
	"closeness_centrality",
	"degree_centrality",
	"eigenvector_centrality",
	"harmonic_centrality",
	"influence_maximization",
	"personalized_page_rank",
	"weighted_degree_centrality",
	"weighted_page_rank",
	"greedy_graph_coloring",
	"k_nearest_neighbors",
	"maximal_independent_set",
	"weakly_connected_components",
	"k_core_decomposition",
	"label_propagation",
	"local_clustering_coefficient",
	"louvain",
	"strongly_connected_components",
	"adamic_adar",
	"common_neighbors",
	"preferential_attachment",
	"resource_allocation",
	"same_community",
	"total_neighbors",
	"a_star",
	"all_pairs_shortest_path",
	"breadth_first_search",
	"cycle_detection",
	"estimated_diameter",
	"maximum_flow",
	"minimum_spanning_forest",
	"minimum_spanning_tree",
	"euclidean_distance",
	"overlap_similarity",
	"pearson_similarity",
}

type params = orderedmap.OrderedMap[string, any]

// builtin describes the tunable parameters of a built-in algorithm. Parameter
// keys are "<label>[,<value type>]"; a null default marks the parameter optional.
type builtin struct {
	name   string
	params func() *params
}

func newParams(kv ...any) *params {
	p := orderedmap.New[string, any]()
	for i := 0; i+1 < len(kv); i += 2 {
		p.Set(kv[i].(string), kv[i+1])
	}
	return p
}

var builtins = map[string]builtin{
	"aggregate_neighbor": {name: "aggregate_neighbor", params: func() *params {
		return newParams("func", "Count", "properties,string[]", []string{})
	}},
	"betweenness_centrality": {name: "betweenness_centrality", params: func() *params {
		return newParams("sampling_size,number", nil, "sampling_seed,number", nil)
	}},
	"page_rank": {name: "page_rank", params: func() *params {
		return newParams("damping_factor", 0.85, "max_iteration", 20, "tolerance", 0.0001)
	}},
	"triangle_count": {name: "triangle_count", params: func() *params {
		return newParams("max_degree,number", nil)
	}},
}

// aliases maps palette keys onto built-in argument sets.
var aliases = map[string]string{
	"aggregate_neighbors": "aggregate_neighbor",
}

// ExportKey is the config target of sink nodes.
const ExportKey = "export"

// Input kinds of a config item.
const (
	inputSelect      = "select"
	inputMultiple    = "multiple"
	inputMultiselect = "multiselect"
)

type configItem struct {
	InputType string `json:"input_type"`
	Key       string `json:"key"`
	Value     any    `json:"value"`
}

// Labels are the vertex and edge labels offered by graph projections.
type Labels struct {
	Vertices []string
	Edges    []string
}

// Catalog serves the procedure list and the per-procedure config schemas.
type Catalog struct {
	infras []string
}

// NewCatalog creates a catalog offering infras as infrastructure choices.
func NewCatalog(infras []string) *Catalog {
	return &Catalog{infras: nonNil(infras)}
}

// Procedures returns the graph-domain procedure keys.
func (c *Catalog) Procedures() []string {
	return append([]string{}, graphAnalyticFuncs...)
}

// Supported reports whether key has a config schema.
func (c *Catalog) Supported(key string) bool {
	if key == ExportKey {
		return true
	}
	_, ok := resolveBuiltin(key)
	return ok
}

func resolveBuiltin(key string) (builtin, bool) {
	if alias, ok := aliases[key]; ok {
		key = alias
	}
	b, ok := builtins[key]
	return b, ok
}

// Schema renders the config schema of procedure key. Members keep the order
// in which forms present them.
func (c *Catalog) Schema(key string, labels Labels) (json.RawMessage, error) {
	root := orderedmap.New[string, any]()

	if key == ExportKey {
		body := orderedmap.New[string, any]()
		body.Set("sink_infra", configItem{InputType: inputSelect, Key: "infra", Value: c.infras})
		root.Set("Export", body)
		return marshal(key, root)
	}

	b, ok := resolveBuiltin(key)
	if !ok {
		return nil, fmt.Errorf("registry: no config schema for %q: %w", key, apperr.ErrNotFound)
	}
	vertices, edges := nonNil(labels.Vertices), nonNil(labels.Edges)

	algorithm := orderedmap.New[string, any]()
	algorithm.Set(b.name, b.params())

	body := orderedmap.New[string, any]()
	body.Set("infra", configItem{InputType: inputSelect, Key: "infra", Value: c.infras})
	body.Set("algorithm", algorithm)
	body.Set("graph_projection", []configItem{
		{InputType: inputMultiselect, Key: "vertices", Value: vertices},
		{InputType: inputMultiselect, Key: "edges", Value: edges},
	})
	body.Set("output_feature", []configItem{
		{InputType: inputSelect, Key: "target_vertex", Value: vertices},
		{InputType: inputMultiple, Key: "feature_name(s)", Value: []string{key}},
	})
	root.Set("VertexFeatureTransformation", body)
	return marshal(key, root)
}

func marshal(key string, v *orderedmap.OrderedMap[string, any]) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("registry: encode schema %q: %w", key, err)
	}
	return data, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
