package mcpserver

// WorkflowContract describes how a workflow is built with the editor tools
// and what the stored record looks like.
const WorkflowContract = `# Graphflow Workflow Contract

A workflow is a directed graph drawn on a canvas and stored as a
Transformation record.

## Node kinds

- **source**: a registered graph. Its id is the graph resource id
  (e.g. ` + "`default/Graph/reviews`" + `). Place one with ` + "`add_input`" + `.
- **procedure**: a graph algorithm or a tabular step. Its id is
  ` + "`<upstream id>/<procedure key>`" + `.
- **sink**: the export step. Its id is ` + "`<upstream id>/export`" + `.

Every non-source node has exactly one edge from its upstream node.
Dropping a procedure whose id already exists only moves that node.

## Building a workflow

1. ` + "`list_inputs`" + ` then ` + "`add_input`" + ` to place a graph.
2. ` + "`list_procedures`" + ` on a node to see what can follow it.
3. ` + "`drop_procedure`" + ` to add the next node.
4. ` + "`configure_node`" + ` with a JSON object of field values. Field names are
   ` + "`section.key`" + `, e.g. ` + "`output_feature.target_vertex`" + `.
   Source nodes take no configuration.
5. ` + "`save_workflow`" + `. New workflows are named ` + "`WORKFLOW<epoch ms>`" + `;
   a loaded workflow keeps its name.

## Exports

Each sink whose upstream node has both ` + "`output_feature.target_vertex`" + ` and
` + "`output_feature.feature_name(s)`" + ` configured exports one field per feature
name: ` + "`default/Field/<lowercased target vertex>/<feature name>`" + `.

## Record

` + "```" + `json
{
  "name": "WORKFLOW1700000000000",
  "variant": {"Default": []},
  "description": "",
  "owners": ["Ofnil"],
  "tags": {},
  "export_resources": [[2, "default/Field/product/pr"]],
  "source_field_ids": [],
  "body": "{\"configs\":{...},\"flow\":{\"nodes\":[...],\"edges\":[...],\"viewport\":{...}}}"
}
` + "```" + `
`
