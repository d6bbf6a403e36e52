package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/graphflow/internal/api"
	"github.com/starford/graphflow/internal/backend"
	"github.com/starford/graphflow/internal/editor"
	"github.com/starford/graphflow/internal/graph"
	"github.com/starford/graphflow/internal/testutil"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	reg := testutil.TestRegistry(t, testutil.Reviews())
	url := testutil.Serve(t, api.NewRouter(reg, nil, false, "", nil))
	mgr := editor.NewManager(backend.New(url, backend.WithLogger(testutil.QuietLogger())), testutil.QuietLogger())
	return New(mgr, "test")
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// Handlers are called directly; mcp-go has no in-process call helper.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_inputs":
		result, err = srv.listInputs(ctx, req)
	case "add_input":
		result, err = srv.addInput(ctx, req)
	case "list_procedures":
		result, err = srv.listProcedures(ctx, req)
	case "drop_procedure":
		result, err = srv.dropProcedure(ctx, req)
	case "configure_node":
		result, err = srv.configureNode(ctx, req)
	case "get_snapshot":
		result, err = srv.getSnapshot(ctx, req)
	case "save_workflow":
		result, err = srv.saveWorkflow(ctx, req)
	case "load_workflow":
		result, err = srv.loadWorkflow(ctx, req)
	case "list_workflows":
		result, err = srv.listWorkflows(ctx, req)
	case "get_workflow_contract":
		result, err = srv.getWorkflowContract(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestListAndAddInput(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "list_inputs", map[string]any{})
	var inputs []graph.Input
	if err := json.Unmarshal([]byte(resultText(r)), &inputs); err != nil {
		t.Fatalf("inputs: %v (%s)", err, resultText(r))
	}
	if len(inputs) != 1 || inputs[0].ID != "default/Graph/reviews" || inputs[0].InUse {
		t.Fatalf("inputs = %+v", inputs)
	}

	r = callTool(t, srv, "add_input", map[string]any{"id": "default/Graph/reviews", "x": 10.0, "y": 20.0})
	if text := resultText(r); text != "added: default/Graph/reviews" {
		t.Errorf("add result = %q", text)
	}
	r = callTool(t, srv, "add_input", map[string]any{"id": "default/Graph/reviews"})
	if !r.IsError {
		t.Error("expected error for second add")
	}
}

func TestDropPlacesNodeAtCanvasPosition(t *testing.T) {
	srv := testServer(t)
	callTool(t, srv, "add_input", map[string]any{"id": "default/Graph/reviews"})

	sess, err := srv.current(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	sess.SetViewport(graph.Viewport{X: 35, Y: -12, Zoom: 2})

	r := callTool(t, srv, "drop_procedure", map[string]any{"upstream": "default/Graph/reviews", "key": "page_rank", "x": 120.0, "y": 40.0})
	if r.IsError {
		t.Fatalf("drop = %q", resultText(r))
	}
	callTool(t, srv, "drop_procedure", map[string]any{"upstream": "default/Graph/reviews/page_rank", "key": "export", "x": 0.0, "y": 0.0})

	want := map[string]graph.Position{
		"default/Graph/reviews/page_rank":        {X: 120, Y: 40},
		"default/Graph/reviews/page_rank/export": {X: 0, Y: 0},
	}
	for _, n := range sess.Snapshot().Nodes {
		if pos, ok := want[n.ID]; ok && n.Position != pos {
			t.Errorf("%s at %+v, want %+v", n.ID, n.Position, pos)
		}
	}
}

func TestBuildConfigureSaveLoad(t *testing.T) {
	srv := testServer(t)
	callTool(t, srv, "add_input", map[string]any{"id": "default/Graph/reviews"})

	r := callTool(t, srv, "list_procedures", map[string]any{"node": "default/Graph/reviews"})
	if !strings.Contains(resultText(r), `"page_rank"`) {
		t.Fatalf("procedures = %s", resultText(r))
	}

	r = callTool(t, srv, "drop_procedure", map[string]any{"upstream": "default/Graph/reviews", "key": "page_rank", "x": 200.0, "y": 0.0})
	if text := resultText(r); text != "created: default/Graph/reviews/page_rank" {
		t.Fatalf("drop = %q", text)
	}
	r = callTool(t, srv, "drop_procedure", map[string]any{"upstream": "default/Graph/reviews", "key": "page_rank", "x": 250.0, "y": 0.0})
	if text := resultText(r); text != "moved: default/Graph/reviews/page_rank" {
		t.Errorf("second drop = %q", text)
	}
	r = callTool(t, srv, "drop_procedure", map[string]any{"upstream": "default/Graph/reviews/page_rank", "key": "export", "x": 400.0, "y": 0.0})
	if text := resultText(r); text != "created: default/Graph/reviews/page_rank/export" {
		t.Fatalf("export drop = %q", text)
	}

	r = callTool(t, srv, "configure_node", map[string]any{"node": "default/Graph/reviews/page_rank", "values": `{}`})
	if !r.IsError || !strings.Contains(resultText(r), "graph_projection.vertices") {
		t.Fatalf("incomplete configure = %q", resultText(r))
	}
	r = callTool(t, srv, "configure_node", map[string]any{
		"node": "default/Graph/reviews/page_rank",
		"values": `{"graph_projection.vertices":["Product"],"graph_projection.edges":["rates"],` +
			`"output_feature.feature_name(s)":["pr"]}`,
	})
	if r.IsError {
		t.Fatalf("configure = %q", resultText(r))
	}

	r = callTool(t, srv, "save_workflow", map[string]any{})
	text := resultText(r)
	if r.IsError || !strings.HasPrefix(text, "saved: default/Transformation/WORKFLOW") {
		t.Fatalf("save = %q", text)
	}
	id := strings.TrimPrefix(text, "saved: ")

	r = callTool(t, srv, "list_workflows", map[string]any{})
	if got := resultText(r); got != id {
		t.Errorf("workflows = %q, want %q", got, id)
	}

	r = callTool(t, srv, "load_workflow", map[string]any{"id": id})
	if got := resultText(r); got != "loaded: "+id+" (3 nodes)" {
		t.Errorf("load = %q", got)
	}
}

func TestConfigureSourceRejected(t *testing.T) {
	srv := testServer(t)
	callTool(t, srv, "add_input", map[string]any{"id": "default/Graph/reviews"})
	r := callTool(t, srv, "configure_node", map[string]any{"node": "default/Graph/reviews", "values": `{}`})
	if !r.IsError {
		t.Error("expected error configuring a source")
	}
}

func TestConfigureBadJSON(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "configure_node", map[string]any{"node": "x", "values": `[1`})
	if !r.IsError {
		t.Error("expected error for malformed values")
	}
}

func TestLoadMissingWorkflow(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "load_workflow", map[string]any{"id": "default/Transformation/nope"})
	if !r.IsError {
		t.Error("expected error for missing workflow")
	}
}

func TestWorkflowContract(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "get_workflow_contract", map[string]any{})
	if !strings.Contains(resultText(r), "default/Field/") {
		t.Error("contract does not describe exports")
	}
}
