// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the workflow editor as tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/graphflow/internal/dnd"
	"github.com/starford/graphflow/internal/editor"
	"github.com/starford/graphflow/internal/graph"
)

const contractURI = "graphflow://workflow-contract"

// Server wraps the MCP server with the editor tools. All tools act on one
// editor session, opened on first use.
type Server struct {
	mcp *server.MCPServer
	mgr *editor.Manager

	mu      sync.Mutex
	session *editor.Session
}

// New creates a new MCP server with all editor tools registered.
func New(mgr *editor.Manager, version string) *Server {
	s := &Server{mgr: mgr}

	s.mcp = server.NewMCPServer(
		"Graphflow",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_inputs",
		mcp.WithDescription("List registered graphs and whether each is already on the canvas."),
	), s.listInputs)

	s.mcp.AddTool(mcp.NewTool("add_input",
		mcp.WithDescription("Place a registered graph on the canvas as a source node."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Graph resource id (e.g. default/Graph/reviews)")),
		mcp.WithNumber("x", mcp.Description("Canvas x position")),
		mcp.WithNumber("y", mcp.Description("Canvas y position")),
	), s.addInput)

	s.mcp.AddTool(mcp.NewTool("list_procedures",
		mcp.WithDescription("List the procedures that can follow a node."),
		mcp.WithString("node", mcp.Required(), mcp.Description("Node id")),
	), s.listProcedures)

	s.mcp.AddTool(mcp.NewTool("drop_procedure",
		mcp.WithDescription("Add the node created by dragging a procedure out of a node's menu. "+
			"Read the workflow contract first via get_workflow_contract or the "+contractURI+" resource."),
		mcp.WithString("upstream", mcp.Required(), mcp.Description("Id of the node the procedure follows")),
		mcp.WithString("key", mcp.Required(), mcp.Description("Procedure key (e.g. page_rank, select, export)")),
		mcp.WithNumber("x", mcp.Description("Canvas x position of the node")),
		mcp.WithNumber("y", mcp.Description("Canvas y position of the node")),
	), s.dropProcedure)

	s.mcp.AddTool(mcp.NewTool("configure_node",
		mcp.WithDescription("Set and save the configuration of a procedure or sink node."),
		mcp.WithString("node", mcp.Required(), mcp.Description("Node id")),
		mcp.WithString("values", mcp.Required(), mcp.Description("JSON object of field name to value")),
	), s.configureNode)

	s.mcp.AddTool(mcp.NewTool("get_snapshot",
		mcp.WithDescription("Return the canvas nodes, edges and viewport."),
	), s.getSnapshot)

	s.mcp.AddTool(mcp.NewTool("save_workflow",
		mcp.WithDescription("Serialize the canvas and store it as a workflow."),
	), s.saveWorkflow)

	s.mcp.AddTool(mcp.NewTool("load_workflow",
		mcp.WithDescription("Replace the canvas with a stored workflow."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Workflow resource id")),
	), s.loadWorkflow)

	s.mcp.AddTool(mcp.NewTool("list_workflows",
		mcp.WithDescription("List the resource ids of stored workflows."),
	), s.listWorkflows)

	s.mcp.AddTool(mcp.NewTool("get_workflow_contract",
		mcp.WithDescription("Returns the workflow contract. Call this before building a workflow."),
	), s.getWorkflowContract)

	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Workflow Contract",
			mcp.WithResourceDescription("Node kinds, id rules and the stored record format."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContractResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) current(ctx context.Context) (*editor.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		sess, err := s.mgr.Create(ctx, "")
		if err != nil {
			return nil, err
		}
		s.session = sess
	}
	return s.session, nil
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) listInputs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.current(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := sess.LoadInputs(ctx); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(sess.Inputs()), nil
}

func (s *Server) addInput(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sess, err := s.current(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	pos := graph.Position{X: req.GetFloat("x", 0), Y: req.GetFloat("y", 0)}
	n, err := sess.AddInput(id, pos)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("added: %s", n.ID)), nil
}

func (s *Server) listProcedures(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("node")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sess, err := s.current(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	for _, n := range sess.Snapshot().Nodes {
		if n.ID == id {
			return jsonResult(n.Data.ProcedureList), nil
		}
	}
	return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
}

func (s *Server) dropProcedure(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	upstream, err := req.RequireString("upstream")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	key, err := req.RequireString("key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sess, err := s.current(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	pos := graph.Position{X: req.GetFloat("x", 0), Y: req.GetFloat("y", 0)}
	t, err := sess.DragStart(upstream, key, dnd.Point{}, dnd.Rect{})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := sess.Drop(ctx, dnd.DropEvent{Transfer: t})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if res.Ignored {
		return mcp.NewToolResultError("drop ignored"), nil
	}
	// x and y are canvas coordinates, not screen ones: place the node there
	// directly instead of going through the pointer mapping.
	if err := sess.MoveNode(res.NodeID, pos); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !res.Created {
		return mcp.NewToolResultText(fmt.Sprintf("moved: %s", res.NodeID)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", res.NodeID)), nil
}

func (s *Server) configureNode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("node")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := req.RequireString("values")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var values map[string]any
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("values must be a JSON object: %v", err)), nil
	}
	sess, err := s.current(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := sess.OpenConfig(ctx, id); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	for name, v := range values {
		if err := sess.SetConfigValue(name, v); err != nil {
			sess.CancelConfig()
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	saved, err := sess.SaveConfig()
	if err != nil {
		sess.CancelConfig()
		if verr, ok := editor.IsValidation(err); ok {
			return mcp.NewToolResultError(fmt.Sprintf("invalid field %s: %v", verr.Field, verr.Errors[verr.Field])), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(saved), nil
}

func (s *Server) getSnapshot(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.current(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(sess.Snapshot()), nil
}

func (s *Server) saveWorkflow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.current(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := sess.Save(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("saved: %s", res.ResourceID)), nil
}

func (s *Server) loadWorkflow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sess, err := s.current(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := sess.Load(ctx, id); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("loaded: %s (%d nodes)", id, len(sess.Snapshot().Nodes))), nil
}

func (s *Server) listWorkflows(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids, err := s.mgr.Workflows(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(ids) == 0 {
		return mcp.NewToolResultText("no workflows found"), nil
	}
	return mcp.NewToolResultText(strings.Join(ids, "\n")), nil
}

func (s *Server) getWorkflowContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(WorkflowContract), nil
}

func (s *Server) readContractResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     WorkflowContract,
		},
	}, nil
}

