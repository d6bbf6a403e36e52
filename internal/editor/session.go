package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/starford/graphflow/internal/apperr"
	"github.com/starford/graphflow/internal/dnd"
	"github.com/starford/graphflow/internal/form"
	"github.com/starford/graphflow/internal/graph"
	"github.com/starford/graphflow/internal/palette"
	"github.com/starford/graphflow/internal/workflow"
)

// Backend is the set of backend calls a session makes.
type Backend interface {
	palette.Source
	form.SchemaSource
	Graphs(ctx context.Context) ([]string, error)
	Transformation(ctx context.Context, id string) (*workflow.Record, error)
	Transformations(ctx context.Context) (map[string]workflow.Record, error)
	SaveTransformation(ctx context.Context, rec *workflow.Record) (string, error)
}

// Event kinds emitted by a session.
const (
	EventNodeCreated   = "node.created"
	EventNodeMoved     = "node.moved"
	EventNodeRemoved   = "node.removed"
	EventConfigSaved   = "config.saved"
	EventWorkflowSaved = "workflow.saved"
	EventWorkflowLoad  = "workflow.loaded"
)

// Event describes a change made by a session.
type Event struct {
	Kind    string `json:"kind"`
	Session string `json:"session"`
	Node    string `json:"node,omitempty"`
}

// Option configures a Session.
type Option func(*Session)

// WithFeatureLogicMode toggles feature-logic mode. When off, a drop that
// creates a node opens its configuration form right away.
func WithFeatureLogicMode(on bool) Option {
	return func(s *Session) { s.featureLogicMode = on }
}

// WithSerializer sets the workflow serializer.
func WithSerializer(ser *workflow.Serializer) Option {
	return func(s *Session) { s.serializer = ser }
}

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithEventHook registers a callback for session events.
func WithEventHook(fn func(Event)) Option {
	return func(s *Session) { s.onEvent = fn }
}

// WithOnFinish registers the callback invoked once per successful save with the workflow name.
func WithOnFinish(fn func(name string)) Option {
	return func(s *Session) { s.onFinish = fn }
}

// Session is one editing session over one canvas.
//
// Every method holds the session lock for its whole duration, so event
// callbacks never interleave, including across the network calls they make.
type Session struct {
	mu sync.Mutex

	id         string
	workflowID string

	backend    Backend
	model      *graph.Model
	cache      *form.Cache
	engine     *form.Engine
	palette    *palette.Provider
	factory    *Factory
	serializer *workflow.Serializer
	bounds     dnd.Rect

	featureLogicMode bool
	logger           *slog.Logger
	onEvent          func(Event)
	onFinish         func(string)
}

// NewSession creates an empty session.
func NewSession(id string, be Backend, opts ...Option) *Session {
	s := &Session{
		id:               id,
		backend:          be,
		model:            graph.New(),
		cache:            form.NewCache(),
		serializer:       workflow.NewSerializer(),
		featureLogicMode: true,
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("session", id))
	s.palette = palette.NewProvider(be, s.logger)
	s.factory = NewFactory(s.palette)
	s.engine = form.NewEngine(be, s.cache, s.logger)
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// WorkflowID returns the id of the workflow being edited, or "" for a new one.
func (s *Session) WorkflowID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.workflowID
}

// Prepare fetches the graph palette and the input candidates in parallel.
// The fetches are independent: a failure is logged and does not cancel the
// other one, and whatever arrived is applied.
func (s *Session) Prepare(ctx context.Context) error {
	var inputs []string
	var g errgroup.Group
	g.Go(func() error {
		return s.palette.Refresh(ctx)
	})
	g.Go(func() error {
		ids, err := s.backend.Graphs(ctx)
		if err != nil {
			return fmt.Errorf("editor: fetch inputs: %w", err)
		}
		inputs = ids
		return nil
	})
	err := g.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.model.SetInputCandidates(inputs)
	s.attachGraphPalette()
	if err != nil {
		s.logger.Warn("editor: prepare incomplete", slog.String("error", err.Error()))
	}
	return err
}

// RefreshPalette refetches the graph palette and attaches it to source nodes
// still waiting for one.
func (s *Session) RefreshPalette(ctx context.Context) error {
	if err := s.palette.Refresh(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attachGraphPalette()
	return nil
}

func (s *Session) attachGraphPalette() {
	list := s.palette.Known(palette.DomainGraph)
	if len(list) == 0 {
		return
	}
	for _, n := range s.model.Nodes() {
		if n.Type == graph.KindSource && len(n.Data.ProcedureList) == 0 {
			s.model.SetProcedureList(n.ID, list)
		}
	}
}

// LoadInputs refetches the input candidate list (GET /graphs).
func (s *Session) LoadInputs(ctx context.Context) error {
	ids, err := s.backend.Graphs(ctx)
	if err != nil {
		return fmt.Errorf("editor: fetch inputs: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model.SetInputCandidates(ids)
	return nil
}

// Inputs returns the input candidates and whether each is on the canvas.
func (s *Session) Inputs() []graph.Input {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model.Inputs()
}

// AddInput places resourceID on the canvas as a source node.
func (s *Session) AddInput(resourceID string, pos graph.Position) (graph.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if resourceID == "" {
		return graph.Node{}, fmt.Errorf("editor: empty input id: %w", apperr.ErrInvalidPayload)
	}
	if s.model.InputInUse(resourceID) || s.model.Has(resourceID) {
		return graph.Node{}, fmt.Errorf("editor: input %q: %w", resourceID, apperr.ErrAlreadyExists)
	}
	n := s.factory.Source(resourceID, pos)
	s.model.AddNode(n)
	s.model.MarkInput(resourceID, true)
	s.emit(EventNodeCreated, n.ID)
	return n, nil
}

// SetCanvasBounds records where the canvas is rendered on screen.
func (s *Session) SetCanvasBounds(r dnd.Rect) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bounds = r
}

// DragStart starts dragging the palette entry key out of upstream's menu.
func (s *Session) DragStart(upstream, key string, pointer dnd.Point, control dnd.Rect) (*dnd.Transfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.model.Node(upstream)
	if !ok {
		return nil, fmt.Errorf("editor: drag from %q: %w", upstream, apperr.ErrNotFound)
	}
	for _, p := range n.Data.ProcedureList {
		if p.Key == key {
			return dnd.DragStart(p, upstream, pointer, control), nil
		}
	}
	return nil, fmt.Errorf("editor: %q offers no %q: %w", upstream, key, apperr.ErrNotFound)
}

// DropResult reports what a drop did.
type DropResult struct {
	NodeID  string `json:"node_id,omitempty"`
	Created bool   `json:"created"`
	Ignored bool   `json:"ignored"`
}

// Drop handles a canvas drop. A drop without a usable payload is ignored.
// Dropping onto an existing node id only moves that node; otherwise the node
// and its edge from upstream are added together.
func (s *Session) Drop(ctx context.Context, ev dnd.DropEvent) (DropResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := dnd.Accept(ev)
	if err != nil {
		s.logger.Debug("editor: drop ignored", slog.String("reason", err.Error()))
		return DropResult{Ignored: true}, nil
	}
	if !s.model.Has(p.Upstream) {
		s.logger.Debug("editor: drop ignored", slog.String("reason", "unknown upstream"), slog.String("upstream", p.Upstream))
		return DropResult{Ignored: true}, nil
	}

	canvas := dnd.Canvas{Bounds: s.bounds, Viewport: s.model.Viewport()}
	pos := canvas.Position(ev.Client, p)
	id := p.NodeID()

	s.model.SetSelected(p.Upstream, false)

	if existing, ok := s.model.Node(id); ok {
		_ = s.model.MoveNode(id, pos)
		s.emit(EventNodeMoved, id)
		s.openAfterDrop(ctx, id, existing.Data.Label)
		return DropResult{NodeID: id}, nil
	}

	n := s.factory.FromPayload(p, pos)
	s.model.AddNode(n)
	s.model.AddEdge(graph.NewFlowEdge(p.Upstream, id))
	s.emit(EventNodeCreated, id)
	s.openAfterDrop(ctx, id, n.Data.Label)
	return DropResult{NodeID: id, Created: true}, nil
}

// openAfterDrop opens the dropped node's form in workflow mode, for new and
// moved nodes alike.
func (s *Session) openAfterDrop(ctx context.Context, id, label string) {
	if s.featureLogicMode {
		return
	}
	if err := s.engine.Open(ctx, id, label); err != nil {
		s.logger.Warn("editor: open config after drop failed", slog.String("node", id), slog.String("error", err.Error()))
	}
}

// MoveNode repositions a node.
func (s *Session) MoveNode(id string, pos graph.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.model.MoveNode(id, pos); err != nil {
		return err
	}
	s.emit(EventNodeMoved, id)
	return nil
}

// SelectNode sets the transient selection flag of a node.
func (s *Session) SelectNode(id string, selected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model.SetSelected(id, selected)
}

// RemoveNode deletes a node and its edges. An open form for the node is cancelled.
func (s *Session) RemoveNode(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.model.RemoveNode(id); err != nil {
		return err
	}
	if s.engine.Target() == id {
		s.engine.Cancel()
	}
	s.emit(EventNodeRemoved, id)
	return nil
}

// SetViewport replaces the pan/zoom state.
func (s *Session) SetViewport(v graph.Viewport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model.SetViewport(v)
}

// Snapshot returns the canvas state.
func (s *Session) Snapshot() graph.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model.Snapshot()
}

// OpenConfig opens the configuration form of a procedure or sink node.
func (s *Session) OpenConfig(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.model.Node(id)
	if !ok {
		return fmt.Errorf("editor: configure %q: %w", id, apperr.ErrNotFound)
	}
	if n.Type == graph.KindSource {
		return fmt.Errorf("editor: source %q has no configuration: %w", id, apperr.ErrInvalidPayload)
	}
	return s.engine.Open(ctx, id, n.Data.Label)
}

// SetConfigValue edits one field of the open form.
func (s *Session) SetConfigValue(field string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Set(field, value)
}

// SaveConfig validates and stores the open form.
func (s *Session) SaveConfig() (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	target := s.engine.Target()
	values, err := s.engine.Save()
	if err != nil {
		return nil, err
	}
	s.emit(EventConfigSaved, target)
	return values, nil
}

// CancelConfig closes the open form without saving.
func (s *Session) CancelConfig() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.Cancel()
}

// FormView is the observable state of the configuration form.
type FormView struct {
	State  string         `json:"state"`
	Target string         `json:"target,omitempty"`
	Title  string         `json:"title,omitempty"`
	Form   *form.Form     `json:"form,omitempty"`
	Values map[string]any `json:"values,omitempty"`
}

// Form returns the configuration form state.
func (s *Session) Form() FormView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return FormView{
		State:  s.engine.State().String(),
		Target: s.engine.Target(),
		Title:  s.engine.Title(),
		Form:   s.engine.Form(),
		Values: s.engine.Draft(),
	}
}

// ConfigValues returns the saved values of node id.
func (s *Session) ConfigValues(id string) (map[string]any, bool) {
	e, ok := s.cache.Get(id)
	if !ok {
		return nil, false
	}
	return e.Values, true
}

// ConfigState returns the cache state of node id.
func (s *Session) ConfigState(id string) form.EntryState {
	return s.cache.State(id)
}

// SaveResult is the outcome of a successful save.
type SaveResult struct {
	Name       string           `json:"name"`
	ResourceID string           `json:"resource_id"`
	Record     *workflow.Record `json:"record"`
}

// Save serializes the session and posts it. The workflow name is the last
// segment of the edited workflow id, or a generated one for new workflows.
// OnFinish runs only after the backend accepted the record.
func (s *Session) Save(ctx context.Context) (*SaveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := ""
	if s.workflowID != "" {
		name = workflow.NameFromID(s.workflowID)
	}
	rec, err := s.serializer.Serialize(name, s.model.Snapshot(), s.cache)
	if err != nil {
		return nil, err
	}
	id, err := s.backend.SaveTransformation(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("editor: save %q: %w", rec.Name, err)
	}
	if id == "" {
		id = rec.ResourceID()
	}
	s.workflowID = id
	s.logger.Info("editor: workflow saved", slog.String("workflow", id), slog.Int("exports", len(rec.ExportResources)))
	s.emit(EventWorkflowSaved, "")
	if s.onFinish != nil {
		s.onFinish(rec.Name)
	}
	return &SaveResult{Name: rec.Name, ResourceID: id, Record: rec}, nil
}

// Load fetches workflow id and restores canvas and config values from it.
// Local state is untouched when the fetch fails.
func (s *Session) Load(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.backend.Transformation(ctx, id)
	if err != nil {
		return fmt.Errorf("editor: load %q: %w", id, err)
	}
	if err := workflow.Load(rec, s.model, s.cache); err != nil {
		return fmt.Errorf("editor: load %q: %w", id, err)
	}
	s.engine.Cancel()
	s.workflowID = id
	s.attachGraphPalette()
	s.emit(EventWorkflowLoad, "")
	return nil
}

func (s *Session) emit(kind, node string) {
	if s.onEvent != nil {
		s.onEvent(Event{Kind: kind, Session: s.id, Node: node})
	}
}

// IsValidation reports whether err is a form validation failure.
func IsValidation(err error) (*form.ValidationError, bool) {
	var verr *form.ValidationError
	ok := errors.As(err, &verr)
	return verr, ok
}
