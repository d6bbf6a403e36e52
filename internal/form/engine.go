package form

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"

	"github.com/starford/graphflow/internal/apperr"
)

// State is the configuration form state.
type State int

// Form states.
const (
	StateClosed State = iota
	StateLoading
	StateEditing
	StateValidating
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateEditing:
		return "editing"
	case StateValidating:
		return "validating"
	default:
		return "closed"
	}
}

// SchemaSource fetches the configuration schema of a procedure (GET /configs/{key}).
type SchemaSource interface {
	ConfigSchema(ctx context.Context, procedure string) (*Schema, error)
}

// Engine drives the configuration form of one node at a time.
//
// Closed -> Loading -> Editing -> Validating -> Closed, or back to Editing
// when validation fails. Cancel returns to Closed from any state and keeps the
// previously saved values in the cache.
type Engine struct {
	src    SchemaSource
	cache  *Cache
	logger *slog.Logger

	state  State
	target string
	title  string
	schema *Schema
	form   *Form
	draft  map[string]any
}

// NewEngine creates a closed engine writing to cache.
func NewEngine(src SchemaSource, cache *Cache, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{src: src, cache: cache, logger: logger}
}

// Procedure extracts the procedure key from a node id ("g1/select" -> "select").
func Procedure(nodeID string) string {
	return nodeID[strings.LastIndex(nodeID, "/")+1:]
}

// Open targets node id and renders its form. The schema is fetched only when
// the cache has none for the node, and is kept in the cache once fetched. Draft values come from the cache when the
// node was saved or restored before, otherwise from the schema defaults.
func (e *Engine) Open(ctx context.Context, nodeID, title string) error {
	if e.state != StateClosed {
		if e.target == nodeID {
			return nil
		}
		return fmt.Errorf("form: %q is being edited: %w", e.target, apperr.ErrInvalidState)
	}
	procedure := Procedure(nodeID)
	if procedure == "" {
		return fmt.Errorf("form: node %q has no procedure: %w", nodeID, apperr.ErrInvalidPayload)
	}

	e.state = StateLoading
	e.target = nodeID
	e.title = title

	cached, hasEntry := e.cache.Get(nodeID)
	schema := cached.Schema
	fetched := false
	if schema == nil {
		var err error
		schema, err = e.src.ConfigSchema(ctx, procedure)
		if err != nil {
			e.logger.Warn("form: fetch config schema failed",
				slog.String("node", nodeID),
				slog.String("procedure", procedure),
				slog.String("error", err.Error()))
			e.reset()
			return fmt.Errorf("form: fetch schema for %q: %w", procedure, err)
		}
		fetched = true
	}

	f, err := Build(schema)
	if err != nil {
		e.reset()
		return err
	}

	if fetched {
		e.cache.AttachSchema(nodeID, schema)
	}
	e.schema = schema
	e.form = f
	if hasEntry && cached.Values != nil {
		e.draft = maps.Clone(cached.Values)
	} else {
		e.draft = maps.Clone(f.Defaults)
	}
	e.state = StateEditing
	return nil
}

// Set changes one draft value while editing. A nil value clears the field.
func (e *Engine) Set(name string, value any) error {
	if e.state != StateEditing {
		return fmt.Errorf("form: set %q in state %s: %w", name, e.state, apperr.ErrInvalidState)
	}
	if _, ok := e.form.Field(name); !ok {
		return fmt.Errorf("form: unknown field %q: %w", name, apperr.ErrNotFound)
	}
	if value == nil {
		delete(e.draft, name)
		return nil
	}
	e.draft[name] = value
	return nil
}

// Save validates the draft. On success the cache entry for the node is
// overwritten with the values and the schema, and the form closes. On failure
// the form stays in Editing and a *ValidationError names the field to focus.
func (e *Engine) Save() (map[string]any, error) {
	if e.state != StateEditing {
		return nil, fmt.Errorf("form: save in state %s: %w", e.state, apperr.ErrInvalidState)
	}
	e.state = StateValidating
	values, err := e.form.Validate(e.draft)
	if err != nil {
		e.state = StateEditing
		var verr *ValidationError
		if errors.As(err, &verr) {
			e.logger.Debug("form: validation failed", slog.String("node", e.target), slog.String("field", verr.Field))
		}
		return nil, err
	}
	e.cache.Put(e.target, values, e.schema)
	e.reset()
	return maps.Clone(values), nil
}

// Cancel closes the form and discards the draft.
func (e *Engine) Cancel() {
	e.reset()
}

func (e *Engine) reset() {
	e.state = StateClosed
	e.target = ""
	e.title = ""
	e.schema = nil
	e.form = nil
	e.draft = nil
}

// State returns the current state.
func (e *Engine) State() State { return e.state }

// Target returns the node being configured, or "" when closed.
func (e *Engine) Target() string { return e.target }

// Title returns the form title.
func (e *Engine) Title() string { return e.title }

// Form returns the rendered form while editing.
func (e *Engine) Form() *Form { return e.form }

// Draft returns a copy of the current draft values.
func (e *Engine) Draft() map[string]any { return maps.Clone(e.draft) }
