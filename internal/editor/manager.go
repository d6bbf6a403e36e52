package editor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/graphflow/internal/apperr"
)

// Manager keeps the open editing sessions.
type Manager struct {
	backend Backend
	opts    []Option
	logger  *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session

	refreshTimeout time.Duration
	refreshMu      sync.Mutex
	refreshing     bool
	refreshPending bool
	refreshWG      sync.WaitGroup
}

// DefaultRefreshTimeout bounds one background refresh of all sessions.
const DefaultRefreshTimeout = 30 * time.Second

// NewManager creates a manager whose sessions talk to be and are built with opts.
func NewManager(be Backend, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		backend:  be,
		opts:     append([]Option{WithLogger(logger)}, opts...),
		logger:   logger,
		sessions: make(map[string]*Session),

		refreshTimeout: DefaultRefreshTimeout,
	}
}

// Create opens a new session. Palette and input failures are logged and the
// session is still usable. When workflowID is set the workflow is loaded and
// a load failure aborts creation.
func (m *Manager) Create(ctx context.Context, workflowID string) (*Session, error) {
	s := NewSession(uuid.NewString(), m.backend, m.opts...)
	_ = s.Prepare(ctx)
	if workflowID != "" {
		if err := s.Load(ctx, workflowID); err != nil {
			return nil, err
		}
	}

	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()
	m.logger.Info("editor: session opened", slog.String("session", s.ID()), slog.String("workflow", workflowID))
	return s, nil
}

// Get returns session id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("editor: session %q: %w", id, apperr.ErrNotFound)
	}
	return s, nil
}

// Close drops session id.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return fmt.Errorf("editor: session %q: %w", id, apperr.ErrNotFound)
	}
	delete(m.sessions, id)
	m.logger.Info("editor: session closed", slog.String("session", id))
	return nil
}

// SessionInfo summarizes a session.
type SessionInfo struct {
	ID       string `json:"id"`
	Workflow string `json:"workflow,omitempty"`
	Nodes    int    `json:"nodes"`
}

// List returns every open session sorted by id.
func (m *Manager) List() []SessionInfo {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	out := make([]SessionInfo, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, SessionInfo{
			ID:       s.ID(),
			Workflow: s.WorkflowID(),
			Nodes:    len(s.Snapshot().Nodes),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Workflows returns the resource ids of the stored workflows, sorted.
func (m *Manager) Workflows(ctx context.Context) ([]string, error) {
	recs, err := m.backend.Transformations(ctx)
	if err != nil {
		return nil, fmt.Errorf("editor: list workflows: %w", err)
	}
	ids := make([]string, 0, len(recs))
	for id := range recs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Refresh refetches the graph palette and the input candidates of every
// session. Failures are logged per session.
func (m *Manager) Refresh(ctx context.Context) {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()
	for _, s := range sessions {
		if err := s.RefreshPalette(ctx); err != nil {
			m.logger.Warn("editor: palette refresh failed", slog.String("session", s.ID()), slog.String("error", err.Error()))
		}
		if err := s.LoadInputs(ctx); err != nil {
			m.logger.Warn("editor: input refresh failed", slog.String("session", s.ID()), slog.String("error", err.Error()))
		}
	}
}

// TriggerRefresh runs Refresh in the background, each pass bounded by the
// refresh timeout. Triggers arriving while a pass runs are folded into one
// follow-up pass.
func (m *Manager) TriggerRefresh(ctx context.Context) {
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()
	if m.refreshing {
		m.refreshPending = true
		return
	}
	m.refreshing = true
	m.refreshWG.Add(1)
	go m.refreshLoop(ctx)
}

func (m *Manager) refreshLoop(ctx context.Context) {
	defer m.refreshWG.Done()
	for {
		rctx, cancel := context.WithTimeout(ctx, m.refreshTimeout)
		m.Refresh(rctx)
		cancel()

		m.refreshMu.Lock()
		if !m.refreshPending || ctx.Err() != nil {
			m.refreshing = false
			m.refreshPending = false
			m.refreshMu.Unlock()
			return
		}
		m.refreshPending = false
		m.refreshMu.Unlock()
	}
}
