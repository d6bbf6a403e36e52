// Package palette provides the procedures a node can attach downstream, per processing domain.
package palette

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/starford/graphflow/internal/graph"
)

// Domain is a processing domain.
type Domain string

// Domains.
const (
	DomainGraph   Domain = "graph"
	DomainTabular Domain = "tabular"
)

// ExportKey is the terminal capability that creates a sink node.
const ExportKey = "export"

// Export returns the terminal "export" capability.
func Export() graph.Procedure {
	return graph.Procedure{Key: ExportKey, Label: "Export", OutputNodeType: graph.KindSink}
}

// Source lists graph-domain procedure keys (GET /gaf).
type Source interface {
	Procedures(ctx context.Context) ([]string, error)
}

// Provider fetches and caches the procedure list of each domain.
type Provider struct {
	src    Source
	logger *slog.Logger

	mu    sync.RWMutex
	lists map[Domain][]graph.Procedure
}

// NewProvider creates a provider. The tabular domain is known up front; the
// graph domain stays empty until Refresh succeeds.
func NewProvider(src Source, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		src:    src,
		logger: logger,
		lists: map[Domain][]graph.Procedure{
			DomainTabular: tabular(),
		},
	}
}

func tabular() []graph.Procedure {
	return []graph.Procedure{
		{Key: "select", Label: "Select", OutputNodeType: graph.KindProcedure},
		{Key: "aggregation", Label: "Aggregation", OutputNodeType: graph.KindProcedure},
		{Key: "filter", Label: "Filter", OutputNodeType: graph.KindProcedure},
	}
}

// Refresh fetches the graph-domain list. On failure the previous list is kept.
func (p *Provider) Refresh(ctx context.Context) error {
	keys, err := p.src.Procedures(ctx)
	if err != nil {
		p.logger.Warn("palette: fetch graph procedures failed", slog.String("error", err.Error()))
		return fmt.Errorf("palette: refresh: %w", err)
	}
	list := make([]graph.Procedure, 0, len(keys))
	for _, k := range keys {
		list = append(list, graph.Procedure{Key: k, Label: Label(k), OutputNodeType: graph.KindProcedure})
	}
	p.mu.Lock()
	p.lists[DomainGraph] = list
	p.mu.Unlock()
	p.logger.Debug("palette: graph procedures loaded", slog.Int("count", len(list)))
	return nil
}

// Known returns a copy of the currently known list for d (possibly empty).
func (p *Provider) Known(d Domain) []graph.Procedure {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]graph.Procedure{}, p.lists[d]...)
}

// Downstream is the menu attached to a created procedure node: the domain's
// list followed by the export capability.
func (p *Provider) Downstream(d Domain) []graph.Procedure {
	return append(p.Known(d), Export())
}

// Label turns a snake_case key into title words: "page_rank" -> "Page Rank".
func Label(key string) string {
	words := strings.Split(strings.ToLower(key), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
