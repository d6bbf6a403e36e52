package palette

import (
	"context"
	"errors"
	"testing"
)

type stubSource struct {
	keys []string
	err  error
}

func (s stubSource) Procedures(context.Context) ([]string, error) { return s.keys, s.err }

func TestLabel(t *testing.T) {
	cases := map[string]string{
		"page_rank":              "Page Rank",
		"select":                 "Select",
		"BETWEENNESS_CENTRALITY": "Betweenness Centrality",
	}
	for in, want := range cases {
		if got := Label(in); got != want {
			t.Errorf("Label(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRefreshLoadsGraphDomain(t *testing.T) {
	p := NewProvider(stubSource{keys: []string{"cypher", "page_rank"}}, nil)
	if len(p.Known(DomainGraph)) != 0 {
		t.Fatal("graph domain should be empty before refresh")
	}
	if err := p.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	got := p.Known(DomainGraph)
	if len(got) != 2 || got[1].Label != "Page Rank" || got[1].OutputNodeType != "procedure" {
		t.Errorf("graph list = %+v", got)
	}
}

func TestRefreshFailureKeepsList(t *testing.T) {
	p := NewProvider(stubSource{err: errors.New("boom")}, nil)
	if err := p.Refresh(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if len(p.Known(DomainGraph)) != 0 {
		t.Error("graph list should stay empty")
	}
}

func TestDownstreamEndsWithExport(t *testing.T) {
	p := NewProvider(stubSource{}, nil)
	got := p.Downstream(DomainTabular)
	if len(got) != 4 {
		t.Fatalf("len = %d, want 4", len(got))
	}
	last := got[len(got)-1]
	if last.Key != ExportKey || last.OutputNodeType != "sink" {
		t.Errorf("last = %+v", last)
	}
	// Known must not be affected by the append.
	if len(p.Known(DomainTabular)) != 3 {
		t.Error("Known mutated by Downstream")
	}
}
