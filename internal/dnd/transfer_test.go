package dnd

import (
	"errors"
	"testing"

	"github.com/starford/graphflow/internal/apperr"
	"github.com/starford/graphflow/internal/graph"
)

func selectEntry() graph.Procedure {
	return graph.Procedure{Key: "select", Label: "Select", OutputNodeType: graph.KindProcedure}
}

func TestDragStartRecordsOffsetAndWidth(t *testing.T) {
	tr := DragStart(selectEntry(), "g1", Point{X: 130, Y: 215}, Rect{Left: 100, Top: 200, Width: 160, Height: 32})
	p, ok := tr.Take()
	if !ok {
		t.Fatal("payload missing")
	}
	if p.OffsetX != 30 || p.OffsetY != 15 || p.Width != 160 {
		t.Errorf("payload = %+v", p)
	}
	if p.NodeID() != "g1/select" {
		t.Errorf("NodeID = %q", p.NodeID())
	}
}

func TestTransferReadOnce(t *testing.T) {
	tr := DragStart(selectEntry(), "g1", Point{}, Rect{})
	if _, ok := tr.Take(); !ok {
		t.Fatal("first take should succeed")
	}
	if _, ok := tr.Take(); ok {
		t.Fatal("second take should fail")
	}
}

func TestTransferWriteOnce(t *testing.T) {
	tr := &Transfer{}
	tr.Set(Payload{Key: "first"})
	tr.Set(Payload{Key: "second"})
	p, _ := tr.Take()
	if p.Key != "first" {
		t.Errorf("key = %q, want first", p.Key)
	}
}

func TestAcceptRejectsMissingPayload(t *testing.T) {
	_, err := Accept(DropEvent{})
	if !errors.Is(err, apperr.ErrInvalidPayload) {
		t.Fatalf("err = %v, want ErrInvalidPayload", err)
	}
}

func TestAcceptRejectsIncompletePayload(t *testing.T) {
	tr := &Transfer{}
	tr.Set(Payload{NodeType: graph.KindProcedure, Key: "select"})
	_, err := Accept(DropEvent{Transfer: tr})
	if !errors.Is(err, apperr.ErrInvalidPayload) {
		t.Fatalf("err = %v, want ErrInvalidPayload", err)
	}
}

func TestAcceptRejectsSourceKind(t *testing.T) {
	tr := &Transfer{}
	tr.Set(Payload{NodeType: graph.KindSource, Key: "x", Upstream: "g1"})
	if _, err := Accept(DropEvent{Transfer: tr}); err == nil {
		t.Fatal("source kind should be rejected")
	}
}

func TestCanvasPosition(t *testing.T) {
	c := Canvas{
		Bounds:   Rect{Left: 10, Top: 20},
		Viewport: graph.Viewport{X: 50, Y: 0, Zoom: 2},
	}
	p := Payload{OffsetX: 5, OffsetY: 4}
	got := c.Position(Point{X: 165, Y: 123}, p)
	// x: (165-10-5-50)/2 = 50; y: (123-20-4+1-0)/2 = 50
	if got != (graph.Position{X: 50, Y: 50}) {
		t.Errorf("Position = %+v", got)
	}
}
