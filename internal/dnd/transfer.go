// Package dnd carries node-creation intents from a palette entry to the canvas drop target.
package dnd

import (
	"fmt"
	"strings"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/graphflow/internal/apperr"
	"github.com/starford/graphflow/internal/graph"
)

// Payload is the intent recorded at drag start.
type Payload struct {
	NodeType graph.NodeKind `json:"node_type"`
	Key      string         `json:"key"`
	Upstream string         `json:"upstream"`
	// OffsetX/OffsetY is the pointer offset inside the dragged control.
	OffsetX float64 `json:"offset_x"`
	OffsetY float64 `json:"offset_y"`
	// Width is the rendered width of the dragged control.
	Width float64 `json:"width"`
}

// Validate checks that every field needed to create a node is present.
func (p *Payload) Validate() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.NodeType, validation.Required,
			validation.In(graph.KindProcedure, graph.KindSink)),
		validation.Field(&p.Key, validation.Required,
			validation.By(noSlash)),
		validation.Field(&p.Upstream, validation.Required),
		validation.Field(&p.Width, validation.Min(0.0)),
	)
}

func noSlash(v any) error {
	s, _ := v.(string)
	if strings.Contains(s, "/") {
		return fmt.Errorf("must not contain '/'")
	}
	return nil
}

// NodeID is the deterministic id of the node a payload creates.
func (p *Payload) NodeID() string {
	return p.Upstream + "/" + p.Key
}

// Rect is a rendered box in screen coordinates.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Point is a pointer location in screen coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DragStart records the intent of dragging entry p out of upstream's palette.
// pointer is where the gesture started and control the bounds of the dragged entry.
func DragStart(p graph.Procedure, upstream string, pointer Point, control Rect) *Transfer {
	t := &Transfer{}
	t.Set(Payload{
		NodeType: p.OutputNodeType,
		Key:      p.Key,
		Upstream: upstream,
		OffsetX:  pointer.X - control.Left,
		OffsetY:  pointer.Y - control.Top,
		Width:    control.Width,
	})
	return t
}

// Transfer is a write-once, read-once channel tied to a single drag gesture.
type Transfer struct {
	mu      sync.Mutex
	payload *Payload
	used    bool
}

// Set stores the payload. Later calls are ignored.
func (t *Transfer) Set(p Payload) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.payload != nil || t.used {
		return
	}
	t.payload = &p
}

// Take returns the payload once; every later call reports false.
func (t *Transfer) Take() (Payload, bool) {
	if t == nil {
		return Payload{}, false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.payload == nil || t.used {
		return Payload{}, false
	}
	t.used = true
	return *t.payload, true
}

// DropEvent is the canvas drop: the transfer carried by the gesture and the
// pointer position where it was released.
type DropEvent struct {
	Transfer *Transfer
	Client   Point
}

// Canvas describes the drop target: its bounds on screen and its pan/zoom.
type Canvas struct {
	Bounds   Rect
	Viewport graph.Viewport
}

// borderWidth compensates for the canvas border on the vertical axis.
const borderWidth = 1

// Position maps the drop pointer into canvas coordinates, compensating for the
// recorded pointer offset inside the dragged control and the canvas origin.
func (c Canvas) Position(client Point, p Payload) graph.Position {
	return c.Viewport.Project(
		client.X-c.Bounds.Left-p.OffsetX,
		client.Y-c.Bounds.Top-p.OffsetY+borderWidth,
	)
}

// Accept reads and validates the payload of ev. It returns ErrInvalidPayload
// when no transfer is present or required fields are missing.
func Accept(ev DropEvent) (Payload, error) {
	p, ok := ev.Transfer.Take()
	if !ok {
		return Payload{}, fmt.Errorf("dnd: no transfer payload: %w", apperr.ErrInvalidPayload)
	}
	if err := p.Validate(); err != nil {
		return Payload{}, fmt.Errorf("dnd: %v: %w", err, apperr.ErrInvalidPayload)
	}
	return p, nil
}
