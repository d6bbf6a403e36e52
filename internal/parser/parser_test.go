package parser

import (
	"errors"
	"testing"

	"github.com/starford/graphflow/internal/apperr"
	"github.com/starford/graphflow/internal/models"
)

func TestParse_FullDescriptor(t *testing.T) {
	input := []byte(`name: reviews
variant: v2
description: amazon reviews
owners: [Ofnil]
infra: neo4j
vertex_labels: [Reviewer, Product, Reviewer]
edge_labels:
  - rates
  - alsoBuy
`)
	src, err := Parse("reviews.yaml", input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.ResourceID() != "v2/Graph/reviews" {
		t.Errorf("resource id = %q", src.ResourceID())
	}
	if len(src.VertexLabels) != 2 || src.VertexLabels[1] != "Product" {
		t.Errorf("vertex labels = %v", src.VertexLabels)
	}
	if len(src.EdgeLabels) != 2 || src.Infra != "neo4j" {
		t.Errorf("descriptor = %+v", src)
	}
}

func TestParse_NameFromPath(t *testing.T) {
	src, err := Parse("team/social.yml", []byte("infra: memgraph\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.Name != "social" || src.ResourceID() != "default/Graph/social" {
		t.Errorf("descriptor = %+v", src)
	}
}

func TestParse_EmptyFileUsesPath(t *testing.T) {
	src, err := Parse("empty.yaml", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.Name != "empty" {
		t.Errorf("name = %q", src.Name)
	}
}

func TestParse_UnknownKeyRejected(t *testing.T) {
	_, err := Parse("x.yaml", []byte("name: x\ncolour: blue\n"))
	if !errors.Is(err, apperr.ErrInvalidPayload) {
		t.Fatalf("err = %v, want ErrInvalidPayload", err)
	}
}

func TestParse_InvalidName(t *testing.T) {
	_, err := Parse("x.yaml", []byte("name: a/b\n"))
	if !errors.Is(err, apperr.ErrInvalidPayload) {
		t.Fatalf("err = %v, want ErrInvalidPayload", err)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	in := &models.GraphSource{Name: "g", Infra: "neo4j", EdgeLabels: []string{"rates"}}
	data, err := Encode(in)
	if err != nil {
		t.Fatal(err)
	}
	out, err := Parse("", data)
	if err != nil {
		t.Fatalf("Parse: %v\n%s", err, data)
	}
	if out.Name != "g" || out.Infra != "neo4j" || len(out.EdgeLabels) != 1 {
		t.Errorf("round trip = %+v", out)
	}
}
