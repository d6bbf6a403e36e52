// Package parser decodes graph-source descriptor files.
package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/starford/graphflow/internal/apperr"
	"github.com/starford/graphflow/internal/models"
)

var nameRe = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// Parse decodes a descriptor. path is only used to derive the graph name when
// the file does not set one ("sources/reviews.yaml" -> "reviews").
// Unknown keys are rejected.
func Parse(path string, data []byte) (*models.GraphSource, error) {
	var src models.GraphSource
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&src); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parser: %s: %v: %w", path, err, apperr.ErrInvalidPayload)
	}
	if src.Name == "" && path != "" {
		base := filepath.Base(path)
		src.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	Normalize(&src)
	if err := Validate(&src); err != nil {
		return nil, fmt.Errorf("parser: %s: %w", path, err)
	}
	return &src, nil
}

// Normalize trims whitespace and drops duplicate labels and owners, keeping
// first occurrences.
func Normalize(src *models.GraphSource) {
	src.Name = strings.TrimSpace(src.Name)
	src.Variant = strings.TrimSpace(src.Variant)
	src.Infra = strings.TrimSpace(src.Infra)
	src.Owners = dedupe(src.Owners)
	src.VertexLabels = dedupe(src.VertexLabels)
	src.EdgeLabels = dedupe(src.EdgeLabels)
}

// Validate checks a descriptor's fields.
func Validate(src *models.GraphSource) error {
	err := validation.ValidateStruct(src,
		validation.Field(&src.Name, validation.Required, validation.Match(nameRe)),
		validation.Field(&src.Variant, validation.Match(nameRe)),
	)
	if err != nil {
		return fmt.Errorf("%v: %w", err, apperr.ErrInvalidPayload)
	}
	return nil
}

// Encode renders a descriptor as YAML.
func Encode(src *models.GraphSource) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(src); err != nil {
		return nil, fmt.Errorf("parser: encode %q: %w", src.Name, err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
