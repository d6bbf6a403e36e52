// Package workflow converts editor state into persisted workflow records and back.
package workflow

import (
	"encoding/json"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ResourceKind is the resource type segment of a workflow resource id.
const ResourceKind = "Transformation"

// Variant is either the default marker or a user-defined string.
// It is encoded as {"Default": []} or {"UserDefined": "<v>"}.
type Variant struct {
	UserDefined string
}

// DefaultVariant is the "default" marker.
var DefaultVariant = Variant{}

// IsDefault reports whether v is the default marker.
func (v Variant) IsDefault() bool { return v.UserDefined == "" }

// String is the variant's display form used in resource ids.
func (v Variant) String() string {
	if v.IsDefault() {
		return "default"
	}
	return v.UserDefined
}

func (v Variant) MarshalJSON() ([]byte, error) {
	if v.IsDefault() {
		return []byte(`{"Default":[]}`), nil
	}
	return json.Marshal(map[string]string{"UserDefined": v.UserDefined})
}

func (v *Variant) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		// Accept the display form as a convenience.
		if s == "default" {
			s = ""
		}
		*v = Variant{UserDefined: s}
		return nil
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("workflow: decode variant: %w", err)
	}
	if raw, ok := m["UserDefined"]; ok {
		var u string
		if err := json.Unmarshal(raw, &u); err != nil {
			return fmt.Errorf("workflow: decode variant: %w", err)
		}
		*v = Variant{UserDefined: u}
		return nil
	}
	if _, ok := m["Default"]; ok {
		*v = DefaultVariant
		return nil
	}
	return fmt.Errorf("workflow: unknown variant %s", data)
}

// ExportResource is a pair (originating node index, fully-qualified output field id),
// encoded as a two-element JSON array.
type ExportResource struct {
	NodeIndex  int
	ResourceID string
}

func (e ExportResource) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{e.NodeIndex, e.ResourceID})
}

func (e *ExportResource) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("workflow: decode export resource: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("workflow: export resource must be a pair, got %d elements", len(pair))
	}
	if err := json.Unmarshal(pair[0], &e.NodeIndex); err != nil {
		return fmt.Errorf("workflow: decode export node index: %w", err)
	}
	if err := json.Unmarshal(pair[1], &e.ResourceID); err != nil {
		return fmt.Errorf("workflow: decode export resource id: %w", err)
	}
	return nil
}

// Record is the persisted workflow.
type Record struct {
	Name            string            `json:"name"`
	Variant         Variant           `json:"variant"`
	Description     string            `json:"description"`
	Owners          []string          `json:"owners"`
	Tags            map[string]string `json:"tags"`
	ExportResources []ExportResource  `json:"export_resources"`
	SourceFieldIDs  []string          `json:"source_field_ids"`
	// Body is the JSON encoding of Body.
	Body string `json:"body"`
}

// ResourceID is "<variant>/Transformation/<name>".
func (r *Record) ResourceID() string {
	return ResourceID(r.Variant, r.Name)
}

// ResourceID builds a workflow resource id.
func ResourceID(v Variant, name string) string {
	return v.String() + "/" + ResourceKind + "/" + name
}

// NameFromID returns the last path segment of a workflow id.
func NameFromID(id string) string {
	return id[strings.LastIndex(id, "/")+1:]
}

// Validate checks the fields the registry relies on.
func (r *Record) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.Required, validation.By(noSlash)),
		validation.Field(&r.Body, validation.Required),
	)
}

func noSlash(v any) error {
	if s, _ := v.(string); strings.Contains(s, "/") {
		return fmt.Errorf("must not contain '/'")
	}
	return nil
}
