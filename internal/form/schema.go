// Package form turns backend configuration schemas into editable forms and
// tracks per-node configuration values for one editing session.
package form

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

var (
	// ErrMalformedSchema is returned when a schema does not have the expected shape.
	ErrMalformedSchema = errors.New("malformed config schema")
	// ErrUnknownInputKind is returned when a field's input kind cannot be rendered.
	ErrUnknownInputKind = errors.New("unknown input kind")
)

// InputKind is the input kind declared by a ConfigItem.
type InputKind string

// Declared input kinds.
const (
	KindSelect      InputKind = "select"
	KindMultiple    InputKind = "multiple"
	KindMultiselect InputKind = "multiselect"
)

// Item is a ConfigItem: a leaf with a declared input kind and candidate values.
type Item struct {
	InputKind InputKind `json:"input_type"`
	Key       string    `json:"key"`
	Value     any       `json:"value"`
}

// EntryKind tags the variant held by an Entry.
type EntryKind int

// Entry variants.
const (
	EntryItem   EntryKind = iota // a single ConfigItem
	EntryItems                   // an array of ConfigItems
	EntryGroup                   // a nested schema
	EntryScalar                  // a bare parameter value inside a nested schema
)

// Entry is one named member of a schema.
type Entry struct {
	Name   string
	Kind   EntryKind
	Item   Item
	Items  []Item
	Group  *Schema
	Scalar any
}

// Schema is an ordered, recursively nested configuration description.
type Schema struct {
	Entries []Entry
	raw     json.RawMessage
}

// Parse decodes a schema, keeping the member order of every object.
func Parse(data []byte) (*Schema, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil, fmt.Errorf("form: schema must be an object: %w", ErrMalformedSchema)
	}
	om := orderedmap.New[string, json.RawMessage]()
	if err := json.Unmarshal(data, om); err != nil {
		return nil, fmt.Errorf("form: decode schema: %v: %w", err, ErrMalformedSchema)
	}
	s := &Schema{raw: append(json.RawMessage(nil), data...)}
	for pair := om.Oldest(); pair != nil; pair = pair.Next() {
		e, err := parseEntry(pair.Key, pair.Value)
		if err != nil {
			return nil, err
		}
		s.Entries = append(s.Entries, e)
	}
	return s, nil
}

func parseEntry(name string, raw json.RawMessage) (Entry, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return Entry{}, fmt.Errorf("form: empty member %q: %w", name, ErrMalformedSchema)
	}
	switch raw[0] {
	case '[':
		var elems []json.RawMessage
		if err := json.Unmarshal(raw, &elems); err != nil {
			return Entry{}, fmt.Errorf("form: member %q: %v: %w", name, err, ErrMalformedSchema)
		}
		items := make([]Item, 0, len(elems))
		for _, el := range elems {
			it, ok, err := parseItem(el)
			if err != nil {
				return Entry{}, fmt.Errorf("form: member %q: %w", name, err)
			}
			if !ok {
				// A plain array is a parameter value, not a list of items.
				return scalarEntry(name, raw)
			}
			items = append(items, it)
		}
		return Entry{Name: name, Kind: EntryItems, Items: items}, nil
	case '{':
		it, ok, err := parseItem(raw)
		if err != nil {
			return Entry{}, fmt.Errorf("form: member %q: %w", name, err)
		}
		if ok {
			return Entry{Name: name, Kind: EntryItem, Item: it}, nil
		}
		group, err := Parse(raw)
		if err != nil {
			return Entry{}, fmt.Errorf("form: member %q: %w", name, err)
		}
		return Entry{Name: name, Kind: EntryGroup, Group: group}, nil
	default:
		return scalarEntry(name, raw)
	}
}

func scalarEntry(name string, raw json.RawMessage) (Entry, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return Entry{}, fmt.Errorf("form: member %q: %v: %w", name, err, ErrMalformedSchema)
	}
	return Entry{Name: name, Kind: EntryScalar, Scalar: v}, nil
}

// parseItem decodes raw as a ConfigItem. ok is false when raw has no input_type.
func parseItem(raw json.RawMessage) (Item, bool, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return Item{}, false, nil
	}
	var probe struct {
		InputType *string `json:"input_type"`
		Key       string  `json:"key"`
		Value     any     `json:"value"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return Item{}, false, fmt.Errorf("%v: %w", err, ErrMalformedSchema)
	}
	if probe.InputType == nil {
		return Item{}, false, nil
	}
	return Item{InputKind: InputKind(*probe.InputType), Key: probe.Key, Value: probe.Value}, true, nil
}

// Lookup returns the member called name.
func (s *Schema) Lookup(name string) (Entry, bool) {
	for _, e := range s.Entries {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// MarshalJSON returns the schema exactly as it was received.
func (s *Schema) MarshalJSON() ([]byte, error) {
	if s == nil || len(s.raw) == 0 {
		return []byte("null"), nil
	}
	return s.raw, nil
}

// UnmarshalJSON parses data with Parse.
func (s *Schema) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*s = *parsed
	return nil
}
