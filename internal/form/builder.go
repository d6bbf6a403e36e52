package form

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Input is the rendered control of a form field.
type Input string

// Rendered controls.
const (
	InputSelect      Input = "select"      // single choice, first candidate preselected
	InputTags        Input = "tags"        // free-form multi value
	InputMultiSelect Input = "multiselect" // multiple choices among candidates
	InputText        Input = "text"
	InputNumber      Input = "number"
)

// Option is one selectable candidate. Label is the canonical text; Value keeps
// the structured candidate.
type Option struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Value any    `json:"value"`
}

// Field is one editable form field. Name is the dot-path under which its value is stored.
type Field struct {
	Name        string   `json:"name"`
	Label       string   `json:"label"`
	Input       Input    `json:"input"`
	Options     []Option `json:"options,omitempty"`
	Required    bool     `json:"required"`
	Placeholder string   `json:"placeholder,omitempty"`
}

// Section is a titled group of fields. A single top-level item renders as an
// untitled section.
type Section struct {
	Key    string  `json:"key"`
	Title  string  `json:"title,omitempty"`
	Fields []Field `json:"fields"`
}

// Form is the rendered description of a schema.
type Form struct {
	Sections []Section     `json:"sections"`
	Defaults map[string]any `json:"defaults"`
}

// Fields returns every field in render order.
func (f *Form) Fields() []Field {
	var out []Field
	for _, s := range f.Sections {
		out = append(out, s.Fields...)
	}
	return out
}

// Field returns the field called name.
func (f *Form) Field(name string) (Field, bool) {
	for _, s := range f.Sections {
		for _, fl := range s.Fields {
			if fl.Name == name {
				return fl, true
			}
		}
	}
	return Field{}, false
}

// Title renders a variable name as a heading: "output_feature" -> "OUTPUT FEATURE".
func Title(name string) string {
	return strings.ReplaceAll(strings.ToUpper(name), "_", " ")
}

// Build interprets s as a form. The schema's single top-level member is
// unwrapped first; each of its members then becomes a section.
func Build(s *Schema) (*Form, error) {
	if s == nil || len(s.Entries) == 0 {
		return nil, fmt.Errorf("form: empty schema: %w", ErrMalformedSchema)
	}
	top := s.Entries[0]
	if top.Kind != EntryGroup {
		return nil, fmt.Errorf("form: top-level member %q is not a group: %w", top.Name, ErrMalformedSchema)
	}

	b := &builder{form: &Form{Defaults: make(map[string]any)}}
	for _, e := range top.Group.Entries {
		sec, err := b.section(e)
		if err != nil {
			return nil, err
		}
		b.form.Sections = append(b.form.Sections, sec)
	}
	return b.form, nil
}

type builder struct {
	form *Form
}

func (b *builder) section(e Entry) (Section, error) {
	switch e.Kind {
	case EntryItems:
		sec := Section{Key: e.Name, Title: Title(e.Name)}
		for _, it := range e.Items {
			f, err := b.itemField(it, e.Name+".")
			if err != nil {
				return Section{}, err
			}
			sec.Fields = append(sec.Fields, f)
		}
		return sec, nil

	case EntryItem:
		f, err := b.itemField(e.Item, "")
		if err != nil {
			return Section{}, err
		}
		return Section{Key: e.Name, Fields: []Field{f}}, nil

	case EntryGroup:
		// One more level of unwrapping: {"page_rank": {"damping_factor": 0.85}}.
		if len(e.Group.Entries) == 0 || e.Group.Entries[0].Kind != EntryGroup {
			return Section{}, fmt.Errorf("form: group %q has no parameter set: %w", e.Name, ErrMalformedSchema)
		}
		sec := Section{Key: e.Name, Title: Title(e.Name)}
		for _, leaf := range e.Group.Entries[0].Group.Entries {
			f, err := b.leafField(e.Name, leaf)
			if err != nil {
				return Section{}, err
			}
			sec.Fields = append(sec.Fields, f)
		}
		return sec, nil

	default:
		return Section{}, fmt.Errorf("form: member %q is a bare value: %w", e.Name, ErrMalformedSchema)
	}
}

// itemField renders a ConfigItem. Only a single select seeds a default.
func (b *builder) itemField(it Item, prefix string) (Field, error) {
	segs := strings.Split(it.Key, ".")
	f := Field{
		Name:     prefix + it.Key,
		Label:    Title(segs[len(segs)-1]),
		Required: it.Value != nil,
		Options:  options(it.Value),
	}
	switch it.InputKind {
	case KindSelect:
		f.Input = InputSelect
		if len(f.Options) > 0 {
			b.form.Defaults[f.Name] = f.Options[0].Value
		}
	case KindMultiple:
		f.Input = InputTags
		if len(f.Options) > 0 {
			f.Placeholder = "e.g. " + f.Options[0].Label
		}
	case KindMultiselect:
		f.Input = InputMultiSelect
	default:
		return Field{}, fmt.Errorf("form: field %q: %q: %w", f.Name, it.InputKind, ErrUnknownInputKind)
	}
	return f, nil
}

// leafField renders a nested parameter keyed "label[,value_type]".
func (b *builder) leafField(group string, leaf Entry) (Field, error) {
	label, valueType, _ := strings.Cut(leaf.Name, ",")
	name := group + "." + leaf.Name
	if leaf.Kind != EntryScalar {
		return Field{}, fmt.Errorf("form: field %q: nested value: %w", name, ErrUnknownInputKind)
	}
	v := leaf.Scalar
	f := Field{
		Name:     name,
		Label:    Title(label),
		Required: v != nil,
	}
	if v == nil {
		f.Placeholder = "Optional"
	} else {
		b.form.Defaults[name] = v
	}

	switch {
	case valueType == "string" || isString(v):
		f.Input = InputText
	case valueType == "number" || isNumber(v):
		f.Input = InputNumber
	case valueType == "string[]" || isStringList(v):
		f.Input = InputTags
	default:
		return Field{}, fmt.Errorf("form: field %q: %q: %w", name, valueType, ErrUnknownInputKind)
	}
	return f, nil
}

// options renders candidate values. Non-string candidates are labelled with
// their canonical JSON text and keep their structured form as Value.
func options(v any) []Option {
	var list []any
	switch c := v.(type) {
	case nil:
		return nil
	case []any:
		list = c
	default:
		list = []any{c}
	}
	out := make([]Option, 0, len(list))
	for _, val := range list {
		if s, ok := val.(string); ok {
			out = append(out, Option{Key: s, Label: s, Value: s})
			continue
		}
		text := canonical(val)
		out = append(out, Option{Key: text, Label: text, Value: val})
	}
	return out
}

func canonical(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

func isString(v any) bool {
	_, ok := v.(string)
	return ok
}

func isNumber(v any) bool {
	switch v.(type) {
	case float64, float32, int, int64, json.Number:
		return true
	}
	return false
}

func isStringList(v any) bool {
	list, ok := v.([]any)
	if !ok {
		return false
	}
	for _, el := range list {
		if _, ok := el.(string); !ok {
			return false
		}
	}
	return true
}
