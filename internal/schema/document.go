package schema

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Document is the on-disk and over-the-wire form of a schema. YAML and JSON
// are both accepted.
type Document struct {
	Table  string          `yaml:"table" json:"table"`
	Fields []FieldDocument `yaml:"fields" json:"fields"`
}

type FieldDocument struct {
	Name     string         `yaml:"name" json:"name"`
	Provider string         `yaml:"provider,omitempty" json:"provider,omitempty"`
	Method   string         `yaml:"method,omitempty" json:"method,omitempty"`
	Params   map[string]any `yaml:"params,omitempty" json:"params,omitempty"`
	Ref      *RefDocument   `yaml:"ref,omitempty" json:"ref,omitempty"`
}

type RefDocument struct {
	Table  string `yaml:"table" json:"table"`
	Column string `yaml:"column" json:"column"`
}

// ParseDocument decodes a YAML or JSON schema document.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse schema document: %w", err)
	}
	return &doc, nil
}

// LoadFile reads and converts a schema document from disk.
func LoadFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, err
	}
	return doc.Schema()
}

// Schema converts the document into the typed model. Each field must name
// either a provider or a ref, not both.
func (d *Document) Schema() (*Schema, error) {
	s := &Schema{Table: d.Table, Fields: make([]Field, 0, len(d.Fields))}

	for _, fd := range d.Fields {
		switch {
		case fd.Ref != nil && fd.Provider != "":
			return nil, &SchemaError{Table: d.Table, Err: &InvalidFieldError{Field: fd.Name, Reason: "set either provider or ref, not both"}}
		case fd.Ref != nil:
			s.Fields = append(s.Fields, ReferenceField(fd.Name, fd.Ref.Table, fd.Ref.Column))
		case fd.Provider != "":
			params, err := stringParams(fd.Params)
			if err != nil {
				return nil, &SchemaError{Table: d.Table, Err: &InvalidFieldError{Field: fd.Name, Reason: err.Error()}}
			}
			s.Fields = append(s.Fields, GeneratedField(fd.Name, fd.Provider, fd.Method, params))
		default:
			return nil, &SchemaError{Table: d.Table, Err: &InvalidFieldError{Field: fd.Name, Reason: "provider or ref is required"}}
		}
	}

	return s, nil
}

// NewDocument renders a schema back into its document form.
func NewDocument(s *Schema) *Document {
	doc := &Document{Table: s.Table, Fields: make([]FieldDocument, 0, len(s.Fields))}
	for _, f := range s.Fields {
		fd := FieldDocument{Name: f.Name}
		switch src := f.Source.(type) {
		case Generated:
			fd.Provider = src.Generator.Provider
			fd.Method = src.Generator.Method
			if len(src.Generator.Params) > 0 {
				fd.Params = make(map[string]any, len(src.Generator.Params))
				for k, v := range src.Generator.Params {
					fd.Params[k] = v
				}
			}
		case Reference:
			fd.Ref = &RefDocument{Table: src.Table, Column: src.Column}
		}
		doc.Fields = append(doc.Fields, fd)
	}
	return doc
}

// stringParams flattens decoded scalars into the literal strings the registry
// validates.
func stringParams(raw map[string]any) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	params := make(map[string]string, len(raw))
	for _, k := range keys {
		switch v := raw[k].(type) {
		case string:
			params[k] = v
		case int:
			params[k] = strconv.Itoa(v)
		case int64:
			params[k] = strconv.FormatInt(v, 10)
		case uint64:
			params[k] = strconv.FormatUint(v, 10)
		case float64:
			params[k] = strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			params[k] = strconv.FormatBool(v)
		case time.Time:
			params[k] = v.Format("2006-01-02")
		case []any:
			// Lists become the "a|b|c" form choice.pick expects.
			var joined string
			for i, item := range v {
				if i > 0 {
					joined += "|"
				}
				joined += fmt.Sprint(item)
			}
			params[k] = joined
		case nil:
			return nil, fmt.Errorf("parameter %q has no value", k)
		default:
			return nil, fmt.Errorf("parameter %q has unsupported type %T", k, v)
		}
	}
	return params, nil
}
