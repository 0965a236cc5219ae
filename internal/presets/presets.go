package presets

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/Rana718/datagen/internal/schema"
	"gopkg.in/yaml.v3"
)

//go:embed templates/*.yaml
var templateFS embed.FS

// Preset is a ready-made schema for one entity type. Fields not marked
// Default are opt-in.
type Preset struct {
	Name        string  `yaml:"name" json:"name"`
	Table       string  `yaml:"table" json:"table"`
	Description string  `yaml:"description" json:"description"`
	Fields      []Field `yaml:"fields" json:"fields"`
}

// Field is a schema field plus its preset flags. A field with Ref set
// samples the referenced table when it is available and otherwise falls
// back to its own generator.
type Field struct {
	schema.FieldDocument `yaml:",inline"`
	Default              bool `yaml:"default,omitempty" json:"default,omitempty"`
}

// UnknownPresetError is returned by Get for names that have no template.
type UnknownPresetError struct {
	Name string
}

func (e *UnknownPresetError) Error() string {
	return fmt.Sprintf("unknown preset %q (available: %s)", e.Name, strings.Join(Names(), ", "))
}

// UnknownFieldError is returned by Build when a requested field is not part
// of the preset.
type UnknownFieldError struct {
	Preset string
	Field  string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("preset %s has no field %q", e.Preset, e.Field)
}

var catalog = mustLoad()

func mustLoad() map[string]*Preset {
	entries, err := templateFS.ReadDir("templates")
	if err != nil {
		panic(fmt.Sprintf("presets: failed to read templates: %v", err))
	}

	presets := make(map[string]*Preset, len(entries))
	for _, entry := range entries {
		data, err := templateFS.ReadFile(path.Join("templates", entry.Name()))
		if err != nil {
			panic(fmt.Sprintf("presets: failed to read %s: %v", entry.Name(), err))
		}
		var p Preset
		if err := yaml.Unmarshal(data, &p); err != nil {
			panic(fmt.Sprintf("presets: failed to parse %s: %v", entry.Name(), err))
		}
		presets[p.Name] = &p
	}
	return presets
}

// Names returns the preset names in a stable order, referenced entities
// before the ones that reference them.
func Names() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ri, rj := catalog[names[i]].hasRefs(), catalog[names[j]].hasRefs()
		if ri != rj {
			return rj
		}
		return names[i] < names[j]
	})
	return names
}

func List() []*Preset {
	names := Names()
	list := make([]*Preset, len(names))
	for i, name := range names {
		list[i] = catalog[name]
	}
	return list
}

func Get(name string) (*Preset, error) {
	p, ok := catalog[strings.ToLower(name)]
	if !ok {
		return nil, &UnknownPresetError{Name: name}
	}
	return p, nil
}

func (p *Preset) hasRefs() bool {
	for _, f := range p.Fields {
		if f.Ref != nil {
			return true
		}
	}
	return false
}

// DefaultFields returns the names of the fields selected when the caller
// does not choose any.
func (p *Preset) DefaultFields() []string {
	var names []string
	for _, f := range p.Fields {
		if f.Default {
			names = append(names, f.Name)
		}
	}
	return names
}

// Options controls how a preset becomes a schema.
type Options struct {
	// Fields selects a subset of the preset's fields. Empty means the
	// default selection. Output order always follows the preset.
	Fields []string
	// Table overrides the preset's table name.
	Table string
	// References points a referenced entity at a differently named table,
	// for example customers -> customers_eu.
	References map[string]string
	// Available reports whether a table can be referenced. Nil means no
	// table is available and every reference falls back to its generator.
	Available func(table string) bool
}

// Build turns the preset into a schema. The second return value lists the
// reference fields that fell back to their generator.
func (p *Preset) Build(opts Options) (*schema.Schema, []string, error) {
	selected := opts.Fields
	if len(selected) == 0 {
		selected = p.DefaultFields()
	}

	want := make(map[string]bool, len(selected))
	for _, name := range selected {
		if !p.has(name) {
			return nil, nil, &UnknownFieldError{Preset: p.Name, Field: name}
		}
		want[name] = true
	}

	table := opts.Table
	if table == "" {
		table = p.Table
	}

	doc := &schema.Document{Table: table}
	var fallbacks []string
	for _, f := range p.Fields {
		if !want[f.Name] {
			continue
		}

		fd := f.FieldDocument
		if fd.Ref != nil {
			target := fd.Ref.Table
			if mapped, ok := opts.References[target]; ok && mapped != "" {
				target = mapped
			}
			if opts.Available != nil && opts.Available(target) {
				fd = schema.FieldDocument{Name: f.Name, Ref: &schema.RefDocument{Table: target, Column: fd.Ref.Column}}
			} else {
				fd.Ref = nil
				fallbacks = append(fallbacks, f.Name)
			}
		}
		doc.Fields = append(doc.Fields, fd)
	}

	s, err := doc.Schema()
	if err != nil {
		return nil, nil, err
	}
	return s, fallbacks, nil
}

func (p *Preset) has(name string) bool {
	for _, f := range p.Fields {
		if f.Name == name {
			return true
		}
	}
	return false
}
