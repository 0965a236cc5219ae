package registry

import (
	"math/rand"
	"time"

	"github.com/Rana718/datagen/internal/types"
	"github.com/brianvoe/gofakeit/v6"
)

// Generator produces one synthetic value per call.
type Generator func() (any, error)

// Descriptor identifies one value-producing function: provider, method and
// literal parameters. An empty Method selects the provider's default method.
type Descriptor struct {
	Provider string            `json:"provider" yaml:"provider"`
	Method   string            `json:"method,omitempty" yaml:"method,omitempty"`
	Params   map[string]string `json:"params,omitempty" yaml:"params,omitempty"`
}

func (d Descriptor) String() string {
	if d.Method == "" {
		return d.Provider
	}
	return d.Provider + "." + d.Method
}

type Method struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Returns     types.SemanticType `json:"returns"`
	Params      []ParamSpec        `json:"params,omitempty"`

	check func(Params) *paramError
	build func(g *gen, p Params) Generator
}

type Provider struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Methods     []Method `json:"methods"`
}

// gen is the per-registry state generators close over.
type gen struct {
	faker *gofakeit.Faker
	now   time.Time
}

var providerIndex = func() map[string]*Provider {
	idx := make(map[string]*Provider, len(catalog))
	for i := range catalog {
		idx[catalog[i].Name] = &catalog[i]
	}
	return idx
}()

// ListProviders returns provider ids in catalog order.
func ListProviders() []string {
	names := make([]string, len(catalog))
	for i, p := range catalog {
		names[i] = p.Name
	}
	return names
}

// Providers returns the full catalog, for UIs that render it.
func Providers() []Provider {
	return catalog
}

// ListMethods returns the methods of a provider in catalog order.
func ListMethods(provider string) ([]Method, error) {
	p, ok := providerIndex[provider]
	if !ok {
		return nil, &UnknownGeneratorError{Provider: provider}
	}
	return p.Methods, nil
}

// Lookup finds the method a descriptor names and validates its parameters.
// It does not need a seeded registry, so schema validation can use it.
func Lookup(d Descriptor) (*Method, Params, error) {
	p, ok := providerIndex[d.Provider]
	if !ok {
		return nil, Params{}, &UnknownGeneratorError{Provider: d.Provider, Method: d.Method}
	}

	var m *Method
	if d.Method == "" {
		m = &p.Methods[0]
	} else {
		for i := range p.Methods {
			if p.Methods[i].Name == d.Method {
				m = &p.Methods[i]
				break
			}
		}
	}
	if m == nil {
		return nil, Params{}, &UnknownGeneratorError{Provider: d.Provider, Method: d.Method}
	}

	params, err := bindParams(p.Name, m, d.Params)
	if err != nil {
		return nil, Params{}, err
	}
	return m, params, nil
}

// Registry binds the static catalog to a random source. A Registry is not
// safe for concurrent use; build one per generation call.
type Registry struct {
	g *gen
}

// New returns a registry whose generators draw from a source seeded with
// seed. Seed 0 picks a random seed, so output is not reproducible.
func New(seed int64) *Registry {
	return &Registry{g: &gen{
		faker: gofakeit.New(seed),
		now:   time.Now().UTC().Truncate(time.Second),
	}}
}

// Rand exposes the registry's random source so samplers share the seed.
func (r *Registry) Rand() *rand.Rand {
	return r.g.faker.Rand
}

// Resolve returns a ready-to-call generator for the descriptor along with its
// method metadata.
func (r *Registry) Resolve(d Descriptor) (Generator, *Method, error) {
	m, params, err := Lookup(d)
	if err != nil {
		return nil, nil, err
	}
	return m.build(r.g, params), m, nil
}

func (r *Registry) ListProviders() []string { return ListProviders() }

func (r *Registry) ListMethods(provider string) ([]Method, error) { return ListMethods(provider) }
