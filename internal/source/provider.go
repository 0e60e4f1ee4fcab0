package source

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/specialistvlad/expgrid/internal/definition"
)

// ProviderFunc materializes definitions in Go code.
type ProviderFunc func(ctx context.Context) ([]*definition.Definition, error)

// provider adapts a ProviderFunc to the Source interface.
type provider struct {
	name string
	fn   ProviderFunc
}

// Func returns a Source backed by fn. Definitions without a Source get the
// provider's name.
func Func(name string, fn ProviderFunc) Source {
	return &provider{name: name, fn: fn}
}

// Static returns a Source yielding the given definitions in order.
func Static(name string, defs ...*definition.Definition) Source {
	return Func(name, func(context.Context) ([]*definition.Definition, error) {
		return defs, nil
	})
}

// Name implements Source.
func (p *provider) Name() string { return p.name }

// Experiments implements Source.
func (p *provider) Experiments(ctx context.Context) ([]*definition.Definition, error) {
	defs, err := p.fn(ctx)
	if err != nil {
		return nil, fmt.Errorf("provider '%s': %w", p.name, err)
	}
	for _, def := range defs {
		if def.Source == "" {
			def.Source = p.name
		}
	}
	return defs, nil
}

// Providers holds the named definition providers a host application supplies
// at startup, in registration order.
type Providers struct {
	order []string
	all   map[string]Source
}

// NewProviders creates an empty provider registry.
func NewProviders() *Providers {
	return &Providers{all: make(map[string]Source)}
}

// Register adds a provider. Registering the same name twice is a programmer
// error and panics.
func (p *Providers) Register(src Source) {
	name := src.Name()
	if _, exists := p.all[name]; exists {
		panic(fmt.Sprintf("definition provider with name '%s' already registered", name))
	}
	slog.Debug("Registering definition provider.", "name", name)
	p.order = append(p.order, name)
	p.all[name] = src
}

// Sources returns the registered providers in registration order.
func (p *Providers) Sources() []Source {
	out := make([]Source, 0, len(p.order))
	for _, name := range p.order {
		out = append(out, p.all[name])
	}
	return out
}
