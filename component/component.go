// Package component is the compile-time registration table for the
// domain components: (domain, name) resolves to a factory, and built
// instances are cached for the life of the process.
package component

import (
	"fmt"
	"sort"
	"sync"

	"github.com/aqua777/codelens/analysis"
	"github.com/aqua777/codelens/config"
	"github.com/aqua777/codelens/engine"
	"github.com/aqua777/codelens/llm"
	"github.com/aqua777/codelens/prompts"
	"github.com/aqua777/codelens/schema"
)

// Deps is what factories build from: the engine plus the static config
// and prompt library it shares.
type Deps struct {
	Engine  *engine.Engine
	Config  *config.Config
	Library *prompts.Library
	Suggest llm.Model
}

// Factory builds one component instance.
type Factory func(Deps) (interface{}, error)

type key struct {
	domain string
	name   string
}

// Registry resolves components by (domain, name). Safe for concurrent
// use; each factory runs at most once.
type Registry struct {
	deps Deps

	mu        sync.Mutex
	factories map[key]Factory
	instances map[key]interface{}
}

// NewRegistry builds a registry with the built-in component table.
func NewRegistry(deps Deps) *Registry {
	r := &Registry{
		deps:      deps,
		factories: make(map[key]Factory),
		instances: make(map[key]interface{}),
	}
	r.registerBuiltins()
	return r
}

func (r *Registry) registerBuiltins() {
	r.Register("analysis", "violations", func(d Deps) (interface{}, error) {
		return d.Engine, nil
	})
	r.Register("analysis", "architecture_compliance", func(d Deps) (interface{}, error) {
		return d.Engine, nil
	})
	r.Register("business", "extractor", func(d Deps) (interface{}, error) {
		return analysis.NewBusinessExtractor(d.Engine, d.Library), nil
	})
	r.Register("documentation", "search", func(d Deps) (interface{}, error) {
		return analysis.NewDocSearcher(d.Engine, d.Config), nil
	})
	r.Register("visualization", "diagrams", func(d Deps) (interface{}, error) {
		return analysis.NewDiagramGenerator(d.Engine, d.Library), nil
	})
	r.Register("suggestions", "libraries", func(d Deps) (interface{}, error) {
		return analysis.NewSuggester(d.Suggest, d.Library), nil
	})
	r.Register("routing", "simple", func(d Deps) (interface{}, error) {
		return d.Engine, nil
	})
}

// Register adds or replaces a factory. Instances already built under
// the old factory stay cached.
func (r *Registry) Register(domain, name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[key{domain, name}] = factory
}

// Resolve returns the cached instance, building it on first use.
func (r *Registry) Resolve(domain, name string) (interface{}, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key{domain, name}
	if instance, ok := r.instances[k]; ok {
		return instance, nil
	}
	factory, ok := r.factories[k]
	if !ok {
		return nil, fmt.Errorf("component %s/%s: %w", domain, name, schema.ErrNotFound)
	}
	instance, err := factory(r.deps)
	if err != nil {
		return nil, fmt.Errorf("build component %s/%s: %w", domain, name, err)
	}
	r.instances[k] = instance
	return instance, nil
}

// List returns the registered component names in a domain, sorted.
func (r *Registry) List(domain string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var names []string
	for k := range r.factories {
		if k.domain == domain {
			names = append(names, k.name)
		}
	}
	sort.Strings(names)
	return names
}

// Domains returns the registered domains, sorted.
func (r *Registry) Domains() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]bool)
	var domains []string
	for k := range r.factories {
		if !seen[k.domain] {
			seen[k.domain] = true
			domains = append(domains, k.domain)
		}
	}
	sort.Strings(domains)
	return domains
}
