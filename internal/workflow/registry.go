package workflow

import (
	"fmt"
	"sort"
	"sync"

	"github.com/alexanderramin/stageflow/internal/domain"
)

// DefaultVersion is the workflow version new projects adopt unless told otherwise.
const DefaultVersion = "v1"

// Registry holds loaded graphs by version.
type Registry struct {
	mu     sync.RWMutex
	graphs map[string]*Graph
}

func NewRegistry() *Registry {
	return &Registry{graphs: make(map[string]*Graph)}
}

// DefaultRegistry returns a registry holding the embedded procurement workflow.
func DefaultRegistry() (*Registry, error) {
	def, err := ParseDefinition(procurementV1)
	if err != nil {
		return nil, err
	}
	r := NewRegistry()
	if err := r.Register(def); err != nil {
		return nil, err
	}
	return r, nil
}

// Register loads def and makes it available under its version. A version
// can only be registered once since templates are immutable per version.
func (r *Registry) Register(def *Definition) error {
	g, err := Load(def)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.graphs[g.Version()]; exists {
		return fmt.Errorf("%w: version %q already registered", domain.ErrInvalidWorkflow, g.Version())
	}
	r.graphs[g.Version()] = g
	return nil
}

func (r *Registry) Graph(version string) (*Graph, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.graphs[version]
	if !ok {
		return nil, domain.NotFoundf("workflow version %q", version)
	}
	return g, nil
}

func (r *Registry) Versions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.graphs))
	for v := range r.graphs {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
