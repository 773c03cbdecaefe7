package workflow

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/alexanderramin/stageflow/internal/domain"
)

// Stage is one stage template of a workflow version.
type Stage struct {
	Version       string
	Code          domain.StageCode
	Name          string
	Sequence      int
	Optional      bool
	ParallelGroup string
}

// Dependency is a directed edge: Stage cannot start before DependsOn completes.
type Dependency struct {
	Version   string
	Stage     domain.StageCode
	DependsOn domain.StageCode
}

// Graph is an immutable, validated stage template graph. It is safe for
// concurrent use.
type Graph struct {
	version string
	stages  []Stage
	index   map[domain.StageCode]int
	preds   map[domain.StageCode][]domain.StageCode
	succs   map[domain.StageCode][]domain.StageCode
	deps    []Dependency
}

// Load validates a definition and builds its graph. Structural problems,
// including cycles, are returned as one error wrapping ErrInvalidWorkflow.
func Load(def *Definition) (*Graph, error) {
	if errs := validateDefinition(def); len(errs) > 0 {
		return nil, fmt.Errorf("%w: workflow %q: %w", domain.ErrInvalidWorkflow, def.Version, errors.Join(errs...))
	}

	g := &Graph{
		version: def.Version,
		index:   make(map[domain.StageCode]int, len(def.Stages)),
		preds:   make(map[domain.StageCode][]domain.StageCode),
		succs:   make(map[domain.StageCode][]domain.StageCode),
	}
	for _, sc := range def.Stages {
		g.stages = append(g.stages, Stage{
			Version:       def.Version,
			Code:          domain.NewStageCode(sc.Code),
			Name:          sc.Name,
			Sequence:      sc.Sequence,
			Optional:      sc.Optional,
			ParallelGroup: strings.TrimSpace(sc.ParallelGroup),
		})
	}
	sort.SliceStable(g.stages, func(i, j int) bool { return g.stages[i].Sequence < g.stages[j].Sequence })
	for i, s := range g.stages {
		g.index[s.Code] = i
	}

	for _, dc := range def.Dependencies {
		d := Dependency{Version: def.Version, Stage: domain.NewStageCode(dc.Stage), DependsOn: domain.NewStageCode(dc.DependsOn)}
		g.deps = append(g.deps, d)
		g.preds[d.Stage] = append(g.preds[d.Stage], d.DependsOn)
		g.succs[d.DependsOn] = append(g.succs[d.DependsOn], d.Stage)
	}
	for code := range g.preds {
		g.sortBySequence(g.preds[code])
	}
	for code := range g.succs {
		g.sortBySequence(g.succs[code])
	}
	return g, nil
}

func validateDefinition(def *Definition) []error {
	var errs []error
	if def.Version == "" {
		errs = append(errs, fmt.Errorf("version is required"))
	}
	if len(def.Stages) == 0 {
		errs = append(errs, fmt.Errorf("at least one stage is required"))
	}

	stages := make(map[domain.StageCode]StageConfig, len(def.Stages))
	sequences := make(map[int]domain.StageCode, len(def.Stages))
	for i, s := range def.Stages {
		code := domain.NewStageCode(s.Code)
		if code == "" {
			errs = append(errs, fmt.Errorf("stages[%d]: code is required", i))
			continue
		}
		if _, dup := stages[code]; dup {
			errs = append(errs, fmt.Errorf("stages[%d]: duplicate code %q", i, code))
		}
		if other, dup := sequences[s.Sequence]; dup {
			errs = append(errs, fmt.Errorf("stages[%d]: sequence %d already used by %q", i, s.Sequence, other))
		}
		stages[code] = s
		sequences[s.Sequence] = code
	}

	edges := make(map[domain.StageCode][]domain.StageCode)
	for i, d := range def.Dependencies {
		prefix := fmt.Sprintf("dependencies[%d]", i)
		from, on := domain.NewStageCode(d.Stage), domain.NewStageCode(d.DependsOn)
		fromCfg, okFrom := stages[from]
		onCfg, okOn := stages[on]
		if !okFrom {
			errs = append(errs, fmt.Errorf("%s.stage: unknown code %q", prefix, d.Stage))
		}
		if !okOn {
			errs = append(errs, fmt.Errorf("%s.depends_on: unknown code %q", prefix, d.DependsOn))
		}
		if !okFrom || !okOn {
			continue
		}
		if from == on {
			errs = append(errs, fmt.Errorf("%s: self-dependency on %q", prefix, from))
			continue
		}
		if g := strings.TrimSpace(fromCfg.ParallelGroup); g != "" && g == strings.TrimSpace(onCfg.ParallelGroup) {
			errs = append(errs, fmt.Errorf("%s: %q and %q share parallel group %q", prefix, from, on, g))
		}
		if onCfg.Sequence >= fromCfg.Sequence {
			errs = append(errs, fmt.Errorf("%s: %q (sequence %d) depends on later stage %q (sequence %d)",
				prefix, from, fromCfg.Sequence, on, onCfg.Sequence))
		}
		edges[on] = append(edges[on], from)
	}

	errs = append(errs, detectCycles(edges)...)
	return errs
}

func detectCycles(graph map[domain.StageCode][]domain.StageCode) []error {
	const (
		white = 0 // unvisited
		gray  = 1 // in current path
		black = 2 // fully processed
	)

	nodes := make([]domain.StageCode, 0, len(graph))
	for n := range graph {
		nodes = append(nodes, n)
	}
	nodes = domain.SortedCodes(nodes)

	color := make(map[domain.StageCode]int)
	var errs []error

	var visit func(node domain.StageCode) bool
	visit = func(node domain.StageCode) bool {
		color[node] = gray
		for _, next := range graph[node] {
			if color[next] == gray {
				errs = append(errs, fmt.Errorf("dependency cycle involving %q and %q", node, next))
				return true
			}
			if color[next] == white && visit(next) {
				return true
			}
		}
		color[node] = black
		return false
	}

	for _, n := range nodes {
		if color[n] == white {
			visit(n)
		}
	}
	return errs
}

func (g *Graph) sortBySequence(codes []domain.StageCode) {
	sort.SliceStable(codes, func(i, j int) bool { return g.index[codes[i]] < g.index[codes[j]] })
}

func (g *Graph) Version() string { return g.version }

// Stages returns the stage templates in sequence order.
func (g *Graph) Stages() []Stage {
	return append([]Stage(nil), g.stages...)
}

func (g *Graph) Dependencies() []Dependency {
	return append([]Dependency(nil), g.deps...)
}

func (g *Graph) Stage(code domain.StageCode) (Stage, bool) {
	i, ok := g.index[code]
	if !ok {
		return Stage{}, false
	}
	return g.stages[i], true
}

func (g *Graph) Has(code domain.StageCode) bool {
	_, ok := g.index[code]
	return ok
}

func (g *Graph) IsOptional(code domain.StageCode) bool {
	s, ok := g.Stage(code)
	return ok && s.Optional
}

// Predecessors returns the direct dependencies of code in sequence order.
func (g *Graph) Predecessors(code domain.StageCode) []domain.StageCode {
	return append([]domain.StageCode(nil), g.preds[code]...)
}

// Successors returns the stages that directly depend on code.
func (g *Graph) Successors(code domain.StageCode) []domain.StageCode {
	return append([]domain.StageCode(nil), g.succs[code]...)
}

// Ancestors returns every stage code code transitively depends on.
func (g *Graph) Ancestors(code domain.StageCode) map[domain.StageCode]bool {
	seen := make(map[domain.StageCode]bool)
	stack := g.Predecessors(code)
	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[c] {
			continue
		}
		seen[c] = true
		stack = append(stack, g.preds[c]...)
	}
	return seen
}

// ParallelGroup returns the members of a parallel group in sequence order.
func (g *Graph) ParallelGroup(name string) []domain.StageCode {
	var out []domain.StageCode
	for _, s := range g.stages {
		if name != "" && s.ParallelGroup == name {
			out = append(out, s.Code)
		}
	}
	return out
}
