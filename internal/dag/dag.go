package dag

import (
	"context"
	"fmt"
	"slices"

	"github.com/vk/armstack/internal/ctxlog"
)

// Graph is a validated, dependency-ordered set of process specs. It is built
// once per launch and read-only afterwards.
type Graph struct {
	specs      []ProcessSpec
	index      map[string]int
	dependents map[string][]string
	level      map[string]int
}

// node is the vertex used while validating.
type node struct {
	id         string
	pos        int
	deps       []*node
	dependents []*node
}

// New validates specs and returns them as a graph in topological order.
// Among specs with no ordering constraint, declaration order is kept.
func New(ctx context.Context, specs []ProcessSpec) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Building process graph.", "process_count", len(specs))

	nodes := make(map[string]*node, len(specs))
	ordered := make([]*node, 0, len(specs))
	for i, s := range specs {
		if err := s.validate(); err != nil {
			return nil, err
		}
		if _, exists := nodes[s.Name]; exists {
			return nil, &GraphError{Kind: ErrDuplicateProcess, Process: s.Name}
		}
		n := &node{id: s.Name, pos: i}
		nodes[s.Name] = n
		ordered = append(ordered, n)
	}

	for _, s := range specs {
		to := nodes[s.Name]
		for _, dep := range s.DependsOn {
			from, ok := nodes[dep]
			if !ok {
				return nil, &GraphError{Kind: ErrMissingDependency, Process: s.Name, Msg: fmt.Sprintf("requires unknown process %q", dep)}
			}
			if slices.Contains(to.deps, from) {
				continue
			}
			to.deps = append(to.deps, from)
			from.dependents = append(from.dependents, to)
		}
	}

	order, err := topoSort(ordered)
	if err != nil {
		return nil, err
	}
	logger.Debug("Dependency validation passed.")

	g := &Graph{
		specs:      make([]ProcessSpec, 0, len(order)),
		index:      make(map[string]int, len(order)),
		dependents: make(map[string][]string, len(order)),
		level:      make(map[string]int, len(order)),
	}
	for _, n := range order {
		s := specs[n.pos]
		s.DependsOn = nil
		for _, d := range n.deps {
			s.DependsOn = append(s.DependsOn, d.id)
		}
		g.index[n.id] = len(g.specs)
		g.specs = append(g.specs, s)

		lvl := 0
		for _, d := range n.deps {
			lvl = max(lvl, g.level[d.id]+1)
		}
		g.level[n.id] = lvl
		for _, d := range n.dependents {
			g.dependents[n.id] = append(g.dependents[n.id], d.id)
		}
	}

	logger.Debug("Process graph built.", "order", g.Order())
	return g, nil
}

// topoSort is Kahn's algorithm. The ready set is kept sorted by declaration
// position so the result is deterministic.
func topoSort(nodes []*node) ([]*node, error) {
	indegree := make(map[*node]int, len(nodes))
	var ready []*node
	for _, n := range nodes {
		indegree[n] = len(n.deps)
		if len(n.deps) == 0 {
			ready = append(ready, n)
		}
	}

	out := make([]*node, 0, len(nodes))
	for len(ready) > 0 {
		n := ready[0]
		ready = ready[1:]
		out = append(out, n)
		for _, d := range n.dependents {
			indegree[d]--
			if indegree[d] == 0 {
				i, _ := slices.BinarySearchFunc(ready, d.pos, func(x *node, pos int) int { return x.pos - pos })
				ready = slices.Insert(ready, i, d)
			}
		}
	}

	if len(out) == len(nodes) {
		return out, nil
	}
	for _, n := range nodes {
		if indegree[n] > 0 {
			if path := findCycle(n); path != nil {
				return nil, cycleError(path)
			}
		}
	}
	return nil, &GraphError{Kind: ErrCycle}
}

// findCycle walks dependencies from start with a DFS and returns the first
// cycle it closes, as a path that begins and ends on the same process.
func findCycle(start *node) []string {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[*node]int)
	var stack []*node

	var visit func(n *node) []string
	visit = func(n *node) []string {
		state[n] = visiting
		stack = append(stack, n)
		for _, d := range n.deps {
			switch state[d] {
			case visiting:
				i := slices.Index(stack, d)
				path := make([]string, 0, len(stack)-i+1)
				for _, s := range stack[i:] {
					path = append(path, s.id)
				}
				return append(path, d.id)
			case unvisited:
				if p := visit(d); p != nil {
					return p
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[n] = done
		return nil
	}
	return visit(start)
}

// Len is the number of processes.
func (g *Graph) Len() int { return len(g.specs) }

// Specs returns the specs in topological order.
func (g *Graph) Specs() []ProcessSpec { return slices.Clone(g.specs) }

// Spec returns the spec named name.
func (g *Graph) Spec(name string) (ProcessSpec, bool) {
	i, ok := g.index[name]
	if !ok {
		return ProcessSpec{}, false
	}
	return g.specs[i], true
}

// Order returns the process names in topological order.
func (g *Graph) Order() []string {
	names := make([]string, len(g.specs))
	for i, s := range g.specs {
		names[i] = s.Name
	}
	return names
}

// Dependencies returns the processes name requires directly.
func (g *Graph) Dependencies(name string) []string {
	s, ok := g.Spec(name)
	if !ok {
		return nil
	}
	return slices.Clone(s.DependsOn)
}

// Dependents returns the processes that require name directly.
func (g *Graph) Dependents(name string) []string {
	return slices.Clone(g.dependents[name])
}

// Downstream returns every process that transitively requires name, in
// topological order.
func (g *Graph) Downstream(name string) []string {
	seen := make(map[string]bool)
	var walk func(string)
	walk = func(n string) {
		for _, d := range g.dependents[n] {
			if !seen[d] {
				seen[d] = true
				walk(d)
			}
		}
	}
	walk(name)

	var out []string
	for _, s := range g.specs {
		if seen[s.Name] {
			out = append(out, s.Name)
		}
	}
	return out
}

// Waves groups processes by dependency depth. Processes in one wave have no
// ordering constraint between them.
func (g *Graph) Waves() [][]string {
	var waves [][]string
	for _, s := range g.specs {
		lvl := g.level[s.Name]
		for len(waves) <= lvl {
			waves = append(waves, nil)
		}
		waves[lvl] = append(waves[lvl], s.Name)
	}
	return waves
}
