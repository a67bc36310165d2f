package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/distill/internal/layout"
)

// CycleWarning represents a recursive group of layout references.
//
// Recursion is how lists of lists and trees are written, so cycles are
// warnings: hydration and dehydration stop them with the depth limit.
type CycleWarning struct {
	Path    []string `json:"path"`    // Cycle path: ["tree", "forest", "tree"]
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // "warning" or "info"
}

// AnalyzeCycles reports the recursive layouts of reg.
//
// The algorithm:
//  1. Build the layout → referenced layouts graph from value formats
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1 or a self-reference as a cycle
//
// Warnings are ordered by the smallest reference of their component.
// A registry without recursion returns an empty list.
func AnalyzeCycles(reg *layout.Registry) []CycleWarning {
	graph := buildReferenceGraph(reg)
	if len(graph.nodes) == 0 {
		return []CycleWarning{}
	}

	sccs := tarjanSCC(graph)

	warnings := []CycleWarning{}
	for _, scc := range sccs {
		if len(scc) > 1 || hasSelfLoop(scc[0], graph) {
			warnings = append(warnings, cycleSCCToWarning(scc, graph))
		}
	}
	slices.SortFunc(warnings, func(a, b CycleWarning) int {
		return strings.Compare(a.Path[0], b.Path[0])
	})
	return warnings
}

// referenceGraph maps a layout to the layouts its value formats name.
type referenceGraph struct {
	nodes []string
	edges map[string][]string
}

// buildReferenceGraph constructs the graph in reference order.
// References to unregistered layouts are dropped; Validate reports them.
func buildReferenceGraph(reg *layout.Registry) referenceGraph {
	g := referenceGraph{edges: make(map[string][]string)}
	for _, ref := range reg.Refs() {
		l, _ := reg.Get(ref)
		g.nodes = append(g.nodes, string(ref))
		g.edges[string(ref)] = []string{}
		for _, to := range layout.References(l) {
			if _, ok := reg.Get(to); ok && !slices.Contains(g.edges[string(ref)], string(to)) {
				g.edges[string(ref)] = append(g.edges[string(ref)], string(to))
			}
		}
	}
	return g
}

func hasSelfLoop(node string, g referenceGraph) bool {
	return slices.Contains(g.edges[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
//
// Single-node SCCs without self-loops are NOT cycles. Each SCC is sorted.
func tarjanSCC(g referenceGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g.edges[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is a root node: pop the stack and create an SCC
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			slices.Sort(scc)
			sccs = append(sccs, scc)
		}
	}

	for _, node := range g.nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

// cycleSCCToWarning converts an SCC to a CycleWarning.
//
// For self-references the path is [ref, ref].
// For multi-node cycles, the path shows a cycle traversal.
func cycleSCCToWarning(scc []string, g referenceGraph) CycleWarning {
	if len(scc) == 1 {
		ref := scc[0]
		return CycleWarning{
			Path:    []string{ref, ref},
			Message: fmt.Sprintf("Recursive layout: %s → %s", ref, ref),
			Level:   "warning",
		}
	}

	path := reconstructCyclePath(scc, g)
	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("Mutually recursive layouts: %s", strings.Join(path, " → ")),
		Level:   "warning",
	}
}

// reconstructCyclePath builds a cycle path from an SCC.
//
// Strategy: Start at the first node in the SCC, follow edges to other SCC
// members, continue until we return to the start node.
func reconstructCyclePath(scc []string, g referenceGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, neighbor := range g.edges[current] {
			if slices.Contains(scc, neighbor) && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}
		if next == "" {
			break
		}

		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}

	return path
}
