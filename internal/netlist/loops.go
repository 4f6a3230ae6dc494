package netlist

import (
	"fmt"
	"slices"
	"strings"
)

// LoopWarning reports zero-delay processes that feed each other.
//
// Such a loop keeps producing delta events at one instant and only settles
// if the values reach a fixed point; otherwise the scheduler reports
// divergence. Loops are warnings, not errors, because many do settle (a
// latch built from gates, for example).
type LoopWarning struct {
	Path    []string `json:"path"` // process names: ["a", "b", "a"]
	Message string   `json:"message"`
	Level   string   `json:"level"`
}

// dependencyGraph maps a process name to the processes its output triggers.
type dependencyGraph map[string][]string

// AnalyzeLoops finds combinational loops: strongly connected components of
// the zero-delay process graph, and zero-delay processes reading their own
// output. Warnings are sorted by path for stable output.
func (m *Model) AnalyzeLoops() []LoopWarning {
	graph := buildDependencyGraph(m.Processes)
	if len(graph) == 0 {
		return []LoopWarning{}
	}

	warnings := []LoopWarning{}
	for _, scc := range tarjanSCC(graph) {
		if len(scc) > 1 || hasSelfLoop(scc[0], graph) {
			warnings = append(warnings, sccToWarning(scc, graph))
		}
	}
	slices.SortFunc(warnings, func(a, b LoopWarning) int {
		return slices.Compare(a.Path, b.Path)
	})
	return warnings
}

// buildDependencyGraph adds an edge p -> q when p has no delay, q has no
// delay and p's output is one of q's inputs. Edges are in declaration order.
func buildDependencyGraph(procs []ProcessDecl) dependencyGraph {
	graph := make(dependencyGraph)
	readers := make(map[string][]string)
	for _, p := range procs {
		if p.Delay != 0 {
			continue
		}
		graph[p.Name] = []string{}
		for _, in := range p.Inputs {
			readers[in] = append(readers[in], p.Name)
		}
	}
	for _, p := range procs {
		if p.Delay != 0 {
			continue
		}
		graph[p.Name] = append(graph[p.Name], readers[p.Output]...)
	}
	return graph
}

func hasSelfLoop(node string, graph dependencyGraph) bool {
	return slices.Contains(graph[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Nodes are visited in sorted order.
func tarjanSCC(graph dependencyGraph) [][]string {
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

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

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
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]string, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	slices.Sort(nodes)
	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

func sccToWarning(scc []string, graph dependencyGraph) LoopWarning {
	if len(scc) == 1 {
		name := scc[0]
		return LoopWarning{
			Path:    []string{name, name},
			Message: fmt.Sprintf("zero-delay process reads its own output: %s", name),
			Level:   "warning",
		}
	}
	path := cyclePath(scc, graph)
	return LoopWarning{
		Path:    path,
		Message: fmt.Sprintf("zero-delay loop: %s", strings.Join(path, " -> ")),
		Level:   "warning",
	}
}

// cyclePath walks edges inside the SCC from its smallest member until it
// returns to the start.
func cyclePath(scc []string, graph dependencyGraph) []string {
	members := make(map[string]bool, len(scc))
	for _, n := range scc {
		members[n] = true
	}
	start := slices.Min(scc)
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true
		next := ""
		for _, w := range graph[current] {
			if members[w] && (!visited[w] || w == start) {
				next = w
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
