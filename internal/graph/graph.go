// Package graph holds the step dependency graph of one task and reconciles
// pushed snapshots into it.
package graph

import (
	"time"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/alfredjeanlab/flowview/internal/model"
)

// Action is an operation the engine accepts for a step.
type Action string

const (
	ActionKill   Action = "kill"
	ActionPause  Action = "pause"
	ActionResume Action = "resume"
)

// Node is one step in the graph, keyed by step name.
type Node struct {
	ID          string
	Step        model.Step
	Code        model.Code
	LastUpdated time.Time
}

// Actions returns the operations offered for the node. Nothing is offered
// while the feed reports success, failure or no data.
func (n *Node) Actions() []Action {
	switch n.Code {
	case model.CodeSuccess, model.CodeFailed, model.CodeNoData:
		return nil
	}
	switch n.Step.State {
	case model.StateRunning:
		return []Action{ActionKill}
	case model.StatePaused:
		return []Action{ActionResume, ActionKill}
	case model.StatePending:
		return []Action{ActionPause, ActionKill}
	}
	return nil
}

// Edge is a dependency from Source to Target. Either end may not exist yet.
type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// EdgeID returns the identity of the edge source -> target.
func EdgeID(source, target string) string {
	return source + "-" + target
}

// Graph is the reconciled view of a task's steps. Nodes and edges are only
// ever added; iteration follows insertion order.
type Graph struct {
	nodes     map[string]*Node
	nodeOrder []string
	edges     map[string]*Edge
	edgeOrder []string
}

func newGraph() *Graph {
	return &Graph{
		nodes: make(map[string]*Node),
		edges: make(map[string]*Edge),
	}
}

// Node looks up a node by step name.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Edge looks up an edge by id.
func (g *Graph) Edge(id string) (*Edge, bool) {
	e, ok := g.edges[id]
	return e, ok
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, len(g.nodeOrder))
	for i, id := range g.nodeOrder {
		out[i] = g.nodes[id]
	}
	return out
}

// Edges returns all edges in insertion order.
func (g *Graph) Edges() []*Edge {
	out := make([]*Edge, len(g.edgeOrder))
	for i, id := range g.edgeOrder {
		out[i] = g.edges[id]
	}
	return out
}

// Dangling returns edges with at least one endpoint that has no node.
func (g *Graph) Dangling() []*Edge {
	var out []*Edge
	for _, id := range g.edgeOrder {
		e := g.edges[id]
		_, okS := g.nodes[e.Source]
		_, okT := g.nodes[e.Target]
		if !okS || !okT {
			out = append(out, e)
		}
	}
	return out
}

func (g *Graph) NodeCount() int { return len(g.nodeOrder) }
func (g *Graph) EdgeCount() int { return len(g.edgeOrder) }

func (g *Graph) addNode(n *Node) {
	g.nodes[n.ID] = n
	g.nodeOrder = append(g.nodeOrder, n.ID)
}

// addEdge inserts the edge unless its id is already present.
func (g *Graph) addEdge(source, target string) (string, bool) {
	id := EdgeID(source, target)
	if _, ok := g.edges[id]; ok {
		return id, false
	}
	g.edges[id] = &Edge{ID: id, Source: source, Target: target}
	g.edgeOrder = append(g.edgeOrder, id)
	return id, true
}

// Layers groups node ids by the length of their longest dependency chain,
// so layer 0 holds the steps with no known dependencies. Edges to missing
// nodes and self-loops are ignored. If the dependencies form a cycle the
// result is a single layer in insertion order.
func (g *Graph) Layers() [][]string {
	if len(g.nodeOrder) == 0 {
		return nil
	}
	index := make(map[string]int64, len(g.nodeOrder))
	dg := simple.NewDirectedGraph()
	for i, id := range g.nodeOrder {
		index[id] = int64(i)
		dg.AddNode(simple.Node(int64(i)))
	}
	for _, eid := range g.edgeOrder {
		e := g.edges[eid]
		from, okS := index[e.Source]
		to, okT := index[e.Target]
		if !okS || !okT || from == to {
			continue
		}
		dg.SetEdge(dg.NewEdge(dg.Node(from), dg.Node(to)))
	}

	sorted, err := topo.Sort(dg)
	if err != nil {
		return [][]string{append([]string(nil), g.nodeOrder...)}
	}

	rank := make([]int, len(g.nodeOrder))
	depth := 0
	for _, n := range sorted {
		r := 0
		preds := dg.To(n.ID())
		for preds.Next() {
			if pr := rank[preds.Node().ID()] + 1; pr > r {
				r = pr
			}
		}
		rank[n.ID()] = r
		if r > depth {
			depth = r
		}
	}

	layers := make([][]string, depth+1)
	for i, id := range g.nodeOrder {
		layers[rank[i]] = append(layers[rank[i]], id)
	}
	return layers
}
