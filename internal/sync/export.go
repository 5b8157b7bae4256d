package sync

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/alfredjeanlab/flowview/internal/graph"
	"github.com/alfredjeanlab/flowview/internal/model"
)

// header is the first JSONL record written by ExportJSONL.
type header struct {
	Version   string    `json:"version"`
	Type      string    `json:"type"`
	Task      string    `json:"task"`
	Timestamp time.Time `json:"timestamp"`
	NodeCount int       `json:"node_count"`
	EdgeCount int       `json:"edge_count"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type nodeRecord struct {
	ID          string     `json:"id"`
	Layer       int        `json:"layer"`
	Code        model.Code `json:"code"`
	LastUpdated time.Time  `json:"last_updated"`
	Step        model.Step `json:"step"`
}

type edgeRecord struct {
	ID       string `json:"id"`
	Source   string `json:"source"`
	Target   string `json:"target"`
	Dangling bool   `json:"dangling,omitempty"`
}

// ObjectName is the default destination name for a task's export.
func ObjectName(task string) string {
	return task + ".jsonl"
}

// ExportJSONL writes the graph of task as JSONL to w: a header, then nodes
// sorted by ID, then edges sorted by ID. A nil graph exports the header only.
func ExportJSONL(task string, g *graph.Graph, w io.Writer) error {
	var (
		nodes []*graph.Node
		edges []*graph.Edge
		layer = map[string]int{}
	)
	if g != nil {
		nodes = g.Nodes()
		edges = g.Edges()
		for i, ids := range g.Layers() {
			for _, id := range ids {
				layer[id] = i
			}
		}
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	sort.Slice(edges, func(i, j int) bool { return edges[i].ID < edges[j].ID })

	dangling := map[string]bool{}
	if g != nil {
		for _, e := range g.Dangling() {
			dangling[e.ID] = true
		}
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:   "1",
		Type:      "header",
		Task:      task,
		Timestamp: time.Now().UTC(),
		NodeCount: len(nodes),
		EdgeCount: len(edges),
	}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	for _, n := range nodes {
		rec := nodeRecord{ID: n.ID, Layer: layer[n.ID], Code: n.Code, LastUpdated: n.LastUpdated, Step: n.Step}
		if err := enc.Encode(record{Type: "node", Data: rec}); err != nil {
			return fmt.Errorf("encode node %s: %w", n.ID, err)
		}
	}

	for _, e := range edges {
		rec := edgeRecord{ID: e.ID, Source: e.Source, Target: e.Target, Dangling: dangling[e.ID]}
		if err := enc.Encode(record{Type: "edge", Data: rec}); err != nil {
			return fmt.Errorf("encode edge %s: %w", e.ID, err)
		}
	}

	return nil
}
