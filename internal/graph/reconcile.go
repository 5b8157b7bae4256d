package graph

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/alfredjeanlab/flowview/internal/model"
)

// Change describes what one snapshot did to the graph.
type Change struct {
	// Batch is set for the snapshot that created the graph.
	Batch   bool
	Created []string
	Updated []string
	Edges   []string
}

// Empty reports whether the snapshot changed nothing.
func (c Change) Empty() bool {
	return !c.Batch && len(c.Created) == 0 && len(c.Updated) == 0 && len(c.Edges) == 0
}

// Reconciler merges step snapshots for one task into a Graph.
type Reconciler struct {
	task  string
	graph *Graph
	now   func() time.Time
	log   *slog.Logger
}

// NewReconciler creates a reconciler for task. The graph does not exist
// until the first snapshot arrives.
func NewReconciler(task string, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		task: task,
		now:  time.Now,
		log:  logger.With("task", task),
	}
}

// Task returns the task this reconciler is bound to.
func (r *Reconciler) Task() string { return r.task }

// Graph returns the reconciled graph, or nil before the first snapshot.
func (r *Reconciler) Graph() *Graph { return r.graph }

// Handle decodes the snapshot carried by env and applies it. An envelope
// without data changes nothing. A payload that is not a list of named steps
// is rejected whole with a *model.ProtocolError.
func (r *Reconciler) Handle(env model.Envelope) (Change, error) {
	if !env.HasData() {
		return Change{}, nil
	}
	var steps []model.Step
	if err := json.Unmarshal(env.Data, &steps); err != nil {
		return Change{}, &model.ProtocolError{Frame: excerpt(env.Data), Reason: "snapshot is not a list of steps", Err: err}
	}
	if err := model.ValidateSnapshot(steps); err != nil {
		return Change{}, &model.ProtocolError{Frame: excerpt(env.Data), Reason: "invalid snapshot", Err: err}
	}
	return r.Apply(env.Code, steps), nil
}

// Apply merges steps into the graph. The first snapshot creates the graph
// in one batch. Later snapshots add unseen nodes, replace the payload of
// known nodes wholesale and add unseen edges; nothing is ever removed.
func (r *Reconciler) Apply(code model.Code, steps []model.Step) Change {
	now := r.now()
	var ch Change

	if r.graph == nil {
		r.graph = newGraph()
		ch.Batch = true
	}
	g := r.graph

	for _, s := range steps {
		if n, ok := g.nodes[s.Name]; ok {
			n.Step = s
			n.Code = code
			n.LastUpdated = now
			ch.Updated = append(ch.Updated, s.Name)
		} else {
			g.addNode(&Node{ID: s.Name, Step: s, Code: code, LastUpdated: now})
			ch.Created = append(ch.Created, s.Name)
		}
		for _, dep := range s.Depends {
			if id, added := g.addEdge(dep, s.Name); added {
				ch.Edges = append(ch.Edges, id)
			}
		}
	}

	if ch.Batch {
		r.log.Debug("graph: created", "nodes", len(ch.Created), "edges", len(ch.Edges))
	} else if len(ch.Created) > 0 || len(ch.Edges) > 0 {
		r.log.Debug("graph: grew", "new_nodes", len(ch.Created), "new_edges", len(ch.Edges))
	}
	return ch
}

func excerpt(data []byte) string {
	const max = 256
	if len(data) > max {
		return string(data[:max]) + "..."
	}
	return string(data)
}
