package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/alfredjeanlab/flowview/internal/events"
	"github.com/alfredjeanlab/flowview/internal/graph"
	"github.com/alfredjeanlab/flowview/internal/listing"
	"github.com/alfredjeanlab/flowview/internal/model"
	"github.com/alfredjeanlab/flowview/internal/panel"
	"github.com/alfredjeanlab/flowview/internal/ui"
)

func printJSON(w io.Writer, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
		return
	}
	fmt.Fprintln(w, string(data))
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n-3] + "..."
	}
	return s
}

func printPageFooter[T any](w io.Writer, s listing.State[T]) {
	nav := []string{}
	if !s.PrevDisabled() {
		nav = append(nav, "p: prev")
	}
	if !s.NextDisabled() {
		nav = append(nav, "n: next")
	}
	fmt.Fprintf(w, "\npage %d/%d (%d per page)", s.CurrentPage, s.TotalPages, s.PageSize)
	if len(nav) > 0 {
		fmt.Fprint(w, "  "+ui.RenderMuted(strings.Join(nav, "  ")))
	}
	fmt.Fprintln(w)
}

func printTaskList(w io.Writer, s listing.State[model.Task]) {
	if jsonOutput {
		printJSON(w, s)
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSTATE\tSTEPS\tNODE\tSTARTED\tMESSAGE")
	for _, t := range s.Items {
		started := ""
		if t.Time != nil {
			started = t.Time.Start
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n",
			t.Name,
			ui.RenderStatus(t.State),
			t.Count,
			t.Node,
			started,
			truncate(t.Message, 50),
		)
	}
	tw.Flush()
	printPageFooter(w, s)
}

func printPipelineList(w io.Writer, s listing.State[model.Pipeline]) {
	if jsonOutput {
		printJSON(w, s)
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTYPE\tDISABLED\tDESCRIPTION")
	for _, p := range s.Items {
		fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", p.Name, p.TplType, p.Disable, truncate(p.Desc, 50))
	}
	tw.Flush()
	printPageFooter(w, s)
}

func printBuildList(w io.Writer, pipeline string, s listing.State[string]) {
	if jsonOutput {
		printJSON(w, s)
		return
	}
	fmt.Fprintf(w, "Builds of %s:\n", ui.RenderAccent(pipeline))
	for _, name := range s.Items {
		fmt.Fprintf(w, "  %s\n", name)
	}
	printPageFooter(w, s)
}

// printGraph prints the task graph one dependency layer at a time.
func printGraph(w io.Writer, task string, g *graph.Graph) {
	if jsonOutput {
		printJSON(w, graphJSON(task, g))
		return
	}
	if g == nil {
		fmt.Fprintf(w, "%s: waiting for first snapshot\n", task)
		return
	}
	fmt.Fprintf(w, "Task %s (%d steps, %d edges)\n", ui.RenderAccent(task), g.NodeCount(), g.EdgeCount())
	for i, layer := range g.Layers() {
		fmt.Fprintf(w, "%s\n", ui.RenderMuted(fmt.Sprintf("layer %d", i)))
		for _, id := range layer {
			n, _ := g.Node(id)
			line := fmt.Sprintf("  %-24s %s", n.ID, ui.RenderStatus(n.Step.State))
			if len(n.Step.Depends) > 0 {
				line += ui.RenderMuted("  <- " + strings.Join(n.Step.Depends, ", "))
			}
			if acts := n.Actions(); len(acts) > 0 {
				names := make([]string, len(acts))
				for j, a := range acts {
					names[j] = string(a)
				}
				line += ui.RenderMuted("  [" + strings.Join(names, "|") + "]")
			}
			if n.Step.Message != "" {
				line += "  " + truncate(n.Step.Message, 60)
			}
			fmt.Fprintln(w, line)
		}
	}
	if dangling := g.Dangling(); len(dangling) > 0 {
		ids := make([]string, len(dangling))
		for i, e := range dangling {
			ids[i] = e.ID
		}
		fmt.Fprintf(w, "%s %s\n", ui.RenderMuted("unresolved edges:"), strings.Join(ids, ", "))
	}
}

type graphNodeJSON struct {
	ID          string         `json:"id"`
	Code        model.Code     `json:"code"`
	LastUpdated time.Time      `json:"last_updated"`
	Actions     []graph.Action `json:"actions,omitempty"`
	Step        model.Step     `json:"step"`
}

func graphJSON(task string, g *graph.Graph) any {
	out := struct {
		Task   string          `json:"task"`
		Layers [][]string      `json:"layers"`
		Nodes  []graphNodeJSON `json:"nodes"`
		Edges  []*graph.Edge   `json:"edges"`
	}{Task: task}
	if g == nil {
		return out
	}
	out.Layers = g.Layers()
	for _, n := range g.Nodes() {
		out.Nodes = append(out.Nodes, graphNodeJSON{ID: n.ID, Code: n.Code, LastUpdated: n.LastUpdated, Actions: n.Actions(), Step: n.Step})
	}
	out.Edges = g.Edges()
	return out
}

// printLogLines prints step output. A non-empty step labels every line, for
// views that interleave several steps.
func printLogLines(w io.Writer, step string, lines []model.StepLog) {
	for _, l := range lines {
		if jsonOutput {
			rec := struct {
				Step string `json:"step,omitempty"`
				model.StepLog
			}{step, l}
			data, _ := json.Marshal(rec)
			fmt.Fprintln(w, string(data))
			continue
		}
		if step != "" {
			fmt.Fprint(w, ui.RenderAccent("["+step+"]")+" ")
		}
		fmt.Fprintf(w, "%s %s\n", ui.RenderMuted(fmt.Sprintf("%5d", l.Line)), l.Content)
	}
}

// printPanels lists the open panels from front to back.
func printPanels(w io.Writer, panels []*panel.Panel) {
	if len(panels) == 0 {
		fmt.Fprintln(w, "no open panels")
		return
	}
	for i := len(panels) - 1; i >= 0; i-- {
		p := panels[i]
		fmt.Fprintf(w, "  %-24s z=%d\n", p.Key().String(), p.Z())
	}
}

func printEvent(w io.Writer, e events.Event) {
	if jsonOutput {
		data, _ := json.Marshal(e)
		fmt.Fprintln(w, string(data))
		return
	}
	label := e.Source
	if e.Topic != "" {
		label += ":" + e.Topic
	}
	fmt.Fprintf(w, "%s %s %s\n", ui.RenderMuted(e.Received.Format("15:04:05")), ui.RenderAccent(label), e.Data)
}

func printTaskDetail(w io.Writer, t *model.Task) {
	if jsonOutput {
		printJSON(w, t)
		return
	}
	fmt.Fprintf(w, "Name:        %s\n", t.Name)
	fmt.Fprintf(w, "State:       %s\n", ui.RenderStatus(t.State))
	fmt.Fprintf(w, "Steps:       %d\n", t.Count)
	if t.Description != "" {
		fmt.Fprintf(w, "Description: %s\n", t.Description)
	}
	if t.Node != "" {
		fmt.Fprintf(w, "Node:        %s\n", t.Node)
	}
	if t.Timeout != "" {
		fmt.Fprintf(w, "Timeout:     %s\n", t.Timeout)
	}
	if t.Time != nil && t.Time.Start != "" {
		fmt.Fprintf(w, "Started:     %s\n", t.Time.Start)
	}
	if t.Time != nil && t.Time.End != "" {
		fmt.Fprintf(w, "Ended:       %s\n", t.Time.End)
	}
	if t.Message != "" {
		fmt.Fprintf(w, "Message:     %s\n", t.Message)
	}
	for _, e := range t.Env {
		fmt.Fprintf(w, "Env:         %s=%s\n", e.Name, e.Value)
	}
}
