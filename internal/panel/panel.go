// Package panel manages the stack of open detail panels: at most one task
// panel and any number of step panels belonging to it. Each panel owns the
// push channel that feeds it and releases it when closed.
package panel

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"

	"github.com/alfredjeanlab/flowview/internal/channel"
	"github.com/alfredjeanlab/flowview/internal/graph"
	"github.com/alfredjeanlab/flowview/internal/model"
)

// BaselineZ is the stacking order panels count up from.
const BaselineZ = 1000

// ErrNoTask is returned when a step panel is opened without a task panel.
var ErrNoTask = errors.New("panel: no task panel open")

// Kind distinguishes task panels from step panels.
type Kind int

const (
	KindTask Kind = iota
	KindStep
)

func (k Kind) String() string {
	switch k {
	case KindTask:
		return "task"
	case KindStep:
		return "step"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// OwnsChannel reports whether panels of this kind hold a push channel.
func (k Kind) OwnsChannel() bool { return k == KindTask || k == KindStep }

// Cascades reports whether closing a panel of this kind closes its children.
func (k Kind) Cascades() bool { return k == KindTask }

// Key identifies a panel. For step panels ID is the step name.
type Key struct {
	Kind Kind
	ID   string
}

func (k Key) String() string { return k.Kind.String() + ":" + k.ID }

// Feed is the push channel a panel owns.
type Feed interface {
	Open() error
	Close(reason string)
}

// FeedFactory creates an unopened feed for url that reports to the given
// handlers.
type FeedFactory func(url string, onMessage func(model.Envelope), onError func(error)) Feed

// ChannelFactory builds feeds from channel.New. base is called once per feed
// so that stateful parts such as the reconnect policy are never shared.
func ChannelFactory(base func() channel.Options) FeedFactory {
	return func(url string, onMessage func(model.Envelope), onError func(error)) Feed {
		opts := base()
		opts.OnMessage = onMessage
		opts.OnError = onError
		return channel.New(url, opts)
	}
}

// Panel is one open task or step panel.
type Panel struct {
	key    Key
	z      int
	feed   Feed
	parent *Panel
	closed bool

	reconciler *graph.Reconciler
	output     *StepOutput
	lastErr    error
}

func (p *Panel) Key() Key { return p.key }
func (p *Panel) Kind() Kind { return p.key.Kind }
func (p *Panel) ID() string { return p.key.ID }
func (p *Panel) Z() int { return p.z }
func (p *Panel) Closed() bool { return p.closed }
func (p *Panel) Parent() *Panel { return p.parent }

// LastError returns the most recent error reported by the panel's feed.
func (p *Panel) LastError() error { return p.lastErr }

// Graph returns the task graph, or nil for step panels and before the first
// snapshot.
func (p *Panel) Graph() *graph.Graph {
	if p.reconciler == nil {
		return nil
	}
	return p.reconciler.Graph()
}

// Output returns the step output buffer, or nil for task panels.
func (p *Panel) Output() *StepOutput { return p.output }

// Options configures a Stack.
type Options struct {
	// WSBase is the websocket base URL, e.g. ws://host:2376/api/v1.
	WSBase  string
	Factory FeedFactory
	Logger  *slog.Logger

	// MaxOutputLines caps each step output buffer. Zero keeps everything.
	MaxOutputLines int

	// OnUpdate is called after a panel's content changed.
	OnUpdate func(*Panel)
	// OnAlert is called for every error a panel's feed reports.
	OnAlert func(*Panel, error)
}

// Stack owns the open panels and their stacking order. It is driven from a
// single goroutine.
type Stack struct {
	opts    Options
	log     *slog.Logger
	counter int
	task    *Panel
	steps   map[string]*Panel
}

// NewStack creates an empty stack.
func NewStack(opts Options) *Stack {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Stack{
		opts:    opts,
		log:     log,
		counter: BaselineZ,
		steps:   make(map[string]*Panel),
	}
}

// Counter returns the current top of the stacking order.
func (s *Stack) Counter() int { return s.counter }

// Task returns the open task panel, if any.
func (s *Stack) Task() *Panel { return s.task }

// Lookup returns the open panel for key.
func (s *Stack) Lookup(key Key) (*Panel, bool) {
	switch key.Kind {
	case KindTask:
		if s.task != nil && s.task.key == key {
			return s.task, true
		}
	case KindStep:
		p, ok := s.steps[key.ID]
		return p, ok
	}
	return nil, false
}

// Panels returns every open panel, lowest first.
func (s *Stack) Panels() []*Panel {
	var out []*Panel
	if s.task != nil {
		out = append(out, s.task)
	}
	for _, p := range s.steps {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].z < out[j].z })
	return out
}

// Top returns the front-most panel.
func (s *Stack) Top() *Panel {
	ps := s.Panels()
	if len(ps) == 0 {
		return nil
	}
	return ps[len(ps)-1]
}

// Open returns the panel for (kind, id), raising it if it is already open.
// Otherwise it creates the panel and opens its feed. Opening a different
// task closes the current task panel first.
func (s *Stack) Open(kind Kind, id string) (*Panel, error) {
	key := Key{Kind: kind, ID: id}
	if p, ok := s.Lookup(key); ok {
		s.Raise(p)
		return p, nil
	}

	p := &Panel{key: key}
	switch kind {
	case KindTask:
		if s.task != nil {
			s.Close(s.task)
		}
		p.reconciler = graph.NewReconciler(id, s.log)
	case KindStep:
		if s.task == nil {
			return nil, ErrNoTask
		}
		p.parent = s.task
		p.output = NewStepOutput(s.opts.MaxOutputLines)
	default:
		return nil, fmt.Errorf("panel: unknown kind %v", kind)
	}

	if kind.OwnsChannel() {
		p.feed = s.opts.Factory(s.feedURL(p), s.messageHandler(p), s.errorHandler(p))
	}
	s.register(p)
	s.Raise(p)
	if p.feed != nil {
		if err := p.feed.Open(); err != nil {
			s.release(p)
			return nil, fmt.Errorf("opening %s feed: %w", key, err)
		}
	}
	s.log.Debug("panel: opened", "panel", key.String(), "z", p.z)
	return p, nil
}

// Raise brings p to the front.
func (s *Stack) Raise(p *Panel) {
	if p == nil || p.closed {
		return
	}
	s.counter++
	p.z = s.counter
}

// Close closes p and releases its feed. Closing the task panel closes its
// step panels first and resets the stacking order.
func (s *Stack) Close(p *Panel) {
	if p == nil || p.closed {
		return
	}
	if p.key.Kind.Cascades() {
		s.closeSteps()
	}
	s.release(p)
	if p.key.Kind == KindTask {
		s.counter = BaselineZ
	}
	s.log.Debug("panel: closed", "panel", p.key.String())
}

// CloseChildren closes every step panel and resets the stacking order. The
// task panel is raised again from the baseline so that steps opened later
// stack above it.
func (s *Stack) CloseChildren() {
	s.closeSteps()
	s.counter = BaselineZ
	s.Raise(s.task)
}

func (s *Stack) closeSteps() {
	for _, p := range s.Panels() {
		if p.key.Kind == KindStep {
			s.release(p)
		}
	}
}

// Dismiss closes the task panel and everything above it.
func (s *Stack) Dismiss() {
	if s.task != nil {
		s.Close(s.task)
	}
}

func (s *Stack) register(p *Panel) {
	if p.key.Kind == KindTask {
		s.task = p
		return
	}
	s.steps[p.key.ID] = p
}

// release marks p closed, which detaches its handlers, closes its feed and
// unregisters it.
func (s *Stack) release(p *Panel) {
	p.closed = true
	if p.feed != nil {
		p.feed.Close("panel closed")
	}
	switch p.key.Kind {
	case KindTask:
		if s.task == p {
			s.task = nil
		}
	case KindStep:
		if s.steps[p.key.ID] == p {
			delete(s.steps, p.key.ID)
		}
	}
}

func (s *Stack) feedURL(p *Panel) string {
	base := strings.TrimRight(s.opts.WSBase, "/")
	switch p.key.Kind {
	case KindTask:
		return base + "/task/" + url.PathEscape(p.key.ID) + "/step"
	default:
		return base + "/task/" + url.PathEscape(p.parent.key.ID) + "/step/" + url.PathEscape(p.key.ID) + "/log"
	}
}

func (s *Stack) messageHandler(p *Panel) func(model.Envelope) {
	return func(env model.Envelope) {
		if p.closed {
			return
		}
		var err error
		switch p.key.Kind {
		case KindTask:
			var ch graph.Change
			ch, err = p.reconciler.Handle(env)
			if err == nil && ch.Empty() {
				return
			}
		case KindStep:
			err = appendLogs(p.output, env)
		}
		if err != nil {
			s.log.Warn("panel: dropping frame", "panel", p.key.String(), "error", err)
			s.alert(p, err)
			return
		}
		s.update(p)
	}
}

func (s *Stack) errorHandler(p *Panel) func(error) {
	return func(err error) {
		if p.closed {
			return
		}
		if p.key.Kind == KindStep {
			p.output.setFallback(s.stepMessage(p, err))
			s.update(p)
		}
		s.alert(p, err)
	}
}

// stepMessage is the step's last known message from the task graph.
func (s *Stack) stepMessage(p *Panel, err error) string {
	if g := p.parent.Graph(); g != nil {
		if n, ok := g.Node(p.key.ID); ok && n.Step.Message != "" {
			return n.Step.Message
		}
	}
	return err.Error()
}

func (s *Stack) alert(p *Panel, err error) {
	p.lastErr = err
	if s.opts.OnAlert != nil {
		s.opts.OnAlert(p, err)
	}
}

func (s *Stack) update(p *Panel) {
	if s.opts.OnUpdate != nil {
		s.opts.OnUpdate(p)
	}
}

func appendLogs(out *StepOutput, env model.Envelope) error {
	if !env.HasData() {
		return nil
	}
	var lines []model.StepLog
	if err := json.Unmarshal(env.Data, &lines); err != nil {
		return &model.ProtocolError{Frame: string(env.Data), Reason: "step log is not a list of lines", Err: err}
	}
	out.Append(lines...)
	return nil
}
