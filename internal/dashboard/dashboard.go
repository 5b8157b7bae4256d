// Package dashboard wires the live views onto one loop: paginated list
// feeds, the panel stack and the event ticker. Everything except Run, Do and
// ExportFunc must be called on the loop, either from a callback or via Do.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/alfredjeanlab/flowview/internal/channel"
	"github.com/alfredjeanlab/flowview/internal/config"
	"github.com/alfredjeanlab/flowview/internal/events"
	"github.com/alfredjeanlab/flowview/internal/idgen"
	"github.com/alfredjeanlab/flowview/internal/loop"
	"github.com/alfredjeanlab/flowview/internal/panel"
)

// PanelsView is the change reported when panels were opened, raised or closed.
const PanelsView = "panels"

// Options configures a Dashboard. Config is required.
type Options struct {
	Config *config.Config
	// Dialer defaults to a websocket dialer carrying the configured token.
	Dialer channel.Dialer
	Clock  channel.Clock
	Logger *slog.Logger

	// MaxOutputLines caps each step panel's output buffer.
	MaxOutputLines int

	// OnChange is called on the loop after the named view changed, e.g.
	// "tasks", "events" or "task:build-1".
	OnChange func(view string)
	// OnAlert is called on the loop for every error a view reports.
	OnAlert func(view string, err error)
}

// Dashboard owns the loop and every view running on it.
type Dashboard struct {
	id     string
	cfg    *config.Config
	opts   Options
	log    *slog.Logger
	loop   *loop.Loop
	dialer channel.Dialer
	stack  *panel.Stack
	events *events.Log
	lists  map[*channel.Channel]struct{}
}

// New creates a dashboard. Nothing connects until views are opened.
func New(opts Options) (*Dashboard, error) {
	if opts.Config == nil {
		return nil, errors.New("dashboard: config is required")
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	d := &Dashboard{
		id:     idgen.Session(),
		cfg:    opts.Config,
		opts:   opts,
		loop:   loop.New(),
		dialer: opts.Dialer,
		events: events.NewLog(events.DefaultLogSize),
		lists:  make(map[*channel.Channel]struct{}),
	}
	d.log = log.With("session", d.id)
	if d.dialer == nil {
		d.dialer = newDialer(d.cfg.Token)
	}
	d.stack = panel.NewStack(panel.Options{
		WSBase:         d.cfg.WSBase(),
		Factory:        panel.ChannelFactory(d.channelOptions),
		Logger:         d.log,
		MaxOutputLines: opts.MaxOutputLines,
		OnUpdate:       func(p *panel.Panel) { d.changed(p.Key().String()) },
		OnAlert:        func(p *panel.Panel, err error) { d.alert(p.Key().String(), err) },
	})
	return d, nil
}

func newDialer(token string) *channel.WSDialer {
	wd := &channel.WSDialer{}
	if token != "" {
		wd.Header = http.Header{"Authorization": []string{"Bearer " + token}}
	}
	return wd
}

// ID identifies this dashboard run in log output.
func (d *Dashboard) ID() string { return d.id }

// Config returns the configuration the dashboard was built with.
func (d *Dashboard) Config() *config.Config { return d.cfg }

// Panels returns the panel stack.
func (d *Dashboard) Panels() *panel.Stack { return d.stack }

// Events returns the ticker log. It is safe to read from any goroutine.
func (d *Dashboard) Events() *events.Log { return d.events }

// OpenTask opens (or raises) the task panel for name.
func (d *Dashboard) OpenTask(name string) (*panel.Panel, error) {
	return d.stack.Open(panel.KindTask, name)
}

// OpenStep opens (or raises) a step panel of the current task.
func (d *Dashboard) OpenStep(step string) (*panel.Panel, error) {
	p, err := d.stack.Open(panel.KindStep, step)
	if err != nil {
		return nil, err
	}
	d.changed(PanelsView)
	return p, nil
}

// CloseStep closes the step panel for step and reports whether one was open.
func (d *Dashboard) CloseStep(step string) bool {
	p, ok := d.stack.Lookup(panel.Key{Kind: panel.KindStep, ID: step})
	if !ok {
		return false
	}
	d.stack.Close(p)
	d.changed(PanelsView)
	return true
}

// CloseSteps closes every step panel and keeps the task panel.
func (d *Dashboard) CloseSteps() {
	d.stack.CloseChildren()
	d.changed(PanelsView)
}

// Dismiss closes the task panel together with its steps.
func (d *Dashboard) Dismiss() {
	d.stack.Dismiss()
	d.changed(PanelsView)
}

// Do runs fn on the loop and waits for it. It must not be called from the
// loop itself.
func (d *Dashboard) Do(ctx context.Context, fn func()) error {
	return d.loop.Call(ctx, fn)
}

// Run drives the loop and the given event sources until ctx is cancelled,
// then closes every view. An event source that fails is logged and dropped;
// the views keep running.
func (d *Dashboard) Run(ctx context.Context, sources ...events.Source) error {
	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := d.loop.Run(loopCtx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("dashboard loop: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		if err := d.loop.Call(context.Background(), d.shutdown); err != nil {
			d.log.Debug("dashboard: shutdown skipped", "error", err)
		}
		stopLoop()
		return nil
	})
	for _, src := range sources {
		g.Go(func() error {
			if err := src.Run(gctx, d.emit); err != nil {
				d.log.Warn("dashboard: event source stopped", "source", src.Name(), "error", err)
			}
			return nil
		})
	}
	d.log.Info("dashboard: running", "ws", d.cfg.WSBase(), "sources", len(sources))
	return g.Wait()
}

func (d *Dashboard) shutdown() {
	for ch := range d.lists {
		ch.Close("dashboard stopped")
	}
	clear(d.lists)
	d.stack.Dismiss()
	d.log.Info("dashboard: stopped")
}

func (d *Dashboard) emit(e events.Event) {
	d.events.Add(e)
	d.loop.Post(func() { d.changed("events") })
}

// channelOptions returns fresh options for one channel. Each call builds a
// new reconnect policy.
func (d *Dashboard) channelOptions() channel.Options {
	return channel.Options{
		Dialer:      d.dialer,
		Dispatcher:  d.loop,
		Clock:       d.opts.Clock,
		Policy:      ReconnectPolicy(d.cfg),
		IdleTimeout: d.cfg.IdleTimeout,
		Logger:      d.log,
	}
}

func (d *Dashboard) changed(view string) {
	if d.opts.OnChange != nil {
		d.opts.OnChange(view)
	}
}

func (d *Dashboard) alert(view string, err error) {
	if d.opts.OnAlert != nil {
		d.opts.OnAlert(view, err)
	}
}

// ReconnectPolicy builds the reconnect policy described by cfg.
func ReconnectPolicy(cfg *config.Config) channel.Policy {
	var p channel.Policy
	switch cfg.Backoff {
	case config.BackoffExponential:
		p = channel.Exponential(cfg.ReconnectDelay, cfg.MaxBackoff)
	default:
		p = channel.Fixed(cfg.ReconnectDelay)
	}
	return channel.Capped(p, cfg.MaxReconnects)
}
