package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/alfredjeanlab/flowview/internal/config"
	"github.com/alfredjeanlab/flowview/internal/dashboard"
	"github.com/alfredjeanlab/flowview/internal/events"
	"github.com/alfredjeanlab/flowview/internal/listing"
	"github.com/alfredjeanlab/flowview/internal/ui"
)

// live is what a running view sees. Its callbacks run on the dashboard loop.
type live struct {
	d    *dashboard.Dashboard
	ctx  context.Context
	out  io.Writer
	stop context.CancelFunc
}

// liveView describes one long-running command.
type liveView struct {
	// cfg overrides the loaded config, e.g. for a custom page size.
	cfg            *config.Config
	maxOutputLines int

	// setup opens the view's feeds.
	setup func(l *live) error
	// onChange renders after a view changed.
	onChange func(l *live, view string)
	// onKey handles one line typed on stdin.
	onKey   func(l *live, line string)
	sources []events.Source
	// background runs alongside the view, off the loop.
	background func(ctx context.Context, d *dashboard.Dashboard) error
}

// runLive runs v until interrupted or until a callback calls stop.
func runLive(cmd *cobra.Command, v liveView) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := v.cfg
	if c == nil {
		c = cfg
	}
	l := &live{out: cmd.OutOrStdout(), stop: stop}
	d, err := dashboard.New(dashboard.Options{
		Config:         c,
		Logger:         logger,
		MaxOutputLines: v.maxOutputLines,
		OnChange: func(view string) {
			if v.onChange != nil {
				v.onChange(l, view)
			}
		},
		OnAlert: func(view string, err error) {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %s: %v\n", ui.RenderError("!"), view, err)
		},
	})
	if err != nil {
		return err
	}
	l.d = d

	g, gctx := errgroup.WithContext(ctx)
	l.ctx = gctx
	g.Go(func() error { return d.Run(gctx, v.sources...) })
	g.Go(func() error {
		var setupErr error
		if err := d.Do(gctx, func() { setupErr = v.setup(l) }); err != nil {
			// Interrupted before the loop got to it.
			return nil
		}
		return setupErr
	})
	if v.background != nil {
		g.Go(func() error { return v.background(gctx, d) })
	}
	if v.onKey != nil {
		go readCommands(gctx, cmd.InOrStdin(), func(line string) {
			_ = d.Do(gctx, func() { v.onKey(l, line) })
		})
	}
	return g.Wait()
}

// readCommands passes each non-empty stdin line to handle until r ends or
// ctx is done.
func readCommands(ctx context.Context, r io.Reader, handle func(line string)) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if ctx.Err() != nil {
			return
		}
		if line := strings.TrimSpace(sc.Text()); line != "" {
			handle(line)
		}
	}
}

// pageKey applies a paging command typed by the user: n(ext), p(rev),
// r(efresh), g <page>, s <size>, q(uit). It reports whether line was one.
func pageKey[T any](ctl *listing.Controller[T], line string, stop func()) bool {
	fields := strings.Fields(line)
	arg := func() (int, bool) {
		if len(fields) != 2 {
			return 0, false
		}
		n, err := strconv.Atoi(fields[1])
		return n, err == nil && n > 0
	}
	switch fields[0] {
	case "n", "next":
		ctl.Next()
	case "p", "prev":
		ctl.Prev()
	case "r", "refresh":
		ctl.Refresh()
	case "g", "page":
		n, ok := arg()
		if !ok {
			return false
		}
		ctl.RequestPage(n, ctl.State().PageSize)
	case "s", "size":
		n, ok := arg()
		if !ok {
			return false
		}
		ctl.SetPageSize(n)
	case "q", "quit":
		stop()
	default:
		return false
	}
	return true
}
