package dashboard

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/alfredjeanlab/flowview/internal/channel"
	"github.com/alfredjeanlab/flowview/internal/listing"
	"github.com/alfredjeanlab/flowview/internal/model"
)

// ListKind names one of the paginated resources.
type ListKind int

const (
	ListTasks ListKind = iota
	ListPipelines
	ListBuilds
)

func (k ListKind) String() string {
	switch k {
	case ListTasks:
		return "tasks"
	case ListPipelines:
		return "pipelines"
	case ListBuilds:
		return "builds"
	default:
		return fmt.Sprintf("list(%d)", int(k))
	}
}

// Feed is a paginated list kept current over its own channel.
type Feed[T any] struct {
	kind   ListKind
	ch     *channel.Channel
	ctl    *listing.Controller[T]
	opened bool
}

func (f *Feed[T]) Kind() ListKind { return f.kind }
func (f *Feed[T]) Channel() *channel.Channel { return f.ch }
func (f *Feed[T]) Controller() *listing.Controller[T] { return f.ctl }

// WatchTasks opens the task list feed.
func (d *Dashboard) WatchTasks() (*Feed[model.Task], error) {
	return watch[model.Task](d, ListTasks, "/task")
}

// WatchPipelines opens the pipeline list feed.
func (d *Dashboard) WatchPipelines() (*Feed[model.Pipeline], error) {
	return watch[model.Pipeline](d, ListPipelines, "/pipeline")
}

// WatchBuilds opens the feed of build task names for one pipeline.
func (d *Dashboard) WatchBuilds(pipeline string) (*Feed[string], error) {
	if strings.TrimSpace(pipeline) == "" {
		return nil, fmt.Errorf("dashboard: pipeline name is required")
	}
	return watch[string](d, ListBuilds, "/pipeline/"+url.PathEscape(pipeline)+"/build")
}

// CloseFeed releases the feed's channel.
func (d *Dashboard) CloseFeed(ch *channel.Channel) {
	if _, ok := d.lists[ch]; !ok {
		return
	}
	delete(d.lists, ch)
	ch.Close("list closed")
}

// watch opens a list channel. The first page is selected through the URL
// query; after a reconnect the last request is re-sent only when
// ResyncOnReconnect is set.
func watch[T any](d *Dashboard, kind ListKind, path string) (*Feed[T], error) {
	size := d.cfg.PageSize
	if size <= 0 {
		size = listing.DefaultPageSize
	}
	q := url.Values{}
	q.Set("page", "1")
	q.Set("size", strconv.Itoa(size))
	target := strings.TrimRight(d.cfg.WSBase(), "/") + path + "?" + q.Encode()

	f := &Feed[T]{kind: kind}
	opts := d.channelOptions()
	opts.OnOpen = func() {
		if f.opened && d.cfg.ResyncOnReconnect {
			f.ctl.Resync()
		}
		f.opened = true
	}
	opts.OnMessage = func(env model.Envelope) {
		if err := f.ctl.Handle(env); err != nil {
			d.log.Warn("dashboard: dropping list frame", "list", kind.String(), "error", err)
			d.alert(kind.String(), err)
		}
	}
	opts.OnError = func(err error) { d.alert(kind.String(), err) }

	f.ch = channel.New(target, opts)
	f.ctl = listing.NewController[T](f.ch, size, d.log)
	f.ctl.OnChange(func(listing.State[T]) { d.changed(kind.String()) })

	if err := f.ch.Open(); err != nil {
		return nil, fmt.Errorf("opening %s feed: %w", kind, err)
	}
	d.lists[f.ch] = struct{}{}
	return f, nil
}
