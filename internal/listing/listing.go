// Package listing drives a paginated list over a push channel: it sends page
// requests and replaces its state wholesale from each pushed page.
package listing

import (
	"encoding/json"
	"log/slog"

	"github.com/alfredjeanlab/flowview/internal/model"
)

// DefaultPageSize is the page size used until the user picks another.
const DefaultPageSize = 15

// Sender transmits an outbound request. It reports false when the message
// was dropped because the transport is not open.
type Sender interface {
	Send(v any) bool
}

// State is the list as last reported by the server.
type State[T any] struct {
	CurrentPage int
	PageSize    int
	TotalPages  int
	Items       []T
}

// PrevDisabled reports whether there is no earlier page.
func (s State[T]) PrevDisabled() bool { return s.CurrentPage <= 1 }

// NextDisabled reports whether there is no later page.
func (s State[T]) NextDisabled() bool { return s.CurrentPage >= s.TotalPages }

// payload accepts the item list under any of the keys the engine uses.
type payload[T any] struct {
	Items     []T         `json:"items"`
	Tasks     []T         `json:"tasks"`
	Pipelines []T         `json:"pipelines"`
	Page      *model.Page `json:"page"`
}

func (p payload[T]) items() []T {
	switch {
	case p.Items != nil:
		return p.Items
	case p.Tasks != nil:
		return p.Tasks
	default:
		return p.Pipelines
	}
}

// Controller is a paginated list bound to one channel. Like the channel it
// is driven from a single goroutine.
type Controller[T any] struct {
	sender   Sender
	state    State[T]
	last     model.PageRequest
	log      *slog.Logger
	onChange func(State[T])
}

// NewController creates a controller that sends requests through sender.
func NewController[T any](sender Sender, pageSize int, logger *slog.Logger) *Controller[T] {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller[T]{
		sender: sender,
		state:  State[T]{CurrentPage: 1, PageSize: pageSize},
		last:   model.PageRequest{Page: 1, Size: pageSize},
		log:    logger,
	}
}

// OnChange registers fn to be called after every applied update.
func (c *Controller[T]) OnChange(fn func(State[T])) { c.onChange = fn }

// State returns the current list state.
func (c *Controller[T]) State() State[T] { return c.state }

// LastRequest returns the most recent page request, sent or not.
func (c *Controller[T]) LastRequest() model.PageRequest { return c.last }

// RequestPage asks for one page. It returns false when the request was
// dropped because the channel is not open; state is unchanged either way.
func (c *Controller[T]) RequestPage(page, size int) bool {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = c.state.PageSize
	}
	c.last = model.PageRequest{Page: page, Size: size}
	if !c.sender.Send(c.last) {
		c.log.Debug("listing: page request dropped", "page", page, "size", size)
		return false
	}
	return true
}

// Refresh requests the current page again.
func (c *Controller[T]) Refresh() bool {
	return c.RequestPage(c.state.CurrentPage, c.state.PageSize)
}

// Next requests the following page unless already on the last one.
func (c *Controller[T]) Next() bool {
	if c.state.NextDisabled() {
		return false
	}
	return c.RequestPage(c.state.CurrentPage+1, c.state.PageSize)
}

// Prev requests the preceding page unless already on the first one.
func (c *Controller[T]) Prev() bool {
	if c.state.PrevDisabled() {
		return false
	}
	return c.RequestPage(c.state.CurrentPage-1, c.state.PageSize)
}

// SetPageSize switches the page size and goes back to page 1.
func (c *Controller[T]) SetPageSize(n int) bool {
	if n <= 0 {
		n = DefaultPageSize
	}
	return c.RequestPage(1, n)
}

// Resync re-sends the last request, e.g. after the channel reconnects.
func (c *Controller[T]) Resync() bool {
	return c.RequestPage(c.last.Page, c.last.Size)
}

// Handle applies one pushed page. Without data the list is emptied and
// reported as a single page. A payload of the wrong shape is rejected with a
// *model.ProtocolError and leaves the state untouched.
func (c *Controller[T]) Handle(env model.Envelope) error {
	if !env.HasData() {
		c.state.Items = nil
		c.state.TotalPages = 1
		c.changed()
		return nil
	}

	var p payload[T]
	if err := json.Unmarshal(env.Data, &p); err != nil {
		return &model.ProtocolError{Frame: string(env.Data), Reason: "list payload", Err: err}
	}
	items := p.items()
	if items == nil || p.Page == nil {
		// The engine sends data without a list when a page is empty.
		c.state.Items = nil
		c.state.TotalPages = 1
		c.changed()
		return nil
	}

	c.state = State[T]{
		CurrentPage: p.Page.Current,
		PageSize:    p.Page.Size,
		TotalPages:  p.Page.Total,
		Items:       items,
	}
	if c.state.PageSize <= 0 {
		c.state.PageSize = c.last.Size
	}
	c.changed()
	return nil
}

func (c *Controller[T]) changed() {
	if c.onChange != nil {
		c.onChange(c.state)
	}
}
