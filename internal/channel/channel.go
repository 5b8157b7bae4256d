// Package channel implements a reconnecting push channel over a message
// socket. All state transitions run on the owner's dispatcher goroutine;
// dial and read goroutines only post results back to it.
package channel

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/alfredjeanlab/flowview/internal/idgen"
	"github.com/alfredjeanlab/flowview/internal/model"
)

// State is the lifecycle state of a Channel.
type State int

const (
	StateClosed State = iota
	StateConnecting
	StateOpen
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// Conn is one established socket connection.
type Conn interface {
	// ReadMessage blocks for the next data frame. A peer close is
	// reported as a *CloseEvent.
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close(code int, reason string) error
}

// Dialer opens connections.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// Dispatcher serializes callbacks onto the owner's goroutine. Post returns
// false once the dispatcher has stopped.
type Dispatcher interface {
	Post(fn func()) bool
}

// Options configures a Channel. Dialer and Dispatcher are required.
type Options struct {
	Dialer     Dialer
	Dispatcher Dispatcher
	Clock      Clock
	Policy     Policy

	// IdleTimeout treats an open connection with no inbound frame for this
	// long as failed. Zero disables the check.
	IdleTimeout time.Duration

	// ReconnectOnCleanClose also reconnects after a normal close frame from
	// the server.
	ReconnectOnCleanClose bool

	Logger *slog.Logger

	OnOpen        func()
	OnMessage     func(model.Envelope)
	OnError       func(error)
	OnStateChange func(State)
}

type timerSlot struct {
	timer Timer
	seq   uint64
}

func (s *timerSlot) pending() bool { return s.timer != nil }

// Channel is a push channel bound to one URL. It is not safe for concurrent
// use: every method must be called on the dispatcher goroutine.
type Channel struct {
	id     string
	url    string
	opts   Options
	clock  Clock
	policy Policy
	log    *slog.Logger

	state       State
	manualClose bool
	conn        Conn
	epoch       uint64
	cancelDial  context.CancelFunc
	attempts    int
	lastFrame   time.Time

	reconnect timerSlot
	idle      timerSlot
}

// New creates a closed channel for url. Call Open to connect.
func New(url string, opts Options) *Channel {
	c := &Channel{
		id:     idgen.Channel(),
		url:    url,
		opts:   opts,
		clock:  opts.Clock,
		policy: opts.Policy,
		log:    opts.Logger,
	}
	if c.clock == nil {
		c.clock = SystemClock
	}
	if c.policy == nil {
		c.policy = Fixed(DefaultReconnectDelay)
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	c.log = c.log.With("channel", c.id, "url", url)
	return c
}

// ID returns the channel's generated identifier.
func (c *Channel) ID() string { return c.id }

// URL returns the endpoint the channel connects to.
func (c *Channel) URL() string { return c.url }

// State returns the current lifecycle state.
func (c *Channel) State() State { return c.state }

// Closed reports whether Close has been called.
func (c *Channel) Closed() bool { return c.manualClose }

// ReconnectPending reports whether a reconnect attempt is scheduled.
func (c *Channel) ReconnectPending() bool { return c.reconnect.pending() }

// Attempts returns the number of reconnects scheduled since the last open.
func (c *Channel) Attempts() int { return c.attempts }

// Open starts connecting. It is a no-op while connecting or open.
func (c *Channel) Open() error {
	if c.manualClose {
		return ErrClosed
	}
	if c.state == StateConnecting || c.state == StateOpen {
		return nil
	}
	c.connect()
	return nil
}

// Send serializes v as JSON and transmits it. Messages are dropped, not
// queued, unless the channel is open; the return value reports whether the
// frame was written.
func (c *Channel) Send(v any) bool {
	if c.state != StateOpen || c.conn == nil {
		c.log.Debug("channel: not open, dropping outbound message", "state", c.state.String())
		return false
	}
	data, err := json.Marshal(v)
	if err != nil {
		c.log.Error("channel: failed to encode outbound message", "error", err)
		return false
	}
	if err := c.conn.WriteMessage(data); err != nil {
		c.log.Warn("channel: write failed", "error", err)
		return false
	}
	return true
}

// Close shuts the channel down permanently. Pending reconnects are
// cancelled and no later event reopens it.
func (c *Channel) Close(reason string) {
	if c.manualClose {
		return
	}
	c.manualClose = true
	c.stopTimer(&c.reconnect)
	c.stopTimer(&c.idle)
	if c.cancelDial != nil {
		c.cancelDial()
		c.cancelDial = nil
	}

	switch c.state {
	case StateOpen:
		c.setState(StateClosing)
		conn := c.conn
		go func() { _ = conn.Close(NormalClosure, reason) }()
	case StateConnecting:
		c.setState(StateClosing)
	default:
		c.setState(StateClosed)
	}
	c.log.Info("channel: closed by owner", "reason", reason)
}

func (c *Channel) connect() {
	c.stopTimer(&c.reconnect)
	c.epoch++
	epoch := c.epoch
	ctx, cancel := context.WithCancel(context.Background())
	c.cancelDial = cancel
	c.setState(StateConnecting)
	c.log.Debug("channel: connecting", "attempt", c.attempts)

	dialer := c.opts.Dialer
	go func() {
		conn, err := dialer.Dial(ctx, c.url)
		if !c.post(func() { c.dialed(epoch, conn, err) }) && conn != nil {
			_ = conn.Close(NormalClosure, "dispatcher stopped")
		}
	}()
}

func (c *Channel) dialed(epoch uint64, conn Conn, err error) {
	current := epoch == c.epoch
	if current && c.cancelDial != nil {
		c.cancelDial()
		c.cancelDial = nil
	}
	if !current || c.manualClose {
		if conn != nil {
			_ = conn.Close(NormalClosure, "superseded")
		}
		if current {
			c.setState(StateClosed)
		}
		return
	}
	if err != nil {
		c.fail(&TransportError{URL: c.url, Op: "dial", Err: err})
		return
	}

	c.conn = conn
	c.attempts = 0
	c.policy.Reset()
	c.lastFrame = c.clock.Now()
	c.setState(StateOpen)
	c.armIdle(c.opts.IdleTimeout)
	c.log.Info("channel: connected")
	go c.readLoop(epoch, conn)
	if c.opts.OnOpen != nil {
		c.opts.OnOpen()
	}
}

func (c *Channel) readLoop(epoch uint64, conn Conn) {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			_ = conn.Close(NormalClosure, "")
			c.post(func() { c.readFailed(epoch, err) })
			return
		}
		if !c.post(func() { c.frame(epoch, data) }) {
			_ = conn.Close(NormalClosure, "dispatcher stopped")
			return
		}
	}
}

func (c *Channel) frame(epoch uint64, data []byte) {
	if epoch != c.epoch || c.state != StateOpen {
		return
	}
	c.lastFrame = c.clock.Now()
	env, err := model.DecodeEnvelope(data)
	if err != nil {
		c.log.Warn("channel: dropping malformed frame", "error", err)
		c.emitError(err)
		return
	}
	if c.opts.OnMessage != nil {
		c.opts.OnMessage(env)
	}
}

func (c *Channel) readFailed(epoch uint64, err error) {
	if epoch != c.epoch {
		return
	}
	c.conn = nil
	c.stopTimer(&c.idle)
	if c.manualClose {
		c.setState(StateClosed)
		return
	}

	var ce *CloseEvent
	if errors.As(err, &ce) && ce.Clean() && !c.opts.ReconnectOnCleanClose {
		c.log.Info("channel: server closed connection", "code", ce.Code, "reason", ce.Reason)
		c.setState(StateClosed)
		return
	}
	c.fail(&TransportError{URL: c.url, Op: "read", Err: err})
}

// fail reports err and hands the decision to the reconnect policy.
func (c *Channel) fail(err error) {
	c.conn = nil
	c.stopTimer(&c.idle)
	c.log.Warn("channel: transport failure", "error", err)
	c.emitError(err)
	c.setState(StateClosed)
	c.scheduleReconnect()
}

func (c *Channel) scheduleReconnect() {
	if c.manualClose || c.reconnect.pending() {
		return
	}
	delay := c.policy.NextBackOff()
	if delay == backoff.Stop {
		c.log.Warn("channel: giving up on reconnect", "attempts", c.attempts)
		c.emitError(&TransportError{URL: c.url, Op: "reconnect", Err: ErrReconnectExhausted})
		return
	}
	c.attempts++
	c.log.Info("channel: reconnect scheduled", "delay", delay, "attempt", c.attempts)
	c.startTimer(&c.reconnect, delay, func() {
		if c.manualClose || c.state != StateClosed {
			return
		}
		c.connect()
	})
}

func (c *Channel) armIdle(d time.Duration) {
	if c.opts.IdleTimeout <= 0 {
		return
	}
	c.startTimer(&c.idle, d, c.idleExpired)
}

func (c *Channel) idleExpired() {
	if c.state != StateOpen || c.conn == nil {
		return
	}
	quiet := c.clock.Now().Sub(c.lastFrame)
	if remaining := c.opts.IdleTimeout - quiet; remaining > 0 {
		c.armIdle(remaining)
		return
	}
	conn := c.conn
	c.epoch++
	go func() { _ = conn.Close(NormalClosure, "idle timeout") }()
	c.fail(&TransportError{URL: c.url, Op: "read", Err: ErrIdleTimeout})
}

func (c *Channel) startTimer(slot *timerSlot, d time.Duration, fn func()) {
	c.stopTimer(slot)
	seq := slot.seq
	slot.timer = c.clock.AfterFunc(d, func() {
		c.post(func() {
			if slot.seq != seq || slot.timer == nil {
				return
			}
			slot.timer = nil
			fn()
		})
	})
}

func (c *Channel) stopTimer(slot *timerSlot) {
	if slot.timer != nil {
		slot.timer.Stop()
		slot.timer = nil
	}
	slot.seq++
}

func (c *Channel) emitError(err error) {
	if c.opts.OnError != nil {
		c.opts.OnError(err)
	}
}

func (c *Channel) setState(s State) {
	if c.state == s {
		return
	}
	c.log.Debug("channel: state change", "from", c.state.String(), "to", s.String())
	c.state = s
	if c.opts.OnStateChange != nil {
		c.opts.OnStateChange(s)
	}
}

func (c *Channel) post(fn func()) bool {
	return c.opts.Dispatcher.Post(fn)
}
