package events

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	eventStreamMime = "text/event-stream"

	// maxEventLine bounds one SSE line; longer lines abort the stream.
	maxEventLine = 1 << 20

	defaultSSERetry = 5 * time.Second
)

// SSESource reads the engine's event stream. "message" events are emitted,
// "heartbeat" events only prove liveness. The stream is reopened after
// failures, resuming from the last event id when the server sent one.
type SSESource struct {
	URL    string
	Token  string
	Client *http.Client
	// Policy spaces out reconnects; nil retries every 5s.
	Policy backoff.BackOff
	Logger *slog.Logger

	lastID string
}

func (s *SSESource) Name() string { return "sse" }

// Run streams events until ctx is cancelled or the policy gives up.
func (s *SSESource) Run(ctx context.Context, emit func(Event)) error {
	log := s.Logger
	if log == nil {
		log = slog.Default()
	}
	policy := s.Policy
	if policy == nil {
		policy = backoff.NewConstantBackOff(defaultSSERetry)
	}
	policy = backoff.WithContext(policy, ctx)

	for {
		received, err := s.stream(ctx, emit)
		if ctx.Err() != nil {
			return nil
		}
		if received {
			policy.Reset()
		}
		delay := policy.NextBackOff()
		if delay == backoff.Stop {
			return fmt.Errorf("event stream %s: giving up: %w", s.URL, err)
		}
		log.Warn("events: stream interrupted", "url", s.URL, "error", err, "retry_in", delay)

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
	}
}

// stream holds one connection open. It reports whether any event arrived.
func (s *SSESource) stream(ctx context.Context, emit func(Event)) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return false, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", eventStreamMime)
	req.Header.Set("Cache-Control", "no-cache")
	if s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}
	if s.lastID != "" {
		req.Header.Set("Last-Event-ID", s.lastID)
	}

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return false, fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return false, fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, eventStreamMime) {
		return false, fmt.Errorf("unexpected content type %q", ct)
	}

	var (
		received bool
		name     string
		id       string
		data     []string
	)
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 4096), maxEventLine)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			if len(data) > 0 {
				received = true
				if id != "" {
					s.lastID = id
				}
				if name == "" {
					name = "message"
				}
				if name != "heartbeat" {
					emit(Event{
						Source:   "sse",
						Topic:    name,
						ID:       id,
						Data:     strings.Join(data, "\n"),
						Received: time.Now(),
					})
				}
			}
			name, id, data = "", "", nil
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			name = value
		case "data":
			data = append(data, value)
		case "id":
			id = value
		}
	}
	if err := scanner.Err(); err != nil {
		return received, fmt.Errorf("reading stream: %w", err)
	}
	return received, io.EOF
}
