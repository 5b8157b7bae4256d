package events

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
)

func collect(t *testing.T, src Source, want int) []Event {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu  sync.Mutex
		got []Event
	)
	enough := make(chan struct{})
	var once sync.Once
	done := make(chan error, 1)
	go func() {
		done <- src.Run(ctx, func(e Event) {
			mu.Lock()
			got = append(got, e)
			n := len(got)
			mu.Unlock()
			if n >= want {
				once.Do(func() { close(enough) })
			}
		})
	}()

	select {
	case <-enough:
	case err := <-done:
		t.Fatalf("Run returned early: %v", err)
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for %d events", want)
	}
	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run returned %v after cancel", err)
	}
	mu.Lock()
	defer mu.Unlock()
	return append([]Event(nil), got...)
}

func TestSSESource_ParsesMessagesAndSkipsHeartbeats(t *testing.T) {
	var accept atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accept.Store(r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event:heartbeat\ndata:keepalive\n\n")
		fmt.Fprint(w, ": comment\n")
		fmt.Fprint(w, "event:message\ndata:task build-1 started\n\n")
		fmt.Fprint(w, "data: line one\ndata: line two\n\n")
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	got := collect(t, &SSESource{URL: srv.URL}, 2)
	if got, _ := accept.Load().(string); got != "text/event-stream" {
		t.Errorf("Accept = %q", got)
	}
	if len(got) != 2 {
		t.Fatalf("events = %+v", got)
	}
	if got[0].Data != "task build-1 started" || got[0].Topic != "message" {
		t.Errorf("first = %+v", got[0])
	}
	if got[1].Data != "line one\nline two" {
		t.Errorf("second data = %q", got[1].Data)
	}
}

func TestSSESource_ReconnectsWithLastEventID(t *testing.T) {
	var conns atomic.Int32
	var resumeID atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := conns.Add(1)
		w.Header().Set("Content-Type", "text/event-stream")
		if n == 1 {
			fmt.Fprint(w, "id:41\ndata:first\n\n")
			return // server drops the stream
		}
		resumeID.Store(r.Header.Get("Last-Event-ID"))
		fmt.Fprint(w, "id:42\ndata:second\n\n")
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	src := &SSESource{URL: srv.URL, Policy: backoff.NewConstantBackOff(10 * time.Millisecond)}
	got := collect(t, src, 2)
	if got[0].Data != "first" || got[1].Data != "second" {
		t.Errorf("events = %+v", got)
	}
	if id, _ := resumeID.Load().(string); id != "41" {
		t.Errorf("Last-Event-ID = %q, want 41", id)
	}
}

func TestSSESource_GivesUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no stream here", http.StatusNotFound)
	}))
	defer srv.Close()

	src := &SSESource{
		URL:    srv.URL,
		Policy: backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Millisecond), 2),
	}
	err := src.Run(context.Background(), func(Event) {})
	if err == nil {
		t.Fatal("expected an error once retries ran out")
	}
}
