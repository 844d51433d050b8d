package backend

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"

	"github.com/anle/alumnet/internal/remoteerr"
)

// EventKind is the change type carried by a feed event.
type EventKind string

const (
	EventInsert EventKind = "insert"
	EventUpdate EventKind = "update"
	EventDelete EventKind = "delete"
)

// ChangeEvent is one row change pushed by the backend's change feed.
type ChangeEvent struct {
	Kind      EventKind       `json:"kind"`
	Table     string          `json:"table"`
	Record    json.RawMessage `json:"record"`
	OldRecord json.RawMessage `json:"old_record"`
}

// Channel is one open subscription to the change feed. Events are delivered
// on Events until Close is called or the stream drops; the channel is then
// closed and Connected reports false.
type Channel struct {
	events    chan ChangeEvent
	cancel    context.CancelFunc
	done      <-chan struct{}
	connected atomic.Bool
}

// Events returns the stream of change events. Closed on teardown.
func (ch *Channel) Events() <-chan ChangeEvent { return ch.events }

// Connected reports whether the feed is still being read.
func (ch *Channel) Connected() bool { return ch.connected.Load() }

// Close tears the subscription down. Safe to call more than once.
func (ch *Channel) Close() error {
	ch.cancel()
	return nil
}

// Subscribe opens a change-feed subscription scoped to one table, with an
// optional row filter in the query layer's filter syntax (e.g.
// "conversation_id=eq.<id>"). The feed is a server-sent-event stream; the
// client decodes event/data line pairs and nothing more of the protocol.
func (c *Client) Subscribe(ctx context.Context, table, filter string) (*Channel, error) {
	ctx, cancel := context.WithCancel(ctx)

	q := url.Values{}
	q.Set("table", table)
	if filter != "" {
		q.Set("filter", filter)
	}
	endpoint := c.baseURL + "/realtime/v1/changes?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		cancel()
		return nil, err
	}
	c.applyHeaders(req, false)
	req.Header.Set("Accept", "text/event-stream")

	// One dedicated connection per channel; the shared client's timeout
	// would kill a long-lived stream.
	streamClient := &http.Client{}
	resp, err := streamClient.Do(req)
	if err != nil {
		cancel()
		return nil, remoteerr.Normalize(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		cancel()
		return nil, remoteerr.FromResponse(resp.StatusCode, nil)
	}

	ch := &Channel{
		events: make(chan ChangeEvent, 16),
		cancel: cancel,
		done:   ctx.Done(),
	}
	ch.connected.Store(true)

	go ch.read(resp)
	return ch, nil
}

// read consumes the SSE stream until cancellation or EOF.
func (ch *Channel) read(resp *http.Response) {
	defer func() {
		resp.Body.Close()
		ch.connected.Store(false)
		close(ch.events)
	}()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var kind EventKind
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		switch {
		case strings.HasPrefix(line, "event:"):
			kind = EventKind(strings.TrimSpace(strings.TrimPrefix(line, "event:")))
		case strings.HasPrefix(line, "data:"):
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			var ev ChangeEvent
			if err := json.Unmarshal([]byte(data), &ev); err != nil {
				continue
			}
			if ev.Kind == "" {
				ev.Kind = kind
			}
			// A consumer that closed the channel may have stopped
			// draining; never block on it past teardown.
			select {
			case ch.events <- ev:
			case <-ch.done:
				return
			}
		case line == "":
			kind = ""
		}
	}
}
