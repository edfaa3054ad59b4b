// file: internal/realtime/events.go
// version: 3.0.0
// guid: 9e8d7f6a-5c4b-3a21-0f9e-8d7c6b5a4392

// Package realtime fans import progress out to Server-Sent Events clients.
package realtime

import (
	"io"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
)

// EventType names an event on the wire. It is sent as the SSE event field.
type EventType string

const (
	EventOperationProgress EventType = "operation.progress"
	EventOperationStatus   EventType = "operation.status"
	EventOperationLog      EventType = "operation.log"
	EventImportSummary     EventType = "import.summary"
	EventConnected         EventType = "connection.established"
	EventHeartbeat         EventType = "heartbeat"
)

var (
	// HeartbeatInterval is how often idle SSE connections are pinged.
	HeartbeatInterval = 15 * time.Second

	// HistorySize is how many past events are kept for clients that
	// reconnect with Last-Event-ID.
	HistorySize = 256
)

const subscriberBuffer = 100

// Event is one message on the stream. Seq increases by one per published
// event and doubles as the SSE id; connection and heartbeat events carry
// no sequence.
type Event struct {
	Seq         uint64         `json:"seq,omitempty"`
	Type        EventType      `json:"type"`
	OperationID string         `json:"operation_id,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
	Data        map[string]any `json:"data,omitempty"`
}

// Subscription receives published events until it is closed.
type Subscription struct {
	ID        string
	operation string
	events    chan Event
	hub       *EventHub
}

// Events is closed when the subscription ends.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Close detaches the subscription from its hub. It is safe to call twice.
func (s *Subscription) Close() {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	if _, ok := s.hub.subs[s.ID]; ok {
		delete(s.hub.subs, s.ID)
		close(s.events)
		log.Printf("[DEBUG] SSE client %s disconnected, remaining clients: %d", s.ID, len(s.hub.subs))
	}
}

func (s *Subscription) wants(e Event) bool {
	return s.operation == "" || e.OperationID == "" || e.OperationID == s.operation
}

// EventHub numbers events, keeps a short history and delivers them to
// subscribers. Slow subscribers lose events rather than block publishers.
type EventHub struct {
	mu      sync.RWMutex
	subs    map[string]*Subscription
	seq     uint64
	history []Event
}

// NewEventHub creates an empty hub.
func NewEventHub() *EventHub {
	return &EventHub{subs: make(map[string]*Subscription)}
}

// Subscribe registers a subscriber. An empty operationID receives every
// event. The returned backlog holds the retained events after seq `after`
// that the subscriber would have received.
func (h *EventHub) Subscribe(operationID string, after uint64) (*Subscription, []Event) {
	sub := &Subscription{
		ID:        ulid.Make().String(),
		operation: operationID,
		events:    make(chan Event, subscriberBuffer),
		hub:       h,
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	var backlog []Event
	if after > 0 {
		for _, e := range h.history {
			if e.Seq > after && sub.wants(e) {
				backlog = append(backlog, e)
			}
		}
	}
	h.subs[sub.ID] = sub
	log.Printf("[DEBUG] SSE client %s connected, total clients: %d", sub.ID, len(h.subs))
	return sub, backlog
}

func (h *EventHub) publish(t EventType, operationID string, data map[string]any) {
	if h == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.seq++
	e := Event{
		Seq:         h.seq,
		Type:        t,
		OperationID: operationID,
		Timestamp:   time.Now(),
		Data:        data,
	}
	h.history = append(h.history, e)
	if over := len(h.history) - HistorySize; over > 0 {
		h.history = append(h.history[:0], h.history[over:]...)
	}

	for _, sub := range h.subs {
		if !sub.wants(e) {
			continue
		}
		select {
		case sub.events <- e:
		default:
			log.Printf("[WARN] SSE client %s is behind, dropping event %d (%s)", sub.ID, e.Seq, e.Type)
		}
	}
}

// SendOperationProgress publishes walk progress of an operation.
func (h *EventHub) SendOperationProgress(operationID string, current, total int, message string) {
	h.publish(EventOperationProgress, operationID, map[string]any{
		"current":    current,
		"total":      total,
		"message":    message,
		"percentage": percentage(current, total),
	})
}

func (h *EventHub) SendOperationStatus(operationID, status string, details map[string]any) {
	data := map[string]any{"status": status}
	if len(details) > 0 {
		data["details"] = details
	}
	h.publish(EventOperationStatus, operationID, data)
}

func (h *EventHub) SendOperationLog(operationID, level, message string, details *string) {
	data := map[string]any{"level": level, "message": message}
	if details != nil {
		data["details"] = *details
	}
	h.publish(EventOperationLog, operationID, data)
}

// SendImportSummary publishes the outcome of an import run.
func (h *EventHub) SendImportSummary(operationID string, summary map[string]any) {
	h.publish(EventImportSummary, operationID, summary)
}

// GetClientCount returns the number of live subscriptions.
func (h *EventHub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// lastEventID reads the resume point from the Last-Event-ID header or,
// for clients that cannot set headers, the since query parameter.
func lastEventID(c *gin.Context) uint64 {
	raw := c.GetHeader("Last-Event-ID")
	if raw == "" {
		raw = c.Query("since")
	}
	seq, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0
	}
	return seq
}

func render(c *gin.Context, e Event) {
	msg := sse.Event{Event: string(e.Type), Data: e}
	if e.Seq > 0 {
		msg.Id = strconv.FormatUint(e.Seq, 10)
	}
	c.Render(-1, msg)
}

// HandleSSE streams events to the caller until the request ends. The
// optional operation query parameter limits the stream to one operation.
func (h *EventHub) HandleSSE(c *gin.Context) {
	c.Header("Cache-Control", "no-cache, no-transform")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	sub, backlog := h.Subscribe(c.Query("operation"), lastEventID(c))
	defer sub.Close()

	render(c, Event{
		Type:      EventConnected,
		Timestamp: time.Now(),
		Data:      map[string]any{"client_id": sub.ID},
	})
	for _, e := range backlog {
		render(c, e)
	}
	c.Writer.Flush()

	ticker := time.NewTicker(HeartbeatInterval)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case e, ok := <-sub.Events():
			if !ok {
				return false
			}
			render(c, e)
			return true
		case <-ticker.C:
			render(c, Event{Type: EventHeartbeat, Timestamp: time.Now()})
			return true
		}
	})
}

func percentage(current, total int) int {
	if total <= 0 {
		return 0
	}
	return min(current*100/total, 100)
}
