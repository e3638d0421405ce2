package offline

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/r3labs/sse/v2"

	"github.com/MrSnakeDoc/bookmarker/internal/logger"
)

// Message types sent to the page.
const (
	MsgOffline          = "offline"
	MsgUpdateAvailable  = "updateavailable"
	MsgControllerChange = "controllerchange"
	MsgSynced           = "synced"
	MsgSettingsChanged  = "settingschanged"
)

// Message is a worker to page notification.
type Message struct {
	Type    string `json:"type"`
	Offline *bool  `json:"offline,omitempty"`
	Tag     string `json:"tag,omitempty"`
	Version string `json:"version,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// ControlMessage is a page to worker request, e.g. {"action":"skipWaiting"}.
type ControlMessage struct {
	Action string `json:"action"`
	Tag    string `json:"tag,omitempty"`
}

const (
	ActionSkipWaiting = "skipWaiting"
	ActionSync        = "sync"
)

// Notifier delivers messages to connected pages.
type Notifier interface {
	Publish(msg Message)
}

// StreamMessages is the SSE stream pages subscribe to.
const StreamMessages = "messages"

// Events publishes messages as server-sent events.
type Events struct {
	server *sse.Server
	log    logger.Logger
}

func NewEvents(log logger.Logger) *Events {
	server := sse.New()
	server.AutoReplay = false
	server.CreateStream(StreamMessages)
	return &Events{server: server, log: log}
}

func (e *Events) Publish(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		e.log.Error("failed to encode page message", logger.String("type", msg.Type), logger.Error(err))
		return
	}
	e.server.Publish(StreamMessages, &sse.Event{Data: data})
}

// ServeHTTP subscribes the caller to the messages stream.
func (e *Events) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("stream") == "" {
		q := r.URL.Query()
		q.Set("stream", StreamMessages)
		r.URL.RawQuery = q.Encode()
	}
	e.server.ServeHTTP(w, r)
}

func (e *Events) Close() { e.server.Close() }

// ─────────────────────────────────────────────────────────────────
// Network state
// ─────────────────────────────────────────────────────────────────

// NetworkStatus tracks whether the last network fetch succeeded and tells
// pages when that flips.
type NetworkStatus struct {
	mu      sync.Mutex
	offline bool
	notify  Notifier
}

func NewNetworkStatus(n Notifier) *NetworkStatus {
	return &NetworkStatus{notify: n}
}

func (s *NetworkStatus) Offline() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offline
}

// Observe records the outcome of a network fetch.
func (s *NetworkStatus) Observe(fetchErr error) {
	offline := fetchErr != nil

	s.mu.Lock()
	changed := offline != s.offline
	s.offline = offline
	s.mu.Unlock()

	if changed && s.notify != nil {
		s.notify.Publish(Message{Type: MsgOffline, Offline: &offline})
	}
}
