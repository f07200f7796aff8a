// Package realtime fans live bus positions out to websocket subscribers per route.
package realtime

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"tms/internal/metrics"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 16
)

// Event is the envelope written to subscribers.
type Event struct {
	Type    string `json:"type"`
	Topic   string `json:"topic"`
	Payload any    `json:"payload"`
	SentAt  int64  `json:"sent_at"`
}

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (s *subscriber) close() {
	s.once.Do(func() { close(s.send) })
}

// Hub keeps route channels; a subscriber whose buffer is full is dropped.
type Hub struct {
	mu       sync.Mutex
	routes   map[int64]map[*subscriber]struct{}
	upgrader websocket.Upgrader
	closed   bool
}

func NewHub(checkOrigin func(r *http.Request) bool) *Hub {
	return &Hub{
		routes: make(map[int64]map[*subscriber]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

func topic(routeID int64) string {
	return fmt.Sprintf("route:%d", routeID)
}

// Publish sends a payload to every subscriber of routeID without blocking.
func (h *Hub) Publish(routeID int64, eventType string, payload any) {
	if h == nil {
		return
	}
	msg, err := json.Marshal(Event{Type: eventType, Topic: topic(routeID), Payload: payload, SentAt: time.Now().Unix()})
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.routes[routeID] {
		select {
		case sub.send <- msg:
		default:
			h.removeLocked(routeID, sub)
		}
	}
}

// Subscribers returns the number of live connections on routeID.
func (h *Hub) Subscribers(routeID int64) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.routes[routeID])
}

// Serve upgrades the request and streams routeID events until the client goes away.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, routeID int64, initial any) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	sub := &subscriber{conn: conn, send: make(chan []byte, sendBuffer)}

	var snapshot []byte
	if initial != nil {
		snapshot, _ = json.Marshal(Event{Type: "snapshot", Topic: topic(routeID), Payload: initial, SentAt: time.Now().Unix()})
	}
	if !h.register(routeID, sub, snapshot) {
		conn.Close()
		return fmt.Errorf("hub closed")
	}

	go h.writeLoop(sub)
	h.readLoop(routeID, sub)
	return nil
}

// register queues snapshot ahead of any published event, then adds sub; false once the hub is closed.
func (h *Hub) register(routeID int64, sub *subscriber, snapshot []byte) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	if snapshot != nil {
		sub.send <- snapshot
	}
	if h.routes[routeID] == nil {
		h.routes[routeID] = make(map[*subscriber]struct{})
	}
	h.routes[routeID][sub] = struct{}{}
	metrics.LiveSubscribers.Inc()
	return true
}

// readLoop only tracks liveness; subscribers do not send data.
func (h *Hub) readLoop(routeID int64, sub *subscriber) {
	defer func() {
		h.mu.Lock()
		h.removeLocked(routeID, sub)
		h.mu.Unlock()
	}()

	sub.conn.SetReadLimit(512)
	_ = sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	sub.conn.SetPongHandler(func(string) error {
		return sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(sub *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		sub.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-sub.send:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = sub.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := sub.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) removeLocked(routeID int64, sub *subscriber) {
	subs := h.routes[routeID]
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(h.routes, routeID)
	}
	sub.close()
	metrics.LiveSubscribers.Dec()
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for routeID, subs := range h.routes {
		for sub := range subs {
			h.removeLocked(routeID, sub)
		}
	}
}
