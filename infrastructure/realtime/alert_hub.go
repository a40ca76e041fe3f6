package realtime

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"social-dashboard/domain/model"
)

const (
	EventAlertCreated  = "alert_created"
	EventAlertResolved = "alert_resolved"
)

// AlertEvent is the SSE payload pushed to dashboard subscribers.
type AlertEvent struct {
	Type  string                 `json:"type"`
	Alert *model.MonitoringAlert `json:"alert"`
}

// Hub maintains per-user subscribers listening for alert events.
type Hub struct {
	mu    sync.RWMutex
	users map[string]map[chan AlertEvent]struct{}
}

func NewAlertHub() *Hub {
	return &Hub{users: make(map[string]map[chan AlertEvent]struct{})}
}

// Serve registers an SSE stream for the authenticated user (user_id set by middleware).
func (h *Hub) Serve(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.Status(http.StatusUnauthorized)
		return
	}
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // disable nginx buffering

	ch := h.Subscribe(userID)
	defer h.Unsubscribe(userID, ch)

	_, _ = c.Writer.Write([]byte(":ok\n\n"))
	c.Writer.Flush()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(evt)
			if err != nil {
				continue
			}
			_, _ = c.Writer.Write([]byte("event: " + evt.Type + "\n"))
			_, _ = c.Writer.Write([]byte("data: "))
			_, _ = c.Writer.Write(data)
			_, _ = c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()
		}
	}
}

// Subscribe returns a buffered channel of the user's alert events.
func (h *Hub) Subscribe(userID string) chan AlertEvent {
	ch := make(chan AlertEvent, 8)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.users[userID] == nil {
		h.users[userID] = make(map[chan AlertEvent]struct{})
	}
	h.users[userID][ch] = struct{}{}
	return ch
}

func (h *Hub) Unsubscribe(userID string, ch chan AlertEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs := h.users[userID]; subs != nil {
		if _, ok := subs[ch]; !ok {
			return
		}
		delete(subs, ch)
		close(ch)
		if len(subs) == 0 {
			delete(h.users, userID)
		}
	}
}

func (h *Hub) Subscribers(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID])
}

func (h *Hub) BroadcastAlert(alert *model.MonitoringAlert) {
	h.broadcast(EventAlertCreated, alert)
}

func (h *Hub) BroadcastResolved(alert *model.MonitoringAlert) {
	h.broadcast(EventAlertResolved, alert)
}

// broadcast never blocks; slow subscribers miss events.
func (h *Hub) broadcast(kind string, alert *model.MonitoringAlert) {
	if alert == nil {
		return
	}
	evt := AlertEvent{Type: kind, Alert: alert}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.users[alert.UserID] {
		select {
		case ch <- evt:
		default:
		}
	}
}
