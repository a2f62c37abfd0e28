// Package push fans real-time events out to live websocket sessions grouped
// into per-user and per-role rooms.
package push

import (
	"log/slog"
	"sync"

	"civicdesk/internal/dispatch"
)

const (
	EventComplaintNew    = "complaint:new"
	EventComplaintUpdate = "complaint:update"
)

// Event is the frame delivered to subscribers.
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Subscriber is one live session. Deliver must not block; it reports false
// when the event could not be queued.
type Subscriber interface {
	Deliver(ev Event) bool
}

// ComplaintSummary is the complaint view pushed to rooms.
type ComplaintSummary struct {
	ID         string
	Title      string
	Category   string
	Priority   string
	Status     string
	ReportedBy string
}

// Hub is the room registry. It is safe for concurrent use.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[string]map[Subscriber]struct{}
	joined  map[Subscriber][]string
	logger  *slog.Logger
	metrics *dispatch.Metrics
}

type Option func(*Hub)

func WithLogger(logger *slog.Logger) Option {
	return func(h *Hub) {
		h.logger = logger
	}
}

func WithMetrics(m *dispatch.Metrics) Option {
	return func(h *Hub) {
		h.metrics = m
	}
}

func NewHub(opts ...Option) *Hub {
	h := &Hub{
		rooms:  make(map[string]map[Subscriber]struct{}),
		joined: make(map[Subscriber][]string),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func UserRoom(userID string) string { return "user:" + userID }
func RoleRoom(role string) string   { return "role:" + role }

// Join places sub in its user room and, when role is set, its role room.
// Joining again replaces the previous memberships.
func (h *Hub) Join(sub Subscriber, userID, role string) {
	if sub == nil || userID == "" {
		return
	}
	rooms := []string{UserRoom(userID)}
	if role != "" {
		rooms = append(rooms, RoleRoom(role))
	}

	h.mu.Lock()
	h.leaveLocked(sub)
	for _, room := range rooms {
		members, ok := h.rooms[room]
		if !ok {
			members = make(map[Subscriber]struct{})
			h.rooms[room] = members
		}
		members[sub] = struct{}{}
	}
	h.joined[sub] = rooms
	n := len(h.joined)
	h.mu.Unlock()

	h.metrics.SetConnections(n)
	h.logger.Debug("push subscriber joined", "user_id", userID, "role", role)
}

// Leave removes sub from every room it joined.
func (h *Hub) Leave(sub Subscriber) {
	h.mu.Lock()
	h.leaveLocked(sub)
	n := len(h.joined)
	h.mu.Unlock()
	h.metrics.SetConnections(n)
}

func (h *Hub) leaveLocked(sub Subscriber) {
	for _, room := range h.joined[sub] {
		members := h.rooms[room]
		delete(members, sub)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(h.joined, sub)
}

// Connections is the number of joined subscribers.
func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.joined)
}

// NotifyUser pushes to every session of userID. No sessions is a no-op.
func (h *Hub) NotifyUser(userID, event string, payload any) {
	h.broadcast(Event{Event: event, Data: payload}, UserRoom(userID))
}

// NotifyRole pushes to every session joined under role.
func (h *Hub) NotifyRole(role, event string, payload any) {
	h.broadcast(Event{Event: event, Data: payload}, RoleRoom(role))
}

// NotifyAll pushes to every joined session.
func (h *Hub) NotifyAll(event string, payload any) {
	ev := Event{Event: event, Data: payload}
	h.mu.RLock()
	targets := make([]Subscriber, 0, len(h.joined))
	for sub := range h.joined {
		targets = append(targets, sub)
	}
	h.mu.RUnlock()
	h.deliver(ev, targets)
}

// NotifyComplaintUpdate tells the reporter and staff that a complaint changed.
func (h *Hub) NotifyComplaintUpdate(c ComplaintSummary, action string) {
	h.broadcast(Event{
		Event: EventComplaintUpdate,
		Data: map[string]any{
			"complaintId": c.ID,
			"action":      action,
			"status":      c.Status,
			"title":       c.Title,
		},
	}, UserRoom(c.ReportedBy), RoleRoom("admin"), RoleRoom("officer"))
}

// NotifyNewComplaint tells staff that a complaint was filed.
func (h *Hub) NotifyNewComplaint(c ComplaintSummary) {
	h.broadcast(Event{
		Event: EventComplaintNew,
		Data: map[string]any{
			"complaintId": c.ID,
			"title":       c.Title,
			"category":    c.Category,
			"priority":    c.Priority,
		},
	}, RoleRoom("admin"), RoleRoom("officer"))
}

// broadcast delivers ev once to each subscriber in the union of rooms.
func (h *Hub) broadcast(ev Event, rooms ...string) {
	h.mu.RLock()
	seen := make(map[Subscriber]struct{})
	targets := make([]Subscriber, 0)
	for _, room := range rooms {
		for sub := range h.rooms[room] {
			if _, dup := seen[sub]; dup {
				continue
			}
			seen[sub] = struct{}{}
			targets = append(targets, sub)
		}
	}
	h.mu.RUnlock()
	h.deliver(ev, targets)
}

func (h *Hub) deliver(ev Event, targets []Subscriber) {
	for _, sub := range targets {
		if sub.Deliver(ev) {
			h.metrics.Observe(dispatch.ChannelPush, dispatch.Succeeded(""))
			continue
		}
		h.metrics.IncDropped(dispatch.ChannelPush)
		h.logger.Warn("push event dropped for slow subscriber", "event", ev.Event)
	}
}
