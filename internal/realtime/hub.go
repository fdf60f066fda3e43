// Package realtime distributes schedule mutations and editing presence to
// every client viewing a project.
package realtime

import (
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"github.com/valter-silva-au/projectcolab/pkg/models"
)

// Client is a connected viewer. Send must not block; it reports false when
// the event could not be queued.
type Client interface {
	ID() string
	Send(ev models.Event) bool
}

// Handler observes published events in-process.
type Handler func(ev models.Event)

// AllEvents subscribes a Handler to every event name.
const AllEvents = "*"

// Hub keeps channel membership and fans events out to members. Delivery
// includes the client whose action caused the event, so every viewer
// converges on the server's state.
type Hub struct {
	log     zerolog.Logger
	metrics *Metrics
	clock   Clock

	mu       sync.RWMutex
	clients  map[string]Client
	channels map[string]map[string]Client
	seq      map[string]uint64
	handlers map[string]map[uint64]Handler
	nextSub  uint64

	// delivery serializes stamping and sending per channel so members see
	// events in seq order.
	deliveryMu sync.Mutex
	delivery   map[string]*sync.Mutex
}

// NewHub creates an empty Hub. metrics may be nil.
func NewHub(log zerolog.Logger, metrics *Metrics) *Hub {
	return &Hub{
		log:      log.With().Str("component", "hub").Logger(),
		metrics:  metrics,
		clock:    SystemClock(),
		clients:  make(map[string]Client),
		channels: make(map[string]map[string]Client),
		seq:      make(map[string]uint64),
		handlers: make(map[string]map[uint64]Handler),
		delivery: make(map[string]*sync.Mutex),
	}
}

func (h *Hub) deliveryLock(channel string) *sync.Mutex {
	h.deliveryMu.Lock()
	defer h.deliveryMu.Unlock()
	m, ok := h.delivery[channel]
	if !ok {
		m = &sync.Mutex{}
		h.delivery[channel] = m
	}
	return m
}

// Connect registers a client so it can join channels.
func (h *Hub) Connect(c Client) {
	h.mu.Lock()
	h.clients[c.ID()] = c
	n := len(h.clients)
	h.mu.Unlock()
	h.metrics.setClients(n)
	h.log.Debug().Str("client_id", c.ID()).Msg("client connected")
}

// Join adds the client to channel. Joining twice is a no-op. There is no
// authorization check: any connected client may join any project.
func (h *Hub) Join(channel string, c Client) {
	h.mu.Lock()
	if _, ok := h.clients[c.ID()]; !ok {
		h.clients[c.ID()] = c
	}
	members, ok := h.channels[channel]
	if !ok {
		members = make(map[string]Client)
		h.channels[channel] = members
	}
	members[c.ID()] = c
	nClients, nChannels := len(h.clients), len(h.channels)
	h.mu.Unlock()

	h.metrics.setClients(nClients)
	h.metrics.setChannels(nChannels)
	h.log.Debug().Str("client_id", c.ID()).Str("channel", channel).Msg("joined channel")
}

// Leave removes the client from channel. Empty channels are dropped.
func (h *Hub) Leave(channel, clientID string) {
	h.mu.Lock()
	h.leaveLocked(channel, clientID)
	n := len(h.channels)
	h.mu.Unlock()
	h.metrics.setChannels(n)
}

func (h *Hub) leaveLocked(channel, clientID string) bool {
	members, ok := h.channels[channel]
	if !ok {
		return false
	}
	if _, ok := members[clientID]; !ok {
		return false
	}
	delete(members, clientID)
	if len(members) == 0 {
		delete(h.channels, channel)
		delete(h.seq, channel)
		h.deliveryMu.Lock()
		delete(h.delivery, channel)
		h.deliveryMu.Unlock()
	}
	return true
}

// Disconnect removes the client from every channel and returns the channels
// it was in, sorted.
func (h *Hub) Disconnect(clientID string) []string {
	h.mu.Lock()
	var left []string
	for channel := range h.channels {
		if h.leaveLocked(channel, clientID) {
			left = append(left, channel)
		}
	}
	delete(h.clients, clientID)
	nClients, nChannels := len(h.clients), len(h.channels)
	h.mu.Unlock()

	sort.Strings(left)
	h.metrics.setClients(nClients)
	h.metrics.setChannels(nChannels)
	h.log.Debug().Str("client_id", clientID).Strs("channels", left).Msg("client disconnected")
	return left
}

// Publish stamps the next sequence number of channel on the event and
// delivers it to every member and every matching subscriber. Concurrent
// publishes on one channel reach each member in seq order. Clients whose
// queue is full miss the event; they are expected to reload on reconnect.
func (h *Hub) Publish(channel, event string, payload any) {
	dm := h.deliveryLock(channel)
	dm.Lock()
	h.mu.Lock()
	h.seq[channel]++
	ev := models.Event{
		Name:    event,
		Channel: channel,
		Seq:     h.seq[channel],
		Payload: payload,
		Time:    h.clock.Now().UTC(),
	}
	members := make([]Client, 0, len(h.channels[channel]))
	for _, c := range h.channels[channel] {
		members = append(members, c)
	}
	var handlers []Handler
	for _, name := range []string{event, AllEvents} {
		for _, fn := range h.handlers[name] {
			handlers = append(handlers, fn)
		}
	}
	// A channel nobody joined keeps no sequence state.
	if len(members) == 0 {
		delete(h.seq, channel)
	}
	h.mu.Unlock()

	// Send never blocks, so holding dm here stays cheap.
	var dropped []string
	for _, c := range members {
		if !c.Send(ev) {
			dropped = append(dropped, c.ID())
		}
	}
	dm.Unlock()

	h.metrics.incPublished(event)
	for _, id := range dropped {
		h.metrics.incDropped()
		h.log.Warn().Str("client_id", id).Str("channel", channel).Str("event", event).Msg("send queue full, event dropped")
	}
	for _, fn := range handlers {
		fn(ev)
	}
}

// Subscribe registers fn for events named event, or for every event when
// event is AllEvents. The returned function removes the subscription.
func (h *Hub) Subscribe(event string, fn Handler) (unsubscribe func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextSub++
	id := h.nextSub
	if h.handlers[event] == nil {
		h.handlers[event] = make(map[uint64]Handler)
	}
	h.handlers[event][id] = fn
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.handlers[event], id)
		if len(h.handlers[event]) == 0 {
			delete(h.handlers, event)
		}
	}
}

// Members returns the ids of the clients in channel, sorted.
func (h *Hub) Members(channel string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.channels[channel]))
	for id := range h.channels[channel] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Channels returns the channels with at least one member, sorted.
func (h *Hub) Channels() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.channels))
	for ch := range h.channels {
		out = append(out, ch)
	}
	sort.Strings(out)
	return out
}
