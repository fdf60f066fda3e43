package realtime

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/valter-silva-au/projectcolab/pkg/models"
)

// DefaultPresenceDebounce is the quiet window before a stop is announced.
const DefaultPresenceDebounce = 2 * time.Second

// Publisher is the subset of Hub used by PresenceTracker.
type Publisher interface {
	Publish(channel, event string, payload any)
}

type presenceKey struct {
	projectID string
	userID    string
	clientID  string
}

func (k presenceKey) String() string {
	return strings.Join([]string{k.projectID, k.userID, k.clientID}, "\x00")
}

// PresenceTracker announces who is editing which project. Flags are kept in
// memory only. A start is published immediately; a stop is published once a
// full debounce window passes without another start from the same client.
type PresenceTracker struct {
	pub      Publisher
	debounce *Debouncer
	log      zerolog.Logger
	metrics  *Metrics

	mu   sync.Mutex
	held map[presenceKey]models.PresencePayload
	// gen changes on every start, so a stop that fired before the start
	// took effect can tell it is stale.
	gen  map[presenceKey]uint64
	next uint64
}

// NewPresenceTracker creates a tracker publishing through pub. A zero delay
// uses DefaultPresenceDebounce; clock may be nil for real time.
func NewPresenceTracker(pub Publisher, clock Clock, delay time.Duration, log zerolog.Logger, metrics *Metrics) *PresenceTracker {
	if delay <= 0 {
		delay = DefaultPresenceDebounce
	}
	return &PresenceTracker{
		pub:      pub,
		debounce: NewDebouncer(clock, delay),
		log:      log.With().Str("component", "presence").Logger(),
		metrics:  metrics,
		held:     make(map[presenceKey]models.PresencePayload),
		gen:      make(map[presenceKey]uint64),
	}
}

// Start marks userID as editing projectID from clientID and cancels any stop
// still waiting for its window.
func (p *PresenceTracker) Start(clientID, projectID, userID, userName string) {
	key := presenceKey{projectID: projectID, userID: userID, clientID: clientID}
	if p.debounce.Cancel(key.String()) {
		p.log.Debug().Str("project_id", projectID).Str("user_id", userID).Msg("pending stop cancelled")
	}
	payload := models.PresencePayload{ProjectID: projectID, UserID: userID, UserName: userName, IsEditing: true}

	p.mu.Lock()
	p.held[key] = payload
	p.next++
	p.gen[key] = p.next
	n := len(p.held)
	p.mu.Unlock()

	p.metrics.setEditors(n)
	p.pub.Publish(models.ProjectChannel(projectID), models.EventPresenceEditing, payload)
}

// Stop arms, or re-arms, the debounced stop for the flag.
func (p *PresenceTracker) Stop(clientID, projectID, userID string) {
	key := presenceKey{projectID: projectID, userID: userID, clientID: clientID}

	p.mu.Lock()
	if _, ok := p.held[key]; !ok {
		p.held[key] = models.PresencePayload{ProjectID: projectID, UserID: userID, IsEditing: true}
		p.next++
		p.gen[key] = p.next
	}
	gen := p.gen[key]
	p.mu.Unlock()

	p.debounce.Schedule(key.String(), func() { p.expire(key, gen) })
}

// DropClient releases every flag clientID held, without waiting for the
// debounce window. Called when a connection closes.
func (p *PresenceTracker) DropClient(clientID string) {
	p.mu.Lock()
	var keys []presenceKey
	for k := range p.held {
		if k.clientID == clientID {
			keys = append(keys, k)
		}
	}
	p.mu.Unlock()

	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	for _, k := range keys {
		p.debounce.Cancel(k.String())
		p.release(k)
	}
}

// Editing returns the flags currently held for projectID, ordered by user.
func (p *PresenceTracker) Editing(projectID string) []models.PresencePayload {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []models.PresencePayload
	for k, v := range p.held {
		if k.projectID == projectID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// expire releases the flag armed at gen unless a later start replaced it.
func (p *PresenceTracker) expire(key presenceKey, gen uint64) {
	p.mu.Lock()
	if p.gen[key] != gen {
		p.mu.Unlock()
		return
	}
	payload, ok := p.takeLocked(key)
	n := len(p.held)
	p.mu.Unlock()
	if ok {
		p.announceStop(key, payload, n)
	}
}

func (p *PresenceTracker) release(key presenceKey) {
	p.mu.Lock()
	payload, ok := p.takeLocked(key)
	n := len(p.held)
	p.mu.Unlock()
	if ok {
		p.announceStop(key, payload, n)
	}
}

func (p *PresenceTracker) takeLocked(key presenceKey) (models.PresencePayload, bool) {
	payload, ok := p.held[key]
	delete(p.held, key)
	delete(p.gen, key)
	return payload, ok
}

func (p *PresenceTracker) announceStop(key presenceKey, payload models.PresencePayload, n int) {
	p.metrics.setEditors(n)
	payload.IsEditing = false
	p.pub.Publish(models.ProjectChannel(key.projectID), models.EventPresenceEditing, payload)
}
