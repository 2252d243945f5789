package ws

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Gopher0727/GuildWar/internal/model"
)

// Event tells subscribers that a region's roster changed. Clients reload
// the board over HTTP when they receive it.
type Event struct {
	Type   string       `json:"type"`
	Region model.Region `json:"region"`
	At     time.Time    `json:"at"`
}

const EventRosterChanged = "roster_changed"

// Hub fans roster change events out to the clients watching each region.
type Hub struct {
	clients map[*Client]bool
	rooms   map[model.Region]map[*Client]bool
	mu      sync.RWMutex

	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	// pending holds the regions changed since the last dispatch; wake
	// tells Run there is something to send.
	pendMu  sync.Mutex
	pending map[model.Region]bool
	wake    chan struct{}

	logger *zap.Logger
	now    func() time.Time
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		rooms:      make(map[model.Region]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		pending:    make(map[model.Region]bool),
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
		logger:     logger,
		now:        time.Now,
	}
}

// Run serves registrations and broadcasts until ctx is done, then closes
// every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				h.remove(c)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			if h.rooms[c.region] == nil {
				h.rooms[c.region] = make(map[*Client]bool)
			}
			h.rooms[c.region][c] = true
			h.mu.Unlock()
			h.logger.Debug("ws client joined", zap.String("region", string(c.region)))

		case c := <-h.unregister:
			h.mu.Lock()
			h.remove(c)
			h.mu.Unlock()

		case <-h.wake:
			for _, region := range h.takePending() {
				h.broadcast(Event{Type: EventRosterChanged, Region: region, At: h.now()})
			}
		}
	}
}

func (h *Hub) broadcast(ev Event) {
	var slow []*Client
	h.mu.RLock()
	for c := range h.rooms[ev.Region] {
		select {
		case c.send <- ev:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	if len(slow) > 0 {
		h.mu.Lock()
		for _, c := range slow {
			h.remove(c)
		}
		h.mu.Unlock()
		h.logger.Warn("dropped slow ws clients", zap.Int("count", len(slow)))
	}
}

// takePending empties the pending set, returning regions in display order.
func (h *Hub) takePending() []model.Region {
	h.pendMu.Lock()
	defer h.pendMu.Unlock()
	var out []model.Region
	for _, r := range model.Regions {
		if h.pending[r] {
			out = append(out, r)
		}
	}
	clear(h.pending)
	return out
}

// remove must be called with h.mu held.
func (h *Hub) remove(c *Client) {
	if !h.clients[c] {
		return
	}
	delete(h.clients, c)
	close(c.send)
	if room, ok := h.rooms[c.region]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, c.region)
		}
	}
}

// Notify marks the region changed. It never blocks: changes arriving
// before Run dispatches are merged into a single event per region, and the
// latest change is always delivered.
func (h *Hub) Notify(region model.Region) {
	h.pendMu.Lock()
	h.pending[region] = true
	h.pendMu.Unlock()

	select {
	case h.wake <- struct{}{}:
	default:
	}
}

// Count returns the number of clients watching a region.
func (h *Hub) Count(region model.Region) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[region])
}
