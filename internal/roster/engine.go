package roster

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Gopher0727/GuildWar/internal/model"
	"github.com/Gopher0727/GuildWar/internal/remote"
)

// DefaultTTL is how long a fetched snapshot is served without I/O.
const DefaultTTL = 5 * time.Minute

// Observer is told which region changed. It runs synchronously after the
// engine has released its lock and must not block.
type Observer func(region model.Region)

// Engine keeps the per-region roster snapshots in sync with the remote
// roster service and applies validated placement changes to them.
type Engine struct {
	remote remote.Service
	logger *zap.Logger
	ttl    time.Duration
	now    func() time.Time

	mu        sync.Mutex
	snapshots map[model.Region]*model.Snapshot
	fetching  map[model.Region]bool
	inflight  map[string]struct{}

	// gen counts local changes per region. A fetch whose region changed
	// while it was on the wire carries older server state and is dropped.
	gen map[model.Region]uint64

	subMu     sync.RWMutex
	observers map[uint64]Observer
	nextSub   uint64
}

type Option func(*Engine)

func WithTTL(ttl time.Duration) Option {
	return func(e *Engine) {
		if ttl > 0 {
			e.ttl = ttl
		}
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func NewEngine(svc remote.Service, opts ...Option) *Engine {
	e := &Engine{
		remote:    svc,
		logger:    zap.NewNop(),
		ttl:       DefaultTTL,
		now:       time.Now,
		snapshots: make(map[model.Region]*model.Snapshot, len(model.Regions)),
		fetching:  make(map[model.Region]bool, len(model.Regions)),
		inflight:  make(map[string]struct{}),
		gen:       make(map[model.Region]uint64, len(model.Regions)),
		observers: make(map[uint64]Observer),
	}
	for _, opt := range opts {
		opt(e)
	}
	for _, r := range model.Regions {
		e.snapshots[r] = model.NewSnapshot(r)
	}
	return e
}

// Snapshot returns a deep copy of the region's current state.
func (e *Engine) Snapshot(region model.Region) (*model.Snapshot, error) {
	if !region.IsValid() {
		return nil, model.ErrUnknownRegion
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshots[region].Clone(), nil
}

// Day returns the partitioned board of one day.
func (e *Engine) Day(region model.Region, day model.Day) (DayView, error) {
	snap, err := e.Snapshot(region)
	if err != nil {
		return DayView{}, err
	}
	return Partition(snap, day), nil
}

// FetchEvent loads the current event of a region. Within the TTL the
// cached snapshot is kept without I/O unless force is set, and a call made
// while another fetch of the same region is outstanding returns at once.
// A failed fetch keeps the previous data and records the message on the
// snapshot.
func (e *Engine) FetchEvent(ctx context.Context, region model.Region, force bool) error {
	if !region.IsValid() {
		return model.ErrUnknownRegion
	}

	e.mu.Lock()
	snap := e.snapshots[region]
	if !force && e.fresh(snap) {
		e.mu.Unlock()
		return nil
	}
	if e.fetching[region] {
		e.mu.Unlock()
		e.logger.Debug("fetch already in flight", zap.String("region", string(region)))
		return nil
	}
	e.fetching[region] = true
	snap.Loading = true
	snap.Error = ""
	gen := e.gen[region]
	e.mu.Unlock()
	e.notify(region)

	ev, err := e.remote.GetCurrentEvent(ctx, region.APIName())

	e.mu.Lock()
	e.fetching[region] = false
	snap = e.snapshots[region]
	if err != nil {
		snap.Loading = false
		snap.Error = err.Error()
		e.mu.Unlock()
		e.logger.Warn("fetch event failed", zap.String("region", string(region)), zap.Error(err))
		e.notify(region)
		return fmt.Errorf("fetch %s event: %w", region, err)
	}

	if e.gen[region] != gen {
		// LastFetched stays zero so the next read fetches again.
		snap.Loading = false
		e.mu.Unlock()
		e.logger.Debug("dropped fetch overtaken by a local change", zap.String("region", string(region)))
		e.notify(region)
		return nil
	}

	next, warnings := Project(region, ev)
	next.LastFetched = e.now()
	e.snapshots[region] = next
	e.mu.Unlock()

	for _, w := range warnings {
		e.logger.Debug("projection", zap.String("region", string(region)), zap.String("warning", w))
	}
	e.logger.Info("event fetched",
		zap.String("region", string(region)),
		zap.Int64("event_id", next.EventID),
		zap.Int("members", len(next.Members)),
		zap.Int("teams", len(next.Teams)),
	)
	e.notify(region)
	return nil
}

// fresh must be called with e.mu held.
func (e *Engine) fresh(snap *model.Snapshot) bool {
	return snap.HasEvent && !snap.LastFetched.IsZero() && e.now().Sub(snap.LastFetched) < e.ttl
}

// Invalidate forgets when the region was fetched; the data stays.
func (e *Engine) Invalidate(region model.Region) {
	e.mu.Lock()
	if snap, ok := e.snapshots[region]; ok {
		snap.LastFetched = time.Time{}
		e.gen[region]++
	}
	e.mu.Unlock()
}

// Subscribe registers an observer and returns the function removing it.
func (e *Engine) Subscribe(fn Observer) (unsubscribe func()) {
	e.subMu.Lock()
	id := e.nextSub
	e.nextSub++
	e.observers[id] = fn
	e.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.subMu.Lock()
			delete(e.observers, id)
			e.subMu.Unlock()
		})
	}
}

func (e *Engine) notify(region model.Region) {
	e.subMu.RLock()
	fns := make([]Observer, 0, len(e.observers))
	for _, fn := range e.observers {
		fns = append(fns, fn)
	}
	e.subMu.RUnlock()

	for _, fn := range fns {
		fn(region)
	}
}

// begin claims a mutation key. The returned release must be called once
// the remote outcome is known.
func (e *Engine) begin(key string) (release func(), err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, busy := e.inflight[key]; busy {
		return nil, fmt.Errorf("%w: %s", ErrBusy, key)
	}
	e.inflight[key] = struct{}{}
	return func() {
		e.mu.Lock()
		delete(e.inflight, key)
		e.mu.Unlock()
	}, nil
}

// fail records a remote failure on the snapshot and wraps it.
func (e *Engine) fail(region model.Region, op string, err error) error {
	e.mu.Lock()
	e.snapshots[region].Error = err.Error()
	e.gen[region]++
	e.mu.Unlock()
	e.logger.Warn(op+" failed", zap.String("region", string(region)), zap.Error(err))
	e.notify(region)
	return fmt.Errorf("%s: %w", op, err)
}

// commit applies a confirmed local change and invalidates the cache.
func (e *Engine) commit(region model.Region, apply func(snap *model.Snapshot)) {
	e.mu.Lock()
	snap := e.snapshots[region]
	apply(snap)
	snap.LastFetched = time.Time{}
	e.gen[region]++
	e.mu.Unlock()
	e.notify(region)
}
