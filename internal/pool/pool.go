// Package pool manages the per-vault-account custody handles. Handles are
// expensive to build (construction resolves the account address remotely), so
// they are pooled, exclusively owned while in use, and evicted when idle.
package pool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/nimbusward/tokengate/internal/custody"
	"github.com/nimbusward/tokengate/internal/errors"
	"github.com/nimbusward/tokengate/internal/logging"
	"github.com/nimbusward/tokengate/internal/metrics"
)

// Key identifies a pool entry. Acquire and Release must use the same key:
// releasing by vault account alone would be ambiguous when several chains
// share one account.
type Key struct {
	VaultAccountID string
	Chain          custody.Chain
}

// String returns the canonical "vault:chain" form used in errors and logs.
func (k Key) String() string {
	return k.VaultAccountID + ":" + string(k.Chain)
}

type entry struct {
	handle     *custody.AccountHandle
	lastUsedAt time.Time
	inUse      bool
}

// Builder constructs a handle for a key. Called outside the pool lock.
type Builder func(ctx context.Context, key Key) (*custody.AccountHandle, error)

// Metrics is a point-in-time snapshot of pool occupancy.
type Metrics struct {
	TotalInstances  int             `json:"totalInstances"`
	ActiveInstances int             `json:"activeInstances"`
	IdleInstances   int             `json:"idleInstances"`
	PerKeyInUse     map[string]bool `json:"perKeyInUse"`
}

// Pool is a capacity-bounded collection of custody handles keyed by
// (vault account, chain). At most one entry exists per key, and an in-use
// entry is never evicted or handed out twice.
type Pool struct {
	mu      sync.Mutex
	entries map[Key]*entry

	capacity    int
	idleTimeout time.Duration
	builder     Builder
	logger      *logging.Logger

	sweeper *cron.Cron
	closed  bool
}

// Config configures a Pool.
type Config struct {
	Capacity    int
	IdleTimeout time.Duration
	// SweepSchedule is a cron spec for the idle sweep, e.g. "@every 1m".
	SweepSchedule string
	Builder       Builder
	Logger        *logging.Logger
}

// New creates a Pool and starts its idle sweep.
func New(cfg Config) (*Pool, error) {
	if cfg.Capacity <= 0 {
		return nil, fmt.Errorf("pool: capacity must be positive")
	}
	if cfg.IdleTimeout <= 0 {
		return nil, fmt.Errorf("pool: idle timeout must be positive")
	}
	if cfg.Builder == nil {
		return nil, fmt.Errorf("pool: builder required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	schedule := cfg.SweepSchedule
	if schedule == "" {
		schedule = "@every 1m"
	}

	p := &Pool{
		entries:     make(map[Key]*entry),
		capacity:    cfg.Capacity,
		idleTimeout: cfg.IdleTimeout,
		builder:     cfg.Builder,
		logger:      logger,
	}

	p.sweeper = cron.New()
	if _, err := p.sweeper.AddFunc(schedule, p.Sweep); err != nil {
		return nil, fmt.Errorf("pool: invalid sweep schedule %q: %w", schedule, err)
	}
	p.sweeper.Start()

	return p, nil
}

// Acquire returns the handle for key, marking it in use. An existing idle
// entry is reused; otherwise a new handle is built, evicting the
// least-recently-used idle entry if the pool is full. Acquiring a key whose
// entry is already in use fails: the pool does not queue.
func (p *Pool) Acquire(ctx context.Context, key Key) (*custody.AccountHandle, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, fmt.Errorf("pool: acquire %s: pool is shut down", key)
	}

	if e, ok := p.entries[key]; ok {
		if e.inUse {
			p.mu.Unlock()
			return nil, &errors.BusyError{Key: key.String()}
		}
		e.inUse = true
		e.lastUsedAt = time.Now()
		p.updateGauges()
		p.mu.Unlock()
		return e.handle, nil
	}

	// Fail fast when full with nothing evictable, but do not evict yet: the
	// build can fail, and a failed build must not cost a healthy idle handle.
	if len(p.entries) >= p.capacity && !p.hasIdleLocked() {
		capacity := p.capacity
		p.mu.Unlock()
		return nil, &errors.CapacityError{Capacity: capacity, Key: key.String()}
	}
	p.mu.Unlock()

	// Build outside the lock; construction performs a network round trip.
	handle, err := p.builder(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("pool: build handle for %s: %w", key, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, fmt.Errorf("pool: acquire %s: pool is shut down", key)
	}
	// A concurrent acquire may have admitted the same key while we were
	// building; the existing entry wins and our build is discarded.
	if e, ok := p.entries[key]; ok {
		if e.inUse {
			return nil, &errors.BusyError{Key: key.String()}
		}
		e.inUse = true
		e.lastUsedAt = time.Now()
		p.updateGauges()
		return e.handle, nil
	}
	if len(p.entries) >= p.capacity && !p.evictOldestIdle() {
		return nil, &errors.CapacityError{Capacity: p.capacity, Key: key.String()}
	}
	p.entries[key] = &entry{handle: handle, lastUsedAt: time.Now(), inUse: true}
	p.updateGauges()
	return handle, nil
}

// Release marks the entry for key idle. Releasing an unknown key is a no-op:
// failing here would break at-most-one-owner semantics for the real owner.
func (p *Pool) Release(key Key) {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.entries[key]
	if !ok {
		p.logger.WithField("key", key.String()).Debug("release of unknown pool key ignored")
		return
	}
	e.inUse = false
	e.lastUsedAt = time.Now()
	p.updateGauges()
}

// Sweep removes every idle entry whose last use exceeds the idle timeout.
// Run on the cron schedule; exported so operators can trigger it manually.
func (p *Pool) Sweep() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}

	cutoff := time.Now().Add(-p.idleTimeout)
	for key, e := range p.entries {
		if e.inUse || e.lastUsedAt.After(cutoff) {
			continue
		}
		delete(p.entries, key)
		metrics.RecordEviction("idle")
		p.logger.WithField("key", key.String()).Debug("idle pool entry swept")
	}
	p.updateGauges()
}

// hasIdleLocked reports whether any entry is evictable. Caller holds the
// lock.
func (p *Pool) hasIdleLocked() bool {
	for _, e := range p.entries {
		if !e.inUse {
			return true
		}
	}
	return false
}

// evictOldestIdle removes the idle entry with the oldest lastUsedAt.
// Returns false when every entry is in use. Caller holds the lock.
func (p *Pool) evictOldestIdle() bool {
	var oldestKey Key
	var oldest *entry
	for key, e := range p.entries {
		if e.inUse {
			continue
		}
		if oldest == nil || e.lastUsedAt.Before(oldest.lastUsedAt) {
			oldestKey = key
			oldest = e
		}
	}
	if oldest == nil {
		return false
	}
	delete(p.entries, oldestKey)
	metrics.RecordEviction("capacity")
	p.logger.WithField("key", oldestKey.String()).Debug("idle pool entry evicted for capacity")
	return true
}

// Metrics returns a snapshot of pool occupancy.
func (p *Pool) Metrics() Metrics {
	p.mu.Lock()
	defer p.mu.Unlock()

	m := Metrics{PerKeyInUse: make(map[string]bool, len(p.entries))}
	for key, e := range p.entries {
		m.TotalInstances++
		if e.inUse {
			m.ActiveInstances++
		} else {
			m.IdleInstances++
		}
		m.PerKeyInUse[key.String()] = e.inUse
	}
	return m
}

// Shutdown stops the sweep and drops all entries. Eviction is destructive:
// handles hold no local resources needing graceful teardown.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	p.sweeper.Stop()
	for range p.entries {
		metrics.RecordEviction("shutdown")
	}
	p.entries = make(map[Key]*entry)
	p.updateGauges()
	p.logger.Info("pool shut down")
}

// updateGauges refreshes the Prometheus occupancy gauges. Caller holds the
// lock.
func (p *Pool) updateGauges() {
	total, active := 0, 0
	for _, e := range p.entries {
		total++
		if e.inUse {
			active++
		}
	}
	metrics.SetPoolSize(total, active)
}
