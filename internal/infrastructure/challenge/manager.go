// Package challenge owns the lifecycle of the single bot-detection widget:
// creation, idempotent reuse, teardown, and serialization of concurrent
// creation attempts. The Manager is an explicit resource handle passed to its
// consumers; nothing in this package is process-global.
package challenge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorantiwarrohan3-stack/prasadamConnect/internal/config"
	"github.com/gorantiwarrohan3-stack/prasadamConnect/internal/domain"
)

// Mount is the surface the widget binds to. The view layer registers one
// when its container becomes available and may report it gone afterwards.
type Mount interface {
	ID() string
	Ready() bool
}

// Manager holds at most one live widget in its slot. Acquire reuses a
// renderable widget, rebuilds a stale one under a held flag that keeps
// concurrent acquisitions from constructing twice, and waits (bounded) for a
// mount to appear.
type Manager struct {
	siteKey       string
	tokenURL      string
	tokenTimeout  time.Duration
	mountRetries  int
	mountInterval time.Duration

	// build is swappable so tests can construct widgets without the remote
	// challenge service.
	build func(mount Mount) (Challenger, error)

	mu    sync.Mutex
	held  bool
	gen   uint64 // bumped by Release; invalidates in-flight builds
	slot  Challenger
	mount Mount
}

// NewManager builds a Manager from configuration.
func NewManager(cfg *config.Config) *Manager {
	m := &Manager{
		siteKey:       cfg.ChallengeSiteKey,
		tokenURL:      cfg.ChallengeTokenURL,
		tokenTimeout:  cfg.HTTPTimeout,
		mountRetries:  cfg.ChallengeMountRetries,
		mountInterval: cfg.ChallengeMountInterval,
	}
	m.build = func(mount Mount) (Challenger, error) {
		return newWidget(m.siteKey, m.tokenURL, mount, m.tokenTimeout)
	}
	return m
}

// SetMount registers the surface the next widget binds to. Passing nil
// unregisters it.
func (m *Manager) SetMount(mount Mount) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mount = mount
}

// Acquire returns the live widget, building one when needed.
//
// A renderable widget in the slot is returned unchanged: tearing down and
// recreating the widget desynchronizes the remote bot-check session. While
// another acquisition holds the construction flag, Acquire returns the
// current slot value — possibly nil — rather than blocking. Construction
// errors are swallowed: the slot is cleared and (nil, nil) returned, so
// callers must treat a nil Challenger as "challenge unavailable".
func (m *Manager) Acquire(ctx context.Context) (Challenger, error) {
	m.mu.Lock()
	if m.slot != nil && m.slot.Renderable() {
		defer m.mu.Unlock()
		return m.slot, nil
	}
	if m.held {
		defer m.mu.Unlock()
		return m.slot, nil
	}
	m.held = true
	gen := m.gen
	stale := m.slot
	m.slot = nil
	m.mu.Unlock()

	if stale != nil {
		_ = stale.Close()
	}

	mount, err := m.awaitMount(ctx)
	if err != nil {
		m.mu.Lock()
		if m.gen == gen {
			m.held = false
		}
		m.mu.Unlock()
		return nil, err
	}

	w, err := m.build(mount)

	m.mu.Lock()
	if m.gen != gen {
		// Released mid-build: the slot stays clean and the late widget is
		// discarded.
		m.mu.Unlock()
		if err == nil && w != nil {
			_ = w.Close()
		}
		return nil, nil
	}
	defer m.mu.Unlock()
	m.held = false
	if err != nil {
		m.slot = nil
		return nil, nil
	}
	m.slot = w
	return w, nil
}

// Release tears down the widget if present and clears the slot and the
// construction flag unconditionally, even mid-acquisition: an in-flight
// build observes the generation bump and discards its widget instead of
// installing it. The next Acquire starts from a clean slate.
func (m *Manager) Release() {
	m.mu.Lock()
	w := m.slot
	m.slot = nil
	m.held = false
	m.gen++
	m.mu.Unlock()
	if w != nil {
		_ = w.Close()
	}
}

// awaitMount polls for a ready mount up to the configured retry bound.
func (m *Manager) awaitMount(ctx context.Context) (Mount, error) {
	retries := m.mountRetries
	if retries < 1 {
		retries = 1
	}
	interval := m.mountInterval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}

	for i := 0; i < retries; i++ {
		m.mu.Lock()
		mount := m.mount
		m.mu.Unlock()
		if mount != nil && mount.Ready() {
			return mount, nil
		}
		if i == retries-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("challenge mount wait cancelled: %w", domain.ErrChallengeUnavailable)
		case <-time.After(interval):
		}
	}
	return nil, fmt.Errorf("challenge mount not found after %d attempts: %w", retries, domain.ErrChallengeUnavailable)
}
