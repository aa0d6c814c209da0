package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"hairstudio/internal/domain"
	"hairstudio/internal/infra"
	"hairstudio/internal/workflow"
)

// OptionsFunc builds the collaborators for a new or restored session. Each
// call must return a fresh upload coordinator.
type OptionsFunc func() workflow.Options

type ManagerOptions struct {
	NewOptions OptionsFunc
	Store      Store
	IdleTTL    time.Duration
	Logger     *infra.Logger
	Now        func() time.Time
}

type entry struct {
	session *workflow.Session
	stop    chan struct{}
	done    chan struct{}
}

// halt stops the watcher and waits for an in-progress save to finish.
func (e *entry) halt() {
	close(e.stop)
	<-e.done
}

// Manager owns the live sessions of this process. Sessions idle longer
// than IdleTTL are closed; with a Store they can be restored later.
type Manager struct {
	newOptions OptionsFunc
	store      Store
	idleTTL    time.Duration
	logger     *infra.Logger
	now        func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
	wg       sync.WaitGroup
}

func NewManager(opts ManagerOptions) *Manager {
	idle := opts.IdleTTL
	if idle <= 0 {
		idle = 2 * time.Hour
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Manager{
		newOptions: opts.NewOptions,
		store:      opts.Store,
		idleTTL:    idle,
		logger:     infra.OrDiscard(opts.Logger),
		now:        now,
		sessions:   make(map[string]*entry),
	}
}

// Create starts a new session for owner.
func (m *Manager) Create(ctx context.Context, owner, locale string) *workflow.Session {
	opts := m.newOptions()
	opts.ID = ""
	opts.Owner = owner
	opts.Locale = locale
	if opts.Now == nil {
		opts.Now = m.now
	}
	s := workflow.New(opts)
	m.track(s)
	m.persist(ctx, s)
	m.logger.Info().Str("session", s.ID()).Str("owner", owner).Msg("session: created")
	return s
}

// Get returns the live session or restores it from the store. Sessions of
// other owners are reported as domain.ErrForbidden.
func (m *Manager) Get(ctx context.Context, id, owner string) (*workflow.Session, error) {
	m.mu.Lock()
	e, ok := m.sessions[id]
	m.mu.Unlock()
	if ok {
		if e.session.Owner() != owner {
			return nil, domain.ErrForbidden
		}
		return e.session, nil
	}
	if m.store == nil {
		return nil, domain.ErrNotFound
	}

	snap, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if snap.Owner != owner {
		return nil, domain.ErrForbidden
	}
	opts := m.newOptions()
	if opts.Now == nil {
		opts.Now = m.now
	}
	restored := workflow.Restore(*snap, opts)

	m.mu.Lock()
	if existing, ok := m.sessions[id]; ok {
		m.mu.Unlock()
		restored.Close()
		return existing.session, nil
	}
	m.mu.Unlock()
	m.track(restored)
	m.logger.Info().Str("session", id).Str("phase", restored.Phase().Code()).Msg("session: restored")
	return restored, nil
}

// Delete ends a session for good: it is closed and its snapshot removed.
func (m *Manager) Delete(ctx context.Context, id, owner string) error {
	s, err := m.Get(ctx, id, owner)
	if err != nil {
		return err
	}
	m.mu.Lock()
	e, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		e.halt()
	}
	s.Close()
	if m.store != nil {
		if err := m.store.Delete(ctx, id); err != nil {
			return fmt.Errorf("session: delete snapshot: %w", err)
		}
	}
	m.logger.Info().Str("session", id).Msg("session: deleted")
	return nil
}

func (m *Manager) track(s *workflow.Session) {
	e := &entry{session: s, stop: make(chan struct{}), done: make(chan struct{})}
	m.mu.Lock()
	m.sessions[s.ID()] = e
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer close(e.done)
		m.watch(e)
	}()
}

func (m *Manager) watch(e *entry) {
	for {
		changed := e.session.Changed()
		select {
		case <-changed:
			m.persist(context.Background(), e.session)
		case <-e.stop:
			return
		}
	}
}

func (m *Manager) persist(ctx context.Context, s *workflow.Session) {
	if m.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := m.store.Save(ctx, s.Snapshot()); err != nil {
		m.logger.Warn().Err(err).Str("session", s.ID()).Msg("session: snapshot not saved")
	}
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Evict closes sessions idle for longer than the idle TTL and returns how
// many were removed.
func (m *Manager) Evict(ctx context.Context) int {
	cutoff := m.now().Add(-m.idleTTL)
	var stale []*entry
	m.mu.Lock()
	for id, e := range m.sessions {
		if e.session.UpdatedAt().Before(cutoff) {
			stale = append(stale, e)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, e := range stale {
		e.halt()
		m.persist(ctx, e.session)
		e.session.Close()
		m.logger.Debug().Str("session", e.session.ID()).Msg("session: evicted")
	}
	return len(stale)
}

// Run evicts idle sessions every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Evict(ctx); n > 0 {
				m.logger.Info().Int("evicted", n).Msg("session: idle sessions evicted")
			}
		}
	}
}

// Close persists and closes every live session.
func (m *Manager) Close(ctx context.Context) {
	m.mu.Lock()
	all := make([]*entry, 0, len(m.sessions))
	for id, e := range m.sessions {
		all = append(all, e)
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	for _, e := range all {
		e.halt()
		m.persist(ctx, e.session)
		e.session.Close()
	}
	m.wg.Wait()
}
