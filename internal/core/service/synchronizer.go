package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/clubconnect/clubconnect/internal/core/domain"
	"github.com/clubconnect/clubconnect/internal/core/ports"
	"github.com/clubconnect/clubconnect/internal/infrastructure/metrics"
)

const defaultReconcileTimeout = 10 * time.Second

// Synchronizer keeps the current user of one device in step with its auth
// session and profile row, and decides where the device should navigate.
//
// Reconciliations run one at a time in arrival order. A newer event cancels
// the profile lookup of an older one, and results belonging to anything but
// the latest event are discarded.
type Synchronizer struct {
	resolver *ProfileResolver
	nav      ports.Navigator
	timeout  time.Duration
	log      zerolog.Logger

	// procMu serialises reconciliations and role writes.
	procMu sync.Mutex

	mu       sync.Mutex
	state    State
	gen      uint64
	applied  uint64
	settled  chan struct{}
	inflight context.CancelFunc
	watchers map[chan State]struct{}
	stopped  bool
}

// NewSynchronizer returns a Synchronizer in the booting phase. nav may be nil.
func NewSynchronizer(resolver *ProfileResolver, nav ports.Navigator, timeout time.Duration, log zerolog.Logger) *Synchronizer {
	if timeout <= 0 {
		timeout = defaultReconcileTimeout
	}
	return &Synchronizer{
		resolver: resolver,
		nav:      nav,
		timeout:  timeout,
		log:      log,
		state:    State{Phase: PhaseBooting, Path: domain.PathRoot},
		settled:  make(chan struct{}),
		watchers: make(map[chan State]struct{}),
	}
}

// Run subscribes to feed and reconciles every delivered session until ctx
// is cancelled. It blocks; see Start for the non-blocking form.
func (s *Synchronizer) Run(ctx context.Context, feed ports.SessionFeed) {
	<-s.Start(ctx, feed)
}

// Start subscribes to feed before returning, so the startup event is
// already counted by Settled, and reconciles on a worker goroutine. Only the
// most recent undelivered event is kept; an older one still waiting is
// superseded. The returned channel is closed when the worker has exited.
func (s *Synchronizer) Start(ctx context.Context, feed ports.SessionFeed) <-chan struct{} {
	type event struct {
		gen     uint64
		session *domain.Session
	}

	var (
		pendingMu sync.Mutex
		pending   *event
		wake      = make(chan struct{}, 1)
		done      = make(chan struct{})
	)

	unsubscribe := feed.Subscribe(func(sess *domain.Session) {
		gen := s.supersede()
		pendingMu.Lock()
		pending = &event{gen: gen, session: sess}
		pendingMu.Unlock()
		select {
		case wake <- struct{}{}:
		default:
		}
	})

	go func() {
		defer close(done)
		defer s.closeWatchers()
		defer unsubscribe()

		for {
			select {
			case <-ctx.Done():
				return
			case <-wake:
				pendingMu.Lock()
				ev := pending
				pending = nil
				pendingMu.Unlock()
				if ev == nil {
					continue
				}

				s.procMu.Lock()
				s.reconcileLocked(ctx, ev.gen, ev.session)
				s.procMu.Unlock()
			}
		}
	}()
	return done
}

// Reconcile applies session synchronously and returns the resulting state.
// Store failures are logged and leave the device signed out; they are never
// returned.
func (s *Synchronizer) Reconcile(ctx context.Context, session *domain.Session) State {
	gen := s.supersede()

	s.procMu.Lock()
	defer s.procMu.Unlock()
	return s.reconcileLocked(ctx, gen, session)
}

// SetPath records the path the app is showing and applies the navigation rule.
func (s *Synchronizer) SetPath(path string) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, eff := Decide(s.state, path)
	s.commitLocked(next, eff)
	return next
}

// ChooseRole assigns the role of the current user. It is only valid while a
// current user exists whose role is unset.
func (s *Synchronizer) ChooseRole(ctx context.Context, role domain.Role) (State, error) {
	if !role.IsSet() {
		return s.State(), fmt.Errorf("%w: %q", domain.ErrInvalidRole, role)
	}

	s.procMu.Lock()
	defer s.procMu.Unlock()

	s.mu.Lock()
	st, gen := s.state, s.gen
	s.mu.Unlock()

	if st.User == nil {
		return st, domain.ErrNotAuthenticated
	}
	if st.User.Role.IsSet() {
		return st, domain.ErrRoleAlreadySet
	}

	wctx, cancel := context.WithTimeout(ctx, s.timeout)
	_, err := s.resolver.AssignRole(wctx, st.User.ID, role)
	cancel()

	// Re-reconciling under the generation read above leaves any session
	// event that arrived meanwhile to win.
	switch {
	case errors.Is(err, domain.ErrRoleAlreadySet):
		// Another device chose first; pick up the stored role.
		s.log.Info().Str("user_id", st.User.ID).Msg("role already chosen elsewhere")
		return s.reconcileLocked(ctx, gen, st.Session), err
	case err != nil:
		s.log.Error().Err(err).Str("user_id", st.User.ID).Msg("role assignment failed")
		return st, err
	}

	s.log.Info().Str("user_id", st.User.ID).Str("role", string(role)).Msg("role assigned")
	return s.reconcileLocked(ctx, gen, st.Session), nil
}

// State returns a snapshot of the current state.
func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Current returns the current user, or nil when signed out.
func (s *Synchronizer) Current() *domain.CurrentUser {
	return s.State().User
}

// Settled waits until every submitted event has been reconciled or
// discarded and returns the resulting state.
func (s *Synchronizer) Settled(ctx context.Context) (State, error) {
	for {
		s.mu.Lock()
		if s.applied >= s.gen {
			st := s.state
			s.mu.Unlock()
			return st, nil
		}
		ch := s.settled
		s.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return State{}, ctx.Err()
		}
	}
}

// Watch returns a channel receiving the state after every change. Slow
// receivers only see the latest state. The channel is closed when ctx ends
// or the synchronizer stops.
func (s *Synchronizer) Watch(ctx context.Context) <-chan State {
	ch := make(chan State, 1)

	s.mu.Lock()
	ch <- s.state
	if s.stopped {
		close(ch)
		s.mu.Unlock()
		return ch
	}
	s.watchers[ch] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		if _, ok := s.watchers[ch]; ok {
			delete(s.watchers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}()
	return ch
}

// Watchers returns the number of open Watch channels.
func (s *Synchronizer) Watchers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.watchers)
}

func (s *Synchronizer) closeWatchers() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	for ch := range s.watchers {
		delete(s.watchers, ch)
		close(ch)
	}
}

// supersede starts a new generation and cancels the lookup in flight.
func (s *Synchronizer) supersede() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gen++
	if s.inflight != nil {
		s.inflight()
		s.inflight = nil
	}
	return s.gen
}

func (s *Synchronizer) reconcileLocked(ctx context.Context, gen uint64, session *domain.Session) State {
	s.mu.Lock()
	if gen != s.gen {
		s.markAppliedLocked(gen)
		st := s.state
		s.mu.Unlock()
		metrics.ReconciliationsTotal.WithLabelValues("stale").Inc()
		return st
	}
	rctx, cancel := context.WithTimeout(ctx, s.timeout)
	s.inflight = cancel
	s.mu.Unlock()
	defer cancel()

	start := time.Now()
	out := Outcome{Session: session}
	if session != nil {
		if session.UserID == "" {
			out.Err = errors.New("session carries no user id")
		} else {
			out.Profile, out.Err = s.resolver.Resolve(rctx, *session)
		}
	}
	outcome := outcomeLabel(out)
	metrics.ReconcileDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		s.markAppliedLocked(gen)
		metrics.ReconciliationsTotal.WithLabelValues("stale").Inc()
		s.log.Debug().Uint64("generation", gen).Msg("discarding superseded reconciliation")
		return s.state
	}
	s.inflight = nil

	if out.Err != nil {
		ev := s.log.Error().Err(out.Err)
		if session != nil {
			ev = ev.Str("user_id", session.UserID)
		}
		ev.Msg("profile resolution failed, treating device as signed out")
	}
	metrics.ReconciliationsTotal.WithLabelValues(outcome).Inc()

	next, eff := Reduce(s.state, out)
	s.commitLocked(next, eff)
	s.markAppliedLocked(gen)
	return next
}

func (s *Synchronizer) commitLocked(next State, eff Effects) {
	changed := !sameState(s.state, next)
	s.state = next

	if eff.Navigate != "" {
		metrics.NavigationsTotal.WithLabelValues(eff.Navigate).Inc()
		if s.nav != nil {
			s.nav.Navigate(eff.Navigate)
		}
	}
	if !changed {
		return
	}
	for ch := range s.watchers {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- next:
		default:
		}
	}
}

func (s *Synchronizer) markAppliedLocked(gen uint64) {
	if gen > s.applied {
		s.applied = gen
	}
	close(s.settled)
	s.settled = make(chan struct{})
}

func outcomeLabel(out Outcome) string {
	switch {
	case out.Session == nil:
		return "signed_out"
	case out.Err != nil:
		return "error"
	default:
		return "signed_in"
	}
}

func sameState(a, b State) bool {
	return a.Phase == b.Phase &&
		a.Path == b.Path &&
		a.Target == b.Target &&
		a.User.Equal(b.User) &&
		(a.Err == nil) == (b.Err == nil)
}
