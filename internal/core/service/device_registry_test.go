package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/clubconnect/clubconnect/internal/core/domain"
)

func newTestRegistry(t *testing.T, repo *memRepo, sessions *memSessions) *DeviceRegistry {
	t.Helper()
	r := NewDeviceRegistry(context.Background(), NewProfileResolver(repo, zerolog.Nop()), sessions,
		RegistryConfig{ReconcileTimeout: time.Second, IdleTTL: time.Minute}, zerolog.Nop())
	t.Cleanup(r.Close)
	return r
}

func TestDeviceRegistry_LoadsStoredSession(t *testing.T) {
	repo := newMemRepo()
	repo.put(domain.Profile{ID: "u-fan", Role: domain.RoleFan})
	sessions := newMemSessions()
	_ = sessions.Save(context.Background(), "d1", fanSession())
	r := newTestRegistry(t, repo, sessions)

	d := r.Device(context.Background(), "d1")
	st, err := d.Sync.Settled(context.Background())
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if st.Phase != PhaseReady || st.User == nil || st.User.ID != "u-fan" {
		t.Fatalf("expected stored session to be restored, got %+v", st)
	}
	if r.Device(context.Background(), "d1") != d {
		t.Fatalf("expected the same device on second lookup")
	}
}

func TestDeviceRegistry_ExpiredStoredSessionIgnored(t *testing.T) {
	sessions := newMemSessions()
	expired := fanSession()
	expired.ExpiresAt = time.Now().Add(-time.Minute)
	_ = sessions.Save(context.Background(), "d1", expired)
	r := newTestRegistry(t, newMemRepo(), sessions)

	st, err := r.Device(context.Background(), "d1").Sync.Settled(context.Background())
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if st.User != nil {
		t.Fatalf("expired session must not sign in")
	}
	if st.Path != domain.PathLogin {
		t.Fatalf("expected /login, got %q", st.Path)
	}
}

func TestDeviceRegistry_SignInAndOut(t *testing.T) {
	repo := newMemRepo()
	sessions := newMemSessions()
	r := newTestRegistry(t, repo, sessions)
	ctx := context.Background()

	st, err := r.SignIn(ctx, "d1", newUserSession())
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if st.User == nil || st.Path != domain.PathRoleChooser {
		t.Fatalf("expected new user on /rolechooser, got %+v", st)
	}
	if stored, _ := sessions.Load(ctx, "d1"); stored == nil || stored.UserID != "u-new" {
		t.Fatalf("expected session to be persisted, got %+v", stored)
	}

	st, err = r.SignOut(ctx, "d1")
	if err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if st.User != nil || st.Path != domain.PathLogin {
		t.Fatalf("expected signed out on /login, got %+v", st)
	}
	if stored, _ := sessions.Load(ctx, "d1"); stored != nil {
		t.Fatalf("expected stored session to be removed")
	}
}

func TestDeviceRegistry_DevicesAreIndependent(t *testing.T) {
	repo := newMemRepo()
	repo.put(domain.Profile{ID: "u-fan", Role: domain.RoleFan})
	r := newTestRegistry(t, repo, newMemSessions())
	ctx := context.Background()

	if _, err := r.SignIn(ctx, "phone", fanSession()); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	st, err := r.Device(ctx, "laptop").Sync.Settled(ctx)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if st.User != nil {
		t.Fatalf("sign-in on one device must not leak to another")
	}
	if r.Len() != 2 {
		t.Fatalf("expected 2 devices, got %d", r.Len())
	}
}

func TestDeviceRegistry_SweepEvictsIdle(t *testing.T) {
	r := newTestRegistry(t, newMemRepo(), newMemSessions())
	ctx := context.Background()

	now := time.Now()
	r.now = func() time.Time { return now }
	r.Device(ctx, "old")
	now = now.Add(2 * time.Minute)
	r.Device(ctx, "fresh")

	if n := r.Sweep(); n != 1 {
		t.Fatalf("expected one eviction, got %d", n)
	}
	if r.Len() != 1 {
		t.Fatalf("expected one device left, got %d", r.Len())
	}
}

func TestDeviceRegistry_SweepKeepsWatchedDevices(t *testing.T) {
	repo := newMemRepo()
	repo.put(domain.Profile{ID: "u-fan", Role: domain.RoleFan})
	r := newTestRegistry(t, repo, newMemSessions())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	now := time.Now()
	r.now = func() time.Time { return now }
	d := r.Device(ctx, "dev1")
	states := d.Sync.Watch(ctx)

	now = now.Add(2 * time.Minute)
	if n := r.Sweep(); n != 0 {
		t.Fatalf("a watched device must not be evicted, got %d evictions", n)
	}

	if _, err := r.SignIn(ctx, "dev1", fanSession()); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	timeout := time.After(time.Second)
	for {
		select {
		case st := <-states:
			if st.User != nil && st.User.ID == "u-fan" {
				return
			}
		case <-timeout:
			t.Fatal("watcher received no update after sign-in")
		}
	}
}

func TestDeviceRegistry_SweepEvictsOnceStreamCloses(t *testing.T) {
	r := newTestRegistry(t, newMemRepo(), newMemSessions())
	ctx, cancel := context.WithCancel(context.Background())

	now := time.Now()
	r.now = func() time.Time { return now }
	states := r.Device(ctx, "dev1").Sync.Watch(ctx)
	cancel()
	for range states {
	}

	now = now.Add(2 * time.Minute)
	if n := r.Sweep(); n != 1 {
		t.Fatalf("expected one eviction, got %d", n)
	}
}

func TestDeviceRegistry_CloseEndsWatchers(t *testing.T) {
	r := newTestRegistry(t, newMemRepo(), newMemSessions())
	states := r.Device(context.Background(), "dev1").Sync.Watch(context.Background())

	r.Close()

	timeout := time.After(time.Second)
	for {
		select {
		case _, ok := <-states:
			if !ok {
				return
			}
		case <-timeout:
			t.Fatal("watch channel still open after the device stopped")
		}
	}
}

// slowSessions blocks Load for one device id until release is closed.
type slowSessions struct {
	*memSessions
	slowID  string
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *slowSessions) Load(ctx context.Context, id string) (*domain.Session, error) {
	if id == s.slowID {
		s.once.Do(func() { close(s.entered) })
		<-s.release
	}
	return s.memSessions.Load(ctx, id)
}

func TestDeviceRegistry_SlowSessionLoadDoesNotBlockOthers(t *testing.T) {
	sessions := &slowSessions{
		memSessions: newMemSessions(),
		slowID:      "slow",
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	r := NewDeviceRegistry(context.Background(), NewProfileResolver(newMemRepo(), zerolog.Nop()), sessions,
		RegistryConfig{ReconcileTimeout: time.Second, IdleTTL: time.Minute}, zerolog.Nop())
	defer r.Close()
	ctx := context.Background()

	existing := r.Device(ctx, "d1")

	created := make(chan *Device)
	go func() { created <- r.Device(ctx, "slow") }()
	<-sessions.entered

	got := make(chan *Device)
	go func() {
		got <- r.Device(ctx, "d1")
		_ = r.Device(ctx, "d2")
		got <- nil
	}()
	select {
	case d := <-got:
		if d != existing {
			t.Fatal("expected the existing device")
		}
		<-got
	case <-time.After(time.Second):
		t.Fatal("device lookup blocked behind a slow session load")
	}

	close(sessions.release)
	if d := <-created; d == nil || d.ID != "slow" {
		t.Fatalf("unexpected slow device: %+v", d)
	}
	if r.Len() != 3 {
		t.Fatalf("expected 3 devices, got %d", r.Len())
	}
}
