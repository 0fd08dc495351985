package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/clubconnect/clubconnect/internal/core/domain"
	"github.com/clubconnect/clubconnect/internal/core/ports"
	"github.com/clubconnect/clubconnect/internal/infrastructure/metrics"
)

const defaultIdleTTL = 30 * time.Minute

// RegistryConfig tunes the device registry.
type RegistryConfig struct {
	ReconcileTimeout time.Duration
	IdleTTL          time.Duration
}

// Device is one browser or app instance with its own session feed and synchronizer.
type Device struct {
	ID   string
	Feed *Feed
	Sync *Synchronizer

	lastSeen atomic.Int64
	cancel   context.CancelFunc
	done     <-chan struct{}
}

// DeviceRegistry owns the synchronizer of every connected device.
type DeviceRegistry struct {
	resolver *ProfileResolver
	sessions ports.SessionStore
	cfg      RegistryConfig
	log      zerolog.Logger
	now      func() time.Time

	ctx     context.Context
	mu      sync.Mutex
	devices map[string]*Device
}

// NewDeviceRegistry returns a registry whose synchronizers live until ctx
// is cancelled or Close is called.
func NewDeviceRegistry(ctx context.Context, resolver *ProfileResolver, sessions ports.SessionStore, cfg RegistryConfig, log zerolog.Logger) *DeviceRegistry {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = defaultIdleTTL
	}
	return &DeviceRegistry{
		resolver: resolver,
		sessions: sessions,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
		ctx:      ctx,
		devices:  make(map[string]*Device),
	}
}

// Device returns the device with id, starting its synchronizer on first use.
// The startup session is loaded from the session store outside the registry
// lock.
func (r *DeviceRegistry) Device(ctx context.Context, id string) *Device {
	if d := r.lookup(id); d != nil {
		return d
	}

	initial, err := r.sessions.Load(ctx, id)
	if err != nil {
		r.log.Warn().Err(err).Str("device_id", id).Msg("failed to load stored session, starting signed out")
		initial = nil
	}
	if initial.Expired(r.now()) {
		initial = nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Another request may have created the device while the session loaded.
	if d, ok := r.devices[id]; ok {
		d.lastSeen.Store(r.now().UnixNano())
		return d
	}

	log := r.log.With().Str("device_id", id).Logger()
	devCtx, cancel := context.WithCancel(r.ctx)
	d := &Device{
		ID:     id,
		Feed:   NewFeed(initial),
		Sync:   NewSynchronizer(r.resolver, navigationLog{log: log}, r.cfg.ReconcileTimeout, log),
		cancel: cancel,
	}
	d.done = d.Sync.Start(devCtx, d.Feed)
	d.lastSeen.Store(r.now().UnixNano())
	r.devices[id] = d
	metrics.ActiveDevices.Inc()
	return d
}

func (r *DeviceRegistry) lookup(id string) *Device {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[id]
	if !ok {
		return nil
	}
	d.lastSeen.Store(r.now().UnixNano())
	return d
}

// SignIn stores s for the device, publishes it and waits for the device to settle.
func (r *DeviceRegistry) SignIn(ctx context.Context, id string, s *domain.Session) (State, error) {
	if err := r.sessions.Save(ctx, id, s); err != nil {
		r.log.Warn().Err(err).Str("device_id", id).Msg("failed to persist session")
	}
	d := r.Device(ctx, id)
	d.Feed.Publish(s)
	return d.Sync.Settled(ctx)
}

// SignOut forgets the device's session, publishes the sign-out and waits for it to settle.
func (r *DeviceRegistry) SignOut(ctx context.Context, id string) (State, error) {
	if err := r.sessions.Delete(ctx, id); err != nil {
		r.log.Warn().Err(err).Str("device_id", id).Msg("failed to delete stored session")
	}
	d := r.Device(ctx, id)
	d.Feed.Publish(nil)
	return d.Sync.Settled(ctx)
}

// Sweep stops devices not seen for longer than the idle TTL and returns how
// many were removed. A device with an open state stream counts as seen.
func (r *DeviceRegistry) Sweep() int {
	now := r.now()
	cutoff := now.Add(-r.cfg.IdleTTL).UnixNano()

	r.mu.Lock()
	var idle []*Device
	for id, d := range r.devices {
		if d.Sync.Watchers() > 0 {
			d.lastSeen.Store(now.UnixNano())
			continue
		}
		if d.lastSeen.Load() < cutoff {
			idle = append(idle, d)
			delete(r.devices, id)
		}
	}
	r.mu.Unlock()

	for _, d := range idle {
		d.cancel()
		<-d.done
		metrics.ActiveDevices.Dec()
	}
	if len(idle) > 0 {
		r.log.Debug().Int("evicted", len(idle)).Msg("idle devices evicted")
	}
	return len(idle)
}

// StartJanitor sweeps idle devices every interval until ctx is cancelled.
func (r *DeviceRegistry) StartJanitor(ctx context.Context, interval time.Duration) {
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				r.Sweep()
			}
		}
	}()
}

// Close stops every device synchronizer and waits for them to exit.
func (r *DeviceRegistry) Close() {
	r.mu.Lock()
	devices := r.devices
	r.devices = make(map[string]*Device)
	r.mu.Unlock()

	for _, d := range devices {
		d.cancel()
		<-d.done
		metrics.ActiveDevices.Dec()
	}
}

// Len returns the number of live devices.
func (r *DeviceRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.devices)
}

// navigationLog is the device navigator: targets travel to the browser in
// the state snapshot, so here they are only logged.
type navigationLog struct {
	log zerolog.Logger
}

func (n navigationLog) Navigate(target string) {
	n.log.Debug().Str("target", target).Msg("navigation decided")
}
