package queue

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/clubconnect/clubconnect/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	revokeTimeout  = 10 * time.Second
)

// Revocation asks the auth provider to invalidate an access token.
type Revocation struct {
	UserID      string
	AccessToken string
}

// Dispatcher revokes provider sessions in the background so sign-out does
// not wait on the auth provider. Revocations are sharded by user id, so
// those of one user run in order.
type Dispatcher struct {
	workers  []chan Revocation
	provider ports.AuthProvider
	log      zerolog.Logger
	wg       sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, provider ports.AuthProvider, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers:  make([]chan Revocation, numWorkers),
		provider: provider,
		log:      log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan Revocation, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Wait blocks until every worker has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Enqueue schedules r. It never blocks: when the worker's buffer is full the
// revocation is dropped and the token simply runs until it expires.
func (d *Dispatcher) Enqueue(r Revocation) bool {
	if r.AccessToken == "" {
		return true
	}
	select {
	case d.workers[d.shardIndex(r.UserID)] <- r:
		return true
	default:
		d.log.Warn().Str("user_id", r.UserID).Msg("revocation queue full, dropping")
		return false
	}
}

// shardIndex maps a user id deterministically to a worker index.
func (d *Dispatcher) shardIndex(userID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan Revocation) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case r := <-ch:
			rctx, cancel := context.WithTimeout(ctx, revokeTimeout)
			err := d.provider.SignOut(rctx, r.AccessToken)
			cancel()
			if err != nil {
				d.log.Error().Err(err).
					Str("user_id", r.UserID).
					Int("worker_id", id).
					Msg("session revocation failed")
			}
		}
	}
}
