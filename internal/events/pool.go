package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hugh/flow/internal/metrics"
)

const dispatcherPool = "pool"

// Deliverer performs the actual fan-out for one delivery.
type Deliverer interface {
	Deliver(ctx context.Context, d Delivery) ([]DeliveryResult, error)
}

type PoolConfig struct {
	Workers     int
	QueueSize   int
	SendTimeout time.Duration
}

// Pool is an in-process Dispatcher: a bounded queue drained by a fixed set
// of workers. When the queue is full the delivery is dropped.
type Pool struct {
	deliverer   Deliverer
	queue       chan Delivery
	sendTimeout time.Duration
	logger      *slog.Logger
	metrics     *metrics.Metrics

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewPool(deliverer Deliverer, logger *slog.Logger, m *metrics.Metrics, cfg *PoolConfig) *Pool {
	workers, size := 4, 256
	sendTimeout := 30 * time.Second
	if cfg != nil {
		if cfg.Workers > 0 {
			workers = cfg.Workers
		}
		if cfg.QueueSize > 0 {
			size = cfg.QueueSize
		}
		if cfg.SendTimeout > 0 {
			sendTimeout = cfg.SendTimeout
		}
	}

	p := &Pool{
		deliverer:   deliverer,
		queue:       make(chan Delivery, size),
		sendTimeout: sendTimeout,
		logger:      logger,
		metrics:     m,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.work()
	}
	return p
}

// Dispatch queues d without blocking.
func (p *Pool) Dispatch(_ context.Context, d Delivery) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.metrics.WebhookDispatched(dispatcherPool, metrics.ResultDropped)
		return ErrPoolClosed
	}

	select {
	case p.queue <- d:
		p.metrics.WebhookDispatched(dispatcherPool, metrics.ResultQueued)
		return nil
	default:
		p.metrics.WebhookDispatched(dispatcherPool, metrics.ResultDropped)
		return ErrQueueFull
	}
}

func (p *Pool) work() {
	defer p.wg.Done()
	for d := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), p.sendTimeout)
		if _, err := p.deliverer.Deliver(ctx, d); err != nil {
			p.logger.Error("webhook fan-out failed", "event_type", d.Event.Type, "error", err)
		}
		cancel()
	}
}

// Shutdown stops accepting deliveries and waits for queued ones to finish
// or for ctx to expire.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
