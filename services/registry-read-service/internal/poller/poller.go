package poller

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/md-rashed-zaman/orderflow/libs/cqrs"
	otelx "github.com/md-rashed-zaman/orderflow/libs/otel"
	"github.com/md-rashed-zaman/orderflow/libs/product"
)

// OutboxStore is the slice of the outbox repository the poller needs.
type OutboxStore interface {
	FetchReady(ctx context.Context, aggregateType string, limit, maxRetries int) ([]cqrs.OutboxEntry, error)
	Delete(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, reason string, delay time.Duration) error
}

// Dispatcher applies one decoded envelope to the read model.
type Dispatcher interface {
	Dispatch(ctx context.Context, env product.Envelope) (noop bool, err error)
}

type Config struct {
	Partitions   int
	BatchSize    int
	PollInterval time.Duration
	MaxRetries   int
	RetryDelay   time.Duration
	QueueDepth   int
}

// Poller drains the outbox into the read model. Entries are routed to a
// fixed worker per aggregate id, which keeps deliveries for one aggregate
// in sequence order while different aggregates proceed in parallel.
type Poller struct {
	outbox     OutboxStore
	dispatcher Dispatcher
	logger     *slog.Logger
	metrics    *metrics
	blocked    *blocklist
	cfg        Config
	queues     []chan cqrs.OutboxEntry

	mu       sync.Mutex
	inflight map[int64]struct{}
}

func New(outbox OutboxStore, dispatcher Dispatcher, logger *slog.Logger, reg prometheus.Registerer, cfg Config) *Poller {
	if cfg.Partitions <= 0 {
		cfg.Partitions = runtime.GOMAXPROCS(0)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 1 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 30 * time.Second
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = 64
	}
	queues := make([]chan cqrs.OutboxEntry, cfg.Partitions)
	for i := range queues {
		queues[i] = make(chan cqrs.OutboxEntry, cfg.QueueDepth)
	}
	return &Poller{
		outbox:     outbox,
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    newMetrics(reg),
		blocked:    newBlocklist(),
		cfg:        cfg,
		queues:     queues,
		inflight:   make(map[int64]struct{}),
	}
}

// Run blocks until ctx is cancelled. It starts one worker per partition
// plus the fetch loop.
func (p *Poller) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i, queue := range p.queues {
		wg.Add(1)
		go func(worker int, queue <-chan cqrs.OutboxEntry) {
			defer wg.Done()
			p.worker(ctx, worker, queue)
		}(i, queue)
	}

	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			for _, q := range p.queues {
				close(q)
			}
			wg.Wait()
			return
		case <-ticker.C:
			if err := p.poll(ctx); err != nil {
				p.logger.Error("outbox poll failed", "err", err)
			}
		}
	}
}

func (p *Poller) poll(ctx context.Context) error {
	entries, err := p.outbox.FetchReady(ctx, product.AggregateProduct, p.cfg.BatchSize, p.cfg.MaxRetries)
	if err != nil {
		return err
	}
	p.metrics.batchSize.Observe(float64(len(entries)))

	// Batches come back ordered by sequence, so once one entry of an
	// aggregate is held back, every later entry of that aggregate must be
	// held too. Enqueueing any of them would let a higher sequence reach
	// the worker first and turn the held entry into a stale no-op.
	held := make(map[uuid.UUID]struct{})
	for _, entry := range entries {
		aggregate := entry.Event.AggregateID
		if _, ok := held[aggregate]; ok {
			p.metrics.skipped.Inc()
			continue
		}
		if p.blocked.Blocked(aggregate) {
			held[aggregate] = struct{}{}
			p.metrics.skipped.Inc()
			continue
		}
		if !p.claim(entry.ID) {
			// Already queued from an earlier poll. Later sequences of the
			// same aggregate land behind it on the same partition queue.
			continue
		}
		queue := p.queues[p.partition(aggregate.String())]
		select {
		case queue <- entry:
		default:
			// Full queue: leave the aggregate's entries in the outbox for
			// the next poll.
			p.release(entry.ID)
			held[aggregate] = struct{}{}
			p.metrics.skipped.Inc()
		}
	}
	return nil
}

// claim marks an outbox entry as queued so re-fetches before the worker
// gets to it do not enqueue a duplicate delivery.
func (p *Poller) claim(id int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.inflight[id]; ok {
		return false
	}
	p.inflight[id] = struct{}{}
	return true
}

func (p *Poller) release(id int64) {
	p.mu.Lock()
	delete(p.inflight, id)
	p.mu.Unlock()
}

func (p *Poller) partition(aggregateID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(aggregateID))
	return int(h.Sum32() % uint32(p.cfg.Partitions))
}

func (p *Poller) worker(ctx context.Context, worker int, queue <-chan cqrs.OutboxEntry) {
	for entry := range queue {
		if ctx.Err() != nil {
			return
		}
		p.process(ctx, worker, entry)
	}
}

func (p *Poller) process(ctx context.Context, worker int, entry cqrs.OutboxEntry) {
	defer p.release(entry.ID)

	ctx = otelx.ContextWithTraceContext(ctx, entry.Event.Traceparent, entry.Event.Tracestate)
	ctx, span := otel.Tracer("outbox").Start(ctx, "outbox.project",
		trace.WithAttributes(
			attribute.String("event.type", entry.Event.EventType),
			attribute.String("aggregate.id", entry.Event.AggregateID.String()),
		),
	)
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			reason := fmt.Sprintf("panic: %v", r)
			p.logger.Error("projection panicked",
				"worker", worker, "outbox_id", entry.ID, "aggregate_id", entry.Event.AggregateID.String(), "err", reason)
			p.fail(ctx, entry, reason)
		}
	}()

	if p.blocked.Blocked(entry.Event.AggregateID) {
		p.metrics.skipped.Inc()
		return
	}

	env, err := product.DecodeEnvelope(entry.Event)
	if err != nil {
		p.logger.Error("outbox entry undecodable",
			"worker", worker, "outbox_id", entry.ID, "event_type", entry.Event.EventType, "err", err)
		p.fail(ctx, entry, err.Error())
		return
	}

	noop, err := p.dispatcher.Dispatch(ctx, env)
	if err != nil {
		p.fail(ctx, entry, err.Error())
		return
	}

	outcome := "projected"
	if noop {
		outcome = "noop"
	}
	p.metrics.projections.WithLabelValues(outcome).Inc()
	if err := p.outbox.Delete(ctx, entry.ID); err != nil {
		p.logger.Error("outbox delete failed", "worker", worker, "outbox_id", entry.ID, "err", err)
	}
}

// fail records the attempt and blocks the aggregate so later sequences
// cannot jump ahead of the failed one.
func (p *Poller) fail(ctx context.Context, entry cqrs.OutboxEntry, reason string) {
	p.metrics.projections.WithLabelValues("failed").Inc()
	if err := p.outbox.MarkFailed(ctx, entry.ID, reason, p.cfg.RetryDelay); err != nil {
		p.logger.Error("outbox mark-failed failed", "outbox_id", entry.ID, "err", err)
	}
	p.blocked.Block(entry.Event.AggregateID, p.cfg.RetryDelay)
}
