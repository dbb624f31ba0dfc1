package pipeline

import (
	"context"
	"sync"

	"github.com/smdrkit/smdrd/internal/metrics"
	"github.com/smdrkit/smdrd/internal/record"
	"github.com/smdrkit/smdrd/internal/utils/logger"
)

// Sink consumes records that survived the filter. The log writer and the
// broadcast relay both satisfy this.
type Sink func(record.Record)

// Acceptor decides whether a record is kept. A nil acceptor keeps everything.
type Acceptor interface {
	Accept(record.Record) bool
}

// Pipeline decouples the ingest read loop from log writing and broadcast.
// Records are queued on a bounded channel and drained by a single worker so
// slow disks never stall switch connections; when the queue is full the
// record is dropped and counted, never blocked on.
// Pipeline 将接收循环与日志写入和广播解耦。记录进入有界队列，由单个
// worker 顺序消费；队列满时丢弃并计数，绝不阻塞。
type Pipeline struct {
	queue  chan record.Record
	filter Acceptor
	sinks  []Sink

	mu      sync.Mutex
	running bool
	done    chan struct{}

	// closedMu makes Enqueue safe against a concurrent Stop closing queue.
	closedMu sync.RWMutex
	closed   bool
}

// New creates a pipeline with the given queue capacity.
func New(queueSize int, filter Acceptor, sinks ...Sink) *Pipeline {
	if queueSize < 1 {
		queueSize = 1
	}
	return &Pipeline{
		queue:  make(chan record.Record, queueSize),
		filter: filter,
		sinks:  sinks,
	}
}

// Start launches the worker. Calling Start on a running pipeline is a no-op.
func (p *Pipeline) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	p.running = true
	p.done = make(chan struct{})
	go p.worker(ctx, p.done)
	logger.Get(ctx).Infof("📦 Record pipeline started (queue capacity %d)", cap(p.queue))
}

// Enqueue hands a record to the worker. It never blocks: a full queue drops
// the record and increments the drop counter.
// Enqueue 将记录交给 worker，永不阻塞：队列满时丢弃并计数。
func (p *Pipeline) Enqueue(rec record.Record) {
	p.closedMu.RLock()
	defer p.closedMu.RUnlock()
	if p.closed {
		metrics.RecordsDropped.Inc()
		return
	}
	select {
	case p.queue <- rec:
	default:
		metrics.RecordsDropped.Inc()
	}
}

// Depth returns the number of records currently queued.
func (p *Pipeline) Depth() int {
	return len(p.queue)
}

// Stop drains the records already queued, then stops the worker. Records
// enqueued after Stop are dropped and counted, so callers should stop the
// listener first.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	done := p.done
	p.mu.Unlock()

	p.closedMu.Lock()
	p.closed = true
	p.closedMu.Unlock()

	close(p.queue)
	<-done
}

func (p *Pipeline) worker(ctx context.Context, done chan struct{}) {
	defer close(done)
	for rec := range p.queue {
		p.process(ctx, rec)
	}
}

func (p *Pipeline) process(ctx context.Context, rec record.Record) {
	defer func() {
		if r := recover(); r != nil {
			logger.Get(ctx).Errorf("❌ Record sink panicked: %v", r)
		}
	}()

	if p.filter != nil && !p.filter.Accept(rec) {
		metrics.RecordsFiltered.Inc()
		return
	}
	for _, sink := range p.sinks {
		sink(rec)
	}
}
