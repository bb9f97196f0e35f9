package audit

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	// DropIfFull discards events when the buffer is full instead of blocking
	// the emitting request until space frees up or its context ends.
	DropIfFull bool
	// Logger reports sink panics. Defaults to a no-op logger.
	Logger *zap.Logger
}

// Dispatcher relays events to a sink from a single background goroutine so
// that sinks never run on the request path.
type Dispatcher struct {
	sink       Sink
	dropIfFull bool
	logger     *zap.Logger

	queue   chan Event
	stop    chan struct{}
	stopped sync.WaitGroup
	once    sync.Once
	closing atomic.Bool

	dropped   atomic.Uint64
	delivered atomic.Uint64
}

// NewDispatcher starts a dispatcher. It returns nil when cfg.Enabled is false;
// every method is safe to call on a nil *Dispatcher.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	d := &Dispatcher{
		sink:       sink,
		dropIfFull: cfg.DropIfFull,
		logger:     cfg.Logger,
		queue:      make(chan Event, cfg.BufferSize),
		stop:       make(chan struct{}),
	}
	d.stopped.Add(1)
	go d.loop()
	return d
}

func (d *Dispatcher) loop() {
	defer d.stopped.Done()

	for {
		select {
		case event := <-d.queue:
			d.deliver(event)
		case <-d.stop:
			d.drain()
			return
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case event := <-d.queue:
			d.deliver(event)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(event Event) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("audit sink panicked",
				zap.String("event_type", event.EventType),
				zap.Any("panic", r),
			)
		}
	}()
	d.sink.Emit(context.Background(), event)
	d.delivered.Add(1)
}

// Emit queues event. Events emitted after Close are discarded.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil || d.closing.Load() {
		return
	}

	if d.dropIfFull {
		select {
		case d.queue <- event:
		case <-d.stop:
		default:
			d.dropped.Add(1)
		}
		return
	}

	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case d.queue <- event:
	case <-ctx.Done():
		d.dropped.Add(1)
	case <-d.stop:
	}
}

// Close stops accepting events and waits until everything already queued has
// reached the sink.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.once.Do(func() {
		d.closing.Store(true)
		close(d.stop)
		d.stopped.Wait()
	})
}

// Dropped is the number of events discarded because the buffer was full or
// the emitter's context ended first.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// Delivered is the number of events handed to the sink without panicking.
func (d *Dispatcher) Delivered() uint64 {
	if d == nil {
		return 0
	}
	return d.delivered.Load()
}

// Pending is the number of events queued but not yet delivered.
func (d *Dispatcher) Pending() int {
	if d == nil {
		return 0
	}
	return len(d.queue)
}
