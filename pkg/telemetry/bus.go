package telemetry

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lwm2m-bridge/lwm2m-go/pkg/coerce"
	"github.com/lwm2m-bridge/lwm2m-go/pkg/model"
	"github.com/lwm2m-bridge/lwm2m-go/pkg/session"
	"github.com/lwm2m-bridge/lwm2m-go/pkg/wire"
)

// DefaultQueueSize is used when NewBus is given a non-positive size.
const DefaultQueueSize = 1024

// publishTimeout bounds a single Publish call.
const publishTimeout = 10 * time.Second

// Bus queues records and publishes them from a single goroutine.
type Bus struct {
	pub    Publisher
	prefix string
	logger *slog.Logger

	mu      sync.RWMutex
	queue   chan Record
	started bool
	closed  bool
	done    chan struct{}

	published atomic.Uint64
	dropped   atomic.Uint64
}

// NewBus creates a bus publishing to pub under topics "<prefix>.<kind>".
func NewBus(pub Publisher, prefix string, queueSize int) *Bus {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Bus{
		pub:    pub,
		prefix: prefix,
		logger: slog.Default(),
		queue:  make(chan Record, queueSize),
		done:   make(chan struct{}),
	}
}

// SetLogger sets the logger for publish failures.
func (b *Bus) SetLogger(logger *slog.Logger) {
	b.logger = logger
}

// Start begins draining the queue. It is a no-op after the first call or
// after Close.
func (b *Bus) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started || b.closed {
		return
	}
	b.started = true
	go b.run()
}

func (b *Bus) run() {
	defer close(b.done)
	for rec := range b.queue {
		b.publish(rec)
	}
}

func (b *Bus) publish(rec Record) {
	payload, err := json.Marshal(rec)
	if err != nil {
		b.logger.Error("telemetry encode failed", "kind", rec.Kind, "path", rec.Path, "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := b.pub.Publish(ctx, b.Topic(rec.Kind), payload); err != nil {
		b.logger.Error("telemetry publish failed", "kind", rec.Kind, "path", rec.Path, "error", err)
		return
	}
	b.published.Add(1)
}

// Topic returns the topic records of kind are published to.
func (b *Bus) Topic(kind RecordKind) string {
	if b.prefix == "" {
		return string(kind)
	}
	return b.prefix + "." + string(kind)
}

// enqueue never blocks; a full or closed queue drops the record.
func (b *Bus) enqueue(rec Record) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		b.dropped.Add(1)
		return
	}
	select {
	case b.queue <- rec:
	default:
		b.dropped.Add(1)
	}
}

// Emit queues a sink message.
func (b *Bus) Emit(sessionID, message string) {
	b.enqueue(Record{
		Kind:      KindLog,
		SessionID: sessionID,
		Message:   message,
		Timestamp: time.Now(),
	})
}

// Observation queues device data.
func (b *Bus) Observation(c *session.Client, path model.Address, content wire.Content) {
	b.enqueue(Record{
		Kind:      KindTelemetry,
		SessionID: c.ID(),
		Endpoint:  c.Endpoint(),
		Path:      path.String(),
		Values:    renderValues(content),
		Timestamp: time.Now(),
	})
}

// AttributeUpdateOK queues a write confirmation echoing the written value.
func (b *Bus) AttributeUpdateOK(c *session.Client, path model.Address, req wire.WriteRequest) {
	b.enqueue(Record{
		Kind:      KindAttribute,
		SessionID: c.ID(),
		Endpoint:  c.Endpoint(),
		Path:      path.String(),
		Message:   req.Mode.String(),
		Values:    map[string]any{req.Target.String(): coerce.Format(req.Value)},
		Timestamp: time.Now(),
	})
}

// Close stops accepting records and waits for the queue to drain or ctx to
// end.
func (b *Bus) Close(ctx context.Context) error {
	b.mu.Lock()
	if !b.closed {
		b.closed = true
		close(b.queue)
		if !b.started {
			close(b.done)
		}
	}
	b.mu.Unlock()

	select {
	case <-b.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Published returns the number of records published.
func (b *Bus) Published() uint64 {
	return b.published.Load()
}

// Dropped returns the number of records dropped.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// renderValues converts content into JSON-friendly values.
func renderValues(content wire.Content) map[string]any {
	out := make(map[string]any, len(content))
	for path, v := range content {
		switch v.(type) {
		case string, bool, float64, int64, uint64, int, nil:
			out[path] = v
		default:
			out[path] = coerce.Format(v)
		}
	}
	return out
}

var (
	_ Sink     = (*Bus)(nil)
	_ Ingestor = (*Bus)(nil)
)
