package bus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/san-kum/motorctl/internal/codec"
)

type Topic string

const (
	TopicState      Topic = "/state/motors"
	TopicSetpoint   Topic = "/cmd/setpoint"
	TopicRawCommand Topic = "/cmd/force_raw"
	TopicCommand    Topic = "/cmd/force"
)

const DefaultDepth = 16

// Frame is one encoded message. Tick is copied out of the payload so
// receivers can discard stale frames without decoding them.
type Frame struct {
	Topic   Topic  `cbor:"topic"`
	Tick    uint64 `cbor:"tick"`
	Payload []byte `cbor:"payload"`
}

// maxDiag bounds the payload notation carried in decode errors.
const maxDiag = 120

// Decode unmarshals the payload into v. When the payload is well-formed
// CBOR of the wrong shape, the error carries its diagnostic notation.
func (f Frame) Decode(v any) error {
	err := codec.Unmarshal(f.Payload, v)
	if err == nil {
		return nil
	}
	diag, derr := codec.Diagnose(f.Payload)
	if derr != nil {
		return fmt.Errorf("decode %s frame at tick %d: %w", f.Topic, f.Tick, err)
	}
	if len(diag) > maxDiag {
		diag = diag[:maxDiag] + "..."
	}
	return fmt.Errorf("decode %s frame at tick %d (payload %s): %w", f.Topic, f.Tick, diag, err)
}

type Stats struct {
	Published uint64
	Delivered uint64
	Dropped   uint64
}

type Bus struct {
	mu     sync.RWMutex
	subs   map[Topic][]*Subscription
	depth  int
	logger *slog.Logger

	published atomic.Uint64
	delivered atomic.Uint64
	dropped   atomic.Uint64
}

// New returns a bus whose subscriptions queue up to depth frames. A nil
// logger discards log output.
func New(depth int, logger *slog.Logger) *Bus {
	if depth <= 0 {
		depth = DefaultDepth
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Bus{
		subs:   make(map[Topic][]*Subscription),
		depth:  depth,
		logger: logger.With("component", "bus"),
	}
}

// Subscribe registers a queue for topic. Frames published before the call
// are not replayed. Subscribers of one topic receive frames in the order
// they subscribed.
func (b *Bus) Subscribe(topic Topic) *Subscription {
	ch := make(chan Frame, b.depth)
	sub := &Subscription{C: ch, ch: ch, topic: topic, bus: b}

	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], sub)
	b.mu.Unlock()
	return sub
}

// Publish encodes msg and offers it to every subscriber of topic.
func (b *Bus) Publish(ctx context.Context, topic Topic, tick uint64, msg any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := codec.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %s frame: %w", topic, err)
	}
	frame := Frame{Topic: topic, Tick: tick, Payload: payload}
	b.published.Add(1)

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subs[topic] {
		select {
		case sub.ch <- frame:
			b.delivered.Add(1)
		default:
			sub.dropped.Add(1)
			b.dropped.Add(1)
			b.logger.Debug("frame dropped", "topic", topic, "tick", tick)
		}
	}
	return nil
}

func (b *Bus) Stats() Stats {
	return Stats{
		Published: b.published.Load(),
		Delivered: b.delivered.Load(),
		Dropped:   b.dropped.Load(),
	}
}

func (b *Bus) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[sub.topic]
	for i, s := range subs {
		if s == sub {
			b.subs[sub.topic] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	close(sub.ch)
}

// Subscription is a bounded queue of frames for one topic.
type Subscription struct {
	C <-chan Frame

	ch      chan Frame
	topic   Topic
	bus     *Bus
	dropped atomic.Uint64
	once    sync.Once
}

// Dropped returns how many frames this subscriber lost to a full queue.
func (s *Subscription) Dropped() uint64 { return s.dropped.Load() }

// Close unsubscribes and closes C. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() { s.bus.remove(s) })
}
