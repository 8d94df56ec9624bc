package bus

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/san-kum/motorctl/internal/codec"
	"github.com/san-kum/motorctl/internal/dynamo"
)

func TestPublishDeliversCopy(t *testing.T) {
	b := New(4, nil)
	sub := b.Subscribe(TopicState)
	defer sub.Close()

	snap := dynamo.Snapshot{Tick: 1, States: map[dynamo.MotorID]dynamo.MotorState{36: {Velocity: 0.2}}}
	if err := b.Publish(context.Background(), TopicState, snap.Tick, snap); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	// Mutating the original after publish must not reach the subscriber.
	snap.States[36] = dynamo.MotorState{Velocity: 99}

	frame := <-sub.C
	if frame.Tick != 1 || frame.Topic != TopicState {
		t.Fatalf("unexpected frame header %+v", frame)
	}
	var got dynamo.Snapshot
	if err := frame.Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.States[36].Velocity != 0.2 {
		t.Errorf("subscriber saw %v", got.States[36])
	}
}

func TestPublishOnlyToTopic(t *testing.T) {
	b := New(4, nil)
	state := b.Subscribe(TopicState)
	cmd := b.Subscribe(TopicCommand)

	if err := b.Publish(context.Background(), TopicCommand, 3, dynamo.Command{Tick: 3}); err != nil {
		t.Fatal(err)
	}
	if len(state.C) != 0 || len(cmd.C) != 1 {
		t.Errorf("state queue %d, command queue %d", len(state.C), len(cmd.C))
	}
}

func TestPublishDropsOnFullQueue(t *testing.T) {
	b := New(2, nil)
	slow := b.Subscribe(TopicCommand)
	fast := b.Subscribe(TopicCommand)

	ctx := context.Background()
	for tick := uint64(0); tick < 5; tick++ {
		if err := b.Publish(ctx, TopicCommand, tick, dynamo.Command{Tick: tick}); err != nil {
			t.Fatalf("Publish blocked or failed: %v", err)
		}
		<-fast.C
	}

	if slow.Dropped() != 3 || fast.Dropped() != 0 {
		t.Errorf("dropped slow=%d fast=%d", slow.Dropped(), fast.Dropped())
	}
	stats := b.Stats()
	if stats.Published != 5 || stats.Delivered != 7 || stats.Dropped != 3 {
		t.Errorf("unexpected stats %+v", stats)
	}

	// The oldest frames survive; newer ones were dropped.
	if f := <-slow.C; f.Tick != 0 {
		t.Errorf("first queued tick = %d", f.Tick)
	}
}

func TestPublishCanceledContext(t *testing.T) {
	b := New(1, nil)
	sub := b.Subscribe(TopicSetpoint)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := b.Publish(ctx, TopicSetpoint, 0, dynamo.Setpoints{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if len(sub.C) != 0 {
		t.Error("frame delivered after cancel")
	}
}

func TestCloseUnsubscribes(t *testing.T) {
	b := New(1, nil)
	sub := b.Subscribe(TopicState)
	sub.Close()
	sub.Close()

	if _, ok := <-sub.C; ok {
		t.Error("channel still open after Close")
	}
	if err := b.Publish(context.Background(), TopicState, 0, dynamo.Snapshot{}); err != nil {
		t.Fatal(err)
	}
	if b.Stats().Delivered != 0 {
		t.Error("closed subscription still receives frames")
	}
}

func TestDecodeError(t *testing.T) {
	frame := Frame{Topic: TopicState, Payload: []byte{0xff}}
	var snap dynamo.Snapshot
	if err := frame.Decode(&snap); err == nil {
		t.Error("expected decode error for malformed payload")
	}
}

func TestDecodeErrorCarriesDiagnostic(t *testing.T) {
	payload, err := codec.Marshal("not a snapshot")
	if err != nil {
		t.Fatal(err)
	}
	long, err := codec.Marshal(strings.Repeat("x", 500))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		payload []byte
		want    []string
		maxLen  int
	}{
		{"wrong shape", payload, []string{`"not a snapshot"`, "tick 7", string(TopicState)}, 0},
		{"truncated notation", long, []string{`"xxx`, "..."}, 300},
		{"malformed", []byte{0xff}, []string{"tick 7"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := Frame{Topic: TopicState, Tick: 7, Payload: tt.payload}
			var snap dynamo.Snapshot
			err := frame.Decode(&snap)
			if err == nil {
				t.Fatal("expected decode error")
			}
			for _, w := range tt.want {
				if !strings.Contains(err.Error(), w) {
					t.Errorf("error %q missing %q", err, w)
				}
			}
			if tt.maxLen > 0 && len(err.Error()) > tt.maxLen {
				t.Errorf("error not truncated: %d bytes", len(err.Error()))
			}
		})
	}
}
