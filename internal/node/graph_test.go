package node

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/motorctl/internal/bus"
	"github.com/san-kum/motorctl/internal/clock"
	"github.com/san-kum/motorctl/internal/config"
	"github.com/san-kum/motorctl/internal/dynamo"
)

var _ = Describe("Graph", func() {
	var (
		cfg      *config.Config
		fake     *clock.FakeClock
		graph    *Graph
		states   *bus.Subscription
		commands *bus.Subscription
		cancel   context.CancelFunc
		done     chan error
	)

	// start wires the graph for cfg. The test subscriptions come after the nodes,
	// so a frame seen by one has already reached the node queues.
	start := func() {
		fake = clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

		var err error
		graph, err = NewGraph(cfg, fake, nil)
		Expect(err).NotTo(HaveOccurred())

		states = graph.Bus.Subscribe(bus.TopicState)
		commands = graph.Bus.Subscribe(bus.TopicCommand)

		var ctx context.Context
		ctx, cancel = context.WithCancel(context.Background())
		done = make(chan error, 1)
		go func() { done <- graph.Run(ctx) }()

		// integrator, controller and setpoint tickers
		fake.WaitForTimers(3)
	}

	nextSnapshot := func() dynamo.Snapshot {
		var frame bus.Frame
		Eventually(states.C).Should(Receive(&frame))
		var snap dynamo.Snapshot
		Expect(frame.Decode(&snap)).To(Succeed())
		return snap
	}

	nextCommand := func() dynamo.Command {
		var frame bus.Frame
		Eventually(commands.C).Should(Receive(&frame))
		var cmd dynamo.Command
		Expect(frame.Decode(&cmd)).To(Succeed())
		return cmd
	}

	// tick advances one period and returns the published snapshot and the
	// command computed from it.
	tick := func() (dynamo.Snapshot, dynamo.Command) {
		fake.Advance(cfg.Period())
		snap := nextSnapshot()
		cmd := nextCommand()
		Expect(cmd.Tick).To(Equal(snap.Tick))
		return snap, cmd
	}

	BeforeEach(func() {
		cfg = config.DefaultConfig()
	})

	AfterEach(func() {
		cancel()
		Eventually(done).Should(Receive(BeNil()))
	})

	Context("when integration is started", func() {
		BeforeEach(func() {
			start()
			graph.Integrator.Start()
		})

		It("advances both motors as closed-loop Euler steps", func() {
			snap, cmd := tick()
			Expect(snap.Tick).To(BeZero())
			Expect(cmd.Forces.IDs).To(Equal([]dynamo.MotorID{36, 37}))
			Expect(cmd.Forces.Forces).To(Equal([]float64{200, 0}))
			Expect(cmd.Safety.Status).To(Equal(dynamo.Normal))

			snap, _ = tick()
			Expect(snap.Tick).To(Equal(uint64(1)))
			Expect(snap.States[36].Velocity).To(BeNumerically("~", 0.2, 1e-12))
			Expect(snap.States[36].Position).To(BeZero())
			Expect(snap.States[37]).To(Equal(dynamo.MotorState{}))

			snap, _ = tick()
			Expect(snap.Tick).To(Equal(uint64(2)))
			Expect(snap.States[36].Velocity).To(BeNumerically("~", 0.4, 1e-12))
			Expect(snap.States[36].Position).To(BeNumerically("~", 0.0002, 1e-12))
		})

		It("records every applied tick", func() {
			tick()
			tick()
			tick()

			result := graph.Result()
			Expect(result.Records).To(HaveLen(2))
			Expect(result.Final.Tick).To(Equal(uint64(2)))
			Expect(result.Metrics).To(HaveKey("control_effort"))
			Expect(graph.Integrator.Stats().Applied).To(Equal(uint64(2)))
			Expect(graph.Integrator.Stats().Starved).To(Equal(uint64(1)))
		})

		It("discards commands older than the current state", func() {
			tick()
			tick()

			stale := dynamo.Command{Tick: 0, Forces: dynamo.ForceVector{IDs: []dynamo.MotorID{36}, Forces: []float64{1e6}}}
			Expect(graph.Bus.Publish(context.Background(), bus.TopicCommand, 0, stale)).To(Succeed())
			nextCommand()

			snap, _ := tick()
			Expect(snap.Tick).To(Equal(uint64(2)))
			Expect(snap.States[36].Velocity).To(BeNumerically("~", 0.4, 1e-12))
			Expect(graph.Integrator.Stats().Discards).To(BeNumerically(">=", 1))
		})
	})

	Context("when integration is stopped", func() {
		BeforeEach(func() {
			start()
		})

		It("keeps publishing the initial snapshot", func() {
			for i := 0; i < 3; i++ {
				snap, _ := tick()
				Expect(snap.Tick).To(BeZero())
				Expect(snap.States[36]).To(Equal(dynamo.MotorState{}))
			}
			Expect(graph.Integrator.Running()).To(BeFalse())
			Expect(graph.Integrator.Stats().Applied).To(BeZero())
		})

		It("resumes from the same state after Start", func() {
			tick()
			graph.Integrator.Start()
			snap, _ := tick()
			Expect(snap.Tick).To(Equal(uint64(1)))

			graph.Integrator.Stop()
			snap, _ = tick()
			Expect(snap.Tick).To(Equal(uint64(1)))
		})
	})

	Context("with a force limit", func() {
		BeforeEach(func() {
			cfg = config.GetPreset("limited")
			start()
			graph.Integrator.Start()
		})

		It("clamps the command and reports the exceedance", func() {
			_, cmd := tick()
			Expect(cmd.Safety.Status).To(Equal(dynamo.Exceeded))
			Expect(cmd.Safety.Clamped).To(BeTrue())
			Expect(cmd.Safety.RawNorm).To(BeNumerically("~", 200, 1e-9))
			Expect(cmd.Forces.Forces[0]).To(BeNumerically("~", 50, 1e-9))
			Expect(cmd.Forces.Forces[1]).To(BeZero())

			snap, _ := tick()
			Expect(snap.States[36].Velocity).To(BeNumerically("~", 0.05, 1e-12))
			Expect(graph.Faults.Count(dynamo.ErrSafetyExceeded)).To(BeNumerically(">=", 1))
			Expect(graph.Monitor.Clamped()).To(BeNumerically(">=", 1))
		})
	})

	Context("with a setpoint missing for one motor", func() {
		BeforeEach(func() {
			cfg.Setpoint.Targets = map[int]float64{36: 1.0}
			start()
			graph.Integrator.Start()
		})

		It("drives the other motors and leaves the missing one in place", func() {
			_, cmd := tick()
			Expect(cmd.Missing).To(Equal([]dynamo.MotorID{37}))
			Expect(cmd.Forces.IDs).To(Equal([]dynamo.MotorID{36}))

			snap, _ := tick()
			Expect(snap.Tick).To(Equal(uint64(1)))
			Expect(snap.States[36].Velocity).To(BeNumerically("~", 0.2, 1e-12))
			Expect(snap.States[37]).To(Equal(dynamo.MotorState{}))
			Expect(graph.Faults.Count(dynamo.ErrMissingSetpoint)).To(BeNumerically(">=", 1))
		})
	})
})
