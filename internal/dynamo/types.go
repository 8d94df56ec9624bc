package dynamo

import (
	"fmt"
	"math"
)

// State is the integration vector of a [System].
type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Norm is the Euclidean norm. Components are scaled by the largest
// magnitude first, so the result is finite whenever every component is.
func (s State) Norm() float64 {
	scale := 0.0
	for _, v := range s {
		if math.IsNaN(v) {
			return math.NaN()
		}
		scale = max(scale, math.Abs(v))
	}
	if scale == 0 || math.IsInf(scale, 1) {
		return scale
	}

	sum := 0.0
	for _, v := range s {
		r := v / scale
		sum += r * r
	}
	return scale * math.Sqrt(sum)
}

func (s State) Scale(factor float64) State {
	result := make(State, len(s))
	for i := range s {
		result[i] = s[i] * factor
	}
	return result
}

type Control []float64

type System interface {
	Derive(x State, u Control, t float64) State
	StateDim() int
	ControlDim() int
}

type Integrator interface {
	Step(dyn System, x State, u Control, t float64, dt float64) State
}

type Metric interface {
	Name() string
	Observe(snap Snapshot, cmd Command)
	Value() float64
	Reset()
}

// Observer is called after each committed tick with the snapshot the
// command was applied to.
type Observer interface {
	OnTick(snap Snapshot, cmd Command)
}

type Configurable interface {
	GetParams() map[string]float64
}

// MotorID identifies one actuator.
type MotorID int

// MotorSet is the ordered, duplicate-free set of configured actuators. The
// order is fixed at configuration time and every vector follows it.
type MotorSet []MotorID

// NewMotorSet validates ids and returns them as a MotorSet.
func NewMotorSet(ids []int) (MotorSet, error) {
	if len(ids) == 0 {
		return nil, &ConfigError{Field: "motor_ids", Reason: "must not be empty"}
	}
	seen := make(map[int]bool, len(ids))
	set := make(MotorSet, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			return nil, &ConfigError{Field: "motor_ids", Reason: fmt.Sprintf("id %d is not positive", id)}
		}
		if seen[id] {
			return nil, &ConfigError{Field: "motor_ids", Reason: fmt.Sprintf("duplicate id %d", id)}
		}
		seen[id] = true
		set = append(set, MotorID(id))
	}
	return set, nil
}

func (m MotorSet) Contains(id MotorID) bool {
	return m.Index(id) >= 0
}

func (m MotorSet) Index(id MotorID) int {
	for i, v := range m {
		if v == id {
			return i
		}
	}
	return -1
}

type MotorState struct {
	Position float64 `cbor:"position" json:"position"`
	Velocity float64 `cbor:"velocity" json:"velocity"`
}

func (s MotorState) IsValid() bool {
	return State{s.Position, s.Velocity}.IsValid()
}

// Snapshot is the state of every configured motor at one tick.
type Snapshot struct {
	Tick   uint64                 `cbor:"tick"`
	Time   float64                `cbor:"time"`
	States map[MotorID]MotorState `cbor:"states"`
}

func (s Snapshot) Clone() Snapshot {
	c := Snapshot{Tick: s.Tick, Time: s.Time, States: make(map[MotorID]MotorState, len(s.States))}
	for id, st := range s.States {
		c.States[id] = st
	}
	return c
}

func (s Snapshot) IsValid() bool {
	for _, st := range s.States {
		if !st.IsValid() {
			return false
		}
	}
	return true
}

// Covers reports whether the snapshot holds a state for every motor in set.
func (s Snapshot) Covers(set MotorSet) bool {
	for _, id := range set {
		if _, ok := s.States[id]; !ok {
			return false
		}
	}
	return true
}

// Setpoints carries target positions. Tick is the sequence number of the
// producer, not of the integrator.
type Setpoints struct {
	Tick    uint64              `cbor:"tick"`
	Targets map[MotorID]float64 `cbor:"targets"`
}

// ForceVector holds one force per motor, IDs[i] paired with Forces[i].
type ForceVector struct {
	Tick   uint64    `cbor:"tick"`
	IDs    []MotorID `cbor:"ids"`
	Forces []float64 `cbor:"forces"`
}

func (f ForceVector) Clone() ForceVector {
	ids := make([]MotorID, len(f.IDs))
	copy(ids, f.IDs)
	return ForceVector{Tick: f.Tick, IDs: ids, Forces: State(f.Forces).Clone()}
}

func (f ForceVector) Len() int { return len(f.IDs) }

func (f ForceVector) Norm() float64 {
	return State(f.Forces).Norm()
}

func (f ForceVector) Scale(factor float64) ForceVector {
	c := f.Clone()
	c.Forces = State(f.Forces).Scale(factor)
	return c
}

func (f ForceVector) Get(id MotorID) (float64, bool) {
	for i, v := range f.IDs {
		if v == id {
			return f.Forces[i], true
		}
	}
	return 0, false
}

type SafetyStatus int

const (
	Normal SafetyStatus = iota
	Exceeded
)

func (s SafetyStatus) String() string {
	switch s {
	case Normal:
		return "NORMAL"
	case Exceeded:
		return "EXCEEDED"
	default:
		return fmt.Sprintf("SafetyStatus(%d)", int(s))
	}
}

// Report is the monitor's verdict for one tick. Norm is the norm of the
// vector passed downstream; RawNorm is the norm before clamping.
type Report struct {
	Status   SafetyStatus `cbor:"status"`
	Norm     float64      `cbor:"norm"`
	RawNorm  float64      `cbor:"raw_norm"`
	Limit    float64      `cbor:"limit,omitempty"`
	HasLimit bool         `cbor:"has_limit"`
	Clamped  bool         `cbor:"clamped"`
}

// Command is the safety-filtered force vector consumed by the integrator.
type Command struct {
	Tick    uint64      `cbor:"tick"`
	Forces  ForceVector `cbor:"forces"`
	Safety  Report      `cbor:"safety"`
	Missing []MotorID   `cbor:"missing,omitempty"`
}

// Record pairs a snapshot with the command that was computed from it.
type Record struct {
	Snapshot Snapshot
	Command  Command
}

type Result struct {
	Records  []Record
	Final    Snapshot
	Metrics  map[string]float64
	Faults   []error
	Dropped  uint64
	Discards uint64
}
