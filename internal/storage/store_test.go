package storage

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/motorctl/internal/config"
	"github.com/san-kum/motorctl/internal/dynamo"
)

func sampleResult() *dynamo.Result {
	return &dynamo.Result{
		Records: []dynamo.Record{
			{
				Snapshot: dynamo.Snapshot{Tick: 0, States: map[dynamo.MotorID]dynamo.MotorState{36: {}, 37: {}}},
				Command: dynamo.Command{
					Tick:   0,
					Forces: dynamo.ForceVector{IDs: []dynamo.MotorID{36, 37}, Forces: []float64{200, 0}},
					Safety: dynamo.Report{Norm: 200, RawNorm: 200},
				},
			},
			{
				Snapshot: dynamo.Snapshot{Tick: 1, Time: 0.001, States: map[dynamo.MotorID]dynamo.MotorState{36: {Velocity: 0.2}, 37: {}}},
				Command: dynamo.Command{
					Tick:    1,
					Forces:  dynamo.ForceVector{IDs: []dynamo.MotorID{36}, Forces: []float64{200}},
					Safety:  dynamo.Report{Norm: 200, RawNorm: 200},
					Missing: []dynamo.MotorID{37},
				},
			},
		},
		Final: dynamo.Snapshot{Tick: 2, States: map[dynamo.MotorID]dynamo.MotorState{
			36: {Position: 0.0002, Velocity: 0.4},
			37: {},
		}},
		Metrics: map[string]float64{"control_effort": 200},
	}
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runID, err := st.Save("default", "simulate", config.DefaultConfig(), sampleResult())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if !strings.HasPrefix(runID, "default_") {
		t.Errorf("unexpected run id %q", runID)
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.Mode != "simulate" || meta.Ticks != 2 || meta.Gain != 200 {
		t.Errorf("unexpected metadata %+v", meta)
	}
	if meta.Final[36].Velocity != 0.4 {
		t.Errorf("final state lost: %+v", meta.Final)
	}
	if meta.Metrics["control_effort"] != 200 {
		t.Errorf("metrics lost: %v", meta.Metrics)
	}

	tr, err := st.LoadTrace(runID)
	if err != nil {
		t.Fatalf("load trace failed: %v", err)
	}
	if tr.Len() != 2 || len(tr.Motors) != 2 || tr.Motors[0] != 36 {
		t.Fatalf("unexpected trace shape: %d rows, motors %v", tr.Len(), tr.Motors)
	}
	if tr.Velocities[36][1] != 0.2 || tr.Forces[36][0] != 200 {
		t.Errorf("unexpected values %v %v", tr.Velocities[36], tr.Forces[36])
	}
	if !math.IsNaN(tr.Forces[37][1]) {
		t.Errorf("missing force should load as NaN, got %v", tr.Forces[37][1])
	}
	if tr.Status[0] != "NORMAL" {
		t.Errorf("status = %q", tr.Status[0])
	}
}

func TestStoreList(t *testing.T) {
	dir := t.TempDir()
	st := New(dir)

	runs, err := st.List()
	if err != nil || len(runs) != 0 {
		t.Fatalf("expected empty list, got %v %v", runs, err)
	}

	if _, err := st.Save("limited", "run", config.GetPreset("limited"), sampleResult()); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "not-a-run"), 0755); err != nil {
		t.Fatal(err)
	}

	runs, err = st.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].ForceLimit == nil || *runs[0].ForceLimit != 50 {
		t.Errorf("unexpected runs %+v", runs)
	}
}

func TestLoadMissingRun(t *testing.T) {
	st := New(t.TempDir())
	if _, err := st.Load("nope"); err == nil {
		t.Error("expected error")
	}
	if _, err := st.LoadTrace("nope"); err == nil {
		t.Error("expected error")
	}
}

func TestExportJSON(t *testing.T) {
	st := New(t.TempDir())
	runID, err := st.Save("default", "simulate", config.DefaultConfig(), sampleResult())
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "out.json")
	if err := st.ExportJSON(runID, path); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var decoded struct {
		Run   RunMetadata `json:"run"`
		Trace struct {
			Forces map[string][]*float64 `json:"forces"`
		} `json:"trace"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded.Run.ID != runID {
		t.Errorf("run id %q", decoded.Run.ID)
	}
	if f := decoded.Trace.Forces["37"]; len(f) != 2 || f[1] != nil {
		t.Errorf("missing force should export as null, got %v", f)
	}
}

func TestSamplesMarshal(t *testing.T) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(Samples{1, math.NaN(), 0.5}); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(buf.String()); got != "[1,null,0.5]" {
		t.Errorf("got %s", got)
	}
}
