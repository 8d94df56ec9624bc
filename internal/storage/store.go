package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/motorctl/internal/config"
	"github.com/san-kum/motorctl/internal/dynamo"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID         string                               `json:"id"`
	Name       string                               `json:"name"`
	Mode       string                               `json:"mode"`
	Timestamp  time.Time                            `json:"timestamp"`
	MotorIDs   []int                                `json:"motor_ids"`
	Dt         float64                              `json:"dt"`
	Gain       float64                              `json:"gain"`
	ForceLimit *float64                             `json:"force_limit,omitempty"`
	Duration   float64                              `json:"duration"`
	Ticks      int                                  `json:"ticks"`
	Final      map[dynamo.MotorID]dynamo.MotorState `json:"final"`
	Metrics    map[string]float64                   `json:"metrics"`
	Faults     int                                  `json:"faults"`
	Dropped    uint64                               `json:"dropped"`
	Discards   uint64                               `json:"discards"`
}

// Save writes metadata.json and trace.csv for one run and returns its id.
// mode names how the run was produced, "simulate" or "run".
func (s *Store) Save(name, mode string, cfg *config.Config, result *dynamo.Result) (string, error) {
	now := time.Now()
	runID := fmt.Sprintf("%s_%d", name, now.UnixMilli())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:         runID,
		Name:       name,
		Mode:       mode,
		Timestamp:  now,
		MotorIDs:   cfg.MotorIDs,
		Dt:         cfg.Dt,
		Gain:       cfg.Gain,
		ForceLimit: cfg.ForceLimit,
		Duration:   cfg.Duration,
		Ticks:      len(result.Records),
		Final:      result.Final.Clone().States,
		Metrics:    result.Metrics,
		Faults:     len(result.Faults),
		Dropped:    result.Dropped,
		Discards:   result.Discards,
	}

	if err := writeJSON(filepath.Join(runDir, "metadata.json"), meta); err != nil {
		return "", err
	}
	if err := writeTrace(filepath.Join(runDir, "trace.csv"), cfg.Motors(), result.Records); err != nil {
		return "", err
	}
	return runID, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// trace.csv has one row per applied tick: the snapshot the command was
// computed from, the force per motor, then the safety report. A motor
// without a force that tick has an empty force cell.
func writeTrace(path string, motors dynamo.MotorSet, records []dynamo.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)

	header := []string{"tick", "time"}
	for _, id := range motors {
		header = append(header, fmt.Sprintf("p%d", id), fmt.Sprintf("v%d", id), fmt.Sprintf("f%d", id))
	}
	header = append(header, "norm", "raw_norm", "status")
	if err := w.Write(header); err != nil {
		return err
	}

	for _, rec := range records {
		row := []string{
			strconv.FormatUint(rec.Snapshot.Tick, 10),
			formatFloat(rec.Snapshot.Time),
		}
		for _, id := range motors {
			st := rec.Snapshot.States[id]
			force := ""
			if v, ok := rec.Command.Forces.Get(id); ok {
				force = formatFloat(v)
			}
			row = append(row, formatFloat(st.Position), formatFloat(st.Velocity), force)
		}
		row = append(row,
			formatFloat(rec.Command.Safety.Norm),
			formatFloat(rec.Command.Safety.RawNorm),
			rec.Command.Safety.Status.String(),
		)
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// List returns the stored runs, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.After(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}
