package storage

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/san-kum/motorctl/internal/dynamo"
)

// Samples is a column of values. NaN marks a tick without a value and is
// encoded as JSON null.
type Samples []float64

func (s Samples) MarshalJSON() ([]byte, error) {
	buf := []byte{'['}
	for i, v := range s {
		if i > 0 {
			buf = append(buf, ',')
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			buf = append(buf, "null"...)
			continue
		}
		buf = strconv.AppendFloat(buf, v, 'g', -1, 64)
	}
	return append(buf, ']'), nil
}

// Trace is trace.csv loaded column-wise. Forces hold NaN on ticks where a
// motor had no force.
type Trace struct {
	Motors     []dynamo.MotorID           `json:"motors"`
	Ticks      []uint64                   `json:"ticks"`
	Times      Samples                    `json:"times"`
	Positions  map[dynamo.MotorID]Samples `json:"positions"`
	Velocities map[dynamo.MotorID]Samples `json:"velocities"`
	Forces     map[dynamo.MotorID]Samples `json:"forces"`
	Norms      Samples                    `json:"norms"`
	RawNorms   Samples                    `json:"raw_norms"`
	Status     []string                   `json:"status"`
}

func (t *Trace) Len() int { return len(t.Ticks) }

func (s *Store) LoadTrace(runID string) (*Trace, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "trace.csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("trace %s: missing header", runID)
	}

	header := records[0]
	if len(header) < 5 || (len(header)-5)%3 != 0 {
		return nil, fmt.Errorf("trace %s: unexpected header %v", runID, header)
	}

	tr := &Trace{
		Positions:  make(map[dynamo.MotorID]Samples),
		Velocities: make(map[dynamo.MotorID]Samples),
		Forces:     make(map[dynamo.MotorID]Samples),
	}
	for i := 2; i < len(header)-3; i += 3 {
		id, err := strconv.Atoi(strings.TrimPrefix(header[i], "p"))
		if err != nil {
			return nil, fmt.Errorf("trace %s: bad column %q", runID, header[i])
		}
		tr.Motors = append(tr.Motors, dynamo.MotorID(id))
	}

	for line, row := range records[1:] {
		if len(row) != len(header) {
			return nil, fmt.Errorf("trace %s: row %d has %d fields", runID, line+1, len(row))
		}
		tick, err := strconv.ParseUint(row[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("trace %s: row %d: %w", runID, line+1, err)
		}
		tr.Ticks = append(tr.Ticks, tick)
		tr.Times = append(tr.Times, parseFloat(row[1]))

		for j, id := range tr.Motors {
			col := 2 + 3*j
			tr.Positions[id] = append(tr.Positions[id], parseFloat(row[col]))
			tr.Velocities[id] = append(tr.Velocities[id], parseFloat(row[col+1]))
			tr.Forces[id] = append(tr.Forces[id], parseFloat(row[col+2]))
		}

		n := len(row)
		tr.Norms = append(tr.Norms, parseFloat(row[n-3]))
		tr.RawNorms = append(tr.RawNorms, parseFloat(row[n-2]))
		tr.Status = append(tr.Status, row[n-1])
	}

	return tr, nil
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
