package storage

import (
	"encoding/json"
	"io"
	"os"
)

type ExportData struct {
	Run   *RunMetadata `json:"run"`
	Trace *Trace       `json:"trace"`
}

// ExportJSON writes a stored run as one JSON document. An empty path
// writes to stdout.
func (s *Store) ExportJSON(runID, path string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	trace, err := s.LoadTrace(runID)
	if err != nil {
		return err
	}

	if path == "" {
		return WriteJSON(os.Stdout, &ExportData{Run: meta, Trace: trace})
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteJSON(file, &ExportData{Run: meta, Trace: trace})
}

func WriteJSON(w io.Writer, data *ExportData) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
