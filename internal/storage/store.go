package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const (
	metadataFile = "metadata.json"
	framesFile   = "frames.csv"
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

// SessionMetadata describes one recorded render session.
type SessionMetadata struct {
	ID         string             `json:"id"`
	Driver     string             `json:"driver"`
	Source     string             `json:"source"`
	TimePolicy string             `json:"time_policy"`
	RefreshHz  float64            `json:"refresh_hz"`
	Timestamp  time.Time          `json:"timestamp"`
	Duration   float64            `json:"duration"`
	Frames     int                `json:"frames"`
	Settings   string             `json:"settings,omitempty"`
	Metrics    map[string]float64 `json:"metrics"`
}

// Save writes meta and the frame times under a new session directory and
// returns the session id. meta.ID and meta.Timestamp are filled in.
func (s *Store) Save(meta SessionMetadata, times []float64) (string, error) {
	now := time.Now()
	meta.ID = fmt.Sprintf("%s_%s_%s", meta.Driver, now.Format("20060102-150405"), uuid.NewString()[:8])
	meta.Timestamp = now
	meta.Frames = len(times)

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, framesFile))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	if err := w.Write([]string{"frame", "time_ms", "interval_ms"}); err != nil {
		return "", err
	}
	for i, t := range times {
		interval := 0.0
		if i > 0 {
			interval = t - times[i-1]
		}
		row := []string{
			strconv.Itoa(i),
			strconv.FormatFloat(t, 'f', 6, 64),
			strconv.FormatFloat(interval, 'f', 6, 64),
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}

	return meta.ID, nil
}

// List returns the stored sessions, newest first. Directories without
// readable metadata are skipped.
func (s *Store) List() ([]SessionMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []SessionMetadata{}, nil
		}
		return nil, err
	}

	sessions := make([]SessionMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		sessions = append(sessions, *meta)
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].Timestamp.After(sessions[j].Timestamp)
	})
	return sessions, nil
}

func (s *Store) Load(id string) (*SessionMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, id, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta SessionMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadFrames returns the frame times of a session in milliseconds.
func (s *Store) LoadFrames(id string) ([]float64, error) {
	file, err := os.Open(filepath.Join(s.baseDir, id, framesFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []float64{}, nil
	}

	times := make([]float64, 0, len(records)-1)
	for _, record := range records[1:] {
		if len(record) < 2 {
			continue
		}
		t, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			continue
		}
		times = append(times, t)
	}
	return times, nil
}

type ExportData struct {
	SessionMetadata
	Times []float64 `json:"times"`
}

// Export writes a session and its frame times as a single JSON document.
func (s *Store) Export(id, path string) error {
	meta, err := s.Load(id)
	if err != nil {
		return err
	}
	times, err := s.LoadFrames(id)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(ExportData{SessionMetadata: *meta, Times: times})
}
