package web

import (
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Model is a single evaluated model row in the results table.
type Model struct {
	Name      string  `yaml:"name" json:"name"`
	Version   string  `yaml:"version" json:"version"`
	Status    string  `yaml:"status" json:"status"` // ready, training, failed
	Accuracy  float64 `yaml:"accuracy" json:"accuracy"`
	LatencyMs float64 `yaml:"latency_ms" json:"latency_ms"`
}

// AccuracyPct returns accuracy as a percentage for display.
func (m Model) AccuracyPct() float64 { return m.Accuracy * 100 }

// Snapshot is the full contents of the results file.
type Snapshot struct {
	Generated time.Time `yaml:"generated" json:"generated"`
	Models    []Model   `yaml:"models" json:"models"`
}

// Summary holds the aggregate numbers shown on the dashboard widgets.
// AvgAccuracy is a percentage, models store accuracy as a 0..1 fraction.
type Summary struct {
	Total       int
	Ready       int
	AvgAccuracy float64
	AvgLatency  float64
}

// Store loads model evaluation results from a YAML file and serves them
// to handlers. Reload swaps the snapshot atomically so readers never see
// a partially parsed file.
type Store struct {
	path string

	mu   sync.RWMutex
	snap Snapshot
}

// NewStore creates a store for the given results file and performs the
// initial load.
func NewStore(path string) (*Store, error) {
	s := &Store{path: path}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the results file path the store reads from.
func (s *Store) Path() string { return s.path }

// Reload re-reads the results file and replaces the current snapshot.
// on parse failure the previous snapshot is kept.
func (s *Store) Reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read results file: %w", err)
	}

	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("parse results file %s: %w", s.path, err)
	}

	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
	return nil
}

// Snapshot returns a copy of the current results.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp := s.snap
	cp.Models = make([]Model, len(s.snap.Models))
	copy(cp.Models, s.snap.Models)
	return cp
}

// Summary computes the dashboard widget aggregates from the current snapshot.
func (s *Store) Summary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum := Summary{Total: len(s.snap.Models)}
	if sum.Total == 0 {
		return sum
	}

	var accTotal, latTotal float64
	for _, m := range s.snap.Models {
		if m.Status == "ready" {
			sum.Ready++
		}
		accTotal += m.Accuracy
		latTotal += m.LatencyMs
	}
	sum.AvgAccuracy = accTotal / float64(sum.Total) * 100
	sum.AvgLatency = latTotal / float64(sum.Total)
	return sum
}
