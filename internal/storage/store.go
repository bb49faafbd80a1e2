// Package storage persists simulation runs under a data directory:
// one directory per run with JSON metadata and per-probe intensity CSV.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ojholm/temsim/internal/scheduler"
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
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Device    string    `json:"device"`
	Precision string    `json:"precision"`
	Library   string    `json:"fft_library"`
	EnergyKeV float64   `json:"energy_kev"`
	GridH     int       `json:"grid_h"`
	GridW     int       `json:"grid_w"`
	Probes    int       `json:"probes"`
	Phonons   int       `json:"phonons"`
	Seed      int64     `json:"seed"`
	Slices    int       `json:"slices"`
	Elapsed   float64   `json:"elapsed_s"`
	Warnings  []string  `json:"warnings,omitempty"`
}

// Save writes a run directory with metadata and the phonon-averaged
// exit intensity of each probe position.
func (s *Store) Save(meta RunMetadata, res *scheduler.Result) (string, error) {
	if meta.ID == "" {
		meta.ID = fmt.Sprintf("run_%d", time.Now().Unix())
	}
	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()
	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	for probe := 0; probe < res.Probes; probe++ {
		if err := s.writeIntensity(runDir, probe, res); err != nil {
			return "", err
		}
	}
	return meta.ID, nil
}

// writeIntensity stores the phonon average of |psi|^2 for one probe as
// an H-row, W-column CSV.
func (s *Store) writeIntensity(runDir string, probe int, res *scheduler.Result) error {
	mean := make([]float64, res.H*res.W)
	for p := 0; p < res.Phonons; p++ {
		for i, v := range res.Intensity(probe, p) {
			mean[i] += v
		}
	}
	for i := range mean {
		mean[i] /= float64(res.Phonons)
	}

	f, err := os.Create(filepath.Join(runDir, intensityName(probe)))
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()
	row := make([]string, res.W)
	for y := 0; y < res.H; y++ {
		for x := 0; x < res.W; x++ {
			row[x] = strconv.FormatFloat(mean[y*res.W+x], 'g', -1, 64)
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func intensityName(probe int) string {
	return fmt.Sprintf("intensity_p%03d.csv", probe)
}

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
		data, err := os.ReadFile(filepath.Join(s.baseDir, entry.Name(), "metadata.json"))
		if err != nil {
			continue
		}
		var meta RunMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}
		runs = append(runs, meta)
	}
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

// LoadIntensity reads one probe's stored intensity back as a flat
// row-major field.
func (s *Store) LoadIntensity(runID string, probe int) ([]float64, int, int, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, intensityName(probe)))
	if err != nil {
		return nil, 0, 0, err
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, 0, 0, err
	}
	if len(rows) == 0 {
		return nil, 0, 0, fmt.Errorf("storage: empty intensity file for run %s probe %d", runID, probe)
	}
	h, w := len(rows), len(rows[0])
	out := make([]float64, 0, h*w)
	for _, row := range rows {
		for _, cell := range row {
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, 0, 0, err
			}
			out = append(out, v)
		}
	}
	return out, h, w, nil
}
