package phonoloop

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed data/pitches.json data/progressions.yml
var assets embed.FS

const defaultPitchPath = "data/pitches.json"

type (
	// PitchTable maps "<Note><Octave>" keys, e.g. "A4", to a fundamental
	// frequency in Hz. It is immutable once constructed.
	PitchTable struct {
		freqs map[string]float64
	}

	// PitchLoader provides the pitch table, decoupling the resolver from
	// where the table is stored.
	PitchLoader interface {
		LoadPitches() (*PitchTable, error)
	}

	// FSPitchLoader reads a JSON or YAML pitch table from a file system.
	FSPitchLoader struct {
		FS   fs.FS
		Path string
	}
)

// DefaultPitchLoader returns a loader for the embedded 12-TET table (A4 = 440
// Hz, octaves 0 to 8).
func DefaultPitchLoader() PitchLoader {
	return FSPitchLoader{FS: assets, Path: defaultPitchPath}
}

func (l FSPitchLoader) LoadPitches() (*PitchTable, error) {
	data, err := fs.ReadFile(l.FS, l.Path)
	if err != nil {
		return nil, fmt.Errorf("could not read pitch table %v: %w", l.Path, err)
	}
	table, err := ParsePitchTable(data)
	if err != nil {
		return nil, fmt.Errorf("could not parse pitch table %v: %w", l.Path, err)
	}
	return table, nil
}

// ParsePitchTable parses a flat key-value document, trying JSON first and
// YAML second.
func ParsePitchTable(data []byte) (*PitchTable, error) {
	var freqs map[string]float64
	if errJSON := json.Unmarshal(data, &freqs); errJSON != nil {
		freqs = nil
		if errYaml := yaml.Unmarshal(data, &freqs); errYaml != nil {
			return nil, fmt.Errorf("the table could not be parsed as .json (%v) or .yml (%v)", errJSON, errYaml)
		}
	}
	return NewPitchTable(freqs)
}

// NewPitchTable copies freqs into a new table. Keys must end with an octave
// digit and frequencies must be positive.
func NewPitchTable(freqs map[string]float64) (*PitchTable, error) {
	t := &PitchTable{freqs: make(map[string]float64, len(freqs))}
	for k, v := range freqs {
		if len(k) < 2 || k[len(k)-1] < '0' || k[len(k)-1] > '9' {
			return nil, fmt.Errorf("pitch key %q does not end with an octave digit", k)
		}
		if v <= 0 {
			return nil, fmt.Errorf("pitch %q has non-positive frequency %v", k, v)
		}
		t.freqs[k] = v
	}
	return t, nil
}

// Frequency returns the fundamental of note at octave.
func (t *PitchTable) Frequency(note string, octave int) (float64, bool) {
	f, ok := t.freqs[note+strconv.Itoa(octave)]
	return f, ok
}

func (t *PitchTable) Len() int {
	return len(t.freqs)
}

// Keys returns the table keys sorted by frequency, then by name.
func (t *PitchTable) Keys() []string {
	keys := make([]string, 0, len(t.freqs))
	for k := range t.freqs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if t.freqs[keys[i]] != t.freqs[keys[j]] {
			return t.freqs[keys[i]] < t.freqs[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}
