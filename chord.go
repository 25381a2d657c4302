package phonoloop

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

type (
	// Quality is the flavour of a triad.
	Quality int

	// Chord is a parsed chord token such as "Am4": root note, quality and
	// octave.
	Chord struct {
		Root    string
		Quality Quality
		Octave  int
	}

	// HarmonySet holds the three characteristic frequencies of a chord in Hz:
	// root, third and the fifth-equivalent.
	HarmonySet [3]int

	// Resolver turns chord tokens into frequencies using a pitch table.
	Resolver struct {
		pitches *PitchTable
	}
)

const (
	Major Quality = iota
	Minor
)

// offsets applied as freq * (1 + offset/12); these are not true semitone
// ratios, but they define the sound of the loops.
var qualityRatios = map[Quality][3]int{
	Major: {0, 3, 6},
	Minor: {0, 2, 6},
}

func (q Quality) String() string {
	switch q {
	case Major:
		return "major"
	case Minor:
		return "minor"
	}
	return fmt.Sprintf("Quality(%d)", int(q))
}

// Token builds the compact token for the chord; Resolve(c.Token()) gives c
// back.
func (c Chord) Token() string {
	var sb strings.Builder
	sb.WriteString(c.Root)
	if c.Quality == Minor {
		sb.WriteByte('m')
	}
	sb.WriteString(strconv.Itoa(c.Octave))
	return sb.String()
}

func (c Chord) String() string {
	return c.Token()
}

func NewResolver(pitches *PitchTable) *Resolver {
	return &Resolver{pitches: pitches}
}

// LoadResolver builds a Resolver from the table given by loader.
func LoadResolver(loader PitchLoader) (*Resolver, error) {
	pitches, err := loader.LoadPitches()
	if err != nil {
		return nil, err
	}
	return NewResolver(pitches), nil
}

// Resolve parses tokens of the form <Note>[m]<Octave>, e.g. "F2" or "Am4".
// The note must exist in the pitch table at that octave.
func (r *Resolver) Resolve(token string) (Chord, error) {
	if len(token) < 2 {
		return Chord{}, fmt.Errorf("%w %q: too short", ErrMalformedChord, token)
	}
	last := token[len(token)-1]
	if last < '0' || last > '9' {
		return Chord{}, fmt.Errorf("%w %q: missing octave digit", ErrMalformedChord, token)
	}
	c := Chord{Octave: int(last - '0'), Quality: Major}
	c.Root = token[:len(token)-1]
	if len(c.Root) > 1 && strings.HasSuffix(c.Root, "m") {
		c.Root = c.Root[:len(c.Root)-1]
		c.Quality = Minor
	}
	if _, ok := r.pitches.Frequency(c.Root, c.Octave); !ok {
		return Chord{}, fmt.Errorf("%w %q: note %v not in pitch table at octave %d", ErrMalformedChord, token, c.Root, c.Octave)
	}
	return c, nil
}

// Harmonies returns round(f * (1 + r/12)) for each ratio r of the chord
// quality, f being the fundamental of the root.
func (r *Resolver) Harmonies(c Chord) (HarmonySet, error) {
	fundamental, ok := r.pitches.Frequency(c.Root, c.Octave)
	if !ok {
		return HarmonySet{}, fmt.Errorf("%w: %v%d", ErrUnknownNote, c.Root, c.Octave)
	}
	ratios, ok := qualityRatios[c.Quality]
	if !ok {
		return HarmonySet{}, fmt.Errorf("%w: chord %v has quality %v", ErrMalformedChord, c, c.Quality)
	}
	var ret HarmonySet
	for i, ratio := range ratios {
		ret[i] = int(math.RoundToEven(fundamental * (1 + float64(ratio)/12)))
	}
	return ret, nil
}

// ChordHarmonies resolves the token and returns its harmonies.
func (r *Resolver) ChordHarmonies(token string) (HarmonySet, error) {
	c, err := r.Resolve(token)
	if err != nil {
		return HarmonySet{}, err
	}
	return r.Harmonies(c)
}
