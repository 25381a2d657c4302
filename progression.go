package phonoloop

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

type (
	// Policy picks which harmony of a chord is sung on each beat.
	Policy int

	// Beat is one slot of the melody. Duration is zero until the caller knows
	// the tempo.
	Beat struct {
		Frequency int
		Duration  time.Duration
	}

	// Timeline is the melody in playback order, one Beat per beat slot.
	Timeline []Beat
)

const (
	// Alternating toggles between the root and the third, the toggle
	// carrying over chord boundaries.
	Alternating Policy = iota
	// Trinote sings root, fifth, root, third in every 4 beat measure.
	Trinote
	// Random picks uniformly from root, fifth, root, third on every beat.
	Random
	// AlternatingFifth toggles between the root and the fifth.
	AlternatingFifth
)

var policyNames = map[Policy]string{
	Alternating:      "alternating",
	Trinote:          "trinote",
	Random:           "random",
	AlternatingFifth: "alternating-fifth",
}

// trinotePattern is also the pool of the random policy, so the root is
// picked twice as often as the others.
var trinotePattern = [4]int{0, 2, 0, 1}

func (p Policy) String() string {
	if name, ok := policyNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// ParsePolicy accepts the names returned by Policy.String.
func ParsePolicy(s string) (Policy, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for p, n := range policyNames {
		if n == name {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
}

func (p Policy) MarshalText() ([]byte, error) {
	if _, ok := policyNames[p]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPolicy, int(p))
	}
	return []byte(p.String()), nil
}

func (p *Policy) UnmarshalText(text []byte) error {
	v, err := ParsePolicy(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Expand resolves every chord and emits beatsPerMeasure beats per chord,
// choosing the harmony of each beat by policy. The seed only matters for the
// Random policy. The first chord that fails to resolve aborts the expansion.
func (r *Resolver) Expand(chords []string, beatsPerMeasure int, policy Policy, seed int64) (Timeline, error) {
	if beatsPerMeasure <= 0 {
		return nil, fmt.Errorf("%w: %d beats per measure", ErrUnsupportedMeasure, beatsPerMeasure)
	}
	if _, ok := mulBeats(len(chords), beatsPerMeasure); !ok {
		return nil, tooManyBeats()
	}
	var pick func(beat int) int
	switch policy {
	case Alternating, AlternatingFifth:
		other := 1
		if policy == AlternatingFifth {
			other = 2
		}
		blinker := false
		pick = func(int) int {
			index := 0
			if blinker {
				index = other
			}
			blinker = !blinker
			return index
		}
	case Trinote:
		if beatsPerMeasure != len(trinotePattern) {
			return nil, fmt.Errorf("%w: trinote needs %d beats per measure, got %d", ErrUnsupportedMeasure, len(trinotePattern), beatsPerMeasure)
		}
		pick = func(beat int) int { return trinotePattern[beat] }
	case Random:
		rnd := rand.New(rand.NewSource(seed))
		pick = func(int) int { return trinotePattern[rnd.Intn(len(trinotePattern))] }
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownPolicy, policy)
	}
	ret := make(Timeline, 0, len(chords)*beatsPerMeasure)
	for i, token := range chords {
		harmonies, err := r.ChordHarmonies(token)
		if err != nil {
			return nil, fmt.Errorf("chord #%d: %w", i, err)
		}
		for beat := 0; beat < beatsPerMeasure; beat++ {
			ret = append(ret, Beat{Frequency: harmonies[pick(beat)]})
		}
	}
	return ret, nil
}

// Repeat returns the timeline played n times.
func (t Timeline) Repeat(n int) Timeline {
	if n <= 0 {
		return Timeline{}
	}
	ret := make(Timeline, 0, len(t)*n)
	for i := 0; i < n; i++ {
		ret = append(ret, t...)
	}
	return ret
}

// WithDuration returns a copy where every beat lasts d.
func (t Timeline) WithDuration(d time.Duration) Timeline {
	ret := make(Timeline, len(t))
	for i, b := range t {
		ret[i] = Beat{Frequency: b.Frequency, Duration: d}
	}
	return ret
}

func (t Timeline) Frequencies() []int {
	ret := make([]int, len(t))
	for i, b := range t {
		ret[i] = b.Frequency
	}
	return ret
}

// Duration is the total length of the timeline.
func (t Timeline) Duration() time.Duration {
	var d time.Duration
	for _, b := range t {
		d += b.Duration
	}
	return d
}
