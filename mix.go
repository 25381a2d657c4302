package phonoloop

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/viterin/vek/vek32"
)

type (
	// Alignment tells where the shorter track goes relative to the longer
	// one. The zero value is not a valid alignment.
	Alignment int

	// OffsetMode is either a named alignment or, when Align is AlignOffset,
	// an explicit start position of the shorter track in samples.
	OffsetMode struct {
		Align   Alignment
		Samples int
	}
)

const (
	AlignLeft Alignment = iota + 1
	AlignRight
	AlignCenter
	AlignOffset
)

var alignmentNames = map[Alignment]string{
	AlignLeft:   "left",
	AlignRight:  "right",
	AlignCenter: "center",
}

func (a Alignment) String() string {
	if a == AlignOffset {
		return "offset"
	}
	if name, ok := alignmentNames[a]; ok {
		return name
	}
	return fmt.Sprintf("Alignment(%d)", int(a))
}

// Offset places the shorter track k samples after the start of the longer.
func Offset(k int) OffsetMode {
	return OffsetMode{Align: AlignOffset, Samples: k}
}

// Align returns the named alignment mode.
func Align(a Alignment) OffsetMode {
	return OffsetMode{Align: a}
}

// ParseOffsetMode accepts "left", "right", "center" or a sample offset.
func ParseOffsetMode(s string) (OffsetMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for a, name := range alignmentNames {
		if name == s {
			return Align(a), nil
		}
	}
	k, err := strconv.Atoi(s)
	if err != nil {
		return OffsetMode{}, fmt.Errorf("%w: %q is neither left, right, center nor a sample offset", ErrInvalidMode, s)
	}
	if k < 0 {
		return OffsetMode{}, fmt.Errorf("%w: %d", ErrInvalidOffset, k)
	}
	return Offset(k), nil
}

func (m OffsetMode) String() string {
	if m.Align == AlignOffset {
		return strconv.Itoa(m.Samples)
	}
	return m.Align.String()
}

func (m OffsetMode) MarshalText() ([]byte, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}
	return []byte(m.String()), nil
}

func (m *OffsetMode) UnmarshalText(text []byte) error {
	v, err := ParseOffsetMode(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

func (m OffsetMode) validate() error {
	switch m.Align {
	case AlignLeft, AlignRight, AlignCenter:
		return nil
	case AlignOffset:
		if m.Samples < 0 {
			return fmt.Errorf("%w: %d", ErrInvalidOffset, m.Samples)
		}
		return nil
	}
	return fmt.Errorf("%w: %v", ErrInvalidMode, m.Align)
}

// Mix zero-pads the shorter of a and b according to mode and sums the two
// tracks sample by sample. Both buffers must have the same sample rate.
//
// With an explicit offset k that pushes the shorter track past the end of the
// longer one, the longer track is extended with zeros as well, so the result
// has k+len(short) samples.
func Mix(a, b SampleBuffer, mode OffsetMode) (SampleBuffer, error) {
	if a.SampleRate != b.SampleRate {
		return SampleBuffer{}, fmt.Errorf("%w: cannot mix %d Hz with %d Hz", ErrRateMismatch, a.SampleRate, b.SampleRate)
	}
	if err := mode.validate(); err != nil {
		return SampleBuffer{}, err
	}
	short, long := b.Samples, a.Samples
	if len(a.Samples) < len(b.Samples) {
		short, long = a.Samples, b.Samples
	}
	diff := len(long) - len(short)
	var before, after int
	switch mode.Align {
	case AlignOffset:
		before = mode.Samples
		if mode.Samples+len(short) <= len(long) {
			after = diff - mode.Samples
		} else {
			long = pad(long, 0, mode.Samples-diff)
		}
	case AlignLeft:
		after = diff
	case AlignRight:
		before = diff
	case AlignCenter:
		before = diff / 2
		after = diff - before
	}
	padded := pad(short, before, after)
	if len(padded) == 0 {
		return SampleBuffer{Samples: []float32{}, SampleRate: a.SampleRate}, nil
	}
	return SampleBuffer{Samples: vek32.Add(padded, long), SampleRate: a.SampleRate}, nil
}

// pad returns a new slice with before zeros, the samples and after zeros.
func pad(samples []float32, before, after int) []float32 {
	ret := make([]float32, before+len(samples)+after)
	copy(ret[before:], samples)
	return ret
}
