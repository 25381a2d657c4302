// Package formant is a small built-in vowel synthesizer. It renders each
// phoneme as a harmonic series whose partials are weighted by the formant
// peaks of the vowel, so loops can be rendered without mbrola installed.
package formant

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/viterin/vek/vek32"
	"github.com/vsariola/phonoloop"
)

type (
	// Vowel lists formant center frequencies in Hz with their relative
	// gains and bandwidths.
	Vowel struct {
		Formants   [4]float64
		Gains      [4]float64
		Bandwidths [4]float64
	}

	// Synthesizer implements phonoloop.Synthesizer for the vowels in Vowels.
	Synthesizer struct {
		// SampleRate of the produced wave; phonoloop.DefaultSampleRate when zero.
		SampleRate int
		// Gain is the peak level of a phoneme; 0.5 when zero.
		Gain float32
	}
)

var defaultGains = [4]float64{1, 0.7, 0.35, 0.2}
var defaultBandwidths = [4]float64{80, 90, 120, 150}

// f1-f3 from http://www.phon.ucl.ac.uk/home/wells/formants/table-2.htm, keyed
// by SAMPA symbol
var Vowels = map[string]Vowel{
	"a": {Formants: [4]float64{710, 1100, 2540, 3687}},
	"A": {Formants: [4]float64{677, 1083, 2340, 3557}},
	"e": {Formants: [4]float64{450, 2100, 2700, 3650}},
	"E": {Formants: [4]float64{569, 1965, 2636, 3677}},
	"i": {Formants: [4]float64{285, 2373, 3088, 3657}},
	"I": {Formants: [4]float64{356, 2098, 2696, 3618}},
	"o": {Formants: [4]float64{449, 737, 2635, 3384}},
	"O": {Formants: [4]float64{599, 891, 2605, 3486}},
	"u": {Formants: [4]float64{309, 939, 2320, 3357}},
	"U": {Formants: [4]float64{376, 950, 2440, 3400}},
	"w": {Formants: [4]float64{300, 700, 2300, 3300}},
	"@": {Formants: [4]float64{500, 1150, 1650, 3649}},
	"l": {Formants: [4]float64{300, 1225, 2950, 3500}},
}

const (
	attack         = 10 * time.Millisecond
	release        = 20 * time.Millisecond
	maxPartialFreq = 5000
)

var _ phonoloop.Synthesizer = Synthesizer{}

// Symbols lists the supported phoneme symbols.
func Symbols() []string {
	ret := make([]string, 0, len(Vowels))
	for k := range Vowels {
		ret = append(ret, k)
	}
	sort.Strings(ret)
	return ret
}

func (s Synthesizer) Synthesize(ctx context.Context, phonemes []phonoloop.Phoneme) ([]byte, error) {
	rate := s.SampleRate
	if rate == 0 {
		rate = phonoloop.DefaultSampleRate
	}
	gain := s.Gain
	if gain == 0 {
		gain = 0.5
	}
	var out []float32
	for i, p := range phonemes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, ok := Vowels[p.Symbol]
		if !ok {
			return nil, fmt.Errorf("%w: phoneme #%d: formant synthesizer has no vowel %q", phonoloop.ErrExternalTool, i, p.Symbol)
		}
		out = append(out, v.render(p, rate, gain)...)
	}
	return phonoloop.Encode(phonoloop.SampleBuffer{Samples: out, SampleRate: rate})
}

// render sums the partials of the pitch contour, each weighted by the
// formant envelope at the partial's frequency, and applies a linear
// attack/release envelope.
func (v Vowel) render(p phonoloop.Phoneme, rate int, gain float32) []float32 {
	n := int(p.Duration.Seconds() * float64(rate))
	if n <= 0 {
		return nil
	}
	f0 := make([]float64, n)
	phase := make([]float64, n)
	acc := 0.0
	maxF0 := 0.0
	for t := range f0 {
		f0[t] = pitchAt(p.Pitch, float64(t)*100/float64(n))
		phase[t] = acc
		acc += 2 * math.Pi * f0[t] / float64(rate)
		maxF0 = math.Max(maxF0, f0[t])
	}
	samples := make([]float32, n)
	if maxF0 <= 0 {
		return samples
	}
	nyquist := math.Min(float64(rate)/2, maxPartialFreq)
	partial := make([]float32, n)
	total := 0.0
	for k := 1; float64(k)*maxF0 < nyquist; k++ {
		amp := v.amplitude(float64(k)*f0[0]) / math.Sqrt(float64(k))
		for t := range partial {
			partial[t] = float32(amp * math.Sin(float64(k)*phase[t]))
		}
		vek32.Add_Inplace(samples, partial)
		total += amp
	}
	if total == 0 {
		return samples
	}
	vek32.Mul_Inplace(samples, envelope(n, rate))
	vek32.MulNumber_Inplace(samples, gain/float32(total))
	return samples
}

func (v Vowel) amplitude(freq float64) float64 {
	ret := 0.0
	for i, f := range v.Formants {
		g, b := v.Gains[i], v.Bandwidths[i]
		if g == 0 {
			g = defaultGains[i]
		}
		if b == 0 {
			b = defaultBandwidths[i]
		}
		d := (freq - f) / b
		ret += g / (1 + d*d)
	}
	return ret
}

// pitchAt interpolates the pitch contour linearly at pos percent.
func pitchAt(points []phonoloop.PitchPoint, pos float64) float64 {
	if len(points) == 0 {
		return 0
	}
	if pos <= float64(points[0].Position) {
		return float64(points[0].Frequency)
	}
	for i := 1; i < len(points); i++ {
		a, b := points[i-1], points[i]
		if pos <= float64(b.Position) {
			if b.Position == a.Position {
				return float64(b.Frequency)
			}
			w := (pos - float64(a.Position)) / float64(b.Position-a.Position)
			return float64(a.Frequency) + w*float64(b.Frequency-a.Frequency)
		}
	}
	return float64(points[len(points)-1].Frequency)
}

func envelope(n, rate int) []float32 {
	up := int(attack.Seconds() * float64(rate))
	down := int(release.Seconds() * float64(rate))
	if up+down > n {
		up, down = n/2, n-n/2
	}
	env := make([]float32, n)
	for t := range env {
		switch {
		case t < up:
			env[t] = float32(t) / float32(up)
		case t >= n-down:
			env[t] = float32(n-1-t) / float32(down)
		default:
			env[t] = 1
		}
	}
	return env
}
