package formant

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/vsariola/phonoloop"
)

func TestSynthesize(t *testing.T) {
	phonemes := phonoloop.Phonemes(phonoloop.Timeline{
		{Frequency: 220, Duration: 100 * time.Millisecond},
		{Frequency: 330, Duration: 50 * time.Millisecond},
	}, "a")
	wave, err := Synthesizer{}.Synthesize(context.Background(), phonemes)
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	b, err := phonoloop.DecodePCM(wave)
	if err != nil {
		t.Fatalf("DecodePCM failed: %v", err)
	}
	if b.SampleRate != phonoloop.DefaultSampleRate || b.Len() != 2400 {
		t.Fatalf("got %d samples at %d Hz", b.Len(), b.SampleRate)
	}
	var peak float64
	for _, v := range b.Samples {
		peak = math.Max(peak, math.Abs(float64(v)))
	}
	if peak < 0.05 || peak > 0.5001 {
		t.Fatalf("peak %v out of range", peak)
	}
	if b.Samples[0] != 0 {
		t.Fatalf("attack should start from silence, got %v", b.Samples[0])
	}
}

func TestSynthesizeUnknownVowel(t *testing.T) {
	_, err := Synthesizer{}.Synthesize(context.Background(), []phonoloop.Phoneme{{Symbol: "k", Duration: time.Second}})
	if !errors.Is(err, phonoloop.ErrExternalTool) {
		t.Fatalf("got %v, want ErrExternalTool", err)
	}
}

func TestSynthesizeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Synthesizer{}.Synthesize(ctx, []phonoloop.Phoneme{{Symbol: "a", Duration: time.Second}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}

func TestPitchAt(t *testing.T) {
	points := []phonoloop.PitchPoint{{Position: 0, Frequency: 100}, {Position: 50, Frequency: 200}, {Position: 100, Frequency: 200}}
	var tests = []struct {
		pos, want float64
	}{{0, 100}, {25, 150}, {50, 200}, {75, 200}, {120, 200}}
	for _, tt := range tests {
		if got := pitchAt(points, tt.pos); got != tt.want {
			t.Fatalf("pitchAt(%v) = %v, want %v", tt.pos, got, tt.want)
		}
	}
	if pitchAt(nil, 10) != 0 {
		t.Fatalf("empty contour should be silent")
	}
}

func TestEnvelope(t *testing.T) {
	env := envelope(1000, 16000)
	if env[0] != 0 || env[999] != 0 || env[500] != 1 {
		t.Fatalf("unexpected envelope %v %v %v", env[0], env[500], env[999])
	}
	short := envelope(10, 16000)
	if short[0] != 0 || short[9] != 0 {
		t.Fatalf("short envelope should still fade in and out: %v", short)
	}
}

func TestSymbols(t *testing.T) {
	if len(Symbols()) != len(Vowels) {
		t.Fatalf("got %d symbols", len(Symbols()))
	}
}
