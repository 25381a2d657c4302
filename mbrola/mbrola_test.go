package mbrola_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vsariola/phonoloop"
	"github.com/vsariola/phonoloop/mbrola"
)

func TestPho(t *testing.T) {
	phonemes := []phonoloop.Phoneme{
		{Symbol: "w", Duration: 600 * time.Millisecond, Pitch: []phonoloop.PitchPoint{{Position: 0, Frequency: 220}, {Position: 100, Frequency: 220}}},
		{Symbol: "_", Duration: 50 * time.Millisecond},
	}
	want := "w 600 0 220 100 220\n_ 50\n"
	if got := mbrola.Pho(phonemes); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestSynthesizeErrors(t *testing.T) {
	var tests = []struct {
		synth    mbrola.Synthesizer
		phonemes []phonoloop.Phoneme
	}{
		{mbrola.Synthesizer{}, nil},
		{mbrola.Synthesizer{Voice: "fr3"}, []phonoloop.Phoneme{{Symbol: "a b"}}},
		{mbrola.Synthesizer{Voice: "fr3", Command: "phonoloop-no-such-mbrola"}, []phonoloop.Phoneme{{Symbol: "a", Duration: time.Second}}},
	}
	for i, tt := range tests {
		if _, err := tt.synth.Synthesize(context.Background(), tt.phonemes); !errors.Is(err, phonoloop.ErrExternalTool) {
			t.Fatalf("case %d: got %v, want ErrExternalTool", i, err)
		}
	}
}
