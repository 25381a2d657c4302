// Package midifile exports a loop timeline as a standard MIDI file, so the
// melody can be reused in a sequencer.
package midifile

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/vsariola/phonoloop"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

const (
	TicksPerBeat = 960
	Channel      = 0
	Velocity     = 100
)

// Key returns the nearest MIDI key of a frequency, clamped to 0..127.
func Key(frequency int) uint8 {
	if frequency <= 0 {
		return 0
	}
	k := math.Round(69 + 12*math.Log2(float64(frequency)/440))
	return uint8(math.Max(0, math.Min(127, k)))
}

// Write writes t as a two track SMF: a tempo track with the meter and a
// note track with one note per beat. The tempo comes from the first beat.
func Write(w io.Writer, t phonoloop.Timeline, beatsPerMeasure int) error {
	if beatsPerMeasure <= 0 || beatsPerMeasure > 255 {
		return fmt.Errorf("%w: %d beats per measure", phonoloop.ErrUnsupportedMeasure, beatsPerMeasure)
	}
	beat := time.Minute / 120
	if len(t) > 0 {
		beat = t[0].Duration
	}
	if beat <= 0 {
		return fmt.Errorf("beat duration %v is not positive", beat)
	}
	sm := smf.New()
	sm.TimeFormat = smf.MetricTicks(TicksPerBeat)

	var tempo smf.Track
	tempo.Add(0, smf.MetaMeter(uint8(beatsPerMeasure), 4))
	tempo.Add(0, smf.MetaTempo(float64(time.Minute)/float64(beat)))
	tempo.Close(0)
	if err := sm.Add(tempo); err != nil {
		return fmt.Errorf("could not add tempo track: %w", err)
	}

	var notes smf.Track
	for _, b := range t {
		ticks := uint32(math.Round(float64(b.Duration) * TicksPerBeat / float64(beat)))
		if ticks == 0 {
			continue
		}
		key := Key(b.Frequency)
		notes.Add(0, midi.NoteOn(Channel, key, Velocity))
		notes.Add(ticks, midi.NoteOff(Channel, key))
	}
	notes.Close(0)
	if err := sm.Add(notes); err != nil {
		return fmt.Errorf("could not add note track: %w", err)
	}
	if _, err := sm.WriteTo(w); err != nil {
		return fmt.Errorf("could not write midi file: %w", err)
	}
	return nil
}
