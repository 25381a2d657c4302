package phonoloop

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
)

type (
	// PitchPoint sets the pitch at Position percent of a phoneme's duration.
	PitchPoint struct {
		Position  int
		Frequency int
	}

	// Phoneme is one sung sound handed to a Synthesizer.
	Phoneme struct {
		Symbol   string
		Duration time.Duration
		Pitch    []PitchPoint
	}

	// Synthesizer renders phonemes into an encoded wave.
	Synthesizer interface {
		Synthesize(ctx context.Context, phonemes []Phoneme) ([]byte, error)
	}

	// Player plays an encoded wave on an audio device.
	Player interface {
		Load(r io.Reader) error
		Play() error
		Close() error
	}

	// Renderer runs the whole loop pipeline: chords to melody, melody to
	// voice, voice mixed with the percussion track.
	Renderer struct {
		Resolver  *Resolver
		Presets   Presets
		Synth     Synthesizer
		Resampler Resampler
		// ReadFile loads the percussion track; os.ReadFile when nil.
		ReadFile func(name string) ([]byte, error)
		// Logger receives progress messages; nothing is logged when nil.
		Logger *log.Logger
	}

	// Loop is a rendered loop.
	Loop struct {
		ID           uuid.UUID
		Config       Config
		BeatDuration time.Duration
		Timeline     Timeline
		Wave         []byte
	}
)

// NewRenderer returns a Renderer using the embedded pitch table and presets.
func NewRenderer(synth Synthesizer, resampler Resampler, logger *log.Logger) (*Renderer, error) {
	resolver, err := LoadResolver(DefaultPitchLoader())
	if err != nil {
		return nil, err
	}
	presets, err := DefaultPresets()
	if err != nil {
		return nil, err
	}
	return &Renderer{
		Resolver:  resolver,
		Presets:   presets,
		Synth:     synth,
		Resampler: resampler,
		Logger:    logger,
	}, nil
}

// Sections expands every section of cfg once, without repeats and without
// durations.
func (r *Renderer) Sections(cfg Config) ([]Timeline, error) {
	seed := time.Now().UnixNano()
	if cfg.Seed != nil {
		seed = *cfg.Seed
	}
	ret := make([]Timeline, len(cfg.Sections))
	for i, s := range cfg.Sections {
		tokens, err := s.Tokens(r.Presets)
		if err != nil {
			return nil, fmt.Errorf("section #%d: %w", i, err)
		}
		policy := cfg.Policy
		if s.Policy != nil {
			policy = *s.Policy
		}
		t, err := r.Resolver.Expand(tokens, cfg.BeatsPerMeasure, policy, seed+int64(i))
		if err != nil {
			return nil, fmt.Errorf("section #%d: %w", i, err)
		}
		ret[i] = t
	}
	return ret, nil
}

// Arrange returns the melody of the whole loop: each section repeated as
// configured, and the sequence of sections repeated Loops times.
func (r *Renderer) Arrange(cfg Config) (Timeline, error) {
	sections, err := r.Sections(cfg)
	if err != nil {
		return nil, err
	}
	return arrange(cfg, sections)
}

func arrange(cfg Config, sections []Timeline) (Timeline, error) {
	beats := make([]int, len(sections))
	for i, t := range sections {
		beats[i] = len(t)
	}
	if _, err := cfg.loopBeats(beats); err != nil {
		return nil, err
	}
	var once Timeline
	for i, t := range sections {
		once = append(once, t.Repeat(cfg.Sections[i].Repeat)...)
	}
	return once.Repeat(cfg.Loops), nil
}

// Phonemes turns every beat into a phoneme holding the beat's frequency.
func Phonemes(t Timeline, symbol string) []Phoneme {
	ret := make([]Phoneme, len(t))
	for i, b := range t {
		ret[i] = Phoneme{
			Symbol:   symbol,
			Duration: b.Duration,
			Pitch:    []PitchPoint{{Position: 0, Frequency: b.Frequency}, {Position: 100, Frequency: b.Frequency}},
		}
	}
	return ret
}

// Render validates cfg and renders the loop. Any failing stage aborts the
// render; nothing is retried.
func (r *Renderer) Render(ctx context.Context, cfg Config) (*Loop, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if r.Synth == nil {
		return nil, fmt.Errorf("%w: no synthesizer configured", ErrExternalTool)
	}
	loop := &Loop{ID: uuid.New(), Config: cfg}
	logger := r.runLogger(loop.ID)
	codec := Codec{TargetRate: cfg.SampleRate, Resampler: r.Resampler}

	loop.BeatDuration = time.Minute / time.Duration(cfg.Tempo)
	var percussion SampleBuffer
	if cfg.Percussion != nil {
		var err error
		if percussion, err = r.loadPercussion(ctx, codec, *cfg.Percussion); err != nil {
			return nil, err
		}
		perBeat := float64(percussion.Len()) / float64(percussion.SampleRate) / float64(cfg.Percussion.BeatCount)
		loop.BeatDuration = time.Duration(perBeat * float64(time.Second))
	}
	loop.BeatDuration = loop.BeatDuration.Truncate(time.Millisecond)
	if loop.BeatDuration <= 0 {
		return nil, fmt.Errorf("%w: beat duration %v is too short", ErrInvalidConfig, loop.BeatDuration)
	}
	logger.Printf("beat time: %dms", loop.BeatDuration.Milliseconds())
	logger.Printf("measure time: %dms", loop.BeatDuration.Milliseconds()*int64(cfg.BeatsPerMeasure))

	sections, err := r.Sections(cfg)
	if err != nil {
		return nil, err
	}
	for i, t := range sections {
		logger.Printf("section #%d frequencies: %v", i, t.Frequencies())
	}
	timeline, err := arrange(cfg, sections)
	if err != nil {
		return nil, err
	}
	loop.Timeline = timeline.WithDuration(loop.BeatDuration)
	if samples := loop.Timeline.Duration().Seconds() * float64(cfg.SampleRate); samples > MaxSamples {
		return nil, fmt.Errorf("%w: %v of audio is more than %d samples", ErrInvalidConfig, loop.Timeline.Duration(), MaxSamples)
	}
	var tiles int
	if cfg.Percussion != nil {
		beatCount := cfg.Percussion.BeatCount
		tiles = (len(loop.Timeline) + beatCount - 1) / beatCount
		if tiles > 0 && percussion.Len() > MaxSamples/tiles {
			return nil, fmt.Errorf("%w: percussion repeated %d times is more than %d samples", ErrInvalidConfig, tiles, MaxSamples)
		}
	}

	logger.Printf("rendering %d phonemes", len(loop.Timeline))
	voiceWave, err := r.Synth.Synthesize(ctx, Phonemes(loop.Timeline, cfg.Phoneme))
	if err != nil {
		return nil, fmt.Errorf("synthesis failed: %w", err)
	}
	voice, err := codec.Decode(ctx, voiceWave)
	if err != nil {
		return nil, fmt.Errorf("could not decode synthesized voice: %w", err)
	}
	if cfg.Percussion == nil {
		if loop.Wave, err = Encode(voice); err != nil {
			return nil, err
		}
		return loop, nil
	}

	mixed, err := Mix(percussion.Tile(tiles).Scale(*cfg.Percussion.Gain), voice.Scale(*cfg.VoiceGain), cfg.Align)
	if err != nil {
		return nil, fmt.Errorf("could not mix percussion and voice: %w", err)
	}
	logger.Printf("mixed %v of audio", mixed.Duration())
	if loop.Wave, err = Encode(mixed); err != nil {
		return nil, err
	}
	return loop, nil
}

func (r *Renderer) loadPercussion(ctx context.Context, codec Codec, p Percussion) (SampleBuffer, error) {
	readFile := r.ReadFile
	if readFile == nil {
		readFile = os.ReadFile
	}
	data, err := readFile(p.Path)
	if err != nil {
		return SampleBuffer{}, fmt.Errorf("%w: could not read percussion track: %w", ErrInvalidConfig, err)
	}
	buf, err := codec.Decode(ctx, data)
	if err != nil {
		return SampleBuffer{}, fmt.Errorf("percussion track %v: %w", p.Path, err)
	}
	if buf.Len() == 0 {
		return SampleBuffer{}, fmt.Errorf("%w: percussion track %v is empty", ErrInvalidConfig, p.Path)
	}
	return buf, nil
}

func (r *Renderer) runLogger(id uuid.UUID) *log.Logger {
	if r.Logger == nil {
		return log.New(io.Discard, "", 0)
	}
	return log.New(r.Logger.Writer(), fmt.Sprintf("%s[%s] ", r.Logger.Prefix(), id.String()[:8]), r.Logger.Flags())
}

// PlayWave plays an encoded wave to the end and closes the player.
func PlayWave(p Player, wave []byte) error {
	if err := p.Load(bytes.NewReader(wave)); err != nil {
		p.Close()
		return fmt.Errorf("could not load wave into player: %w", err)
	}
	if err := p.Play(); err != nil {
		p.Close()
		return fmt.Errorf("could not play wave: %w", err)
	}
	if err := p.Close(); err != nil {
		return fmt.Errorf("could not close player: %w", err)
	}
	return nil
}
