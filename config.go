package phonoloop

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig"
	"gopkg.in/yaml.v3"
)

const (
	defaultName            = "loop"
	defaultTempo           = 100
	defaultBeatsPerMeasure = 4
	defaultPhoneme         = "a"
	defaultPercussionGain  = 0.6
	defaultVoiceGain       = 0.4
	defaultBeatCount       = 4
	defaultOutput          = "{{ .Name | snakecase }}.wav"
)

// Limits on the size of a rendered loop. Configs beyond them fail with
// ErrInvalidConfig before anything is allocated.
const (
	MaxBeats      = 1 << 16
	MaxSamples    = 1 << 26
	MaxSampleRate = 192000
)

type (
	// Config describes one loop: the chord sections, how they are sung and
	// the optional percussion track mixed under the voice. Zero values are
	// replaced by defaults in Validate.
	Config struct {
		Name            string      `yaml:"name,omitempty" json:"name,omitempty"`
		Tempo           int         `yaml:"tempo,omitempty" json:"tempo,omitempty"` // beats per minute, ignored with percussion
		BeatsPerMeasure int         `yaml:"beatsPerMeasure,omitempty" json:"beatsPerMeasure,omitempty"`
		Policy          Policy      `yaml:"policy" json:"policy"`
		Seed            *int64      `yaml:"seed,omitempty" json:"seed,omitempty"`
		Loops           int         `yaml:"loops,omitempty" json:"loops,omitempty"`
		Phoneme         string      `yaml:"phoneme,omitempty" json:"phoneme,omitempty"`
		SampleRate      int         `yaml:"sampleRate,omitempty" json:"sampleRate,omitempty"` // rate of the rendered wave
		Sections        []Section   `yaml:"sections" json:"sections"`
		Percussion      *Percussion `yaml:"percussion,omitempty" json:"percussion,omitempty"`
		VoiceGain       *float32    `yaml:"voiceGain,omitempty" json:"voiceGain,omitempty"` // applied when mixing with percussion
		Align           OffsetMode  `yaml:"align,omitempty" json:"align,omitempty"`
		Output          string      `yaml:"output,omitempty" json:"output,omitempty"`
	}

	// Section is a progression repeated Repeat times. The chords come either
	// from Chords or from a named preset played at Octave.
	Section struct {
		Chords []string `yaml:"chords,flow,omitempty" json:"chords,omitempty"`
		Preset string   `yaml:"preset,omitempty" json:"preset,omitempty"`
		Octave *int     `yaml:"octave,omitempty" json:"octave,omitempty"`
		Repeat int      `yaml:"repeat,omitempty" json:"repeat,omitempty"`
		Policy *Policy  `yaml:"policy,omitempty" json:"policy,omitempty"`
	}

	// Percussion is a pre-recorded loop of BeatCount beats. Its length sets
	// the beat duration of the whole loop.
	Percussion struct {
		Path      string   `yaml:"path" json:"path"`
		BeatCount int      `yaml:"beatCount,omitempty" json:"beatCount,omitempty"`
		Gain      *float32 `yaml:"gain,omitempty" json:"gain,omitempty"`
	}

	// Presets maps a preset name to chords without octaves, e.g. "Am".
	Presets map[string][]string
)

// ParseConfig decodes a .json or .yml loop description and validates it.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if errJSON := json.Unmarshal(data, &cfg); errJSON != nil {
		cfg = Config{}
		if errYaml := yaml.Unmarshal(data, &cfg); errYaml != nil {
			return Config{}, fmt.Errorf("the config could not be parsed as .json (%v) or .yml (%v)", errJSON, errYaml)
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate fills in defaults and checks the values.
func (c *Config) Validate() error {
	if c.Name == "" {
		c.Name = defaultName
	}
	if c.Tempo == 0 {
		c.Tempo = defaultTempo
	}
	if c.BeatsPerMeasure == 0 {
		c.BeatsPerMeasure = defaultBeatsPerMeasure
	}
	if c.Loops == 0 {
		c.Loops = 1
	}
	if c.Phoneme == "" {
		c.Phoneme = defaultPhoneme
	}
	if c.SampleRate == 0 {
		c.SampleRate = DefaultSampleRate
	}
	if c.VoiceGain == nil {
		c.VoiceGain = gain(defaultVoiceGain)
	}
	if c.Align.Align == 0 {
		c.Align = Align(AlignLeft)
	}
	if c.Output == "" {
		c.Output = defaultOutput
	}
	switch {
	case c.Tempo < 0:
		return fmt.Errorf("%w: tempo %d", ErrInvalidConfig, c.Tempo)
	case c.BeatsPerMeasure < 0:
		return fmt.Errorf("%w: %d beats per measure", ErrInvalidConfig, c.BeatsPerMeasure)
	case c.Loops < 0:
		return fmt.Errorf("%w: %d loops", ErrInvalidConfig, c.Loops)
	case c.SampleRate < 0 || c.SampleRate > MaxSampleRate:
		return fmt.Errorf("%w: sample rate %d", ErrInvalidConfig, c.SampleRate)
	case strings.ContainsAny(c.Phoneme, " \t\n"):
		return fmt.Errorf("%w: phoneme %q contains whitespace", ErrInvalidConfig, c.Phoneme)
	case len(c.Sections) == 0:
		return fmt.Errorf("%w: no sections", ErrInvalidConfig)
	}
	if err := c.Align.validate(); err != nil {
		return fmt.Errorf("%w: align: %v", ErrInvalidConfig, err)
	}
	beats := make([]int, len(c.Sections))
	for i := range c.Sections {
		s := &c.Sections[i]
		if s.Repeat == 0 {
			s.Repeat = 1
		}
		if s.Repeat < 0 {
			return fmt.Errorf("%w: section #%d repeats %d times", ErrInvalidConfig, i, s.Repeat)
		}
		if (len(s.Chords) == 0) == (s.Preset == "") {
			return fmt.Errorf("%w: section #%d needs either chords or a preset", ErrInvalidConfig, i)
		}
		if s.Preset != "" && (s.Octave == nil || *s.Octave < 0 || *s.Octave > 9) {
			return fmt.Errorf("%w: section #%d uses preset %q without an octave between 0 and 9", ErrInvalidConfig, i, s.Preset)
		}
		// presets are counted as a single chord here; Renderer.Arrange
		// checks again with the real length
		chords := max(len(s.Chords), 1)
		n, ok := mulBeats(chords, c.BeatsPerMeasure)
		if !ok {
			return tooManyBeats()
		}
		beats[i] = n
	}
	if _, err := c.loopBeats(beats); err != nil {
		return err
	}
	if p := c.Percussion; p != nil {
		if p.Path == "" {
			return fmt.Errorf("%w: percussion without a path", ErrInvalidConfig)
		}
		if p.BeatCount == 0 {
			p.BeatCount = defaultBeatCount
		}
		if p.Gain == nil {
			p.Gain = gain(defaultPercussionGain)
		}
		if p.BeatCount < 0 {
			return fmt.Errorf("%w: percussion beat count %d", ErrInvalidConfig, p.BeatCount)
		}
	}
	return nil
}

func gain(v float32) *float32 {
	return &v
}

// loopBeats counts the beats of the arranged loop from the beats of a single
// pass over each section.
func (c Config) loopBeats(sectionBeats []int) (int, error) {
	total := 0
	for i, n := range sectionBeats {
		n, ok := mulBeats(n, c.Sections[i].Repeat)
		if !ok || total+n > MaxBeats {
			return 0, tooManyBeats()
		}
		total += n
	}
	total, ok := mulBeats(total, c.Loops)
	if !ok {
		return 0, tooManyBeats()
	}
	return total, nil
}

// mulBeats multiplies non-negative counts, reporting false when the product
// exceeds MaxBeats.
func mulBeats(a, b int) (int, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	if a > MaxBeats/b {
		return 0, false
	}
	return a * b, true
}

func tooManyBeats() error {
	return fmt.Errorf("%w: the loop would have more than %d beats", ErrInvalidConfig, MaxBeats)
}

// OutputName renders the Output template with the config as data. Besides
// the text/template builtins, the sprig functions are available.
func (c Config) OutputName() (string, error) {
	tmpl, err := template.New("output").Funcs(sprig.TxtFuncMap()).Parse(c.Output)
	if err != nil {
		return "", fmt.Errorf("%w: output template: %v", ErrInvalidConfig, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, c); err != nil {
		return "", fmt.Errorf("%w: output template: %v", ErrInvalidConfig, err)
	}
	name := strings.TrimSpace(buf.String())
	if name == "" || name != filepath.Base(name) {
		return "", fmt.Errorf("%w: output template gave %q, want a plain file name", ErrInvalidConfig, name)
	}
	return name, nil
}

// DefaultPresets returns the embedded chord progressions.
func DefaultPresets() (Presets, error) {
	return LoadPresets(assets, "data/progressions.yml")
}

func LoadPresets(fsys fs.FS, path string) (Presets, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("could not read presets %v: %w", path, err)
	}
	var p Presets
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("could not parse presets %v: %w", path, err)
	}
	return p, nil
}

// Chords returns the preset with the octave appended to every chord.
func (p Presets) Chords(name string, octave int) ([]string, error) {
	chords, ok := p[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	ret := make([]string, len(chords))
	for i, c := range chords {
		ret[i] = c + strconv.Itoa(octave)
	}
	return ret, nil
}

// Tokens returns the chord tokens of the section.
func (s Section) Tokens(presets Presets) ([]string, error) {
	if s.Preset == "" {
		return s.Chords, nil
	}
	octave := 0
	if s.Octave != nil {
		octave = *s.Octave
	}
	return presets.Chords(s.Preset, octave)
}
