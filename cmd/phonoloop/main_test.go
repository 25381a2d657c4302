package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vsariola/phonoloop"
	"gitlab.com/gomidi/midi/v2/smf"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func writeWave(t *testing.T, path string, samples []float32, rate int) {
	t.Helper()
	wave, err := phonoloop.Encode(phonoloop.SampleBuffer{Samples: samples, SampleRate: rate})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, wave, 0644))
}

func readWave(t *testing.T, path string) phonoloop.SampleBuffer {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	buf, err := phonoloop.DecodePCM(data)
	require.NoError(t, err)
	return buf
}

func TestWriteFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	path := filepath.Join(dir, "out.wav")
	require.NoError(t, writeFile(path, []byte("first")))
	require.NoError(t, writeFile(path, []byte("second")))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files should be renamed away")
}

func TestMelody(t *testing.T) {
	out, _, err := execute(t, "melody", "--tempo", "120", "Am4", "F4")
	require.NoError(t, err)
	assert := assert.New(t)
	assert.Contains(out, "Am4    A Minor, octave 4: 440 513 660")
	assert.Contains(out, "F4     F Major, octave 4: 349 437 524")
	assert.Contains(out, "melody (alternating, 4s): 440 513 440 513 | 349 437 349 437")
}

func TestMelodyTrinote(t *testing.T) {
	out, _, err := execute(t, "melody", "--policy", "trinote", "C4")
	require.NoError(t, err)
	assert.Contains(t, out, "262 392 262 327")
}

func TestMelodyErrors(t *testing.T) {
	_, _, err := execute(t, "melody", "--policy", "trinote", "--beats", "3", "C4")
	assert.ErrorIs(t, err, phonoloop.ErrUnsupportedMeasure)
	_, _, err = execute(t, "melody", "H4")
	assert.ErrorIs(t, err, phonoloop.ErrMalformedChord)
	_, _, err = execute(t, "melody", "--policy", "shuffle", "C4")
	assert.ErrorIs(t, err, phonoloop.ErrUnknownPolicy)
}

func TestMix(t *testing.T) {
	dir := t.TempDir()
	a, b, out := filepath.Join(dir, "a.wav"), filepath.Join(dir, "b.wav"), filepath.Join(dir, "out.wav")
	writeWave(t, a, []float32{0.25, 0.25, 0.25, 0.25}, 8000)
	writeWave(t, b, []float32{0.5}, 8000)
	_, _, err := execute(t, "mix", a, b, "--align", "right", "-o", out)
	require.NoError(t, err)
	mixed := readWave(t, out)
	require.Len(t, mixed.Samples, 4)
	assert.InDelta(t, 0.25, mixed.Samples[0], 1e-3)
	assert.InDelta(t, 0.75, mixed.Samples[3], 1e-3)

	_, _, err = execute(t, "mix", a, b, "--offset", "6", "--gain-b", "2", "-o", out)
	require.NoError(t, err)
	mixed = readWave(t, out)
	require.Len(t, mixed.Samples, 7)
	assert.InDelta(t, 0, mixed.Samples[5], 1e-3)
	assert.InDelta(t, 1, mixed.Samples[6], 1e-3)
}

func TestMixRateMismatch(t *testing.T) {
	dir := t.TempDir()
	a, b := filepath.Join(dir, "a.wav"), filepath.Join(dir, "b.wav")
	writeWave(t, a, []float32{0}, 8000)
	writeWave(t, b, []float32{0}, 16000)
	_, _, err := execute(t, "mix", a, b, "--sox", "", "-o", filepath.Join(dir, "out.wav"))
	assert.ErrorIs(t, err, phonoloop.ErrRateMismatch)
}

const loopConfig = `name: Test Loop
tempo: 600
policy: trinote
sections:
  - chords: [Am4, F4]
`

func TestRender(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "loop.yml")
	require.NoError(t, os.WriteFile(cfg, []byte(loopConfig), 0644))
	out := filepath.Join(dir, "out")
	_, _, err := execute(t, "render", "-q", "-w", "-m", "-o", out, cfg)
	require.NoError(t, err)

	voice := readWave(t, filepath.Join(out, "test_loop.wav"))
	assert.Equal(t, phonoloop.DefaultSampleRate, voice.SampleRate)
	assert.Equal(t, 8*phonoloop.DefaultSampleRate/10, voice.Len())

	data, err := os.ReadFile(filepath.Join(out, "test_loop.mid"))
	require.NoError(t, err)
	sm, err := smf.ReadFrom(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Len(t, sm.Tracks, 2)
}

func TestRenderWithPercussion(t *testing.T) {
	dir := t.TempDir()
	// 4 beats of 100ms
	writeWave(t, filepath.Join(dir, "beat.wav"), make([]float32, 6400), phonoloop.DefaultSampleRate)
	cfg := loopConfig + "percussion:\n  path: beat.wav\n  beatCount: 4\nalign: center\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "loop.yml"), []byte(cfg), 0644))
	out := filepath.Join(dir, "out")
	_, stderr, err := execute(t, "render", "-o", out, dir)
	require.NoError(t, err)
	assert.Contains(t, stderr, "beat time: 100ms")
	mixed := readWave(t, filepath.Join(out, "test_loop.wav"))
	assert.Equal(t, 2*6400, mixed.Len())
}

func TestRenderReportsFailures(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "bad.yml")
	require.NoError(t, os.WriteFile(cfg, []byte("sections:\n  - chords: [Xx]\n"), 0644))
	_, stderr, err := execute(t, "render", "-q", "-o", dir, cfg)
	require.Error(t, err)
	assert.True(t, strings.Contains(stderr, "could not process file"), stderr)
}

func TestRenderLeavesNoPartialOutput(t *testing.T) {
	dir := t.TempDir()
	// too many beats per measure for a MIDI time signature
	doc := "name: wide\ntempo: 6000\nbeatsPerMeasure: 256\npolicy: random\nseed: 1\nsections:\n  - chords: [A3]\n"
	cfg := filepath.Join(dir, "wide.yml")
	require.NoError(t, os.WriteFile(cfg, []byte(doc), 0644))
	out := filepath.Join(dir, "out")
	_, stderr, err := execute(t, "render", "-q", "-w", "-m", "-o", out, cfg)
	require.Error(t, err)
	assert.Contains(t, stderr, ".mid")
	_, err = os.Stat(filepath.Join(out, "wide.wav"))
	assert.True(t, os.IsNotExist(err), "the .wav should not be written: %v", err)
}

func TestRenderUnknownSynth(t *testing.T) {
	_, _, err := execute(t, "render", "--synth", "espeak", ".")
	assert.Error(t, err)
}
