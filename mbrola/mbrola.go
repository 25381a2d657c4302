// Package mbrola synthesizes phonemes with the mbrola diphone synthesizer,
// run as a subprocess.
package mbrola

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/vsariola/phonoloop"
)

// Synthesizer feeds a .pho description to mbrola on stdin and reads a wave
// from its stdout.
type Synthesizer struct {
	// Command is the mbrola executable; "mbrola" when empty.
	Command string
	// Voice is the path of the mbrola voice database, e.g.
	// /usr/share/mbrola/fr3/fr3.
	Voice string
}

var _ phonoloop.Synthesizer = Synthesizer{}

// Pho formats phonemes in the mbrola .pho format: one phoneme per line, with
// the symbol, the duration in milliseconds and (position %, Hz) pitch pairs.
func Pho(phonemes []phonoloop.Phoneme) string {
	var sb strings.Builder
	for _, p := range phonemes {
		fmt.Fprintf(&sb, "%s %d", p.Symbol, p.Duration.Milliseconds())
		for _, pt := range p.Pitch {
			fmt.Fprintf(&sb, " %d %d", pt.Position, pt.Frequency)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func (s Synthesizer) Synthesize(ctx context.Context, phonemes []phonoloop.Phoneme) ([]byte, error) {
	if s.Voice == "" {
		return nil, fmt.Errorf("%w: mbrola needs a voice database", phonoloop.ErrExternalTool)
	}
	for i, p := range phonemes {
		if p.Symbol == "" || strings.ContainsAny(p.Symbol, " \t\n;") {
			return nil, fmt.Errorf("%w: phoneme #%d has invalid symbol %q", phonoloop.ErrExternalTool, i, p.Symbol)
		}
	}
	command := s.Command
	if command == "" {
		command = "mbrola"
	}
	cmd := exec.CommandContext(ctx, command, "-e", s.Voice, "-", "-.wav")
	var stdout, stderr bytes.Buffer
	cmd.Stdin = strings.NewReader(Pho(phonemes))
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: %v: %v: %s", phonoloop.ErrExternalTool, command, err, strings.TrimSpace(stderr.String()))
	}
	wave := stdout.Bytes()
	if len(wave) < 12 || string(wave[:4]) != "RIFF" || string(wave[8:12]) != "WAVE" {
		return nil, fmt.Errorf("%w: %v did not return a wave (%d bytes)", phonoloop.ErrExternalTool, command, len(wave))
	}
	return wave, nil
}
