// Package sox resamples audio by piping raw float samples through the sox
// command line tool.
package sox

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/vsariola/phonoloop"
)

// Resampler runs one sox process per call. The call blocks until sox exits;
// use a context with a deadline to bound it.
type Resampler struct {
	// Command is the sox executable; "sox" when empty.
	Command string
}

var _ phonoloop.Resampler = Resampler{}

// Args returns the sox arguments converting mono f32 from one rate to
// another, reading stdin and writing stdout.
func Args(from, to int) []string {
	return []string{
		"-N", "-V1",
		"-t", "f32", "-r", strconv.Itoa(from), "-c", "1", "-",
		"-t", "f32", "-r", strconv.Itoa(to), "-c", "1", "-",
	}
}

func (r Resampler) Resample(ctx context.Context, samples []float32, from, to int) ([]float32, error) {
	if from <= 0 || to <= 0 {
		return nil, fmt.Errorf("%w: cannot resample %d Hz to %d Hz", phonoloop.ErrRateMismatch, from, to)
	}
	if from == to {
		return append([]float32(nil), samples...), nil
	}
	input, err := Raw(samples)
	if err != nil {
		return nil, err
	}
	command := r.Command
	if command == "" {
		command = "sox"
	}
	cmd := exec.CommandContext(ctx, command, Args(from, to)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdin = bytes.NewReader(input)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: %v: %v: %s", phonoloop.ErrExternalTool, command, err, strings.TrimSpace(stderr.String()))
	}
	out, err := FromRaw(stdout.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w: %v returned %v", phonoloop.ErrExternalTool, command, err)
	}
	return out, nil
}

// Raw encodes samples as little-endian float32, the sox "f32" type.
func Raw(samples []float32) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, samples); err != nil {
		return nil, fmt.Errorf("could not binary write samples: %w", err)
	}
	return buf.Bytes(), nil
}

// FromRaw is the inverse of Raw.
func FromRaw(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("%d bytes is not a whole number of float32 samples", len(data))
	}
	ret := make([]float32, len(data)/4)
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, ret); err != nil {
		return nil, fmt.Errorf("could not binary read samples: %w", err)
	}
	return ret, nil
}
