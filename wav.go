package phonoloop

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// pcmScale converts between int16 PCM and normalized floats. Encoding
// truncates, so decode(encode(x)) differs from x by less than 1/pcmScale.
const pcmScale = 1 << 15

type (
	// Resampler converts mono float samples from one rate to another.
	Resampler interface {
		Resample(ctx context.Context, samples []float32, from, to int) ([]float32, error)
	}

	// Codec decodes waves into buffers at TargetRate, resampling when the
	// wave has another rate.
	Codec struct {
		TargetRate int
		Resampler  Resampler
	}
)

// Decode parses a 16-bit PCM wave and converts it to TargetRate
// (DefaultSampleRate when zero).
func (c Codec) Decode(ctx context.Context, data []byte) (SampleBuffer, error) {
	buf, err := DecodePCM(data)
	if err != nil {
		return SampleBuffer{}, err
	}
	target := c.TargetRate
	if target == 0 {
		target = DefaultSampleRate
	}
	if buf.SampleRate == target {
		return buf, nil
	}
	if c.Resampler == nil {
		return SampleBuffer{}, fmt.Errorf("%w: wave is %d Hz, want %d Hz and no resampler is configured", ErrRateMismatch, buf.SampleRate, target)
	}
	samples, err := c.Resampler.Resample(ctx, buf.Samples, buf.SampleRate, target)
	if err != nil {
		return SampleBuffer{}, fmt.Errorf("could not resample %d Hz to %d Hz: %w", buf.SampleRate, target, err)
	}
	return SampleBuffer{Samples: samples, SampleRate: target}, nil
}

// DecodePCM parses a 16-bit PCM wave without touching its rate. Multichannel
// waves are downmixed to mono by averaging the channels.
func DecodePCM(data []byte) (SampleBuffer, error) {
	d := wav.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		return SampleBuffer{}, fmt.Errorf("%w: not a RIFF/WAVE file", ErrDecode)
	}
	if d.WavAudioFormat != 1 || d.BitDepth != 16 {
		return SampleBuffer{}, fmt.Errorf("%w: only 16-bit PCM is supported, got format %d with %d bits", ErrDecode, d.WavAudioFormat, d.BitDepth)
	}
	channels := int(d.NumChans)
	if channels < 1 || d.SampleRate == 0 {
		return SampleBuffer{}, fmt.Errorf("%w: header has %d channels at %d Hz", ErrDecode, channels, d.SampleRate)
	}
	pcm, err := d.FullPCMBuffer()
	if err != nil {
		return SampleBuffer{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	samples := make([]float32, len(pcm.Data)/channels)
	for i := range samples {
		sum := 0
		for ch := 0; ch < channels; ch++ {
			sum += pcm.Data[i*channels+ch]
		}
		samples[i] = float32(float64(sum) / float64(channels) / pcmScale)
	}
	return SampleBuffer{Samples: samples, SampleRate: int(d.SampleRate)}, nil
}

// Encode writes the buffer as a mono 16-bit PCM wave. Samples are scaled by
// 2^15, truncated and clamped to the int16 range.
func Encode(b SampleBuffer) ([]byte, error) {
	if b.SampleRate <= 0 {
		return nil, fmt.Errorf("cannot encode wave with sample rate %d", b.SampleRate)
	}
	data := make([]int, len(b.Samples))
	for i, v := range b.Samples {
		data[i] = clamp(int(v*pcmScale), math.MinInt16, math.MaxInt16)
	}
	out := &seekBuffer{}
	enc := wav.NewEncoder(out, b.SampleRate, 16, 1, 1)
	pcm := &audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{NumChannels: 1, SampleRate: b.SampleRate},
		SourceBitDepth: 16,
	}
	if err := enc.Write(pcm); err != nil {
		return nil, fmt.Errorf("could not write wave data: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("could not finish wave header: %w", err)
	}
	return out.buf, nil
}

func clamp(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// seekBuffer is an in-memory io.WriteSeeker; the wave encoder seeks back to
// patch the chunk sizes when closed.
type seekBuffer struct {
	buf []byte
	pos int
}

func (s *seekBuffer) Write(p []byte) (int, error) {
	if end := s.pos + len(p); end > len(s.buf) {
		s.buf = append(s.buf, make([]byte, end-len(s.buf))...)
	}
	copy(s.buf[s.pos:], p)
	s.pos += len(p)
	return len(p), nil
}

func (s *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(s.pos) + offset
	case io.SeekEnd:
		abs = int64(len(s.buf)) + offset
	default:
		return 0, errors.New("seekBuffer.Seek: invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("seekBuffer.Seek: negative position")
	}
	s.pos = int(abs)
	return abs, nil
}
