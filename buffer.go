package phonoloop

import (
	"time"

	"github.com/viterin/vek/vek32"
)

// DefaultSampleRate is the rate every track is converted to before mixing.
const DefaultSampleRate = 16000

// SampleBuffer is mono audio held in memory. Samples are always normalized
// floats in [-1, 1]; raw integer PCM only exists inside encoded waves.
type SampleBuffer struct {
	Samples    []float32
	SampleRate int
}

func (b SampleBuffer) Len() int {
	return len(b.Samples)
}

// Duration returns the playing time of the buffer.
func (b SampleBuffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(b.Samples)) * time.Second / time.Duration(b.SampleRate)
}

// Scale returns a copy of the buffer with every sample multiplied by gain.
func (b SampleBuffer) Scale(gain float32) SampleBuffer {
	if len(b.Samples) == 0 {
		return SampleBuffer{SampleRate: b.SampleRate}
	}
	return SampleBuffer{Samples: vek32.MulNumber(b.Samples, gain), SampleRate: b.SampleRate}
}

// Tile returns the buffer repeated n times back to back. n <= 0 gives an
// empty buffer.
func (b SampleBuffer) Tile(n int) SampleBuffer {
	if n <= 0 {
		return SampleBuffer{SampleRate: b.SampleRate}
	}
	samples := make([]float32, 0, len(b.Samples)*n)
	for i := 0; i < n; i++ {
		samples = append(samples, b.Samples...)
	}
	return SampleBuffer{Samples: samples, SampleRate: b.SampleRate}
}
