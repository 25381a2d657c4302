// Package oto plays rendered loops on the default audio device.
package oto

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/vsariola/phonoloop"
)

// oto allows one context per process, so the first sample rate wins.
var (
	contextOnce sync.Once
	context     *oto.Context
	contextRate int
	contextErr  error
)

func otoContext(sampleRate int) (*oto.Context, error) {
	contextOnce.Do(func() {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: 1,
			Format:       oto.FormatSignedInt16LE,
		})
		if err != nil {
			contextErr = fmt.Errorf("cannot create oto context: %w", err)
			return
		}
		<-ready
		context, contextRate = ctx, sampleRate
	})
	if contextErr != nil {
		return nil, contextErr
	}
	if contextRate != sampleRate {
		return nil, fmt.Errorf("%w: audio device already opened at %d Hz, cannot play %d Hz", phonoloop.ErrRateMismatch, contextRate, sampleRate)
	}
	return context, nil
}

// stream is the part of *oto.Player used for playback.
type stream interface {
	Play()
	IsPlaying() bool
	Err() error
	Close() error
}

// Player implements phonoloop.Player. It plays one loaded wave at a time.
type Player struct {
	pcm    []byte
	rate   int
	player stream
	open   func(rate int, pcm []byte) (stream, error)
}

var _ phonoloop.Player = (*Player)(nil)

const pollInterval = 10 * time.Millisecond

func NewPlayer() *Player {
	return &Player{open: openStream}
}

func openStream(rate int, pcm []byte) (stream, error) {
	ctx, err := otoContext(rate)
	if err != nil {
		return nil, err
	}
	return ctx.NewPlayer(bytes.NewReader(pcm)), nil
}

// Load decodes a 16-bit PCM wave, replacing any previously loaded one.
func (p *Player) Load(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("cannot read wave: %w", err)
	}
	buf, err := phonoloop.DecodePCM(data)
	if err != nil {
		return err
	}
	p.pcm = FloatBufferTo16BitLE(buf.Samples, p.pcm[:0])
	p.rate = buf.SampleRate
	return nil
}

// Play blocks until the loaded wave has been played.
func (p *Player) Play() error {
	if p.rate == 0 {
		return fmt.Errorf("nothing loaded")
	}
	if err := p.Close(); err != nil {
		return err
	}
	player, err := p.open(p.rate, p.pcm)
	if err != nil {
		return err
	}
	p.player = player
	p.player.Play()
	for p.player.IsPlaying() {
		time.Sleep(pollInterval)
	}
	return p.player.Err()
}

// Close disposes of resources
func (p *Player) Close() error {
	if p.player == nil {
		return nil
	}
	err := p.player.Close()
	p.player = nil
	if err != nil {
		return fmt.Errorf("cannot close oto player: %w", err)
	}
	return nil
}
