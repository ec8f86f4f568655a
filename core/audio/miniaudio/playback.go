package miniaudio

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/ema-tutor/core/audio"
)

type playbackDevice struct {
	device *malgo.Device
	buffer playbackBuffer

	mu sync.Mutex
}

func (p *playbackDevice) Init(audioContext *malgo.AllocatedContext, encoding audio.EncodingInfo, format malgo.FormatType) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	bytesPerFrame := malgo.SampleSizeInBytes(format)
	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.SampleRate = uint32(encoding.SampleRate)
	config.Playback.Format = format
	config.Playback.Channels = 1
	config.Alsa.NoMMap = 1
	config.PeriodSizeInFrames = uint32(encoding.SampleRate / 10) // ~100ms of audio
	config.Periods = 4
	p.buffer.silence = encoding.SilenceValue()

	var err error
	p.device, err = malgo.InitDevice(audioContext.Context, config, malgo.DeviceCallbacks{
		Data: func(output, _ []byte, frameCount uint32) {
			n := int(frameCount) * bytesPerFrame
			if n > len(output) {
				n = len(output)
			}
			p.buffer.Fill(output[:n])
		},
	})
	return err
}

func (p *playbackDevice) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.device == nil {
		return errors.New("playback device not initialized")
	}

	if err := p.device.Start(); err != nil {
		return fmt.Errorf("failed to start playback device: %w", err)
	}
	return nil
}

func (p *playbackDevice) Uninit() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.device != nil {
		p.device.Uninit()
		p.device = nil
	}
	p.buffer.Reset()
}

// playbackBuffer is the queue between received audio and the device
// callback.
type playbackBuffer struct {
	pending []byte
	silence byte

	mu sync.Mutex
}

func (b *playbackBuffer) Write(chunk []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = append(b.pending, chunk...)
}

// Fill copies queued audio into out and pads the rest with silence.
func (b *playbackBuffer) Fill(out []byte) {
	b.mu.Lock()
	n := copy(out, b.pending)
	b.pending = b.pending[n:]
	if len(b.pending) == 0 {
		b.pending = nil
	}
	b.mu.Unlock()

	for i := n; i < len(out); i++ {
		out[i] = b.silence
	}
}

func (b *playbackBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = nil
}

func (b *playbackBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}
