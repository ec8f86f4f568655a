// Package miniaudio captures learner speech from the default microphone and
// plays synthesized role speech on the default speaker.
package miniaudio

import (
	"context"
	"errors"
	"fmt"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/ema-tutor/core/audio"
)

var ErrUnsupportedFormat = errors.New("unsupported device audio format")

// Device pairs a capture and a playback device sharing one encoding.
type Device struct {
	// audioContext is only kept to uninitialize it.
	audioContext *malgo.AllocatedContext
	encoding     audio.EncodingInfo

	capture  captureDevice
	playback playbackDevice
}

func NewDevice(encoding audio.EncodingInfo) (*Device, error) {
	format, err := deviceFormat(encoding)
	if err != nil {
		return nil, err
	}

	audioCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(string) {})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}

	device := &Device{audioContext: audioCtx, encoding: encoding}
	if err := device.playback.Init(audioCtx, encoding, format); err != nil {
		device.Close()
		return nil, fmt.Errorf("failed to initialize playback device: %w", err)
	}
	if err := device.playback.Start(); err != nil {
		device.Close()
		return nil, err
	}
	if err := device.capture.Init(audioCtx, encoding, format); err != nil {
		device.Close()
		return nil, fmt.Errorf("failed to initialize capture device: %w", err)
	}

	return device, nil
}

// StartCapture streams microphone chunks to onChunk until StopCapture.
func (d *Device) StartCapture(_ context.Context, onChunk func(chunk []byte)) error {
	return d.capture.Start(onChunk)
}

func (d *Device) StopCapture() error {
	return d.capture.Stop()
}

// Play queues synthesized audio behind whatever is still playing.
func (d *Device) Play(chunk []byte) {
	d.playback.buffer.Write(chunk)
}

// ClearPlayback drops queued audio, for example when the learner starts
// talking over a role.
func (d *Device) ClearPlayback() {
	d.playback.buffer.Reset()
}

func (d *Device) EncodingInfo() audio.EncodingInfo {
	return d.encoding
}

func (d *Device) Close() {
	d.capture.Uninit()
	d.playback.Uninit()
	_ = d.audioContext.Uninit()
	d.audioContext.Free()
}

func deviceFormat(encoding audio.EncodingInfo) (malgo.FormatType, error) {
	if encoding.IsZero() {
		return malgo.FormatUnknown, fmt.Errorf("%w: missing encoding", ErrUnsupportedFormat)
	}
	switch encoding.Format {
	case audio.EncodingLinear16:
		return malgo.FormatS16, nil
	}
	return malgo.FormatUnknown, fmt.Errorf("%w: %s", ErrUnsupportedFormat, encoding.Format.Name())
}
