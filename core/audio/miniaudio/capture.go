package miniaudio

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/ema-tutor/core/audio"
)

type captureDevice struct {
	device *malgo.Device

	onChunk func(chunk []byte)

	mu sync.Mutex
}

func (c *captureDevice) Init(audioContext *malgo.AllocatedContext, encoding audio.EncodingInfo, format malgo.FormatType) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	bytesPerFrame := malgo.SampleSizeInBytes(format)
	config := malgo.DefaultDeviceConfig(malgo.Capture)
	config.SampleRate = uint32(encoding.SampleRate)
	config.Capture.Format = format
	config.Capture.Channels = 1
	config.Alsa.NoMMap = 1
	config.PerformanceProfile = malgo.LowLatency
	// 20ms chunks, what the speech provider streams best with.
	config.PeriodSizeInFrames = uint32(encoding.SampleRate / 50)
	config.Periods = 3

	var err error
	c.device, err = malgo.InitDevice(audioContext.Context, config, malgo.DeviceCallbacks{
		Data: func(_, input []byte, frameCount uint32) {
			n := int(frameCount) * bytesPerFrame
			if len(input) < n || n == 0 {
				return
			}

			c.mu.Lock()
			onChunk := c.onChunk
			c.mu.Unlock()
			if onChunk != nil {
				// The device reuses its buffer.
				onChunk(append([]byte(nil), input[:n]...))
			}
		},
	})
	return err
}

func (c *captureDevice) Start(onChunk func(chunk []byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return errors.New("capture device not initialized")
	}

	c.onChunk = onChunk
	if c.device.IsStarted() {
		return nil
	}
	if err := c.device.Start(); err != nil {
		c.onChunk = nil
		return fmt.Errorf("failed to start capture device: %w", err)
	}
	return nil
}

func (c *captureDevice) Stop() error {
	c.mu.Lock()
	device := c.device
	c.onChunk = nil
	c.mu.Unlock()

	if device == nil || !device.IsStarted() {
		return nil
	}
	if err := device.Stop(); err != nil {
		return fmt.Errorf("failed to stop capture device: %w", err)
	}
	return nil
}

func (c *captureDevice) Uninit() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device != nil {
		c.device.Uninit()
		c.device = nil
	}
	c.onChunk = nil
}
