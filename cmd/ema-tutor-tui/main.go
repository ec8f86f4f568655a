// Command ema-tutor-tui is a terminal client for an ema-tutor server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/koscakluka/ema-tutor/core/audio"
	"github.com/koscakluka/ema-tutor/core/audio/miniaudio"
)

func main() {
	addr := flag.String("addr", "ws://localhost:3001/ws", "tutor websocket URL")
	withVoice := flag.Bool("voice", false, "use the microphone and speaker for voice mode")
	flag.Parse()

	if err := run(*addr, *withVoice); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(addr string, withVoice bool) error {
	conn, err := dial(addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	var local voice
	if withVoice {
		device, err := miniaudio.NewDevice(audio.GetDefaultEncodingInfo())
		if err != nil {
			return fmt.Errorf("failed to open audio devices: %w", err)
		}
		defer device.Close()
		local = &deviceVoice{device: device, client: conn}
	}

	program := tea.NewProgram(newModel(conn, local), tea.WithAltScreen())
	go conn.listen(func(msg any) { program.Send(msg) })

	_, err = program.Run()
	return err
}

// deviceVoice streams microphone audio to the server.
type deviceVoice struct {
	device *miniaudio.Device
	client *client
}

func (v *deviceVoice) StartCapture() error {
	return v.device.StartCapture(context.Background(), func(chunk []byte) {
		_ = v.client.SendAudio(chunk)
	})
}

func (v *deviceVoice) StopCapture() error {
	return v.device.StopCapture()
}

func (v *deviceVoice) Play(chunk []byte) {
	v.device.Play(chunk)
}

func (v *deviceVoice) ClearPlayback() {
	v.device.ClearPlayback()
}
