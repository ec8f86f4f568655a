package speech

import "github.com/koscakluka/ema-tutor/core/audio"

type ConnectOptions struct {
	TranscriptionCallback func(transcript string)
	SpeechAudioCallback   func(audio []byte)
	ErrorCallback         func(err error)

	EncodingInfo audio.EncodingInfo
}

type ConnectOption func(*ConnectOptions)

// WithTranscriptionCallback sets the callback receiving complete learner
// utterances.
func WithTranscriptionCallback(callback func(transcript string)) ConnectOption {
	return func(o *ConnectOptions) {
		o.TranscriptionCallback = callback
	}
}

// WithSpeechAudioCallback sets the callback receiving synthesized audio.
func WithSpeechAudioCallback(callback func(audio []byte)) ConnectOption {
	return func(o *ConnectOptions) {
		o.SpeechAudioCallback = callback
	}
}

// WithErrorCallback sets the callback receiving asynchronous connection
// failures.
func WithErrorCallback(callback func(err error)) ConnectOption {
	return func(o *ConnectOptions) {
		o.ErrorCallback = callback
	}
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) ConnectOption {
	return func(o *ConnectOptions) {
		o.EncodingInfo = encodingInfo
	}
}

// ApplyOptions resolves opts over the defaults: default encoding and no-op
// callbacks.
func ApplyOptions(opts ...ConnectOption) ConnectOptions {
	options := ConnectOptions{
		TranscriptionCallback: func(string) {},
		SpeechAudioCallback:   func([]byte) {},
		ErrorCallback:         func(error) {},
		EncodingInfo:          audio.GetDefaultEncodingInfo(),
	}
	for _, opt := range opts {
		opt(&options)
	}

	if options.TranscriptionCallback == nil {
		options.TranscriptionCallback = func(string) {}
	}
	if options.SpeechAudioCallback == nil {
		options.SpeechAudioCallback = func([]byte) {}
	}
	if options.ErrorCallback == nil {
		options.ErrorCallback = func(error) {}
	}
	if options.EncodingInfo.IsZero() {
		options.EncodingInfo = audio.GetDefaultEncodingInfo()
	}
	return options
}
