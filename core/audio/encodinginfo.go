package audio

import (
	"fmt"
	"time"
)

const (
	DefaultSampleRate = 16000
	DefaultFormat     = "linear16"
)

func GetDefaultEncodingInfo() EncodingInfo {
	return EncodingInfo{SampleRate: DefaultSampleRate, Format: EncodingLinear16}
}

// EncodingInfo describes raw mono audio as it travels between the client,
// the conduit and the speech provider. Chunks are never transcoded.
type EncodingInfo struct {
	SampleRate int            `json:"sample_rate"`
	Format     encodingFormat `json:"format"`
}

func (e EncodingInfo) IsZero() bool {
	return e.SampleRate == 0 || e.Format.Name() == ""
}

func (e EncodingInfo) SilenceValue() byte {
	switch e.Format {
	case EncodingALaw:
		return 0x55
	case EncodingMulaw:
		return 0xFF
	case EncodingLinear16:
		return 0
	}

	return 0
}

// Duration reports how much audio a chunk of the given size carries.
func (e EncodingInfo) Duration(chunkSize int) time.Duration {
	bytesPerSecond := e.SampleRate * e.Format.ByteSize()
	if bytesPerSecond <= 0 {
		return 0
	}

	return time.Duration(chunkSize) * time.Second / time.Duration(bytesPerSecond)
}

// ParseEncodingInfo builds an EncodingInfo from a format name and sample rate,
// falling back to the defaults for zero values.
func ParseEncodingInfo(format string, sampleRate int) (EncodingInfo, error) {
	info := GetDefaultEncodingInfo()
	if sampleRate != 0 {
		info.SampleRate = sampleRate
	}

	switch encodingFormat(format) {
	case "":
	case EncodingLinear16, EncodingALaw, EncodingMulaw:
		info.Format = encodingFormat(format)
	default:
		return EncodingInfo{}, fmt.Errorf("unsupported audio format %q", format)
	}

	return info, nil
}

type encodingFormat string

func (e encodingFormat) Name() string {
	return string(e)
}

func (e encodingFormat) ByteSize() int {
	switch e {
	case EncodingMulaw, EncodingALaw:
		return 1
	case EncodingLinear16:
		return 2
	}
	return -1
}

const (
	EncodingMulaw    encodingFormat = "mulaw"
	EncodingALaw     encodingFormat = "alaw"
	EncodingLinear16 encodingFormat = "linear16"
)
