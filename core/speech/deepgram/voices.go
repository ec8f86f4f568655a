package deepgram

import "slices"

var availableVoices = []string{
	"aura-asteria-en",
	"aura-luna-en",
	"aura-stella-en",
	"aura-athena-en",
	"aura-hera-en",
	"aura-orion-en",
	"aura-arcas-en",
	"aura-perseus-en",
	"aura-angus-en",
	"aura-orpheus-en",
	"aura-helios-en",
	"aura-zeus-en",
}

// GetAvailableVoices lists the Aura voice models accepted by Connect.
func GetAvailableVoices() []string {
	return slices.Clone(availableVoices)
}

func isAvailableVoice(voice string) bool {
	return slices.Contains(availableVoices, voice)
}
