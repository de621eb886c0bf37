package synth

import (
	"fmt"
	"strings"
)

// Voice identifies one of the gateway's preset voices. The core treats the
// value as opaque; the gateway rejects identifiers it does not recognize.
type Voice string

// Preset voices offered by the synthesis gateway.
const (
	VoiceAria   Voice = "aria"
	VoiceOrion  Voice = "orion"
	VoiceLuna   Voice = "luna"
	VoiceSage   Voice = "sage"
	VoiceEmber  Voice = "ember"
	VoiceWillow Voice = "willow"
)

// DefaultVoice is used when no voice is configured.
const DefaultVoice = VoiceAria

// Voices returns the known preset voices, in display order.
func Voices() []Voice {
	return []Voice{VoiceAria, VoiceOrion, VoiceLuna, VoiceSage, VoiceEmber, VoiceWillow}
}

// Known reports whether v is one of the preset voices. The session core
// never calls this; it exists for the CLI layer to fail fast before a
// session starts instead of on the first synthesis call.
func Known(v Voice) bool {
	for _, known := range Voices() {
		if v == known {
			return true
		}
	}
	return false
}

// ParseVoice validates a voice name from configuration. Names are
// case-insensitive and an empty name selects the default voice.
func ParseVoice(name string) (Voice, error) {
	trimmed := strings.ToLower(strings.TrimSpace(name))
	if trimmed == "" {
		return DefaultVoice, nil
	}
	v := Voice(trimmed)
	if !Known(v) {
		return "", fmt.Errorf("synth: unknown voice %q (available: %v)", name, Voices())
	}
	return v, nil
}
