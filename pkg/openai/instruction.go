package openai

import "github.com/ishtar07770/telegram-codex777/pkg/settings"

const (
	instructionFriendly = "You are a helpful assistant replying inside a Telegram chat. " +
		"Answer in a warm, friendly tone, keep it conversational, and stay concise."

	instructionFormal = "You are a helpful assistant replying inside a Telegram chat. " +
		"Answer in a formal, professional tone with complete sentences, and stay concise."

	instructionTechnical = "You are a helpful assistant replying inside a Telegram chat. " +
		"Answer in a precise, technical tone, use exact terminology, and stay concise."
)

// Instruction returns the canned system instruction for a tone. Unknown
// tones fall back to the friendly instruction.
func Instruction(tone settings.Tone) string {
	switch tone {
	case settings.ToneFormal:
		return instructionFormal
	case settings.ToneTechnical:
		return instructionTechnical
	default:
		return instructionFriendly
	}
}
