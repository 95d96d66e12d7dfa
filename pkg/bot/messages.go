package bot

import (
	"fmt"
	"time"

	"github.com/ishtar07770/telegram-codex777/pkg/settings"
)

// User-facing reply strings. Nothing technical ever reaches the chat;
// every failure path maps to one of these or to a canned answer from the
// completion client.
const (
	msgWelcome = "Hi! Send me a message and I'll answer with the help of a language model.\n" +
		"Use /help to see what else I can do."

	msgHelp = "I relay your messages to a language model and send back its answer.\n\n" +
		"Commands:\n" +
		"/start - introduction\n" +
		"/help - this message\n" +
		"/settings - show your current settings\n" +
		"/settings_tone {formal|friendly|technical} - change the reply tone\n" +
		"/quota - show today's message usage\n" +
		"/debug <text> - answer with the raw completion result"

	msgToneUsage = "Usage: /settings_tone {formal|friendly|technical}"

	msgDebugUsage = "Usage: /debug <text>"
)

func msgSettings(us settings.UserSettings) string {
	return fmt.Sprintf("Your settings:\ntone: %s\n\nChange it with /settings_tone {formal|friendly|technical}", us.Tone)
}

func msgToneChanged(tone settings.Tone) string {
	return fmt.Sprintf("Done! I'll answer in a %s tone from now on.", tone)
}

func msgQuotaStatus(used, cap int) string {
	return fmt.Sprintf("You've used %d of %d messages today. The counter resets at midnight UTC.", used, cap)
}

func msgQuotaExhausted(used, cap int) string {
	return fmt.Sprintf("You've reached your daily limit (%d of %d messages). Please come back after midnight UTC.", used, cap)
}

func msgBackoffWait(remaining time.Duration) string {
	minutes := int(remaining / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("The model provider is overloaded right now. Please try again in about %d min.", minutes)
}
