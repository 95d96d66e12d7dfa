package bot

import "strings"

// Built-in commands. Anything else falls through to the completion path.
const (
	cmdStart        = "/start"
	cmdHelp         = "/help"
	cmdSettings     = "/settings"
	cmdSettingsTone = "/settings_tone"
	cmdQuota        = "/quota"
	cmdDebug        = "/debug"
)

// splitCommand separates a leading slash command from its argument text.
// Group-chat variants like "/help@SomeBot" match the plain command. For
// non-command text cmd is empty and args carries the trimmed input.
func splitCommand(text string) (cmd, args string) {
	if !strings.HasPrefix(text, "/") {
		return "", text
	}

	token := text
	if i := strings.IndexAny(text, " \n\t"); i >= 0 {
		token = text[:i]
		args = strings.TrimSpace(text[i:])
	}

	// Strip the "@BotName" suffix Telegram appends in group chats.
	if at := strings.IndexByte(token, '@'); at >= 0 {
		token = token[:at]
	}

	return strings.ToLower(token), args
}
