package bot

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ishtar07770/telegram-codex777/pkg/backoff"
	"github.com/ishtar07770/telegram-codex777/pkg/openai"
	"github.com/ishtar07770/telegram-codex777/pkg/quota"
	"github.com/ishtar07770/telegram-codex777/pkg/settings"
	"github.com/ishtar07770/telegram-codex777/pkg/telegram"
	"github.com/ishtar07770/telegram-codex777/storage/memory"
)

// fakeCompleter is a scriptable CompletionClient for tests
type fakeCompleter struct {
	result  openai.Result
	err     error
	calls   int
	prompts []string
	tones   []settings.Tone
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string, tone settings.Tone) (openai.Result, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	f.tones = append(f.tones, tone)
	if f.err != nil {
		return openai.Result{}, f.err
	}
	return f.result, nil
}

type sentText struct {
	chatID int64
	text   string
}

type sentVoice struct {
	chatID  int64
	audio   []byte
	caption string
}

// fakeMessenger records deliveries and fails them on demand
type fakeMessenger struct {
	texts   []sentText
	voices  []sentVoice
	actions []string

	textErr   error
	voiceErr  error
	actionErr error
}

func (f *fakeMessenger) SendText(_ context.Context, chatID int64, text string) []telegram.SendResult {
	f.texts = append(f.texts, sentText{chatID: chatID, text: text})
	return []telegram.SendResult{{Index: 0, Length: len([]rune(text)), Err: f.textErr}}
}

func (f *fakeMessenger) SendVoice(_ context.Context, chatID int64, audio []byte, caption string) error {
	if f.voiceErr != nil {
		return f.voiceErr
	}
	f.voices = append(f.voices, sentVoice{chatID: chatID, audio: audio, caption: caption})
	return nil
}

func (f *fakeMessenger) SendChatAction(_ context.Context, chatID int64, action string) error {
	f.actions = append(f.actions, action)
	return f.actionErr
}

// fakeVoice is a scriptable VoiceSynthesizer
type fakeVoice struct {
	audio []byte
	err   error
	calls int
	texts []string
}

func (f *fakeVoice) Synthesize(_ context.Context, text string) ([]byte, error) {
	f.calls++
	f.texts = append(f.texts, text)
	if f.err != nil {
		return nil, f.err
	}
	return f.audio, nil
}

// failingStore errors on every operation
type failingStore struct {
	err error
}

func (f *failingStore) Get(_ context.Context, _ string) (string, error) { return "", f.err }
func (f *failingStore) Set(_ context.Context, _, _ string, _ time.Duration) error {
	return f.err
}
func (f *failingStore) Ping(_ context.Context) error { return f.err }
func (f *failingStore) Close() error                 { return nil }

type botFixture struct {
	bot       *Bot
	store     *memory.Store
	completer *fakeCompleter
	messenger *fakeMessenger
	voice     *fakeVoice
	quota     *quota.Ledger
}

// newTestBot builds a bot over an in-memory store with scriptable fakes.
// The mutate hook adjusts the config before construction.
func newTestBot(t *testing.T, mutate func(*Config)) *botFixture {
	t.Helper()

	store := memory.New()
	settingsStore, err := settings.NewStore(store)
	require.NoError(t, err)
	ledger, err := quota.NewLedger(store)
	require.NoError(t, err)
	gate, err := backoff.NewGate(store)
	require.NoError(t, err)

	completer := &fakeCompleter{result: openai.Result{Model: "gpt-5-codex", Answer: "pong"}}
	messenger := &fakeMessenger{}
	voice := &fakeVoice{audio: []byte("opus")}

	config := Config{
		Settings:  settingsStore,
		Quota:     ledger,
		Gate:      gate,
		Completer: completer,
		Messenger: messenger,
		Voice:     voice,
	}
	if mutate != nil {
		mutate(&config)
	}

	b, err := New(config)
	require.NoError(t, err)

	return &botFixture{
		bot:       b,
		store:     store,
		completer: completer,
		messenger: messenger,
		voice:     voice,
		quota:     ledger,
	}
}

func (f *botFixture) lastText(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, f.messenger.texts)
	return f.messenger.texts[len(f.messenger.texts)-1].text
}

func TestNew_Validation(t *testing.T) {
	store := memory.New()
	settingsStore, _ := settings.NewStore(store)
	ledger, _ := quota.NewLedger(store)
	gate, _ := backoff.NewGate(store)
	completer := &fakeCompleter{}
	messenger := &fakeMessenger{}

	valid := Config{
		Settings:  settingsStore,
		Quota:     ledger,
		Gate:      gate,
		Completer: completer,
		Messenger: messenger,
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: nil, wantErr: false},
		{name: "missing settings", mutate: func(c *Config) { c.Settings = nil }, wantErr: true},
		{name: "missing quota", mutate: func(c *Config) { c.Quota = nil }, wantErr: true},
		{name: "missing gate", mutate: func(c *Config) { c.Gate = nil }, wantErr: true},
		{name: "missing completer", mutate: func(c *Config) { c.Completer = nil }, wantErr: true},
		{name: "missing messenger", mutate: func(c *Config) { c.Messenger = nil }, wantErr: true},
		{name: "voice replies without synthesizer", mutate: func(c *Config) { c.VoiceReplies = true }, wantErr: true},
		{name: "webhook path without slash", mutate: func(c *Config) { c.WebhookPath = "webhook" }, wantErr: true},
		{name: "webhook path at root", mutate: func(c *Config) { c.WebhookPath = "/" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := valid
			if tt.mutate != nil {
				tt.mutate(&config)
			}
			_, err := New(config)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	f := newTestBot(t, nil)
	assert.Equal(t, "/webhook", f.bot.config.WebhookPath)
	assert.Equal(t, 50, f.bot.config.DailyMessageLimit)
	assert.Equal(t, 30*time.Minute, f.bot.config.BackoffCooldown)
}

func TestBot_HandleUpdate_PlainMessage(t *testing.T) {
	ctx := context.Background()
	f := newTestBot(t, nil)

	err := f.bot.HandleUpdate(ctx, ChatUpdate{ChatID: 42, Text: "ping"})
	require.NoError(t, err)

	require.Equal(t, 1, f.completer.calls)
	assert.Equal(t, "ping", f.completer.prompts[0])
	assert.Equal(t, settings.ToneFriendly, f.completer.tones[0], "default tone without stored settings")

	assert.Equal(t, []string{"typing"}, f.messenger.actions)
	require.Len(t, f.messenger.texts, 1)
	assert.Equal(t, sentText{chatID: 42, text: "pong"}, f.messenger.texts[0])

	used, err := f.quota.Used(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, 1, used)
}

func TestBot_HandleUpdate_EmptyTextIgnored(t *testing.T) {
	ctx := context.Background()
	f := newTestBot(t, nil)

	require.NoError(t, f.bot.HandleUpdate(ctx, ChatUpdate{ChatID: 42, Text: ""}))
	require.NoError(t, f.bot.HandleUpdate(ctx, ChatUpdate{ChatID: 42, Text: "   \n\t"}))

	assert.Zero(t, f.completer.calls)
	assert.Empty(t, f.messenger.texts)
}

func TestBot_HandleUpdate_DailyCap(t *testing.T) {
	ctx := context.Background()
	f := newTestBot(t, func(c *Config) { c.DailyMessageLimit = 20 })

	for i := 0; i < 20; i++ {
		require.NoError(t, f.bot.HandleUpdate(ctx, ChatUpdate{ChatID: 42, Text: "hi"}))
	}
	require.Equal(t, 20, f.completer.calls)

	// The 21st message is refused without touching the model.
	require.NoError(t, f.bot.HandleUpdate(ctx, ChatUpdate{ChatID: 42, Text: "one more"}))
	assert.Equal(t, 20, f.completer.calls)
	assert.Equal(t, msgQuotaExhausted(20, 20), f.lastText(t))

	used, err := f.quota.Used(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, 20, used, "refusals do not consume quota")

	// A different chat is unaffected.
	require.NoError(t, f.bot.HandleUpdate(ctx, ChatUpdate{ChatID: 7, Text: "hi"}))
	assert.Equal(t, 21, f.completer.calls)
}

func TestBot_HandleUpdate_BackoffActivation(t *testing.T) {
	ctx := context.Background()
	f := newTestBot(t, nil)
	f.completer.result = openai.Result{
		Model:  "gpt-5-codex",
		Answer: openai.MsgUpstreamQuota,
		Fault:  openai.FaultQuotaExhausted,
	}

	// The triggering message still delivers the canned apology.
	require.NoError(t, f.bot.HandleUpdate(ctx, ChatUpdate{ChatID: 42, Text: "hi"}))
	require.Equal(t, 1, f.completer.calls)
	assert.Equal(t, openai.MsgUpstreamQuota, f.lastText(t))

	// While the gate is closed no completion call is attempted, from any chat.
	require.NoError(t, f.bot.HandleUpdate(ctx, ChatUpdate{ChatID: 42, Text: "again"}))
	require.NoError(t, f.bot.HandleUpdate(ctx, ChatUpdate{ChatID: 7, Text: "me too"}))
	assert.Equal(t, 1, f.completer.calls)
	assert.Equal(t, msgBackoffWait(30*time.Minute), f.lastText(t))

	// Blocked messages still consumed their quota slot.
	used, err := f.quota.Used(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, 2, used)
}

func TestBot_HandleUpdate_ToneFlow(t *testing.T) {
	ctx := context.Background()
	f := newTestBot(t, nil)

	require.NoError(t, f.bot.HandleUpdate(ctx, ChatUpdate{ChatID: 42, Text: "/settings_tone formal"}))
	assert.Equal(t, msgToneChanged(settings.ToneFormal), f.lastText(t))

	require.NoError(t, f.bot.HandleUpdate(ctx, ChatUpdate{ChatID: 42, Text: "hello"}))
	require.Equal(t, 1, f.completer.calls)
	assert.Equal(t, settings.ToneFormal, f.completer.tones[0])

	// The stored tone shows up in /settings.
	require.NoError(t, f.bot.HandleUpdate(ctx, ChatUpdate{ChatID: 42, Text: "/settings"}))
	assert.Contains(t, f.lastText(t), "tone: formal")

	// Another chat still gets the default.
	require.NoError(t, f.bot.HandleUpdate(ctx, ChatUpdate{ChatID: 7, Text: "hello"}))
	assert.Equal(t, settings.ToneFriendly, f.completer.tones[1])
}

func TestBot_HandleUpdate_ToneRejected(t *testing.T) {
	ctx := context.Background()
	f := newTestBot(t, nil)

	require.NoError(t, f.bot.HandleUpdate(ctx, ChatUpdate{ChatID: 42, Text: "/settings_tone sarcastic"}))
	assert.Equal(t, msgToneUsage, f.lastText(t))

	require.NoError(t, f.bot.HandleUpdate(ctx, ChatUpdate{ChatID: 42, Text: "/settings_tone"}))
	assert.Equal(t, msgToneUsage, f.lastText(t))

	require.NoError(t, f.bot.HandleUpdate(ctx, ChatUpdate{ChatID: 42, Text: "hello"}))
	assert.Equal(t, settings.ToneFriendly, f.completer.tones[0], "rejected tones leave settings untouched")
}

func TestBot_HandleUpdate_Commands(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "start", text: "/start", want: msgWelcome},
		{name: "help", text: "/help", want: msgHelp},
		{name: "uppercase", text: "/START", want: msgWelcome},
		{name: "group suffix", text: "/help@Codex777Bot", want: msgHelp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestBot(t, nil)
			require.NoError(t, f.bot.HandleUpdate(ctx, ChatUpdate{ChatID: 42, Text: tt.text}))
			assert.Equal(t, tt.want, f.lastText(t))
			assert.Zero(t, f.completer.calls)

			used, err := f.quota.Used(ctx, 42)
			require.NoError(t, err)
			assert.Zero(t, used, "built-in commands are free")
		})
	}
}

func TestBot_HandleUpdate_QuotaCommand(t *testing.T) {
	ctx := context.Background()
	f := newTestBot(t, func(c *Config) { c.DailyMessageLimit = 10 })

	require.NoError(t, f.bot.HandleUpdate(ctx, ChatUpdate{ChatID: 42, Text: "hi"}))
	require.NoError(t, f.bot.HandleUpdate(ctx, ChatUpdate{ChatID: 42, Text: "/quota"}))

	assert.Equal(t, msgQuotaStatus(1, 10), f.lastText(t))

	used, err := f.quota.Used(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, 1, used, "/quota itself is free")
}

func TestBot_HandleUpdate_Debug(t *testing.T) {
	ctx := context.Background()
	f := newTestBot(t, nil)
	f.completer.result = openai.Result{Model: "gpt-5-codex", Answer: "debug answer"}

	require.NoError(t, f.bot.HandleUpdate(ctx, ChatUpdate{ChatID: 42, Text: "/debug say hi"}))
	require.Equal(t, 1, f.completer.calls)
	assert.Equal(t, "say hi", f.completer.prompts[0])

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(f.lastText(t)), &payload), "debug reply is the raw result as JSON")
	assert.Equal(t, "debug answer", payload["answer"])
	assert.Equal(t, "gpt-5-codex", payload["model"])

	used, err := f.quota.Used(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, 1, used, "/debug consumes quota like a plain message")
}

func TestBot_HandleUpdate_DebugWithoutArgs(t *testing.T) {
	ctx := context.Background()
	f := newTestBot(t, nil)

	require.NoError(t, f.bot.HandleUpdate(ctx, ChatUpdate{ChatID: 42, Text: "/debug"}))
	assert.Equal(t, msgDebugUsage, f.lastText(t))
	assert.Zero(t, f.completer.calls)

	used, err := f.quota.Used(ctx, 42)
	require.NoError(t, err)
	assert.Zero(t, used)
}

func TestBot_HandleUpdate_UnknownCommandRelayed(t *testing.T) {
	ctx := context.Background()
	f := newTestBot(t, nil)

	require.NoError(t, f.bot.HandleUpdate(ctx, ChatUpdate{ChatID: 42, Text: "/frobnicate now"}))
	require.Equal(t, 1, f.completer.calls)
	assert.Equal(t, "/frobnicate now", f.completer.prompts[0], "unknown commands go to the model verbatim")
}

func TestBot_HandleUpdate_StoreFailure(t *testing.T) {
	ctx := context.Background()

	store := &failingStore{err: errors.New("connection refused")}
	settingsStore, err := settings.NewStore(store)
	require.NoError(t, err)
	ledger, err := quota.NewLedger(store)
	require.NoError(t, err)
	gate, err := backoff.NewGate(store)
	require.NoError(t, err)

	completer := &fakeCompleter{}
	b, err := New(Config{
		Settings:  settingsStore,
		Quota:     ledger,
		Gate:      gate,
		Completer: completer,
		Messenger: &fakeMessenger{},
	})
	require.NoError(t, err)

	err = b.HandleUpdate(ctx, ChatUpdate{ChatID: 42, Text: "hi"})
	require.Error(t, err)
	assert.Zero(t, completer.calls, "no completion call when the store is down")
}

func TestBot_HandleUpdate_CompleterFailure(t *testing.T) {
	ctx := context.Background()
	f := newTestBot(t, nil)
	f.completer.err = errors.New("request build failed")

	err := f.bot.HandleUpdate(ctx, ChatUpdate{ChatID: 42, Text: "hi"})
	assert.Error(t, err)
}

func TestBot_HandleUpdate_DeliveryFailureDoesNotEscalate(t *testing.T) {
	ctx := context.Background()
	f := newTestBot(t, nil)
	f.messenger.textErr = errors.New("bot was blocked by the user")

	err := f.bot.HandleUpdate(ctx, ChatUpdate{ChatID: 42, Text: "hi"})
	assert.NoError(t, err, "delivery failures are logged, not returned")
}

func TestBot_HandleUpdate_TypingFailureIgnored(t *testing.T) {
	ctx := context.Background()
	f := newTestBot(t, nil)
	f.messenger.actionErr = errors.New("flood control")

	require.NoError(t, f.bot.HandleUpdate(ctx, ChatUpdate{ChatID: 42, Text: "hi"}))
	assert.Equal(t, 1, f.completer.calls, "the pipeline continues past a failed chat action")
	assert.Equal(t, "pong", f.lastText(t))
}

func TestBot_HandleUpdate_VoiceReplies(t *testing.T) {
	ctx := context.Background()
	f := newTestBot(t, func(c *Config) { c.VoiceReplies = true })

	require.NoError(t, f.bot.HandleUpdate(ctx, ChatUpdate{ChatID: 42, Text: "hi"}))

	require.Equal(t, 1, f.voice.calls)
	assert.Equal(t, "pong", f.voice.texts[0], "the delivered answer is what gets synthesized")
	require.Len(t, f.messenger.voices, 1)
	assert.Equal(t, []byte("opus"), f.messenger.voices[0].audio)
	assert.Empty(t, f.messenger.voices[0].caption)

	require.Len(t, f.messenger.texts, 1, "text goes out before and independent of voice")
}

func TestBot_HandleUpdate_VoiceSynthesisFailureSwallowed(t *testing.T) {
	ctx := context.Background()
	f := newTestBot(t, func(c *Config) { c.VoiceReplies = true })
	f.voice.err = errors.New("tts down")

	err := f.bot.HandleUpdate(ctx, ChatUpdate{ChatID: 42, Text: "hi"})
	assert.NoError(t, err)
	assert.Empty(t, f.messenger.voices)
	require.Len(t, f.messenger.texts, 1, "the text reply already went out")
}

func TestBot_HandleUpdate_VoiceUploadFailureSwallowed(t *testing.T) {
	ctx := context.Background()
	f := newTestBot(t, func(c *Config) { c.VoiceReplies = true })
	f.messenger.voiceErr = errors.New("upload rejected")

	err := f.bot.HandleUpdate(ctx, ChatUpdate{ChatID: 42, Text: "hi"})
	assert.NoError(t, err)
}

func TestBot_HandleUpdate_NoVoiceWhenDisabled(t *testing.T) {
	ctx := context.Background()
	f := newTestBot(t, nil)

	require.NoError(t, f.bot.HandleUpdate(ctx, ChatUpdate{ChatID: 42, Text: "hi"}))
	assert.Zero(t, f.voice.calls)
	assert.Empty(t, f.messenger.voices)
}
