// Package bot wires the message-processing pipeline: command routing, quota
// accounting, the upstream backoff gate, completion, and chunked delivery
// back to the chat. The webhook gateway in this package is the only HTTP
// entry point.
package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ishtar07770/telegram-codex777/pkg/backoff"
	"github.com/ishtar07770/telegram-codex777/pkg/openai"
	"github.com/ishtar07770/telegram-codex777/pkg/quota"
	"github.com/ishtar07770/telegram-codex777/pkg/settings"
	"github.com/ishtar07770/telegram-codex777/pkg/telegram"
)

// ChatUpdate is the part of an inbound update the pipeline consumes
type ChatUpdate struct {
	ChatID int64
	Text   string
}

// CompletionClient produces an answer for a prompt. Upstream failures are
// folded into the result; an error means the call could not be attempted.
type CompletionClient interface {
	Complete(ctx context.Context, prompt string, tone settings.Tone) (openai.Result, error)
}

// VoiceSynthesizer converts an answer into speech audio
type VoiceSynthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Messenger delivers replies to the chat platform
type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string) []telegram.SendResult
	SendVoice(ctx context.Context, chatID int64, audio []byte, caption string) error
	SendChatAction(ctx context.Context, chatID int64, action string) error
}

// Config holds the bot's collaborators and tunables
type Config struct {
	// Settings is the per-chat preferences store (required)
	Settings *settings.Store

	// Quota is the daily message ledger (required)
	Quota *quota.Ledger

	// Gate is the shared upstream backoff gate (required)
	Gate *backoff.Gate

	// Completer produces answers (required)
	Completer CompletionClient

	// Messenger delivers replies (required)
	Messenger Messenger

	// Voice synthesizes speech replies; required when VoiceReplies is set
	Voice VoiceSynthesizer

	// WebhookPath is the inbound update route (default: "/webhook")
	WebhookPath string

	// WebhookSecret, when set, must match the secret token header on
	// every webhook delivery
	WebhookSecret string

	// DailyMessageLimit is the per-chat daily cap (default: 50)
	DailyMessageLimit int

	// BackoffCooldown is how long completion calls stay suppressed after
	// the upstream reports exhaustion (default: 30m)
	BackoffCooldown time.Duration

	// VoiceReplies also delivers answers as synthesized voice notes
	VoiceReplies bool

	// Logger is optional; defaults to NoopLogger
	Logger Logger

	// Metrics is optional; defaults to NoopMetrics
	Metrics Metrics
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.Settings == nil {
		return fmt.Errorf("settings store is required")
	}
	if c.Quota == nil {
		return fmt.Errorf("quota ledger is required")
	}
	if c.Gate == nil {
		return fmt.Errorf("backoff gate is required")
	}
	if c.Completer == nil {
		return fmt.Errorf("completion client is required")
	}
	if c.Messenger == nil {
		return fmt.Errorf("messenger is required")
	}
	if c.VoiceReplies && c.Voice == nil {
		return fmt.Errorf("voice synthesizer is required when voice replies are enabled")
	}
	if c.WebhookPath != "" && (!strings.HasPrefix(c.WebhookPath, "/") || c.WebhookPath == "/") {
		return fmt.Errorf("webhook path must start with / and not be the root")
	}
	return nil
}

// Bot orchestrates one update at a time. It keeps no in-process state
// across updates; everything shared lives in the key-value store.
type Bot struct {
	config  Config
	logger  Logger
	metrics Metrics
}

// New creates a bot with the given configuration
func New(config Config) (*Bot, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if config.WebhookPath == "" {
		config.WebhookPath = "/webhook"
	}
	if config.DailyMessageLimit <= 0 {
		config.DailyMessageLimit = 50
	}
	if config.BackoffCooldown <= 0 {
		config.BackoffCooldown = 30 * time.Minute
	}

	b := &Bot{
		config:  config,
		logger:  config.Logger,
		metrics: config.Metrics,
	}
	if b.logger == nil {
		b.logger = &NoopLogger{}
	}
	if b.metrics == nil {
		b.metrics = &NoopMetrics{}
	}

	return b, nil
}

// HandleUpdate runs the pipeline for one inbound update. A returned error
// means a collaborator failed unexpectedly (store or request construction);
// user-visible outcomes like quota exhaustion or upstream faults are
// handled inside and return nil.
func (b *Bot) HandleUpdate(ctx context.Context, upd ChatUpdate) error {
	text := strings.TrimSpace(upd.Text)
	if text == "" {
		b.logger.Debug("ignoring empty message", Field{Key: "chat_id", Value: upd.ChatID})
		return nil
	}

	cmd, args := splitCommand(text)
	switch cmd {
	case cmdStart:
		b.metrics.RecordUpdate("start")
		b.deliverText(ctx, upd.ChatID, msgWelcome)
		return nil

	case cmdHelp:
		b.metrics.RecordUpdate("help")
		b.deliverText(ctx, upd.ChatID, msgHelp)
		return nil

	case cmdSettings:
		b.metrics.RecordUpdate("settings")
		return b.handleSettings(ctx, upd.ChatID)

	case cmdSettingsTone:
		b.metrics.RecordUpdate("settings_tone")
		return b.handleSettingsTone(ctx, upd.ChatID, args)

	case cmdQuota:
		b.metrics.RecordUpdate("quota")
		return b.handleQuota(ctx, upd.ChatID)

	case cmdDebug:
		b.metrics.RecordUpdate("debug")
		if args == "" {
			b.deliverText(ctx, upd.ChatID, msgDebugUsage)
			return nil
		}
		return b.answer(ctx, upd.ChatID, args, true)

	default:
		b.metrics.RecordUpdate("message")
		return b.answer(ctx, upd.ChatID, text, false)
	}
}

// answer runs the quota-gated completion path shared by plain messages and
// /debug. Order matters: the quota check precedes the backoff check, which
// precedes the completion call, which precedes delivery.
func (b *Bot) answer(ctx context.Context, chatID int64, prompt string, debug bool) error {
	used, allowed, err := b.config.Quota.CheckAndConsume(ctx, chatID, b.config.DailyMessageLimit)
	if err != nil {
		return err
	}
	if !allowed {
		b.metrics.RecordQuotaDenied()
		b.logger.Info("daily quota exhausted",
			Field{Key: "chat_id", Value: chatID},
			Field{Key: "used", Value: used})
		b.deliverText(ctx, chatID, msgQuotaExhausted(used, b.config.DailyMessageLimit))
		return nil
	}

	blocked, remaining, err := b.config.Gate.Blocked(ctx)
	if err != nil {
		return err
	}
	if blocked {
		b.metrics.RecordBackoff("blocked")
		b.logger.Info("upstream backoff active",
			Field{Key: "chat_id", Value: chatID},
			Field{Key: "remaining", Value: remaining.String()})
		b.deliverText(ctx, chatID, msgBackoffWait(remaining))
		return nil
	}

	us, err := b.config.Settings.Get(ctx, chatID)
	if err != nil {
		return err
	}

	if err := b.config.Messenger.SendChatAction(ctx, chatID, "typing"); err != nil {
		b.logger.Debug("failed to send typing action",
			Field{Key: "chat_id", Value: chatID},
			Field{Key: "error", Value: err.Error()})
	}

	start := time.Now()
	result, err := b.config.Completer.Complete(ctx, prompt, us.Tone)
	if err != nil {
		return err
	}
	b.metrics.RecordCompletion(result.Fault.String(), time.Since(start))

	if result.Fault != openai.FaultNone {
		b.logger.Warn("completion fell back to canned answer",
			Field{Key: "chat_id", Value: chatID},
			Field{Key: "fault", Value: result.Fault.String()})
	}
	if result.Fault == openai.FaultQuotaExhausted {
		b.metrics.RecordBackoff("tripped")
		if err := b.config.Gate.Trip(ctx, b.config.BackoffCooldown); err != nil {
			b.logger.Error("failed to trip backoff gate",
				Field{Key: "error", Value: err.Error()})
		}
	}

	if debug {
		payload, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to serialize debug result: %w", err)
		}
		b.deliverText(ctx, chatID, string(payload))
		return nil
	}

	b.deliverText(ctx, chatID, result.Answer)

	if b.config.VoiceReplies && b.config.Voice != nil {
		b.deliverVoice(ctx, chatID, result.Answer)
	}

	return nil
}

func (b *Bot) handleSettings(ctx context.Context, chatID int64) error {
	us, err := b.config.Settings.Get(ctx, chatID)
	if err != nil {
		return err
	}

	b.deliverText(ctx, chatID, msgSettings(us))
	return nil
}

func (b *Bot) handleSettingsTone(ctx context.Context, chatID int64, args string) error {
	tone, err := settings.ParseTone(args)
	if err != nil {
		b.deliverText(ctx, chatID, msgToneUsage)
		return nil
	}

	if err := b.config.Settings.SetTone(ctx, chatID, tone); err != nil {
		return err
	}

	b.logger.Info("tone changed",
		Field{Key: "chat_id", Value: chatID},
		Field{Key: "tone", Value: string(tone)})
	b.deliverText(ctx, chatID, msgToneChanged(tone))
	return nil
}

func (b *Bot) handleQuota(ctx context.Context, chatID int64) error {
	used, err := b.config.Quota.Used(ctx, chatID)
	if err != nil {
		return err
	}

	b.deliverText(ctx, chatID, msgQuotaStatus(used, b.config.DailyMessageLimit))
	return nil
}

// deliverText sends chunked text best-effort: failed chunks are logged and
// counted, later chunks still go out, and nothing escalates.
func (b *Bot) deliverText(ctx context.Context, chatID int64, text string) {
	for _, res := range b.config.Messenger.SendText(ctx, chatID, text) {
		b.metrics.RecordDelivery("text", res.Err != nil)
		if res.Err != nil {
			b.logger.Error("failed to deliver text chunk",
				Field{Key: "chat_id", Value: chatID},
				Field{Key: "chunk", Value: res.Index},
				Field{Key: "error", Value: res.Err.Error()})
		}
	}
}

// deliverVoice synthesizes and sends a voice note. Failures are logged and
// swallowed; the text answer has already been delivered.
func (b *Bot) deliverVoice(ctx context.Context, chatID int64, text string) {
	audio, err := b.config.Voice.Synthesize(ctx, text)
	if err != nil {
		b.metrics.RecordDelivery("voice", true)
		b.logger.Warn("voice synthesis failed",
			Field{Key: "chat_id", Value: chatID},
			Field{Key: "error", Value: err.Error()})
		return
	}

	if err := b.config.Messenger.SendVoice(ctx, chatID, audio, ""); err != nil {
		b.metrics.RecordDelivery("voice", true)
		b.logger.Warn("failed to deliver voice reply",
			Field{Key: "chat_id", Value: chatID},
			Field{Key: "error", Value: err.Error()})
		return
	}

	b.metrics.RecordDelivery("voice", false)
}
