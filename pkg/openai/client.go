// Package openai calls the hosted model endpoints: text completion via the
// Responses API and speech synthesis. Upstream failures never surface as
// errors from Complete; they are folded into the result as canned answers
// plus a fault classification, so the pipeline always has something safe to
// deliver.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/ishtar07770/telegram-codex777/pkg/settings"
)

// Canned user-safe answers substituted when the upstream cannot produce one.
const (
	MsgUpstreamQuota = "I've hit my usage limit with the model provider for now. Please try again a bit later."
	MsgUnavailable   = "I'm currently unable to respond. Please try again in a few minutes."
	MsgNoAnswer      = "I didn't get an answer back from the model. Please try again."
	MsgUnreachable   = "I couldn't reach the model provider. Please try again later."
)

// Fault classifies why a completion produced a canned answer
type Fault int

const (
	FaultNone Fault = iota
	// FaultQuotaExhausted means the upstream rejected the call with a
	// rate/quota exhaustion status. The caller trips the backoff gate.
	FaultQuotaExhausted
	// FaultUnavailable covers any other non-success upstream status
	FaultUnavailable
	// FaultNetwork means no response arrived at all
	FaultNetwork
	// FaultEmpty means a success response carried no extractable text
	FaultEmpty
)

func (f Fault) String() string {
	switch f {
	case FaultNone:
		return "none"
	case FaultQuotaExhausted:
		return "quota_exhausted"
	case FaultUnavailable:
		return "unavailable"
	case FaultNetwork:
		return "network"
	case FaultEmpty:
		return "empty"
	}
	return "unknown"
}

// Usage carries the upstream token accounting. TotalTokens is only set when
// the upstream reported both sides of the count.
type Usage struct {
	InputTokens  int  `json:"input_tokens"`
	OutputTokens int  `json:"output_tokens"`
	TotalTokens  *int `json:"total_tokens"`
}

// Meta carries upstream response identifiers
type Meta struct {
	ID         string  `json:"id"`
	Created    int64   `json:"created"`
	StopReason *string `json:"stop_reason"`
}

// Result is one completion outcome. Answer is always usable for delivery,
// canned when Fault is not FaultNone.
type Result struct {
	Model  string `json:"model"`
	Answer string `json:"answer"`
	Usage  Usage  `json:"usage"`
	Meta   Meta   `json:"meta"`
	Fault  Fault  `json:"-"`
}

// Config holds model client configuration
type Config struct {
	// BaseURL is the API root (default: "https://api.openai.com")
	BaseURL string

	// APIKey is sent as a bearer token
	APIKey string

	// Model is the completion model identifier (default: "gpt-5-codex")
	Model string

	// MaxOutputTokens bounds the completion length (default: 1024)
	MaxOutputTokens int

	// VoiceModel is the speech synthesis model (default: "gpt-4o-mini-tts")
	VoiceModel string

	// VoiceName selects the synthesized voice (default: "alloy")
	VoiceName string

	// Timeout bounds each HTTP round trip (default: 90s)
	Timeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		BaseURL:         "https://api.openai.com",
		Model:           "gpt-5-codex",
		MaxOutputTokens: 1024,
		VoiceModel:      "gpt-4o-mini-tts",
		VoiceName:       "alloy",
		Timeout:         90 * time.Second,
	}
}

// Client talks to the model provider
type Client struct {
	config Config
	http   *http.Client
}

// New creates a model client, filling config defaults
func New(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.openai.com"
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Model == "" {
		config.Model = "gpt-5-codex"
	}
	if config.MaxOutputTokens <= 0 {
		config.MaxOutputTokens = 1024
	}
	if config.VoiceModel == "" {
		config.VoiceModel = "gpt-4o-mini-tts"
	}
	if config.VoiceName == "" {
		config.VoiceName = "alloy"
	}
	if config.Timeout <= 0 {
		config.Timeout = 90 * time.Second
	}

	return &Client{
		config: config,
		http:   &http.Client{Timeout: config.Timeout},
	}
}

type contentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type inputMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type responsesRequest struct {
	Model           string         `json:"model"`
	Input           []inputMessage `json:"input"`
	MaxOutputTokens int            `json:"max_output_tokens"`
}

// Complete sends the prompt with a tone-adapted system instruction and
// normalizes whatever comes back into a Result. The only error returned is
// request construction failure; every upstream or transport failure instead
// yields a Result carrying a canned answer and the matching Fault.
func (c *Client) Complete(ctx context.Context, prompt string, tone settings.Tone) (Result, error) {
	body := responsesRequest{
		Model: c.config.Model,
		Input: []inputMessage{
			{Role: "system", Content: []contentPart{{Type: "input_text", Text: Instruction(tone)}}},
			{Role: "user", Content: []contentPart{{Type: "input_text", Text: prompt}}},
		},
		MaxOutputTokens: c.config.MaxOutputTokens,
	}

	b, err := json.Marshal(body)
	if err != nil {
		return Result{}, fmt.Errorf("failed to marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/v1/responses", bytes.NewReader(b))
	if err != nil {
		return Result{}, fmt.Errorf("failed to build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{Model: c.config.Model, Answer: MsgUnreachable, Fault: FaultNetwork}, nil
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{Model: c.config.Model, Answer: MsgUnreachable, Fault: FaultNetwork}, nil
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return Result{Model: c.config.Model, Answer: MsgUpstreamQuota, Fault: FaultQuotaExhausted}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{Model: c.config.Model, Answer: MsgUnavailable, Fault: FaultUnavailable}, nil
	}

	result := Result{
		Model: c.config.Model,
		Usage: parseUsage(raw),
		Meta:  parseMeta(raw),
	}

	answer := extractAnswer(raw)
	if answer == "" {
		result.Answer = MsgNoAnswer
		result.Fault = FaultEmpty
		return result, nil
	}

	result.Answer = answer
	return result, nil
}

// extractAnswer pulls the answer text out of the heterogeneous response
// body: first the top-level convenience field, then the first text-typed
// content part in the structured output list. Empty means no text was
// recoverable by either path.
func extractAnswer(body []byte) string {
	if text := gjson.GetBytes(body, "output_text").String(); strings.TrimSpace(text) != "" {
		return text
	}

	for _, item := range gjson.GetBytes(body, "output").Array() {
		for _, part := range item.Get("content").Array() {
			switch part.Get("type").String() {
			case "output_text", "text":
				if text := part.Get("text").String(); strings.TrimSpace(text) != "" {
					return text
				}
			}
		}
	}

	return ""
}

func parseUsage(body []byte) Usage {
	var u Usage

	in := gjson.GetBytes(body, "usage.input_tokens")
	out := gjson.GetBytes(body, "usage.output_tokens")
	if in.Exists() {
		u.InputTokens = int(in.Int())
	}
	if out.Exists() {
		u.OutputTokens = int(out.Int())
	}
	if in.Exists() && out.Exists() {
		total := u.InputTokens + u.OutputTokens
		u.TotalTokens = &total
	}

	return u
}

func parseMeta(body []byte) Meta {
	m := Meta{
		ID:      gjson.GetBytes(body, "id").String(),
		Created: gjson.GetBytes(body, "created").Int(),
	}

	if sr := gjson.GetBytes(body, "stop_reason"); sr.Exists() {
		reason := sr.String()
		m.StopReason = &reason
	}

	return m
}
