// Package telegram implements outbound delivery over the Telegram Bot API:
// chunked text messages, voice notes as multipart uploads, and chat actions.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultChunkSize is the per-message rune ceiling for chunked text
// delivery, kept safely under the Bot API's 4096-character limit.
const DefaultChunkSize = 4000

// Config holds Telegram client configuration
type Config struct {
	// Token is the bot token
	Token string

	// BaseURL is the Bot API root (default: "https://api.telegram.org")
	BaseURL string

	// ChunkSize is the per-message rune ceiling (default: DefaultChunkSize)
	ChunkSize int

	// Timeout bounds each HTTP round trip (default: 30s)
	Timeout time.Duration
}

// Client sends requests to the Telegram Bot API
type Client struct {
	config Config
	http   *http.Client
}

// New creates a Telegram client, filling config defaults
func New(config Config) (*Client, error) {
	if config.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://api.telegram.org"
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.ChunkSize <= 0 {
		config.ChunkSize = DefaultChunkSize
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	return &Client{
		config: config,
		http:   &http.Client{Timeout: config.Timeout},
	}, nil
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
}

// call POSTs a JSON body to a Bot API method and checks the ok envelope
func (c *Client) call(ctx context.Context, method string, body any) (json.RawMessage, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s request: %w", method, err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.config.BaseURL, c.config.Token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", method, err)
	}

	var out apiResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", method, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !out.OK {
		desc := strings.TrimSpace(out.Description)
		if desc == "" {
			desc = fmt.Sprintf("http %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("telegram %s: %s", method, desc)
	}

	return out.Result, nil
}

type sendMessageRequest struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

// SendMessage delivers a single text message
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	_, err := c.call(ctx, "sendMessage", sendMessageRequest{ChatID: chatID, Text: text})
	return err
}

// SendResult records the outcome of one chunk delivery
type SendResult struct {
	Index  int
	Length int
	Err    error
}

// SendText splits text into fixed-size chunks and delivers each as an
// independent message, in order. A failed chunk never aborts the rest;
// the caller decides what to do with the per-chunk outcomes.
func (c *Client) SendText(ctx context.Context, chatID int64, text string) []SendResult {
	chunks := SplitChunks(text, c.config.ChunkSize)

	results := make([]SendResult, 0, len(chunks))
	for i, chunk := range chunks {
		err := c.SendMessage(ctx, chatID, chunk)
		results = append(results, SendResult{
			Index:  i,
			Length: len([]rune(chunk)),
			Err:    err,
		})
	}

	return results
}

// SendVoice uploads audio as a voice note with an optional caption
func (c *Client) SendVoice(ctx context.Context, chatID int64, audio []byte, caption string) error {
	if len(audio) == 0 {
		return fmt.Errorf("empty audio payload")
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if err := mw.WriteField("chat_id", strconv.FormatInt(chatID, 10)); err != nil {
		return fmt.Errorf("failed to write chat_id field: %w", err)
	}
	if caption = strings.TrimSpace(caption); caption != "" {
		if err := mw.WriteField("caption", caption); err != nil {
			return fmt.Errorf("failed to write caption field: %w", err)
		}
	}

	part, err := mw.CreateFormFile("voice", "voice.ogg")
	if err != nil {
		return fmt.Errorf("failed to create voice part: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return fmt.Errorf("failed to write voice payload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendVoice", c.config.BaseURL, c.config.Token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return fmt.Errorf("failed to build sendVoice request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sendVoice request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read sendVoice response: %w", err)
	}

	var out apiResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("failed to decode sendVoice response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !out.OK {
		desc := strings.TrimSpace(out.Description)
		if desc == "" {
			desc = fmt.Sprintf("http %d", resp.StatusCode)
		}
		return fmt.Errorf("telegram sendVoice: %s", desc)
	}

	return nil
}

type sendChatActionRequest struct {
	ChatID int64  `json:"chat_id"`
	Action string `json:"action"`
}

// SendChatAction shows a status indicator (for example "typing") in the chat
func (c *Client) SendChatAction(ctx context.Context, chatID int64, action string) error {
	_, err := c.call(ctx, "sendChatAction", sendChatActionRequest{ChatID: chatID, Action: action})
	return err
}

// SplitChunks slices text into consecutive rune windows of at most size.
// Nothing is trimmed or dropped: concatenating the chunks reconstructs the
// input exactly. Empty input yields no chunks.
func SplitChunks(text string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	chunks := make([]string, 0, (len(runes)+size-1)/size)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}

	return chunks
}
