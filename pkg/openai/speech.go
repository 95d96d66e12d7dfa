package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// speechInputLimit is the character ceiling the speech endpoint accepts
const speechInputLimit = 4096

var (
	// ErrEmptySpeechText is returned when there is nothing to synthesize
	ErrEmptySpeechText = errors.New("empty speech text")
)

type speechRequest struct {
	Model          string `json:"model"`
	Voice          string `json:"voice"`
	Input          string `json:"input"`
	ResponseFormat string `json:"response_format"`
}

// Synthesize converts text into compressed (opus) speech audio. Input past
// the endpoint's character ceiling is truncated. Unlike Complete, failures
// here are plain errors; the caller logs and drops the voice reply without
// failing the update.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptySpeechText
	}

	if runes := []rune(text); len(runes) > speechInputLimit {
		text = string(runes[:speechInputLimit])
	}

	body := speechRequest{
		Model:          c.config.VoiceModel,
		Voice:          c.config.VoiceName,
		Input:          text,
		ResponseFormat: "opus",
	}

	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal speech request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/v1/audio/speech", bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("failed to build speech request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("speech request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("speech endpoint returned status %d", resp.StatusCode)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read speech response: %w", err)
	}

	return audio, nil
}
