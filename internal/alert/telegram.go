package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"frostwatch/internal/external"
	"frostwatch/internal/types"
)

// maxTelegramResponseRead limits how much of an error response body is read
// for diagnostics.
const maxTelegramResponseRead = 4096

// TelegramClient delivers messages through the Telegram Bot API. All calls
// go through the shared BaseClient for retries and circuit breaking.
type TelegramClient struct {
	base    *external.BaseClient
	baseURL string
	token   string
}

// NewTelegramClient creates a TelegramClient. baseURL is the API root
// (normally https://api.telegram.org) and token the bot credential.
func NewTelegramClient(base *external.BaseClient, baseURL, token string) (*TelegramClient, error) {
	if base == nil {
		return nil, fmt.Errorf("telegram client: base client is nil")
	}
	if token == "" {
		return nil, fmt.Errorf("telegram client: token is empty")
	}
	return &TelegramClient{
		base:    base,
		baseURL: baseURL,
		token:   token,
	}, nil
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Send posts one message to one chat via the sendMessage method.
func (c *TelegramClient) Send(ctx context.Context, chatID, text string) error {
	payload, err := json.Marshal(sendMessageRequest{ChatID: chatID, Text: text})
	if err != nil {
		return types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to encode telegram payload",
			err,
		)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to build telegram request",
			err,
		)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.base.Do(req)
	if err != nil {
		return types.NewAppError(
			types.ErrCodeUpstreamTelegram,
			"telegram delivery failed",
			err,
		)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxTelegramResponseRead))

	if resp.StatusCode != http.StatusOK {
		return types.NewAppErrorWithDetails(
			types.ErrCodeUpstreamTelegram,
			fmt.Sprintf("telegram returned status %d", resp.StatusCode),
			nil,
			map[string]any{"body": string(body)},
		)
	}

	var parsed sendMessageResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return types.NewAppError(
			types.ErrCodeUpstreamTelegram,
			"telegram returned an unparseable response",
			err,
		)
	}
	if !parsed.OK {
		return types.NewAppErrorWithDetails(
			types.ErrCodeUpstreamTelegram,
			"telegram rejected the message",
			nil,
			map[string]any{"description": parsed.Description},
		)
	}

	return nil
}
