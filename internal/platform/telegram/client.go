package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	apperrors "vpn-tool-bot/internal/common/errors"
)

const defaultBaseURL = "https://api.telegram.org"

// Client provides the minimal Telegram Bot API surface used by the bot.
type Client struct {
	httpClient *http.Client
	token      string
	baseURL    string
}

func NewClient(token string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 65 * time.Second},
		token:      token,
		baseURL:    defaultBaseURL,
	}
}

// NewClientWithBaseURL is used by tests to point the client at a fake API.
func NewClientWithBaseURL(token, baseURL string) *Client {
	c := NewClient(token)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

func (c *Client) endpoint(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
}

// SendMessage delivers a plain-text reply to the chat.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	params := url.Values{
		"chat_id": {strconv.FormatInt(chatID, 10)},
		"text":    {text},
	}

	var result tgResponse[json.RawMessage]
	if err := c.makeRequest(ctx, http.MethodPost, c.endpoint("sendMessage"), params, &result); err != nil {
		return apperrors.NewTelegramAPIError("sendMessage", err)
	}
	if !result.Ok {
		return apperrors.NewTelegramAPIError("sendMessage", fmt.Errorf("telegram API error: %s", result.Description))
	}
	return nil
}

// SendDocument uploads the file at path to the chat under the given display
// name (multipart/form-data, the only Bot API call that is not form-encoded).
func (c *Client) SendDocument(ctx context.Context, chatID int64, path, filename string) error {
	f, err := os.Open(path)
	if err != nil {
		return apperrors.NewTelegramAPIError("sendDocument", err)
	}
	defer f.Close()

	if filename == "" {
		filename = filepath.Base(path)
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if err := w.WriteField("chat_id", strconv.FormatInt(chatID, 10)); err != nil {
		return apperrors.NewTelegramAPIError("sendDocument", err)
	}
	part, err := w.CreateFormFile("document", filename)
	if err != nil {
		return apperrors.NewTelegramAPIError("sendDocument", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return apperrors.NewTelegramAPIError("sendDocument", err)
	}
	if err := w.Close(); err != nil {
		return apperrors.NewTelegramAPIError("sendDocument", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("sendDocument"), &body)
	if err != nil {
		return apperrors.NewTelegramAPIError("sendDocument", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.NewTelegramAPIError("sendDocument", err)
	}
	defer resp.Body.Close()

	var result tgResponse[json.RawMessage]
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return apperrors.NewTelegramAPIError("sendDocument", err)
	}
	if !result.Ok {
		return apperrors.NewTelegramAPIError("sendDocument", fmt.Errorf("telegram API error: %s", result.Description))
	}
	return nil
}

// CheckMembership reports whether the user currently belongs to the chat.
// Queried live on every call; the result must not be cached, access can be
// revoked between requests.
func (c *Client) CheckMembership(ctx context.Context, chatID string, userID int64) (bool, error) {
	params := url.Values{
		"chat_id": {chatID},
		"user_id": {strconv.FormatInt(userID, 10)},
	}

	var result tgResponse[ChatMember]
	if err := c.makeRequest(ctx, http.MethodGet, c.endpoint("getChatMember"), params, &result); err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	if !result.Ok {
		return false, fmt.Errorf("telegram API error: %s", result.Description)
	}

	switch result.Result.Status {
	case "creator", "administrator", "member", "restricted":
		return true, nil
	}
	return false, nil
}

// GetUpdates long-polls for new updates starting at offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	params := url.Values{
		"offset":  {strconv.FormatInt(offset, 10)},
		"timeout": {strconv.Itoa(int(timeout.Seconds()))},
	}

	var result tgResponse[[]Update]
	if err := c.makeRequest(ctx, http.MethodGet, c.endpoint("getUpdates"), params, &result); err != nil {
		return nil, fmt.Errorf("failed to get updates: %w", err)
	}
	if !result.Ok {
		return nil, fmt.Errorf("telegram API error: %s", result.Description)
	}
	return result.Result, nil
}

// SetWebhook registers webhookURL for push delivery of updates.
func (c *Client) SetWebhook(ctx context.Context, webhookURL string) error {
	params := url.Values{"url": {webhookURL}}

	var result tgResponse[bool]
	if err := c.makeRequest(ctx, http.MethodPost, c.endpoint("setWebhook"), params, &result); err != nil {
		return apperrors.NewTelegramAPIError("setWebhook", err)
	}
	if !result.Ok {
		return apperrors.NewTelegramAPIError("setWebhook", fmt.Errorf("telegram API error: %s", result.Description))
	}
	return nil
}

// DeleteWebhook removes a previously registered webhook so long polling
// can take over update delivery.
func (c *Client) DeleteWebhook(ctx context.Context) error {
	var result tgResponse[bool]
	if err := c.makeRequest(ctx, http.MethodPost, c.endpoint("deleteWebhook"), url.Values{}, &result); err != nil {
		return apperrors.NewTelegramAPIError("deleteWebhook", err)
	}
	if !result.Ok {
		return apperrors.NewTelegramAPIError("deleteWebhook", fmt.Errorf("telegram API error: %s", result.Description))
	}
	return nil
}

func (c *Client) makeRequest(ctx context.Context, method, endpoint string, data url.Values, out any) error {
	var req *http.Request
	var err error
	if method == http.MethodPost {
		req, err = http.NewRequestWithContext(ctx, method, endpoint, strings.NewReader(data.Encode()))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		if len(data) > 0 {
			endpoint = endpoint + "?" + data.Encode()
		}
		req, err = http.NewRequestWithContext(ctx, method, endpoint, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
