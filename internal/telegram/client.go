package telegram

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// APIError is a failure reported by the Bot API itself (ok=false).
type APIError struct {
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram: %d %s", e.Code, e.Description)
}

// Retryable reports whether the failure class is worth another attempt.
// Permission problems never clear up on retry; rate limits and server
// errors can.
func (e *APIError) Retryable() bool {
	if e.Code == http.StatusTooManyRequests || e.Code >= 500 {
		return true
	}
	desc := strings.ToLower(e.Description)
	if strings.Contains(desc, "rights") || strings.Contains(desc, "not enough") ||
		strings.Contains(desc, "forbidden") || strings.Contains(desc, "administrator") {
		return false
	}
	return e.Code != http.StatusBadRequest
}

type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
}

func NewClient(token string) *Client {
	return &Client{
		token:      token,
		httpClient: &http.Client{Timeout: 65 * time.Second},
		baseURL:    fmt.Sprintf("https://api.telegram.org/bot%s", token),
	}
}

func (c *Client) call(method string, payload interface{}) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	resp, err := c.httpClient.Post(c.baseURL+"/"+method, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("http: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	var apiResp APIResponse
	if err := json.Unmarshal(data, &apiResp); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}

	if !apiResp.OK {
		return nil, &APIError{Code: apiResp.ErrorCode, Description: apiResp.Description}
	}

	return apiResp.Result, nil
}

// SendMessage sends text to a chat, optionally as a reply, and returns the
// new message id.
func (c *Client) SendMessage(chatID int64, text string, replyTo int64) (int64, error) {
	req := SendMessageRequest{
		ChatID:           chatID,
		Text:             text,
		ReplyToMessageID: replyTo,
	}

	result, err := c.call("sendMessage", req)
	if err != nil {
		return 0, err
	}

	var msg MessageResult
	if err := json.Unmarshal(result, &msg); err != nil {
		return 0, fmt.Errorf("unmarshal message: %w", err)
	}
	return msg.MessageID, nil
}

func (c *Client) DeleteMessage(chatID, messageID int64) error {
	_, err := c.call("deleteMessage", DeleteMessageRequest{ChatID: chatID, MessageID: messageID})
	return err
}

func (c *Client) GetChatMember(chatID, userID int64) (*ChatMember, error) {
	result, err := c.call("getChatMember", GetChatMemberRequest{ChatID: chatID, UserID: userID})
	if err != nil {
		return nil, err
	}

	var member ChatMember
	if err := json.Unmarshal(result, &member); err != nil {
		return nil, fmt.Errorf("unmarshal member: %w", err)
	}
	return &member, nil
}

// PromoteChatMember grants only can_invite_users. The promotion exists
// purely to unlock the custom-title slot for the user.
func (c *Client) PromoteChatMember(chatID, userID int64) error {
	req := PromoteChatMemberRequest{
		ChatID:         chatID,
		UserID:         userID,
		CanInviteUsers: true,
	}
	_, err := c.call("promoteChatMember", req)
	return err
}

func (c *Client) SetChatAdministratorCustomTitle(chatID, userID int64, title string) error {
	req := SetCustomTitleRequest{ChatID: chatID, UserID: userID, CustomTitle: title}
	_, err := c.call("setChatAdministratorCustomTitle", req)
	return err
}

func (c *Client) SetWebhook(url, secretToken string) error {
	req := SetWebhookRequest{
		URL:            url,
		SecretToken:    secretToken,
		AllowedUpdates: []string{"message", "message_reaction"},
	}
	_, err := c.call("setWebhook", req)
	return err
}

func (c *Client) DeleteWebhook() error {
	_, err := c.call("deleteWebhook", struct{}{})
	return err
}

// GetUpdates long-polls the Bot API. Used when no webhook URL is configured.
func (c *Client) GetUpdates(offset int64, timeout int) ([]Update, error) {
	req := GetUpdatesRequest{
		Offset:         offset,
		Timeout:        timeout,
		AllowedUpdates: []string{"message", "message_reaction"},
	}

	result, err := c.call("getUpdates", req)
	if err != nil {
		return nil, err
	}

	var updates []Update
	if err := json.Unmarshal(result, &updates); err != nil {
		return nil, fmt.Errorf("unmarshal updates: %w", err)
	}
	return updates, nil
}

// IsRetryable classifies an error from any client call.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	// Network-level failures are transient by assumption.
	return true
}
