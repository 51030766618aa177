package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"vendara-integration/internal/platform/config"
)

// SendError is a definitive provider rejection. The send worker records it on
// the message instead of retrying.
type SendError struct {
	StatusCode int
	Detail     string
}

func (e *SendError) Error() string {
	return fmt.Sprintf("provider rejected send (HTTP %d): %s", e.StatusCode, e.Detail)
}

// Client talks to the WhatsApp Business Cloud API send endpoint.
type Client struct {
	baseURL       string
	phoneNumberID string
	accessToken   string
	httpClient    *http.Client
}

func NewClient(cfg config.WhatsAppConfig) *Client {
	timeout := cfg.SendTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:       strings.TrimRight(cfg.APIBaseURL, "/"),
		phoneNumberID: cfg.PhoneNumberID,
		accessToken:   cfg.AccessToken,
		httpClient:    &http.Client{Timeout: timeout},
	}
}

type sendRequest struct {
	MessagingProduct string      `json:"messaging_product"`
	To               string      `json:"to"`
	Type             string      `json:"type"`
	Text             textPayload `json:"text"`
}

type textPayload struct {
	Body string `json:"body"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// SendText submits a text message and returns the provider-assigned message
// id. A 4xx answer comes back as *SendError; transport failures and 5xx are
// plain errors the caller may retry.
func (c *Client) SendText(ctx context.Context, recipient, body string) (string, error) {
	payload, err := json.Marshal(sendRequest{
		MessagingProduct: "whatsapp",
		To:               recipient,
		Type:             "text",
		Text:             textPayload{Body: body},
	})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read send response: %w", err)
	}

	var parsed sendResponse
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			return "", fmt.Errorf("parse send response: %w", err)
		}
		if len(parsed.Messages) == 0 || parsed.Messages[0].ID == "" {
			return "", errors.New("provider response carried no message id")
		}
		return parsed.Messages[0].ID, nil
	}

	detail := http.StatusText(resp.StatusCode)
	if json.Unmarshal(respBody, &parsed) == nil && parsed.Error != nil {
		detail = parsed.Error.Message
	}

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return "", &SendError{StatusCode: resp.StatusCode, Detail: detail}
	}
	return "", fmt.Errorf("provider send failed (HTTP %d): %s", resp.StatusCode, detail)
}
