// Package botapi is the outbound edge of the bot: it delivers prompts,
// reports and files to chats. The conversation layer depends only on the
// Sender interface; delivery failures come back as ordinary errors so the
// caller can decide whether they matter (report fan-out is best-effort,
// for example).
package botapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"
)

// Button is one inline choice under a message. Token is the opaque
// callback payload the transport echoes back when the button is pressed.
type Button struct {
	Label string `json:"text"`
	Token string `json:"callback_data"`
}

// Sender delivers outbound messages to a single recipient chat.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string, buttons [][]Button) error
	SendDocument(ctx context.Context, chatID int64, filename string, data []byte, caption string) error
}

// Client talks to a Telegram-style bot API over HTTP.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL: baseURL,
		Token:   token,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) method(name string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.BaseURL, c.Token, name)
}

type sendMessageReq struct {
	ChatID      int64        `json:"chat_id"`
	Text        string       `json:"text"`
	ReplyMarkup *replyMarkup `json:"reply_markup,omitempty"`
}

type replyMarkup struct {
	InlineKeyboard [][]Button `json:"inline_keyboard"`
}

func (c *Client) SendText(ctx context.Context, chatID int64, text string, buttons [][]Button) error {
	body := sendMessageReq{ChatID: chatID, Text: text}
	if len(buttons) > 0 {
		body.ReplyMarkup = &replyMarkup{InlineKeyboard: buttons}
	}
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.method("sendMessage"), bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) SendDocument(ctx context.Context, chatID int64, filename string, data []byte, caption string) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("chat_id", strconv.FormatInt(chatID, 10)); err != nil {
		return err
	}
	if caption != "" {
		if err := w.WriteField("caption", caption); err != nil {
			return err
		}
	}
	part, err := w.CreateFormFile("document", filename)
	if err != nil {
		return err
	}
	if _, err := part.Write(data); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.method("sendDocument"), &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return c.do(req)
}

func (c *Client) do(req *http.Request) error {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("send to chat: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("bot api %s: %s", resp.Status, snippet)
	}
	return nil
}

// LogSender writes outbound messages to the process log instead of a
// chat. Used when BOT_API_URL is not configured (local development).
type LogSender struct{}

func (LogSender) SendText(_ context.Context, chatID int64, text string, buttons [][]Button) error {
	log.Printf("send[%d]: %s (buttons=%d rows)", chatID, text, len(buttons))
	return nil
}

func (LogSender) SendDocument(_ context.Context, chatID int64, filename string, data []byte, caption string) error {
	log.Printf("send[%d]: document %s (%d bytes) %s", chatID, filename, len(data), caption)
	return nil
}
