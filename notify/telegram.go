package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"immo-scraper/utils"
)

// MaxMessageLength is the longest text sent in one message; longer texts
// are cut.
const MaxMessageLength = 4000

// Delivery is the outcome of one sendMessage call.
type Delivery struct {
	ChatID      string
	OK          bool
	StatusCode  int
	Description string
	Err         error
}

func (d Delivery) String() string {
	switch {
	case d.Err != nil:
		return fmt.Sprintf("chat %s: error: %v", d.ChatID, d.Err)
	case d.OK:
		return fmt.Sprintf("chat %s: ok", d.ChatID)
	default:
		return fmt.Sprintf("chat %s: %d %s", d.ChatID, d.StatusCode, d.Description)
	}
}

// Telegram sends Markdown messages through the Bot API.
type Telegram struct {
	client      *http.Client
	endpoint    string
	workers     int
	rateLimitMs int
	logger      *utils.Logger
}

// NewTelegram builds a client for the bot token. baseURL is the API prefix
// the token is appended to, usually https://api.telegram.org/bot.
func NewTelegram(client *http.Client, baseURL, token string, workers, rateLimitMs int, logger *utils.Logger) *Telegram {
	if client == nil {
		client = &http.Client{}
	}
	return &Telegram{
		client:      client,
		endpoint:    baseURL + token + "/sendMessage",
		workers:     workers,
		rateLimitMs: rateLimitMs,
		logger:      logger,
	}
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Send delivers text to every recipient, one request each. Results are in
// recipient order. Failures are reported, never returned as an error.
func (t *Telegram) Send(ctx context.Context, text string, recipients []string) []Delivery {
	text = truncate(text, MaxMessageLength)
	out := make([]Delivery, len(recipients))

	pool := utils.NewWorkerPool(t.workers, t.rateLimitMs)
	for i, chatID := range recipients {
		i, chatID := i, chatID
		err := pool.Submit(ctx, func() {
			out[i] = t.sendOne(ctx, chatID, text)
		})
		if err != nil {
			out[i] = Delivery{ChatID: chatID, Err: fmt.Errorf("telegram: %w", err)}
		}
	}
	pool.Wait()

	for _, d := range out {
		if d.Err != nil || !d.OK {
			t.logger.Warn("[telegram] Delivery failed: %s", d)
		}
	}
	return out
}

func (t *Telegram) sendOne(ctx context.Context, chatID, text string) Delivery {
	d := Delivery{ChatID: chatID}

	body, err := json.Marshal(sendMessageRequest{ChatID: chatID, Text: text, ParseMode: "Markdown"})
	if err != nil {
		d.Err = fmt.Errorf("telegram: encode: %w", err)
		return d
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		d.Err = fmt.Errorf("telegram: build request: %w", err)
		return d
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		// The URL carries the bot token; keep it out of logs.
		d.Err = fmt.Errorf("telegram: send: %w", redact(err))
		return d
	}
	defer resp.Body.Close()

	d.StatusCode = resp.StatusCode
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		d.Err = fmt.Errorf("telegram: read response: %w", err)
		return d
	}
	var ar apiResponse
	if err := json.Unmarshal(raw, &ar); err != nil {
		d.Description = strings.TrimSpace(string(raw))
		return d
	}
	d.OK = ar.OK && resp.StatusCode == http.StatusOK
	d.Description = ar.Description
	return d
}

// truncate cuts s to at most max runes, at the last line break when there
// is one, so Markdown entities are not split.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	cut := string(r[:max])
	if i := strings.LastIndexByte(cut, '\n'); i > 0 {
		return cut[:i]
	}
	return cut
}

// redact drops the request URL from transport errors.
func redact(err error) error {
	var uErr *url.Error
	if errors.As(err, &uErr) {
		return errors.New(uErr.Op + ": " + uErr.Err.Error())
	}
	return err
}
