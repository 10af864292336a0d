package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tareqlive/newsworker/internal/logger"
	"github.com/tareqlive/newsworker/internal/news"
	"github.com/tareqlive/newsworker/internal/retry"
)

const (
	DefaultAPIURL  = "https://api.telegram.org"
	maxMessageLen  = 4096
	DefaultSiteURL = "https://ar.tareq.live"
)

// Sender posts HTML messages to one chat or channel.
type Sender struct {
	token   string
	chatID  string
	apiURL  string
	client  *http.Client
	retries retry.RetryConfig
}

func NewSender(token, chatID string) *Sender {
	return &Sender{
		token:   token,
		chatID:  chatID,
		apiURL:  DefaultAPIURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		retries: retry.RetryConfig{MaxAttempts: 3, Delay: 2 * time.Second, Backoff: true},
	}
}

// WithAPIURL points the sender at another Bot API host.
func (s *Sender) WithAPIURL(u string) *Sender {
	s.apiURL = strings.TrimRight(u, "/")
	return s
}

// SendMessage sends text with retry.
func (s *Sender) SendMessage(ctx context.Context, text string) error {
	attempt := 0
	err := retry.WithRetry(ctx, s.retries, func() error {
		attempt++
		err := s.sendMessageOnce(ctx, text)
		if err != nil {
			logger.Warn("Error sending to Telegram", "attempt", attempt, "error", err)
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("can't send message: %w", err)
	}
	logger.Info("Message sent to Telegram", "attempt", attempt)
	return nil
}

func (s *Sender) sendMessageOnce(ctx context.Context, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", s.apiURL, s.token)

	payload := map[string]interface{}{
		"chat_id":                  s.chatID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error make JSON: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("error HTTP request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API error: status %d", resp.StatusCode)
	}
	return nil
}

// FormatDigest lists persisted articles with links to their site pages.
// Entries that would push the message over Telegram's limit are dropped.
func FormatDigest(articles []news.Persisted, siteURL string) string {
	if siteURL == "" {
		siteURL = DefaultSiteURL
	}
	siteURL = strings.TrimRight(siteURL, "/")

	var b strings.Builder
	b.WriteString("📰 <b>أخبار جديدة على طارق نيوز</b>\n\n")

	footer := fmt.Sprintf("\n🌐 %s", siteURL)
	for i, a := range articles {
		line := fmt.Sprintf("%d. <a href=\"%s/article/%s\">%s</a>\n",
			i+1, siteURL, a.Slug, html.EscapeString(a.Title))
		if utf8.RuneCountInString(b.String())+utf8.RuneCountInString(line)+utf8.RuneCountInString(footer) > maxMessageLen {
			break
		}
		b.WriteString(line)
	}
	b.WriteString(footer)
	return b.String()
}
