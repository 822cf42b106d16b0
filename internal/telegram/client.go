// Package telegram pushes value alerts to a Telegram chat when an analysis
// finds an undervalued market. Delivery uses MarkdownV2 with bounded retry;
// a failed alert never affects the analysis result itself.
package telegram

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rewired-gh/pitchoracle/internal/models"
)

// Client handles Telegram value-alert notifications.
type Client struct {
	bot            *tgbotapi.BotAPI
	chatID         int64
	minEdge        float64
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient creates a new Telegram client. minEdge is the smallest edge, in
// percentage points, worth alerting on.
func NewClient(botToken, chatID string, minEdge float64, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Client{
		bot:            bot,
		chatID:         chatIDInt,
		minEdge:        minEdge,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}, nil
}

// ShouldAlert reports whether a verdict clears the alert bar: the market is
// judged undervalued and the edge meets the configured floor.
func (c *Client) ShouldAlert(v *models.Verdict) bool {
	return v.ValueAssessment.Status == models.StatusUndervalued &&
		v.ValueAssessment.EdgePercent >= c.minEdge
}

// SendAlert delivers a value alert for a completed verdict.
func (c *Client) SendAlert(event models.Event, market models.Market, v *models.Verdict) error {
	msg := tgbotapi.NewMessage(c.chatID, formatAlert(event, market, v))
	msg.ParseMode = "MarkdownV2"
	msg.DisableWebPagePreview = true

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		_, err := c.bot.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err
		time.Sleep(c.retryDelayBase * time.Duration(i+1))
	}

	return fmt.Errorf("failed to send alert after %d retries: %w", c.maxRetries, lastErr)
}

// formatAlert renders the verdict into a MarkdownV2 message.
func formatAlert(event models.Event, market models.Market, v *models.Verdict) string {
	var sb strings.Builder

	sb.WriteString("💰 *Value spotted*\n\n")

	title := escapeMarkdownV2(event.Title)
	if url := event.URL(); url != "" {
		fmt.Fprintf(&sb, "[%s](%s)\n", title, url)
	} else {
		sb.WriteString(title + "\n")
	}
	fmt.Fprintf(&sb, "🎯 %s\n\n", escapeMarkdownV2(market.DisplayQuestion()))

	fmt.Fprintf(&sb, "Pick: *%s* \\(%s\\)\n",
		escapeMarkdownV2(v.Prediction.Outcome),
		escapeMarkdownV2(v.Prediction.Scoreline))
	fmt.Fprintf(&sb, "Edge: *%s* \\(market %s vs model %s\\)\n",
		escapeMarkdownV2(fmt.Sprintf("%+.1f%%", v.ValueAssessment.EdgePercent)),
		escapeMarkdownV2(fmt.Sprintf("%.1f%%", v.ValueAssessment.MarketProbability)),
		escapeMarkdownV2(fmt.Sprintf("%.1f%%", v.ValueAssessment.ModelProbability)))
	if k := v.ValueAssessment.KellyFraction; k != nil {
		fmt.Fprintf(&sb, "Suggested stake: %s of bankroll\n",
			escapeMarkdownV2(fmt.Sprintf("%.1f%%", *k*100)))
	}
	fmt.Fprintf(&sb, "Confidence: %d/10\n", v.Confidence)

	return sb.String()
}

// escapeMarkdownV2 escapes the characters Telegram's MarkdownV2 parser
// treats as markup.
func escapeMarkdownV2(text string) string {
	var sb strings.Builder
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			sb.WriteByte('\\')
		}
		sb.WriteRune(char)
	}
	return sb.String()
}
