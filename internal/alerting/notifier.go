package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"cio-consistency/internal/analysis"
	"cio-consistency/internal/logging"
)

// Reason names the condition that raised a notification.
type Reason string

const (
	ReasonRapidChange Reason = "rapid_change"
	ReasonLowScore    Reason = "low_score"
)

// Notification carries the alert context for one analysed day.
type Notification struct {
	Window            analysis.Window
	Reason            Reason
	OverallScore      int
	Rating            analysis.Rating
	MinOverallScore   int
	RapidChangeAssets []string
	OffTargetAssets   []analysis.WeightGapInfo
	Channels          []string
	AdditionalMsg     string
}

// Notifier delivers notifications.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// TelegramNotifier posts notifications through the Telegram Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier builds a Telegram notifier.
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logging.Component(logger, "alert_telegram"),
	}
}

// Notify calls sendMessage with the rendered notification.
func (n *TelegramNotifier) Notify(ctx context.Context, note Notification) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    RenderMessage(note),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram responded with status %d", resp.StatusCode)
	}

	var result struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil && !result.OK {
		return fmt.Errorf("telegram returned ok=false: %s", result.Description)
	}

	n.logger.Info().Str("day", note.Window.Label()).
		Str("reason", string(note.Reason)).
		Str("channels", strings.Join(note.Channels, ",")).
		Msg("alert delivered")
	return nil
}

// RenderMessage formats a notification as plain text.
func RenderMessage(note Notification) string {
	builder := strings.Builder{}
	builder.WriteString("[CIO Consistency Alert]\n")
	builder.WriteString(fmt.Sprintf("Day: %s\n", note.Window.Label()))
	builder.WriteString(fmt.Sprintf("Reason: %s\n", note.Reason))
	builder.WriteString(fmt.Sprintf("Overall score: %d (%s)\n", note.OverallScore, note.Rating))
	if note.Reason == ReasonLowScore {
		builder.WriteString(fmt.Sprintf("Threshold: %d\n", note.MinOverallScore))
	}
	if len(note.RapidChangeAssets) > 0 {
		builder.WriteString(fmt.Sprintf("Rapid changes: %s\n", strings.Join(note.RapidChangeAssets, ", ")))
	}
	for _, gap := range note.OffTargetAssets {
		builder.WriteString(fmt.Sprintf("%s %s: target %.2f%% held %.2f%% (%+.1f%%)\n",
			gap.AssetID, gap.State, gap.TargetWeight, gap.CurrentWeight, gap.GapRatio))
	}
	if len(note.Channels) > 0 {
		builder.WriteString(fmt.Sprintf("Channels: %s\n", strings.Join(note.Channels, ",")))
	}
	if note.AdditionalMsg != "" {
		builder.WriteString(note.AdditionalMsg)
	}
	return builder.String()
}

var _ Notifier = (*TelegramNotifier)(nil)
