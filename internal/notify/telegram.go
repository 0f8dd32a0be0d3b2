package notify

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/candlecast/models"
)

// Sender is the part of tgbotapi.BotAPI the notifier uses
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts predictions to a Telegram chat
type Telegram struct {
	sender Sender
	chatID int64
	logger zerolog.Logger
}

// NewTelegram connects a bot with token and posts to chatID
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("init telegram bot: %w", err)
	}
	return NewTelegramWithSender(bot, chatID), nil
}

// NewTelegramWithSender creates a notifier around an existing sender
func NewTelegramWithSender(sender Sender, chatID int64) *Telegram {
	return &Telegram{
		sender: sender,
		chatID: chatID,
		logger: log.With().Str("component", "telegram-notifier").Logger(),
	}
}

// NotifyPrediction sends the formatted prediction. sizing may be nil.
func (t *Telegram) NotifyPrediction(ctx context.Context, result models.PredictionResult, sizing *models.PositionSizingResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(t.chatID, FormatPrediction(result, sizing))
	msg.ParseMode = tgbotapi.ModeMarkdown

	if _, err := t.sender.Send(msg); err != nil {
		t.logger.Error().Err(err).Int64("chat_id", t.chatID).Str("id", result.ID).Msg("Failed to send prediction")
		return fmt.Errorf("send prediction %s: %w", result.ID, err)
	}

	t.logger.Debug().Int64("chat_id", t.chatID).Str("id", result.ID).Msg("Prediction sent")
	return nil
}

// FormatPrediction renders a prediction as a Markdown message
func FormatPrediction(result models.PredictionResult, sizing *models.PositionSizingResult) string {
	arrow := "🔴"
	if result.Direction == models.DirectionUp {
		arrow = "🟢"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s *%s* next candle: *%s*\n", arrow, result.Symbol, result.Direction)
	fmt.Fprintf(&b, "Probability: %.1f%% | Confidence: %.1f%%\n", result.Probability, result.Confidence)
	if !result.TargetTime.IsZero() {
		fmt.Fprintf(&b, "Target: %s\n", result.TargetTime.UTC().Format("2006-01-02 15:04 MST"))
	}

	if len(result.Contributions) > 0 {
		b.WriteString("\nTop factors:\n")
		for i, c := range result.Contributions {
			if i == 3 {
				break
			}
			fmt.Fprintf(&b, "• %s %.0f (%+.2f)\n", c.Factor, c.Score, c.Contribution)
		}
	}

	if len(result.Patterns) > 0 {
		names := make([]string, 0, len(result.Patterns))
		for _, p := range result.Patterns {
			names = append(names, p.Name)
		}
		fmt.Fprintf(&b, "\nPatterns: %s\n", strings.Join(names, ", "))
	}

	if sizing != nil && sizing.Stake > 0 {
		fmt.Fprintf(&b, "\nStake: %.2f (%.2f%% of account)\n", sizing.Stake, sizing.Fraction*100)
		if sizing.StopLoss > 0 {
			fmt.Fprintf(&b, "Stop: %.5f | Target: %.5f\n", sizing.StopLoss, sizing.TakeProfit)
		}
	}

	fmt.Fprintf(&b, "\n_%s_", result.Recommendation)
	return b.String()
}
