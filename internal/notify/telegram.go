package notify

import (
	"context"
	"fmt"

	"magnum_stars/internal/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramNotifier sends best-effort payout messages to users through the
// bot. The economy core only promises to attempt one send per payout; a
// failure is the caller's to log, never to act on.
type TelegramNotifier struct {
	bot *tgbotapi.BotAPI
}

func NewTelegramNotifier(token string) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	logger.Info("notifier bot authorized", "username", bot.Self.UserName)
	return &TelegramNotifier{bot: bot}, nil
}

// NotifyMinerReward tells the user their miner paid out.
func (n *TelegramNotifier) NotifyMinerReward(ctx context.Context, tgID int64, amount float64, hours int64) error {
	if tgID == 0 {
		return nil
	}

	text := fmt.Sprintf("⛏ Your miner earned %.4f Stars for %d hour(s) of work!", amount, hours)
	msg := tgbotapi.NewMessage(tgID, text)
	_, err := n.bot.Send(msg)
	return err
}
