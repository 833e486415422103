package telegram

import (
	"fmt"
	"time"

	"gopkg.in/telebot.v3"
)

// SaleNotifier implements the payment.Notifier interface using the
// gopkg.in/telebot.v3 library: every confirmed purchase pings a configured
// chat so whoever runs the funnel sees sales as they land.
type SaleNotifier struct {
	bot    *telebot.Bot
	chatID int64
}

func NewSaleNotifier(token string, chatID int64) (*SaleNotifier, error) {
	bot, err := telebot.NewBot(telebot.Settings{
		Token:  token,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, fmt.Errorf("error creating telegram bot: %w", err)
	}
	return &SaleNotifier{bot: bot, chatID: chatID}, nil
}

// NotifyPurchase sends a one-line sale summary to the configured chat.
func (n *SaleNotifier) NotifyPurchase(email, templateName string, gift bool) error {
	text := fmt.Sprintf("New calendar purchase: %s (%s)", email, templateName)
	if gift {
		text = fmt.Sprintf("New gift calendar: %s (%s)", email, templateName)
	}

	recipient := &telebot.Chat{ID: n.chatID}
	_, err := n.bot.Send(recipient, text, &telebot.SendOptions{})
	return err
}
