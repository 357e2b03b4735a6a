package sender

import (
	"context"
	"fmt"
	"strconv"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/funnelreach/dispatch-backend/internal/model"
)

// TelegramSender delivers over the Bot API. The contact handle for the
// telegram channel is the lead's numeric chat id.
type TelegramSender struct {
	bot *tele.Bot
}

func NewTelegramSender(token string) (*TelegramSender, error) {
	bot, err := tele.NewBot(tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, err
	}
	return &TelegramSender{bot: bot}, nil
}

func (s *TelegramSender) Send(_ context.Context, task *model.DispatchTask) error {
	chatID, err := strconv.ParseInt(task.ContactHandle, 10, 64)
	if err != nil {
		return fmt.Errorf("telegram handle %q is not a chat id: %w", task.ContactHandle, err)
	}
	_, err = s.bot.Send(tele.ChatID(chatID), task.RenderedMessage)
	return err
}

var _ Sender = (*TelegramSender)(nil)
