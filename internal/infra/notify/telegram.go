package notify

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type Telegram struct {
	api    *tgbotapi.BotAPI
	chatID int64
	log    *slog.Logger
}

func NewTelegram(token string, chatID int64, log *slog.Logger) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Telegram{api: api, chatID: chatID, log: log}, nil
}

func (t *Telegram) ShiftClosed(_ context.Context, ev ShiftClosedEvent) {
	label := "Surplus"
	if ev.Discrepancy < 0 {
		label = "Shortage"
	}
	text := fmt.Sprintf(
		"%s on shift #%d (tenant %d)\nExpected: %d\nCounted: %d\nDifference: %+d\nClosed by user %d at %s",
		label, ev.ShiftNo, ev.TenantID,
		ev.ExpectedCash, ev.CountedCash, ev.Discrepancy,
		ev.ClosedBy, ev.ClosedAt.Format("2006-01-02 15:04"),
	)

	if _, err := t.api.Send(tgbotapi.NewMessage(t.chatID, text)); err != nil {
		// Best-effort only; the close already happened.
		t.log.Error("discrepancy alert not delivered", "shift_id", ev.ShiftID, "err", err)
	}
}
