package notifier

import (
	"context"
	"fmt"
	"html"
	"log/slog"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"shirtdrop/internal/domain/entity"
	"shirtdrop/pkg/contextx"
	"shirtdrop/pkg/logx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

type messageSender interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
}

// TelegramNotifier posts domain events into the operators' chat.
type TelegramNotifier struct {
	bot    messageSender
	chatID int64
}

func NewTelegramNotifier(bot messageSender, chatID int64) *TelegramNotifier {
	return &TelegramNotifier{
		bot:    bot,
		chatID: chatID,
	}
}

// Run forwards events until the channel is closed or ctx is done.
func (n *TelegramNotifier) Run(ctx context.Context, events <-chan entity.Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}

			if err := n.Notify(ctx, event); err != nil {
				logger(ctx).Error("notifier.Notify", logx.Error(err), slog.String("event", string(event.Type)))
			}
		}
	}
}

func (n *TelegramNotifier) Notify(ctx context.Context, event entity.Event) error {
	text := Format(event)
	if text == "" {
		return nil
	}

	msg := tu.Message(tu.ID(n.chatID), text).WithParseMode(telego.ModeHTML)

	if _, err := n.bot.SendMessage(ctx, msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	return nil
}

// Format renders an event as an HTML chat message. Unknown events render
// empty and are skipped.
func Format(event entity.Event) string {
	switch event.Type {
	case entity.EventDropCreated:
		return fmt.Sprintf("🆕 <b>Drop created</b>\n%s\n<code>%s</code>",
			html.EscapeString(event.Name), event.DropID)
	case entity.EventShirtsMinted:
		return fmt.Sprintf("🧵 <b>%d shirts minted</b>\ndrop <code>%s</code>\ntx <code>%s</code>",
			event.Count, event.DropID, event.Digest)
	case entity.EventShirtClaimed:
		return fmt.Sprintf("👕 <b>Shirt claimed</b> by <code>%s</code>\nshirt <code>%s</code>\ntx <code>%s</code>",
			event.Address.Short(), event.ShirtID, event.Digest)
	case entity.EventAuctionClosed:
		return fmt.Sprintf("🔨 <b>Auction closed</b>\ndrop <code>%s</code>\n%d winners",
			event.DropID, event.Count)
	default:
		return ""
	}
}
