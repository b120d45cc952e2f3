package handler

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	tu "github.com/mymmrac/telego/telegoutil"

	"shirtdrop/internal/transport/bot/view"
)

const (
	dropsPagePrefix = "drops_page"
	dropsPerPage    = 10
)

func (h *Handler) OnDropsCallback(ctx *th.Context, query telego.CallbackQuery) error {
	var page int

	_, err := fmt.Sscanf(query.Data, dropsPagePrefix+":%d", &page)
	if err != nil || page < 1 {
		page = 1
	}

	text, keyboard := h.dropsPage(ctx, page)

	if query.Message != nil {
		// Telegram rejects edits that change nothing; that is fine here.
		_, _ = ctx.Bot().EditMessageText(ctx, &telego.EditMessageTextParams{
			ChatID:      tu.ID(query.Message.GetChat().ID),
			MessageID:   query.Message.GetMessageID(),
			Text:        text,
			ParseMode:   telego.ModeHTML,
			ReplyMarkup: keyboard,
		})
	}

	return ctx.Bot().AnswerCallbackQuery(ctx, tu.CallbackQuery(query.ID))
}

// dropsPage fetches one extra drop to know whether a next page exists.
func (h *Handler) dropsPage(ctx context.Context, page int) (string, *telego.InlineKeyboardMarkup) {
	drops, err := h.drops.List(ctx, dropsPerPage+1, (page-1)*dropsPerPage)
	if err != nil {
		return view.DropsError, nil
	}

	if len(drops) == 0 {
		return view.DropsEmpty, nil
	}

	hasNext := len(drops) > dropsPerPage
	if hasNext {
		drops = drops[:dropsPerPage]
	}

	totalPages := page
	if hasNext {
		totalPages++
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(view.DropsPageTemplate, page, totalPages))

	for _, drop := range drops {
		auction := ""

		if drop.HasAuction() {
			auction = fmt.Sprintf(view.DropAuctionOpen, drop.Auction.Deadline.UTC().Format(time.DateTime))
			if drop.Auction.IsClosed() {
				auction = view.DropAuctionClosed
			}
		}

		sb.WriteString(fmt.Sprintf(view.DropItemTemplate,
			escape(drop.Name), drop.ID, drop.MintedCount, drop.TotalSupply, auction))
	}

	return sb.String(), paginationKeyboard(page, hasNext)
}

func paginationKeyboard(page int, hasNext bool) *telego.InlineKeyboardMarkup {
	if page == 1 && !hasNext {
		return nil
	}

	var buttons []telego.InlineKeyboardButton

	if page > 1 {
		buttons = append(buttons, tu.InlineKeyboardButton("⬅️").
			WithCallbackData(fmt.Sprintf("%s:%d", dropsPagePrefix, page-1)))
	}

	if hasNext {
		buttons = append(buttons, tu.InlineKeyboardButton("➡️").
			WithCallbackData(fmt.Sprintf("%s:%d", dropsPagePrefix, page+1)))
	}

	return tu.InlineKeyboard(tu.InlineKeyboardRow(buttons...))
}

func escape(s string) string {
	return html.EscapeString(s)
}
