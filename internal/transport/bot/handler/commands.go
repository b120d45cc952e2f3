package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"

	"shirtdrop/internal/domain/service/auction"
	"shirtdrop/internal/transport/bot/view"
	"shirtdrop/internal/worker"
)

func (h *Handler) OnStart(ctx *th.Context, msg telego.Message) error {
	return h.sendHTML(ctx, msg.Chat.ID, view.StartMessage)
}

func (h *Handler) OnStatus(ctx *th.Context, msg telego.Message) error {
	return h.sendHTML(ctx, msg.Chat.ID, h.status())
}

func (h *Handler) OnDrops(ctx *th.Context, msg telego.Message) error {
	text, keyboard := h.dropsPage(ctx, 1)

	params := &telego.SendMessageParams{
		ChatID:    telego.ChatID{ID: msg.Chat.ID},
		Text:      text,
		ParseMode: telego.ModeHTML,
	}
	if keyboard != nil {
		params.ReplyMarkup = keyboard
	}

	_, err := ctx.Bot().SendMessage(ctx, params)

	return err
}

// OnStats usage: /stats <drop-id>
func (h *Handler) OnStats(ctx *th.Context, msg telego.Message) error {
	return h.sendHTML(ctx, msg.Chat.ID, h.stats(ctx, strings.Fields(msg.Text)))
}

// OnClose usage: /close <drop-id>
func (h *Handler) OnClose(ctx *th.Context, msg telego.Message) error {
	return h.sendHTML(ctx, msg.Chat.ID, h.closeAuction(ctx, strings.Fields(msg.Text)))
}

// OnWatcher usage: /watcher start|stop
func (h *Handler) OnWatcher(ctx *th.Context, msg telego.Message) error {
	return h.sendHTML(ctx, msg.Chat.ID, h.toggleWatcher(strings.Fields(msg.Text)))
}

func (h *Handler) status() string {
	state := view.WatcherStopped
	if h.watcher.IsRunning() {
		state = view.WatcherRunning
	}

	lastSweep := view.NeverSwept
	if at := h.watcher.LastSweep(); !at.IsZero() {
		lastSweep = at.UTC().Format(time.DateTime)
	}

	return fmt.Sprintf(view.StatusTemplate, state, lastSweep)
}

func (h *Handler) stats(ctx context.Context, args []string) string {
	if len(args) < 2 {
		return view.UsageStats
	}

	id, err := uuid.Parse(args[1])
	if err != nil {
		return view.InvalidDropID
	}

	drop, err := h.drops.Get(ctx, id)
	if err != nil {
		return fmt.Sprintf(view.StatsFailed, err)
	}

	stats, err := h.drops.Stats(ctx, id)
	if err != nil {
		return fmt.Sprintf(view.StatsFailed, err)
	}

	return fmt.Sprintf(view.StatsTemplate,
		escape(drop.Name), stats.TotalSupply, stats.Minted, stats.Claimed, stats.TokensIssued, stats.Bids)
}

func (h *Handler) closeAuction(ctx context.Context, args []string) string {
	if len(args) < 2 {
		return view.UsageClose
	}

	id, err := uuid.Parse(args[1])
	if err != nil {
		return view.InvalidDropID
	}

	result, err := h.auctions.Close(ctx, id, auction.TriggerAdmin)
	if err != nil {
		return fmt.Sprintf(view.AuctionCloseFailed, escape(err.Error()))
	}

	return fmt.Sprintf(view.AuctionClosed, len(result.Winners), result.Losers)
}

func (h *Handler) toggleWatcher(args []string) string {
	if len(args) < 2 {
		return view.UsageWatcher
	}

	switch strings.ToLower(args[1]) {
	case "start":
		err := h.watcher.Start(h.watcherCtx)
		switch {
		case errors.Is(err, worker.ErrAlreadyRunning):
			return view.WatcherAlreadyOn
		case err != nil:
			return fmt.Sprintf(view.WatcherStartFailed, escape(err.Error()))
		}

		return view.WatcherStarted
	case "stop":
		if !h.watcher.IsRunning() {
			return view.WatcherAlreadyOff
		}

		h.watcher.Stop()

		return view.WatcherStoppedReply
	default:
		return view.UsageWatcher
	}
}

func (h *Handler) sendHTML(ctx *th.Context, chatID int64, text string) error {
	_, err := ctx.Bot().SendMessage(ctx, &telego.SendMessageParams{
		ChatID:    telego.ChatID{ID: chatID},
		Text:      text,
		ParseMode: telego.ModeHTML,
	})

	return err
}
