package handler

import (
	th "github.com/mymmrac/telego/telegohandler"

	"shirtdrop/internal/transport/bot/middleware"
)

func (h *Handler) RegisterRoutes(bh *th.BotHandler, adminID int64) {
	adminGroup := bh.Group(th.AnyMessage())
	adminGroup.Use(middleware.AdminOnly(adminID))

	adminGroup.HandleMessage(h.OnStart, th.CommandEqual("start"))
	adminGroup.HandleMessage(h.OnStatus, th.CommandEqual("status"))
	adminGroup.HandleMessage(h.OnDrops, th.CommandEqual("drops"))
	adminGroup.HandleMessage(h.OnStats, th.CommandEqual("stats"))
	adminGroup.HandleMessage(h.OnClose, th.CommandEqual("close"))
	adminGroup.HandleMessage(h.OnWatcher, th.CommandEqual("watcher"))

	cbGroup := bh.Group(th.AnyCallbackQuery())
	cbGroup.Use(middleware.AdminOnly(adminID))

	cbGroup.HandleCallbackQuery(h.OnDropsCallback, th.CallbackDataPrefix(dropsPagePrefix))
}
