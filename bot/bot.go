// Package bot runs the Telegram long-polling worker: command routing, inline
// button callbacks, response formatting and the admin surface.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers/filters/callbackquery"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers/filters/message"

	"github.com/allmoviespro/moviefinder/archive"
	"github.com/allmoviespro/moviefinder/config"
	"github.com/allmoviespro/moviefinder/store"
	"github.com/allmoviespro/moviefinder/tmdb"
)

// Bot owns the Telegram client and its update dispatcher.
type Bot struct {
	bot     *gotgbot.Bot
	updater *ext.Updater
}

// New builds the Telegram bot and registers every command, the callback router
// and the plain-text search fallback.
func New(cfg *config.Config, st *store.Store, mdb *tmdb.Client, arc *archive.Client) (*Bot, error) {
	b, err := gotgbot.NewBot(cfg.BotToken, nil)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	h := NewHandlers(cfg, st, mdb, arc)

	dispatcher := ext.NewDispatcher(&ext.DispatcherOpts{
		// Handlers convert their own errors to user replies; anything landing
		// here is a bug or a panic recovered by the dispatcher. Log and move on
		// so one bad update never stalls the others.
		Error: func(b *gotgbot.Bot, ectx *ext.Context, err error) ext.DispatcherAction {
			slog.Error("dispatcher error", slog.Any("err", err))
			return ext.DispatcherActionNoop
		},
		MaxRoutines: ext.DefaultMaxRoutines,
	})

	dispatcher.AddHandler(handlers.NewCommand("start", h.wrap("start", h.Start)))
	dispatcher.AddHandler(handlers.NewCommand("help", h.wrap("help", h.Help)))
	dispatcher.AddHandler(handlers.NewCommand("search", h.wrap("search", h.Search)))
	dispatcher.AddHandler(handlers.NewCommand("trending", h.wrap("trending", h.Trending)))
	dispatcher.AddHandler(handlers.NewCommand("broadcast", h.wrap("broadcast", h.Broadcast)))
	dispatcher.AddHandler(handlers.NewCommand("stats", h.wrap("stats", h.Stats)))
	dispatcher.AddHandler(handlers.NewCallback(callbackquery.All, h.wrap("callback", h.OnCallback)))
	dispatcher.AddHandler(handlers.NewMessage(func(msg *gotgbot.Message) bool {
		return message.Text(msg) && !message.Command(msg)
	}, h.wrap("text", h.OnText)))

	return &Bot{
		bot:     b,
		updater: ext.NewUpdater(dispatcher, nil),
	}, nil
}

// Run starts long polling and blocks until ctx is cancelled.
func (tb *Bot) Run(ctx context.Context) error {
	err := tb.updater.StartPolling(tb.bot, &ext.PollingOpts{
		DropPendingUpdates: true,
		GetUpdatesOpts: &gotgbot.GetUpdatesOpts{
			Timeout: 9,
			RequestOpts: &gotgbot.RequestOpts{
				Timeout: 10 * time.Second,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("start polling: %w", err)
	}
	slog.Info("bot polling started", slog.String("username", tb.bot.User.Username))

	go func() {
		<-ctx.Done()
		if err := tb.updater.Stop(); err != nil {
			slog.Error("updater stop failed", slog.Any("err", err))
		}
	}()

	tb.updater.Idle()
	return nil
}
