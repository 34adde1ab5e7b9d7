package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers"
	"github.com/google/uuid"

	"github.com/allmoviespro/moviefinder/archive"
	"github.com/allmoviespro/moviefinder/config"
	"github.com/allmoviespro/moviefinder/store"
	"github.com/allmoviespro/moviefinder/telemetry"
	"github.com/allmoviespro/moviefinder/tmdb"
)

// updateTimeout bounds all upstream calls made while handling one update.
const updateTimeout = 30 * time.Second

// Handlers holds the injected dependencies every command and callback needs.
type Handlers struct {
	cfg     *config.Config
	store   *store.Store
	tmdb    *tmdb.Client
	archive *archive.Client
}

func NewHandlers(cfg *config.Config, st *store.Store, mdb *tmdb.Client, arc *archive.Client) *Handlers {
	return &Handlers{cfg: cfg, store: st, tmdb: mdb, archive: arc}
}

// wrap is the dispatch boundary: it registers the chat, scopes a context with a
// correlation id and span around the handler, and converts any returned error
// into a user-facing reply so no update can crash the handling of others.
func (h *Handlers) wrap(name string, fn func(rctx context.Context, b *gotgbot.Bot, ectx *ext.Context) error) handlers.Response {
	return func(b *gotgbot.Bot, ectx *ext.Context) error {
		if chat := ectx.EffectiveChat; chat != nil {
			if h.store.Touch(chat.Id) {
				telemetry.SetKnownUsers(h.store.UserCount())
			}
		}
		rctx, cancel := context.WithTimeout(context.Background(), updateTimeout)
		defer cancel()
		rctx = telemetry.WithCorrelation(rctx, uuid.New().String())
		rctx, span := telemetry.StartSpan(rctx, "bot", name)
		defer span.End()

		err := fn(rctx, b, ectx)
		if err == nil {
			telemetry.SetSpanSuccess(span)
			return nil
		}
		telemetry.RecordError(span, err)
		telemetry.LoggerWithCorr(rctx).Warn("handler error", slog.String("handler", name), slog.Any("err", err))
		h.replyError(b, ectx, err)
		return nil
	}
}

// replyError renders the user-facing text for a failed update.
func (h *Handlers) replyError(b *gotgbot.Bot, ectx *ext.Context, err error) {
	text := userMessage(err)
	if ectx.CallbackQuery != nil {
		if editErr := editOrSend(b, ectx, text, nil); editErr != nil {
			slog.Warn("failed to deliver error reply", slog.Any("err", editErr))
		}
		return
	}
	if msg := ectx.EffectiveMessage; msg != nil {
		if _, replyErr := msg.Reply(b, text, nil); replyErr != nil {
			slog.Warn("failed to deliver error reply", slog.Any("err", replyErr))
		}
	}
}

// isAdmin reports whether the update came from a configured admin identity.
func (h *Handlers) isAdmin(user *gotgbot.User) bool {
	return user != nil && h.cfg.IsAdmin(user.Id)
}

// commandArgs returns the text after the command itself ("/search foo" -> "foo").
// Handles the "/search@BotName foo" form used in groups.
func commandArgs(text string) string {
	parts := strings.SplitN(text, " ", 2)
	if len(parts) < 2 {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// editOrSend edits the message the pressed button was attached to, falling back
// to a fresh message when the original can't be edited (e.g. photo captions).
func editOrSend(b *gotgbot.Bot, ectx *ext.Context, text string, kb [][]gotgbot.InlineKeyboardButton) error {
	msg := ectx.EffectiveMessage
	if msg == nil {
		return fmt.Errorf("no effective message for update")
	}
	opts := &gotgbot.EditMessageTextOpts{
		ChatId:             msg.Chat.Id,
		MessageId:          msg.MessageId,
		ParseMode:          gotgbot.ParseModeHTML,
		LinkPreviewOptions: &gotgbot.LinkPreviewOptions{IsDisabled: true},
	}
	if kb != nil {
		opts.ReplyMarkup = gotgbot.InlineKeyboardMarkup{InlineKeyboard: kb}
	}
	if _, _, err := b.EditMessageText(text, opts); err == nil {
		return nil
	}
	sendOpts := &gotgbot.SendMessageOpts{
		ParseMode:          gotgbot.ParseModeHTML,
		LinkPreviewOptions: &gotgbot.LinkPreviewOptions{IsDisabled: true},
	}
	if kb != nil {
		sendOpts.ReplyMarkup = gotgbot.InlineKeyboardMarkup{InlineKeyboard: kb}
	}
	_, err := b.SendMessage(msg.Chat.Id, text, sendOpts)
	return err
}

// Start replies with the branded splash. No external calls.
func (h *Handlers) Start(rctx context.Context, b *gotgbot.Bot, ectx *ext.Context) error {
	_, err := ectx.EffectiveMessage.Reply(b, splash(h.cfg.Brand, h.cfg.Tagline, h.cfg.WatchRegion), &gotgbot.SendMessageOpts{
		ParseMode:          gotgbot.ParseModeHTML,
		LinkPreviewOptions: &gotgbot.LinkPreviewOptions{IsDisabled: true},
	})
	return err
}

func (h *Handlers) Help(rctx context.Context, b *gotgbot.Bot, ectx *ext.Context) error {
	_, err := ectx.EffectiveMessage.Reply(b, helpText(), nil)
	return err
}

// Search handles /search <query>.
func (h *Handlers) Search(rctx context.Context, b *gotgbot.Bot, ectx *ext.Context) error {
	query := commandArgs(ectx.EffectiveMessage.Text)
	return h.runSearch(rctx, b, ectx, query)
}

// OnText treats any plain text message as a search query.
func (h *Handlers) OnText(rctx context.Context, b *gotgbot.Bot, ectx *ext.Context) error {
	return h.runSearch(rctx, b, ectx, strings.TrimSpace(ectx.EffectiveMessage.Text))
}

func (h *Handlers) runSearch(rctx context.Context, b *gotgbot.Bot, ectx *ext.Context, query string) error {
	if query == "" {
		return fmt.Errorf("%w: Please type: /search <movie/series name>", ErrInvalidArgument)
	}
	results, err := h.tmdb.Search(rctx, query)
	if err != nil {
		return err
	}
	// Zero results is still a completed search; it counts before the
	// empty-state reply.
	h.store.IncSearches()
	if telemetry.SearchesPerformed != nil {
		telemetry.SearchesPerformed.Inc()
	}
	if len(results) == 0 {
		return ErrNotFound
	}
	_, err = ectx.EffectiveMessage.Reply(b, "Select one:", &gotgbot.SendMessageOpts{
		ReplyMarkup: gotgbot.InlineKeyboardMarkup{InlineKeyboard: searchKeyboard(results)},
	})
	return err
}

// Trending handles /trending. An empty upstream list fails open as an
// empty-state message rather than an error.
func (h *Handlers) Trending(rctx context.Context, b *gotgbot.Bot, ectx *ext.Context) error {
	movies, tv, err := h.tmdb.Trending(rctx)
	if err != nil {
		return err
	}
	h.store.IncTrending()
	if telemetry.TrendingServed != nil {
		telemetry.TrendingServed.Inc()
	}
	_, err = ectx.EffectiveMessage.Reply(b, trendingText(movies, tv), &gotgbot.SendMessageOpts{
		ParseMode:          gotgbot.ParseModeHTML,
		LinkPreviewOptions: &gotgbot.LinkPreviewOptions{IsDisabled: true},
	})
	return err
}

// Broadcast handles /broadcast <msg> (admin only): best-effort fan-out to every
// known chat, reporting the delivered count back to the admin.
func (h *Handlers) Broadcast(rctx context.Context, b *gotgbot.Bot, ectx *ext.Context) error {
	if !h.isAdmin(ectx.EffectiveUser) {
		return ErrPermissionDenied
	}
	msg := commandArgs(ectx.EffectiveMessage.Text)
	if msg == "" {
		return fmt.Errorf("%w: Usage: /broadcast <message>", ErrInvalidArgument)
	}
	sent, failed := fanOut(rctx, h.store.UserIDs(), func(chatID int64) error {
		_, err := b.SendMessage(chatID, msg, nil)
		return err
	})
	h.store.IncBroadcasts()
	slog.Info("broadcast finished", slog.Int("sent", sent), slog.Int("failed", failed))
	_, err := ectx.EffectiveMessage.Reply(b, fmt.Sprintf("Broadcast sent to %d chats (%d failed).", sent, failed), nil)
	return err
}

// Stats handles /stats (admin only).
func (h *Handlers) Stats(rctx context.Context, b *gotgbot.Bot, ectx *ext.Context) error {
	if !h.isAdmin(ectx.EffectiveUser) {
		return ErrPermissionDenied
	}
	st := h.store.Snapshot()
	text := fmt.Sprintf("Known chats: %d | Searches: %d | Trending: %d | Callbacks: %d | Broadcasts: %d | Admins: %d | Uptime: %s",
		st.KnownUsers, st.Searches, st.Trending, st.Callbacks, st.Broadcasts, len(h.cfg.AdminUserIDs), st.Uptime.Round(time.Second))
	_, err := ectx.EffectiveMessage.Reply(b, text, nil)
	return err
}

// OnCallback decodes the pressed button and dispatches on the tagged variant.
func (h *Handlers) OnCallback(rctx context.Context, b *gotgbot.Bot, ectx *ext.Context) error {
	cq := ectx.CallbackQuery
	if cq == nil || cq.Data == "" {
		return nil
	}
	cb, err := ParseCallback(cq.Data)
	if err != nil {
		_, _ = cq.Answer(b, &gotgbot.AnswerCallbackQueryOpts{Text: "Invalid selection.", ShowAlert: true})
		slog.Warn("bad callback data", slog.String("data", cq.Data), slog.Any("err", err))
		return nil
	}
	if _, err := cq.Answer(b, nil); err != nil {
		slog.Warn("callback answer failed", slog.Any("err", err))
	}
	h.store.IncCallbacks()
	if telemetry.CallbacksHandled != nil {
		telemetry.CallbacksHandled.Inc()
	}

	switch cb.Action {
	case ActionPick:
		return h.onPick(rctx, b, ectx, cb)
	case ActionProviders:
		return h.onProviders(rctx, b, ectx, cb)
	case ActionTrailer:
		return h.onTrailer(rctx, b, ectx, cb)
	case ActionDownloads:
		return h.onDownloads(rctx, b, ectx, cb)
	case ActionRecommend:
		return h.onRecommend(rctx, b, ectx, cb)
	}
	return nil
}

// onPick renders the detail card for a selected title, with poster when available.
func (h *Handlers) onPick(rctx context.Context, b *gotgbot.Bot, ectx *ext.Context, cb Callback) error {
	details, err := h.tmdb.Details(rctx, cb.Media, cb.ID)
	if err != nil {
		return err
	}
	// Best-effort archive probe decides whether the downloads button shows.
	// If the archive is unreachable the button stays; pressing it re-checks.
	hasArchive := true
	if items, aerr := h.archive.SearchPublicDomain(rctx, details.Title, 1); aerr == nil {
		hasArchive = len(items) > 0
	}
	text := detailText(details)
	buttons := detailButtons(details, h.cfg.WatchRegion, hasArchive)

	if poster := details.PosterURL(); poster != "" {
		_, err := b.SendPhoto(ectx.EffectiveChat.Id, poster, &gotgbot.SendPhotoOpts{
			Caption:     text,
			ParseMode:   gotgbot.ParseModeHTML,
			ReplyMarkup: gotgbot.InlineKeyboardMarkup{InlineKeyboard: buttons},
		})
		if err == nil {
			return nil
		}
		slog.Warn("poster send failed, falling back to text", slog.Any("err", err))
	}
	return editOrSend(b, ectx, text, buttons)
}

func (h *Handlers) onProviders(rctx context.Context, b *gotgbot.Bot, ectx *ext.Context, cb Callback) error {
	providers, err := h.tmdb.Providers(rctx, cb.Media, cb.ID, h.cfg.WatchRegion)
	if err != nil {
		return err
	}
	return editOrSend(b, ectx, providersText(providers, h.cfg.WatchRegion), nil)
}

func (h *Handlers) onTrailer(rctx context.Context, b *gotgbot.Bot, ectx *ext.Context, cb Callback) error {
	url, err := h.tmdb.TrailerURL(rctx, cb.Media, cb.ID)
	if err != nil {
		return err
	}
	if url == "" {
		return editOrSend(b, ectx, "Trailer not found.", nil)
	}
	return editOrSend(b, ectx, "Trailer: "+url, nil)
}

func (h *Handlers) onDownloads(rctx context.Context, b *gotgbot.Bot, ectx *ext.Context, cb Callback) error {
	if cb.Title == "" {
		return fmt.Errorf("%w: selection is missing a title", ErrInvalidArgument)
	}
	if err := editOrSend(b, ectx, "Searching Internet Archive (public-domain/CC) …", nil); err != nil {
		slog.Warn("progress message failed", slog.Any("err", err))
	}
	items, err := h.archive.SearchPublicDomain(rctx, cb.Title, archive.DefaultLimit)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return editOrSend(b, ectx, "No public-domain/CC results found for this title.", nil)
	}
	return editOrSend(b, ectx, archiveText(items), nil)
}

func (h *Handlers) onRecommend(rctx context.Context, b *gotgbot.Bot, ectx *ext.Context, cb Callback) error {
	similar, err := h.tmdb.Similar(rctx, cb.Media, cb.ID)
	if err != nil {
		return err
	}
	if len(similar) == 0 {
		return editOrSend(b, ectx, "No similar titles found.", nil)
	}
	return editOrSend(b, ectx, similarText(similar), nil)
}
