package telegram

import (
	"context"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/Nauvvi1/weather-bot/internal/geo"
	"github.com/Nauvvi1/weather-bot/internal/store"
	"github.com/Nauvvi1/weather-bot/internal/weather"
)

// Pending state keys used in conversational flows.
const (
	pendingCity = "await_city_text"
	pendingTime = "await_time_text"
)

// Defaults applied when a user is first seen.
type Defaults struct {
	Lang  string
	Units string
}

// Router wires Telegram updates to handlers and holds minimal in-memory state.
type Router struct {
	bot      *tgbotapi.BotAPI
	log      *zap.Logger
	repo     store.Repo
	geo      *geo.Client
	weather  *weather.Client
	defaults Defaults
	state    map[int64]string // chatID -> pending state
	mu       sync.RWMutex
}

// NewRouter creates a new Telegram router.
func NewRouter(bot *tgbotapi.BotAPI, log *zap.Logger, repo store.Repo, geoClient *geo.Client, weatherClient *weather.Client, defaults Defaults) *Router {
	return &Router{
		bot:      bot,
		log:      log,
		repo:     repo,
		geo:      geoClient,
		weather:  weatherClient,
		defaults: defaults,
		state:    make(map[int64]string),
	}
}

// setPending sets a pending state for a chat (non-persistent, in-memory).
func (r *Router) setPending(chatID int64, s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state[chatID] = s
}

// getPending returns current pending state for a chat.
func (r *Router) getPending(chatID int64) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state[chatID]
}

// clearPending clears a pending state for a chat.
func (r *Router) clearPending(chatID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.state, chatID)
}

// HandleUpdate routes a single update to appropriate handler.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message != nil {
		msg := upd.Message
		chatID := msg.Chat.ID

		langCode := ""
		if msg.From != nil {
			langCode = msg.From.LanguageCode
		}
		u, err := r.ensureUser(ctx, chatID, langCode)
		if err != nil {
			r.log.Error("ensureUser failed", zap.Error(err), zap.Int64("chatID", chatID))
			return
		}

		if msg.Location != nil {
			r.handleLocation(ctx, u, msg.Location.Latitude, msg.Location.Longitude)
			return
		}

		text := strings.TrimSpace(msg.Text)
		cmd, arg := splitCommand(text)
		switch cmd {
		case "/start":
			r.handleStart(ctx, u)
		case "/help":
			r.sendText(chatID, t(u.Lang, "help"))
		case "/setcity":
			r.handleSetCity(ctx, u, arg)
		case "/weather":
			r.handleWeather(ctx, u)
		case "/forecast":
			r.handleForecast(ctx, u, 0)
		case "/units":
			r.handleUnits(ctx, u)
		case "/subscribe":
			r.handleSubscribe(ctx, u, arg)
		case "/unsubscribe":
			r.handleUnsubscribe(ctx, u)
		default:
			// Free-form text used by the /setcity and /subscribe flows.
			r.handleFreeForm(ctx, u, text)
		}
		return
	}

	if upd.CallbackQuery != nil {
		cb := upd.CallbackQuery
		if cb.Message == nil {
			return
		}
		chatID := cb.Message.Chat.ID
		u, err := r.ensureUser(ctx, chatID, "")
		if err != nil {
			r.log.Error("ensureUser failed", zap.Error(err), zap.Int64("chatID", chatID))
			return
		}
		switch cb.Data {
		case cbForecast12h:
			_ = r.answerCallback(cb.ID, "")
			r.handleForecast(ctx, u, cb.Message.MessageID)
		default:
			// Unknown callback — ignore silently
		}
	}
}

// splitCommand separates "/setcity Berlin" into "/setcity" and "Berlin",
// tolerating the @botname suffix Telegram appends in groups.
func splitCommand(text string) (cmd, arg string) {
	if !strings.HasPrefix(text, "/") {
		return "", text
	}
	cmd, arg, _ = strings.Cut(text, " ")
	if at := strings.Index(cmd, "@"); at > 0 {
		cmd = cmd[:at]
	}
	return cmd, strings.TrimSpace(arg)
}
