package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/Nauvvi1/weather-bot/internal/domain"
	"github.com/Nauvvi1/weather-bot/internal/geo"
	"github.com/Nauvvi1/weather-bot/internal/store"
	"github.com/Nauvvi1/weather-bot/internal/weather"
)

const cbForecast12h = "fc12"

// forecastSteps is how many 3-hour samples the /forecast view shows (12 hours).
const forecastSteps = 4

// ensureUser makes sure a user row exists; if not, creates it with defaults.
// Only a missing row leads to creation: a transient store error must not
// overwrite an existing record with defaults. The language comes from the
// Telegram client when it looks Russian, otherwise the configured default
// applies.
func (r *Router) ensureUser(ctx context.Context, chatID int64, langCode string) (*domain.User, error) {
	u, err := r.repo.GetUser(ctx, chatID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	lang := r.defaults.Lang
	if strings.HasPrefix(langCode, "ru") {
		lang = "ru"
	} else if langCode != "" {
		lang = "en"
	}
	u = &domain.User{
		ChatID:    chatID,
		Lang:      lang,
		Units:     r.defaults.Units,
		CreatedAt: time.Now().UTC(),
	}
	if err := r.repo.UpsertUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// --- Generic helpers ---

func (r *Router) sendText(chatID int64, text string) {
	_, _ = r.bot.Send(tgbotapi.NewMessage(chatID, text))
}

func (r *Router) answerCallback(id, text string) error {
	_, err := r.bot.Request(tgbotapi.NewCallback(id, text))
	return err
}

// SendMessage sends a plain text message to the given chat.
func (r *Router) SendMessage(chatID int64, text string) error {
	_, err := r.bot.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

// SendDaily composes and delivers one daily weather summary.
// This makes Router satisfy scheduler.Sender. The Bot API client carries its
// own transport timeout; the context covers the caller's deadline on top.
func (r *Router) SendDaily(ctx context.Context, u domain.User, cur weather.Current, rng weather.Range, haveRange bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.SendMessage(u.ChatID, formatSummary(u, cur, rng, haveRange))
}

// --- Core commands ---

func (r *Router) handleStart(ctx context.Context, u *domain.User) {
	msg := tgbotapi.NewMessage(u.ChatID, t(u.Lang, "welcome"))
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButtonLocation("📍 " + t(u.Lang, "share_location")),
		),
	)
	kb.OneTimeKeyboard = true
	msg.ReplyMarkup = kb
	_, _ = r.bot.Send(msg)
}

// --- City / location flow ---

func (r *Router) handleSetCity(ctx context.Context, u *domain.User, arg string) {
	if arg != "" {
		r.resolveCity(ctx, u, arg)
		return
	}
	r.setPending(u.ChatID, pendingCity)
	r.sendText(u.ChatID, t(u.Lang, "ask_city"))
}

// resolveCity geocodes a free-form query, resolves the timezone from the
// coordinates and saves everything as the user's location.
func (r *Router) resolveCity(ctx context.Context, u *domain.User, query string) {
	places, err := r.geo.Direct(ctx, query)
	if err != nil || len(places) == 0 {
		if err != nil {
			r.log.Warn("direct geocode failed", zap.Error(err), zap.Int64("chatID", u.ChatID))
		}
		r.sendText(u.ChatID, t(u.Lang, "not_found"))
		return
	}
	best := places[0]
	r.saveLocation(ctx, u, best.DisplayName(), best.Lat, best.Lon)
}

func (r *Router) handleLocation(ctx context.Context, u *domain.User, lat, lon float64) {
	city := fmt.Sprintf("%.3f, %.3f", lat, lon)
	if place, err := r.geo.Reverse(ctx, lat, lon); err == nil {
		city = place.DisplayName()
	} else {
		r.log.Warn("reverse geocode failed", zap.Error(err), zap.Int64("chatID", u.ChatID))
	}
	r.saveLocation(ctx, u, city, lat, lon)
}

func (r *Router) saveLocation(ctx context.Context, u *domain.User, city string, lat, lon float64) {
	tz, ok := geo.ResolveTimezone(lat, lon)
	tzShown := tz
	if !ok {
		tzShown = "—"
	}
	if err := r.repo.SetLocation(ctx, u.ChatID, city, lat, lon, tz); err != nil {
		r.log.Error("SetLocation failed", zap.Error(err), zap.Int64("chatID", u.ChatID))
		r.sendText(u.ChatID, t(u.Lang, "api_error"))
		return
	}
	r.sendText(u.ChatID, t(u.Lang, "saved_city", "city", city, "tz", tzShown))
}

// --- Weather ---

func (r *Router) handleWeather(ctx context.Context, u *domain.User) {
	if u.Lat == nil || u.Lon == nil {
		r.sendText(u.ChatID, t(u.Lang, "need_city_first"))
		return
	}

	cur, err := r.weather.Current(ctx, *u.Lat, *u.Lon, u.Units, u.Lang)
	if err != nil {
		r.log.Warn("current weather fetch failed", zap.Error(err), zap.Int64("chatID", u.ChatID))
		r.sendText(u.ChatID, t(u.Lang, "api_error"))
		return
	}

	// Today's range is best effort here: a failed forecast still leaves a
	// useful current-conditions message.
	var rng weather.Range
	haveRange := false
	if u.TZ != "" {
		if samples, err := r.weather.Forecast(ctx, *u.Lat, *u.Lon, u.Units, u.Lang); err == nil {
			rng, haveRange = weather.DailyRange(samples, u.TZ, time.Now().UTC())
		}
	}

	msg := tgbotapi.NewMessage(u.ChatID, formatSummary(*u, cur, rng, haveRange))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔮 Forecast", cbForecast12h),
		),
	)
	_, _ = r.bot.Send(msg)
}

// handleForecast renders the next 12 hours. With a messageID it edits the
// message the inline button lives under, otherwise it sends a new one.
func (r *Router) handleForecast(ctx context.Context, u *domain.User, messageID int) {
	if u.Lat == nil || u.Lon == nil {
		r.sendText(u.ChatID, t(u.Lang, "need_city_first"))
		return
	}

	samples, err := r.weather.Forecast(ctx, *u.Lat, *u.Lon, u.Units, u.Lang)
	if err != nil {
		r.log.Warn("forecast fetch failed", zap.Error(err), zap.Int64("chatID", u.ChatID))
		r.sendText(u.ChatID, t(u.Lang, "api_error"))
		return
	}

	loc := time.UTC
	if u.TZ != "" {
		if l, err := time.LoadLocation(u.TZ); err == nil {
			loc = l
		}
	}

	if len(samples) > forecastSteps {
		samples = samples[:forecastSteps]
	}
	lines := make([]string, 0, len(samples)+1)
	lines = append(lines, t(u.Lang, "forecast_title", "city", u.CityName))
	for _, s := range samples {
		lines = append(lines, fmt.Sprintf("%s  %s  %s%s, %s",
			s.Timestamp.In(loc).Format("15:04"),
			weatherEmoji(s.ConditionID),
			roundTemp(s.Temp), tempUnit(u.Units),
			s.Description,
		))
	}
	text := strings.Join(lines, "\n")

	if messageID > 0 {
		_, _ = r.bot.Send(tgbotapi.NewEditMessageText(u.ChatID, messageID, text))
		return
	}
	r.sendText(u.ChatID, text)
}

// --- Units ---

func (r *Router) handleUnits(ctx context.Context, u *domain.User) {
	next := "imperial"
	if u.Units == "imperial" {
		next = "metric"
	}
	if err := r.repo.SetUnits(ctx, u.ChatID, next); err != nil {
		r.log.Error("SetUnits failed", zap.Error(err), zap.Int64("chatID", u.ChatID))
		r.sendText(u.ChatID, t(u.Lang, "api_error"))
		return
	}
	r.sendText(u.ChatID, t(u.Lang, "units_set", "units", next))
}

// --- Subscription flow ---

func (r *Router) handleSubscribe(ctx context.Context, u *domain.User, arg string) {
	if u.Lat == nil || u.Lon == nil {
		r.sendText(u.ChatID, t(u.Lang, "need_city_first"))
		return
	}
	if u.TZ == "" {
		r.sendText(u.ChatID, t(u.Lang, "no_tz"))
		return
	}
	if arg != "" {
		r.subscribeAt(ctx, u, arg)
		return
	}
	r.setPending(u.ChatID, pendingTime)
	r.sendText(u.ChatID, t(u.Lang, "send_time"))
}

// subscribeAt enables the daily summary at the given HH:MM local time.
// The store clears the dispatch marker so today's summary can still go out.
func (r *Router) subscribeAt(ctx context.Context, u *domain.User, raw string) {
	hour, minute, err := domain.ParseHHMM(raw)
	if err != nil {
		r.sendText(u.ChatID, t(u.Lang, "invalid_time"))
		return
	}
	if err := r.repo.SetSubscription(ctx, u.ChatID, hour, minute); err != nil {
		r.log.Error("SetSubscription failed", zap.Error(err), zap.Int64("chatID", u.ChatID))
		r.sendText(u.ChatID, t(u.Lang, "api_error"))
		return
	}
	r.sendText(u.ChatID, t(u.Lang, "subs_on", "time", domain.FormatHHMM(hour, minute)))
}

func (r *Router) handleUnsubscribe(ctx context.Context, u *domain.User) {
	if err := r.repo.Unsubscribe(ctx, u.ChatID); err != nil {
		r.log.Error("Unsubscribe failed", zap.Error(err), zap.Int64("chatID", u.ChatID))
		r.sendText(u.ChatID, t(u.Lang, "api_error"))
		return
	}
	r.sendText(u.ChatID, t(u.Lang, "subs_off"))
}

// --- Free-form dispatcher (for the waiting flows) ---

func (r *Router) handleFreeForm(ctx context.Context, u *domain.User, text string) {
	switch r.getPending(u.ChatID) {
	case pendingCity:
		r.clearPending(u.ChatID)
		r.resolveCity(ctx, u, text)

	case pendingTime:
		r.clearPending(u.ChatID)
		r.subscribeAt(ctx, u, text)

	default:
		// No pending flow: ignore free-form message
	}
}
