package telegram

import "strings"

// User-facing texts, ru/en. Unknown languages fall back to English.
var texts = map[string]map[string]string{
	"ru": {
		"welcome":          "Привет! Я помогу узнать погоду. Отправь город командой /setcity или поделись геолокацией кнопкой ниже.",
		"ask_city":         "Введи город (например, Berlin) или пришли 📍 геолокацию.",
		"share_location":   "Отправить геолокацию",
		"saved_city":       "Город сохранён: {city}. Часовой пояс: {tz}",
		"not_found":        "Не нашёл такой город. Попробуй ещё раз.",
		"need_city_first":  "Сначала задай город через /setcity или пришли геолокацию.",
		"now":              "Сейчас",
		"forecast_title":   "{city} • Ближайшие 12 часов",
		"subs_on":          "Ежедневная сводка настроена на {time}.",
		"subs_off":         "Ежедневная сводка отключена.",
		"units_set":        "Единицы изменены на {units}",
		"send_time":        "Пришли время в формате HH:MM (например, 08:00).",
		"invalid_time":     "Некорректное время. Формат HH:MM.",
		"no_tz":            "Не удалось определить часовой пояс. Укажи город/локацию заново.",
		"api_error":        "Ошибка API. Попробуй позже.",
		"feels_like":       "ощущается",
		"pressure":         "Давление",
		"today":            "На сегодня",
		"range":            "макс {max}, мин {min}",
		"wind_unit_metric": "м/с",
		"help":             "Команды:\n/start — начать\n/setcity <город> — задать город\n/weather — погода сейчас\n/forecast — прогноз\n/units — переключить metric/imperial\n/subscribe HH:MM — ежедневная сводка\n/unsubscribe — отменить сводку",
	},
	"en": {
		"welcome":          "Hi! I can show the weather. Set your city via /setcity or share your location with the button below.",
		"ask_city":         "Type a city (e.g. Berlin) or send your 📍 location.",
		"share_location":   "Share location",
		"saved_city":       "Saved city: {city}. Timezone: {tz}",
		"not_found":        "City not found. Try again.",
		"need_city_first":  "Please set a city first via /setcity or send your location.",
		"now":              "Now",
		"forecast_title":   "{city} • Next 12 hours",
		"subs_on":          "Daily summary is scheduled at {time}.",
		"subs_off":         "Daily summary disabled.",
		"units_set":        "Units updated to {units}",
		"send_time":        "Send time in HH:MM (e.g. 08:00).",
		"invalid_time":     "Invalid time. Use HH:MM.",
		"no_tz":            "Could not detect timezone. Please set city/location again.",
		"api_error":        "API error. Try later.",
		"feels_like":       "feels like",
		"pressure":         "Pressure",
		"today":            "Today",
		"range":            "max {max}, min {min}",
		"wind_unit_metric": "m/s",
		"help":             "Commands:\n/start — start\n/setcity <city> — set city\n/weather — current\n/forecast — forecast\n/units — toggle metric/imperial\n/subscribe HH:MM — daily summary\n/unsubscribe — disable summary",
	},
}

// t resolves a localized text and substitutes {key} placeholders from vars,
// given as alternating key/value pairs.
func t(lang, key string, vars ...string) string {
	dict, ok := texts[lang]
	if !ok {
		dict = texts["en"]
	}
	s, ok := dict[key]
	if !ok {
		s = texts["en"][key]
	}
	if s == "" {
		return key
	}
	for i := 0; i+1 < len(vars); i += 2 {
		s = strings.ReplaceAll(s, "{"+vars[i]+"}", vars[i+1])
	}
	return s
}
