package config

import "github.com/kelseyhightower/envconfig"

// Config holds application configuration loaded from environment variables.
type Config struct {
	BotToken       string `envconfig:"BOT_TOKEN" required:"true"`
	OpenWeatherKey string `envconfig:"OPENWEATHER_API_KEY" required:"true"`
	DBPath         string `envconfig:"DB_PATH" default:"./data/weather.db"`
	DefaultLang    string `envconfig:"DEFAULT_LANGUAGE" default:"ru"`  // ru|en
	DefaultUnits   string `envconfig:"DEFAULT_UNITS" default:"metric"` // metric|imperial
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`       // debug|info|warn|error
	HTTPAddr       string `envconfig:"HTTP_ADDR" default:":8080"`      // healthz
}

// Load reads environment variables into Config.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
