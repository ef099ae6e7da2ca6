package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/Nauvvi1/weather-bot/internal/config"
	"github.com/Nauvvi1/weather-bot/internal/geo"
	"github.com/Nauvvi1/weather-bot/internal/scheduler"
	"github.com/Nauvvi1/weather-bot/internal/store"
	"github.com/Nauvvi1/weather-bot/internal/telegram"
	"github.com/Nauvvi1/weather-bot/internal/weather"
)

type App struct {
	cfg     config.Config
	log     *zap.Logger
	bot     *tgbotapi.BotAPI
	httpSrv *http.Server
	repo    store.Repo
	router  *telegram.Router
}

func New(cfg config.Config, log *zap.Logger) (*App, error) {
	// The Bot API client needs its own timeout so a stalled send cannot hang
	// forever; it has to outlast the 30s update long poll.
	botClient := &http.Client{Timeout: 40 * time.Second}
	bot, err := tgbotapi.NewBotAPIWithClient(cfg.BotToken, tgbotapi.APIEndpoint, botClient)
	if err != nil {
		return nil, err
	}
	bot.Debug = false

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}

	return &App{cfg: cfg, log: log, bot: bot, httpSrv: srv}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting weather-bot", zap.String("http", a.cfg.HTTPAddr))

	// Open SQLite and run migrations.
	repo, err := store.OpenSQLite(ctx, a.cfg.DBPath)
	if err != nil {
		a.log.Error("open sqlite failed", zap.Error(err))
		return err
	}
	a.repo = repo
	a.log.Info("sqlite ready")

	httpClient := &http.Client{Timeout: 10 * time.Second}
	weatherClient := weather.NewClient(httpClient, a.cfg.OpenWeatherKey)
	geoClient := geo.NewClient(httpClient, a.cfg.OpenWeatherKey)

	a.router = telegram.NewRouter(a.bot, a.log, a.repo, geoClient, weatherClient, telegram.Defaults{
		Lang:  a.cfg.DefaultLang,
		Units: a.cfg.DefaultUnits,
	})

	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("http server error", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched := scheduler.New(a.repo, a.log, weatherClient, a.router)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sched.Run(ctx)
	}()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updCh := a.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			a.log.Info("shutdown signal received")

			// Let the in-flight tick finish before closing storage.
			wg.Wait()

			shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := a.httpSrv.Shutdown(shCtx)
			cancel()
			if err != nil {
				a.log.Warn("http server shutdown error", zap.Error(err))
			}
			if a.repo != nil {
				_ = a.repo.Close()
			}
			return nil

		case upd := <-updCh:
			a.router.HandleUpdate(ctx, upd)
		}
	}
}
