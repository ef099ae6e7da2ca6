package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Nauvvi1/weather-bot/internal/domain"
	"github.com/Nauvvi1/weather-bot/internal/store"
	"github.com/Nauvvi1/weather-bot/internal/weather"
)

// Source fetches weather data for a location. weather.Client implements this.
type Source interface {
	Current(ctx context.Context, lat, lon float64, units, lang string) (weather.Current, error)
	Forecast(ctx context.Context, lat, lon float64, units, lang string) ([]weather.Sample, error)
}

// Sender composes and delivers one daily summary. telegram.Router implements this.
type Sender interface {
	SendDaily(ctx context.Context, u domain.User, cur weather.Current, rng weather.Range, haveRange bool) error
}

const (
	// Each subscriber pipeline (two upstream fetches plus one send) gets this long.
	subscriberTimeout = 30 * time.Second
	// Upstream and Telegram rate limits cap how many pipelines run at once.
	maxParallel = 8
)

// Scheduler drives the once-a-minute dispatch of daily summaries.
type Scheduler struct {
	repo    store.Repo
	log     *zap.Logger
	source  Source
	sender  Sender
	timeout time.Duration
}

func New(repo store.Repo, log *zap.Logger, source Source, sender Sender) *Scheduler {
	return &Scheduler{
		repo:    repo,
		log:     log,
		source:  source,
		sender:  sender,
		timeout: subscriberTimeout,
	}
}

// Run ticks every minute until ctx is canceled, then waits for the in-flight
// tick to finish.
func (s *Scheduler) Run(ctx context.Context) {
	c := cron.New()
	// Cron guarantees we observe every minute boundary; the gate matches the
	// exact local minute, so a coarser cadence would silently skip users.
	_, err := c.AddFunc("* * * * *", func() { s.tick(ctx) })
	if err != nil {
		// Static spec, only reachable if the expression above is edited badly.
		s.log.Fatal("invalid tick spec", zap.Error(err))
	}
	c.Start()

	<-ctx.Done()
	s.log.Info("scheduler stopping")
	<-c.Stop().Done()
}

func (s *Scheduler) tick(ctx context.Context) {
	s.dispatch(ctx, time.Now().UTC())
}

// dispatch evaluates every subscriber against a single instant. Subscribers are
// independent: pipelines run concurrently up to maxParallel and one failure
// never touches another subscriber or aborts the loop.
func (s *Scheduler) dispatch(ctx context.Context, now time.Time) {
	users, err := s.repo.ListSubscribed(ctx)
	if err != nil {
		s.log.Error("ListSubscribed failed", zap.Error(err))
		return
	}

	var g errgroup.Group
	g.SetLimit(maxParallel)
	for _, u := range users {
		u := u
		g.Go(func() error {
			s.process(ctx, now, u)
			return nil
		})
	}
	_ = g.Wait()
}

// process runs one subscriber's pipeline: localize, gate, fetch, aggregate,
// send, persist marker. Any failure logs and returns with the marker unchanged.
func (s *Scheduler) process(ctx context.Context, now time.Time, u domain.User) {
	// The store query already filters, but eligibility is cheap to re-check.
	if !u.Eligible() {
		return
	}

	local, err := domain.Localize(now, u.TZ)
	if err != nil {
		s.log.Warn("skipping user with bad timezone",
			zap.Int64("chatID", u.ChatID), zap.String("tz", u.TZ), zap.Error(err))
		return
	}

	if !domain.ShouldDispatch(local, *u.SubHour, *u.SubMinute, u.LastSentDate) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cur, err := s.source.Current(cctx, *u.Lat, *u.Lon, u.Units, u.Lang)
	if err != nil {
		s.log.Error("current weather fetch failed",
			zap.Int64("chatID", u.ChatID), zap.Error(err))
		return
	}
	samples, err := s.source.Forecast(cctx, *u.Lat, *u.Lon, u.Units, u.Lang)
	if err != nil {
		s.log.Error("forecast fetch failed",
			zap.Int64("chatID", u.ChatID), zap.Error(err))
		return
	}

	rng, haveRange := weather.DailyRange(samples, u.TZ, now)

	if cctx.Err() != nil {
		// Canceled mid-pipeline: discard, don't half-commit.
		return
	}
	if err := s.send(cctx, u, cur, rng, haveRange); err != nil {
		s.log.Error("send failed", zap.Int64("chatID", u.ChatID), zap.Error(err))
		return
	}

	s.persistMarker(u.ChatID, local.Date)
}

// send delivers one summary under the subscriber deadline. The sender gets the
// context, but a sender that ignores it must not pin a dispatch slot, so the
// call runs aside and the deadline wins.
func (s *Scheduler) send(ctx context.Context, u domain.User, cur weather.Current, rng weather.Range, haveRange bool) error {
	done := make(chan error, 1)
	go func() {
		done <- s.sender.SendDaily(ctx, u, cur, rng, haveRange)
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// persistMarker commits the dispatch marker after a confirmed send. The write
// uses its own context: once the message is out, skipping the commit because of
// shutdown would leave the day marked unsent and cause a duplicate. A failed
// write risks a duplicate within the matching minute, so it is retried once and
// logged loudly.
func (s *Scheduler) persistMarker(chatID int64, date string) {
	wctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := s.repo.SetLastSentDate(wctx, chatID, date)
	if err == nil {
		return
	}
	s.log.Error("marker write failed, retrying",
		zap.Int64("chatID", chatID), zap.String("date", date), zap.Error(err))

	if err := s.repo.SetLastSentDate(wctx, chatID, date); err != nil {
		s.log.Error("marker write failed after retry, duplicate send possible",
			zap.Int64("chatID", chatID), zap.String("date", date), zap.Error(err))
	}
}
