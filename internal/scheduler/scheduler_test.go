package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Nauvvi1/weather-bot/internal/domain"
	"github.com/Nauvvi1/weather-bot/internal/weather"
)

// fakeRepo implements store.Repo over a map.
type fakeRepo struct {
	mu      sync.Mutex
	users   map[int64]*domain.User
	markers map[int64]string
	listErr error
	setErrs int // number of SetLastSentDate calls to fail before succeeding
}

func newFakeRepo(users ...*domain.User) *fakeRepo {
	m := make(map[int64]*domain.User, len(users))
	for _, u := range users {
		m[u.ChatID] = u
	}
	return &fakeRepo{users: m, markers: make(map[int64]string)}
}

func (r *fakeRepo) GetUser(_ context.Context, chatID int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[chatID]
	if !ok {
		return nil, errors.New("not found")
	}
	return u, nil
}

func (r *fakeRepo) UpsertUser(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ChatID] = u
	return nil
}

func (r *fakeRepo) SetLocation(context.Context, int64, string, float64, float64, string) error {
	return nil
}

func (r *fakeRepo) SetUnits(context.Context, int64, string) error { return nil }

func (r *fakeRepo) SetSubscription(context.Context, int64, int, int) error { return nil }

func (r *fakeRepo) Unsubscribe(context.Context, int64) error { return nil }

func (r *fakeRepo) Close() error { return nil }

func (r *fakeRepo) ListSubscribed(context.Context) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	var res []domain.User
	for _, u := range r.users {
		if u.Eligible() {
			res = append(res, *u)
		}
	}
	return res, nil
}

func (r *fakeRepo) SetLastSentDate(_ context.Context, chatID int64, date string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.setErrs > 0 {
		r.setErrs--
		return errors.New("disk full")
	}
	r.markers[chatID] = date
	return nil
}

func (r *fakeRepo) marker(chatID int64) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.markers[chatID]
}

// fakeSource serves canned weather, optionally failing per chat-irrelevant key.
type fakeSource struct {
	mu       sync.Mutex
	failFor  map[float64]bool // keyed by latitude for simplicity
	fetches  int
	forecast []weather.Sample
}

func (s *fakeSource) Current(_ context.Context, lat, _ float64, _, _ string) (weather.Current, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches++
	if s.failFor[lat] {
		return weather.Current{}, errors.New("upstream down")
	}
	return weather.Current{Temp: 20, ConditionID: 800}, nil
}

func (s *fakeSource) Forecast(_ context.Context, lat, _ float64, _, _ string) ([]weather.Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failFor[lat] {
		return nil, errors.New("upstream down")
	}
	return s.forecast, nil
}

// fakeSender records deliveries and can fail or block on demand.
type fakeSender struct {
	mu      sync.Mutex
	sent    []int64
	failFor map[int64]bool
	block   chan struct{} // when set, SendDaily waits on it before returning
}

func (s *fakeSender) SendDaily(_ context.Context, u domain.User, _ weather.Current, _ weather.Range, _ bool) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failFor[u.ChatID] {
		return errors.New("telegram 502")
	}
	s.sent = append(s.sent, u.ChatID)
	return nil
}

func (s *fakeSender) sentTo(chatID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.sent {
		if id == chatID {
			return true
		}
	}
	return false
}

func ptrF(f float64) *float64 { return &f }
func ptrI(i int) *int         { return &i }

// subscriberAt builds an eligible user whose target time matches `now` in tz.
func subscriberAt(t *testing.T, chatID int64, tz string, now time.Time, lat float64) *domain.User {
	t.Helper()
	local, err := domain.Localize(now, tz)
	require.NoError(t, err)
	return &domain.User{
		ChatID:     chatID,
		Lang:       "en",
		Units:      "metric",
		Lat:        ptrF(lat),
		Lon:        ptrF(13.4),
		TZ:         tz,
		Subscribed: true,
		SubHour:    ptrI(local.Hour),
		SubMinute:  ptrI(local.Minute),
	}
}

func newScheduler(repo *fakeRepo, source *fakeSource, sender *fakeSender) *Scheduler {
	return New(repo, zap.NewNop(), source, sender)
}

func TestProcess_DispatchesAndPersistsMarker(t *testing.T) {
	now := time.Date(2025, time.May, 5, 6, 0, 0, 0, time.UTC) // 08:00 Berlin (CEST)
	u := subscriberAt(t, 1, "Europe/Berlin", now, 52.5)
	repo := newFakeRepo(u)
	sender := &fakeSender{}
	s := newScheduler(repo, &fakeSource{}, sender)

	s.process(context.Background(), now, *u)

	assert.True(t, sender.sentTo(1))
	assert.Equal(t, "2025-05-05", repo.marker(1))
}

func TestProcess_SecondTickSameDayDoesNotResend(t *testing.T) {
	now := time.Date(2025, time.May, 5, 6, 0, 0, 0, time.UTC)
	u := subscriberAt(t, 1, "Europe/Berlin", now, 52.5)
	u.LastSentDate = "2025-05-05"
	repo := newFakeRepo(u)
	sender := &fakeSender{}
	s := newScheduler(repo, &fakeSource{}, sender)

	s.process(context.Background(), now, *u)

	assert.False(t, sender.sentTo(1))
	assert.Empty(t, repo.marker(1))
}

func TestProcess_OffTargetMinuteSkipsWithoutFetch(t *testing.T) {
	now := time.Date(2025, time.May, 5, 6, 1, 0, 0, time.UTC) // 08:01 Berlin
	u := subscriberAt(t, 1, "Europe/Berlin", now.Add(-time.Minute), 52.5)
	repo := newFakeRepo(u)
	source := &fakeSource{}
	s := newScheduler(repo, source, &fakeSender{})

	s.process(context.Background(), now, *u)

	assert.Zero(t, source.fetches)
}

func TestProcess_SendFailureLeavesMarkerUnchanged(t *testing.T) {
	now := time.Date(2025, time.May, 5, 6, 0, 0, 0, time.UTC)
	u := subscriberAt(t, 1, "Europe/Berlin", now, 52.5)
	repo := newFakeRepo(u)
	sender := &fakeSender{failFor: map[int64]bool{1: true}}
	s := newScheduler(repo, &fakeSource{}, sender)

	s.process(context.Background(), now, *u)

	assert.Empty(t, repo.marker(1))
}

func TestProcess_BlockedSendIsBoundedByTimeout(t *testing.T) {
	// A sender that never returns must not pin a dispatch slot: process has to
	// give up once the subscriber deadline passes, leaving the marker unset.
	now := time.Date(2025, time.May, 5, 6, 0, 0, 0, time.UTC)
	u := subscriberAt(t, 1, "Europe/Berlin", now, 52.5)
	repo := newFakeRepo(u)
	sender := &fakeSender{block: make(chan struct{})}
	t.Cleanup(func() { close(sender.block) })
	s := newScheduler(repo, &fakeSource{}, sender)
	s.timeout = 50 * time.Millisecond

	done := make(chan struct{})
	go func() {
		s.process(context.Background(), now, *u)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("process still running long after the subscriber deadline")
	}
	assert.Empty(t, repo.marker(1))
}

func TestProcess_CanceledContextDoesNotSendOrPersist(t *testing.T) {
	now := time.Date(2025, time.May, 5, 6, 0, 0, 0, time.UTC)
	u := subscriberAt(t, 1, "Europe/Berlin", now, 52.5)
	repo := newFakeRepo(u)
	sender := &fakeSender{}
	s := newScheduler(repo, &fakeSource{}, sender)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.process(ctx, now, *u)

	assert.False(t, sender.sentTo(1))
	assert.Empty(t, repo.marker(1))
}

func TestProcess_BadTimezoneSkips(t *testing.T) {
	now := time.Now().UTC()
	u := &domain.User{
		ChatID: 1, Lang: "en", Units: "metric",
		Lat: ptrF(1), Lon: ptrF(2),
		TZ: "Mars/Olympus", Subscribed: true,
		SubHour: ptrI(now.Hour()), SubMinute: ptrI(now.Minute()),
	}
	repo := newFakeRepo(u)
	source := &fakeSource{}
	s := newScheduler(repo, source, &fakeSender{})

	s.process(context.Background(), now, *u)

	assert.Zero(t, source.fetches)
	assert.Empty(t, repo.marker(1))
}

func TestProcess_MarkerWriteRetriesOnce(t *testing.T) {
	now := time.Date(2025, time.May, 5, 6, 0, 0, 0, time.UTC)
	u := subscriberAt(t, 1, "Europe/Berlin", now, 52.5)
	repo := newFakeRepo(u)
	repo.setErrs = 1 // first write fails, retry succeeds
	sender := &fakeSender{}
	s := newScheduler(repo, &fakeSource{}, sender)

	s.process(context.Background(), now, *u)

	assert.True(t, sender.sentTo(1))
	assert.Equal(t, "2025-05-05", repo.marker(1))
}

func TestDispatch_FailureIsolation(t *testing.T) {
	// Two eligible subscribers, one with a broken weather fetch: the healthy
	// one is still dispatched and its marker advances; the broken one's doesn't.
	now := time.Date(2025, time.May, 5, 8, 0, 0, 0, time.UTC)
	healthy := subscriberAt(t, 1, "UTC", now, 52.5)
	broken := subscriberAt(t, 2, "UTC", now, 99.9)
	repo := newFakeRepo(healthy, broken)
	source := &fakeSource{failFor: map[float64]bool{99.9: true}}
	sender := &fakeSender{}
	s := newScheduler(repo, source, sender)

	s.dispatch(context.Background(), now)

	assert.True(t, sender.sentTo(1))
	assert.False(t, sender.sentTo(2))
	assert.Equal(t, "2025-05-05", repo.marker(1))
	assert.Empty(t, repo.marker(2))
}

func TestDispatch_ListFailureIsNotFatal(t *testing.T) {
	repo := newFakeRepo()
	repo.listErr = errors.New("db locked")
	s := newScheduler(repo, &fakeSource{}, &fakeSender{})

	// Must not panic; the next tick simply tries again.
	s.dispatch(context.Background(), time.Now().UTC())
}
