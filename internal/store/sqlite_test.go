package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nauvvi1/weather-bot/internal/domain"
)

func openTestRepo(t *testing.T) *SQLiteRepo {
	t.Helper()
	repo, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func ptrF(f float64) *float64 { return &f }
func ptrI(i int) *int         { return &i }

func newTestUser(chatID int64) *domain.User {
	return &domain.User{
		ChatID:    chatID,
		Lang:      "en",
		Units:     "metric",
		CreatedAt: time.Now().UTC(),
	}
}

func TestUpsertAndGetUser(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	u := newTestUser(42)
	require.NoError(t, repo.UpsertUser(ctx, u))

	got, err := repo.GetUser(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "en", got.Lang)
	assert.Equal(t, "metric", got.Units)
	assert.False(t, got.Subscribed)
	assert.Nil(t, got.Lat)
	assert.Empty(t, got.TZ)
}

func TestGetUserMissingReturnsNotFound(t *testing.T) {
	// Callers create a defaults row only on ErrNotFound; any other error must
	// surface as-is so an existing record is never overwritten by mistake.
	repo := openTestRepo(t)

	_, err := repo.GetUser(context.Background(), 404)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSetLocationAndSubscription(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.UpsertUser(ctx, newTestUser(1)))
	require.NoError(t, repo.SetLocation(ctx, 1, "Berlin, DE", 52.52, 13.405, "Europe/Berlin"))
	require.NoError(t, repo.SetSubscription(ctx, 1, 8, 0))

	got, err := repo.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.True(t, got.Subscribed)
	assert.Equal(t, "Europe/Berlin", got.TZ)
	require.NotNil(t, got.SubHour)
	assert.Equal(t, 8, *got.SubHour)
	assert.True(t, got.Eligible())
}

func TestSetSubscriptionClearsMarker(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.UpsertUser(ctx, newTestUser(1)))
	require.NoError(t, repo.SetSubscription(ctx, 1, 8, 0))
	require.NoError(t, repo.SetLastSentDate(ctx, 1, "2025-05-05"))

	// Re-subscribing must reset the marker so today is deliverable again.
	require.NoError(t, repo.SetSubscription(ctx, 1, 9, 30))
	got, err := repo.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, got.LastSentDate)
}

func TestListSubscribed_FiltersIncompleteUsers(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	// Fully configured subscriber.
	full := newTestUser(1)
	full.CityName = "Berlin"
	full.Lat, full.Lon = ptrF(52.52), ptrF(13.405)
	full.TZ = "Europe/Berlin"
	full.Subscribed = true
	full.SubHour, full.SubMinute = ptrI(8), ptrI(0)
	require.NoError(t, repo.UpsertUser(ctx, full))

	// Subscribed but no location/timezone: not eligible.
	partial := newTestUser(2)
	partial.Subscribed = true
	partial.SubHour, partial.SubMinute = ptrI(8), ptrI(0)
	require.NoError(t, repo.UpsertUser(ctx, partial))

	// Configured but unsubscribed.
	off := newTestUser(3)
	off.Lat, off.Lon = ptrF(1), ptrF(2)
	off.TZ = "UTC"
	off.SubHour, off.SubMinute = ptrI(10), ptrI(0)
	require.NoError(t, repo.UpsertUser(ctx, off))

	got, err := repo.ListSubscribed(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ChatID)
}

func TestSetLastSentDate_ReadAfterWrite(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.UpsertUser(ctx, newTestUser(7)))
	require.NoError(t, repo.SetLastSentDate(ctx, 7, "2025-05-05"))

	got, err := repo.GetUser(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "2025-05-05", got.LastSentDate)
}
