package store

import (
	"context"
	"errors"

	"github.com/Nauvvi1/weather-bot/internal/domain"
)

// ErrNotFound is returned by GetUser when no row exists for the chat.
var ErrNotFound = errors.New("user not found")

// Repo defines storage operations for users and the daily dispatch marker.
type Repo interface {
	GetUser(ctx context.Context, chatID int64) (*domain.User, error)
	UpsertUser(ctx context.Context, u *domain.User) error
	SetLocation(ctx context.Context, chatID int64, city string, lat, lon float64, tz string) error
	SetUnits(ctx context.Context, chatID int64, units string) error
	// SetSubscription enables the daily summary at the given local time and
	// clears the dispatch marker so today's summary can still be delivered.
	SetSubscription(ctx context.Context, chatID int64, hour, minute int) error
	Unsubscribe(ctx context.Context, chatID int64) error
	// ListSubscribed returns users with an active subscription and the fields
	// required for dispatch present (timezone, target time, location).
	ListSubscribed(ctx context.Context) ([]domain.User, error)
	// SetLastSentDate records the local calendar date a summary was delivered for.
	SetLastSentDate(ctx context.Context, chatID int64, date string) error
	Close() error
}
