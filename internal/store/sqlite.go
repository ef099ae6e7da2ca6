package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Registers the "sqlite" driver (pure Go).
	_ "modernc.org/sqlite"

	"github.com/Nauvvi1/weather-bot/internal/domain"
)

// SQLiteRepo implements Repo using an embedded SQLite database.
type SQLiteRepo struct{ db *sql.DB }

// OpenSQLite opens (or creates) the SQLite database at the given path,
// applies recommended PRAGMAs, runs SQL migrations, and returns a repository.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Reasonable pooling for SQLite; it's a single-writer engine.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &SQLiteRepo{db: db}, nil
}

// applyPragmas configures the SQLite connection for durability and concurrency.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database resources.
func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

const userColumns = `chat_id, created_at, lang, units, city_name, lat, lon, tz,
	       subscribed, sub_hour, sub_minute, last_sent_date`

// UpsertUser inserts or updates a user's full record.
func (r *SQLiteRepo) UpsertUser(ctx context.Context, u *domain.User) error {
	if u == nil {
		return errors.New("nil user")
	}

	created := u.CreatedAt.UTC().Unix()
	if u.CreatedAt.IsZero() {
		created = time.Now().UTC().Unix()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (
			chat_id, created_at, lang, units, city_name, lat, lon, tz,
			subscribed, sub_hour, sub_minute, last_sent_date
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET
			lang           = excluded.lang,
			units          = excluded.units,
			city_name      = excluded.city_name,
			lat            = excluded.lat,
			lon            = excluded.lon,
			tz             = excluded.tz,
			subscribed     = excluded.subscribed,
			sub_hour       = excluded.sub_hour,
			sub_minute     = excluded.sub_minute,
			last_sent_date = excluded.last_sent_date`,
		u.ChatID, created, u.Lang, u.Units, u.CityName,
		toNullFloat64(u.Lat), toNullFloat64(u.Lon), toNullString(u.TZ),
		boolToInt(u.Subscribed), toNullInt(u.SubHour), toNullInt(u.SubMinute),
		toNullString(u.LastSentDate),
	)
	return err
}

// GetUser returns a user's record by chatID, or ErrNotFound.
func (r *SQLiteRepo) GetUser(ctx context.Context, chatID int64) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE chat_id = ?`,
		chatID,
	)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// SetLocation stores a resolved place and its timezone for the user.
func (r *SQLiteRepo) SetLocation(ctx context.Context, chatID int64, city string, lat, lon float64, tz string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET city_name = ?, lat = ?, lon = ?, tz = ?
		WHERE chat_id = ?`,
		city, lat, lon, toNullString(tz), chatID,
	)
	return err
}

// SetUnits stores the unit system (metric|imperial) for the user.
func (r *SQLiteRepo) SetUnits(ctx context.Context, chatID int64, units string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET units = ?
		WHERE chat_id = ?`,
		units, chatID,
	)
	return err
}

// SetSubscription enables the daily summary at hour:minute local time and clears
// the dispatch marker, so re-subscribing makes today deliverable again.
func (r *SQLiteRepo) SetSubscription(ctx context.Context, chatID int64, hour, minute int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET subscribed = 1, sub_hour = ?, sub_minute = ?, last_sent_date = NULL
		WHERE chat_id = ?`,
		hour, minute, chatID,
	)
	return err
}

// Unsubscribe disables the daily summary, keeping the rest of the settings.
func (r *SQLiteRepo) Unsubscribe(ctx context.Context, chatID int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET subscribed = 0
		WHERE chat_id = ?`,
		chatID,
	)
	return err
}

// ListSubscribed returns users eligible for dispatch. The filter mirrors
// domain.User.Eligible; the scheduler re-validates regardless.
func (r *SQLiteRepo) ListSubscribed(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE subscribed = 1
		  AND tz IS NOT NULL
		  AND sub_hour IS NOT NULL
		  AND sub_minute IS NOT NULL
		  AND lat IS NOT NULL
		  AND lon IS NOT NULL`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// SetLastSentDate records the local date a daily summary was delivered for.
func (r *SQLiteRepo) SetLastSentDate(ctx context.Context, chatID int64, date string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET last_sent_date = ?
		WHERE chat_id = ?`,
		date, chatID,
	)
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		chatID     int64
		createdAt  int64
		lang       string
		units      string
		cityName   string
		lat        sql.NullFloat64
		lon        sql.NullFloat64
		tz         sql.NullString
		subscribed int
		subHour    sql.NullInt64
		subMinute  sql.NullInt64
		lastSent   sql.NullString
	)
	if err := row.Scan(
		&chatID, &createdAt, &lang, &units, &cityName,
		&lat, &lon, &tz, &subscribed, &subHour, &subMinute, &lastSent,
	); err != nil {
		return nil, err
	}
	return &domain.User{
		ChatID:       chatID,
		Lang:         lang,
		Units:        units,
		CityName:     cityName,
		Lat:          fromNullFloat64(lat),
		Lon:          fromNullFloat64(lon),
		TZ:           tz.String,
		Subscribed:   subscribed != 0,
		SubHour:      fromNullInt(subHour),
		SubMinute:    fromNullInt(subMinute),
		LastSentDate: lastSent.String,
		CreatedAt:    time.Unix(createdAt, 0).UTC(),
	}, nil
}
