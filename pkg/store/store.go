// Package store is the datastore gateway for the two ttsgate tables:
// cached utterances ("files") and usage records ("discord_user").
// Statements use $1 placeholders, which PostgreSQL and SQLite both accept,
// so every query runs unchanged on either engine.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" driver
	_ "modernc.org/sqlite"             // registers "sqlite" driver

	"github.com/voicebrew/ttsgate/pkg/logger"
)

//go:embed schema.sql
var schemaFS embed.FS

// ErrNotFound is returned when a lookup matches no rows.
var ErrNotFound = errors.New("store: not found")

// Utterance is one cached synthesis keyed by lowercased text.
type Utterance struct {
	Text      string
	AudioID   string
	CreatedAt int64
	UserID    int64
}

// Usage is one usage record attributing text length to a user.
type Usage struct {
	TextLength int
	AudioID    string
	CreatedAt  int64
	UserID     int64
}

// UserSummary aggregates a user's usage rows for the summary endpoint.
type UserSummary struct {
	UserID         int64  `json:"user_id"`
	CharsUsedToday int64  `json:"char_used_today"`
	CharsUsedTotal int64  `json:"char_used_total"`
	LastAudioID    string `json:"last_audio"`
}

// Store wraps a process-wide connection pool over PostgreSQL or SQLite.
type Store struct {
	db *sql.DB
}

// Open connects to the datastore selected by databaseURL and bootstraps
// the schema. postgres:// and postgresql:// URIs open the pgx driver;
// anything else is treated as a SQLite file path.
func Open(databaseURL string) (*Store, error) {
	driver, dsn := driverFor(databaseURL)

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("store open: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store ping: %w", err)
	}

	s := &Store{db: db}
	if err := s.bootstrap(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("store bootstrap: %w", err)
	}

	logger.InfoCF("store", "Connected to datastore", map[string]any{"driver": driver})
	return s, nil
}

func driverFor(databaseURL string) (driver, dsn string) {
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		return "pgx", databaseURL
	}
	return "sqlite", databaseURL
}

// bootstrap executes the embedded schema statement by statement so it works
// on drivers that reject multi-statement Exec calls.
func (s *Store) bootstrap(ctx context.Context) error {
	data, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return err
	}

	for _, stmt := range strings.Split(string(data), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement: %w", err)
		}
	}
	return nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// LookupUtterance finds a cached utterance by case-insensitive exact match
// on the full text. Returns (nil, nil) on a cache miss. Duplicate rows for
// the same text are possible; an arbitrary one is returned.
func (s *Store) LookupUtterance(ctx context.Context, text string) (*Utterance, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT text_input, audio_id, created_at, user_id FROM files WHERE LOWER(text_input) = $1 LIMIT 1`,
		strings.ToLower(text),
	)

	var u Utterance
	err := row.Scan(&u.Text, &u.AudioID, &u.CreatedAt, &u.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// RecordSynthesis persists the cache row and the usage row for one
// cache-miss synthesis in a single transaction, so a crash between the two
// writes cannot leave one without the other.
func (s *Store) RecordSynthesis(ctx context.Context, ut Utterance, us Usage) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO files (text_input, audio_id, created_at, user_id) VALUES ($1, $2, $3, $4)`,
		strings.ToLower(ut.Text), ut.AudioID, ut.CreatedAt, ut.UserID,
	)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO discord_user (text_length, audio_id, created_at, user_id) VALUES ($1, $2, $3, $4)`,
		us.TextLength, us.AudioID, us.CreatedAt, us.UserID,
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// RecordUsage persists a single usage record (the cache-hit path).
func (s *Store) RecordUsage(ctx context.Context, us Usage) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO discord_user (text_length, audio_id, created_at, user_id) VALUES ($1, $2, $3, $4)`,
		us.TextLength, us.AudioID, us.CreatedAt, us.UserID,
	)
	return err
}

// UsageSince sums the text lengths recorded for userID strictly after the
// given unix timestamp.
func (s *Store) UsageSince(ctx context.Context, userID, since int64) (int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(text_length), 0) FROM discord_user WHERE user_id = $1 AND created_at > $2`,
		userID, since,
	).Scan(&total)
	return total, err
}

// UserSummary returns the usage summary for one user: characters inside the
// lookback window, characters ever, and the most recent audio id.
// Returns ErrNotFound for a user with no usage rows.
func (s *Store) UserSummary(ctx context.Context, userID, since int64) (*UserSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT text_length, audio_id, created_at FROM discord_user WHERE user_id = $1 ORDER BY created_at`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sum := &UserSummary{UserID: userID}
	found := false
	for rows.Next() {
		var length int64
		var audioID string
		var createdAt int64
		if err := rows.Scan(&length, &audioID, &createdAt); err != nil {
			return nil, err
		}
		found = true
		sum.CharsUsedTotal += length
		if createdAt > since {
			sum.CharsUsedToday += length
		}
		sum.LastAudioID = audioID
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return sum, nil
}

// Reset drops both tables and re-runs the schema bootstrap. Drop failures
// are tolerated: a table may already be gone.
func (s *Store) Reset(ctx context.Context) error {
	for _, stmt := range []string{`DROP TABLE discord_user`, `DROP TABLE files`} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			logger.WarnCF("store", "Reset drop skipped", map[string]any{
				"statement": stmt,
				"error":     err.Error(),
			})
		}
	}
	return s.bootstrap(ctx)
}
