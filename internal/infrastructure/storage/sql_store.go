package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"ReelsAutoposter/internal/domain"
	"ReelsAutoposter/internal/ports"
)

const (
	postedTable = "posted_media"
	cursorTable = "source_cursor"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS posted_media (
		unique_id          TEXT PRIMARY KEY,
		final_caption      TEXT NOT NULL DEFAULT '',
		publish_post_id    TEXT NOT NULL DEFAULT '',
		media_kind         TEXT NOT NULL DEFAULT '',
		classified_as_reel BOOLEAN NOT NULL DEFAULT FALSE,
		status             TEXT NOT NULL,
		source             TEXT NOT NULL DEFAULT '',
		run_id             TEXT NOT NULL DEFAULT '',
		error              TEXT NOT NULL DEFAULT '',
		recorded_at        TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS source_cursor (
		name     TEXT PRIMARY KEY,
		position BIGINT NOT NULL
	)`,
}

// SQLStore keeps both the dedup history and the cursor in a SQL database.
// The same queries run on SQLite and Postgres; only the placeholder differs.
type SQLStore struct {
	db         *sqlx.DB
	sb         sq.StatementBuilderType
	cursorName string
}

var _ ports.DedupStore = (*SQLStore)(nil)
var _ ports.CursorStore = (*SQLStore)(nil)

type postedRow struct {
	UniqueID         string `db:"unique_id"`
	FinalCaption     string `db:"final_caption"`
	PublishPostID    string `db:"publish_post_id"`
	MediaKind        string `db:"media_kind"`
	ClassifiedAsReel bool   `db:"classified_as_reel"`
	Status           string `db:"status"`
	Source           string `db:"source"`
	RunID            string `db:"run_id"`
	Error            string `db:"error"`
	RecordedAt       string `db:"recorded_at"`
}

// OpenSQLite opens (creating if needed) an embedded database file.
func OpenSQLite(ctx context.Context, path, cursorName string) (*SQLStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	return openStore(ctx, db, sq.Question, cursorName)
}

// OpenPostgres connects through the pgx stdlib driver.
func OpenPostgres(ctx context.Context, dsn, cursorName string) (*SQLStore, error) {
	db, err := sqlx.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return openStore(ctx, db, sq.Dollar, cursorName)
}

func openStore(ctx context.Context, db *sqlx.DB, placeholder sq.PlaceholderFormat, cursorName string) (*SQLStore, error) {
	store := NewSQLStore(db, placeholder, cursorName)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLStore wraps an already opened database.
func NewSQLStore(db *sqlx.DB, placeholder sq.PlaceholderFormat, cursorName string) *SQLStore {
	return &SQLStore{
		db:         db,
		sb:         sq.StatementBuilder.PlaceholderFormat(placeholder),
		cursorName: cursorName,
	}
}

// Migrate creates the tables if they do not exist.
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate schema: %w", err)
		}
	}
	return nil
}

// Close releases the database handle.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// IsPosted reports whether any record exists for the id.
func (s *SQLStore) IsPosted(ctx context.Context, uniqueID string) (bool, error) {
	query, args, err := s.sb.Select("1").
		From(postedTable).
		Where(sq.Eq{"unique_id": uniqueID}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build posted query: %w", err)
	}

	var one int
	err = s.db.GetContext(ctx, &one, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query posted: %w", err)
	}
	return true, nil
}

// Get loads the record stored for an id.
func (s *SQLStore) Get(ctx context.Context, uniqueID string) (domain.DedupRecord, bool, error) {
	query, args, err := s.sb.Select(
		"unique_id", "final_caption", "publish_post_id", "media_kind",
		"classified_as_reel", "status", "source", "run_id", "error", "recorded_at",
	).
		From(postedTable).
		Where(sq.Eq{"unique_id": uniqueID}).
		ToSql()
	if err != nil {
		return domain.DedupRecord{}, false, fmt.Errorf("build record query: %w", err)
	}

	var row postedRow
	err = s.db.GetContext(ctx, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DedupRecord{}, false, nil
	}
	if err != nil {
		return domain.DedupRecord{}, false, fmt.Errorf("query record: %w", err)
	}

	rec, err := row.toRecord()
	if err != nil {
		return domain.DedupRecord{}, false, fmt.Errorf("decode record %s: %w", uniqueID, err)
	}
	return rec, true, nil
}

// Record upserts the outcome of a publish attempt.
func (s *SQLStore) Record(ctx context.Context, uniqueID string, record domain.DedupRecord) error {
	if uniqueID == "" {
		return fmt.Errorf("record dedup: empty unique id")
	}

	ts := record.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	query, args, err := s.sb.Insert(postedTable).
		Columns(
			"unique_id", "final_caption", "publish_post_id", "media_kind",
			"classified_as_reel", "status", "source", "run_id", "error", "recorded_at",
		).
		Values(
			uniqueID, record.FinalCaption, record.PublishPostID, record.MediaKind.String(),
			record.ClassifiedAsReel, string(record.Status), record.Source, record.RunID, record.Error,
			ts.UTC().Format(time.RFC3339Nano),
		).
		Suffix(`ON CONFLICT (unique_id) DO UPDATE SET
			final_caption = excluded.final_caption,
			publish_post_id = excluded.publish_post_id,
			media_kind = excluded.media_kind,
			classified_as_reel = excluded.classified_as_reel,
			status = excluded.status,
			source = excluded.source,
			run_id = excluded.run_id,
			error = excluded.error,
			recorded_at = excluded.recorded_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert posted %s: %w", uniqueID, err)
	}
	return nil
}

// Load returns the stored cursor for this store's source, 0 when absent.
func (s *SQLStore) Load(ctx context.Context) (int64, error) {
	query, args, err := s.sb.Select("position").
		From(cursorTable).
		Where(sq.Eq{"name": s.cursorName}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build cursor query: %w", err)
	}

	var position int64
	err = s.db.GetContext(ctx, &position, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query cursor: %w", err)
	}
	return position, nil
}

// Save stores cursor; the upsert keeps the larger of the old and new values.
func (s *SQLStore) Save(ctx context.Context, cursor int64) error {
	query, args, err := s.sb.Insert(cursorTable).
		Columns("name", "position").
		Values(s.cursorName, cursor).
		Suffix(`ON CONFLICT (name) DO UPDATE SET position = CASE
			WHEN excluded.position > source_cursor.position THEN excluded.position
			ELSE source_cursor.position END`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build cursor upsert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save cursor: %w", err)
	}
	return nil
}

func (r postedRow) toRecord() (domain.DedupRecord, error) {
	kind, err := domain.ParseMediaKind(r.MediaKind)
	if err != nil {
		return domain.DedupRecord{}, err
	}
	ts, err := time.Parse(time.RFC3339Nano, r.RecordedAt)
	if err != nil {
		return domain.DedupRecord{}, fmt.Errorf("parse recorded_at: %w", err)
	}
	return domain.DedupRecord{
		FinalCaption:     r.FinalCaption,
		PublishPostID:    r.PublishPostID,
		Timestamp:        ts,
		MediaKind:        kind,
		ClassifiedAsReel: r.ClassifiedAsReel,
		Status:           domain.PostStatus(r.Status),
		Source:           r.Source,
		RunID:            r.RunID,
		Error:            r.Error,
	}, nil
}
