package history

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	"modernc.org/sqlite"

	"video-compressor/batch"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Entry is one recorded result
type Entry struct {
	ID          string
	RunID       string
	Index       int
	InputPath   string
	OutputPath  string
	Status      string
	Reason      string
	Error       string
	Format      string
	SourceBytes int64
	TargetBytes int64
	OutputBytes int64
	VideoKbps   int
	AudioKbps   int
	DryRun      bool
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Store is a sqlite-backed batch.Recorder
type Store struct {
	db *sql.DB
}

var hookOnce sync.Once

func registerHook() {
	hookOnce.Do(func() {
		sqlite.RegisterConnectionHook(func(conn sqlite.ExecQuerierContext, dsn string) error {
			pragmas := []string{
				"PRAGMA journal_mode = WAL",
				"PRAGMA busy_timeout = 5000",
				"PRAGMA synchronous = NORMAL",
			}
			for _, p := range pragmas {
				if _, err := conn.ExecContext(context.Background(), p, nil); err != nil {
					return fmt.Errorf("execute %s: %w", p, err)
				}
			}
			return nil
		})
	})
}

var migrateMu sync.Mutex

// Open opens or creates the database at path and applies migrations
func Open(path string) (*Store, error) {
	registerHook()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("history directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// one writer at a time
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// migrate runs goose, whose configuration is package-global
func migrate(db *sql.DB) error {
	migrateMu.Lock()
	defer migrateMu.Unlock()

	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores r under runID
func (s *Store) Record(ctx context.Context, runID string, r batch.Result) error {
	e := Entry{
		ID:          uuid.NewString(),
		RunID:       runID,
		Index:       r.Index,
		InputPath:   r.Path,
		OutputPath:  r.OutputPath,
		Status:      r.Status.String(),
		OutputBytes: r.OutputSizeBytes,
		DryRun:      r.DryRun,
		StartedAt:   r.Started,
		FinishedAt:  r.Finished,
	}
	if r.Status == batch.StatusFailed {
		e.Reason = r.Reason.String()
	}
	if r.Err != nil {
		e.Error = r.Err.Error()
	}
	if r.Info != nil {
		e.SourceBytes = r.Info.SizeBytes
	}
	if r.Plan != nil {
		e.Format = string(r.Plan.Format)
		e.TargetBytes = r.Plan.TargetSizeBytes
		e.VideoKbps = r.Plan.VideoKbps
		e.AudioKbps = r.Plan.AudioKbps
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO encodes (
			id, run_id, item_index, input_path, output_path, status, reason,
			error_message, format, source_bytes, target_bytes, output_bytes,
			video_kbps, audio_kbps, dry_run, started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.RunID, e.Index, e.InputPath, e.OutputPath, e.Status, e.Reason,
		e.Error, e.Format, e.SourceBytes, e.TargetBytes, e.OutputBytes,
		e.VideoKbps, e.AudioKbps, e.DryRun, toMillis(e.StartedAt), toMillis(e.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("insert encode: %w", err)
	}
	return nil
}

const selectColumns = `
	SELECT id, run_id, item_index, input_path, output_path, status, reason,
		error_message, format, source_bytes, target_bytes, output_bytes,
		video_kbps, audio_kbps, dry_run, started_at, finished_at
	FROM encodes`

// Recent returns up to limit entries, newest first
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		selectColumns+` ORDER BY finished_at DESC, item_index DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list encodes: %w", err)
	}
	return scanEntries(rows)
}

// Run returns the entries of one run in item order
func (s *Store) Run(ctx context.Context, runID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		selectColumns+` WHERE run_id = ? ORDER BY item_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("list run %s: %w", runID, err)
	}
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var started, finished int64
		if err := rows.Scan(
			&e.ID, &e.RunID, &e.Index, &e.InputPath, &e.OutputPath, &e.Status, &e.Reason,
			&e.Error, &e.Format, &e.SourceBytes, &e.TargetBytes, &e.OutputBytes,
			&e.VideoKbps, &e.AudioKbps, &e.DryRun, &started, &finished,
		); err != nil {
			return nil, fmt.Errorf("scan encode: %w", err)
		}
		e.StartedAt = fromMillis(started)
		e.FinishedAt = fromMillis(finished)
		out = append(out, e)
	}
	return out, rows.Err()
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// DefaultPath is the history database under the user cache directory
func DefaultPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "video-compressor-history.db"
	}
	return filepath.Join(dir, "video-compressor", "history.db")
}
