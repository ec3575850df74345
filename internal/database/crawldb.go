package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/mailcrawl/internal/model"
)

// FileName is the database file name inside the data directory.
const FileName = "mailcrawl.db"

// ErrRunNotFound is returned by GetRun when no run has the given ID.
var ErrRunNotFound = errors.New("crawl run not found")

// CrawlDB stores crawl results in SQLite so runs can be listed and compared
// later. One database file holds the history of every seed.
type CrawlDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures CrawlDB behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file if missing.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the CrawlDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// mode=rw refuses to create a missing file; mode=rwc creates it.
	// Foreign keys are enabled per connection through the DSN.
	dsn := dbPath + "?mode=rw&_pragma=foreign_keys(1)"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc&_pragma=foreign_keys(1)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Path returns the database file path.
func (cdb *CrawlDB) Path() string {
	return cdb.dbPath
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (cdb *CrawlDB) createTables() error {
	schema := `
	-- One row per crawl
	CREATE TABLE IF NOT EXISTS crawl_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		seed TEXT NOT NULL,
		budget INTEGER NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		pages_processed INTEGER NOT NULL,
		interrupted INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_runs_seed ON crawl_runs(seed);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON crawl_runs(started_at);

	-- Every URL dequeued during a run, including failed ones
	CREATE TABLE IF NOT EXISTS visited_urls (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES crawl_runs(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		UNIQUE(run_id, url)
	);

	-- Distinct addresses found during a run, with the first page they were seen on
	CREATE TABLE IF NOT EXISTS emails (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES crawl_runs(id) ON DELETE CASCADE,
		email TEXT NOT NULL,
		source_url TEXT,
		UNIQUE(run_id, email)
	);

	CREATE INDEX IF NOT EXISTS idx_emails_email ON emails(email);

	-- Per-URL failures in the order they occurred
	CREATE TABLE IF NOT EXISTS failures (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES crawl_runs(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		kind TEXT NOT NULL,
		status_code INTEGER,
		message TEXT
	);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveResult stores r and its visited URLs, emails and failures in one
// transaction, sets r.ID and returns it.
func (cdb *CrawlDB) SaveResult(ctx context.Context, r *model.Result) (int64, error) {
	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() //nolint:errcheck // no-op after commit

	res, err := tx.ExecContext(ctx, `
	INSERT INTO crawl_runs (seed, budget, started_at, finished_at, pages_processed, interrupted)
	VALUES (?, ?, ?, ?, ?, ?)
	`,
		r.Seed,
		r.Budget,
		formatTimestamp(r.StartedAt),
		formatTimestamp(r.FinishedAt),
		r.PagesProcessed,
		r.Interrupted,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert crawl run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run id: %w", err)
	}

	if err := insertEach(ctx, tx,
		"INSERT OR IGNORE INTO visited_urls (run_id, url) VALUES (?, ?)",
		r.Visited, func(u string) []any { return []any{runID, u} },
	); err != nil {
		return 0, fmt.Errorf("failed to insert visited urls: %w", err)
	}

	if err := insertEach(ctx, tx,
		"INSERT OR IGNORE INTO emails (run_id, email, source_url) VALUES (?, ?, ?)",
		r.Emails, func(e string) []any { return []any{runID, e, r.EmailSources[e]} },
	); err != nil {
		return 0, fmt.Errorf("failed to insert emails: %w", err)
	}

	if err := insertEach(ctx, tx,
		"INSERT INTO failures (run_id, url, kind, status_code, message) VALUES (?, ?, ?, ?, ?)",
		r.Failures, func(f model.Failure) []any {
			return []any{runID, f.URL, string(f.Kind), f.StatusCode, f.Message}
		},
	); err != nil {
		return 0, fmt.Errorf("failed to insert failures: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit crawl run: %w", err)
	}

	r.ID = runID
	return runID, nil
}

// insertEach runs one prepared statement per item.
func insertEach[T any](ctx context.Context, tx *sql.Tx, query string, items []T, args func(T) []any) error {
	if len(items) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, item := range items {
		if _, err := stmt.ExecContext(ctx, args(item)...); err != nil {
			return err
		}
	}
	return nil
}

// RunMetadata summarises a stored run without loading its URL lists.
type RunMetadata struct {
	ID             int64     `json:"id"`
	Seed           string    `json:"seed"`
	Budget         int       `json:"budget"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	PagesProcessed int       `json:"pages_processed"`
	VisitedCount   int       `json:"visited_count"`
	EmailCount     int       `json:"email_count"`
	FailureCount   int       `json:"failure_count"`
	Interrupted    bool      `json:"interrupted,omitempty"`
}

// Duration returns how long the run took.
func (m RunMetadata) Duration() time.Duration {
	return m.FinishedAt.Sub(m.StartedAt)
}

// ListRuns returns run summaries, newest first. An empty seed lists every run.
func (cdb *CrawlDB) ListRuns(ctx context.Context, seed string) ([]RunMetadata, error) {
	query := `
	SELECT r.id, r.seed, r.budget, r.started_at, r.finished_at, r.pages_processed, r.interrupted,
		(SELECT COUNT(*) FROM visited_urls v WHERE v.run_id = r.id),
		(SELECT COUNT(*) FROM emails e WHERE e.run_id = r.id),
		(SELECT COUNT(*) FROM failures f WHERE f.run_id = r.id)
	FROM crawl_runs r
	`
	args := make([]any, 0, 1)
	if seed != "" {
		query += " WHERE r.seed = ?"
		args = append(args, seed)
	}
	query += " ORDER BY r.started_at DESC, r.id DESC"

	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var results []RunMetadata
	for rows.Next() {
		var (
			meta              RunMetadata
			started, finished string
		)
		if err := rows.Scan(
			&meta.ID,
			&meta.Seed,
			&meta.Budget,
			&started,
			&finished,
			&meta.PagesProcessed,
			&meta.Interrupted,
			&meta.VisitedCount,
			&meta.EmailCount,
			&meta.FailureCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		meta.StartedAt = parseTimestamp(started)
		meta.FinishedAt = parseTimestamp(finished)
		results = append(results, meta)
	}

	return results, rows.Err()
}

// GetRun loads a stored run as a model.Result with sorted lists.
// It returns ErrRunNotFound when id does not exist.
func (cdb *CrawlDB) GetRun(ctx context.Context, id int64) (*model.Result, error) {
	var (
		r                 model.Result
		started, finished string
	)
	err := cdb.db.QueryRowContext(ctx, `
	SELECT id, seed, budget, started_at, finished_at, pages_processed, interrupted
	FROM crawl_runs WHERE id = ?
	`, id).Scan(&r.ID, &r.Seed, &r.Budget, &started, &finished, &r.PagesProcessed, &r.Interrupted)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	r.StartedAt = parseTimestamp(started)
	r.FinishedAt = parseTimestamp(finished)

	if r.Visited, err = cdb.queryStrings(ctx,
		"SELECT url FROM visited_urls WHERE run_id = ? ORDER BY url", id); err != nil {
		return nil, fmt.Errorf("failed to load visited urls: %w", err)
	}

	r.Emails = make([]string, 0)
	r.EmailSources = make(map[string]string)
	rows, err := cdb.db.QueryContext(ctx,
		"SELECT email, COALESCE(source_url, '') FROM emails WHERE run_id = ? ORDER BY email", id)
	if err != nil {
		return nil, fmt.Errorf("failed to load emails: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var email, source string
		if err := rows.Scan(&email, &source); err != nil {
			return nil, fmt.Errorf("failed to scan email: %w", err)
		}
		r.Emails = append(r.Emails, email)
		if source != "" {
			r.EmailSources[email] = source
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load emails: %w", err)
	}

	if r.Failures, err = cdb.loadFailures(ctx, id); err != nil {
		return nil, err
	}

	return &r, nil
}

func (cdb *CrawlDB) loadFailures(ctx context.Context, runID int64) ([]model.Failure, error) {
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT url, kind, COALESCE(status_code, 0), COALESCE(message, '')
	FROM failures WHERE run_id = ? ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load failures: %w", err)
	}
	defer rows.Close()

	failures := make([]model.Failure, 0)
	for rows.Next() {
		var (
			f    model.Failure
			kind string
		)
		if err := rows.Scan(&f.URL, &kind, &f.StatusCode, &f.Message); err != nil {
			return nil, fmt.Errorf("failed to scan failure: %w", err)
		}
		f.Kind = model.FailureKind(kind)
		failures = append(failures, f)
	}
	return failures, rows.Err()
}

// ListSeeds returns every seed with at least one stored run, sorted.
func (cdb *CrawlDB) ListSeeds(ctx context.Context) ([]string, error) {
	seeds, err := cdb.queryStrings(ctx, "SELECT DISTINCT seed FROM crawl_runs ORDER BY seed")
	if err != nil {
		return nil, fmt.Errorf("failed to list seeds: %w", err)
	}
	return seeds, nil
}

// KnownEmails returns every address found by any stored run of seed, sorted.
func (cdb *CrawlDB) KnownEmails(ctx context.Context, seed string) ([]string, error) {
	emails, err := cdb.queryStrings(ctx, `
	SELECT DISTINCT e.email
	FROM emails e JOIN crawl_runs r ON r.id = e.run_id
	WHERE r.seed = ?
	ORDER BY e.email
	`, seed)
	if err != nil {
		return nil, fmt.Errorf("failed to list known emails: %w", err)
	}
	return emails, nil
}

// DeleteRun removes a run and, through cascading keys, its child rows.
func (cdb *CrawlDB) DeleteRun(ctx context.Context, id int64) error {
	res, err := cdb.db.ExecContext(ctx, "DELETE FROM crawl_runs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}
	return nil
}

// queryStrings runs a single-column query.
func (cdb *CrawlDB) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// storedTimeFormat has fixed-width fractions so that lexical order is time order.
const storedTimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(storedTimeFormat)
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp parses s with each known format and returns the zero time
// if none matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
