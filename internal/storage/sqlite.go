package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	// Register sqlite3 driver
	_ "github.com/mattn/go-sqlite3"
)

// ReportRun is one execution of the daily CSV report.
type ReportRun struct {
	ID         string `db:"id" json:"id"`
	ReportDate string `db:"report_date" json:"report_date"`
	Assets     string `db:"assets" json:"assets"`
	Path       string `db:"path" json:"path"`
	Rows       int    `db:"row_count" json:"rows"`
	CreatedAt  int64  `db:"created_at" json:"created_at"`
}

// UsageStats aggregates command usage for one category.
type UsageStats struct {
	Count    int            `json:"count"`
	Commands map[string]int `json:"commands"`
}

// TimeSeriesPoint is a usage count for one time bucket.
type TimeSeriesPoint struct {
	Timestamp int64 `db:"bucket"`
	Count     int   `db:"n"`
}

type Store struct{ db *sqlx.DB }

func OpenSQLite(dsn string) (*sqlx.DB, error) {
	return sqlx.Open("sqlite3", dsn)
}

func InitSchema(db *sqlx.DB) error {
	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS report_runs(
	id TEXT PRIMARY KEY,
	report_date TEXT NOT NULL,
	assets TEXT NOT NULL,
	path TEXT NOT NULL,
	row_count INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS usage(
	chat_id INTEGER, command TEXT, category TEXT, ts INTEGER
);
CREATE INDEX IF NOT EXISTS usage_ts ON usage(ts);`)
	return err
}

func NewStore(db *sqlx.DB) *Store { return &Store{db: db} }

func (s *Store) SaveReportRun(ctx context.Context, run ReportRun) error {
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO report_runs(id,report_date,assets,path,row_count,created_at)
		VALUES(:id,:report_date,:assets,:path,:row_count,:created_at)`, run)
	if err != nil {
		return fmt.Errorf("save report run: %w", err)
	}
	return nil
}

// RecentReportRuns returns the latest runs, newest first.
func (s *Store) RecentReportRuns(ctx context.Context, limit int) ([]ReportRun, error) {
	var out []ReportRun
	err := s.db.SelectContext(ctx, &out,
		`SELECT id,report_date,assets,path,row_count,created_at FROM report_runs ORDER BY created_at DESC, report_date DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent report runs: %w", err)
	}
	return out, nil
}

func (s *Store) RecordUsage(ctx context.Context, chatID int64, command, category string, ts time.Time) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO usage(chat_id,command,category,ts) VALUES(?,?,?,?)`,
		chatID, strings.ToLower(command), category, ts.Unix())
	return err
}

// UsageStats groups usage since a point in time by category.
func (s *Store) UsageStats(ctx context.Context, since time.Time) (map[string]*UsageStats, error) {
	var rows []struct {
		Category string `db:"category"`
		Command  string `db:"command"`
		N        int    `db:"n"`
	}
	err := s.db.SelectContext(ctx, &rows,
		`SELECT category, command, COUNT(*) AS n FROM usage WHERE ts>=? GROUP BY category, command`, since.Unix())
	if err != nil {
		return nil, fmt.Errorf("usage stats: %w", err)
	}
	out := map[string]*UsageStats{}
	for _, r := range rows {
		st, ok := out[r.Category]
		if !ok {
			st = &UsageStats{Commands: map[string]int{}}
			out[r.Category] = st
		}
		st.Count += r.N
		st.Commands[r.Command] += r.N
	}
	return out, nil
}

// UsageSeries counts usage per category in buckets of the given width.
func (s *Store) UsageSeries(ctx context.Context, since time.Time, bucket time.Duration) (map[string][]TimeSeriesPoint, error) {
	width := int64(bucket / time.Second)
	if width <= 0 {
		width = 3600
	}
	var rows []struct {
		Category string `db:"category"`
		Bucket   int64  `db:"bucket"`
		N        int    `db:"n"`
	}
	err := s.db.SelectContext(ctx, &rows,
		`SELECT category, (ts/?)*? AS bucket, COUNT(*) AS n FROM usage WHERE ts>=? GROUP BY category, bucket ORDER BY bucket`,
		width, width, since.Unix())
	if err != nil {
		return nil, fmt.Errorf("usage series: %w", err)
	}
	out := map[string][]TimeSeriesPoint{}
	for _, r := range rows {
		out[r.Category] = append(out[r.Category], TimeSeriesPoint{Timestamp: r.Bucket, Count: r.N})
	}
	return out, nil
}
