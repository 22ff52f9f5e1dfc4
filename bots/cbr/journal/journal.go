// Package journal stores every fetched CBR quote in Postgres, one row per
// currency and day.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/m3rciful/cbrbot/bots/cbr/dialog"
	"github.com/m3rciful/cbrbot/core/logger"
)

const upsertQuote = `
INSERT INTO rate_quotes (quote_date, code, rate, fetched_at)
VALUES (:quote_date, :code, :rate, :fetched_at)
ON CONFLICT (quote_date, code)
DO UPDATE SET rate = EXCLUDED.rate, fetched_at = EXCLUDED.fetched_at`

// DB is the subset of *sqlx.DB the journal needs.
type DB interface {
	NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error)
}

var _ DB = (*sqlx.DB)(nil)

type row struct {
	QuoteDate time.Time       `db:"quote_date"`
	Code      string          `db:"code"`
	Rate      decimal.Decimal `db:"rate"`
	FetchedAt time.Time       `db:"fetched_at"`
}

// Journal implements dialog.QuoteRecorder on top of Postgres.
type Journal struct {
	db DB
}

// New returns a Journal writing through db.
func New(db DB) *Journal {
	return &Journal{db: db}
}

// Record upserts q. A later quote for the same day replaces the earlier one.
func (j *Journal) Record(ctx context.Context, q dialog.Quote) error {
	if j == nil || j.db == nil {
		return errors.New("journal: no database")
	}
	r := row{
		QuoteDate: truncateDay(q.Date),
		Code:      string(q.Code),
		Rate:      q.Rate,
		FetchedAt: q.FetchedAt.UTC(),
	}
	start := time.Now()
	if _, err := j.db.NamedExecContext(ctx, upsertQuote, r); err != nil {
		return fmt.Errorf("journal: upsert %s: %w", r.Code, err)
	}
	logger.Journal.LogAttrs(ctx, slog.LevelDebug, "quote journaled",
		slog.String("event", "journal.record"),
		slog.String("status", "ok"),
		slog.String("currency", r.Code),
		slog.String("quote_date", r.QuoteDate.Format(time.DateOnly)),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
