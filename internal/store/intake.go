package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/sweeney/hydration-cup/internal/logic"
)

// TimeLayout is how event times are keyed, matching the weight log.
const TimeLayout = "2006-01-02 15:04:05"

const insertIntake = `INSERT INTO intake_events (event_time, intake_milliliters) VALUES (?, ?) ON CONFLICT(event_time) DO NOTHING`

// IntakeRepo reads and writes intake_events.
type IntakeRepo struct {
	db  *sql.DB
	loc *time.Location
}

// NewIntakeRepo wraps db. Event times are written and read in loc (nil means local time).
func NewIntakeRepo(db *sql.DB, loc *time.Location) *IntakeRepo {
	if loc == nil {
		loc = time.Local
	}
	return &IntakeRepo{db: db, loc: loc}
}

// Save inserts events in one transaction, ignoring ones already stored for
// the same time. It returns how many rows were new.
func (r *IntakeRepo) Save(ctx context.Context, events []logic.IntakeEvent) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	inserted := 0
	for _, e := range events {
		res, err := tx.ExecContext(ctx, insertIntake, e.Time.In(r.loc).Format(TimeLayout), e.AmountML)
		if err != nil {
			return 0, fmt.Errorf("insert %s: %w", e.Time.Format(TimeLayout), err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

// List returns stored events in [from, to], either bound optional, oldest first.
func (r *IntakeRepo) List(ctx context.Context, from, to time.Time) ([]logic.IntakeEvent, error) {
	var (
		conds []string
		args  []any
	)
	if !from.IsZero() {
		conds = append(conds, "event_time >= ?")
		args = append(args, from.In(r.loc).Format(TimeLayout))
	}
	if !to.IsZero() {
		conds = append(conds, "event_time <= ?")
		args = append(args, to.In(r.loc).Format(TimeLayout))
	}

	q := `SELECT event_time, intake_milliliters FROM intake_events`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY event_time ASC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []logic.IntakeEvent
	for rows.Next() {
		var (
			ts string
			ml int
		)
		if err := rows.Scan(&ts, &ml); err != nil {
			return nil, err
		}
		t, err := time.ParseInLocation(TimeLayout, ts, r.loc)
		if err != nil {
			return nil, fmt.Errorf("stored event_time %q: %w", ts, err)
		}
		out = append(out, logic.IntakeEvent{Time: t, AmountML: ml})
	}
	return out, rows.Err()
}

// Total returns the sum of stored intake since from (zero means all time).
func (r *IntakeRepo) Total(ctx context.Context, from time.Time) (int, error) {
	q := `SELECT COALESCE(SUM(intake_milliliters), 0) FROM intake_events`
	var args []any
	if !from.IsZero() {
		q += " WHERE event_time >= ?"
		args = append(args, from.In(r.loc).Format(TimeLayout))
	}
	var total int
	if err := r.db.QueryRowContext(ctx, q, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}
