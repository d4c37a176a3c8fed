package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sweeney/hydration-cup/internal/eventlog"
	"github.com/sweeney/hydration-cup/internal/logic"
	"github.com/sweeney/hydration-cup/internal/store"
)

const (
	formatText = "text"
	formatJSON = "json"
)

// reportJSON is the --format json document.
type reportJSON struct {
	Events  []eventJSON `json:"events"`
	TotalML int         `json:"total_ml"`
	Skipped int         `json:"skipped"`
}

type eventJSON struct {
	Time     string `json:"time"`
	AmountML int    `json:"amount_ml"`
}

type reporter struct {
	opts   *reportOptions
	out    io.Writer
	errOut io.Writer

	db   *sql.DB
	repo *store.IntakeRepo
}

func newReporter(opts *reportOptions, out, errOut io.Writer) (*reporter, error) {
	r := &reporter{opts: opts, out: out, errOut: errOut}
	if opts.dbPath != "" {
		db, err := store.Open(opts.dbPath)
		if err != nil {
			return nil, err
		}
		r.db = db
		r.repo = store.NewIntakeRepo(db, time.Local)
	}
	return r, nil
}

func (r *reporter) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// report reads the whole log, prints its events and optionally stores them.
func (r *reporter) report(ctx context.Context) error {
	records, skipped, err := eventlog.ReadFile(r.opts.logPath, time.Local)
	if err != nil {
		return err
	}
	for _, s := range skipped {
		fmt.Fprintf(r.errOut, "skipped %v\n", s)
	}

	events := logic.Classify(records, r.opts.params)
	if err := r.print(events, len(skipped)); err != nil {
		return err
	}

	if r.repo != nil {
		n, err := r.repo.Save(ctx, events)
		if err != nil {
			return fmt.Errorf("store events: %w", err)
		}
		fmt.Fprintf(r.errOut, "stored %d new events in %s\n", n, r.opts.dbPath)
	}
	return nil
}

func (r *reporter) print(events []logic.IntakeEvent, skipped int) error {
	if r.opts.format == formatJSON {
		doc := reportJSON{
			Events:  make([]eventJSON, 0, len(events)),
			TotalML: logic.TotalML(events),
			Skipped: skipped,
		}
		for _, e := range events {
			doc.Events = append(doc.Events, eventJSON{
				Time:     e.Time.Format(time.RFC3339),
				AmountML: e.AmountML,
			})
		}
		enc := json.NewEncoder(r.out)
		return enc.Encode(doc)
	}

	for _, e := range events {
		fmt.Fprintf(r.out, "%s  %5d ml\n", e.Time.Format(eventlog.TimestampLayout), e.AmountML)
	}
	_, err := fmt.Fprintf(r.out, "total: %d ml in %d events\n", logic.TotalML(events), len(events))
	return err
}

// follow reports once, then again on every write to the log until ctx is done.
// The directory is watched so a log recreated after archiving is picked up.
func (r *reporter) follow(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	target := filepath.Clean(r.opts.logPath)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}

	if err := r.report(ctx); err != nil && !errors.Is(err, eventlog.ErrLogIO) {
		return err
	} else if err != nil {
		fmt.Fprintf(r.errOut, "waiting for log: %v\n", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := r.report(ctx); err != nil {
				fmt.Fprintf(r.errOut, "report failed: %v\n", err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(r.errOut, "watch error: %v\n", err)
		}
	}
}
