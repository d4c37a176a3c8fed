package eventlog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sweeney/hydration-cup/internal/logic"
)

// Skipped describes a line that could not be parsed.
type Skipped struct {
	Line int
	Raw  []string
	Err  error
}

// Error describes the skipped line and why it was rejected.
func (s Skipped) Error() string {
	return fmt.Sprintf("line %d %q: %v", s.Line, strings.Join(s.Raw, ","), s.Err)
}

// ReadFile parses the log at path. See Read.
func ReadFile(path string, loc *time.Location) ([]logic.LogRecord, []Skipped, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrLogIO, err)
	}
	defer fh.Close()
	return Read(fh, loc)
}

// Read parses log records in file order, interpreting timestamps in loc.
// A first line whose first field mentions "timestamp" is treated as the
// header; otherwise the first line is parsed as a record. Malformed lines
// are returned as Skipped and never abort the read.
func Read(r io.Reader, loc *time.Location) ([]logic.LogRecord, []Skipped, error) {
	if loc == nil {
		loc = time.Local
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	var (
		records []logic.LogRecord
		skipped []Skipped
	)
	for first := true; ; first = false {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		var pe *csv.ParseError
		if errors.As(err, &pe) {
			skipped = append(skipped, Skipped{Line: pe.Line, Raw: row, Err: fmt.Errorf("%w: %w", ErrMalformedRecord, err)})
			continue
		}
		if err != nil {
			return records, skipped, fmt.Errorf("%w: %w", ErrLogIO, err)
		}

		if first && len(row) > 0 && strings.Contains(row[0], "timestamp") {
			continue
		}

		rec, err := parseRow(row, loc)
		if err != nil {
			line, _ := cr.FieldPos(0)
			skipped = append(skipped, Skipped{Line: line, Raw: row, Err: err})
			continue
		}
		records = append(records, rec)
	}
	return records, skipped, nil
}

func parseRow(row []string, loc *time.Location) (logic.LogRecord, error) {
	if len(row) < 2 {
		return logic.LogRecord{}, fmt.Errorf("%w: want 2 fields, got %d", ErrMalformedRecord, len(row))
	}
	ts, err := time.ParseInLocation(TimestampLayout, strings.TrimSpace(row[0]), loc)
	if err != nil {
		return logic.LogRecord{}, fmt.Errorf("%w: timestamp: %w", ErrMalformedRecord, err)
	}
	w, err := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
	if err != nil {
		return logic.LogRecord{}, fmt.Errorf("%w: weight: %w", ErrMalformedRecord, err)
	}
	if math.IsNaN(w) || math.IsInf(w, 0) {
		return logic.LogRecord{}, fmt.Errorf("%w: weight %q is not finite", ErrMalformedRecord, row[1])
	}
	return logic.LogRecord{Timestamp: ts, WeightG: w}, nil
}
