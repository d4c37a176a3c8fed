package eventlog

import (
	"time"

	"github.com/sweeney/hydration-cup/internal/logic"
)

// IntakeReader classifies the log on disk on every call.
type IntakeReader struct {
	Path   string
	Params logic.ClassifyParams
	Loc    *time.Location
}

// Intakes returns the events at or after since. The last record before since
// is kept as the baseline so a drink right after since still has a pair.
// Malformed lines are ignored.
func (r IntakeReader) Intakes(since time.Time) ([]logic.IntakeEvent, error) {
	records, _, err := ReadFile(r.Path, r.Loc)
	if err != nil {
		return nil, err
	}

	var (
		window   []logic.LogRecord
		baseline *logic.LogRecord
	)
	for i := range records {
		rec := records[i]
		if rec.Timestamp.Before(since) {
			if baseline == nil || !rec.Timestamp.Before(baseline.Timestamp) {
				baseline = &records[i]
			}
			continue
		}
		window = append(window, rec)
	}
	if baseline != nil {
		window = append([]logic.LogRecord{*baseline}, window...)
	}

	var events []logic.IntakeEvent
	for _, e := range logic.Classify(window, r.Params) {
		if !e.Time.Before(since) {
			events = append(events, e)
		}
	}
	return events, nil
}
