package logic

import (
	"math"
	"slices"
)

// RefillNoiseMarginG is how far the weight must rise between two records
// before the rise counts as a refill rather than noise.
const RefillNoiseMarginG = 10.0

// MaxIntakeML bounds a single event. No cup holds more, so a larger diff
// means a corrupt record.
const MaxIntakeML = 100_000

// Classify turns a weight log into intake events.
//
// Records are stably sorted by timestamp first, because the log is ordered by
// write time and not guaranteed sorted. For each adjacent pair a drop produces
// an event for the dropped weight, and a rise beyond the noise margin (a refill)
// produces an event for the contents left before the refill. Both kinds share
// IntakeEvent with no discriminator.
func Classify(records []LogRecord, p ClassifyParams) []IntakeEvent {
	if len(records) < 2 {
		return nil
	}

	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b LogRecord) int {
		return a.Timestamp.Compare(b.Timestamp)
	})

	var events []IntakeEvent
	for i := 1; i < len(sorted); i++ {
		prev, curr := sorted[i-1], sorted[i]
		diff := prev.WeightG - curr.WeightG

		switch {
		case diff > 0:
			if amount, ok := toML(diff * p.GramToML); ok {
				events = append(events, IntakeEvent{Time: curr.Timestamp, AmountML: amount})
			}
		case diff < -RefillNoiseMarginG:
			if amount, ok := toML(prev.WeightG - p.CupWeightG); ok && amount > 0 {
				events = append(events, IntakeEvent{Time: curr.Timestamp, AmountML: amount})
			}
		}
	}
	return events
}

// toML rounds v to whole millilitres. Non-finite values and amounts beyond
// MaxIntakeML come from corrupt weights and are rejected.
func toML(v float64) (int, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	r := math.Round(v)
	if r > MaxIntakeML || r < -MaxIntakeML {
		return 0, false
	}
	return int(r), true
}

// TotalML sums the volumes of the given events.
func TotalML(events []IntakeEvent) int {
	total := 0
	for _, e := range events {
		total += e.AmountML
	}
	return total
}
