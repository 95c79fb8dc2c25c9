// Package sampling maps a requested statistics window onto one of the five
// vCenter retention tiers and derives how many samples a performance query
// should request at that tier's granularity.
package sampling

import "fmt"

// Plan parameterizes one performance query: how many samples to request,
// the interval id (which is also the granularity in seconds), and a label
// for operator output.
type Plan struct {
	Samples    int32
	Label      string
	IntervalID int32
}

// Tier boundaries in minutes. Each bound is inclusive; the first matching
// tier wins.
const (
	realtimeMaxMinutes = 60    // 1 hour of 20-second samples
	shortMaxMinutes    = 1440  // 24 hours of 5-minute rollups
	mediumMaxMinutes   = 10080 // 7 days of 30-minute rollups
	longMaxMinutes     = 43200 // 30 days of 2-hour rollups
)

// SelectPlan picks the retention tier for a window of windowMinutes.
// Windows of zero or fewer minutes are rejected rather than clamped, so a
// misconfigured interval surfaces before any query is issued.
func SelectPlan(windowMinutes int) (Plan, error) {
	if windowMinutes <= 0 {
		return Plan{}, fmt.Errorf("sampling: window must be positive, got %d minutes", windowMinutes)
	}

	switch {
	case windowMinutes <= realtimeMaxMinutes:
		return Plan{
			Samples:    int32(windowMinutes * 60 / 20),
			Label:      "20-second real-time",
			IntervalID: 20,
		}, nil
	case windowMinutes <= shortMaxMinutes:
		return Plan{
			Samples:    int32(windowMinutes / 5),
			Label:      "5-minute short-term",
			IntervalID: 300,
		}, nil
	case windowMinutes <= mediumMaxMinutes:
		return Plan{
			Samples:    int32(windowMinutes / 30),
			Label:      "30-minute medium-term",
			IntervalID: 1800,
		}, nil
	case windowMinutes <= longMaxMinutes:
		return Plan{
			Samples:    int32(windowMinutes / 120),
			Label:      "2-hour long-term",
			IntervalID: 7200,
		}, nil
	default:
		return Plan{
			Samples:    int32(windowMinutes / 1440),
			Label:      "1-day historical",
			IntervalID: 86400,
		}, nil
	}
}
