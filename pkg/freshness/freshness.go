// Package freshness implements the refresh cadence policy: how stale a
// snapshot may get before it is due for a refresh, and how observed demand
// maps to a refresh priority. All functions are pure and total.
package freshness

import "time"

// Refresh intervals per priority tier. Hot keywords (priority >= 8) refresh
// every 3 days, warm ones weekly, everything else biweekly.
const (
	HotInterval  = 3 * 24 * time.Hour
	WarmInterval = 7 * 24 * time.Hour
	ColdInterval = 14 * 24 * time.Hour
)

// Priority tier boundaries.
const (
	hotPriorityMin  = 8
	warmPriorityMin = 5
)

// Interval returns the refresh interval for a priority tier.
func Interval(priority int) time.Duration {
	switch {
	case priority >= hotPriorityMin:
		return HotInterval
	case priority >= warmPriorityMin:
		return WarmInterval
	default:
		return ColdInterval
	}
}

// IsDue reports whether a snapshot last updated at lastUpdated is due for a
// refresh under the given priority tier, evaluated at now. A snapshot that
// has never been updated is always due.
func IsDue(lastUpdated *time.Time, priority int, now time.Time) bool {
	if lastUpdated == nil {
		return true
	}
	return now.Sub(*lastUpdated) >= Interval(priority)
}

// Demand thresholds for system-assigned priorities. Monotonic step
// function; the result always lands in [4, 9]. Manual refreshes bypass
// this entirely and are pinned at domain.PriorityManual.
var demandSteps = []struct {
	minDemand int
	priority  int
}{
	{100, 9},
	{50, 8},
	{20, 7},
	{10, 6},
	{5, 5},
}

// PriorityForDemand derives the system refresh priority for a keyword from
// its observed query demand. Negative demand is treated as zero.
func PriorityForDemand(demand int) int {
	for _, step := range demandSteps {
		if demand >= step.minDemand {
			return step.priority
		}
	}
	return 4
}
