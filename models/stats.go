// stats.go
// Per-trip aggregation consumed by the stats view. Pure computation over a
// trip and its effective place list; never mutates its inputs.

package models

import (
	"sort"
	"time"
)

// CategoryCount is one slice of the category breakdown.
type CategoryCount struct {
	Category PlaceCategory `json:"category"`
	Count    int           `json:"count"`
}

// TripStats summarizes how a trip was explored.
type TripStats struct {
	TotalPlaces int             `json:"totalPlaces"`
	Days        int             `json:"days"`
	AvgPerDay   float64         `json:"avgPerDay"`
	Categories  []CategoryCount `json:"categories"`
}

// ComputeTripStats aggregates the given place list for a trip. The day span
// runs from the earliest to the latest place datetime, falling back to the
// trip's own dates when no places carry one.
func ComputeTripStats(trip Trip, places []VisitedPlace) TripStats {
	counts := make(map[PlaceCategory]int)
	var dates []string
	for _, p := range places {
		counts[p.Category]++
		if p.DateTime != "" {
			dates = append(dates, p.DateTime)
		}
	}

	categories := make([]CategoryCount, 0, len(counts))
	for cat, n := range counts {
		categories = append(categories, CategoryCount{Category: cat, Count: n})
	}
	sort.Slice(categories, func(i, j int) bool {
		if categories[i].Count != categories[j].Count {
			return categories[i].Count > categories[j].Count
		}
		return categories[i].Category < categories[j].Category
	})

	sort.Strings(dates)
	first := parseInstant(trip.StartDate)
	last := parseInstant(trip.EndDate)
	if len(dates) > 0 {
		first = parseInstant(dates[0])
		last = parseInstant(dates[len(dates)-1])
	}

	days := 1
	if !first.IsZero() && !last.IsZero() && last.After(first) {
		days = int(last.Sub(first).Round(24*time.Hour).Hours()/24) + 1
	}

	total := len(places)
	avg := 0.0
	if total > 0 {
		avg = float64(total) / float64(days)
	}

	return TripStats{
		TotalPlaces: total,
		Days:        days,
		AvgPerDay:   avg,
		Categories:  categories,
	}
}

// parseInstant accepts either a bare calendar date or a full ISO instant.
func parseInstant(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t
	}
	return time.Time{}
}
