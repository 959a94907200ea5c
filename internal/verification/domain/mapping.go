package domain

import (
	"math"
	"strings"
)

// DelayThresholdMinutes separates on_time from delayed.
const DelayThresholdMinutes = 15

// MapFlightStatus folds a provider answer into the internal vocabulary.
// Precedence: cancellation keyword, diversion keyword, computed delay,
// status text heuristics, unknown.
func MapFlightStatus(lookup FlightLookup) (FlightStatus, *int) {
	if !lookup.Found {
		return FlightUnknown, nil
	}
	text := strings.ToLower(strings.TrimSpace(lookup.StatusText))
	delay := delayMinutes(lookup)

	switch {
	case strings.Contains(text, "cancel"):
		return FlightCancelled, delay
	case strings.Contains(text, "divert"):
		return FlightDiverted, delay
	case delay != nil:
		if *delay > DelayThresholdMinutes {
			return FlightDelayed, delay
		}
		return FlightOnTime, delay
	case strings.Contains(text, "delay"):
		return FlightDelayed, nil
	case containsAny(text, "landed", "arrived", "scheduled", "departed", "on time", "ontime"):
		return FlightOnTime, nil
	}
	return FlightUnknown, nil
}

func delayMinutes(lookup FlightLookup) *int {
	if lookup.ScheduledDeparture != nil && lookup.ActualDeparture != nil {
		minutes := int(math.Round(lookup.ActualDeparture.Sub(*lookup.ScheduledDeparture).Minutes()))
		return &minutes
	}
	if lookup.DelayMinutes != nil {
		minutes := *lookup.DelayMinutes
		return &minutes
	}
	return nil
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
