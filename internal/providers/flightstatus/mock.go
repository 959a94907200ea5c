package flightstatus

import (
	"context"
	"time"

	"github.com/smallbiznis/sanad/internal/verification/domain"
)

type scenario struct {
	status string
	delay  *int
}

func minutes(n int) *int { return &n }

var mockScenarios = []scenario{
	{status: "Delayed", delay: minutes(180)},
	{status: "Delayed", delay: minutes(45)},
	{status: "On time", delay: minutes(0)},
	{status: "Cancelled"},
}

// Mock answers deterministically from the flight number so a deployment
// without a provider key still exercises every branch of verification.
type Mock struct{}

func NewMock() *Mock { return &Mock{} }

func (Mock) Lookup(_ context.Context, q domain.FlightQuery) (domain.FlightLookup, error) {
	sum := 0
	for _, r := range q.FlightNumber {
		sum += int(r)
	}
	sc := mockScenarios[sum%len(mockScenarios)]

	scheduled := q.ScheduledDate.UTC()
	lookup := domain.FlightLookup{
		Found:              true,
		StatusText:         sc.status,
		ScheduledDeparture: &scheduled,
		Source:             "mock",
		Raw: map[string]any{
			"note":          "mock data; set AERODATABOX_API_KEY for real verification",
			"flightNumber":  q.FlightNumber,
			"scheduledDate": scheduled.Format(time.RFC3339),
		},
	}
	if sc.delay != nil {
		actual := scheduled.Add(time.Duration(*sc.delay) * time.Minute)
		lookup.ActualDeparture = &actual
		lookup.DelayMinutes = minutes(*sc.delay)
	}
	return lookup, nil
}
