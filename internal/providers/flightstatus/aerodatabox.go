package flightstatus

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/smallbiznis/sanad/internal/observability/tracing"
	"github.com/smallbiznis/sanad/internal/verification/domain"
)

const sourceAeroDataBox = "aerodatabox"

type AeroDataBox struct {
	apiKey  string
	host    string
	baseURL string
	client  *http.Client
}

func NewAeroDataBox(apiKey, host string) *AeroDataBox {
	host = strings.TrimSpace(host)
	if host == "" {
		host = "aerodatabox.p.rapidapi.com"
	}
	return &AeroDataBox{
		apiKey:  strings.TrimSpace(apiKey),
		host:    host,
		baseURL: "https://" + host,
		client:  tracing.WrapHTTPClient(&http.Client{Timeout: 20 * time.Second}),
	}
}

type adbTime struct {
	UTC string `json:"utc"`
}

type adbMovement struct {
	ScheduledTime *adbTime `json:"scheduledTime"`
	ActualTime    *adbTime `json:"actualTime"`
	RevisedTime   *adbTime `json:"revisedTime"`
}

type adbFlight struct {
	Status    string      `json:"status"`
	Departure adbMovement `json:"departure"`
}

// Lookup fetches the flight by number and date. A 404 or an empty result
// is a not-found answer, not an error.
func (a *AeroDataBox) Lookup(ctx context.Context, q domain.FlightQuery) (domain.FlightLookup, error) {
	endpoint := fmt.Sprintf("%s/flights/number/%s/%s",
		a.baseURL,
		url.PathEscape(q.FlightNumber),
		q.ScheduledDate.UTC().Format("2006-01-02"),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.FlightLookup{}, err
	}
	req.Header.Set("X-RapidAPI-Key", a.apiKey)
	req.Header.Set("X-RapidAPI-Host", a.host)
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return domain.FlightLookup{Source: sourceAeroDataBox}, err
	}
	defer resp.Body.Close()

	notFound := domain.FlightLookup{Source: sourceAeroDataBox, Raw: map[string]any{"error": "flight not found"}}
	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusNoContent:
		return notFound, nil
	case resp.StatusCode >= http.StatusBadRequest:
		return domain.FlightLookup{Source: sourceAeroDataBox}, fmt.Errorf("aerodatabox: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.FlightLookup{Source: sourceAeroDataBox}, fmt.Errorf("aerodatabox: read body: %w", err)
	}

	var raws []map[string]any
	if err := json.Unmarshal(body, &raws); err != nil {
		var single map[string]any
		if err := json.Unmarshal(body, &single); err != nil {
			return domain.FlightLookup{Source: sourceAeroDataBox}, fmt.Errorf("aerodatabox: decode: %w", err)
		}
		raws = []map[string]any{single}
	}
	if len(raws) == 0 || raws[0] == nil {
		return notFound, nil
	}

	first, err := json.Marshal(raws[0])
	if err != nil {
		return domain.FlightLookup{Source: sourceAeroDataBox}, err
	}
	var flight adbFlight
	if err := json.Unmarshal(first, &flight); err != nil {
		return domain.FlightLookup{Source: sourceAeroDataBox}, fmt.Errorf("aerodatabox: decode flight: %w", err)
	}

	return domain.FlightLookup{
		Found:              true,
		StatusText:         flight.Status,
		ScheduledDeparture: parseTime(flight.Departure.ScheduledTime),
		ActualDeparture:    parseTime(flight.Departure.ActualTime),
		Source:             sourceAeroDataBox,
		Raw:                raws[0],
	}, nil
}

var adbLayouts = []string{time.RFC3339, "2006-01-02 15:04Z", "2006-01-02 15:04"}

func parseTime(t *adbTime) *time.Time {
	if t == nil || strings.TrimSpace(t.UTC) == "" {
		return nil
	}
	for _, layout := range adbLayouts {
		if parsed, err := time.Parse(layout, strings.TrimSpace(t.UTC)); err == nil {
			parsed = parsed.UTC()
			return &parsed
		}
	}
	return nil
}
