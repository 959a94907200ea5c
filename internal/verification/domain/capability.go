package domain

import (
	"context"
	"time"
)

type Image struct {
	Bytes    []byte
	MimeType string
}

// BoardingPassData is the OCR result. Unreadable input yields the zero value
// with Confidence 0, not an error.
type BoardingPassData struct {
	FlightNumber       *string    `json:"flight_number"`
	Airline            *string    `json:"airline"`
	DepartureAirport   *string    `json:"departure_airport"`
	ArrivalAirport     *string    `json:"arrival_airport"`
	ScheduledDeparture *time.Time `json:"scheduled_departure"`
	PassengerName      *string    `json:"passenger_name"`
	Confidence         int        `json:"confidence"`
}

type OCR interface {
	ExtractBoardingPass(ctx context.Context, image Image) (BoardingPassData, error)
}

type FlightQuery struct {
	FlightNumber     string
	ScheduledDate    time.Time
	DepartureAirport string
}

// FlightLookup is the provider's answer in its own vocabulary. Found is false
// when the provider does not know the flight.
type FlightLookup struct {
	Found              bool
	StatusText         string
	ScheduledDeparture *time.Time
	ActualDeparture    *time.Time
	DelayMinutes       *int
	Source             string
	Raw                map[string]any
}

type FlightStatusProvider interface {
	Lookup(ctx context.Context, query FlightQuery) (FlightLookup, error)
}

type DocumentClassification struct {
	DocumentType    DocumentType   `json:"document_type"`
	IsRelevant      bool           `json:"is_relevant"`
	ExtractedFields map[string]any `json:"extracted_fields"`
	Notes           string         `json:"notes"`
	Confidence      int            `json:"confidence"`
	Warnings        []string       `json:"warnings"`
}

type DocumentClassifier interface {
	Classify(ctx context.Context, image Image) (DocumentClassification, error)
}
