package ai

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/smallbiznis/sanad/internal/verification/domain"
)

const boardingPassPrompt = `You extract flight information from boarding passes.

Return ONLY a JSON object with this structure:
{
  "flightNumber": "string or null",
  "airline": "string or null",
  "departureAirport": "IATA code or null",
  "arrivalAirport": "IATA code or null",
  "scheduledDeparture": "ISO 8601 datetime or null",
  "passengerName": "string or null",
  "confidence": 0-100
}

Confidence: 90-100 all fields clearly visible, 70-89 most visible, 50-69 some unclear,
below 50 many missing. If the image is not a boarding pass return every field as null
and confidence 0.`

const documentPrompt = `You verify documents attached to passenger compensation claims.

Return ONLY a JSON object with this structure:
{
  "documentType": "boarding_pass" | "ticket" | "receipt" | "invoice" | "id_document" | "other" | "unknown",
  "isRelevantToClaim": true/false,
  "extractedData": {"flightNumber": "", "airline": "", "passengerName": "", "departureAirport": "",
    "arrivalAirport": "", "date": "YYYY-MM-DD", "amount": "", "currency": "", "orderNumber": "", "companyName": ""},
  "verificationNotes": "notes on the document and its authenticity",
  "confidence": 0-100,
  "warnings": ["suspicious document", "unclear data", ...]
}

If the document cannot be read return confidence 0 and documentType "unknown".`

type boardingPassJSON struct {
	FlightNumber       *string  `json:"flightNumber"`
	Airline            *string  `json:"airline"`
	DepartureAirport   *string  `json:"departureAirport"`
	ArrivalAirport     *string  `json:"arrivalAirport"`
	ScheduledDeparture *string  `json:"scheduledDeparture"`
	PassengerName      *string  `json:"passengerName"`
	Confidence         *float64 `json:"confidence"`
}

// ExtractBoardingPass reads a boarding pass image. Output that is not JSON
// yields the empty result with confidence 0.
func (c *Client) ExtractBoardingPass(ctx context.Context, image domain.Image) (domain.BoardingPassData, error) {
	content, err := c.complete(ctx, chatRequest{
		Messages:  []message{visionMessage(boardingPassPrompt, image.Bytes, image.MimeType)},
		MaxTokens: 1000,
	})
	if err != nil {
		return domain.BoardingPassData{}, err
	}

	var parsed boardingPassJSON
	if !extractObject(content, &parsed) {
		return domain.BoardingPassData{}, nil
	}
	return domain.BoardingPassData{
		FlightNumber:       nonEmpty(parsed.FlightNumber),
		Airline:            nonEmpty(parsed.Airline),
		DepartureAirport:   nonEmpty(parsed.DepartureAirport),
		ArrivalAirport:     nonEmpty(parsed.ArrivalAirport),
		ScheduledDeparture: parseDateTime(parsed.ScheduledDeparture),
		PassengerName:      nonEmpty(parsed.PassengerName),
		Confidence:         confidence(parsed.Confidence),
	}, nil
}

type documentJSON struct {
	DocumentType      string         `json:"documentType"`
	IsRelevantToClaim bool           `json:"isRelevantToClaim"`
	ExtractedData     map[string]any `json:"extractedData"`
	VerificationNotes string         `json:"verificationNotes"`
	Confidence        *float64       `json:"confidence"`
	Warnings          []string       `json:"warnings"`
}

// Classify identifies an attached document. Output that is not JSON yields
// an unknown document with confidence 0.
func (c *Client) Classify(ctx context.Context, image domain.Image) (domain.DocumentClassification, error) {
	content, err := c.complete(ctx, chatRequest{
		Messages:  []message{visionMessage(documentPrompt, image.Bytes, image.MimeType)},
		MaxTokens: 1500,
	})
	if err != nil {
		return domain.DocumentClassification{}, err
	}

	var parsed documentJSON
	if !extractObject(content, &parsed) {
		return domain.DocumentClassification{
			DocumentType:    domain.DocumentUnknown,
			ExtractedFields: map[string]any{},
			Notes:           "document could not be analysed",
			Warnings:        []string{"no structured data extracted"},
		}, nil
	}

	fields := make(map[string]any, len(parsed.ExtractedData))
	for k, v := range parsed.ExtractedData {
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			continue
		}
		if v != nil {
			fields[k] = v
		}
	}
	warnings := parsed.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	return domain.DocumentClassification{
		DocumentType:    domain.ParseDocumentType(parsed.DocumentType),
		IsRelevant:      parsed.IsRelevantToClaim,
		ExtractedFields: fields,
		Notes:           parsed.VerificationNotes,
		Confidence:      confidence(parsed.Confidence),
		Warnings:        warnings,
	}, nil
}

func nonEmpty(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" || strings.EqualFold(v, "null") {
		return nil
	}
	return &v
}

var dateTimeLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04", "2006-01-02"}

func parseDateTime(s *string) *time.Time {
	v := nonEmpty(s)
	if v == nil {
		return nil
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, *v); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

func confidence(v *float64) int {
	if v == nil || math.IsNaN(*v) {
		return 0
	}
	return int(math.Max(0, math.Min(100, math.Round(*v))))
}
