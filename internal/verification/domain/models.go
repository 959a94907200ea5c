package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type FlightStatus string

const (
	FlightOnTime    FlightStatus = "on_time"
	FlightDelayed   FlightStatus = "delayed"
	FlightCancelled FlightStatus = "cancelled"
	FlightDiverted  FlightStatus = "diverted"
	FlightUnknown   FlightStatus = "unknown"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusVerified Status = "verified"
	StatusError    Status = "error"
)

// FlightVerification holds what was read off the boarding pass and what the
// flight-status provider reported. One row per claim.
type FlightVerification struct {
	ID      snowflake.ID `gorm:"primaryKey" json:"id"`
	ClaimID snowflake.ID `gorm:"not null;uniqueIndex" json:"claim_id"`

	FlightNumber             *string       `json:"flight_number,omitempty"`
	Airline                  *string       `json:"airline,omitempty"`
	DepartureAirport         *string       `json:"departure_airport,omitempty"`
	ArrivalAirport           *string       `json:"arrival_airport,omitempty"`
	ScheduledDeparture       *time.Time    `json:"scheduled_departure,omitempty"`
	PassengerName            *string       `json:"passenger_name,omitempty"`
	OCRConfidence            int           `gorm:"column:ocr_confidence;not null" json:"ocr_confidence"`
	BoardingPassAttachmentID *snowflake.ID `json:"boarding_pass_attachment_id,omitempty"`

	VerificationStatus Status            `gorm:"not null" json:"verification_status"`
	FlightStatus       FlightStatus      `gorm:"not null" json:"flight_status"`
	ActualDeparture    *time.Time        `json:"actual_departure,omitempty"`
	DelayMinutes       *int              `json:"delay_minutes,omitempty"`
	VerificationSource *string           `json:"verification_source,omitempty"`
	RawPayload         datatypes.JSONMap `json:"raw_payload,omitempty"`
	VerifiedAt         *time.Time        `json:"verified_at,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (FlightVerification) TableName() string { return "claim_flight_verifications" }

type DocumentType string

const (
	DocumentBoardingPass DocumentType = "boarding_pass"
	DocumentTicket       DocumentType = "ticket"
	DocumentReceipt      DocumentType = "receipt"
	DocumentInvoice      DocumentType = "invoice"
	DocumentID           DocumentType = "id_document"
	DocumentOther        DocumentType = "other"
	DocumentUnknown      DocumentType = "unknown"
)

// ParseDocumentType maps anything outside the vocabulary to unknown.
func ParseDocumentType(raw string) DocumentType {
	switch t := DocumentType(raw); t {
	case DocumentBoardingPass, DocumentTicket, DocumentReceipt, DocumentInvoice, DocumentID, DocumentOther:
		return t
	}
	return DocumentUnknown
}

// DocumentCheck is the latest classification of one attachment.
type DocumentCheck struct {
	ID              snowflake.ID                `gorm:"primaryKey" json:"id"`
	ClaimID         snowflake.ID                `gorm:"not null;index" json:"claim_id"`
	AttachmentID    snowflake.ID                `gorm:"not null;uniqueIndex" json:"attachment_id"`
	DocumentType    DocumentType                `gorm:"not null" json:"document_type"`
	IsRelevant      bool                        `gorm:"not null" json:"is_relevant"`
	ExtractedFields datatypes.JSONMap           `json:"extracted_fields"`
	Notes           string                      `json:"notes"`
	Confidence      int                         `gorm:"not null" json:"confidence"`
	Warnings        datatypes.JSONSlice[string] `json:"warnings"`
	Failed          bool                        `gorm:"not null" json:"failed"`
	CheckedAt       time.Time                   `gorm:"not null" json:"checked_at"`
}

func (DocumentCheck) TableName() string { return "document_checks" }
