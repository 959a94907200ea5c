package domain

import (
	"context"
	"io"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/sanad/internal/eligibility"
	timelinedomain "github.com/smallbiznis/sanad/internal/timeline/domain"
	"github.com/smallbiznis/sanad/pkg/db/pagination"
)

const MinPhoneLength = 10

type CreateClaimRequest struct {
	Category        string
	IssueType       string
	CustomerName    string
	Phone           string
	Email           string
	CompanyName     string
	ReferenceNumber string
	IncidentDate    string
	Description     string

	FlightFrom    string
	FlightTo      string
	ScheduledTime string
	DelayHours    *float64

	DeliveryCity string
	OrderTime    string
	DeliveryTime string
}

// UpdateClaimRequest is a partial update; nil fields are left unchanged.
// Status is deliberately absent: it only changes through Transition.
type UpdateClaimRequest struct {
	IssueType       *string
	CustomerName    *string
	Phone           *string
	Email           *string
	CompanyName     *string
	ReferenceNumber *string
	IncidentDate    *string
	Description     *string
	FlightFrom      *string
	FlightTo        *string
	ScheduledTime   *string
	DelayHours      *float64
	InternalNotes   *string
	DraftText       *string
}

type ListClaimRequest struct {
	pagination.Pagination
	Status   string
	Category string
	Search   string
}

type ListClaimResponse struct {
	pagination.PageInfo
	Claims []Claim `json:"claims"`
}

type TransitionRequest struct {
	ClaimID snowflake.ID
	To      string
	Note    string
}

type CreateSettlementRequest struct {
	ClaimID            snowflake.ID
	CompensationType   string
	CompensationAmount int64
	FeePercentage      float64
	Currency           string
}

type AddNoteRequest struct {
	ClaimID snowflake.ID
	Type    string
	Message string
}

type RecordCommunicationRequest struct {
	ClaimID   snowflake.ID
	Method    string
	Recipient string
	Subject   string
	Body      string
	SentAt    *time.Time
}

type RecordCompanyResponseRequest struct {
	ClaimID         snowflake.ID
	CommunicationID snowflake.ID
	Response        string
}

type UploadAttachmentRequest struct {
	ClaimID  snowflake.ID
	FileName string
	MimeType string
	Size     int64
	Content  io.Reader
}

type TrackRequest struct {
	ClaimCode string
	Phone     string
}

type TrackResponse struct {
	Claim    Claim                  `json:"claim"`
	Timeline []timelinedomain.Event `json:"timeline"`
}

type HistoryRequest struct {
	Phone           string
	VerifyClaimCode string
}

// EligibilityBasis names which facts a quote was computed from.
type EligibilityBasis string

const (
	BasisIntake         EligibilityBasis = "intake"
	BasisVerifiedFlight EligibilityBasis = "verified_flight"
	BasisFrozen         EligibilityBasis = "frozen"
)

type EligibilityView struct {
	ClaimID snowflake.ID      `json:"claim_id"`
	Basis   EligibilityBasis  `json:"basis"`
	Quote   eligibility.Quote `json:"quote"`
}

// FlightFacts are externally verified facts that override intake input.
type FlightFacts struct {
	Cancelled    bool
	DelayMinutes *int
}

// FlightFactsSource returns nil when no verified record exists.
type FlightFactsSource interface {
	VerifiedFlightFacts(ctx context.Context, claimID snowflake.ID) (*FlightFacts, error)
}

type Service interface {
	Create(ctx context.Context, req CreateClaimRequest) (Claim, error)
	Get(ctx context.Context, id snowflake.ID) (Claim, error)
	List(ctx context.Context, req ListClaimRequest) (ListClaimResponse, error)
	Update(ctx context.Context, id snowflake.ID, req UpdateClaimRequest) (Claim, error)

	Transition(ctx context.Context, req TransitionRequest) (Claim, error)
	CreateSettlement(ctx context.Context, req CreateSettlementRequest) (Settlement, error)
	GetSettlement(ctx context.Context, claimID snowflake.ID) (*Settlement, error)

	AddNote(ctx context.Context, req AddNoteRequest) (timelinedomain.Event, error)
	RecordCommunication(ctx context.Context, req RecordCommunicationRequest) (Communication, error)
	RecordCompanyResponse(ctx context.Context, req RecordCompanyResponseRequest) (Communication, error)
	ListCommunications(ctx context.Context, claimID snowflake.ID) ([]Communication, error)

	UploadAttachment(ctx context.Context, req UploadAttachmentRequest) (Attachment, error)
	ListAttachments(ctx context.Context, claimID snowflake.ID) ([]Attachment, error)
	OpenAttachment(ctx context.Context, claimID, attachmentID snowflake.ID) (Attachment, io.ReadCloser, error)

	Eligibility(ctx context.Context, claimID snowflake.ID) (EligibilityView, error)

	Track(ctx context.Context, req TrackRequest) (TrackResponse, error)
	History(ctx context.Context, req HistoryRequest) ([]Claim, error)
}

// OwnershipVerifier is the weak secondary factor used by public lookups.
type OwnershipVerifier interface {
	Owns(claim Claim, factor string) bool
}
