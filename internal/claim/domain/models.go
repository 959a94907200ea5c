package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/sanad/internal/eligibility"
)

type Category string

const (
	CategoryFlight   Category = "flight"
	CategoryDelivery Category = "delivery"
)

func (c Category) Valid() bool {
	return c == CategoryFlight || c == CategoryDelivery
}

type Claim struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	ClaimCode string       `gorm:"not null;uniqueIndex" json:"claim_code"`
	CodeYear  int          `gorm:"not null;uniqueIndex:ux_claims_code_year_seq" json:"-"`
	CodeSeq   int          `gorm:"not null;uniqueIndex:ux_claims_code_year_seq" json:"-"`

	Category  Category `gorm:"not null;index" json:"category"`
	IssueType string   `gorm:"not null" json:"issue_type"`
	Status    Status   `gorm:"not null;index" json:"status"`

	CustomerName    string `gorm:"not null" json:"customer_name"`
	Phone           string `gorm:"not null;index" json:"phone"`
	Email           string `json:"email,omitempty"`
	CompanyName     string `gorm:"not null" json:"company_name"`
	ReferenceNumber string `gorm:"not null" json:"reference_number"`

	IncidentDate  time.Time  `gorm:"not null" json:"incident_date"`
	Description   string     `gorm:"not null" json:"description"`
	FlightFrom    *string    `json:"flight_from,omitempty"`
	FlightTo      *string    `json:"flight_to,omitempty"`
	ScheduledTime *time.Time `json:"scheduled_time,omitempty"`
	DelayHours    *float64   `json:"delay_hours,omitempty"`

	DeliveryCity *string    `json:"delivery_city,omitempty"`
	OrderTime    *time.Time `json:"order_time,omitempty"`
	DeliveryTime *time.Time `json:"delivery_time,omitempty"`

	EligibilityStatus string     `json:"eligibility_status"`
	EstimatedSDR      int64      `json:"estimated_sdr"`
	EstimatedLocal    int64      `json:"estimated_local"`
	QuoteRate         float64    `json:"quote_rate"`
	QuoteCurrency     string     `json:"quote_currency"`
	QuotedAt          *time.Time `json:"quoted_at,omitempty"`

	InternalNotes string `json:"internal_notes,omitempty"`
	DraftText     string `json:"draft_text,omitempty"`

	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	CreatedAt   time.Time  `gorm:"not null;index" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updated_at"`
}

func (Claim) TableName() string { return "claims" }

// Public strips staff-only fields before a claim is shown to its customer.
func (c Claim) Public() Claim {
	c.InternalNotes = ""
	c.DraftText = ""
	return c
}

// ApplyQuote stores q as the claim's current estimate.
func (c *Claim) ApplyQuote(q eligibility.Quote, at time.Time) {
	c.EligibilityStatus = string(q.Status)
	c.EstimatedSDR = q.SDRAmount
	c.EstimatedLocal = q.LocalAmount
	c.QuoteRate = q.ConversionRate
	c.QuoteCurrency = q.Currency
	c.QuotedAt = &at
}

type Attachment struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	ClaimID    snowflake.ID `gorm:"not null;index" json:"claim_id"`
	FileName   string       `gorm:"not null" json:"file_name"`
	StorageKey string       `gorm:"not null" json:"storage_key"`
	MimeType   string       `gorm:"not null" json:"mime_type"`
	SizeBytes  int64        `gorm:"not null" json:"size_bytes"`
	UploadedAt time.Time    `gorm:"not null" json:"uploaded_at"`
}

func (Attachment) TableName() string { return "claim_attachments" }

type CommunicationMethod string

const (
	MethodEmail CommunicationMethod = "email"
	MethodSMS   CommunicationMethod = "sms"
	MethodPhone CommunicationMethod = "phone"
)

func (m CommunicationMethod) Valid() bool {
	switch m {
	case MethodEmail, MethodSMS, MethodPhone:
		return true
	}
	return false
}

const (
	DeliveryRecorded = "recorded"
	DeliverySent     = "sent"
	DeliveryFailed   = "failed"
)

type Communication struct {
	ID                snowflake.ID        `gorm:"primaryKey" json:"id"`
	ClaimID           snowflake.ID        `gorm:"not null;index" json:"claim_id"`
	Method            CommunicationMethod `gorm:"not null" json:"method"`
	Recipient         string              `gorm:"not null" json:"recipient"`
	Subject           string              `json:"subject,omitempty"`
	Body              string              `json:"body,omitempty"`
	DeliveryStatus    string              `gorm:"not null" json:"delivery_status"`
	SentAt            time.Time           `gorm:"not null" json:"sent_at"`
	CompanyResponse   *string             `json:"company_response,omitempty"`
	CompanyResponseAt *time.Time          `json:"company_response_at,omitempty"`
	CreatedAt         time.Time           `gorm:"not null" json:"created_at"`
}

func (Communication) TableName() string { return "claim_communications" }

type CompensationType string

const (
	CompensationCash    CompensationType = "cash"
	CompensationVoucher CompensationType = "voucher"
	CompensationRefund  CompensationType = "refund"
)

func (c CompensationType) Valid() bool {
	switch c {
	case CompensationCash, CompensationVoucher, CompensationRefund:
		return true
	}
	return false
}

// Settlement amounts are in the smallest currency unit.
type Settlement struct {
	ID                 snowflake.ID     `gorm:"primaryKey" json:"id"`
	ClaimID            snowflake.ID     `gorm:"not null;uniqueIndex" json:"claim_id"`
	CompensationType   CompensationType `gorm:"not null" json:"compensation_type"`
	CompensationAmount int64            `gorm:"not null" json:"compensation_amount"`
	FeePercentage      float64          `gorm:"not null" json:"fee_percentage"`
	NetAmount          int64            `gorm:"not null" json:"net_amount"`
	Currency           string           `gorm:"not null" json:"currency"`
	ClosedAt           time.Time        `gorm:"not null" json:"closed_at"`
	CreatedAt          time.Time        `gorm:"not null" json:"created_at"`
}

func (Settlement) TableName() string { return "claim_settlements" }
