package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Mode string

const (
	ModeAnalyze  Mode = "analyze"
	ModeDraft    Mode = "draft"
	ModeFollowup Mode = "followup"
)

func ParseMode(raw string) (Mode, bool) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(raw))); m {
	case ModeAnalyze, ModeDraft, ModeFollowup:
		return m, true
	}
	return "", false
}

// Label is the human-readable name used on the timeline.
func (m Mode) Label() string {
	switch m {
	case ModeAnalyze:
		return "case analysis"
	case ModeDraft:
		return "claim draft"
	case ModeFollowup:
		return "follow-up / escalation"
	}
	return string(m)
}

type CaseStrength string

const (
	StrengthStrong CaseStrength = "strong"
	StrengthMedium CaseStrength = "medium"
	StrengthWeak   CaseStrength = "weak"
)

func ParseCaseStrength(raw string) (CaseStrength, bool) {
	switch s := CaseStrength(strings.ToLower(strings.TrimSpace(raw))); s {
	case StrengthStrong, StrengthMedium, StrengthWeak:
		return s, true
	}
	return "", false
}

// AiOutput is the latest generated analysis for a claim. InputHash and Mode
// form the cache key of the last call.
type AiOutput struct {
	ID                   snowflake.ID  `gorm:"primaryKey" json:"id"`
	ClaimID              snowflake.ID  `gorm:"not null;uniqueIndex" json:"claim_id"`
	Summary              *string       `json:"summary,omitempty"`
	CaseStrength         *CaseStrength `json:"case_strength,omitempty"`
	EligibilityReasoning *string       `json:"eligibility_reasoning,omitempty"`
	ClaimDraft           *string       `json:"claim_draft,omitempty"`
	NextAction           *string       `json:"next_action,omitempty"`
	InputHash            string        `gorm:"not null" json:"-"`
	Mode                 Mode          `gorm:"not null" json:"mode"`
	CreatedAt            time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt            time.Time     `gorm:"not null" json:"updated_at"`
}

func (AiOutput) TableName() string { return "claim_ai_outputs" }

// ClaimData is the snapshot of the claim the analysis is computed over.
type ClaimData struct {
	Airline        string  `json:"airline"`
	FlightNumber   string  `json:"flightNumber"`
	Date           string  `json:"date"`
	From           string  `json:"from"`
	To             string  `json:"to"`
	DisruptionType string  `json:"disruptionType"`
	DelayMinutes   *int    `json:"delayMinutes,omitempty"`
	ReasonText     *string `json:"reasonText,omitempty"`
}

// CaseContext is everything the analyzer sees for one call.
type CaseContext struct {
	Mode                Mode      `json:"mode"`
	Claim               ClaimData `json:"claimData"`
	EvidenceText        string    `json:"evidenceText"`
	AirlineResponseText string    `json:"airlineResponseText,omitempty"`
}

// Fields is the canonical output shape, regardless of how the analyzer spelled it.
type Fields struct {
	Summary              *string       `json:"summary"`
	CaseStrength         *CaseStrength `json:"case_strength"`
	EligibilityReasoning *string       `json:"eligibility_reasoning"`
	ClaimDraft           *string       `json:"claim_draft"`
	NextAction           *string       `json:"next_action"`
}

type Result struct {
	Fields
	Mode   Mode `json:"mode"`
	Cached bool `json:"cached"`
}
