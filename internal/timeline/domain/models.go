package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type EventType string

const (
	TypeCreation      EventType = "creation"
	TypeStatusChange  EventType = "status_change"
	TypeNote          EventType = "note"
	TypeInfoRequest   EventType = "info_request"
	TypeVerification  EventType = "verification"
	TypeAIAction      EventType = "ai_action"
	TypeSettlement    EventType = "settlement"
	TypeCommunication EventType = "communication"
)

// Event is an immutable audit entry owned by one claim.
type Event struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	ClaimID   snowflake.ID      `gorm:"not null;index" json:"claim_id"`
	Type      EventType         `gorm:"not null" json:"type"`
	Message   string            `gorm:"not null" json:"message"`
	ActorType string            `gorm:"not null" json:"actor_type"`
	ActorID   string            `json:"actor_id,omitempty"`
	Metadata  datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt time.Time         `gorm:"not null" json:"created_at"`
}

func (Event) TableName() string { return "timeline_events" }
