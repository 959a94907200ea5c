package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type AppendRequest struct {
	ClaimID  snowflake.ID
	Type     EventType
	Message  string
	Metadata map[string]any
}

type Service interface {
	// Append writes through tx so the event commits or rolls back with the caller's change.
	Append(ctx context.Context, tx *gorm.DB, req AppendRequest) (*Event, error)
	// Publish forwards committed events to the stream; failures are logged only.
	Publish(ctx context.Context, events ...*Event)
	List(ctx context.Context, claimID snowflake.ID) ([]Event, error)
}

// Publisher streams committed events to downstream consumers.
type Publisher interface {
	PublishTimelineEvent(ctx context.Context, event Event) error
}

var (
	ErrInvalidClaim   = errors.New("invalid_claim")
	ErrInvalidType    = errors.New("invalid_event_type")
	ErrInvalidMessage = errors.New("invalid_event_message")
)
