package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository has no update or delete; the timeline is append-only.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, event *Event) error
	ListByClaim(ctx context.Context, db *gorm.DB, claimID snowflake.ID) ([]*Event, error)
}
