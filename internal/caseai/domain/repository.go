package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindByClaim(ctx context.Context, db *gorm.DB, claimID snowflake.ID) (*AiOutput, error)
	Upsert(ctx context.Context, db *gorm.DB, out *AiOutput) error
}
