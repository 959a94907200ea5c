package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindByClaim(ctx context.Context, db *gorm.DB, claimID snowflake.ID) (*FlightVerification, error)
	FindByClaimForUpdate(ctx context.Context, db *gorm.DB, claimID snowflake.ID) (*FlightVerification, error)
	Insert(ctx context.Context, db *gorm.DB, v *FlightVerification) error
	Update(ctx context.Context, db *gorm.DB, v *FlightVerification) error

	UpsertDocumentCheck(ctx context.Context, db *gorm.DB, check *DocumentCheck) error
	ListDocumentChecks(ctx context.Context, db *gorm.DB, claimID snowflake.ID) ([]*DocumentCheck, error)
}
