package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	Status   Status
	Category Category
	Search   string
	Cursor   *ListCursor
	Limit    int
}

type ListCursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, claim *Claim) error
	MaxCodeSequence(ctx context.Context, db *gorm.DB, year int) (int, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Claim, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Claim, error)
	FindByCode(ctx context.Context, db *gorm.DB, code string) (*Claim, error)
	ListByPhone(ctx context.Context, db *gorm.DB, phone string) ([]*Claim, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Claim, error)
	Update(ctx context.Context, db *gorm.DB, claim *Claim) error

	InsertAttachment(ctx context.Context, db *gorm.DB, attachment *Attachment) error
	ListAttachments(ctx context.Context, db *gorm.DB, claimID snowflake.ID) ([]*Attachment, error)
	FindAttachment(ctx context.Context, db *gorm.DB, claimID, id snowflake.ID) (*Attachment, error)

	InsertCommunication(ctx context.Context, db *gorm.DB, comm *Communication) error
	ListCommunications(ctx context.Context, db *gorm.DB, claimID snowflake.ID) ([]*Communication, error)
	FindCommunicationForUpdate(ctx context.Context, db *gorm.DB, claimID, id snowflake.ID) (*Communication, error)
	SetCompanyResponse(ctx context.Context, db *gorm.DB, id snowflake.ID, response string, at time.Time) error

	InsertSettlement(ctx context.Context, db *gorm.DB, settlement *Settlement) error
	FindSettlement(ctx context.Context, db *gorm.DB, claimID snowflake.ID) (*Settlement, error)
}
