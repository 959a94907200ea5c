package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/sanad/internal/timeline/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, event *domain.Event) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO timeline_events (id, claim_id, type, message, actor_type, actor_id, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.ClaimID,
		event.Type,
		event.Message,
		event.ActorType,
		event.ActorID,
		event.Metadata,
		event.CreatedAt,
	).Error
}

func (r *repo) ListByClaim(ctx context.Context, db *gorm.DB, claimID snowflake.ID) ([]*domain.Event, error) {
	var events []*domain.Event
	err := db.WithContext(ctx).Raw(
		`SELECT id, claim_id, type, message, actor_type, actor_id, metadata, created_at
		 FROM timeline_events WHERE claim_id = ?
		 ORDER BY created_at DESC, id DESC`,
		claimID,
	).Scan(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}
