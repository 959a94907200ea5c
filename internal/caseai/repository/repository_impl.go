package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/sanad/internal/caseai/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByClaim(ctx context.Context, db *gorm.DB, claimID snowflake.ID) (*domain.AiOutput, error) {
	var out domain.AiOutput
	err := db.WithContext(ctx).Raw(
		`SELECT id, claim_id, summary, case_strength, eligibility_reasoning, claim_draft,
			next_action, input_hash, mode, created_at, updated_at
		FROM claim_ai_outputs
		WHERE claim_id = ?
		LIMIT 1`,
		claimID,
	).Scan(&out).Error
	if err != nil {
		return nil, err
	}
	if out.ID == 0 {
		return nil, nil
	}
	return &out, nil
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, out *domain.AiOutput) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "claim_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"summary", "case_strength", "eligibility_reasoning", "claim_draft",
			"next_action", "input_hash", "mode", "updated_at",
		}),
	}).Create(out).Error
}
