package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type RunRequest struct {
	ClaimID snowflake.ID
	Mode    string
	// Claim overrides the snapshot taken from the stored claim when set.
	Claim               *ClaimData
	EvidenceText        string
	AirlineResponseText string
}

type Service interface {
	Run(ctx context.Context, req RunRequest) (Result, error)
	Get(ctx context.Context, claimID snowflake.ID) (*AiOutput, error)
}
