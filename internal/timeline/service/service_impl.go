package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/sanad/internal/clock"
	obscontext "github.com/smallbiznis/sanad/internal/observability/context"
	"github.com/smallbiznis/sanad/internal/timeline/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      domain.Repository
	Publisher domain.Publisher `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	publisher domain.Publisher
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("timeline.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		publisher: p.Publisher,
	}
}

func (s *Service) Append(ctx context.Context, tx *gorm.DB, req domain.AppendRequest) (*domain.Event, error) {
	if req.ClaimID == 0 {
		return nil, domain.ErrInvalidClaim
	}
	if strings.TrimSpace(string(req.Type)) == "" {
		return nil, domain.ErrInvalidType
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, domain.ErrInvalidMessage
	}
	if tx == nil {
		tx = s.db
	}

	actorType, actorID := obscontext.ActorFromContext(ctx)
	metadata := datatypes.JSONMap{}
	for k, v := range req.Metadata {
		if k == "" {
			continue
		}
		metadata[k] = v
	}
	if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
		metadata["request_id"] = requestID
	}

	event := &domain.Event{
		ID:        s.genID.Generate(),
		ClaimID:   req.ClaimID,
		Type:      req.Type,
		Message:   message,
		ActorType: actorType,
		ActorID:   actorID,
		Metadata:  metadata,
		CreatedAt: s.clock.Now().UTC(),
	}
	if err := s.repo.Insert(ctx, tx, event); err != nil {
		return nil, err
	}
	return event, nil
}

func (s *Service) Publish(ctx context.Context, events ...*domain.Event) {
	if s.publisher == nil {
		return
	}
	for _, evt := range events {
		if evt == nil {
			continue
		}
		if err := s.publisher.PublishTimelineEvent(ctx, *evt); err != nil {
			s.log.Warn("publish timeline event failed",
				zap.String("claim_id", evt.ClaimID.String()),
				zap.String("event_id", evt.ID.String()),
				zap.Error(err),
			)
		}
	}
}

func (s *Service) List(ctx context.Context, claimID snowflake.ID) ([]domain.Event, error) {
	items, err := s.repo.ListByClaim(ctx, s.db, claimID)
	if err != nil {
		return nil, err
	}
	events := make([]domain.Event, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		events = append(events, *item)
	}
	return events, nil
}
