package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/sanad/internal/claim/domain"
	timelinedomain "github.com/smallbiznis/sanad/internal/timeline/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func (s *Service) AddNote(ctx context.Context, req domain.AddNoteRequest) (timelinedomain.Event, error) {
	eventType := timelinedomain.EventType(strings.ToLower(strings.TrimSpace(req.Type)))
	if eventType == "" {
		eventType = timelinedomain.TypeNote
	}
	if eventType != timelinedomain.TypeNote && eventType != timelinedomain.TypeInfoRequest {
		return timelinedomain.Event{}, domain.Invalid("type", "must be note or info_request")
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return timelinedomain.Event{}, domain.Invalid("message", "is required")
	}
	if _, err := s.Get(ctx, req.ClaimID); err != nil {
		return timelinedomain.Event{}, err
	}

	var event *timelinedomain.Event
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		event, err = s.timeline.Append(ctx, tx, timelinedomain.AppendRequest{
			ClaimID: req.ClaimID,
			Type:    eventType,
			Message: message,
		})
		return err
	})
	if err != nil {
		return timelinedomain.Event{}, err
	}
	s.timeline.Publish(ctx, event)
	return *event, nil
}

// RecordCommunication logs an outbound contact. Email is relayed when an SMTP
// provider is configured; the attempt is recorded whatever the delivery outcome.
func (s *Service) RecordCommunication(ctx context.Context, req domain.RecordCommunicationRequest) (domain.Communication, error) {
	method := domain.CommunicationMethod(strings.ToLower(strings.TrimSpace(req.Method)))
	recipient := strings.TrimSpace(req.Recipient)

	var errs domain.ValidationErrors
	if !method.Valid() {
		errs.Add("method", "must be email, sms or phone")
	}
	if recipient == "" {
		errs.Add("recipient", "is required")
	} else if method == domain.MethodEmail && !strings.Contains(recipient, "@") {
		errs.Add("recipient", "is not a valid address")
	}
	if err := errs.Err(); err != nil {
		return domain.Communication{}, err
	}

	claim, err := s.Get(ctx, req.ClaimID)
	if err != nil {
		return domain.Communication{}, err
	}

	now := s.clock.Now().UTC()
	comm := domain.Communication{
		ID:             s.genID.Generate(),
		ClaimID:        claim.ID,
		Method:         method,
		Recipient:      recipient,
		Subject:        strings.TrimSpace(req.Subject),
		Body:           req.Body,
		DeliveryStatus: domain.DeliveryRecorded,
		SentAt:         now,
		CreatedAt:      now,
	}
	if req.SentAt != nil {
		comm.SentAt = req.SentAt.UTC()
	}

	if method == domain.MethodEmail && s.email != nil && s.email.Configured() {
		subject := comm.Subject
		if subject == "" {
			subject = fmt.Sprintf("Compensation claim %s", claim.ClaimCode)
		}
		if err := s.email.Send(ctx, []string{recipient}, subject, comm.Body); err != nil {
			comm.DeliveryStatus = domain.DeliveryFailed
			s.log.Warn("email relay failed",
				zap.String("claim_id", claim.ID.String()),
				zap.String("communication_id", comm.ID.String()),
				zap.Error(err),
			)
		} else {
			comm.DeliveryStatus = domain.DeliverySent
			comm.SentAt = now
		}
	}

	var event *timelinedomain.Event
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.InsertCommunication(ctx, tx, &comm); err != nil {
			return fmt.Errorf("persist communication: %w", err)
		}
		var err error
		event, err = s.timeline.Append(ctx, tx, timelinedomain.AppendRequest{
			ClaimID: claim.ID,
			Type:    timelinedomain.TypeCommunication,
			Message: fmt.Sprintf("Contacted %s by %s (%s)", recipient, method, comm.DeliveryStatus),
			Metadata: map[string]any{
				"communication_id": comm.ID.String(),
				"method":           string(method),
				"recipient":        recipient,
				"delivery_status":  comm.DeliveryStatus,
			},
		})
		if err != nil {
			return fmt.Errorf("append timeline: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Communication{}, err
	}
	s.timeline.Publish(ctx, event)
	return comm, nil
}

// RecordCompanyResponse stores the company's reply on a communication. A reply
// can be recorded once.
func (s *Service) RecordCompanyResponse(ctx context.Context, req domain.RecordCompanyResponseRequest) (domain.Communication, error) {
	response := strings.TrimSpace(req.Response)
	if response == "" {
		return domain.Communication{}, domain.Invalid("response", "is required")
	}

	var (
		comm  domain.Communication
		event *timelinedomain.Event
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := s.repo.FindCommunicationForUpdate(ctx, tx, req.ClaimID, req.CommunicationID)
		if err != nil {
			return err
		}
		if found == nil {
			return domain.ErrNotFound
		}
		if found.CompanyResponse != nil {
			return fmt.Errorf("%w: company response already recorded", domain.ErrConflict)
		}

		now := s.clock.Now().UTC()
		if err := s.repo.SetCompanyResponse(ctx, tx, found.ID, response, now); err != nil {
			return err
		}
		found.CompanyResponse = &response
		found.CompanyResponseAt = &now
		comm = *found

		event, err = s.timeline.Append(ctx, tx, timelinedomain.AppendRequest{
			ClaimID: found.ClaimID,
			Type:    timelinedomain.TypeNote,
			Message: fmt.Sprintf("Company response recorded for contact with %s", found.Recipient),
			Metadata: map[string]any{
				"communication_id": found.ID.String(),
			},
		})
		return err
	})
	if err != nil {
		return domain.Communication{}, err
	}
	s.timeline.Publish(ctx, event)
	return comm, nil
}

func (s *Service) ListCommunications(ctx context.Context, claimID snowflake.ID) ([]domain.Communication, error) {
	if _, err := s.Get(ctx, claimID); err != nil {
		return nil, err
	}
	items, err := s.repo.ListCommunications(ctx, s.db, claimID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Communication, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		out = append(out, *item)
	}
	return out, nil
}
