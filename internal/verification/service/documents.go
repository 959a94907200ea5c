package service

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/bwmarrin/snowflake"
	claimdomain "github.com/smallbiznis/sanad/internal/claim/domain"
	"github.com/smallbiznis/sanad/internal/observability/metrics"
	"github.com/smallbiznis/sanad/internal/providers/blob"
	timelinedomain "github.com/smallbiznis/sanad/internal/timeline/domain"
	"github.com/smallbiznis/sanad/internal/verification/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// VerifyDocuments classifies a batch of image attachments. Each document is
// checked independently; one failure never aborts the others.
func (s *Service) VerifyDocuments(ctx context.Context, req domain.VerifyDocumentsRequest) ([]domain.DocumentCheck, error) {
	claim, err := s.claims.FindByID(ctx, s.db, req.ClaimID)
	if err != nil {
		return nil, err
	}
	if claim == nil {
		return nil, claimdomain.ErrNotFound
	}

	attachments, err := s.selectAttachments(ctx, claim.ID, req.AttachmentIDs)
	if err != nil {
		return nil, err
	}
	if len(attachments) == 0 {
		return nil, fmt.Errorf("%w: no image attachments to verify", claimdomain.ErrMissingPrerequisite)
	}

	checks := make([]domain.DocumentCheck, len(attachments))
	var g errgroup.Group
	g.SetLimit(s.parallelism)
	for i, att := range attachments {
		i, att := i, att
		g.Go(func() error {
			checks[i] = s.checkDocument(ctx, att)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, c := range checks {
		if c.Failed {
			failed++
		}
	}

	var event *timelinedomain.Event
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range checks {
			if err := s.repo.UpsertDocumentCheck(ctx, tx, &checks[i]); err != nil {
				return fmt.Errorf("persist document check: %w", err)
			}
		}
		var err error
		event, err = s.timeline.Append(ctx, tx, timelinedomain.AppendRequest{
			ClaimID: claim.ID,
			Type:    timelinedomain.TypeVerification,
			Message: fmt.Sprintf("Verified %d document(s), %d failed", len(checks), failed),
			Metadata: map[string]any{
				"kind":   KindDocuments,
				"count":  len(checks),
				"failed": failed,
			},
		})
		if err != nil {
			return fmt.Errorf("append timeline: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.timeline.Publish(ctx, event)
	result := "verified"
	if failed > 0 {
		result = "partial"
	}
	s.metrics.RecordVerification(ctx, KindDocuments, result)
	return checks, nil
}

func (s *Service) selectAttachments(ctx context.Context, claimID snowflake.ID, ids []snowflake.ID) ([]claimdomain.Attachment, error) {
	if len(ids) == 0 {
		all, err := s.claims.ListAttachments(ctx, s.db, claimID)
		if err != nil {
			return nil, err
		}
		out := make([]claimdomain.Attachment, 0, len(all))
		for _, att := range all {
			if att != nil && isImage(att.MimeType) {
				out = append(out, *att)
			}
		}
		return out, nil
	}

	out := make([]claimdomain.Attachment, 0, len(ids))
	seen := make(map[snowflake.ID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		att, err := s.claims.FindAttachment(ctx, s.db, claimID, id)
		if err != nil {
			return nil, err
		}
		if att == nil {
			return nil, fmt.Errorf("%w: attachment %s", claimdomain.ErrNotFound, id)
		}
		out = append(out, *att)
	}
	return out, nil
}

func (s *Service) checkDocument(ctx context.Context, att claimdomain.Attachment) domain.DocumentCheck {
	check := domain.DocumentCheck{
		ID:           s.genID.Generate(),
		ClaimID:      att.ClaimID,
		AttachmentID: att.ID,
		CheckedAt:    s.clock.Now().UTC(),
	}

	if !isImage(att.MimeType) {
		return failedCheck(check, "attachment is not an image")
	}

	var data []byte
	err := s.call(ctx, metrics.CapabilityBlobStore, func(ctx context.Context) error {
		var err error
		data, err = blob.ReadAll(ctx, s.blob, att.StorageKey)
		return err
	}, attribute.String("op", "read"), attribute.String("attachment_id", att.ID.String()))
	if err != nil {
		s.log.Warn("document unreadable", zap.String("attachment_id", att.ID.String()), zap.Error(err))
		return failedCheck(check, "stored file could not be read")
	}

	var result domain.DocumentClassification
	err = s.call(ctx, metrics.CapabilityClassify, func(ctx context.Context) error {
		var err error
		result, err = s.classifier.Classify(ctx, domain.Image{Bytes: data, MimeType: att.MimeType})
		return err
	}, attribute.String("attachment_id", att.ID.String()))
	if err != nil {
		s.log.Warn("document classification failed",
			zap.String("claim_id", att.ClaimID.String()),
			zap.String("attachment_id", att.ID.String()),
			zap.Error(err),
		)
		return failedCheck(check, "classification failed: "+metrics.ClassifyOutcome(err))
	}

	check.DocumentType = domain.ParseDocumentType(string(result.DocumentType))
	check.IsRelevant = result.IsRelevant
	check.ExtractedFields = datatypes.JSONMap(result.ExtractedFields)
	if check.ExtractedFields == nil {
		check.ExtractedFields = datatypes.JSONMap{}
	}
	check.Notes = result.Notes
	check.Confidence = clampConfidence(result.Confidence)
	check.Warnings = datatypes.JSONSlice[string](nonNil(result.Warnings))
	return check
}

func failedCheck(check domain.DocumentCheck, warning string) domain.DocumentCheck {
	check.DocumentType = domain.DocumentUnknown
	check.ExtractedFields = datatypes.JSONMap{}
	check.Confidence = 0
	check.Warnings = datatypes.JSONSlice[string]{warning}
	check.Failed = true
	return check
}

func (s *Service) ListDocumentChecks(ctx context.Context, claimID snowflake.ID) ([]domain.DocumentCheck, error) {
	items, err := s.repo.ListDocumentChecks(ctx, s.db, claimID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.DocumentCheck, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		out = append(out, *item)
	}
	return out, nil
}

func isImage(mimeType string) bool {
	return strings.HasPrefix(strings.ToLower(mimeType), "image/")
}

func imageMimeType(declared, fileName string) string {
	if declared = strings.TrimSpace(declared); declared != "" {
		if mediaType, _, err := mime.ParseMediaType(declared); err == nil {
			return mediaType
		}
	}
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	}
	return "image/jpeg"
}

func clampConfidence(c int) int {
	switch {
	case c < 0:
		return 0
	case c > 100:
		return 100
	}
	return c
}

func normalizeFlightNumber(v *string) *string {
	if v == nil {
		return nil
	}
	n := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(*v), " ", ""))
	return optional(n)
}

func upperPtr(v *string) *string {
	if v == nil {
		return nil
	}
	return optional(strings.ToUpper(strings.TrimSpace(*v)))
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func valueOr(v *string, fallback string) string {
	if v == nil || *v == "" {
		return fallback
	}
	return *v
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
