package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/sanad/internal/claim/domain"
	"github.com/smallbiznis/sanad/internal/observability/metrics"
	"github.com/smallbiznis/sanad/internal/observability/tracing"
	"github.com/smallbiznis/sanad/internal/providers/blob"
	timelinedomain "github.com/smallbiznis/sanad/internal/timeline/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultMimeType = "application/octet-stream"

// UploadAttachment stores the file in the blob store, then records it and a
// note event on the claim.
func (s *Service) UploadAttachment(ctx context.Context, req domain.UploadAttachmentRequest) (domain.Attachment, error) {
	fileName := strings.TrimSpace(filepath.Base(req.FileName))
	if fileName == "" || fileName == "." || fileName == string(filepath.Separator) {
		return domain.Attachment{}, domain.Invalid("file", "file name is required")
	}
	if req.Content == nil {
		return domain.Attachment{}, domain.Invalid("file", "content is required")
	}

	claim, err := s.Get(ctx, req.ClaimID)
	if err != nil {
		return domain.Attachment{}, err
	}

	key, size, err := s.putBlob(ctx, fileName, req.Content)
	if err != nil {
		return domain.Attachment{}, err
	}

	now := s.clock.Now().UTC()
	attachment := domain.Attachment{
		ID:         s.genID.Generate(),
		ClaimID:    claim.ID,
		FileName:   fileName,
		StorageKey: key,
		MimeType:   detectMimeType(req.MimeType, fileName),
		SizeBytes:  size,
		UploadedAt: now,
	}

	var event *timelinedomain.Event
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.InsertAttachment(ctx, tx, &attachment); err != nil {
			return fmt.Errorf("persist attachment: %w", err)
		}
		var err error
		event, err = s.timeline.Append(ctx, tx, timelinedomain.AppendRequest{
			ClaimID: claim.ID,
			Type:    timelinedomain.TypeNote,
			Message: fmt.Sprintf("Document uploaded: %s", fileName),
			Metadata: map[string]any{
				"attachment_id": attachment.ID.String(),
				"mime_type":     attachment.MimeType,
			},
		})
		if err != nil {
			return fmt.Errorf("append timeline: %w", err)
		}
		return nil
	})
	if err != nil {
		s.log.Warn("attachment stored but not recorded",
			zap.String("claim_id", claim.ID.String()),
			zap.String("storage_key", key),
			zap.Error(err),
		)
		return domain.Attachment{}, err
	}
	s.timeline.Publish(ctx, event)
	return attachment, nil
}

func (s *Service) putBlob(ctx context.Context, fileName string, r io.Reader) (key string, size int64, err error) {
	ctx, span := tracing.StartCapabilitySpan(ctx, metrics.CapabilityBlobStore, attribute.String("op", "put"))
	started := time.Now()
	defer func() {
		s.observeCapability(metrics.CapabilityBlobStore, started, err)
		tracing.EndSpan(span, err)
	}()

	key, size, err = s.blob.Put(ctx, fileName, r)
	switch {
	case err == nil:
		return key, size, nil
	case errors.Is(err, blob.ErrTooLarge):
		return "", 0, domain.Invalid("file", "exceeds the upload size limit")
	default:
		return "", 0, fmt.Errorf("%w: store file: %v", domain.ErrExternalCapability, err)
	}
}

func (s *Service) ListAttachments(ctx context.Context, claimID snowflake.ID) ([]domain.Attachment, error) {
	if _, err := s.Get(ctx, claimID); err != nil {
		return nil, err
	}
	items, err := s.repo.ListAttachments(ctx, s.db, claimID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Attachment, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		out = append(out, *item)
	}
	return out, nil
}

// OpenAttachment returns the attachment record and a reader over its bytes.
// The caller closes the reader.
func (s *Service) OpenAttachment(ctx context.Context, claimID, attachmentID snowflake.ID) (domain.Attachment, io.ReadCloser, error) {
	attachment, err := s.repo.FindAttachment(ctx, s.db, claimID, attachmentID)
	if err != nil {
		return domain.Attachment{}, nil, err
	}
	if attachment == nil {
		return domain.Attachment{}, nil, domain.ErrNotFound
	}

	rc, err := s.blob.Open(ctx, attachment.StorageKey)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return domain.Attachment{}, nil, domain.ErrNotFound
		}
		return domain.Attachment{}, nil, fmt.Errorf("%w: open file: %v", domain.ErrExternalCapability, err)
	}
	return *attachment, rc, nil
}

func detectMimeType(declared, fileName string) string {
	if declared = strings.TrimSpace(declared); declared != "" {
		if mediaType, _, err := mime.ParseMediaType(declared); err == nil {
			return mediaType
		}
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(fileName))); byExt != "" {
		if mediaType, _, err := mime.ParseMediaType(byExt); err == nil {
			return mediaType
		}
	}
	return defaultMimeType
}
