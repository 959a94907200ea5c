package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	claimdomain "github.com/smallbiznis/sanad/internal/claim/domain"
	"github.com/smallbiznis/sanad/internal/clock"
	"github.com/smallbiznis/sanad/internal/config"
	"github.com/smallbiznis/sanad/internal/observability/metrics"
	"github.com/smallbiznis/sanad/internal/observability/tracing"
	"github.com/smallbiznis/sanad/internal/providers/blob"
	timelinedomain "github.com/smallbiznis/sanad/internal/timeline/domain"
	"github.com/smallbiznis/sanad/internal/verification/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	KindBoardingPass = "boarding_pass"
	KindFlightStatus = "flight_status"
	KindDocuments    = "documents"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Config       config.Config
	Repo         domain.Repository
	Claims       claimdomain.Repository
	Timeline     timelinedomain.Service
	Blob         blob.Store
	OCR          domain.OCR
	Flights      domain.FlightStatusProvider
	Classifier   domain.DocumentClassifier
	Metrics      *metrics.Metrics           `optional:"true"`
	Capabilities *metrics.CapabilityMetrics `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	repo         domain.Repository
	claims       claimdomain.Repository
	timeline     timelinedomain.Service
	blob         blob.Store
	ocr          domain.OCR
	flights      domain.FlightStatusProvider
	classifier   domain.DocumentClassifier
	metrics      *metrics.Metrics
	capabilities *metrics.CapabilityMetrics
	timeout      time.Duration
	maxUpload    int64
	parallelism  int
}

func New(p Params) domain.Service {
	timeout := p.Config.CapabilityTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("verification.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         p.Repo,
		claims:       p.Claims,
		timeline:     p.Timeline,
		blob:         p.Blob,
		ocr:          p.OCR,
		flights:      p.Flights,
		classifier:   p.Classifier,
		metrics:      p.Metrics,
		capabilities: p.Capabilities,
		timeout:      timeout,
		maxUpload:    p.Config.UploadMaxBytes,
		parallelism:  4,
	}
}

// flightClaim loads a claim that must exist and be a flight claim.
func (s *Service) flightClaim(ctx context.Context, claimID snowflake.ID) (*claimdomain.Claim, error) {
	claim, err := s.claims.FindByID(ctx, s.db, claimID)
	if err != nil {
		return nil, err
	}
	if claim == nil {
		return nil, claimdomain.ErrNotFound
	}
	if claim.Category != claimdomain.CategoryFlight {
		return nil, fmt.Errorf("%w: verification is only available for flight claims", claimdomain.ErrInvalidCategory)
	}
	return claim, nil
}

// UploadBoardingPass reads the boarding pass, stores it as an attachment and
// upserts the claim's verification record as pending.
func (s *Service) UploadBoardingPass(ctx context.Context, req domain.UploadBoardingPassRequest) (domain.BoardingPassResult, error) {
	fileName := strings.TrimSpace(filepath.Base(req.FileName))
	if req.Content == nil || fileName == "" || fileName == "." {
		return domain.BoardingPassResult{}, claimdomain.Invalid("file", "boarding pass image is required")
	}

	claim, err := s.flightClaim(ctx, req.ClaimID)
	if err != nil {
		return domain.BoardingPassResult{}, err
	}

	data, err := s.readUpload(req.Content)
	if err != nil {
		return domain.BoardingPassResult{}, err
	}
	mimeType := imageMimeType(req.MimeType, fileName)

	var extracted domain.BoardingPassData
	err = s.call(ctx, metrics.CapabilityOCR, func(ctx context.Context) error {
		var err error
		extracted, err = s.ocr.ExtractBoardingPass(ctx, domain.Image{Bytes: data, MimeType: mimeType})
		return err
	})
	if err != nil {
		s.recordFailure(ctx, claim.ID, KindBoardingPass, "Boarding pass could not be read", err)
		return domain.BoardingPassResult{}, fmt.Errorf("%w: read boarding pass: %v", claimdomain.ErrExternalCapability, err)
	}

	key, size, err := s.putBlob(ctx, fileName, data)
	if err != nil {
		s.recordFailure(ctx, claim.ID, KindBoardingPass, "Boarding pass could not be stored", err)
		return domain.BoardingPassResult{}, err
	}

	now := s.clock.Now().UTC()
	attachment := claimdomain.Attachment{
		ID:         s.genID.Generate(),
		ClaimID:    claim.ID,
		FileName:   fileName,
		StorageKey: key,
		MimeType:   mimeType,
		SizeBytes:  size,
		UploadedAt: now,
	}

	var (
		verification domain.FlightVerification
		event        *timelinedomain.Event
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByClaimForUpdate(ctx, tx, claim.ID)
		if err != nil {
			return fmt.Errorf("load verification: %w", err)
		}
		if existing == nil {
			verification = domain.FlightVerification{ID: s.genID.Generate(), ClaimID: claim.ID, CreatedAt: now}
		} else {
			verification = *existing
		}
		applyBoardingPass(&verification, extracted, attachment.ID, now)

		if existing == nil {
			err = s.repo.Insert(ctx, tx, &verification)
		} else {
			err = s.repo.Update(ctx, tx, &verification)
		}
		if err != nil {
			return fmt.Errorf("persist verification: %w", err)
		}
		if err := s.claims.InsertAttachment(ctx, tx, &attachment); err != nil {
			return fmt.Errorf("persist attachment: %w", err)
		}

		event, err = s.timeline.Append(ctx, tx, timelinedomain.AppendRequest{
			ClaimID: claim.ID,
			Type:    timelinedomain.TypeVerification,
			Message: fmt.Sprintf("Boarding pass uploaded and read: flight %s", valueOr(verification.FlightNumber, "not identified")),
			Metadata: map[string]any{
				"kind":           KindBoardingPass,
				"attachment_id":  attachment.ID.String(),
				"ocr_confidence": extracted.Confidence,
			},
		})
		if err != nil {
			return fmt.Errorf("append timeline: %w", err)
		}
		return nil
	})
	if err != nil {
		s.log.Warn("boarding pass not recorded",
			zap.String("claim_id", claim.ID.String()),
			zap.String("storage_key", key),
			zap.Error(err),
		)
		s.metrics.RecordVerification(ctx, KindBoardingPass, "error")
		return domain.BoardingPassResult{}, err
	}

	s.timeline.Publish(ctx, event)
	s.metrics.RecordVerification(ctx, KindBoardingPass, string(domain.StatusPending))
	return domain.BoardingPassResult{Verification: verification, Extracted: extracted, Attachment: attachment}, nil
}

func applyBoardingPass(v *domain.FlightVerification, data domain.BoardingPassData, attachmentID snowflake.ID, now time.Time) {
	v.FlightNumber = normalizeFlightNumber(data.FlightNumber)
	v.Airline = data.Airline
	v.DepartureAirport = upperPtr(data.DepartureAirport)
	v.ArrivalAirport = upperPtr(data.ArrivalAirport)
	v.ScheduledDeparture = data.ScheduledDeparture
	v.PassengerName = data.PassengerName
	v.OCRConfidence = clampConfidence(data.Confidence)
	v.BoardingPassAttachmentID = &attachmentID

	// a new boarding pass invalidates facts verified for the previous one
	v.VerificationStatus = domain.StatusPending
	v.FlightStatus = domain.FlightUnknown
	v.ActualDeparture = nil
	v.DelayMinutes = nil
	v.VerificationSource = nil
	v.RawPayload = nil
	v.VerifiedAt = nil
	v.UpdatedAt = now
}

// VerifyFlight asks the flight-status provider about the boarded flight. A
// provider failure is recorded as an error state, not returned.
func (s *Service) VerifyFlight(ctx context.Context, claimID snowflake.ID) (domain.FlightVerification, error) {
	claim, err := s.flightClaim(ctx, claimID)
	if err != nil {
		return domain.FlightVerification{}, err
	}

	current, err := s.repo.FindByClaim(ctx, s.db, claim.ID)
	if err != nil {
		return domain.FlightVerification{}, err
	}
	if current == nil {
		return domain.FlightVerification{}, fmt.Errorf("%w: upload boarding pass first", claimdomain.ErrMissingPrerequisite)
	}
	if current.FlightNumber == nil || current.ScheduledDeparture == nil {
		return domain.FlightVerification{}, fmt.Errorf("%w: boarding pass is missing the flight number or departure time", claimdomain.ErrMissingPrerequisite)
	}

	query := domain.FlightQuery{
		FlightNumber:  *current.FlightNumber,
		ScheduledDate: current.ScheduledDeparture.UTC(),
	}
	if current.DepartureAirport != nil {
		query.DepartureAirport = *current.DepartureAirport
	}

	var lookup domain.FlightLookup
	err = s.call(ctx, metrics.CapabilityFlightStatus, func(ctx context.Context) error {
		var err error
		lookup, err = s.flights.Lookup(ctx, query)
		return err
	}, attribute.String("flight_number", query.FlightNumber))
	if err != nil {
		s.log.Warn("flight status lookup failed",
			zap.String("claim_id", claim.ID.String()),
			zap.String("flight_number", query.FlightNumber),
			zap.Error(err),
		)
		source := lookup.Source
		if source == "" {
			source = "unavailable"
		}
		lookup = domain.FlightLookup{
			Found:  false,
			Source: source,
			Raw:    map[string]any{"error": tracing.SafeError(err).Error()},
		}
	}

	status, delay := domain.MapFlightStatus(lookup)
	verificationStatus := domain.StatusVerified
	if status == domain.FlightUnknown {
		verificationStatus = domain.StatusError
	}

	var (
		verification domain.FlightVerification
		event        *timelinedomain.Event
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.repo.FindByClaimForUpdate(ctx, tx, claim.ID)
		if err != nil {
			return err
		}
		if locked == nil {
			return fmt.Errorf("%w: upload boarding pass first", claimdomain.ErrMissingPrerequisite)
		}

		now := s.clock.Now().UTC()
		locked.VerificationStatus = verificationStatus
		locked.FlightStatus = status
		locked.ActualDeparture = lookup.ActualDeparture
		locked.DelayMinutes = delay
		locked.VerificationSource = optional(lookup.Source)
		locked.RawPayload = lookup.Raw
		locked.VerifiedAt = &now
		locked.UpdatedAt = now
		if err := s.repo.Update(ctx, tx, locked); err != nil {
			return fmt.Errorf("persist verification: %w", err)
		}
		verification = *locked

		event, err = s.timeline.Append(ctx, tx, timelinedomain.AppendRequest{
			ClaimID: claim.ID,
			Type:    timelinedomain.TypeVerification,
			Message: flightStatusMessage(query.FlightNumber, status, delay),
			Metadata: map[string]any{
				"kind":          KindFlightStatus,
				"flight_status": string(status),
				"source":        lookup.Source,
			},
		})
		if err != nil {
			return fmt.Errorf("append timeline: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.FlightVerification{}, err
	}

	s.timeline.Publish(ctx, event)
	s.metrics.RecordVerification(ctx, KindFlightStatus, string(status))
	return verification, nil
}

func flightStatusMessage(flightNumber string, status domain.FlightStatus, delay *int) string {
	switch status {
	case domain.FlightDelayed:
		if delay != nil {
			return fmt.Sprintf("Verified: flight %s departed %d minutes late", flightNumber, *delay)
		}
		return fmt.Sprintf("Verified: flight %s was delayed", flightNumber)
	case domain.FlightCancelled:
		return fmt.Sprintf("Verified: flight %s was cancelled", flightNumber)
	case domain.FlightDiverted:
		return fmt.Sprintf("Verified: flight %s was diverted", flightNumber)
	case domain.FlightOnTime:
		return fmt.Sprintf("Verified: flight %s departed on time", flightNumber)
	}
	return fmt.Sprintf("Could not verify the status of flight %s", flightNumber)
}

func (s *Service) Get(ctx context.Context, claimID snowflake.ID) (*domain.FlightVerification, error) {
	return s.repo.FindByClaim(ctx, s.db, claimID)
}

// VerifiedFlightFacts exposes verified provider facts for eligibility.
func (s *Service) VerifiedFlightFacts(ctx context.Context, claimID snowflake.ID) (*claimdomain.FlightFacts, error) {
	v, err := s.repo.FindByClaim(ctx, s.db, claimID)
	if err != nil {
		return nil, err
	}
	if v == nil || v.VerificationStatus != domain.StatusVerified {
		return nil, nil
	}
	facts := &claimdomain.FlightFacts{Cancelled: v.FlightStatus == domain.FlightCancelled}
	if !facts.Cancelled && v.DelayMinutes != nil {
		minutes := *v.DelayMinutes
		if minutes < 0 {
			minutes = 0
		}
		facts.DelayMinutes = &minutes
	}
	return facts, nil
}

// call runs fn against an external capability under the capability timeout,
// with a client span and outcome metrics.
func (s *Service) call(ctx context.Context, capability string, fn func(context.Context) error, attrs ...attribute.KeyValue) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	ctx, span := tracing.StartCapabilitySpan(ctx, capability, attrs...)
	started := time.Now()

	err := fn(ctx)
	s.capabilities.Observe(capability, time.Since(started), err)
	tracing.EndSpan(span, err)
	return err
}

// recordFailure leaves an audit entry for a verification attempt that failed
// before anything was persisted.
func (s *Service) recordFailure(ctx context.Context, claimID snowflake.ID, kind, message string, cause error) {
	s.log.Warn("verification failed",
		zap.String("claim_id", claimID.String()),
		zap.String("kind", kind),
		zap.Error(cause),
	)
	s.metrics.RecordVerification(ctx, kind, "error")

	var event *timelinedomain.Event
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		event, err = s.timeline.Append(ctx, tx, timelinedomain.AppendRequest{
			ClaimID:  claimID,
			Type:     timelinedomain.TypeVerification,
			Message:  message,
			Metadata: map[string]any{"kind": kind, "outcome": metrics.ClassifyOutcome(cause)},
		})
		return err
	})
	if err != nil {
		s.log.Error("failed to record verification failure", zap.String("claim_id", claimID.String()), zap.Error(err))
		return
	}
	s.timeline.Publish(ctx, event)
}

func (s *Service) readUpload(r io.Reader) ([]byte, error) {
	limit := s.maxUpload
	if limit <= 0 {
		limit = 10 << 20
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, claimdomain.Invalid("file", "exceeds the upload size limit")
	}
	if len(data) == 0 {
		return nil, claimdomain.Invalid("file", "is empty")
	}
	return data, nil
}

func (s *Service) putBlob(ctx context.Context, fileName string, data []byte) (key string, size int64, err error) {
	err = s.call(ctx, metrics.CapabilityBlobStore, func(ctx context.Context) error {
		var err error
		key, size, err = s.blob.Put(ctx, fileName, bytes.NewReader(data))
		return err
	}, attribute.String("op", "put"))
	if err != nil {
		if errors.Is(err, blob.ErrTooLarge) {
			return "", 0, claimdomain.Invalid("file", "exceeds the upload size limit")
		}
		return "", 0, fmt.Errorf("%w: store file: %v", claimdomain.ErrExternalCapability, err)
	}
	return key, size, nil
}
