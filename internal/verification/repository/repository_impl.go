package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/sanad/internal/verification/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const verificationColumns = `id, claim_id, flight_number, airline, departure_airport, arrival_airport,
	scheduled_departure, passenger_name, ocr_confidence, boarding_pass_attachment_id,
	verification_status, flight_status, actual_departure, delay_minutes, verification_source,
	raw_payload, verified_at, created_at, updated_at`

func (r *repo) FindByClaim(ctx context.Context, db *gorm.DB, claimID snowflake.ID) (*domain.FlightVerification, error) {
	var v domain.FlightVerification
	err := db.WithContext(ctx).Raw(
		`SELECT `+verificationColumns+` FROM claim_flight_verifications WHERE claim_id = ? LIMIT 1`,
		claimID,
	).Scan(&v).Error
	if err != nil {
		return nil, err
	}
	if v.ID == 0 {
		return nil, nil
	}
	return &v, nil
}

func (r *repo) FindByClaimForUpdate(ctx context.Context, db *gorm.DB, claimID snowflake.ID) (*domain.FlightVerification, error) {
	var v domain.FlightVerification
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("claim_id = ?", claimID).
		Limit(1).
		Find(&v).Error
	if err != nil {
		return nil, err
	}
	if v.ID == 0 {
		return nil, nil
	}
	return &v, nil
}

// Insert stores v as the claim's verification. When another writer created
// the row first, that row is overwritten and v takes its id and created_at.
func (r *repo) Insert(ctx context.Context, db *gorm.DB, v *domain.FlightVerification) error {
	err := db.WithContext(ctx).Exec(
		`INSERT INTO claim_flight_verifications (`+verificationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (claim_id) DO UPDATE SET
			flight_number = excluded.flight_number,
			airline = excluded.airline,
			departure_airport = excluded.departure_airport,
			arrival_airport = excluded.arrival_airport,
			scheduled_departure = excluded.scheduled_departure,
			passenger_name = excluded.passenger_name,
			ocr_confidence = excluded.ocr_confidence,
			boarding_pass_attachment_id = excluded.boarding_pass_attachment_id,
			verification_status = excluded.verification_status,
			flight_status = excluded.flight_status,
			actual_departure = excluded.actual_departure,
			delay_minutes = excluded.delay_minutes,
			verification_source = excluded.verification_source,
			raw_payload = excluded.raw_payload,
			verified_at = excluded.verified_at,
			updated_at = excluded.updated_at`,
		v.ID,
		v.ClaimID,
		v.FlightNumber,
		v.Airline,
		v.DepartureAirport,
		v.ArrivalAirport,
		v.ScheduledDeparture,
		v.PassengerName,
		v.OCRConfidence,
		v.BoardingPassAttachmentID,
		v.VerificationStatus,
		v.FlightStatus,
		v.ActualDeparture,
		v.DelayMinutes,
		v.VerificationSource,
		v.RawPayload,
		v.VerifiedAt,
		v.CreatedAt,
		v.UpdatedAt,
	).Error
	if err != nil {
		return err
	}

	var stored struct {
		ID        snowflake.ID
		CreatedAt time.Time
	}
	err = db.WithContext(ctx).Raw(
		`SELECT id, created_at FROM claim_flight_verifications WHERE claim_id = ? LIMIT 1`,
		v.ClaimID,
	).Scan(&stored).Error
	if err != nil {
		return err
	}
	if stored.ID != 0 {
		v.ID = stored.ID
		v.CreatedAt = stored.CreatedAt
	}
	return nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, v *domain.FlightVerification) error {
	return db.WithContext(ctx).Exec(
		`UPDATE claim_flight_verifications SET
			flight_number = ?, airline = ?, departure_airport = ?, arrival_airport = ?,
			scheduled_departure = ?, passenger_name = ?, ocr_confidence = ?, boarding_pass_attachment_id = ?,
			verification_status = ?, flight_status = ?, actual_departure = ?, delay_minutes = ?,
			verification_source = ?, raw_payload = ?, verified_at = ?, updated_at = ?
		WHERE id = ?`,
		v.FlightNumber,
		v.Airline,
		v.DepartureAirport,
		v.ArrivalAirport,
		v.ScheduledDeparture,
		v.PassengerName,
		v.OCRConfidence,
		v.BoardingPassAttachmentID,
		v.VerificationStatus,
		v.FlightStatus,
		v.ActualDeparture,
		v.DelayMinutes,
		v.VerificationSource,
		v.RawPayload,
		v.VerifiedAt,
		v.UpdatedAt,
		v.ID,
	).Error
}

func (r *repo) UpsertDocumentCheck(ctx context.Context, db *gorm.DB, check *domain.DocumentCheck) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "attachment_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"document_type", "is_relevant", "extracted_fields", "notes",
			"confidence", "warnings", "failed", "checked_at",
		}),
	}).Create(check).Error
}

func (r *repo) ListDocumentChecks(ctx context.Context, db *gorm.DB, claimID snowflake.ID) ([]*domain.DocumentCheck, error) {
	var checks []*domain.DocumentCheck
	err := db.WithContext(ctx).Raw(
		`SELECT id, claim_id, attachment_id, document_type, is_relevant, extracted_fields, notes,
			confidence, warnings, failed, checked_at
		FROM document_checks WHERE claim_id = ? ORDER BY checked_at DESC, id DESC`,
		claimID,
	).Scan(&checks).Error
	if err != nil {
		return nil, err
	}
	return checks, nil
}
