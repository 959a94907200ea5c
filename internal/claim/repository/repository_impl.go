package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/sanad/internal/claim/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const claimColumns = `id, claim_code, code_year, code_seq, category, issue_type, status,
	customer_name, phone, email, company_name, reference_number,
	incident_date, description, flight_from, flight_to, scheduled_time, delay_hours,
	delivery_city, order_time, delivery_time,
	eligibility_status, estimated_sdr, estimated_local, quote_rate, quote_currency, quoted_at,
	internal_notes, draft_text, submitted_at, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, claim *domain.Claim) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO claims (`+claimColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		claim.ID,
		claim.ClaimCode,
		claim.CodeYear,
		claim.CodeSeq,
		claim.Category,
		claim.IssueType,
		claim.Status,
		claim.CustomerName,
		claim.Phone,
		claim.Email,
		claim.CompanyName,
		claim.ReferenceNumber,
		claim.IncidentDate,
		claim.Description,
		claim.FlightFrom,
		claim.FlightTo,
		claim.ScheduledTime,
		claim.DelayHours,
		claim.DeliveryCity,
		claim.OrderTime,
		claim.DeliveryTime,
		claim.EligibilityStatus,
		claim.EstimatedSDR,
		claim.EstimatedLocal,
		claim.QuoteRate,
		claim.QuoteCurrency,
		claim.QuotedAt,
		claim.InternalNotes,
		claim.DraftText,
		claim.SubmittedAt,
		claim.CreatedAt,
		claim.UpdatedAt,
	).Error
}

func (r *repo) MaxCodeSequence(ctx context.Context, db *gorm.DB, year int) (int, error) {
	var seq int
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(MAX(code_seq), 0) FROM claims WHERE code_year = ?`,
		year,
	).Scan(&seq).Error
	if err != nil {
		return 0, err
	}
	return seq, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Claim, error) {
	var claim domain.Claim
	err := db.WithContext(ctx).Raw(
		`SELECT `+claimColumns+` FROM claims WHERE id = ?`,
		id,
	).Scan(&claim).Error
	if err != nil {
		return nil, err
	}
	if claim.ID == 0 {
		return nil, nil
	}
	return &claim, nil
}

// FindByIDForUpdate row-locks the claim on databases that support it.
func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Claim, error) {
	var claim domain.Claim
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Limit(1).
		Find(&claim).Error
	if err != nil {
		return nil, err
	}
	if claim.ID == 0 {
		return nil, nil
	}
	return &claim, nil
}

func (r *repo) FindByCode(ctx context.Context, db *gorm.DB, code string) (*domain.Claim, error) {
	var claim domain.Claim
	err := db.WithContext(ctx).Raw(
		`SELECT `+claimColumns+` FROM claims WHERE claim_code = ?`,
		code,
	).Scan(&claim).Error
	if err != nil {
		return nil, err
	}
	if claim.ID == 0 {
		return nil, nil
	}
	return &claim, nil
}

func (r *repo) ListByPhone(ctx context.Context, db *gorm.DB, phone string) ([]*domain.Claim, error) {
	var claims []*domain.Claim
	err := db.WithContext(ctx).Raw(
		`SELECT `+claimColumns+` FROM claims WHERE phone = ? ORDER BY created_at DESC, id DESC`,
		phone,
	).Scan(&claims).Error
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Claim, error) {
	var claims []*domain.Claim
	stmt := db.WithContext(ctx).Model(&domain.Claim{})

	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.Category != "" {
		stmt = stmt.Where("category = ?", filter.Category)
	}
	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		pattern := "%" + search + "%"
		stmt = stmt.Where(
			"(LOWER(claim_code) LIKE ? OR LOWER(customer_name) LIKE ? OR phone LIKE ? OR LOWER(company_name) LIKE ?)",
			pattern, pattern, pattern, pattern,
		)
	}
	if filter.Cursor != nil {
		stmt = stmt.Where("((created_at < ?) OR (created_at = ? AND id < ?))",
			filter.Cursor.CreatedAt,
			filter.Cursor.CreatedAt,
			filter.Cursor.ID,
		)
	}

	stmt = stmt.Order("created_at desc, id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}

	if err := stmt.Find(&claims).Error; err != nil {
		return nil, err
	}
	return claims, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, claim *domain.Claim) error {
	return db.WithContext(ctx).Exec(
		`UPDATE claims SET
			issue_type = ?, status = ?, customer_name = ?, phone = ?, email = ?,
			company_name = ?, reference_number = ?, incident_date = ?, description = ?,
			flight_from = ?, flight_to = ?, scheduled_time = ?, delay_hours = ?,
			delivery_city = ?, order_time = ?, delivery_time = ?,
			eligibility_status = ?, estimated_sdr = ?, estimated_local = ?,
			quote_rate = ?, quote_currency = ?, quoted_at = ?,
			internal_notes = ?, draft_text = ?, submitted_at = ?, updated_at = ?
		 WHERE id = ?`,
		claim.IssueType,
		claim.Status,
		claim.CustomerName,
		claim.Phone,
		claim.Email,
		claim.CompanyName,
		claim.ReferenceNumber,
		claim.IncidentDate,
		claim.Description,
		claim.FlightFrom,
		claim.FlightTo,
		claim.ScheduledTime,
		claim.DelayHours,
		claim.DeliveryCity,
		claim.OrderTime,
		claim.DeliveryTime,
		claim.EligibilityStatus,
		claim.EstimatedSDR,
		claim.EstimatedLocal,
		claim.QuoteRate,
		claim.QuoteCurrency,
		claim.QuotedAt,
		claim.InternalNotes,
		claim.DraftText,
		claim.SubmittedAt,
		claim.UpdatedAt,
		claim.ID,
	).Error
}

func (r *repo) InsertAttachment(ctx context.Context, db *gorm.DB, attachment *domain.Attachment) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO claim_attachments (id, claim_id, file_name, storage_key, mime_type, size_bytes, uploaded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		attachment.ID,
		attachment.ClaimID,
		attachment.FileName,
		attachment.StorageKey,
		attachment.MimeType,
		attachment.SizeBytes,
		attachment.UploadedAt,
	).Error
}

func (r *repo) ListAttachments(ctx context.Context, db *gorm.DB, claimID snowflake.ID) ([]*domain.Attachment, error) {
	var items []*domain.Attachment
	err := db.WithContext(ctx).Raw(
		`SELECT id, claim_id, file_name, storage_key, mime_type, size_bytes, uploaded_at
		 FROM claim_attachments WHERE claim_id = ? ORDER BY uploaded_at ASC, id ASC`,
		claimID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindAttachment(ctx context.Context, db *gorm.DB, claimID, id snowflake.ID) (*domain.Attachment, error) {
	var item domain.Attachment
	err := db.WithContext(ctx).Raw(
		`SELECT id, claim_id, file_name, storage_key, mime_type, size_bytes, uploaded_at
		 FROM claim_attachments WHERE claim_id = ? AND id = ?`,
		claimID,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) InsertCommunication(ctx context.Context, db *gorm.DB, comm *domain.Communication) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO claim_communications (id, claim_id, method, recipient, subject, body, delivery_status, sent_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		comm.ID,
		comm.ClaimID,
		comm.Method,
		comm.Recipient,
		comm.Subject,
		comm.Body,
		comm.DeliveryStatus,
		comm.SentAt,
		comm.CreatedAt,
	).Error
}

func (r *repo) ListCommunications(ctx context.Context, db *gorm.DB, claimID snowflake.ID) ([]*domain.Communication, error) {
	var items []*domain.Communication
	err := db.WithContext(ctx).Raw(
		`SELECT id, claim_id, method, recipient, subject, body, delivery_status, sent_at,
			company_response, company_response_at, created_at
		 FROM claim_communications WHERE claim_id = ? ORDER BY sent_at DESC, id DESC`,
		claimID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindCommunicationForUpdate(ctx context.Context, db *gorm.DB, claimID, id snowflake.ID) (*domain.Communication, error) {
	var item domain.Communication
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("claim_id = ? AND id = ?", claimID, id).
		Limit(1).
		Find(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) SetCompanyResponse(ctx context.Context, db *gorm.DB, id snowflake.ID, response string, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE claim_communications SET company_response = ?, company_response_at = ?
		 WHERE id = ? AND company_response IS NULL`,
		response,
		at,
		id,
	).Error
}

func (r *repo) InsertSettlement(ctx context.Context, db *gorm.DB, settlement *domain.Settlement) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO claim_settlements (id, claim_id, compensation_type, compensation_amount, fee_percentage, net_amount, currency, closed_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		settlement.ID,
		settlement.ClaimID,
		settlement.CompensationType,
		settlement.CompensationAmount,
		settlement.FeePercentage,
		settlement.NetAmount,
		settlement.Currency,
		settlement.ClosedAt,
		settlement.CreatedAt,
	).Error
}

func (r *repo) FindSettlement(ctx context.Context, db *gorm.DB, claimID snowflake.ID) (*domain.Settlement, error) {
	var item domain.Settlement
	err := db.WithContext(ctx).Raw(
		`SELECT id, claim_id, compensation_type, compensation_amount, fee_percentage, net_amount, currency, closed_at, created_at
		 FROM claim_settlements WHERE claim_id = ?`,
		claimID,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}
