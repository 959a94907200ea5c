package domain

import (
	"context"
	"io"

	"github.com/bwmarrin/snowflake"
	claimdomain "github.com/smallbiznis/sanad/internal/claim/domain"
)

type UploadBoardingPassRequest struct {
	ClaimID  snowflake.ID
	FileName string
	MimeType string
	Content  io.Reader
}

type BoardingPassResult struct {
	Verification FlightVerification     `json:"verification"`
	Extracted    BoardingPassData       `json:"ocr_data"`
	Attachment   claimdomain.Attachment `json:"attachment"`
}

type VerifyDocumentsRequest struct {
	ClaimID snowflake.ID
	// AttachmentIDs narrows the batch; empty means every image on the claim.
	AttachmentIDs []snowflake.ID
}

type Service interface {
	UploadBoardingPass(ctx context.Context, req UploadBoardingPassRequest) (BoardingPassResult, error)
	VerifyFlight(ctx context.Context, claimID snowflake.ID) (FlightVerification, error)
	VerifyDocuments(ctx context.Context, req VerifyDocumentsRequest) ([]DocumentCheck, error)

	Get(ctx context.Context, claimID snowflake.ID) (*FlightVerification, error)
	ListDocumentChecks(ctx context.Context, claimID snowflake.ID) ([]DocumentCheck, error)

	claimdomain.FlightFactsSource
}
