package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	claimdomain "github.com/smallbiznis/sanad/internal/claim/domain"
	claimrepo "github.com/smallbiznis/sanad/internal/claim/repository"
	"github.com/smallbiznis/sanad/internal/clock"
	"github.com/smallbiznis/sanad/internal/config"
	"github.com/smallbiznis/sanad/internal/observability/metrics"
	"github.com/smallbiznis/sanad/internal/providers/blob"
	timelinedomain "github.com/smallbiznis/sanad/internal/timeline/domain"
	timelinerepo "github.com/smallbiznis/sanad/internal/timeline/repository"
	timelinesvc "github.com/smallbiznis/sanad/internal/timeline/service"
	"github.com/smallbiznis/sanad/internal/verification/domain"
	"github.com/smallbiznis/sanad/internal/verification/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type mockOCR struct{ mock.Mock }

func (m *mockOCR) ExtractBoardingPass(ctx context.Context, image domain.Image) (domain.BoardingPassData, error) {
	args := m.Called(ctx, image)
	return args.Get(0).(domain.BoardingPassData), args.Error(1)
}

type mockFlights struct{ mock.Mock }

func (m *mockFlights) Lookup(ctx context.Context, q domain.FlightQuery) (domain.FlightLookup, error) {
	args := m.Called(ctx, q)
	return args.Get(0).(domain.FlightLookup), args.Error(1)
}

type mockClassifier struct{ mock.Mock }

func (m *mockClassifier) Classify(ctx context.Context, image domain.Image) (domain.DocumentClassification, error) {
	args := m.Called(ctx, image)
	return args.Get(0).(domain.DocumentClassification), args.Error(1)
}

type fixture struct {
	svc        *Service
	db         *gorm.DB
	clock      *clock.FakeClock
	node       *snowflake.Node
	blob       blob.Store
	ocr        *mockOCR
	flights    *mockFlights
	classifier *mockClassifier
	timeline   timelinedomain.Service
}

func setupService(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(
		&claimdomain.Claim{},
		&claimdomain.Attachment{},
		&timelinedomain.Event{},
		&domain.FlightVerification{},
		&domain.DocumentCheck{},
	))

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC))
	store, err := blob.NewLocalStore(t.TempDir(), 1<<20)
	require.NoError(t, err)

	timeline := timelinesvc.New(timelinesvc.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
		Repo:  timelinerepo.Provide(),
	})

	f := &fixture{
		db:         db,
		clock:      clk,
		node:       node,
		blob:       store,
		ocr:        &mockOCR{},
		flights:    &mockFlights{},
		classifier: &mockClassifier{},
		timeline:   timeline,
	}
	f.svc = New(Params{
		DB:         db,
		Log:        zap.NewNop(),
		GenID:      node,
		Clock:      clk,
		Config:     config.Config{CapabilityTimeout: time.Second, UploadMaxBytes: 1 << 20},
		Repo:       repository.Provide(),
		Claims:     claimrepo.Provide(),
		Timeline:   timeline,
		Blob:       store,
		OCR:        f.ocr,
		Flights:    f.flights,
		Classifier: f.classifier,
	}).(*Service)
	return f
}

func (f *fixture) seedClaim(t *testing.T, category claimdomain.Category) claimdomain.Claim {
	t.Helper()
	now := f.clock.Now()
	claim := claimdomain.Claim{
		ID:              f.node.Generate(),
		ClaimCode:       claimdomain.FormatClaimCode(2025, 1),
		CodeYear:        2025,
		CodeSeq:         1,
		Category:        category,
		IssueType:       "delay",
		Status:          claimdomain.StatusNew,
		CustomerName:    "Faisal",
		Phone:           "0551234567",
		CompanyName:     "Example Air",
		ReferenceNumber: "XA123",
		IncidentDate:    now,
		Description:     "late",
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	require.NoError(t, claimrepo.Provide().Insert(context.Background(), f.db, &claim))
	return claim
}

func strPtr(s string) *string { return &s }

func boardingPass() domain.BoardingPassData {
	departure := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	return domain.BoardingPassData{
		FlightNumber:       strPtr("xa 123"),
		Airline:            strPtr("Example Air"),
		DepartureAirport:   strPtr("ruh"),
		ArrivalAirport:     strPtr("JED"),
		ScheduledDeparture: &departure,
		PassengerName:      strPtr("FAISAL"),
		Confidence:         92,
	}
}

func (f *fixture) events(t *testing.T, claimID snowflake.ID) []timelinedomain.Event {
	t.Helper()
	events, err := f.timeline.List(context.Background(), claimID)
	require.NoError(t, err)
	return events
}

func TestUploadBoardingPassRejectsDeliveryClaim(t *testing.T) {
	f := setupService(t)
	claim := f.seedClaim(t, claimdomain.CategoryDelivery)

	_, err := f.svc.UploadBoardingPass(context.Background(), domain.UploadBoardingPassRequest{
		ClaimID:  claim.ID,
		FileName: "pass.png",
		Content:  bytes.NewReader([]byte("img")),
	})
	assert.ErrorIs(t, err, claimdomain.ErrInvalidCategory)

	v, err := f.svc.Get(context.Background(), claim.ID)
	require.NoError(t, err)
	assert.Nil(t, v)
	f.ocr.AssertNotCalled(t, "ExtractBoardingPass", mock.Anything, mock.Anything)
}

func TestUploadBoardingPassUpsertsPending(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()
	claim := f.seedClaim(t, claimdomain.CategoryFlight)

	f.ocr.On("ExtractBoardingPass", mock.Anything, domain.Image{Bytes: []byte("img-1"), MimeType: "image/png"}).
		Return(boardingPass(), nil).Once()
	res, err := f.svc.UploadBoardingPass(ctx, domain.UploadBoardingPassRequest{
		ClaimID:  claim.ID,
		FileName: "pass.png",
		Content:  bytes.NewReader([]byte("img-1")),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, res.Verification.VerificationStatus)
	assert.Equal(t, "XA123", *res.Verification.FlightNumber)
	assert.Equal(t, "RUH", *res.Verification.DepartureAirport)
	assert.Equal(t, 92, res.Verification.OCRConfidence)
	assert.Equal(t, "image/png", res.Attachment.MimeType)

	f.ocr.On("ExtractBoardingPass", mock.Anything, mock.Anything).
		Return(domain.BoardingPassData{}, nil).Once()
	res2, err := f.svc.UploadBoardingPass(ctx, domain.UploadBoardingPassRequest{
		ClaimID:  claim.ID,
		FileName: "blurry.jpg",
		Content:  bytes.NewReader([]byte("img-2")),
	})
	require.NoError(t, err)
	assert.Equal(t, res.Verification.ID, res2.Verification.ID)
	assert.Nil(t, res2.Verification.FlightNumber)
	assert.Equal(t, 0, res2.Verification.OCRConfidence)

	var count int64
	require.NoError(t, f.db.Model(&domain.FlightVerification{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
	require.NoError(t, f.db.Model(&claimdomain.Attachment{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)

	events := f.events(t, claim.ID)
	require.Len(t, events, 2)
	assert.Equal(t, "Boarding pass uploaded and read: flight not identified", events[0].Message)
	assert.Equal(t, "Boarding pass uploaded and read: flight XA123", events[1].Message)
}

func TestUploadBoardingPassOCRFailure(t *testing.T) {
	f := setupService(t)
	claim := f.seedClaim(t, claimdomain.CategoryFlight)

	f.ocr.On("ExtractBoardingPass", mock.Anything, mock.Anything).
		Return(domain.BoardingPassData{}, errors.New("upstream 500")).Once()
	_, err := f.svc.UploadBoardingPass(context.Background(), domain.UploadBoardingPassRequest{
		ClaimID:  claim.ID,
		FileName: "pass.png",
		Content:  bytes.NewReader([]byte("img")),
	})
	assert.ErrorIs(t, err, claimdomain.ErrExternalCapability)

	v, err := f.svc.Get(context.Background(), claim.ID)
	require.NoError(t, err)
	assert.Nil(t, v)

	events := f.events(t, claim.ID)
	require.Len(t, events, 1)
	assert.Equal(t, timelinedomain.TypeVerification, events[0].Type)
	assert.Equal(t, "Boarding pass could not be read", events[0].Message)
}

func TestVerifyFlightRequiresBoardingPass(t *testing.T) {
	f := setupService(t)
	claim := f.seedClaim(t, claimdomain.CategoryFlight)

	_, err := f.svc.VerifyFlight(context.Background(), claim.ID)
	assert.ErrorIs(t, err, claimdomain.ErrMissingPrerequisite)
	f.flights.AssertNotCalled(t, "Lookup", mock.Anything, mock.Anything)
}

func TestVerifyFlightRecordsDelay(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()
	claim := f.seedClaim(t, claimdomain.CategoryFlight)

	f.ocr.On("ExtractBoardingPass", mock.Anything, mock.Anything).Return(boardingPass(), nil).Once()
	_, err := f.svc.UploadBoardingPass(ctx, domain.UploadBoardingPassRequest{
		ClaimID:  claim.ID,
		FileName: "pass.png",
		Content:  bytes.NewReader([]byte("img")),
	})
	require.NoError(t, err)

	scheduled := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	actual := scheduled.Add(200 * time.Minute)
	f.flights.On("Lookup", mock.Anything, domain.FlightQuery{
		FlightNumber:     "XA123",
		ScheduledDate:    scheduled,
		DepartureAirport: "RUH",
	}).Return(domain.FlightLookup{
		Found:              true,
		StatusText:         "Departed",
		ScheduledDeparture: &scheduled,
		ActualDeparture:    &actual,
		Source:             "aerodatabox",
		Raw:                map[string]any{"status": "Departed"},
	}, nil).Once()

	v, err := f.svc.VerifyFlight(ctx, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusVerified, v.VerificationStatus)
	assert.Equal(t, domain.FlightDelayed, v.FlightStatus)
	require.NotNil(t, v.DelayMinutes)
	assert.Equal(t, 200, *v.DelayMinutes)

	facts, err := f.svc.VerifiedFlightFacts(ctx, claim.ID)
	require.NoError(t, err)
	require.NotNil(t, facts)
	assert.False(t, facts.Cancelled)
	assert.Equal(t, 200, *facts.DelayMinutes)

	events := f.events(t, claim.ID)
	assert.Equal(t, "Verified: flight XA123 departed 200 minutes late", events[0].Message)
}

func TestVerifyFlightToleratesProviderFailure(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()
	claim := f.seedClaim(t, claimdomain.CategoryFlight)

	f.ocr.On("ExtractBoardingPass", mock.Anything, mock.Anything).Return(boardingPass(), nil).Once()
	_, err := f.svc.UploadBoardingPass(ctx, domain.UploadBoardingPassRequest{
		ClaimID:  claim.ID,
		FileName: "pass.png",
		Content:  bytes.NewReader([]byte("img")),
	})
	require.NoError(t, err)

	f.flights.On("Lookup", mock.Anything, mock.Anything).
		Return(domain.FlightLookup{}, errors.New("dial tcp: connection refused")).Once()

	v, err := f.svc.VerifyFlight(ctx, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusError, v.VerificationStatus)
	assert.Equal(t, domain.FlightUnknown, v.FlightStatus)
	assert.Equal(t, "dial tcp: connection refused", v.RawPayload["error"])

	facts, err := f.svc.VerifiedFlightFacts(ctx, claim.ID)
	require.NoError(t, err)
	assert.Nil(t, facts)

	events := f.events(t, claim.ID)
	require.Len(t, events, 2)
	assert.Equal(t, "Could not verify the status of flight XA123", events[0].Message)
}

func TestVerifyDocumentsIsolatesFailures(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()
	claim := f.seedClaim(t, claimdomain.CategoryFlight)
	repo := claimrepo.Provide()

	attach := func(name, mimeType, content string) claimdomain.Attachment {
		key, size, err := f.blob.Put(ctx, name, bytes.NewReader([]byte(content)))
		require.NoError(t, err)
		att := claimdomain.Attachment{
			ID:         f.node.Generate(),
			ClaimID:    claim.ID,
			FileName:   name,
			StorageKey: key,
			MimeType:   mimeType,
			SizeBytes:  size,
			UploadedAt: f.clock.Now(),
		}
		require.NoError(t, repo.InsertAttachment(ctx, f.db, &att))
		return att
	}
	good := attach("ticket.png", "image/png", "good")
	bad := attach("receipt.jpg", "image/jpeg", "bad")
	attach("notes.pdf", "application/pdf", "pdf")

	f.classifier.On("Classify", mock.Anything, domain.Image{Bytes: []byte("good"), MimeType: "image/png"}).
		Return(domain.DocumentClassification{
			DocumentType:    domain.DocumentTicket,
			IsRelevant:      true,
			ExtractedFields: map[string]any{"flightNumber": "XA123"},
			Notes:           "matches the claim",
			Confidence:      88,
		}, nil)
	f.classifier.On("Classify", mock.Anything, domain.Image{Bytes: []byte("bad"), MimeType: "image/jpeg"}).
		Return(domain.DocumentClassification{}, errors.New("model overloaded"))

	checks, err := f.svc.VerifyDocuments(ctx, domain.VerifyDocumentsRequest{ClaimID: claim.ID})
	require.NoError(t, err)
	require.Len(t, checks, 2)

	byAttachment := map[snowflake.ID]domain.DocumentCheck{}
	for _, c := range checks {
		byAttachment[c.AttachmentID] = c
	}
	assert.Equal(t, domain.DocumentTicket, byAttachment[good.ID].DocumentType)
	assert.Equal(t, 88, byAttachment[good.ID].Confidence)
	assert.False(t, byAttachment[good.ID].Failed)
	assert.True(t, byAttachment[bad.ID].Failed)
	assert.Equal(t, 0, byAttachment[bad.ID].Confidence)
	assert.Equal(t, domain.DocumentUnknown, byAttachment[bad.ID].DocumentType)

	stored, err := f.svc.ListDocumentChecks(ctx, claim.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	// re-running replaces rather than duplicates
	_, err = f.svc.VerifyDocuments(ctx, domain.VerifyDocumentsRequest{ClaimID: claim.ID, AttachmentIDs: []snowflake.ID{good.ID}})
	require.NoError(t, err)
	stored, err = f.svc.ListDocumentChecks(ctx, claim.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	events := f.events(t, claim.ID)
	require.Len(t, events, 2)
	assert.Equal(t, "Verified 2 document(s), 1 failed", events[1].Message)
}

func TestVerifyDocumentsNeedsImages(t *testing.T) {
	f := setupService(t)
	claim := f.seedClaim(t, claimdomain.CategoryFlight)

	_, err := f.svc.VerifyDocuments(context.Background(), domain.VerifyDocumentsRequest{ClaimID: claim.ID})
	assert.ErrorIs(t, err, claimdomain.ErrMissingPrerequisite)

	_, err = f.svc.VerifyDocuments(context.Background(), domain.VerifyDocumentsRequest{ClaimID: snowflake.ID(1)})
	assert.ErrorIs(t, err, claimdomain.ErrNotFound)
}

// stalledStore accepts writes but never answers a read before the caller gives up.
type stalledStore struct{ blob.Store }

func (stalledStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestVerifyDocumentsTimesOutSlowBlobRead(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()
	claim := f.seedClaim(t, claimdomain.CategoryFlight)

	key, size, err := f.blob.Put(ctx, "ticket.png", bytes.NewReader([]byte("img")))
	require.NoError(t, err)
	att := claimdomain.Attachment{
		ID:         f.node.Generate(),
		ClaimID:    claim.ID,
		FileName:   "ticket.png",
		StorageKey: key,
		MimeType:   "image/png",
		SizeBytes:  size,
		UploadedAt: f.clock.Now(),
	}
	require.NoError(t, claimrepo.Provide().InsertAttachment(ctx, f.db, &att))

	registry := prometheus.NewRegistry()
	f.svc.capabilities = metrics.NewCapabilityMetrics(registry)
	f.svc.blob = stalledStore{Store: f.blob}
	f.svc.timeout = 20 * time.Millisecond

	checks, err := f.svc.VerifyDocuments(ctx, domain.VerifyDocumentsRequest{ClaimID: claim.ID})
	require.NoError(t, err)
	require.Len(t, checks, 1)
	assert.True(t, checks[0].Failed)
	assert.Equal(t, domain.DocumentUnknown, checks[0].DocumentType)
	assert.Equal(t, []string{"stored file could not be read"}, []string(checks[0].Warnings))
	f.classifier.AssertNotCalled(t, "Classify", mock.Anything, mock.Anything)

	expected := `
# HELP sanad_capability_calls_total External capability calls by capability and outcome.
# TYPE sanad_capability_calls_total counter
sanad_capability_calls_total{capability="blob_store",outcome="timeout"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected), "sanad_capability_calls_total"))
}
