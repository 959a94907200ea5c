package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/sanad/internal/claim/domain"
	"github.com/smallbiznis/sanad/internal/claim/repository"
	"github.com/smallbiznis/sanad/internal/clock"
	"github.com/smallbiznis/sanad/internal/config"
	"github.com/smallbiznis/sanad/internal/eligibility"
	"github.com/smallbiznis/sanad/internal/lock"
	"github.com/smallbiznis/sanad/internal/providers/blob"
	timelinedomain "github.com/smallbiznis/sanad/internal/timeline/domain"
	timelinerepo "github.com/smallbiznis/sanad/internal/timeline/repository"
	timelinesvc "github.com/smallbiznis/sanad/internal/timeline/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type stubRates struct {
	mu   sync.Mutex
	rate float64
}

func (s *stubRates) ConversionRate(context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rate, nil
}

func (s *stubRates) set(rate float64) {
	s.mu.Lock()
	s.rate = rate
	s.mu.Unlock()
}

type stubFacts struct {
	facts map[snowflake.ID]*domain.FlightFacts
}

func (s *stubFacts) VerifiedFlightFacts(_ context.Context, claimID snowflake.ID) (*domain.FlightFacts, error) {
	return s.facts[claimID], nil
}

type mockEmail struct {
	mock.Mock
}

func (m *mockEmail) Send(ctx context.Context, to []string, subject string, body string) error {
	args := m.Called(ctx, to, subject, body)
	return args.Error(0)
}

func (m *mockEmail) Configured() bool { return true }

type fixture struct {
	svc      *Service
	db       *gorm.DB
	clock    *clock.FakeClock
	rates    *stubRates
	facts    *stubFacts
	timeline timelinedomain.Service
}

type fixtureOption func(*Params)

func setupService(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&domain.Claim{},
		&domain.Attachment{},
		&domain.Communication{},
		&domain.Settlement{},
		&timelinedomain.Event{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	timeline := timelinesvc.New(timelinesvc.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Clock: clk,
		Repo:  timelinerepo.Provide(),
	})

	rates := &stubRates{rate: 5.1}
	holder := config.NewStaticCompensationConfigHolder(config.DefaultCompensationConfig())
	calc := eligibility.NewCalculator(eligibility.Params{Log: log, Rates: rates, Config: holder})

	store, err := blob.NewLocalStore(t.TempDir(), 1<<20)
	require.NoError(t, err)
	facts := &stubFacts{facts: map[snowflake.ID]*domain.FlightFacts{}}

	p := Params{
		DB:           db,
		Log:          log,
		GenID:        node,
		Clock:        clk,
		Repo:         repository.Provide(),
		Timeline:     timeline,
		Calculator:   calc,
		Compensation: holder,
		Blob:         store,
		Verifier:     NewPhoneOwnershipVerifier(),
		Facts:        facts,
		Locker:       lock.NewLocalLocker(),
	}
	for _, opt := range opts {
		opt(&p)
	}

	return &fixture{
		svc:      New(p).(*Service),
		db:       db,
		clock:    clk,
		rates:    rates,
		facts:    facts,
		timeline: timeline,
	}
}

func delayClaim(hours float64) domain.CreateClaimRequest {
	return domain.CreateClaimRequest{
		Category:        "flight",
		IssueType:       "delay",
		CustomerName:    "Noura Saleh",
		Phone:           "0551234567",
		Email:           "noura@example.com",
		CompanyName:     "Example Air",
		ReferenceNumber: "XA123",
		IncidentDate:    "2025-03-01",
		Description:     "Flight left seven hours late.",
		FlightFrom:      "RUH",
		FlightTo:        "JED",
		ScheduledTime:   "2025-03-01T09:30",
		DelayHours:      &hours,
	}
}

func TestCreateIssuesSequentialCodesAndQuote(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	var codes []string
	for i := 0; i < 3; i++ {
		claim, err := f.svc.Create(ctx, delayClaim(7))
		require.NoError(t, err)
		codes = append(codes, claim.ClaimCode)

		assert.Equal(t, domain.StatusNew, claim.Status)
		assert.Equal(t, "eligible", claim.EligibilityStatus)
		assert.Equal(t, int64(150), claim.EstimatedSDR)
		assert.Equal(t, int64(765), claim.EstimatedLocal)
		assert.Equal(t, "SAR", claim.QuoteCurrency)
	}
	assert.Equal(t, []string{"SAN-2025-00001", "SAN-2025-00002", "SAN-2025-00003"}, codes)

	stored, err := f.svc.repo.FindByCode(ctx, f.db, "SAN-2025-00002")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "RUH", *stored.FlightFrom)

	events, err := f.timeline.List(ctx, stored.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, timelinedomain.TypeCreation, events[0].Type)
}

func TestCreateCodesRestartEachYear(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, delayClaim(1))
	require.NoError(t, err)
	f.clock.Advance(365 * 24 * time.Hour)

	claim, err := f.svc.Create(ctx, delayClaim(1))
	require.NoError(t, err)
	assert.Equal(t, "SAN-2026-00001", claim.ClaimCode)
}

func TestCreateConcurrentCodesAreUnique(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	const n = 8
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		codes = map[string]struct{}{}
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			claim, err := f.svc.Create(ctx, delayClaim(2))
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			codes[claim.ClaimCode] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, codes, n)
	for code := range codes {
		year, seq, ok := domain.ParseClaimCode(code)
		assert.True(t, ok, code)
		assert.Equal(t, 2025, year)
		assert.True(t, seq >= 1 && seq <= n, code)
	}
}

func TestCreateValidation(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	req := delayClaim(3)
	req.Category = "train"
	req.Phone = "12345"
	req.CustomerName = " "
	req.IncidentDate = "yesterday"

	_, err := f.svc.Create(ctx, req)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)

	var fields domain.ValidationErrors
	require.True(t, errors.As(err, &fields))
	names := make([]string, 0, len(fields))
	for _, fe := range fields {
		names = append(names, fe.Field)
	}
	assert.ElementsMatch(t, []string{"category", "customer_name", "phone", "incident_date"}, names)

	var count int64
	require.NoError(t, f.db.Model(&domain.Claim{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestListFiltersAndPaginates(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		req := delayClaim(4)
		req.CompanyName = fmt.Sprintf("Carrier %d", i)
		if i == 4 {
			req.Category = "delivery"
			req.CompanyName = "Fast Parcel"
		}
		_, err := f.svc.Create(ctx, req)
		require.NoError(t, err)
		f.clock.Advance(time.Minute)
	}

	first, err := f.svc.List(ctx, domain.ListClaimRequest{Category: "flight"})
	require.NoError(t, err)
	require.Len(t, first.Claims, 4)
	assert.Equal(t, "Carrier 3", first.Claims[0].CompanyName)

	page1, err := f.svc.List(ctx, domain.ListClaimRequest{})
	require.NoError(t, err)
	assert.Len(t, page1.Claims, 5)
	assert.False(t, page1.HasMore)

	search, err := f.svc.List(ctx, domain.ListClaimRequest{Search: "fast"})
	require.NoError(t, err)
	require.Len(t, search.Claims, 1)
	assert.Equal(t, domain.CategoryDelivery, search.Claims[0].Category)

	_, err = f.svc.List(ctx, domain.ListClaimRequest{Status: "bogus"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestListCursorPages(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.svc.Create(ctx, delayClaim(4))
		require.NoError(t, err)
		f.clock.Advance(time.Minute)
	}

	req := domain.ListClaimRequest{}
	req.PageSize = 2
	page1, err := f.svc.List(ctx, req)
	require.NoError(t, err)
	require.Len(t, page1.Claims, 2)
	require.True(t, page1.HasMore)
	assert.Equal(t, "SAN-2025-00003", page1.Claims[0].ClaimCode)

	req.PageToken = page1.NextPageToken
	page2, err := f.svc.List(ctx, req)
	require.NoError(t, err)
	require.Len(t, page2.Claims, 1)
	assert.False(t, page2.HasMore)
	assert.Equal(t, "SAN-2025-00001", page2.Claims[0].ClaimCode)
}

func TestUpdateRequotesAndKeepsStatus(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	claim, err := f.svc.Create(ctx, delayClaim(2))
	require.NoError(t, err)
	assert.Equal(t, "not_eligible", claim.EligibilityStatus)

	hours := 4.0
	notes := "called the airline"
	updated, err := f.svc.Update(ctx, claim.ID, domain.UpdateClaimRequest{DelayHours: &hours, InternalNotes: &notes})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNew, updated.Status)
	assert.Equal(t, "eligible", updated.EligibilityStatus)
	assert.Equal(t, int64(50), updated.EstimatedSDR)
	assert.Equal(t, notes, updated.InternalNotes)

	empty := ""
	_, err = f.svc.Update(ctx, claim.ID, domain.UpdateClaimRequest{CompanyName: &empty})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.svc.Update(ctx, snowflake.ID(99), domain.UpdateClaimRequest{InternalNotes: &notes})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTransitionAppendsStatusChange(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	claim, err := f.svc.Create(ctx, delayClaim(7))
	require.NoError(t, err)

	moved, err := f.svc.Transition(ctx, domain.TransitionRequest{ClaimID: claim.ID, To: "processing", Note: "documents look complete"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInReview, moved.Status)

	moved, err = f.svc.Transition(ctx, domain.TransitionRequest{ClaimID: claim.ID, To: "submitted"})
	require.NoError(t, err)
	require.NotNil(t, moved.SubmittedAt)

	events, err := f.timeline.List(ctx, claim.ID)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, timelinedomain.TypeStatusChange, events[0].Type)
	assert.Equal(t, "Status changed from in_review to submitted", events[0].Message)
	assert.Equal(t, "Status changed from new to in_review: documents look complete", events[1].Message)
}

func TestTransitionRejectsIllegalEdge(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	claim, err := f.svc.Create(ctx, delayClaim(7))
	require.NoError(t, err)

	_, err = f.svc.Transition(ctx, domain.TransitionRequest{ClaimID: claim.ID, To: "resolved"})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = f.svc.Transition(ctx, domain.TransitionRequest{ClaimID: claim.ID, To: "archived"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.svc.Transition(ctx, domain.TransitionRequest{ClaimID: snowflake.ID(7), To: "in_review"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	current, err := f.svc.Get(ctx, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNew, current.Status)

	events, err := f.timeline.List(ctx, claim.ID)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestSettlementForcesResolvedOnce(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	claim, err := f.svc.Create(ctx, delayClaim(7))
	require.NoError(t, err)

	settlement, err := f.svc.CreateSettlement(ctx, domain.CreateSettlementRequest{
		ClaimID:            claim.ID,
		CompensationType:   "cash",
		CompensationAmount: 76500,
		FeePercentage:      20,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(61200), settlement.NetAmount)
	assert.Equal(t, "SAR", settlement.Currency)

	settled, err := f.svc.Get(ctx, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusResolved, settled.Status)

	_, err = f.svc.CreateSettlement(ctx, domain.CreateSettlementRequest{
		ClaimID:            claim.ID,
		CompensationType:   "voucher",
		CompensationAmount: 100,
	})
	assert.ErrorIs(t, err, domain.ErrConflict)

	stored, err := f.svc.GetSettlement(ctx, claim.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, settlement.ID, stored.ID)
	assert.Equal(t, domain.CompensationCash, stored.CompensationType)

	events, err := f.timeline.List(ctx, claim.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, timelinedomain.TypeSettlement, events[0].Type)
}

func TestSettlementValidation(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	claim, err := f.svc.Create(ctx, delayClaim(7))
	require.NoError(t, err)

	_, err = f.svc.CreateSettlement(ctx, domain.CreateSettlementRequest{
		ClaimID:            claim.ID,
		CompensationType:   "crypto",
		CompensationAmount: 0,
		FeePercentage:      120,
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	current, err := f.svc.Get(ctx, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNew, current.Status)
}

func TestNetAmount(t *testing.T) {
	assert.Equal(t, int64(1000), NetAmount(1000, 0))
	assert.Equal(t, int64(850), NetAmount(1000, 15))
	assert.Equal(t, int64(0), NetAmount(1000, 100))
	assert.Equal(t, int64(666), NetAmount(999, 33.3))
}

func TestEligibilityLiveThenFrozen(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	claim, err := f.svc.Create(ctx, delayClaim(7))
	require.NoError(t, err)

	f.rates.set(6)
	view, err := f.svc.Eligibility(ctx, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BasisIntake, view.Basis)
	assert.Equal(t, int64(900), view.Quote.LocalAmount)

	_, err = f.svc.Transition(ctx, domain.TransitionRequest{ClaimID: claim.ID, To: "rejected"})
	require.NoError(t, err)

	f.rates.set(7)
	view, err = f.svc.Eligibility(ctx, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BasisFrozen, view.Basis)
	assert.Equal(t, int64(900), view.Quote.LocalAmount)
	assert.Equal(t, 6.0, view.Quote.ConversionRate)
}

func TestEligibilityPrefersVerifiedFlightFacts(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	claim, err := f.svc.Create(ctx, delayClaim(1))
	require.NoError(t, err)

	minutes := 250
	f.facts.facts[claim.ID] = &domain.FlightFacts{DelayMinutes: &minutes}
	view, err := f.svc.Eligibility(ctx, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BasisVerifiedFlight, view.Basis)
	assert.Equal(t, int64(50), view.Quote.SDRAmount)

	f.facts.facts[claim.ID] = &domain.FlightFacts{Cancelled: true}
	view, err = f.svc.Eligibility(ctx, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(150), view.Quote.SDRAmount)
	assert.Equal(t, eligibility.StatusEligible, view.Quote.Status)
}

func TestTrackRequiresMatchingPhone(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	claim, err := f.svc.Create(ctx, delayClaim(7))
	require.NoError(t, err)
	notes := "staff only"
	_, err = f.svc.Update(ctx, claim.ID, domain.UpdateClaimRequest{InternalNotes: &notes})
	require.NoError(t, err)

	resp, err := f.svc.Track(ctx, domain.TrackRequest{ClaimCode: strings.ToLower(claim.ClaimCode), Phone: "055 123 4567"})
	require.NoError(t, err)
	assert.Equal(t, claim.ID, resp.Claim.ID)
	assert.Empty(t, resp.Claim.InternalNotes)
	assert.Len(t, resp.Timeline, 2)

	_, err = f.svc.Track(ctx, domain.TrackRequest{ClaimCode: claim.ClaimCode, Phone: "0559999999"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.Track(ctx, domain.TrackRequest{ClaimCode: "SAN-2025-09999", Phone: "0551234567"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestHistory(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	first, err := f.svc.Create(ctx, delayClaim(7))
	require.NoError(t, err)
	f.clock.Advance(time.Hour)
	_, err = f.svc.Create(ctx, delayClaim(2))
	require.NoError(t, err)
	other := delayClaim(2)
	other.Phone = "0500000000"
	_, err = f.svc.Create(ctx, other)
	require.NoError(t, err)

	claims, err := f.svc.History(ctx, domain.HistoryRequest{Phone: "0551234567", VerifyClaimCode: first.ClaimCode})
	require.NoError(t, err)
	require.Len(t, claims, 2)
	assert.Equal(t, "SAN-2025-00002", claims[0].ClaimCode)

	_, err = f.svc.History(ctx, domain.HistoryRequest{Phone: "0500000000", VerifyClaimCode: first.ClaimCode})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.svc.History(ctx, domain.HistoryRequest{Phone: "055", VerifyClaimCode: first.ClaimCode})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestRecordCommunicationSendsEmail(t *testing.T) {
	mailer := &mockEmail{}
	f := setupService(t, func(p *Params) { p.Email = mailer })
	ctx := context.Background()

	claim, err := f.svc.Create(ctx, delayClaim(7))
	require.NoError(t, err)

	mailer.On("Send", mock.Anything, []string{"claims@example.air"}, "Compensation claim SAN-2025-00001", "Please compensate.").
		Return(nil).Once()
	comm, err := f.svc.RecordCommunication(ctx, domain.RecordCommunicationRequest{
		ClaimID:   claim.ID,
		Method:    "email",
		Recipient: "claims@example.air",
		Body:      "Please compensate.",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.DeliverySent, comm.DeliveryStatus)

	mailer.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("relay down")).Once()
	failed, err := f.svc.RecordCommunication(ctx, domain.RecordCommunicationRequest{
		ClaimID:   claim.ID,
		Method:    "email",
		Recipient: "claims@example.air",
		Subject:   "Reminder",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.DeliveryFailed, failed.DeliveryStatus)

	phone, err := f.svc.RecordCommunication(ctx, domain.RecordCommunicationRequest{
		ClaimID:   claim.ID,
		Method:    "phone",
		Recipient: "+966 11 000 0000",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.DeliveryRecorded, phone.DeliveryStatus)
	mailer.AssertExpectations(t)

	comms, err := f.svc.ListCommunications(ctx, claim.ID)
	require.NoError(t, err)
	assert.Len(t, comms, 3)

	events, err := f.timeline.List(ctx, claim.ID)
	require.NoError(t, err)
	assert.Len(t, events, 4)
}

func TestRecordCompanyResponseOnce(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	claim, err := f.svc.Create(ctx, delayClaim(7))
	require.NoError(t, err)
	comm, err := f.svc.RecordCommunication(ctx, domain.RecordCommunicationRequest{
		ClaimID:   claim.ID,
		Method:    "sms",
		Recipient: "0112223333",
	})
	require.NoError(t, err)

	updated, err := f.svc.RecordCompanyResponse(ctx, domain.RecordCompanyResponseRequest{
		ClaimID:         claim.ID,
		CommunicationID: comm.ID,
		Response:        "We will pay 765 SAR.",
	})
	require.NoError(t, err)
	require.NotNil(t, updated.CompanyResponse)
	assert.Equal(t, "We will pay 765 SAR.", *updated.CompanyResponse)

	_, err = f.svc.RecordCompanyResponse(ctx, domain.RecordCompanyResponseRequest{
		ClaimID:         claim.ID,
		CommunicationID: comm.ID,
		Response:        "Changed our mind.",
	})
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = f.svc.RecordCompanyResponse(ctx, domain.RecordCompanyResponseRequest{
		ClaimID:         claim.ID,
		CommunicationID: snowflake.ID(1),
		Response:        "x",
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAddNote(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	claim, err := f.svc.Create(ctx, delayClaim(7))
	require.NoError(t, err)

	event, err := f.svc.AddNote(ctx, domain.AddNoteRequest{ClaimID: claim.ID, Type: "info_request", Message: "Please send the boarding pass."})
	require.NoError(t, err)
	assert.Equal(t, timelinedomain.TypeInfoRequest, event.Type)

	_, err = f.svc.AddNote(ctx, domain.AddNoteRequest{ClaimID: claim.ID, Type: "settlement", Message: "x"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestUploadAndOpenAttachment(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	claim, err := f.svc.Create(ctx, delayClaim(7))
	require.NoError(t, err)

	att, err := f.svc.UploadAttachment(ctx, domain.UploadAttachmentRequest{
		ClaimID:  claim.ID,
		FileName: "boarding pass.png",
		Content:  strings.NewReader("png-bytes"),
	})
	require.NoError(t, err)
	assert.Equal(t, "image/png", att.MimeType)
	assert.Equal(t, int64(9), att.SizeBytes)

	got, rc, err := f.svc.OpenAttachment(ctx, claim.ID, att.ID)
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(body))
	assert.Equal(t, att.StorageKey, got.StorageKey)

	list, err := f.svc.ListAttachments(ctx, claim.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, _, err = f.svc.OpenAttachment(ctx, claim.ID, snowflake.ID(5))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.UploadAttachment(ctx, domain.UploadAttachmentRequest{
		ClaimID:  claim.ID,
		FileName: "huge.pdf",
		Content:  strings.NewReader(strings.Repeat("x", 2<<20)),
	})
	assert.ErrorIs(t, err, domain.ErrValidation)
}
