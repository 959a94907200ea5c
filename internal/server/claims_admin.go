package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	caseaidomain "github.com/smallbiznis/sanad/internal/caseai/domain"
	claimdomain "github.com/smallbiznis/sanad/internal/claim/domain"
	"github.com/smallbiznis/sanad/internal/observability/logger"
	"github.com/smallbiznis/sanad/internal/providers/pdf"
	timelinedomain "github.com/smallbiznis/sanad/internal/timeline/domain"
	verificationdomain "github.com/smallbiznis/sanad/internal/verification/domain"
	"github.com/smallbiznis/sanad/pkg/db/pagination"
	"go.uber.org/zap"
)

func (s *Server) ListClaims(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Status   string `form:"status"`
		Category string `form:"category"`
		Search   string `form:"q"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.claimSvc.List(c.Request.Context(), claimdomain.ListClaimRequest{
		Pagination: query.Pagination,
		Status:     strings.TrimSpace(query.Status),
		Category:   strings.TrimSpace(query.Category),
		Search:     strings.TrimSpace(query.Search),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type claimDetail struct {
	Claim          claimdomain.Claim                      `json:"claim"`
	Attachments    []claimdomain.Attachment               `json:"attachments"`
	Timeline       []timelinedomain.Event                 `json:"timeline"`
	Communications []claimdomain.Communication            `json:"communications"`
	Settlement     *claimdomain.Settlement                `json:"settlement"`
	Verification   *verificationdomain.FlightVerification `json:"flight_verification"`
	DocumentChecks []verificationdomain.DocumentCheck     `json:"document_checks"`
	AIOutput       *caseaidomain.AiOutput                 `json:"ai_output"`
	Eligibility    *claimdomain.EligibilityView           `json:"eligibility"`
}

// GetClaimDetail aggregates everything staff see on one claim page.
func (s *Server) GetClaimDetail(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	ctx := c.Request.Context()

	claim, err := s.claimSvc.Get(ctx, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	detail := claimDetail{Claim: claim}
	if detail.Attachments, err = s.claimSvc.ListAttachments(ctx, id); err != nil {
		AbortWithError(c, err)
		return
	}
	if detail.Timeline, err = s.timelineSvc.List(ctx, id); err != nil {
		AbortWithError(c, err)
		return
	}
	if detail.Communications, err = s.claimSvc.ListCommunications(ctx, id); err != nil {
		AbortWithError(c, err)
		return
	}
	if detail.Settlement, err = s.claimSvc.GetSettlement(ctx, id); err != nil {
		AbortWithError(c, err)
		return
	}
	if detail.Verification, err = s.verificationSvc.Get(ctx, id); err != nil {
		AbortWithError(c, err)
		return
	}
	if detail.DocumentChecks, err = s.verificationSvc.ListDocumentChecks(ctx, id); err != nil {
		AbortWithError(c, err)
		return
	}
	if detail.AIOutput, err = s.caseaiSvc.Get(ctx, id); err != nil {
		AbortWithError(c, err)
		return
	}

	// A failing rate source must not hide the rest of the claim.
	if view, err := s.claimSvc.Eligibility(ctx, id); err != nil {
		logger.FromContext(ctx).Warn("eligibility unavailable for claim detail",
			zap.String("claim_id", id.String()),
			zap.Error(err),
		)
	} else {
		detail.Eligibility = &view
	}

	c.JSON(http.StatusOK, gin.H{"data": detail})
}

type updateClaimRequest struct {
	IssueType       *string  `json:"issue_type"`
	CustomerName    *string  `json:"customer_name"`
	Phone           *string  `json:"phone"`
	Email           *string  `json:"email"`
	CompanyName     *string  `json:"company_name"`
	ReferenceNumber *string  `json:"reference_number"`
	IncidentDate    *string  `json:"incident_date"`
	Description     *string  `json:"description"`
	FlightFrom      *string  `json:"flight_from"`
	FlightTo        *string  `json:"flight_to"`
	ScheduledTime   *string  `json:"scheduled_time"`
	DelayHours      *float64 `json:"delay_hours"`
	InternalNotes   *string  `json:"internal_notes"`
	DraftText       *string  `json:"draft_text"`
	Status          *string  `json:"status"`
}

func (s *Server) UpdateClaim(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req updateClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.Status != nil {
		AbortWithError(c, newValidationError("status", "invalid_status", "status changes go through the transition endpoint"))
		return
	}

	claim, err := s.claimSvc.Update(c.Request.Context(), id, claimdomain.UpdateClaimRequest{
		IssueType:       req.IssueType,
		CustomerName:    req.CustomerName,
		Phone:           req.Phone,
		Email:           req.Email,
		CompanyName:     req.CompanyName,
		ReferenceNumber: req.ReferenceNumber,
		IncidentDate:    req.IncidentDate,
		Description:     req.Description,
		FlightFrom:      req.FlightFrom,
		FlightTo:        req.FlightTo,
		ScheduledTime:   req.ScheduledTime,
		DelayHours:      req.DelayHours,
		InternalNotes:   req.InternalNotes,
		DraftText:       req.DraftText,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": claim})
}

type transitionClaimRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

func (s *Server) TransitionClaim(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req transitionClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	claim, err := s.claimSvc.Transition(c.Request.Context(), claimdomain.TransitionRequest{
		ClaimID: id,
		To:      req.Status,
		Note:    req.Note,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": claim})
}

type addNoteRequest struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (s *Server) AddNote(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req addNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	event, err := s.claimSvc.AddNote(c.Request.Context(), claimdomain.AddNoteRequest{
		ClaimID: id,
		Type:    req.Type,
		Message: req.Message,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": event})
}

func (s *Server) ListTimeline(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if _, err := s.claimSvc.Get(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	events, err := s.timelineSvc.List(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": events})
}

func (s *Server) UploadAttachment(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	attachment, err := s.storeUpload(c, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": attachment})
}

func (s *Server) DownloadAttachment(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	attachmentID, err := parseIDParam(c, "attachmentId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	attachment, rc, err := s.claimSvc.OpenAttachment(c.Request.Context(), id, attachmentID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	defer rc.Close()

	c.Header("Content-Disposition", "attachment; filename="+strconv.Quote(attachment.FileName))
	c.DataFromReader(http.StatusOK, attachment.SizeBytes, attachment.MimeType, rc, nil)
}

func (s *Server) ListCommunications(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	items, err := s.claimSvc.ListCommunications(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

type recordCommunicationRequest struct {
	Method    string `json:"method"`
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	SentAt    string `json:"sent_at"`
}

func (s *Server) RecordCommunication(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req recordCommunicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	sentAt, err := parseOptionalTime("sent_at", req.SentAt)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	comm, err := s.claimSvc.RecordCommunication(c.Request.Context(), claimdomain.RecordCommunicationRequest{
		ClaimID:   id,
		Method:    req.Method,
		Recipient: req.Recipient,
		Subject:   req.Subject,
		Body:      req.Body,
		SentAt:    sentAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": comm})
}

type companyResponseRequest struct {
	Response string `json:"response"`
}

func (s *Server) RecordCompanyResponse(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	communicationID, err := parseIDParam(c, "communicationId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req companyResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	comm, err := s.claimSvc.RecordCompanyResponse(c.Request.Context(), claimdomain.RecordCompanyResponseRequest{
		ClaimID:         id,
		CommunicationID: communicationID,
		Response:        req.Response,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": comm})
}

func (s *Server) GetSettlement(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	settlement, err := s.claimSvc.GetSettlement(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if settlement == nil {
		AbortWithError(c, claimdomain.ErrNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": settlement})
}

type createSettlementRequest struct {
	CompensationType   string  `json:"compensation_type"`
	CompensationAmount int64   `json:"compensation_amount"`
	FeePercentage      float64 `json:"fee_percentage"`
	Currency           string  `json:"currency"`
}

func (s *Server) CreateSettlement(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req createSettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	settlement, err := s.claimSvc.CreateSettlement(c.Request.Context(), claimdomain.CreateSettlementRequest{
		ClaimID:            id,
		CompensationType:   req.CompensationType,
		CompensationAmount: req.CompensationAmount,
		FeePercentage:      req.FeePercentage,
		Currency:           req.Currency,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": settlement})
}

func (s *Server) RenderSettlementStatement(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	ctx := c.Request.Context()

	claim, err := s.claimSvc.Get(ctx, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	settlement, err := s.claimSvc.GetSettlement(ctx, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	data, err := pdf.NewStatement(claim, settlement, s.clock.Now())
	if err != nil {
		if errors.Is(err, pdf.ErrNotSettled) {
			AbortWithError(c, claimdomain.ErrMissingPrerequisite)
			return
		}
		AbortWithError(c, err)
		return
	}

	out, err := s.pdf.SettlementStatement(ctx, data)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", "inline; filename="+strconv.Quote(claim.ClaimCode+"-settlement.pdf"))
	c.Data(http.StatusOK, "application/pdf", out)
}

func (s *Server) GetEligibility(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	view, err := s.claimSvc.Eligibility(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": view})
}
