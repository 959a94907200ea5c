package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	claimdomain "github.com/smallbiznis/sanad/internal/claim/domain"
)

type createClaimRequest struct {
	Category        string `json:"category"`
	IssueType       string `json:"issue_type"`
	CustomerName    string `json:"customer_name"`
	Phone           string `json:"phone"`
	Email           string `json:"email"`
	CompanyName     string `json:"company_name"`
	ReferenceNumber string `json:"reference_number"`
	IncidentDate    string `json:"incident_date"`
	Description     string `json:"description"`

	FlightFrom    string   `json:"flight_from"`
	FlightTo      string   `json:"flight_to"`
	ScheduledTime string   `json:"scheduled_time"`
	DelayHours    *float64 `json:"delay_hours"`

	DeliveryCity string `json:"delivery_city"`
	OrderTime    string `json:"order_time"`
	DeliveryTime string `json:"delivery_time"`
}

func (s *Server) CreateClaim(c *gin.Context) {
	var req createClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	claim, err := s.claimSvc.Create(c.Request.Context(), claimdomain.CreateClaimRequest{
		Category:        req.Category,
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
		DeliveryCity:    req.DeliveryCity,
		OrderTime:       req.OrderTime,
		DeliveryTime:    req.DeliveryTime,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": claim.Public()})
}

type trackClaimRequest struct {
	ClaimCode string `json:"claim_code"`
	Phone     string `json:"phone"`
}

func (s *Server) TrackClaim(c *gin.Context) {
	var req trackClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.claimSvc.Track(c.Request.Context(), claimdomain.TrackRequest{
		ClaimCode: req.ClaimCode,
		Phone:     req.Phone,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type claimHistoryRequest struct {
	Phone           string `json:"phone"`
	VerifyClaimCode string `json:"verify_claim_code"`
}

func (s *Server) ClaimHistory(c *gin.Context) {
	var req claimHistoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	claims, err := s.claimSvc.History(c.Request.Context(), claimdomain.HistoryRequest{
		Phone:           req.Phone,
		VerifyClaimCode: req.VerifyClaimCode,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": claims})
}

// UploadPublicAttachment lets a customer add evidence to their own claim. The
// phone on the form must match the claim, exactly as for tracking.
func (s *Server) UploadPublicAttachment(c *gin.Context) {
	code := strings.TrimSpace(c.Param("code"))
	phone := strings.TrimSpace(c.PostForm("phone"))

	tracked, err := s.claimSvc.Track(c.Request.Context(), claimdomain.TrackRequest{
		ClaimCode: code,
		Phone:     phone,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	attachment, err := s.storeUpload(c, tracked.Claim.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": attachment})
}

func (s *Server) storeUpload(c *gin.Context, claimID snowflake.ID) (claimdomain.Attachment, error) {
	header, err := c.FormFile("file")
	if err != nil {
		return claimdomain.Attachment{}, newValidationError("file", "required", "file is required")
	}
	if s.cfg.UploadMaxBytes > 0 && header.Size > s.cfg.UploadMaxBytes {
		return claimdomain.Attachment{}, claimdomain.Invalid("file", "exceeds the upload size limit")
	}

	file, err := header.Open()
	if err != nil {
		return claimdomain.Attachment{}, invalidRequestError()
	}
	defer file.Close()

	return s.claimSvc.UploadAttachment(c.Request.Context(), claimdomain.UploadAttachmentRequest{
		ClaimID:  claimID,
		FileName: header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Size:     header.Size,
		Content:  file,
	})
}
