package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	verificationdomain "github.com/smallbiznis/sanad/internal/verification/domain"
)

func (s *Server) GetVerification(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if _, err := s.claimSvc.Get(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	v, err := s.verificationSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": v})
}

func (s *Server) UploadBoardingPass(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		AbortWithError(c, newValidationError("file", "required", "file is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	defer file.Close()

	result, err := s.verificationSvc.UploadBoardingPass(c.Request.Context(), verificationdomain.UploadBoardingPassRequest{
		ClaimID:  id,
		FileName: header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Content:  file,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) VerifyFlight(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	v, err := s.verificationSvc.VerifyFlight(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": v})
}

func (s *Server) ListDocumentChecks(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	checks, err := s.verificationSvc.ListDocumentChecks(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": checks})
}

type verifyDocumentsRequest struct {
	AttachmentIDs []string `json:"attachment_ids"`
}

func (s *Server) VerifyDocuments(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req verifyDocumentsRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}
	attachmentIDs, err := parseSnowflakeIDs("attachment_ids", req.AttachmentIDs)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	checks, err := s.verificationSvc.VerifyDocuments(c.Request.Context(), verificationdomain.VerifyDocumentsRequest{
		ClaimID:       id,
		AttachmentIDs: attachmentIDs,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": checks})
}
