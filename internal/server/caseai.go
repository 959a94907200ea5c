package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	caseaidomain "github.com/smallbiznis/sanad/internal/caseai/domain"
	claimdomain "github.com/smallbiznis/sanad/internal/claim/domain"
)

type runCaseAnalysisRequest struct {
	Mode                string                  `json:"mode"`
	ClaimData           *caseaidomain.ClaimData `json:"claim_data"`
	EvidenceText        string                  `json:"evidence_text"`
	AirlineResponseText string                  `json:"airline_response_text"`
}

func (s *Server) RunCaseAnalysis(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req runCaseAnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.caseaiSvc.Run(c.Request.Context(), caseaidomain.RunRequest{
		ClaimID:             id,
		Mode:                req.Mode,
		Claim:               req.ClaimData,
		EvidenceText:        req.EvidenceText,
		AirlineResponseText: req.AirlineResponseText,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) GetCaseAnalysis(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	output, err := s.caseaiSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if output == nil {
		AbortWithError(c, claimdomain.ErrNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": output})
}
