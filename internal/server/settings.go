package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) GetConversionRate(c *gin.Context) {
	rate, err := s.settingsSvc.GetConversionRate(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rate})
}

type updateConversionRateRequest struct {
	Rate float64 `json:"rate"`
}

func (s *Server) UpdateConversionRate(c *gin.Context) {
	var req updateConversionRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	rate, err := s.settingsSvc.UpdateConversionRate(c.Request.Context(), req.Rate)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rate})
}
