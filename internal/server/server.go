package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/sanad/internal/auth"
	authdomain "github.com/smallbiznis/sanad/internal/auth/domain"
	"github.com/smallbiznis/sanad/internal/authorization"
	caseaidomain "github.com/smallbiznis/sanad/internal/caseai/domain"
	claimdomain "github.com/smallbiznis/sanad/internal/claim/domain"
	"github.com/smallbiznis/sanad/internal/clock"
	"github.com/smallbiznis/sanad/internal/config"
	obslogger "github.com/smallbiznis/sanad/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/sanad/internal/observability/metrics"
	obstracing "github.com/smallbiznis/sanad/internal/observability/tracing"
	"github.com/smallbiznis/sanad/internal/providers/pdf"
	"github.com/smallbiznis/sanad/internal/ratelimit"
	settingsdomain "github.com/smallbiznis/sanad/internal/settings/domain"
	timelinedomain "github.com/smallbiznis/sanad/internal/timeline/domain"
	verificationdomain "github.com/smallbiznis/sanad/internal/verification/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	auth.Module,
	authorization.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	if httpMetrics != nil {
		r.Use(httpMetrics.GinMiddleware())
	}
	r.Use(ErrorHandlingMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

type engineParams struct {
	fx.In

	HTTPMetrics *obsmetrics.HTTPMetrics `optional:"true"`
}

func registerGin(p engineParams) *gin.Engine {
	return NewEngine(p.HTTPMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	log             *zap.Logger
	clock           clock.Clock
	authsvc         authdomain.Service
	authzSvc        authorization.Service
	claimSvc        claimdomain.Service
	timelineSvc     timelinedomain.Service
	settingsSvc     settingsdomain.Service
	verificationSvc verificationdomain.Service
	caseaiSvc       caseaidomain.Service
	pdf             pdf.Provider
	lookupLimiter   *ratelimit.LookupLimiter
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Log             *zap.Logger
	Clock           clock.Clock
	Authsvc         authdomain.Service
	AuthzSvc        authorization.Service
	ClaimSvc        claimdomain.Service
	TimelineSvc     timelinedomain.Service
	SettingsSvc     settingsdomain.Service
	VerificationSvc verificationdomain.Service
	CaseAISvc       caseaidomain.Service
	PDF             pdf.Provider
	LookupLimiter   *ratelimit.LookupLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		log:             p.Log.Named("http.server"),
		clock:           p.Clock,
		authsvc:         p.Authsvc,
		authzSvc:        p.AuthzSvc,
		claimSvc:        p.ClaimSvc,
		timelineSvc:     p.TimelineSvc,
		settingsSvc:     p.SettingsSvc,
		verificationSvc: p.VerificationSvc,
		caseaiSvc:       p.CaseAISvc,
		pdf:             p.PDF,
		lookupLimiter:   p.LookupLimiter,
	}

	svc.registerPublicRoutes()
	svc.registerAdminRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerPublicRoutes() {
	public := s.engine.Group("/api/public", CustomerActor())

	public.POST("/claims", s.CreateClaim)
	public.POST("/claims/track", s.PublicLookupRateLimit(), s.TrackClaim)
	public.POST("/claims/history", s.PublicLookupRateLimit(), s.ClaimHistory)
	public.POST("/claims/:code/attachments", s.PublicLookupRateLimit(), s.UploadPublicAttachment)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/api/admin")
	admin.Use(s.StaffAuthRequired())

	admin.GET("/me", s.Me)

	// -------- Claims --------
	admin.GET("/claims", s.authorize(authorization.ObjectClaim, authorization.ActionClaimView), s.ListClaims)
	admin.GET("/claims/:id", s.authorize(authorization.ObjectClaim, authorization.ActionClaimView), s.GetClaimDetail)
	admin.PATCH("/claims/:id", s.authorize(authorization.ObjectClaim, authorization.ActionClaimUpdate), s.UpdateClaim)
	admin.POST("/claims/:id/transition", s.authorize(authorization.ObjectClaim, authorization.ActionClaimTransition), s.TransitionClaim)
	admin.POST("/claims/:id/notes", s.authorize(authorization.ObjectClaim, authorization.ActionClaimNote), s.AddNote)
	admin.GET("/claims/:id/timeline", s.authorize(authorization.ObjectClaim, authorization.ActionClaimView), s.ListTimeline)

	// -------- Attachments --------
	admin.POST("/claims/:id/attachments", s.authorize(authorization.ObjectClaim, authorization.ActionClaimUpdate), s.UploadAttachment)
	admin.GET("/claims/:id/attachments/:attachmentId", s.authorize(authorization.ObjectClaim, authorization.ActionClaimView), s.DownloadAttachment)

	// -------- Communications --------
	admin.GET("/claims/:id/communications", s.authorize(authorization.ObjectClaim, authorization.ActionClaimView), s.ListCommunications)
	admin.POST("/claims/:id/communications", s.authorize(authorization.ObjectCommunication, authorization.ActionCommunicationCreate), s.RecordCommunication)
	admin.POST("/claims/:id/communications/:communicationId/response", s.authorize(authorization.ObjectCommunication, authorization.ActionCommunicationRespond), s.RecordCompanyResponse)

	// -------- Settlement --------
	admin.GET("/claims/:id/settlement", s.authorize(authorization.ObjectSettlement, authorization.ActionSettlementView), s.GetSettlement)
	admin.POST("/claims/:id/settlement", s.authorize(authorization.ObjectSettlement, authorization.ActionSettlementCreate), s.CreateSettlement)
	admin.GET("/claims/:id/settlement/statement.pdf", s.authorize(authorization.ObjectSettlement, authorization.ActionSettlementView), s.RenderSettlementStatement)

	admin.GET("/claims/:id/eligibility", s.authorize(authorization.ObjectEligibility, authorization.ActionEligibilityView), s.GetEligibility)

	// -------- Verification --------
	admin.GET("/claims/:id/verification", s.authorize(authorization.ObjectClaim, authorization.ActionClaimView), s.GetVerification)
	admin.POST("/claims/:id/verification/boarding-pass", s.authorize(authorization.ObjectVerification, authorization.ActionVerificationRun), s.UploadBoardingPass)
	admin.POST("/claims/:id/verification/flight", s.authorize(authorization.ObjectVerification, authorization.ActionVerificationRun), s.VerifyFlight)
	admin.GET("/claims/:id/documents", s.authorize(authorization.ObjectClaim, authorization.ActionClaimView), s.ListDocumentChecks)
	admin.POST("/claims/:id/documents/verify", s.authorize(authorization.ObjectVerification, authorization.ActionVerificationRun), s.VerifyDocuments)

	// -------- Case AI --------
	admin.GET("/claims/:id/ai", s.authorize(authorization.ObjectClaim, authorization.ActionClaimView), s.GetCaseAnalysis)
	admin.POST("/claims/:id/ai", s.authorize(authorization.ObjectCaseAI, authorization.ActionCaseAIRun), s.RunCaseAnalysis)

	// -------- Settings --------
	admin.GET("/settings/conversion-rate", s.authorize(authorization.ObjectSettings, authorization.ActionSettingsView), s.GetConversionRate)
	admin.PUT("/settings/conversion-rate", s.authorize(authorization.ObjectSettings, authorization.ActionSettingsUpdate), s.UpdateConversionRate)
}

func (s *Server) Me(c *gin.Context) {
	principal, ok := authdomain.PrincipalFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, claimdomain.ErrUnauthorized)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"subject":    principal.Subject,
		"name":       principal.Name,
		"role":       principal.Role,
		"expires_at": principal.ExpiresAt,
	}})
}
