package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/insurance/screening-service/internal/config"
	"github.com/insurance/screening-service/internal/domain"
	"github.com/insurance/screening-service/internal/importer"
	"github.com/insurance/screening-service/internal/insurance"
	"github.com/insurance/screening-service/internal/pkg/logger"
	"github.com/insurance/screening-service/internal/screening"
	"github.com/insurance/screening-service/internal/underwriting"
)

// AssessmentStore persists completed screening assessments. Inserts are
// append-only; assessments are never mutated after creation.
type AssessmentStore interface {
	InsertAssessment(ctx context.Context, a *domain.RiskAssessment) error
	GetAssessment(ctx context.Context, tenantID, id uuid.UUID) (*domain.RiskAssessment, error)
}

// EventSink publishes domain events. Failures are logged, never surfaced to
// the caller.
type EventSink interface {
	ScreeningCompleted(a *domain.RiskAssessment) error
	SourceReimported(tenantID uuid.UUID, sourceRef string, cat domain.SourceCategory, inserted, invalid int) error
}

// CacheInvalidator drops cached record lookups after a reimport.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, tenantID uuid.UUID)
}

// Server exposes the screening, profile, underwriting and import operations
// over HTTP.
type Server struct {
	screener    *screening.Engine
	profiles    *insurance.Builder
	underwriter *underwriting.Service
	importer    *importer.Importer

	assessments AssessmentStore
	events      EventSink
	cache       CacheInvalidator

	cfg *config.Config
	log *logger.Logger
}

// New creates the HTTP server. events and cache may be nil when the
// corresponding infrastructure is not configured.
func New(
	screener *screening.Engine,
	profiles *insurance.Builder,
	underwriter *underwriting.Service,
	imp *importer.Importer,
	assessments AssessmentStore,
	events EventSink,
	cache CacheInvalidator,
	cfg *config.Config,
	log *logger.Logger,
) *Server {
	return &Server{
		screener:    screener,
		profiles:    profiles,
		underwriter: underwriter,
		importer:    imp,
		assessments: assessments,
		events:      events,
		cache:       cache,
		cfg:         cfg,
		log:         log.Named("http"),
	}
}

// Register mounts all routes on the echo instance.
func (s *Server) Register(e *echo.Echo) {
	e.GET("/health", s.Health)

	v1 := e.Group("/v1", TenantAuth(s.cfg.Security.JWTSecret))
	v1.POST("/screenings", s.CreateScreening)
	v1.GET("/screenings/:id", s.GetScreening)
	v1.POST("/profiles/search", s.SearchProfile)
	v1.POST("/underwritings", s.CreateUnderwriting)
	v1.PUT("/sources/:source_ref/records", s.ReimportSource)
}

// Health reports liveness plus engine latency counters.
func (s *Server) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":           "ok",
		"screenings":       s.screener.ScreeningCount(),
		"avg_screening_ms": s.screener.AverageLatency(),
	})
}

// ScreeningRequest is the body of POST /v1/screenings.
type ScreeningRequest struct {
	Identity domain.QueryIdentity `json:"identity"`
}

// CreateScreening runs a screening, persists the assessment and publishes
// the completion event.
func (s *Server) CreateScreening(c echo.Context) error {
	tenant, err := tenantID(c)
	if err != nil {
		return err
	}

	var req ScreeningRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	ctx := c.Request().Context()
	assessment, err := s.screener.Screen(ctx, tenant, req.Identity)
	if err != nil {
		return s.mapError(err)
	}
	assessment.CreatedBy = actor(c)

	if err := s.assessments.InsertAssessment(ctx, assessment); err != nil {
		return s.mapError(err)
	}
	if s.events != nil {
		if err := s.events.ScreeningCompleted(assessment); err != nil {
			s.log.Warn("screening event not published", logger.ErrorField(err))
		}
	}

	return c.JSON(http.StatusCreated, assessment)
}

// GetScreening returns one persisted assessment.
func (s *Server) GetScreening(c echo.Context) error {
	tenant, err := tenantID(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed assessment id")
	}

	assessment, err := s.assessments.GetAssessment(c.Request().Context(), tenant, id)
	if err != nil {
		return s.mapError(err)
	}
	return c.JSON(http.StatusOK, assessment)
}

// ProfileRequest is the body of POST /v1/profiles/search.
type ProfileRequest struct {
	Subject domain.SubjectKeys `json:"subject"`
}

// SearchProfile builds the behavioral insurance profile for a subject.
func (s *Server) SearchProfile(c echo.Context) error {
	tenant, err := tenantID(c)
	if err != nil {
		return err
	}

	var req ProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	profile, err := s.profiles.Build(c.Request().Context(), tenant, req.Subject)
	if err != nil {
		return s.mapError(err)
	}
	return c.JSON(http.StatusOK, profile)
}

// UnderwritingRequest is the body of POST /v1/underwritings.
type UnderwritingRequest struct {
	Identity domain.QueryIdentity `json:"identity"`
	Subject  domain.SubjectKeys   `json:"subject"`
}

// CreateUnderwriting runs the full screen + profile + decide pipeline.
func (s *Server) CreateUnderwriting(c echo.Context) error {
	tenant, err := tenantID(c)
	if err != nil {
		return err
	}

	var req UnderwritingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	decision, err := s.underwriter.Underwrite(c.Request().Context(), tenant, req.Identity, req.Subject)
	if err != nil {
		return s.mapError(err)
	}
	return c.JSON(http.StatusCreated, decision)
}

// ReimportRequest is the body of PUT /v1/sources/:source_ref/records.
type ReimportRequest struct {
	Category domain.SourceCategory `json:"category"`
	Records  []importer.RawRecord  `json:"records"`
}

// ReimportSource atomically replaces every record of a source reference.
func (s *Server) ReimportSource(c echo.Context) error {
	tenant, err := tenantID(c)
	if err != nil {
		return err
	}
	sourceRef := c.Param("source_ref")

	var req ReimportRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	ctx := c.Request().Context()
	result, err := s.importer.Reimport(ctx, tenant, sourceRef, req.Category, req.Records)
	if err != nil {
		return s.mapError(err)
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, tenant)
	}
	if s.events != nil {
		if err := s.events.SourceReimported(tenant, sourceRef, req.Category, result.Inserted, result.Invalid); err != nil {
			s.log.Warn("reimport event not published", logger.ErrorField(err))
		}
	}

	return c.JSON(http.StatusOK, result)
}

// mapError converts domain sentinels to HTTP status codes.
func (s *Server) mapError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrConfiguration):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		s.log.Error("request failed", logger.ErrorField(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
