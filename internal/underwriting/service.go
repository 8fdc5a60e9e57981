package underwriting

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/insurance/screening-service/internal/domain"
	"github.com/insurance/screening-service/internal/insurance"
	"github.com/insurance/screening-service/internal/pkg/logger"
	"github.com/insurance/screening-service/internal/screening"
)

// Service composes the compliance and insurance branches into the underwrite
// operation. Both branches are pure reads and run concurrently.
type Service struct {
	screener *screening.Engine
	profiles *insurance.Builder
	engine   *Engine
	log      *logger.Logger
}

// NewService creates the underwriting service.
func NewService(screener *screening.Engine, profiles *insurance.Builder, engine *Engine, log *logger.Logger) *Service {
	return &Service{
		screener: screener,
		profiles: profiles,
		engine:   engine,
		log:      log.Named("underwriting_service"),
	}
}

// Underwrite screens the identity, builds the insurance profile, and merges
// both through the decision engine.
func (s *Service) Underwrite(ctx context.Context, tenantID uuid.UUID, identity domain.QueryIdentity, keys domain.SubjectKeys) (*domain.UnderwritingDecision, error) {
	var (
		assessment *domain.RiskAssessment
		profile    *domain.InsuranceProfile
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		assessment, err = s.screener.Screen(gctx, tenantID, identity)
		return err
	})
	g.Go(func() error {
		var err error
		profile, err = s.profiles.Build(gctx, tenantID, keys)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("underwrite tenant %s: %w", tenantID, err)
	}

	return s.engine.Decide(assessment, profile), nil
}
