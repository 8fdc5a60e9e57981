package screening

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/insurance/screening-service/internal/config"
	"github.com/insurance/screening-service/internal/domain"
	"github.com/insurance/screening-service/internal/pkg/logger"
)

// NoMatchFactor is the factor recorded when screening finds nothing.
const NoMatchFactor = "no match found"

// Engine is the identity screening engine. Each run is an independent,
// stateless computation; categories are screened in parallel.
type Engine struct {
	locator    *Locator
	scorer     *Scorer
	aggregator *Aggregator

	bands domain.BandThresholds
	cfg   *config.ScreeningConfig
	log   *logger.Logger

	// Latency metrics
	screeningCount int64
	avgLatencyMs   float64
	latencyMu      sync.RWMutex
}

// NewEngine creates a screening engine.
func NewEngine(locator *Locator, scorer *Scorer, aggregator *Aggregator, cfg *config.ScreeningConfig, log *logger.Logger) *Engine {
	return &Engine{
		locator:    locator,
		scorer:     scorer,
		aggregator: aggregator,
		bands: domain.BandThresholds{
			LowMax:    cfg.BandLowMax,
			MediumMax: cfg.BandMediumMax,
			HighMax:   cfg.BandHighMax,
		},
		cfg: cfg,
		log: log.Named("screening_engine"),
	}
}

// Bands exposes the engine's band thresholds so downstream consumers
// classify composite scores with the same policy.
func (e *Engine) Bands() domain.BandThresholds {
	return e.bands
}

// runContext holds intermediate results while categories are screened.
type runContext struct {
	identity domain.NormalizedIdentity
	hits     []domain.MatchHit
	mu       sync.Mutex
}

// Screen resolves the subject identity against every screened source
// category and returns the aggregated assessment. Pure read; the caller
// decides whether to persist the result.
func (e *Engine) Screen(ctx context.Context, tenantID uuid.UUID, identity domain.QueryIdentity) (*domain.RiskAssessment, error) {
	startTime := time.Now()

	ctx, span := otel.Tracer("screening").Start(ctx, "engine.Screen",
		trace.WithAttributes(attribute.String("tenant_id", tenantID.String())))
	defer span.End()

	q := NormalizeIdentity(identity)
	e.log.ScreeningStarted(tenantID.String(), q.NationalIDNorm != "" || q.PassportNorm != "" || q.ResidentCardNorm != "")

	rctx := &runContext{identity: q}

	if q.HasKey() {
		g, gctx := errgroup.WithContext(ctx)
		for _, cat := range domain.ScreenedCategories {
			cat := cat
			g.Go(func() error {
				return e.screenCategory(gctx, rctx, tenantID, cat)
			})
		}
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("screen tenant %s: %w", tenantID, err)
		}
	}

	assessment := e.buildAssessment(tenantID, identity, rctx)

	durationMs := time.Since(startTime).Milliseconds()
	e.recordLatency(durationMs)
	if budget := e.cfg.MaxScreeningLatency.Milliseconds(); budget > 0 && durationMs > budget {
		e.log.LatencyWarning("screen", durationMs, budget)
	}

	e.log.ScreeningCompleted(tenantID.String(), string(assessment.Band), assessment.Score, len(assessment.Clusters), durationMs)
	return assessment, nil
}

// screenCategory locates and scores candidates for one source category.
// Fuzzy-located candidates below the minimum similarity are discarded;
// exact-key candidates are kept regardless.
func (e *Engine) screenCategory(ctx context.Context, rctx *runContext, tenantID uuid.UUID, cat domain.SourceCategory) error {
	records, matchType, err := e.locator.Locate(ctx, tenantID, cat, rctx.identity)
	if err != nil {
		return err
	}

	var hits []domain.MatchHit
	for _, rec := range records {
		hit := e.scorer.Score(rctx.identity, rec, matchType)
		if matchType == domain.MatchTypeNameFuzzy && hit.Similarity < e.cfg.FuzzyMinSimilarity {
			continue
		}
		hits = append(hits, hit)
	}

	e.log.CategoryScreened(string(cat), len(records), len(hits))

	if len(hits) > 0 {
		rctx.mu.Lock()
		rctx.hits = append(rctx.hits, hits...)
		rctx.mu.Unlock()
	}
	return nil
}

// buildAssessment aggregates hits into clusters and classifies the final
// score. With no clusters the score defaults to the configured baseline with
// an explicit no-match factor.
func (e *Engine) buildAssessment(tenantID uuid.UUID, identity domain.QueryIdentity, rctx *runContext) *domain.RiskAssessment {
	rctx.mu.Lock()
	hits := rctx.hits
	rctx.mu.Unlock()

	clusters := e.aggregator.Cluster(hits)

	score := e.cfg.BaselineScore
	var factors []string
	if len(clusters) == 0 {
		factors = []string{NoMatchFactor}
	} else {
		score = clusters[0].Score
		factors = explainCluster(clusters[0], e.cfg.ClusterDiversityBonus)
	}

	return &domain.RiskAssessment{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Identity:  identity,
		Score:     clampScore(score),
		Band:      e.bands.Band(clampScore(score)),
		Clusters:  clusters,
		Factors:   factors,
		CreatedAt: time.Now(),
	}
}

// explainCluster flattens the top cluster's factors into readable lines.
func explainCluster(cl domain.EntityCluster, diversityBonus int) []string {
	var lines []string
	for _, hit := range cl.Hits {
		for _, f := range hit.Factors {
			lines = append(lines, fmt.Sprintf("%s: %s (%+d)", hit.Record.Category, f.Reason, f.Points))
		}
	}
	if n := len(cl.Sources); n > 1 {
		lines = append(lines, fmt.Sprintf("corroborated across %d source categories (%+d)", n, diversityBonus*n))
	}
	return lines
}

// recordLatency records screening latency for metrics
func (e *Engine) recordLatency(durationMs int64) {
	e.latencyMu.Lock()
	defer e.latencyMu.Unlock()

	e.screeningCount++
	// Exponential moving average
	e.avgLatencyMs = e.avgLatencyMs*0.9 + float64(durationMs)*0.1
}

// AverageLatency returns the average screening latency in milliseconds.
func (e *Engine) AverageLatency() float64 {
	e.latencyMu.RLock()
	defer e.latencyMu.RUnlock()
	return e.avgLatencyMs
}

// ScreeningCount returns the total screenings performed.
func (e *Engine) ScreeningCount() int64 {
	e.latencyMu.RLock()
	defer e.latencyMu.RUnlock()
	return e.screeningCount
}
