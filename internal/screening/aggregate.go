package screening

import (
	"sort"

	"github.com/insurance/screening-service/internal/domain"
)

// Aggregator folds per-source hits into entity clusters.
type Aggregator struct {
	diversityBonus int
}

// NewAggregator creates an aggregator with the configured cross-source
// diversity bonus per distinct category.
func NewAggregator(diversityBonus int) *Aggregator {
	return &Aggregator{diversityBonus: diversityBonus}
}

// clusterKey identifies the real-world entity a hit denotes: normalized
// national ID when present, else normalized full name, else a synthetic
// per-record key so keyless candidates never merge with unrelated ones.
func clusterKey(rec domain.NormalizedRecord) string {
	if rec.NationalIDNorm != "" {
		return "id:" + rec.NationalIDNorm
	}
	if rec.FullNameNorm != "" {
		return "name:" + rec.FullNameNorm
	}
	return "record:" + rec.ID.String()
}

// Cluster groups hits by entity and scores each cluster as the maximum
// individual contribution plus the diversity bonus per distinct source
// category, capped at 100. Output order is deterministic: score descending,
// then source-category count descending, then key ascending.
func (a *Aggregator) Cluster(hits []domain.MatchHit) []domain.EntityCluster {
	byKey := make(map[string]*domain.EntityCluster)
	var order []string

	for _, hit := range hits {
		key := clusterKey(hit.Record)
		cl, ok := byKey[key]
		if !ok {
			cl = &domain.EntityCluster{Key: key}
			byKey[key] = cl
			order = append(order, key)
		}
		cl.Hits = append(cl.Hits, hit)
	}

	clusters := make([]domain.EntityCluster, 0, len(order))
	for _, key := range order {
		cl := byKey[key]

		maxContribution := 0
		seen := make(map[domain.SourceCategory]struct{})
		for _, hit := range cl.Hits {
			if hit.Contribution > maxContribution {
				maxContribution = hit.Contribution
			}
			if _, ok := seen[hit.Record.Category]; !ok {
				seen[hit.Record.Category] = struct{}{}
				cl.Sources = append(cl.Sources, hit.Record.Category)
			}
		}
		sort.Slice(cl.Sources, func(i, j int) bool { return cl.Sources[i] < cl.Sources[j] })

		cl.Score = clampScore(maxContribution + a.diversityBonus*len(cl.Sources))
		clusters = append(clusters, *cl)
	}

	sort.Slice(clusters, func(i, j int) bool {
		if clusters[i].Score != clusters[j].Score {
			return clusters[i].Score > clusters[j].Score
		}
		if len(clusters[i].Sources) != len(clusters[j].Sources) {
			return len(clusters[i].Sources) > len(clusters[j].Sources)
		}
		return clusters[i].Key < clusters[j].Key
	})

	return clusters
}
