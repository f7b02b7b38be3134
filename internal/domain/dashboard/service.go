package dashboard

import (
	"context"
	"fmt"

	"github.com/wellcheck/wellcheck/internal/domain/assessment"
	"github.com/wellcheck/wellcheck/internal/platform/auth"
	"github.com/wellcheck/wellcheck/pkg/bilingual"
)

type Service struct {
	store assessment.Store
	agg   Aggregator
}

func NewService(store assessment.Store, agg Aggregator) *Service {
	return &Service{store: store, agg: agg}
}

// Stats reads who's results and aggregates them in loc.
func (s *Service) Stats(ctx context.Context, who auth.Identity, loc bilingual.Locale) (DashboardStats, error) {
	latest, err := s.store.GetLatestByCategory(ctx, who)
	if err != nil {
		return DashboardStats{}, fmt.Errorf("latest results: %w", err)
	}
	all, err := s.store.GetAll(ctx, who)
	if err != nil {
		return DashboardStats{}, fmt.Errorf("result history: %w", err)
	}
	stats := s.agg.Aggregate(latest, loc)
	stats.TotalAttempts = len(all)
	return stats, nil
}
