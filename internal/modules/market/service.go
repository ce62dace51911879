package market

import (
	"context"
	"errors"

	"tripdesk/internal/cache"
	"tripdesk/internal/domain"
	"tripdesk/internal/repository"
)

var ErrNoSample = errors.New("no market sample for this service and location")

// RateRepository reads the market_intelligence table.
type RateRepository interface {
	GetRate(ctx context.Context, serviceType domain.ServiceType, location string) (*domain.MarketIntelligence, error)
}

// Service fronts market-rate lookups with an optional redis cache. It
// satisfies the parser's MarketSource interface.
type Service struct {
	rates RateRepository
	cache *cache.MarketCache
}

func NewService(rates RateRepository, c *cache.MarketCache) *Service {
	return &Service{rates: rates, cache: c}
}

func (s *Service) GetRate(ctx context.Context, serviceType domain.ServiceType, location string) (*domain.MarketIntelligence, error) {
	if mi, ok := s.cache.Get(ctx, serviceType, location); ok {
		return mi, nil
	}

	mi, err := s.rates.GetRate(ctx, serviceType, location)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoSample
		}
		return nil, err
	}

	s.cache.Set(ctx, mi)
	return mi, nil
}
