package service

import (
	"context"

	"github.com/Clement-coder/retrust-marketplace/internal/domain"
	"github.com/Clement-coder/retrust-marketplace/internal/repository"
	"github.com/Clement-coder/retrust-marketplace/pkg/log"
)

// reputationServiceImpl implements ReputationService. Both reads are
// total: an address that never sold or never got credited reads zero.
type reputationServiceImpl struct {
	reputation repository.ReputationRepository
	balances   repository.BalanceRepository
}

// NewReputationService creates a new reputation service.
func NewReputationService(reputation repository.ReputationRepository, balances repository.BalanceRepository) ReputationService {
	return &reputationServiceImpl{
		reputation: reputation,
		balances:   balances,
	}
}

func (s *reputationServiceImpl) GetReputation(ctx context.Context, address string) (*domain.ReputationResponse, error) {
	l := log.Ctx(ctx)

	score, err := s.reputation.Get(ctx, address)
	if err != nil {
		l.Error().Err(err).Str(log.FieldAddress, address).Msg("failed to read reputation")
		return nil, err
	}
	return &domain.ReputationResponse{Address: address, Score: score}, nil
}

func (s *reputationServiceImpl) GetBalance(ctx context.Context, address string) (*domain.BalanceResponse, error) {
	l := log.Ctx(ctx)

	amount, err := s.balances.Get(ctx, address)
	if err != nil {
		l.Error().Err(err).Str(log.FieldAddress, address).Msg("failed to read balance")
		return nil, err
	}
	return &domain.BalanceResponse{Address: address, Amount: amount}, nil
}
