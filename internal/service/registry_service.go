package service

import (
	"context"
	"errors"

	"github.com/Clement-coder/retrust-marketplace/internal/audit"
	"github.com/Clement-coder/retrust-marketplace/internal/domain"
	"github.com/Clement-coder/retrust-marketplace/internal/events"
	"github.com/Clement-coder/retrust-marketplace/internal/repository"
	"github.com/Clement-coder/retrust-marketplace/pkg/log"
)

// registryServiceImpl implements RegistryService.
type registryServiceImpl struct {
	repo      repository.UserRepository
	publisher *events.Publisher
}

// NewRegistryService creates a new registry service.
func NewRegistryService(repo repository.UserRepository, publisher *events.Publisher) RegistryService {
	return &registryServiceImpl{
		repo:      repo,
		publisher: publisher,
	}
}

// Register creates the registry record for the caller address. The
// address comes from the verified identity, never the request body, so
// a caller can only ever register itself.
func (s *registryServiceImpl) Register(ctx context.Context, address string, req *domain.RegisterRequest) (*domain.UserResponse, error) {
	l := log.Ctx(ctx)

	user := &domain.User{
		Address:  address,
		FullName: req.FullName,
		Username: req.Username,
		Email:    req.Email,
		Location: req.Location,
		Country:  req.Country,
	}

	evt, err := domain.NewLedgerEvent(domain.EventUserRegistered, nil, address, domain.UserRegisteredPayload{
		Address:  address,
		Username: user.Username,
		FullName: user.FullName,
		Country:  user.Country,
	})
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, user, evt); err != nil {
		switch {
		case errors.Is(err, repository.ErrAddressExists):
			return nil, ErrAlreadyRegistered
		case errors.Is(err, repository.ErrUsernameExists):
			return nil, ErrUsernameTaken
		}
		l.Error().Err(err).Str(log.FieldAddress, address).Msg("failed to create user")
		return nil, err
	}

	s.publisher.Publish(ctx, evt)
	audit.Log(ctx, audit.ActionRegisterUser, address, "user registered")

	resp := user.ToResponse()
	return &resp, nil
}

// Lookup reads the registry for an address. Unknown addresses are a
// normal answer, not an error.
func (s *registryServiceImpl) Lookup(ctx context.Context, address string) (*domain.LookupResponse, error) {
	l := log.Ctx(ctx)

	user, err := s.repo.GetByAddress(ctx, address)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return &domain.LookupResponse{Registered: false}, nil
		}
		l.Error().Err(err).Str(log.FieldAddress, address).Msg("failed to look up user")
		return nil, err
	}

	resp := user.ToResponse()
	return &domain.LookupResponse{Registered: true, User: &resp}, nil
}
