package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Service manages party lifecycle.
type Service struct {
	repo Repository
}

// NewService creates a new identity service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Register creates a new party with a hashed PIN.
func (s *Service) Register(ctx context.Context, creds Credentials) (Party, error) {
	if creds.Phone == "" {
		return Party{}, errors.New("phone is required")
	}
	if len(creds.PIN) < 4 {
		return Party{}, errors.New("PIN must be at least 4 digits")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.PIN), bcrypt.DefaultCost)
	if err != nil {
		return Party{}, err
	}

	party := Party{
		ID:        uuid.New().String(),
		Phone:     creds.Phone,
		PINHash:   hash,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, party); err != nil {
		return Party{}, err
	}

	return party, nil
}

// Authenticate verifies credentials and returns the matching party.
func (s *Service) Authenticate(ctx context.Context, creds Credentials) (Party, error) {
	party, err := s.repo.FindByPhone(ctx, creds.Phone)
	if err != nil {
		return Party{}, err
	}

	if err := bcrypt.CompareHashAndPassword(party.PINHash, []byte(creds.PIN)); err != nil {
		return Party{}, errors.New("invalid PIN")
	}

	return party, nil
}
