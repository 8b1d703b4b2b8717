package service

import (
	"context"

	"github.com/tsamuels456/unboundedfigures/internal/models"
	"github.com/tsamuels456/unboundedfigures/internal/repository"
)

const generatedUsernamePrefix = "figure_"

// IdentityService binds identity provider subjects to local figure rows.
type IdentityService struct {
	userRepo repository.UserRepository
}

type EnsureLocalUserInput struct {
	Subject string
	Email   string
}

func NewIdentityService(userRepo repository.UserRepository) *IdentityService {
	return &IdentityService{userRepo: userRepo}
}

// LocalUser resolves the subject to its local row, or NOT_PROVISIONED when ensure was never called.
func (s *IdentityService) LocalUser(ctx context.Context, subject string) (*models.User, error) {
	user, err := s.userRepo.GetByAuthID(ctx, subject)
	if err != nil {
		if isNotFound(err) {
			return nil, models.NewNotProvisionedError()
		}
		return nil, err
	}
	return user, nil
}

// EnsureLocalUser returns the existing row for the subject or creates one.
// created reports whether a row was inserted.
func (s *IdentityService) EnsureLocalUser(ctx context.Context, in EnsureLocalUserInput) (user *models.User, created bool, err error) {
	if in.Subject == "" {
		return nil, false, models.NewUnauthorizedError("Unauthorized")
	}

	existing, err := s.userRepo.GetByAuthID(ctx, in.Subject)
	if err == nil {
		return existing, false, nil
	}
	if !isNotFound(err) {
		return nil, false, err
	}

	username := GeneratedUsername(in.Subject)
	displayName := in.Email
	if displayName == "" {
		displayName = username
	}
	subject := in.Subject
	user = &models.User{
		AuthID:      &subject,
		Username:    username,
		DisplayName: displayName,
		Role:        models.RoleFigure,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, false, err
	}
	return user, true, nil
}

// GeneratedUsername derives the starter username from the first 8 characters of the subject.
func GeneratedUsername(subject string) string {
	runes := []rune(subject)
	if len(runes) > 8 {
		runes = runes[:8]
	}
	return generatedUsernamePrefix + string(runes)
}
