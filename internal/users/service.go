package users

import (
	"context"
	"errors"
	"strings"

	"github.com/ampere-erp/ampere-erp/internal/auth"
	"github.com/ampere-erp/ampere-erp/internal/shared"
)

// RepositoryPort abstracts persistence for the service.
type RepositoryPort interface {
	UpsertBySubject(ctx context.Context, user User) (User, error)
	Get(ctx context.Context, id int64) (User, error)
	GetBySubject(ctx context.Context, subject string) (User, error)
	ListByRole(ctx context.Context, role string) ([]User, error)
	UpdateProfile(ctx context.Context, id int64, phone string, siteID int64, imageKey, signatureKey string) error
}

// Service manages user profiles synced from the identity provider.
type Service struct {
	repo RepositoryPort
}

// NewService constructs the service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Resolve implements auth.IdentityResolver: it upserts the profile row for
// the token subject and returns the request identity.
func (s *Service) Resolve(ctx context.Context, claims auth.Claims) (shared.Identity, error) {
	role := strings.ToLower(strings.TrimSpace(claims.Role))
	switch role {
	case shared.RoleRequester, shared.RoleOfficer, shared.RoleManager, shared.RoleAdmin:
	default:
		role = shared.RoleRequester
	}
	user, err := s.repo.UpsertBySubject(ctx, User{
		Subject: claims.Subject,
		Name:    claims.Name,
		Email:   claims.Email,
		Role:    role,
	})
	if err != nil {
		return shared.Identity{}, err
	}
	return shared.Identity{
		UserID:  user.ID,
		Subject: user.Subject,
		Name:    user.Name,
		Email:   user.Email,
		Role:    user.Role,
	}, nil
}

// Get returns a profile by ID.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	if id <= 0 {
		return User{}, errors.New("users: invalid ID")
	}
	return s.repo.Get(ctx, id)
}

// ListByRole returns users holding a role, used for notification targeting.
func (s *Service) ListByRole(ctx context.Context, role string) ([]User, error) {
	if role == "" {
		return nil, errors.New("users: role required")
	}
	return s.repo.ListByRole(ctx, role)
}

// UserIDsByRole returns the IDs of users holding a role. It satisfies the
// notification directory port.
func (s *Service) UserIDsByRole(ctx context.Context, role string) ([]int64, error) {
	list, err := s.ListByRole(ctx, role)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(list))
	for _, u := range list {
		ids = append(ids, u.ID)
	}
	return ids, nil
}

// UpdateProfileInput carries the editable profile fields.
type UpdateProfileInput struct {
	Phone        string
	SiteID       int64
	ImageKey     string
	SignatureKey string
}

// UpdateProfile saves profile fields for the given user.
func (s *Service) UpdateProfile(ctx context.Context, id int64, input UpdateProfileInput) error {
	if id <= 0 {
		return errors.New("users: invalid ID")
	}
	return s.repo.UpdateProfile(ctx, id, input.Phone, input.SiteID, input.ImageKey, input.SignatureKey)
}
