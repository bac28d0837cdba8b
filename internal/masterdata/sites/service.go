package sites

import (
	"context"
	"errors"
	"strings"

	"github.com/ampere-erp/ampere-erp/internal/masterdata/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Site, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Site, error) {
	if id <= 0 {
		return Site{}, errors.New("invalid site ID")
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, site Site) (Site, error) {
	if err := s.validate(site); err != nil {
		return Site{}, err
	}
	return s.repo.Create(ctx, site)
}

func (s *Service) Update(ctx context.Context, id int64, site Site) error {
	if id <= 0 {
		return errors.New("invalid site ID")
	}
	if err := s.validate(site); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, site)
}

// Deactivate soft-disables a site; refused while users or in-flight documents reference it.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	if id <= 0 {
		return errors.New("invalid site ID")
	}
	used, err := s.repo.UsageCount(ctx, id)
	if err != nil {
		return err
	}
	if used > 0 {
		return shared.ErrInUse
	}
	return s.repo.SetActive(ctx, id, false)
}

func (s *Service) Activate(ctx context.Context, id int64) error {
	if id <= 0 {
		return errors.New("invalid site ID")
	}
	return s.repo.SetActive(ctx, id, true)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return errors.New("invalid site ID")
	}
	used, err := s.repo.UsageCount(ctx, id)
	if err != nil {
		return err
	}
	if used > 0 {
		return shared.ErrInUse
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) validate(site Site) error {
	if strings.TrimSpace(site.Code) == "" {
		return errors.New("site code is required")
	}
	if strings.TrimSpace(site.Name) == "" {
		return errors.New("site name is required")
	}
	return nil
}
