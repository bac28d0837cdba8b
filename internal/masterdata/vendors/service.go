package vendors

import (
	"context"
	"errors"

	"github.com/ampere-erp/ampere-erp/internal/masterdata/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Vendor, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Vendor, error) {
	if id <= 0 {
		return Vendor{}, errors.New("invalid vendor ID")
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, vendor Vendor) (Vendor, error) {
	if err := s.validate(vendor); err != nil {
		return Vendor{}, err
	}
	return s.repo.Create(ctx, vendor)
}

func (s *Service) Update(ctx context.Context, id int64, vendor Vendor) error {
	if id <= 0 {
		return errors.New("invalid vendor ID")
	}
	if err := s.validate(vendor); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, vendor)
}

// Deactivate soft-disables a vendor; refused while referenced by live documents.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	if id <= 0 {
		return errors.New("invalid vendor ID")
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
		return errors.New("invalid vendor ID")
	}
	return s.repo.SetActive(ctx, id, true)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return errors.New("invalid vendor ID")
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

// VendorContact returns the contact fields used when sending documents to a
// vendor. Kept as plain strings so callers need no vendor model import.
func (s *Service) VendorContact(ctx context.Context, id int64) (name, email, phone string, err error) {
	vendor, err := s.Get(ctx, id)
	if err != nil {
		return "", "", "", err
	}
	return vendor.Name, vendor.Email, vendor.Phone, nil
}
