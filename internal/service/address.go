package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Felix251/marketplace/internal/domain"
	"github.com/Felix251/marketplace/internal/repository"
	apperrors "github.com/Felix251/marketplace/pkg/errors"
)

// AddressService implements the business logic for shipping addresses.
type AddressService struct {
	addresses repository.AddressRepository
	logger    *slog.Logger
}

// NewAddressService creates a new address service.
func NewAddressService(addresses repository.AddressRepository, logger *slog.Logger) *AddressService {
	return &AddressService{
		addresses: addresses,
		logger:    logger,
	}
}

// AddressInput holds the parameters for creating or updating an address.
type AddressInput struct {
	Street     string
	City       string
	State      string
	PostalCode string
	Country    string
	IsDefault  bool
}

// CreateAddress adds an address for a user. The user's first address
// becomes the default regardless of the flag; a later default replaces
// the previous one.
func (s *AddressService) CreateAddress(ctx context.Context, userID string, input AddressInput) (*domain.Address, error) {
	existing, err := s.addresses.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}

	isDefault := input.IsDefault || len(existing) == 0
	if isDefault && len(existing) > 0 {
		if err := s.addresses.UnsetDefaults(ctx, userID); err != nil {
			return nil, fmt.Errorf("unset defaults: %w", err)
		}
	}

	now := time.Now().UTC()
	address := &domain.Address{
		Base: domain.Base{
			ID:        uuid.New().String(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		UserID:     userID,
		Street:     input.Street,
		City:       input.City,
		State:      input.State,
		PostalCode: input.PostalCode,
		Country:    input.Country,
		IsDefault:  isDefault,
	}

	if err := s.addresses.Create(ctx, address); err != nil {
		return nil, fmt.Errorf("create address: %w", err)
	}

	return address, nil
}

// ListAddresses returns the user's addresses, default first.
func (s *AddressService) ListAddresses(ctx context.Context, userID string) ([]domain.Address, error) {
	addresses, err := s.addresses.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	return addresses, nil
}

// GetAddress retrieves one of the user's addresses.
func (s *AddressService) GetAddress(ctx context.Context, userID, addressID string) (*domain.Address, error) {
	address, err := s.addresses.GetByID(ctx, addressID)
	if err != nil {
		return nil, fmt.Errorf("get address: %w", err)
	}

	if address.UserID != userID {
		return nil, apperrors.Forbidden("address belongs to another user")
	}

	return address, nil
}

// UpdateAddress changes an address the user owns.
func (s *AddressService) UpdateAddress(ctx context.Context, userID, addressID string, input AddressInput) (*domain.Address, error) {
	address, err := s.GetAddress(ctx, userID, addressID)
	if err != nil {
		return nil, err
	}

	address.Street = input.Street
	address.City = input.City
	address.State = input.State
	address.PostalCode = input.PostalCode
	address.Country = input.Country

	if err := s.addresses.Update(ctx, address); err != nil {
		return nil, fmt.Errorf("update address: %w", err)
	}

	if input.IsDefault && !address.IsDefault {
		if err := s.addresses.SetDefault(ctx, userID, addressID); err != nil {
			return nil, fmt.Errorf("set default address: %w", err)
		}
		address.IsDefault = true
	}

	return address, nil
}

// SetDefaultAddress marks one of the user's addresses as the default.
func (s *AddressService) SetDefaultAddress(ctx context.Context, userID, addressID string) error {
	if _, err := s.GetAddress(ctx, userID, addressID); err != nil {
		return err
	}

	if err := s.addresses.SetDefault(ctx, userID, addressID); err != nil {
		return fmt.Errorf("set default address: %w", err)
	}

	return nil
}

// DeleteAddress removes an address the user owns. When the default is
// deleted, the most recently added remaining address becomes the default.
func (s *AddressService) DeleteAddress(ctx context.Context, userID, addressID string) error {
	address, err := s.GetAddress(ctx, userID, addressID)
	if err != nil {
		return err
	}

	if err := s.addresses.Delete(ctx, addressID); err != nil {
		return fmt.Errorf("delete address: %w", err)
	}

	if address.IsDefault {
		remaining, err := s.addresses.ListByUserID(ctx, userID)
		if err != nil {
			return fmt.Errorf("list remaining addresses: %w", err)
		}
		if len(remaining) > 0 {
			if err := s.addresses.SetDefault(ctx, userID, remaining[0].ID); err != nil {
				return fmt.Errorf("promote new default address: %w", err)
			}
		}
	}

	return nil
}
