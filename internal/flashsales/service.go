// Package flashsales manages flash sale records. Status is derived on every
// read from the sale window and is never stored.
package flashsales

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/maplecart/storefront-backend/internal/pricing"
	"github.com/maplecart/storefront-backend/pkg/db/models"
	"github.com/maplecart/storefront-backend/pkg/enums"
	pkgerrors "github.com/maplecart/storefront-backend/pkg/errors"
	"github.com/maplecart/storefront-backend/pkg/logger"
	"github.com/maplecart/storefront-backend/pkg/types"
)

var hundred = decimal.NewFromInt(100)

// Service exposes flash sale administration and the live-sale lookup used by
// pricing.
type Service interface {
	Create(ctx context.Context, input Input) (*FlashSaleDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*FlashSaleDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*FlashSaleDTO, error)
	List(ctx context.Context, status *enums.FlashSaleStatus) ([]FlashSaleDTO, error)
	Active(ctx context.Context) ([]models.FlashSale, error)
	Conflicts(ctx context.Context) (*pricing.ConflictWarning, error)
}

// Input is a validated create payload.
type Input struct {
	Name          string
	Description   *string
	DiscountType  enums.DiscountType
	DiscountValue decimal.Decimal
	AppliesTo     enums.FlashSaleScope
	ProductIDs    []uuid.UUID
	CategorySlugs []string
	StartsAt      time.Time
	EndsAt        time.Time
	Enabled       bool
	Priority      int
}

// UpdateInput carries optional changes; nil fields are left as-is.
type UpdateInput struct {
	Name          *string
	Description   *string
	DiscountType  *enums.DiscountType
	DiscountValue *decimal.Decimal
	AppliesTo     *enums.FlashSaleScope
	ProductIDs    *[]uuid.UUID
	CategorySlugs *[]string
	StartsAt      *time.Time
	EndsAt        *time.Time
	Enabled       *bool
	Priority      *int
}

type saleStore interface {
	Create(ctx context.Context, sale *models.FlashSale) error
	Save(ctx context.Context, sale *models.FlashSale) error
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.FlashSale, error)
	List(ctx context.Context) ([]models.FlashSale, error)
	ListLive(ctx context.Context, now time.Time) ([]models.FlashSale, error)
}

type discountReader interface {
	StoreDiscount(ctx context.Context) (types.StoreDiscount, error)
}

type service struct {
	repo     saleStore
	settings discountReader
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds the flash sale service.
func NewService(repo saleStore, settings discountReader, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("flash sale repository required")
	}
	if settings == nil {
		return nil, fmt.Errorf("settings reader required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, settings: settings, logg: logg, now: time.Now}, nil
}

func (s *service) Create(ctx context.Context, input Input) (*FlashSaleDTO, error) {
	sale := &models.FlashSale{
		Name:          strings.TrimSpace(input.Name),
		Description:   input.Description,
		DiscountType:  input.DiscountType,
		DiscountValue: input.DiscountValue,
		AppliesTo:     input.AppliesTo,
		ProductIDs:    productIDStrings(input.ProductIDs),
		CategorySlugs: normalizeSlugs(input.CategorySlugs),
		StartsAt:      input.StartsAt.UTC(),
		EndsAt:        input.EndsAt.UTC(),
		Enabled:       input.Enabled,
		Priority:      input.Priority,
	}
	if err := Validate(sale); err != nil {
		return nil, err
	}
	sale.DiscountValue = sale.DiscountValue.Round(2)
	if err := s.repo.Create(ctx, sale); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert flash sale")
	}
	s.logg.Info(s.logg.WithField(ctx, "flash_sale_id", sale.ID.String()), "flash sale created")
	dto := NewFlashSaleDTO(*sale, s.now())
	return &dto, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*FlashSaleDTO, error) {
	sale, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	applyUpdate(sale, input)
	if err := Validate(sale); err != nil {
		return nil, err
	}
	sale.DiscountValue = sale.DiscountValue.Round(2)
	if err := s.repo.Save(ctx, sale); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update flash sale")
	}
	s.logg.Info(s.logg.WithField(ctx, "flash_sale_id", id.String()), "flash sale updated")
	dto := NewFlashSaleDTO(*sale, s.now())
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete flash sale")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "flash sale not found")
	}
	s.logg.Info(s.logg.WithField(ctx, "flash_sale_id", id.String()), "flash sale deleted")
	return nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*FlashSaleDTO, error) {
	sale, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := NewFlashSaleDTO(*sale, s.now())
	return &dto, nil
}

// List returns all sales, optionally narrowed to one derived status.
func (s *service) List(ctx context.Context, status *enums.FlashSaleStatus) ([]FlashSaleDTO, error) {
	sales, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list flash sales")
	}
	now := s.now()
	out := make([]FlashSaleDTO, 0, len(sales))
	for _, sale := range sales {
		dto := NewFlashSaleDTO(sale, now)
		if status != nil && dto.Status != *status {
			continue
		}
		out = append(out, dto)
	}
	return out, nil
}

// Active returns the sales live right now. The SQL window filter is
// re-checked with the classifier so both agree on edge instants.
func (s *service) Active(ctx context.Context) ([]models.FlashSale, error) {
	now := s.now().UTC()
	sales, err := s.repo.ListLive(ctx, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list live flash sales")
	}
	return pricing.ActiveFlashSales(sales, now), nil
}

func (s *service) Conflicts(ctx context.Context) (*pricing.ConflictWarning, error) {
	active, err := s.Active(ctx)
	if err != nil {
		return nil, err
	}
	discount, err := s.settings.StoreDiscount(ctx)
	if err != nil {
		return nil, err
	}
	return pricing.DetectConflict(discount, active), nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.FlashSale, error) {
	sale, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "flash sale not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load flash sale")
	}
	return sale, nil
}

// Validate enforces the admin-form rules so the resolver can trust its input.
func Validate(sale *models.FlashSale) error {
	details := map[string]string{}
	if sale.Name == "" {
		details["name"] = "is required"
	}
	if !sale.DiscountType.IsValid() {
		details["discount_type"] = "must be percentage, fixed_amount or bogo"
	}
	if sale.DiscountValue.IsNegative() {
		details["discount_value"] = "must be zero or greater"
	} else if sale.DiscountType == enums.DiscountTypePercentage && sale.DiscountValue.GreaterThan(hundred) {
		details["discount_value"] = "percentage cannot exceed 100"
	} else if sale.DiscountType != enums.DiscountTypeBOGO && !sale.DiscountValue.IsPositive() {
		details["discount_value"] = "must be greater than zero"
	}
	switch sale.AppliesTo {
	case enums.FlashSaleScopeAll:
	case enums.FlashSaleScopeProducts:
		if len(sale.ProductIDs) == 0 {
			details["product_ids"] = "at least one product is required"
		}
	case enums.FlashSaleScopeCategories:
		if len(sale.CategorySlugs) == 0 {
			details["category_slugs"] = "at least one category is required"
		}
	default:
		details["applies_to"] = "must be all, products or categories"
	}
	if sale.StartsAt.IsZero() || sale.EndsAt.IsZero() {
		details["starts_at"] = "start and end are required"
	} else if !sale.EndsAt.After(sale.StartsAt) {
		details["ends_at"] = "must be after starts_at"
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid flash sale").WithDetails(details)
	}
	return nil
}

func applyUpdate(sale *models.FlashSale, input UpdateInput) {
	if input.Name != nil {
		sale.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		sale.Description = input.Description
	}
	if input.DiscountType != nil {
		sale.DiscountType = *input.DiscountType
	}
	if input.DiscountValue != nil {
		sale.DiscountValue = *input.DiscountValue
	}
	if input.AppliesTo != nil {
		sale.AppliesTo = *input.AppliesTo
	}
	if input.ProductIDs != nil {
		sale.ProductIDs = productIDStrings(*input.ProductIDs)
	}
	if input.CategorySlugs != nil {
		sale.CategorySlugs = normalizeSlugs(*input.CategorySlugs)
	}
	if input.StartsAt != nil {
		sale.StartsAt = input.StartsAt.UTC()
	}
	if input.EndsAt != nil {
		sale.EndsAt = input.EndsAt.UTC()
	}
	if input.Enabled != nil {
		sale.Enabled = *input.Enabled
	}
	if input.Priority != nil {
		sale.Priority = *input.Priority
	}
}

func productIDStrings(ids []uuid.UUID) pq.StringArray {
	out := pq.StringArray{}
	seen := map[uuid.UUID]struct{}{}
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == uuid.Nil {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id.String())
	}
	return out
}

func normalizeSlugs(slugs []string) pq.StringArray {
	out := pq.StringArray{}
	seen := map[string]struct{}{}
	for _, slug := range slugs {
		clean := strings.ToLower(strings.TrimSpace(slug))
		if clean == "" {
			continue
		}
		if _, ok := seen[clean]; ok {
			continue
		}
		seen[clean] = struct{}{}
		out = append(out, clean)
	}
	return out
}
