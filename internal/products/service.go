// Package products manages the catalog and serves it to the storefront with
// effective prices resolved against live promotions.
package products

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/maplecart/storefront-backend/internal/pricing"
	"github.com/maplecart/storefront-backend/internal/undo"
	"github.com/maplecart/storefront-backend/pkg/db"
	"github.com/maplecart/storefront-backend/pkg/db/models"
	pkgerrors "github.com/maplecart/storefront-backend/pkg/errors"
	"github.com/maplecart/storefront-backend/pkg/logger"
	"github.com/maplecart/storefront-backend/pkg/pagination"
	"github.com/maplecart/storefront-backend/pkg/types"
)

// Service exposes catalog management and storefront reads.
type Service interface {
	CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) (*undo.Ticket, error)
	RestoreProduct(ctx context.Context, id uuid.UUID) error

	ListStorefront(ctx context.Context, input ListProductsInput) (*StorefrontListResult, error)
	GetStorefrontProduct(ctx context.Context, slug string) (*StorefrontProductDTO, error)
	PriceProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]PricedProduct, error)
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	Name          string
	Slug          string
	Description   *string
	CategorySlug  string
	SKU           *string
	Price         decimal.Decimal
	OriginalPrice *decimal.Decimal
	SalePrice     *decimal.Decimal
	StockQuantity int
	TrackStock    bool
	WeightGrams   int
	IsVisible     bool
	ImageURLs     []string
}

// UpdateProductInput holds optional mutation values for a product.
// ClearSalePrice removes the markdown.
type UpdateProductInput struct {
	Name           *string
	Slug           *string
	Description    *string
	CategorySlug   *string
	SKU            *string
	Price          *decimal.Decimal
	OriginalPrice  *decimal.Decimal
	SalePrice      *decimal.Decimal
	ClearSalePrice bool
	StockQuantity  *int
	TrackStock     *bool
	WeightGrams    *int
	IsVisible      *bool
	ImageURLs      *[]string
}

// ListProductsInput pages and filters the catalog.
type ListProductsInput struct {
	CategorySlug string
	Query        string
	Pagination   pagination.Params
}

type saleLister interface {
	Active(ctx context.Context) ([]models.FlashSale, error)
}

type discountReader interface {
	StoreDiscount(ctx context.Context) (types.StoreDiscount, error)
}

type deleteScheduler interface {
	Schedule(key string, action undo.Action) undo.Ticket
	Cancel(key string) bool
	Pending(key string) bool
	PendingKeys(prefix string) []string
}

// ServiceParams wires the product service.
type ServiceParams struct {
	Repo       *Repository
	DB         *db.Client
	FlashSales saleLister
	Settings   discountReader
	Undo       deleteScheduler
	Logger     *logger.Logger
}

type service struct {
	repo       *Repository
	dbClient   *db.Client
	flashSales saleLister
	settings   discountReader
	undo       deleteScheduler
	logg       *logger.Logger
}

// NewService constructs a product service instance.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("product repository required")
	case params.DB == nil:
		return nil, fmt.Errorf("db client required")
	case params.FlashSales == nil:
		return nil, fmt.Errorf("flash sale lister required")
	case params.Settings == nil:
		return nil, fmt.Errorf("settings reader required")
	case params.Undo == nil:
		return nil, fmt.Errorf("undo scheduler required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:       params.Repo,
		dbClient:   params.DB,
		flashSales: params.FlashSales,
		settings:   params.Settings,
		undo:       params.Undo,
		logg:       params.Logger,
	}, nil
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	product := &models.Product{
		Name:          strings.TrimSpace(input.Name),
		Slug:          input.Slug,
		Description:   input.Description,
		CategorySlug:  strings.ToLower(strings.TrimSpace(input.CategorySlug)),
		SKU:           input.SKU,
		Price:         input.Price,
		OriginalPrice: input.OriginalPrice,
		SalePrice:     input.SalePrice,
		StockQuantity: input.StockQuantity,
		TrackStock:    input.TrackStock,
		WeightGrams:   input.WeightGrams,
		IsVisible:     input.IsVisible,
		ImageURLs:     toStringArray(input.ImageURLs),
	}
	if strings.TrimSpace(product.Slug) == "" {
		product.Slug = product.Name
	}
	product.Slug = Slugify(product.Slug)
	if err := validateProduct(product); err != nil {
		return nil, err
	}
	roundMoney(product)

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).Create(ctx, product)
	}); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "slug already in use")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert product")
	}
	s.logg.Info(s.logg.WithField(ctx, "product_id", product.ID.String()), "product created")
	dto := NewProductDTO(*product)
	return &dto, nil
}

func (s *service) UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	product, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	applyUpdate(product, input)
	if err := validateProduct(product); err != nil {
		return nil, err
	}
	roundMoney(product)

	if err := s.repo.Save(ctx, product); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "slug already in use")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update product")
	}
	s.logg.Info(s.logg.WithField(ctx, "product_id", id.String()), "product updated")
	dto := NewProductDTO(*product)
	dto.PendingDelete = s.undo.Pending(undoKey(id))
	return &dto, nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := NewProductDTO(*product)
	dto.PendingDelete = s.undo.Pending(undoKey(id))
	return &dto, nil
}

func (s *service) ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error) {
	records, next, err := s.repo.List(ctx, listQuery{
		CategorySlug: input.CategorySlug,
		Search:       input.Query,
		Pagination:   input.Pagination,
	})
	if err != nil {
		return nil, listError(err)
	}
	out := make([]ProductDTO, 0, len(records))
	for _, record := range records {
		dto := NewProductDTO(record)
		dto.PendingDelete = s.undo.Pending(undoKey(record.ID))
		out = append(out, dto)
	}
	return &ProductListResult{Products: out, NextCursor: next}, nil
}

// DeleteProduct schedules the delete and returns the ticket the admin can
// use to restore the product before it runs.
func (s *service) DeleteProduct(ctx context.Context, id uuid.UUID) (*undo.Ticket, error) {
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	ticket := s.undo.Schedule(undoKey(id), func(runCtx context.Context) error {
		return s.repo.Delete(runCtx, id)
	})
	s.logg.Info(s.logg.WithField(ctx, "product_id", id.String()), "product delete scheduled")
	return &ticket, nil
}

func (s *service) RestoreProduct(ctx context.Context, id uuid.UUID) error {
	if !s.undo.Cancel(undoKey(id)) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "no pending delete for product")
	}
	s.logg.Info(s.logg.WithField(ctx, "product_id", id.String()), "product delete cancelled")
	return nil
}

func (s *service) ListStorefront(ctx context.Context, input ListProductsInput) (*StorefrontListResult, error) {
	records, next, err := s.repo.List(ctx, listQuery{
		VisibleOnly:  true,
		CategorySlug: input.CategorySlug,
		Search:       input.Query,
		ExcludeIDs:   s.pendingDeletes(),
		Pagination:   input.Pagination,
	})
	if err != nil {
		return nil, listError(err)
	}
	live, discount, err := s.promotions(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]StorefrontProductDTO, 0, len(records))
	for _, record := range records {
		out = append(out, NewStorefrontProductDTO(record, pricing.ResolveEffectivePrice(record, live, discount)))
	}
	return &StorefrontListResult{Products: out, NextCursor: next}, nil
}

func (s *service) GetStorefrontProduct(ctx context.Context, slug string) (*StorefrontProductDTO, error) {
	product, err := s.repo.FindVisibleBySlug(ctx, Slugify(slug))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
	}
	if s.undo.Pending(undoKey(product.ID)) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	live, discount, err := s.promotions(ctx)
	if err != nil {
		return nil, err
	}
	dto := NewStorefrontProductDTO(*product, pricing.ResolveEffectivePrice(*product, live, discount))
	return &dto, nil
}

// PriceProducts resolves effective prices for the given ids. Unknown or
// hidden products are absent from the result.
func (s *service) PriceProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]PricedProduct, error) {
	records, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load products")
	}
	live, discount, err := s.promotions(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]PricedProduct, len(records))
	for _, record := range records {
		if !record.IsVisible {
			continue
		}
		out[record.ID] = PricedProduct{
			Product: record,
			Price:   pricing.ResolveEffectivePrice(record, live, discount),
		}
	}
	return out, nil
}

func (s *service) promotions(ctx context.Context) ([]models.FlashSale, types.StoreDiscount, error) {
	live, err := s.flashSales.Active(ctx)
	if err != nil {
		return nil, types.StoreDiscount{}, err
	}
	discount, err := s.settings.StoreDiscount(ctx)
	if err != nil {
		return nil, types.StoreDiscount{}, err
	}
	return live, discount, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
	}
	return product, nil
}

func listError(err error) error {
	if errors.Is(err, pagination.ErrInvalidCursor) {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list products")
}

const undoPrefix = "product:"

func undoKey(id uuid.UUID) string {
	return undoPrefix + id.String()
}

func (s *service) pendingDeletes() []uuid.UUID {
	keys := s.undo.PendingKeys(undoPrefix)
	ids := make([]uuid.UUID, 0, len(keys))
	for _, key := range keys {
		if id, err := uuid.Parse(strings.TrimPrefix(key, undoPrefix)); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases and hyphenates value for use in URLs.
func Slugify(value string) string {
	slug := slugInvalid.ReplaceAllString(strings.ToLower(strings.TrimSpace(value)), "-")
	return strings.Trim(slug, "-")
}

func validateProduct(p *models.Product) error {
	details := map[string]string{}
	if p.Name == "" {
		details["name"] = "is required"
	}
	if p.Slug == "" {
		details["slug"] = "must contain letters or digits"
	}
	if p.CategorySlug == "" {
		details["category_slug"] = "is required"
	}
	if p.Price.IsNegative() {
		details["price"] = "must be zero or greater"
	}
	if p.SalePrice != nil && p.SalePrice.IsNegative() {
		details["sale_price"] = "must be zero or greater"
	}
	if p.OriginalPrice != nil && p.OriginalPrice.IsNegative() {
		details["original_price"] = "must be zero or greater"
	}
	if p.StockQuantity < 0 {
		details["stock_quantity"] = "must be zero or greater"
	}
	if p.WeightGrams < 0 {
		details["weight_grams"] = "must be zero or greater"
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid product").WithDetails(details)
	}
	return nil
}

func roundMoney(p *models.Product) {
	p.Price = p.Price.Round(2)
	if p.SalePrice != nil {
		v := p.SalePrice.Round(2)
		p.SalePrice = &v
	}
	if p.OriginalPrice != nil {
		v := p.OriginalPrice.Round(2)
		p.OriginalPrice = &v
	}
}

func applyUpdate(p *models.Product, input UpdateProductInput) {
	if input.Name != nil {
		p.Name = strings.TrimSpace(*input.Name)
	}
	if input.Slug != nil {
		p.Slug = Slugify(*input.Slug)
	}
	if input.Description != nil {
		p.Description = input.Description
	}
	if input.CategorySlug != nil {
		p.CategorySlug = strings.ToLower(strings.TrimSpace(*input.CategorySlug))
	}
	if input.SKU != nil {
		p.SKU = input.SKU
	}
	if input.Price != nil {
		p.Price = *input.Price
	}
	if input.OriginalPrice != nil {
		p.OriginalPrice = input.OriginalPrice
	}
	if input.ClearSalePrice {
		p.SalePrice = nil
	} else if input.SalePrice != nil {
		p.SalePrice = input.SalePrice
	}
	if input.StockQuantity != nil {
		p.StockQuantity = *input.StockQuantity
	}
	if input.TrackStock != nil {
		p.TrackStock = *input.TrackStock
	}
	if input.WeightGrams != nil {
		p.WeightGrams = *input.WeightGrams
	}
	if input.IsVisible != nil {
		p.IsVisible = *input.IsVisible
	}
	if input.ImageURLs != nil {
		p.ImageURLs = toStringArray(*input.ImageURLs)
	}
}

func toStringArray(values []string) pq.StringArray {
	out := pq.StringArray{}
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
