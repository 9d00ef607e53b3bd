package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/maplecart/storefront-backend/api/responses"
	"github.com/maplecart/storefront-backend/api/validators"
	productsvc "github.com/maplecart/storefront-backend/internal/products"
	pkgerrors "github.com/maplecart/storefront-backend/pkg/errors"
	"github.com/maplecart/storefront-backend/pkg/logger"
	"github.com/maplecart/storefront-backend/pkg/types"
)

// StorefrontProducts lists visible products with their resolved prices.
func StorefrontProducts(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		input, err := listProductsInput(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListStorefront(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// StorefrontProduct returns one visible product by slug.
func StorefrontProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		slug := strings.TrimSpace(chi.URLParam(r, "slug"))
		if slug == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "slug is required"))
			return
		}

		product, err := svc.GetStorefrontProduct(r.Context(), slug)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// AdminListProducts pages the full catalog including hidden products.
func AdminListProducts(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		input, err := listProductsInput(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListProducts(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func AdminCreateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.CreateProduct(r.Context(), payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

func AdminUpdateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.UpdateProduct(r.Context(), id, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// AdminDeleteProduct schedules the delete and returns the undo ticket.
func AdminDeleteProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ticket, err := svc.DeleteProduct(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, ticket)
	}
}

func AdminRestoreProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.RestoreProduct(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.GetProduct(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func listProductsInput(r *http.Request) (productsvc.ListProductsInput, error) {
	params, err := validators.ParsePagination(r)
	if err != nil {
		return productsvc.ListProductsInput{}, err
	}
	return productsvc.ListProductsInput{
		CategorySlug: strings.TrimSpace(r.URL.Query().Get("category")),
		Query:        validators.SanitizeString(r.URL.Query().Get("q"), 100),
		Pagination:   params,
	}, nil
}

type createProductRequest struct {
	Name          string           `json:"name" validate:"required,max=200"`
	Slug          string           `json:"slug" validate:"omitempty,max=200"`
	Description   *string          `json:"description,omitempty"`
	CategorySlug  string           `json:"category_slug" validate:"required,max=100"`
	SKU           *string          `json:"sku,omitempty"`
	Price         decimal.Decimal  `json:"price"`
	OriginalPrice *decimal.Decimal `json:"original_price,omitempty"`
	SalePrice     *decimal.Decimal `json:"sale_price,omitempty"`
	StockQuantity int              `json:"stock_quantity" validate:"gte=0"`
	TrackStock    *bool            `json:"track_stock,omitempty"`
	WeightGrams   int              `json:"weight_grams" validate:"gte=0"`
	IsVisible     *bool            `json:"is_visible,omitempty"`
	ImageURLs     []string         `json:"image_urls,omitempty" validate:"omitempty,dive,url"`
}

func (req createProductRequest) toInput() productsvc.CreateProductInput {
	input := productsvc.CreateProductInput{
		Name:          strings.TrimSpace(req.Name),
		Slug:          strings.TrimSpace(req.Slug),
		Description:   trimmedPtr(req.Description),
		CategorySlug:  strings.TrimSpace(req.CategorySlug),
		SKU:           trimmedPtr(req.SKU),
		Price:         req.Price,
		OriginalPrice: req.OriginalPrice,
		SalePrice:     req.SalePrice,
		StockQuantity: req.StockQuantity,
		TrackStock:    true,
		WeightGrams:   req.WeightGrams,
		IsVisible:     true,
		ImageURLs:     req.ImageURLs,
	}
	if req.TrackStock != nil {
		input.TrackStock = *req.TrackStock
	}
	if req.IsVisible != nil {
		input.IsVisible = *req.IsVisible
	}
	return input
}

// updateProductRequest leaves omitted fields alone. An explicit null
// sale_price clears the sale.
type updateProductRequest struct {
	Name          *string                         `json:"name,omitempty" validate:"omitempty,max=200"`
	Slug          *string                         `json:"slug,omitempty" validate:"omitempty,max=200"`
	Description   *string                         `json:"description,omitempty"`
	CategorySlug  *string                         `json:"category_slug,omitempty" validate:"omitempty,max=100"`
	SKU           *string                         `json:"sku,omitempty"`
	Price         *decimal.Decimal                `json:"price,omitempty"`
	OriginalPrice *decimal.Decimal                `json:"original_price,omitempty"`
	SalePrice     types.Nullable[decimal.Decimal] `json:"sale_price"`
	StockQuantity *int                            `json:"stock_quantity,omitempty" validate:"omitempty,gte=0"`
	TrackStock    *bool                           `json:"track_stock,omitempty"`
	WeightGrams   *int                            `json:"weight_grams,omitempty" validate:"omitempty,gte=0"`
	IsVisible     *bool                           `json:"is_visible,omitempty"`
	ImageURLs     *[]string                       `json:"image_urls,omitempty"`
}

func (req updateProductRequest) toInput() productsvc.UpdateProductInput {
	return productsvc.UpdateProductInput{
		Name:           trimmedPtr(req.Name),
		Slug:           trimmedPtr(req.Slug),
		Description:    trimmedPtr(req.Description),
		CategorySlug:   trimmedPtr(req.CategorySlug),
		SKU:            trimmedPtr(req.SKU),
		Price:          req.Price,
		OriginalPrice:  req.OriginalPrice,
		SalePrice:      req.SalePrice.Value,
		ClearSalePrice: req.SalePrice.Cleared(),
		StockQuantity:  req.StockQuantity,
		TrackStock:     req.TrackStock,
		WeightGrams:    req.WeightGrams,
		IsVisible:      req.IsVisible,
		ImageURLs:      req.ImageURLs,
	}
}
