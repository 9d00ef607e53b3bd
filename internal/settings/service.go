// Package settings serves the store-wide singletons: the store discount and
// the fallback shipping method. Reads go through a Redis cache that every
// write invalidates.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/maplecart/storefront-backend/pkg/db/models"
	pkgerrors "github.com/maplecart/storefront-backend/pkg/errors"
	"github.com/maplecart/storefront-backend/pkg/logger"
	"github.com/maplecart/storefront-backend/pkg/types"
)

const (
	KeyStoreDiscount    = "store_discount"
	KeyFallbackShipping = "fallback_shipping"

	defaultCacheTTL = 10 * time.Minute
)

var maxPercentage = decimal.NewFromInt(100)

// Service reads and writes the singleton settings.
type Service interface {
	StoreDiscount(ctx context.Context) (types.StoreDiscount, error)
	UpdateStoreDiscount(ctx context.Context, actor string, input types.StoreDiscount) (types.StoreDiscount, error)
	FallbackShipping(ctx context.Context) (types.FallbackShipping, error)
	UpdateFallbackShipping(ctx context.Context, actor string, input types.FallbackShipping) (types.FallbackShipping, error)
}

type settingsStore interface {
	Get(ctx context.Context, key string) (*models.StoreSetting, error)
	Upsert(ctx context.Context, setting *models.StoreSetting) error
}

type cacheStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CacheKey(parts ...string) string
}

// ServiceParams wires the settings service.
type ServiceParams struct {
	Repo     settingsStore
	Cache    cacheStore
	Logger   *logger.Logger
	CacheTTL time.Duration
}

type service struct {
	repo  settingsStore
	cache cacheStore
	logg  *logger.Logger
	ttl   time.Duration
}

// NewService builds the settings service. Cache is optional.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("settings repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	ttl := params.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &service{repo: params.Repo, cache: params.Cache, logg: params.Logger, ttl: ttl}, nil
}

func (s *service) StoreDiscount(ctx context.Context) (types.StoreDiscount, error) {
	var out types.StoreDiscount
	if err := s.load(ctx, KeyStoreDiscount, &out); err != nil {
		return types.StoreDiscount{}, err
	}
	return out, nil
}

func (s *service) UpdateStoreDiscount(ctx context.Context, actor string, input types.StoreDiscount) (types.StoreDiscount, error) {
	if err := ValidateStoreDiscount(input); err != nil {
		return types.StoreDiscount{}, err
	}
	input.Percentage = input.Percentage.Round(2)
	if err := s.save(ctx, KeyStoreDiscount, actor, input); err != nil {
		return types.StoreDiscount{}, err
	}
	return input, nil
}

func (s *service) FallbackShipping(ctx context.Context) (types.FallbackShipping, error) {
	out := types.FallbackShipping{MethodName: "Standard Shipping"}
	if err := s.load(ctx, KeyFallbackShipping, &out); err != nil {
		return types.FallbackShipping{}, err
	}
	return out, nil
}

func (s *service) UpdateFallbackShipping(ctx context.Context, actor string, input types.FallbackShipping) (types.FallbackShipping, error) {
	input.MethodName = strings.TrimSpace(input.MethodName)
	if err := ValidateFallbackShipping(input); err != nil {
		return types.FallbackShipping{}, err
	}
	input.Rate = input.Rate.Round(2)
	if err := s.save(ctx, KeyFallbackShipping, actor, input); err != nil {
		return types.FallbackShipping{}, err
	}
	return input, nil
}

// ValidateStoreDiscount rejects percentages outside [0, 100].
func ValidateStoreDiscount(input types.StoreDiscount) error {
	if input.Percentage.IsNegative() || input.Percentage.GreaterThan(maxPercentage) {
		return pkgerrors.New(pkgerrors.CodeValidation, "percentage must be between 0 and 100").
			WithDetails(map[string]string{"percentage": "must be between 0 and 100"})
	}
	return nil
}

// ValidateFallbackShipping rejects negative rates and an enabled fallback
// without a method name.
func ValidateFallbackShipping(input types.FallbackShipping) error {
	details := map[string]string{}
	if input.Rate.IsNegative() {
		details["rate"] = "must be zero or greater"
	}
	if input.Enabled && input.MethodName == "" {
		details["method_name"] = "is required when fallback shipping is enabled"
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid fallback shipping").WithDetails(details)
	}
	return nil
}

func (s *service) load(ctx context.Context, key string, dest any) error {
	cacheKey := s.cacheKey(key)
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, cacheKey)
		switch {
		case err == nil:
			if jsonErr := json.Unmarshal([]byte(raw), dest); jsonErr == nil {
				return nil
			}
			s.logg.Warn(s.logg.WithField(ctx, "setting", key), "discarding undecodable cached setting")
		case !errors.Is(err, redis.Nil):
			s.logg.Warn(s.logg.WithField(ctx, "setting", key), "settings cache read failed; using database")
		}
	}

	row, err := s.repo.Get(ctx, key)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load setting")
	}
	if row != nil {
		if err := decodeValue(row.Value, dest); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode setting")
		}
	}

	if s.cache != nil {
		if payload, err := json.Marshal(dest); err == nil {
			if err := s.cache.Set(ctx, cacheKey, string(payload), s.ttl); err != nil {
				s.logg.Warn(s.logg.WithField(ctx, "setting", key), "settings cache write failed")
			}
		}
	}
	return nil
}

func (s *service) save(ctx context.Context, key, actor string, value any) error {
	encoded, err := encodeValue(value)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode setting")
	}
	row := &models.StoreSetting{Key: key, Value: encoded, UpdatedAt: time.Now().UTC()}
	if strings.TrimSpace(actor) != "" {
		row.UpdatedBy = &actor
	}
	if err := s.repo.Upsert(ctx, row); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: save setting")
	}
	s.invalidate(ctx, key)
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"setting": key, "actor": actor}), "setting updated")
	return nil
}

func (s *service) invalidate(ctx context.Context, key string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, s.cacheKey(key)); err != nil {
		s.logg.Error(s.logg.WithField(ctx, "setting", key), "settings cache invalidation failed", err)
	}
}

func (s *service) cacheKey(key string) string {
	if s.cache == nil {
		return key
	}
	return s.cache.CacheKey("settings", key)
}

func encodeValue(value any) (types.JSONMap, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var out types.JSONMap
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeValue(value types.JSONMap, dest any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}
