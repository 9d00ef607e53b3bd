package shipping

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/maplecart/storefront-backend/pkg/db"
	"github.com/maplecart/storefront-backend/pkg/db/models"
	"github.com/maplecart/storefront-backend/pkg/enums"
	pkgerrors "github.com/maplecart/storefront-backend/pkg/errors"
	"github.com/maplecart/storefront-backend/pkg/logger"
	"github.com/maplecart/storefront-backend/pkg/types"
)

// Service manages shipping zones and quotes destinations against them.
type Service interface {
	ListZones(ctx context.Context) ([]ZoneDTO, error)
	GetZone(ctx context.Context, id uuid.UUID) (*ZoneDTO, error)
	CreateZone(ctx context.Context, input ZoneInput) (*ZoneDTO, error)
	UpdateZone(ctx context.Context, id uuid.UUID, input ZoneUpdateInput) (*ZoneDTO, error)
	DeleteZone(ctx context.Context, id uuid.UUID) error
	ReplaceRules(ctx context.Context, id uuid.UUID, rules []RuleInput) (*ZoneDTO, error)
	ReplaceRates(ctx context.Context, id uuid.UUID, rates []RateInput) (*ZoneDTO, error)
	Quote(ctx context.Context, addr types.Address, subtotal decimal.Decimal) (Resolution, error)
}

// ZoneInput creates a zone with optional initial rules and rates.
type ZoneInput struct {
	Name        string
	Description *string
	Priority    int
	Enabled     bool
	Rules       []RuleInput
	Rates       []RateInput
}

// ZoneUpdateInput carries optional zone column changes.
type ZoneUpdateInput struct {
	Name        *string
	Description *string
	Priority    *int
	Enabled     *bool
}

type RuleInput struct {
	RuleType  enums.ZoneRuleType
	RuleValue string
}

type RateInput struct {
	MethodName    string
	RateType      enums.RateType
	RateAmount    decimal.Decimal
	FreeThreshold *decimal.Decimal
	Enabled       bool
}

type fallbackReader interface {
	FallbackShipping(ctx context.Context) (types.FallbackShipping, error)
}

type service struct {
	repo     *Repository
	dbClient *db.Client
	settings fallbackReader
	logg     *logger.Logger
}

// NewService constructs the shipping service.
func NewService(repo *Repository, dbClient *db.Client, settings fallbackReader, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("shipping repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if settings == nil {
		return nil, fmt.Errorf("settings reader required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, dbClient: dbClient, settings: settings, logg: logg}, nil
}

func (s *service) ListZones(ctx context.Context) ([]ZoneDTO, error) {
	zones, err := s.repo.ListZones(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list zones")
	}
	out := make([]ZoneDTO, 0, len(zones))
	for _, zone := range zones {
		out = append(out, NewZoneDTO(zone))
	}
	return out, nil
}

func (s *service) GetZone(ctx context.Context, id uuid.UUID) (*ZoneDTO, error) {
	zone, err := s.loadZone(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := NewZoneDTO(*zone)
	return &dto, nil
}

func (s *service) CreateZone(ctx context.Context, input ZoneInput) (*ZoneDTO, error) {
	zone := &models.ShippingZone{
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		Priority:    input.Priority,
		Enabled:     input.Enabled,
	}
	details := map[string]string{}
	if zone.Name == "" {
		details["name"] = "is required"
	}
	rules, ruleErrs := buildRules(input.Rules)
	rates, rateErrs := buildRates(input.Rates)
	mergeDetails(details, ruleErrs)
	mergeDetails(details, rateErrs)
	if len(details) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid shipping zone").WithDetails(details)
	}
	zone.Rules = rules
	zone.Rates = rates

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).CreateZone(ctx, zone)
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert zone")
	}
	s.logg.Info(s.logg.WithField(ctx, "zone_id", zone.ID.String()), "shipping zone created")
	return s.GetZone(ctx, zone.ID)
}

func (s *service) UpdateZone(ctx context.Context, id uuid.UUID, input ZoneUpdateInput) (*ZoneDTO, error) {
	zone, err := s.loadZone(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Name != nil {
		zone.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		zone.Description = input.Description
	}
	if input.Priority != nil {
		zone.Priority = *input.Priority
	}
	if input.Enabled != nil {
		zone.Enabled = *input.Enabled
	}
	if zone.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid shipping zone").
			WithDetails(map[string]string{"name": "is required"})
	}
	if err := s.repo.UpdateZone(ctx, zone); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update zone")
	}
	return s.GetZone(ctx, id)
}

func (s *service) DeleteZone(ctx context.Context, id uuid.UUID) error {
	var deleted bool
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		deleted, err = s.repo.WithTx(tx).DeleteZone(ctx, id)
		return err
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete zone")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "shipping zone not found")
	}
	s.logg.Info(s.logg.WithField(ctx, "zone_id", id.String()), "shipping zone deleted")
	return nil
}

func (s *service) ReplaceRules(ctx context.Context, id uuid.UUID, inputs []RuleInput) (*ZoneDTO, error) {
	if _, err := s.loadZone(ctx, id); err != nil {
		return nil, err
	}
	rules, details := buildRules(inputs)
	if len(details) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid zone rules").WithDetails(details)
	}
	for i := range rules {
		rules[i].ZoneID = id
	}
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).ReplaceRules(ctx, id, rules)
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: replace zone rules")
	}
	return s.GetZone(ctx, id)
}

func (s *service) ReplaceRates(ctx context.Context, id uuid.UUID, inputs []RateInput) (*ZoneDTO, error) {
	if _, err := s.loadZone(ctx, id); err != nil {
		return nil, err
	}
	rates, details := buildRates(inputs)
	if len(details) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid zone rates").WithDetails(details)
	}
	for i := range rates {
		rates[i].ZoneID = id
	}
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).ReplaceRates(ctx, id, rates)
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: replace zone rates")
	}
	return s.GetZone(ctx, id)
}

// Quote resolves the shipping options for a destination and cart subtotal.
func (s *service) Quote(ctx context.Context, addr types.Address, subtotal decimal.Decimal) (Resolution, error) {
	zones, err := s.repo.ListEnabledZones(ctx)
	if err != nil {
		return Resolution{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list zones")
	}
	fallback, err := s.settings.FallbackShipping(ctx)
	if err != nil {
		return Resolution{}, err
	}
	res := ResolveShippingRate(addr, zones, fallback, subtotal)
	s.logg.Debug(s.logg.WithFields(ctx, map[string]any{
		"country":   addr.CountryCode(),
		"source":    res.Source,
		"available": res.Available,
	}), "shipping quote resolved")
	return res, nil
}

func (s *service) loadZone(ctx context.Context, id uuid.UUID) (*models.ShippingZone, error) {
	zone, err := s.repo.FindZone(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shipping zone not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load zone")
	}
	return zone, nil
}

func buildRules(inputs []RuleInput) ([]models.ZoneRule, map[string]string) {
	details := map[string]string{}
	rules := make([]models.ZoneRule, 0, len(inputs))
	for i, in := range inputs {
		key := "rules[" + strconv.Itoa(i) + "]"
		value := strings.TrimSpace(in.RuleValue)
		switch {
		case !in.RuleType.IsValid():
			details[key+".rule_type"] = "must be country, province, city or postal_code_pattern"
		case value == "":
			details[key+".rule_value"] = "is required"
		}
		rules = append(rules, models.ZoneRule{RuleType: in.RuleType, RuleValue: value, Position: i})
	}
	return rules, details
}

func buildRates(inputs []RateInput) ([]models.ZoneRate, map[string]string) {
	details := map[string]string{}
	rates := make([]models.ZoneRate, 0, len(inputs))
	for i, in := range inputs {
		key := "rates[" + strconv.Itoa(i) + "]"
		name := strings.TrimSpace(in.MethodName)
		if name == "" {
			details[key+".method_name"] = "is required"
		}
		if !in.RateType.IsValid() {
			details[key+".rate_type"] = "must be flat_rate or free_threshold"
		}
		if in.RateAmount.IsNegative() {
			details[key+".rate_amount"] = "must be zero or greater"
		}
		if in.FreeThreshold != nil && in.FreeThreshold.IsNegative() {
			details[key+".free_threshold"] = "must be zero or greater"
		}
		rate := models.ZoneRate{
			MethodName: name,
			RateType:   in.RateType,
			RateAmount: in.RateAmount.Round(2),
			Enabled:    in.Enabled,
			Position:   i,
		}
		if in.FreeThreshold != nil {
			threshold := in.FreeThreshold.Round(2)
			rate.FreeThreshold = &threshold
		}
		rates = append(rates, rate)
	}
	return rates, details
}

func mergeDetails(dst, src map[string]string) {
	for k, v := range src {
		dst[k] = v
	}
}
