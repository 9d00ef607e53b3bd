// Package shipping resolves shipping zones and rates for a destination and
// manages the zone, rule and rate records behind them.
package shipping

import (
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/maplecart/storefront-backend/pkg/db/models"
	"github.com/maplecart/storefront-backend/pkg/enums"
	"github.com/maplecart/storefront-backend/pkg/money"
	"github.com/maplecart/storefront-backend/pkg/types"
)

const (
	SourceZone     = "zone"
	SourceFallback = "fallback"
	SourceNone     = "none"

	ReasonNoZone      = "no shipping available"
	ReasonZoneNoRates = "matched zone has no enabled rates"
)

// RateOption is a selectable shipping method with its computed charge.
type RateOption struct {
	RateID        *uuid.UUID       `json:"rate_id,omitempty"`
	MethodName    string           `json:"method_name"`
	RateType      enums.RateType   `json:"rate_type"`
	Amount        decimal.Decimal  `json:"amount"`
	Free          bool             `json:"free"`
	FreeThreshold *decimal.Decimal `json:"free_threshold,omitempty"`
}

// Resolution is the outcome of matching a destination against the zones.
type Resolution struct {
	ZoneID    *uuid.UUID   `json:"zone_id"`
	ZoneName  string       `json:"zone_name,omitempty"`
	Source    string       `json:"source"`
	Available bool         `json:"available"`
	Reason    string       `json:"reason,omitempty"`
	Options   []RateOption `json:"rate_options"`
}

// ResolveShippingRate returns the first enabled zone (highest priority) whose
// rules all match the address, with its enabled rates priced for subtotal.
// With no match it returns the fallback method when enabled, otherwise an
// unavailable resolution. It never errors.
func ResolveShippingRate(addr types.Address, zones []models.ShippingZone, fallback types.FallbackShipping, subtotal decimal.Decimal) Resolution {
	for _, zone := range OrderZones(zones) {
		if !ZoneMatches(zone, addr) {
			continue
		}
		id := zone.ID
		res := Resolution{
			ZoneID:   &id,
			ZoneName: zone.Name,
			Source:   SourceZone,
			Options:  priceRates(zone.Rates, subtotal),
		}
		res.Available = len(res.Options) > 0
		if !res.Available {
			res.Reason = ReasonZoneNoRates
		}
		return res
	}

	if fallback.Enabled {
		return Resolution{
			Source:    SourceFallback,
			Available: true,
			Options: []RateOption{{
				MethodName: fallbackMethodName(fallback),
				RateType:   enums.RateTypeFlatRate,
				Amount:     money.Round(money.ClampZero(fallback.Rate)),
				Free:       !fallback.Rate.IsPositive(),
			}},
		}
	}

	return Resolution{Source: SourceNone, Available: false, Reason: ReasonNoZone, Options: []RateOption{}}
}

// OrderZones keeps enabled zones sorted by priority descending. Ties go to the
// earliest created zone, then the lowest id.
func OrderZones(zones []models.ShippingZone) []models.ShippingZone {
	ordered := make([]models.ShippingZone, 0, len(zones))
	for _, zone := range zones {
		if zone.Enabled {
			ordered = append(ordered, zone)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})
	return ordered
}

// ZoneMatches reports whether every rule of the zone matches the address. A
// zone without rules matches everything.
func ZoneMatches(zone models.ShippingZone, addr types.Address) bool {
	for _, rule := range zone.Rules {
		if !RuleMatches(rule, addr) {
			return false
		}
	}
	return true
}

// RuleMatches evaluates a single rule. A blank country is treated as CA.
// Unknown rule types never match.
func RuleMatches(rule models.ZoneRule, addr types.Address) bool {
	switch rule.RuleType {
	case enums.ZoneRuleTypeCountry:
		return equalFold(rule.RuleValue, addr.CountryCode())
	case enums.ZoneRuleTypeProvince:
		return equalFold(rule.RuleValue, addr.Province)
	case enums.ZoneRuleTypeCity:
		return equalFold(rule.RuleValue, addr.City)
	case enums.ZoneRuleTypePostalCodePattern:
		return MatchPostalPattern(rule.RuleValue, addr.PostalCode)
	}
	return false
}

// MatchPostalPattern matches a postal code against a glob where * stands for
// any run of characters. Matching is anchored, ignores case and ignores
// whitespace, so "M4C*" matches "m4c 1a1".
func MatchPostalPattern(pattern, postal string) bool {
	p := normalizePostal(pattern)
	s := normalizePostal(postal)
	if p == "" || s == "" {
		return false
	}
	return globMatch(p, s)
}

// RateCharge prices one rate for the subtotal. A free_threshold rate is free
// once subtotal reaches the threshold; without a threshold it always charges.
func RateCharge(rate models.ZoneRate, subtotal decimal.Decimal) decimal.Decimal {
	amount := money.Round(money.ClampZero(rate.RateAmount))
	if rate.RateType == enums.RateTypeFreeThreshold && rate.FreeThreshold != nil {
		if subtotal.GreaterThanOrEqual(*rate.FreeThreshold) {
			return decimal.Zero
		}
	}
	return amount
}

func priceRates(rates []models.ZoneRate, subtotal decimal.Decimal) []RateOption {
	enabled := make([]models.ZoneRate, 0, len(rates))
	for _, rate := range rates {
		if rate.Enabled {
			enabled = append(enabled, rate)
		}
	}
	sort.SliceStable(enabled, func(i, j int) bool {
		return enabled[i].Position < enabled[j].Position
	})

	options := make([]RateOption, 0, len(enabled))
	for _, rate := range enabled {
		id := rate.ID
		charge := RateCharge(rate, subtotal)
		options = append(options, RateOption{
			RateID:        &id,
			MethodName:    rate.MethodName,
			RateType:      rate.RateType,
			Amount:        charge,
			Free:          charge.IsZero(),
			FreeThreshold: rate.FreeThreshold,
		})
	}
	return options
}

func fallbackMethodName(fallback types.FallbackShipping) string {
	if name := strings.TrimSpace(fallback.MethodName); name != "" {
		return name
	}
	return "Standard Shipping"
}

func equalFold(want, got string) bool {
	w := strings.TrimSpace(want)
	return w != "" && strings.EqualFold(w, strings.TrimSpace(got))
}

func normalizePostal(value string) string {
	return strings.ToUpper(strings.Join(strings.Fields(value), ""))
}

// globMatch supports only '*'. Every other byte is literal.
func globMatch(pattern, s string) bool {
	parts := strings.Split(pattern, "*")
	if len(parts) == 1 {
		return pattern == s
	}
	if !strings.HasPrefix(s, parts[0]) {
		return false
	}
	s = s[len(parts[0]):]
	last := parts[len(parts)-1]
	for _, mid := range parts[1 : len(parts)-1] {
		idx := strings.Index(s, mid)
		if idx < 0 {
			return false
		}
		s = s[idx+len(mid):]
	}
	return strings.HasSuffix(s, last)
}
