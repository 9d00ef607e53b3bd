package controllers

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maplecart/storefront-backend/internal/shipping"
	"github.com/maplecart/storefront-backend/pkg/db/models"
	"github.com/maplecart/storefront-backend/pkg/enums"
	pkgerrors "github.com/maplecart/storefront-backend/pkg/errors"
	"github.com/maplecart/storefront-backend/pkg/types"
)

type stubShipping struct {
	shipping.Service
	zones []models.ShippingZone
	addr  types.Address
	calls int
}

func (s *stubShipping) Quote(_ context.Context, addr types.Address, subtotal decimal.Decimal) (shipping.Resolution, error) {
	s.calls++
	s.addr = addr
	return shipping.ResolveShippingRate(addr, s.zones, types.FallbackShipping{}, subtotal), nil
}

func canadaZone() models.ShippingZone {
	return models.ShippingZone{
		ID:       uuid.New(),
		Name:     "Canada",
		Priority: 100,
		Enabled:  true,
		Rules:    []models.ZoneRule{{ID: uuid.New(), RuleType: enums.ZoneRuleTypeCountry, RuleValue: "CA"}},
		Rates: []models.ZoneRate{{
			ID:         uuid.New(),
			MethodName: "Standard",
			RateType:   enums.RateTypeFlatRate,
			RateAmount: decimal.RequireFromString("9.99"),
			Enabled:    true,
		}},
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestShippingQuoteDefaultsMissingCountry(t *testing.T) {
	ca := canadaZone()
	svc := &stubShipping{zones: []models.ShippingZone{ca}}
	body := `{"address":{"city":"Toronto","province":"ON","postal_code":"M4C1A1"},"subtotal":"10"}`

	rec := serve(t, http.MethodPost, "/shipping/quote", "/shipping/quote", ShippingQuote(svc, nil), strings.NewReader(body), jsonHeader())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "CA", svc.addr.Country)

	data := decodeData(t, rec)
	assert.Equal(t, true, data["available"])
	assert.Equal(t, ca.ID.String(), data["zone_id"])
}

func TestShippingQuoteRejectsNegativeSubtotal(t *testing.T) {
	svc := &stubShipping{}
	body := `{"address":{"city":"Toronto","country":"CA"},"subtotal":"-1"}`

	rec := serve(t, http.MethodPost, "/shipping/quote", "/shipping/quote", ShippingQuote(svc, nil), strings.NewReader(body), jsonHeader())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeValidation), decodeErrorCode(t, rec))
	assert.Zero(t, svc.calls)
}
