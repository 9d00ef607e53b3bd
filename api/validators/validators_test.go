package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/maplecart/storefront-backend/pkg/errors"
)

type samplePayload struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
	Kind  string `json:"kind" validate:"omitempty,oneof=a b"`
}

func TestDecodeJSONBodyReportsJSONFieldNames(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"nope","kind":"c"}`))

	var payload samplePayload
	err := DecodeJSONBody(req, &payload)
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "is required", details["name"])
	assert.Equal(t, "must be a valid email", details["email"])
	assert.Equal(t, "must be one of a b", details["kind"])
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x","email":"a@b.co","extra":1}`))

	var payload samplePayload
	err := DecodeJSONBody(req, &payload)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestParsePagination(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=10&cursor=abc", nil)
	params, err := ParsePagination(req)
	require.NoError(t, err)
	assert.Equal(t, 10, params.Limit)
	assert.Equal(t, "abc", params.Cursor)

	_, err = ParsePagination(httptest.NewRequest(http.MethodGet, "/?limit=500", nil))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestParseQueryBool(t *testing.T) {
	value, err := ParseQueryBool(httptest.NewRequest(http.MethodGet, "/?all=true", nil), "all", false)
	require.NoError(t, err)
	assert.True(t, value)

	_, err = ParseQueryBool(httptest.NewRequest(http.MethodGet, "/?all=maybe", nil), "all", false)
	assert.Error(t, err)
}

func TestParseUUIDParam(t *testing.T) {
	withParam := func(value string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rc := chi.NewRouteContext()
		rc.URLParams.Add("id", value)
		return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
	}

	_, err := ParseUUIDParam(withParam("not-a-uuid"), "id")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	id, err := ParseUUIDParam(withParam("6f1c1c52-2f0c-4a8e-9d55-2f4f2a0c9b11"), "id")
	require.NoError(t, err)
	assert.Equal(t, "6f1c1c52-2f0c-4a8e-9d55-2f4f2a0c9b11", id.String())
}

func TestSanitizeStringCutsOnRunes(t *testing.T) {
	assert.Equal(t, "crème", SanitizeString("  crème brûlée ", 5))
	assert.Equal(t, "ab", SanitizeString("a\x00b\n", 0))
	assert.Equal(t, "", SanitizeString("   ", 10))
}

type nestedPayload struct {
	Package struct {
		WeightGrams int `json:"weight_grams" validate:"gt=0"`
	} `json:"package"`
	Items []struct {
		Quantity int `json:"quantity" validate:"min=1"`
	} `json:"items" validate:"dive"`
}

func TestDecodeJSONBodyReportsNestedPaths(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"package":{"weight_grams":0},"items":[{"quantity":0}]}`))

	var payload nestedPayload
	err := DecodeJSONBody(req, &payload)
	require.Error(t, err)
	details, ok := pkgerrors.As(err).Details().(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "must be greater than 0", details["package.weight_grams"])
	assert.Equal(t, "must be at least 1", details["items[0].quantity"])
}

func TestDecodeJSONBodyRejectsEmptyAndTrailingBodies(t *testing.T) {
	var payload samplePayload
	err := DecodeJSONBody(httptest.NewRequest(http.MethodPost, "/", strings.NewReader("")), &payload)
	require.Error(t, err)
	assert.Equal(t, "request body is empty", pkgerrors.As(err).Message())

	err = DecodeJSONBody(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x","email":"a@b.co"}{}`)), &payload)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestDecodeJSONBodyEnforcesSizeLimit(t *testing.T) {
	big := `{"name":"` + strings.Repeat("x", MaxJSONBodyBytes) + `","email":"a@b.co"}`
	var payload samplePayload
	err := DecodeJSONBody(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(big)), &payload)
	require.Error(t, err)
	assert.Contains(t, pkgerrors.As(err).Message(), "exceeds")
}
