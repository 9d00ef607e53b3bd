// Package chitchats is a thin client for the ChitChats shipping API: rate
// shopping, shipment creation and label purchase. Calls are never retried.
package chitchats

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/maplecart/storefront-backend/pkg/errors"
)

const (
	defaultBaseURL = "https://chitchats.com/api/v1"
	defaultTimeout = 20 * time.Second

	postageUnknown = "unknown"
	errorBodyLimit = 512
)

var (
	errClientIDRequired    = errors.New("chitchats client id is required")
	errAccessTokenRequired = errors.New("chitchats access token is required")
)

// Client talks to one ChitChats client account.
type Client struct {
	http     *resty.Client
	clientID string
	observe  func(operation string, started time.Time, err error)
}

// Option configures optional client behavior.
type Option func(*Client)

// WithBaseURL overrides the API root.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			c.http.SetBaseURL(strings.TrimRight(trimmed, "/"))
		}
	}
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.http.SetTimeout(timeout)
		}
	}
}

// WithObserver receives every call outcome, for metrics.
func WithObserver(fn func(operation string, started time.Time, err error)) Option {
	return func(c *Client) {
		c.observe = fn
	}
}

// NewClient builds a client for the given account credentials.
func NewClient(clientID, accessToken string, opts ...Option) (*Client, error) {
	clientID = strings.TrimSpace(clientID)
	accessToken = strings.TrimSpace(accessToken)
	if clientID == "" {
		return nil, errClientIDRequired
	}
	if accessToken == "" {
		return nil, errAccessTokenRequired
	}

	httpClient := resty.New().
		SetBaseURL(defaultBaseURL).
		SetTimeout(defaultTimeout).
		SetHeader("Authorization", accessToken).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetRetryCount(0)

	client := &Client{http: httpClient, clientID: clientID}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// Package describes the parcel being shipped.
type Package struct {
	WeightGrams int
	LengthCM    decimal.Decimal
	WidthCM     decimal.Decimal
	HeightCM    decimal.Decimal
	Value       decimal.Decimal
	Currency    string
	Contents    string
	Description string
}

// Destination is the recipient address.
type Destination struct {
	Name         string
	Address1     string
	Address2     string
	City         string
	ProvinceCode string
	PostalCode   string
	CountryCode  string
	Phone        string
}

// RateRequest prices a package to a destination.
type RateRequest struct {
	Destination Destination
	Package     Package
	OrderID     string
}

// Rate is one purchasable service.
type Rate struct {
	PostageType        string          `json:"postage_type"`
	Description        string          `json:"description"`
	Price              decimal.Decimal `json:"price"`
	Currency           string          `json:"currency"`
	DeliveryEstimate   string          `json:"delivery_estimate"`
	TrackingAvailable  bool            `json:"tracking_available"`
	SignatureRequested bool            `json:"signature_requested"`
}

// ShipmentRequest creates and buys a shipment with the chosen service.
type ShipmentRequest struct {
	RateRequest
	PostageType string
}

// Shipment is the carrier's view of a purchased shipment.
type Shipment struct {
	ID             string `json:"id"`
	Status         string `json:"status"`
	TrackingNumber string `json:"tracking_number"`
	TrackingURL    string `json:"tracking_url"`
	LabelURL       string `json:"label_url"`
	PostageType    string `json:"postage_type"`
}

type shipmentPayload struct {
	Name            string `json:"name"`
	Address1        string `json:"address_1"`
	Address2        string `json:"address_2,omitempty"`
	City            string `json:"city"`
	ProvinceCode    string `json:"province_code"`
	PostalCode      string `json:"postal_code"`
	CountryCode     string `json:"country_code"`
	Phone           string `json:"phone,omitempty"`
	PackageContents string `json:"package_contents"`
	Description     string `json:"description"`
	Value           string `json:"value"`
	ValueCurrency   string `json:"value_currency"`
	OrderID         string `json:"order_id,omitempty"`
	PackageType     string `json:"package_type"`
	WeightUnit      string `json:"weight_unit"`
	Weight          int    `json:"weight"`
	SizeUnit        string `json:"size_unit"`
	SizeX           string `json:"size_x"`
	SizeY           string `json:"size_y"`
	SizeZ           string `json:"size_z"`
	PostageType     string `json:"postage_type"`
	ShipDate        string `json:"ship_date"`
}

type apiRate struct {
	PostageType             string `json:"postage_type"`
	PostageDescription      string `json:"postage_description"`
	PaymentAmount           string `json:"payment_amount"`
	PostageFee              string `json:"postage_fee"`
	Currency                string `json:"currency_code"`
	DeliveryTimeDescription string `json:"delivery_time_description"`
	TrackingTypeDescription string `json:"tracking_type_description"`
	SignatureConfirmation   bool   `json:"is_signature_confirmation"`
}

type apiShipment struct {
	ID                 string    `json:"id"`
	Status             string    `json:"status"`
	TrackingCode       string    `json:"tracking_code"`
	TrackingURL        string    `json:"tracking_url"`
	PostageType        string    `json:"postage_type"`
	PostageLabelPDFURL string    `json:"postage_label_pdf_url"`
	PostageLabelPNGURL string    `json:"postage_label_png_url"`
	Rates              []apiRate `json:"rates"`
}

type shipmentEnvelope struct {
	Shipment apiShipment `json:"shipment"`
}

// Rates creates a draft shipment to obtain quotes and deletes it again.
func (c *Client) Rates(ctx context.Context, req RateRequest) ([]Rate, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "chitchats client not configured")
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	draft, err := c.create(ctx, "rates", buildPayload(req, postageUnknown))
	if err != nil {
		return nil, err
	}
	defer c.deleteDraft(ctx, draft.ID)

	rates := make([]Rate, 0, len(draft.Rates))
	for _, r := range draft.Rates {
		rates = append(rates, r.toRate())
	}
	return rates, nil
}

// CreateShipment creates the shipment, buys the label and returns the
// tracking details. A failure at any step is one dependency error.
func (c *Client) CreateShipment(ctx context.Context, req ShipmentRequest) (*Shipment, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "chitchats client not configured")
	}
	if err := validateRequest(req.RateRequest); err != nil {
		return nil, err
	}
	postage := strings.TrimSpace(req.PostageType)
	if postage == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "postage type is required")
	}

	created, err := c.create(ctx, "create_shipment", buildPayload(req.RateRequest, postage))
	if err != nil {
		return nil, err
	}
	if err := c.buy(ctx, created.ID, postage); err != nil {
		return nil, err
	}
	bought, err := c.get(ctx, created.ID)
	if err != nil {
		return nil, err
	}
	return bought.toShipment(), nil
}

// GetShipment reloads a shipment, e.g. to pick up a label generated later.
func (c *Client) GetShipment(ctx context.Context, id string) (*Shipment, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "chitchats client not configured")
	}
	shipment, err := c.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return shipment.toShipment(), nil
}

func (c *Client) create(ctx context.Context, operation string, payload shipmentPayload) (*apiShipment, error) {
	var envelope shipmentEnvelope
	started := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&envelope).
		Post(c.path("shipments"))
	err = checkResponse(resp, err, "create shipment", http.StatusOK, http.StatusCreated)
	c.record(operation, started, err)
	if err != nil {
		return nil, err
	}
	if envelope.Shipment.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "chitchats create shipment returned no id")
	}
	return &envelope.Shipment, nil
}

func (c *Client) buy(ctx context.Context, id, postage string) error {
	started := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"postage_type": postage}).
		Patch(c.path("shipments", id, "buy"))
	err = checkResponse(resp, err, "buy shipment", http.StatusOK, http.StatusNoContent)
	c.record("buy_shipment", started, err)
	return err
}

func (c *Client) get(ctx context.Context, id string) (*apiShipment, error) {
	var envelope shipmentEnvelope
	started := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&envelope).
		Get(c.path("shipments", id))
	err = checkResponse(resp, err, "get shipment", http.StatusOK)
	c.record("get_shipment", started, err)
	if err != nil {
		return nil, err
	}
	return &envelope.Shipment, nil
}

// deleteDraft is best effort; drafts left behind expire on the carrier side.
func (c *Client) deleteDraft(ctx context.Context, id string) {
	started := time.Now()
	resp, err := c.http.R().SetContext(ctx).Delete(c.path("shipments", id))
	c.record("delete_shipment", started, checkResponse(resp, err, "delete shipment", http.StatusOK, http.StatusNoContent))
}

func (c *Client) path(parts ...string) string {
	return "/clients/" + c.clientID + "/" + strings.Join(parts, "/")
}

func (c *Client) record(operation string, started time.Time, err error) {
	if c.observe != nil {
		c.observe(operation, started, err)
	}
}

func checkResponse(resp *resty.Response, err error, action string, ok ...int) error {
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "chitchats "+action+" failed")
	}
	for _, code := range ok {
		if resp.StatusCode() == code {
			return nil
		}
	}
	body := strings.TrimSpace(resp.String())
	if len(body) > errorBodyLimit {
		body = body[:errorBodyLimit]
	}
	return pkgerrors.Wrap(
		pkgerrors.CodeDependency,
		fmt.Errorf("status %d: %s", resp.StatusCode(), body),
		"chitchats "+action+" failed",
	).WithDetails(map[string]any{"carrier_status": resp.StatusCode()})
}

func validateRequest(req RateRequest) error {
	details := map[string]string{}
	d := req.Destination
	if strings.TrimSpace(d.Name) == "" {
		details["name"] = "is required"
	}
	if strings.TrimSpace(d.Address1) == "" {
		details["address_1"] = "is required"
	}
	if strings.TrimSpace(d.City) == "" {
		details["city"] = "is required"
	}
	if strings.TrimSpace(d.CountryCode) == "" {
		details["country_code"] = "is required"
	}
	if req.Package.WeightGrams <= 0 {
		details["weight_grams"] = "must be greater than zero"
	}
	for name, v := range map[string]decimal.Decimal{
		"length_cm": req.Package.LengthCM,
		"width_cm":  req.Package.WidthCM,
		"height_cm": req.Package.HeightCM,
	} {
		if !v.IsPositive() {
			details[name] = "must be greater than zero"
		}
	}
	if req.Package.Value.IsNegative() {
		details["value"] = "must be zero or greater"
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid shipment request").WithDetails(details)
	}
	return nil
}

func buildPayload(req RateRequest, postage string) shipmentPayload {
	currency := strings.ToLower(strings.TrimSpace(req.Package.Currency))
	if currency == "" {
		currency = "cad"
	}
	contents := req.Package.Contents
	if contents == "" {
		contents = "merchandise"
	}
	description := req.Package.Description
	if description == "" {
		description = "Online order"
	}
	return shipmentPayload{
		Name:            req.Destination.Name,
		Address1:        req.Destination.Address1,
		Address2:        req.Destination.Address2,
		City:            req.Destination.City,
		ProvinceCode:    strings.ToUpper(req.Destination.ProvinceCode),
		PostalCode:      req.Destination.PostalCode,
		CountryCode:     strings.ToUpper(req.Destination.CountryCode),
		Phone:           req.Destination.Phone,
		PackageContents: contents,
		Description:     description,
		Value:           req.Package.Value.StringFixed(2),
		ValueCurrency:   currency,
		OrderID:         req.OrderID,
		PackageType:     "parcel",
		WeightUnit:      "g",
		Weight:          req.Package.WeightGrams,
		SizeUnit:        "cm",
		SizeX:           req.Package.LengthCM.String(),
		SizeY:           req.Package.WidthCM.String(),
		SizeZ:           req.Package.HeightCM.String(),
		PostageType:     postage,
		ShipDate:        "today",
	}
}

func (r apiRate) toRate() Rate {
	raw := r.PaymentAmount
	if raw == "" {
		raw = r.PostageFee
	}
	price, err := decimal.NewFromString(raw)
	if err != nil {
		price = decimal.Zero
	}
	return Rate{
		PostageType:        r.PostageType,
		Description:        r.PostageDescription,
		Price:              price.Round(2),
		Currency:           strings.ToUpper(r.Currency),
		DeliveryEstimate:   r.DeliveryTimeDescription,
		TrackingAvailable:  r.TrackingTypeDescription != "",
		SignatureRequested: r.SignatureConfirmation,
	}
}

func (s apiShipment) toShipment() *Shipment {
	label := s.PostageLabelPDFURL
	if label == "" {
		label = s.PostageLabelPNGURL
	}
	return &Shipment{
		ID:             s.ID,
		Status:         s.Status,
		TrackingNumber: s.TrackingCode,
		TrackingURL:    s.TrackingURL,
		LabelURL:       label,
		PostageType:    s.PostageType,
	}
}
