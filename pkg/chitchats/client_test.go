package chitchats

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/maplecart/storefront-backend/pkg/errors"
)

type recordedCall struct {
	Method string
	Path   string
	Body   map[string]any
}

type fakeCarrier struct {
	mu    sync.Mutex
	calls []recordedCall
	fail  map[string]int
}

func (f *fakeCarrier) handler(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "tok" {
			t.Errorf("unexpected authorization header %q", got)
		}
		var body map[string]any
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&body)
		}
		f.mu.Lock()
		f.calls = append(f.calls, recordedCall{Method: r.Method, Path: r.URL.Path, Body: body})
		status, failing := f.fail[r.Method+" "+r.URL.Path]
		f.mu.Unlock()

		if failing {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"carrier unavailable"}}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/clients/123/shipments":
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"shipment":{"id":"S1","status":"pending","rates":[
				{"postage_type":"chit_chats_canada_tracked","postage_description":"Chit Chats Canada Tracked","payment_amount":"8.456","currency_code":"cad","delivery_time_description":"2-5 days","tracking_type_description":"Tracked"},
				{"postage_type":"canada_post_regular_parcel","postage_description":"Regular Parcel","postage_fee":"12.10","currency_code":"cad"}
			]}}`))
		case r.Method == http.MethodPatch && r.URL.Path == "/clients/123/shipments/S1/buy":
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodGet && r.URL.Path == "/clients/123/shipments/S1":
			_, _ = w.Write([]byte(`{"shipment":{"id":"S1","status":"ready","tracking_code":"CC123","tracking_url":"https://track.example/CC123","postage_type":"chit_chats_canada_tracked","postage_label_png_url":"https://labels.example/S1.png"}}`))
		case r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func (f *fakeCarrier) methods() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.Method+" "+c.Path)
	}
	return out
}

func newTestClient(t *testing.T, carrier *fakeCarrier, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(carrier.handler(t))
	t.Cleanup(srv.Close)
	opts = append([]Option{WithBaseURL(srv.URL), WithTimeout(2 * time.Second)}, opts...)
	client, err := NewClient("123", "tok", opts...)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func sampleRequest() RateRequest {
	return RateRequest{
		OrderID: "ORD-1001",
		Destination: Destination{
			Name:         "Ada Lovelace",
			Address1:     "1 King St W",
			City:         "Toronto",
			ProvinceCode: "on",
			PostalCode:   "M5H 1A1",
			CountryCode:  "ca",
		},
		Package: Package{
			WeightGrams: 450,
			LengthCM:    decimal.NewFromInt(20),
			WidthCM:     decimal.NewFromInt(15),
			HeightCM:    decimal.NewFromInt(5),
			Value:       decimal.RequireFromString("42.5"),
		},
	}
}

func TestNewClientRequiresCredentials(t *testing.T) {
	if _, err := NewClient("", "tok"); err == nil {
		t.Fatal("expected error without client id")
	}
	if _, err := NewClient("123", "  "); err == nil {
		t.Fatal("expected error without access token")
	}
}

func TestRatesParsesQuotesAndDeletesDraft(t *testing.T) {
	carrier := &fakeCarrier{}
	client := newTestClient(t, carrier)

	rates, err := client.Rates(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("rates: %v", err)
	}
	if len(rates) != 2 {
		t.Fatalf("expected 2 rates, got %d", len(rates))
	}
	if !rates[0].Price.Equal(decimal.RequireFromString("8.46")) {
		t.Fatalf("expected first rate 8.46, got %s", rates[0].Price)
	}
	if rates[0].Currency != "CAD" || !rates[0].TrackingAvailable {
		t.Fatalf("unexpected first rate %+v", rates[0])
	}
	if !rates[1].Price.Equal(decimal.RequireFromString("12.10")) {
		t.Fatalf("expected postage fee fallback 12.10, got %s", rates[1].Price)
	}

	calls := carrier.methods()
	if len(calls) != 2 || calls[1] != "DELETE /clients/123/shipments/S1" {
		t.Fatalf("expected create then delete, got %v", calls)
	}

	carrier.mu.Lock()
	body := carrier.calls[0].Body
	carrier.mu.Unlock()
	if body["postage_type"] != postageUnknown {
		t.Fatalf("expected rate shopping postage type, got %v", body["postage_type"])
	}
	if body["country_code"] != "CA" || body["province_code"] != "ON" {
		t.Fatalf("expected upper-cased region codes, got %v/%v", body["country_code"], body["province_code"])
	}
	if body["value"] != "42.50" {
		t.Fatalf("expected fixed value, got %v", body["value"])
	}
}

func TestCreateShipmentBuysAndReloads(t *testing.T) {
	carrier := &fakeCarrier{}
	var observed []string
	client := newTestClient(t, carrier, WithObserver(func(op string, _ time.Time, err error) {
		if err != nil {
			t.Errorf("unexpected error for %s: %v", op, err)
		}
		observed = append(observed, op)
	}))

	shipment, err := client.CreateShipment(context.Background(), ShipmentRequest{
		RateRequest: sampleRequest(),
		PostageType: "chit_chats_canada_tracked",
	})
	if err != nil {
		t.Fatalf("create shipment: %v", err)
	}
	if shipment.TrackingNumber != "CC123" || shipment.TrackingURL == "" {
		t.Fatalf("unexpected tracking details %+v", shipment)
	}
	if shipment.LabelURL != "https://labels.example/S1.png" {
		t.Fatalf("expected png label fallback, got %q", shipment.LabelURL)
	}
	want := []string{"create_shipment", "buy_shipment", "get_shipment"}
	if len(observed) != len(want) {
		t.Fatalf("expected observations %v, got %v", want, observed)
	}
	for i := range want {
		if observed[i] != want[i] {
			t.Fatalf("expected observations %v, got %v", want, observed)
		}
	}
}

func TestCreateShipmentBuyFailureIsDependencyError(t *testing.T) {
	carrier := &fakeCarrier{fail: map[string]int{"PATCH /clients/123/shipments/S1/buy": http.StatusBadGateway}}
	client := newTestClient(t, carrier)

	_, err := client.CreateShipment(context.Background(), ShipmentRequest{
		RateRequest: sampleRequest(),
		PostageType: "chit_chats_canada_tracked",
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if calls := carrier.methods(); len(calls) != 2 {
		t.Fatalf("expected no retry or reload after failed buy, got %v", calls)
	}
}

func TestCreateShipmentValidatesInput(t *testing.T) {
	client := newTestClient(t, &fakeCarrier{})

	req := sampleRequest()
	req.Package.WeightGrams = 0
	req.Destination.City = ""
	_, err := client.CreateShipment(context.Background(), ShipmentRequest{RateRequest: req, PostageType: "x"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := pkgerrors.As(err).Details().(map[string]string)
	if !ok || details["weight_grams"] == "" || details["city"] == "" {
		t.Fatalf("expected field details, got %#v", pkgerrors.As(err).Details())
	}

	_, err = client.CreateShipment(context.Background(), ShipmentRequest{RateRequest: sampleRequest()})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected missing postage type to fail validation, got %v", err)
	}
}
