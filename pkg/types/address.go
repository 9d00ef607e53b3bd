package types

import (
	"database/sql/driver"
	"encoding/json"
	"strings"
)

// Address is a customer shipping destination stored as JSONB on orders.
type Address struct {
	Name       string `json:"name,omitempty"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	Province   string `json:"province"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

// CountryCode returns the upper-cased country, defaulting to CA.
func (a Address) CountryCode() string {
	country := strings.ToUpper(strings.TrimSpace(a.Country))
	if country == "" {
		return "CA"
	}
	return country
}

// Value serializes the address to JSON.
func (a *Address) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	return json.Marshal(a)
}

// Scan decodes JSONB into the address.
func (a *Address) Scan(value interface{}) error {
	if value == nil {
		*a = Address{}
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, a)
}
