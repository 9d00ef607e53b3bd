package enums

import "fmt"

// ZoneRuleType names the address field a shipping zone rule inspects.
type ZoneRuleType string

const (
	ZoneRuleTypeCountry           ZoneRuleType = "country"
	ZoneRuleTypeProvince          ZoneRuleType = "province"
	ZoneRuleTypeCity              ZoneRuleType = "city"
	ZoneRuleTypePostalCodePattern ZoneRuleType = "postal_code_pattern"
)

var validZoneRuleTypes = []ZoneRuleType{
	ZoneRuleTypeCountry,
	ZoneRuleTypeProvince,
	ZoneRuleTypeCity,
	ZoneRuleTypePostalCodePattern,
}

// String implements fmt.Stringer.
func (z ZoneRuleType) String() string {
	return string(z)
}

// IsValid reports whether the value is a known ZoneRuleType.
func (z ZoneRuleType) IsValid() bool {
	for _, candidate := range validZoneRuleTypes {
		if candidate == z {
			return true
		}
	}
	return false
}

// ParseZoneRuleType converts raw input into a ZoneRuleType.
func ParseZoneRuleType(value string) (ZoneRuleType, error) {
	for _, candidate := range validZoneRuleTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid zone rule type %q", value)
}
