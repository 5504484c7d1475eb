package enums

import "fmt"

// CustomerType decides which price list applies to a customer. The wire
// values are upper case because they are stored and exchanged as-is.
type CustomerType string

const (
	CustomerTypeRetail    CustomerType = "RETAIL"
	CustomerTypeWholesale CustomerType = "WHOLESALE"
)

var validCustomerTypes = []CustomerType{
	CustomerTypeRetail,
	CustomerTypeWholesale,
}

// String implements fmt.Stringer.
func (c CustomerType) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CustomerType.
func (c CustomerType) IsValid() bool {
	for _, candidate := range validCustomerTypes {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCustomerType converts raw input into a CustomerType.
func ParseCustomerType(value string) (CustomerType, error) {
	for _, candidate := range validCustomerTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid customer type %q", value)
}
