package enums

import (
	"fmt"
	"strings"
)

// PaymentMethod names the gateway (or card rail) the shopper selected at
// checkout. Uzcard and Humo are distinct rails that share one gateway API.
type PaymentMethod string

const (
	PaymentMethodClick  PaymentMethod = "click"
	PaymentMethodPayme  PaymentMethod = "payme"
	PaymentMethodUzcard PaymentMethod = "uzcard"
	PaymentMethodHumo   PaymentMethod = "humo"
	PaymentMethodVisa   PaymentMethod = "visa"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodClick,
	PaymentMethodPayme,
	PaymentMethodUzcard,
	PaymentMethodHumo,
	PaymentMethodVisa,
}

// String implements fmt.Stringer.
func (p PaymentMethod) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentMethod.
func (p PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentMethod converts raw input into a PaymentMethod. Matching is
// case-insensitive because the selector arrives straight from the client.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validPaymentMethods {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}
