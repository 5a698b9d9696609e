package payments

import (
	"context"
	"fmt"
	"strings"

	"github.com/texnomart-dev/storefront-backend/pkg/enums"
	pkgerrors "github.com/texnomart-dev/storefront-backend/pkg/errors"
)

// Router dispatches a payment intent to the adapter for the requested method.
// Method names are matched case-insensitively and "humo" is served by the
// Uzcard adapter, since both card networks ride the same processor.
type Router struct {
	gateways map[enums.PaymentMethod]Gateway
}

// NewRouter wires the three adapters. Any adapter may be nil; its methods
// then resolve as unavailable rather than unknown.
func NewRouter(click, payme, uzcard Gateway) *Router {
	gateways := map[enums.PaymentMethod]Gateway{}
	if click != nil {
		gateways[enums.PaymentMethodClick] = click
	}
	if payme != nil {
		gateways[enums.PaymentMethodPayme] = payme
	}
	if uzcard != nil {
		gateways[enums.PaymentMethodUzcard] = uzcard
		gateways[enums.PaymentMethodHumo] = uzcard
	}
	return &Router{gateways: gateways}
}

// Resolve returns the adapter serving the given method name.
func (r *Router) Resolve(method string) (Gateway, error) {
	normalized := enums.PaymentMethod(strings.ToLower(strings.TrimSpace(method)))
	if !normalized.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("unknown payment method %q", method))
	}
	gateway, ok := r.gateways[normalized]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("payment method %q is not configured", normalized))
	}
	return gateway, nil
}

// Initiate resolves the adapter and runs the intent through it. Unknown or
// unconfigured methods come back as errors, never panics.
func (r *Router) Initiate(ctx context.Context, method string, intent Intent) (*Initiation, error) {
	gateway, err := r.Resolve(method)
	if err != nil {
		return nil, err
	}
	return gateway.Initiate(ctx, intent)
}
