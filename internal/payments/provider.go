package payments

import (
	"context"
	"errors"
)

// ErrSessionFailed wraps gateway failures while creating a checkout session.
var ErrSessionFailed = errors.New("payments: session creation failed")

// CheckoutSessionRequest captures the payload required to create a hosted
// payment session. GrossAmount is in the smallest currency unit.
type CheckoutSessionRequest struct {
	OrderID       string
	GrossAmount   int64
	CustomerName  string
	CustomerEmail string
}

// CheckoutSession represents the gateway session returned to the client.
type CheckoutSession struct {
	Token       string
	RedirectURL string
}

// Provider defines the contract for payment gateway adapters.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (CheckoutSession, error)
}
