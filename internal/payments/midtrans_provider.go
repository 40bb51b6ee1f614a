package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
)

const defaultSessionTimeout = 10 * time.Second

// snapAPI abstracts the Midtrans Snap client for testing.
type snapAPI interface {
	CreateTransaction(req *snap.Request) (*snap.Response, *midtrans.Error)
}

// MidtransProviderConfig configures the MidtransProvider.
type MidtransProviderConfig struct {
	ServerKey  string
	Production bool
	Timeout    time.Duration
	Client     snapAPI
	Logger     func(ctx context.Context, event string, fields map[string]any)
}

// MidtransProvider implements the Provider interface using the Midtrans Snap API.
type MidtransProvider struct {
	api     snapAPI
	timeout time.Duration
	logger  func(context.Context, string, map[string]any)
}

// NewMidtransProvider constructs a Midtrans Provider using the given configuration.
func NewMidtransProvider(cfg MidtransProviderConfig) (*MidtransProvider, error) {
	api := cfg.Client
	if api == nil {
		serverKey := strings.TrimSpace(cfg.ServerKey)
		if serverKey == "" {
			return nil, errors.New("midtrans: server key is required")
		}
		env := midtrans.Sandbox
		if cfg.Production {
			env = midtrans.Production
		}
		client := &snap.Client{}
		client.New(serverKey, env)
		api = client
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultSessionTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &MidtransProvider{
		api:     api,
		timeout: timeout,
		logger:  logger,
	}, nil
}

// CreateCheckoutSession creates a Snap transaction and returns its token and
// redirect URL. The SDK call carries no context, so it runs on a goroutine
// bounded by the configured timeout.
func (p *MidtransProvider) CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (CheckoutSession, error) {
	if p == nil || p.api == nil {
		return CheckoutSession{}, errors.New("midtrans: provider is nil")
	}
	orderID := strings.TrimSpace(req.OrderID)
	if orderID == "" {
		return CheckoutSession{}, errors.New("midtrans: order id is required")
	}
	if req.GrossAmount <= 0 {
		return CheckoutSession{}, errors.New("midtrans: gross amount must be positive")
	}

	snapReq := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  orderID,
			GrossAmt: req.GrossAmount,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: strings.TrimSpace(req.CustomerName),
			Email: strings.TrimSpace(req.CustomerEmail),
		},
	}

	type outcome struct {
		resp   *snap.Response
		apiErr *midtrans.Error
	}

	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resultCh := make(chan outcome, 1)
	go func() {
		resp, apiErr := p.api.CreateTransaction(snapReq)
		resultCh <- outcome{resp: resp, apiErr: apiErr}
	}()

	select {
	case <-callCtx.Done():
		p.logger(ctx, "payments.session.timeout", map[string]any{"order": orderID})
		return CheckoutSession{}, fmt.Errorf("%w: %v", ErrSessionFailed, callCtx.Err())
	case result := <-resultCh:
		if result.apiErr != nil {
			p.logger(ctx, "payments.session.failed", map[string]any{
				"order": orderID,
				"error": result.apiErr.Error(),
			})
			return CheckoutSession{}, fmt.Errorf("%w: %v", ErrSessionFailed, result.apiErr)
		}
		if result.resp == nil || strings.TrimSpace(result.resp.Token) == "" {
			return CheckoutSession{}, fmt.Errorf("%w: empty response", ErrSessionFailed)
		}
		return CheckoutSession{
			Token:       result.resp.Token,
			RedirectURL: result.resp.RedirectURL,
		}, nil
	}
}

var _ Provider = (*MidtransProvider)(nil)
