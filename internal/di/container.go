package di

import (
	"context"
	"errors"
	"fmt"

	"github.com/microcosm-cc/bluemonday"

	"github.com/tokokita/api/internal/payments"
	"github.com/tokokita/api/internal/platform/config"
	"github.com/tokokita/api/internal/repositories"
	"github.com/tokokita/api/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon.
// Concrete implementations are assembled via dependency injection in
// NewContainer.
type Services struct {
	Users     services.UserService
	Catalog   services.CatalogService
	Cart      services.CartService
	Checkout  services.CheckoutService
	Orders    services.OrderService
	Vouchers  services.VoucherService
	Reviews   services.ReviewService
	Wishlists services.WishlistService
}

// Dependencies carries the infrastructure collaborators the service layer
// needs beyond the repository registry.
type Dependencies struct {
	Gateway      payments.Provider
	OrderEvents  services.OrderEventPublisher
	ReviewEvents services.ReviewEventPublisher
	Logger       func(ctx context.Context, event string, fields map[string]any)
}

// Container wires repositories and services for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
}

// NewContainer constructs the runtime dependencies. Production wiring provides
// real implementations, while tests can supply in-memory registries.
func NewContainer(cfg config.Config, reg repositories.Registry, deps Dependencies) (*Container, error) {
	if reg == nil {
		return nil, errors.New("repositories registry is required")
	}
	if deps.Gateway == nil {
		return nil, errors.New("payment gateway is required")
	}

	svc, err := buildServices(reg, deps)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       cfg,
		Repositories: reg,
		Services:     svc,
	}, nil
}

// Close releases repository clients.
func (c *Container) Close() error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close()
}

func buildServices(reg repositories.Registry, deps Dependencies) (Services, error) {
	var svc Services

	userSvc, err := services.NewUserService(services.UserServiceDeps{
		Users:  reg.Users(),
		Logger: deps.Logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build user service: %w", err)
	}
	svc.Users = userSvc

	catalogSvc, err := services.NewCatalogService(services.CatalogServiceDeps{
		Products: reg.Products(),
		Logger:   deps.Logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build catalog service: %w", err)
	}
	svc.Catalog = catalogSvc

	cartSvc, err := services.NewCartService(services.CartServiceDeps{
		Carts:    reg.Carts(),
		Products: reg.Products(),
		Logger:   deps.Logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build cart service: %w", err)
	}
	svc.Cart = cartSvc

	voucherSvc, err := services.NewVoucherService(services.VoucherServiceDeps{
		Vouchers: reg.Vouchers(),
		Logger:   deps.Logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build voucher service: %w", err)
	}
	svc.Vouchers = voucherSvc

	checkoutSvc, err := services.NewCheckoutService(services.CheckoutServiceDeps{
		Orders:   reg.Orders(),
		Carts:    reg.Carts(),
		Vouchers: reg.Vouchers(),
		Users:    reg.Users(),
		Counters: reg.Counters(),
		Gateway:  deps.Gateway,
		Events:   deps.OrderEvents,
		Logger:   deps.Logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build checkout service: %w", err)
	}
	svc.Checkout = checkoutSvc

	orderSvc, err := services.NewOrderService(services.OrderServiceDeps{
		Orders: reg.Orders(),
		Events: deps.OrderEvents,
		Logger: deps.Logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build order service: %w", err)
	}
	svc.Orders = orderSvc

	sanitizer := bluemonday.StrictPolicy()
	reviewSvc, err := services.NewReviewService(services.ReviewServiceDeps{
		Reviews:   reg.Reviews(),
		Orders:    reg.Orders(),
		Products:  reg.Products(),
		Events:    deps.ReviewEvents,
		Sanitizer: sanitizer.Sanitize,
		Logger:    deps.Logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build review service: %w", err)
	}
	svc.Reviews = reviewSvc

	wishlistSvc, err := services.NewWishlistService(services.WishlistServiceDeps{
		Wishlists: reg.Wishlists(),
		Products:  reg.Products(),
		Logger:    deps.Logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build wishlist service: %w", err)
	}
	svc.Wishlists = wishlistSvc

	return svc, nil
}
