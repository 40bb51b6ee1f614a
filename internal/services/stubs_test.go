package services

import (
	"context"
	"errors"
	"time"

	domain "github.com/tokokita/api/internal/domain"
	"github.com/tokokita/api/internal/payments"
	"github.com/tokokita/api/internal/repositories"
)

// repoError is a categorised repository failure for exercising error mapping.
type repoError struct {
	msg         string
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e *repoError) Error() string       { return e.msg }
func (e *repoError) IsNotFound() bool    { return e.notFound }
func (e *repoError) IsConflict() bool    { return e.conflict }
func (e *repoError) IsUnavailable() bool { return e.unavailable }

var _ repositories.RepositoryError = (*repoError)(nil)

func notFoundErr(msg string) error { return &repoError{msg: msg, notFound: true} }
func conflictErr(msg string) error { return &repoError{msg: msg, conflict: true} }

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func sequenceIDs(ids ...string) func() string {
	i := 0
	return func() string {
		if i >= len(ids) {
			return "overflow"
		}
		id := ids[i]
		i++
		return id
	}
}

type stubOrderRepo struct {
	placeOrderFunc   func(ctx context.Context, req repositories.PlaceOrderRequest) (domain.Order, error)
	transitionFunc   func(ctx context.Context, req repositories.TransitionStatusRequest) (domain.Order, error)
	saveSessionFunc  func(ctx context.Context, orderID string, session domain.PaymentSession) (domain.Order, error)
	findByIDFunc     func(ctx context.Context, orderID string) (domain.Order, error)
	listByUserFunc   func(ctx context.Context, userID string, filter repositories.OrderListFilter) (domain.Page[domain.Order], error)
	listBySellerFunc func(ctx context.Context, sellerID string, filter repositories.OrderListFilter) (domain.Page[domain.Order], error)
	hasPurchasedFunc func(ctx context.Context, userID string, productID string) (bool, error)
}

func (s *stubOrderRepo) PlaceOrder(ctx context.Context, req repositories.PlaceOrderRequest) (domain.Order, error) {
	if s.placeOrderFunc == nil {
		return domain.Order{}, errors.New("unexpected PlaceOrder call")
	}
	return s.placeOrderFunc(ctx, req)
}

func (s *stubOrderRepo) TransitionStatus(ctx context.Context, req repositories.TransitionStatusRequest) (domain.Order, error) {
	if s.transitionFunc == nil {
		return domain.Order{}, errors.New("unexpected TransitionStatus call")
	}
	return s.transitionFunc(ctx, req)
}

func (s *stubOrderRepo) SavePaymentSession(ctx context.Context, orderID string, session domain.PaymentSession) (domain.Order, error) {
	if s.saveSessionFunc == nil {
		return domain.Order{}, errors.New("unexpected SavePaymentSession call")
	}
	return s.saveSessionFunc(ctx, orderID, session)
}

func (s *stubOrderRepo) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if s.findByIDFunc == nil {
		return domain.Order{}, errors.New("unexpected FindByID call")
	}
	return s.findByIDFunc(ctx, orderID)
}

func (s *stubOrderRepo) ListByUser(ctx context.Context, userID string, filter repositories.OrderListFilter) (domain.Page[domain.Order], error) {
	if s.listByUserFunc == nil {
		return domain.Page[domain.Order]{}, errors.New("unexpected ListByUser call")
	}
	return s.listByUserFunc(ctx, userID, filter)
}

func (s *stubOrderRepo) ListBySeller(ctx context.Context, sellerID string, filter repositories.OrderListFilter) (domain.Page[domain.Order], error) {
	if s.listBySellerFunc == nil {
		return domain.Page[domain.Order]{}, errors.New("unexpected ListBySeller call")
	}
	return s.listBySellerFunc(ctx, sellerID, filter)
}

func (s *stubOrderRepo) HasPurchased(ctx context.Context, userID string, productID string) (bool, error) {
	if s.hasPurchasedFunc == nil {
		return false, errors.New("unexpected HasPurchased call")
	}
	return s.hasPurchasedFunc(ctx, userID, productID)
}

type stubVoucherRepo struct {
	insertFunc       func(ctx context.Context, voucher domain.Voucher) error
	findByCodeFunc   func(ctx context.Context, code string) (domain.Voucher, error)
	listBySellerFunc func(ctx context.Context, sellerID string, pager domain.Pagination) (domain.Page[domain.Voucher], error)
}

func (s *stubVoucherRepo) Insert(ctx context.Context, voucher domain.Voucher) error {
	if s.insertFunc == nil {
		return errors.New("unexpected Insert call")
	}
	return s.insertFunc(ctx, voucher)
}

func (s *stubVoucherRepo) FindByCode(ctx context.Context, code string) (domain.Voucher, error) {
	if s.findByCodeFunc == nil {
		return domain.Voucher{}, errors.New("unexpected FindByCode call")
	}
	return s.findByCodeFunc(ctx, code)
}

func (s *stubVoucherRepo) ListBySeller(ctx context.Context, sellerID string, pager domain.Pagination) (domain.Page[domain.Voucher], error) {
	if s.listBySellerFunc == nil {
		return domain.Page[domain.Voucher]{}, errors.New("unexpected ListBySeller call")
	}
	return s.listBySellerFunc(ctx, sellerID, pager)
}

type stubUserRepo struct {
	findByIDFunc func(ctx context.Context, userID string) (domain.User, error)
	saveFunc     func(ctx context.Context, user domain.User) (domain.User, error)
}

func (s *stubUserRepo) FindByID(ctx context.Context, userID string) (domain.User, error) {
	if s.findByIDFunc == nil {
		return domain.User{}, errors.New("unexpected FindByID call")
	}
	return s.findByIDFunc(ctx, userID)
}

func (s *stubUserRepo) Save(ctx context.Context, user domain.User) (domain.User, error) {
	if s.saveFunc == nil {
		return domain.User{}, errors.New("unexpected Save call")
	}
	return s.saveFunc(ctx, user)
}

type stubCounterRepo struct {
	nextFunc func(ctx context.Context, counterID string, step int64) (int64, error)
}

func (s *stubCounterRepo) Next(ctx context.Context, counterID string, step int64) (int64, error) {
	if s.nextFunc == nil {
		return 0, errors.New("unexpected Next call")
	}
	return s.nextFunc(ctx, counterID, step)
}

type stubProductRepo struct {
	insertFunc   func(ctx context.Context, product domain.Product) error
	updateFunc   func(ctx context.Context, product domain.Product) error
	deleteFunc   func(ctx context.Context, productID string) error
	findByIDFunc func(ctx context.Context, productID string) (domain.Product, error)
	listFunc     func(ctx context.Context, filter repositories.ProductListFilter) (domain.Page[domain.Product], error)
}

func (s *stubProductRepo) Insert(ctx context.Context, product domain.Product) error {
	if s.insertFunc == nil {
		return errors.New("unexpected Insert call")
	}
	return s.insertFunc(ctx, product)
}

func (s *stubProductRepo) Update(ctx context.Context, product domain.Product) error {
	if s.updateFunc == nil {
		return errors.New("unexpected Update call")
	}
	return s.updateFunc(ctx, product)
}

func (s *stubProductRepo) Delete(ctx context.Context, productID string) error {
	if s.deleteFunc == nil {
		return errors.New("unexpected Delete call")
	}
	return s.deleteFunc(ctx, productID)
}

func (s *stubProductRepo) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	if s.findByIDFunc == nil {
		return domain.Product{}, errors.New("unexpected FindByID call")
	}
	return s.findByIDFunc(ctx, productID)
}

func (s *stubProductRepo) List(ctx context.Context, filter repositories.ProductListFilter) (domain.Page[domain.Product], error) {
	if s.listFunc == nil {
		return domain.Page[domain.Product]{}, errors.New("unexpected List call")
	}
	return s.listFunc(ctx, filter)
}

type stubCartRepo struct {
	listByUserFunc           func(ctx context.Context, userID string) ([]domain.CartItem, error)
	findByUserAndProductFunc func(ctx context.Context, userID string, productID string) (domain.CartItem, error)
	saveFunc                 func(ctx context.Context, item domain.CartItem) (domain.CartItem, error)
	removeFunc               func(ctx context.Context, userID string, itemID string) error
}

func (s *stubCartRepo) ListByUser(ctx context.Context, userID string) ([]domain.CartItem, error) {
	if s.listByUserFunc == nil {
		return nil, errors.New("unexpected ListByUser call")
	}
	return s.listByUserFunc(ctx, userID)
}

func (s *stubCartRepo) FindByUserAndProduct(ctx context.Context, userID string, productID string) (domain.CartItem, error) {
	if s.findByUserAndProductFunc == nil {
		return domain.CartItem{}, errors.New("unexpected FindByUserAndProduct call")
	}
	return s.findByUserAndProductFunc(ctx, userID, productID)
}

func (s *stubCartRepo) Save(ctx context.Context, item domain.CartItem) (domain.CartItem, error) {
	if s.saveFunc == nil {
		return domain.CartItem{}, errors.New("unexpected Save call")
	}
	return s.saveFunc(ctx, item)
}

func (s *stubCartRepo) Remove(ctx context.Context, userID string, itemID string) error {
	if s.removeFunc == nil {
		return errors.New("unexpected Remove call")
	}
	return s.removeFunc(ctx, userID, itemID)
}

type stubReviewRepo struct {
	insertFunc        func(ctx context.Context, review domain.Review) (domain.Review, error)
	listByProductFunc func(ctx context.Context, productID string, pager domain.Pagination) (domain.Page[domain.Review], error)
}

func (s *stubReviewRepo) Insert(ctx context.Context, review domain.Review) (domain.Review, error) {
	if s.insertFunc == nil {
		return domain.Review{}, errors.New("unexpected Insert call")
	}
	return s.insertFunc(ctx, review)
}

func (s *stubReviewRepo) ListByProduct(ctx context.Context, productID string, pager domain.Pagination) (domain.Page[domain.Review], error) {
	if s.listByProductFunc == nil {
		return domain.Page[domain.Review]{}, errors.New("unexpected ListByProduct call")
	}
	return s.listByProductFunc(ctx, productID, pager)
}

type stubWishlistRepo struct {
	putFunc    func(ctx context.Context, userID string, productID string, addedAt time.Time) (bool, error)
	deleteFunc func(ctx context.Context, userID string, productID string) error
	listFunc   func(ctx context.Context, userID string, pager domain.Pagination) (domain.Page[domain.WishlistItem], error)
}

func (s *stubWishlistRepo) Put(ctx context.Context, userID string, productID string, addedAt time.Time) (bool, error) {
	if s.putFunc == nil {
		return false, errors.New("unexpected Put call")
	}
	return s.putFunc(ctx, userID, productID, addedAt)
}

func (s *stubWishlistRepo) Delete(ctx context.Context, userID string, productID string) error {
	if s.deleteFunc == nil {
		return errors.New("unexpected Delete call")
	}
	return s.deleteFunc(ctx, userID, productID)
}

func (s *stubWishlistRepo) List(ctx context.Context, userID string, pager domain.Pagination) (domain.Page[domain.WishlistItem], error) {
	if s.listFunc == nil {
		return domain.Page[domain.WishlistItem]{}, errors.New("unexpected List call")
	}
	return s.listFunc(ctx, userID, pager)
}

type stubGateway struct {
	createFunc func(ctx context.Context, req payments.CheckoutSessionRequest) (payments.CheckoutSession, error)
}

func (s *stubGateway) CreateCheckoutSession(ctx context.Context, req payments.CheckoutSessionRequest) (payments.CheckoutSession, error) {
	if s.createFunc == nil {
		return payments.CheckoutSession{}, errors.New("unexpected CreateCheckoutSession call")
	}
	return s.createFunc(ctx, req)
}

type capturedOrderEvents struct {
	events []OrderEvent
	err    error
}

func (c *capturedOrderEvents) PublishOrderEvent(_ context.Context, event OrderEvent) error {
	c.events = append(c.events, event)
	return c.err
}

type capturedReviewEvents struct {
	events []ReviewEvent
	err    error
}

func (c *capturedReviewEvents) PublishReviewEvent(_ context.Context, event ReviewEvent) error {
	c.events = append(c.events, event)
	return c.err
}
