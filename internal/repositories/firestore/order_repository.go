package firestore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/tokokita/api/internal/domain"
	pfirestore "github.com/tokokita/api/internal/platform/firestore"
	"github.com/tokokita/api/internal/repositories"
)

const ordersCollection = "orders"

type orderDocument struct {
	OrderNumber string                  `firestore:"orderNumber"`
	UserRef     string                  `firestore:"userRef"`
	Status      string                  `firestore:"status"`
	Subtotal    int64                   `firestore:"subtotal"`
	Discount    int64                   `firestore:"discount"`
	Total       int64                   `firestore:"total"`
	VoucherCode *string                 `firestore:"voucherCode,omitempty"`
	Items       []orderItemDocument     `firestore:"items"`
	ProductRefs []string                `firestore:"productRefs"`
	SellerRefs  []string                `firestore:"sellerRefs"`
	Payment     *paymentSessionDocument `firestore:"payment,omitempty"`
	CreatedAt   time.Time               `firestore:"createdAt"`
	UpdatedAt   time.Time               `firestore:"updatedAt"`
	PaidAt      *time.Time              `firestore:"paidAt,omitempty"`
	ShippedAt   *time.Time              `firestore:"shippedAt,omitempty"`
	CompletedAt *time.Time              `firestore:"completedAt,omitempty"`
	CancelledAt *time.Time              `firestore:"cancelledAt,omitempty"`
}

type orderItemDocument struct {
	ItemID      string `firestore:"itemId"`
	ProductRef  string `firestore:"productRef"`
	ProductName string `firestore:"productName"`
	SellerRef   string `firestore:"sellerRef"`
	Quantity    int64  `firestore:"quantity"`
	UnitPrice   int64  `firestore:"unitPrice"`
	Total       int64  `firestore:"total"`
}

type paymentSessionDocument struct {
	Token         string     `firestore:"token,omitempty"`
	RedirectURL   string     `firestore:"redirectUrl,omitempty"`
	CreatedAt     time.Time  `firestore:"createdAt"`
	FailedAt      *time.Time `firestore:"failedAt,omitempty"`
	FailureReason string     `firestore:"failureReason,omitempty"`
}

// OrderRepository persists order aggregates. Checkout and lifecycle moves run
// inside single Firestore transactions so their effects are all-or-nothing.
type OrderRepository struct {
	provider *pfirestore.Provider
	orders   *pfirestore.BaseRepository[orderDocument]
}

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	return &OrderRepository{
		provider: provider,
		orders:   pfirestore.NewBaseRepository[orderDocument](provider, ordersCollection, nil),
	}, nil
}

// PlaceOrder snapshots the cart at transaction-time prices, creates the
// order, decrements stock and clears the cart atomically. Every read happens
// before the first write, as Firestore transactions require.
func (r *OrderRepository) PlaceOrder(ctx context.Context, req repositories.PlaceOrderRequest) (domain.Order, error) {
	if r == nil || r.provider == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	orderID := strings.TrimSpace(req.OrderID)
	userID := strings.TrimSpace(req.UserID)
	if orderID == "" {
		return domain.Order{}, errors.New("order repository: order id is required")
	}
	if userID == "" {
		return domain.Order{}, errors.New("order repository: user id is required")
	}
	if req.Quote == nil {
		return domain.Order{}, errors.New("order repository: quote callback is required")
	}
	newItemID := req.NewItemID
	if newItemID == nil {
		newItemID = func() string { return "" }
	}

	now := req.Now.UTC()
	if now.IsZero() {
		now = time.Now().UTC()
	}

	var placed domain.Order

	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		client, err := r.provider.Client(ctx)
		if err != nil {
			return err
		}

		cartQuery := client.Collection(cartItemsCollection).Query.Where("userRef", "==", userID)
		cartSnaps, err := tx.Documents(cartQuery).GetAll()
		if err != nil {
			return err
		}
		if len(cartSnaps) == 0 {
			return repositories.ErrCartEmpty
		}

		type pendingLine struct {
			cartRef    *firestore.DocumentRef
			productRef *firestore.DocumentRef
			productID  string
			quantity   int64
			name       string
			sellerID   string
			unitPrice  int64
			stock      int64
		}

		lines := make([]pendingLine, 0, len(cartSnaps))
		for _, snap := range cartSnaps {
			var item cartItemDocument
			if err := snap.DataTo(&item); err != nil {
				return fmt.Errorf("decode cart item %s: %w", snap.Ref.ID, err)
			}
			lines = append(lines, pendingLine{
				cartRef:   snap.Ref,
				productID: item.ProductRef,
				quantity:  item.Quantity,
			})
		}
		sort.Slice(lines, func(i, j int) bool { return lines[i].productID < lines[j].productID })

		products := client.Collection(productsCollection)
		var subtotal int64
		for i := range lines {
			line := &lines[i]
			line.productRef = products.Doc(line.productID)
			snap, err := tx.Get(line.productRef)
			if status.Code(err) == codes.NotFound {
				return &repositories.ProductGoneError{ProductID: line.productID}
			}
			if err != nil {
				return err
			}
			var product productDocument
			if err := snap.DataTo(&product); err != nil {
				return fmt.Errorf("decode product %s: %w", line.productID, err)
			}
			if product.Stock < line.quantity {
				return &repositories.InsufficientStockError{
					ProductID: line.productID,
					Requested: line.quantity,
					Available: product.Stock,
				}
			}
			line.name = product.Name
			line.sellerID = product.SellerRef
			line.unitPrice = product.Price
			line.stock = product.Stock
			subtotal += product.Price * line.quantity
		}

		quote, err := req.Quote(subtotal)
		if err != nil {
			return err
		}

		items := make([]orderItemDocument, 0, len(lines))
		productRefs := make([]string, 0, len(lines))
		sellerRefs := make([]string, 0, len(lines))
		seenSellers := make(map[string]struct{}, len(lines))
		for _, line := range lines {
			items = append(items, orderItemDocument{
				ItemID:      newItemID(),
				ProductRef:  line.productID,
				ProductName: line.name,
				SellerRef:   line.sellerID,
				Quantity:    line.quantity,
				UnitPrice:   line.unitPrice,
				Total:       line.unitPrice * line.quantity,
			})
			productRefs = append(productRefs, line.productID)
			if _, seen := seenSellers[line.sellerID]; !seen && line.sellerID != "" {
				seenSellers[line.sellerID] = struct{}{}
				sellerRefs = append(sellerRefs, line.sellerID)
			}
		}

		doc := orderDocument{
			OrderNumber: strings.TrimSpace(req.OrderNumber),
			UserRef:     userID,
			Status:      string(domain.OrderStatusPending),
			Subtotal:    quote.Subtotal,
			Discount:    quote.Discount,
			Total:       quote.Total,
			VoucherCode: req.VoucherCode,
			Items:       items,
			ProductRefs: productRefs,
			SellerRefs:  sellerRefs,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		orderRef := client.Collection(ordersCollection).Doc(orderID)
		if err := tx.Create(orderRef, doc); err != nil {
			return err
		}
		for _, line := range lines {
			updates := []firestore.Update{
				{Path: "stock", Value: line.stock - line.quantity},
				{Path: "updatedAt", Value: now},
			}
			if err := tx.Update(line.productRef, updates); err != nil {
				return err
			}
		}
		for _, line := range lines {
			if err := tx.Delete(line.cartRef); err != nil {
				return err
			}
		}

		placed = toDomainOrder(orderID, doc)
		return nil
	})
	if err != nil {
		if isOrderTypedError(err) {
			return domain.Order{}, err
		}
		return domain.Order{}, pfirestore.WrapError("orders.place", err)
	}
	return placed, nil
}

// TransitionStatus applies a lifecycle move guarded by the status graph. When
// the target is CANCELLED and the current status still holds stock, the held
// quantities are restored in the same transaction.
func (r *OrderRepository) TransitionStatus(ctx context.Context, req repositories.TransitionStatusRequest) (domain.Order, error) {
	if r == nil || r.provider == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	orderID := strings.TrimSpace(req.OrderID)
	if orderID == "" {
		return domain.Order{}, errors.New("order repository: order id is required")
	}
	if !req.Target.Valid() {
		return domain.Order{}, fmt.Errorf("order repository: unknown status %q", req.Target)
	}

	now := req.Now.UTC()
	if now.IsZero() {
		now = time.Now().UTC()
	}

	var updated domain.Order

	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		client, err := r.provider.Client(ctx)
		if err != nil {
			return err
		}

		orderRef := client.Collection(ordersCollection).Doc(orderID)
		snap, err := tx.Get(orderRef)
		if err != nil {
			return err
		}
		var doc orderDocument
		if err := snap.DataTo(&doc); err != nil {
			return fmt.Errorf("decode order %s: %w", orderID, err)
		}

		current := domain.OrderStatus(doc.Status)
		if !current.CanTransition(req.Target) {
			return &repositories.InvalidTransitionError{OrderID: orderID, From: current, To: req.Target}
		}

		type restoreLine struct {
			ref      *firestore.DocumentRef
			newStock int64
		}
		var restores []restoreLine
		if req.Target == domain.OrderStatusCancelled && current.HoldsStock() {
			products := client.Collection(productsCollection)
			for _, item := range doc.Items {
				productRef := products.Doc(item.ProductRef)
				productSnap, err := tx.Get(productRef)
				if status.Code(err) == codes.NotFound {
					// Product was deleted after checkout; nothing to restore.
					continue
				}
				if err != nil {
					return err
				}
				var product productDocument
				if err := productSnap.DataTo(&product); err != nil {
					return fmt.Errorf("decode product %s: %w", item.ProductRef, err)
				}
				restores = append(restores, restoreLine{ref: productRef, newStock: product.Stock + item.Quantity})
			}
		}

		doc.Status = string(req.Target)
		doc.UpdatedAt = now
		stamp := now
		switch req.Target {
		case domain.OrderStatusPaid:
			doc.PaidAt = &stamp
		case domain.OrderStatusShipped:
			doc.ShippedAt = &stamp
		case domain.OrderStatusCompleted:
			doc.CompletedAt = &stamp
		case domain.OrderStatusCancelled:
			doc.CancelledAt = &stamp
		}

		if err := tx.Set(orderRef, doc); err != nil {
			return err
		}
		for _, restore := range restores {
			updates := []firestore.Update{
				{Path: "stock", Value: restore.newStock},
				{Path: "updatedAt", Value: now},
			}
			if err := tx.Update(restore.ref, updates); err != nil {
				return err
			}
		}

		updated = toDomainOrder(orderID, doc)
		return nil
	})
	if err != nil {
		if isOrderTypedError(err) {
			return domain.Order{}, err
		}
		return domain.Order{}, pfirestore.WrapError("orders.transition", err)
	}
	return updated, nil
}

// SavePaymentSession replaces the payment session block on the order.
func (r *OrderRepository) SavePaymentSession(ctx context.Context, orderID string, session domain.PaymentSession) (domain.Order, error) {
	if r == nil || r.provider == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	id := strings.TrimSpace(orderID)
	if id == "" {
		return domain.Order{}, errors.New("order repository: order id is required")
	}

	doc := &paymentSessionDocument{
		Token:         session.Token,
		RedirectURL:   session.RedirectURL,
		CreatedAt:     session.CreatedAt.UTC(),
		FailureReason: session.FailureReason,
	}
	if session.FailedAt != nil {
		failedAt := session.FailedAt.UTC()
		doc.FailedAt = &failedAt
	}

	updates := []firestore.Update{
		{Path: "payment", Value: doc},
		{Path: "updatedAt", Value: time.Now().UTC()},
	}
	if _, err := r.orders.Update(ctx, id, updates); err != nil {
		return domain.Order{}, err
	}
	return r.FindByID(ctx, id)
}

// FindByID loads an order by ID.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if r == nil || r.orders == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	doc, err := r.orders.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	return toDomainOrder(doc.ID, doc.Data), nil
}

// ListByUser returns the user's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string, filter repositories.OrderListFilter) (domain.Page[domain.Order], error) {
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return domain.Page[domain.Order]{}, errors.New("order repository: user id is required")
	}
	return r.list(ctx, "orders.list_user", filter, func(query firestore.Query) firestore.Query {
		return query.Where("userRef", "==", uid)
	})
}

// ListBySeller returns orders containing at least one of the seller's lines,
// newest first.
func (r *OrderRepository) ListBySeller(ctx context.Context, sellerID string, filter repositories.OrderListFilter) (domain.Page[domain.Order], error) {
	sid := strings.TrimSpace(sellerID)
	if sid == "" {
		return domain.Page[domain.Order]{}, errors.New("order repository: seller id is required")
	}
	return r.list(ctx, "orders.list_seller", filter, func(query firestore.Query) firestore.Query {
		return query.Where("sellerRefs", "array-contains", sid)
	})
}

func (r *OrderRepository) list(ctx context.Context, op string, filter repositories.OrderListFilter, scope func(firestore.Query) firestore.Query) (domain.Page[domain.Order], error) {
	if r == nil || r.orders == nil {
		return domain.Page[domain.Order]{}, errors.New("order repository not initialised")
	}

	limit := filter.Pager.PageSize
	if limit < 0 {
		limit = 0
	}
	fetchLimit := 0
	if limit > 0 {
		fetchLimit = limit + 1
	}

	var startAfter []any
	if token := strings.TrimSpace(filter.Pager.PageToken); token != "" {
		createdAt, docID, err := decodeCursor(token)
		if err != nil {
			return domain.Page[domain.Order]{}, fmt.Errorf("%s: invalid page token: %w", op, err)
		}
		startAfter = []any{createdAt, docID}
	}

	docs, err := r.orders.Query(ctx, func(query firestore.Query) firestore.Query {
		query = scope(query)
		if len(filter.Statuses) > 0 {
			statuses := make([]string, 0, len(filter.Statuses))
			for _, s := range filter.Statuses {
				statuses = append(statuses, string(s))
			}
			query = query.Where("status", "in", statuses)
		}
		query = query.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
		if startAfter != nil {
			query = query.StartAfter(startAfter...)
		}
		if fetchLimit > 0 {
			query = query.Limit(fetchLimit)
		}
		return query
	})
	if err != nil {
		return domain.Page[domain.Order]{}, err
	}

	nextToken := ""
	if fetchLimit > 0 && len(docs) == fetchLimit {
		last := docs[len(docs)-1]
		nextToken = encodeCursor(last.Data.CreatedAt, last.ID)
		docs = docs[:len(docs)-1]
	}

	items := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		items = append(items, toDomainOrder(doc.ID, doc.Data))
	}
	return domain.Page[domain.Order]{Items: items, NextPageToken: nextToken}, nil
}

// HasPurchased reports whether the user holds a PAID, SHIPPED or COMPLETED
// order containing the product.
func (r *OrderRepository) HasPurchased(ctx context.Context, userID string, productID string) (bool, error) {
	if r == nil || r.orders == nil {
		return false, errors.New("order repository not initialised")
	}
	uid := strings.TrimSpace(userID)
	pid := strings.TrimSpace(productID)
	if uid == "" || pid == "" {
		return false, errors.New("order repository: user id and product id are required")
	}

	docs, err := r.orders.Query(ctx, func(query firestore.Query) firestore.Query {
		return query.
			Where("userRef", "==", uid).
			Where("productRefs", "array-contains", pid).
			Where("status", "in", []string{
				string(domain.OrderStatusPaid),
				string(domain.OrderStatusShipped),
				string(domain.OrderStatusCompleted),
			}).
			Limit(1)
	})
	if err != nil {
		return false, err
	}
	return len(docs) > 0, nil
}

func isOrderTypedError(err error) bool {
	var stockErr *repositories.InsufficientStockError
	var goneErr *repositories.ProductGoneError
	var transitionErr *repositories.InvalidTransitionError
	return errors.Is(err, repositories.ErrCartEmpty) ||
		errors.As(err, &stockErr) ||
		errors.As(err, &goneErr) ||
		errors.As(err, &transitionErr)
}

func toDomainOrder(id string, doc orderDocument) domain.Order {
	items := make([]domain.OrderItem, 0, len(doc.Items))
	for _, item := range doc.Items {
		items = append(items, domain.OrderItem{
			ID:          item.ItemID,
			ProductID:   item.ProductRef,
			ProductName: item.ProductName,
			SellerID:    item.SellerRef,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Total:       item.Total,
		})
	}

	order := domain.Order{
		ID:          id,
		OrderNumber: doc.OrderNumber,
		UserID:      doc.UserRef,
		Status:      domain.OrderStatus(doc.Status),
		Subtotal:    doc.Subtotal,
		Discount:    doc.Discount,
		Total:       doc.Total,
		VoucherCode: doc.VoucherCode,
		Items:       items,
		ProductRefs: append([]string(nil), doc.ProductRefs...),
		SellerRefs:  append([]string(nil), doc.SellerRefs...),
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
		PaidAt:      doc.PaidAt,
		ShippedAt:   doc.ShippedAt,
		CompletedAt: doc.CompletedAt,
		CancelledAt: doc.CancelledAt,
	}
	if doc.Payment != nil {
		order.Payment = &domain.PaymentSession{
			Token:         doc.Payment.Token,
			RedirectURL:   doc.Payment.RedirectURL,
			CreatedAt:     doc.Payment.CreatedAt,
			FailedAt:      doc.Payment.FailedAt,
			FailureReason: doc.Payment.FailureReason,
		}
	}
	return order
}

var _ repositories.OrderRepository = (*OrderRepository)(nil)
