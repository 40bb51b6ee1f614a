package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/tokokita/api/internal/domain"
	pfirestore "github.com/tokokita/api/internal/platform/firestore"
	"github.com/tokokita/api/internal/repositories"
)

const vouchersCollection = "vouchers"

type voucherDocument struct {
	VoucherID   string    `firestore:"voucherId"`
	SellerRef   string    `firestore:"sellerRef"`
	Type        string    `firestore:"type"`
	Amount      int64     `firestore:"amount"`
	MinPurchase int64     `firestore:"minPurchase"`
	ExpiresAt   time.Time `firestore:"expiresAt"`
	CreatedAt   time.Time `firestore:"createdAt"`
}

// VoucherRepository keys voucher documents by their uppercase code, so code
// uniqueness falls out of document identity.
type VoucherRepository struct {
	base *pfirestore.BaseRepository[voucherDocument]
}

// NewVoucherRepository constructs a Firestore-backed voucher repository.
func NewVoucherRepository(provider *pfirestore.Provider) (*VoucherRepository, error) {
	if provider == nil {
		return nil, errors.New("voucher repository requires firestore provider")
	}
	return &VoucherRepository{
		base: pfirestore.NewBaseRepository[voucherDocument](provider, vouchersCollection, nil),
	}, nil
}

// Insert creates the voucher, reporting a conflict when the code is taken.
func (r *VoucherRepository) Insert(ctx context.Context, voucher domain.Voucher) error {
	if r == nil || r.base == nil {
		return errors.New("voucher repository not initialised")
	}
	code := normalizeVoucherCode(voucher.Code)
	if code == "" {
		return errors.New("voucher repository: code is required")
	}

	createdAt := voucher.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	doc := voucherDocument{
		VoucherID:   strings.TrimSpace(voucher.ID),
		SellerRef:   strings.TrimSpace(voucher.SellerID),
		Type:        string(voucher.Type),
		Amount:      voucher.Amount,
		MinPurchase: voucher.MinPurchase,
		ExpiresAt:   voucher.ExpiresAt.UTC(),
		CreatedAt:   createdAt,
	}
	_, err := r.base.Create(ctx, code, doc)
	return err
}

// FindByCode loads the voucher by code, case-insensitively.
func (r *VoucherRepository) FindByCode(ctx context.Context, code string) (domain.Voucher, error) {
	if r == nil || r.base == nil {
		return domain.Voucher{}, errors.New("voucher repository not initialised")
	}
	normalized := normalizeVoucherCode(code)
	if normalized == "" {
		return domain.Voucher{}, errors.New("voucher repository: code is required")
	}
	doc, err := r.base.Get(ctx, normalized)
	if err != nil {
		return domain.Voucher{}, err
	}
	return toDomainVoucher(doc.ID, doc.Data), nil
}

// ListBySeller returns the seller's vouchers, newest first.
func (r *VoucherRepository) ListBySeller(ctx context.Context, sellerID string, pager domain.Pagination) (domain.Page[domain.Voucher], error) {
	if r == nil || r.base == nil {
		return domain.Page[domain.Voucher]{}, errors.New("voucher repository not initialised")
	}
	sid := strings.TrimSpace(sellerID)
	if sid == "" {
		return domain.Page[domain.Voucher]{}, errors.New("voucher repository: seller id is required")
	}

	limit := pager.PageSize
	if limit < 0 {
		limit = 0
	}
	fetchLimit := 0
	if limit > 0 {
		fetchLimit = limit + 1
	}

	var startAfter []any
	if token := strings.TrimSpace(pager.PageToken); token != "" {
		createdAt, docID, err := decodeCursor(token)
		if err != nil {
			return domain.Page[domain.Voucher]{}, fmt.Errorf("vouchers.list: invalid page token: %w", err)
		}
		startAfter = []any{createdAt, docID}
	}

	docs, err := r.base.Query(ctx, func(query firestore.Query) firestore.Query {
		query = query.Where("sellerRef", "==", sid).
			OrderBy("createdAt", firestore.Desc).
			OrderBy(firestore.DocumentID, firestore.Desc)
		if startAfter != nil {
			query = query.StartAfter(startAfter...)
		}
		if fetchLimit > 0 {
			query = query.Limit(fetchLimit)
		}
		return query
	})
	if err != nil {
		return domain.Page[domain.Voucher]{}, err
	}

	nextToken := ""
	if fetchLimit > 0 && len(docs) == fetchLimit {
		last := docs[len(docs)-1]
		nextToken = encodeCursor(last.Data.CreatedAt, last.ID)
		docs = docs[:len(docs)-1]
	}

	items := make([]domain.Voucher, 0, len(docs))
	for _, doc := range docs {
		items = append(items, toDomainVoucher(doc.ID, doc.Data))
	}
	return domain.Page[domain.Voucher]{Items: items, NextPageToken: nextToken}, nil
}

func normalizeVoucherCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func toDomainVoucher(code string, doc voucherDocument) domain.Voucher {
	id := doc.VoucherID
	if id == "" {
		id = code
	}
	return domain.Voucher{
		ID:          id,
		SellerID:    doc.SellerRef,
		Code:        code,
		Type:        domain.VoucherType(doc.Type),
		Amount:      doc.Amount,
		MinPurchase: doc.MinPurchase,
		ExpiresAt:   doc.ExpiresAt,
		CreatedAt:   doc.CreatedAt,
	}
}

var _ repositories.VoucherRepository = (*VoucherRepository)(nil)
