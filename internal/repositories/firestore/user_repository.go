package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "github.com/tokokita/api/internal/domain"
	pfirestore "github.com/tokokita/api/internal/platform/firestore"
	"github.com/tokokita/api/internal/repositories"
)

const usersCollection = "users"

type userDocument struct {
	Name      string    `firestore:"name"`
	Email     string    `firestore:"email"`
	Role      string    `firestore:"role"`
	CreatedAt time.Time `firestore:"createdAt"`
}

// UserRepository persists user profiles keyed by their auth UID.
type UserRepository struct {
	base *pfirestore.BaseRepository[userDocument]
}

// NewUserRepository constructs a Firestore-backed user repository.
func NewUserRepository(provider *pfirestore.Provider) (*UserRepository, error) {
	if provider == nil {
		return nil, errors.New("user repository requires firestore provider")
	}
	return &UserRepository{
		base: pfirestore.NewBaseRepository[userDocument](provider, usersCollection, nil),
	}, nil
}

// FindByID loads the user profile by UID.
func (r *UserRepository) FindByID(ctx context.Context, userID string) (domain.User, error) {
	if r == nil || r.base == nil {
		return domain.User{}, errors.New("user repository not initialised")
	}
	if strings.TrimSpace(userID) == "" {
		return domain.User{}, errors.New("user repository: user id is required")
	}

	doc, err := r.base.Get(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	return toDomainUser(doc.ID, doc.Data), nil
}

// Save upserts the user profile.
func (r *UserRepository) Save(ctx context.Context, user domain.User) (domain.User, error) {
	if r == nil || r.base == nil {
		return domain.User{}, errors.New("user repository not initialised")
	}
	if strings.TrimSpace(user.ID) == "" {
		return domain.User{}, errors.New("user repository: user id is required")
	}

	createdAt := user.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	doc := userDocument{
		Name:      strings.TrimSpace(user.Name),
		Email:     strings.TrimSpace(user.Email),
		Role:      string(user.Role),
		CreatedAt: createdAt,
	}
	if _, err := r.base.Set(ctx, user.ID, doc); err != nil {
		return domain.User{}, err
	}
	return toDomainUser(user.ID, doc), nil
}

func toDomainUser(id string, doc userDocument) domain.User {
	return domain.User{
		ID:        id,
		Name:      doc.Name,
		Email:     doc.Email,
		Role:      domain.Role(doc.Role),
		CreatedAt: doc.CreatedAt,
	}
}

var _ repositories.UserRepository = (*UserRepository)(nil)
