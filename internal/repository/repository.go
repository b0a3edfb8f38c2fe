// internal/repository/repository.go
package repository

import (
	"context"
	"errors"

	"github.com/secondhand/marketplace-backend/internal/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
	// ErrConflict is returned by LedgerRepository.Append when the sequence
	// number was claimed by another writer.
	ErrConflict = errors.New("write conflict")
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// Update applies fn to the stored user and persists the result atomically.
	// If fn returns an error nothing is written.
	Update(ctx context.Context, id string, fn func(*models.User) error) (*models.User, error)
}

type ProductFilter struct {
	SellerID       string
	Category       string
	ExcludeRemoved bool
	IDs            []string
	Offset         int
	Limit          int // 0 means no limit
}

type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	GetByID(ctx context.Context, id string) (*models.Product, error)
	Update(ctx context.Context, id string, fn func(*models.Product) error) (*models.Product, error)
	IncrementViews(ctx context.Context, id string) (*models.Product, error)
	// List returns matching products newest first, plus the total match count
	// before Offset and Limit are applied.
	List(ctx context.Context, filter ProductFilter) ([]*models.Product, int64, error)
}

type LedgerRepository interface {
	// Append stores entry. Returns ErrConflict if entry.Sequence is taken.
	Append(ctx context.Context, entry *models.LedgerEntry) error
	// Latest returns the entry with the highest sequence, or ErrNotFound.
	Latest(ctx context.Context) (*models.LedgerEntry, error)
	GetByID(ctx context.Context, id string) (*models.LedgerEntry, error)
	// FindByProduct returns entries for productID in sequence order,
	// optionally narrowed to one action.
	FindByProduct(ctx context.Context, productID string, action models.LedgerAction) ([]*models.LedgerEntry, error)
	// All returns the whole chain in sequence order.
	All(ctx context.Context) ([]*models.LedgerEntry, error)
}

// Store bundles the repositories of one storage backend.
type Store struct {
	Users    UserRepository
	Products ProductRepository
	Ledger   LedgerRepository

	closer func() error
}

func (s *Store) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}
