// internal/repository/gorm.go
package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/secondhand/marketplace-backend/internal/database"
	"github.com/secondhand/marketplace-backend/internal/models"
)

// NewGormStore returns a store backed by an already migrated database.
func NewGormStore(db *gorm.DB) *Store {
	return &Store{
		Users:    &gormUsers{db: db},
		Products: &gormProducts{db: db},
		Ledger:   &gormLedger{db: db},
		closer:   func() error { return database.Close(db) },
	}
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return err
}

type gormUsers struct {
	db *gorm.DB
}

func (r *gormUsers) Create(ctx context.Context, user *models.User) error {
	return translate(r.db.WithContext(ctx).Create(user).Error)
}

func (r *gormUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *gormUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *gormUsers) Update(ctx context.Context, id string, fn func(*models.User) error) (*models.User, error) {
	var user models.User
	err := database.WithTransaction(r.db.WithContext(ctx), func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, "id = ?", id).Error; err != nil {
			return err
		}
		email := user.Email
		if err := fn(&user); err != nil {
			return err
		}
		user.ID = id
		user.Email = email
		return tx.Save(&user).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

type gormProducts struct {
	db *gorm.DB
}

func (r *gormProducts) Create(ctx context.Context, product *models.Product) error {
	return translate(r.db.WithContext(ctx).Create(product).Error)
}

func (r *gormProducts) GetByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

func (r *gormProducts) Update(ctx context.Context, id string, fn func(*models.Product) error) (*models.Product, error) {
	var product models.Product
	err := database.WithTransaction(r.db.WithContext(ctx), func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&product, "id = ?", id).Error; err != nil {
			return err
		}
		sellerID, category := product.SellerID, product.Category
		if err := fn(&product); err != nil {
			return err
		}
		product.ID = id
		product.SellerID = sellerID
		product.Category = category
		return tx.Save(&product).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

func (r *gormProducts) IncrementViews(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	err := database.WithTransaction(r.db.WithContext(ctx), func(tx *gorm.DB) error {
		result := tx.Model(&models.Product{}).Where("id = ?", id).
			UpdateColumn("views", gorm.Expr("views + ?", 1))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.First(&product, "id = ?", id).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

func (r *gormProducts) List(ctx context.Context, filter ProductFilter) ([]*models.Product, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Product{})

	if filter.SellerID != "" {
		query = query.Where("seller_id = ?", filter.SellerID)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.ExcludeRemoved {
		query = query.Where("status <> ?", models.ProductStatusRemoved)
	}
	if len(filter.IDs) > 0 {
		query = query.Where("id IN ?", filter.IDs)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order("created_at DESC").Order("id DESC")
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var products []*models.Product
	if err := query.Find(&products).Error; err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

type gormLedger struct {
	db *gorm.DB
}

func (r *gormLedger) Append(ctx context.Context, entry *models.LedgerEntry) error {
	entry.SyncKeys()
	err := r.db.WithContext(ctx).Create(entry).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// unique index on sequence: another writer got there first
		return ErrConflict
	}
	return err
}

func (r *gormLedger) Latest(ctx context.Context) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	if err := r.db.WithContext(ctx).Order("sequence DESC").First(&entry).Error; err != nil {
		return nil, translate(err)
	}
	return &entry, nil
}

func (r *gormLedger) GetByID(ctx context.Context, id string) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	if err := r.db.WithContext(ctx).First(&entry, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &entry, nil
}

func (r *gormLedger) FindByProduct(ctx context.Context, productID string, action models.LedgerAction) ([]*models.LedgerEntry, error) {
	query := r.db.WithContext(ctx).Where("product_id = ?", productID)
	if action != "" {
		query = query.Where("action = ?", action)
	}

	var entries []*models.LedgerEntry
	if err := query.Order("sequence ASC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *gormLedger) All(ctx context.Context) ([]*models.LedgerEntry, error) {
	var entries []*models.LedgerEntry
	if err := r.db.WithContext(ctx).Order("sequence ASC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
