// internal/services/product_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/moby/locker"
	"github.com/sirupsen/logrus"

	"github.com/secondhand/marketplace-backend/internal/config"
	"github.com/secondhand/marketplace-backend/internal/models"
	"github.com/secondhand/marketplace-backend/internal/repository"
	"github.com/secondhand/marketplace-backend/internal/utils"
)

const maxSearchHits = 1000

type ProductService struct {
	products     repository.ProductRepository
	users        *UserService
	blockchain   *BlockchainService
	verification *VerificationService
	nanoTags     *NanoTagService
	storage      *StorageService
	payments     PaymentProvider
	search       *SearchService
	cfg          *config.Config

	// locks serializes transfer and removal per product id.
	locks *locker.Locker
	now   func() time.Time
}

// CreateProductRequest carries raw form values; the metadata verifier decides
// what is acceptable.
type CreateProductRequest struct {
	Title       string       `form:"title" json:"title"`
	Category    string       `form:"category" json:"category"`
	Condition   string       `form:"condition" json:"condition"`
	Price       string       `form:"price" json:"price"`
	Description string       `form:"description" json:"description"`
	Brand       string       `form:"brand" json:"brand" validate:"max=100"`
	Location    string       `form:"location" json:"location" validate:"max=100"`
	Images      []ImageInput `form:"-" json:"-"`
}

type CreateProductResult struct {
	ProductID    string               `json:"product_id"`
	NanoTag      models.NanoTag       `json:"nano_tag"`
	BlockchainID string               `json:"blockchain_id"`
	Status       models.ProductStatus `json:"status"`
}

type ProductDetail struct {
	Product            ProductView         `json:"product"`
	BlockchainVerified bool                `json:"blockchain_verified"`
	BlockchainRecord   *models.LedgerEntry `json:"blockchain_record"`
}

type ProductSummary struct {
	Title       string    `json:"title"`
	Condition   string    `json:"condition"`
	Price       float64   `json:"price"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type ProductVerification struct {
	Verified           bool           `json:"verified"`
	Product            ProductSummary `json:"product"`
	Seller             SellerSummary  `json:"seller"`
	BlockchainVerified bool           `json:"blockchain_verified"`
	NanoTagActivated   bool           `json:"nano_tag_activated"`
}

type TransferResult struct {
	BlockchainID string                 `json:"blockchain_id"`
	Status       models.ProductStatus   `json:"status"`
	Payment      *PaymentIntentResponse `json:"payment,omitempty"`
}

func NewProductService(
	products repository.ProductRepository,
	users *UserService,
	blockchain *BlockchainService,
	verification *VerificationService,
	nanoTags *NanoTagService,
	storage *StorageService,
	payments PaymentProvider,
	search *SearchService,
	cfg *config.Config,
) *ProductService {
	return &ProductService{
		products:     products,
		users:        users,
		blockchain:   blockchain,
		verification: verification,
		nanoTags:     nanoTags,
		storage:      storage,
		payments:     payments,
		search:       search,
		cfg:          cfg,
		locks:        locker.New(),
		now:          time.Now,
	}
}

// RebuildIndexes loads fingerprints of every stored listing, removed ones
// included, and search documents for the listings still live.
func (s *ProductService) RebuildIndexes(ctx context.Context) error {
	products, _, err := s.products.List(ctx, repository.ProductFilter{})
	if err != nil {
		return fmt.Errorf("failed to load products: %w", err)
	}

	// List is newest first; the fingerprint index reports the earliest match.
	live := make([]*models.Product, 0, len(products))
	for i := len(products) - 1; i >= 0; i-- {
		s.verification.IndexStoredHashes(products[i].ID, products[i].ImageHashes)
		if products[i].Status != models.ProductStatusRemoved {
			live = append(live, products[i])
		}
	}

	if s.search != nil && len(live) > 0 {
		if err := s.search.IndexProducts(live); err != nil {
			return fmt.Errorf("failed to build search index: %w", err)
		}
	}

	logrus.WithFields(logrus.Fields{
		"products": len(products),
		"live":     len(live),
	}).Info("Listing indexes rebuilt")
	return nil
}

// CreateProduct runs a submission through metadata and image verification,
// stores its images, issues a nano-tag, records the creation on the ledger and
// persists the listing as pending.
func (s *ProductService) CreateProduct(ctx context.Context, sellerID string, req *CreateProductRequest) (*CreateProductResult, error) {
	if sellerID == "" {
		sellerID = models.AnonymousSellerID
	}

	metadata := s.verification.VerifyMetadata(MetadataInput{
		Title:       req.Title,
		Category:    req.Category,
		Condition:   req.Condition,
		Price:       req.Price,
		Description: req.Description,
	})
	if !metadata.Verified {
		return nil, &VerificationError{Issues: metadata.Issues}
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	price, _ := strconv.ParseFloat(strings.TrimSpace(req.Price), 64)

	productID := utils.GenerateProductID()
	images, err := s.verification.VerifyImages(ctx, productID, req.Images)
	if err != nil {
		return nil, fmt.Errorf("failed to verify images: %w", err)
	}
	if !images.Verified {
		return nil, &VerificationError{Reason: images.Reason, SimilarProductID: images.SimilarProductID}
	}

	var stored []string
	committed := false
	defer func() {
		if committed {
			return
		}
		s.verification.ReleaseImages(productID)
		s.storage.DeleteFiles(context.WithoutCancel(ctx), stored)
	}()

	options := s.storage.ProductImageOptions()
	for _, img := range req.Images {
		upload, err := s.storage.SaveFile(ctx, img.Data, img.Filename, options)
		if err != nil {
			return nil, fmt.Errorf("failed to store image: %w", err)
		}
		stored = append(stored, upload.Key)
	}

	tag, err := s.nanoTags.GenerateTag(productID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	product := &models.Product{
		ID:          productID,
		SellerID:    sellerID,
		Title:       req.Title,
		Category:    req.Category,
		Condition:   req.Condition,
		Price:       price,
		Description: req.Description,
		Brand:       req.Brand,
		Location:    req.Location,
		Images:      stored,
		ImageHashes: images.Hashes,
		Status:      models.ProductStatusPending,
		NanoTag:     tag,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	block, err := s.blockchain.CreateProductRecord(ctx, product)
	if err != nil {
		return nil, err
	}
	product.BlockchainID = block.ID

	if err := s.products.Create(ctx, product); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"product_id": productID,
			"block_id":   block.ID,
		}).Error("Listing not stored after ledger append")
		return nil, fmt.Errorf("failed to save product: %w", err)
	}
	committed = true

	s.indexForSearch(product)
	if err := s.users.IncrementListings(ctx, sellerID); err != nil {
		logrus.WithError(err).WithField("user_id", sellerID).Warn("Failed to update listings count")
	}

	logrus.WithFields(logrus.Fields{
		"product_id": productID,
		"seller_id":  sellerID,
		"images":     len(stored),
	}).Info("Product listed")

	return &CreateProductResult{
		ProductID:    product.ID,
		NanoTag:      product.NanoTag,
		BlockchainID: product.BlockchainID,
		Status:       product.Status,
	}, nil
}

// ActivateProduct attaches the nano-tag and moves the listing to active.
// callerID must be the seller; anonymous listings are activated by the
// anonymous id.
func (s *ProductService) ActivateProduct(ctx context.Context, productID, callerID string) (*models.Product, error) {
	if callerID == "" {
		callerID = models.AnonymousSellerID
	}

	product, err := s.getProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.SellerID != callerID {
		return nil, ErrUnauthorized
	}
	if product.NanoTag.IsZero() {
		return nil, ErrTagMissing
	}

	activated, err := s.nanoTags.ActivateTag(ctx, product.NanoTag.TagID, productID)
	if err != nil {
		return nil, err
	}

	s.indexForSearch(activated)
	return activated, nil
}

// GetProductDetail counts a view and returns the listing with its ledger
// verification.
func (s *ProductService) GetProductDetail(ctx context.Context, productID string) (*ProductDetail, error) {
	product, err := s.products.IncrementViews(ctx, productID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load product: %w", err)
	}

	record, err := s.blockchain.VerifyOwnership(ctx, productID)
	if err != nil {
		return nil, err
	}

	view, err := s.present(ctx, product, true, nil)
	if err != nil {
		return nil, err
	}

	return &ProductDetail{
		Product:            view,
		BlockchainVerified: record != nil,
		BlockchainRecord:   record,
	}, nil
}

// VerifyProduct is what a buyer sees after scanning the nano-tag.
func (s *ProductService) VerifyProduct(ctx context.Context, productID string) (*ProductVerification, error) {
	product, err := s.getProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	record, err := s.blockchain.VerifyOwnership(ctx, productID)
	if err != nil {
		return nil, err
	}

	seller, err := s.users.SellerSummary(ctx, product.SellerID)
	if err != nil {
		return nil, err
	}

	return &ProductVerification{
		Verified: true,
		Product: ProductSummary{
			Title:       product.Title,
			Condition:   product.Condition,
			Price:       product.Price,
			Description: product.Description,
			CreatedAt:   product.CreatedAt,
		},
		Seller:             *seller,
		BlockchainVerified: record != nil,
		NanoTagActivated:   product.NanoTag.Activated,
	}, nil
}

// TransferOwnership records a sale to buyerID. An already sold listing can be
// transferred again unless strict transfers are configured.
func (s *ProductService) TransferOwnership(ctx context.Context, productID, buyerID string) (*TransferResult, error) {
	if buyerID == "" {
		return nil, ErrAuthRequired
	}

	s.locks.Lock(productID)
	defer s.locks.Unlock(productID)

	product, err := s.getProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.Status == models.ProductStatusRemoved {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, product.Status, models.ProductStatusSold)
	}
	if s.cfg.Marketplace.StrictTransfer && product.Status == models.ProductStatusSold {
		return nil, ErrProductSold
	}

	var payment *PaymentIntentResponse
	paymentReference := ""
	if s.payments != nil && s.payments.Enabled() {
		payment, err = s.payments.CreatePurchaseIntent(ctx, product, buyerID)
		if err != nil {
			logrus.WithError(err).WithField("product_id", productID).Error("Payment intent failed")
			return nil, fmt.Errorf("%w: %v", ErrPaymentFailed, err)
		}
		paymentReference = payment.PaymentID
	}

	block, err := s.blockchain.CreateTransferRecord(ctx, product, buyerID, paymentReference)
	if err != nil {
		return nil, err
	}

	sold, err := s.products.Update(ctx, productID, func(p *models.Product) error {
		if !p.Status.CanTransitionTo(models.ProductStatusSold) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.Status, models.ProductStatusSold)
		}
		p.Status = models.ProductStatusSold
		p.BuyerID = buyerID
		p.UpdatedAt = s.now().UTC()
		return nil
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := s.users.IncrementSales(ctx, product.SellerID); err != nil {
		logrus.WithError(err).WithField("user_id", product.SellerID).Warn("Failed to update sales count")
	}
	s.indexForSearch(sold)

	logrus.WithFields(logrus.Fields{
		"product_id": productID,
		"buyer_id":   buyerID,
		"block_id":   block.ID,
	}).Info("Ownership transferred")

	return &TransferResult{
		BlockchainID: block.ID,
		Status:       sold.Status,
		Payment:      payment,
	}, nil
}

// RemoveProduct takes a listing down. Only the seller may do this and a
// removed listing stays removed.
func (s *ProductService) RemoveProduct(ctx context.Context, productID, callerID string) (*models.Product, error) {
	if callerID == "" {
		return nil, ErrAuthRequired
	}

	s.locks.Lock(productID)
	defer s.locks.Unlock(productID)

	removed, err := s.products.Update(ctx, productID, func(p *models.Product) error {
		if p.SellerID != callerID {
			return ErrUnauthorized
		}
		if !p.Status.CanTransitionTo(models.ProductStatusRemoved) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.Status, models.ProductStatusRemoved)
		}
		p.Status = models.ProductStatusRemoved
		p.UpdatedAt = s.now().UTC()
		return nil
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}

	// Fingerprints stay indexed so the photos cannot be relisted.
	if s.search != nil {
		if err := s.search.DeleteProduct(productID); err != nil {
			logrus.WithError(err).WithField("product_id", productID).Warn("Failed to drop search document")
		}
	}

	logrus.WithField("product_id", productID).Info("Product removed")
	return removed, nil
}

// GetFeed lists live listings newest first, optionally narrowed by category
// and a full-text query.
func (s *ProductService) GetFeed(ctx context.Context, params utils.PaginationParams) ([]ProductView, int64, error) {
	filter := repository.ProductFilter{
		Category:       params.Category,
		ExcludeRemoved: true,
		Offset:         params.Offset(),
		Limit:          params.Limit,
	}

	if params.Search != "" && s.search != nil {
		ids, err := s.search.Search(params.Search, params.Category, maxSearchHits)
		if err != nil {
			return nil, 0, err
		}
		if len(ids) == 0 {
			return []ProductView{}, 0, nil
		}
		filter.IDs = ids
	}

	products, total, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}

	views, err := s.presentAll(ctx, products, false)
	if err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

// GetSellerListings returns every listing of sellerID newest first.
func (s *ProductService) GetSellerListings(ctx context.Context, sellerID string, params utils.PaginationParams) ([]ProductView, int64, error) {
	products, total, err := s.products.List(ctx, repository.ProductFilter{
		SellerID: sellerID,
		Offset:   params.Offset(),
		Limit:    params.Limit,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}

	views, err := s.presentAll(ctx, products, true)
	if err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

// GetHistory returns the ledger entries for an existing listing.
func (s *ProductService) GetHistory(ctx context.Context, productID string) ([]*models.LedgerEntry, error) {
	if _, err := s.getProduct(ctx, productID); err != nil {
		return nil, err
	}
	return s.blockchain.History(ctx, productID)
}

func (s *ProductService) getProduct(ctx context.Context, productID string) (*models.Product, error) {
	product, err := s.products.GetByID(ctx, productID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	return product, nil
}

func (s *ProductService) indexForSearch(p *models.Product) {
	if s.search == nil {
		return
	}
	if err := s.search.IndexProduct(p); err != nil {
		logrus.WithError(err).WithField("product_id", p.ID).Warn("Failed to index product for search")
	}
}
