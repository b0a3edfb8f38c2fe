// internal/services/product_view.go
package services

import (
	"context"
	"errors"
	"time"

	"github.com/secondhand/marketplace-backend/internal/models"
)

const (
	anonymousSellerName = "Anonymous Seller"
	notAvailable        = "N/A"
)

// ProductView is a listing as returned to clients: image keys resolved to URLs
// and the seller's public name and contact attached.
type ProductView struct {
	ID             string               `json:"product_id"`
	SellerID       string               `json:"seller_id"`
	SellerName     string               `json:"seller_name"`
	SellerContact  string               `json:"seller_contact"`
	Title          string               `json:"title"`
	Category       string               `json:"category"`
	Condition      string               `json:"condition"`
	Price          float64              `json:"price"`
	Description    string               `json:"description"`
	Brand          string               `json:"brand"`
	Location       string               `json:"location"`
	Images         []string             `json:"images"`
	ImageHashes    []string             `json:"image_hashes,omitempty"`
	Status         models.ProductStatus `json:"status"`
	Views          int64                `json:"views"`
	WatchlistCount int64                `json:"watchlist_count"`
	NanoTag        *models.NanoTag      `json:"nano_tag,omitempty"`
	BlockchainID   string               `json:"blockchain_id,omitempty"`
	BuyerID        string               `json:"buyer_id,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

type sellerCard struct {
	name    string
	contact string
}

// present builds the client view. Feed entries leave out fingerprints, the
// ledger id and the tag payload.
func (s *ProductService) present(ctx context.Context, p *models.Product, full bool, sellers map[string]sellerCard) (ProductView, error) {
	card, ok := sellers[p.SellerID]
	if !ok {
		var err error
		card, err = s.sellerCard(ctx, p.SellerID)
		if err != nil {
			return ProductView{}, err
		}
		if sellers != nil {
			sellers[p.SellerID] = card
		}
	}

	images := make([]string, 0, len(p.Images))
	for _, key := range p.Images {
		images = append(images, s.storage.PublicURL(key))
	}

	view := ProductView{
		ID:             p.ID,
		SellerID:       p.SellerID,
		SellerName:     card.name,
		SellerContact:  card.contact,
		Title:          p.Title,
		Category:       p.Category,
		Condition:      p.Condition,
		Price:          p.Price,
		Description:    p.Description,
		Brand:          p.Brand,
		Location:       p.Location,
		Images:         images,
		Status:         p.Status,
		Views:          p.Views,
		WatchlistCount: p.WatchlistCount,
		BuyerID:        p.BuyerID,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
	if full {
		view.ImageHashes = append([]string(nil), p.ImageHashes...)
		view.BlockchainID = p.BlockchainID
		if !p.NanoTag.IsZero() {
			tag := p.NanoTag
			view.NanoTag = &tag
		}
	}
	return view, nil
}

func (s *ProductService) presentAll(ctx context.Context, products []*models.Product, full bool) ([]ProductView, error) {
	sellers := make(map[string]sellerCard)
	views := make([]ProductView, 0, len(products))
	for _, p := range products {
		view, err := s.present(ctx, p, full, sellers)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *ProductService) sellerCard(ctx context.Context, sellerID string) (sellerCard, error) {
	if sellerID == models.AnonymousSellerID {
		return sellerCard{name: anonymousSellerName, contact: notAvailable}, nil
	}

	user, err := s.users.GetUserByID(ctx, sellerID)
	if errors.Is(err, ErrUserNotFound) {
		return sellerCard{name: notAvailable, contact: notAvailable}, nil
	}
	if err != nil {
		return sellerCard{}, err
	}

	card := sellerCard{name: user.Name, contact: user.Phone}
	if card.name == "" {
		card.name = notAvailable
	}
	if card.contact == "" {
		card.contact = notAvailable
	}
	return card, nil
}
