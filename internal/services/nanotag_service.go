// internal/services/nanotag_service.go
package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/skip2/go-qrcode"

	"github.com/secondhand/marketplace-backend/internal/models"
	"github.com/secondhand/marketplace-backend/internal/repository"
)

// Negative sizes make go-qrcode use a fixed module width in pixels.
const qrModulePixels = -10

type NanoTagService struct {
	products repository.ProductRepository
	baseURL  string
	now      func() time.Time
}

func NewNanoTagService(products repository.ProductRepository, verifyBaseURL string) *NanoTagService {
	return &NanoTagService{
		products: products,
		baseURL:  verifyBaseURL,
		now:      time.Now,
	}
}

func (s *NanoTagService) VerifyURL(productID string) string {
	return s.baseURL + "/" + productID
}

// GenerateTag builds an inactive tag whose QR code points at the verify page.
func (s *NanoTagService) GenerateTag(productID string) (models.NanoTag, error) {
	verifyURL := s.VerifyURL(productID)

	png, err := qrcode.Encode(verifyURL, qrcode.Highest, qrModulePixels)
	if err != nil {
		return models.NanoTag{}, fmt.Errorf("failed to render QR code: %w", err)
	}

	return models.NanoTag{
		TagID:     uuid.NewString(),
		ProductID: productID,
		QRCode:    base64.StdEncoding.EncodeToString(png),
		VerifyURL: verifyURL,
		Activated: false,
		CreatedAt: s.now().UTC(),
	}, nil
}

// ActivateTag marks the product's tag active and moves the product to active.
// Repeating it keeps the tag active and is not an error.
func (s *NanoTagService) ActivateTag(ctx context.Context, tagID, productID string) (*models.Product, error) {
	product, err := s.products.Update(ctx, productID, func(p *models.Product) error {
		if p.NanoTag.IsZero() {
			return ErrTagMissing
		}
		if p.NanoTag.TagID != tagID {
			return ErrTagMismatch
		}
		if !p.Status.CanTransitionTo(models.ProductStatusActive) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.Status, models.ProductStatusActive)
		}

		now := s.now().UTC()
		p.NanoTag.Activated = true
		p.NanoTag.ActivatedAt = &now
		p.Status = models.ProductStatusActive
		p.UpdatedAt = now
		return nil
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"product_id": productID,
		"tag_id":     tagID,
	}).Info("Nano-tag activated")
	return product, nil
}
