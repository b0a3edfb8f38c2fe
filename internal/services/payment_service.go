// internal/services/payment_service.go
package services

import (
	"context"
	"fmt"
	"math"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"

	"github.com/secondhand/marketplace-backend/internal/config"
	"github.com/secondhand/marketplace-backend/internal/models"
)

// PaymentProvider creates the payment for a purchase. ProductService calls it
// before recording a transfer.
type PaymentProvider interface {
	Enabled() bool
	CreatePurchaseIntent(ctx context.Context, product *models.Product, buyerID string) (*PaymentIntentResponse, error)
}

type PaymentService struct {
	config *config.Config
}

type PaymentIntentResponse struct {
	ClientSecret string `json:"client_secret"`
	PaymentID    string `json:"payment_id"`
	Status       string `json:"status"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

func NewPaymentService(config *config.Config) *PaymentService {
	// Initialize Stripe
	stripe.Key = config.Payment.StripeSecretKey

	return &PaymentService{config: config}
}

// Enabled reports whether a Stripe key is configured.
func (s *PaymentService) Enabled() bool {
	return s.config.Payment.StripeSecretKey != ""
}

func (s *PaymentService) CreatePurchaseIntent(ctx context.Context, product *models.Product, buyerID string) (*PaymentIntentResponse, error) {
	currency := s.config.Payment.Currency
	if currency == "" {
		currency = "usd"
	}

	// Convert amount to cents for Stripe
	amountInCents := int64(math.Round(product.Price * 100))

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountInCents),
		Currency: stripe.String(currency),
	}
	params.Context = ctx
	params.AddMetadata("product_id", product.ID)
	params.AddMetadata("seller_id", product.SellerID)
	params.AddMetadata("buyer_id", buyerID)

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	return &PaymentIntentResponse{
		ClientSecret: pi.ClientSecret,
		PaymentID:    pi.ID,
		Status:       string(pi.Status),
		Amount:       amountInCents,
		Currency:     currency,
	}, nil
}
