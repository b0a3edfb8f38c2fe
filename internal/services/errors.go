// internal/services/errors.go
package services

import (
	"errors"
	"strings"
)

var (
	ErrProductNotFound    = errors.New("product not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrAuthRequired       = errors.New("authentication required")
	ErrUnauthorized       = errors.New("caller does not own this product")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTagMissing         = errors.New("missing or invalid nano-tag data")
	ErrTagMismatch        = errors.New("nano-tag does not belong to product")
	ErrInvalidTransition  = errors.New("invalid product status transition")
	ErrProductSold        = errors.New("product has already been sold")
	ErrPaymentFailed      = errors.New("payment could not be created")
)

// SimilarImagesReason is reported when an upload matches an existing listing.
const SimilarImagesReason = "Similar images found in existing listings"

// VerificationError rejects a listing submission. Issues carries metadata
// problems; Reason and SimilarProductID carry an image rejection.
type VerificationError struct {
	Issues           []string
	Reason           string
	SimilarProductID string
}

func (e *VerificationError) Error() string {
	if e.Reason != "" {
		return "image verification failed: " + e.Reason
	}
	return "metadata verification failed: " + strings.Join(e.Issues, "; ")
}

// IsImageRejection reports whether the submission failed on its images.
func (e *VerificationError) IsImageRejection() bool {
	return e.Reason != ""
}
