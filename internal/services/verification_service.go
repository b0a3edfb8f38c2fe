// internal/services/verification_service.go
package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/corona10/goimagehash"
	"github.com/sirupsen/logrus"
	_ "golang.org/x/image/webp"
)

const (
	maxReasonablePrice   = 1_000_000
	minDescriptionLength = 20
)

// VerificationService screens new listings: metadata rules first, then image
// similarity against every fingerprint already on file.
type VerificationService struct {
	index *FingerprintIndex
}

type MetadataInput struct {
	Title       string
	Category    string
	Condition   string
	Price       string
	Description string
}

type MetadataResult struct {
	Verified bool     `json:"verified"`
	Issues   []string `json:"issues"`
}

type ImageInput struct {
	Filename string
	Data     []byte
}

type ImageVerification struct {
	Verified         bool     `json:"verified"`
	Reason           string   `json:"reason,omitempty"`
	SimilarProductID string   `json:"similar_product_id,omitempty"`
	Hashes           []string `json:"hashes"`
}

func NewVerificationService(index *FingerprintIndex) *VerificationService {
	return &VerificationService{index: index}
}

// VerifyMetadata applies every rule and reports all failures in a fixed order.
func (s *VerificationService) VerifyMetadata(in MetadataInput) MetadataResult {
	issues := []string{}

	price, err := strconv.ParseFloat(strings.TrimSpace(in.Price), 64)
	switch {
	case err != nil || math.IsNaN(price) || price <= 0:
		issues = append(issues, "Invalid price")
	case price > maxReasonablePrice:
		issues = append(issues, "Price seems unusually high")
	}

	required := []struct {
		name  string
		value string
	}{
		{"title", in.Title},
		{"category", in.Category},
		{"condition", in.Condition},
		{"description", in.Description},
	}
	for _, field := range required {
		if field.value == "" {
			issues = append(issues, "Missing required field: "+field.name)
		}
	}

	if utf8.RuneCountInString(in.Description) < minDescriptionLength {
		issues = append(issues, fmt.Sprintf("Description too short (minimum %d characters)", minDescriptionLength))
	}

	return MetadataResult{Verified: len(issues) == 0, Issues: issues}
}

// Fingerprint decodes an image and returns its 64-bit average hash as 16 hex digits.
func (s *VerificationService) Fingerprint(data []byte) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	hash, err := goimagehash.AverageHash(img)
	if err != nil {
		return "", fmt.Errorf("failed to hash image: %w", err)
	}
	return FormatFingerprint(hash.GetHash()), nil
}

// VerifyImages fingerprints images and compares them with the index. When
// nothing similar is found the fingerprints are claimed for productID, so a
// concurrent submission of the same picture is rejected. Call ReleaseImages
// if the listing is not persisted afterwards.
func (s *VerificationService) VerifyImages(ctx context.Context, productID string, images []ImageInput) (*ImageVerification, error) {
	result := &ImageVerification{Verified: true, Hashes: []string{}}
	var hashes []uint64

	for _, img := range images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		fp, err := s.Fingerprint(img.Data)
		if err != nil {
			logrus.WithError(err).WithField("filename", img.Filename).Warn("Image stored without fingerprint")
			continue
		}
		h, _ := ParseFingerprint(fp)
		hashes = append(hashes, h)
		result.Hashes = append(result.Hashes, fp)
	}

	if len(hashes) == 0 {
		return result, nil
	}

	if conflict, ok := s.index.Claim(productID, hashes); !ok {
		logrus.WithFields(logrus.Fields{
			"product_id":         productID,
			"similar_product_id": conflict,
		}).Info("Listing rejected for similar images")
		return &ImageVerification{
			Verified:         false,
			Reason:           SimilarImagesReason,
			SimilarProductID: conflict,
			Hashes:           result.Hashes,
		}, nil
	}
	return result, nil
}

// ReleaseImages forgets fingerprints claimed by a listing that was never stored.
func (s *VerificationService) ReleaseImages(productID string) {
	s.index.Remove(productID)
}

// IndexStoredHashes loads fingerprints of an existing product into the index.
func (s *VerificationService) IndexStoredHashes(productID string, stored []string) {
	hashes := make([]uint64, 0, len(stored))
	for _, fp := range stored {
		h, err := ParseFingerprint(fp)
		if err != nil {
			logrus.WithError(err).WithField("product_id", productID).Warn("Skipping malformed fingerprint")
			continue
		}
		hashes = append(hashes, h)
	}
	if len(hashes) > 0 {
		s.index.Add(productID, hashes)
	}
}
