// internal/services/blockchain_service.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/secondhand/marketplace-backend/internal/models"
	"github.com/secondhand/marketplace-backend/internal/repository"
	"github.com/secondhand/marketplace-backend/internal/utils"
)

// GenesisHash is the previous hash of the first block.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

const maxAppendAttempts = 5

type BlockchainService struct {
	ledger   repository.LedgerRepository
	products repository.ProductRepository

	// mu makes this process a single writer; the sequence check in the
	// repository catches writers in other processes.
	mu  sync.Mutex
	now func() time.Time

	// head is the newest block known to link back to genesis with every hash
	// intact. nil until the chain has been validated once.
	headMu sync.Mutex
	head   *chainHead
}

type chainHead struct {
	sequence uint64
	hash     string
}

// ChainReport is the result of validating the whole ledger.
type ChainReport struct {
	OK       bool     `json:"ok"`
	Total    int      `json:"total"`
	LastHash string   `json:"last_hash"`
	Errors   []string `json:"errors,omitempty"`
}

func NewBlockchainService(ledger repository.LedgerRepository, products repository.ProductRepository) *BlockchainService {
	return &BlockchainService{
		ledger:   ledger,
		products: products,
		now:      time.Now,
	}
}

// CanonicalJSON encodes v with object keys sorted, so equal values always
// produce equal bytes.
func CanonicalJSON(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic interface{}
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}
	return json.Marshal(generic)
}

// ComputeHash returns hex(sha256(canonical(data) + previousHash)).
func ComputeHash(data models.JSONB, previousHash string) (string, error) {
	canonical, err := CanonicalJSON(data)
	if err != nil {
		return "", fmt.Errorf("failed to encode block data: %w", err)
	}

	return utils.HashBytes(append(canonical, previousHash...)), nil
}

// HashRecord fingerprints a stored record for inclusion in a block.
func HashRecord(v interface{}) (string, error) {
	canonical, err := CanonicalJSON(v)
	if err != nil {
		return "", err
	}
	return utils.HashBytes(canonical), nil
}

// CreateBlock appends data to the chain and returns the new entry.
func (s *BlockchainService) CreateBlock(ctx context.Context, data models.JSONB) (*models.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for attempt := 1; ; attempt++ {
		previousHash := GenesisHash
		sequence := uint64(1)

		latest, err := s.ledger.Latest(ctx)
		switch {
		case err == nil:
			previousHash = latest.Hash
			sequence = latest.Sequence + 1
		case errors.Is(err, repository.ErrNotFound):
		default:
			return nil, fmt.Errorf("failed to read chain head: %w", err)
		}

		hash, err := ComputeHash(data, previousHash)
		if err != nil {
			return nil, err
		}

		entry := &models.LedgerEntry{
			ID:           uuid.NewString(),
			Sequence:     sequence,
			Timestamp:    s.now().UTC(),
			Data:         data.Clone(),
			PreviousHash: previousHash,
			Hash:         hash,
		}

		err = s.ledger.Append(ctx, entry)
		if err == nil {
			logrus.WithFields(logrus.Fields{
				"block_id":   entry.ID,
				"sequence":   entry.Sequence,
				"action":     data.String("action"),
				"product_id": data.String("product_id"),
			}).Info("Ledger block appended")
			entry.SyncKeys()
			s.extendHead(previousHash, entry)
			return entry, nil
		}

		if !errors.Is(err, repository.ErrConflict) || attempt >= maxAppendAttempts {
			return nil, fmt.Errorf("failed to append block: %w", err)
		}
		logrus.WithField("sequence", sequence).Warn("Ledger head moved, retrying append")
	}
}

// CreateProductRecord appends the "created" block for a new listing.
func (s *BlockchainService) CreateProductRecord(ctx context.Context, product *models.Product) (*models.LedgerEntry, error) {
	productHash, err := HashRecord(product)
	if err != nil {
		return nil, fmt.Errorf("failed to hash product: %w", err)
	}

	return s.CreateBlock(ctx, models.JSONB{
		"product_id":   product.ID,
		"seller_id":    product.SellerID,
		"action":       string(models.LedgerActionCreated),
		"timestamp":    s.now().UTC().Format(time.RFC3339Nano),
		"product_hash": productHash,
	})
}

// CreateTransferRecord appends a "transferred" block from the seller to buyerID.
func (s *BlockchainService) CreateTransferRecord(ctx context.Context, product *models.Product, buyerID, paymentReference string) (*models.LedgerEntry, error) {
	data := models.JSONB{
		"product_id": product.ID,
		"from_user":  product.SellerID,
		"to_user":    buyerID,
		"action":     string(models.LedgerActionTransferred),
		"price":      product.Price,
		"timestamp":  s.now().UTC().Format(time.RFC3339Nano),
	}
	if paymentReference != "" {
		data["payment_reference"] = paymentReference
	}
	return s.CreateBlock(ctx, data)
}

// FindCreation returns the "created" block for productID, or nil if none.
func (s *BlockchainService) FindCreation(ctx context.Context, productID string) (*models.LedgerEntry, error) {
	entries, err := s.ledger.FindByProduct(ctx, productID, models.LedgerActionCreated)
	if err != nil {
		return nil, fmt.Errorf("failed to look up creation record: %w", err)
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return entries[0], nil
}

// History returns every block that mentions productID, oldest first.
func (s *BlockchainService) History(ctx context.Context, productID string) ([]*models.LedgerEntry, error) {
	entries, err := s.ledger.FindByProduct(ctx, productID, "")
	if err != nil {
		return nil, fmt.Errorf("failed to load product history: %w", err)
	}
	return entries, nil
}

// Validate recomputes every hash and checks each link to its predecessor.
func (s *BlockchainService) Validate(ctx context.Context) (*ChainReport, error) {
	entries, err := s.ledger.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}

	report := &ChainReport{OK: true, Total: len(entries), LastHash: GenesisHash}
	expectedPrevious := GenesisHash
	var lastSequence uint64
	for _, entry := range entries {
		if entry.PreviousHash != expectedPrevious {
			report.Errors = append(report.Errors, fmt.Sprintf("block %s (sequence %d): previous hash does not match predecessor", entry.ID, entry.Sequence))
		}

		hash, err := ComputeHash(entry.Data, entry.PreviousHash)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("block %s (sequence %d): %v", entry.ID, entry.Sequence, err))
		} else if hash != entry.Hash {
			report.Errors = append(report.Errors, fmt.Sprintf("block %s (sequence %d): hash mismatch", entry.ID, entry.Sequence))
		}

		expectedPrevious = entry.Hash
		report.LastHash = entry.Hash
		lastSequence = entry.Sequence
	}

	report.OK = len(report.Errors) == 0
	if report.OK {
		s.setHead(&chainHead{sequence: lastSequence, hash: report.LastHash})
	} else {
		s.setHead(nil)
	}
	if !report.OK {
		logrus.WithField("errors", len(report.Errors)).Warn("Ledger validation failed")
	}
	return report, nil
}

// VerifyOwnership returns the creation block of a live product when the chain
// validates, and nil otherwise.
func (s *BlockchainService) VerifyOwnership(ctx context.Context, productID string) (*models.LedgerEntry, error) {
	product, err := s.products.GetByID(ctx, productID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	if product.Status == models.ProductStatusRemoved {
		return nil, nil
	}

	creation, err := s.FindCreation(ctx, productID)
	if err != nil || creation == nil {
		return nil, err
	}

	intact, err := s.chainIntact(ctx)
	if err != nil || !intact {
		return nil, err
	}
	return creation, nil
}

// chainIntact reports whether the ledger validates. When the head has not
// moved since the last full validation only the head block is rehashed.
func (s *BlockchainService) chainIntact(ctx context.Context) (bool, error) {
	latest, err := s.ledger.Latest(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read chain head: %w", err)
	}

	s.headMu.Lock()
	head := s.head
	s.headMu.Unlock()

	if head != nil && head.sequence == latest.Sequence && head.hash == latest.Hash {
		hash, err := ComputeHash(latest.Data, latest.PreviousHash)
		if err == nil && hash == latest.Hash {
			return true, nil
		}
	}

	report, err := s.Validate(ctx)
	if err != nil {
		return false, err
	}
	return report.OK, nil
}

func (s *BlockchainService) setHead(head *chainHead) {
	s.headMu.Lock()
	s.head = head
	s.headMu.Unlock()
}

// extendHead moves the validated head onto entry when entry was appended
// directly on top of it.
func (s *BlockchainService) extendHead(previousHash string, entry *models.LedgerEntry) {
	s.headMu.Lock()
	defer s.headMu.Unlock()

	switch {
	case s.head != nil && s.head.hash == previousHash && s.head.sequence+1 == entry.Sequence:
	case s.head == nil && previousHash == GenesisHash && entry.Sequence == 1:
	default:
		return
	}
	s.head = &chainHead{sequence: entry.Sequence, hash: entry.Hash}
}
