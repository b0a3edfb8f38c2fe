// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// AnonymousSellerID owns listings created without an authenticated session.
const AnonymousSellerID = "ANON_USR_001"

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	default:
		return fmt.Errorf("cannot scan %T into JSONB", value)
	}
}

// Clone returns a shallow copy of the map.
func (j JSONB) Clone() JSONB {
	if j == nil {
		return nil
	}
	out := make(JSONB, len(j))
	for k, v := range j {
		out[k] = v
	}
	return out
}

// String returns the value under key when it is a string.
func (j JSONB) String(key string) string {
	s, _ := j[key].(string)
	return s
}

// Enums
type ProductStatus string

const (
	ProductStatusPending ProductStatus = "pending"
	ProductStatusActive  ProductStatus = "active"
	ProductStatusSold    ProductStatus = "sold"
	ProductStatusRemoved ProductStatus = "removed"
)

func (s ProductStatus) rank() int {
	switch s {
	case ProductStatusPending:
		return 0
	case ProductStatusActive:
		return 1
	case ProductStatusSold:
		return 2
	case ProductStatusRemoved:
		return 3
	}
	return -1
}

func (s ProductStatus) Valid() bool {
	return s.rank() >= 0
}

// CanTransitionTo enforces pending -> active -> sold, with removed reachable
// from any live state and terminal. Staying in the same live state is allowed.
func (s ProductStatus) CanTransitionTo(next ProductStatus) bool {
	if !s.Valid() || !next.Valid() || s == ProductStatusRemoved {
		return false
	}
	return next.rank() >= s.rank()
}

type LedgerAction string

const (
	LedgerActionCreated     LedgerAction = "created"
	LedgerActionTransferred LedgerAction = "transferred"
)
