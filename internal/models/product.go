// internal/models/product.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

type Product struct {
	ID             string         `json:"product_id" gorm:"primaryKey;size:50"`
	SellerID       string         `json:"seller_id" gorm:"size:50;not null;index"`
	Title          string         `json:"title" gorm:"size:255;not null"`
	Category       string         `json:"category" gorm:"size:100;not null;index"`
	Condition      string         `json:"condition" gorm:"size:50;not null"`
	Price          float64        `json:"price" gorm:"type:decimal(12,2);not null"`
	Description    string         `json:"description" gorm:"type:text;not null"`
	Brand          string         `json:"brand" gorm:"size:100"`
	Location       string         `json:"location" gorm:"size:100"`
	Images         pq.StringArray `json:"images" gorm:"type:text[]"`
	ImageHashes    pq.StringArray `json:"image_hashes" gorm:"type:text[]"`
	Status         ProductStatus  `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	Views          int64          `json:"views" gorm:"default:0"`
	WatchlistCount int64          `json:"watchlist_count" gorm:"default:0"`
	NanoTag        NanoTag        `json:"nano_tag" gorm:"type:jsonb"`
	BlockchainID   string         `json:"blockchain_id" gorm:"size:50"`
	BuyerID        string         `json:"buyer_id,omitempty" gorm:"size:50;index"`
	CreatedAt      time.Time      `json:"created_at" gorm:"index"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Clone returns a deep copy so callers can mutate without touching stored state.
func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	out := *p
	out.Images = append(pq.StringArray(nil), p.Images...)
	out.ImageHashes = append(pq.StringArray(nil), p.ImageHashes...)
	if p.NanoTag.ActivatedAt != nil {
		at := *p.NanoTag.ActivatedAt
		out.NanoTag.ActivatedAt = &at
	}
	return &out
}

// NanoTag is the QR tag attached to a listing. It is stored as a jsonb column.
type NanoTag struct {
	TagID       string     `json:"tag_id"`
	ProductID   string     `json:"product_id"`
	QRCode      string     `json:"qr_code"`
	VerifyURL   string     `json:"verify_url"`
	Activated   bool       `json:"activated"`
	CreatedAt   time.Time  `json:"created_at"`
	ActivatedAt *time.Time `json:"activated_at"`
}

func (t NanoTag) IsZero() bool {
	return t.TagID == ""
}

func (t NanoTag) Value() (driver.Value, error) {
	if t.IsZero() {
		return nil, nil
	}
	return json.Marshal(t)
}

func (t *NanoTag) Scan(value interface{}) error {
	if value == nil {
		*t = NanoTag{}
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, t)
	case string:
		return json.Unmarshal([]byte(v), t)
	default:
		return fmt.Errorf("cannot scan %T into NanoTag", value)
	}
}
