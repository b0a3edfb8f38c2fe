// internal/models/ledger.go
package models

import "time"

// LedgerEntry is one block of the hash-chained provenance ledger.
// Hash = sha256(canonical(Data) + PreviousHash); Sequence orders the chain.
type LedgerEntry struct {
	ID           string       `json:"block_id" gorm:"primaryKey;size:50"`
	Sequence     uint64       `json:"sequence" gorm:"uniqueIndex;not null"`
	Timestamp    time.Time    `json:"timestamp"`
	Data         JSONB        `json:"data" gorm:"type:jsonb;not null"`
	PreviousHash string       `json:"previous_hash" gorm:"size:64;not null"`
	Hash         string       `json:"hash" gorm:"size:64;not null"`
	ProductID    string       `json:"-" gorm:"size:50;index"`
	Action       LedgerAction `json:"-" gorm:"size:20;index"`
}

func (LedgerEntry) TableName() string {
	return "ledger_entries"
}

// SyncKeys copies the indexed columns out of Data.
func (e *LedgerEntry) SyncKeys() {
	e.ProductID = e.Data.String("product_id")
	e.Action = LedgerAction(e.Data.String("action"))
}

func (e *LedgerEntry) Clone() *LedgerEntry {
	if e == nil {
		return nil
	}
	out := *e
	out.Data = e.Data.Clone()
	return &out
}
