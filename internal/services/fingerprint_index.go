// internal/services/fingerprint_index.go
package services

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/corona10/goimagehash"
)

// FingerprintIndex answers "is any stored average hash within threshold bits
// of this one" without comparing against every stored hash.
//
// Each 64-bit hash is cut into threshold bands. Two hashes that differ in
// fewer than threshold bits leave at least one band untouched, so only hashes
// sharing a band value with the query need a full distance check.
type FingerprintIndex struct {
	mu        sync.RWMutex
	threshold int
	bands     []hashBand
	buckets   []map[uint64][]int
	entries   []fingerprint
	byProduct map[string][]int
}

type hashBand struct {
	shift uint
	mask  uint64
}

type fingerprint struct {
	productID string
	hash      *goimagehash.ImageHash
	removed   bool
}

func NewFingerprintIndex(threshold int) *FingerprintIndex {
	n := threshold
	if n < 1 {
		n = 1
	}
	if n > 64 {
		n = 64
	}

	bands := make([]hashBand, n)
	buckets := make([]map[uint64][]int, n)
	width, extra := 64/n, 64%n
	var shift uint
	for i := 0; i < n; i++ {
		w := width
		if i < extra {
			w++
		}
		mask := ^uint64(0)
		if w < 64 {
			mask = (uint64(1) << uint(w)) - 1
		}
		bands[i] = hashBand{shift: shift, mask: mask}
		buckets[i] = make(map[uint64][]int)
		shift += uint(w)
	}

	return &FingerprintIndex{
		threshold: threshold,
		bands:     bands,
		buckets:   buckets,
		byProduct: make(map[string][]int),
	}
}

// ParseFingerprint decodes the 16-hex-digit form stored on products.
func ParseFingerprint(s string) (uint64, error) {
	if len(s) != 16 {
		return 0, fmt.Errorf("fingerprint %q: want 16 hex digits", s)
	}
	return strconv.ParseUint(s, 16, 64)
}

func FormatFingerprint(hash uint64) string {
	return fmt.Sprintf("%016x", hash)
}

func (x *FingerprintIndex) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}

// Add records hashes for productID without checking for similar ones.
func (x *FingerprintIndex) Add(productID string, hashes []uint64) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.addLocked(productID, hashes)
}

// Match returns the earliest indexed product holding a hash similar to any of
// hashes.
func (x *FingerprintIndex) Match(hashes []uint64) (string, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.matchLocked(hashes)
}

// Claim checks hashes and, when nothing similar is stored, records them under
// productID in the same critical section. On a match it returns the
// conflicting product id and false.
func (x *FingerprintIndex) Claim(productID string, hashes []uint64) (string, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if conflict, found := x.matchLocked(hashes); found {
		return conflict, false
	}
	x.addLocked(productID, hashes)
	return "", true
}

// Remove drops every hash held by productID.
func (x *FingerprintIndex) Remove(productID string) {
	x.mu.Lock()
	defer x.mu.Unlock()

	for _, idx := range x.byProduct[productID] {
		x.entries[idx].removed = true
	}
	delete(x.byProduct, productID)
}

func (x *FingerprintIndex) addLocked(productID string, hashes []uint64) {
	for _, h := range hashes {
		idx := len(x.entries)
		x.entries = append(x.entries, fingerprint{
			productID: productID,
			hash:      goimagehash.NewImageHash(h, goimagehash.AHash),
		})
		for i, b := range x.bands {
			key := (h >> b.shift) & b.mask
			x.buckets[i][key] = append(x.buckets[i][key], idx)
		}
		x.byProduct[productID] = append(x.byProduct[productID], idx)
	}
}

func (x *FingerprintIndex) matchLocked(hashes []uint64) (string, bool) {
	best := -1
	for _, h := range hashes {
		query := goimagehash.NewImageHash(h, goimagehash.AHash)
		for i, b := range x.bands {
			key := (h >> b.shift) & b.mask
			for _, idx := range x.buckets[i][key] {
				if best >= 0 && idx >= best {
					continue
				}
				e := x.entries[idx]
				if e.removed {
					continue
				}
				distance, err := query.Distance(e.hash)
				if err != nil {
					continue
				}
				if distance < x.threshold {
					best = idx
				}
			}
		}
	}

	if best < 0 {
		return "", false
	}
	return x.entries[best].productID, true
}
