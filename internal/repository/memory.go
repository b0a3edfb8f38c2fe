// internal/repository/memory.go
package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/secondhand/marketplace-backend/internal/models"
)

// NewMemoryStore returns a store that lives only in process memory.
func NewMemoryStore() *Store {
	return &Store{
		Users:    newMemoryUsers(),
		Products: newMemoryProducts(),
		Ledger:   newMemoryLedger(),
	}
}

type memoryUsers struct {
	mu      sync.RWMutex
	byID    map[string]*models.User
	byEmail map[string]string

	// persist runs under the write lock before a change becomes visible.
	persist func(*models.User) error
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{
		byID:    make(map[string]*models.User),
		byEmail: make(map[string]string),
	}
}

func (r *memoryUsers) load(u *models.User) {
	r.byID[u.ID] = u
	r.byEmail[u.Email] = u.ID
}

func (r *memoryUsers) Create(ctx context.Context, user *models.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[user.ID]; exists {
		return ErrDuplicate
	}
	if _, exists := r.byEmail[user.Email]; exists {
		return ErrDuplicate
	}

	stored := user.Clone()
	if r.persist != nil {
		if err := r.persist(stored); err != nil {
			return err
		}
	}
	r.load(stored)
	return nil
}

func (r *memoryUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return u.Clone(), nil
}

func (r *memoryUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	return r.byID[id].Clone(), nil
}

func (r *memoryUsers) Update(ctx context.Context, id string, fn func(*models.User) error) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}

	next := current.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	// id and email are index keys and stay fixed
	next.ID = current.ID
	next.Email = current.Email

	if r.persist != nil {
		if err := r.persist(next); err != nil {
			return nil, err
		}
	}
	r.byID[id] = next
	return next.Clone(), nil
}

type memoryProducts struct {
	mu         sync.RWMutex
	byID       map[string]*models.Product
	insertSeq  map[string]uint64
	nextSeq    uint64
	bySeller   map[string]map[string]struct{}
	byCategory map[string]map[string]struct{}

	persist func(*models.Product) error
}

func newMemoryProducts() *memoryProducts {
	return &memoryProducts{
		byID:       make(map[string]*models.Product),
		insertSeq:  make(map[string]uint64),
		bySeller:   make(map[string]map[string]struct{}),
		byCategory: make(map[string]map[string]struct{}),
	}
}

func (r *memoryProducts) load(p *models.Product) {
	r.byID[p.ID] = p
	r.nextSeq++
	r.insertSeq[p.ID] = r.nextSeq
	addToSet(r.bySeller, p.SellerID, p.ID)
	addToSet(r.byCategory, p.Category, p.ID)
}

func addToSet(index map[string]map[string]struct{}, key, id string) {
	set, ok := index[key]
	if !ok {
		set = make(map[string]struct{})
		index[key] = set
	}
	set[id] = struct{}{}
}

func (r *memoryProducts) Create(ctx context.Context, product *models.Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[product.ID]; exists {
		return ErrDuplicate
	}

	stored := product.Clone()
	if r.persist != nil {
		if err := r.persist(stored); err != nil {
			return err
		}
	}
	r.load(stored)
	return nil
}

func (r *memoryProducts) GetByID(ctx context.Context, id string) (*models.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p.Clone(), nil
}

func (r *memoryProducts) Update(ctx context.Context, id string, fn func(*models.Product) error) (*models.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.updateLocked(id, fn)
}

func (r *memoryProducts) updateLocked(id string, fn func(*models.Product) error) (*models.Product, error) {
	current, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}

	next := current.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	// index keys stay fixed
	next.ID = current.ID
	next.SellerID = current.SellerID
	next.Category = current.Category

	if r.persist != nil {
		if err := r.persist(next); err != nil {
			return nil, err
		}
	}
	r.byID[id] = next
	return next.Clone(), nil
}

func (r *memoryProducts) IncrementViews(ctx context.Context, id string) (*models.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.updateLocked(id, func(p *models.Product) error {
		p.Views++
		return nil
	})
}

func (r *memoryProducts) List(ctx context.Context, filter ProductFilter) ([]*models.Product, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var wanted map[string]struct{}
	if len(filter.IDs) > 0 {
		wanted = make(map[string]struct{}, len(filter.IDs))
		for _, id := range filter.IDs {
			wanted[id] = struct{}{}
		}
	}

	var candidates map[string]*models.Product
	switch {
	case filter.SellerID != "":
		candidates = r.pick(r.bySeller[filter.SellerID])
	case filter.Category != "":
		candidates = r.pick(r.byCategory[filter.Category])
	default:
		candidates = r.byID
	}

	matched := make([]*models.Product, 0, len(candidates))
	for id, p := range candidates {
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if filter.ExcludeRemoved && p.Status == models.ProductStatusRemoved {
			continue
		}
		if wanted != nil {
			if _, ok := wanted[id]; !ok {
				continue
			}
		}
		matched = append(matched, p)
	}

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return r.insertSeq[a.ID] > r.insertSeq[b.ID]
	})

	total := int64(len(matched))
	page := paginate(matched, filter.Offset, filter.Limit)

	out := make([]*models.Product, len(page))
	for i, p := range page {
		out[i] = p.Clone()
	}
	return out, total, nil
}

func (r *memoryProducts) pick(ids map[string]struct{}) map[string]*models.Product {
	out := make(map[string]*models.Product, len(ids))
	for id := range ids {
		out[id] = r.byID[id]
	}
	return out
}

func paginate(items []*models.Product, offset, limit int) []*models.Product {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

type memoryLedger struct {
	mu        sync.RWMutex
	entries   []*models.LedgerEntry
	byID      map[string]int
	byProduct map[string][]int

	persist func(*models.LedgerEntry) error
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{
		byID:      make(map[string]int),
		byProduct: make(map[string][]int),
	}
}

// load appends an entry already known to be in sequence order.
func (r *memoryLedger) load(e *models.LedgerEntry) {
	e.SyncKeys()
	idx := len(r.entries)
	r.entries = append(r.entries, e)
	r.byID[e.ID] = idx
	if e.ProductID != "" {
		r.byProduct[e.ProductID] = append(r.byProduct[e.ProductID], idx)
	}
}

func (r *memoryLedger) Append(ctx context.Context, entry *models.LedgerEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if n := len(r.entries); n > 0 && entry.Sequence <= r.entries[n-1].Sequence {
		return ErrConflict
	}
	if _, exists := r.byID[entry.ID]; exists {
		return ErrDuplicate
	}

	stored := entry.Clone()
	stored.SyncKeys()
	if r.persist != nil {
		if err := r.persist(stored); err != nil {
			return err
		}
	}
	r.load(stored)
	return nil
}

func (r *memoryLedger) Latest(ctx context.Context) (*models.LedgerEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.entries) == 0 {
		return nil, ErrNotFound
	}
	return r.entries[len(r.entries)-1].Clone(), nil
}

func (r *memoryLedger) GetByID(ctx context.Context, id string) (*models.LedgerEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	idx, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r.entries[idx].Clone(), nil
}

func (r *memoryLedger) FindByProduct(ctx context.Context, productID string, action models.LedgerAction) ([]*models.LedgerEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.LedgerEntry
	for _, idx := range r.byProduct[productID] {
		e := r.entries[idx]
		if action != "" && e.Action != action {
			continue
		}
		out = append(out, e.Clone())
	}
	return out, nil
}

func (r *memoryLedger) All(ctx context.Context) ([]*models.LedgerEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.LedgerEntry, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Clone()
	}
	return out, nil
}
