package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secondhand/marketplace-backend/internal/models"
)

func TestFileStore_ReopenRestoresIndexes(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := NewFileStore(dir)
	require.NoError(t, err)

	u := &models.User{ID: "USR_AAAAAAAAAAAA", Email: "alice@example.com", ReputationScore: 100}
	require.NoError(t, u.SetPassword("secret123"))
	require.NoError(t, store.Users.Create(ctx, u))

	base := time.Now().UTC()
	require.NoError(t, store.Products.Create(ctx, newProduct("PRD_000000000001", u.ID, "books", base)))
	require.NoError(t, store.Products.Create(ctx, newProduct("PRD_000000000002", u.ID, "books", base.Add(time.Second))))
	require.NoError(t, store.Ledger.Append(ctx, &models.LedgerEntry{
		ID:       "block-1",
		Sequence: 1,
		Data:     models.JSONB{"product_id": "PRD_000000000001", "action": "created"},
	}))

	reopened, err := NewFileStore(dir)
	require.NoError(t, err)

	got, err := reopened.Users.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.NoError(t, got.CheckPassword("secret123"), "password hash must survive a restart")

	list, total, err := reopened.Products.List(ctx, ProductFilter{SellerID: u.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Equal(t, "PRD_000000000002", list[0].ID)

	created, err := reopened.Ledger.FindByProduct(ctx, "PRD_000000000001", models.LedgerActionCreated)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "block-1", created[0].ID)
}

func TestFileStore_LayoutAndNoTempFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Products.Create(ctx, newProduct("PRD_000000000001", "USR_1", "books", time.Now())))

	_, err = os.Stat(filepath.Join(dir, "products", "PRD_000000000001.json"))
	require.NoError(t, err)

	leftovers, err := filepath.Glob(filepath.Join(dir, "products", ".tmp-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestFileStore_SkipsCorruptRecords(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "products"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "products", "broken.json"), []byte("{not json"), 0o644))

	store, err := NewFileStore(dir)
	require.NoError(t, err)

	_, total, err := store.Products.List(ctx, ProductFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
}
