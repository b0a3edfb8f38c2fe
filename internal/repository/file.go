// internal/repository/file.go
package repository

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/secondhand/marketplace-backend/internal/models"
)

const (
	usersDir    = "users"
	productsDir = "products"
	ledgerDir   = "blockchain"
)

// userRecord keeps the password hash, which models.User hides from JSON.
type userRecord struct {
	models.User
	PasswordHash string `json:"password_hash"`
}

// NewFileStore opens a store that keeps one JSON document per record under dir.
// All records are loaded once; lookups are then served from in-memory indexes
// and every write goes to disk before it becomes visible.
func NewFileStore(dir string) (*Store, error) {
	for _, sub := range []string{usersDir, productsDir, ledgerDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	users := newMemoryUsers()
	if err := loadDir(filepath.Join(dir, usersDir), func(data []byte) error {
		var rec userRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return err
		}
		u := rec.User
		u.PasswordHash = rec.PasswordHash
		users.load(&u)
		return nil
	}); err != nil {
		return nil, err
	}
	users.persist = func(u *models.User) error {
		return writeJSONAtomic(filepath.Join(dir, usersDir, u.ID+".json"), userRecord{User: *u, PasswordHash: u.PasswordHash})
	}

	products := newMemoryProducts()
	var loaded []*models.Product
	if err := loadDir(filepath.Join(dir, productsDir), func(data []byte) error {
		var p models.Product
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		loaded = append(loaded, &p)
		return nil
	}); err != nil {
		return nil, err
	}
	sort.Slice(loaded, func(i, j int) bool {
		if !loaded[i].CreatedAt.Equal(loaded[j].CreatedAt) {
			return loaded[i].CreatedAt.Before(loaded[j].CreatedAt)
		}
		return loaded[i].ID < loaded[j].ID
	})
	for _, p := range loaded {
		products.load(p)
	}
	products.persist = func(p *models.Product) error {
		return writeJSONAtomic(filepath.Join(dir, productsDir, p.ID+".json"), p)
	}

	ledger := newMemoryLedger()
	var entries []*models.LedgerEntry
	if err := loadDir(filepath.Join(dir, ledgerDir), func(data []byte) error {
		var e models.LedgerEntry
		if err := json.Unmarshal(data, &e); err != nil {
			return err
		}
		entries = append(entries, &e)
		return nil
	}); err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Sequence < entries[j].Sequence
	})
	for _, e := range entries {
		ledger.load(e)
	}
	ledger.persist = func(e *models.LedgerEntry) error {
		return writeJSONAtomic(filepath.Join(dir, ledgerDir, e.ID+".json"), e)
	}

	logrus.WithFields(logrus.Fields{
		"dir":      dir,
		"users":    len(users.byID),
		"products": len(products.byID),
		"blocks":   len(ledger.entries),
	}).Info("File store loaded")

	return &Store{Users: users, Products: products, Ledger: ledger}, nil
}

// loadDir feeds every *.json file in dir to fn. Unreadable documents are
// skipped with a warning so one corrupt file does not take the store down.
func loadDir(dir string, fn func([]byte) error) error {
	files, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", dir, err)
	}

	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, f.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		if err := fn(data); err != nil {
			logrus.WithError(err).WithField("file", path).Warn("Skipping unreadable record")
		}
	}
	return nil
}

// writeJSONAtomic writes v to path via a temp file and rename, so readers
// never observe a partially written document.
func writeJSONAtomic(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", filepath.Base(path), err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
