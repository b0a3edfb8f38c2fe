// internal/services/search_service.go
package services

import (
	"fmt"
	"os"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/sirupsen/logrus"

	"github.com/secondhand/marketplace-backend/internal/models"
)

// SearchService is a full-text index over listings. It is rebuilt from the
// record store at startup and kept current as listings change.
type SearchService struct {
	mu    sync.RWMutex
	index bleve.Index
}

// NewSearchService opens the index at path, or keeps it in memory when path
// is empty. An unreadable index on disk is recreated.
func NewSearchService(path string) (*SearchService, error) {
	if path == "" {
		index, err := bleve.NewMemOnly(buildProductMapping())
		if err != nil {
			return nil, fmt.Errorf("create search index: %w", err)
		}
		return &SearchService{index: index}, nil
	}

	index, err := bleve.Open(path)
	if err == nil {
		logrus.WithField("path", path).Info("Opened existing search index")
		return &SearchService{index: index}, nil
	}

	if err != bleve.ErrorIndexPathDoesNotExist {
		logrus.WithError(err).WithField("path", path).Warn("Failed to open search index, recreating")
		if removeErr := os.RemoveAll(path); removeErr != nil {
			return nil, fmt.Errorf("remove old search index: %w", removeErr)
		}
	}

	index, err = bleve.New(path, buildProductMapping())
	if err != nil {
		return nil, fmt.Errorf("create search index: %w", err)
	}
	logrus.WithField("path", path).Info("Created search index")
	return &SearchService{index: index}, nil
}

func buildProductMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	for _, field := range []string{"title", "description", "brand", "location"} {
		textField := bleve.NewTextFieldMapping()
		textField.Analyzer = en.AnalyzerName
		docMapping.AddFieldMappingsAt(field, textField)
	}

	// Exact-match filters
	for _, field := range []string{"category", "condition", "status"} {
		keywordField := bleve.NewTextFieldMapping()
		keywordField.Analyzer = keyword.Name
		docMapping.AddFieldMappingsAt(field, keywordField)
	}

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

func (s *SearchService) IndexProduct(p *models.Product) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Index(p.ID, toDocument(p))
}

// IndexProducts indexes products in one batch.
func (s *SearchService) IndexProducts(products []*models.Product) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	batch := s.index.NewBatch()
	for _, p := range products {
		if err := batch.Index(p.ID, toDocument(p)); err != nil {
			return fmt.Errorf("batch index %s: %w", p.ID, err)
		}
	}
	return s.index.Batch(batch)
}

func (s *SearchService) DeleteProduct(id string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Delete(id)
}

// Search returns ids of listings matching text, best match first. When
// category is set only listings in that category are returned.
func (s *SearchService) Search(text, category string, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}

	match := bleve.NewMatchQuery(text)
	match.SetOperator(query.MatchQueryOperatorAnd)

	var q query.Query = match
	if category != "" {
		categoryQuery := bleve.NewTermQuery(category)
		categoryQuery.SetField("category")
		q = bleve.NewConjunctionQuery(match, categoryQuery)
	}

	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	res, err := s.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	ids := make([]string, 0, len(res.Hits))
	for _, hit := range res.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}

func (s *SearchService) DocumentCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}

func (s *SearchService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

// toDocument uses a map so field names match the mapping exactly.
func toDocument(p *models.Product) map[string]interface{} {
	return map[string]interface{}{
		"title":       p.Title,
		"description": p.Description,
		"brand":       p.Brand,
		"location":    p.Location,
		"category":    p.Category,
		"condition":   p.Condition,
		"status":      string(p.Status),
	}
}
