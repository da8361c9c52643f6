package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/google/uuid"
)

// SearchDocument is the indexed view of one batch file. Invoice numbers
// and serials are keyword fields for exact lookup; the description is
// tokenized so free-text queries like "mobifone T12.24" work.
type SearchDocument struct {
	ID          string `json:"id"`
	BatchID     string `json:"batch_id"`
	Vendor      string `json:"vendor"`
	Period      string `json:"period"`
	InvoiceNo   string `json:"invoice_no"`
	SerialNo    string `json:"serial_no"`
	Filename    string `json:"filename"`
	Description string `json:"description"`
}

// SearchResult is a search hit with its relevance score.
type SearchResult struct {
	Document SearchDocument
	BatchID  uuid.UUID
	Score    float64
}

// SearchIndex provides full-text search over archived batches.
type SearchIndex struct {
	index   bleve.Index
	indexMu sync.RWMutex
}

// NewSearchIndex opens or creates the index at path. An empty path
// builds an in-memory index, used by tests.
func NewSearchIndex(path string) (*SearchIndex, error) {
	indexMapping := buildIndexMapping()

	var index bleve.Index
	var err error

	if path == "" {
		index, err = bleve.NewMemOnly(indexMapping)
	} else if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		if mkdirErr := os.MkdirAll(filepath.Dir(path), 0o755); mkdirErr != nil {
			return nil, fmt.Errorf("failed to create index directory: %w", mkdirErr)
		}
		index, err = bleve.New(path, indexMapping)
	} else {
		index, err = bleve.Open(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create/open index: %w", err)
	}

	return &SearchIndex{index: index}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = simple.Name

	keywordFieldMapping := bleve.NewTextFieldMapping()
	keywordFieldMapping.Analyzer = keyword.Name

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("batch_id", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("vendor", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("period", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("invoice_no", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("serial_no", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("filename", textFieldMapping)
	docMapping.AddFieldMappingsAt("description", textFieldMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = simple.Name

	return indexMapping
}

// IndexBatch adds a batch and its files to the index in one bleve batch.
func (si *SearchIndex) IndexBatch(batch *Batch, files []BatchFile) error {
	si.indexMu.Lock()
	defer si.indexMu.Unlock()

	b := si.index.NewBatch()
	for _, f := range files {
		doc := SearchDocument{
			ID:        f.ID.String(),
			BatchID:   batch.ID.String(),
			Vendor:    batch.Vendor,
			Period:    batch.Period,
			InvoiceNo: f.InvoiceNo,
			SerialNo:  f.SerialNo,
			Filename:  f.Filename,
			Description: fmt.Sprintf("%s %s %s %s %s",
				batch.Vendor, batch.Period, f.InvoiceNo, f.SerialNo, f.Filename),
		}
		if err := b.Index(doc.ID, doc); err != nil {
			return fmt.Errorf("failed to index file %s: %w", f.ID, err)
		}
	}

	if err := si.index.Batch(b); err != nil {
		return fmt.Errorf("failed to execute batch index: %w", err)
	}
	return nil
}

// Search runs a fuzzy match query over the archive.
func (si *SearchIndex) Search(query string, limit int) ([]SearchResult, error) {
	si.indexMu.RLock()
	defer si.indexMu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	matchQuery := bleve.NewMatchQuery(query)
	matchQuery.SetFuzziness(1)

	searchRequest := bleve.NewSearchRequest(matchQuery)
	searchRequest.Size = limit
	searchRequest.Fields = []string{"*"}

	searchResults, err := si.index.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	return si.convertResults(searchResults)
}

// SearchInvoiceNo finds batches containing an exact invoice number.
func (si *SearchIndex) SearchInvoiceNo(invoiceNo string) ([]SearchResult, error) {
	si.indexMu.RLock()
	defer si.indexMu.RUnlock()

	termQuery := bleve.NewTermQuery(invoiceNo)
	termQuery.SetField("invoice_no")

	searchRequest := bleve.NewSearchRequest(termQuery)
	searchRequest.Size = 50
	searchRequest.Fields = []string{"*"}

	searchResults, err := si.index.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("invoice number search failed: %w", err)
	}

	return si.convertResults(searchResults)
}

// DeleteBatch removes a batch's documents from the index.
func (si *SearchIndex) DeleteBatch(batchID uuid.UUID) error {
	si.indexMu.Lock()
	defer si.indexMu.Unlock()

	termQuery := bleve.NewTermQuery(batchID.String())
	termQuery.SetField("batch_id")

	searchRequest := bleve.NewSearchRequest(termQuery)
	searchRequest.Size = 10000

	searchResults, err := si.index.Search(searchRequest)
	if err != nil {
		return fmt.Errorf("failed to list batch documents: %w", err)
	}

	b := si.index.NewBatch()
	for _, hit := range searchResults.Hits {
		b.Delete(hit.ID)
	}
	if err := si.index.Batch(b); err != nil {
		return fmt.Errorf("failed to delete batch documents: %w", err)
	}
	return nil
}

// DocumentCount returns the number of indexed files.
func (si *SearchIndex) DocumentCount() (uint64, error) {
	si.indexMu.RLock()
	defer si.indexMu.RUnlock()

	return si.index.DocCount()
}

// Close closes the index.
func (si *SearchIndex) Close() error {
	si.indexMu.Lock()
	defer si.indexMu.Unlock()

	if si.index != nil {
		return si.index.Close()
	}
	return nil
}

func (si *SearchIndex) convertResults(searchResults *bleve.SearchResult) ([]SearchResult, error) {
	results := make([]SearchResult, 0, len(searchResults.Hits))

	for _, hit := range searchResults.Hits {
		doc := SearchDocument{ID: hit.ID}

		if v, ok := hit.Fields["batch_id"].(string); ok {
			doc.BatchID = v
		}
		if v, ok := hit.Fields["vendor"].(string); ok {
			doc.Vendor = v
		}
		if v, ok := hit.Fields["period"].(string); ok {
			doc.Period = v
		}
		if v, ok := hit.Fields["invoice_no"].(string); ok {
			doc.InvoiceNo = v
		}
		if v, ok := hit.Fields["serial_no"].(string); ok {
			doc.SerialNo = v
		}
		if v, ok := hit.Fields["filename"].(string); ok {
			doc.Filename = v
		}
		if v, ok := hit.Fields["description"].(string); ok {
			doc.Description = v
		}

		result := SearchResult{Document: doc, Score: hit.Score}
		if id, err := uuid.Parse(doc.BatchID); err == nil {
			result.BatchID = id
		}
		results = append(results, result)
	}

	return results, nil
}
