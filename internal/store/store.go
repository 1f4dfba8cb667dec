package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"

	docerr "github.com/WhiteShieldPT/docsearch-pt/internal/errors"
	"github.com/WhiteShieldPT/docsearch-pt/internal/query"
	"github.com/WhiteShieldPT/docsearch-pt/internal/record"
)

// walkPageSize is the cursor page for maintenance sweeps.
const walkPageSize = 500

// Store is the Bleve-backed document index. Safe for concurrent use;
// the write path takes the exclusive lock, searches share the read
// lock.
type Store struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	logger *slog.Logger
	closed bool
}

// Hit is one search result.
type Hit struct {
	ID     string
	Score  float64
	Fields map[string]interface{}

	// Fragment is the highlighted text excerpt, empty when the match
	// did not touch the text field.
	Fragment string
}

// Results is a ranked result page.
type Results struct {
	Total uint64
	Hits  []Hit
	Took  time.Duration
}

// Open opens or creates the index at path. A corrupted index is
// cleared and recreated empty rather than refusing to start; the
// operator reindexes to repopulate.
func Open(path string, logger *slog.Logger) (*Store, error) {
	im, err := createIndexMapping()
	if err != nil {
		return nil, docerr.New(docerr.ErrCodeInternal, "failed to create index mapping", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, docerr.New(docerr.ErrCodeFolderNotFound,
			fmt.Sprintf("cannot create index directory for %s", path), err)
	}

	if validErr := validateIndexIntegrity(path); validErr != nil {
		logger.Warn("index corrupted, clearing",
			slog.String("path", path),
			slog.String("error", validErr.Error()))
		if removeErr := os.RemoveAll(path); removeErr != nil {
			return nil, docerr.New(docerr.ErrCodeCorruptIndex,
				fmt.Sprintf("index corrupted at %s and cannot be cleared", path), removeErr)
		}
	}

	idx, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		idx, err = bleve.New(path, im)
	} else if err != nil && isCorruptionError(err) {
		logger.Warn("index open failed, recreating",
			slog.String("path", path),
			slog.String("error", err.Error()))
		if removeErr := os.RemoveAll(path); removeErr != nil {
			return nil, docerr.New(docerr.ErrCodeCorruptIndex,
				fmt.Sprintf("index corrupted at %s and cannot be cleared", path), removeErr)
		}
		idx, err = bleve.New(path, im)
	}
	if err != nil {
		return nil, docerr.New(docerr.ErrCodeStoreUnavailable,
			fmt.Sprintf("failed to open index at %s", path), err)
	}

	return &Store{index: idx, path: path, logger: logger}, nil
}

// NewMemOnly creates an in-memory index, used by tests.
func NewMemOnly(logger *slog.Logger) (*Store, error) {
	im, err := createIndexMapping()
	if err != nil {
		return nil, docerr.New(docerr.ErrCodeInternal, "failed to create index mapping", err)
	}
	idx, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, docerr.New(docerr.ErrCodeStoreUnavailable, "failed to create in-memory index", err)
	}
	return &Store{index: idx, logger: logger}, nil
}

// validateIndexIntegrity detects a half-written or truncated index
// before Bleve trips over it.
func validateIndexIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	metaPath := filepath.Join(path, "index_meta.json")
	info, err := os.Stat(metaPath)
	if os.IsNotExist(err) {
		return fmt.Errorf("index_meta.json missing")
	}
	if err != nil {
		return fmt.Errorf("cannot stat index_meta.json: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("index_meta.json is empty")
	}
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return fmt.Errorf("cannot read index_meta.json: %w", err)
	}
	var meta map[string]interface{}
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("index_meta.json is corrupt: %w", err)
	}
	return nil
}

func isCorruptionError(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "unexpected end of JSON") ||
		strings.Contains(s, "error parsing mapping JSON") ||
		strings.Contains(s, "failed to load segment") ||
		strings.Contains(s, "error opening bolt") ||
		err == bleve.ErrorIndexMetaCorrupt
}

// Close releases the index. Further calls fail.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.index.Close()
}

// Upsert writes rec under its id, replacing any previous version.
func (s *Store) Upsert(ctx context.Context, rec record.IndexRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return docerr.New(docerr.ErrCodeStoreUnavailable, "index is closed", nil)
	}
	if err := s.index.Index(rec.ID, rec); err != nil {
		return docerr.New(docerr.ErrCodeIndexFailed,
			fmt.Sprintf("failed to index document %s", rec.Filename), err)
	}
	return nil
}

// Exists reports whether a document with the given id is indexed.
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false, docerr.New(docerr.ErrCodeStoreUnavailable, "index is closed", nil)
	}
	doc, err := s.index.Document(id)
	if err != nil {
		return false, docerr.New(docerr.ErrCodeStoreUnavailable, "existence check failed", err)
	}
	return doc != nil, nil
}

// Get fetches one document's stored fields by id. Returns nil when
// the id is not indexed.
func (s *Store) Get(ctx context.Context, id string) (*Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, docerr.New(docerr.ErrCodeStoreUnavailable, "index is closed", nil)
	}

	q := bleve.NewDocIDQuery([]string{id})
	req := bleve.NewSearchRequest(q)
	req.Fields = []string{"*"}
	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, docerr.New(docerr.ErrCodeStoreUnavailable, "get failed", err)
	}
	if len(res.Hits) == 0 {
		return nil, nil
	}
	h := res.Hits[0]
	return &Hit{ID: h.ID, Score: h.Score, Fields: h.Fields}, nil
}

// Delete removes one document. Deleting an absent id is a no-op.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return docerr.New(docerr.ErrCodeStoreUnavailable, "index is closed", nil)
	}
	if err := s.index.Delete(id); err != nil {
		return docerr.New(docerr.ErrCodeStoreUnavailable,
			fmt.Sprintf("failed to delete document %s", id), err)
	}
	return nil
}

// Count returns the number of indexed documents.
func (s *Store) Count() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, docerr.New(docerr.ErrCodeStoreUnavailable, "index is closed", nil)
	}
	return s.index.DocCount()
}

// Search executes a plan and returns up to size hits ranked by score
// then recency, each with one highlighted text fragment when the
// match touched the text.
func (s *Store) Search(ctx context.Context, p query.Plan, size int) (*Results, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, docerr.New(docerr.ErrCodeStoreUnavailable, "index is closed", nil)
	}
	if size <= 0 {
		size = 50
	}

	req := bleve.NewSearchRequest(translatePlan(p))
	req.Size = size
	req.Fields = []string{"*"}
	req.Highlight = bleve.NewHighlight()
	req.Highlight.AddField(query.FieldText)
	req.SortBy([]string{"-_score", "-" + query.FieldIndexedAt})

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, docerr.New(docerr.ErrCodeSearchFailed, "search failed", err)
	}

	out := &Results{Total: res.Total, Took: res.Took}
	for _, h := range res.Hits {
		hit := Hit{ID: h.ID, Score: h.Score, Fields: h.Fields}
		if frags, ok := h.Fragments[query.FieldText]; ok && len(frags) > 0 {
			hit.Fragment = frags[0]
		}
		out.Hits = append(out.Hits, hit)
	}
	return out, nil
}

// WalkPaths streams every (id, path) pair to fn in pages, for orphan
// sweeps. fn returning an error stops the walk.
func (s *Store) WalkPaths(ctx context.Context, fn func(id, path string) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return docerr.New(docerr.ErrCodeStoreUnavailable, "index is closed", nil)
	}

	for from := 0; ; from += walkPageSize {
		req := bleve.NewSearchRequest(bleve.NewMatchAllQuery())
		req.Size = walkPageSize
		req.From = from
		req.Fields = []string{query.FieldPath}
		req.SortBy([]string{"_id"})

		res, err := s.index.SearchInContext(ctx, req)
		if err != nil {
			return docerr.New(docerr.ErrCodeStoreUnavailable, "walk failed", err)
		}
		for _, h := range res.Hits {
			p, _ := h.Fields[query.FieldPath].(string)
			if err := fn(h.ID, p); err != nil {
				return err
			}
		}
		if len(res.Hits) < walkPageSize {
			return nil
		}
	}
}
