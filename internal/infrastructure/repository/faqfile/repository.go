// Package faqfile is a JSON-file backed knowledge base.
package faqfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/kirillkom/support-agent/internal/core/domain"
)

type document struct {
	FAQs []domain.EvidenceItem `json:"faqs"`
}

// Repository keeps the whole knowledge base in memory and rewrites the file on
// every addition.
type Repository struct {
	path   string
	logger *slog.Logger

	mu       sync.RWMutex
	items    []domain.EvidenceItem
	revision uint64
}

// Open loads path. A missing file is created with the built-in FAQs; an
// unreadable or malformed file falls back to the built-in FAQs in memory and
// is left untouched.
func Open(path string, logger *slog.Logger) (*Repository, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Repository{path: path, logger: logger}

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		r.items = domain.DefaultFAQs()
		if err := r.persist(r.items); err != nil {
			return nil, err
		}
		logger.Info("knowledge base created with default faqs", "path", path, "count", len(r.items))
		return r, nil
	case err != nil:
		logger.Warn("knowledge base unreadable, using default faqs", "path", path, "error", err)
		r.items = domain.DefaultFAQs()
		return r, nil
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		logger.Warn("knowledge base malformed, using default faqs", "path", path, "error", err)
		r.items = domain.DefaultFAQs()
		return r, nil
	}
	r.items = doc.FAQs
	if r.items == nil {
		r.items = []domain.EvidenceItem{}
	}
	logger.Info("knowledge base loaded", "path", path, "count", len(r.items))
	return r, nil
}

func (r *Repository) AllItems(context.Context) ([]domain.EvidenceItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.EvidenceItem, len(r.items))
	copy(out, r.items)
	return out, nil
}

func (r *Repository) VerifiedItems(context.Context) ([]domain.EvidenceItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.EvidenceItem, 0, len(r.items))
	for _, item := range r.items {
		if item.Verified {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *Repository) FindByID(_ context.Context, id int) (domain.EvidenceItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, item := range r.items {
		if item.ID == id {
			return item, nil
		}
	}
	return domain.EvidenceItem{}, domain.WrapError(domain.ErrFAQNotFound, "find faq", fmt.Errorf("id %d", id))
}

// AddItem assigns max(id)+1, persists the file and bumps the revision.
func (r *Repository) AddItem(_ context.Context, draft domain.FAQDraft) (domain.EvidenceItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item := domain.EvidenceItem{
		ID:       domain.NextFAQID(r.items),
		Question: draft.Question,
		Answer:   draft.Answer,
		Category: draft.Category,
		Verified: draft.Verified,
	}
	next := append(append(make([]domain.EvidenceItem, 0, len(r.items)+1), r.items...), item)
	if err := r.persist(next); err != nil {
		return domain.EvidenceItem{}, err
	}
	r.items = next
	r.revision++
	return item, nil
}

func (r *Repository) Revision() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.revision
}

// persist writes through a temp file so a crash never leaves a truncated file.
func (r *Repository) persist(items []domain.EvidenceItem) error {
	raw, err := json.MarshalIndent(document{FAQs: items}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal knowledge base: %w", err)
	}
	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create knowledge base dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".faq-*.json")
	if err != nil {
		return fmt.Errorf("create temp knowledge base: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write knowledge base: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close knowledge base: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		return fmt.Errorf("replace knowledge base: %w", err)
	}
	return nil
}
