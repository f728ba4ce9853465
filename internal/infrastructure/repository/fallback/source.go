// Package fallback serves the built-in FAQ set whenever the configured
// evidence store cannot be read.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kirillkom/support-agent/internal/core/domain"
	"github.com/kirillkom/support-agent/internal/core/ports"
)

var errStoreUnavailable = errors.New("evidence store unavailable")

// Source wraps an evidence store. Reads that fail are answered from the
// built-in defaults; writes always go to the store. A nil store means it could
// not be opened at all, and the source is read-only.
type Source struct {
	store    ports.EvidenceSource
	defaults []domain.EvidenceItem
	logger   *slog.Logger
}

func New(store ports.EvidenceSource, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{store: store, defaults: domain.DefaultFAQs(), logger: logger}
}

func (s *Source) AllItems(ctx context.Context) ([]domain.EvidenceItem, error) {
	if s.store != nil {
		items, err := s.store.AllItems(ctx)
		if err == nil {
			return items, nil
		}
		s.logger.Warn("evidence store read failed, using built-in faqs", "error", err)
	}
	return append([]domain.EvidenceItem(nil), s.defaults...), nil
}

func (s *Source) VerifiedItems(ctx context.Context) ([]domain.EvidenceItem, error) {
	if s.store != nil {
		items, err := s.store.VerifiedItems(ctx)
		if err == nil {
			return items, nil
		}
		s.logger.Warn("evidence store read failed, using built-in faqs", "error", err)
	}
	out := make([]domain.EvidenceItem, 0, len(s.defaults))
	for _, item := range s.defaults {
		if item.Verified {
			out = append(out, item)
		}
	}
	return out, nil
}

// FindByID does not fall back when a store is present: a missing row and an
// unreachable store must stay distinguishable to the caller.
func (s *Source) FindByID(ctx context.Context, id int) (domain.EvidenceItem, error) {
	if s.store != nil {
		return s.store.FindByID(ctx, id)
	}
	for _, item := range s.defaults {
		if item.ID == id {
			return item, nil
		}
	}
	return domain.EvidenceItem{}, domain.WrapError(domain.ErrFAQNotFound, "find faq", fmt.Errorf("id %d", id))
}

func (s *Source) AddItem(ctx context.Context, draft domain.FAQDraft) (domain.EvidenceItem, error) {
	if s.store == nil {
		return domain.EvidenceItem{}, domain.WrapError(domain.ErrTemporary, "add faq", errStoreUnavailable)
	}
	return s.store.AddItem(ctx, draft)
}

func (s *Source) Revision() uint64 {
	if s.store == nil {
		return 0
	}
	return s.store.Revision()
}
