package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/support-agent/internal/core/domain"
	"github.com/kirillkom/support-agent/internal/core/ports"
)

const defaultCategory = "general"

type KnowledgeUseCase struct {
	source ports.EvidenceSource
	logger *slog.Logger
}

func NewKnowledgeUseCase(source ports.EvidenceSource, logger *slog.Logger) *KnowledgeUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &KnowledgeUseCase{source: source, logger: logger}
}

func (uc *KnowledgeUseCase) AddFAQ(ctx context.Context, draft domain.FAQDraft) (domain.EvidenceItem, error) {
	draft, err := normalizeDraft(draft)
	if err != nil {
		return domain.EvidenceItem{}, domain.WrapError(domain.ErrInvalidInput, "add faq", err)
	}
	item, err := uc.source.AddItem(ctx, draft)
	if err != nil {
		return domain.EvidenceItem{}, fmt.Errorf("add faq: %w", err)
	}
	uc.logger.Info("faq added", "id", item.ID, "category", item.Category)
	return item, nil
}

func (uc *KnowledgeUseCase) GetFAQ(ctx context.Context, id int) (domain.EvidenceItem, error) {
	if id <= 0 {
		return domain.EvidenceItem{}, domain.WrapError(domain.ErrInvalidInput, "get faq", fmt.Errorf("id must be positive, got %d", id))
	}
	return uc.source.FindByID(ctx, id)
}

// SearchByKeyword matches the keyword case-insensitively against questions and answers.
func (uc *KnowledgeUseCase) SearchByKeyword(ctx context.Context, keyword string) ([]domain.EvidenceItem, error) {
	items, err := uc.source.AllItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("search faqs: %w", err)
	}
	needle := strings.ToLower(strings.TrimSpace(keyword))
	if needle == "" {
		return items, nil
	}
	out := make([]domain.EvidenceItem, 0, len(items))
	for _, item := range items {
		if strings.Contains(strings.ToLower(item.Question), needle) ||
			strings.Contains(strings.ToLower(item.Answer), needle) {
			out = append(out, item)
		}
	}
	return out, nil
}

// ImportFAQs adds every usable draft and skips the incomplete ones. It stops on
// the first storage error and reports how many items were added before it.
func (uc *KnowledgeUseCase) ImportFAQs(ctx context.Context, drafts []domain.FAQDraft) (int, error) {
	added := 0
	for i, draft := range drafts {
		draft, err := normalizeDraft(draft)
		if err != nil {
			uc.logger.Warn("skipping faq draft", "index", i, "error", err)
			continue
		}
		if _, err := uc.source.AddItem(ctx, draft); err != nil {
			return added, fmt.Errorf("import faq %d: %w", i, err)
		}
		added++
	}
	uc.logger.Info("faqs imported", "added", added, "total", len(drafts))
	return added, nil
}

func normalizeDraft(draft domain.FAQDraft) (domain.FAQDraft, error) {
	draft.Question = strings.TrimSpace(draft.Question)
	draft.Answer = strings.TrimSpace(draft.Answer)
	draft.Category = strings.TrimSpace(draft.Category)
	if draft.Question == "" {
		return draft, fmt.Errorf("question is required")
	}
	if draft.Answer == "" {
		return draft, fmt.Errorf("answer is required")
	}
	if draft.Category == "" {
		draft.Category = defaultCategory
	}
	return draft, nil
}
