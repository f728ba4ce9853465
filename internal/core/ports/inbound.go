package ports

import (
	"context"

	"github.com/kirillkom/support-agent/internal/core/domain"
)

// QueryProcessor is the inbound contract for the support pipeline.
type QueryProcessor interface {
	ProcessQuery(ctx context.Context, query string) domain.QueryResult
	ResetConversation()
	History() []domain.ConversationTurn
	SessionSummary() domain.SessionSummary
}

// KnowledgeService is the inbound contract for knowledge-base maintenance.
type KnowledgeService interface {
	AddFAQ(ctx context.Context, draft domain.FAQDraft) (domain.EvidenceItem, error)
	GetFAQ(ctx context.Context, id int) (domain.EvidenceItem, error)
	SearchByKeyword(ctx context.Context, keyword string) ([]domain.EvidenceItem, error)
	ImportFAQs(ctx context.Context, drafts []domain.FAQDraft) (int, error)
}
