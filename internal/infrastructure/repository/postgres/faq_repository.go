package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/kirillkom/support-agent/internal/core/domain"
)

const faqLockID int64 = 2026101802

// FAQRepository serves the knowledge base from the faqs table. Revision only
// tracks additions made through this instance.
type FAQRepository struct {
	db       *sql.DB
	revision atomic.Uint64
}

func NewFAQRepository(db *sql.DB) *FAQRepository {
	return &FAQRepository{db: db}
}

func (r *FAQRepository) AllItems(ctx context.Context) ([]domain.EvidenceItem, error) {
	return r.list(ctx, `
SELECT id, question, answer, category, verified
FROM faqs
ORDER BY id
`)
}

func (r *FAQRepository) VerifiedItems(ctx context.Context) ([]domain.EvidenceItem, error) {
	return r.list(ctx, `
SELECT id, question, answer, category, verified
FROM faqs
WHERE verified
ORDER BY id
`)
}

func (r *FAQRepository) FindByID(ctx context.Context, id int) (domain.EvidenceItem, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, question, answer, category, verified
FROM faqs
WHERE id = $1
`, id)

	var item domain.EvidenceItem
	if err := row.Scan(&item.ID, &item.Question, &item.Answer, &item.Category, &item.Verified); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.EvidenceItem{}, domain.WrapError(domain.ErrFAQNotFound, "find faq", fmt.Errorf("id %d", id))
		}
		return domain.EvidenceItem{}, fmt.Errorf("select faq: %w", err)
	}
	return item, nil
}

// AddItem assigns max(id)+1 under a transaction-scoped advisory lock so
// concurrent writers never collide on the id.
func (r *FAQRepository) AddItem(ctx context.Context, draft domain.FAQDraft) (domain.EvidenceItem, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.EvidenceItem{}, fmt.Errorf("begin add faq tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, faqLockID); err != nil {
		return domain.EvidenceItem{}, fmt.Errorf("acquire faq lock: %w", err)
	}

	var id int
	err = tx.QueryRowContext(ctx, `
INSERT INTO faqs (id, question, answer, category, verified)
SELECT COALESCE(MAX(id), 0) + 1, $1, $2, $3, $4 FROM faqs
RETURNING id
`, draft.Question, draft.Answer, draft.Category, draft.Verified).Scan(&id)
	if err != nil {
		return domain.EvidenceItem{}, fmt.Errorf("insert faq: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.EvidenceItem{}, fmt.Errorf("commit add faq tx: %w", err)
	}

	r.revision.Add(1)
	return domain.EvidenceItem{
		ID:       id,
		Question: draft.Question,
		Answer:   draft.Answer,
		Category: draft.Category,
		Verified: draft.Verified,
	}, nil
}

func (r *FAQRepository) Revision() uint64 {
	return r.revision.Load()
}

func (r *FAQRepository) list(ctx context.Context, query string) ([]domain.EvidenceItem, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query faqs: %w", err)
	}
	defer rows.Close()

	items := make([]domain.EvidenceItem, 0, 16)
	for rows.Next() {
		var item domain.EvidenceItem
		if err := rows.Scan(&item.ID, &item.Question, &item.Answer, &item.Category, &item.Verified); err != nil {
			return nil, fmt.Errorf("scan faq: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate faqs: %w", err)
	}
	return items, nil
}
