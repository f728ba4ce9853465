// Package importer reads FAQ drafts from files for bulk loading.
//
// Supported formats:
//   - .json: {"faqs": [...]} or a bare array of drafts
//   - .txt:  Q:/A: blocks separated by blank lines, optional "Category:" line
//   - .xlsx: first sheet, question/answer/category/verified columns
//   - .pdf:  extracted text parsed as Q:/A: blocks
package importer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/support-agent/internal/core/domain"
)

// Options apply to formats that cannot carry the field themselves.
type Options struct {
	DefaultCategory string
	Verified        bool
}

func ReadFile(path string, opts Options) ([]domain.FAQDraft, error) {
	var (
		drafts []domain.FAQDraft
		err    error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		drafts, err = readJSON(path)
	case ".txt", ".md":
		var raw []byte
		raw, err = os.ReadFile(path)
		if err == nil {
			drafts = ParseQABlocks(string(raw), opts.Verified)
		}
	case ".xlsx":
		drafts, err = readXLSX(path, opts.Verified)
	case ".pdf":
		drafts, err = readPDF(path, opts.Verified)
	default:
		return nil, domain.WrapError(domain.ErrInvalidInput, "import faqs", fmt.Errorf("unsupported file type %q", ext))
	}
	if err != nil {
		return nil, err
	}

	for i := range drafts {
		if strings.TrimSpace(drafts[i].Category) == "" {
			drafts[i].Category = opts.DefaultCategory
		}
	}
	return drafts, nil
}

func readJSON(path string) ([]domain.FAQDraft, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read json import: %w", err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var drafts []domain.FAQDraft
		if err := json.Unmarshal(raw, &drafts); err != nil {
			return nil, domain.WrapError(domain.ErrInvalidInput, "decode json import", err)
		}
		return drafts, nil
	}
	var doc struct {
		FAQs []domain.FAQDraft `json:"faqs"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "decode json import", err)
	}
	return doc.FAQs, nil
}

// ParseQABlocks extracts question/answer pairs from free text. A block starts
// at a "Q:" line; following lines belong to the question until an "A:" line,
// then to the answer until a blank line or the next "Q:".
func ParseQABlocks(text string, verified bool) []domain.FAQDraft {
	var (
		drafts  []domain.FAQDraft
		current *domain.FAQDraft
		inAns   bool
	)
	flush := func() {
		if current != nil && strings.TrimSpace(current.Question) != "" && strings.TrimSpace(current.Answer) != "" {
			current.Question = strings.TrimSpace(current.Question)
			current.Answer = strings.TrimSpace(current.Answer)
			drafts = append(drafts, *current)
		}
		current = nil
		inAns = false
	}

	for _, rawLine := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line := strings.TrimSpace(rawLine)
		switch {
		case hasPrefixFold(line, "Q:"):
			flush()
			current = &domain.FAQDraft{Question: strings.TrimSpace(line[2:]), Verified: verified}
		case current == nil:
		case hasPrefixFold(line, "A:"):
			inAns = true
			current.Answer = strings.TrimSpace(line[2:])
		case hasPrefixFold(line, "Category:"):
			current.Category = strings.TrimSpace(line[len("Category:"):])
		case line == "":
			if inAns {
				flush()
			}
		case inAns:
			current.Answer += " " + line
		default:
			current.Question += " " + line
		}
	}
	flush()
	return drafts
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

func readXLSX(path string, verified bool) ([]domain.FAQDraft, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx import: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read xlsx rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	cols := columnLayout{question: 0, answer: 1, category: 2, verified: -1}
	if header, ok := detectHeader(rows[0]); ok {
		cols = header
		rows = rows[1:]
	}

	drafts := make([]domain.FAQDraft, 0, len(rows))
	for _, row := range rows {
		draft := domain.FAQDraft{
			Question: cell(row, cols.question),
			Answer:   cell(row, cols.answer),
			Category: cell(row, cols.category),
			Verified: verified,
		}
		if v := cell(row, cols.verified); v != "" {
			if parsed, err := strconv.ParseBool(strings.ToLower(v)); err == nil {
				draft.Verified = parsed
			}
		}
		if draft.Question == "" && draft.Answer == "" {
			continue
		}
		drafts = append(drafts, draft)
	}
	return drafts, nil
}

type columnLayout struct {
	question, answer, category, verified int
}

func detectHeader(row []string) (columnLayout, bool) {
	layout := columnLayout{question: -1, answer: -1, category: -1, verified: -1}
	for i, name := range row {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "question", "q":
			layout.question = i
		case "answer", "a":
			layout.answer = i
		case "category":
			layout.category = i
		case "verified":
			layout.verified = i
		}
	}
	return layout, layout.question >= 0 && layout.answer >= 0
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func readPDF(path string, verified bool) ([]domain.FAQDraft, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		if f != nil {
			_ = f.Close()
		}
		return nil, fmt.Errorf("open pdf import: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	plain, err := reader.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return nil, fmt.Errorf("read pdf text: %w", err)
	}
	return ParseQABlocks(buf.String(), verified), nil
}
