package importer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/support-agent/internal/core/domain"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestParseQABlocks(t *testing.T) {
	text := "Intro line ignored\n\nQ: How do I cancel\nmy order?\nA: Open the order page.\nClick Cancel.\nCategory: orders\n\nq: Do you have gift cards?\na: Yes.\n\nQ: Dangling question without answer\n"
	got := ParseQABlocks(text, true)
	want := []domain.FAQDraft{
		{Question: "How do I cancel my order?", Answer: "Open the order page. Click Cancel.", Category: "orders", Verified: true},
		{Question: "Do you have gift cards?", Answer: "Yes.", Verified: true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected drafts (-want +got):\n%s", diff)
	}
}

func TestReadFileJSONAcceptsBothShapes(t *testing.T) {
	wrapped := writeFile(t, "kb.json", `{"faqs":[{"question":"q1","answer":"a1","category":"billing","verified":true}]}`)
	bare := writeFile(t, "list.json", `[{"question":"q2","answer":"a2"}]`)

	got, err := ReadFile(wrapped, Options{DefaultCategory: "general"})
	if err != nil || len(got) != 1 || got[0].Category != "billing" || !got[0].Verified {
		t.Fatalf("unexpected wrapped import %+v (%v)", got, err)
	}
	got, err = ReadFile(bare, Options{DefaultCategory: "general"})
	if err != nil || len(got) != 1 || got[0].Category != "general" {
		t.Fatalf("unexpected bare import %+v (%v)", got, err)
	}
}

func TestReadFileRejectsUnknownExtension(t *testing.T) {
	path := writeFile(t, "kb.csv", "q,a")
	if _, err := ReadFile(path, Options{}); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestReadFileMalformedJSON(t *testing.T) {
	path := writeFile(t, "kb.json", `{"faqs": [`)
	if _, err := ReadFile(path, Options{}); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestReadFileXLSXWithHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.xlsx")
	f := excelize.NewFile()
	rows := [][]any{
		{"Category", "Question", "Answer", "Verified"},
		{"shipping", "Do you ship abroad?", "Yes, to 40 countries.", "true"},
		{"", "", "", ""},
		{"", "Can I pay later?", "Not yet.", "no"},
	}
	for i, row := range rows {
		cellRef, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Sheet1", cellRef, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	_ = f.Close()

	got, err := ReadFile(path, Options{DefaultCategory: "general", Verified: true})
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	want := []domain.FAQDraft{
		{Question: "Do you ship abroad?", Answer: "Yes, to 40 countries.", Category: "shipping", Verified: true},
		{Question: "Can I pay later?", Answer: "Not yet.", Category: "general", Verified: true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected drafts (-want +got):\n%s", diff)
	}
}

func TestReadFilePDFRejectsGarbage(t *testing.T) {
	path := writeFile(t, "kb.pdf", "this is not a pdf")
	if _, err := ReadFile(path, Options{}); err == nil {
		t.Fatalf("expected error for invalid pdf")
	}
}
