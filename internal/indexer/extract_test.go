package indexer

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestExtractors_Supports(t *testing.T) {
	ex := DefaultExtractors()
	tests := []struct {
		name string
		want bool
	}{
		{"report.pdf", true},
		{"REPORT.PDF", true},
		{"notes.docx", true},
		{"sheet.xlsx", true},
		{"readme.md", true},
		{"image.png", false},
		{"archive.tar.gz", false},
		{"noext", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ex.Supports(tt.name); got != tt.want {
				t.Errorf("Supports(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestExtractors_ExtractUnsupported(t *testing.T) {
	if _, err := DefaultExtractors().Extract("/does/not/matter", "photo.jpg"); err == nil {
		t.Error("Extract() expected error for unsupported extension")
	}
}

func TestExtractMarkdown(t *testing.T) {
	path := writeFile(t, "doc.md", "# Alpha\n\nAlpha is a **test** document.\n\n- one\n- two\n\n```\ncode line\n```\n")

	got, err := ExtractMarkdown(path)
	if err != nil {
		t.Fatalf("ExtractMarkdown() error = %v", err)
	}
	for _, want := range []string{"Alpha", "Alpha is a test document.", "one", "two", "code line"} {
		if !strings.Contains(got, want) {
			t.Errorf("ExtractMarkdown() = %q, missing %q", got, want)
		}
	}
	if strings.Contains(got, "**") || strings.Contains(got, "#") {
		t.Errorf("ExtractMarkdown() kept markup: %q", got)
	}
}

func TestExtractXLSX(t *testing.T) {
	f := excelize.NewFile()
	_ = f.SetCellValue("Sheet1", "A1", "region")
	_ = f.SetCellValue("Sheet1", "B1", "revenue")
	_ = f.SetCellValue("Sheet1", "A2", "north")
	_ = f.SetCellValue("Sheet1", "B2", 1200)
	path := filepath.Join(t.TempDir(), "sales.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs() error = %v", err)
	}
	_ = f.Close()

	got, err := ExtractXLSX(path)
	if err != nil {
		t.Fatalf("ExtractXLSX() error = %v", err)
	}
	want := "## Sheet: Sheet1\nregion\trevenue\nnorth\t1200\n"
	if got != want {
		t.Errorf("ExtractXLSX() = %q, want %q", got, want)
	}
}

// buildPDF writes a minimal PDF with one text page per entry of pages.
// declaredPages is the /Count of the page tree; when it exceeds len(pages)
// the trailing pages resolve to null.
func buildPDF(t *testing.T, declaredPages int, pages ...string) string {
	t.Helper()

	font := len(pages)*2 + 3
	kids := make([]string, len(pages))
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"", // page tree, filled below
	}
	for i, text := range pages {
		pageObj := len(objects) + 1
		kids[i] = fmt.Sprintf("%d 0 R", pageObj)
		content := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents %d 0 R /Resources << /Font << /F1 %d 0 R >> >> >>", pageObj+1, font),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		)
	}
	objects[1] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), declaredPages)
	objects = append(objects, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, body := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	path := filepath.Join(t.TempDir(), "doc.pdf")
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatalf("write pdf: %v", err)
	}
	return path
}

func TestExtractPDF(t *testing.T) {
	tests := []struct {
		name          string
		declaredPages int
	}{
		{name: "two pages", declaredPages: 2},
		{name: "null page skipped", declaredPages: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := buildPDF(t, tt.declaredPages, "First page", "Second page")

			got, err := ExtractPDF(path)
			if err != nil {
				t.Fatalf("ExtractPDF() error = %v", err)
			}

			first := strings.Index(got, "First page")
			second := strings.Index(got, "Second page")
			if first < 0 || second < 0 {
				t.Fatalf("ExtractPDF() = %q, missing page text", got)
			}
			if first > second {
				t.Errorf("ExtractPDF() = %q, pages out of order", got)
			}
			if between := got[first+len("First page") : second]; !strings.Contains(between, "\n") {
				t.Errorf("ExtractPDF() = %q, pages not separated by a newline", got)
			}
			if !strings.HasSuffix(got, "Second page") {
				t.Errorf("ExtractPDF() = %q, want text to end with the last real page", got)
			}
		})
	}
}

func TestExtract_CorruptFiles(t *testing.T) {
	tests := []struct {
		name string
		fn   ExtractFunc
		file string
	}{
		{name: "pdf", fn: ExtractPDF, file: "bad.pdf"},
		{name: "docx", fn: ExtractDOCX, file: "bad.docx"},
		{name: "xlsx", fn: ExtractXLSX, file: "bad.xlsx"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.file, "this is not a real document")
			if _, err := tt.fn(path); err == nil {
				t.Errorf("%s extractor expected error for corrupt file", tt.name)
			}
		})
	}
}

func TestExtract_MissingFile(t *testing.T) {
	if _, err := ExtractMarkdown(filepath.Join(t.TempDir(), "missing.md")); err == nil {
		t.Error("ExtractMarkdown() expected error for missing file")
	}
}
