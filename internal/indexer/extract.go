package indexer

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/xuri/excelize/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// ExtractFunc reads a file on disk and returns its plain text.
type ExtractFunc func(path string) (string, error)

// Extractors maps a lower-case file extension (with dot) to its extractor.
type Extractors map[string]ExtractFunc

// DefaultExtractors returns the extractors for every supported upload type.
func DefaultExtractors() Extractors {
	return Extractors{
		".pdf":  ExtractPDF,
		".docx": ExtractDOCX,
		".xlsx": ExtractXLSX,
		".md":   ExtractMarkdown,
	}
}

// Supports reports whether fileName has an extension with a registered extractor.
func (e Extractors) Supports(fileName string) bool {
	_, ok := e[strings.ToLower(filepath.Ext(fileName))]
	return ok
}

// Extract picks the extractor by the extension of fileName and runs it on path.
func (e Extractors) Extract(path, fileName string) (string, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	fn, ok := e[ext]
	if !ok {
		return "", fmt.Errorf("unsupported file format: %q", ext)
	}
	return fn(path)
}

// ExtractPDF joins the plain text of every page in page order with newlines.
// Pages without content are skipped.
func ExtractPDF(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = f.Close()
	}()

	stat, err := f.Stat()
	if err != nil {
		return "", err
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	pages := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("read page %d: %w", i, err)
		}
		pages = append(pages, pageText)
	}
	return strings.Join(pages, "\n"), nil
}

var xmlTag = regexp.MustCompile(`<[^>]+>`)

// ExtractDOCX returns the document body text, one paragraph per line.
func ExtractDOCX(path string) (string, error) {
	r, err := docx.ReadDocxFile(path)
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer func() {
		_ = r.Close()
	}()

	content := r.Editable().GetContent()
	content = strings.ReplaceAll(content, "</w:p>", "\n")
	content = xmlTag.ReplaceAllString(content, "")
	return html.UnescapeString(content), nil
}

// ExtractXLSX renders every sheet as a heading followed by tab-separated rows.
func ExtractXLSX(path string) (string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", fmt.Errorf("open xlsx: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	var b strings.Builder
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			return "", fmt.Errorf("read sheet %s: %w", sheetName, err)
		}
		fmt.Fprintf(&b, "## Sheet: %s\n", sheetName)
		for _, row := range rows {
			b.WriteString(strings.Join(row, "\t"))
			b.WriteString("\n")
		}
	}
	return b.String(), nil
}

// ExtractMarkdown returns the text content of a markdown file without markup.
// Each block ends with a newline.
func ExtractMarkdown(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return markdownText(content), nil
}

func markdownText(content []byte) string {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	doc := md.Parser().Parse(text.NewReader(content))

	var b strings.Builder
	_ = ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if node.Type() == ast.TypeBlock && node.Kind() != ast.KindDocument {
				if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
					b.WriteString("\n")
				}
			}
			return ast.WalkContinue, nil
		}

		switch v := node.(type) {
		case *ast.Text:
			b.Write(v.Segment.Value(content))
			if v.SoftLineBreak() || v.HardLineBreak() {
				b.WriteString("\n")
			}
		case *ast.String:
			b.Write(v.Value)
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			lines := v.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				b.Write(seg.Value(content))
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	return strings.TrimSpace(b.String())
}
