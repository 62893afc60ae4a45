// Package document turns uploaded resume files into plain text.
package document

import (
	"bytes"
	"context"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cloudwego/eino-ext/components/document/parser/pdf"
	einoParser "github.com/cloudwego/eino/components/document/parser"

	"atscore/internal/errors"
	"atscore/internal/utils"
)

// TextExtractor returns the plain text of a document.
type TextExtractor interface {
	ExtractText(ctx context.Context, r io.Reader, name string) (string, error)
}

// Extractor reads PDF documents with the eino PDF parser and passes plain
// text files through unchanged.
type Extractor struct {
	parser  *pdf.PDFParser
	timeout time.Duration
	logger  *errors.Logger
}

// NewExtractor creates an extractor that parses PDFs page by page.
func NewExtractor(ctx context.Context, timeout time.Duration, logger *errors.Logger) (*Extractor, error) {
	p, err := pdf.NewPDFParser(ctx, &pdf.Config{ToPages: true})
	if err != nil {
		return nil, errors.NewInternalError("PDF_PARSER_INIT", "failed to create PDF parser", err)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Extractor{parser: p, timeout: timeout, logger: logger}, nil
}

// ExtractText returns the document text with pages joined by newlines.
// Empty input and documents without readable text are validation errors.
func (e *Extractor) ExtractText(ctx context.Context, r io.Reader, name string) (string, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return "", errors.NewIOError(errors.ErrCodeFileNotReadable, "failed to read document", err).
			WithContext("filename", name)
	}
	if len(content) == 0 {
		return "", errors.NewValidationError(errors.ErrCodeEmptyDocument,
			"Empty file received. Please upload a valid PDF.", nil).WithContext("filename", name)
	}

	var text string
	if IsPDF(content) {
		text, err = e.extractPDF(ctx, content, name)
		if err != nil {
			return "", err
		}
	} else if utils.IsTextFile(name) && utf8.Valid(content) {
		text = string(content)
	} else {
		return "", errors.NewValidationError(errors.ErrCodeInvalidFormat,
			"unsupported document type, expected a PDF", nil).WithContext("filename", name)
	}

	if strings.TrimSpace(text) == "" {
		return "", errors.NewValidationError(errors.ErrCodeNoReadableText,
			"No readable text found in the uploaded PDF.", nil).WithContext("filename", name)
	}
	return text, nil
}

func (e *Extractor) extractPDF(ctx context.Context, content []byte, name string) (string, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	docs, err := e.parser.Parse(ctx, bytes.NewReader(content),
		einoParser.WithURI(name),
		einoParser.WithExtraMeta(map[string]any{"source_file": name}),
	)
	if err != nil {
		return "", errors.NewValidationError(errors.ErrCodeFileNotReadable, "failed to parse PDF", err).
			WithContext("filename", name)
	}

	pages := make([]string, 0, len(docs))
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		pages = append(pages, doc.Content)
	}
	text := strings.Join(pages, "\n")

	if e.logger != nil {
		e.logger.Debug("PDF text extracted",
			"filename", name,
			"pages", len(pages),
			"size", utils.FormatFileSize(int64(len(content))),
			"chars", len(text),
			"duration_ms", time.Since(start).Milliseconds())
	}
	return text, nil
}

// IsPDF reports whether content starts with the PDF magic number.
func IsPDF(content []byte) bool {
	return bytes.HasPrefix(bytes.TrimLeft(content[:min(len(content), 1024)], "\x00\t\r\n "), []byte("%PDF-"))
}

// TextOnly is a TextExtractor for plain text input.
type TextOnly struct{}

func (TextOnly) ExtractText(_ context.Context, r io.Reader, name string) (string, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return "", errors.NewIOError(errors.ErrCodeFileNotReadable, "failed to read document", err)
	}
	if len(content) == 0 {
		return "", errors.NewValidationError(errors.ErrCodeEmptyDocument, "Empty file received.", nil)
	}
	text := string(content)
	if strings.TrimSpace(text) == "" {
		return "", errors.NewValidationError(errors.ErrCodeNoReadableText, "No readable text found.", nil)
	}
	return text, nil
}

var _ TextExtractor = (*Extractor)(nil)
var _ TextExtractor = TextOnly{}
