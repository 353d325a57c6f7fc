package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"go.uber.org/zap"

	"alfredoptarigan/resume-screener/internal/logger"
	"alfredoptarigan/resume-screener/internal/models"
)

var (
	docxParagraphEnd = regexp.MustCompile(`</w:p>|<w:br/>|<w:cr/>`)
	docxTab          = regexp.MustCompile(`<w:tab/>`)
	xmlTag           = regexp.MustCompile(`<[^>]*>`)
)

// SupportedExtensions lists the document types the screener reads.
var SupportedExtensions = []string{".pdf", ".docx", ".txt"}

type ingestionService struct {
	log *zap.Logger
}

func NewIngestionService(log *zap.Logger) Ingestor {
	return &ingestionService{log: logger.OrNop(log)}
}

// Supports implements Ingestor.
func (s *ingestionService) Supports(ext string) bool {
	return isSupportedExtension(strings.ToLower(ext))
}

// Ingest implements Ingestor.
func (s *ingestionService) Ingest(ctx context.Context, doc models.InputDocument) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var (
		text string
		err  error
	)

	switch doc.Extension() {
	case ".pdf":
		text, err = extractPDFText(doc.Content)
	case ".docx":
		text, err = extractDOCXText(doc.Content)
	case ".txt":
		text = strings.ToValidUTF8(string(doc.Content), "")
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedDocument, doc.Name)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrIngestion, doc.Name, err)
	}

	s.log.Debug("document ingested", zap.String("file", doc.Name), zap.Int("chars", len(text)))
	return text, nil
}

func extractPDFText(content []byte) (text string, err error) {
	// the pdf reader panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}

	var textBuilder strings.Builder
	totalPage := r.NumPage()

	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		page := r.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}

		textBuilder.WriteString(pageText)
		textBuilder.WriteString("\n\n")
	}

	text = textBuilder.String()
	if strings.TrimSpace(text) == "" {
		return "", errors.New("no text content found in PDF")
	}

	return text, nil
}

func extractDOCXText(content []byte) (string, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("failed to open DOCX: %w", err)
	}
	defer r.Close()

	return docxXMLToText(r.Editable().GetContent()), nil
}

// docxXMLToText flattens WordprocessingML into plain text with one line per paragraph.
func docxXMLToText(xml string) string {
	xml = docxParagraphEnd.ReplaceAllString(xml, "\n")
	xml = docxTab.ReplaceAllString(xml, "\t")
	xml = xmlTag.ReplaceAllString(xml, "")
	return strings.TrimSpace(html.UnescapeString(xml))
}
