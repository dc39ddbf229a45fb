package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
)

var (
	// ErrUnsupportedFormat is returned for declared content types the
	// extractor does not handle.
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrExtractionFailed is returned when both the primary and the
	// fallback parser fail to produce text.
	ErrExtractionFailed = errors.New("text extraction failed")
)

// TextExtractor converts raw document payloads into plain text based on
// the declared content type.
type TextExtractor struct {
	logger *slog.Logger
}

// NewTextExtractor creates a new text extractor.
func NewTextExtractor(logger *slog.Logger) *TextExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &TextExtractor{logger: logger}
}

// Extract converts payload to plain text. Supported declared types are
// plain text, markdown and PDF; anything else fails with
// ErrUnsupportedFormat.
func (e *TextExtractor) Extract(payload []byte, declaredType string) (string, error) {
	switch normalizeContentType(declaredType) {
	case "text/plain", "text/markdown":
		return string(payload), nil
	case "application/pdf":
		return e.extractPDF(payload)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, declaredType)
	}
}

// extractPDF parses a PDF with the structured parser and falls back to a
// raw text-stripping pass if the structured parser fails. A fallback
// failure is fatal.
func (e *TextExtractor) extractPDF(payload []byte) (string, error) {
	text, err := parsePDF(payload)
	if err == nil && strings.TrimSpace(text) != "" {
		return text, nil
	}
	if err != nil {
		e.logger.Warn("structured pdf parser failed, falling back to text stripping", "error", err)
	}

	stripped := stripPDFText(payload)
	if strings.TrimSpace(stripped) == "" {
		return "", fmt.Errorf("%w: both pdf parsers produced no text", ErrExtractionFailed)
	}
	return stripped, nil
}

func parsePDF(payload []byte) (text string, err error) {
	// The pdf package panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parser panicked: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return "", fmt.Errorf("pdf reader: %w", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("pdf plaintext: %w", err)
	}

	data, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("pdf read: %w", err)
	}
	return string(data), nil
}

// stripPDFText recovers literal strings from uncompressed PDF content
// streams. It is approximate; it exists so that a broken structured
// parse still yields something to index.
func stripPDFText(payload []byte) string {
	var out strings.Builder
	depth := 0
	escaped := false

	for _, b := range payload {
		switch {
		case escaped:
			escaped = false
			if depth > 0 && b >= 0x20 && b <= 0x7e {
				out.WriteByte(b)
			}
		case b == '\\':
			escaped = depth > 0
		case b == '(':
			depth++
		case b == ')':
			if depth > 0 {
				depth--
				if depth == 0 {
					out.WriteByte(' ')
				}
			}
		case depth > 0:
			if b >= 0x20 && b <= 0x7e {
				out.WriteByte(b)
			}
		}
	}

	return collapseWhitespace(out.String())
}

func collapseWhitespace(s string) string {
	var out strings.Builder
	lastSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastSpace {
				out.WriteRune(' ')
			}
			lastSpace = true
			continue
		}
		out.WriteRune(r)
		lastSpace = false
	}
	return strings.TrimSpace(out.String())
}

func normalizeContentType(declaredType string) string {
	declaredType = strings.ToLower(strings.TrimSpace(declaredType))
	if i := strings.Index(declaredType, ";"); i != -1 {
		declaredType = strings.TrimSpace(declaredType[:i])
	}
	switch declaredType {
	case "txt", "text":
		return "text/plain"
	case "md", "markdown":
		return "text/markdown"
	case "pdf":
		return "application/pdf"
	}
	return declaredType
}
