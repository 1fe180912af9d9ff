package ingestion

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

const (
	// MinExtractedTextLength is the minimum text length required for successful PDF extraction
	MinExtractedTextLength = 50
	// BinarySampleSize is the number of bytes to sample for binary detection
	BinarySampleSize = 1000
	// BinaryThreshold is the proportion of non-printable characters that indicates binary data
	BinaryThreshold = 0.3
)

// Supported MIME types
const (
	MimePDF  = "application/pdf"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeDOC  = "application/msword"
	MimeText = "text/plain"
)

var (
	// ErrUnsupportedType is returned for files that are not PDF, DOCX, DOC or TXT
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrBinaryContent is returned when a plain text upload is actually binary
	ErrBinaryContent = errors.New("file content appears to be binary")
)

var (
	docxParagraphEnd = regexp.MustCompile(`</w:p>|<w:br/>|<w:cr/>`)
	docxTab          = regexp.MustCompile(`<w:tab/>`)
	xmlTag           = regexp.MustCompile(`<[^>]+>`)
)

// SupportedExtension reports whether the file extension can be extracted
func SupportedExtension(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf", ".docx", ".doc", ".txt":
		return true
	}
	return false
}

// SupportedMimeType reports whether the MIME type can be extracted
func SupportedMimeType(contentType string) bool {
	switch baseMime(contentType) {
	case MimePDF, MimeDOCX, MimeDOC, MimeText:
		return true
	}
	return false
}

// ExtractFile reads a document from disk and extracts its text
func ExtractFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return ExtractText(filepath.Base(path), "", data)
}

// ExtractText extracts text from PDF, DOCX, DOC, or TXT content.
// The MIME type wins when it is one of the supported types; otherwise the extension decides.
func ExtractText(filename, contentType string, data []byte) (string, error) {
	kind := baseMime(contentType)
	if !SupportedMimeType(kind) {
		kind = mimeFromExtension(filename)
	}

	switch kind {
	case MimeText:
		return extractPlainText(data)
	case MimePDF:
		return extractPDF(data)
	case MimeDOCX:
		return extractDOCX(data)
	case MimeDOC:
		return extractDOC(data)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, describeType(filename, contentType))
	}
}

func baseMime(contentType string) string {
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

func mimeFromExtension(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt":
		return MimeText
	case ".pdf":
		return MimePDF
	case ".docx":
		return MimeDOCX
	case ".doc":
		return MimeDOC
	}
	return ""
}

func describeType(filename, contentType string) string {
	if contentType != "" {
		return contentType
	}
	if ext := filepath.Ext(filename); ext != "" {
		return ext
	}
	return filename
}

func extractPlainText(data []byte) (string, error) {
	content := string(data)
	if IsBinaryData(content) {
		return "", ErrBinaryContent
	}
	return sanitizeUTF8(content), nil
}

// extractPDF uses the pure-Go reader and falls back to pdftotext (if available)
func extractPDF(data []byte) (string, error) {
	text, err := readPDF(data)
	if err == nil && len(strings.TrimSpace(text)) >= MinExtractedTextLength {
		return sanitizeUTF8(text), nil
	}

	fallback, ferr := pdftotext(data)
	if ferr != nil {
		if err != nil {
			return "", fmt.Errorf("failed to parse PDF file: %w", err)
		}
		return "", fmt.Errorf("extracted text is too short (likely a scanned PDF) and pdftotext failed: %w", ferr)
	}
	if len(strings.TrimSpace(fallback)) < MinExtractedTextLength {
		return "", fmt.Errorf("extracted text is too short (likely failed extraction)")
	}
	return sanitizeUTF8(fallback), nil
}

func readPDF(data []byte) (text string, err error) {
	// the pdf reader panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func pdftotext(data []byte) (string, error) {
	output, err := runOnTempFile(data, ".pdf", "pdftotext", "-layout", "{}", "-")
	if err != nil {
		return "", fmt.Errorf("PDF extraction requires 'pdftotext' (install poppler-utils): %w", err)
	}
	return output, nil
}

// runOnTempFile writes data to a temp file and runs an external extractor on it.
// The "{}" argument is replaced with the temp file path.
func runOnTempFile(data []byte, ext, name string, args ...string) (string, error) {
	tmp, err := os.CreateTemp("", "doccompare-*"+ext)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}

	for i, a := range args {
		if a == "{}" {
			args[i] = tmp.Name()
		}
	}
	output, err := exec.Command(name, args...).Output()
	if err != nil {
		return "", err
	}
	return string(output), nil
}

func extractDOCX(data []byte) (string, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to parse Word document: %w", err)
	}
	defer r.Close()

	return sanitizeUTF8(docxXMLToText(r.Editable().GetContent())), nil
}

// docxXMLToText flattens WordprocessingML into plain text, one line per paragraph
func docxXMLToText(content string) string {
	content = docxParagraphEnd.ReplaceAllString(content, "\n")
	content = docxTab.ReplaceAllString(content, "\t")
	content = xmlTag.ReplaceAllString(content, "")
	return strings.TrimSpace(html.UnescapeString(content))
}

// extractDOC uses antiword for legacy binary Word files
func extractDOC(data []byte) (string, error) {
	output, err := runOnTempFile(data, ".doc", "antiword", "{}")
	if err != nil {
		return "", fmt.Errorf("DOC extraction requires 'antiword': %w", err)
	}
	return sanitizeUTF8(output), nil
}

// IsBinaryData checks if content appears to be binary (PDF/ZIP markers)
func IsBinaryData(content string) bool {
	if len(content) == 0 {
		return false
	}

	// Check for PDF magic number
	if strings.HasPrefix(content, "%PDF-") {
		return true
	}

	// ZIP local file header (DOCX files)
	if strings.HasPrefix(content, "PK\x03\x04") {
		return true
	}

	sampleSize := min(BinarySampleSize, len(content))
	nonPrintable := 0
	for i := 0; i < sampleSize; i++ {
		ch := content[i]
		if ch < 32 && ch != '\n' && ch != '\r' && ch != '\t' {
			nonPrintable++
		}
	}

	return float64(nonPrintable)/float64(sampleSize) > BinaryThreshold
}

// sanitizeUTF8 replaces invalid UTF-8 sequences with the replacement character
func sanitizeUTF8(s string) string {
	return strings.ToValidUTF8(s, "�")
}
