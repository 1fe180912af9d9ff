package ingestion

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fmuoria/doc-compare-agent/internal/logging"
	"github.com/fmuoria/doc-compare-agent/internal/models"
)

// FileHandler manages the directory that holds response documents for batch comparison
type FileHandler struct {
	uploadsDir string
	logger     *slog.Logger
}

// NewFileHandler creates a new file handler
func NewFileHandler(uploadsDir string, logger *slog.Logger) *FileHandler {
	return &FileHandler{
		uploadsDir: uploadsDir,
		logger:     logging.OrDiscard(logger),
	}
}

// Dir returns the uploads directory
func (fh *FileHandler) Dir() string {
	return fh.uploadsDir
}

// SaveUploadedFile saves an uploaded file to the uploads directory
func (fh *FileHandler) SaveUploadedFile(filename string, content io.Reader) (string, error) {
	if err := os.MkdirAll(fh.uploadsDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create uploads directory: %w", err)
	}

	// never let a client-supplied name escape the uploads directory
	filePath := filepath.Join(fh.uploadsDir, filepath.Base(filename))
	file, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, content); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return filePath, nil
}

// LoadResponses extracts every supported document in the uploads directory.
// Convention: "Vendor_Response.pdf" is named "Vendor"; files without an underscore use their base name.
// Files that cannot be extracted are skipped and logged.
func (fh *FileHandler) LoadResponses() ([]models.ResponseDocument, error) {
	entries, err := os.ReadDir(fh.uploadsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []models.ResponseDocument{}, nil
		}
		return nil, fmt.Errorf("failed to read uploads directory: %w", err)
	}

	documents := make([]models.ResponseDocument, 0, len(entries))
	seen := make(map[string]int)

	for _, entry := range entries {
		if entry.IsDir() || !SupportedExtension(entry.Name()) {
			continue
		}

		filePath := filepath.Join(fh.uploadsDir, entry.Name())
		text, err := ExtractFile(filePath)
		if err != nil {
			fh.logger.Warn("skipping document", slog.String("file", entry.Name()), slog.Any("error", err))
			continue
		}
		text = CleanText(text)
		if text == "" {
			fh.logger.Warn("skipping empty document", slog.String("file", entry.Name()))
			continue
		}

		name := responseName(entry.Name())
		seen[name]++
		if seen[name] > 1 {
			name = fmt.Sprintf("%s (%d)", name, seen[name])
		}

		documents = append(documents, models.ResponseDocument{
			Name:    name,
			Path:    filePath,
			Content: text,
		})
	}

	sort.Slice(documents, func(i, j int) bool {
		return documents[i].Name < documents[j].Name
	})

	return documents, nil
}

// ClearUploads removes all files from the uploads directory
func (fh *FileHandler) ClearUploads() error {
	if err := os.RemoveAll(fh.uploadsDir); err != nil {
		return fmt.Errorf("failed to clear uploads directory: %w", err)
	}
	return os.MkdirAll(fh.uploadsDir, 0755)
}

func responseName(filename string) string {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	if parts := strings.SplitN(base, "_", 2); len(parts) == 2 && parts[0] != "" {
		return parts[0]
	}
	return base
}
