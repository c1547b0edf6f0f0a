// Package output writes extracted records to local files for offline
// inspection. The backend sync does not go through here.
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/celltrack/crawler/internal/models"
)

// SaveJSON writes an indented JSON export of the records to path.
func SaveJSON(records []models.ProductRecord, path string) error {
	content, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	return os.WriteFile(path, content, 0o644)
}

// Save picks the export format from the file extension. JSON is the
// default for unknown extensions.
func Save(records []models.ProductRecord, path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return SaveCSV(records, path)
	default:
		return SaveJSON(records, path)
	}
}
