package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"dns-price-bot/models"
	"dns-price-bot/utils"
)

// CSVWriter handles writing the listing snapshot of a cycle to a CSV file
type CSVWriter struct {
	filePath string
	logger   *utils.Logger
}

// NewCSVWriter creates a new CSVWriter
func NewCSVWriter(filePath string, logger *utils.Logger) *CSVWriter {
	return &CSVWriter{filePath: filePath, logger: logger}
}

// WriteSnapshot overwrites the CSV file with the items of the latest snapshot
func (w *CSVWriter) WriteSnapshot(items []*models.ListingItem) error {
	// Ensure output directory exists
	dir := filepath.Dir(w.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	file, err := os.Create(w.filePath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	header := []string{"identity", "title", "price", "price_display", "image_ref", "observed_at"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, it := range items {
		row := []string{
			it.Identity(),
			it.Title,
			it.Price.StringFixed(2),
			it.PriceDisplay,
			it.ImageRef,
			it.ObservedAt.Format(time.RFC3339),
		}
		if err := writer.Write(row); err != nil {
			w.logger.Error("Failed to write CSV row for '%s': %v", it.Title, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	w.logger.Info("Snapshot written to: %s (%d rows)", w.filePath, len(items))
	return nil
}
