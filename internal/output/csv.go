package output

import (
	"encoding/csv"
	"os"
	"strconv"
	"strings"

	"github.com/celltrack/crawler/internal/models"
)

// SaveCSV writes a flat CSV export of the records. Nested fields
// (images, variants) are joined into single cells.
func SaveCSV(records []models.ProductRecord, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"asin", "brand", "model", "color", "title",
		"price", "basis_price", "saving_percentage",
		"ranking", "customers_opinion", "url", "images",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, r := range records {
		images := make([]string, 0, len(r.Images))
		for _, img := range r.Images {
			images = append(images, img.URL)
		}
		row := []string{
			r.Identifier,
			r.Brand,
			r.Model,
			r.Color,
			r.Title,
			strconv.FormatFloat(r.Price, 'f', 2, 64),
			strconv.FormatFloat(r.BasisPrice, 'f', 2, 64),
			strconv.Itoa(r.SavingPercentage),
			strconv.Itoa(r.Ranking),
			r.CustomerRating,
			r.URL,
			strings.Join(images, " "),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	return nil
}
