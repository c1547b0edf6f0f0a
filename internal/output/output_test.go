package output

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/celltrack/crawler/internal/models"
)

func sampleRecords() []models.ProductRecord {
	return []models.ProductRecord{
		{
			Identifier:       "B0TEST1",
			Price:            4599,
			BasisPrice:       5999,
			SavingPercentage: 23,
			URL:              "https://retail.test/dp/B0TEST1",
			Brand:            "xiaomi",
			Model:            "redmi note 13 pro",
			Color:            "azul",
			Title:            "Xiaomi Redmi Note 13 Pro 5G 256GB Azul",
			Images: []models.Image{
				{URL: "https://img.test/I/71front._AC_US679_.jpg"},
				{URL: "https://img.test/I/71back._AC_US679_.jpg"},
			},
			Ranking:        150,
			CustomerRating: "4.3 de 5",
		},
		{
			Identifier: "B0TEST2",
			Price:      8999,
			Brand:      "samsung",
			Title:      "Samsung Galaxy A54",
		},
	}
}

func TestSaveJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.json")
	if err := Save(sampleRecords(), path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var got []models.ProductRecord
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(got) != 2 || got[0].Identifier != "B0TEST1" {
		t.Errorf("decoded %+v", got)
	}
	if len(got[0].Images) != 2 {
		t.Errorf("images = %+v, want 2", got[0].Images)
	}
}

func TestSaveCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.csv")
	if err := Save(sampleRecords(), path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want header plus 2 records", len(rows))
	}
	if rows[0][0] != "asin" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][0] != "B0TEST1" || rows[1][5] != "4599.00" {
		t.Errorf("row 1 = %v", rows[1])
	}
	// Images collapse into one space-joined cell.
	want := "https://img.test/I/71front._AC_US679_.jpg https://img.test/I/71back._AC_US679_.jpg"
	if rows[1][11] != want {
		t.Errorf("images cell = %q", rows[1][11])
	}
}
