package models

import (
	"encoding/json"
	"strings"
	"testing"
)

// The backend keys its rating column off the misspelled name; the
// corrected spelling would be silently discarded on upsert.
func TestProductRecordRatingWireKey(t *testing.T) {
	raw, err := json.Marshal(ProductRecord{
		Identifier:     "B0KEY",
		CustomerRating: "4.5 de 5",
	})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(raw), `"custumers_opinion":"4.5 de 5"`) {
		t.Errorf("payload = %s, want the custumers_opinion key", raw)
	}
	if strings.Contains(string(raw), `"customers_opinion"`) {
		t.Errorf("payload = %s, carries the corrected spelling the backend ignores", raw)
	}
}
