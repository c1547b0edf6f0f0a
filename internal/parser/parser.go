// Package parser turns raw page fragments (table HTML, price text,
// image URLs) into typed values. Keeping this parsing off the driver
// round-trip path makes the extraction stages cheap to probe and easy
// to test against fixture HTML.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

// ParseFeatureTable extracts the key/value rows of a product overview
// table. Keys and values are lower-cased and trimmed; rows without two
// cells are skipped.
func ParseFeatureTable(html string) (map[string]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse feature table: %w", err)
	}

	features := make(map[string]string)
	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		key := strings.ToLower(strings.TrimSpace(cells.Eq(0).Text()))
		value := strings.ToLower(strings.TrimSpace(cells.Eq(1).Text()))
		if key != "" {
			features[key] = value
		}
	})
	return features, nil
}

// DetailSections is the subset of the product-details table the
// pipeline cares about: the bestseller rank within one sub-category
// and the customer-rating summary.
type DetailSections struct {
	Ranking        int
	CustomerRating string
}

// ParseDetailSections scans the additional-information table rows.
// rankLabel names the bestseller row header, subCategory the ranking
// entry to match inside it, ratingLabel the customer-opinion header.
// Absent rows leave the zero value in place.
func ParseDetailSections(html, rankLabel, subCategory, ratingLabel string) (DetailSections, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return DetailSections{}, fmt.Errorf("parse detail sections: %w", err)
	}

	var out DetailSections
	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		header := strings.ToLower(strings.TrimSpace(row.Find("th").First().Text()))
		switch header {
		case rankLabel:
			row.Find("li").EachWithBreak(func(_ int, item *goquery.Selection) bool {
				text := strings.ToLower(item.Text())
				if !strings.Contains(text, subCategory) {
					return true
				}
				if rank, ok := parseRank(text); ok {
					out.Ranking = rank
				}
				return false
			})
		case ratingLabel:
			cell := strings.ToLower(strings.TrimSpace(row.Find("td").First().Text()))
			lines := strings.Split(cell, "\n")
			out.CustomerRating = strings.TrimSpace(lines[len(lines)-1])
		}
	})
	return out, nil
}

// parseRank reads the leading "nº1,234" token of a ranking entry.
func parseRank(text string) (int, bool) {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 {
		return 0, false
	}
	token := strings.NewReplacer("nº", "", "#", "", ",", "", ".", "").Replace(fields[0])
	rank, err := strconv.Atoi(token)
	if err != nil || rank <= 0 {
		return 0, false
	}
	return rank, true
}

// ParseRankBadge reads a bestseller badge like "#12" into 12.
func ParseRankBadge(text string) (int, error) {
	cleaned := strings.NewReplacer("#", "", "nº", "", ",", "").Replace(strings.ToLower(strings.TrimSpace(text)))
	rank, err := strconv.Atoi(cleaned)
	if err != nil || rank <= 0 {
		return 0, fmt.Errorf("parse rank badge %q", text)
	}
	return rank, nil
}

// CombinePrice joins the whole and fractional price parts the site
// renders as separate elements ("1,299" + "00" -> 1299.00).
func CombinePrice(whole, fraction string) (float64, error) {
	whole = strings.ReplaceAll(strings.TrimSpace(whole), ",", "")
	fraction = strings.ReplaceAll(strings.TrimSpace(fraction), ".", "")
	if whole == "" {
		return 0, fmt.Errorf("combine price: empty whole part")
	}
	if fraction == "" {
		fraction = "0"
	}
	price, err := strconv.ParseFloat(whole+"."+fraction, 64)
	if err != nil {
		return 0, fmt.Errorf("combine price %q.%q: %w", whole, fraction, err)
	}
	return price, nil
}

// ParseListPrice reads the struck-through list price block. The site
// stacks a label line above the amount, so only the last line counts.
func ParseListPrice(text string) (float64, error) {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	amount := strings.NewReplacer("$", "", ",", "").Replace(strings.TrimSpace(lines[len(lines)-1]))
	price, err := strconv.ParseFloat(amount, 64)
	if err != nil {
		return 0, fmt.Errorf("parse list price %q: %w", text, err)
	}
	return price, nil
}

// ParseSavingPercentage reads a "-15%" badge into 15.
func ParseSavingPercentage(text string) (int, error) {
	cleaned := strings.NewReplacer("%", "", "-", "").Replace(strings.TrimSpace(text))
	if cleaned == "" {
		return 0, fmt.Errorf("parse saving percentage: empty")
	}
	pct, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0, fmt.Errorf("parse saving percentage %q: %w", text, err)
	}
	return pct, nil
}

// NormalizeImageURL rewrites the resolution token embedded in a
// gallery thumbnail URL so the stored URL points at the full-size
// rendition. The token sits in the second-to-last underscore segment;
// its first two characters (the size prefix) are kept.
func NormalizeImageURL(url, resolution string) string {
	parts := strings.Split(url, "_")
	if len(parts) < 3 {
		return url
	}
	seg := parts[len(parts)-2]
	if len(seg) < 2 {
		return url
	}
	parts[len(parts)-2] = seg[:2] + resolution
	return strings.Join(parts, "_")
}

// DescriptionMarkdown converts a product-description HTML fragment to
// markdown for storage.
func DescriptionMarkdown(html string) (string, error) {
	converter := md.NewConverter("", true, nil)
	markdown, err := converter.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("convert description: %w", err)
	}
	return strings.TrimSpace(markdown), nil
}
