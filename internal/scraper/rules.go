package scraper

import (
	"sort"
	"strings"
)

// Rules captures the vendor-specific extraction policy as data:
// category allow-lists, brand lookups, image filters, the price
// floor. These encode business decisions that drift with the site and
// the catalog, so they are configuration, not algorithm. Defaults
// mirror the production ruleset for the Mexican storefront.
type Rules struct {
	// AllowedCategories are the breadcrumb categories an item must
	// belong to; anything else is not a phone and is dropped.
	AllowedCategories []string
	// ExcludedKeywords drop accessory listings from discovery by title.
	ExcludedKeywords []string
	// KnownBrands is the recognized phone brand set.
	KnownBrands []string
	// ModelAliases maps model-line keywords found in titles to the
	// brand they imply (a "poco" is a xiaomi even if no brand appears).
	ModelAliases map[string]string
	// BrandSkipValues are backend brand entries to ignore.
	BrandSkipValues []string
	// PlaceholderImagePatterns identify decorative gallery entries by
	// filename fragment.
	PlaceholderImagePatterns []string
	// ImageResolution is the resolution token rewritten into gallery
	// URLs.
	ImageResolution string
	// MinimumPrice aborts items priced below the catalog's floor.
	MinimumPrice float64
	// FeatureKeys maps overview-table keys to record fields.
	FeatureKeys map[string]string
	// RankLabel, RankSubCategory, RatingLabel address the product
	// details table.
	RankLabel       string
	RankSubCategory string
	RatingLabel     string
	// PhonesDepartment is the top-level category applied before the
	// per-category discovery passes.
	PhonesDepartment string
}

// DefaultRules returns the production ruleset.
func DefaultRules() *Rules {
	return &Rules{
		AllowedCategories: []string{
			"banda ancha móvil",
			"celulares y smartphones de prepago",
			"celulares y smartphones desbloqueados",
		},
		ExcludedKeywords: []string{
			"funda", "case", "mica", "protector", "cargador", "charger",
			"cable", "audífono", "tablet", "router", "smartwatch",
			"correa", "soporte", "adaptador", "bocina",
		},
		KnownBrands: []string{
			"samsung", "apple", "xiaomi", "oppo", "huawei", "motorola",
			"sony", "nokia", "cubot", "google", "nubia", "zte",
		},
		ModelAliases: map[string]string{
			"iphone": "apple",
			"poco":   "xiaomi",
		},
		BrandSkipValues: []string{"", "generic"},
		PlaceholderImagePatterns: []string{
			"HomeCustomProduct",
			"play-icon-overla",
		},
		ImageResolution: "679",
		MinimumPrice:    601,
		FeatureKeys: map[string]string{
			"marca":             "brand",
			"nombre del modelo": "model",
			"color":             "color",
		},
		RankLabel:        "clasificación en los más vendidos de amazon",
		RankSubCategory:  "celulares y smartphones desbloqueados",
		RatingLabel:      "opinión media de los clientes",
		PhonesDepartment: "celulares y accesorios",
	}
}

// brandFromTitle infers a brand from a lower-cased product title using
// model aliases first, then the known brand list.
func (r *Rules) brandFromTitle(title string) string {
	keywords := make([]string, 0, len(r.ModelAliases))
	for keyword := range r.ModelAliases {
		keywords = append(keywords, keyword)
	}
	sort.Strings(keywords)
	for _, keyword := range keywords {
		if strings.Contains(title, keyword) {
			return r.ModelAliases[keyword]
		}
	}
	for _, brand := range r.KnownBrands {
		if strings.Contains(title, brand) {
			return brand
		}
	}
	return ""
}

// excluded reports whether a discovery result title names an accessory
// rather than a phone.
func (r *Rules) excluded(title string) bool {
	for _, keyword := range r.ExcludedKeywords {
		if strings.Contains(title, keyword) {
			return true
		}
	}
	return false
}

// knownBrand reports whether a feature-table brand value names a brand
// the catalog tracks.
func (r *Rules) knownBrand(value string) bool {
	for _, brand := range r.KnownBrands {
		if strings.Contains(value, brand) {
			return true
		}
	}
	return false
}
