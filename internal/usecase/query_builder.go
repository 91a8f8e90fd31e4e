package usecase

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/prodlens/backend/internal/domain"
)

// Compiled regex patterns for query building
var (
	// Matches size/quantity patterns like "1.7 fl oz", "50 ml", "3.4oz", "2 lb"
	sizeQuantityPattern = regexp.MustCompile(`(?i)\b\d+\.?\d*\s*(?:fl\.?\s*oz|oz|ounces?|ml|l|liters?|g|grams?|kg|lbs?|pounds?)\b`)

	// Matches pack/count patterns like "12 pack", "pack of 6", "6-pack", "24 count", "6 ct"
	packCountPattern = regexp.MustCompile(`(?i)\b\d+[-\s]*(?:pack|pk|count|ct)\b|\bpack\s*of\s*\d+\b`)

	orphanedPunctuationPattern = regexp.MustCompile(`\s+[,\-;:/|]+(\s+|$)`)
	edgePunctuationPattern     = regexp.MustCompile(`^[\s,\-;:/|]+|[\s,\-;:/|]+$`)
	multiSpacePattern          = regexp.MustCompile(`\s+`)
)

// queryNoiseWords are retail terms that only add noise to a web search
var queryNoiseWords = map[string]bool{
	"new":      true,
	"improved": true,
	"value":    true,
	"bonus":    true,
	"sale":     true,
	"pack":     true,
	"package":  true,
	"count":    true,
	"each":     true,
}

const maxQueryNameLength = 120

// SearchQueryBuilder turns the user-supplied fields into a focused web search query
type SearchQueryBuilder struct{}

// NewSearchQueryBuilder creates a new search query builder
func NewSearchQueryBuilder() *SearchQueryBuilder {
	return &SearchQueryBuilder{}
}

// Build returns "<brand> <name> <size> <color> UPC <upc>" with packaging noise removed.
// Size is stripped from the name because it is appended from its own field.
func (b *SearchQueryBuilder) Build(request *domain.LookupRequest) string {
	if request == nil {
		return ""
	}

	name := b.CleanName(request.ProductName)

	parts := make([]string, 0, 5)
	brand := strings.TrimSpace(request.BrandName)
	if brand != "" && !strings.Contains(strings.ToLower(name), strings.ToLower(brand)) {
		parts = append(parts, brand)
	}
	if name != "" {
		parts = append(parts, name)
	}
	if size := strings.TrimSpace(request.Size); size != "" {
		parts = append(parts, size)
	}
	if color := strings.TrimSpace(request.Color); color != "" {
		parts = append(parts, color)
	}
	if upc := strings.TrimSpace(request.UPC); upc != "" {
		parts = append(parts, "UPC "+upc)
	}

	return strings.Join(parts, " ")
}

// CleanName removes sizes, pack counts and retail noise from a product name
func (b *SearchQueryBuilder) CleanName(name string) string {
	if name == "" {
		return ""
	}

	cleaned := sizeQuantityPattern.ReplaceAllString(name, " ")
	cleaned = packCountPattern.ReplaceAllString(cleaned, " ")
	cleaned = removeNoiseWords(cleaned)
	cleaned = orphanedPunctuationPattern.ReplaceAllString(cleaned, " ")
	cleaned = edgePunctuationPattern.ReplaceAllString(cleaned, "")
	cleaned = multiSpacePattern.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(cleaned)

	if len(cleaned) > maxQueryNameLength {
		cut := maxQueryNameLength
		for cut > 0 && !utf8.RuneStart(cleaned[cut]) {
			cut--
		}
		cleaned = cleaned[:cut]
		if lastSpace := strings.LastIndex(cleaned, " "); lastSpace > maxQueryNameLength/2 {
			cleaned = cleaned[:lastSpace]
		}
	}

	return cleaned
}

// removeNoiseWords drops noise words while keeping the original casing of everything else
func removeNoiseWords(s string) string {
	words := strings.Fields(s)
	kept := make([]string, 0, len(words))

	for _, word := range words {
		check := strings.ToLower(strings.Trim(word, ",.!?;:-'\""))
		if queryNoiseWords[check] {
			continue
		}
		kept = append(kept, word)
	}

	return strings.Join(kept, " ")
}
