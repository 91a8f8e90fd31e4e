package upcitemdb

import (
	"encoding/json"
	"strings"

	"github.com/prodlens/backend/internal/domain"
)

// Defaults applied while normalizing provider items
const (
	SourceLabel           = "UPC Item DB"
	DefaultDescription    = "No description available."
	DefaultProductName    = "Unknown Product"
	NotAvailable          = "N/A"
	RetrievedDirectlyNote = "Data retrieved directly from UPC Item DB."
)

// MapToProductRecord converts a provider item to our domain ProductRecord.
// UPC database hits are treated as ground truth until verified, so the record
// always carries exact_match=true and confidence 100.
func MapToProductRecord(it *item) *domain.ProductRecord {
	name := DefaultProductName
	if it.Title != nil && strings.TrimSpace(*it.Title) != "" {
		name = *it.Title
	}

	description := DefaultDescription
	if it.Description != nil {
		description = *it.Description
	}

	images := make([]string, 0, len(it.Images))
	for _, img := range it.Images {
		if img = strings.TrimSpace(img); img != "" {
			images = append(images, img)
		}
	}

	return &domain.ProductRecord{
		ProductName:       name,
		MSRP:              domain.StringPtr(formatMSRP(it.Offers)),
		ImageURL:          images,
		Description:       domain.StringPtr(description),
		MatchConfidence:   100,
		Source:            SourceLabel,
		ExactMatch:        true,
		VerificationNotes: domain.StringPtr(RetrievedDirectlyNote),
	}
}

// formatMSRP takes the first offer with a non-empty price and formats it as "$<price>"
func formatMSRP(offers []offer) string {
	for _, o := range offers {
		price := priceText(o.Price)
		if price == "" {
			continue
		}
		if price == NotAvailable {
			return NotAvailable
		}
		return "$" + strings.TrimPrefix(price, "$")
	}
	return NotAvailable
}

// priceText renders a price that the provider sends either as a number or a string
func priceText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}

	return ""
}
