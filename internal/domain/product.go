package domain

import "encoding/json"

// ProductRecord is the normalized product returned to callers
type ProductRecord struct {
	ProductName       string   `json:"product_name"`
	MSRP              *string  `json:"msrp"`
	ImageURL          []string `json:"image_url"`
	Description       *string  `json:"description"`
	MatchConfidence   int      `json:"match_confidence"`
	Source            string   `json:"source"`
	ExactMatch        bool     `json:"exact_match"`
	VerificationNotes *string  `json:"verification_notes"`

	// Enrichment fields, only set for records coming from the product store
	UPC   *string `json:"upc,omitempty"`
	Brand *string `json:"brand,omitempty"`
	Size  *string `json:"size,omitempty"`
	Color *string `json:"color,omitempty"`
}

// Clone returns a deep copy so callers sharing a result cannot mutate each other
func (p *ProductRecord) Clone() *ProductRecord {
	if p == nil {
		return nil
	}
	out := *p
	if p.ImageURL != nil {
		out.ImageURL = append([]string(nil), p.ImageURL...)
	}
	out.MSRP = cloneString(p.MSRP)
	out.Description = cloneString(p.Description)
	out.VerificationNotes = cloneString(p.VerificationNotes)
	out.UPC = cloneString(p.UPC)
	out.Brand = cloneString(p.Brand)
	out.Size = cloneString(p.Size)
	out.Color = cloneString(p.Color)
	return &out
}

// VerificationResult is the AI's judgement of a UPC candidate against user input
type VerificationResult struct {
	MatchConfidence   int     `json:"match_confidence"`
	VerificationNotes *string `json:"verification_notes"`
}

// LookupRequest represents a product lookup request
type LookupRequest struct {
	ProductName string `form:"productName" json:"productName" binding:"required" validate:"required"`
	BrandName   string `form:"brandName" json:"brandName" binding:"required" validate:"required"`
	UPC         string `form:"upc" json:"upc" binding:"required" validate:"required"`
	Size        string `form:"size" json:"size,omitempty"`
	Color       string `form:"color" json:"color,omitempty"`
}

// LookupOutcome tells which branch of the lookup produced a result
type LookupOutcome string

const (
	OutcomeCache       LookupOutcome = "cache"
	OutcomeStore       LookupOutcome = "store"
	OutcomeUPCVerified LookupOutcome = "upc_verified"
	OutcomeAISearch    LookupOutcome = "ai_search"
	OutcomeRejected    LookupOutcome = "rejected"
)

// LookupResult carries the resolved record plus the raw AI payload, if any
type LookupResult struct {
	Record  *ProductRecord
	Raw     json.RawMessage
	Outcome LookupOutcome
}

// StringPtr returns a pointer to s
func StringPtr(s string) *string {
	return &s
}

// OptionalString returns nil for an empty string
func OptionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
