package usecase

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/prodlens/backend/internal/domain"
)

// DefaultAISource labels AI results that do not name the website they came from
const DefaultAISource = "AI Web Search"

// Confidence decodes a 0-100 score from a number or a numeric string.
// Anything else decodes to 0.
type Confidence int

func (c *Confidence) UnmarshalJSON(data []byte) error {
	*c = 0

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil
	}

	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(t), "%"), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	*c = Confidence(clampScore(int(math.Round(f))))
	return nil
}

// ImageURLs decodes an array of URLs, a single URL string, or null
type ImageURLs []string

func (u *ImageURLs) UnmarshalJSON(data []byte) error {
	*u = ImageURLs{}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil
	}

	switch t := v.(type) {
	case string:
		if s := strings.TrimSpace(t); s != "" {
			*u = ImageURLs{s}
		}
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				*u = append(*u, strings.TrimSpace(s))
			}
		}
	}
	return nil
}

// FlexString decodes a string or a number. Anything else decodes to "".
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	*s = ""

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var str string
		if err := json.Unmarshal(trimmed, &str); err == nil {
			*s = FlexString(strings.TrimSpace(str))
		}
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err == nil {
		*s = FlexString(n.String())
	}
	return nil
}

// Ptr returns nil for an empty value
func (s FlexString) Ptr() *string {
	return domain.OptionalString(string(s))
}

// FlexBool decodes a JSON bool or the strings "true" and "false"
type FlexBool bool

func (b *FlexBool) UnmarshalJSON(data []byte) error {
	*b = false

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil
	}

	switch t := v.(type) {
	case bool:
		*b = FlexBool(t)
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(t))
		if err == nil {
			*b = FlexBool(parsed)
		}
	}
	return nil
}

// productSearchOutput is the object the product-search prompt asks the model for
type productSearchOutput struct {
	ProductName       FlexString `json:"product_name"`
	MSRP              FlexString `json:"msrp"`
	ImageURL          ImageURLs  `json:"image_url"`
	Description       FlexString `json:"description"`
	MatchConfidence   Confidence `json:"match_confidence"`
	Source            FlexString `json:"source"`
	ExactMatch        FlexBool   `json:"exact_match"`
	VerificationNotes FlexString `json:"verification_notes"`
}

// verificationOutput is the object the verification prompt asks the model for
type verificationOutput struct {
	MatchConfidence   Confidence `json:"match_confidence"`
	VerificationNotes FlexString `json:"verification_notes"`
}

// decodeProductSearch turns the AI search answer into a product record.
// Only a payload that is not a JSON object is an error; unreadable fields keep
// their zero value so the confidence gate can still judge the answer.
func decodeProductSearch(raw json.RawMessage) (*domain.ProductRecord, error) {
	var out productSearchOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: product search result: %v", domain.ErrExtraction, err)
	}

	images := []string(out.ImageURL)
	if images == nil {
		images = []string{}
	}

	source := string(out.Source)
	if source == "" {
		source = DefaultAISource
	}

	return &domain.ProductRecord{
		ProductName:       string(out.ProductName),
		MSRP:              out.MSRP.Ptr(),
		ImageURL:          images,
		Description:       out.Description.Ptr(),
		MatchConfidence:   int(out.MatchConfidence),
		Source:            source,
		ExactMatch:        bool(out.ExactMatch),
		VerificationNotes: out.VerificationNotes.Ptr(),
	}, nil
}

// decodeVerification never fails: fields that cannot be read keep their zero value
func decodeVerification(raw json.RawMessage) *domain.VerificationResult {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return &domain.VerificationResult{}
	}

	var out verificationOutput
	if v, ok := fields["match_confidence"]; ok {
		_ = json.Unmarshal(v, &out.MatchConfidence)
	}
	if v, ok := fields["verification_notes"]; ok {
		_ = json.Unmarshal(v, &out.VerificationNotes)
	}

	return &domain.VerificationResult{
		MatchConfidence:   int(out.MatchConfidence),
		VerificationNotes: out.VerificationNotes.Ptr(),
	}
}

func clampScore(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
