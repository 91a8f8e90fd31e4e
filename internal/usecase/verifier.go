package usecase

import (
	"context"

	"github.com/prodlens/backend/internal/domain"
)

// Verifier asks the AI how well a UPC database candidate matches what the user asked for
type Verifier struct {
	ai domain.AIClient
}

// NewVerifier creates a verifier backed by ai
func NewVerifier(ai domain.AIClient) *Verifier {
	return &Verifier{ai: ai}
}

// Verify scores the UPC candidate against the user's product and brand names.
// Errors come only from the AI call; a malformed answer scores 0.
func (v *Verifier) Verify(
	ctx context.Context,
	userName, userBrand, upcName, upcDescription string,
) (*domain.VerificationResult, error) {
	prompt := buildVerificationPrompt(userName, userBrand, upcName, upcDescription)

	raw, err := v.ai.Generate(ctx, prompt, false)
	if err != nil {
		return nil, err
	}

	return decodeVerification(raw), nil
}
