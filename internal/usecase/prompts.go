package usecase

import (
	"fmt"
	"strings"

	"github.com/prodlens/backend/internal/domain"
)

const productSchema = `{
    "product_name": "Full product name with brand, size, and color",
    "msrp": "$XX.XX",
    "image_url": ["https://...", "https://..."],
    "description": "Brief product description",
    "match_confidence": 0,
    "source": "website name",
    "exact_match": true,
    "verification_notes": "Brief notes on match verification"
}`

const verificationSchema = `{
    "match_confidence": 0,
    "verification_notes": "Brief comparison notes (e.g., 'Brand names match, product names are similar.')"
}`

const jsonOnlyInstruction = "Return the result STRICTLY as a single JSON object matching the structure below. " +
	"Wrap the JSON in a markdown code block (```json...```). " +
	"Do not include any introductory or explanatory text outside the JSON block."

// buildProductSearchPrompt asks the model to find the exact product on the web
func buildProductSearchPrompt(request *domain.LookupRequest, searchQuery string) string {
	var b strings.Builder

	b.WriteString("You are a world-class product data enrichment assistant. ")
	b.WriteString("Your task is to find the EXACT match for the following product details.\n\n")

	b.WriteString("Input Details:\n")
	fmt.Fprintf(&b, "Product Name: %s\n", request.ProductName)
	fmt.Fprintf(&b, "Brand: %s\n", request.BrandName)
	fmt.Fprintf(&b, "UPC: %s\n", request.UPC)
	if request.Size != "" {
		fmt.Fprintf(&b, "Size: %s\n", request.Size)
	}
	if request.Color != "" {
		fmt.Fprintf(&b, "Color/Shade: %s\n", request.Color)
	}
	if searchQuery != "" {
		fmt.Fprintf(&b, "Search query: %s\n", searchQuery)
	}

	b.WriteString(`
CRITICAL REQUIREMENTS:
1. Find the EXACT product match - same brand, same size/volume, and same color/shade if specified.
2. Do NOT return similar or alternative products.
3. Verify the UPC matches the product found through web search.
4. Find the official MSRP (manufacturer's suggested retail price).
5. Find at least one high-quality product image URL.
6. Provide a brief, concise product description (max 3 sentences).
7. If an exact match is not found or the UPC verification fails, set 'exact_match' to false and 'match_confidence' below 70.

`)
	b.WriteString(jsonOnlyInstruction)
	b.WriteString("\n\nJSON Structure MUST match this:\n")
	b.WriteString(productSchema)

	return b.String()
}

// buildVerificationPrompt asks the model to score a UPC database candidate against user input
func buildVerificationPrompt(userName, userBrand, upcName, upcDescription string) string {
	var b strings.Builder

	b.WriteString("You are a product data matching expert. ")
	b.WriteString("Compare the 'User Input' against the 'UPC Database Result'.\n\n")

	b.WriteString("USER INPUT:\n")
	fmt.Fprintf(&b, "Product Name: %s\n", userName)
	fmt.Fprintf(&b, "Brand Name: %s\n\n", userBrand)

	b.WriteString("UPC DATABASE RESULT:\n")
	fmt.Fprintf(&b, "Product Name: %s\n", upcName)
	fmt.Fprintf(&b, "Description: %s\n\n", upcDescription)

	b.WriteString("Your task is to determine the confidence level (0-100) that the UPC database result ")
	b.WriteString("is an exact match for the user's intended product, based *only* on the provided names.\n\n")

	b.WriteString(jsonOnlyInstruction)
	b.WriteString("\n\nJSON Structure MUST match this:\n")
	b.WriteString(verificationSchema)

	return b.String()
}
