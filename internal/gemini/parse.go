package gemini

import (
	"encoding/json"
	"fmt"
	"strings"

	"product-page-studio/internal/product"
)

// StripFences removes markdown code fences the model sometimes wraps JSON in,
// even when a JSON response type was requested.
func StripFences(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	return strings.TrimSpace(text)
}

// ParseDetail decodes the analysis text into a normalized product.Detail.
func ParseDetail(text string) (product.Detail, error) {
	cleaned := StripFences(text)
	if cleaned == "" {
		return product.Detail{}, ErrResponseEmpty
	}

	var detail product.Detail
	if err := json.Unmarshal([]byte(cleaned), &detail); err != nil {
		return product.Detail{}, fmt.Errorf("%w: %w", ErrParseFailure, err)
	}

	detail = detail.Normalize()
	if detail.ProductName == "" {
		return product.Detail{}, fmt.Errorf("%w: productName is missing", ErrParseFailure)
	}
	// Image fields are ours to fill.
	detail.GeneratedImageURL = ""
	detail.LifestyleImageURL = ""
	return detail, nil
}
