package prompts

import (
	"fmt"
	"strings"
)

const DefaultLanguage = "Korean"

// Shot is one generated-image composition.
type Shot struct {
	Key       string
	Title     string
	Concept   string
	Execution []string
}

var (
	Studio = Shot{
		Key:     "studio",
		Title:   "Studio Product Photography",
		Concept: "High-end professional studio product photography of %s",
		Execution: []string{
			"Minimalist clean white background",
			"Premium soft commercial lighting",
			"8k resolution, center composition",
			"Tack-sharp focus on the product, every detail visible",
		},
	}

	Lifestyle = Shot{
		Key:     "lifestyle",
		Title:   "Lifestyle Scene",
		Concept: "A beautiful lifestyle aesthetic shot of %s in a high-end modern interior or natural setting",
		Execution: []string{
			"Cinematic depth of field",
			"Warm atmospheric lighting",
			"Professional editorial magazine style",
			"Product stays the hero of the frame",
		},
	}
)

// Analysis builds the instruction sent with the reference photo when asking
// for copywriting and a brand palette.
func Analysis(language string) string {
	language = strings.TrimSpace(language)
	if language == "" {
		language = DefaultLanguage
	}

	var b strings.Builder
	b.Grow(1024)

	b.WriteString("TASK: Analyze this product and create a professional " + language + " e-commerce detail page design strategy.\n\n")
	writeSection(&b, "Steps", []string{
		"Identify the product category and core features.",
		"Define the target audience in the " + language + " market.",
		"Write " + language + " copy: product name, tagline, description, exactly 3 key benefits, specifications and a short purchase-guide marketing copy.",
		"Suggest a brand color palette (primary, secondary, accent) as hex codes like #1A2B3C that matches the product aesthetic.",
	})
	b.WriteString("\n")
	writeSection(&b, "Output rules", []string{
		"Respond STRICTLY in JSON matching the declared schema.",
		"Do not wrap the JSON in markdown code blocks.",
		"Do not add commentary before or after the JSON.",
	})

	return strings.TrimSpace(b.String())
}

// Build renders the image prompt for shot, parametrised by the product name.
func Build(shot Shot, productName string) string {
	productName = strings.TrimSpace(productName)
	if productName == "" {
		productName = "the product"
	}

	var b strings.Builder
	b.Grow(1024)

	b.WriteString(fmt.Sprintf(shot.Concept, productName) + ".\n\n")

	b.WriteString("REFERENCE IMAGE (IDENTITY LOCK): The attached photo contains the real product.\n")
	writeSection(&b, "Product integrity", []string{
		"The product MUST be the exact same object from the reference photo.",
		"Preserve shape, proportions, materials, colors and physical details.",
		"If the reference has text or a logo keep it unchanged; if it has none, add none.",
		"Do NOT add captions, watermarks or text overlays.",
	})
	writeSection(&b, shot.Title, uniq(shot.Execution))
	b.WriteString("\nOUTPUT RULES:\n")
	b.WriteString("- Return exactly 1 image, square 1:1.\n")
	b.WriteString("- Image only. No text, no JSON.\n")

	return strings.TrimSpace(b.String())
}

func uniq(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func writeSection(b *strings.Builder, title string, lines []string) {
	if len(lines) == 0 {
		return
	}
	b.WriteString("- " + title + ":\n")
	for _, line := range lines {
		b.WriteString("  - " + line + "\n")
	}
}
