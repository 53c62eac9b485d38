package product

import (
	"regexp"
	"strings"
)

type Benefit struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type Spec struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type BrandColors struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
	Accent    string `json:"accent"`
}

// Detail is the analysed product plus, once both generations finished, the
// two generated images as data URIs.
type Detail struct {
	ProductName    string      `json:"productName"`
	Tagline        string      `json:"tagline"`
	Description    string      `json:"description"`
	TargetAudience string      `json:"targetAudience"`
	KeyBenefits    []Benefit   `json:"keyBenefits"`
	Specifications []Spec      `json:"specifications"`
	MarketingCopy  string      `json:"marketingCopy"`
	BrandColors    BrandColors `json:"brandColors"`

	GeneratedImageURL string `json:"generatedImageUrl,omitempty"`
	LifestyleImageURL string `json:"lifestyleImageUrl,omitempty"`
}

// WithImages returns a copy carrying both generated images.
func (d Detail) WithImages(mainURL, lifestyleURL string) Detail {
	out := d.Clone()
	out.GeneratedImageURL = mainURL
	out.LifestyleImageURL = lifestyleURL
	return out
}

func (d Detail) Clone() Detail {
	out := d
	out.KeyBenefits = append([]Benefit(nil), d.KeyBenefits...)
	out.Specifications = append([]Spec(nil), d.Specifications...)
	return out
}

func (d Detail) HasImages() bool {
	return d.GeneratedImageURL != "" && d.LifestyleImageURL != ""
}

// Normalize trims text fields, drops empty list entries and replaces invalid
// brand colours with the default palette.
func (d Detail) Normalize() Detail {
	out := Detail{
		ProductName:       strings.TrimSpace(d.ProductName),
		Tagline:           strings.TrimSpace(d.Tagline),
		Description:       strings.TrimSpace(d.Description),
		TargetAudience:    strings.TrimSpace(d.TargetAudience),
		MarketingCopy:     strings.TrimSpace(d.MarketingCopy),
		GeneratedImageURL: d.GeneratedImageURL,
		LifestyleImageURL: d.LifestyleImageURL,
	}

	for _, b := range d.KeyBenefits {
		b.Title = strings.TrimSpace(b.Title)
		b.Description = strings.TrimSpace(b.Description)
		if b.Title == "" && b.Description == "" {
			continue
		}
		out.KeyBenefits = append(out.KeyBenefits, b)
	}
	for _, s := range d.Specifications {
		s.Label = strings.TrimSpace(s.Label)
		s.Value = strings.TrimSpace(s.Value)
		if s.Label == "" && s.Value == "" {
			continue
		}
		out.Specifications = append(out.Specifications, s)
	}

	out.BrandColors = BrandColors{
		Primary:   NormalizeColor(d.BrandColors.Primary, DefaultColors.Primary),
		Secondary: NormalizeColor(d.BrandColors.Secondary, DefaultColors.Secondary),
		Accent:    NormalizeColor(d.BrandColors.Accent, DefaultColors.Accent),
	}
	return out
}

var DefaultColors = BrandColors{
	Primary:   "#2563EB",
	Secondary: "#1E293B",
	Accent:    "#F59E0B",
}

var hexColor = regexp.MustCompile(`^#?([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// NormalizeColor returns value as an upper-case #RRGGBB string, or fallback
// when value is not a hex colour.
func NormalizeColor(value, fallback string) string {
	m := hexColor.FindStringSubmatch(strings.TrimSpace(value))
	if m == nil {
		return fallback
	}
	hex := strings.ToUpper(m[1])
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	return "#" + hex
}
