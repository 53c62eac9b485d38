package gemini

type generateContentRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig,omitempty"`
}

type generationConfig struct {
	Temperature        float64      `json:"temperature,omitempty"`
	ResponseMimeType   string       `json:"responseMimeType,omitempty"`
	ResponseSchema     *schema      `json:"responseSchema,omitempty"`
	ResponseModalities []string     `json:"responseModalities,omitempty"`
	ImageConfig        *imageConfig `json:"imageConfig,omitempty"`
}

type imageConfig struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
}

// schema is the OpenAPI subset accepted as responseSchema.
type schema struct {
	Type       string             `json:"type"`
	Properties map[string]*schema `json:"properties,omitempty"`
	Items      *schema            `json:"items,omitempty"`
	Required   []string           `json:"required,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string `json:"text,omitempty"`
	InlineData *blob  `json:"inlineData,omitempty"`
}

type blob struct {
	Data     string `json:"data"`
	MimeType string `json:"mimeType"`
}

type generateContentResponse struct {
	Candidates     []candidate     `json:"candidates"`
	PromptFeedback *promptFeedback `json:"promptFeedback,omitempty"`
}

type candidate struct {
	Content      content `json:"content"`
	FinishReason string  `json:"finishReason,omitempty"`
}

type promptFeedback struct {
	BlockReason string `json:"blockReason,omitempty"`
}

func detailSchema() *schema {
	str := func() *schema { return &schema{Type: "STRING"} }
	object := func(required []string, props map[string]*schema) *schema {
		return &schema{Type: "OBJECT", Properties: props, Required: required}
	}

	return object(
		[]string{
			"productName", "tagline", "description", "targetAudience",
			"keyBenefits", "specifications", "marketingCopy", "brandColors",
		},
		map[string]*schema{
			"productName":    str(),
			"tagline":        str(),
			"description":    str(),
			"targetAudience": str(),
			"keyBenefits": {
				Type: "ARRAY",
				Items: object([]string{"title", "description"}, map[string]*schema{
					"title":       str(),
					"description": str(),
				}),
			},
			"specifications": {
				Type: "ARRAY",
				Items: object([]string{"label", "value"}, map[string]*schema{
					"label": str(),
					"value": str(),
				}),
			},
			"marketingCopy": str(),
			"brandColors": object([]string{"primary", "secondary", "accent"}, map[string]*schema{
				"primary":   str(),
				"secondary": str(),
				"accent":    str(),
			}),
		},
	)
}
