package gemini

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"product-page-studio/internal/product"
	"product-page-studio/internal/prompts"
	"product-page-studio/internal/refimage"
)

// SDKClient is the genai-backed alternative to Client. Both satisfy the same
// Analyze/GenerateImage contract.
type SDKClient struct {
	client        *genai.Client
	analysisModel string
	imageModel    string
	language      string
	logger        *slog.Logger
}

func NewSDK(ctx context.Context, opts Options) (*SDKClient, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	cfg := &genai.ClientConfig{
		APIKey:     opts.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if baseURL := strings.TrimSpace(opts.BaseURL); baseURL != "" {
		cfg.HTTPOptions.BaseURL = strings.TrimRight(baseURL, "/") + "/"
	}
	if apiVersion := strings.TrimSpace(opts.APIVersion); apiVersion != "" {
		cfg.HTTPOptions.APIVersion = apiVersion
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &SDKClient{
		client:        client,
		analysisModel: orDefault(opts.AnalysisModel, DefaultAnalysisModel),
		imageModel:    orDefault(opts.ImageModel, DefaultImageModel),
		language:      orDefault(opts.CopyLanguage, prompts.DefaultLanguage),
		logger:        logger,
	}, nil
}

func (c *SDKClient) Analyze(ctx context.Context, ref refimage.Image) (product.Detail, error) {
	imagePart, err := inlinePart(ref)
	if err != nil {
		return product.Detail{}, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			imagePart,
			genai.NewPartFromText(prompts.Analysis(c.language)),
		}, genai.RoleUser),
	}

	result, err := c.client.Models.GenerateContent(ctx, c.analysisModel, contents, &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](analysisTemperature),
		ResponseMIMEType: "application/json",
		ResponseSchema:   toGenaiSchema(detailSchema()),
	})
	if err != nil {
		return product.Detail{}, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}

	text := sdkText(result)
	detail, err := ParseDetail(text)
	if err != nil {
		c.logger.Warn("analysis response rejected", "model", c.analysisModel, "err", err, "text_len", len(text))
		return product.Detail{}, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}

	c.logger.Info("product analysed", "model", c.analysisModel, "product", detail.ProductName, "backend", "sdk")
	return detail, nil
}

func (c *SDKClient) GenerateImage(ctx context.Context, ref refimage.Image, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", fmt.Errorf("%w: prompt is empty", ErrImageGenerationFailed)
	}

	var parts []*genai.Part
	if !ref.IsZero() {
		imagePart, err := inlinePart(ref)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrImageGenerationFailed, err)
		}
		parts = append(parts, imagePart)
	}
	parts = append(parts, genai.NewPartFromText(prompt))

	result, err := c.client.Models.GenerateContent(ctx, c.imageModel,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)},
		&genai.GenerateContentConfig{
			ResponseModalities: []string{"IMAGE", "TEXT"},
			ImageConfig:        &genai.ImageConfig{AspectRatio: imageAspectRatio},
		},
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrImageGenerationFailed, err)
	}

	for _, cand := range result.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, p := range cand.Content.Parts {
			if p.InlineData == nil || len(p.InlineData.Data) == 0 {
				continue
			}
			mimeType := p.InlineData.MIMEType
			if mimeType == "" {
				mimeType = fallbackMime
			}
			return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(p.InlineData.Data)), nil
		}
	}

	c.logger.Warn("image response without inline data", "model", c.imageModel, "backend", "sdk")
	return "", fmt.Errorf("%w: %w", ErrImageGenerationFailed, ErrNoImageReturned)
}

func inlinePart(ref refimage.Image) (*genai.Part, error) {
	if ref.IsZero() {
		return nil, fmt.Errorf("reference image is empty")
	}
	raw, err := ref.Bytes()
	if err != nil {
		return nil, fmt.Errorf("decode reference image: %w", err)
	}
	return genai.NewPartFromBytes(raw, ref.MimeType), nil
}

func sdkText(result *genai.GenerateContentResponse) string {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		if p.Text != "" && !p.Thought {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

func toGenaiSchema(s *schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:     genai.Type(s.Type),
		Items:    toGenaiSchema(s.Items),
		Required: s.Required,
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = toGenaiSchema(prop)
		}
	}
	return out
}
