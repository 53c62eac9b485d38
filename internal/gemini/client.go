package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"product-page-studio/internal/product"
	"product-page-studio/internal/prompts"
	"product-page-studio/internal/refimage"
)

const (
	DefaultAnalysisModel = "gemini-3-flash-preview"
	DefaultImageModel    = "gemini-2.5-flash-image"

	imageAspectRatio    = "1:1"
	analysisTemperature = 0.4
	fallbackMime        = "image/png"
)

type Options struct {
	APIKey        string
	BaseURL       string
	APIVersion    string
	AnalysisModel string
	ImageModel    string
	// CopyLanguage is the target market language for generated copy.
	CopyLanguage string
	HTTPClient   *http.Client
	Logger       *slog.Logger
}

// Client talks to the generateContent REST endpoint directly.
type Client struct {
	apiKey        string
	baseURL       string
	apiVersion    string
	analysisModel string
	imageModel    string
	language      string
	httpClient    *http.Client
	logger        *slog.Logger
}

func New(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}

	apiVersion := strings.TrimSpace(opts.APIVersion)
	if apiVersion == "" {
		apiVersion = "v1beta"
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		apiKey:        opts.APIKey,
		baseURL:       baseURL,
		apiVersion:    apiVersion,
		analysisModel: orDefault(opts.AnalysisModel, DefaultAnalysisModel),
		imageModel:    orDefault(opts.ImageModel, DefaultImageModel),
		language:      orDefault(opts.CopyLanguage, prompts.DefaultLanguage),
		httpClient:    httpClient,
		logger:        logger,
	}
}

// Analyze asks the analysis model for product copy and a brand palette.
func (c *Client) Analyze(ctx context.Context, ref refimage.Image) (product.Detail, error) {
	if ref.IsZero() {
		return product.Detail{}, fmt.Errorf("%w: reference image is empty", ErrAnalysisFailed)
	}

	req := generateContentRequest{
		Contents: []content{{
			Role: "user",
			Parts: []part{
				{InlineData: &blob{Data: ref.Data, MimeType: ref.MimeType}},
				{Text: prompts.Analysis(c.language)},
			},
		}},
		GenerationConfig: generationConfig{
			Temperature:      analysisTemperature,
			ResponseMimeType: "application/json",
			ResponseSchema:   detailSchema(),
		},
	}

	resp, err := c.generateContent(ctx, c.analysisModel, req)
	if err != nil {
		return product.Detail{}, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}

	text, _ := extractParts(resp)
	detail, err := ParseDetail(text)
	if err != nil {
		c.logger.Warn("analysis response rejected", "model", c.analysisModel, "err", err, "text_len", len(text))
		return product.Detail{}, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}

	c.logger.Info("product analysed", "model", c.analysisModel, "product", detail.ProductName)
	return detail, nil
}

// GenerateImage returns the first image part as a data URI.
func (c *Client) GenerateImage(ctx context.Context, ref refimage.Image, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", fmt.Errorf("%w: prompt is empty", ErrImageGenerationFailed)
	}

	parts := []part{{Text: prompt}}
	if !ref.IsZero() {
		parts = append([]part{{InlineData: &blob{Data: ref.Data, MimeType: ref.MimeType}}}, parts...)
	}

	req := generateContentRequest{
		Contents: []content{{Role: "user", Parts: parts}},
		GenerationConfig: generationConfig{
			ResponseModalities: []string{"IMAGE", "TEXT"},
			ImageConfig:        &imageConfig{AspectRatio: imageAspectRatio},
		},
	}

	resp, err := c.generateContent(ctx, c.imageModel, req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrImageGenerationFailed, err)
	}

	text, images := extractParts(resp)
	if len(images) == 0 {
		c.logger.Warn("image response without inline data", "model", c.imageModel, "text_len", len(text))
		return "", fmt.Errorf("%w: %w", ErrImageGenerationFailed, ErrNoImageReturned)
	}

	return images[0], nil
}

func (c *Client) generateContent(ctx context.Context, model string, payload generateContentRequest) (generateContentResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return generateContentResponse{}, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/models/%s:generateContent", c.baseURL, c.apiVersion, model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return generateContentResponse{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("content-type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return generateContentResponse{}, fmt.Errorf("request: %w", err)
	}
	defer httpResp.Body.Close()

	rawBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return generateContentResponse{}, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode >= 400 {
		return generateContentResponse{}, fmt.Errorf("gemini API %s: %s", httpResp.Status, truncate(strings.TrimSpace(string(rawBody)), 512))
	}

	var decoded generateContentResponse
	if err := json.Unmarshal(rawBody, &decoded); err != nil {
		return generateContentResponse{}, fmt.Errorf("decode response: %w", err)
	}
	if decoded.PromptFeedback != nil && decoded.PromptFeedback.BlockReason != "" {
		return generateContentResponse{}, errors.New("prompt blocked: " + decoded.PromptFeedback.BlockReason)
	}

	return decoded, nil
}

func extractParts(resp generateContentResponse) (string, []string) {
	if len(resp.Candidates) == 0 {
		return "", nil
	}

	var textBuilder strings.Builder
	var images []string

	for _, p := range resp.Candidates[0].Content.Parts {
		if p.Text != "" {
			textBuilder.WriteString(p.Text)
		}
		if p.InlineData != nil && p.InlineData.Data != "" {
			mimeType := p.InlineData.MimeType
			if mimeType == "" {
				mimeType = fallbackMime
			}
			images = append(images, fmt.Sprintf("data:%s;base64,%s", mimeType, p.InlineData.Data))
		}
	}

	return textBuilder.String(), images
}

func orDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
