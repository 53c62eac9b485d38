package gemini

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"product-page-studio/internal/refimage"
)

const detailJSON = `{
  "productName": "아로마 캔들",
  "tagline": "하루의 끝을 밝히는 향",
  "description": "천연 소이 왁스로 만든 캔들",
  "targetAudience": "30대 직장인",
  "keyBenefits": [
    {"title": "천연 원료", "description": "소이 왁스"},
    {"title": "긴 연소", "description": "40시간"},
    {"title": "선물 포장", "description": "기프트 박스"}
  ],
  "specifications": [{"label": "용량", "value": "200g"}],
  "marketingCopy": "지금 만나보세요",
  "brandColors": {"primary": "#aa3355", "secondary": "#222222", "accent": "#ffcc00"}
}`

var testRef = refimage.Image{MimeType: "image/png", Data: "iVBORw0KGgo="}

type capturedRequest struct {
	Path   string
	APIKey string
	Body   generateContentRequest
}

func newServer(t *testing.T, status int, response string) (*httptest.Server, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.Path = r.URL.Path
		captured.APIKey = r.Header.Get("x-goog-api-key")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &captured.Body)

		w.Header().Set("content-type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)
	return srv, captured
}

func textResponse(t *testing.T, text string) string {
	t.Helper()
	resp := generateContentResponse{Candidates: []candidate{{
		Content: content{Role: "model", Parts: []part{{Text: text}}},
	}}}
	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	return string(raw)
}

func newTestClient(srv *httptest.Server) *Client {
	return New(Options{APIKey: "test-key", BaseURL: srv.URL, HTTPClient: srv.Client()})
}

func TestAnalyzeParsesJSON(t *testing.T) {
	srv, captured := newServer(t, http.StatusOK, textResponse(t, detailJSON))

	detail, err := newTestClient(srv).Analyze(context.Background(), testRef)
	require.NoError(t, err)

	assert.Equal(t, "아로마 캔들", detail.ProductName)
	assert.Len(t, detail.KeyBenefits, 3)
	assert.Equal(t, "#AA3355", detail.BrandColors.Primary)
	assert.False(t, detail.HasImages())

	assert.Equal(t, "/v1beta/models/"+DefaultAnalysisModel+":generateContent", captured.Path)
	assert.Equal(t, "test-key", captured.APIKey)
	assert.Equal(t, "application/json", captured.Body.GenerationConfig.ResponseMimeType)
	require.NotNil(t, captured.Body.GenerationConfig.ResponseSchema)
	assert.Contains(t, captured.Body.GenerationConfig.ResponseSchema.Properties, "brandColors")
	require.Len(t, captured.Body.Contents, 1)
	require.Len(t, captured.Body.Contents[0].Parts, 2)
	assert.Equal(t, testRef.Data, captured.Body.Contents[0].Parts[0].InlineData.Data)
	assert.Contains(t, captured.Body.Contents[0].Parts[1].Text, "Korean")
}

func TestAnalyzeStripsFences(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, textResponse(t, "```json\n"+detailJSON+"\n```"))

	fenced, err := newTestClient(srv).Analyze(context.Background(), testRef)
	require.NoError(t, err)

	srv2, _ := newServer(t, http.StatusOK, textResponse(t, detailJSON))
	plain, err := newTestClient(srv2).Analyze(context.Background(), testRef)
	require.NoError(t, err)

	assert.Equal(t, plain, fenced)
}

func TestAnalyzeFailures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		response string
		want     error
	}{
		{name: "empty text", status: http.StatusOK, response: `{"candidates":[]}`, want: ErrResponseEmpty},
		{name: "only fences", status: http.StatusOK, response: `{"candidates":[{"content":{"parts":[{"text":"` + "```json ```" + `"}]}}]}`, want: ErrResponseEmpty},
		{name: "invalid json", status: http.StatusOK, response: `{"candidates":[{"content":{"parts":[{"text":"not json"}]}}]}`, want: ErrParseFailure},
		{name: "missing name", status: http.StatusOK, response: `{"candidates":[{"content":{"parts":[{"text":"{\"tagline\":\"x\"}"}]}}]}`, want: ErrParseFailure},
		{name: "server error", status: http.StatusInternalServerError, response: `{"error":{"message":"boom"}}`, want: ErrAnalysisFailed},
		{name: "blocked", status: http.StatusOK, response: `{"promptFeedback":{"blockReason":"SAFETY"}}`, want: ErrAnalysisFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newServer(t, tt.status, tt.response)
			_, err := newTestClient(srv).Analyze(context.Background(), testRef)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, ErrAnalysisFailed)
		})
	}
}

func TestGenerateImageReturnsFirstInlinePart(t *testing.T) {
	response := `{"candidates":[{"content":{"parts":[
		{"text":"here you go"},
		{"inlineData":{"mimeType":"image/png","data":"Rk9P"}},
		{"inlineData":{"mimeType":"image/png","data":"QkFS"}}
	]}}]}`
	srv, captured := newServer(t, http.StatusOK, response)

	url, err := newTestClient(srv).GenerateImage(context.Background(), testRef, "studio shot")
	require.NoError(t, err)

	assert.Equal(t, "data:image/png;base64,Rk9P", url)
	assert.True(t, strings.HasSuffix(captured.Path, DefaultImageModel+":generateContent"))
	require.NotNil(t, captured.Body.GenerationConfig.ImageConfig)
	assert.Equal(t, "1:1", captured.Body.GenerationConfig.ImageConfig.AspectRatio)
	assert.Equal(t, []string{"IMAGE", "TEXT"}, captured.Body.GenerationConfig.ResponseModalities)
	assert.Equal(t, "studio shot", captured.Body.Contents[0].Parts[1].Text)
}

func TestGenerateImageWithoutImage(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, textResponse(t, "I cannot draw that"))

	_, err := newTestClient(srv).GenerateImage(context.Background(), testRef, "studio shot")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoImageReturned)
	assert.ErrorIs(t, err, ErrImageGenerationFailed)
}

func TestGenerateImageHTTPError(t *testing.T) {
	srv, _ := newServer(t, http.StatusTooManyRequests, `{"error":"quota"}`)

	_, err := newTestClient(srv).GenerateImage(context.Background(), testRef, "studio shot")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrImageGenerationFailed)
	assert.Contains(t, err.Error(), "429")
}

func TestGenerateImageRequiresPrompt(t *testing.T) {
	_, err := New(Options{}).GenerateImage(context.Background(), testRef, "  ")
	assert.ErrorIs(t, err, ErrImageGenerationFailed)
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripFences(" {\"a\":1} "))
}
