package workflow

import (
	"errors"

	"product-page-studio/internal/gemini"
	"product-page-studio/internal/refimage"
)

// Messages holds the user-facing texts for one locale.
type Messages struct {
	Lang string

	ImageRead       string
	ImageTooLarge   string
	Analysis        string
	ImageGeneration string
	Default         string

	AnalyzingTitle  string
	GeneratingTitle string
	ProgressHint    string
}

var messagesKO = Messages{
	Lang: "ko",

	ImageRead:       "이미지를 읽을 수 없습니다. JPG, PNG, WEBP 파일을 선택해 주세요.",
	ImageTooLarge:   "이미지 파일이 너무 큽니다. 더 작은 파일을 선택해 주세요.",
	Analysis:        "제품 분석 중 문제가 발생했습니다.",
	ImageGeneration: "이미지 생성 중 문제가 발생했습니다.",
	Default:         "AI 디자인 생성 중 오류가 발생했습니다. 다시 시도해 주세요.",

	AnalyzingTitle:  "제품 가치를 분석하고 있습니다",
	GeneratingTitle: "고해상도 디자인 에셋 렌더링 중",
	ProgressHint:    "AI가 맞춤형 이미지를 생성하고 있습니다 (약 15-20초 소요)",
}

var messagesEN = Messages{
	Lang: "en",

	ImageRead:       "The image could not be read. Please choose a JPG, PNG or WEBP file.",
	ImageTooLarge:   "The image is too large. Please choose a smaller file.",
	Analysis:        "Something went wrong while analysing the product.",
	ImageGeneration: "Something went wrong while generating images.",
	Default:         "An error occurred while generating the AI design. Please try again.",

	AnalyzingTitle:  "Analysing your product",
	GeneratingTitle: "Rendering high-resolution design assets",
	ProgressHint:    "The AI is generating custom images (about 15-20 seconds)",
}

func MessagesFor(locale string) Messages {
	if locale == "en" {
		return messagesEN
	}
	return messagesKO
}

// For maps a workflow failure to the single message shown to the user.
func (m Messages) For(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, refimage.ErrTooLarge):
		return m.ImageTooLarge
	case errors.Is(err, refimage.ErrEmpty),
		errors.Is(err, refimage.ErrUnsupportedType),
		errors.Is(err, refimage.ErrUnreadable):
		return m.ImageRead
	case errors.Is(err, gemini.ErrAnalysisFailed):
		return m.Analysis
	case errors.Is(err, gemini.ErrImageGenerationFailed):
		return m.ImageGeneration
	}
	return m.Default
}
