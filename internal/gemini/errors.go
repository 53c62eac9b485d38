package gemini

import "errors"

var (
	ErrAnalysisFailed        = errors.New("product analysis failed")
	ErrImageGenerationFailed = errors.New("image generation failed")

	ErrResponseEmpty   = errors.New("response is empty")
	ErrParseFailure    = errors.New("response is not valid product json")
	ErrNoImageReturned = errors.New("response contains no image")
)
