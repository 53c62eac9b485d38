// Package refimage holds the user's reference photo as an inline-encoded image.
package refimage

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strings"

	_ "golang.org/x/image/webp"
)

const DefaultMaxBytes = 10 << 20

var (
	ErrEmpty           = errors.New("image file is empty")
	ErrTooLarge        = errors.New("image file is too large")
	ErrUnsupportedType = errors.New("file is not a supported image")
	ErrUnreadable      = errors.New("image file could not be read")
	ErrInvalidDataURL  = errors.New("invalid data url")
)

// Image is an immutable inline-encoded image. The zero value means "no image".
type Image struct {
	MimeType string
	Data     string // base64, no data: prefix
	Name     string
	Width    int
	Height   int
}

func (img Image) IsZero() bool {
	return img.Data == ""
}

// DataURL renders the image as a self-contained data: URI.
func (img Image) DataURL() string {
	if img.IsZero() {
		return ""
	}
	return fmt.Sprintf("data:%s;base64,%s", img.MimeType, img.Data)
}

// Bytes decodes the base64 payload.
func (img Image) Bytes() ([]byte, error) {
	return base64.StdEncoding.DecodeString(img.Data)
}

func (img Image) Size() int {
	return base64.StdEncoding.DecodedLen(len(img.Data))
}

// Read consumes src and returns the encoded image. contentType is the
// client-declared MIME type; it is verified against the file's content.
func Read(src io.Reader, name, contentType string, maxBytes int64) (Image, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	raw, err := io.ReadAll(io.LimitReader(src, maxBytes+1))
	if err != nil {
		return Image{}, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}
	if len(raw) == 0 {
		return Image{}, ErrEmpty
	}
	if int64(len(raw)) > maxBytes {
		return Image{}, ErrTooLarge
	}

	return FromBytes(raw, name, contentType)
}

// FromBytes validates raw as a decodable image and encodes it.
func FromBytes(raw []byte, name, contentType string) (Image, error) {
	if len(raw) == 0 {
		return Image{}, ErrEmpty
	}

	mimeType := normalizeMime(contentType)
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = normalizeMime(http.DetectContentType(raw))
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return Image{}, ErrUnsupportedType
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return Image{}, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}
	if detected := "image/" + format; detected != mimeType {
		mimeType = detected
	}

	return Image{
		MimeType: mimeType,
		Data:     base64.StdEncoding.EncodeToString(raw),
		Name:     strings.TrimSpace(name),
		Width:    cfg.Width,
		Height:   cfg.Height,
	}, nil
}

// ParseDataURL splits a data: URI into MIME type and base64 payload. Values
// without the data: prefix are treated as bare base64 in fallbackMime.
func ParseDataURL(value, fallbackMime string) (mimeType string, base64Data string, err error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", "", ErrInvalidDataURL
	}

	const prefix = "data:"
	if !strings.HasPrefix(value, prefix) {
		return fallbackMime, value, nil
	}

	parts := strings.SplitN(value, ",", 2)
	if len(parts) != 2 || parts[1] == "" {
		return "", "", ErrInvalidDataURL
	}

	meta := strings.TrimPrefix(parts[0], prefix)
	if !strings.HasSuffix(meta, ";base64") {
		return "", "", ErrInvalidDataURL
	}
	mimeType = normalizeMime(strings.TrimSuffix(meta, ";base64"))
	if mimeType == "" {
		mimeType = fallbackMime
	}
	return mimeType, parts[1], nil
}

func normalizeMime(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if idx := strings.IndexByte(value, ';'); idx >= 0 {
		value = strings.TrimSpace(value[:idx])
	}
	if value == "image/jpg" {
		value = "image/jpeg"
	}
	return value
}
