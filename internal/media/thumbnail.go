// Package media normalizes uploaded images into video thumbnails.
package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"math"
	"mime"
	"strings"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	ThumbnailMaxWidth  = 1280
	ThumbnailMaxHeight = 720
	WebPQuality        = 75
	MaxThumbnailBytes  = 10 << 20
)

var (
	ErrUnsupportedImage = errors.New("unsupported image type, use JPEG, PNG or WebP")
	ErrImageTooLarge    = errors.New("image exceeds 10MB")
)

// Thumbnail decodes a JPEG, PNG or WebP image, scales it to fit 1280x720 and
// re-encodes it as WebP.
func Thumbnail(content []byte, contentType string) ([]byte, error) {
	if len(content) == 0 {
		return nil, errors.New("image is empty")
	}
	if len(content) > MaxThumbnailBytes {
		return nil, ErrImageTooLarge
	}
	if contentType != "" && !IsAllowedImageMIME(contentType) {
		return nil, ErrUnsupportedImage
	}

	src, format, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	switch format {
	case "jpeg", "png", "webp":
	default:
		return nil, ErrUnsupportedImage
	}

	return encodeWebP(resizeToFit(src, ThumbnailMaxWidth, ThumbnailMaxHeight))
}

// IsAllowedImageMIME reports whether contentType names a supported thumbnail format.
func IsAllowedImageMIME(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = contentType
	}
	switch strings.ToLower(strings.TrimSpace(mediaType)) {
	case "image/jpeg", "image/jpg", "image/png", "image/webp":
		return true
	}
	return false
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scale := min(float64(maxWidth)/float64(w), float64(maxHeight)/float64(h))
	newW := max(int(math.Round(float64(w)*scale)), 1)
	newH := max(int(math.Round(float64(h)*scale)), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeWebP(img image.Image) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: WebPQuality}); err != nil {
		return nil, fmt.Errorf("encode webp: %w", err)
	}
	return buf.Bytes(), nil
}
