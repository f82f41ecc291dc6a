// Package imagex transforms attachment bytes before they hit the object
// store: an optional rescale for any image type, and an optional quality
// re-encode for JPEGs. Buffers with no applicable transform pass through
// byte-identical.
package imagex

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"math"
	"strings"

	"golang.org/x/image/draw"
)

var (
	// ErrInvalidParameter reports an out-of-range scale or quality. Raised
	// before any decode work so bad requests never reach storage.
	ErrInvalidParameter = errors.New("imagex: invalid parameter")

	// ErrUnsupportedFormat reports an image subtype we cannot re-encode.
	ErrUnsupportedFormat = errors.New("imagex: unsupported image format")

	// ErrDecode reports an undecodable image payload.
	ErrDecode = errors.New("imagex: cannot decode image")
)

// Options are the transform parameters. Nil means "not requested". Scale
// and quality are independent and composable; scale applies first.
type Options struct {
	// Scale multiplies both dimensions; the result is floored. Must be > 0.
	Scale *float64

	// Quality re-encodes JPEGs with explicit compression quality in (0, 1].
	Quality *float64
}

// Transform applies the requested transforms to data declared as mimeType.
//
// The scale step applies only when the top-level MIME type is "image"; the
// quality step applies only to the jpeg subtype. Parameters that do not
// match the payload type are ignored, matching how uploads of non-image
// files carry the same query parameters harmlessly.
func Transform(data []byte, mimeType string, opts Options) ([]byte, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	topType, subType := splitMIME(mimeType)

	doScale := opts.Scale != nil && topType == "image"
	doQuality := opts.Quality != nil && isJPEG(subType)

	if !doScale && !doQuality {
		return data, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	if doScale {
		img, err = rescale(img, *opts.Scale)
		if err != nil {
			return nil, err
		}
	}

	return encode(img, subType, opts.Quality)
}

func (o Options) validate() error {
	if o.Scale != nil && *o.Scale <= 0 {
		return fmt.Errorf("%w: scale %v must be > 0", ErrInvalidParameter, *o.Scale)
	}
	if o.Quality != nil && (*o.Quality <= 0 || *o.Quality > 1) {
		return fmt.Errorf("%w: quality %v must be in (0, 1]", ErrInvalidParameter, *o.Quality)
	}
	return nil
}

func rescale(src image.Image, scale float64) (image.Image, error) {
	bounds := src.Bounds()
	w := int(math.Floor(float64(bounds.Dx()) * scale))
	h := int(math.Floor(float64(bounds.Dy()) * scale))
	if w < 1 || h < 1 {
		return nil, fmt.Errorf("%w: scale %v collapses %dx%d to zero size",
			ErrInvalidParameter, scale, bounds.Dx(), bounds.Dy())
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, bounds, draw.Src, nil)
	return dst, nil
}

// encode re-encodes img in its original subformat. Quality only has an
// effect for JPEG; nil quality means maximum fidelity.
func encode(img image.Image, subType string, quality *float64) ([]byte, error) {
	var buf bytes.Buffer

	switch {
	case isJPEG(subType):
		q := 100
		if quality != nil {
			q = int(math.Round(*quality * 100))
		}
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: q}); err != nil {
			return nil, err
		}
	case subType == "png":
		if err := png.Encode(&buf, img); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, subType)
	}

	return buf.Bytes(), nil
}

func splitMIME(mimeType string) (topType, subType string) {
	topType, subType, _ = strings.Cut(strings.ToLower(mimeType), "/")
	return topType, subType
}

// isJPEG accepts both subtype spellings seen in the wild.
func isJPEG(subType string) bool {
	return subType == "jpeg" || subType == "jpg"
}
