// Package imaging turns uploaded pictures into small avatar thumbnails.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"

	"golang.org/x/image/draw"

	"github.com/quillhub/blog/internal/core/domain"
)

const (
	DefaultSize     = 125
	maxUploadBytes  = 5 << 20
	maxSourcePixels = 40_000_000
	jpegQuality     = 90
)

// Thumbnailer implements ports.Thumbnailer. Images are scaled to fit within
// Size x Size keeping their aspect ratio; smaller images are never enlarged.
type Thumbnailer struct {
	Size int
}

func NewThumbnailer(size int) *Thumbnailer {
	if size <= 0 {
		size = DefaultSize
	}
	return &Thumbnailer{Size: size}
}

func (t *Thumbnailer) Thumbnail(r io.Reader) ([]byte, string, error) {
	raw, err := io.ReadAll(io.LimitReader(r, maxUploadBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read upload: %w", err)
	}
	if len(raw) > maxUploadBytes {
		return nil, "", domain.ErrUnsupportedImage
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil || (format != "jpeg" && format != "png") {
		return nil, "", domain.ErrUnsupportedImage
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width*cfg.Height > maxSourcePixels {
		return nil, "", domain.ErrUnsupportedImage
	}

	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, "", domain.ErrUnsupportedImage
	}

	dst := t.scale(src)

	var out bytes.Buffer
	switch format {
	case "jpeg":
		err = jpeg.Encode(&out, dst, &jpeg.Options{Quality: jpegQuality})
	case "png":
		err = png.Encode(&out, dst)
	default:
		err = errors.New("unreachable format " + format)
	}
	if err != nil {
		return nil, "", fmt.Errorf("encode thumbnail: %w", err)
	}
	return out.Bytes(), format, nil
}

func (t *Thumbnailer) scale(src image.Image) image.Image {
	b := src.Bounds()
	w, h := FitWithin(b.Dx(), b.Dy(), t.Size)
	if w == b.Dx() && h == b.Dy() {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}

// FitWithin returns the largest size not exceeding bound x bound with the
// aspect ratio of w x h. Sizes already within bound are returned unchanged.
func FitWithin(w, h, bound int) (int, int) {
	if w <= bound && h <= bound {
		return w, h
	}
	if w >= h {
		nh := h * bound / w
		if nh < 1 {
			nh = 1
		}
		return bound, nh
	}
	nw := w * bound / h
	if nw < 1 {
		nw = 1
	}
	return nw, bound
}
