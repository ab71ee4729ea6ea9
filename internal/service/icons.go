package service

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	"github.com/Geometrically/fabricate/internal/models"

	xdraw "golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/webp" // register WebP decoder
)

// iconMaxDimension is the largest edge an icon keeps its original encoding at.
// Anything bigger is downscaled and re-encoded as PNG.
const iconMaxDimension = 512

// processIcon validates the uploaded icon bytes against the declared content
// type and downscales oversized raster images. SVG passes through untouched
// since it has no pixel dimensions to bound.
func processIcon(data []byte, contentType string) ([]byte, string, error) {
	if contentType == "image/svg+xml" {
		return data, contentType, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", models.NewValidationError("icon is not a valid image")
	}

	b := img.Bounds()
	if b.Dx() <= iconMaxDimension && b.Dy() <= iconMaxDimension {
		return data, contentType, nil
	}

	scaled := scaleToFit(img, iconMaxDimension)
	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return nil, "", models.NewInternalError(err)
	}
	return buf.Bytes(), "image/png", nil
}

func scaleToFit(src image.Image, max int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	scale := float64(max) / float64(w)
	if s := float64(max) / float64(h); s < scale {
		scale = s
	}
	newW := int(float64(w) * scale)
	newH := int(float64(h) * scale)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Over, nil)
	return dst
}
