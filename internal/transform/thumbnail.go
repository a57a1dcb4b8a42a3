package transform

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	xdraw "golang.org/x/image/draw"
)

// Thumbnail compression knobs. Quality degrades first; once the floor is
// reached the image is downscaled instead so the byte ceiling always wins
// over fidelity.
const (
	thumbStartQuality = 85
	thumbMinQuality   = 25
	thumbQualityStep  = 10
	thumbScaleFactor  = 0.9
	thumbMinDimension = 64
)

// CompressThumbnail re-encodes an image to fit under maxSizeBytes. The input
// may be PNG or JPEG; the output is always JPEG. The returned bytes never
// exceed the limit.
func CompressThumbnail(data []byte, maxSizeBytes int) ([]byte, error) {
	if len(data) <= maxSizeBytes {
		return data, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode thumbnail: %w", err)
	}

	// Pass 1: walk the quality ladder down at full resolution.
	for quality := thumbStartQuality; quality >= thumbMinQuality; quality -= thumbQualityStep {
		encoded, err := encodeJPEG(img, quality)
		if err != nil {
			return nil, err
		}
		if len(encoded) <= maxSizeBytes {
			return encoded, nil
		}
	}

	// Pass 2: shrink the image until the floor quality fits.
	for {
		bounds := img.Bounds()
		width := int(float64(bounds.Dx()) * thumbScaleFactor)
		height := int(float64(bounds.Dy()) * thumbScaleFactor)
		if width < thumbMinDimension || height < thumbMinDimension {
			return nil, fmt.Errorf("thumbnail cannot be compressed under %d bytes", maxSizeBytes)
		}

		scaled := image.NewRGBA(image.Rect(0, 0, width, height))
		xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), img, bounds, xdraw.Over, nil)
		img = scaled

		encoded, err := encodeJPEG(img, thumbMinQuality)
		if err != nil {
			return nil, err
		}
		if len(encoded) <= maxSizeBytes {
			return encoded, nil
		}
	}
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
