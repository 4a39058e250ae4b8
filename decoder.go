package atlasengine

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"net/http"

	"github.com/gen2brain/webp"
)

// ImageDecoder is the external capability the photo processor consumes
//. The engine never decides how a PhotoRef's bytes are
// fetched — only how many pixels it needs and at what subsample.
type ImageDecoder interface {
	// DecodeBounds returns the photo's full-resolution dimensions via a
	// cheap header read, without decoding pixel data.
	DecodeBounds(ctx context.Context, ref PhotoRef) (width, height int, err error)

	// Decode decodes ref at the given subsample factor (1 = full
	// resolution, 2 = every other pixel, etc.) and returns the pixels.
	Decode(ctx context.Context, ref PhotoRef, sample int) (image.Image, error)
}

// ByteSource supplies the raw bytes for a PhotoRef. StandardDecoder
// delegates fetching to this so it stays agnostic of whether photos live
// on disk, in an asset bundle, or behind a network fetch.
type ByteSource interface {
	Fetch(ctx context.Context, ref PhotoRef) ([]byte, error)
}

// StandardDecoder is a reference ImageDecoder covering the formats a photo
// gallery commonly ingests: JPEG and PNG via the standard library, and
// WebP via github.com/gen2brain/webp — grounded on
// geotiff2pmtiles/internal/encode/decode.go's format-sniffing DecodeImage,
// adapted here from a format-string argument to content sniffing via
// http.DetectContentType, since a PhotoRef carries no format tag of its
// own.
type StandardDecoder struct {
	Source ByteSource
}

// NewStandardDecoder builds a StandardDecoder fetching bytes from source.
func NewStandardDecoder(source ByteSource) *StandardDecoder {
	return &StandardDecoder{Source: source}
}

func (d *StandardDecoder) DecodeBounds(ctx context.Context, ref PhotoRef) (int, int, error) {
	if ref.OriginalWidth > 0 && ref.OriginalHeight > 0 {
		return ref.OriginalWidth, ref.OriginalHeight, nil
	}
	data, err := d.Source.Fetch(ctx, ref)
	if err != nil {
		return 0, 0, fmt.Errorf("atlasengine: fetch %s: %w", ref, err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("atlasengine: decode bounds %s: %w", ref, err)
	}
	return cfg.Width, cfg.Height, nil
}

// Decode fetches and fully decodes ref. sample is accepted for interface
// symmetry with the processor's subsample pipeline;
// JPEG/PNG/WebP have no native subsampled-decode path in the standard
// library or gen2brain/webp, so StandardDecoder always decodes at full
// resolution and leaves downsampling to the processor's scale step.
func (d *StandardDecoder) Decode(ctx context.Context, ref PhotoRef, sample int) (image.Image, error) {
	data, err := d.Source.Fetch(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("atlasengine: fetch %s: %w", ref, err)
	}

	format := http.DetectContentType(data)
	r := bytes.NewReader(data)
	switch {
	case isJPEG(format):
		return jpeg.Decode(r)
	case isPNG(format):
		return png.Decode(r)
	case isWebP(data):
		return webp.Decode(r)
	default:
		// Fall back to the standard library's format registry, which also
		// covers gif/bmp if the caller has imported those decoders.
		img, _, err := image.Decode(r)
		return img, err
	}
}

func isJPEG(contentType string) bool { return contentType == "image/jpeg" }
func isPNG(contentType string) bool  { return contentType == "image/png" }

// isWebP sniffs the RIFF....WEBP container header directly, since
// http.DetectContentType does not recognize WebP.
func isWebP(data []byte) bool {
	return len(data) >= 12 &&
		string(data[0:4]) == "RIFF" &&
		string(data[8:12]) == "WEBP"
}
