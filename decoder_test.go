package atlasengine

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

type memorySource struct {
	data map[PhotoRef][]byte
}

func (s memorySource) Fetch(_ context.Context, ref PhotoRef) ([]byte, error) {
	return s.data[ref], nil
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 0, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func TestStandardDecoderDecodesPNG(t *testing.T) {
	ref := PhotoRef{URI: "test.png"}
	data := encodePNG(t, 40, 20)
	decoder := NewStandardDecoder(memorySource{data: map[PhotoRef][]byte{ref: data}})

	w, h, err := decoder.DecodeBounds(context.Background(), ref)
	if err != nil {
		t.Fatalf("DecodeBounds: %v", err)
	}
	if w != 40 || h != 20 {
		t.Errorf("DecodeBounds = (%d, %d), want (40, 20)", w, h)
	}

	img, err := decoder.Decode(context.Background(), ref, 1)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if img.Bounds().Dx() != 40 || img.Bounds().Dy() != 20 {
		t.Errorf("Decode bounds = %v, want 40x20", img.Bounds())
	}
}

func TestStandardDecoderDecodesJPEG(t *testing.T) {
	ref := PhotoRef{URI: "test.jpg"}
	data := encodeJPEG(t, 32, 32)
	decoder := NewStandardDecoder(memorySource{data: map[PhotoRef][]byte{ref: data}})

	img, err := decoder.Decode(context.Background(), ref, 1)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if img.Bounds().Dx() != 32 || img.Bounds().Dy() != 32 {
		t.Errorf("Decode bounds = %v, want 32x32", img.Bounds())
	}
}

func TestStandardDecoderBoundsFromPhotoRef(t *testing.T) {
	ref := PhotoRef{URI: "known.png", OriginalWidth: 800, OriginalHeight: 600}
	decoder := NewStandardDecoder(memorySource{})

	w, h, err := decoder.DecodeBounds(context.Background(), ref)
	if err != nil {
		t.Fatalf("DecodeBounds: %v", err)
	}
	if w != 800 || h != 600 {
		t.Errorf("DecodeBounds = (%d, %d), want (800, 600) from PhotoRef without fetching", w, h)
	}
}

func TestIsWebP(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{"valid riff webp", append([]byte("RIFF\x00\x00\x00\x00"), []byte("WEBP")...), true},
		{"too short", []byte("RIFF"), false},
		{"wrong container", append([]byte("RIFF\x00\x00\x00\x00"), []byte("AVI ")...), false},
	}
	for _, tt := range tests {
		if got := isWebP(tt.data); got != tt.want {
			t.Errorf("isWebP(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
