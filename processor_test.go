package atlasengine

import (
	"context"
	"image"
	"image/color"
	"testing"
)

type fakeDecoder struct {
	width, height int
	img           image.Image
	err           error
}

func (d fakeDecoder) DecodeBounds(_ context.Context, _ PhotoRef) (int, int, error) {
	return d.width, d.height, d.err
}

func (d fakeDecoder) Decode(_ context.Context, _ PhotoRef, _ int) (image.Image, error) {
	if d.err != nil {
		return nil, d.err
	}
	if d.img != nil {
		return d.img, nil
	}
	return image.NewRGBA(image.Rect(0, 0, d.width, d.height)), nil
}

func solidImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{255, 0, 0, 255})
		}
	}
	return img
}

func TestProcessorFitCenterPreservesAspect(t *testing.T) {
	decoder := fakeDecoder{width: 1600, height: 800, img: solidImage(1600, 800)}
	p := NewProcessor(decoder)

	out, err := p.Process(context.Background(), PhotoRef{URI: "wide"}, L4, FitCenter, PhotoPriorityNormal)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if out.ScaledSize.Width != L4.Res() {
		t.Errorf("ScaledSize.Width = %d, want %d", out.ScaledSize.Width, L4.Res())
	}
	wantHeight := L4.Res() / 2
	if out.ScaledSize.Height != wantHeight {
		t.Errorf("ScaledSize.Height = %d, want %d", out.ScaledSize.Height, wantHeight)
	}
}

func TestProcessorCenterCropSquares(t *testing.T) {
	decoder := fakeDecoder{width: 1600, height: 800, img: solidImage(1600, 800)}
	p := NewProcessor(decoder)

	out, err := p.Process(context.Background(), PhotoRef{URI: "wide"}, L3, CenterCrop, PhotoPriorityNormal)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if out.ScaledSize.Width != L3.Res() || out.ScaledSize.Height != L3.Res() {
		t.Errorf("ScaledSize = %+v, want %dx%d square", out.ScaledSize, L3.Res(), L3.Res())
	}
}

func TestProcessorPropagatesDecodeFailure(t *testing.T) {
	decoder := fakeDecoder{width: 0, height: 0, err: errZeroBounds}
	p := NewProcessor(decoder)

	_, err := p.Process(context.Background(), PhotoRef{URI: "bad"}, L2, FitCenter, PhotoPriorityNormal)
	if err == nil {
		t.Fatal("expected error for decode failure")
	}
	engineErr, ok := err.(*Error)
	if !ok || engineErr.Kind != KindDecodeFailure {
		t.Errorf("err = %v, want KindDecodeFailure", err)
	}
}

func TestProcessorRespectsCancellation(t *testing.T) {
	decoder := fakeDecoder{width: 800, height: 600, img: solidImage(800, 600)}
	p := NewProcessor(decoder)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Process(ctx, PhotoRef{URI: "x"}, L2, FitCenter, PhotoPriorityNormal)
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	engineErr, ok := err.(*Error)
	if !ok || engineErr.Kind != KindCancelled {
		t.Errorf("err = %v, want KindCancelled", err)
	}
}

func TestSubsampleFactorCapsLongestEdge(t *testing.T) {
	sample := subsampleFactor(8000, 6000, 256)
	longest := 8000 / sample
	if longest > 2*256 {
		t.Errorf("subsampled longest edge %d exceeds cap %d", longest, 2*256)
	}
}
