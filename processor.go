package atlasengine

import (
	"context"
	"image"

	"golang.org/x/image/draw"
)

// ScaleStrategy picks how a photo's scaled dimensions relate to the target
// LOD's edge length.
type ScaleStrategy uint8

const (
	FitCenter ScaleStrategy = iota
	CenterCrop
)

// ProcessedPhoto is the output of the photo processor pipeline, owned
// exclusively by whichever pipeline stage currently holds it.
type ProcessedPhoto struct {
	Ref          PhotoRef
	OriginalSize Size2D
	ScaledSize   Size2D
	AspectRatio  float64
	Pixels       *image.RGBA
	EffectiveLOD LODLevel
	Priority     PhotoPriority
}

// Processor decodes and downsamples photos to a target LOD.
type Processor struct {
	decoder ImageDecoder
}

// NewProcessor builds a Processor around decoder.
func NewProcessor(decoder ImageDecoder) *Processor {
	return &Processor{decoder: decoder}
}

// Process runs the full pipeline for one photo: bounds query, subsampled
// decode, strategy-driven scale, and ProcessedPhoto emission. A decode or
// allocation failure returns a *Error wrapping KindDecodeFailure — never
// fatal to the overall atlas build.
func (p *Processor) Process(ctx context.Context, ref PhotoRef, lod LODLevel, strategy ScaleStrategy, priority PhotoPriority) (*ProcessedPhoto, error) {
	if err := ctx.Err(); err != nil {
		return nil, newPhotoError(KindCancelled, ref, err)
	}

	w, h, err := p.decoder.DecodeBounds(ctx, ref)
	if err != nil {
		return nil, newPhotoError(KindDecodeFailure, ref, err)
	}
	if w <= 0 || h <= 0 {
		return nil, newPhotoError(KindDecodeFailure, ref, errZeroBounds)
	}

	target := lod.Res()
	sample := subsampleFactor(w, h, target)

	if err := ctx.Err(); err != nil {
		return nil, newPhotoError(KindCancelled, ref, err)
	}

	decoded, err := p.decoder.Decode(ctx, ref, sample)
	if err != nil {
		return nil, newPhotoError(KindDecodeFailure, ref, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, newPhotoError(KindCancelled, ref, err)
	}

	scaled, scaledSize := scaleImage(decoded, target, strategy)

	aspect := float64(w) / float64(h)
	return &ProcessedPhoto{
		Ref:          ref,
		OriginalSize: Size2D{Width: w, Height: h},
		ScaledSize:   scaledSize,
		AspectRatio:  aspect,
		Pixels:       scaled,
		EffectiveLOD: lod,
		Priority:     priority,
	}, nil
}

var errZeroBounds = &boundsError{}

type boundsError struct{}

func (*boundsError) Error() string { return "photo reports zero-area bounds" }

// subsampleFactor implements  step 2: increase the subsample
// factor while floor(orig/sample) still exceeds target on both axes, and
// the resulting longest edge stays <= min(2048, 2*res(L)).
func subsampleFactor(origW, origH, targetRes int) int {
	cap := 2048
	if twice := 2 * targetRes; twice < cap {
		cap = twice
	}

	sample := 1
	for {
		w := origW / sample
		h := origH / sample
		longest := w
		if h > longest {
			longest = h
		}
		if longest <= cap && (w <= targetRes || h <= targetRes) {
			return sample
		}
		nextW := origW / (sample * 2)
		nextH := origH / (sample * 2)
		if nextW < targetRes && nextH < targetRes {
			return sample
		}
		sample *= 2
		if sample > 64 {
			return sample // safety backstop against pathological dimensions
		}
	}
}

// scaleImage applies strategy, scaling src so its governing dimension
// equals res, using golang.org/x/image/draw's bilinear resampler.
func scaleImage(src image.Image, res int, strategy ScaleStrategy) (*image.RGBA, Size2D) {
	bounds := src.Bounds()
	sw, sh := bounds.Dx(), bounds.Dy()
	if sw == 0 || sh == 0 {
		dst := image.NewRGBA(image.Rect(0, 0, 1, 1))
		return dst, Size2D{Width: 1, Height: 1}
	}

	switch strategy {
	case CenterCrop:
		return scaleCenterCrop(src, sw, sh, res)
	default:
		return scaleFitCenter(src, sw, sh, res)
	}
}

// scaleFitCenter scales so max(w,h) == res, preserving aspect ratio.
func scaleFitCenter(src image.Image, sw, sh, res int) (*image.RGBA, Size2D) {
	var dw, dh int
	if sw >= sh {
		dw = res
		dh = int(float64(res) * float64(sh) / float64(sw))
	} else {
		dh = res
		dw = int(float64(res) * float64(sw) / float64(sh))
	}
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst, Size2D{Width: dw, Height: dh}
}

// scaleCenterCrop scales to res×res, cropping the longer source axis about
// its center so the shorter axis fills the target exactly.
func scaleCenterCrop(src image.Image, sw, sh, res int) (*image.RGBA, Size2D) {
	// Scale so the shorter source axis maps exactly to res, then crop the
	// overflow off the longer axis.
	var scale float64
	if sw < sh {
		scale = float64(res) / float64(sw)
	} else {
		scale = float64(res) / float64(sh)
	}
	scaledW := int(float64(sw) * scale)
	scaledH := int(float64(sh) * scale)
	if scaledW < res {
		scaledW = res
	}
	if scaledH < res {
		scaledH = res
	}

	intermediate := image.NewRGBA(image.Rect(0, 0, scaledW, scaledH))
	draw.BiLinear.Scale(intermediate, intermediate.Bounds(), src, src.Bounds(), draw.Over, nil)

	offX := (scaledW - res) / 2
	offY := (scaledH - res) / 2
	dst := image.NewRGBA(image.Rect(0, 0, res, res))
	draw.Draw(dst, dst.Bounds(), intermediate, image.Pt(offX, offY), draw.Src)

	return dst, Size2D{Width: res, Height: res}
}
