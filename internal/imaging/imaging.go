// Package imaging validates, normalizes and recompresses uploaded images.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"

	_ "image/gif" // register GIF decoding

	_ "github.com/gen2brain/heic"  // register HEIC/HEIF decoding (pure Go, wazero)
	_ "golang.org/x/image/webp"    // register WebP decoding
	xdraw "golang.org/x/image/draw"
)

// Classified pipeline failures. Callers match with errors.Is.
var (
	ErrEmptyPayload      = errors.New("empty image payload")
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrCorruptImage      = errors.New("corrupt image data")
	ErrTranscodeFailed   = errors.New("transcoding failed")
	ErrBudgetExceeded    = errors.New("image exceeds size budget after compression")
	ErrStorageWrite      = errors.New("storing image failed")
)

// Policy holds the tunable pipeline constants. The quality/shrink values are
// deployment policy, not structure, so they come from configuration.
type Policy struct {
	MaxStoredBytes   int64   // byte budget for stored artifacts
	QualityStart     int     // initial JPEG quality in the compression loop
	QualityStep      int     // quality decrease per round
	QualityFloor     int     // lowest quality before shrinking dimensions
	MaxPasses        int     // encode attempts before giving up
	ShrinkFactor     float64 // per-shrink dimension multiplier
	MinDimension     int     // smallest allowed width/height when shrinking
	TranscodeQuality int     // JPEG quality for HEIC/HEIF normalization
}

// DefaultPolicy returns the stock pipeline constants.
func DefaultPolicy() Policy {
	return Policy{
		MaxStoredBytes:   5 << 20,
		QualityStart:     85,
		QualityStep:      10,
		QualityFloor:     60,
		MaxPasses:        8,
		ShrinkFactor:     0.85,
		MinDimension:     320,
		TranscodeQuality: 90,
	}
}

// BlobStore persists processed image bytes under a generated unique name.
// *artifact.Store satisfies it.
type BlobStore interface {
	Save(ext string, data []byte) (string, error)
}

// Pipeline turns raw upload bytes into a stored artifact.
type Pipeline struct {
	Policy Policy
	Store  BlobStore
}

// New returns a pipeline writing to store under the given policy.
func New(store BlobStore, policy Policy) *Pipeline {
	return &Pipeline{Policy: policy, Store: store}
}

// extensions maps decoded format names to artifact file extensions.
var extensions = map[string]string{
	"jpeg": ".jpg",
	"png":  ".png",
	"gif":  ".gif",
	"webp": ".webp",
}

// Ingest validates data as a supported image, normalizes HEIC/HEIF to JPEG,
// recompresses payloads over the byte budget, and stores the result. It
// returns the stored artifact name. On any failure nothing is left behind.
// Only the sniffed format counts; declared content types are never trusted.
func (p *Pipeline) Ingest(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyPayload
	}

	// Header sniff for format detection.
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}

	// Full decode verifies structural integrity (catches truncation).
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorruptImage, err)
	}

	// Normalize HEIC/HEIF to JPEG so browsers can render the artifact.
	if format == "heic" || format == "heif" {
		data, err = encodeJPEG(img, p.Policy.TranscodeQuality)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrTranscodeFailed, err)
		}
		format = "jpeg"
	}

	ext, ok := extensions[format]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	// Recompress payloads over the budget; within budget passes through as-is.
	if int64(len(data)) > p.Policy.MaxStoredBytes {
		data, err = p.compress(img)
		if err != nil {
			return "", err
		}
		ext = extensions["jpeg"]
	}

	name, err := p.Store.Save(ext, data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorageWrite, err)
	}
	return name, nil
}

// compress searches for the largest JPEG rendition of img that fits the byte
// budget: quality steps down from QualityStart to QualityFloor, then both
// dimensions shrink by ShrinkFactor (floored at MinDimension) and quality
// resets. MaxPasses encode attempts bound the search.
func (p *Pipeline) compress(img image.Image) ([]byte, error) {
	rgb := flatten(img)
	quality := p.Policy.QualityStart

	for range p.Policy.MaxPasses {
		data, err := encodeJPEG(rgb, quality)
		if err != nil {
			return nil, fmt.Errorf("%w: encoding at quality %d: %v", ErrBudgetExceeded, quality, err)
		}
		if int64(len(data)) <= p.Policy.MaxStoredBytes {
			return data, nil
		}

		if quality > p.Policy.QualityFloor {
			quality -= p.Policy.QualityStep
			if quality < p.Policy.QualityFloor {
				quality = p.Policy.QualityFloor
			}
			continue
		}

		b := rgb.Bounds()
		w := scaledDim(b.Dx(), p.Policy.ShrinkFactor, p.Policy.MinDimension)
		h := scaledDim(b.Dy(), p.Policy.ShrinkFactor, p.Policy.MinDimension)
		if w == b.Dx() && h == b.Dy() {
			// Already at minimum size; no point encoding the same pixels again.
			break
		}
		rgb = resize(rgb, w, h)
		quality = p.Policy.QualityStart
	}

	return nil, ErrBudgetExceeded
}

// scaledDim shrinks a dimension by factor, never going below min.
func scaledDim(d int, factor float64, min int) int {
	scaled := int(float64(d) * factor)
	if scaled < min {
		return min
	}
	return scaled
}

// flatten draws img onto an opaque white background, dropping any alpha
// channel so JPEG encoding is well-defined.
func flatten(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	return dst
}

// resize scales img to w x h using high-quality Catmull-Rom interpolation.
func resize(img *image.RGBA, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Over, nil)
	return dst
}

// encodeJPEG renders img as a baseline JPEG at the given quality. The image
// is flattened first so transparent inputs encode cleanly.
func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	flat := image.Image(img)
	if _, ok := img.(*image.RGBA); !ok {
		flat = flatten(img)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, flat, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func init() {
	// Register decoders (jpeg is registered by default, but be explicit).
	image.RegisterFormat("jpeg", "\xff\xd8", jpeg.Decode, jpeg.DecodeConfig)
	image.RegisterFormat("png", "\x89PNG", png.Decode, png.DecodeConfig)
}
