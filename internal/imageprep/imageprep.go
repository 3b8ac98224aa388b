// Package imageprep shrinks captured images to the size the face provider works on.
package imageprep

import (
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	DefaultMaxWidth  = 640
	DefaultMaxHeight = 640
	jpegQuality      = 85
)

// Prepared is the image handed to the face provider. Path is either the
// original file or a temporary downscaled copy owned by Prepared.
type Prepared struct {
	Path           string
	Resized        bool
	OriginalWidth  int
	OriginalHeight int
	Width          int
	Height         int
}

// Cleanup removes the temporary copy, if one was written. Safe to call more than once.
func (p *Prepared) Cleanup() error {
	if p == nil || !p.Resized {
		return nil
	}
	err := os.Remove(p.Path)
	p.Resized = false
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove temporary image: %w", err)
	}
	return nil
}

// FitSize returns the largest dimensions not exceeding maxWidth x maxHeight that
// keep the aspect ratio of width x height. Images already inside the box are
// returned unchanged; they are never upscaled.
func FitSize(width, height, maxWidth, maxHeight int) (int, int) {
	if width <= maxWidth && height <= maxHeight {
		return width, height
	}
	scale := min(float64(maxWidth)/float64(width), float64(maxHeight)/float64(height))
	newWidth := max(int(float64(width)*scale), 1)
	newHeight := max(int(float64(height)*scale), 1)
	return newWidth, newHeight
}

// Normalize downsizes the image at path to fit the box, writing a temporary
// JPEG. When the image cannot be read, decoded, or written the original path is
// returned unchanged together with the reason, which callers only log.
func Normalize(path string, maxWidth, maxHeight int) (*Prepared, error) {
	original := &Prepared{Path: path}

	f, err := os.Open(path)
	if err != nil {
		return original, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return original, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	original.OriginalWidth, original.OriginalHeight = bounds.Dx(), bounds.Dy()
	original.Width, original.Height = bounds.Dx(), bounds.Dy()

	newWidth, newHeight := FitSize(bounds.Dx(), bounds.Dy(), maxWidth, maxHeight)
	if newWidth == bounds.Dx() && newHeight == bounds.Dy() {
		return original, nil
	}

	resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)

	tmp, err := os.CreateTemp("", "facegate-*.jpg")
	if err != nil {
		return original, fmt.Errorf("failed to create temporary image: %w", err)
	}
	if err := jpeg.Encode(tmp, resized, &jpeg.Options{Quality: jpegQuality}); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return original, fmt.Errorf("failed to encode resized image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return original, fmt.Errorf("failed to write resized image: %w", err)
	}

	return &Prepared{
		Path:           tmp.Name(),
		Resized:        true,
		OriginalWidth:  bounds.Dx(),
		OriginalHeight: bounds.Dy(),
		Width:          newWidth,
		Height:         newHeight,
	}, nil
}
