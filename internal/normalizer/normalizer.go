// Package normalizer turns uploaded images into the fixed-shape tensor the
// letter classifier consumes.
package normalizer

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/nfnt/resize"
	_ "github.com/spakin/netpbm"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	// Height and Width are the spatial dimensions expected by the model.
	Height = 32
	Width  = 32
	// Channels is the number of colour channels after grayscale conversion.
	Channels = 1
)

// MaxPixels caps the decoded image area. Larger images are rejected before
// their pixels are allocated.
const MaxPixels = 89478485

// ErrDecode is returned when the payload is not a recognized image encoding.
var ErrDecode = errors.New("cannot decode image")

// Tensor is a dense NHWC float32 tensor.
type Tensor struct {
	Shape [4]int64
	Data  []float32
}

// Size returns the number of elements described by the shape.
func (t *Tensor) Size() int {
	n := int64(1)
	for _, d := range t.Shape {
		n *= d
	}
	return int(n)
}

// Shape is the shape produced by Normalize: batch, height, width, channel.
var Shape = [4]int64{1, Height, Width, Channels}

// Normalize decodes data, converts it to grayscale, resizes it to 32x32 and
// scales intensities into [0, 1]. Aspect ratio is not preserved.
func Normalize(data []byte) (*Tensor, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if err := checkArea(cfg.Width, cfg.Height); err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if b := img.Bounds(); b.Empty() {
		return nil, fmt.Errorf("%w: image has no pixels", ErrDecode)
	}
	return FromImage(img), nil
}

func checkArea(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: image has no pixels", ErrDecode)
	}
	if int64(width)*int64(height) > MaxPixels {
		return fmt.Errorf("%w: image size (%dx%d) exceeds limit of %d pixels", ErrDecode, width, height, MaxPixels)
	}
	return nil
}

// FromImage runs the grayscale, resize and scaling steps on an already decoded image.
func FromImage(img image.Image) *Tensor {
	gray := toGray(img)
	resized := resize.Resize(Width, Height, gray, resize.Bicubic)

	data := make([]float32, Height*Width*Channels)
	bounds := resized.Bounds()
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			data[y*Width+x] = float32(grayAt(resized, bounds.Min.X+x, bounds.Min.Y+y)) / 255.0
		}
	}

	return &Tensor{Shape: Shape, Data: data}
}

func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Rect.Min == (image.Point{}) {
		return g
	}
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := (y - b.Min.Y) * gray.Stride
		for x := b.Min.X; x < b.Max.X; x++ {
			gray.Pix[row+x-b.Min.X] = luminance(img.At(x, y))
		}
	}
	return gray
}

func grayAt(img image.Image, x, y int) uint8 {
	if g, ok := img.(*image.Gray); ok {
		return g.GrayAt(x, y).Y
	}
	return luminance(img.At(x, y))
}

// luminance applies the ITU-R 601-2 transform to straight (non-premultiplied)
// 8-bit channels, ignoring alpha.
func luminance(c color.Color) uint8 {
	if g, ok := c.(color.Gray); ok {
		return g.Y
	}
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return uint8((19595*uint32(n.R) + 38470*uint32(n.G) + 7471*uint32(n.B) + 1<<15) >> 16)
}
