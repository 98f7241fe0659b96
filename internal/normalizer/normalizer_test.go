package normalizer

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math/rand"
	"strings"
	"testing"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("failed to encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 255 / w), G: uint8(y * 255 / h), B: 128, A: 255})
		}
	}
	return img
}

func assertTensor(t *testing.T, tensor *Tensor) {
	t.Helper()
	if tensor.Shape != [4]int64{1, 32, 32, 1} {
		t.Fatalf("unexpected shape %v", tensor.Shape)
	}
	if len(tensor.Data) != 32*32 || tensor.Size() != len(tensor.Data) {
		t.Fatalf("unexpected data length %d", len(tensor.Data))
	}
	for i, v := range tensor.Data {
		if v < 0 || v > 1 {
			t.Fatalf("value %f at %d outside [0,1]", v, i)
		}
	}
}

func TestNormalizeShapeAndRange(t *testing.T) {
	netpbm := append([]byte("P5\n3 2\n255\n"), 0, 64, 128, 192, 255, 10)

	inputs := map[string][]byte{
		"png large rgba":  encodePNG(t, gradient(640, 480)),
		"png tiny":        encodePNG(t, gradient(3, 7)),
		"png exact size":  encodePNG(t, gradient(32, 32)),
		"jpeg wide":       encodeJPEG(t, gradient(300, 20)),
		"png gray16":      encodePNG(t, image.NewGray16(image.Rect(0, 0, 50, 50))),
		"png paletted":    encodePNG(t, image.NewPaletted(image.Rect(0, 0, 40, 90), color.Palette{color.Black, color.White})),
		"pgm":             netpbm,
		"png transparent": encodePNG(t, image.NewNRGBA(image.Rect(0, 0, 64, 64))),
	}

	for name, data := range inputs {
		t.Run(name, func(t *testing.T) {
			tensor, err := Normalize(data)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			assertTensor(t, tensor)
		})
	}
}

func TestNormalizeDeterministic(t *testing.T) {
	data := encodeJPEG(t, gradient(123, 77))

	first, err := Normalize(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Normalize(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range first.Data {
		if first.Data[i] != second.Data[i] {
			t.Fatalf("value %d differs: %f vs %f", i, first.Data[i], second.Data[i])
		}
	}
}

func TestNormalizeRejectsNonImage(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	garbage := make([]byte, 256)
	rng.Read(garbage)

	for name, data := range map[string][]byte{"random": garbage, "text": []byte("not an image"), "empty": nil} {
		t.Run(name, func(t *testing.T) {
			_, err := Normalize(data)
			if !errors.Is(err, ErrDecode) {
				t.Fatalf("expected ErrDecode, got %v", err)
			}
			if err.Error() == "" {
				t.Fatal("expected non-empty message")
			}
		})
	}
}

// pngWithDimensions rewrites the header of a tiny PNG so it declares width x height.
func pngWithDimensions(t *testing.T, width, height uint32) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 1, 1))); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	data := buf.Bytes()
	// signature(8) length(4) "IHDR"(4) width(4) height(4) ... crc at 29.
	binary.BigEndian.PutUint32(data[16:20], width)
	binary.BigEndian.PutUint32(data[20:24], height)
	binary.BigEndian.PutUint32(data[29:33], crc32.ChecksumIEEE(data[12:29]))
	return data
}

func TestNormalizeRejectsOversizedImage(t *testing.T) {
	_, err := Normalize(pngWithDimensions(t, 10000, 10000))
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
	if !strings.Contains(err.Error(), "exceeds limit") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestNormalizeRejectsEmptyImage(t *testing.T) {
	_, err := Normalize([]byte("P5\n0 0\n255\n"))
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}

func TestCheckArea(t *testing.T) {
	cases := []struct {
		width, height int
		ok            bool
	}{
		{32, 32, true},
		{9459, 9459, true},
		{0, 10, false},
		{10, 0, false},
		{9460, 9460, false},
		{1 << 20, 1 << 20, false},
	}
	for _, tc := range cases {
		err := checkArea(tc.width, tc.height)
		if (err == nil) != tc.ok {
			t.Fatalf("checkArea(%d, %d) = %v, want ok=%v", tc.width, tc.height, err, tc.ok)
		}
	}
}

func TestNormalizeBlackAndWhite(t *testing.T) {
	black := image.NewGray(image.Rect(0, 0, 10, 10))
	tensor := FromImage(black)
	for i, v := range tensor.Data {
		if v != 0 {
			t.Fatalf("expected 0 at %d, got %f", i, v)
		}
	}

	white := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for i := range white.Pix {
		white.Pix[i] = 0xff
	}
	tensor = FromImage(white)
	for i, v := range tensor.Data {
		if v < 0.99 {
			t.Fatalf("expected ~1 at %d, got %f", i, v)
		}
	}
}

func TestLuminance(t *testing.T) {
	cases := []struct {
		name string
		in   color.Color
		want uint8
	}{
		{name: "red", in: color.RGBA{R: 255, A: 255}, want: 76},
		{name: "green", in: color.RGBA{G: 255, A: 255}, want: 150},
		{name: "blue", in: color.RGBA{B: 255, A: 255}, want: 29},
		{name: "white", in: color.RGBA{R: 255, G: 255, B: 255, A: 255}, want: 255},
		{name: "gray passthrough", in: color.Gray{Y: 42}, want: 42},
		{name: "alpha ignored", in: color.NRGBA{R: 255, G: 255, B: 255, A: 0}, want: 255},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := luminance(tc.in); got != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, got)
			}
		})
	}
}

func TestFromImageHonoursBoundsOffset(t *testing.T) {
	img := image.NewGray(image.Rect(10, 10, 20, 20))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	tensor := FromImage(img)
	assertTensor(t, tensor)
	if tensor.Data[0] < 0.99 {
		t.Fatalf("expected white pixel, got %f", tensor.Data[0])
	}
}
