// Package imaging converts between image files and the model's NCHW feature
// maps. Pixels map linearly to [-1, 1], matching the range the autoencoder is
// trained on.
package imaging

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"

	"github.com/samcharles93/dcae/internal/tensor"
)

// ToTensor converts an image to a single-sample three-channel map with values
// in [-1, 1].
func ToTensor(img image.Image) *tensor.Tensor {
	b := img.Bounds()
	h, w := b.Dy(), b.Dx()
	t := tensor.New(1, 3, h, w)
	rp := t.Plane(0, 0)
	gp := t.Plane(0, 1)
	bp := t.Plane(0, 2)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			i := y*w + x
			rp[i] = float32(r)/32767.5 - 1
			gp[i] = float32(g)/32767.5 - 1
			bp[i] = float32(bl)/32767.5 - 1
		}
	}
	return t
}

// ToImage converts a single-sample three-channel map in [-1, 1] back to an
// image, clamping out-of-range values.
func ToImage(t *tensor.Tensor) (*image.NRGBA, error) {
	if t.N != 1 || t.C != 3 {
		return nil, fmt.Errorf("imaging: tensor is %dx%d, want a single 3-channel sample", t.N, t.C)
	}
	img := image.NewNRGBA(image.Rect(0, 0, t.W, t.H))
	rp := t.Plane(0, 0)
	gp := t.Plane(0, 1)
	bp := t.Plane(0, 2)
	for y := 0; y < t.H; y++ {
		for x := 0; x < t.W; x++ {
			i := y*t.W + x
			o := img.PixOffset(x, y)
			img.Pix[o+0] = toByte(rp[i])
			img.Pix[o+1] = toByte(gp[i])
			img.Pix[o+2] = toByte(bp[i])
			img.Pix[o+3] = 0xff
		}
	}
	return img, nil
}

func toByte(v float32) uint8 {
	s := (v + 1) * 127.5
	if s <= 0 {
		return 0
	}
	if s >= 255 {
		return 255
	}
	return uint8(s + 0.5)
}

// ResizeToMultiple scales an image so both dimensions are multiples of m,
// rounding down but never below m. Images already aligned pass through
// untouched.
func ResizeToMultiple(img image.Image, m int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	nw := max(w/m, 1) * m
	nh := max(h/m, 1) * m
	if nw == w && nh == h {
		return img
	}
	dst := image.NewNRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// Load decodes a PNG or JPEG file.
func Load(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

// Save encodes img to path; the format follows the file extension.
func Save(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		err = png.Encode(f, img)
	case ".jpg", ".jpeg":
		err = jpeg.Encode(f, img, &jpeg.Options{Quality: 95})
	default:
		err = fmt.Errorf("unsupported image format: %s", filepath.Ext(path))
	}
	if err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
