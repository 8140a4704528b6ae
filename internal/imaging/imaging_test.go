package imaging

import (
	"image"
	"image/color"
	"math"
	"path/filepath"
	"testing"

	"github.com/samcharles93/dcae/internal/tensor"
)

func TestToTensorRange(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.NRGBA{0, 0, 0, 255})
	img.Set(1, 0, color.NRGBA{255, 255, 255, 255})

	out := ToTensor(img)
	if out.N != 1 || out.C != 3 || out.H != 1 || out.W != 2 {
		t.Fatalf("shape (%d,%d,%d,%d), want (1,3,1,2)", out.N, out.C, out.H, out.W)
	}
	for c := 0; c < 3; c++ {
		p := out.Plane(0, c)
		if math.Abs(float64(p[0])+1) > 1e-3 {
			t.Fatalf("black pixel channel %d = %v, want -1", c, p[0])
		}
		if math.Abs(float64(p[1])-1) > 1e-3 {
			t.Fatalf("white pixel channel %d = %v, want 1", c, p[1])
		}
	}
}

func TestTensorImageRoundTrip(t *testing.T) {
	src := tensor.New(1, 3, 4, 4)
	tensor.FillRand(src.Data, 8)
	for i := range src.Data {
		src.Data[i] *= 50 // spread over a good part of [-1, 1]
	}

	img, err := ToImage(src)
	if err != nil {
		t.Fatal(err)
	}
	back := ToTensor(img)
	for i := range src.Data {
		// One 8-bit quantization step in [-1, 1] is 2/255.
		if math.Abs(float64(back.Data[i])-float64(src.Data[i])) > 2.0/255.0 {
			t.Fatalf("element %d: got %v, want %v", i, back.Data[i], src.Data[i])
		}
	}
}

func TestToImageClamps(t *testing.T) {
	src := tensor.New(1, 3, 1, 1)
	src.Fill(5)
	img, err := ToImage(src)
	if err != nil {
		t.Fatal(err)
	}
	if img.Pix[0] != 255 {
		t.Fatalf("over-range value should clamp to 255, got %d", img.Pix[0])
	}
}

func TestToImageRejectsWrongChannels(t *testing.T) {
	if _, err := ToImage(tensor.New(1, 4, 2, 2)); err == nil {
		t.Fatal("expected error for non-3-channel tensor")
	}
}

func TestResizeToMultiple(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 37, 65))
	out := ResizeToMultiple(img, 32)
	b := out.Bounds()
	if b.Dx() != 32 || b.Dy() != 64 {
		t.Fatalf("got %dx%d, want 32x64", b.Dx(), b.Dy())
	}

	aligned := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	if ResizeToMultiple(aligned, 32) != image.Image(aligned) {
		t.Fatal("aligned image should pass through unchanged")
	}

	tiny := image.NewNRGBA(image.Rect(0, 0, 5, 5))
	b = ResizeToMultiple(tiny, 32).Bounds()
	if b.Dx() != 32 || b.Dy() != 32 {
		t.Fatalf("small images scale up to one multiple, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestSaveLoadPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "img.png")
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = uint8(i * 7)
	}
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Pix[img.PixOffset(x, y)+3] = 0xff
		}
	}
	if err := Save(path, img); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Bounds() != img.Bounds() {
		t.Fatalf("bounds %v, want %v", got.Bounds(), img.Bounds())
	}
}

func TestSaveUnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "img.webp")
	if err := Save(path, image.NewNRGBA(image.Rect(0, 0, 1, 1))); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}
