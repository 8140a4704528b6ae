package model

import (
	"testing"

	"github.com/samcharles93/dcae/internal/tensor"
)

func TestNewBlockUnknownType(t *testing.T) {
	if _, err := newBlock("TransformerBlock", 8, 8, 4, "rms_norm", "silu", nil); err == nil {
		t.Fatal("expected error for unknown block type")
	}
}

func TestResBlockZeroConvsIdentity(t *testing.T) {
	blk, err := NewResBlock(8, 8, "rms_norm", "silu")
	if err != nil {
		t.Fatal(err)
	}
	x := tensor.New(1, 8, 4, 4)
	tensor.FillRand(x.Data, 21)
	out := blk.Forward(x)
	compareSlices(t, out.Data, x.Data, 0)
}

func TestGLUMBConvZeroConvsIdentity(t *testing.T) {
	blk, err := NewGLUMBConv(8, 8)
	if err != nil {
		t.Fatal(err)
	}
	x := tensor.New(1, 8, 4, 4)
	tensor.FillRand(x.Data, 22)
	out := blk.Forward(x)
	compareSlices(t, out.Data, x.Data, 0)
}

func TestEfficientViTBlockShape(t *testing.T) {
	blk, err := NewEfficientViTBlock(8, 4, "rms_norm", []int{5})
	if err != nil {
		t.Fatal(err)
	}
	var convs []*tensor.Conv2D
	for i, c := range blk.appendConvs(convs) {
		tensor.FillRand(c.Weight, int64(i)+100)
	}
	x := tensor.New(1, 8, 6, 6)
	tensor.FillRand(x.Data, 23)
	out := blk.Forward(x)
	if !out.SameShape(x) {
		t.Fatalf("output shape (%d,%d,%d,%d), want input shape", out.N, out.C, out.H, out.W)
	}
}

func TestDownBlockShapes(t *testing.T) {
	cases := []struct {
		name string
		mode DownsampleMode
	}{
		{"conv", DownsampleConv},
		{"pixel_unshuffle", DownsamplePixelUnshuffle},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			blk, err := NewDCDownBlock2d(4, 8, tc.mode, true)
			if err != nil {
				t.Fatal(err)
			}
			x := tensor.New(1, 4, 6, 6)
			tensor.FillRand(x.Data, 31)
			out := blk.Forward(x)
			if out.C != 8 || out.H != 3 || out.W != 3 {
				t.Fatalf("got (%d,%d,%d,%d), want (1,8,3,3)", out.N, out.C, out.H, out.W)
			}
		})
	}
}

// With the convolution zeroed, the down shortcut alone must preserve a
// constant input: space-to-depth keeps the constant and group averaging of a
// constant is that constant.
func TestDownBlockShortcutPreservesConstant(t *testing.T) {
	blk, err := NewDCDownBlock2d(4, 8, DownsamplePixelUnshuffle, true)
	if err != nil {
		t.Fatal(err)
	}
	x := tensor.New(1, 4, 4, 4)
	x.Fill(0.75)
	out := blk.Forward(x)
	if out.C != 8 || out.H != 2 || out.W != 2 {
		t.Fatalf("got (%d,%d,%d,%d), want (1,8,2,2)", out.N, out.C, out.H, out.W)
	}
	for i, v := range out.Data {
		if v != 0.75 {
			t.Fatalf("element %d = %v, want 0.75", i, v)
		}
	}
}

func TestDownBlockDivisibilityErrors(t *testing.T) {
	if _, err := NewDCDownBlock2d(4, 6, DownsamplePixelUnshuffle, false); err == nil {
		t.Fatal("expected error: output channels not divisible by factor^2")
	}
	if _, err := NewDCDownBlock2d(5, 8, DownsamplePixelUnshuffle, true); err == nil {
		t.Fatal("expected error: shortcut group size not integral")
	}
}

func TestUpBlockShapes(t *testing.T) {
	cases := []struct {
		name string
		mode UpsampleMode
	}{
		{"pixel_shuffle", UpsamplePixelShuffle},
		{"interpolate", UpsampleInterpolate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			blk, err := NewDCUpBlock2d(8, 4, tc.mode, true)
			if err != nil {
				t.Fatal(err)
			}
			x := tensor.New(1, 8, 3, 3)
			tensor.FillRand(x.Data, 41)
			out := blk.Forward(x)
			if out.C != 4 || out.H != 6 || out.W != 6 {
				t.Fatalf("got (%d,%d,%d,%d), want (1,4,6,6)", out.N, out.C, out.H, out.W)
			}
		})
	}
}

// The up shortcut is the mirror of the down shortcut: repeating channels and
// depth-to-space on a constant input keeps the constant.
func TestUpBlockShortcutPreservesConstant(t *testing.T) {
	blk, err := NewDCUpBlock2d(8, 4, UpsamplePixelShuffle, true)
	if err != nil {
		t.Fatal(err)
	}
	x := tensor.New(1, 8, 2, 2)
	x.Fill(-0.25)
	out := blk.Forward(x)
	if out.C != 4 || out.H != 4 || out.W != 4 {
		t.Fatalf("got (%d,%d,%d,%d), want (1,4,4,4)", out.N, out.C, out.H, out.W)
	}
	for i, v := range out.Data {
		if v != -0.25 {
			t.Fatalf("element %d = %v, want -0.25", i, v)
		}
	}
}

func TestUpBlockDivisibilityError(t *testing.T) {
	if _, err := NewDCUpBlock2d(7, 4, UpsamplePixelShuffle, true); err == nil {
		t.Fatal("expected error: repeat count not integral")
	}
}

func TestParseModeErrors(t *testing.T) {
	if _, err := ParseDownsampleMode("stride"); err == nil {
		t.Fatal("expected error for unknown downsample mode")
	}
	if _, err := ParseUpsampleMode("transpose"); err == nil {
		t.Fatal("expected error for unknown upsample mode")
	}
}
