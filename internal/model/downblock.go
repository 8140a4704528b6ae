package model

import (
	"fmt"

	"github.com/samcharles93/dcae/internal/tensor"
)

// DownsampleMode selects how a down block halves resolution. It is resolved
// once at construction; forward passes never re-check the string.
type DownsampleMode int

const (
	// DownsampleConv uses a stride-2 convolution directly.
	DownsampleConv DownsampleMode = iota
	// DownsamplePixelUnshuffle uses a stride-1 convolution followed by a
	// factor-2 space-to-depth rearrangement.
	DownsamplePixelUnshuffle
)

// ParseDownsampleMode resolves a configuration string to a mode.
func ParseDownsampleMode(s string) (DownsampleMode, error) {
	switch s {
	case "conv":
		return DownsampleConv, nil
	case "pixel_unshuffle":
		return DownsamplePixelUnshuffle, nil
	default:
		return 0, fmt.Errorf("downsample block type %q is not supported", s)
	}
}

// DCDownBlock2d halves spatial resolution while changing the channel count,
// optionally adding a parameter-free shortcut that pixel-unshuffles the input
// and averages channel groups down to the output width.
type DCDownBlock2d struct {
	factor     int
	downsample bool
	shortcut   bool
	groupSize  int
	conv       *tensor.Conv2D
}

func NewDCDownBlock2d(inC, outC int, mode DownsampleMode, shortcut bool) (*DCDownBlock2d, error) {
	b := &DCDownBlock2d{
		factor:     2,
		downsample: mode == DownsamplePixelUnshuffle,
		shortcut:   shortcut,
	}
	outRatio := b.factor * b.factor

	convOut := outC
	stride := 2
	if b.downsample {
		if outC%outRatio != 0 {
			return nil, fmt.Errorf("down block: output channels %d not divisible by %d", outC, outRatio)
		}
		convOut = outC / outRatio
		stride = 1
	}
	if shortcut {
		if (inC*outRatio)%outC != 0 {
			return nil, fmt.Errorf("down block: shortcut needs %d*%d divisible by %d output channels", inC, outRatio, outC)
		}
		b.groupSize = inC * outRatio / outC
	}

	var err error
	if b.conv, err = tensor.NewConv2D(inC, convOut, 3, stride, 1, 1, true); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *DCDownBlock2d) Forward(hidden *tensor.Tensor) *tensor.Tensor {
	x := b.conv.Apply(hidden)
	if b.downsample {
		x = tensor.PixelUnshuffle(x, b.factor)
	}
	if b.shortcut {
		y := tensor.PixelUnshuffle(hidden, b.factor)
		y = tensor.GroupAverageChannels(y, y.C/b.groupSize)
		tensor.Add(x, y)
	}
	return x
}

func (b *DCDownBlock2d) appendParams(dst [][]float32) [][]float32 {
	return append(dst, b.conv.Parameters()...)
}

func (b *DCDownBlock2d) appendConvs(dst []*tensor.Conv2D) []*tensor.Conv2D {
	return append(dst, b.conv)
}
