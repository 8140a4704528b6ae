package model

import (
	"fmt"

	"github.com/samcharles93/dcae/internal/tensor"
)

// UpsampleMode selects how an up block doubles resolution.
type UpsampleMode int

const (
	// UpsamplePixelShuffle expands channels by factor^2 with a convolution,
	// then rearranges depth to space.
	UpsamplePixelShuffle UpsampleMode = iota
	// UpsampleInterpolate resizes with nearest-neighbour sampling, then
	// convolves.
	UpsampleInterpolate
)

// ParseUpsampleMode resolves a configuration string to a mode.
func ParseUpsampleMode(s string) (UpsampleMode, error) {
	switch s {
	case "pixel_shuffle":
		return UpsamplePixelShuffle, nil
	case "interpolate":
		return UpsampleInterpolate, nil
	default:
		return 0, fmt.Errorf("upsample block type %q is not supported", s)
	}
}

// DCUpBlock2d doubles spatial resolution while changing the channel count,
// the inverse of DCDownBlock2d. Its parameter-free shortcut repeats input
// channels and pixel-shuffles them onto the convolution branch.
type DCUpBlock2d struct {
	factor      int
	interpolate bool
	shortcut    bool
	repeats     int
	conv        *tensor.Conv2D
}

func NewDCUpBlock2d(inC, outC int, mode UpsampleMode, shortcut bool) (*DCUpBlock2d, error) {
	b := &DCUpBlock2d{
		factor:      2,
		interpolate: mode == UpsampleInterpolate,
		shortcut:    shortcut,
	}
	outRatio := b.factor * b.factor

	convOut := outC
	if !b.interpolate {
		convOut = outC * outRatio
	}
	if shortcut {
		if (outC*outRatio)%inC != 0 {
			return nil, fmt.Errorf("up block: shortcut needs %d*%d divisible by %d input channels", outC, outRatio, inC)
		}
		b.repeats = outC * outRatio / inC
	}

	var err error
	if b.conv, err = tensor.NewConv2D(inC, convOut, 3, 1, 1, 1, true); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *DCUpBlock2d) Forward(hidden *tensor.Tensor) *tensor.Tensor {
	var x *tensor.Tensor
	if b.interpolate {
		x = tensor.InterpolateNearest(hidden, b.factor)
		x = b.conv.Apply(x)
	} else {
		x = b.conv.Apply(hidden)
		x = tensor.PixelShuffle(x, b.factor)
	}
	if b.shortcut {
		y := tensor.RepeatInterleaveChannels(hidden, b.repeats)
		y = tensor.PixelShuffle(y, b.factor)
		tensor.Add(x, y)
	}
	return x
}

func (b *DCUpBlock2d) appendParams(dst [][]float32) [][]float32 {
	return append(dst, b.conv.Parameters()...)
}

func (b *DCUpBlock2d) appendConvs(dst []*tensor.Conv2D) []*tensor.Conv2D {
	return append(dst, b.conv)
}
