package tensor

import "fmt"

// Conv2D is a 2D convolution over NCHW feature maps with optional grouping.
// Weight is laid out as [OutC, InC/Groups, Kernel, Kernel] flattened row-major.
// Bias is nil when the layer has no bias term.
type Conv2D struct {
	InC, OutC int
	Kernel    int
	Stride    int
	Pad       int
	Groups    int

	Weight []float32
	Bias   []float32
}

// NewConv2D constructs a zero-initialised convolution. Channel counts must be
// divisible by the group count; violations are construction-time errors.
func NewConv2D(inC, outC, kernel, stride, pad, groups int, bias bool) (*Conv2D, error) {
	if inC <= 0 || outC <= 0 || kernel <= 0 || stride <= 0 || groups <= 0 || pad < 0 {
		return nil, fmt.Errorf("conv2d: invalid dimensions in=%d out=%d k=%d stride=%d pad=%d groups=%d",
			inC, outC, kernel, stride, pad, groups)
	}
	if inC%groups != 0 {
		return nil, fmt.Errorf("conv2d: input channels %d not divisible by groups %d", inC, groups)
	}
	if outC%groups != 0 {
		return nil, fmt.Errorf("conv2d: output channels %d not divisible by groups %d", outC, groups)
	}
	c := &Conv2D{
		InC:    inC,
		OutC:   outC,
		Kernel: kernel,
		Stride: stride,
		Pad:    pad,
		Groups: groups,
		Weight: make([]float32, outC*(inC/groups)*kernel*kernel),
	}
	if bias {
		c.Bias = make([]float32, outC)
	}
	return c, nil
}

// OutSize returns the spatial output size for an input of size (h, w).
func (c *Conv2D) OutSize(h, w int) (int, int) {
	return (h+2*c.Pad-c.Kernel)/c.Stride + 1, (w+2*c.Pad-c.Kernel)/c.Stride + 1
}

// Apply convolves x and returns a new tensor. The input channel count must
// match the layer; a mismatch is a programmer error and panics.
func (c *Conv2D) Apply(x *Tensor) *Tensor {
	if x.C != c.InC {
		panic(fmt.Sprintf("conv2d: input has %d channels, want %d", x.C, c.InC))
	}
	outH, outW := c.OutSize(x.H, x.W)
	out := New(x.N, c.OutC, outH, outW)

	icg := c.InC / c.Groups
	ocg := c.OutC / c.Groups
	kk := c.Kernel * c.Kernel

	for n := 0; n < x.N; n++ {
		for oc := 0; oc < c.OutC; oc++ {
			g := oc / ocg
			dst := out.Plane(n, oc)
			wBase := oc * icg * kk
			var bias float32
			if c.Bias != nil {
				bias = c.Bias[oc]
			}
			for oy := 0; oy < outH; oy++ {
				iy0 := oy*c.Stride - c.Pad
				for ox := 0; ox < outW; ox++ {
					ix0 := ox*c.Stride - c.Pad
					sum := bias
					for ic := 0; ic < icg; ic++ {
						src := x.Plane(n, g*icg+ic)
						w := c.Weight[wBase+ic*kk:]
						for ky := 0; ky < c.Kernel; ky++ {
							iy := iy0 + ky
							if iy < 0 || iy >= x.H {
								continue
							}
							row := src[iy*x.W:]
							wrow := w[ky*c.Kernel:]
							for kx := 0; kx < c.Kernel; kx++ {
								ix := ix0 + kx
								if ix < 0 || ix >= x.W {
									continue
								}
								sum += row[ix] * wrow[kx]
							}
						}
					}
					dst[oy*outW+ox] = sum
				}
			}
		}
	}
	return out
}

// Parameters returns the learnable slices of the layer (weight, then bias if
// present) for initialisation and counting.
func (c *Conv2D) Parameters() [][]float32 {
	if c.Bias != nil {
		return [][]float32{c.Weight, c.Bias}
	}
	return [][]float32{c.Weight}
}
