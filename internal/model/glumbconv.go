package model

import "github.com/samcharles93/dcae/internal/tensor"

// GLUMBConv is the gated inverted-bottleneck convolution that accompanies the
// attention block: a x8 pointwise expansion (x4 hidden, doubled for the
// gate), SiLU, a depthwise 3x3, a value*SiLU(gate) product, a pointwise
// projection back, RMS normalization over channels, and an unconditional
// residual.
type GLUMBConv struct {
	convInverted *tensor.Conv2D
	convDepth    *tensor.Conv2D
	convPoint    *tensor.Conv2D
	norm         *RMSNorm
}

func NewGLUMBConv(inC, outC int) (*GLUMBConv, error) {
	hidden := 4 * inC
	g := &GLUMBConv{}
	var err error
	if g.convInverted, err = tensor.NewConv2D(inC, hidden*2, 1, 1, 0, 1, true); err != nil {
		return nil, err
	}
	if g.convDepth, err = tensor.NewConv2D(hidden*2, hidden*2, 3, 1, 1, hidden*2, true); err != nil {
		return nil, err
	}
	if g.convPoint, err = tensor.NewConv2D(hidden, outC, 1, 1, 0, 1, false); err != nil {
		return nil, err
	}
	g.norm = NewRMSNorm(outC, 1e-5, true, true)
	return g, nil
}

func (g *GLUMBConv) Forward(x *tensor.Tensor) *tensor.Tensor {
	h := g.convInverted.Apply(x)
	tensor.Map(h, tensor.Silu)

	h = g.convDepth.Apply(h)
	parts := tensor.ChunkChannels(h, 2)
	value, gate := parts[0], parts[1]
	tensor.Map(gate, tensor.Silu)
	tensor.Mul(value, gate)

	out := g.convPoint.Apply(value)
	out = g.norm.Apply(out)
	tensor.Add(out, x)
	return out
}

func (g *GLUMBConv) appendParams(dst [][]float32) [][]float32 {
	dst = append(dst, g.convInverted.Parameters()...)
	dst = append(dst, g.convDepth.Parameters()...)
	dst = append(dst, g.convPoint.Parameters()...)
	return append(dst, g.norm.Parameters()...)
}

func (g *GLUMBConv) appendConvs(dst []*tensor.Conv2D) []*tensor.Conv2D {
	return append(dst, g.convInverted, g.convDepth, g.convPoint)
}
