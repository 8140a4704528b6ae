package model

import (
	"fmt"

	"github.com/samcharles93/dcae/internal/tensor"
)

// MultiscaleAttentionProjection produces one additional receptive-field scale
// of a concatenated Q/K/V tensor: a depthwise same-padded convolution followed
// by a pointwise convolution that mixes only within attention-head groups.
type MultiscaleAttentionProjection struct {
	projIn  *tensor.Conv2D
	projOut *tensor.Conv2D
}

func NewMultiscaleAttentionProjection(innerDim, heads, kernel int) (*MultiscaleAttentionProjection, error) {
	channels := 3 * innerDim
	projIn, err := tensor.NewConv2D(channels, channels, kernel, 1, kernel/2, channels, false)
	if err != nil {
		return nil, err
	}
	projOut, err := tensor.NewConv2D(channels, channels, 1, 1, 0, 3*heads, false)
	if err != nil {
		return nil, err
	}
	return &MultiscaleAttentionProjection{projIn: projIn, projOut: projOut}, nil
}

func (p *MultiscaleAttentionProjection) Forward(x *tensor.Tensor) *tensor.Tensor {
	return p.projOut.Apply(p.projIn.Apply(x))
}

// MultiscaleLinearAttention mixes value features over query/key features with
// cost controlled by resolution: inputs whose flattened spatial size exceeds
// the head dimension take a linear-cost formulation, smaller inputs take the
// exact quadratic one. Q and K pass through a ReLU; V does not.
type MultiscaleLinearAttention struct {
	eps          float64
	headDim      int
	heads        int
	residual     bool
	nonlinearity Activation

	toQ, toK, toV *tensor.Conv2D
	multiscale    []*MultiscaleAttentionProjection
	toOut         *tensor.Conv2D
	normOut       Norm
}

// NewMultiscaleLinearAttention builds the attention block. The head count is
// derived as inC / headDim; kernelSizes configures one extra scale per entry.
func NewMultiscaleLinearAttention(inC, outC, headDim int, normType string, kernelSizes []int, residual bool) (*MultiscaleLinearAttention, error) {
	heads := inC / headDim
	if heads < 1 {
		return nil, fmt.Errorf("attention: head dim %d exceeds %d input channels", headDim, inC)
	}
	innerDim := heads * headDim

	a := &MultiscaleLinearAttention{
		eps:          1e-15,
		headDim:      headDim,
		heads:        heads,
		residual:     residual,
		nonlinearity: tensor.Relu,
	}

	var err error
	if a.toQ, err = tensor.NewConv2D(inC, innerDim, 1, 1, 0, 1, false); err != nil {
		return nil, err
	}
	if a.toK, err = tensor.NewConv2D(inC, innerDim, 1, 1, 0, 1, false); err != nil {
		return nil, err
	}
	if a.toV, err = tensor.NewConv2D(inC, innerDim, 1, 1, 0, 1, false); err != nil {
		return nil, err
	}
	for _, k := range kernelSizes {
		p, err := NewMultiscaleAttentionProjection(innerDim, heads, k)
		if err != nil {
			return nil, err
		}
		a.multiscale = append(a.multiscale, p)
	}
	if a.toOut, err = tensor.NewConv2D(innerDim*(1+len(kernelSizes)), outC, 1, 1, 0, 1, false); err != nil {
		return nil, err
	}
	if a.normOut, err = NewNorm(normType, outC); err != nil {
		return nil, err
	}
	return a, nil
}

// usesLinearAttention reports which formula an input of the given spatial
// size takes. The switch is a pure function of resolution.
func (a *MultiscaleLinearAttention) usesLinearAttention(height, width int) bool {
	return height*width > a.headDim
}

func (a *MultiscaleLinearAttention) Forward(x *tensor.Tensor) *tensor.Tensor {
	q := a.toQ.Apply(x)
	k := a.toK.Apply(x)
	v := a.toV.Apply(x)
	qkv := tensor.ConcatChannels(q, k, v)

	ms := qkv
	if len(a.multiscale) > 0 {
		scales := make([]*tensor.Tensor, 0, 1+len(a.multiscale))
		scales = append(scales, qkv)
		for _, p := range a.multiscale {
			scales = append(scales, p.Forward(qkv))
		}
		ms = tensor.ConcatChannels(scales...)
	}

	d := a.headDim
	l := x.H * x.W
	groups := ms.C / (3 * d)
	useLinear := a.usesLinearAttention(x.H, x.W)

	out := tensor.New(x.N, groups*d, x.H, x.W)
	for n := 0; n < x.N; n++ {
		for g := 0; g < groups; g++ {
			base := (n*ms.C + g*3*d) * l
			qRows := ms.Data[base : base+d*l]
			kRows := ms.Data[base+d*l : base+2*d*l]
			vRows := ms.Data[base+2*d*l : base+3*d*l]
			for i := range qRows {
				qRows[i] = a.nonlinearity(qRows[i])
			}
			for i := range kRows {
				kRows[i] = a.nonlinearity(kRows[i])
			}
			dst := out.Data[(n*out.C+g*d)*l : (n*out.C+(g+1)*d)*l]
			if useLinear {
				a.applyLinearAttention(dst, qRows, kRows, vRows, d, l)
			} else {
				a.applyQuadraticAttention(dst, qRows, kRows, vRows, d, l)
			}
		}
	}

	proj := a.toOut.Apply(out)
	normed := a.normOut.Apply(proj)
	if a.residual {
		tensor.Add(normed, x)
	}
	return normed
}

// applyLinearAttention computes V_pad·Kᵀ then ·Q, accumulating in float64,
// and renormalizes by the absorbed bias row plus epsilon. Cost is linear in
// the flattened spatial size.
func (a *MultiscaleLinearAttention) applyLinearAttention(dst, q, k, v []float32, d, l int) {
	// scores is (d+1) x d; the last row comes from the appended row of ones
	// on V, so it reduces to plain column sums of K.
	scores := make([]float64, (d+1)*d)
	for i := 0; i < d; i++ {
		vi := v[i*l : (i+1)*l]
		for j := 0; j < d; j++ {
			kj := k[j*l : (j+1)*l]
			var s float64
			for t := 0; t < l; t++ {
				s += float64(vi[t]) * float64(kj[t])
			}
			scores[i*d+j] = s
		}
	}
	for j := 0; j < d; j++ {
		kj := k[j*l : (j+1)*l]
		var s float64
		for t := 0; t < l; t++ {
			s += float64(kj[t])
		}
		scores[d*d+j] = s
	}

	biasRow := make([]float64, l)
	for j := 0; j < d; j++ {
		w := scores[d*d+j]
		qj := q[j*l : (j+1)*l]
		for t := 0; t < l; t++ {
			biasRow[t] += w * float64(qj[t])
		}
	}
	row := make([]float64, l)
	for i := 0; i < d; i++ {
		for t := range row {
			row[t] = 0
		}
		for j := 0; j < d; j++ {
			w := scores[i*d+j]
			qj := q[j*l : (j+1)*l]
			for t := 0; t < l; t++ {
				row[t] += w * float64(qj[t])
			}
		}
		di := dst[i*l : (i+1)*l]
		for t := 0; t < l; t++ {
			di[t] = float32(row[t] / (biasRow[t] + a.eps))
		}
	}
}

// applyQuadraticAttention computes Kᵀ·Q, normalizes each column by its sum
// plus epsilon, then V·scores. Only reached when the spatial size is at most
// the head dimension, so the l x l score matrix stays small.
func (a *MultiscaleLinearAttention) applyQuadraticAttention(dst, q, k, v []float32, d, l int) {
	scores := make([]float64, l*l)
	for t := 0; t < l; t++ {
		for s := 0; s < l; s++ {
			var sum float64
			for i := 0; i < d; i++ {
				sum += float64(k[i*l+t]) * float64(q[i*l+s])
			}
			scores[t*l+s] = sum
		}
	}
	for s := 0; s < l; s++ {
		var den float64
		for t := 0; t < l; t++ {
			den += scores[t*l+s]
		}
		den += a.eps
		for t := 0; t < l; t++ {
			scores[t*l+s] /= den
		}
	}
	for i := 0; i < d; i++ {
		vi := v[i*l : (i+1)*l]
		di := dst[i*l : (i+1)*l]
		for s := 0; s < l; s++ {
			var sum float64
			for t := 0; t < l; t++ {
				sum += float64(vi[t]) * scores[t*l+s]
			}
			di[s] = float32(sum)
		}
	}
}

func (a *MultiscaleLinearAttention) appendParams(dst [][]float32) [][]float32 {
	dst = append(dst, a.toQ.Parameters()...)
	dst = append(dst, a.toK.Parameters()...)
	dst = append(dst, a.toV.Parameters()...)
	for _, p := range a.multiscale {
		dst = append(dst, p.projIn.Parameters()...)
		dst = append(dst, p.projOut.Parameters()...)
	}
	dst = append(dst, a.toOut.Parameters()...)
	return append(dst, a.normOut.Parameters()...)
}

func (a *MultiscaleLinearAttention) appendConvs(dst []*tensor.Conv2D) []*tensor.Conv2D {
	dst = append(dst, a.toQ, a.toK, a.toV)
	for _, p := range a.multiscale {
		dst = append(dst, p.projIn, p.projOut)
	}
	return append(dst, a.toOut)
}
