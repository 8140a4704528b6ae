package model

import (
	"fmt"
	"math"

	"github.com/samcharles93/dcae/internal/tensor"
)

// Norm normalizes a feature map over its channel axis. For RMS- and
// layer-style norms the channel values at each spatial position form the
// normalized vector; batch norm uses its per-channel statistics.
type Norm interface {
	Apply(x *tensor.Tensor) *tensor.Tensor
	Parameters() [][]float32
}

// NewNorm resolves a normalization operator by name with the stack's default
// epsilon and learnable affine parameters. Unknown names are construction-time
// errors.
func NewNorm(kind string, features int) (Norm, error) {
	switch kind {
	case "rms_norm":
		return NewRMSNorm(features, 1e-5, true, true), nil
	case "layer_norm":
		return NewLayerNorm(features, 1e-5), nil
	case "batch_norm":
		return NewBatchNorm2d(features, 1e-5), nil
	default:
		return nil, fmt.Errorf("norm type %q is not supported", kind)
	}
}

// RMSNorm normalizes a vector by the root mean square of its elements. The
// mean of squares is accumulated in float64 (the elevated-precision path)
// before scaling, then the optional learned scale and bias are applied in
// working precision.
type RMSNorm struct {
	Dim    int
	Eps    float64
	Weight []float32 // nil when elementwise affine is disabled
	Bias   []float32 // nil when no bias is configured
}

// NewRMSNorm builds an RMSNorm over vectors of length dim. The scale is
// initialised to one and the bias to zero.
func NewRMSNorm(dim int, eps float64, affine, bias bool) *RMSNorm {
	n := &RMSNorm{Dim: dim, Eps: eps}
	if affine {
		n.Weight = make([]float32, dim)
		for i := range n.Weight {
			n.Weight[i] = 1
		}
		if bias {
			n.Bias = make([]float32, dim)
		}
	}
	return n
}

// Forward normalizes a single vector in place. The vector length must equal
// Dim.
func (n *RMSNorm) Forward(vec []float32) {
	if len(vec) != n.Dim {
		panic(fmt.Sprintf("rmsnorm: vector length %d, want %d", len(vec), n.Dim))
	}
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	scale := 1.0 / math.Sqrt(sum/float64(n.Dim)+n.Eps)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) * scale)
	}
	if n.Weight != nil {
		for i := range vec {
			vec[i] *= n.Weight[i]
		}
		if n.Bias != nil {
			for i := range vec {
				vec[i] += n.Bias[i]
			}
		}
	}
}

// Apply normalizes every spatial position of x over the channel axis and
// returns a new tensor.
func (n *RMSNorm) Apply(x *tensor.Tensor) *tensor.Tensor {
	if x.C != n.Dim {
		panic(fmt.Sprintf("rmsnorm: %d channels, want %d", x.C, n.Dim))
	}
	out := tensor.New(x.N, x.C, x.H, x.W)
	plane := x.H * x.W
	for b := 0; b < x.N; b++ {
		base := b * x.C * plane
		for p := 0; p < plane; p++ {
			var sum float64
			for c := 0; c < x.C; c++ {
				v := float64(x.Data[base+c*plane+p])
				sum += v * v
			}
			scale := 1.0 / math.Sqrt(sum/float64(x.C)+n.Eps)
			for c := 0; c < x.C; c++ {
				v := float32(float64(x.Data[base+c*plane+p]) * scale)
				if n.Weight != nil {
					v *= n.Weight[c]
					if n.Bias != nil {
						v += n.Bias[c]
					}
				}
				out.Data[base+c*plane+p] = v
			}
		}
	}
	return out
}

func (n *RMSNorm) Parameters() [][]float32 {
	var out [][]float32
	if n.Weight != nil {
		out = append(out, n.Weight)
	}
	if n.Bias != nil {
		out = append(out, n.Bias)
	}
	return out
}

// LayerNorm normalizes over the channel axis by mean and variance, with
// learned per-channel scale and bias.
type LayerNorm struct {
	Dim    int
	Eps    float64
	Weight []float32
	Bias   []float32
}

func NewLayerNorm(dim int, eps float64) *LayerNorm {
	n := &LayerNorm{
		Dim:    dim,
		Eps:    eps,
		Weight: make([]float32, dim),
		Bias:   make([]float32, dim),
	}
	for i := range n.Weight {
		n.Weight[i] = 1
	}
	return n
}

func (n *LayerNorm) Apply(x *tensor.Tensor) *tensor.Tensor {
	if x.C != n.Dim {
		panic(fmt.Sprintf("layernorm: %d channels, want %d", x.C, n.Dim))
	}
	out := tensor.New(x.N, x.C, x.H, x.W)
	plane := x.H * x.W
	for b := 0; b < x.N; b++ {
		base := b * x.C * plane
		for p := 0; p < plane; p++ {
			var sum float64
			for c := 0; c < x.C; c++ {
				sum += float64(x.Data[base+c*plane+p])
			}
			mean := sum / float64(x.C)
			var varsum float64
			for c := 0; c < x.C; c++ {
				d := float64(x.Data[base+c*plane+p]) - mean
				varsum += d * d
			}
			scale := 1.0 / math.Sqrt(varsum/float64(x.C)+n.Eps)
			for c := 0; c < x.C; c++ {
				v := float32((float64(x.Data[base+c*plane+p]) - mean) * scale)
				out.Data[base+c*plane+p] = v*n.Weight[c] + n.Bias[c]
			}
		}
	}
	return out
}

func (n *LayerNorm) Parameters() [][]float32 {
	return [][]float32{n.Weight, n.Bias}
}

// BatchNorm2d normalizes each channel by fixed running statistics, as used at
// inference time. Statistics default to zero mean and unit variance.
type BatchNorm2d struct {
	Dim    int
	Eps    float64
	Weight []float32
	Bias   []float32
	Mean   []float32
	Var    []float32
}

func NewBatchNorm2d(dim int, eps float64) *BatchNorm2d {
	n := &BatchNorm2d{
		Dim:    dim,
		Eps:    eps,
		Weight: make([]float32, dim),
		Bias:   make([]float32, dim),
		Mean:   make([]float32, dim),
		Var:    make([]float32, dim),
	}
	for i := range n.Weight {
		n.Weight[i] = 1
		n.Var[i] = 1
	}
	return n
}

func (n *BatchNorm2d) Apply(x *tensor.Tensor) *tensor.Tensor {
	if x.C != n.Dim {
		panic(fmt.Sprintf("batchnorm: %d channels, want %d", x.C, n.Dim))
	}
	out := tensor.New(x.N, x.C, x.H, x.W)
	for b := 0; b < x.N; b++ {
		for c := 0; c < x.C; c++ {
			scale := n.Weight[c] / float32(math.Sqrt(float64(n.Var[c])+n.Eps))
			shift := n.Bias[c] - n.Mean[c]*scale
			src := x.Plane(b, c)
			dst := out.Plane(b, c)
			for i := range src {
				dst[i] = src[i]*scale + shift
			}
		}
	}
	return out
}

func (n *BatchNorm2d) Parameters() [][]float32 {
	return [][]float32{n.Weight, n.Bias}
}
