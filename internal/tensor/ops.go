package tensor

import "math"

// Add adds src to dst element-wise. The shapes must match.
func Add(dst, src *Tensor) {
	if !dst.SameShape(src) {
		panic("add: shape mismatch")
	}
	for i := range dst.Data {
		dst.Data[i] += src.Data[i]
	}
}

// Scale multiplies every element of t by s in place.
func Scale(t *Tensor, s float32) {
	for i := range t.Data {
		t.Data[i] *= s
	}
}

// Mul multiplies dst by src element-wise. The shapes must match.
func Mul(dst, src *Tensor) {
	if !dst.SameShape(src) {
		panic("mul: shape mismatch")
	}
	for i := range dst.Data {
		dst.Data[i] *= src.Data[i]
	}
}

// Sigmoid computes the logistic sigmoid activation.
func Sigmoid(x float32) float32 {
	return float32(1.0 / (1.0 + math.Exp(float64(-x))))
}

// Silu computes the Sigmoid Linear Unit (SiLU) activation.
func Silu(x float32) float32 {
	return x * Sigmoid(x)
}

// Relu computes the rectified linear unit activation.
func Relu(x float32) float32 {
	if x < 0 {
		return 0
	}
	return x
}

// Relu6 computes ReLU clipped to at most 6.
func Relu6(x float32) float32 {
	if x < 0 {
		return 0
	}
	if x > 6 {
		return 6
	}
	return x
}

// Gelu computes the Gaussian Error Linear Unit via the exact erf formulation.
func Gelu(x float32) float32 {
	return float32(0.5 * float64(x) * (1.0 + math.Erf(float64(x)/math.Sqrt2)))
}

// Mish computes x * tanh(softplus(x)).
func Mish(x float32) float32 {
	sp := math.Log1p(math.Exp(float64(x)))
	return float32(float64(x) * math.Tanh(sp))
}

// Identity returns its input unchanged.
func Identity(x float32) float32 { return x }

// Map applies fn to every element of t in place and returns t.
func Map(t *Tensor, fn func(float32) float32) *Tensor {
	for i := range t.Data {
		t.Data[i] = fn(t.Data[i])
	}
	return t
}
