package tensor

import "math/rand"

// Tensor is a dense NCHW feature map of float32 values: a batch of N samples,
// each with C channels over an H x W spatial grid. Data is flattened with W
// fastest, so a single (n, c) channel plane is a contiguous slice of H*W
// elements.
//
// Tensor does not perform any memory safety beyond the checks performed by
// Go's slice types; out-of-range indices will panic.
type Tensor struct {
	N, C, H, W int
	Data       []float32
}

// New allocates a zero-initialised tensor with the given dimensions.
func New(n, c, h, w int) *Tensor {
	if n < 0 || c < 0 || h < 0 || w < 0 {
		panic("negative dimension for tensor")
	}
	return &Tensor{
		N:    n,
		C:    c,
		H:    h,
		W:    w,
		Data: make([]float32, n*c*h*w),
	}
}

// FromData wraps existing data in a tensor. It checks that the data length
// matches the product of the dimensions.
func FromData(n, c, h, w int, data []float32) *Tensor {
	if n*c*h*w != len(data) {
		panic("data length mismatch")
	}
	return &Tensor{N: n, C: c, H: h, W: w, Data: data}
}

// NumEl returns the total number of elements.
func (t *Tensor) NumEl() int { return t.N * t.C * t.H * t.W }

// Index returns the flat offset of element (n, c, y, x).
func (t *Tensor) Index(n, c, y, x int) int {
	return ((n*t.C+c)*t.H+y)*t.W + x
}

// At returns the element at (n, c, y, x).
func (t *Tensor) At(n, c, y, x int) float32 {
	return t.Data[t.Index(n, c, y, x)]
}

// Set stores v at (n, c, y, x).
func (t *Tensor) Set(n, c, y, x int, v float32) {
	t.Data[t.Index(n, c, y, x)] = v
}

// Plane returns a view of the contiguous (n, c) channel plane of length H*W.
// Modifications to the returned slice update the tensor.
func (t *Tensor) Plane(n, c int) []float32 {
	start := (n*t.C + c) * t.H * t.W
	return t.Data[start : start+t.H*t.W]
}

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	out := New(t.N, t.C, t.H, t.W)
	copy(out.Data, t.Data)
	return out
}

// Fill sets every element to v.
func (t *Tensor) Fill(v float32) {
	for i := range t.Data {
		t.Data[i] = v
	}
}

// SameShape reports whether t and o have identical dimensions.
func (t *Tensor) SameShape(o *Tensor) bool {
	return t.N == o.N && t.C == o.C && t.H == o.H && t.W == o.W
}

// SelectBatch copies the i-th sample into a new tensor with batch size 1.
func SelectBatch(t *Tensor, i int) *Tensor {
	if i < 0 || i >= t.N {
		panic("batch index out of range")
	}
	out := New(1, t.C, t.H, t.W)
	stride := t.C * t.H * t.W
	copy(out.Data, t.Data[i*stride:(i+1)*stride])
	return out
}

// ConcatBatch concatenates tensors along the batch dimension. All inputs must
// share channel and spatial dimensions.
func ConcatBatch(ts ...*Tensor) *Tensor {
	if len(ts) == 0 {
		panic("concat of zero tensors")
	}
	first := ts[0]
	n := 0
	for _, t := range ts {
		if t.C != first.C || t.H != first.H || t.W != first.W {
			panic("concat batch: shape mismatch")
		}
		n += t.N
	}
	out := New(n, first.C, first.H, first.W)
	off := 0
	for _, t := range ts {
		copy(out.Data[off:], t.Data)
		off += len(t.Data)
	}
	return out
}

// ConcatChannels concatenates tensors along the channel dimension. All inputs
// must share batch and spatial dimensions.
func ConcatChannels(ts ...*Tensor) *Tensor {
	if len(ts) == 0 {
		panic("concat of zero tensors")
	}
	first := ts[0]
	c := 0
	for _, t := range ts {
		if t.N != first.N || t.H != first.H || t.W != first.W {
			panic("concat channels: shape mismatch")
		}
		c += t.C
	}
	out := New(first.N, c, first.H, first.W)
	plane := first.H * first.W
	for n := 0; n < first.N; n++ {
		off := n * c * plane
		for _, t := range ts {
			src := t.Data[n*t.C*plane : (n+1)*t.C*plane]
			copy(out.Data[off:], src)
			off += len(src)
		}
	}
	return out
}

// ChunkChannels splits a tensor into parts equal slices along the channel
// dimension. The channel count must be divisible by parts.
func ChunkChannels(t *Tensor, parts int) []*Tensor {
	if parts <= 0 || t.C%parts != 0 {
		panic("chunk channels: channel count not divisible")
	}
	cc := t.C / parts
	plane := t.H * t.W
	out := make([]*Tensor, parts)
	for p := range out {
		chunk := New(t.N, cc, t.H, t.W)
		for n := 0; n < t.N; n++ {
			src := t.Data[(n*t.C+p*cc)*plane : (n*t.C+(p+1)*cc)*plane]
			copy(chunk.Data[n*cc*plane:], src)
		}
		out[p] = chunk
	}
	return out
}

// FillRand fills a slice with reproducible pseudo-random values. A small
// range around zero is used to avoid overflow in accumulations. The seed
// controls the random sequence; multiple calls with the same seed produce
// identical data.
func FillRand(data []float32, seed int64) {
	rng := rand.New(rand.NewSource(seed))
	for i := range data {
		data[i] = (rng.Float32() - 0.5) * 0.02 // roughly in (-0.01,0.01)
	}
}

// FillRandWith fills a slice from an existing random source.
func FillRandWith(data []float32, rng *rand.Rand) {
	for i := range data {
		data[i] = (rng.Float32() - 0.5) * 0.02
	}
}
