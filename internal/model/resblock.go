package model

import "github.com/samcharles93/dcae/internal/tensor"

// ResBlock is a standard two-convolution residual block: 3x3 conv, activation,
// 3x3 conv without bias, channel normalization, additive residual.
//
// The constructor permits inC != outC, but the residual add then fails at
// forward time; stage configurations must keep inC == outC when using this
// block mid-stack.
type ResBlock struct {
	nonlinearity Activation
	conv1        *tensor.Conv2D
	conv2        *tensor.Conv2D
	norm         Norm
}

func NewResBlock(inC, outC int, normType, actFn string) (*ResBlock, error) {
	r := &ResBlock{}
	var err error
	if r.nonlinearity, err = NewActivation(actFn); err != nil {
		return nil, err
	}
	if r.conv1, err = tensor.NewConv2D(inC, inC, 3, 1, 1, 1, true); err != nil {
		return nil, err
	}
	if r.conv2, err = tensor.NewConv2D(inC, outC, 3, 1, 1, 1, false); err != nil {
		return nil, err
	}
	if r.norm, err = NewNorm(normType, outC); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *ResBlock) Forward(x *tensor.Tensor) *tensor.Tensor {
	h := r.conv1.Apply(x)
	tensor.Map(h, r.nonlinearity)
	h = r.conv2.Apply(h)
	h = r.norm.Apply(h)
	tensor.Add(h, x)
	return h
}

func (r *ResBlock) appendParams(dst [][]float32) [][]float32 {
	dst = append(dst, r.conv1.Parameters()...)
	dst = append(dst, r.conv2.Parameters()...)
	return append(dst, r.norm.Parameters()...)
}

func (r *ResBlock) appendConvs(dst []*tensor.Conv2D) []*tensor.Conv2D {
	return append(dst, r.conv1, r.conv2)
}
