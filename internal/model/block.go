package model

import (
	"fmt"

	"github.com/samcharles93/dcae/internal/tensor"
)

// Block is one stage layer of the encoder or decoder. Concrete blocks are
// resolved from their configuration tag at construction time.
type Block interface {
	Forward(x *tensor.Tensor) *tensor.Tensor
	appendParams(dst [][]float32) [][]float32
	appendConvs(dst []*tensor.Conv2D) []*tensor.Conv2D
}

// newBlock resolves a stage block by its type tag. Unknown tags fail fast.
func newBlock(blockType string, inC, outC, headDim int, normType, actFn string, qkvMultiscales []int) (Block, error) {
	switch blockType {
	case "ResBlock":
		return NewResBlock(inC, outC, normType, actFn)
	case "EfficientViTBlock":
		return NewEfficientViTBlock(inC, headDim, normType, qkvMultiscales)
	default:
		return nil, fmt.Errorf("block type %q is not supported", blockType)
	}
}

// EfficientViTBlock composes multiscale linear attention (with residual) and a
// GLUMBConv feed-forward into one stage unit.
type EfficientViTBlock struct {
	attn    *MultiscaleLinearAttention
	convOut *GLUMBConv
}

func NewEfficientViTBlock(channels, headDim int, normType string, qkvMultiscales []int) (*EfficientViTBlock, error) {
	attn, err := NewMultiscaleLinearAttention(channels, channels, headDim, normType, qkvMultiscales, true)
	if err != nil {
		return nil, err
	}
	convOut, err := NewGLUMBConv(channels, channels)
	if err != nil {
		return nil, err
	}
	return &EfficientViTBlock{attn: attn, convOut: convOut}, nil
}

func (b *EfficientViTBlock) Forward(x *tensor.Tensor) *tensor.Tensor {
	x = b.attn.Forward(x)
	return b.convOut.Forward(x)
}

func (b *EfficientViTBlock) appendParams(dst [][]float32) [][]float32 {
	dst = b.attn.appendParams(dst)
	return b.convOut.appendParams(dst)
}

func (b *EfficientViTBlock) appendConvs(dst []*tensor.Conv2D) []*tensor.Conv2D {
	dst = b.attn.appendConvs(dst)
	return b.convOut.appendConvs(dst)
}
