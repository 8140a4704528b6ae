package model

import (
	"fmt"
	"strings"

	"github.com/samcharles93/dcae/internal/tensor"
)

// Activation is an elementwise non-linearity applied over a feature map.
type Activation func(float32) float32

// NewActivation resolves an activation by name. Unknown names are
// construction-time errors; this and NewNorm are the only validated string
// entry points in the block stack.
func NewActivation(name string) (Activation, error) {
	switch strings.ToLower(name) {
	case "swish", "silu":
		return tensor.Silu, nil
	case "mish":
		return tensor.Mish, nil
	case "gelu":
		return tensor.Gelu, nil
	case "relu":
		return tensor.Relu, nil
	case "relu6":
		return tensor.Relu6, nil
	case "identity":
		return tensor.Identity, nil
	default:
		return nil, fmt.Errorf("unsupported activation function: %s", name)
	}
}
