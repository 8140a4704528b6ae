package model

import (
	"fmt"

	"github.com/samcharles93/dcae/internal/tensor"
)

// TilingOptions bounds the sample-space region processed at once when tiling
// is enabled. Strides smaller than the minimums overlap adjacent tiles for
// blending.
type TilingOptions struct {
	SampleMinHeight    int
	SampleMinWidth     int
	SampleStrideHeight int
	SampleStrideWidth  int
}

// DefaultTilingOptions returns the stock 512-pixel tiles with 64 pixels of
// overlap.
func DefaultTilingOptions() TilingOptions {
	return TilingOptions{
		SampleMinHeight:    512,
		SampleMinWidth:     512,
		SampleStrideHeight: 448,
		SampleStrideWidth:  448,
	}
}

// Tiler splits oversized inputs into tiles, runs the model per tile and
// blends the seams. The core model only decides when tiling applies; the
// strategy itself is pluggable.
type Tiler interface {
	TiledEncode(m *AutoencoderDC, x *tensor.Tensor) (*tensor.Tensor, error)
	TiledDecode(m *AutoencoderDC, z *tensor.Tensor) (*tensor.Tensor, error)
}

// AutoencoderDC is a deep-compression autoencoder: a deterministic encoder to
// a low-resolution latent and a decoder back to image space.
type AutoencoderDC struct {
	cfg     Config
	encoder *Encoder
	decoder *Decoder

	useSlicing bool
	useTiling  bool
	tiling     TilingOptions
	tiler      Tiler
}

// New validates the configuration and builds the encoder/decoder pair. All
// weights start at zero apart from normalization scales; call InitRand or a
// weight loader before using the model.
func New(cfg Config) (*AutoencoderDC, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	enc, err := NewEncoder(&cfg)
	if err != nil {
		return nil, err
	}
	dec, err := NewDecoder(&cfg)
	if err != nil {
		return nil, err
	}
	return &AutoencoderDC{
		cfg:     cfg,
		encoder: enc,
		decoder: dec,
		tiling:  DefaultTilingOptions(),
	}, nil
}

// Config returns the architecture the model was built from.
func (m *AutoencoderDC) Config() Config { return m.cfg }

// SpatialCompressionRatio is the factor between image and latent resolution.
func (m *AutoencoderDC) SpatialCompressionRatio() int { return m.cfg.SpatialCompressionRatio() }

// ScalingFactor is the latent normalization constant carried in the config.
// Encode and Decode do not apply it; callers that need unit-variance latents
// multiply and divide themselves.
func (m *AutoencoderDC) ScalingFactor() float64 { return m.cfg.ScalingFactor }

// SetTiler installs the tiling strategy used when tiling is enabled.
func (m *AutoencoderDC) SetTiler(t Tiler) { m.tiler = t }

// EnableSlicing makes Encode and Decode process batch members one at a time
// to bound peak memory.
func (m *AutoencoderDC) EnableSlicing() { m.useSlicing = true }

// DisableSlicing restores whole-batch processing.
func (m *AutoencoderDC) DisableSlicing() { m.useSlicing = false }

// EnableTiling turns on spatial tiling for inputs larger than the tile
// minimums. Zero-valued fields in opts keep the current settings.
func (m *AutoencoderDC) EnableTiling(opts TilingOptions) {
	if opts.SampleMinHeight > 0 {
		m.tiling.SampleMinHeight = opts.SampleMinHeight
	}
	if opts.SampleMinWidth > 0 {
		m.tiling.SampleMinWidth = opts.SampleMinWidth
	}
	if opts.SampleStrideHeight > 0 {
		m.tiling.SampleStrideHeight = opts.SampleStrideHeight
	}
	if opts.SampleStrideWidth > 0 {
		m.tiling.SampleStrideWidth = opts.SampleStrideWidth
	}
	m.useTiling = true
}

// DisableTiling turns spatial tiling off; tile sizes are kept.
func (m *AutoencoderDC) DisableTiling() { m.useTiling = false }

// Tiling reports whether tiling is enabled and with which options.
func (m *AutoencoderDC) Tiling() (TilingOptions, bool) { return m.tiling, m.useTiling }

// Encode maps an image batch to latents. Input height and width must be
// multiples of the spatial compression ratio.
func (m *AutoencoderDC) Encode(x *tensor.Tensor) (*tensor.Tensor, error) {
	ratio := m.SpatialCompressionRatio()
	if x.H%ratio != 0 || x.W%ratio != 0 {
		return nil, fmt.Errorf("encode: input %dx%d not divisible by compression ratio %d", x.H, x.W, ratio)
	}
	if m.useSlicing && x.N > 1 {
		slices := make([]*tensor.Tensor, x.N)
		for n := 0; n < x.N; n++ {
			z, err := m.encodeSingle(tensor.SelectBatch(x, n))
			if err != nil {
				return nil, err
			}
			slices[n] = z
		}
		return tensor.ConcatBatch(slices...), nil
	}
	return m.encodeSingle(x)
}

func (m *AutoencoderDC) encodeSingle(x *tensor.Tensor) (*tensor.Tensor, error) {
	if m.useTiling && (x.H > m.tiling.SampleMinHeight || x.W > m.tiling.SampleMinWidth) {
		if m.tiler == nil {
			return nil, fmt.Errorf("encode: tiling enabled but no tiler installed")
		}
		return m.tiler.TiledEncode(m, x)
	}
	return m.encoder.Forward(x), nil
}

// Decode maps a latent batch back to image space.
func (m *AutoencoderDC) Decode(z *tensor.Tensor) (*tensor.Tensor, error) {
	if z.C != m.cfg.LatentChannels {
		return nil, fmt.Errorf("decode: latent has %d channels, model expects %d", z.C, m.cfg.LatentChannels)
	}
	if m.useSlicing && z.N > 1 {
		slices := make([]*tensor.Tensor, z.N)
		for n := 0; n < z.N; n++ {
			x, err := m.decodeSingle(tensor.SelectBatch(z, n))
			if err != nil {
				return nil, err
			}
			slices[n] = x
		}
		return tensor.ConcatBatch(slices...), nil
	}
	return m.decodeSingle(z)
}

func (m *AutoencoderDC) decodeSingle(z *tensor.Tensor) (*tensor.Tensor, error) {
	ratio := m.SpatialCompressionRatio()
	minH := m.tiling.SampleMinHeight / ratio
	minW := m.tiling.SampleMinWidth / ratio
	if m.useTiling && (z.H > minH || z.W > minW) {
		if m.tiler == nil {
			return nil, fmt.Errorf("decode: tiling enabled but no tiler installed")
		}
		return m.tiler.TiledDecode(m, z)
	}
	return m.decoder.Forward(z), nil
}

// Forward encodes then decodes a batch. The returned loss is always zero and
// the side-channel map always empty; both exist so training harnesses share
// the inference signature.
func (m *AutoencoderDC) Forward(x *tensor.Tensor) (*tensor.Tensor, float32, map[string]any, error) {
	z, err := m.Encode(x)
	if err != nil {
		return nil, 0, nil, err
	}
	recon, err := m.Decode(z)
	if err != nil {
		return nil, 0, nil, err
	}
	return recon, 0, map[string]any{}, nil
}

// NumParameters counts every learnable scalar in the model.
func (m *AutoencoderDC) NumParameters() int {
	var params [][]float32
	params = m.encoder.appendParams(params)
	params = m.decoder.appendParams(params)
	total := 0
	for _, p := range params {
		total += len(p)
	}
	return total
}

// InitRand fills every convolution weight with small deterministic noise.
// Normalization parameters keep their identity values, so freshly initialized
// models stay numerically tame.
func (m *AutoencoderDC) InitRand(seed int64) {
	var convs []*tensor.Conv2D
	convs = m.encoder.appendConvs(convs)
	convs = m.decoder.appendConvs(convs)
	for i, c := range convs {
		tensor.FillRand(c.Weight, seed+int64(i))
	}
}
